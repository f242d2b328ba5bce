package mailer

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisQueue list 结构的任务队列：LPUSH 入队，BRPOP 出队，单队列 FIFO
type RedisQueue struct {
	rdb *redis.Client
	key string
}

func NewRedisQueue(rdb *redis.Client, key string) *RedisQueue {
	if key == "" {
		key = "queue:mail"
	}
	return &RedisQueue{rdb: rdb, key: key}
}

func (q *RedisQueue) Enqueue(ctx context.Context, j Job) error {
	b, err := json.Marshal(j)
	if err != nil {
		return err
	}
	return q.rdb.LPush(ctx, q.key, b).Err()
}

func (q *RedisQueue) Dequeue(ctx context.Context) (Job, error) {
	for {
		// 带超时的 BRPOP，醒来检查 ctx 再继续等
		res, err := q.rdb.BRPop(ctx, 5*time.Second, q.key).Result()
		if errors.Is(err, redis.Nil) {
			if ctx.Err() != nil {
				return Job{}, ctx.Err()
			}
			continue
		}
		if err != nil {
			return Job{}, err
		}
		var j Job
		if err := json.Unmarshal([]byte(res[1]), &j); err != nil {
			return Job{}, err
		}
		return j, nil
	}
}
