package mailer

import (
	"context"
	"errors"
)

// 与老版本同步发信相比，入队交给独立 worker 是最终形态：
// 请求路径只负责入队并立即返回，不关心投递结果
const (
	KindRegistrationConfirmation  = "registration_confirmation"
	KindPasswordResetConfirmation = "password_reset_confirmation"
)

// Job 队列上的任务描述，只带 kind 和 user_id，正文渲染放在 worker 侧
type Job struct {
	Kind   string `json:"kind"`
	UserID string `json:"user_id"`
}

type Queue interface {
	Enqueue(ctx context.Context, j Job) error
	// Dequeue 阻塞到有任务或 ctx 取消
	Dequeue(ctx context.Context) (Job, error)
}

// ErrQueueFull 进程内队列已满，任务被丢弃
var ErrQueueFull = errors.New("mail queue full")

// ChanQueue 进程内队列，测试与单机部署用
type ChanQueue struct{ ch chan Job }

func NewChanQueue(size int) *ChanQueue {
	return &ChanQueue{ch: make(chan Job, size)}
}

// Enqueue 不阻塞请求路径：满了直接返回 ErrQueueFull，由调用方记日志
func (q *ChanQueue) Enqueue(_ context.Context, j Job) error {
	select {
	case q.ch <- j:
		return nil
	default:
		return ErrQueueFull
	}
}

func (q *ChanQueue) Dequeue(ctx context.Context) (Job, error) {
	select {
	case j := <-q.ch:
		return j, nil
	case <-ctx.Done():
		return Job{}, ctx.Err()
	}
}

// Chan 只读视图，测试里用来断言入了什么队
func (q *ChanQueue) Chan() <-chan Job { return q.ch }
