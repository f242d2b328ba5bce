package mailer

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"go-gin-microblog/internal/domain"
)

// Worker 独立于 HTTP 请求路径的投递循环。
// 尽力而为：查不到用户、发信失败都只记日志，不重试
type Worker struct {
	queue  Queue
	users  domain.UserRepository
	sender Sender
	log    *zap.Logger
}

func NewWorker(q Queue, users domain.UserRepository, s Sender, log *zap.Logger) *Worker {
	return &Worker{queue: q, users: users, sender: s, log: log}
}

func (w *Worker) Run(ctx context.Context) error {
	for {
		j, err := w.queue.Dequeue(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			w.log.Error("mail dequeue failed", zap.Error(err))
			continue
		}
		w.handle(ctx, j)
	}
}

func (w *Worker) handle(ctx context.Context, j Job) {
	u, err := w.users.FindByID(ctx, j.UserID)
	if err != nil {
		w.log.Error("mail job: load user failed", zap.String("kind", j.Kind), zap.Error(err))
		return
	}
	if u == nil {
		// 入队后用户可能已被删除
		w.log.Warn("mail job: user gone", zap.String("kind", j.Kind), zap.String("user_id", j.UserID))
		return
	}
	if err := w.sender.Send(j, u); err != nil {
		w.log.Error("mail send failed",
			zap.String("kind", j.Kind),
			zap.String("user_id", j.UserID),
			zap.Error(err))
	}
}
