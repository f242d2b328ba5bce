package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	_ "go.uber.org/automaxprocs"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"go-gin-microblog/internal/core/config"
	"go-gin-microblog/internal/core/database"
	"go-gin-microblog/internal/core/logger"
	"go-gin-microblog/internal/mailer"
	"go-gin-microblog/internal/repo"
)

// 通知 worker：消费 redis 队列，渲染并投递确认 / 重置邮件。
// 和 HTTP 请求路径完全解耦，挂了也不影响注册本身
func main() {
	_ = godotenv.Load()
	cfg := config.Load(os.Getenv("CONFIG_PATH"))
	log, cleanup := logger.New(cfg.Log.Level, cfg.Log.JSON)
	defer cleanup()

	db, err := database.NewGorm(database.Opts{
		Driver:             cfg.DB.Driver,
		DSN:                cfg.DB.DSN,
		Username:           cfg.DB.Username,
		Password:           cfg.DB.Password,
		MaxOpenConns:       cfg.DB.MaxOpenConns,
		MaxIdleConns:       cfg.DB.MaxIdleConns,
		ConnMaxLifetimeMin: cfg.DB.ConnMaxLifetimeMin,
		LogLevel:           cfg.DB.LogLevel,
	})
	if err != nil {
		log.Fatal("db open", zap.Error(err))
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	queue := mailer.NewRedisQueue(rdb, cfg.Redis.MailQueueKey)
	sender := mailer.NewSMTPSender(cfg.Mail, cfg.App.BaseURL)

	w := mailer.NewWorker(queue, repo.NewUserRepo(db), sender, log)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		cancel()
	}()

	log.Info("mail worker started", zap.String("queue", cfg.Redis.MailQueueKey))
	if err := w.Run(ctx); err != nil {
		log.Fatal("mail worker stopped with error", zap.Error(err))
	}
	log.Info("mail worker stopped gracefully")
}
