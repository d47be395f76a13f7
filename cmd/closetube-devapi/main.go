package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/joho/godotenv"

	"github.com/John-Robertt/closetube/internal/devapi"
)

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func main() {
	var empty bool
	flag.BoolVar(&empty, "empty", false, "从空列表启动（不加载样例视频）")
	flag.Parse()

	// .env 可选；已存在的进程环境变量优先。
	_ = godotenv.Load()

	logger := log.With(log.NewStdLogger(os.Stderr),
		"ts", log.DefaultTimestamp,
		"caller", log.DefaultCaller,
	)
	helper := log.NewHelper(logger)

	opts := devapi.Options{
		CORSOrigins: devapi.ParseOrigins(getenv("CORS_ORIGINS", "*")),
		Logger:      logger,
	}
	if !empty {
		opts.Seed = devapi.DefaultSeed(time.Now())
	}
	app := devapi.New(opts)

	port := getenv("PORT", "8000")
	addr := ":" + port

	done := make(chan os.Signal, 1)
	signal.Notify(done, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		helper.Infow("msg", "server listening", "addr", addr, "videos", len(opts.Seed))
		if err := app.Listen(addr); err != nil {
			helper.Fatalw("msg", "listen failed", "error", err)
		}
	}()

	<-done
	helper.Info("shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(ctx); err != nil {
		helper.Warnw("msg", "graceful shutdown failed", "error", err)
	}
	helper.Info("server stopped")
}
