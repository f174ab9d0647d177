package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"kiosk/internal/config"
	"kiosk/internal/export"
	"kiosk/internal/queue"
	"kiosk/internal/store"
)

// Worker consumes attendance notifications and appends them to the CSV export.
func main() {
	cfg := config.Load()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.QueueBackend != "redis" {
		log.Fatalf("worker needs QUEUE_BACKEND=redis, got %q", cfg.QueueBackend)
	}

	rdb := store.NewRedis(cfg.RedisAddr)
	defer rdb.Close()
	if !rdb.Healthy(ctx) {
		log.Printf("warning: redis not reachable at %s, will keep retrying", cfg.RedisAddr)
	}

	q := queue.NewRedisQueue(rdb.Client, queue.DefaultKey)
	messages, err := q.Consume(ctx)
	if err != nil {
		log.Fatalf("queue consume init failed: %v", err)
	}

	log.Printf("worker started, exporting to %s", cfg.ExportPath)
	n := export.Drain(messages, export.NewFileAppender(cfg.ExportPath))
	log.Printf("worker stopped after %d events", n)
}
