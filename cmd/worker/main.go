package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"rollcall/internal/config"
	"rollcall/internal/mailer"
	"rollcall/internal/queue"
	"rollcall/internal/store"
)

// Worker consumes queued email messages and dispatches them. Delivery is
// best-effort: a failed send is logged and dropped, never retried into the
// check-in flow.
func main() {
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("shutdown signal received")
		cancel()
	}()

	redisClient := store.NewRedis(cfg.RedisAddr)

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, "rollcall:mail")
	}

	var m mailer.Mailer
	if cfg.MailBackend == "sendgrid" && cfg.SendgridKey != "" {
		m = mailer.NewSendgrid(cfg.SendgridKey)
		log.Println("mail backend: sendgrid")
	} else {
		m = mailer.Console{}
		log.Println("mail backend: console")
	}

	messages, err := q.Consume(ctx)
	if err != nil {
		log.Fatalf("queue consume init failed: %v", err)
	}

	log.Println("worker started, waiting for messages...")
	for msg := range messages {
		if msg.Type != "email" {
			continue
		}

		payload, err := mailer.Decode(msg.Body)
		if err != nil {
			log.Printf("drop undecodable message: %v", err)
			continue
		}
		if err := m.Send(ctx, payload); err != nil {
			log.Printf("send to %v failed: %v", payload.To, err)
			continue
		}
		log.Printf("sent %q to %v", payload.Subject, payload.To)
	}

	log.Println("worker stopped")
}
