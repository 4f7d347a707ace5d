package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"librarysvc/internal/audit"
	"librarysvc/internal/config"
	kafkax "librarysvc/internal/kafka"
	"librarysvc/internal/library"
	"librarysvc/internal/postgres"
	"librarysvc/internal/redisx"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()
	if err := postgres.Migrate(ctx, db); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	svc := &audit.Service{
		Repo:        &postgres.AuditRepo{DB: db},
		Redis:       rdb,
		ServiceName: cfg.ServiceName + "-auditor",
	}

	group := getenv("AUDITOR_GROUP", "auditor-svc")
	workers := atoiOr("AUDITOR_WORKERS", 4)

	topics := []string{
		library.TopicBorrowCreated,
		library.TopicBooksReturned,
		library.TopicFineIssued,
		library.TopicFinePaid,
	}
	for _, topic := range topics {
		cons := kafkax.NewConsumer(cfg.KafkaBrokers, group, topic, workers)
		go func(topic string) {
			log.Printf("audit consumer started: group=%s topic=%s workers=%d", group, topic, workers)
			if err := cons.Start(ctx, svc.HandleEvent); err != nil {
				log.Printf("consumer %s exit: %v", topic, err)
				cancel()
			}
		}(topic)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
	case <-ctx.Done():
	}
	log.Println("shutting down auditor...")
	cancel()
	time.Sleep(500 * time.Millisecond)
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func atoiOr(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		log.Printf("%s=%q is not a number, using %d", key, s, def)
		return def
	}
	return i
}
