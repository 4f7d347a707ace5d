package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"

	"librarysvc/internal/auth"
	"librarysvc/internal/config"
	"librarysvc/internal/httpx"
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

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer db.Close()
	if err := postgres.Migrate(ctx, db); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Kafka producers, one per topic
	pubCreated := kafkax.NewProducer(cfg.KafkaBrokers, library.TopicBorrowCreated, 1024)
	pubCreated.Start(ctx)
	pubReturned := kafkax.NewProducer(cfg.KafkaBrokers, library.TopicBooksReturned, 1024)
	pubReturned.Start(ctx)
	pubFineIssued := kafkax.NewProducer(cfg.KafkaBrokers, library.TopicFineIssued, 1024)
	pubFineIssued.Start(ctx)
	pubFinePaid := kafkax.NewProducer(cfg.KafkaBrokers, library.TopicFinePaid, 1024)
	pubFinePaid.Start(ctx)
	producers := []*kafkax.Producer{pubCreated, pubReturned, pubFineIssued, pubFinePaid}

	// Repos & services
	users := &postgres.UsersRepo{DB: db}
	authSvc := &auth.Service{Users: users, Tokens: &auth.RedisTokens{RDB: rdb}}
	catalog := &library.Catalog{Books: &postgres.BooksRepo{DB: db}}
	ledger := library.NewBorrowLedger(&postgres.LedgerRepo{DB: db})
	fines := &library.FineLedger{Fines: &postgres.FinesRepo{DB: db}}

	if err := seedAdmin(ctx, cfg, users); err != nil {
		log.Fatalf("seed admin: %v", err)
	}

	// Router: credential endpoints are public, everything else requires a token.
	router := httpx.NewRouter()
	(&httpx.AuthHandler{Auth: authSvc}).Register(router)
	router.Group(func(r chi.Router) {
		r.Use(auth.Middleware(authSvc.Tokens, users))
		(&httpx.BooksHandler{Catalog: catalog}).Register(r)
		(&httpx.BorrowsHandler{
			Ledger:        ledger,
			Service:       cfg.ServiceName,
			PubCreated:    pubCreated,
			PubReturned:   pubReturned,
			PubFineIssued: pubFineIssued,
		}).Register(r)
		(&httpx.FinesHandler{
			Fines:   fines,
			Service: cfg.ServiceName,
			PubPaid: pubFinePaid,
		}).Register(r)
	})

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	go func() {
		log.Printf("HTTP listening at %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Println("shutting down...")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	for _, p := range producers {
		p.Close()
	}
	cancel()
	for _, p := range producers {
		p.WaitClosed()
	}
}

// seedAdmin makes sure the configured administrator account exists so a fresh
// deployment is usable without poking the database by hand.
func seedAdmin(ctx context.Context, cfg config.Config, users library.UserRepo) error {
	if cfg.AdminUsername == "" || cfg.AdminPassword == "" {
		return nil
	}
	if _, err := users.GetByUsername(ctx, cfg.AdminUsername); err == nil {
		return nil
	} else if !errors.Is(err, library.ErrNotFound) {
		return err
	}
	hash, err := auth.HashPassword(cfg.AdminPassword)
	if err != nil {
		return err
	}
	u := &library.User{Username: cfg.AdminUsername, PasswordHash: hash, IsStaff: true}
	if err := users.Create(ctx, u); err != nil {
		return err
	}
	log.Printf("seeded administrator %q", cfg.AdminUsername)
	return nil
}
