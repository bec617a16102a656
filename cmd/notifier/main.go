package main

import (
	"context"
	"errors"
	"log"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"parkease/internal/config"
	"parkease/internal/database"
	"parkease/internal/events"
	"parkease/internal/mailer"
	"parkease/internal/notifier"
	"parkease/internal/repository"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.RabbitMQURL == "" {
		log.Fatal("RABBITMQ_URL is required")
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database: %v", err)
	}

	var sender mailer.Sender = mailer.NewConsoleSender()
	if cfg.SMTPHost != "" {
		sender = mailer.NewSMTPSender(mailer.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.MailFrom,
		})
	}

	n := notifier.New(repository.NewUserRepository(db), sender, cfg.SupportEmail)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Printf("notifier consuming queue=%s exchange=%s", cfg.NotifierQueue, cfg.EventsExchange)
	err = events.Consume(ctx, events.ConsumerConfig{
		URL:      cfg.RabbitMQURL,
		Exchange: cfg.EventsExchange,
		Queue:    cfg.NotifierQueue,
		Bindings: []string{
			string(events.SessionCompleted),
			string(events.SessionCancelled),
			string(events.IntegrityFailure),
		},
	}, n.Handle)
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("notifier: %v", err)
	}
	log.Println("notifier stopped")
}
