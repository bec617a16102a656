package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"parkease/internal/database"
	"parkease/internal/modules/lot"
	"parkease/internal/repository"
)

func main() {
	_ = godotenv.Load()

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		log.Fatal("DATABASE_URL is required")
	}

	db, err := database.Connect(databaseURL)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	svc := lot.NewService(repository.NewLotRepository(db), repository.NewSessionRepository(db))
	fixed, err := svc.Reconcile(ctx)
	if err != nil {
		log.Fatalf("reconcile failed after %d corrections: %v", len(fixed), err)
	}

	for _, c := range fixed {
		log.Printf("lot %d (%s): %d -> %d", c.LotID, c.Name, c.Recorded, c.Actual)
	}
	log.Printf("reconcile completed: corrected=%d", len(fixed))
}
