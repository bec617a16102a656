package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"parkease/internal/database"
	"parkease/internal/repository"
	"parkease/internal/seed"
)

func main() {
	_ = godotenv.Load()

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		databaseURL = "parkease.db"
	}

	db, err := database.Connect(databaseURL)
	if err != nil {
		log.Fatal("DB connection failed:", err)
	}
	if err := repository.Migrate(db); err != nil {
		log.Fatal("migrate failed:", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if email := os.Getenv("ADMIN_EMAIL"); email != "" {
		username := os.Getenv("ADMIN_USERNAME")
		if username == "" {
			username = "admin"
		}
		created, err := seed.Admin(ctx, repository.NewUserRepository(db), username, email, os.Getenv("ADMIN_PASSWORD"))
		if err != nil {
			log.Fatal("admin seed failed:", err)
		}
		if created {
			log.Printf("admin created: %s", email)
		} else {
			log.Printf("admin already exists: %s", email)
		}
	} else {
		log.Println("ADMIN_EMAIL not set, skipping admin")
	}

	added, err := seed.Lots(ctx, repository.NewLotRepository(db), seed.KnownLots)
	if err != nil {
		log.Fatal("lot seed failed:", err)
	}
	for _, l := range added {
		log.Printf("  + %s (%.4f, %.4f) %d spots", l.Name, l.Lat, l.Lon, l.TotalSpots)
	}
	log.Println("Seed completed successfully!")
}
