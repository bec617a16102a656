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

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"parkease/internal/config"
	"parkease/internal/database"
	"parkease/internal/events"
	"parkease/internal/geocode"
	"parkease/internal/mailer"
	"parkease/internal/middleware"
	jwtsvc "parkease/internal/pkg/jwt"
	"parkease/internal/repository"
	"parkease/internal/server"
	"parkease/internal/upload"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, using environment")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if config.IsProdLike(cfg.AppEnv) {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	if err := repository.Migrate(db); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	if err := os.MkdirAll(cfg.UploadDir, 0o755); err != nil {
		log.Fatalf("upload dir: %v", err)
	}

	deps := server.Deps{
		Config:    cfg,
		DB:        db,
		JWT:       jwtsvc.New(cfg.JWTSecret, cfg.JWTTTL),
		Mailer:    newMailer(cfg),
		Uploads:   upload.NewDiskStore(cfg.UploadDir, cfg.UploadURLBase),
		Publisher: events.NopPublisher{},
		Geocoder:  geocode.NewClient(cfg.GeocodeURL, cfg.GeocodeUserAgent),
	}

	if rdb := newRedis(cfg); rdb != nil {
		defer rdb.Close()
		deps.Limiter = middleware.NewRedisTokenBucket(rdb, cfg.RateLimitCapacity, cfg.RateLimitRefill)
		if cfg.CacheEnabled {
			deps.Cache = middleware.NewResponseCache(middleware.NewRedisCacheStore(rdb), "cache:lots", cfg.CacheTTL)
		}
	}

	if cfg.RabbitMQURL != "" {
		pub := events.NewRabbitPublisher(cfg.RabbitMQURL, cfg.EventsExchange)
		defer pub.Close()
		deps.Publisher = pub
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           server.NewRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("parkease api listening on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}

func newMailer(cfg *config.Config) mailer.Sender {
	if cfg.SMTPHost == "" {
		log.Println("SMTP_HOST not set, emails are logged instead of sent")
		return mailer.NewConsoleSender()
	}
	return mailer.NewSMTPSender(mailer.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.MailFrom,
	})
}

// newRedis returns nil when Redis is not configured or unreachable; rate
// limiting and caching are then disabled.
func newRedis(cfg *config.Config) *redis.Client {
	if cfg.RedisAddr == "" {
		return nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Printf("redis unavailable at %s: %v; rate limiting and caching disabled", cfg.RedisAddr, err)
		_ = rdb.Close()
		return nil
	}
	return rdb
}
