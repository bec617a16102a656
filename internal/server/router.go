// Package server assembles the HTTP surface from the feature modules.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"parkease/internal/config"
	"parkease/internal/events"
	"parkease/internal/geocode"
	"parkease/internal/mailer"
	"parkease/internal/middleware"
	"parkease/internal/modules/auth"
	"parkease/internal/modules/contact"
	"parkease/internal/modules/lot"
	"parkease/internal/modules/session"
	"parkease/internal/modules/stats"
	jwtsvc "parkease/internal/pkg/jwt"
	"parkease/internal/pkg/response"
	"parkease/internal/repository"
	"parkease/internal/upload"
)

// Deps are the collaborators cmd/api builds from config. Publisher, Limiter
// and Cache may be nil.
type Deps struct {
	Config    *config.Config
	DB        *gorm.DB
	JWT       *jwtsvc.Service
	Mailer    mailer.Sender
	Uploads   upload.Store
	Publisher events.Publisher
	Geocoder  geocode.Searcher
	Limiter   middleware.Limiter
	Cache     *middleware.ResponseCache
}

func NewRouter(d Deps) *gin.Engine {
	cfg := d.Config

	userRepo := repository.NewUserRepository(d.DB)
	lotRepo := repository.NewLotRepository(d.DB)
	sessionRepo := repository.NewSessionRepository(d.DB)

	authService := auth.NewService(userRepo, d.JWT, d.Mailer, d.Uploads, auth.ResetOptions{
		TTL: cfg.PasswordResetTTL,
		URL: cfg.PasswordResetURL,
	})
	authHandler := auth.NewHandler(authService)

	lotService := lot.NewService(lotRepo, sessionRepo)
	var purger lot.CachePurger
	if d.Cache != nil {
		purger = d.Cache
	}
	lotHandler := lot.NewHandler(lotService, purger)

	sessionService := session.NewService(sessionRepo, lotService, d.Publisher)
	sessionHandler := session.NewHandler(sessionService, purger)
	liveHandler := session.NewLiveHandler(sessionService, d.JWT, originChecker(cfg.CORSAllowedOrigins))

	statsHandler := stats.NewHandler(stats.NewService(sessionRepo, lotRepo, userRepo))
	contactHandler := contact.NewHandler(contact.NewService(d.Mailer, cfg.SupportEmail))
	geocodeHandler := geocode.NewHandler(d.Geocoder)

	rateLimit := middleware.RateLimit(middleware.RateLimitConfig{
		Enabled:      cfg.RateLimitEnabled,
		Capacity:     cfg.RateLimitCapacity,
		RefillPerSec: cfg.RateLimitRefill,
		Prefix:       "ratelimit",
	}, d.Limiter)

	r := gin.New()
	r.Use(gin.Logger(), middleware.RequestID(), middleware.ErrorLogger(), middleware.CORS(cfg.CORSAllowedOrigins))
	r.Static(cfg.UploadURLBase, cfg.UploadDir)

	r.GET("/health", healthHandler(d.DB))

	v1 := r.Group("/api/v1")
	{
		// public
		authHandler.RegisterPublicRoutes(v1, rateLimit)
		lotHandler.RegisterPublicRoutes(v1, d.Cache.Middleware())
		contactHandler.RegisterRoutes(v1, rateLimit)
		liveHandler.RegisterRoutes(v1)

		protected := v1.Group("")
		protected.Use(middleware.JWTAuth(d.JWT))
		{
			authHandler.RegisterProtectedRoutes(protected)
			sessionHandler.RegisterRoutes(protected)
		}

		admin := v1.Group("/admin")
		admin.Use(middleware.JWTAuth(d.JWT), middleware.AdminOnly())
		{
			lotHandler.RegisterAdminRoutes(admin)
			sessionHandler.RegisterAdminRoutes(admin)
			statsHandler.RegisterAdminRoutes(admin)
			geocodeHandler.RegisterAdminRoutes(admin)
		}
	}

	return r
}

func healthHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(ctx)
		}
		if err != nil {
			response.Error(c, http.StatusServiceUnavailable, "DB_UNAVAILABLE", "Database is unreachable")
			return
		}
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	}
}

func originChecker(allowed []string) func(string) bool {
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		set[o] = true
	}
	return func(origin string) bool { return set[origin] }
}
