package session

import (
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"parkease/internal/domain"
	"parkease/internal/pkg/response"
)

type Handler struct {
	service *Service
	cache   CachePurger
}

// NewHandler wires the session endpoints. cache may be nil.
func NewHandler(service *Service, cache CachePurger) *Handler {
	return &Handler{service: service, cache: cache}
}

// RegisterRoutes expects a group already behind JWT auth.
func (h *Handler) RegisterRoutes(protected *gin.RouterGroup) {
	sessions := protected.Group("/sessions")
	sessions.POST("", h.Start)
	sessions.GET("", h.History)
	sessions.GET("/active", h.Active)
	sessions.POST("/:id/checkout", h.Checkout)
}

func (h *Handler) RegisterAdminRoutes(admin *gin.RouterGroup) {
	admin.POST("/sessions/:id/cancel", h.Cancel)
}

func (h *Handler) Start(c *gin.Context) {
	var req StartSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	sess, err := h.service.Start(c.Request.Context(), c.GetInt64("user_id"), req)
	if err != nil {
		response.FromError(c, err)
		return
	}
	h.purge(c)
	response.Success(c, http.StatusCreated, gin.H{"session": NewSessionView(sess)})
}

func (h *Handler) Active(c *gin.Context) {
	live, found, err := h.service.LiveQuote(c.Request.Context(), c.GetInt64("user_id"))
	if err != nil {
		response.FromError(c, err)
		return
	}
	if !found {
		response.Success(c, http.StatusOK, gin.H{"session": nil})
		return
	}
	response.Success(c, http.StatusOK, live)
}

func (h *Handler) History(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	list, err := h.service.History(c.Request.Context(), c.GetInt64("user_id"), limit)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"sessions": NewSessionViews(list)})
}

func (h *Handler) Checkout(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}

	role := domain.UserRole(c.GetString("role"))
	sess, err := h.service.CheckoutAs(c.Request.Context(), id, c.GetInt64("user_id"), role)
	if err != nil {
		response.FromError(c, err)
		return
	}
	h.purge(c)
	response.Success(c, http.StatusOK, gin.H{"session": NewSessionView(sess)})
}

func (h *Handler) Cancel(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}

	sess, err := h.service.Cancel(c.Request.Context(), id)
	if err != nil {
		response.FromError(c, err)
		return
	}
	h.purge(c)
	response.Success(c, http.StatusOK, gin.H{"session": NewSessionView(sess)})
}

// purge drops cached lot listings, whose occupancy just changed.
func (h *Handler) purge(c *gin.Context) {
	if h.cache == nil {
		return
	}
	if err := h.cache.Purge(c.Request.Context()); err != nil {
		log.Printf("cache_purge_failed scope=lots error=%q", err.Error())
	}
}

func sessionID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, http.StatusBadRequest, "INVALID_ID", "Invalid session ID")
		return 0, false
	}
	return id, true
}
