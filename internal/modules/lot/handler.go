package lot

import (
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"parkease/internal/pkg/response"
)

type Handler struct {
	service *Service
	cache   CachePurger
}

// NewHandler wires the lot endpoints. cache may be nil.
func NewHandler(service *Service, cache CachePurger) *Handler {
	return &Handler{service: service, cache: cache}
}

// RegisterPublicRoutes mounts the read endpoints; listMW wraps only GET /lots.
func (h *Handler) RegisterPublicRoutes(rg *gin.RouterGroup, listMW ...gin.HandlerFunc) {
	lots := rg.Group("/lots")
	lots.GET("", append(listMW, h.List)...)
	lots.GET("/nearest", h.Nearest)
	lots.GET("/:id", h.Get)
}

func (h *Handler) RegisterAdminRoutes(admin *gin.RouterGroup) {
	lots := admin.Group("/lots")
	lots.GET("", h.List)
	lots.POST("", h.Create)
	lots.POST("/reconcile", h.Reconcile)
	lots.PUT("/:id", h.Update)
	lots.DELETE("/:id", h.Delete)
}

func (h *Handler) List(c *gin.Context) {
	var q ListLotsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid query parameters")
		return
	}

	lots, err := h.service.List(c.Request.Context(), q)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"lots": lots, "count": len(lots)})
}

func (h *Handler) Nearest(c *gin.Context) {
	var q NearestQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid query parameters")
		return
	}

	v, err := h.service.Nearest(c.Request.Context(), q)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"lot": v})
}

func (h *Handler) Get(c *gin.Context) {
	id, ok := lotID(c)
	if !ok {
		return
	}

	l, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"lot": NewLotView(l)})
}

func (h *Handler) Create(c *gin.Context) {
	var req CreateLotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	l, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.FromError(c, err)
		return
	}
	h.purge(c)
	response.Success(c, http.StatusCreated, gin.H{"lot": NewLotView(l)})
}

func (h *Handler) Update(c *gin.Context) {
	id, ok := lotID(c)
	if !ok {
		return
	}

	var req UpdateLotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	l, err := h.service.Update(c.Request.Context(), id, req)
	if err != nil {
		response.FromError(c, err)
		return
	}
	h.purge(c)
	response.Success(c, http.StatusOK, gin.H{"lot": NewLotView(l)})
}

func (h *Handler) Delete(c *gin.Context) {
	id, ok := lotID(c)
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		response.FromError(c, err)
		return
	}
	h.purge(c)
	response.Success(c, http.StatusOK, gin.H{"deleted": true, "id": id})
}

func (h *Handler) Reconcile(c *gin.Context) {
	fixed, err := h.service.Reconcile(c.Request.Context())
	if err != nil {
		response.FromError(c, err)
		return
	}
	if len(fixed) > 0 {
		h.purge(c)
	}
	response.Success(c, http.StatusOK, gin.H{"corrections": fixed})
}

func (h *Handler) purge(c *gin.Context) {
	if h.cache == nil {
		return
	}
	if err := h.cache.Purge(c.Request.Context()); err != nil {
		log.Printf("cache_purge_failed scope=lots error=%q", err.Error())
	}
}

func lotID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, http.StatusBadRequest, "INVALID_ID", "Invalid lot ID")
		return 0, false
	}
	return id, true
}
