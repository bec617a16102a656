package geocode

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"parkease/internal/pkg/response"
)

type Searcher interface {
	Search(ctx context.Context, query string) ([]Place, error)
}

type Handler struct {
	searcher Searcher
}

func NewHandler(searcher Searcher) *Handler {
	return &Handler{searcher: searcher}
}

func (h *Handler) RegisterAdminRoutes(admin *gin.RouterGroup) {
	admin.GET("/geocode", h.Search)
}

func (h *Handler) Search(c *gin.Context) {
	places, err := h.searcher.Search(c.Request.Context(), c.Query("q"))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"results": places})
}
