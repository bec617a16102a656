package response

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"parkease/internal/pkg/apperr"
)

func Success(c *gin.Context, statusCode int, data interface{}) {
	c.JSON(statusCode, gin.H{
		"success": true,
		"data":    data,
	})
}

func Error(c *gin.Context, statusCode int, code string, message string) {
	c.JSON(statusCode, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}

func ErrorWithDetails(c *gin.Context, statusCode int, code string, message string, details any) {
	c.JSON(statusCode, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
			"details": details,
		},
	})
}

// CustomError aborts the chain after writing the error envelope.
func CustomError(c *gin.Context, statusCode int, code string, message string) {
	c.AbortWithStatusJSON(statusCode, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}

// FromError renders err according to its apperr kind.
func FromError(c *gin.Context, err error) {
	var verr *apperr.ValidationError
	if errors.As(err, &verr) {
		ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request", verr.Fields)
		return
	}

	status := statusFor(apperr.KindOf(err))

	var ae *apperr.Error
	if errors.As(err, &ae) {
		Error(c, status, ae.Code, ae.Message)
		return
	}

	switch status {
	case http.StatusInternalServerError:
		if errors.Is(err, apperr.ErrIntegrity) {
			log.Printf("ALERT integrity_failure method=%s path=%s user_id=%d error=%q",
				c.Request.Method, c.Request.URL.Path, c.GetInt64("user_id"), err.Error())
			Error(c, status, "INTEGRITY_FAILURE", "Operation could not be completed consistently")
			return
		}
		_ = c.Error(err)
		Error(c, status, "INTERNAL_ERROR", "Internal server error")
	case http.StatusBadGateway:
		_ = c.Error(err)
		Error(c, status, "UPSTREAM_FAILURE", "Upstream service unavailable, try again later")
	default:
		Error(c, status, codeFor(status), err.Error())
	}
}

func statusFor(kind error) int {
	switch kind {
	case apperr.ErrValidation:
		return http.StatusBadRequest
	case apperr.ErrUnauthorized:
		return http.StatusUnauthorized
	case apperr.ErrForbidden:
		return http.StatusForbidden
	case apperr.ErrNotFound:
		return http.StatusNotFound
	case apperr.ErrConflict:
		return http.StatusConflict
	case apperr.ErrUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func codeFor(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "VALIDATION_ERROR"
	case http.StatusUnauthorized:
		return "UNAUTHORIZED"
	case http.StatusForbidden:
		return "FORBIDDEN"
	case http.StatusNotFound:
		return "NOT_FOUND"
	case http.StatusConflict:
		return "CONFLICT"
	default:
		return "INTERNAL_ERROR"
	}
}
