package handlers

import (
	"net/http"

	"seatledger/internal/domain"
	"seatledger/internal/http/middleware"
	"seatledger/internal/utils"

	"github.com/gin-gonic/gin"
)

// RespondDomainError maps domain errors to HTTP responses.
func RespondDomainError(c *gin.Context, err error) {
	switch {
	case domain.IsValidation(err):
		respondError(c, http.StatusBadRequest, err.Error(), "validation_error")
	case domain.IsInsufficientBalance(err):
		respondError(c, http.StatusBadRequest, err.Error(), "insufficient_balance")
	case domain.IsUnauthorized(err):
		respondError(c, http.StatusForbidden, err.Error(), "forbidden")
	case domain.IsNotFound(err):
		respondError(c, http.StatusNotFound, err.Error(), "not_found")
	case domain.IsConflict(err):
		respondError(c, http.StatusConflict, err.Error(), "conflict")
	default:
		utils.LogError(middleware.GetRequestID(c), "http", c.FullPath(), err)
		respondError(c, http.StatusInternalServerError, "internal server error", "internal_error")
	}
}

func respondError(c *gin.Context, status int, message, kind string) {
	c.JSON(status, gin.H{
		"status":  false,
		"message": message,
		"body":    gin.H{"error": kind},
		"code":    status,
	})
}
