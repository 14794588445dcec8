package handlers

import (
	"database/sql"
	"net/http"
	"strconv"
	"strings"
	"time"

	"seatledger/internal/domain"
	"seatledger/internal/http/middleware"
	"seatledger/internal/services"

	"github.com/gin-gonic/gin"
)

// Handler serves every engine route. It is built once in main and shared by all requests.
type Handler struct {
	Engine    services.Engine
	DB        *sql.DB
	Retention time.Duration
}

func New(engine services.Engine, db *sql.DB, retention time.Duration) *Handler {
	return &Handler{Engine: engine, DB: db, Retention: retention}
}

// engine returns the services bound to the current request id.
func (h *Handler) engine(c *gin.Context) services.Engine {
	return h.Engine.WithRequestID(middleware.GetRequestID(c))
}

// respond writes the uniform envelope.
func respond(c *gin.Context, status int, message string, body any) {
	payload := gin.H{
		"status":  status < http.StatusBadRequest,
		"message": message,
		"code":    status,
	}
	if body != nil {
		payload["body"] = body
	}
	c.JSON(status, payload)
}

// BindJSONOrError ensures body is present and parsable.
func BindJSONOrError[T any](c *gin.Context, dst *T) bool {
	if c.Request.Body == nil || c.Request.ContentLength == 0 {
		respondError(c, http.StatusBadRequest, "empty body", "invalid_body")
		return false
	}
	if err := c.ShouldBindJSON(dst); err != nil {
		respondError(c, http.StatusBadRequest, "invalid payload: "+err.Error(), "invalid_body")
		return false
	}
	return true
}

// paramID parses a positive integer path parameter.
func paramID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(c.Param(name)), 10, 64)
	if err != nil || id <= 0 {
		respondError(c, http.StatusBadRequest, name+": must be a positive id", "validation_error")
		return 0, false
	}
	return id, true
}

func pagination(c *gin.Context) domain.Pagination {
	page, _ := strconv.Atoi(c.Query("page"))
	size, _ := strconv.Atoi(c.DefaultQuery("pageSize", c.Query("limit")))
	return domain.Pagination{Page: page, PageSize: size}.Normalize()
}

func sendPDF(c *gin.Context, pdf []byte, filename string) {
	c.Header("Content-Disposition", `inline; filename="`+filename+`"`)
	c.Data(http.StatusOK, "application/pdf", pdf)
}
