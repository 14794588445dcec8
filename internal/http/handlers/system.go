package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	intconfig "seatledger/internal/config"

	"github.com/gin-gonic/gin"
)

var (
	routerMu sync.RWMutex
	router   *gin.Engine
)

// SetRouter stores the active gin engine for later inspection (e.g., /api/routes).
func SetRouter(r *gin.Engine) {
	routerMu.Lock()
	defer routerMu.Unlock()
	router = r
}

func Health(c *gin.Context) {
	respond(c, http.StatusOK, "seat ledger running", gin.H{"status": "ok"})
}

func (h *Handler) DBCheck(c *gin.Context) {
	if h.DB == nil {
		respondError(c, http.StatusInternalServerError, "database not connected", "internal_error")
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()
	if err := intconfig.PingDB(ctx, h.DB); err != nil {
		respondError(c, http.StatusInternalServerError, "database ping failed: "+err.Error(), "internal_error")
		return
	}
	var customers int
	if err := h.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM customers").Scan(&customers); err != nil {
		respondError(c, http.StatusInternalServerError, "database query failed: "+err.Error(), "internal_error")
		return
	}
	respond(c, http.StatusOK, "database OK", gin.H{"customers": customers})
}

func Routes(c *gin.Context) {
	routerMu.RLock()
	r := router
	routerMu.RUnlock()
	if r == nil {
		respondError(c, http.StatusServiceUnavailable, "router not ready", "unavailable")
		return
	}

	routes := r.Routes()
	out := make([]gin.H, 0, len(routes))
	for _, rt := range routes {
		out = append(out, gin.H{
			"method":  rt.Method,
			"path":    rt.Path,
			"handler": rt.Handler,
		})
	}
	respond(c, http.StatusOK, "ok", gin.H{"routes": out})
}
