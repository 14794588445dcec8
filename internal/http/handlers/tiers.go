package handlers

import (
	"net/http"
	"time"

	"seatledger/internal/domain"

	"github.com/gin-gonic/gin"
)

type tierConfigView struct {
	Tier            domain.Tier `json:"tier"`
	MinPoints       int64       `json:"minPoints"`
	DiscountPercent float64     `json:"discountPercent"`
	Multiplier      float64     `json:"multiplier"`
}

type loyaltyRequest struct {
	Amount      domain.Money `json:"amount"`
	Description string       `json:"description"`
}

// GetTierConfigs lists the active threshold table. GET /tiers/configs
func (h *Handler) GetTierConfigs(c *gin.Context) {
	configs := h.Engine.Loyalty.Configs()
	out := make([]tierConfigView, 0, len(configs))
	for _, cfg := range configs {
		out = append(out, tierConfigView{
			Tier:            cfg.Tier,
			MinPoints:       cfg.MinPoints,
			DiscountPercent: cfg.DiscountPercent(),
			Multiplier:      cfg.Multiplier(),
		})
	}
	respond(c, http.StatusOK, "ok", gin.H{"tiers": out, "unitsPerPoint": h.Engine.Loyalty.Tiers.UnitsPerPoint()})
}

func (h *Handler) AddLoyaltyPoints(c *gin.Context) {
	customerID, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req loyaltyRequest
	if !BindJSONOrError(c, &req) {
		return
	}
	res, err := h.engine(c).Loyalty.AddLoyaltyPoints(c.Request.Context(), customerID, req.Amount, req.Description)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	respond(c, http.StatusOK, "points added", res)
}

func (h *Handler) RecalculateTier(c *gin.Context) {
	customerID, ok := paramID(c, "id")
	if !ok {
		return
	}
	res, err := h.engine(c).Loyalty.RecalculateTier(c.Request.Context(), customerID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	respond(c, http.StatusOK, "tier recalculated", res)
}

// RecalculateAllTiers repairs every customer's tier in batches. POST /admin/tiers/recalculate
func (h *Handler) RecalculateAllTiers(c *gin.Context) {
	start := time.Now()
	checked, changed, err := h.engine(c).Loyalty.RecalculateAll(c.Request.Context(), 500)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	respond(c, http.StatusOK, "tiers recalculated", gin.H{
		"checked":   checked,
		"changed":   changed,
		"elapsedMs": time.Since(start).Milliseconds(),
	})
}
