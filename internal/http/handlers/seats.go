package handlers

import (
	"net/http"
	"strconv"
	"time"

	"seatledger/internal/http/middleware"
	"seatledger/internal/utils"

	"github.com/gin-gonic/gin"
)

// ListTripSeats returns the explicit seat flags of a trip. GET /trips/:id/seats
func (h *Handler) ListTripSeats(c *gin.Context) {
	tripID, ok := paramID(c, "id")
	if !ok {
		return
	}
	slots, err := h.engine(c).Seats.ListSeats(c.Request.Context(), tripID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	respond(c, http.StatusOK, "ok", slots)
}

// SeatAvailability answers checkAvailability. GET /trips/:id/seats/:seatId/availability
func (h *Handler) SeatAvailability(c *gin.Context) {
	tripID, ok := paramID(c, "id")
	if !ok {
		return
	}
	var exclude int64
	if raw := c.Query("excludeBookingId"); raw != "" {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || v < 0 {
			respondError(c, http.StatusBadRequest, "excludeBookingId: must be an id", "validation_error")
			return
		}
		exclude = v
	}
	seatID := utils.NormalizeSeatID(c.Param("seatId"))
	free, err := h.engine(c).Seats.CheckAvailability(c.Request.Context(), tripID, seatID, exclude)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	respond(c, http.StatusOK, "ok", gin.H{"tripId": tripID, "seatId": seatID, "available": free})
}

func (h *Handler) BlockSeat(c *gin.Context) {
	tripID, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.engine(c).Seats.Block(c.Request.Context(), tripID, c.Param("seatId")); err != nil {
		RespondDomainError(c, err)
		return
	}
	respond(c, http.StatusOK, "seat blocked", nil)
}

func (h *Handler) UnblockSeat(c *gin.Context) {
	tripID, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.engine(c).Seats.Unblock(c.Request.Context(), tripID, c.Param("seatId")); err != nil {
		RespondDomainError(c, err)
		return
	}
	respond(c, http.StatusOK, "seat unblocked", nil)
}

// CompleteTrip closes a trip after arrival. POST /admin/trips/:id/complete
func (h *Handler) CompleteTrip(c *gin.Context) {
	tripID, ok := paramID(c, "id")
	if !ok {
		return
	}
	n, err := h.engine(c).Bookings.CompleteTrip(c.Request.Context(), tripID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	respond(c, http.StatusOK, "trip completed", gin.H{"completed": n})
}

func (h *Handler) SoftDeleteBooking(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.engine(c).Bookings.SoftDelete(c.Request.Context(), middleware.GetCaller(c), id); err != nil {
		RespondDomainError(c, err)
		return
	}
	respond(c, http.StatusOK, "booking deleted", nil)
}

// PurgeTombstones removes old soft-deleted bookings. ?olderThan=720h overrides the retention.
func (h *Handler) PurgeTombstones(c *gin.Context) {
	retention := h.Retention
	if raw := c.Query("olderThan"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			respondError(c, http.StatusBadRequest, "olderThan: must be a duration such as 720h", "validation_error")
			return
		}
		retention = d
	}
	n, err := h.engine(c).Bookings.PurgeTombstones(c.Request.Context(), retention)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	respond(c, http.StatusOK, "tombstones purged", gin.H{"removed": n})
}
