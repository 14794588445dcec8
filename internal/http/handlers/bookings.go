package handlers

import (
	"net/http"

	"seatledger/internal/domain"
	"seatledger/internal/domain/models"
	"seatledger/internal/http/middleware"
	"seatledger/internal/utils"

	"github.com/gin-gonic/gin"
)

type createBookingRequest struct {
	TripID        int64                  `json:"tripId"`
	CustomerID    int64                  `json:"customerId"`
	SeatID        string                 `json:"seatId"`
	PaymentMethod string                 `json:"paymentMethod"`
	Passenger     *models.PassengerInput `json:"passenger"`
}

type createGroupRequest struct {
	TripID        int64                   `json:"tripId"`
	CustomerID    int64                   `json:"customerId"`
	Seats         []string                `json:"seats"`
	SeatList      string                  `json:"seatList"` // "1A,1B" form, used when seats is empty
	PaymentMethod string                  `json:"paymentMethod"`
	Passengers    []models.PassengerInput `json:"passengers"`
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

type modifyRequest struct {
	NewSeatID string `json:"newSeatId"`
}

// CreateBooking books one seat. POST /bookings
func (h *Handler) CreateBooking(c *gin.Context) {
	var req createBookingRequest
	if !BindJSONOrError(c, &req) {
		return
	}
	res, err := h.engine(c).Bookings.Create(c.Request.Context(), middleware.GetCaller(c), models.CreateBookingInput{
		TripID:        req.TripID,
		CustomerID:    req.CustomerID,
		SeatID:        req.SeatID,
		PaymentMethod: domain.PaymentMethod(req.PaymentMethod),
		Passenger:     req.Passenger,
	})
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	respond(c, http.StatusCreated, "booking confirmed", res)
}

// CreateGroupBooking books several seats as one unit. POST /bookings/group
func (h *Handler) CreateGroupBooking(c *gin.Context) {
	var req createGroupRequest
	if !BindJSONOrError(c, &req) {
		return
	}
	if len(req.Seats) == 0 && req.SeatList != "" {
		req.Seats = utils.SplitSeatList(req.SeatList)
	}
	res, err := h.engine(c).Groups.CreateGroup(c.Request.Context(), middleware.GetCaller(c), models.CreateGroupInput{
		TripID:        req.TripID,
		CustomerID:    req.CustomerID,
		Seats:         req.Seats,
		PaymentMethod: domain.PaymentMethod(req.PaymentMethod),
		Passengers:    req.Passengers,
	})
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	respond(c, http.StatusCreated, "group booking confirmed", res)
}

func (h *Handler) GetBooking(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	b, err := h.engine(c).Bookings.Get(c.Request.Context(), middleware.GetCaller(c), id)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	respond(c, http.StatusOK, "ok", b)
}

// CancelBooking cancels a booking and its live group siblings. PATCH /bookings/:id/cancel
func (h *Handler) CancelBooking(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req cancelRequest
	if c.Request.ContentLength != 0 && !BindJSONOrError(c, &req) {
		return
	}
	res, err := h.engine(c).Bookings.Cancel(c.Request.Context(), middleware.GetCaller(c), id, req.Reason)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	respond(c, http.StatusOK, "booking cancelled", res)
}

// ModifyBooking moves a booking to another seat. PATCH /bookings/:id/modify
func (h *Handler) ModifyBooking(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req modifyRequest
	if !BindJSONOrError(c, &req) {
		return
	}
	b, err := h.engine(c).Bookings.Modify(c.Request.Context(), middleware.GetCaller(c), id, req.NewSeatID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	respond(c, http.StatusOK, "booking modified", b)
}

func (h *Handler) GetGroup(c *gin.Context) {
	bs, err := h.engine(c).Groups.GetGroup(c.Request.Context(), middleware.GetCaller(c), c.Param("groupId"))
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	respond(c, http.StatusOK, "ok", bs)
}

func (h *Handler) CancelGroup(c *gin.Context) {
	var req cancelRequest
	if c.Request.ContentLength != 0 && !BindJSONOrError(c, &req) {
		return
	}
	res, err := h.engine(c).Groups.CancelGroup(c.Request.Context(), middleware.GetCaller(c), c.Param("groupId"), req.Reason)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	respond(c, http.StatusOK, "group cancelled", res)
}

func (h *Handler) ListCustomerBookings(c *gin.Context) {
	customerID, ok := paramID(c, "customerId")
	if !ok {
		return
	}
	bs, page, err := h.engine(c).Bookings.ListByCustomer(c.Request.Context(), middleware.GetCaller(c), customerID, pagination(c))
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	respond(c, http.StatusOK, "ok", gin.H{"items": bs, "pagination": page})
}

// GetBookingETicket renders the booking's e-ticket. GET /bookings/:id/e-ticket
func (h *Handler) GetBookingETicket(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	pdf, filename, err := h.engine(c).Docs.GenerateETicket(c.Request.Context(), middleware.GetCaller(c), id)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	sendPDF(c, pdf, filename)
}
