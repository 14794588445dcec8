package handlers

import (
	"net/http"

	"seatledger/internal/domain"
	"seatledger/internal/domain/models"
	"seatledger/internal/http/middleware"

	"github.com/gin-gonic/gin"
)

type topUpRequest struct {
	Amount    domain.Money `json:"amount"`
	Method    string       `json:"method"`
	Reference string       `json:"reference"`
}

type paymentRequest struct {
	Amount      domain.Money `json:"amount"`
	Description string       `json:"description"`
}

func (h *Handler) GetWalletBalance(c *gin.Context) {
	customerID, ok := paramID(c, "customerId")
	if !ok {
		return
	}
	bal, err := h.engine(c).Wallet.GetBalance(c.Request.Context(), middleware.GetCaller(c), customerID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	respond(c, http.StatusOK, "ok", bal)
}

// TopUpWallet credits a wallet. POST /wallet/:customerId/top-up
func (h *Handler) TopUpWallet(c *gin.Context) {
	customerID, ok := paramID(c, "customerId")
	if !ok {
		return
	}
	var req topUpRequest
	if !BindJSONOrError(c, &req) {
		return
	}
	wt, err := h.engine(c).Wallet.TopUp(c.Request.Context(), middleware.GetCaller(c), models.TopUpInput{
		CustomerID: customerID,
		Amount:     req.Amount,
		Method:     req.Method,
		Reference:  req.Reference,
	})
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	respond(c, http.StatusCreated, "wallet topped up", wt)
}

// RecordWalletPayment debits a wallet outside a booking. Admin only.
func (h *Handler) RecordWalletPayment(c *gin.Context) {
	customerID, ok := paramID(c, "customerId")
	if !ok {
		return
	}
	var req paymentRequest
	if !BindJSONOrError(c, &req) {
		return
	}
	wt, err := h.engine(c).Wallet.RecordPayment(c.Request.Context(), customerID, req.Amount, req.Description)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	respond(c, http.StatusCreated, "payment recorded", wt)
}

func (h *Handler) ListWalletTransactions(c *gin.Context) {
	customerID, ok := paramID(c, "customerId")
	if !ok {
		return
	}
	rows, page, err := h.engine(c).Wallet.ListTransactions(c.Request.Context(), middleware.GetCaller(c), customerID, pagination(c))
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	respond(c, http.StatusOK, "ok", gin.H{"items": rows, "pagination": page})
}

func (h *Handler) GetWalletStatement(c *gin.Context) {
	customerID, ok := paramID(c, "customerId")
	if !ok {
		return
	}
	pdf, filename, err := h.engine(c).Docs.GenerateStatement(c.Request.Context(), middleware.GetCaller(c), customerID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	sendPDF(c, pdf, filename)
}
