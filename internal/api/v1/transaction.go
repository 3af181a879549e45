package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hyperbill/cashier/internal/api/dto"
	ierr "github.com/hyperbill/cashier/internal/errors"
	"github.com/hyperbill/cashier/internal/logger"
	"github.com/hyperbill/cashier/internal/service"
)

type TransactionHandler struct {
	service service.BillingService
	log     *logger.Logger
}

func NewTransactionHandler(
	service service.BillingService,
	log *logger.Logger,
) *TransactionHandler {
	return &TransactionHandler{
		service: service,
		log:     log,
	}
}

// @Summary Create a charge
// @Description Create a pending charge; the gateway purchase is created first and the ledger row only on success
// @Tags Transactions
// @Accept json
// @Produce json
// @Param charge body dto.CreateChargeRequest true "Charge"
// @Success 201 {object} dto.TransactionResponse
// @Failure 400 {object} ierr.ErrorResponse
// @Failure 502 {object} ierr.ErrorResponse
// @Router /charges [post]
func (h *TransactionHandler) CreateCharge(c *gin.Context) {
	var req dto.CreateChargeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.service.CreateCharge(c.Request.Context(), &req)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// @Summary Charge with a stored token
// @Description Charge a customer off-session using a stored recurring token; the purchase is created and charged at the gateway before the ledger row is appended
// @Tags Transactions
// @Accept json
// @Produce json
// @Param charge body dto.ChargeTokenRequest true "Token charge"
// @Success 201 {object} dto.TransactionResponse
// @Failure 400 {object} ierr.ErrorResponse
// @Failure 502 {object} ierr.ErrorResponse
// @Router /charges/token [post]
func (h *TransactionHandler) ChargeWithToken(c *gin.Context) {
	var req dto.ChargeTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.service.ChargeWithToken(c.Request.Context(), &req)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// @Summary Refund a charge
// @Description Refund a successful charge, partially or fully; the refundable amount is the charge minus all prior refunds
// @Tags Transactions
// @Accept json
// @Produce json
// @Param id path string true "Transaction ID"
// @Param refund body dto.RefundRequest false "Refund"
// @Success 201 {object} dto.TransactionResponse
// @Failure 400 {object} ierr.ErrorResponse
// @Failure 404 {object} ierr.ErrorResponse
// @Router /transactions/{id}/refund [post]
func (h *TransactionHandler) Refund(c *gin.Context) {
	var req dto.RefundRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.service.Refund(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// @Summary Get a transaction
// @Description Get a ledger transaction
// @Tags Transactions
// @Accept json
// @Produce json
// @Param id path string true "Transaction ID"
// @Success 200 {object} dto.TransactionResponse
// @Failure 404 {object} ierr.ErrorResponse
// @Router /transactions/{id} [get]
func (h *TransactionHandler) GetTransaction(c *gin.Context) {
	resp, err := h.service.GetTransaction(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// @Summary List transactions
// @Description List ledger transactions with optional customer, type and status filters
// @Tags Transactions
// @Accept json
// @Produce json
// @Param customer_id query string false "Customer ID"
// @Param type query string false "Transaction type"
// @Param status query string false "Transaction status"
// @Param limit query int false "Limit"
// @Success 200 {object} dto.ListTransactionsResponse
// @Failure 400 {object} ierr.ErrorResponse
// @Router /transactions [get]
func (h *TransactionHandler) ListTransactions(c *gin.Context) {
	var req dto.ListTransactionsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid query parameters").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.service.ListTransactions(c.Request.Context(), &req)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// @Summary List a customer's transactions
// @Description List one customer's ledger transactions with optional type and status filters
// @Tags Transactions
// @Accept json
// @Produce json
// @Param id path string true "Customer ID"
// @Param type query string false "Transaction type"
// @Param status query string false "Transaction status"
// @Param limit query int false "Limit"
// @Success 200 {object} dto.ListTransactionsResponse
// @Failure 400 {object} ierr.ErrorResponse
// @Router /customers/{id}/transactions [get]
func (h *TransactionHandler) ListCustomerTransactions(c *gin.Context) {
	var req dto.ListTransactionsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid query parameters").
			Mark(ierr.ErrValidation))
		return
	}
	req.CustomerID = c.Param("id")

	resp, err := h.service.ListTransactions(c.Request.Context(), &req)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// @Summary Sync a transaction
// @Description Pull the purchase state from the gateway and apply it locally
// @Tags Transactions
// @Accept json
// @Produce json
// @Param id path string true "Transaction ID"
// @Success 200 {object} dto.TransactionResponse
// @Failure 404 {object} ierr.ErrorResponse
// @Failure 502 {object} ierr.ErrorResponse
// @Router /transactions/{id}/sync [post]
func (h *TransactionHandler) SyncTransaction(c *gin.Context) {
	resp, err := h.service.SyncTransaction(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
