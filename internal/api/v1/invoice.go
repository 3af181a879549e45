package v1

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hyperbill/cashier/internal/api/dto"
	ierr "github.com/hyperbill/cashier/internal/errors"
	"github.com/hyperbill/cashier/internal/logger"
	"github.com/hyperbill/cashier/internal/service"
)

type InvoiceHandler struct {
	service service.InvoiceService
	log     *logger.Logger
}

func NewInvoiceHandler(
	service service.InvoiceService,
	log *logger.Logger,
) *InvoiceHandler {
	return &InvoiceHandler{
		service: service,
		log:     log,
	}
}

// @Summary Create an ad-hoc invoice
// @Description Bill a one-off amount outside any subscription cycle; the charge is created at the gateway and projected as an open invoice
// @Tags Invoices
// @Accept json
// @Produce json
// @Param invoice body dto.CreateInvoiceRequest true "Invoice"
// @Success 201 {object} dto.InvoiceResponse
// @Failure 400 {object} ierr.ErrorResponse
// @Failure 502 {object} ierr.ErrorResponse
// @Router /invoices [post]
func (h *InvoiceHandler) CreateInvoice(c *gin.Context) {
	var req dto.CreateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.service.InvoiceFor(c.Request.Context(), &req)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// @Summary Get an invoice
// @Description Project an invoice from a ledger transaction, by transaction id or gateway purchase id
// @Tags Invoices
// @Accept json
// @Produce json
// @Param id path string true "Transaction ID or gateway purchase ID"
// @Success 200 {object} dto.InvoiceResponse
// @Failure 404 {object} ierr.ErrorResponse
// @Router /invoices/{id} [get]
func (h *InvoiceHandler) GetInvoice(c *gin.Context) {
	resp, err := h.service.GetInvoice(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// @Summary List invoices
// @Description Project invoices from a customer's charges, optionally bounded to a period
// @Tags Invoices
// @Accept json
// @Produce json
// @Param customer_id query string true "Customer ID"
// @Param from query string false "Period start (RFC3339)"
// @Param to query string false "Period end (RFC3339)"
// @Success 200 {object} dto.ListInvoicesResponse
// @Failure 400 {object} ierr.ErrorResponse
// @Router /invoices [get]
func (h *InvoiceHandler) ListInvoices(c *gin.Context) {
	customerID, err := customerIDFrom(c)
	if err != nil {
		c.Error(err)
		return
	}

	fromStr, toStr := c.Query("from"), c.Query("to")
	if fromStr != "" || toStr != "" {
		from, to, err := parsePeriod(fromStr, toStr)
		if err != nil {
			c.Error(err)
			return
		}
		resp, err := h.service.InvoicesForPeriod(c.Request.Context(), customerID, from, to)
		if err != nil {
			c.Error(err)
			return
		}
		c.JSON(http.StatusOK, resp)
		return
	}

	resp, err := h.service.ListInvoices(c.Request.Context(), customerID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// @Summary Get the latest invoice
// @Description Project the invoice of the customer's newest charge
// @Tags Invoices
// @Accept json
// @Produce json
// @Param customer_id query string true "Customer ID"
// @Success 200 {object} dto.InvoiceResponse
// @Failure 404 {object} ierr.ErrorResponse
// @Router /invoices/latest [get]
func (h *InvoiceHandler) LatestInvoice(c *gin.Context) {
	customerID, err := customerIDFrom(c)
	if err != nil {
		c.Error(err)
		return
	}

	resp, err := h.service.LatestInvoice(c.Request.Context(), customerID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// @Summary Get the upcoming invoice
// @Description The newest pending charge, or a forecast from the active subscription when no charge is pending
// @Tags Invoices
// @Accept json
// @Produce json
// @Param customer_id query string true "Customer ID"
// @Success 200 {object} dto.InvoiceResponse
// @Failure 404 {object} ierr.ErrorResponse
// @Router /invoices/upcoming [get]
func (h *InvoiceHandler) UpcomingInvoice(c *gin.Context) {
	customerID, err := customerIDFrom(c)
	if err != nil {
		c.Error(err)
		return
	}

	resp, err := h.service.UpcomingInvoice(c.Request.Context(), customerID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// @Summary Get the invoice total for a period
// @Description Sum of paid invoice totals in minor units for the period
// @Tags Invoices
// @Accept json
// @Produce json
// @Param customer_id query string true "Customer ID"
// @Param from query string true "Period start (RFC3339)"
// @Param to query string true "Period end (RFC3339)"
// @Success 200 {object} map[string]int64
// @Failure 400 {object} ierr.ErrorResponse
// @Router /invoices/total [get]
func (h *InvoiceHandler) InvoiceTotal(c *gin.Context) {
	customerID, err := customerIDFrom(c)
	if err != nil {
		c.Error(err)
		return
	}

	from, to, err := parsePeriod(c.Query("from"), c.Query("to"))
	if err != nil {
		c.Error(err)
		return
	}

	total, err := h.service.InvoiceTotalForPeriod(c.Request.Context(), customerID, from, to)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"total": total})
}

func parsePeriod(fromStr, toStr string) (time.Time, time.Time, error) {
	from, err := time.Parse(time.RFC3339, fromStr)
	if err != nil {
		return time.Time{}, time.Time{}, ierr.WithError(err).
			WithHint("from must be an RFC3339 timestamp").
			Mark(ierr.ErrValidation)
	}
	to, err := time.Parse(time.RFC3339, toStr)
	if err != nil {
		return time.Time{}, time.Time{}, ierr.WithError(err).
			WithHint("to must be an RFC3339 timestamp").
			Mark(ierr.ErrValidation)
	}
	return from, to, nil
}

// customerIDFrom resolves the customer from the route parameter on
// customer-scoped routes, falling back to the customer_id query parameter.
func customerIDFrom(c *gin.Context) (string, error) {
	id := c.Param("id")
	if id == "" {
		id = c.Query("customer_id")
	}
	if id == "" {
		return "", ierr.NewError("customer id is required").
			WithHint("Provide the customer in the path or the customer_id query parameter").
			Mark(ierr.ErrValidation)
	}
	return id, nil
}
