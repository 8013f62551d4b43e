package handler

import (
	"net/http"

	"paypal-billing-gateway/internal/dto"
	"paypal-billing-gateway/internal/service"

	"github.com/labstack/echo/v4"
)

type InvoiceHandler struct {
	invoiceService service.InvoiceService
}

func NewInvoiceHandler(invoiceService service.InvoiceService) *InvoiceHandler {
	return &InvoiceHandler{
		invoiceService: invoiceService,
	}
}

func (h *InvoiceHandler) CreateInvoice(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.CreateInvoiceRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid req body")
	}

	result, err := h.invoiceService.Create(ctx, &req)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	return c.JSON(http.StatusCreated, result)
}

func (h *InvoiceHandler) GetInvoice(c echo.Context) error {
	ctx := c.Request().Context()

	result, err := h.invoiceService.Get(ctx, c.Param("invoiceID"))
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "invoice not found")
	}

	return c.JSON(http.StatusOK, result)
}
