package handler

import (
	"errors"
	"io"
	"net/http"

	"paypal-billing-gateway/internal/billing"
	"paypal-billing-gateway/internal/client"
	"paypal-billing-gateway/internal/service"

	"github.com/labstack/echo/v4"
)

type PaypalHandler struct {
	paypalService service.PaypalService
}

func NewPaypalHandler(paypalService service.PaypalService) *PaypalHandler {
	return &PaypalHandler{
		paypalService: paypalService,
	}
}

// Pay creates a PayPal order for an invoice and returns the approval URL the
// customer is sent to.
func (h *PaypalHandler) Pay(c echo.Context) error {
	ctx := c.Request().Context()

	result, err := h.paypalService.CreatePaymentLink(ctx, c.Param("invoiceID"))
	if err != nil {
		switch {
		case errors.Is(err, billing.ErrInvoiceNotFound):
			return echo.NewHTTPError(http.StatusNotFound, "invoice not found")
		case errors.Is(err, billing.ErrWrongGateway):
			return echo.NewHTTPError(http.StatusBadRequest, "invoice does not use this gateway")
		case errors.Is(err, service.ErrAlreadyPaid):
			return echo.NewHTTPError(http.StatusBadRequest, "invoice already paid")
		case errors.Is(err, client.ErrAuth):
			return echo.NewHTTPError(http.StatusBadGateway, "unable to connect to PayPal API")
		}
		return err
	}

	return c.JSON(http.StatusOK, result)
}

// Return handles the browser coming back from PayPal's hosted checkout. It
// only redirects; settlement is the webhook's job.
func (h *PaypalHandler) Return(c echo.Context) error {
	ctx := c.Request().Context()

	invoiceID := c.QueryParam("id")
	if invoiceID == "" {
		invoiceID = c.QueryParam("invoiceid")
	}

	redirectURL := h.paypalService.ResolveReturn(ctx, &service.ReturnParams{
		InvoiceID: invoiceID,
		Token:     c.QueryParam("token"),
		PayerID:   c.QueryParam("PayerID"),
		Status:    c.QueryParam("status"),
		Cancel:    c.QueryParam("cancel") != "",
	})

	return c.Redirect(http.StatusFound, redirectURL)
}

// Webhook is the reconciliation entrypoint. PayPal redelivers on any
// non-2xx, so only outcomes that are safe to retry return an error status.
func (h *PaypalHandler) Webhook(c echo.Context) error {
	ctx := c.Request().Context()

	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.String(http.StatusBadRequest, "Invalid webhook data.")
	}

	outcome, err := h.paypalService.HandleWebhook(ctx, c.Request().Header, body)
	if err != nil {
		switch {
		case errors.Is(err, client.ErrAuth):
			return c.String(http.StatusUnauthorized, "PayPal API authentication failed.")
		case errors.Is(err, service.ErrSignatureInvalid):
			return c.String(http.StatusBadRequest, "PayPal webhook signature verification failed.")
		case errors.Is(err, service.ErrData):
			return c.String(http.StatusBadRequest, "Invalid webhook data.")
		}
		return c.String(http.StatusBadRequest, "Webhook processing failed.")
	}

	return c.String(http.StatusOK, outcome.Message)
}
