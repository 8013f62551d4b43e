package server

import (
	"context"

	"paypal-billing-gateway/internal/handler"
	"paypal-billing-gateway/internal/service"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

type Server struct {
	echo           *echo.Echo
	paypalHandler  *handler.PaypalHandler
	invoiceHandler *handler.InvoiceHandler
}

func NewServer(paypalService service.PaypalService, invoiceService service.InvoiceService) *Server {
	e := echo.New()

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	s := &Server{
		echo:           e,
		paypalHandler:  handler.NewPaypalHandler(paypalService),
		invoiceHandler: handler.NewInvoiceHandler(invoiceService),
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.echo.Group("/api")

	api.GET("/health", func(c echo.Context) error {
		return c.JSON(200, map[string]string{"status": "ok"})
	})

	api.POST("/invoices", s.invoiceHandler.CreateInvoice)
	api.GET("/invoices/:invoiceID", s.invoiceHandler.GetInvoice)

	// -------- paypal --------
	paypal := api.Group("/paypal")
	paypal.POST("/pay/:invoiceID", s.paypalHandler.Pay)

	// -------- paypal webhooks / callbacks --------
	paypal.GET("/return", s.paypalHandler.Return)
	paypal.POST("/webhook", s.paypalHandler.Webhook)
}

func (s *Server) Start(address string) error {
	return s.echo.Start(address)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
