package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"paypal-billing-gateway/internal/audit"
	"paypal-billing-gateway/internal/billing"
	"paypal-billing-gateway/internal/client"
	"paypal-billing-gateway/internal/config"
	"paypal-billing-gateway/internal/repository"
	"paypal-billing-gateway/internal/server"
	"paypal-billing-gateway/internal/service"
	"syscall"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

func main() {
	// load .env into os.Environ
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found (ok in prod)")
	}

	cfg := &config.Config{}
	if err := env.Parse(cfg); err != nil {
		fmt.Printf("Failed to parse config: %v\n", err)
		os.Exit(1)
	}

	feePercent, err := decimal.NewFromString(cfg.Fee.Percent)
	if err != nil {
		log.Fatal("invalid FEE_PERCENT:", err)
	}
	feeFixed, err := decimal.NewFromString(cfg.Fee.Fixed)
	if err != nil {
		log.Fatal("invalid FEE_FIXED:", err)
	}

	auditLog := audit.New(newLogger(&cfg.Log))

	db := client.InitSqliteClient(cfg.DatabaseURL)
	paypalClient := client.NewPaypalClient(&cfg.Paypal)

	invoiceRepo := repository.NewInvoiceRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	webhookEventRepo := repository.NewWebhookEventRepository(db)

	invoiceGateway := billing.NewGateway(db, invoiceRepo, paymentRepo)

	paypalService := service.NewPaypalService(
		paypalClient,
		invoiceGateway,
		webhookEventRepo,
		auditLog,
		cfg.BaseURL,
		cfg.SystemURL,
		feePercent,
		feeFixed,
	)
	invoiceService := service.NewInvoiceService(db, invoiceRepo)

	serverAddr := cfg.HTTP.Host + ":" + cfg.HTTP.Port

	// Init HTTP server
	srv := server.NewServer(paypalService, invoiceService)

	log.Println("Starting HTTP server on", serverAddr)
	go func() {
		if err := srv.Start(serverAddr); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server error")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

	<-sigChan
	log.Println("Signal received, starting graceful shutdown...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal("HTTP server shutdown error")
	}
}

func newLogger(logCfg *config.Log) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(logCfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	if logCfg.Format == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}
