package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/contrib/instrumentation/runtime"

	"github.com/maravena-dev/bloquera-backend/internal/expenses"
	"github.com/maravena-dev/bloquera-backend/internal/hr"
	"github.com/maravena-dev/bloquera-backend/internal/inventory"
	"github.com/maravena-dev/bloquera-backend/internal/messaging"
	"github.com/maravena-dev/bloquera-backend/internal/orders"
	"github.com/maravena-dev/bloquera-backend/internal/payments"
	"github.com/maravena-dev/bloquera-backend/internal/reports"
	"github.com/maravena-dev/bloquera-backend/internal/telemetry"
)

const serviceVersion = "0.1.0"

func main() {
	ctx := context.Background()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	shutdownTracer, err := telemetry.InitTracerProvider(ctx, "bloquera-api", serviceVersion)
	if err != nil {
		logger.Error("failed to initialize tracer", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownTracer(ctx) }()

	metricsHandler, shutdownMeter, err := telemetry.InitMeterProvider("bloquera-api", serviceVersion)
	if err != nil {
		logger.Error("failed to initialize meter", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownMeter(ctx) }()

	if err := runtime.Start(); err != nil {
		logger.Error("failed to start runtime instrumentation", "error", err)
		os.Exit(1)
	}

	postgresURL := os.Getenv("POSTGRES_URL")
	if postgresURL == "" {
		logger.Error("POSTGRES_URL environment variable is required")
		os.Exit(1)
	}

	db, err := telemetry.OpenDB("postgres", postgresURL)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	if err := db.Ping(); err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	var producer *messaging.Producer
	kafkaBrokers := os.Getenv("KAFKA_BROKERS")
	if kafkaBrokers != "" {
		brokers := strings.Split(kafkaBrokers, ",")
		producer = messaging.NewProducer(brokers, "order.placed")
		defer func() { _ = producer.Close() }()
	}

	productRepo := inventory.NewProductRepository(db)
	orderRepo := orders.NewOrderRepository(db)
	paymentRepo := payments.NewPaymentRepository(db)
	expenseRepo := expenses.NewExpenseRepository(db)
	workerRepo := hr.NewWorkerRepository(db)
	summaryRepo := reports.NewSummaryRepository(db)

	productHandler := inventory.NewHandler(productRepo, logger)
	orderHandler := orders.NewHandler(orderRepo, producer, logger)
	paymentHandler := payments.NewHandler(paymentRepo, logger)
	expenseHandler := expenses.NewHandler(expenseRepo, logger)
	hrHandler := hr.NewHandler(workerRepo, expenseRepo, logger)
	reportHandler := reports.NewHandler(summaryRepo, expenseRepo, logger)

	mux := http.NewServeMux()

	mux.HandleFunc("GET /products", telemetry.WithHTTPRoute(productHandler.HandleList))
	mux.HandleFunc("POST /products", telemetry.WithHTTPRoute(productHandler.HandleCreate))
	mux.HandleFunc("GET /products/{id}", telemetry.WithHTTPRoute(productHandler.HandleGet))
	mux.HandleFunc("PUT /products/{id}", telemetry.WithHTTPRoute(productHandler.HandleUpdate))
	mux.HandleFunc("POST /products/{id}/restock", telemetry.WithHTTPRoute(productHandler.HandleRestock))

	mux.HandleFunc("GET /orders", telemetry.WithHTTPRoute(orderHandler.HandleList))
	mux.HandleFunc("POST /orders", telemetry.WithHTTPRoute(orderHandler.HandleCreate))
	mux.HandleFunc("GET /orders/{id}", telemetry.WithHTTPRoute(orderHandler.HandleGet))
	mux.HandleFunc("POST /orders/{id}/payments", telemetry.WithHTTPRoute(paymentHandler.HandleRegister))

	mux.HandleFunc("GET /expenses", telemetry.WithHTTPRoute(expenseHandler.HandleList))
	mux.HandleFunc("POST /expenses", telemetry.WithHTTPRoute(expenseHandler.HandleCreate))
	mux.HandleFunc("GET /expenses/{id}", telemetry.WithHTTPRoute(expenseHandler.HandleGet))
	mux.HandleFunc("DELETE /expenses/{id}", telemetry.WithHTTPRoute(expenseHandler.HandleDelete))

	mux.HandleFunc("GET /workers", telemetry.WithHTTPRoute(hrHandler.HandleList))
	mux.HandleFunc("POST /workers", telemetry.WithHTTPRoute(hrHandler.HandleCreate))
	mux.HandleFunc("GET /workers/{id}", telemetry.WithHTTPRoute(hrHandler.HandleGet))
	mux.HandleFunc("PUT /workers/{id}", telemetry.WithHTTPRoute(hrHandler.HandleUpdate))
	mux.HandleFunc("GET /workers/{id}/attendance", telemetry.WithHTTPRoute(hrHandler.HandleListAttendance))
	mux.HandleFunc("POST /workers/{id}/attendance", telemetry.WithHTTPRoute(hrHandler.HandleRecordAttendance))
	mux.HandleFunc("GET /workers/{id}/payroll", telemetry.WithHTTPRoute(hrHandler.HandleComputePayroll))
	mux.HandleFunc("POST /workers/{id}/payroll", telemetry.WithHTTPRoute(hrHandler.HandleRegisterPayroll))

	mux.HandleFunc("GET /reports/dashboard", telemetry.WithHTTPRoute(reportHandler.HandleDashboard))

	mux.Handle("GET /metrics", metricsHandler)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	server := &http.Server{
		Addr: ":" + port,
		Handler: otelhttp.NewHandler(mux, "bloquera-api",
			otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
				if r.Pattern != "" {
					return r.Pattern
				}
				return r.Method + " " + r.URL.Path
			}),
		),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("starting api service", "port", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}
}
