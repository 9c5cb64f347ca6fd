//go:build integration

package test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/maravena-dev/bloquera-backend/internal/domain"
	"github.com/maravena-dev/bloquera-backend/internal/expenses"
	"github.com/maravena-dev/bloquera-backend/internal/hr"
	"github.com/maravena-dev/bloquera-backend/internal/inventory"
	"github.com/maravena-dev/bloquera-backend/internal/messaging"
	"github.com/maravena-dev/bloquera-backend/internal/orders"
	"github.com/maravena-dev/bloquera-backend/internal/payments"
	"github.com/maravena-dev/bloquera-backend/internal/reports"
	"github.com/maravena-dev/bloquera-backend/internal/worker"
)

var orderNumberPattern = regexp.MustCompile(`^OC-\d{4}-\d{4,}$`)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func seedProduct(ctx context.Context, t *testing.T, repo *inventory.ProductRepository, name string, stock int, cost string) *domain.Product {
	t.Helper()

	p := &domain.Product{
		Name:  name,
		Stock: stock,
		Cost:  decimal.RequireFromString(cost),
	}
	if err := repo.Create(ctx, p); err != nil {
		t.Fatalf("failed to seed product %s: %v", name, err)
	}
	return p
}

func TestPlaceOrder(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pg := SetupPostgres(ctx, t)
	defer pg.Cleanup()

	db := OpenDB(t, pg.ConnStr)
	defer func() { _ = db.Close() }()

	productRepo := inventory.NewProductRepository(db)
	orderRepo := orders.NewOrderRepository(db)
	handler := orders.NewHandler(orderRepo, nil, testLogger())

	cemento := seedProduct(ctx, t, productRepo, "Cemento", 50, "3200")

	reqBody := fmt.Sprintf(
		`{"customer": "Constructora XYZ", "lines": [{"product_id": %d, "quantity": 10, "unit_price": "5000"}]}`,
		cemento.ID)
	req := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(reqBody))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	handler.HandleCreate(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status %d, got %d: %s", http.StatusCreated, rec.Code, rec.Body.String())
	}

	var created domain.Order
	if err := json.NewDecoder(rec.Body).Decode(&created); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if !orderNumberPattern.MatchString(created.OrderNumber) {
		t.Fatalf("unexpected order number format: %q", created.OrderNumber)
	}
	if !created.Total.Equal(decimal.RequireFromString("50000")) {
		t.Fatalf("expected total 50000, got %s", created.Total)
	}
	if created.PaymentStatus != domain.PaymentStatusPending {
		t.Fatalf("expected payment status %q, got %q", domain.PaymentStatusPending, created.PaymentStatus)
	}
	if len(created.Lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(created.Lines))
	}

	after, err := productRepo.GetByID(ctx, cemento.ID)
	if err != nil {
		t.Fatalf("failed to reload product: %v", err)
	}
	if after.Stock != 40 {
		t.Fatalf("expected stock 40 after sale, got %d", after.Stock)
	}

	fetched, err := orderRepo.GetByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("failed to fetch order: %v", err)
	}
	if fetched == nil {
		t.Fatal("order not found in database")
	}
	if !fetched.Total.Equal(fetched.LinesTotal()) {
		t.Fatalf("persisted total %s does not match lines total %s", fetched.Total, fetched.LinesTotal())
	}
}

func TestPlaceOrderInsufficientStock(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pg := SetupPostgres(ctx, t)
	defer pg.Cleanup()

	db := OpenDB(t, pg.ConnStr)
	defer func() { _ = db.Close() }()

	productRepo := inventory.NewProductRepository(db)
	orderRepo := orders.NewOrderRepository(db)

	bloques := seedProduct(ctx, t, productRepo, "Bloques", 10, "450")

	_, err := orderRepo.Place(ctx, orders.PlaceOrderInput{
		Customer: "Constructora XYZ",
		Lines: []orders.LineRequest{
			{ProductID: bloques.ID, Quantity: 50, UnitPrice: decimal.NewFromInt(1000)},
		},
	})

	var stockErr *inventory.InsufficientStockError
	if !errors.As(err, &stockErr) {
		t.Fatalf("expected InsufficientStockError, got %v", err)
	}
	if stockErr.Available != 10 || stockErr.Requested != 50 {
		t.Fatalf("unexpected error detail: available=%d requested=%d", stockErr.Available, stockErr.Requested)
	}

	after, err := productRepo.GetByID(ctx, bloques.ID)
	if err != nil {
		t.Fatalf("failed to reload product: %v", err)
	}
	if after.Stock != 10 {
		t.Fatalf("stock changed on failed placement: %d", after.Stock)
	}

	var count int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM orders").Scan(&count); err != nil {
		t.Fatalf("failed to count orders: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected no orders after failed placement, found %d", count)
	}
}

func TestPlaceOrderMultiLineRollback(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pg := SetupPostgres(ctx, t)
	defer pg.Cleanup()

	db := OpenDB(t, pg.ConnStr)
	defer func() { _ = db.Close() }()

	productRepo := inventory.NewProductRepository(db)
	orderRepo := orders.NewOrderRepository(db)

	cemento := seedProduct(ctx, t, productRepo, "Cemento", 50, "3200")
	arena := seedProduct(ctx, t, productRepo, "Arena", 5, "900")

	// first line would succeed on its own; second line fails and must drag
	// the first line's decrement down with it
	_, err := orderRepo.Place(ctx, orders.PlaceOrderInput{
		Customer: "Constructora XYZ",
		Lines: []orders.LineRequest{
			{ProductID: cemento.ID, Quantity: 10, UnitPrice: decimal.NewFromInt(5000)},
			{ProductID: arena.ID, Quantity: 20, UnitPrice: decimal.NewFromInt(1500)},
		},
	})

	var stockErr *inventory.InsufficientStockError
	if !errors.As(err, &stockErr) {
		t.Fatalf("expected InsufficientStockError, got %v", err)
	}

	after, err := productRepo.GetByID(ctx, cemento.ID)
	if err != nil {
		t.Fatalf("failed to reload product: %v", err)
	}
	if after.Stock != 50 {
		t.Fatalf("first line's decrement survived the rollback: stock %d", after.Stock)
	}
}

func TestPlaceOrderDropsBlankLines(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pg := SetupPostgres(ctx, t)
	defer pg.Cleanup()

	db := OpenDB(t, pg.ConnStr)
	defer func() { _ = db.Close() }()

	productRepo := inventory.NewProductRepository(db)
	orderRepo := orders.NewOrderRepository(db)

	cemento := seedProduct(ctx, t, productRepo, "Cemento", 50, "3200")

	order, err := orderRepo.Place(ctx, orders.PlaceOrderInput{
		Customer: "Ferretería El Maestro",
		Lines: []orders.LineRequest{
			{ProductID: cemento.ID, Quantity: 4, UnitPrice: decimal.NewFromInt(5000)},
			{ProductID: cemento.ID, Quantity: 0, UnitPrice: decimal.NewFromInt(5000)},
			{},
		},
	})
	if err != nil {
		t.Fatalf("failed to place order: %v", err)
	}

	if len(order.Lines) != 1 {
		t.Fatalf("expected blank rows to be dropped, got %d lines", len(order.Lines))
	}
	if !order.Total.Equal(decimal.RequireFromString("20000")) {
		t.Fatalf("expected total 20000, got %s", order.Total)
	}

	_, err = orderRepo.Place(ctx, orders.PlaceOrderInput{
		Customer: "Ferretería El Maestro",
		Lines:    []orders.LineRequest{{ProductID: cemento.ID, Quantity: 0, UnitPrice: decimal.NewFromInt(5000)}},
	})
	if !errors.Is(err, orders.ErrNoLineItems) {
		t.Fatalf("expected ErrNoLineItems, got %v", err)
	}
}

func TestOrderNumberAssignmentIsIdempotent(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pg := SetupPostgres(ctx, t)
	defer pg.Cleanup()

	db := OpenDB(t, pg.ConnStr)
	defer func() { _ = db.Close() }()

	productRepo := inventory.NewProductRepository(db)
	orderRepo := orders.NewOrderRepository(db)

	cemento := seedProduct(ctx, t, productRepo, "Cemento", 50, "3200")

	order, err := orderRepo.Place(ctx, orders.PlaceOrderInput{
		Customer: "Constructora XYZ",
		Lines:    []orders.LineRequest{{ProductID: cemento.ID, Quantity: 1, UnitPrice: decimal.NewFromInt(5000)}},
	})
	if err != nil {
		t.Fatalf("failed to place order: %v", err)
	}

	// the assignment is guarded by order_number = '': re-running it against
	// a numbered order must change nothing
	result, err := db.ExecContext(ctx, `
		UPDATE orders SET order_number = 'OC-9999-9999'
		WHERE id = $1 AND order_number = ''
	`, order.ID)
	if err != nil {
		t.Fatalf("failed to re-run number assignment: %v", err)
	}
	rowsAffected, _ := result.RowsAffected()
	if rowsAffected != 0 {
		t.Fatal("number assignment overwrote an already assigned number")
	}

	fetched, err := orderRepo.GetByID(ctx, order.ID)
	if err != nil {
		t.Fatalf("failed to fetch order: %v", err)
	}
	if fetched.OrderNumber != order.OrderNumber {
		t.Fatalf("order number changed from %q to %q", order.OrderNumber, fetched.OrderNumber)
	}
}

func TestConcurrentPlacementsNeverOversell(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pg := SetupPostgres(ctx, t)
	defer pg.Cleanup()

	db := OpenDB(t, pg.ConnStr)
	defer func() { _ = db.Close() }()

	productRepo := inventory.NewProductRepository(db)
	orderRepo := orders.NewOrderRepository(db)

	bloques := seedProduct(ctx, t, productRepo, "Bloques", 10, "450")

	var wg sync.WaitGroup
	results := make([]error, 2)

	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := orderRepo.Place(ctx, orders.PlaceOrderInput{
				Customer: fmt.Sprintf("Cliente %d", i),
				Lines:    []orders.LineRequest{{ProductID: bloques.ID, Quantity: 6, UnitPrice: decimal.NewFromInt(1000)}},
			})
			results[i] = err
		}(i)
	}
	wg.Wait()

	var succeeded, rejected int
	for _, err := range results {
		var stockErr *inventory.InsufficientStockError
		switch {
		case err == nil:
			succeeded++
		case errors.As(err, &stockErr):
			rejected++
		default:
			t.Fatalf("unexpected placement error: %v", err)
		}
	}

	if succeeded != 1 || rejected != 1 {
		t.Fatalf("expected exactly one success and one rejection, got %d/%d", succeeded, rejected)
	}

	after, err := productRepo.GetByID(ctx, bloques.ID)
	if err != nil {
		t.Fatalf("failed to reload product: %v", err)
	}
	if after.Stock != 4 {
		t.Fatalf("expected stock 4 after one successful sale, got %d", after.Stock)
	}
}

func TestRegisterPaymentLifecycle(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pg := SetupPostgres(ctx, t)
	defer pg.Cleanup()

	db := OpenDB(t, pg.ConnStr)
	defer func() { _ = db.Close() }()

	productRepo := inventory.NewProductRepository(db)
	orderRepo := orders.NewOrderRepository(db)
	paymentRepo := payments.NewPaymentRepository(db)

	cemento := seedProduct(ctx, t, productRepo, "Cemento", 50, "3200")

	order, err := orderRepo.Place(ctx, orders.PlaceOrderInput{
		Customer: "Constructora XYZ",
		Lines:    []orders.LineRequest{{ProductID: cemento.ID, Quantity: 20, UnitPrice: decimal.NewFromInt(5000)}},
	})
	if err != nil {
		t.Fatalf("failed to place order: %v", err)
	}
	if !order.Total.Equal(decimal.RequireFromString("100000")) {
		t.Fatalf("expected total 100000, got %s", order.Total)
	}

	updated, err := paymentRepo.Register(ctx, order.ID, decimal.RequireFromString("40000"))
	if err != nil {
		t.Fatalf("failed to register first payment: %v", err)
	}
	if updated.PaymentStatus != domain.PaymentStatusPartiallyPaid {
		t.Fatalf("expected partially_paid, got %s", updated.PaymentStatus)
	}

	updated, err = paymentRepo.Register(ctx, order.ID, decimal.RequireFromString("60000"))
	if err != nil {
		t.Fatalf("failed to register second payment: %v", err)
	}
	if updated.PaymentStatus != domain.PaymentStatusPaid {
		t.Fatalf("expected paid, got %s", updated.PaymentStatus)
	}
	if !updated.AmountPaid.Equal(updated.Total) {
		t.Fatalf("amount paid %s does not equal total %s", updated.AmountPaid, updated.Total)
	}

	_, err = paymentRepo.Register(ctx, order.ID, decimal.NewFromInt(1))
	if !errors.Is(err, payments.ErrInvalidPaymentAmount) {
		t.Fatalf("expected ErrInvalidPaymentAmount on paid order, got %v", err)
	}

	_, err = paymentRepo.Register(ctx, order.ID, decimal.NewFromInt(-5))
	if !errors.Is(err, payments.ErrInvalidPaymentAmount) {
		t.Fatalf("expected ErrInvalidPaymentAmount for negative amount, got %v", err)
	}

	_, err = paymentRepo.Register(ctx, 999999, decimal.NewFromInt(10))
	if !errors.Is(err, payments.ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}

func TestPayrollRecordsSalaryExpense(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pg := SetupPostgres(ctx, t)
	defer pg.Cleanup()

	db := OpenDB(t, pg.ConnStr)
	defer func() { _ = db.Close() }()

	workerRepo := hr.NewWorkerRepository(db)
	expenseRepo := expenses.NewExpenseRepository(db)

	w := &domain.Worker{
		Name:      "Juan Pérez",
		Role:      "Maestro albañil",
		DailyWage: decimal.RequireFromString("25000"),
		Project:   domain.ProjectBlockFactory,
		Active:    true,
	}
	if err := workerRepo.Create(ctx, w); err != nil {
		t.Fatalf("failed to create worker: %v", err)
	}

	for day := 1; day <= 5; day++ {
		attendance := &domain.Attendance{
			WorkerID: w.ID,
			Date:     time.Date(2025, time.March, day, 0, 0, 0, 0, time.UTC),
			Present:  day != 3, // absent one day
		}
		if err := workerRepo.RecordAttendance(ctx, attendance); err != nil {
			t.Fatalf("failed to record attendance: %v", err)
		}
	}

	from := time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, time.March, 31, 0, 0, 0, 0, time.UTC)

	days, err := workerRepo.CountPresentDays(ctx, w.ID, from, to)
	if err != nil {
		t.Fatalf("failed to count present days: %v", err)
	}
	if days != 4 {
		t.Fatalf("expected 4 days present, got %d", days)
	}

	salary := domain.SalaryFor(days, w.DailyWage)
	expense := &domain.Expense{
		Date:        time.Now().UTC().Truncate(24 * time.Hour),
		Category:    domain.ExpenseCategorySalary,
		Description: "Salary payment",
		Amount:      salary,
		Project:     w.Project,
	}
	if err := expenseRepo.Create(ctx, expense); err != nil {
		t.Fatalf("failed to record salary expense: %v", err)
	}

	totals, err := expenseRepo.MonthlyTotals(ctx, time.Now().UTC().Year())
	if err != nil {
		t.Fatalf("failed to load monthly totals: %v", err)
	}
	month := int(time.Now().UTC().Month())
	if !totals[month].Equal(decimal.RequireFromString("100000")) {
		t.Fatalf("expected monthly total 100000, got %s", totals[month])
	}
}

func TestSalesSummaryProjection(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	pg := SetupPostgres(ctx, t)
	defer pg.Cleanup()

	brokers, cleanupKafka := SetupKafka(ctx, t)
	defer cleanupKafka()

	db := OpenDB(t, pg.ConnStr)
	defer func() { _ = db.Close() }()

	summaryRepo := reports.NewSummaryRepository(db)
	projector := worker.NewSalesProjector(summaryRepo, testLogger())

	producer := messaging.NewProducer(brokers, "order.placed")
	defer func() { _ = producer.Close() }()

	placedAt := time.Date(2025, time.June, 15, 12, 0, 0, 0, time.UTC)
	event := domain.OrderPlacedEvent{
		EventID:     "test-event-1",
		OrderID:     1,
		OrderNumber: "OC-2025-0001",
		Customer:    "Constructora XYZ",
		Total:       decimal.RequireFromString("50000"),
		PlacedAt:    placedAt,
	}
	if err := producer.Publish(ctx, event.EventID, event); err != nil {
		t.Fatalf("failed to publish event: %v", err)
	}

	consumer := messaging.NewConsumer(brokers, "order.placed", "sales-summary-test")
	defer func() { _ = consumer.Close() }()

	consumeCtx, stopConsumer := context.WithCancel(ctx)
	defer stopConsumer()

	done := make(chan error, 1)
	go func() {
		done <- consumer.Consume(consumeCtx, projector.Handle)
	}()

	deadline := time.Now().Add(90 * time.Second)
	for {
		summary, err := summaryRepo.SalesByMonth(ctx, 2025)
		if err != nil {
			t.Fatalf("failed to read sales summary: %v", err)
		}
		if len(summary) == 1 {
			if summary[0].Month != 6 || summary[0].OrdersCount != 1 {
				t.Fatalf("unexpected summary row: %+v", summary[0])
			}
			if !summary[0].Total.Equal(event.Total) {
				t.Fatalf("expected summary total %s, got %s", event.Total, summary[0].Total)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for the projection to catch up")
		}
		time.Sleep(500 * time.Millisecond)
	}

	stopConsumer()
	if err := <-done; err != nil && !errors.Is(err, context.Canceled) {
		t.Fatalf("consumer error: %v", err)
	}
}
