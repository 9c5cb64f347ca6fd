package reports

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/maravena-dev/bloquera-backend/internal/expenses"
)

type Handler struct {
	summary  *SummaryRepository
	expenses *expenses.ExpenseRepository
	logger   *slog.Logger
}

func NewHandler(summary *SummaryRepository, expenseRepo *expenses.ExpenseRepository, logger *slog.Logger) *Handler {
	return &Handler{
		summary:  summary,
		expenses: expenseRepo,
		logger:   logger,
	}
}

type dashboardMonth struct {
	Month       int             `json:"month"`
	OrdersCount int             `json:"orders_count"`
	Sales       decimal.Decimal `json:"sales"`
	Expenses    decimal.Decimal `json:"expenses"`
	Margin      decimal.Decimal `json:"margin"`
}

type dashboardResponse struct {
	Year          int              `json:"year"`
	Months        []dashboardMonth `json:"months"`
	TotalSales    decimal.Decimal  `json:"total_sales"`
	TotalExpenses decimal.Decimal  `json:"total_expenses"`
}

// HandleDashboard returns the per-month sales and expense totals for one
// year. Sales come from the event-driven summary projection; expenses are
// aggregated directly.
func (h *Handler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	year := time.Now().UTC().Year()
	if q := r.URL.Query().Get("year"); q != "" {
		parsed, err := strconv.Atoi(q)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "invalid year")
			return
		}
		year = parsed
	}

	sales, err := h.summary.SalesByMonth(r.Context(), year)
	if err != nil {
		h.logger.Error("failed to load sales summary", "error", err, "year", year)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	expenseTotals, err := h.expenses.MonthlyTotals(r.Context(), year)
	if err != nil {
		h.logger.Error("failed to load expense totals", "error", err, "year", year)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	salesByMonth := make(map[int]MonthlySales, len(sales))
	for _, m := range sales {
		salesByMonth[m.Month] = m
	}

	resp := dashboardResponse{
		Year:          year,
		Months:        make([]dashboardMonth, 0, 12),
		TotalSales:    decimal.Zero,
		TotalExpenses: decimal.Zero,
	}

	for month := 1; month <= 12; month++ {
		row := dashboardMonth{
			Month:    month,
			Sales:    decimal.Zero,
			Expenses: decimal.Zero,
		}
		if m, ok := salesByMonth[month]; ok {
			row.OrdersCount = m.OrdersCount
			row.Sales = m.Total
		}
		if e, ok := expenseTotals[month]; ok {
			row.Expenses = e
		}
		row.Margin = row.Sales.Sub(row.Expenses)

		resp.TotalSales = resp.TotalSales.Add(row.Sales)
		resp.TotalExpenses = resp.TotalExpenses.Add(row.Expenses)
		resp.Months = append(resp.Months, row)
	}

	h.logger.Info("dashboard computed", "year", year)
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
