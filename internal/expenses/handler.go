package expenses

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/maravena-dev/bloquera-backend/internal/domain"
)

type Handler struct {
	repo   *ExpenseRepository
	logger *slog.Logger
}

func NewHandler(repo *ExpenseRepository, logger *slog.Logger) *Handler {
	return &Handler{
		repo:   repo,
		logger: logger,
	}
}

type expenseRequest struct {
	Date        string          `json:"date"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Project     string          `json:"project"`
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req expenseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	date := time.Now().UTC().Truncate(24 * time.Hour)
	if req.Date != "" {
		parsed, err := time.Parse("2006-01-02", req.Date)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
			return
		}
		date = parsed
	}

	category := domain.ExpenseCategory(req.Category)
	if category == "" {
		category = domain.ExpenseCategoryOther
	}
	if !domain.ValidExpenseCategory(category) {
		h.writeError(w, http.StatusBadRequest, "unknown expense category")
		return
	}

	project := domain.Project(req.Project)
	if project == "" {
		project = domain.ProjectConstruction
	}
	if !domain.ValidProject(project) {
		h.writeError(w, http.StatusBadRequest, "unknown project")
		return
	}

	if req.Amount.LessThanOrEqual(decimal.Zero) {
		h.writeError(w, http.StatusBadRequest, "amount must be positive")
		return
	}

	expense := &domain.Expense{
		Date:        date,
		Category:    category,
		Description: req.Description,
		Amount:      req.Amount,
		Project:     project,
	}

	if err := h.repo.Create(r.Context(), expense); err != nil {
		h.logger.Error("failed to create expense", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.logger.Info("expense recorded", "expense_id", expense.ID, "category", expense.Category, "amount", expense.Amount)
	h.writeJSON(w, http.StatusCreated, expense)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid expense id")
		return
	}

	expense, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to get expense", "error", err, "expense_id", id)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if expense == nil {
		h.writeError(w, http.StatusNotFound, "expense not found")
		return
	}

	h.writeJSON(w, http.StatusOK, expense)
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	expenses, err := h.repo.List(r.Context())
	if err != nil {
		h.logger.Error("failed to list expenses", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.logger.Info("expenses listed", "count", len(expenses))
	h.writeJSON(w, http.StatusOK, expenses)
}

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid expense id")
		return
	}

	if err := h.repo.Delete(r.Context(), id); err != nil {
		if errors.Is(err, ErrExpenseNotFound) {
			h.writeError(w, http.StatusNotFound, "expense not found")
			return
		}
		h.logger.Error("failed to delete expense", "error", err, "expense_id", id)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.logger.Info("expense deleted", "expense_id", id)
	w.WriteHeader(http.StatusNoContent)
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
