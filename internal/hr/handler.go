package hr

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/maravena-dev/bloquera-backend/internal/domain"
	"github.com/maravena-dev/bloquera-backend/internal/expenses"
)

type Handler struct {
	repo     *WorkerRepository
	expenses *expenses.ExpenseRepository
	logger   *slog.Logger
}

func NewHandler(repo *WorkerRepository, expenseRepo *expenses.ExpenseRepository, logger *slog.Logger) *Handler {
	return &Handler{
		repo:     repo,
		expenses: expenseRepo,
		logger:   logger,
	}
}

type workerRequest struct {
	Name      string          `json:"name"`
	Role      string          `json:"role"`
	DailyWage decimal.Decimal `json:"daily_wage"`
	Project   string          `json:"project"`
	Active    *bool           `json:"active"`
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req workerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Name == "" {
		h.writeError(w, http.StatusBadRequest, "worker name is required")
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

	active := true
	if req.Active != nil {
		active = *req.Active
	}

	worker := &domain.Worker{
		Name:      req.Name,
		Role:      req.Role,
		DailyWage: req.DailyWage,
		Project:   project,
		Active:    active,
	}

	if err := h.repo.Create(r.Context(), worker); err != nil {
		h.logger.Error("failed to create worker", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.logger.Info("worker created", "worker_id", worker.ID, "name", worker.Name)
	h.writeJSON(w, http.StatusCreated, worker)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	worker, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to get worker", "error", err, "worker_id", id)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if worker == nil {
		h.writeError(w, http.StatusNotFound, "worker not found")
		return
	}

	h.writeJSON(w, http.StatusOK, worker)
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	workers, err := h.repo.List(r.Context())
	if err != nil {
		h.logger.Error("failed to list workers", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.logger.Info("workers listed", "count", len(workers))
	h.writeJSON(w, http.StatusOK, workers)
}

func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	var req workerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Name == "" {
		h.writeError(w, http.StatusBadRequest, "worker name is required")
		return
	}

	project := domain.Project(req.Project)
	if !domain.ValidProject(project) {
		h.writeError(w, http.StatusBadRequest, "unknown project")
		return
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}

	worker := &domain.Worker{
		ID:        id,
		Name:      req.Name,
		Role:      req.Role,
		DailyWage: req.DailyWage,
		Project:   project,
		Active:    active,
	}

	if err := h.repo.Update(r.Context(), worker); err != nil {
		if errors.Is(err, ErrWorkerNotFound) {
			h.writeError(w, http.StatusNotFound, "worker not found")
			return
		}
		h.logger.Error("failed to update worker", "error", err, "worker_id", id)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.logger.Info("worker updated", "worker_id", id)
	h.writeJSON(w, http.StatusOK, worker)
}

type attendanceRequest struct {
	Date    string `json:"date"`
	Present bool   `json:"present"`
}

func (h *Handler) HandleRecordAttendance(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	var req attendanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}

	worker, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to get worker", "error", err, "worker_id", id)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if worker == nil {
		h.writeError(w, http.StatusNotFound, "worker not found")
		return
	}

	attendance := &domain.Attendance{
		WorkerID: id,
		Date:     date,
		Present:  req.Present,
	}

	if err := h.repo.RecordAttendance(r.Context(), attendance); err != nil {
		h.logger.Error("failed to record attendance", "error", err, "worker_id", id)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.logger.Info("attendance recorded", "worker_id", id, "date", req.Date, "present", req.Present)
	h.writeJSON(w, http.StatusOK, attendance)
}

func (h *Handler) HandleListAttendance(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	from, err := time.Parse("2006-01-02", r.URL.Query().Get("from"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "from must be YYYY-MM-DD")
		return
	}
	to, err := time.Parse("2006-01-02", r.URL.Query().Get("to"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "to must be YYYY-MM-DD")
		return
	}

	records, err := h.repo.ListAttendance(r.Context(), id, from, to)
	if err != nil {
		h.logger.Error("failed to list attendance", "error", err, "worker_id", id)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.writeJSON(w, http.StatusOK, records)
}

type payrollResponse struct {
	WorkerID    int64           `json:"worker_id"`
	Worker      string          `json:"worker"`
	From        string          `json:"from"`
	To          string          `json:"to"`
	DaysPresent int             `json:"days_present"`
	DailyWage   decimal.Decimal `json:"daily_wage"`
	Salary      decimal.Decimal `json:"salary"`
}

// HandleComputePayroll reports the salary owed for a period without
// recording anything.
func (h *Handler) HandleComputePayroll(w http.ResponseWriter, r *http.Request) {
	payroll, ok := h.computePayroll(w, r)
	if !ok {
		return
	}

	h.writeJSON(w, http.StatusOK, payroll)
}

// HandleRegisterPayroll computes the salary for a period and records it as
// a salary expense under the worker's project.
func (h *Handler) HandleRegisterPayroll(w http.ResponseWriter, r *http.Request) {
	payroll, ok := h.computePayroll(w, r)
	if !ok {
		return
	}

	if payroll.Salary.LessThanOrEqual(decimal.Zero) {
		h.writeError(w, http.StatusBadRequest, "no attendance in the period, nothing to pay")
		return
	}

	worker, err := h.repo.GetByID(r.Context(), payroll.WorkerID)
	if err != nil || worker == nil {
		h.logger.Error("failed to reload worker for payroll", "error", err, "worker_id", payroll.WorkerID)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	expense := &domain.Expense{
		Date:     time.Now().UTC().Truncate(24 * time.Hour),
		Category: domain.ExpenseCategorySalary,
		Description: fmt.Sprintf("Salary payment to %s for period %s to %s (%d days)",
			worker.Name, payroll.From, payroll.To, payroll.DaysPresent),
		Amount:  payroll.Salary,
		Project: worker.Project,
	}

	if err := h.expenses.Create(r.Context(), expense); err != nil {
		h.logger.Error("failed to record salary expense", "error", err, "worker_id", worker.ID)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.logger.Info("salary expense recorded",
		"worker_id", worker.ID, "expense_id", expense.ID, "salary", payroll.Salary)
	h.writeJSON(w, http.StatusCreated, map[string]any{
		"payroll": payroll,
		"expense": expense,
	})
}

func (h *Handler) computePayroll(w http.ResponseWriter, r *http.Request) (*payrollResponse, bool) {
	id, ok := h.pathID(w, r)
	if !ok {
		return nil, false
	}

	fromStr := r.URL.Query().Get("from")
	toStr := r.URL.Query().Get("to")

	from, err := time.Parse("2006-01-02", fromStr)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "from must be YYYY-MM-DD")
		return nil, false
	}
	to, err := time.Parse("2006-01-02", toStr)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "to must be YYYY-MM-DD")
		return nil, false
	}
	if to.Before(from) {
		h.writeError(w, http.StatusBadRequest, "period end is before its start")
		return nil, false
	}

	worker, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to get worker", "error", err, "worker_id", id)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return nil, false
	}
	if worker == nil {
		h.writeError(w, http.StatusNotFound, "worker not found")
		return nil, false
	}

	days, err := h.repo.CountPresentDays(r.Context(), id, from, to)
	if err != nil {
		h.logger.Error("failed to count attendance", "error", err, "worker_id", id)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return nil, false
	}

	return &payrollResponse{
		WorkerID:    worker.ID,
		Worker:      worker.Name,
		From:        fromStr,
		To:          toStr,
		DaysPresent: days,
		DailyWage:   worker.DailyWage,
		Salary:      domain.SalaryFor(days, worker.DailyWage),
	}, true
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid worker id")
		return 0, false
	}
	return id, true
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
