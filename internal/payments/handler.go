package payments

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/shopspring/decimal"
)

type Handler struct {
	repo   *PaymentRepository
	logger *slog.Logger
}

func NewHandler(repo *PaymentRepository, logger *slog.Logger) *Handler {
	return &Handler{
		repo:   repo,
		logger: logger,
	}
}

type registerPaymentRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	orderID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	var req registerPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	order, err := h.repo.Register(r.Context(), orderID, req.Amount)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidPaymentAmount):
			h.writeError(w, http.StatusBadRequest, ErrInvalidPaymentAmount.Error())
		case errors.Is(err, ErrOrderNotFound):
			h.writeError(w, http.StatusNotFound, "order not found")
		default:
			h.logger.Error("failed to register payment", "error", err, "order_id", orderID)
			h.writeError(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	h.logger.Info("payment registered",
		"order_id", orderID, "amount", req.Amount, "amount_paid", order.AmountPaid, "payment_status", order.PaymentStatus)
	h.writeJSON(w, http.StatusOK, order)
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
