package orders

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/maravena-dev/bloquera-backend/internal/domain"
	"github.com/maravena-dev/bloquera-backend/internal/inventory"
	"github.com/maravena-dev/bloquera-backend/internal/messaging"
)

type Handler struct {
	repo     *OrderRepository
	producer *messaging.Producer
	logger   *slog.Logger
}

func NewHandler(repo *OrderRepository, producer *messaging.Producer, logger *slog.Logger) *Handler {
	return &Handler{
		repo:     repo,
		producer: producer,
		logger:   logger,
	}
}

type placeOrderRequest struct {
	Customer string        `json:"customer"`
	TaxID    string        `json:"tax_id"`
	Address  string        `json:"address"`
	Lines    []LineRequest `json:"lines"`
}

type insufficientStockResponse struct {
	Error     string `json:"error"`
	ProductID int64  `json:"product_id"`
	Product   string `json:"product"`
	Available int    `json:"available"`
	Requested int    `json:"requested"`
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req placeOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Customer == "" {
		h.writeError(w, http.StatusBadRequest, "customer name is required")
		return
	}

	order, err := h.repo.Place(r.Context(), PlaceOrderInput{
		Customer: req.Customer,
		TaxID:    req.TaxID,
		Address:  req.Address,
		Lines:    req.Lines,
	})
	if err != nil {
		var stockErr *inventory.InsufficientStockError
		switch {
		case errors.Is(err, ErrNoLineItems):
			h.writeError(w, http.StatusBadRequest, "order needs at least one valid line item")
		case errors.As(err, &stockErr):
			h.logger.Info("order rejected, insufficient stock",
				"product_id", stockErr.ProductID, "available", stockErr.Available, "requested", stockErr.Requested)
			h.writeJSON(w, http.StatusConflict, insufficientStockResponse{
				Error:     "insufficient stock",
				ProductID: stockErr.ProductID,
				Product:   stockErr.Product,
				Available: stockErr.Available,
				Requested: stockErr.Requested,
			})
		case errors.Is(err, inventory.ErrProductNotFound):
			h.writeError(w, http.StatusBadRequest, "order references an unknown product")
		default:
			h.logger.Error("failed to place order", "error", err)
			h.writeError(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	if h.producer != nil {
		event := domain.OrderPlacedEvent{
			EventID:     uuid.New().String(),
			OrderID:     order.ID,
			OrderNumber: order.OrderNumber,
			Customer:    order.Customer,
			Total:       order.Total,
			PlacedAt:    order.CreatedAt,
		}
		if err := h.producer.Publish(r.Context(), event.EventID, event); err != nil {
			h.logger.Error("failed to publish order placed event", "error", err, "order_number", order.OrderNumber)
		}
	}

	h.logger.Info("order placed", "order_number", order.OrderNumber, "customer", order.Customer, "total", order.Total)
	h.writeJSON(w, http.StatusCreated, order)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	order, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to get order", "error", err, "order_id", id)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if order == nil {
		h.writeError(w, http.StatusNotFound, "order not found")
		return
	}

	if order.OrderNumber == "" {
		// Should be impossible: the number is assigned in the placement
		// transaction. Surface it rather than patch it up on read.
		h.logger.Error("order is missing its order number", "order_id", order.ID)
	}

	h.writeJSON(w, http.StatusOK, order)
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	orders, err := h.repo.List(r.Context())
	if err != nil {
		h.logger.Error("failed to list orders", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.logger.Info("orders listed", "count", len(orders))
	h.writeJSON(w, http.StatusOK, orders)
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
