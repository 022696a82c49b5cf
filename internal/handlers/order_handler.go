package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"coinmarket/internal/middleware"
	"coinmarket/internal/models"
	"coinmarket/internal/services"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

type OrderHandler struct {
	orderService *services.OrderService
	logger       zerolog.Logger
}

func NewOrderHandler(db *sql.DB, logger zerolog.Logger) *OrderHandler {
	return &OrderHandler{
		orderService: services.NewOrderService(db, logger),
		logger:       logger,
	}
}

// CreateOrder accepts anonymous checkouts; a resolved session attaches the
// user to the order so it shows up under "my orders" later.
func (h *OrderHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req models.CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondWithError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	var userID *int64
	if user, ok := middleware.CurrentUser(r); ok {
		userID = &user.ID
	}

	order, err := h.orderService.CreateOrder(&req, userID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrCoinNotFound):
			h.respondWithError(w, http.StatusNotFound, "coin_not_found", "Coin not found")
		case errors.Is(err, services.ErrInsufficientStock),
			errors.Is(err, services.ErrEmptyOrder),
			errors.Is(err, services.ErrInvalidQuantity):
			h.respondWithError(w, http.StatusBadRequest, "order_rejected", err.Error())
		default:
			h.logger.Error().Err(err).Msg("Order creation failed")
			h.respondWithError(w, http.StatusInternalServerError, "order_failed", "Failed to create order")
		}
		return
	}

	h.respondWithJSON(w, http.StatusOK, order)
}

func (h *OrderHandler) ConfirmPayment(w http.ResponseWriter, r *http.Request) {
	orderID, ok := h.orderIDFromPath(w, r)
	if !ok {
		return
	}

	order, err := h.orderService.ConfirmPayment(orderID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrOrderNotFound):
			h.respondWithError(w, http.StatusNotFound, "order_not_found", "Order not found")
		case errors.Is(err, services.ErrCoinNotFound):
			h.respondWithError(w, http.StatusNotFound, "coin_not_found", "Coin not found")
		case errors.Is(err, services.ErrPaymentAlreadyCompleted):
			h.respondWithError(w, http.StatusBadRequest, "payment_already_completed", "Payment already completed")
		case errors.Is(err, services.ErrInsufficientStock):
			h.respondWithError(w, http.StatusBadRequest, "insufficient_stock", err.Error())
		default:
			h.logger.Error().Err(err).Int64("order_id", orderID).Msg("Payment confirmation failed")
			h.respondWithError(w, http.StatusInternalServerError, "payment_failed", "Failed to confirm payment")
		}
		return
	}

	h.respondWithJSON(w, http.StatusOK, order)
}

// GetOrders lists the caller's orders; admins see everything.
func (h *OrderHandler) GetOrders(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(r)
	if !ok {
		h.respondWithError(w, http.StatusUnauthorized, "not_authenticated", "Not authenticated")
		return
	}

	var orders []*models.OrderDetail
	var err error
	if user.IsAdmin {
		orders, err = h.orderService.ListOrders()
	} else {
		orders, err = h.orderService.ListOrdersByUser(user.ID)
	}
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list orders")
		h.respondWithError(w, http.StatusInternalServerError, "fetch_failed", "Failed to fetch orders")
		return
	}

	h.respondWithJSON(w, http.StatusOK, orders)
}

// GetAllOrders backs the admin dashboard; the router gates it behind RequireAdmin.
func (h *OrderHandler) GetAllOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orderService.ListOrders()
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list orders")
		h.respondWithError(w, http.StatusInternalServerError, "fetch_failed", "Failed to fetch orders")
		return
	}

	h.respondWithJSON(w, http.StatusOK, orders)
}

func (h *OrderHandler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	orderID, ok := h.orderIDFromPath(w, r)
	if !ok {
		return
	}

	var req models.StatusUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondWithError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	order, err := h.orderService.UpdateStatus(orderID, req.Status)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidStatus):
			h.respondWithError(w, http.StatusBadRequest, "invalid_status", "Invalid status")
		case errors.Is(err, services.ErrOrderNotFound):
			h.respondWithError(w, http.StatusNotFound, "order_not_found", "Order not found")
		default:
			h.logger.Error().Err(err).Int64("order_id", orderID).Msg("Status update failed")
			h.respondWithError(w, http.StatusInternalServerError, "update_failed", "Failed to update order status")
		}
		return
	}

	h.respondWithJSON(w, http.StatusOK, order)
}

func (h *OrderHandler) orderIDFromPath(w http.ResponseWriter, r *http.Request) (int64, bool) {
	orderID, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		h.respondWithError(w, http.StatusBadRequest, "invalid_order_id", "Invalid order ID")
		return 0, false
	}
	return orderID, true
}

func (h *OrderHandler) respondWithError(w http.ResponseWriter, code int, errorCode, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{
		"error":   errorCode,
		"message": message,
	})
}

func (h *OrderHandler) respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(payload)
}
