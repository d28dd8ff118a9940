package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/andreasstove999/ecommerce-system/shop-client-go/internal/clients"
)

type OrderLookup interface {
	GetOrder(ctx context.Context, orderID, userID int64) (clients.Order, error)
	ListOrders(ctx context.Context) ([]clients.Order, error)
}

type OrderHandler struct {
	orders OrderLookup
	logger *slog.Logger
}

func NewOrderHandler(orders OrderLookup, logger *slog.Logger) *OrderHandler {
	return &OrderHandler{orders: orders, logger: logger}
}

// List returns the shopper's own orders.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	all, err := h.orders.ListOrders(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	userID := currentUser(r)
	mine := make([]clients.Order, 0, len(all))
	for _, o := range all {
		if o.UserID == userID {
			mine = append(mine, o)
		}
	}
	writeJSON(w, http.StatusOK, mine)
}

func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	orderID, err := pathID(r, "orderId")
	if err != nil {
		writeMessage(w, r, http.StatusBadRequest, err.Error())
		return
	}
	o, err := h.orders.GetOrder(r.Context(), orderID, currentUser(r))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}
