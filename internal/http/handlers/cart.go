package handlers

import (
	"log/slog"
	"net/http"

	"github.com/andreasstove999/ecommerce-system/shop-client-go/internal/cart"
	"github.com/andreasstove999/ecommerce-system/shop-client-go/internal/http/dto"
	"github.com/andreasstove999/ecommerce-system/shop-client-go/internal/shop"
)

type CartHandler struct {
	shop   *shop.Session
	logger *slog.Logger
}

func NewCartHandler(s *shop.Session, logger *slog.Logger) *CartHandler {
	return &CartHandler{shop: s, logger: logger}
}

type cartView struct {
	cart.Snapshot
	ItemCount int    `json:"item_count"`
	Savings   string `json:"savings"`
	AddMode   string `json:"add_mode"`
}

func (h *CartHandler) view() cartView {
	snap := h.shop.Cart.Snapshot()
	return cartView{
		Snapshot:  snap,
		ItemCount: snap.ItemCount(),
		Savings:   snap.Savings().StringFixed(2),
		AddMode:   string(h.shop.Cart.Mode()),
	}
}

// Get loads the cart on first use, or when another shopper logged in since.
func (h *CartHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID := currentUser(r)
	snap := h.shop.Cart.Snapshot()
	if !snap.Loaded || snap.UserID != userID {
		if err := h.shop.Cart.Load(r.Context(), userID); err != nil {
			writeError(w, r, h.logger, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, h.view())
}

func (h *CartHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	if err := h.shop.Cart.Load(r.Context(), currentUser(r)); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, h.view())
}

// AddItem answers 202 in optimistic mode, where the gateway call is still
// running when the response is written.
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var body dto.AddItemRequest
	if err := decodeJSON(r, &body); err != nil {
		writeMessage(w, r, http.StatusBadRequest, err.Error())
		return
	}

	discount := body.DiscountPrice
	if discount.IsZero() {
		discount = body.Price
	}
	p := cart.Product{
		ProductID: body.ProductID,
		Snapshot: cart.ProductSnapshot{
			Name:          body.Name,
			UnitPrice:     body.Price,
			DiscountPrice: discount,
		},
		ImageRef: body.ImageURL,
	}
	if err := h.shop.Cart.AddOrIncrement(r.Context(), currentUser(r), p); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	status := http.StatusOK
	if h.shop.Cart.Mode() == cart.AddOptimistic {
		status = http.StatusAccepted
	}
	writeJSON(w, status, h.view())
}

func (h *CartHandler) ChangeQuantity(w http.ResponseWriter, r *http.Request) {
	lineID, err := pathID(r, "lineId")
	if err != nil {
		writeMessage(w, r, http.StatusBadRequest, err.Error())
		return
	}
	var body dto.ChangeQuantityRequest
	if err := decodeJSON(r, &body); err != nil {
		writeMessage(w, r, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.shop.Cart.ChangeQuantity(r.Context(), lineID, body.Delta); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, h.view())
}

func (h *CartHandler) Clear(w http.ResponseWriter, r *http.Request) {
	if err := h.shop.Cart.Clear(r.Context(), currentUser(r)); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, h.view())
}
