package handlers

import (
	"log/slog"
	"net/http"

	"github.com/andreasstove999/ecommerce-system/shop-client-go/internal/checkout"
	"github.com/andreasstove999/ecommerce-system/shop-client-go/internal/http/dto"
	"github.com/andreasstove999/ecommerce-system/shop-client-go/internal/shop"
)

type CheckoutHandler struct {
	shop   *shop.Session
	logger *slog.Logger
}

func NewCheckoutHandler(s *shop.Session, logger *slog.Logger) *CheckoutHandler {
	return &CheckoutHandler{shop: s, logger: logger}
}

func (h *CheckoutHandler) Get(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.shop.Checkout().View())
}

func (h *CheckoutHandler) Restart(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusCreated, h.shop.RestartCheckout().View())
}

func (h *CheckoutHandler) OpenAddressPicker(w http.ResponseWriter, r *http.Request) {
	o := h.shop.Checkout()
	if err := o.OpenAddressPicker(r.Context()); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, o.View())
}

func (h *CheckoutHandler) CancelAddressPicker(w http.ResponseWriter, r *http.Request) {
	o := h.shop.Checkout()
	if err := o.CancelAddressPicker(); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, o.View())
}

func (h *CheckoutHandler) SelectAddress(w http.ResponseWriter, r *http.Request) {
	var body dto.SelectAddressRequest
	if err := decodeJSON(r, &body); err != nil {
		writeMessage(w, r, http.StatusBadRequest, err.Error())
		return
	}

	o := h.shop.Checkout()
	if err := o.SelectAddress(body.AddressID); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, o.View())
}

func (h *CheckoutHandler) SelectPayment(w http.ResponseWriter, r *http.Request) {
	var body dto.SelectPaymentRequest
	if err := decodeJSON(r, &body); err != nil {
		writeMessage(w, r, http.StatusBadRequest, err.Error())
		return
	}

	o := h.shop.Checkout()
	if err := o.SelectPayment(checkout.PaymentMethod(body.Method), body.Provider); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, o.View())
}

func (h *CheckoutHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	o := h.shop.Checkout()
	if err := o.Confirm(r.Context()); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, o.View())
}

// Tracking returns the countdown of the placed order.
func (h *CheckoutHandler) Tracking(w http.ResponseWriter, r *http.Request) {
	v := h.shop.Checkout().View()
	if v.Tracking == nil {
		writeMessage(w, r, http.StatusNotFound, "no order is being tracked")
		return
	}
	writeJSON(w, http.StatusOK, v.Tracking)
}

// CloseTracking is the tracking view going away: the timer stops whether or
// not it reached zero.
func (h *CheckoutHandler) CloseTracking(w http.ResponseWriter, r *http.Request) {
	o := h.shop.Checkout()
	o.Teardown()
	v := o.View()
	if v.Tracking == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, v.Tracking)
}
