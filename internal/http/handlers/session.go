package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/andreasstove999/ecommerce-system/shop-client-go/internal/http/dto"
	"github.com/andreasstove999/ecommerce-system/shop-client-go/internal/session"
	"github.com/andreasstove999/ecommerce-system/shop-client-go/internal/shop"
)

type SessionStore interface {
	Login(ctx context.Context, token string) (session.Session, error)
	Logout(ctx context.Context) error
}

type SessionHandler struct {
	sessions SessionStore
	shop     *shop.Session
	logger   *slog.Logger
}

func NewSessionHandler(sessions SessionStore, s *shop.Session, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{sessions: sessions, shop: s, logger: logger}
}

// Login stores the token from the login flow and loads that shopper's cart.
func (h *SessionHandler) Login(w http.ResponseWriter, r *http.Request) {
	var body dto.LoginRequest
	if err := decodeJSON(r, &body); err != nil {
		writeMessage(w, r, http.StatusBadRequest, err.Error())
		return
	}

	s, err := h.sessions.Login(r.Context(), body.Token)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	h.shop.EndCheckout()
	if err := h.shop.Cart.Load(r.Context(), s.UserID); err != nil {
		// the cart view retries on the next GET /cart
		h.logger.Warn("cart load after login failed", "user_id", s.UserID, "err", err)
	}
	writeJSON(w, http.StatusOK, dto.LoginResponse{UserID: s.UserID})
}

func (h *SessionHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.shop.EndCheckout()
	if err := h.sessions.Logout(r.Context()); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
