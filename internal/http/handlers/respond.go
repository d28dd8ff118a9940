package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/andreasstove999/ecommerce-system/shop-client-go/internal/cart"
	"github.com/andreasstove999/ecommerce-system/shop-client-go/internal/checkout"
	"github.com/andreasstove999/ecommerce-system/shop-client-go/internal/clients"
	"github.com/andreasstove999/ecommerce-system/shop-client-go/internal/middleware"
	"github.com/andreasstove999/ecommerce-system/shop-client-go/internal/model"
	"github.com/andreasstove999/ecommerce-system/shop-client-go/internal/session"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, status, model.ErrorResponse{
		Error:         msg,
		CorrelationID: middleware.GetCorrelationID(r.Context()),
	})
}

// writeError maps a domain error to its status code. Unknown errors are
// logged and reported as 500 without detail.
func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	status, msg := statusFor(err)
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", "path", r.URL.Path, "status", status, "err", err,
			"correlation_id", middleware.GetCorrelationID(r.Context()))
	}
	writeMessage(w, r, status, msg)
}

func statusFor(err error) (int, string) {
	var (
		vErr     *checkout.ValidationError
		placeErr *checkout.OrderPlacementError
		gwErr    *clients.GatewayError
	)
	switch {
	case errors.Is(err, session.ErrAuth):
		return http.StatusUnauthorized, "not logged in"
	case errors.As(err, &vErr):
		return http.StatusUnprocessableEntity, vErr.Message
	case errors.Is(err, cart.ErrInvalidDelta), errors.Is(err, cart.ErrInvalidProduct):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, checkout.ErrIllegalTransition):
		return http.StatusConflict, err.Error()
	case errors.Is(err, clients.ErrUnavailable):
		return http.StatusServiceUnavailable, "gateway unavailable"
	case errors.As(err, &placeErr):
		return http.StatusBadGateway, placeErr.Message
	case errors.As(err, &gwErr):
		return http.StatusBadGateway, gwErr.Message
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

// decodeJSON reads and validates a request body.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid json: %w", err)
	}
	if err := validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s failed %s", strings.ToLower(fe.Field()), fe.Tag()))
			}
			return fmt.Errorf("invalid request: %s", strings.Join(fields, ", "))
		}
		return err
	}
	return nil
}

func pathID(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s %q", name, raw)
	}
	return id, nil
}

func currentUser(r *http.Request) int64 {
	s, _ := middleware.GetSession(r.Context())
	return s.UserID
}
