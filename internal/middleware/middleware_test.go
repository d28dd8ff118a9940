package middleware

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andreasstove999/ecommerce-system/shop-client-go/internal/model"
	"github.com/andreasstove999/ecommerce-system/shop-client-go/internal/session"
	"github.com/andreasstove999/ecommerce-system/shop-client-go/internal/testutil"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestCorrelationID_GeneratesAndPropagates(t *testing.T) {
	var seen string
	h := CorrelationID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetCorrelationID(r.Context())
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/cart", nil))

	require.NotEmpty(t, seen)
	assert.Equal(t, seen, rr.Header().Get(HeaderCorrelationID))
}

func TestCorrelationID_KeepsIncoming(t *testing.T) {
	var seen string
	h := CorrelationID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetCorrelationID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/cart", nil)
	req.Header.Set(HeaderCorrelationID, "cid-123")
	h.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, "cid-123", seen)
}

func TestCorrelationID_ReplacesUnusable(t *testing.T) {
	cases := map[string]string{
		"control chars": "cid\r\nSet-Cookie: x",
		"spaces":        "two words",
		"too long":      strings.Repeat("a", maxCorrelationIDLen+1),
	}
	for name, incoming := range cases {
		t.Run(name, func(t *testing.T) {
			var seen string
			h := CorrelationID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen = GetCorrelationID(r.Context())
			}))

			req := httptest.NewRequest(http.MethodGet, "/cart", nil)
			req.Header.Set(HeaderCorrelationID, incoming)
			h.ServeHTTP(httptest.NewRecorder(), req)

			assert.NotEqual(t, incoming, seen)
			_, err := uuid.Parse(seen)
			assert.NoError(t, err)
		})
	}
}

func TestRecover_ReraisesAbortHandler(t *testing.T) {
	h := Recover(discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic(http.ErrAbortHandler)
	}))

	assert.PanicsWithValue(t, http.ErrAbortHandler, func() {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/cart", nil))
	})
}

func TestRecover_WritesErrorResponse(t *testing.T) {
	h := CorrelationID(Recover(discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})))

	req := httptest.NewRequest(http.MethodGet, "/checkout", nil)
	req.Header.Set(HeaderCorrelationID, "cid-9")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	require.Equal(t, http.StatusInternalServerError, rr.Code)
	var resp model.ErrorResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "internal server error", resp.Error)
	assert.Equal(t, "cid-9", resp.CorrelationID)
}

func TestRequireSession(t *testing.T) {
	store := session.NewMemoryStore()
	resolver := session.NewResolver(store, "userCookie")

	var got session.Session
	h := RequireSession(resolver)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = GetSession(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/cart", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	require.NoError(t, store.Set(context.Background(), "userCookie", testutil.Token(t, 31)))
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/cart", nil))
	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, int64(31), got.UserID)
}
