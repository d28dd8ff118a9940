package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

const HeaderCorrelationID = "X-Correlation-Id"

// maxCorrelationIDLen bounds ids accepted from the UI; longer ones are replaced.
const maxCorrelationIDLen = 128

type ctxKey int

const (
	ctxCorrelationID ctxKey = iota
	ctxSession
)

// CorrelationID reuses the caller's id when it is usable, otherwise mints one.
// The id is echoed on the response and forwarded on every gateway call.
func CorrelationID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cid := r.Header.Get(HeaderCorrelationID)
		if !usableCorrelationID(cid) {
			cid = uuid.NewString()
		}
		w.Header().Set(HeaderCorrelationID, cid)
		next.ServeHTTP(w, r.WithContext(WithCorrelationID(r.Context(), cid)))
	})
}

func usableCorrelationID(cid string) bool {
	if cid == "" || len(cid) > maxCorrelationIDLen {
		return false
	}
	for i := 0; i < len(cid); i++ {
		if c := cid[i]; c < 0x21 || c > 0x7e {
			return false
		}
	}
	return true
}

// WithCorrelationID is used by background work that outlives the request.
func WithCorrelationID(ctx context.Context, cid string) context.Context {
	return context.WithValue(ctx, ctxCorrelationID, cid)
}

func GetCorrelationID(ctx context.Context) string {
	cid, _ := ctx.Value(ctxCorrelationID).(string)
	return cid
}
