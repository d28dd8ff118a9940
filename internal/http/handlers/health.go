package handlers

import (
	"net/http"

	"github.com/andreasstove999/ecommerce-system/shop-client-go/internal/clients"
	"github.com/andreasstove999/ecommerce-system/shop-client-go/internal/http/dto"
)

type HealthHandler struct {
	Probes []clients.HealthProbe
}

func (h *HealthHandler) Service(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, dto.HealthResponse{Status: "ok", Service: "shop-client"})
}

// Upstreams reports 503 when any gateway probe fails.
func (h *HealthHandler) Upstreams(w http.ResponseWriter, r *http.Request) {
	results := clients.CheckAll(r.Context(), h.Probes)

	status, code := "ok", http.StatusOK
	for _, res := range results {
		if !res.OK {
			status, code = "degraded", http.StatusServiceUnavailable
			break
		}
	}
	writeJSON(w, code, dto.UpstreamsResponse{Status: status, Upstreams: results})
}
