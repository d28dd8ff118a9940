package dto

import "github.com/andreasstove999/ecommerce-system/shop-client-go/internal/clients"

type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

type UpstreamsResponse struct {
	Status    string                 `json:"status"`
	Upstreams []clients.HealthResult `json:"upstreams"`
}
