package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/andreasstove999/ecommerce-system/shop-client-go/internal/clients"
)

type Catalog interface {
	ListCategories(ctx context.Context) ([]clients.Category, error)
	ListSubCategories(ctx context.Context, categoryID int64) ([]clients.SubCategory, error)
	ListProducts(ctx context.Context, subCategoryID int64) ([]clients.Product, error)
}

type CatalogHandler struct {
	c      Catalog
	logger *slog.Logger
}

func NewCatalogHandler(c Catalog, logger *slog.Logger) *CatalogHandler {
	return &CatalogHandler{c: c, logger: logger}
}

func (h *CatalogHandler) Categories(w http.ResponseWriter, r *http.Request) {
	list, err := h.c.ListCategories(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *CatalogHandler) SubCategories(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeMessage(w, r, http.StatusBadRequest, err.Error())
		return
	}
	list, err := h.c.ListSubCategories(r.Context(), id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *CatalogHandler) Products(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeMessage(w, r, http.StatusBadRequest, err.Error())
		return
	}
	list, err := h.c.ListProducts(r.Context(), id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}
