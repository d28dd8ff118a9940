package clients

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/shopspring/decimal"
)

type Category struct {
	CategoryID int64  `json:"category_id"`
	Name       string `json:"name"`
	ImageURL   string `json:"image_url,omitempty"`
}

type SubCategory struct {
	SubCategoryID int64  `json:"sub_category_id"`
	CategoryID    int64  `json:"category_id"`
	Name          string `json:"name"`
	ImageURL      string `json:"image_url,omitempty"`
}

type ProductImage struct {
	ImageURL string `json:"image_url"`
}

type Product struct {
	ProductID     int64           `json:"product_id"`
	SubCategoryID int64           `json:"sub_category_id,omitempty"`
	Name          string          `json:"name"`
	Description   string          `json:"description,omitempty"`
	Price         decimal.Decimal `json:"price"`
	DiscountPrice decimal.Decimal `json:"discount_price"`
	PackSize      string          `json:"quantity,omitempty"`
	IsAvailable   bool            `json:"is_available"`
	Image         *ProductImage   `json:"image,omitempty"`
}

func (p Product) ImageURL() string {
	if p.Image == nil {
		return ""
	}
	return p.Image.ImageURL
}

type CatalogClient struct{ c *Client }

func NewCatalogClient(c *Client) *CatalogClient { return &CatalogClient{c: c} }

func (cc *CatalogClient) ListCategories(ctx context.Context) ([]Category, error) {
	var out []Category
	err := cc.c.doJSON(ctx, "list_categories", http.MethodGet, "/api/v1/category", nil, nil, &out)
	return out, err
}

func (cc *CatalogClient) ListSubCategories(ctx context.Context, categoryID int64) ([]SubCategory, error) {
	q := url.Values{"category_id": {strconv.FormatInt(categoryID, 10)}}
	var out []SubCategory
	err := cc.c.doJSON(ctx, "list_subcategories", http.MethodGet, "/api/v1/subcategory", q, nil, &out)
	return out, err
}

func (cc *CatalogClient) ListProducts(ctx context.Context, subCategoryID int64) ([]Product, error) {
	q := url.Values{"sub_category_id": {strconv.FormatInt(subCategoryID, 10)}}
	var out []Product
	err := cc.c.doJSON(ctx, "list_products", http.MethodGet, "/api/v1/product", q, nil, &out)
	return out, err
}
