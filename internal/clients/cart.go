package clients

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/shopspring/decimal"
)

type CartProduct struct {
	Name          string          `json:"name"`
	DiscountPrice decimal.Decimal `json:"discount_price"`
	Price         decimal.Decimal `json:"price"`
}

type CartItem struct {
	CartID     int64           `json:"cart_id"`
	ProductID  int64           `json:"product_id"`
	Product    CartProduct     `json:"product"`
	ImageURL   string          `json:"image_url"`
	Quantity   int             `json:"quantity"`
	TotalPrice decimal.Decimal `json:"total_price"`
}

type CartResponse struct {
	Items        []CartItem      `json:"items"`
	TotalPayment decimal.Decimal `json:"total_payment"`
}

// AddCartItemRequest creates a line or increments the existing one for the product.
type AddCartItemRequest struct {
	UserID    int64       `json:"user_id"`
	ProductID int64       `json:"product_id"`
	ImageURL  string      `json:"image_url"`
	Quantity  int         `json:"quantity"`
	Price     json.Number `json:"price"`
}

type UpdateCartItemRequest struct {
	Quantity int `json:"quantity"`
}

type CartClient struct{ c *Client }

func NewCartClient(c *Client) *CartClient { return &CartClient{c: c} }

func (cc *CartClient) GetCart(ctx context.Context, userID int64) (CartResponse, error) {
	var out CartResponse
	err := cc.c.doJSON(ctx, "get_cart", http.MethodGet, "/api/v1/cart/"+strconv.FormatInt(userID, 10), nil, nil, &out)
	return out, err
}

func (cc *CartClient) AddItem(ctx context.Context, req AddCartItemRequest) (CartItem, error) {
	var out CartItem
	err := cc.c.doJSON(ctx, "add_item", http.MethodPost, "/api/v1/cart", nil, req, &out)
	return out, err
}

func (cc *CartClient) UpdateItem(ctx context.Context, cartID int64, quantity int) (CartItem, error) {
	var out CartItem
	err := cc.c.doJSON(ctx, "update_item", http.MethodPatch, "/api/v1/cart/item/"+strconv.FormatInt(cartID, 10),
		nil, UpdateCartItemRequest{Quantity: quantity}, &out)
	return out, err
}

func (cc *CartClient) RemoveItem(ctx context.Context, cartID int64) error {
	return cc.c.doJSON(ctx, "remove_item", http.MethodDelete, "/api/v1/cart/item/"+strconv.FormatInt(cartID, 10), nil, nil, nil)
}

func (cc *CartClient) RemoveAll(ctx context.Context, userID int64) error {
	return cc.c.doJSON(ctx, "remove_all", http.MethodDelete, "/api/v1/cart/"+strconv.FormatInt(userID, 10), nil, nil, nil)
}
