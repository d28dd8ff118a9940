package clients

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderCompleted OrderStatus = "completed"
)

type OrderLine struct {
	CartID     int64       `json:"cart_id"`
	ProductID  int64       `json:"product_id"`
	Quantity   int         `json:"quantity"`
	TotalPrice json.Number `json:"total_price"`
}

// PlaceOrderRequest keeps cart_id and quantity for gateways that only read the
// first line; Items carries the complete list.
type PlaceOrderRequest struct {
	UserID        int64       `json:"user_id"`
	TotalPrice    json.Number `json:"total_price"`
	Status        OrderStatus `json:"status"`
	AddressID     int64       `json:"address_id"`
	PaymentMethod string      `json:"payment_method"`
	CartID        int64       `json:"cart_id"`
	Quantity      int         `json:"quantity"`
	Items         []OrderLine `json:"items,omitempty"`
}

type OrderStatusUpdate struct {
	UserID      int64       `json:"user_id"`
	OrderStatus OrderStatus `json:"order_status"`
}

type Order struct {
	OrderID       int64           `json:"order_id"`
	UserID        int64           `json:"user_id"`
	TotalPrice    decimal.Decimal `json:"total_price"`
	Status        OrderStatus     `json:"status"`
	AddressID     int64           `json:"address_id"`
	PaymentMethod string          `json:"payment_method"`
	CartID        int64           `json:"cart_id,omitempty"`
	Quantity      int             `json:"quantity,omitempty"`
}

// UnmarshalJSON also accepts the legacy Instamartorder_* field names.
func (o *Order) UnmarshalJSON(b []byte) error {
	type plain Order
	var aux struct {
		plain
		LegacyID     int64       `json:"Instamartorder_id"`
		LegacyStatus OrderStatus `json:"Instamartorder_status"`
	}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	*o = Order(aux.plain)
	if o.OrderID == 0 {
		o.OrderID = aux.LegacyID
	}
	if o.Status == "" {
		o.Status = aux.LegacyStatus
	}
	return nil
}

type OrderClient struct{ c *Client }

func NewOrderClient(c *Client) *OrderClient { return &OrderClient{c: c} }

func (oc *OrderClient) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (Order, error) {
	var out Order
	err := oc.c.doJSON(ctx, "place_order", http.MethodPost, "/api/v1/instamart-order/create", nil, req, &out)
	return out, err
}

func (oc *OrderClient) UpdateOrderStatus(ctx context.Context, orderID int64, req OrderStatusUpdate) error {
	return oc.c.doJSON(ctx, "update_order_status", http.MethodPatch,
		"/api/v1/instamart-order/"+strconv.FormatInt(orderID, 10), nil, req, nil)
}

func (oc *OrderClient) GetOrder(ctx context.Context, orderID, userID int64) (Order, error) {
	var out Order
	err := oc.c.doJSON(ctx, "get_order", http.MethodGet,
		"/api/v1/instamart-order/"+strconv.FormatInt(orderID, 10)+"/"+strconv.FormatInt(userID, 10), nil, nil, &out)
	return out, err
}

// ListOrders returns the caller's orders; the gateway scopes the list by token.
func (oc *OrderClient) ListOrders(ctx context.Context) ([]Order, error) {
	var out []Order
	err := oc.c.doJSON(ctx, "list_orders", http.MethodGet, "/api/v1/instamart-order/", nil, nil, &out)
	return out, err
}
