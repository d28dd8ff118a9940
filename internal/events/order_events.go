package events

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	OrderPlacedEvent           = "order.placed"
	OrderDeliveredEvent        = "order.delivered"
	OrderCompletionFailedEvent = "order.completion_failed"
	eventVersion               = 1
)

type OrderLine struct {
	LineID    int64           `json:"lineId"`
	ProductID int64           `json:"productId"`
	Quantity  int             `json:"quantity"`
	LineTotal decimal.Decimal `json:"lineTotal"`
}

type OrderPlaced struct {
	OrderID       int64           `json:"orderId"`
	UserID        int64           `json:"userId"`
	TotalPrice    decimal.Decimal `json:"totalPrice"`
	AddressID     int64           `json:"addressId"`
	PaymentMethod string          `json:"paymentMethod"`
	Items         []OrderLine     `json:"items"`
}

type OrderDelivered struct {
	OrderID     int64     `json:"orderId"`
	UserID      int64     `json:"userId"`
	DeliveredAt time.Time `json:"deliveredAt"`
}

type OrderCompletionFailed struct {
	OrderID int64  `json:"orderId"`
	UserID  int64  `json:"userId"`
	Reason  string `json:"reason"`
}
