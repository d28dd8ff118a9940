package cart

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/andreasstove999/ecommerce-system/shop-client-go/internal/clients"
)

var (
	ErrInvalidDelta   = errors.New("cart: quantity delta must be +1 or -1")
	ErrInvalidProduct = errors.New("cart: product id is required")
)

type AddMode string

const (
	// AddOptimistic shows the increment immediately and syncs in the background.
	AddOptimistic AddMode = "optimistic"
	// AddConfirmed waits for the gateway before touching local state.
	AddConfirmed AddMode = "confirmed"
)

func ParseAddMode(s string) (AddMode, error) {
	switch AddMode(s) {
	case AddOptimistic, AddConfirmed:
		return AddMode(s), nil
	default:
		return "", fmt.Errorf("cart: unknown add mode %q", s)
	}
}

type ProductSnapshot struct {
	Name          string          `json:"name"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	DiscountPrice decimal.Decimal `json:"discount_price"`
}

// Product is what the catalog screens hand to AddOrIncrement.
type Product struct {
	ProductID int64           `json:"product_id"`
	Snapshot  ProductSnapshot `json:"product"`
	ImageRef  string          `json:"image_ref"`
}

type Line struct {
	// LineID is 0 while an optimistic add for a new product is in flight.
	LineID    int64           `json:"line_id"`
	ProductID int64           `json:"product_id"`
	Product   ProductSnapshot `json:"product"`
	ImageRef  string          `json:"image_ref"`
	Quantity  int             `json:"quantity"`
	LineTotal decimal.Decimal `json:"line_total"`
}

type Snapshot struct {
	UserID int64           `json:"user_id"`
	Loaded bool            `json:"loaded"`
	Items  []Line          `json:"items"`
	Total  decimal.Decimal `json:"total"`
}

// FirstLine is the line legacy order payloads report as cart_id/quantity.
func (s Snapshot) FirstLine() (Line, bool) {
	if len(s.Items) == 0 {
		return Line{}, false
	}
	return s.Items[0], true
}

func (s Snapshot) ItemCount() int {
	n := 0
	for _, l := range s.Items {
		n += l.Quantity
	}
	return n
}

// Savings is what the shopper saves against list price.
func (s Snapshot) Savings() decimal.Decimal {
	saved := decimal.Zero
	for _, l := range s.Items {
		diff := l.Product.UnitPrice.Sub(l.Product.DiscountPrice)
		saved = saved.Add(diff.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	return saved
}

func lineTotal(discount decimal.Decimal, quantity int) decimal.Decimal {
	return discount.Mul(decimal.NewFromInt(int64(quantity)))
}

func sumLines(items []Line) decimal.Decimal {
	total := decimal.Zero
	for _, l := range items {
		total = total.Add(l.LineTotal)
	}
	return total
}

func fromWire(it clients.CartItem) Line {
	l := Line{
		LineID:    it.CartID,
		ProductID: it.ProductID,
		Product: ProductSnapshot{
			Name:          it.Product.Name,
			UnitPrice:     it.Product.Price,
			DiscountPrice: it.Product.DiscountPrice,
		},
		ImageRef:  it.ImageURL,
		Quantity:  it.Quantity,
		LineTotal: it.TotalPrice,
	}
	if l.LineTotal.IsZero() {
		l.LineTotal = lineTotal(l.Product.DiscountPrice, l.Quantity)
	}
	return l
}
