package cart

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/andreasstove999/ecommerce-system/shop-client-go/internal/clients"
)

var errGateway = &clients.GatewayError{Upstream: "gateway", Op: "test", StatusCode: 400, Message: "Product out of stock"}

// memGateway behaves like the remote cart store: it owns the authoritative
// lines and can be told to fail specific operations.
type memGateway struct {
	mu     sync.Mutex
	nextID int64
	lines  []clients.CartItem
	prices map[int64]clients.CartProduct
	calls  map[string]int

	// fail returns a non-nil error to make op fail without touching state
	fail func(op string) error
	// before runs ahead of every op, outside the lock
	before func(op string)
}

func newMemGateway() *memGateway {
	return &memGateway{
		nextID: 100,
		prices: make(map[int64]clients.CartProduct),
		calls:  make(map[string]int),
	}
}

func (g *memGateway) seed(productID int64, name string, price, discount int64, quantity int) int64 {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.nextID++
	p := clients.CartProduct{Name: name, Price: decimal.NewFromInt(price), DiscountPrice: decimal.NewFromInt(discount)}
	g.prices[productID] = p
	g.lines = append(g.lines, clients.CartItem{
		CartID:     g.nextID,
		ProductID:  productID,
		Product:    p,
		Quantity:   quantity,
		TotalPrice: p.DiscountPrice.Mul(decimal.NewFromInt(int64(quantity))),
	})
	return g.nextID
}

// enter counts the call and fails it like the HTTP client would when the
// call context is already done.
func (g *memGateway) enter(ctx context.Context, op string) error {
	if g.before != nil {
		g.before(op)
	}
	g.mu.Lock()
	g.calls[op]++
	fail := g.fail
	g.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %s: %w", clients.ErrUnavailable, op, err)
	}
	if fail != nil {
		return fail(op)
	}
	return nil
}

func (g *memGateway) callCount(op string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls[op]
}

func (g *memGateway) total() decimal.Decimal {
	total := decimal.Zero
	for _, l := range g.lines {
		total = total.Add(l.TotalPrice)
	}
	return total
}

func (g *memGateway) GetCart(ctx context.Context, _ int64) (clients.CartResponse, error) {
	if err := g.enter(ctx, "get"); err != nil {
		return clients.CartResponse{}, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	items := make([]clients.CartItem, len(g.lines))
	copy(items, g.lines)
	return clients.CartResponse{Items: items, TotalPayment: g.total()}, nil
}

func (g *memGateway) AddItem(ctx context.Context, req clients.AddCartItemRequest) (clients.CartItem, error) {
	if err := g.enter(ctx, "add"); err != nil {
		return clients.CartItem{}, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	for i := range g.lines {
		if g.lines[i].ProductID == req.ProductID {
			g.lines[i].Quantity += req.Quantity
			g.lines[i].TotalPrice = g.lines[i].Product.DiscountPrice.Mul(decimal.NewFromInt(int64(g.lines[i].Quantity)))
			return g.lines[i], nil
		}
	}

	price, err := decimal.NewFromString(req.Price.String())
	if err != nil {
		return clients.CartItem{}, errors.New("bad price")
	}
	p, ok := g.prices[req.ProductID]
	if !ok {
		p = clients.CartProduct{Name: "product", Price: price, DiscountPrice: price}
		g.prices[req.ProductID] = p
	}
	g.nextID++
	item := clients.CartItem{
		CartID:     g.nextID,
		ProductID:  req.ProductID,
		Product:    p,
		ImageURL:   req.ImageURL,
		Quantity:   req.Quantity,
		TotalPrice: p.DiscountPrice.Mul(decimal.NewFromInt(int64(req.Quantity))),
	}
	g.lines = append(g.lines, item)
	return item, nil
}

func (g *memGateway) UpdateItem(ctx context.Context, cartID int64, quantity int) (clients.CartItem, error) {
	if err := g.enter(ctx, "update"); err != nil {
		return clients.CartItem{}, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	for i := range g.lines {
		if g.lines[i].CartID == cartID {
			g.lines[i].Quantity = quantity
			g.lines[i].TotalPrice = g.lines[i].Product.DiscountPrice.Mul(decimal.NewFromInt(int64(quantity)))
			// the real gateway answers with a partial line
			return clients.CartItem{CartID: cartID, Quantity: quantity, TotalPrice: g.lines[i].TotalPrice}, nil
		}
	}
	return clients.CartItem{}, &clients.GatewayError{StatusCode: 404, Message: "cart item not found"}
}

func (g *memGateway) RemoveItem(ctx context.Context, cartID int64) error {
	if err := g.enter(ctx, "remove"); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	for i := range g.lines {
		if g.lines[i].CartID == cartID {
			g.lines = append(g.lines[:i], g.lines[i+1:]...)
			return nil
		}
	}
	return &clients.GatewayError{StatusCode: 404, Message: "cart item not found"}
}

func (g *memGateway) RemoveAll(ctx context.Context, _ int64) error {
	if err := g.enter(ctx, "remove_all"); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	g.lines = nil
	return nil
}
