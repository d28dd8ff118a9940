package cart

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"github.com/andreasstove999/ecommerce-system/shop-client-go/internal/clients"
	"github.com/andreasstove999/ecommerce-system/shop-client-go/internal/metrics"
)

// Gateway is the remote cart store. The aggregate never assumes a call succeeded.
type Gateway interface {
	GetCart(ctx context.Context, userID int64) (clients.CartResponse, error)
	AddItem(ctx context.Context, req clients.AddCartItemRequest) (clients.CartItem, error)
	UpdateItem(ctx context.Context, cartID int64, quantity int) (clients.CartItem, error)
	RemoveItem(ctx context.Context, cartID int64) error
	RemoveAll(ctx context.Context, userID int64) error
}

// Aggregate is the local mirror of the shopper's remote cart.
//
// Total always equals the sum of line totals: every mutation applies its
// result and refolds the total under mu, so readers never see a half-applied
// change. Quantity changes on the same line are serialized.
type Aggregate struct {
	gateway   Gateway
	mode      AddMode
	bgTimeout time.Duration
	logger    *slog.Logger
	metrics   *metrics.Metrics

	mu          sync.Mutex
	userID      int64
	loaded      bool
	items       []Line
	total       decimal.Decimal
	pendingAdds map[int64]*pendingAdd
	// idle is closed whenever pendingAdds is empty
	idle chan struct{}

	lines keyedMutex
	sfg   singleflight.Group
	bg    sync.WaitGroup
}

type Option func(*Aggregate)

func WithAddMode(m AddMode) Option {
	return func(a *Aggregate) { a.mode = m }
}

func WithLogger(l *slog.Logger) Option {
	return func(a *Aggregate) { a.logger = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(a *Aggregate) { a.metrics = m }
}

// WithBackgroundTimeout bounds gateway calls that outlive the request:
// optimistic adds and shared loads. Zero or less means no deadline.
func WithBackgroundTimeout(d time.Duration) Option {
	return func(a *Aggregate) { a.bgTimeout = d }
}

func New(gateway Gateway, opts ...Option) *Aggregate {
	a := &Aggregate{
		gateway:     gateway,
		mode:        AddOptimistic,
		bgTimeout:   30 * time.Second,
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		total:       decimal.Zero,
		pendingAdds: make(map[int64]*pendingAdd),
		idle:        make(chan struct{}),
		lines:       keyedMutex{locks: make(map[int64]*lineLock)},
	}
	close(a.idle)
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Aggregate) Mode() AddMode { return a.mode }

// Load replaces local state wholesale with the remote cart. On failure the
// previous state is kept.
func (a *Aggregate) Load(ctx context.Context, userID int64) error {
	// Collapse concurrent refreshes for the same shopper into one call. The
	// shared call is detached so one caller giving up does not fail the rest.
	ch := a.sfg.DoChan(strconv.FormatInt(userID, 10), func() (any, error) {
		callCtx, cancel := a.detach(ctx)
		defer cancel()
		return a.gateway.GetCart(callCtx, userID)
	})

	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		a.metrics.CartMutation("load", "error")
		return fmt.Errorf("load cart: %w", ctx.Err())
	}
	if res.Err != nil {
		a.metrics.CartMutation("load", "error")
		return fmt.Errorf("load cart: %w", res.Err)
	}
	resp := res.Val.(clients.CartResponse)

	items := make([]Line, 0, len(resp.Items))
	for _, it := range resp.Items {
		items = append(items, fromWire(it))
	}

	a.mu.Lock()
	a.userID = userID
	a.loaded = true
	a.items = items
	a.recomputeLocked()
	total := a.total
	a.mu.Unlock()

	if !total.Equal(resp.TotalPayment) {
		a.logger.Warn("cart total differs from gateway total, using sum of lines",
			"user_id", userID, "sum", total.String(), "gateway_total", resp.TotalPayment.String())
	}
	a.metrics.CartMutation("load", "ok")
	return nil
}

// ChangeQuantity moves a line by one unit. Dropping to zero removes the line.
// Local state changes only after the gateway confirms.
func (a *Aggregate) ChangeQuantity(ctx context.Context, lineID int64, delta int) error {
	if delta != 1 && delta != -1 {
		return ErrInvalidDelta
	}

	unlock := a.lines.lock(lineID)
	defer unlock()

	a.mu.Lock()
	idx := a.indexOfLineLocked(lineID)
	if idx < 0 {
		a.mu.Unlock()
		a.logger.Warn("quantity change for unknown cart line ignored", "line_id", lineID)
		return nil
	}
	next := a.items[idx].Quantity + delta
	a.mu.Unlock()

	if next <= 0 {
		if err := a.gateway.RemoveItem(ctx, lineID); err != nil {
			a.metrics.CartMutation("remove", "error")
			return fmt.Errorf("remove line %d: %w", lineID, err)
		}

		a.mu.Lock()
		if idx := a.indexOfLineLocked(lineID); idx >= 0 {
			a.items = append(a.items[:idx:idx], a.items[idx+1:]...)
		}
		a.recomputeLocked()
		a.mu.Unlock()

		a.metrics.CartMutation("remove", "ok")
		return nil
	}

	updated, err := a.gateway.UpdateItem(ctx, lineID, next)
	if err != nil {
		a.metrics.CartMutation("update", "error")
		return fmt.Errorf("update line %d: %w", lineID, err)
	}

	a.mu.Lock()
	// A concurrent Load or Clear may have dropped the line meanwhile
	if idx := a.indexOfLineLocked(lineID); idx >= 0 {
		l := &a.items[idx]
		l.Quantity = next
		if updated.Quantity > 0 {
			l.Quantity = updated.Quantity
		}
		l.LineTotal = updated.TotalPrice
		if updated.TotalPrice.IsZero() {
			l.LineTotal = lineTotal(l.Product.DiscountPrice, l.Quantity)
		}
	}
	a.recomputeLocked()
	a.mu.Unlock()

	a.metrics.CartMutation("update", "ok")
	return nil
}

// AddOrIncrement adds one unit of a product, creating the line when needed.
// In AddOptimistic mode the local increment is immediate and the error is
// only ever non-nil for invalid input.
func (a *Aggregate) AddOrIncrement(ctx context.Context, userID int64, p Product) error {
	if p.ProductID <= 0 {
		return ErrInvalidProduct
	}

	req := clients.AddCartItemRequest{
		UserID:    userID,
		ProductID: p.ProductID,
		ImageURL:  p.ImageRef,
		Quantity:  1,
		Price:     json.Number(p.Snapshot.DiscountPrice.String()),
	}

	if a.mode == AddConfirmed {
		return a.addConfirmed(ctx, p, req)
	}
	a.addOptimistic(ctx, p, req)
	return nil
}

func (a *Aggregate) addConfirmed(ctx context.Context, p Product, req clients.AddCartItemRequest) error {
	a.mu.Lock()
	var lineID int64
	if idx := a.indexOfProductLocked(p.ProductID); idx >= 0 {
		lineID = a.items[idx].LineID
	}
	a.mu.Unlock()

	// an existing line is serialized with quantity changes on it
	if lineID != 0 {
		unlock := a.lines.lock(lineID)
		defer unlock()
	}

	item, err := a.gateway.AddItem(ctx, req)
	if err != nil {
		a.metrics.CartMutation("add", "error")
		return fmt.Errorf("add product %d: %w", p.ProductID, err)
	}

	a.mu.Lock()
	idx := a.indexOfProductLocked(p.ProductID)
	if idx < 0 {
		a.items = append(a.items, Line{
			ProductID: p.ProductID,
			Product:   p.Snapshot,
			ImageRef:  p.ImageRef,
		})
		idx = len(a.items) - 1
	}
	l := &a.items[idx]
	if item.CartID != 0 {
		l.LineID = item.CartID
	}
	l.Quantity++
	a.adoptLocked(l, item)
	a.recomputeLocked()
	a.mu.Unlock()

	a.metrics.CartMutation("add", "ok")
	return nil
}

func (a *Aggregate) addOptimistic(ctx context.Context, p Product, req clients.AddCartItemRequest) {
	a.mu.Lock()
	if idx := a.indexOfProductLocked(p.ProductID); idx >= 0 {
		l := &a.items[idx]
		l.Quantity++
		l.LineTotal = lineTotal(l.Product.DiscountPrice, l.Quantity)
	} else {
		a.items = append(a.items, Line{
			ProductID: p.ProductID,
			Product:   p.Snapshot,
			ImageRef:  p.ImageRef,
			Quantity:  1,
			LineTotal: p.Snapshot.DiscountPrice,
		})
	}
	a.recomputeLocked()
	if len(a.pendingAdds) == 0 {
		a.idle = make(chan struct{})
	}
	pending, ok := a.pendingAdds[p.ProductID]
	if !ok {
		pending = &pendingAdd{}
		a.pendingAdds[p.ProductID] = pending
	}
	pending.inFlight++
	pending.started++
	a.mu.Unlock()

	// Detached from the caller: the request may finish before the gateway does
	bgCtx, cancel := a.detach(ctx)
	a.bg.Add(1)
	go func() {
		defer a.bg.Done()
		defer cancel()

		item, err := a.gateway.AddItem(bgCtx, req)

		a.mu.Lock()
		defer a.mu.Unlock()

		pending.inFlight--
		// Only a lone add may overwrite the local count: responses to rapid
		// taps can arrive out of order.
		adopt := pending.inFlight == 0 && pending.started == 1
		if pending.inFlight == 0 {
			delete(a.pendingAdds, p.ProductID)
			if len(a.pendingAdds) == 0 {
				close(a.idle)
			}
		}

		if err != nil {
			a.metrics.CartMutation("add", "error")
			a.logger.Error("background add to cart failed",
				"product_id", p.ProductID, "user_id", req.UserID, "err", err)
			return
		}
		a.metrics.CartMutation("add", "ok")

		idx := a.indexOfProductLocked(p.ProductID)
		if idx < 0 {
			// cleared or reloaded meanwhile; the next Load picks the line up
			return
		}
		l := &a.items[idx]
		if item.CartID != 0 {
			l.LineID = item.CartID
		}
		if adopt {
			a.adoptLocked(l, item)
			a.recomputeLocked()
		}
	}()
}

// adoptLocked applies the server's view of a line after a successful add.
func (a *Aggregate) adoptLocked(l *Line, item clients.CartItem) {
	if item.Quantity > 0 {
		l.Quantity = item.Quantity
	}
	if !item.TotalPrice.IsZero() {
		l.LineTotal = item.TotalPrice
		return
	}
	l.LineTotal = lineTotal(l.Product.DiscountPrice, l.Quantity)
}

// Clear empties the cart once the gateway confirms.
func (a *Aggregate) Clear(ctx context.Context, userID int64) error {
	if err := a.gateway.RemoveAll(ctx, userID); err != nil {
		a.metrics.CartMutation("clear", "error")
		return fmt.Errorf("clear cart: %w", err)
	}

	a.mu.Lock()
	a.items = nil
	a.recomputeLocked()
	a.mu.Unlock()

	a.metrics.CartMutation("clear", "ok")
	return nil
}

// Wait blocks until background adds have settled. Only for shutdown and
// tests: it must not race with new adds.
func (a *Aggregate) Wait() {
	a.bg.Wait()
}

// Settle waits until no optimistic add is in flight, so the next snapshot
// only holds lines the gateway has answered for.
func (a *Aggregate) Settle(ctx context.Context) error {
	for {
		a.mu.Lock()
		busy := len(a.pendingAdds) > 0
		idle := a.idle
		a.mu.Unlock()
		if !busy {
			return nil
		}
		select {
		case <-idle:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (a *Aggregate) detach(ctx context.Context) (context.Context, context.CancelFunc) {
	base := context.WithoutCancel(ctx)
	if a.bgTimeout <= 0 {
		return context.WithCancel(base)
	}
	return context.WithTimeout(base, a.bgTimeout)
}

func (a *Aggregate) Snapshot() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()

	items := make([]Line, len(a.items))
	copy(items, a.items)
	return Snapshot{
		UserID: a.userID,
		Loaded: a.loaded,
		Items:  items,
		Total:  a.total,
	}
}

func (a *Aggregate) recomputeLocked() {
	a.total = sumLines(a.items)
}

func (a *Aggregate) indexOfLineLocked(lineID int64) int {
	if lineID == 0 {
		return -1
	}
	for i := range a.items {
		if a.items[i].LineID == lineID {
			return i
		}
	}
	return -1
}

func (a *Aggregate) indexOfProductLocked(productID int64) int {
	for i := range a.items {
		if a.items[i].ProductID == productID {
			return i
		}
	}
	return -1
}

type pendingAdd struct {
	inFlight int
	started  int
}

// keyedMutex hands out one mutex per line id. Entries live only while some
// caller holds or waits for them.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[int64]*lineLock
}

type lineLock struct {
	mu   sync.Mutex
	refs int
}

func (k *keyedMutex) lock(id int64) func() {
	k.mu.Lock()
	l, ok := k.locks[id]
	if !ok {
		l = &lineLock{}
		k.locks[id] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()

		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, id)
		}
		k.mu.Unlock()
	}
}

func (k *keyedMutex) len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}
