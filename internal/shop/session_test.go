package shop

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andreasstove999/ecommerce-system/shop-client-go/internal/cart"
	"github.com/andreasstove999/ecommerce-system/shop-client-go/internal/checkout"
	"github.com/andreasstove999/ecommerce-system/shop-client-go/internal/clients"
	"github.com/andreasstove999/ecommerce-system/shop-client-go/internal/tracking"
)

type cartGateway struct {
	adds    atomic.Int32
	release chan struct{}
}

func (g *cartGateway) GetCart(context.Context, int64) (clients.CartResponse, error) {
	return clients.CartResponse{Items: []clients.CartItem{{
		CartID: 11, ProductID: 5, Quantity: 1,
		Product:    clients.CartProduct{Name: "Rice", Price: decimal.NewFromInt(120), DiscountPrice: decimal.NewFromInt(100)},
		TotalPrice: decimal.NewFromInt(100),
	}}, TotalPayment: decimal.NewFromInt(100)}, nil
}

func (g *cartGateway) AddItem(context.Context, clients.AddCartItemRequest) (clients.CartItem, error) {
	if g.release != nil {
		<-g.release
	}
	g.adds.Add(1)
	return clients.CartItem{CartID: 12, ProductID: 6, Quantity: 1}, nil
}

func (g *cartGateway) UpdateItem(context.Context, int64, int) (clients.CartItem, error) {
	return clients.CartItem{}, nil
}

func (g *cartGateway) RemoveItem(context.Context, int64) error { return nil }

func (g *cartGateway) RemoveAll(context.Context, int64) error { return nil }

type user struct{}

func (user) UserID(context.Context) (int64, error) { return 42, nil }

type addresses struct{}

func (addresses) ListByUser(context.Context, int64) ([]clients.Address, error) {
	return []clients.Address{{AddressID: 7, UserID: 42}}, nil
}

type orders struct{}

func (orders) PlaceOrder(context.Context, clients.PlaceOrderRequest) (clients.Order, error) {
	return clients.Order{OrderID: 55}, nil
}

type updater struct{ calls atomic.Int32 }

func (u *updater) UpdateOrderStatus(context.Context, int64, clients.OrderStatusUpdate) error {
	u.calls.Add(1)
	return nil
}

func newTestSession(t *testing.T, gw *cartGateway) (*Session, *updater) {
	t.Helper()
	agg := cart.New(gw)
	require.NoError(t, agg.Load(context.Background(), 42))

	upd := &updater{}
	// a tick no test will wait out
	timer := tracking.New(upd, tracking.WithTick(time.Hour), tracking.WithDuration(time.Hour))
	s := NewSession(agg, func() *checkout.Orchestrator {
		return checkout.New(user{}, agg, addresses{}, orders{}, timer)
	}, nil)
	t.Cleanup(s.Close)
	return s, upd
}

func placeOrder(t *testing.T, o *checkout.Orchestrator) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, o.OpenAddressPicker(ctx))
	require.NoError(t, o.SelectAddress(7))
	require.NoError(t, o.SelectPayment(checkout.PaymentCashOnDelivery, ""))
	require.NoError(t, o.Confirm(ctx))
	require.Equal(t, checkout.StepTracking, o.Step())
}

func TestSession_CheckoutIsLazyAndStable(t *testing.T) {
	s, _ := newTestSession(t, &cartGateway{})

	first := s.Checkout()
	require.NotNil(t, first)
	assert.Same(t, first, s.Checkout())
	assert.Equal(t, checkout.StepReviewing, first.Step())
}

func TestSession_RestartTearsDownTracking(t *testing.T) {
	s, upd := newTestSession(t, &cartGateway{})

	old := s.Checkout()
	placeOrder(t, old)
	tr := old.Tracker()
	require.NotNil(t, tr)

	next := s.RestartCheckout()
	assert.NotSame(t, old, next)
	assert.Equal(t, checkout.StepReviewing, next.Step())

	select {
	case <-tr.Done():
	default:
		t.Fatal("old tracker still running after restart")
	}
	assert.Equal(t, tracking.StatusCancelled, tr.View().Status)
	assert.Zero(t, upd.calls.Load())
}

func TestSession_EndCheckout(t *testing.T) {
	s, _ := newTestSession(t, &cartGateway{})
	old := s.Checkout()
	placeOrder(t, old)

	s.EndCheckout()
	<-old.Tracker().Done()
	assert.NotSame(t, old, s.Checkout())
}

func TestSession_CloseWaitsForBackgroundAdds(t *testing.T) {
	gw := &cartGateway{release: make(chan struct{})}
	s, _ := newTestSession(t, gw)

	require.NoError(t, s.Cart.AddOrIncrement(context.Background(), 42, cart.Product{
		ProductID: 6,
		Snapshot:  cart.ProductSnapshot{Name: "Dal", DiscountPrice: decimal.NewFromInt(50)},
	}))
	assert.True(t, s.Cart.Snapshot().Total.Equal(decimal.NewFromInt(150)))

	closed := make(chan struct{})
	go func() {
		s.Close()
		close(closed)
	}()

	select {
	case <-closed:
		t.Fatal("Close returned before the background add settled")
	case <-time.After(50 * time.Millisecond):
	}

	close(gw.release)
	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		t.Fatal("Close did not return")
	}
	assert.Equal(t, int32(1), gw.adds.Load())

	// idempotent
	s.Close()
}
