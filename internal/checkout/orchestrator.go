package checkout

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/andreasstove999/ecommerce-system/shop-client-go/internal/cart"
	"github.com/andreasstove999/ecommerce-system/shop-client-go/internal/clients"
	"github.com/andreasstove999/ecommerce-system/shop-client-go/internal/events"
	"github.com/andreasstove999/ecommerce-system/shop-client-go/internal/metrics"
	"github.com/andreasstove999/ecommerce-system/shop-client-go/internal/tracking"
)

var tracer = otel.Tracer("shop-client/checkout")

type Identity interface {
	UserID(ctx context.Context) (int64, error)
}

// CartView is the read side of the cart. Settle returns once no optimistic
// add is in flight.
type CartView interface {
	Snapshot() cart.Snapshot
	Settle(ctx context.Context) error
}

type AddressGateway interface {
	ListByUser(ctx context.Context, userID int64) ([]clients.Address, error)
}

type OrderPlacer interface {
	PlaceOrder(ctx context.Context, req clients.PlaceOrderRequest) (clients.Order, error)
}

type TrackingStarter interface {
	Start(ctx context.Context, req tracking.Request, onFinish func(tracking.Result)) *tracking.Tracker
}

type EventPublisher interface {
	PublishOrderPlaced(ctx context.Context, ev events.OrderPlaced) error
	PublishOrderDelivered(ctx context.Context, ev events.OrderDelivered) error
	PublishOrderCompletionFailed(ctx context.Context, ev events.OrderCompletionFailed) error
}

type PlacedOrder struct {
	OrderID       int64           `json:"order_id"`
	TotalPrice    decimal.Decimal `json:"total_price"`
	AddressID     int64           `json:"address_id"`
	PaymentMethod PaymentMethod   `json:"payment_method"`
}

// Orchestrator drives one checkout from review to delivery.
//
// mu guards the step and selections only; it is never held across a gateway
// call. The Placing step itself rejects a concurrent Confirm.
type Orchestrator struct {
	identity  Identity
	cart      CartView
	addresses AddressGateway
	orders    OrderPlacer
	timer     TrackingStarter
	publisher EventPublisher
	report    LineReport
	logger    *slog.Logger
	metrics   *metrics.Metrics

	mu          sync.Mutex
	step        Step
	pickerFrom  Step
	addressList []clients.Address
	addressID   int64
	payment     *PaymentSelection
	order       *PlacedOrder
	tracker     *tracking.Tracker
	lastErr     error
	tornDown    bool
	eventsCtx   context.Context
}

type Option func(*Orchestrator)

func WithLineReport(r LineReport) Option { return func(o *Orchestrator) { o.report = r } }

func WithPublisher(p EventPublisher) Option { return func(o *Orchestrator) { o.publisher = p } }

func WithLogger(l *slog.Logger) Option { return func(o *Orchestrator) { o.logger = l } }

func WithMetrics(m *metrics.Metrics) Option { return func(o *Orchestrator) { o.metrics = m } }

func New(identity Identity, c CartView, addresses AddressGateway, orders OrderPlacer, timer TrackingStarter, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		identity:  identity,
		cart:      c,
		addresses: addresses,
		orders:    orders,
		timer:     timer,
		publisher: events.Nop{},
		report:    ReportAllLines,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		step:      StepReviewing,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// OpenAddressPicker fetches the shopper's addresses and enters AddressPending.
// On failure the step is unchanged and the picker is empty.
func (o *Orchestrator) OpenAddressPicker(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "checkout.OpenAddressPicker")
	defer span.End()

	o.mu.Lock()
	if !o.step.CanTransitionTo(StepAddressPending) {
		err := o.illegalLocked(StepAddressPending)
		o.mu.Unlock()
		return err
	}
	o.mu.Unlock()

	list, err := o.fetchAddresses(ctx)

	o.mu.Lock()
	defer o.mu.Unlock()

	if err != nil {
		o.addressList = nil
		o.lastErr = err
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		o.logger.Warn("address fetch failed", "step", o.step, "err", err)
		return err
	}

	from := o.step
	if err := o.moveLocked(StepAddressPending); err != nil {
		return err
	}
	o.pickerFrom = from
	o.addressList = list
	o.lastErr = nil
	span.SetAttributes(attribute.Int("checkout.address_count", len(list)))
	return nil
}

func (o *Orchestrator) fetchAddresses(ctx context.Context) ([]clients.Address, error) {
	userID, err := o.identity.UserID(ctx)
	if err != nil {
		return nil, err
	}
	list, err := o.addresses.ListByUser(ctx, userID)
	if err != nil {
		return nil, &AddressFetchError{Err: err}
	}
	return list, nil
}

// CancelAddressPicker closes the picker and returns to the step it was opened from.
func (o *Orchestrator) CancelAddressPicker() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.step != StepAddressPending {
		return fmt.Errorf("%w: address picker is not open", ErrIllegalTransition)
	}
	return o.moveLocked(o.pickerFrom)
}

func (o *Orchestrator) SelectAddress(addressID int64) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.step != StepAddressPending {
		return o.illegalLocked(StepAddressSelected)
	}
	if !o.hasAddressLocked(addressID) {
		return ErrUnknownAddress
	}

	next := StepAddressSelected
	if o.payment != nil {
		next = StepPaymentPending
	}
	if err := o.moveLocked(next); err != nil {
		return err
	}
	o.addressID = addressID
	o.lastErr = nil
	return nil
}

// SelectPayment picks a payment option. Picking the selected method again
// clears it.
func (o *Orchestrator) SelectPayment(method PaymentMethod, provider string) error {
	if !method.Valid() {
		return ErrInvalidPayment
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.step != StepAddressSelected && o.step != StepPaymentPending {
		if o.addressID == 0 {
			return ErrAddressRequired
		}
		return o.illegalLocked(StepPaymentPending)
	}

	if o.payment != nil && o.payment.Method == method {
		if err := o.moveLocked(StepAddressSelected); err != nil {
			return err
		}
		o.payment = nil
		return nil
	}

	if o.step != StepPaymentPending {
		if err := o.moveLocked(StepPaymentPending); err != nil {
			return err
		}
	}
	if method == PaymentCashOnDelivery {
		provider = ""
	}
	o.payment = &PaymentSelection{Method: method, Provider: provider}
	return nil
}

// Confirm places the order and starts tracking it. Validation failures leave
// the step unchanged and issue no gateway call.
func (o *Orchestrator) Confirm(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "checkout.Confirm")
	defer span.End()

	o.mu.Lock()
	err := o.validateLocked()
	o.mu.Unlock()
	if err != nil {
		return err
	}

	// The order names server line ids, so optimistic adds must land first
	if err := o.cart.Settle(ctx); err != nil {
		return fmt.Errorf("wait for cart: %w", err)
	}

	o.mu.Lock()
	if err := o.validateLocked(); err != nil {
		o.mu.Unlock()
		return err
	}
	snap := o.cart.Snapshot()
	if len(snap.Items) == 0 {
		o.mu.Unlock()
		return ErrEmptyCart
	}
	if !allLinesSaved(snap) {
		o.mu.Unlock()
		return ErrCartNotSynced
	}
	if err := o.moveLocked(StepPlacing); err != nil {
		o.mu.Unlock()
		return err
	}
	addressID := o.addressID
	payment := *o.payment
	o.lastErr = nil
	o.mu.Unlock()

	span.SetAttributes(
		attribute.Int64("checkout.address_id", addressID),
		attribute.String("checkout.payment_method", string(payment.Method)),
		attribute.String("checkout.total", snap.Total.String()),
	)

	order, userID, err := o.place(ctx, snap, addressID, payment)
	if err != nil {
		o.mu.Lock()
		_ = o.moveLocked(StepPaymentPending)
		o.lastErr = err
		o.mu.Unlock()

		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		o.logger.Error("order placement failed", "address_id", addressID, "err", err)
		return err
	}
	span.SetAttributes(attribute.Int64("checkout.order_id", order.OrderID))

	placed := PlacedOrder{
		OrderID:       order.OrderID,
		TotalPrice:    snap.Total,
		AddressID:     addressID,
		PaymentMethod: payment.Method,
	}

	o.mu.Lock()
	_ = o.moveLocked(StepPlaced)
	o.order = &placed
	tornDown := o.tornDown
	if !tornDown {
		o.eventsCtx = context.WithoutCancel(ctx)
		o.tracker = o.timer.Start(ctx, tracking.Request{
			OrderID:       placed.OrderID,
			UserID:        userID,
			TotalPrice:    placed.TotalPrice,
			AddressID:     addressID,
			PaymentMethod: string(payment.Method),
		}, o.trackingFinished(userID))
		_ = o.moveLocked(StepTracking)
	}
	o.mu.Unlock()

	o.logger.Info("order placed", "order_id", placed.OrderID, "user_id", userID,
		"total", placed.TotalPrice.String(), "tracking", !tornDown)

	if err := o.publisher.PublishOrderPlaced(ctx, orderPlacedEvent(placed, userID, snap)); err != nil {
		o.logger.Warn("publish order placed failed", "order_id", placed.OrderID, "err", err)
	}
	return nil
}

func (o *Orchestrator) validateLocked() error {
	switch o.step {
	case StepPlacing, StepPlaced, StepTracking, StepDelivered:
		return o.illegalLocked(StepPlacing)
	}
	if o.addressID == 0 {
		return ErrAddressRequired
	}
	if o.payment == nil {
		return ErrPaymentRequired
	}
	if o.step != StepPaymentPending {
		return o.illegalLocked(StepPlacing)
	}
	return nil
}

func (o *Orchestrator) place(ctx context.Context, snap cart.Snapshot, addressID int64, payment PaymentSelection) (clients.Order, int64, error) {
	userID, err := o.identity.UserID(ctx)
	if err != nil {
		return clients.Order{}, 0, err
	}

	order, err := o.orders.PlaceOrder(ctx, o.buildRequest(userID, snap, addressID, payment))
	if err != nil {
		return clients.Order{}, 0, newOrderPlacementError(err)
	}
	if order.OrderID == 0 {
		return clients.Order{}, 0, &OrderPlacementError{Message: ErrNoOrderID.Error(), Err: ErrNoOrderID}
	}
	return order, userID, nil
}

// allLinesSaved reports whether every line carries the gateway's line id.
// A line without one comes from an optimistic add the gateway never confirmed.
func allLinesSaved(snap cart.Snapshot) bool {
	for _, l := range snap.Items {
		if l.LineID == 0 {
			return false
		}
	}
	return true
}

func (o *Orchestrator) buildRequest(userID int64, snap cart.Snapshot, addressID int64, payment PaymentSelection) clients.PlaceOrderRequest {
	req := clients.PlaceOrderRequest{
		UserID:        userID,
		TotalPrice:    json.Number(snap.Total.String()),
		Status:        clients.OrderPending,
		AddressID:     addressID,
		PaymentMethod: string(payment.Method),
	}
	if first, ok := snap.FirstLine(); ok {
		req.CartID = first.LineID
		req.Quantity = first.Quantity
	}
	if o.report == ReportAllLines {
		req.Items = make([]clients.OrderLine, 0, len(snap.Items))
		for _, l := range snap.Items {
			req.Items = append(req.Items, clients.OrderLine{
				CartID:     l.LineID,
				ProductID:  l.ProductID,
				Quantity:   l.Quantity,
				TotalPrice: json.Number(l.LineTotal.String()),
			})
		}
	}
	return req
}

func (o *Orchestrator) trackingFinished(userID int64) func(tracking.Result) {
	return func(res tracking.Result) {
		o.mu.Lock()
		ctx := o.eventsCtx
		if res.Status == tracking.StatusDelivered {
			_ = o.moveLocked(StepDelivered)
		} else {
			o.lastErr = res.Err
		}
		o.mu.Unlock()

		var err error
		if res.Status == tracking.StatusDelivered {
			err = o.publisher.PublishOrderDelivered(ctx, events.OrderDelivered{
				OrderID:     res.OrderID,
				UserID:      userID,
				DeliveredAt: time.Now().UTC(),
			})
		} else {
			reason := ""
			if res.Err != nil {
				reason = res.Err.Error()
			}
			err = o.publisher.PublishOrderCompletionFailed(ctx, events.OrderCompletionFailed{
				OrderID: res.OrderID,
				UserID:  userID,
				Reason:  reason,
			})
		}
		if err != nil {
			o.logger.Warn("publish tracking outcome failed", "order_id", res.OrderID, "status", res.Status, "err", err)
		}
	}
}

// Teardown stops the tracking timer whatever state it is in. A placement
// still in flight completes but starts no timer.
func (o *Orchestrator) Teardown() {
	o.mu.Lock()
	o.tornDown = true
	tr := o.tracker
	o.mu.Unlock()

	if tr != nil {
		tr.Stop()
	}
}

type View struct {
	Step              Step              `json:"step"`
	Addresses         []clients.Address `json:"addresses"`
	SelectedAddressID int64             `json:"selected_address_id,omitempty"`
	Payment           *PaymentSelection `json:"payment,omitempty"`
	Order             *PlacedOrder      `json:"order,omitempty"`
	Tracking          *tracking.View    `json:"tracking,omitempty"`
	Total             decimal.Decimal   `json:"total"`
	ItemCount         int               `json:"item_count"`
	Error             string            `json:"error,omitempty"`
}

func (o *Orchestrator) View() View {
	snap := o.cart.Snapshot()

	o.mu.Lock()
	defer o.mu.Unlock()

	v := View{
		Step:              o.step,
		Addresses:         append([]clients.Address(nil), o.addressList...),
		SelectedAddressID: o.addressID,
		Total:             snap.Total,
		ItemCount:         snap.ItemCount(),
	}
	if o.payment != nil {
		p := *o.payment
		v.Payment = &p
	}
	if o.order != nil {
		ord := *o.order
		v.Order = &ord
		v.Total = ord.TotalPrice
	}
	if o.tracker != nil {
		tv := o.tracker.View()
		v.Tracking = &tv
	}
	if o.lastErr != nil {
		v.Error = o.lastErr.Error()
	}
	return v
}

// Tracker is the running timer, nil before the order is placed.
func (o *Orchestrator) Tracker() *tracking.Tracker {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.tracker
}

func (o *Orchestrator) Step() Step {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.step
}

func (o *Orchestrator) moveLocked(to Step) error {
	from := o.step
	if !from.CanTransitionTo(to) {
		return o.illegalLocked(to)
	}
	o.step = to
	o.metrics.CheckoutTransition(string(from), string(to))
	o.logger.Debug("checkout step", "from", from, "to", to)
	return nil
}

func (o *Orchestrator) illegalLocked(to Step) error {
	return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, o.step, to)
}

func (o *Orchestrator) hasAddressLocked(id int64) bool {
	for _, a := range o.addressList {
		if a.AddressID == id {
			return true
		}
	}
	return false
}

func orderPlacedEvent(p PlacedOrder, userID int64, snap cart.Snapshot) events.OrderPlaced {
	ev := events.OrderPlaced{
		OrderID:       p.OrderID,
		UserID:        userID,
		TotalPrice:    p.TotalPrice,
		AddressID:     p.AddressID,
		PaymentMethod: string(p.PaymentMethod),
		Items:         make([]events.OrderLine, 0, len(snap.Items)),
	}
	for _, l := range snap.Items {
		ev.Items = append(ev.Items, events.OrderLine{
			LineID:    l.LineID,
			ProductID: l.ProductID,
			Quantity:  l.Quantity,
			LineTotal: l.LineTotal,
		})
	}
	return ev
}
