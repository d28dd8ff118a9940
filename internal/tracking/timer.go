package tracking

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/andreasstove999/ecommerce-system/shop-client-go/internal/clients"
	"github.com/andreasstove999/ecommerce-system/shop-client-go/internal/metrics"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusCompleting Status = "completing"
	StatusDelivered  Status = "delivered"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
)

func (s Status) IsTerminal() bool {
	return s == StatusDelivered || s == StatusFailed || s == StatusCancelled
}

// StatusUpdater is the order endpoint the timer reports completion to.
type StatusUpdater interface {
	UpdateOrderStatus(ctx context.Context, orderID int64, req clients.OrderStatusUpdate) error
}

// Request describes the placed order a tracker follows.
type Request struct {
	OrderID       int64
	UserID        int64
	TotalPrice    decimal.Decimal
	AddressID     int64
	PaymentMethod string
}

type Result struct {
	OrderID int64
	Status  Status
	Err     error
}

// TickerFunc returns a tick channel and a stop function.
type TickerFunc func(d time.Duration) (<-chan time.Time, func())

func realTicker(d time.Duration) (<-chan time.Time, func()) {
	t := time.NewTicker(d)
	return t.C, t.Stop
}

// Timer starts trackers. It holds configuration only.
type Timer struct {
	updater   StatusUpdater
	duration  time.Duration
	tick      time.Duration
	newTicker TickerFunc
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

type Option func(*Timer)

func WithDuration(d time.Duration) Option { return func(t *Timer) { t.duration = d } }

func WithTick(d time.Duration) Option { return func(t *Timer) { t.tick = d } }

func WithTicker(f TickerFunc) Option { return func(t *Timer) { t.newTicker = f } }

func WithLogger(l *slog.Logger) Option { return func(t *Timer) { t.logger = l } }

func WithMetrics(m *metrics.Metrics) Option { return func(t *Timer) { t.metrics = m } }

const DefaultDuration = 1200 * time.Second

func New(updater StatusUpdater, opts ...Option) *Timer {
	t := &Timer{
		updater:   updater,
		duration:  DefaultDuration,
		tick:      time.Second,
		newTicker: realTicker,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Start begins the countdown for one placed order. The tracker keeps the
// caller's context values but not its cancellation; Stop ends it.
// onFinish, when set, is called once with the delivered or failed outcome,
// after Done is closed. It is not called when the tracker is stopped.
func (t *Timer) Start(ctx context.Context, req Request, onFinish func(Result)) *Tracker {
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	ticks := int(t.duration / t.tick)
	if ticks < 1 {
		ticks = 1
	}

	tr := &Tracker{
		req:       req,
		tick:      t.tick,
		remaining: ticks,
		status:    StatusPending,
		cancel:    cancel,
		done:      make(chan struct{}),
	}
	go func() {
		res, finished := tr.run(runCtx, t)
		close(tr.done)
		// after done, so onFinish may call Stop
		if finished && onFinish != nil {
			onFinish(res)
		}
	}()
	return tr
}

// Tracker is a running countdown bound to one tracking view.
type Tracker struct {
	req  Request
	tick time.Duration

	mu        sync.Mutex
	remaining int
	status    Status
	err       error

	cancel   context.CancelFunc
	done     chan struct{}
	stopOnce sync.Once
}

type View struct {
	OrderID          int64   `json:"order_id"`
	Status           Status  `json:"status"`
	RemainingTicks   int     `json:"remaining_ticks"`
	RemainingSeconds float64 `json:"remaining_seconds"`
	Error            string  `json:"error,omitempty"`
}

func (tr *Tracker) View() View {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	v := View{
		OrderID:          tr.req.OrderID,
		Status:           tr.status,
		RemainingTicks:   tr.remaining,
		RemainingSeconds: (time.Duration(tr.remaining) * tr.tick).Seconds(),
	}
	if tr.err != nil {
		v.Error = tr.err.Error()
	}
	return v
}

func (tr *Tracker) Request() Request { return tr.req }

// Done is closed once the tracker goroutine has exited.
func (tr *Tracker) Done() <-chan struct{} { return tr.done }

// Stop cancels the countdown and any in-flight completion call, then waits for
// the goroutine to exit. Safe to call more than once and after completion.
func (tr *Tracker) Stop() {
	tr.stopOnce.Do(tr.cancel)
	<-tr.done
}

func (tr *Tracker) run(ctx context.Context, t *Timer) (Result, bool) {
	defer tr.cancel()

	ticks, stop := t.newTicker(tr.tick)
	defer stop()

countdown:
	for {
		select {
		case <-ctx.Done():
			tr.setStatus(StatusCancelled, nil)
			return Result{}, false
		case <-ticks:
			if tr.decrement() == 0 {
				break countdown
			}
		}
	}

	// One attempt, no retry
	tr.setStatus(StatusCompleting, nil)
	err := t.updater.UpdateOrderStatus(ctx, tr.req.OrderID, clients.OrderStatusUpdate{
		UserID:      tr.req.UserID,
		OrderStatus: clients.OrderCompleted,
	})
	if ctx.Err() != nil {
		tr.setStatus(StatusCancelled, nil)
		return Result{}, false
	}

	res := Result{OrderID: tr.req.OrderID, Status: StatusDelivered}
	if err != nil {
		res = Result{OrderID: tr.req.OrderID, Status: StatusFailed, Err: err}
		t.logger.Error("order completion update failed", "order_id", tr.req.OrderID, "err", err)
	} else {
		t.logger.Info("order delivered", "order_id", tr.req.OrderID)
	}
	tr.setStatus(res.Status, res.Err)
	t.metrics.TrackingOutcome(string(res.Status))
	return res, true
}

func (tr *Tracker) decrement() int {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	if tr.remaining > 0 {
		tr.remaining--
	}
	return tr.remaining
}

func (tr *Tracker) setStatus(s Status, err error) {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	tr.status = s
	tr.err = err
}
