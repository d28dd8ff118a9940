// Package shop holds the shopper's single cart and the checkout in progress.
package shop

import (
	"io"
	"log/slog"
	"sync"

	"github.com/andreasstove999/ecommerce-system/shop-client-go/internal/cart"
	"github.com/andreasstove999/ecommerce-system/shop-client-go/internal/checkout"
)

// CheckoutFactory builds a fresh orchestrator in the Reviewing step.
type CheckoutFactory func() *checkout.Orchestrator

type Session struct {
	Cart *cart.Aggregate

	newCheckout CheckoutFactory
	logger      *slog.Logger

	mu       sync.Mutex
	checkout *checkout.Orchestrator
	closed   bool
}

func NewSession(c *cart.Aggregate, newCheckout CheckoutFactory, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Session{Cart: c, newCheckout: newCheckout, logger: logger}
}

// Checkout returns the current orchestrator, starting one if none exists.
func (s *Session) Checkout() *checkout.Orchestrator {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.checkout == nil {
		s.checkout = s.newCheckout()
	}
	return s.checkout
}

// RestartCheckout tears the current checkout down and starts a new one.
func (s *Session) RestartCheckout() *checkout.Orchestrator {
	s.mu.Lock()
	old := s.checkout
	s.checkout = s.newCheckout()
	next := s.checkout
	s.mu.Unlock()

	if old != nil {
		old.Teardown()
		s.logger.Info("checkout restarted", "previous_step", old.Step())
	}
	return next
}

// EndCheckout tears the current checkout down without starting another.
func (s *Session) EndCheckout() {
	s.mu.Lock()
	old := s.checkout
	s.checkout = nil
	s.mu.Unlock()

	if old != nil {
		old.Teardown()
	}
}

// Close tears down the checkout and waits for background cart adds.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	old := s.checkout
	s.checkout = nil
	s.mu.Unlock()

	if old != nil {
		old.Teardown()
	}
	s.Cart.Wait()
}
