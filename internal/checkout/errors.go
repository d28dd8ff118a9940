package checkout

import (
	"errors"
	"fmt"

	"github.com/andreasstove999/ecommerce-system/shop-client-go/internal/clients"
)

var ErrIllegalTransition = errors.New("checkout: illegal step transition")

// ErrNoOrderID means the gateway acknowledged a placement without naming the order.
var ErrNoOrderID = errors.New("gateway returned no order id")

// ValidationError blocks a transition without changing state.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

var (
	ErrAddressRequired = &ValidationError{Field: "address", Message: "address required"}
	ErrPaymentRequired = &ValidationError{Field: "payment", Message: "payment method required"}
	ErrEmptyCart       = &ValidationError{Field: "cart", Message: "cart is empty"}
	ErrUnknownAddress  = &ValidationError{Field: "address", Message: "address not in list"}
	ErrInvalidPayment  = &ValidationError{Field: "payment", Message: "unknown payment method"}
	ErrCartNotSynced   = &ValidationError{Field: "cart", Message: "cart has items the gateway has not saved, refresh the cart"}
)

type AddressFetchError struct {
	Err error
}

func (e *AddressFetchError) Error() string { return "fetch addresses: " + e.Err.Error() }

func (e *AddressFetchError) Unwrap() error { return e.Err }

// OrderPlacementError carries the gateway's message for display.
type OrderPlacementError struct {
	Message string
	Err     error
}

func (e *OrderPlacementError) Error() string { return e.Message }

func (e *OrderPlacementError) Unwrap() error { return e.Err }

func newOrderPlacementError(err error) *OrderPlacementError {
	var gwErr *clients.GatewayError
	if errors.As(err, &gwErr) && gwErr.Message != "" {
		return &OrderPlacementError{Message: gwErr.Message, Err: err}
	}
	return &OrderPlacementError{Message: fmt.Sprintf("place order: %v", err), Err: err}
}
