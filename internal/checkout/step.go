package checkout

type Step string

const (
	StepReviewing       Step = "reviewing"
	StepAddressPending  Step = "address_pending"
	StepAddressSelected Step = "address_selected"
	StepPaymentPending  Step = "payment_pending"
	StepPlacing         Step = "placing"
	StepPlaced          Step = "placed"
	StepTracking        Step = "tracking"
	StepDelivered       Step = "delivered"
)

var transitions = map[Step][]Step{
	StepReviewing:       {StepAddressPending},
	StepAddressPending:  {StepReviewing, StepAddressSelected, StepPaymentPending},
	StepAddressSelected: {StepAddressPending, StepPaymentPending},
	StepPaymentPending:  {StepAddressPending, StepAddressSelected, StepPlacing},
	StepPlacing:         {StepPlaced, StepPaymentPending},
	StepPlaced:          {StepTracking},
	StepTracking:        {StepDelivered},
}

func (s Step) CanTransitionTo(next Step) bool {
	for _, to := range transitions[s] {
		if to == next {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition exists.
func (s Step) IsTerminal() bool {
	return len(transitions[s]) == 0
}

type PaymentMethod string

const (
	PaymentCashOnDelivery PaymentMethod = "cash_on_delivery"
	PaymentOnline         PaymentMethod = "online"
)

func (m PaymentMethod) Valid() bool {
	return m == PaymentCashOnDelivery || m == PaymentOnline
}

type PaymentSelection struct {
	Method PaymentMethod `json:"method"`
	// Provider names the online option picked, e.g. "paytm". Empty for cash.
	Provider string `json:"provider,omitempty"`
}

// LineReport decides which cart lines go into the order body.
type LineReport string

const (
	// ReportAllLines sends the first line as cart_id/quantity plus every line in items.
	ReportAllLines LineReport = "all"
	// ReportFirstLine sends only the first line's cart_id/quantity.
	ReportFirstLine LineReport = "first"
)
