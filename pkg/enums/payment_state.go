package enums

import "fmt"

// PaymentState tracks the order-level payment outcome.
type PaymentState string

const (
	PaymentStatePending  PaymentState = "pending"
	PaymentStatePaid     PaymentState = "paid"
	PaymentStateFailed   PaymentState = "failed"
	PaymentStateCOD      PaymentState = "cod"
	PaymentStateRefunded PaymentState = "refunded"
)

var validPaymentStates = []PaymentState{
	PaymentStatePending,
	PaymentStatePaid,
	PaymentStateFailed,
	PaymentStateCOD,
	PaymentStateRefunded,
}

// String implements fmt.Stringer.
func (p PaymentState) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PaymentState.
func (p PaymentState) IsValid() bool {
	for _, candidate := range validPaymentStates {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePaymentState converts raw input into a PaymentState.
func ParsePaymentState(value string) (PaymentState, error) {
	for _, candidate := range validPaymentStates {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment state %q", value)
}
