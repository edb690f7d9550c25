package enums

import "fmt"

// PaymentMethodKind distinguishes gateway-backed methods from offline ones.
type PaymentMethodKind string

const (
	PaymentMethodKindOnline  PaymentMethodKind = "online"
	PaymentMethodKindOffline PaymentMethodKind = "offline"
)

var validPaymentMethodKinds = []PaymentMethodKind{
	PaymentMethodKindOnline,
	PaymentMethodKindOffline,
}

// String implements fmt.Stringer.
func (k PaymentMethodKind) String() string {
	return string(k)
}

// IsValid reports whether the value is a known PaymentMethodKind.
func (k PaymentMethodKind) IsValid() bool {
	for _, candidate := range validPaymentMethodKinds {
		if candidate == k {
			return true
		}
	}
	return false
}

// ParsePaymentMethodKind converts raw input into a PaymentMethodKind.
func ParsePaymentMethodKind(value string) (PaymentMethodKind, error) {
	for _, candidate := range validPaymentMethodKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment method kind %q", value)
}
