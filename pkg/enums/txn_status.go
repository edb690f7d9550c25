package enums

import "fmt"

// TxnStatus tracks the lifecycle of a payment transaction row. The only
// permitted transitions are pending -> success and pending -> failed.
type TxnStatus string

const (
	TxnStatusPending  TxnStatus = "pending"
	TxnStatusSuccess  TxnStatus = "success"
	TxnStatusFailed   TxnStatus = "failed"
	TxnStatusRefunded TxnStatus = "refunded"
)

var validTxnStatuses = []TxnStatus{
	TxnStatusPending,
	TxnStatusSuccess,
	TxnStatusFailed,
	TxnStatusRefunded,
}

// String implements fmt.Stringer.
func (s TxnStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known TxnStatus.
func (s TxnStatus) IsValid() bool {
	for _, candidate := range validTxnStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the transaction can no longer be resolved.
func (s TxnStatus) IsTerminal() bool {
	return s != TxnStatusPending
}

// ParseTxnStatus converts raw input into a TxnStatus.
func ParseTxnStatus(value string) (TxnStatus, error) {
	for _, candidate := range validTxnStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid transaction status %q", value)
}
