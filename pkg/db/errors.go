package db

import (
	"errors"
	"strings"
)

// IsUniqueViolation reports whether the provided error references a unique
// constraint violation. When constraintName is provided, the helper looks for
// the constraint text in the error message. The whole unwrap chain is
// inspected so wrapped errors still match.
func IsUniqueViolation(err error, constraintName string) bool {
	for e := err; e != nil; e = errors.Unwrap(e) {
		msg := e.Error()
		if constraintName != "" {
			if strings.Contains(msg, constraintName) {
				return true
			}
			continue
		}
		if strings.Contains(msg, "duplicate key value") ||
			strings.Contains(msg, "UNIQUE constraint failed") {
			return true
		}
	}
	return false
}
