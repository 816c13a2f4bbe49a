package service

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrConflict     = errors.New("conflict")
)

// OverpaymentError reports an amount that does not fit into the sale's remaining balance.
// It unwraps to ErrInvalidInput when a payment is registered and to ErrConflict when
// a confirmation no longer fits.
type OverpaymentError struct {
	SaleID    int64
	Remaining decimal.Decimal
	Kind      error
}

func (e *OverpaymentError) Error() string {
	return fmt.Sprintf("sale %d: amount exceeds final price, remaining %s: %v", e.SaleID, e.Remaining, e.Kind)
}

func (e *OverpaymentError) Unwrap() error {
	return e.Kind
}

// isDomain tells caller-facing failures from infrastructure ones.
func isDomain(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrConflict)
}

func notFound(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrNotFound)
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrInvalidInput)
}

func conflict(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrConflict)
}
