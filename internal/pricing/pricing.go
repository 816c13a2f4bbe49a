// Package pricing computes the amount owed for a sale from its price components.
package pricing

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var ErrInvalidInput = errors.New("invalid price input")

var hundred = decimal.NewFromInt(100)

type Input struct {
	BasePrice          decimal.Decimal `json:"base_price"`
	Discount           decimal.Decimal `json:"discount"`
	TransferPercentage decimal.Decimal `json:"transfer_percentage"`
	AdminExpenses      decimal.Decimal `json:"admin_expenses"`
}

type Breakdown struct {
	Input
	TransferAmount decimal.Decimal `json:"transfer_amount"`
	FinalPrice     decimal.Decimal `json:"final_price"`
}

// ComputeFinalPrice applies the discount, the transfer fee on the discounted price
// and the flat admin expenses:
//
//	transfer = (base - discount) * pct / 100
//	final    = base - discount + transfer + admin
func ComputeFinalPrice(in Input) (Breakdown, error) {
	if !in.BasePrice.IsPositive() {
		return Breakdown{}, fmt.Errorf("%w: base price must be greater than zero, got %s", ErrInvalidInput, in.BasePrice)
	}
	if in.Discount.IsNegative() {
		return Breakdown{}, fmt.Errorf("%w: discount must not be negative, got %s", ErrInvalidInput, in.Discount)
	}
	if in.TransferPercentage.IsNegative() || in.TransferPercentage.GreaterThan(hundred) {
		return Breakdown{}, fmt.Errorf("%w: transfer percentage must be within [0,100], got %s", ErrInvalidInput, in.TransferPercentage)
	}
	if in.AdminExpenses.IsNegative() {
		return Breakdown{}, fmt.Errorf("%w: admin expenses must not be negative, got %s", ErrInvalidInput, in.AdminExpenses)
	}

	net := in.BasePrice.Sub(in.Discount)
	transfer := net.Mul(in.TransferPercentage).Div(hundred)
	final := net.Add(transfer).Add(in.AdminExpenses)
	if !final.IsPositive() {
		return Breakdown{}, fmt.Errorf("%w: final price must be greater than zero, got %s", ErrInvalidInput, final)
	}

	return Breakdown{
		Input:          in,
		TransferAmount: transfer,
		FinalPrice:     final,
	}, nil
}
