package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Платежи по операции

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusConfirmed PaymentStatus = "CONFIRMED"
	PaymentStatusRejected  PaymentStatus = "REJECTED"
)

type PaymentMethod string

const (
	PaymentMethodCash         PaymentMethod = "CASH"
	PaymentMethodCreditCard   PaymentMethod = "CREDIT_CARD"
	PaymentMethodDebitCard    PaymentMethod = "DEBIT_CARD"
	PaymentMethodBankTransfer PaymentMethod = "BANK_TRANSFER"
	PaymentMethodFinancing    PaymentMethod = "FINANCING"
	PaymentMethodCheck        PaymentMethod = "CHECK"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodCash, PaymentMethodCreditCard, PaymentMethodDebitCard,
		PaymentMethodBankTransfer, PaymentMethodFinancing, PaymentMethodCheck:
		return true
	}
	return false
}

// IsCard reports whether the reference of a payment made with m is a card number.
func (m PaymentMethod) IsCard() bool {
	return m == PaymentMethodCreditCard || m == PaymentMethodDebitCard
}

type Payment struct {
	ID        int64           `json:"id"`
	SaleID    int64           `json:"sale_id"`
	Amount    decimal.Decimal `json:"amount"`
	Method    PaymentMethod   `json:"method"`
	Status    PaymentStatus   `json:"status"`
	PaidAt    *time.Time      `json:"paid_at,omitempty"`
	Notes     string          `json:"notes,omitempty"`
	Reference string          `json:"reference,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Автомобили в зачет

// TradeIn is a vehicle accepted as partial payment. Credited trade-ins were
// registered together with the sale and count towards TotalPaid; the others were
// deducted from FinalPrice.
type TradeIn struct {
	ID           int64           `json:"id"`
	SaleID       int64           `json:"sale_id"`
	VehicleID    int64           `json:"vehicle_id"`
	TradeInValue decimal.Decimal `json:"trade_in_value"`
	Credited     bool            `json:"credited"`
	CreatedAt    time.Time       `json:"created_at"`
}
