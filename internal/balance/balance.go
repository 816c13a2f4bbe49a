// Package balance derives the settlement state of a sale from its ledger:
// confirmed payments, trade-ins and the explicit reservation mark.
package balance

import (
	"github.com/shopspring/decimal"

	"github.com/iurnickita/dealership/internal/model"
)

// ConfirmedTotal sums the amounts of confirmed payments.
func ConfirmedTotal(payments []model.Payment) decimal.Decimal {
	total := decimal.Zero
	for _, p := range payments {
		if p.Status == model.PaymentStatusConfirmed {
			total = total.Add(p.Amount)
		}
	}
	return total
}

// CreditedTotal sums the trade-in values credited into TotalPaid at creation.
func CreditedTotal(tradeIns []model.TradeIn) decimal.Decimal {
	total := decimal.Zero
	for _, t := range tradeIns {
		if t.Credited {
			total = total.Add(t.TradeInValue)
		}
	}
	return total
}

// Settled is what has actually been received for the sale.
func Settled(sale model.Sale) decimal.Decimal {
	return ConfirmedTotal(sale.Payments).Add(CreditedTotal(sale.TradeIns))
}

// Remaining is the balance still accepted by the sale.
func Remaining(sale model.Sale) decimal.Decimal {
	rem := sale.FinalPrice.Sub(sale.TotalPaid)
	if rem.IsNegative() {
		return decimal.Zero
	}
	return rem
}

// FullyPaid reports whether the sale may be delivered.
func FullyPaid(sale model.Sale) bool {
	return Settled(sale).GreaterThanOrEqual(sale.FinalPrice)
}

// ResolveStatus recomputes the status from scratch. DELIVERED is terminal.
func ResolveStatus(sale model.Sale) model.SaleStatus {
	if sale.Status == model.SaleStatusDelivered {
		return sale.Status
	}
	if FullyPaid(sale) {
		return model.SaleStatusSold
	}
	if ConfirmedTotal(sale.Payments).IsPositive() || len(sale.TradeIns) > 0 || sale.ReservedAt != nil {
		return model.SaleStatusReserved
	}
	return model.SaleStatusDraft
}
