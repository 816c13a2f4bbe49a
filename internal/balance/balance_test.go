package balance

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iurnickita/dealership/internal/model"
)

func payment(amount int64, status model.PaymentStatus) model.Payment {
	return model.Payment{Amount: decimal.NewFromInt(amount), Status: status}
}

func TestResolveStatus(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name string
		sale model.Sale
		want model.SaleStatus
	}{
		{
			name: "no ledger entries",
			sale: model.Sale{Status: model.SaleStatusDraft, FinalPrice: decimal.NewFromInt(100000)},
			want: model.SaleStatusDraft,
		},
		{
			name: "pending payment does not count",
			sale: model.Sale{
				Status:     model.SaleStatusDraft,
				FinalPrice: decimal.NewFromInt(100000),
				Payments:   []model.Payment{payment(100000, model.PaymentStatusPending)},
			},
			want: model.SaleStatusDraft,
		},
		{
			name: "partial confirmed payment",
			sale: model.Sale{
				Status:     model.SaleStatusDraft,
				FinalPrice: decimal.NewFromInt(100000),
				Payments: []model.Payment{
					payment(40000, model.PaymentStatusConfirmed),
					payment(60000, model.PaymentStatusRejected),
				},
			},
			want: model.SaleStatusReserved,
		},
		{
			name: "fully confirmed",
			sale: model.Sale{
				Status:     model.SaleStatusReserved,
				FinalPrice: decimal.NewFromInt(100000),
				Payments: []model.Payment{
					payment(40000, model.PaymentStatusConfirmed),
					payment(60000, model.PaymentStatusConfirmed),
				},
			},
			want: model.SaleStatusSold,
		},
		{
			name: "trade-in reserves",
			sale: model.Sale{
				Status:     model.SaleStatusDraft,
				FinalPrice: decimal.NewFromInt(70000),
				TradeIns:   []model.TradeIn{{TradeInValue: decimal.NewFromInt(30000)}},
			},
			want: model.SaleStatusReserved,
		},
		{
			name: "credited trade-in settles together with payments",
			sale: model.Sale{
				Status:     model.SaleStatusDraft,
				FinalPrice: decimal.NewFromInt(100000),
				TradeIns:   []model.TradeIn{{TradeInValue: decimal.NewFromInt(30000), Credited: true}},
				Payments:   []model.Payment{payment(70000, model.PaymentStatusConfirmed)},
			},
			want: model.SaleStatusSold,
		},
		{
			name: "explicit reservation survives a rejected payment",
			sale: model.Sale{
				Status:     model.SaleStatusReserved,
				FinalPrice: decimal.NewFromInt(100000),
				ReservedAt: &now,
				Payments:   []model.Payment{payment(100000, model.PaymentStatusRejected)},
			},
			want: model.SaleStatusReserved,
		},
		{
			name: "rejection moves sold back to draft",
			sale: model.Sale{
				Status:     model.SaleStatusSold,
				FinalPrice: decimal.NewFromInt(100000),
				Payments:   []model.Payment{payment(100000, model.PaymentStatusRejected)},
			},
			want: model.SaleStatusDraft,
		},
		{
			name: "delivered is terminal",
			sale: model.Sale{Status: model.SaleStatusDelivered, FinalPrice: decimal.NewFromInt(100000)},
			want: model.SaleStatusDelivered,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveStatus(tt.sale))
		})
	}
}

func TestRemaining(t *testing.T) {
	sale := model.Sale{FinalPrice: decimal.NewFromInt(100000), TotalPaid: decimal.NewFromInt(25000)}
	require.True(t, Remaining(sale).Equal(decimal.NewFromInt(75000)))

	sale.TotalPaid = decimal.NewFromInt(120000)
	require.True(t, Remaining(sale).IsZero())
}

func TestFullyPaid(t *testing.T) {
	sale := model.Sale{
		FinalPrice: decimal.NewFromInt(100000),
		Payments: []model.Payment{
			payment(50000, model.PaymentStatusConfirmed),
			payment(50000, model.PaymentStatusPending),
		},
	}
	require.False(t, FullyPaid(sale))

	sale.Payments[1].Status = model.PaymentStatusConfirmed
	require.True(t, FullyPaid(sale))
}
