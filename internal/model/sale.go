package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Операции продажи/покупки

type SaleType string

const (
	SaleTypeSale     SaleType = "SALE"
	SaleTypePurchase SaleType = "PURCHASE"
)

func (t SaleType) Valid() bool {
	return t == SaleTypeSale || t == SaleTypePurchase
}

type SaleStatus string

const (
	SaleStatusDraft     SaleStatus = "DRAFT"
	SaleStatusReserved  SaleStatus = "RESERVED"
	SaleStatusSold      SaleStatus = "SOLD"
	SaleStatusDelivered SaleStatus = "DELIVERED"
)

func (s SaleStatus) Valid() bool {
	switch s {
	case SaleStatusDraft, SaleStatusReserved, SaleStatusSold, SaleStatusDelivered:
		return true
	}
	return false
}

// Sale is one commercial operation over a vehicle.
// Payments and TradeIns are ordered by id; Vehicle is the primary subject as loaded
// in the same unit of work.
type Sale struct {
	ID     int64      `json:"id"`
	Type   SaleType   `json:"type"`
	Status SaleStatus `json:"status"`

	ClientID  int64  `json:"client_id"`
	VehicleID int64  `json:"vehicle_id"`
	UserID    int64  `json:"user_id"`
	QuoteID   *int64 `json:"quote_id,omitempty"`

	BasePrice          decimal.Decimal `json:"base_price"`
	Discount           decimal.Decimal `json:"discount"`
	TransferPercentage decimal.Decimal `json:"transfer_percentage"`
	TransferAmount     decimal.Decimal `json:"transfer_amount"`
	AdminExpenses      decimal.Decimal `json:"admin_expenses"`
	FinalPrice         decimal.Decimal `json:"final_price"`
	TotalPaid          decimal.Decimal `json:"total_paid"`

	SaleDate   time.Time  `json:"sale_date"`
	ReservedAt *time.Time `json:"reserved_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`

	Vehicle  *Vehicle  `json:"vehicle,omitempty"`
	Payments []Payment `json:"payments"`
	TradeIns []TradeIn `json:"trade_ins"`
}

// SaleFilter narrows a sale listing; zero values match everything.
type SaleFilter struct {
	Status   SaleStatus
	Type     SaleType
	ClientID int64
}

func (f SaleFilter) Match(sale Sale) bool {
	if f.Status != "" && sale.Status != f.Status {
		return false
	}
	if f.Type != "" && sale.Type != f.Type {
		return false
	}
	if f.ClientID != 0 && sale.ClientID != f.ClientID {
		return false
	}
	return true
}

// SalesSummary aggregates a listing.
type SalesSummary struct {
	Quantity        int                `json:"quantity"`
	ByStatus        map[SaleStatus]int `json:"by_status"`
	TotalFinalPrice decimal.Decimal    `json:"total_final_price"`
	TotalPaid       decimal.Decimal    `json:"total_paid"`
}

func Summarize(sales []Sale) SalesSummary {
	summary := SalesSummary{
		ByStatus:        make(map[SaleStatus]int),
		TotalFinalPrice: decimal.Zero,
		TotalPaid:       decimal.Zero,
	}
	for _, sale := range sales {
		summary.Quantity++
		summary.ByStatus[sale.Status]++
		summary.TotalFinalPrice = summary.TotalFinalPrice.Add(sale.FinalPrice)
		summary.TotalPaid = summary.TotalPaid.Add(sale.TotalPaid)
	}
	return summary
}
