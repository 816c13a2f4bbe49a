package model

import "github.com/shopspring/decimal"

// Склад автомобилей

type VehicleStatus string

const (
	VehicleStatusAvailable  VehicleStatus = "AVAILABLE"
	VehicleStatusReserved   VehicleStatus = "RESERVED"
	VehicleStatusSold       VehicleStatus = "SOLD"
	VehicleStatusInspection VehicleStatus = "INSPECTION"
)

// Vehicle is the inventory view the sale engine works with.
type Vehicle struct {
	ID     int64           `json:"id"`
	Plate  string          `json:"plate"`
	Price  decimal.Decimal `json:"price"`
	Status VehicleStatus   `json:"status"`
}
