package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type VehicleStatus string

const (
	VehicleStatusAvailable   VehicleStatus = "available"
	VehicleStatusRented      VehicleStatus = "rented"
	VehicleStatusMaintenance VehicleStatus = "maintenance"
	VehicleStatusInactive    VehicleStatus = "inactive"
)

func (s VehicleStatus) Valid() bool {
	switch s {
	case VehicleStatusAvailable, VehicleStatusRented, VehicleStatusMaintenance, VehicleStatusInactive:
		return true
	}
	return false
}

type Vehicle struct {
	ID          int32           `json:"id"`
	Plate       string          `json:"plate"`
	Make        string          `json:"make"`
	Model       string          `json:"model"`
	Year        int32           `json:"year"`
	Chassis     string          `json:"chassis,omitempty"`
	Mileage     int32           `json:"mileage"`
	FipeValue   decimal.Decimal `json:"fipe_value"`
	Renavam     string          `json:"renavam,omitempty"`
	DocumentKey string          `json:"document_key,omitempty"`
	PhotoKey    string          `json:"photo_key,omitempty"`
	Status      VehicleStatus   `json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
}

func (v *Vehicle) String() string {
	return v.Model + " - " + v.Plate
}
