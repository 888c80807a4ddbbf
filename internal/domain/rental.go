package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type RentalStatus string

const (
	RentalStatusActive RentalStatus = "active"
	RentalStatusClosed RentalStatus = "closed"
)

type DepositStatus string

const (
	DepositStatusPending  DepositStatus = "pending"
	DepositStatusReturned DepositStatus = "returned"
	DepositStatusRetained DepositStatus = "retained"
)

func (s DepositStatus) Valid() bool {
	switch s {
	case DepositStatusPending, DepositStatusReturned, DepositStatusRetained:
		return true
	}
	return false
}

type PaymentMode string

const (
	PaymentModeSingle PaymentMode = "single"
	PaymentModeWeekly PaymentMode = "weekly"
)

func (m PaymentMode) Valid() bool {
	return m == PaymentModeSingle || m == PaymentModeWeekly
}

type Rental struct {
	ID            int32           `json:"id"`
	VehicleID     *int32          `json:"vehicle_id,omitempty"`
	ClientID      int32           `json:"client_id"`
	StartAt       time.Time       `json:"start_at"`
	EndAt         *time.Time      `json:"end_at,omitempty"`
	StartMileage  int32           `json:"start_mileage"`
	EndMileage    *int32          `json:"end_mileage,omitempty"`
	WeeklyRate    decimal.Decimal `json:"weekly_rate"`
	Weeks         int32           `json:"weeks"`
	Deposit       decimal.Decimal `json:"deposit"`
	DepositStatus DepositStatus   `json:"deposit_status"`
	PaymentMode   PaymentMode     `json:"payment_mode"`
	Status        RentalStatus    `json:"status"`
	PaidWeeks     int32           `json:"paid_weeks"`
	Notes         string          `json:"notes"`
	DocumentKey   string          `json:"document_key,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`

	// Populated by list queries that join the client and vehicle.
	ClientName   string `json:"client_name,omitempty"`
	VehiclePlate string `json:"vehicle_plate,omitempty"`
	VehicleModel string `json:"vehicle_model,omitempty"`
}

// TotalValue is weekly rate times number of weeks.
func (r *Rental) TotalValue() decimal.Decimal {
	return r.WeeklyRate.Mul(decimal.NewFromInt32(r.Weeks))
}

func (r *Rental) IsActive() bool {
	return r.Status == RentalStatusActive
}

func (r *Rental) IsClosed() bool {
	return r.Status == RentalStatusClosed
}

// RetainedDeposit is the deposit amount counted as collected: the full
// deposit when retained, zero otherwise.
func (r *Rental) RetainedDeposit() decimal.Decimal {
	if r.DepositStatus == DepositStatusRetained {
		return r.Deposit
	}
	return decimal.Zero
}
