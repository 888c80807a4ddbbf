package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Payment struct {
	ID       int32           `json:"id"`
	RentalID int32           `json:"rental_id"`
	Week     int32           `json:"week"`
	Amount   decimal.Decimal `json:"amount"`
	PaidAt   time.Time       `json:"paid_at"`
}

type DueStatus string

const (
	DueStatusOverdue  DueStatus = "overdue"
	DueStatusUpcoming DueStatus = "upcoming"
	DueStatusOnTrack  DueStatus = "on_track"
)

// Installment is one line of a rental's weekly schedule.
type Installment struct {
	Week    int32           `json:"week"`
	DueDate time.Time       `json:"due_date"`
	Amount  decimal.Decimal `json:"amount"`
	Paid    bool            `json:"paid"`
}
