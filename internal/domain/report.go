package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// DateWindow is an inclusive range of calendar dates.
type DateWindow struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// RentalFinancials holds the derived amounts of one rental.
type RentalFinancials struct {
	TotalValue  decimal.Decimal `json:"total_value"`
	Installment decimal.Decimal `json:"installment"`
	Collected   decimal.Decimal `json:"collected"`
	Outstanding decimal.Decimal `json:"outstanding"`
}

type FinancialSummary struct {
	TotalReceivable  decimal.Decimal `json:"total_receivable"`
	TotalCollected   decimal.Decimal `json:"total_collected"`
	TotalOutstanding decimal.Decimal `json:"total_outstanding"`
	TotalExpenses    decimal.Decimal `json:"total_expenses"`
	NetProfit        decimal.Decimal `json:"net_profit"`
}

// WeekdayEntry is one rental in the weekday grouping of the dashboard.
type WeekdayEntry struct {
	RentalID       int32           `json:"rental_id"`
	ClientName     string          `json:"client_name"`
	VehicleModel   string          `json:"vehicle_model"`
	NextDueDate    time.Time       `json:"next_due_date"`
	DueStatus      DueStatus       `json:"due_status,omitempty"`
	Installment    decimal.Decimal `json:"installment"`
	PaidWeeks      int32           `json:"paid_weeks"`
	RemainingWeeks int32           `json:"remaining_weeks"`
	Collected      decimal.Decimal `json:"collected"`
}

// WeekdayGroup buckets entries whose rental started on Weekday
// (Monday=0 .. Sunday=6).
type WeekdayGroup struct {
	Weekday int            `json:"weekday"`
	Name    string         `json:"name"`
	Entries []WeekdayEntry `json:"entries"`
}

type Dashboard struct {
	Window         DateWindow       `json:"window"`
	Summary        FinancialSummary `json:"summary"`
	ByWeekday      []WeekdayGroup   `json:"by_weekday"`
	ChartLabels    []string         `json:"chart_labels"`
	ChartCounts    []int            `json:"chart_counts"`
	TotalVehicles  int32            `json:"total_vehicles"`
	RentedVehicles int32            `json:"rented_vehicles"`
	RentalCount    int32            `json:"rental_count"`
	TotalClients   int32            `json:"total_clients"`
}

// Receivable is one active rental on the receivables board.
type Receivable struct {
	Rental         Rental          `json:"rental"`
	TotalValue     decimal.Decimal `json:"total_value"`
	Installment    decimal.Decimal `json:"installment"`
	PaidWeeks      int32           `json:"paid_weeks"`
	RemainingWeeks int32           `json:"remaining_weeks"`
	TotalPaid      decimal.Decimal `json:"total_paid"`
	Balance        decimal.Decimal `json:"balance"`
	NextDueDate    time.Time       `json:"next_due_date"`
	LastPaymentAt  *time.Time      `json:"last_payment_at,omitempty"`
	DueStatus      DueStatus       `json:"due_status"`
}

type ReceivableGroup struct {
	Weekday int             `json:"weekday"`
	Name    string          `json:"name"`
	Total   decimal.Decimal `json:"total"`
	Items   []Receivable    `json:"items"`
}
