package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type ExpenseCategory string

const (
	ExpenseCategoryMaintenance ExpenseCategory = "maintenance"
	ExpenseCategoryFine        ExpenseCategory = "fine"
	ExpenseCategoryInsurance   ExpenseCategory = "insurance"
	ExpenseCategoryTax         ExpenseCategory = "tax"
	ExpenseCategoryOther       ExpenseCategory = "other"
)

func (c ExpenseCategory) Valid() bool {
	switch c {
	case ExpenseCategoryMaintenance, ExpenseCategoryFine, ExpenseCategoryInsurance, ExpenseCategoryTax, ExpenseCategoryOther:
		return true
	}
	return false
}

type Expense struct {
	ID          int32           `json:"id"`
	VehicleID   int32           `json:"vehicle_id"`
	Category    ExpenseCategory `json:"category"`
	Description string          `json:"description"`
	Date        time.Time       `json:"date"`
	Amount      decimal.Decimal `json:"amount"`
	ReceiptKey  string          `json:"receipt_key,omitempty"`

	VehiclePlate string `json:"vehicle_plate,omitempty"`
}

// ExpenseFilter narrows expense listings. Zero values mean "any".
type ExpenseFilter struct {
	VehicleID int32
	Category  ExpenseCategory
	Month     int
	Year      int
}
