package service

import (
	"context"
	"io"
	"time"

	"github.com/shopspring/decimal"

	"locar-backend/internal/domain"
	"locar-backend/internal/utils"
)

type VehicleService interface {
	CreateVehicle(ctx context.Context, vehicle *domain.Vehicle) error
	GetVehicle(ctx context.Context, id int32) (*domain.Vehicle, error)
	UpdateVehicle(ctx context.Context, vehicle *domain.Vehicle) error
	SetVehicleStatus(ctx context.Context, id int32, status domain.VehicleStatus) (*domain.Vehicle, error)
	DeleteVehicle(ctx context.Context, id int32) error
	ListVehicles(ctx context.Context, query string, status domain.VehicleStatus) ([]domain.Vehicle, error)
	VehicleExpenseTotal(ctx context.Context, id int32) (decimal.Decimal, error)
}

type ClientService interface {
	CreateClient(ctx context.Context, client *domain.Client) error
	GetClient(ctx context.Context, id int32) (*domain.Client, error)
	UpdateClient(ctx context.Context, client *domain.Client) error
	DeleteClient(ctx context.Context, id int32) error
	ListClients(ctx context.Context, query string) ([]domain.Client, error)
	AttachDocument(ctx context.Context, id int32, filename string, content io.Reader) (*domain.Client, error)
}

type RentalService interface {
	CreateRental(ctx context.Context, req CreateRentalRequest) (*domain.Rental, error)
	UpdateRental(ctx context.Context, id int32, req UpdateRentalRequest) (*UpdateRentalResult, error)
	CloseRental(ctx context.Context, id int32, req CloseRentalRequest) (*CloseRentalResult, error)
	DeleteRental(ctx context.Context, id int32) error
	GetRental(ctx context.Context, id int32) (*domain.Rental, error)
	ListRentals(ctx context.Context, query string, status domain.RentalStatus) ([]domain.Rental, error)
	AttachDocument(ctx context.Context, id int32, filename string, content io.Reader) (*domain.Rental, error)
}

type BillingService interface {
	RecordPayment(ctx context.Context, rentalID int32) (*PaymentResult, error)
	Schedule(ctx context.Context, rentalID int32) (*ScheduleView, error)
	ListPayments(ctx context.Context, rentalID int32) ([]domain.Payment, error)
	Balance(ctx context.Context, rentalID int32) (*domain.RentalFinancials, error)
	Receivables(ctx context.Context, query string) ([]domain.ReceivableGroup, error)
}

type ReportService interface {
	ResolveWindow(start, end string) (domain.DateWindow, error)
	Dashboard(ctx context.Context, start, end string) (*domain.Dashboard, error)
}

type ExpenseService interface {
	CreateExpense(ctx context.Context, expense *domain.Expense) error
	GetExpense(ctx context.Context, id int32) (*domain.Expense, error)
	UpdateExpense(ctx context.Context, expense *domain.Expense) error
	DeleteExpense(ctx context.Context, id int32) error
	ListExpenses(ctx context.Context, filter domain.ExpenseFilter) (*ExpenseListing, error)
	AttachReceipt(ctx context.Context, id int32, filename string, content io.Reader) (*domain.Expense, error)
}

type EmailService interface {
	SendInstallmentReminder(ctx context.Context, email, clientName string, item domain.Receivable) error
}

// CreateRentalRequest opens a contract. A nil StartMileage takes the
// vehicle's current mileage and a zero StartAt means now.
type CreateRentalRequest struct {
	ClientID     int32
	VehicleID    int32
	StartAt      time.Time
	StartMileage *int32
	WeeklyRate   decimal.Decimal
	Weeks        int32
	Deposit      decimal.Decimal
	PaymentMode  domain.PaymentMode
	Notes        string
}

// UpdateRentalRequest carries the fields to change; nil means unchanged.
// EndMileage is an administrative correction: it releases the vehicle
// without closing the rental. Close is the normal path.
type UpdateRentalRequest struct {
	ClientID     *int32
	VehicleID    *int32
	StartAt      *time.Time
	StartMileage *int32
	EndMileage   *int32
	WeeklyRate   *decimal.Decimal
	Weeks        *int32
	Deposit      *decimal.Decimal
	PaymentMode  *domain.PaymentMode
	Notes        *string
}

type UpdateRentalResult struct {
	Rental          *domain.Rental
	VehicleReleased bool
}

type CloseRentalRequest struct {
	EndMileage    int32
	DepositStatus domain.DepositStatus
	Notes         string
}

type CloseRentalResult struct {
	Rental          *domain.Rental
	VehicleReleased bool
	Message         string
}

// PaymentResult reports a recorded installment. When the rental was already
// fully paid, FullyPaid is set, Payment is nil and nothing was written.
type PaymentResult struct {
	Rental    *domain.Rental
	Payment   *domain.Payment
	FullyPaid bool
	Message   string
}

type ScheduleView struct {
	Rental       *domain.Rental
	Financials   domain.RentalFinancials
	Installments []domain.Installment
	NextDueDate  *time.Time
	DueStatus    domain.DueStatus
}

type ExpenseListing struct {
	Items []domain.Expense
	Total decimal.Decimal
	Years []int
}

// Settings is the billing calendar shared by the engines.
type Settings struct {
	UpcomingWindowDays int
	WeekdayNames       [7]string
	Location           *time.Location
	Now                func() time.Time
}

func (s Settings) withDefaults() Settings {
	if s.UpcomingWindowDays <= 0 {
		s.UpcomingWindowDays = utils.DefaultUpcomingWindowDays
	}
	for i, name := range s.WeekdayNames {
		if name == "" {
			s.WeekdayNames[i] = utils.DefaultWeekdayNames[i]
		}
	}
	if s.Location == nil {
		s.Location = time.Local
	}
	if s.Now == nil {
		s.Now = time.Now
	}
	return s
}

func (s Settings) now() time.Time {
	return s.Now().In(s.Location)
}

// localize moves the rental timestamps into the configured calendar so that
// date arithmetic uses local days.
func (s Settings) localize(rt *domain.Rental) {
	rt.StartAt = rt.StartAt.In(s.Location)
	if rt.EndAt != nil {
		end := rt.EndAt.In(s.Location)
		rt.EndAt = &end
	}
}
