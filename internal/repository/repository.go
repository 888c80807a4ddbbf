package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"locar-backend/internal/domain"
)

type VehicleRepository interface {
	Create(ctx context.Context, vehicle *domain.Vehicle) error
	GetByID(ctx context.Context, id int32) (*domain.Vehicle, error)
	// GetByIDForUpdate locks the vehicle row until the surrounding
	// transaction ends.
	GetByIDForUpdate(ctx context.Context, id int32) (*domain.Vehicle, error)
	Update(ctx context.Context, vehicle *domain.Vehicle) error
	Delete(ctx context.Context, id int32) error
	// List matches query against model, plate and make; empty status means any.
	List(ctx context.Context, query string, status domain.VehicleStatus) ([]domain.Vehicle, error)
	Count(ctx context.Context) (int32, error)
	CountByStatus(ctx context.Context, status domain.VehicleStatus) (int32, error)
}

type ClientRepository interface {
	Create(ctx context.Context, client *domain.Client) error
	GetByID(ctx context.Context, id int32) (*domain.Client, error)
	Update(ctx context.Context, client *domain.Client) error
	Delete(ctx context.Context, id int32) error
	// List matches query against name, tax id and license number.
	List(ctx context.Context, query string) ([]domain.Client, error)
	Count(ctx context.Context) (int32, error)
}

type RentalRepository interface {
	Create(ctx context.Context, rental *domain.Rental) error
	GetByID(ctx context.Context, id int32) (*domain.Rental, error)
	// GetByIDForUpdate locks the rental row until the surrounding
	// transaction ends.
	GetByIDForUpdate(ctx context.Context, id int32) (*domain.Rental, error)
	Update(ctx context.Context, rental *domain.Rental) error
	// HolderOf returns the active rental that still keeps the vehicle, one
	// with no end mileage recorded, or nil when there is none.
	HolderOf(ctx context.Context, vehicleID int32) (*domain.Rental, error)
	// IncrementPaidWeeks adds one paid week only if the stored counter still
	// equals expected and stays within the contract weeks. It returns
	// domain.ErrConcurrentUpdate when the guard fails.
	IncrementPaidWeeks(ctx context.Context, id, expected int32) error
	Delete(ctx context.Context, id int32) error
	// List matches query against client name, vehicle plate and model.
	List(ctx context.Context, query string, status domain.RentalStatus) ([]domain.Rental, error)
	// ListStartedBefore returns every active rental plus every rental that
	// started before the given instant, a superset of any window selection.
	ListStartedBefore(ctx context.Context, before time.Time) ([]domain.Rental, error)
	CountByClient(ctx context.Context, clientID int32) (int32, error)
	CountByVehicle(ctx context.Context, vehicleID int32) (int32, error)
}

type PaymentRepository interface {
	Create(ctx context.Context, payment *domain.Payment) error
	ListByRental(ctx context.Context, rentalID int32) ([]domain.Payment, error)
	// LastByRental returns nil without error when the rental has no payments.
	LastByRental(ctx context.Context, rentalID int32) (*domain.Payment, error)
}

type ExpenseRepository interface {
	Create(ctx context.Context, expense *domain.Expense) error
	GetByID(ctx context.Context, id int32) (*domain.Expense, error)
	Update(ctx context.Context, expense *domain.Expense) error
	Delete(ctx context.Context, id int32) error
	List(ctx context.Context, filter domain.ExpenseFilter) ([]domain.Expense, error)
	// ListByDateRange is inclusive on both ends.
	ListByDateRange(ctx context.Context, window domain.DateWindow) ([]domain.Expense, error)
	SumByVehicle(ctx context.Context, vehicleID int32) (decimal.Decimal, error)
	Years(ctx context.Context) ([]int, error)
}

// Repositories groups the entity stores bound to one connection or
// transaction.
type Repositories struct {
	Vehicles VehicleRepository
	Clients  ClientRepository
	Rentals  RentalRepository
	Payments PaymentRepository
	Expenses ExpenseRepository
}

// Transactor runs fn inside a single transaction. The repositories handed to
// fn are bound to it; a non-nil error from fn rolls every write back.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error
}
