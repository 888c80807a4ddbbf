package service

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"locar-backend/internal/domain"
	"locar-backend/internal/logger"
	"locar-backend/internal/repository"
)

const maxPlateLength = 7

// Reserve moves an available vehicle to rented and persists it through the
// given repository, which callers bind to their transaction.
func Reserve(ctx context.Context, vehicles repository.VehicleRepository, v *domain.Vehicle) error {
	if v.Status != domain.VehicleStatusAvailable {
		return domain.ErrInvalidVehicleState.WithMessage("vehicle %s is %s and cannot be reserved", v.Plate, v.Status)
	}
	v.Status = domain.VehicleStatusRented
	if err := vehicles.Update(ctx, v); err != nil {
		return err
	}
	logger.Debug("Vehicle reserved", "vehicleID", v.ID)
	return nil
}

// Release returns a rented vehicle to available. A non-nil endMileage
// becomes the vehicle's mileage. Vehicles that are not rented are left
// untouched and Release reports false.
func Release(ctx context.Context, vehicles repository.VehicleRepository, v *domain.Vehicle, endMileage *int32) (bool, error) {
	if v.Status != domain.VehicleStatusRented {
		return false, nil
	}
	v.Status = domain.VehicleStatusAvailable
	if endMileage != nil {
		v.Mileage = *endMileage
	}
	if err := vehicles.Update(ctx, v); err != nil {
		return false, err
	}
	logger.Debug("Vehicle released", "vehicleID", v.ID, "mileage", v.Mileage)
	return true, nil
}

type vehicleService struct {
	store repository.Repositories
}

func NewVehicleService(store repository.Repositories) VehicleService {
	return &vehicleService{store: store}
}

func validateVehicle(v *domain.Vehicle) error {
	v.Plate = strings.ToUpper(strings.TrimSpace(v.Plate))
	switch {
	case v.Plate == "":
		return domain.Invalid("plate is required")
	case len(v.Plate) > maxPlateLength:
		return domain.Invalid("plate must have at most %d characters", maxPlateLength)
	case strings.TrimSpace(v.Model) == "":
		return domain.Invalid("model is required")
	case v.Mileage < 0:
		return domain.Invalid("mileage cannot be negative")
	case v.FipeValue.IsNegative():
		return domain.Invalid("fipe value cannot be negative")
	}
	return nil
}

func (s *vehicleService) CreateVehicle(ctx context.Context, v *domain.Vehicle) error {
	if err := validateVehicle(v); err != nil {
		return err
	}
	if v.Status == "" {
		v.Status = domain.VehicleStatusAvailable
	}
	if v.Status == domain.VehicleStatusRented || !v.Status.Valid() {
		return domain.ErrInvalidVehicleState.WithMessage("a new vehicle cannot start as %q", v.Status)
	}
	if err := s.store.Vehicles.Create(ctx, v); err != nil {
		return err
	}
	logger.Info("Vehicle created", "vehicleID", v.ID, "plate", v.Plate)
	return nil
}

func (s *vehicleService) GetVehicle(ctx context.Context, id int32) (*domain.Vehicle, error) {
	return s.store.Vehicles.GetByID(ctx, id)
}

// UpdateVehicle edits the descriptive fields. Status is kept as stored.
func (s *vehicleService) UpdateVehicle(ctx context.Context, v *domain.Vehicle) error {
	current, err := s.store.Vehicles.GetByID(ctx, v.ID)
	if err != nil {
		return err
	}
	if err := validateVehicle(v); err != nil {
		return err
	}
	v.Status = current.Status
	v.CreatedAt = current.CreatedAt
	return s.store.Vehicles.Update(ctx, v)
}

// SetVehicleStatus is the maintenance workflow. Rented is reachable only
// through a rental.
func (s *vehicleService) SetVehicleStatus(ctx context.Context, id int32, status domain.VehicleStatus) (*domain.Vehicle, error) {
	if !status.Valid() || status == domain.VehicleStatusRented {
		return nil, domain.ErrInvalidVehicleState.WithMessage("status %q cannot be set manually", status)
	}
	v, err := s.store.Vehicles.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if v.Status == domain.VehicleStatusRented {
		return nil, domain.ErrVehicleRented
	}
	if v.Status == status {
		return v, nil
	}
	v.Status = status
	if err := s.store.Vehicles.Update(ctx, v); err != nil {
		return nil, err
	}
	logger.Info("Vehicle status changed", "vehicleID", id, "status", status)
	return v, nil
}

func (s *vehicleService) DeleteVehicle(ctx context.Context, id int32) error {
	if _, err := s.store.Vehicles.GetByID(ctx, id); err != nil {
		return err
	}
	count, err := s.store.Rentals.CountByVehicle(ctx, id)
	if err != nil {
		return err
	}
	if count > 0 {
		return domain.ErrVehicleHasRentals
	}
	if err := s.store.Vehicles.Delete(ctx, id); err != nil {
		return err
	}
	logger.Info("Vehicle deleted", "vehicleID", id)
	return nil
}

func (s *vehicleService) ListVehicles(ctx context.Context, query string, status domain.VehicleStatus) ([]domain.Vehicle, error) {
	if status != "" && !status.Valid() {
		return nil, domain.Invalid("unknown vehicle status %q", status)
	}
	return s.store.Vehicles.List(ctx, strings.TrimSpace(query), status)
}

func (s *vehicleService) VehicleExpenseTotal(ctx context.Context, id int32) (decimal.Decimal, error) {
	if _, err := s.store.Vehicles.GetByID(ctx, id); err != nil {
		return decimal.Zero, err
	}
	return s.store.Expenses.SumByVehicle(ctx, id)
}
