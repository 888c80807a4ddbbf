package service

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/shopspring/decimal"

	"locar-backend/internal/domain"
	"locar-backend/internal/logger"
	"locar-backend/internal/metrics"
	"locar-backend/internal/repository"
	"locar-backend/internal/storage"
)

const (
	DepositReturnedMessage = "Deposit returned to the client."
	DepositRetainedMessage = "Deposit retained due to pending issues."
	DepositPendingMessage  = "Deposit still pending."
)

// DepositMessage describes what happened to the deposit at closing.
func DepositMessage(status domain.DepositStatus) string {
	switch status {
	case domain.DepositStatusReturned:
		return DepositReturnedMessage
	case domain.DepositStatusRetained:
		return DepositRetainedMessage
	default:
		return DepositPendingMessage
	}
}

type rentalService struct {
	store    repository.Repositories
	tx       repository.Transactor
	files    storage.AttachmentStore
	metrics  *metrics.Metrics
	settings Settings
}

func NewRentalService(
	store repository.Repositories,
	tx repository.Transactor,
	files storage.AttachmentStore,
	m *metrics.Metrics,
	settings Settings,
) RentalService {
	return &rentalService{
		store:    store,
		tx:       tx,
		files:    files,
		metrics:  m,
		settings: settings.withDefaults(),
	}
}

func validateTerms(rate decimal.Decimal, weeks int32, deposit decimal.Decimal, mode domain.PaymentMode) error {
	switch {
	case rate.IsNegative():
		return domain.Invalid("weekly rate cannot be negative")
	case weeks < 0:
		return domain.Invalid("weeks cannot be negative")
	case deposit.IsNegative():
		return domain.Invalid("deposit cannot be negative")
	case !mode.Valid():
		return domain.Invalid("unknown payment mode %q", mode)
	}
	return nil
}

func appendNotes(existing, extra string) string {
	extra = strings.TrimSpace(extra)
	if extra == "" {
		return existing
	}
	if strings.TrimSpace(existing) == "" {
		return extra
	}
	return existing + "\n" + extra
}

func (s *rentalService) CreateRental(ctx context.Context, req CreateRentalRequest) (*domain.Rental, error) {
	logger.EnterMethod("rentalService.CreateRental", "clientID", req.ClientID, "vehicleID", req.VehicleID)

	if req.PaymentMode == "" {
		req.PaymentMode = domain.PaymentModeWeekly
	}
	if err := validateTerms(req.WeeklyRate, req.Weeks, req.Deposit, req.PaymentMode); err != nil {
		logger.ExitMethodWithError("rentalService.CreateRental", err)
		return nil, err
	}

	var rental *domain.Rental
	err := s.tx.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		client, err := repos.Clients.GetByID(ctx, req.ClientID)
		if err != nil {
			return err
		}
		vehicle, err := repos.Vehicles.GetByIDForUpdate(ctx, req.VehicleID)
		if err != nil {
			return err
		}
		if vehicle.Status != domain.VehicleStatusAvailable {
			return domain.ErrVehicleUnavailable.WithMessage("vehicle %s cannot be rented: status is %s", vehicle.Plate, vehicle.Status)
		}

		start := req.StartAt
		if start.IsZero() {
			start = s.settings.now()
		}
		mileage := vehicle.Mileage
		if req.StartMileage != nil {
			if *req.StartMileage < 0 {
				return domain.Invalid("start mileage cannot be negative")
			}
			mileage = *req.StartMileage
		}

		rt := &domain.Rental{
			VehicleID:     &vehicle.ID,
			ClientID:      client.ID,
			StartAt:       start,
			StartMileage:  mileage,
			WeeklyRate:    req.WeeklyRate.Round(2),
			Weeks:         req.Weeks,
			Deposit:       req.Deposit.Round(2),
			DepositStatus: domain.DepositStatusPending,
			PaymentMode:   req.PaymentMode,
			Status:        domain.RentalStatusActive,
			PaidWeeks:     0,
			Notes:         strings.TrimSpace(req.Notes),
		}
		if err := repos.Rentals.Create(ctx, rt); err != nil {
			return err
		}
		if err := Reserve(ctx, repos.Vehicles, vehicle); err != nil {
			return err
		}

		rt.ClientName = client.Name
		rt.VehiclePlate = vehicle.Plate
		rt.VehicleModel = vehicle.Model
		rental = rt
		return nil
	})
	if err != nil {
		logger.ExitMethodWithError("rentalService.CreateRental", err, "vehicleID", req.VehicleID)
		return nil, err
	}

	s.metrics.RentalEvent("created")
	logger.Info("Rental created", "rentalID", rental.ID, "vehicleID", req.VehicleID, "clientID", req.ClientID)
	logger.ExitMethod("rentalService.CreateRental", "rentalID", rental.ID)
	return rental, nil
}

func (s *rentalService) UpdateRental(ctx context.Context, id int32, req UpdateRentalRequest) (*UpdateRentalResult, error) {
	logger.EnterMethod("rentalService.UpdateRental", "rentalID", id)

	result := &UpdateRentalResult{}
	err := s.tx.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		rt, err := repos.Rentals.GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if rt.IsClosed() {
			return domain.ErrClosedRental
		}

		if req.ClientID != nil && *req.ClientID != rt.ClientID {
			if _, err := repos.Clients.GetByID(ctx, *req.ClientID); err != nil {
				return err
			}
			rt.ClientID = *req.ClientID
		}
		if req.StartAt != nil {
			rt.StartAt = *req.StartAt
		}
		if req.StartMileage != nil {
			if *req.StartMileage < 0 {
				return domain.Invalid("start mileage cannot be negative")
			}
			rt.StartMileage = *req.StartMileage
		}
		if req.WeeklyRate != nil {
			rt.WeeklyRate = req.WeeklyRate.Round(2)
		}
		if req.Weeks != nil {
			if *req.Weeks < rt.PaidWeeks {
				return domain.Invalid("weeks cannot be less than the %d weeks already paid", rt.PaidWeeks)
			}
			rt.Weeks = *req.Weeks
		}
		if req.Deposit != nil {
			rt.Deposit = req.Deposit.Round(2)
		}
		if req.PaymentMode != nil {
			rt.PaymentMode = *req.PaymentMode
		}
		if req.Notes != nil {
			rt.Notes = strings.TrimSpace(*req.Notes)
		}
		if err := validateTerms(rt.WeeklyRate, rt.Weeks, rt.Deposit, rt.PaymentMode); err != nil {
			return err
		}

		if req.VehicleID != nil && (rt.VehicleID == nil || *rt.VehicleID != *req.VehicleID) {
			if err := s.swapVehicle(ctx, repos, rt, *req.VehicleID); err != nil {
				return err
			}
		}

		if req.EndMileage != nil {
			if *req.EndMileage <= rt.StartMileage {
				return domain.ErrInvalidMileage.WithMessage("end mileage %d must be greater than start mileage %d", *req.EndMileage, rt.StartMileage)
			}
			end := *req.EndMileage
			rt.EndMileage = &end
			released, err := s.releaseFor(ctx, repos, rt, &end)
			if err != nil {
				return err
			}
			result.VehicleReleased = released
		}

		if err := repos.Rentals.Update(ctx, rt); err != nil {
			return err
		}
		result.Rental = rt
		return nil
	})
	if err != nil {
		logger.ExitMethodWithError("rentalService.UpdateRental", err, "rentalID", id)
		return nil, err
	}

	if result.VehicleReleased {
		logger.Warn("Vehicle released by rental correction", "rentalID", id)
	}
	logger.ExitMethod("rentalService.UpdateRental", "rentalID", id, "vehicleReleased", result.VehicleReleased)
	return result, nil
}

// swapVehicle moves an open rental to another available vehicle, giving the
// previous one back.
func (s *rentalService) swapVehicle(ctx context.Context, repos repository.Repositories, rt *domain.Rental, vehicleID int32) error {
	next, err := repos.Vehicles.GetByIDForUpdate(ctx, vehicleID)
	if err != nil {
		return err
	}
	if next.Status != domain.VehicleStatusAvailable {
		return domain.ErrVehicleUnavailable.WithMessage("vehicle %s cannot be rented: status is %s", next.Plate, next.Status)
	}
	if _, err := s.releaseFor(ctx, repos, rt, nil); err != nil {
		return err
	}
	if err := Reserve(ctx, repos.Vehicles, next); err != nil {
		return err
	}
	rt.VehicleID = &next.ID
	rt.VehiclePlate = next.Plate
	rt.VehicleModel = next.Model
	rt.EndMileage = nil
	return nil
}

// releaseFor releases the vehicle of rt, if it still has one. A vehicle that
// another rental holds is left alone, since rt gave it back earlier.
func (s *rentalService) releaseFor(ctx context.Context, repos repository.Repositories, rt *domain.Rental, endMileage *int32) (bool, error) {
	if rt.VehicleID == nil {
		return false, nil
	}
	v, err := repos.Vehicles.GetByIDForUpdate(ctx, *rt.VehicleID)
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	holder, err := repos.Rentals.HolderOf(ctx, v.ID)
	if err != nil {
		return false, err
	}
	if holder != nil && holder.ID != rt.ID {
		logger.Debug("Vehicle held by another rental, not released", "rentalID", rt.ID, "holderID", holder.ID, "vehicleID", v.ID)
		return false, nil
	}
	return Release(ctx, repos.Vehicles, v, endMileage)
}

func (s *rentalService) CloseRental(ctx context.Context, id int32, req CloseRentalRequest) (*CloseRentalResult, error) {
	logger.EnterMethod("rentalService.CloseRental", "rentalID", id, "endMileage", req.EndMileage)

	if req.DepositStatus != "" && !req.DepositStatus.Valid() {
		return nil, domain.Invalid("unknown deposit status %q", req.DepositStatus)
	}

	result := &CloseRentalResult{}
	err := s.tx.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		rt, err := repos.Rentals.GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if rt.IsClosed() {
			return domain.ErrClosedRental
		}
		if req.EndMileage <= rt.StartMileage {
			return domain.ErrInvalidMileage.WithMessage("end mileage %d must be greater than start mileage %d", req.EndMileage, rt.StartMileage)
		}

		end := req.EndMileage
		now := s.settings.now()
		rt.EndMileage = &end
		rt.EndAt = &now
		rt.Status = domain.RentalStatusClosed
		if req.DepositStatus != "" {
			rt.DepositStatus = req.DepositStatus
		}
		rt.Notes = appendNotes(rt.Notes, req.Notes)
		if err := repos.Rentals.Update(ctx, rt); err != nil {
			return err
		}

		released, err := s.releaseFor(ctx, repos, rt, &end)
		if err != nil {
			return err
		}
		result.Rental = rt
		result.VehicleReleased = released
		result.Message = DepositMessage(rt.DepositStatus)
		return nil
	})
	if err != nil {
		logger.ExitMethodWithError("rentalService.CloseRental", err, "rentalID", id)
		return nil, err
	}

	s.metrics.RentalEvent("closed")
	logger.Info("Rental closed", "rentalID", id, "depositStatus", result.Rental.DepositStatus)
	logger.ExitMethod("rentalService.CloseRental", "rentalID", id)
	return result, nil
}

func (s *rentalService) DeleteRental(ctx context.Context, id int32) error {
	logger.EnterMethod("rentalService.DeleteRental", "rentalID", id)

	var documentKey string
	err := s.tx.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		rt, err := repos.Rentals.GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !rt.IsClosed() {
			return domain.ErrOpenRental
		}
		released, err := s.releaseFor(ctx, repos, rt, nil)
		if err != nil {
			return err
		}
		if released {
			logger.Warn("Closed rental still held its vehicle, restored to available", "rentalID", id)
		}
		documentKey = rt.DocumentKey
		return repos.Rentals.Delete(ctx, id)
	})
	if err != nil {
		logger.ExitMethodWithError("rentalService.DeleteRental", err, "rentalID", id)
		return err
	}

	s.removeAttachment(ctx, documentKey)
	s.metrics.RentalEvent("deleted")
	logger.Info("Rental deleted", "rentalID", id)
	logger.ExitMethod("rentalService.DeleteRental", "rentalID", id)
	return nil
}

func (s *rentalService) GetRental(ctx context.Context, id int32) (*domain.Rental, error) {
	return s.store.Rentals.GetByID(ctx, id)
}

func (s *rentalService) ListRentals(ctx context.Context, query string, status domain.RentalStatus) ([]domain.Rental, error) {
	if status != "" && status != domain.RentalStatusActive && status != domain.RentalStatusClosed {
		return nil, domain.Invalid("unknown rental status %q", status)
	}
	return s.store.Rentals.List(ctx, strings.TrimSpace(query), status)
}

func (s *rentalService) AttachDocument(ctx context.Context, id int32, filename string, content io.Reader) (*domain.Rental, error) {
	rt, err := s.store.Rentals.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	key := storage.NewKey("rentals", filename, s.settings.now())
	if err := s.files.Save(ctx, key, content); err != nil {
		return nil, err
	}

	previous := rt.DocumentKey
	rt.DocumentKey = key
	if err := s.store.Rentals.Update(ctx, rt); err != nil {
		s.removeAttachment(ctx, key)
		return nil, err
	}
	s.removeAttachment(ctx, previous)
	return rt, nil
}

func (s *rentalService) removeAttachment(ctx context.Context, key string) {
	if key == "" || s.files == nil {
		return
	}
	if err := s.files.Delete(ctx, key); err != nil {
		logger.Warn("Failed to delete attachment", "key", key, "error", err)
	}
}
