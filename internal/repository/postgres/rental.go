package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"locar-backend/internal/domain"
	"locar-backend/internal/logger"
	"locar-backend/internal/repository"
)

type rentalRepository struct {
	db DBTX
}

func NewRentalRepository(db DBTX) repository.RentalRepository {
	return &rentalRepository{db: db}
}

const rentalSelect = `SELECT r.id, r.vehicle_id, r.client_id, r.start_at, r.end_at, r.start_mileage, r.end_mileage,
	r.weekly_rate, r.weeks, r.deposit, r.deposit_status, r.payment_mode, r.status, r.paid_weeks,
	COALESCE(r.notes, ''), COALESCE(r.document_key, ''), r.created_at,
	c.name, COALESCE(v.plate, ''), COALESCE(v.model, '')
	FROM rentals r
	JOIN clients c ON c.id = r.client_id
	LEFT JOIN vehicles v ON v.id = r.vehicle_id`

func scanRental(s rowScanner, rt *domain.Rental) error {
	return s.Scan(&rt.ID, &rt.VehicleID, &rt.ClientID, &rt.StartAt, &rt.EndAt, &rt.StartMileage, &rt.EndMileage,
		&rt.WeeklyRate, &rt.Weeks, &rt.Deposit, &rt.DepositStatus, &rt.PaymentMode, &rt.Status, &rt.PaidWeeks,
		&rt.Notes, &rt.DocumentKey, &rt.CreatedAt,
		&rt.ClientName, &rt.VehiclePlate, &rt.VehicleModel)
}

func (r *rentalRepository) Create(ctx context.Context, rt *domain.Rental) error {
	logger.EnterMethod("rentalRepository.Create", "clientID", rt.ClientID, "vehicleID", rt.VehicleID)

	query := `INSERT INTO rentals (vehicle_id, client_id, start_at, end_at, start_mileage, end_mileage, weekly_rate, weeks,
	          deposit, deposit_status, payment_mode, status, paid_weeks, notes, document_key, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16) RETURNING id`
	rt.CreatedAt = time.Now()
	err := r.db.QueryRowContext(ctx, query, rt.VehicleID, rt.ClientID, rt.StartAt, rt.EndAt, rt.StartMileage, rt.EndMileage,
		rt.WeeklyRate, rt.Weeks, rt.Deposit, rt.DepositStatus, rt.PaymentMode, rt.Status, rt.PaidWeeks,
		rt.Notes, nullString(rt.DocumentKey), rt.CreatedAt).Scan(&rt.ID)
	if err != nil {
		logger.ExitMethodWithError("rentalRepository.Create", err, "clientID", rt.ClientID)
		return mapError(err, "rental", rt.ID)
	}

	logger.ExitMethod("rentalRepository.Create", "rentalID", rt.ID)
	return nil
}

func (r *rentalRepository) GetByID(ctx context.Context, id int32) (*domain.Rental, error) {
	rt := &domain.Rental{}
	if err := scanRental(r.db.QueryRowContext(ctx, rentalSelect+` WHERE r.id = $1`, id), rt); err != nil {
		return nil, mapError(err, "rental", id)
	}
	return rt, nil
}

func (r *rentalRepository) GetByIDForUpdate(ctx context.Context, id int32) (*domain.Rental, error) {
	logger.EnterMethod("rentalRepository.GetByIDForUpdate", "rentalID", id)

	rt := &domain.Rental{}
	if err := scanRental(r.db.QueryRowContext(ctx, rentalSelect+` WHERE r.id = $1 FOR UPDATE OF r`, id), rt); err != nil {
		logger.ExitMethodWithError("rentalRepository.GetByIDForUpdate", err, "rentalID", id)
		return nil, mapError(err, "rental", id)
	}

	logger.ExitMethod("rentalRepository.GetByIDForUpdate", "rentalID", id, "paidWeeks", rt.PaidWeeks)
	return rt, nil
}

// Update writes every mutable column except paid_weeks, which only moves
// through IncrementPaidWeeks.
func (r *rentalRepository) Update(ctx context.Context, rt *domain.Rental) error {
	query := `UPDATE rentals SET vehicle_id=$1, client_id=$2, start_at=$3, end_at=$4, start_mileage=$5, end_mileage=$6,
	          weekly_rate=$7, weeks=$8, deposit=$9, deposit_status=$10, payment_mode=$11, status=$12, notes=$13, document_key=$14
	          WHERE id=$15`
	res, err := r.db.ExecContext(ctx, query, rt.VehicleID, rt.ClientID, rt.StartAt, rt.EndAt, rt.StartMileage, rt.EndMileage,
		rt.WeeklyRate, rt.Weeks, rt.Deposit, rt.DepositStatus, rt.PaymentMode, rt.Status, rt.Notes, nullString(rt.DocumentKey), rt.ID)
	if err != nil {
		return mapError(err, "rental", rt.ID)
	}
	return requireAffected(res, "rental", rt.ID)
}

func (r *rentalRepository) HolderOf(ctx context.Context, vehicleID int32) (*domain.Rental, error) {
	logger.EnterMethod("rentalRepository.HolderOf", "vehicleID", vehicleID)

	rt := &domain.Rental{}
	err := scanRental(r.db.QueryRowContext(ctx,
		rentalSelect+` WHERE r.vehicle_id = $1 AND r.status = 'active' AND r.end_mileage IS NULL LIMIT 1`, vehicleID), rt)
	if errors.Is(err, sql.ErrNoRows) {
		logger.ExitMethod("rentalRepository.HolderOf", "vehicleID", vehicleID, "held", false)
		return nil, nil
	}
	if err != nil {
		logger.ExitMethodWithError("rentalRepository.HolderOf", err, "vehicleID", vehicleID)
		return nil, mapError(err, "vehicle", vehicleID)
	}

	logger.ExitMethod("rentalRepository.HolderOf", "vehicleID", vehicleID, "rentalID", rt.ID)
	return rt, nil
}

func (r *rentalRepository) IncrementPaidWeeks(ctx context.Context, id, expected int32) error {
	logger.EnterMethod("rentalRepository.IncrementPaidWeeks", "rentalID", id, "expected", expected)

	query := `UPDATE rentals SET paid_weeks = paid_weeks + 1
	          WHERE id = $1 AND paid_weeks = $2 AND paid_weeks < weeks AND status = 'active'`
	res, err := r.db.ExecContext(ctx, query, id, expected)
	if err != nil {
		logger.ExitMethodWithError("rentalRepository.IncrementPaidWeeks", err, "rentalID", id)
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		logger.Warn("Paid weeks guard rejected increment", "rentalID", id, "expected", expected)
		return domain.ErrConcurrentUpdate.WithMessage("rental %d was modified by another request", id)
	}

	logger.ExitMethod("rentalRepository.IncrementPaidWeeks", "rentalID", id)
	return nil
}

func (r *rentalRepository) Delete(ctx context.Context, id int32) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM rentals WHERE id = $1`, id)
	if err != nil {
		return mapError(err, "rental", id)
	}
	return requireAffected(res, "rental", id)
}

func (r *rentalRepository) List(ctx context.Context, q string, status domain.RentalStatus) ([]domain.Rental, error) {
	query := rentalSelect + ` WHERE 1=1`
	args := []interface{}{}
	argIdx := 1
	if q != "" {
		query += fmt.Sprintf(" AND (c.name ILIKE $%d OR v.plate ILIKE $%d OR v.model ILIKE $%d)", argIdx, argIdx, argIdx)
		args = append(args, "%"+q+"%")
		argIdx++
	}
	if status != "" {
		query += fmt.Sprintf(" AND r.status = $%d", argIdx)
		args = append(args, status)
	}
	query += " ORDER BY r.status, r.created_at DESC"
	return r.list(ctx, query, args...)
}

func (r *rentalRepository) ListStartedBefore(ctx context.Context, before time.Time) ([]domain.Rental, error) {
	query := rentalSelect + ` WHERE r.status = 'active' OR r.start_at < $1 ORDER BY r.start_at`
	return r.list(ctx, query, before)
}

func (r *rentalRepository) list(ctx context.Context, query string, args ...any) ([]domain.Rental, error) {
	logger.DatabaseCall("rentals.list", query)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		logger.DatabaseResult("rentals.list", 0, err)
		return nil, err
	}
	defer rows.Close()

	var rentals []domain.Rental
	for rows.Next() {
		var rt domain.Rental
		if err := scanRental(rows, &rt); err != nil {
			return nil, err
		}
		rentals = append(rentals, rt)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	logger.DatabaseResult("rentals.list", int64(len(rentals)), nil)
	return rentals, nil
}

func (r *rentalRepository) CountByClient(ctx context.Context, clientID int32) (int32, error) {
	var count int32
	err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM rentals WHERE client_id = $1`, clientID).Scan(&count)
	return count, err
}

func (r *rentalRepository) CountByVehicle(ctx context.Context, vehicleID int32) (int32, error) {
	var count int32
	err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM rentals WHERE vehicle_id = $1`, vehicleID).Scan(&count)
	return count, err
}
