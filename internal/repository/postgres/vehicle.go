package postgres

import (
	"context"
	"fmt"
	"time"

	"locar-backend/internal/domain"
	"locar-backend/internal/repository"
)

type vehicleRepository struct {
	db DBTX
}

func NewVehicleRepository(db DBTX) repository.VehicleRepository {
	return &vehicleRepository{db: db}
}

const vehicleColumns = `id, plate, make, model, year, COALESCE(chassis, ''), mileage, fipe_value,
	COALESCE(renavam, ''), COALESCE(document_key, ''), COALESCE(photo_key, ''), status, created_at`

func scanVehicle(s rowScanner, v *domain.Vehicle) error {
	return s.Scan(&v.ID, &v.Plate, &v.Make, &v.Model, &v.Year, &v.Chassis, &v.Mileage, &v.FipeValue,
		&v.Renavam, &v.DocumentKey, &v.PhotoKey, &v.Status, &v.CreatedAt)
}

func (r *vehicleRepository) Create(ctx context.Context, v *domain.Vehicle) error {
	query := `INSERT INTO vehicles (plate, make, model, year, chassis, mileage, fipe_value, renavam, document_key, photo_key, status, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12) RETURNING id`
	v.CreatedAt = time.Now()
	err := r.db.QueryRowContext(ctx, query, v.Plate, v.Make, v.Model, v.Year, nullString(v.Chassis), v.Mileage, v.FipeValue,
		nullString(v.Renavam), nullString(v.DocumentKey), nullString(v.PhotoKey), v.Status, v.CreatedAt).Scan(&v.ID)
	return mapError(err, "vehicle", v.ID)
}

func (r *vehicleRepository) GetByID(ctx context.Context, id int32) (*domain.Vehicle, error) {
	v := &domain.Vehicle{}
	query := `SELECT ` + vehicleColumns + ` FROM vehicles WHERE id = $1`
	if err := scanVehicle(r.db.QueryRowContext(ctx, query, id), v); err != nil {
		return nil, mapError(err, "vehicle", id)
	}
	return v, nil
}

func (r *vehicleRepository) GetByIDForUpdate(ctx context.Context, id int32) (*domain.Vehicle, error) {
	v := &domain.Vehicle{}
	query := `SELECT ` + vehicleColumns + ` FROM vehicles WHERE id = $1 FOR UPDATE`
	if err := scanVehicle(r.db.QueryRowContext(ctx, query, id), v); err != nil {
		return nil, mapError(err, "vehicle", id)
	}
	return v, nil
}

func (r *vehicleRepository) Update(ctx context.Context, v *domain.Vehicle) error {
	query := `UPDATE vehicles SET plate=$1, make=$2, model=$3, year=$4, chassis=$5, mileage=$6, fipe_value=$7,
	          renavam=$8, document_key=$9, photo_key=$10, status=$11 WHERE id=$12`
	res, err := r.db.ExecContext(ctx, query, v.Plate, v.Make, v.Model, v.Year, nullString(v.Chassis), v.Mileage, v.FipeValue,
		nullString(v.Renavam), nullString(v.DocumentKey), nullString(v.PhotoKey), v.Status, v.ID)
	if err != nil {
		return mapError(err, "vehicle", v.ID)
	}
	return requireAffected(res, "vehicle", v.ID)
}

func (r *vehicleRepository) Delete(ctx context.Context, id int32) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM vehicles WHERE id = $1`, id)
	if err != nil {
		return mapError(err, "vehicle", id)
	}
	return requireAffected(res, "vehicle", id)
}

func (r *vehicleRepository) List(ctx context.Context, q string, status domain.VehicleStatus) ([]domain.Vehicle, error) {
	query := `SELECT ` + vehicleColumns + ` FROM vehicles WHERE 1=1`
	args := []interface{}{}
	argIdx := 1
	if q != "" {
		query += fmt.Sprintf(" AND (model ILIKE $%d OR plate ILIKE $%d OR make ILIKE $%d)", argIdx, argIdx, argIdx)
		args = append(args, "%"+q+"%")
		argIdx++
	}
	if status != "" {
		query += fmt.Sprintf(" AND status = $%d", argIdx)
		args = append(args, status)
	}
	query += " ORDER BY status DESC, id DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var vehicles []domain.Vehicle
	for rows.Next() {
		var v domain.Vehicle
		if err := scanVehicle(rows, &v); err != nil {
			return nil, err
		}
		vehicles = append(vehicles, v)
	}
	return vehicles, rows.Err()
}

func (r *vehicleRepository) Count(ctx context.Context) (int32, error) {
	var count int32
	err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM vehicles`).Scan(&count)
	return count, err
}

func (r *vehicleRepository) CountByStatus(ctx context.Context, status domain.VehicleStatus) (int32, error) {
	var count int32
	err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM vehicles WHERE status = $1`, status).Scan(&count)
	return count, err
}
