package postgres

import (
	"context"
	"database/sql"
	"errors"

	"locar-backend/internal/domain"
	"locar-backend/internal/logger"
	"locar-backend/internal/repository"
)

type paymentRepository struct {
	db DBTX
}

func NewPaymentRepository(db DBTX) repository.PaymentRepository {
	return &paymentRepository{db: db}
}

func (r *paymentRepository) Create(ctx context.Context, p *domain.Payment) error {
	logger.EnterMethod("paymentRepository.Create", "rentalID", p.RentalID, "week", p.Week)

	query := `INSERT INTO payments (rental_id, week, amount, paid_at) VALUES ($1, $2, $3, $4) RETURNING id`
	err := r.db.QueryRowContext(ctx, query, p.RentalID, p.Week, p.Amount, p.PaidAt).Scan(&p.ID)
	if err != nil {
		logger.ExitMethodWithError("paymentRepository.Create", err, "rentalID", p.RentalID)
		return mapError(err, "payment", p.ID)
	}

	logger.ExitMethod("paymentRepository.Create", "paymentID", p.ID)
	return nil
}

func (r *paymentRepository) ListByRental(ctx context.Context, rentalID int32) ([]domain.Payment, error) {
	query := `SELECT id, rental_id, week, amount, paid_at FROM payments WHERE rental_id = $1 ORDER BY paid_at, id`
	rows, err := r.db.QueryContext(ctx, query, rentalID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []domain.Payment
	for rows.Next() {
		var p domain.Payment
		if err := rows.Scan(&p.ID, &p.RentalID, &p.Week, &p.Amount, &p.PaidAt); err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

func (r *paymentRepository) LastByRental(ctx context.Context, rentalID int32) (*domain.Payment, error) {
	p := &domain.Payment{}
	query := `SELECT id, rental_id, week, amount, paid_at FROM payments WHERE rental_id = $1 ORDER BY paid_at DESC, id DESC LIMIT 1`
	err := r.db.QueryRowContext(ctx, query, rentalID).Scan(&p.ID, &p.RentalID, &p.Week, &p.Amount, &p.PaidAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}
