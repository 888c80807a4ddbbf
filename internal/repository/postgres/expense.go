package postgres

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"locar-backend/internal/domain"
	"locar-backend/internal/repository"
)

type expenseRepository struct {
	db DBTX
}

func NewExpenseRepository(db DBTX) repository.ExpenseRepository {
	return &expenseRepository{db: db}
}

const expenseSelect = `SELECT e.id, e.vehicle_id, e.category, e.description, e.expense_date, e.amount,
	COALESCE(e.receipt_key, ''), v.plate
	FROM expenses e
	JOIN vehicles v ON v.id = e.vehicle_id`

func scanExpense(s rowScanner, e *domain.Expense) error {
	return s.Scan(&e.ID, &e.VehicleID, &e.Category, &e.Description, &e.Date, &e.Amount, &e.ReceiptKey, &e.VehiclePlate)
}

func (r *expenseRepository) Create(ctx context.Context, e *domain.Expense) error {
	query := `INSERT INTO expenses (vehicle_id, category, description, expense_date, amount, receipt_key)
	          VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`
	err := r.db.QueryRowContext(ctx, query, e.VehicleID, e.Category, e.Description, e.Date, e.Amount, nullString(e.ReceiptKey)).Scan(&e.ID)
	return mapError(err, "expense", e.ID)
}

func (r *expenseRepository) GetByID(ctx context.Context, id int32) (*domain.Expense, error) {
	e := &domain.Expense{}
	if err := scanExpense(r.db.QueryRowContext(ctx, expenseSelect+` WHERE e.id = $1`, id), e); err != nil {
		return nil, mapError(err, "expense", id)
	}
	return e, nil
}

func (r *expenseRepository) Update(ctx context.Context, e *domain.Expense) error {
	query := `UPDATE expenses SET vehicle_id=$1, category=$2, description=$3, expense_date=$4, amount=$5, receipt_key=$6 WHERE id=$7`
	res, err := r.db.ExecContext(ctx, query, e.VehicleID, e.Category, e.Description, e.Date, e.Amount, nullString(e.ReceiptKey), e.ID)
	if err != nil {
		return mapError(err, "expense", e.ID)
	}
	return requireAffected(res, "expense", e.ID)
}

func (r *expenseRepository) Delete(ctx context.Context, id int32) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM expenses WHERE id = $1`, id)
	if err != nil {
		return mapError(err, "expense", id)
	}
	return requireAffected(res, "expense", id)
}

func (r *expenseRepository) List(ctx context.Context, f domain.ExpenseFilter) ([]domain.Expense, error) {
	query := expenseSelect + ` WHERE 1=1`
	args := []interface{}{}
	argIdx := 1
	if f.VehicleID > 0 {
		query += fmt.Sprintf(" AND e.vehicle_id = $%d", argIdx)
		args = append(args, f.VehicleID)
		argIdx++
	}
	if f.Category != "" {
		query += fmt.Sprintf(" AND e.category = $%d", argIdx)
		args = append(args, f.Category)
		argIdx++
	}
	if f.Month > 0 {
		query += fmt.Sprintf(" AND EXTRACT(MONTH FROM e.expense_date) = $%d", argIdx)
		args = append(args, f.Month)
		argIdx++
	}
	if f.Year > 0 {
		query += fmt.Sprintf(" AND EXTRACT(YEAR FROM e.expense_date) = $%d", argIdx)
		args = append(args, f.Year)
	}
	query += " ORDER BY e.expense_date DESC, e.id DESC"
	return r.list(ctx, query, args...)
}

func (r *expenseRepository) ListByDateRange(ctx context.Context, w domain.DateWindow) ([]domain.Expense, error) {
	query := expenseSelect + ` WHERE e.expense_date BETWEEN $1 AND $2 ORDER BY e.expense_date, e.id`
	return r.list(ctx, query, w.Start, w.End)
}

func (r *expenseRepository) list(ctx context.Context, query string, args ...any) ([]domain.Expense, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var expenses []domain.Expense
	for rows.Next() {
		var e domain.Expense
		if err := scanExpense(rows, &e); err != nil {
			return nil, err
		}
		expenses = append(expenses, e)
	}
	return expenses, rows.Err()
}

func (r *expenseRepository) SumByVehicle(ctx context.Context, vehicleID int32) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.db.QueryRowContext(ctx, `SELECT COALESCE(SUM(amount), 0) FROM expenses WHERE vehicle_id = $1`, vehicleID).Scan(&total)
	return total, err
}

func (r *expenseRepository) Years(ctx context.Context) ([]int, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT EXTRACT(YEAR FROM expense_date)::int AS y FROM expenses ORDER BY y DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var years []int
	for rows.Next() {
		var y int
		if err := rows.Scan(&y); err != nil {
			return nil, err
		}
		years = append(years, y)
	}
	return years, rows.Err()
}
