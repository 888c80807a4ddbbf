package service

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"locar-backend/internal/domain"
	"locar-backend/internal/logger"
	"locar-backend/internal/repository"
	"locar-backend/internal/storage"
)

const maxExpenseDescription = 400

type expenseService struct {
	store repository.Repositories
	files storage.AttachmentStore
	now   func() time.Time
}

func NewExpenseService(store repository.Repositories, files storage.AttachmentStore) ExpenseService {
	return &expenseService{store: store, files: files, now: time.Now}
}

func (s *expenseService) validate(ctx context.Context, e *domain.Expense) error {
	e.Description = strings.TrimSpace(e.Description)
	switch {
	case !e.Category.Valid():
		return domain.Invalid("unknown expense category %q", e.Category)
	case e.Description == "":
		return domain.Invalid("description is required")
	case len([]rune(e.Description)) > maxExpenseDescription:
		return domain.Invalid("description must have at most %d characters", maxExpenseDescription)
	case e.Amount.IsNegative():
		return domain.Invalid("amount cannot be negative")
	}
	if e.Date.IsZero() {
		now := s.now()
		e.Date = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	}
	e.Amount = e.Amount.Round(2)
	if _, err := s.store.Vehicles.GetByID(ctx, e.VehicleID); err != nil {
		return err
	}
	return nil
}

func (s *expenseService) CreateExpense(ctx context.Context, e *domain.Expense) error {
	if err := s.validate(ctx, e); err != nil {
		return err
	}
	if err := s.store.Expenses.Create(ctx, e); err != nil {
		return err
	}
	logger.Info("Expense created", "expenseID", e.ID, "vehicleID", e.VehicleID, "category", e.Category)
	return nil
}

func (s *expenseService) GetExpense(ctx context.Context, id int32) (*domain.Expense, error) {
	return s.store.Expenses.GetByID(ctx, id)
}

func (s *expenseService) UpdateExpense(ctx context.Context, e *domain.Expense) error {
	current, err := s.store.Expenses.GetByID(ctx, e.ID)
	if err != nil {
		return err
	}
	if err := s.validate(ctx, e); err != nil {
		return err
	}
	if e.ReceiptKey == "" {
		e.ReceiptKey = current.ReceiptKey
	}
	return s.store.Expenses.Update(ctx, e)
}

func (s *expenseService) DeleteExpense(ctx context.Context, id int32) error {
	e, err := s.store.Expenses.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.Expenses.Delete(ctx, id); err != nil {
		return err
	}
	if e.ReceiptKey != "" {
		if err := s.files.Delete(ctx, e.ReceiptKey); err != nil {
			logger.Warn("Failed to delete receipt", "expenseID", id, "error", err)
		}
	}
	return nil
}

// ListExpenses returns the filtered expenses with their total and the years
// available for filtering.
func (s *expenseService) ListExpenses(ctx context.Context, f domain.ExpenseFilter) (*ExpenseListing, error) {
	if f.Category != "" && !f.Category.Valid() {
		return nil, domain.Invalid("unknown expense category %q", f.Category)
	}
	if f.Month < 0 || f.Month > 12 {
		return nil, domain.Invalid("month must be between 1 and 12")
	}

	items, err := s.store.Expenses.List(ctx, f)
	if err != nil {
		return nil, err
	}
	years, err := s.store.Expenses.Years(ctx)
	if err != nil {
		return nil, err
	}

	total := decimal.Zero
	for _, e := range items {
		total = total.Add(e.Amount)
	}
	return &ExpenseListing{Items: items, Total: total, Years: years}, nil
}

func (s *expenseService) AttachReceipt(ctx context.Context, id int32, filename string, content io.Reader) (*domain.Expense, error) {
	e, err := s.store.Expenses.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	key := storage.NewKey("receipts", filename, s.now())
	if err := s.files.Save(ctx, key, content); err != nil {
		return nil, err
	}

	previous := e.ReceiptKey
	e.ReceiptKey = key
	if err := s.store.Expenses.Update(ctx, e); err != nil {
		_ = s.files.Delete(ctx, key)
		return nil, err
	}
	if previous != "" {
		_ = s.files.Delete(ctx, previous)
	}
	return e, nil
}
