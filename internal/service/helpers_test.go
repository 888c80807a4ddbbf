package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"locar-backend/internal/domain"
	"locar-backend/internal/repository"
	"locar-backend/internal/repository/memory"
	"locar-backend/internal/storage"
)

var seq int

var testStart = time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC) // a Monday

type testEnv struct {
	store    *memory.Store
	files    *storage.LocalStore
	settings Settings
	now      time.Time
	rentals  RentalService
	billing  BillingService
	reports  ReportService
	vehicles VehicleService
	clients  ClientService
	expenses ExpenseService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	files, err := storage.NewLocalStore(t.TempDir())
	require.NoError(t, err)

	env := &testEnv{store: memory.NewStore(), files: files, now: testStart.AddDate(0, 0, 15)}
	env.settings = Settings{
		Location: time.UTC,
		Now:      func() time.Time { return env.now },
	}
	env.rentals = NewRentalService(env.store.Repositories, env.store, files, nil, env.settings)
	env.billing = NewBillingService(env.store.Repositories, env.store, nil, env.settings)
	env.reports = NewReportService(env.store.Repositories, env.settings)
	env.vehicles = NewVehicleService(env.store.Repositories)
	env.clients = NewClientService(env.store.Repositories, files)
	env.expenses = NewExpenseService(env.store.Repositories, files)
	return env
}

func (e *testEnv) client(t *testing.T, name, taxID string) *domain.Client {
	t.Helper()
	c := &domain.Client{Name: name, TaxID: taxID, BirthDate: time.Date(1990, 5, 1, 0, 0, 0, 0, time.UTC)}
	require.NoError(t, e.clients.CreateClient(context.Background(), c))
	return c
}

func (e *testEnv) vehicle(t *testing.T, plate string, status domain.VehicleStatus) *domain.Vehicle {
	t.Helper()
	v := &domain.Vehicle{Plate: plate, Make: "Fiat", Model: "Argo " + plate, Year: 2022, Mileage: 1000, Status: domain.VehicleStatusAvailable}
	require.NoError(t, e.vehicles.CreateVehicle(context.Background(), v))
	if status != domain.VehicleStatusAvailable {
		v.Status = status
		require.NoError(t, e.store.Vehicles.Update(context.Background(), v))
	}
	return v
}

func (e *testEnv) rental(t *testing.T, rate string, weeks int32) (*domain.Rental, *domain.Vehicle) {
	t.Helper()
	seq++
	c := e.client(t, fmt.Sprintf("Client %d", seq), fmt.Sprintf("tax-%d", seq))
	v := e.vehicle(t, fmt.Sprintf("TST%04d", seq), domain.VehicleStatusAvailable)
	rt, err := e.rentals.CreateRental(context.Background(), CreateRentalRequest{
		ClientID:    c.ID,
		VehicleID:   v.ID,
		StartAt:     testStart,
		WeeklyRate:  decimal.RequireFromString(rate),
		Weeks:       weeks,
		Deposit:     decimal.RequireFromString("300.00"),
		PaymentMode: domain.PaymentModeWeekly,
	})
	require.NoError(t, err)
	return rt, v
}

func (e *testEnv) vehicleState(t *testing.T, id int32) *domain.Vehicle {
	t.Helper()
	v, err := e.store.Vehicles.GetByID(context.Background(), id)
	require.NoError(t, err)
	return v
}

// failingTx runs the memory store transaction but swaps in repositories
// supplied by the test so failures can be injected mid-operation.
type failingTx struct {
	store *memory.Store
	wrap  func(repository.Repositories) repository.Repositories
}

func (f *failingTx) WithinTx(ctx context.Context, fn func(ctx context.Context, repos repository.Repositories) error) error {
	return f.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		return fn(ctx, f.wrap(repos))
	})
}

// MockVehicleRepo delegates reads to the real store and lets tests decide
// what Update returns.
type MockVehicleRepo struct {
	mock.Mock
	repository.VehicleRepository
}

func (m *MockVehicleRepo) Update(ctx context.Context, v *domain.Vehicle) error {
	args := m.Called(ctx, v)
	return args.Error(0)
}

type MockRentalRepo struct {
	mock.Mock
	repository.RentalRepository
}

func (m *MockRentalRepo) IncrementPaidWeeks(ctx context.Context, id, expected int32) error {
	args := m.Called(ctx, id, expected)
	return args.Error(0)
}
