package jobs

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"locar-backend/internal/config"
	"locar-backend/internal/domain"
	"locar-backend/internal/repository/memory"
	"locar-backend/internal/service"
)

type MockEmailService struct {
	mock.Mock
}

func (m *MockEmailService) SendInstallmentReminder(ctx context.Context, email, clientName string, item domain.Receivable) error {
	args := m.Called(ctx, email, clientName, item)
	return args.Error(0)
}

type fixture struct {
	store   *memory.Store
	rentals service.RentalService
	billing service.BillingService
	clients service.ClientService
	vehicle service.VehicleService
}

var start = time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	settings := service.Settings{
		Location: time.UTC,
		Now:      func() time.Time { return start.AddDate(0, 0, 12) },
	}
	return &fixture{
		store:   store,
		rentals: service.NewRentalService(store.Repositories, store, nil, nil, settings),
		billing: service.NewBillingService(store.Repositories, store, nil, settings),
		clients: service.NewClientService(store.Repositories, nil),
		vehicle: service.NewVehicleService(store.Repositories),
	}
}

// rent opens a weekly rental starting daysAfter days after the fixture start.
func (f *fixture) rent(t *testing.T, n int, email string, daysAfter int) *domain.Rental {
	t.Helper()
	ctx := context.Background()
	c := &domain.Client{Name: fmt.Sprintf("Client %d", n), TaxID: fmt.Sprintf("tax-%d", n), Email: email}
	require.NoError(t, f.clients.CreateClient(ctx, c))
	v := &domain.Vehicle{Plate: fmt.Sprintf("JOB%04d", n), Model: "Onix", Mileage: 100}
	require.NoError(t, f.vehicle.CreateVehicle(ctx, v))
	rt, err := f.rentals.CreateRental(ctx, service.CreateRentalRequest{
		ClientID: c.ID, VehicleID: v.ID,
		StartAt:    start.AddDate(0, 0, daysAfter),
		WeeklyRate: decimal.NewFromInt(400), Weeks: 4,
	})
	require.NoError(t, err)
	return rt
}

func (f *fixture) runner(email service.EmailService) *JobRunner {
	return NewJobRunner(f.store.Repositories, &Services{
		Billing: f.billing,
		Clients: f.clients,
		Email:   email,
	}, nil, &config.Config{})
}

func TestSendInstallmentReminders(t *testing.T) {
	f := newFixture(t)
	// now is Jan 13: due Jan 8 is overdue, due Jan 15 is upcoming, due Jan 22 is on track
	overdue := f.rent(t, 1, "late@example.com", 0)
	upcoming := f.rent(t, 2, "soon@example.com", 7)
	f.rent(t, 3, "fine@example.com", 14)
	f.rent(t, 4, "", 0)

	email := &MockEmailService{}
	email.On("SendInstallmentReminder", mock.Anything, "late@example.com", "Client 1",
		mock.MatchedBy(func(item domain.Receivable) bool {
			return item.Rental.ID == overdue.ID && item.DueStatus == domain.DueStatusOverdue
		})).Return(nil).Once()
	email.On("SendInstallmentReminder", mock.Anything, "soon@example.com", "Client 2",
		mock.MatchedBy(func(item domain.Receivable) bool {
			return item.Rental.ID == upcoming.ID && item.DueStatus == domain.DueStatusUpcoming
		})).Return(nil).Once()

	require.NoError(t, f.runner(email).SendInstallmentReminders())
	email.AssertExpectations(t)
	email.AssertNumberOfCalls(t, "SendInstallmentReminder", 2)
}

func TestSendInstallmentReminders_Failures(t *testing.T) {
	f := newFixture(t)
	f.rent(t, 1, "late@example.com", 0)

	email := &MockEmailService{}
	email.On("SendInstallmentReminder", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(errors.New("smtp unavailable"))

	err := f.runner(email).SendInstallmentReminders()
	assert.EqualError(t, err, "1 installment reminders failed")
}

func TestSendInstallmentReminders_NoEmailConfigured(t *testing.T) {
	f := newFixture(t)
	f.rent(t, 1, "late@example.com", 0)
	assert.NoError(t, f.runner(nil).SendInstallmentReminders())
}

func TestTakeSnapshot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.rent(t, 1, "", 0)
	f.rent(t, 2, "", 14)
	_, err := f.billing.RecordPayment(ctx, a.ID)
	require.NoError(t, err)

	idle := &domain.Vehicle{Plate: "IDLE001", Model: "Kwid"}
	require.NoError(t, f.vehicle.CreateVehicle(ctx, idle))

	snap, err := f.runner(nil).TakeSnapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, "2800.00", snap.Outstanding.StringFixed(2))
	assert.Equal(t, 2, snap.ByDueStatus[string(domain.DueStatusOnTrack)]+snap.ByDueStatus[string(domain.DueStatusUpcoming)])
	assert.Equal(t, int32(2), snap.Vehicles[domain.VehicleStatusRented])
	assert.Equal(t, int32(1), snap.Vehicles[domain.VehicleStatusAvailable])

	assert.NoError(t, f.runner(nil).RefreshMetrics())
}

func TestRunWithRecovery(t *testing.T) {
	jr := NewJobRunner(memory.NewStore().Repositories, &Services{}, nil, &config.Config{})

	err := jr.runWithRecovery("panicky", func(context.Context) error {
		panic("boom")
	})
	assert.ErrorContains(t, err, "panicked")

	err = jr.runWithRecovery("ok", func(ctx context.Context) error {
		_, hasDeadline := ctx.Deadline()
		assert.True(t, hasDeadline)
		return nil
	})
	assert.NoError(t, err)
}
