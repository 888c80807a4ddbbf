package jobs

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"locar-backend/internal/domain"
	"locar-backend/internal/logger"
)

var vehicleStatuses = []domain.VehicleStatus{
	domain.VehicleStatusAvailable,
	domain.VehicleStatusRented,
	domain.VehicleStatusMaintenance,
	domain.VehicleStatusInactive,
}

// Snapshot is what RefreshMetrics publishes.
type Snapshot struct {
	Outstanding decimal.Decimal
	ByDueStatus map[string]int
	Vehicles    map[domain.VehicleStatus]int32
}

// TakeSnapshot reads the receivables board and the fleet counts.
func (jr *JobRunner) TakeSnapshot(ctx context.Context) (*Snapshot, error) {
	groups, err := jr.services.Billing.Receivables(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("failed to load receivables: %w", err)
	}

	snap := &Snapshot{
		Outstanding: decimal.Zero,
		ByDueStatus: map[string]int{},
		Vehicles:    map[domain.VehicleStatus]int32{},
	}
	for _, g := range groups {
		snap.Outstanding = snap.Outstanding.Add(g.Total)
		for _, item := range g.Items {
			snap.ByDueStatus[string(item.DueStatus)]++
		}
	}
	for _, status := range vehicleStatuses {
		n, err := jr.store.Vehicles.CountByStatus(ctx, status)
		if err != nil {
			return nil, fmt.Errorf("failed to count %s vehicles: %w", status, err)
		}
		snap.Vehicles[status] = n
	}
	return snap, nil
}

// RefreshMetrics updates the receivables and fleet gauges.
func (jr *JobRunner) RefreshMetrics() error {
	return jr.runWithRecovery(JobRefreshMetrics, func(ctx context.Context) error {
		snap, err := jr.TakeSnapshot(ctx)
		if err != nil {
			return err
		}
		jr.metrics.SetReceivables(snap.Outstanding, snap.ByDueStatus)
		for status, n := range snap.Vehicles {
			jr.metrics.SetVehicles(string(status), n)
		}
		logger.WithJob(JobRefreshMetrics).Debug("Gauges refreshed",
			"outstanding", snap.Outstanding.StringFixed(2),
			"overdue", snap.ByDueStatus[string(domain.DueStatusOverdue)])
		return nil
	})
}
