package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/yourorg/workforce/internal/domain"
	"github.com/yourorg/workforce/internal/observability/metrics"
	"github.com/yourorg/workforce/internal/reliability/retry"
	"github.com/yourorg/workforce/internal/service"
)

// MaintenanceWorker periodically sweeps the ledger: it expires fixed-term
// contracts whose end date has passed and keeps the headcount gauge in
// step with the database after restarts.
type MaintenanceWorker struct {
	ledger      domain.LedgerRepository
	employments *service.EmploymentService
	dashboard   *service.DashboardService
	hierarchy   *service.HierarchyService
	logger      *slog.Logger
	interval    time.Duration
	retryCfg    *retry.Config
}

// NewMaintenanceWorker creates a new maintenance worker. dashboard and
// hierarchy may be nil; they are only used to invalidate cached reads
// after expiries.
func NewMaintenanceWorker(
	ledger domain.LedgerRepository,
	employments *service.EmploymentService,
	dashboard *service.DashboardService,
	hierarchy *service.HierarchyService,
	logger *slog.Logger,
	interval time.Duration,
) *MaintenanceWorker {
	return &MaintenanceWorker{
		ledger:      ledger,
		employments: employments,
		dashboard:   dashboard,
		hierarchy:   hierarchy,
		logger:      logger,
		interval:    interval,
		retryCfg:    retry.DefaultConfig(),
	}
}

// Start begins the maintenance loop. It runs one sweep immediately so a
// restarted instance converges without waiting a full interval.
func (w *MaintenanceWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("maintenance worker started", slog.Duration("interval", w.interval))
	w.sweep(ctx)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("maintenance worker stopped")
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

// sweep runs one maintenance pass.
func (w *MaintenanceWorker) sweep(ctx context.Context) {
	contracts, err := retry.Do(ctx, w.retryCfg, w.logger, "list contracts", func(ctx context.Context) ([]*domain.Employment, error) {
		return w.ledger.List(ctx)
	})
	if err != nil {
		w.logger.Error("maintenance sweep failed", slog.String("error", err.Error()))
		return
	}

	today := time.Now().UTC().Truncate(24 * time.Hour)
	active := 0
	expired := 0

	for _, c := range contracts {
		if !c.CurrentStatus.IsActive() {
			continue
		}
		active++
		if c.EndDate == nil || !c.EndDate.Before(today) {
			continue
		}

		// Fixed-term contract past its end date: close it with the
		// contract-end reason, dated to its declared end.
		end := *c.EndDate
		if _, err := w.employments.Terminate(ctx, c.ID, domain.ExitContractEnd, &end, "expired by maintenance sweep"); err != nil {
			w.logger.Error("failed to expire contract",
				slog.Int64("employment_id", c.ID),
				slog.String("error", err.Error()),
			)
			continue
		}
		w.logger.Info("contract expired",
			slog.Int64("employment_id", c.ID),
			slog.Time("end_date", end),
		)
		active--
		expired++
	}

	metrics.SetHeadcount(active)
	if expired > 0 {
		if w.dashboard != nil {
			w.dashboard.Invalidate(ctx)
		}
		if w.hierarchy != nil {
			w.hierarchy.InvalidateCharts()
		}
	}
}
