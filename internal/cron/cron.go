// Package cron runs the local maintenance sweep: stale pending batches are
// dropped so crashed clients do not pin server state, and long-idle devices
// are surfaced in the logs.
package cron

import (
	"context"

	"github.com/robfig/cron/v3"

	"github.com/syncgate/syncgate/config"
	"github.com/syncgate/syncgate/internal/logger"
	"github.com/syncgate/syncgate/internal/repository"
	"github.com/syncgate/syncgate/internal/tracing"
)

type Maintenance struct {
	cfg   *config.CronConfig
	log   logger.Logger
	repos *repository.Repositories
	cron  *cron.Cron
}

func NewMaintenance(cfg *config.CronConfig, log logger.Logger, repos *repository.Repositories) *Maintenance {
	return &Maintenance{
		cfg:   cfg,
		log:   log,
		repos: repos,
		cron:  cron.New(),
	}
}

func (m *Maintenance) Start() error {
	_, err := m.cron.AddFunc(m.cfg.MaintenanceSchedule, m.sweep)
	if err != nil {
		return err
	}
	m.cron.Start()
	m.log.Infof("maintenance sweep scheduled: %s", m.cfg.MaintenanceSchedule)
	return nil
}

// Stop waits for a running sweep to finish.
func (m *Maintenance) Stop() {
	<-m.cron.Stop().Done()
}

func (m *Maintenance) sweep() {
	span, ctx := tracing.StartTracerSpan(context.Background(), "maintenance.sweep")
	defer span.Finish()

	cleared, err := m.repos.SyncStateRepository.ClearStalePending(ctx, m.cfg.StalePendingHours)
	if err != nil {
		tracing.TraceErr(span, err)
		m.log.Errorf("maintenance: clearing stale pending batches: %v", err)
	} else if cleared > 0 {
		m.log.Infof("maintenance: cleared %d pending batches older than %dh", cleared, m.cfg.StalePendingHours)
	}

	idle, err := m.repos.DeviceRepository.ListIdleSince(ctx, m.cfg.IdleDeviceDays)
	if err != nil {
		tracing.TraceErr(span, err)
		m.log.Errorf("maintenance: listing idle devices: %v", err)
		return
	}
	for _, d := range idle {
		m.log.Infof("maintenance: device %s of principal %d idle since %s",
			d.DeviceID, d.PrincipalID, d.LastSeen.Format("2006-01-02"))
	}
}
