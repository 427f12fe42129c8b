package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/ManuelReschke/JobFox/internal/pkg/env"
	"github.com/ManuelReschke/JobFox/internal/pkg/pricing"
)

// Target is the work the scheduler drives, satisfied by *engine.Engine.
type Target interface {
	RefreshRates(ctx context.Context) bool
	ReloadCatalog(ctx context.Context) error
}

type PricingScheduler struct {
	cron            *cron.Cron
	target          Target
	ratesSchedule   string
	catalogSchedule string
	timeout         time.Duration
}

// NewScheduler reads RATES_REFRESH_SCHEDULE and CATALOG_RELOAD_SCHEDULE.
// An empty catalog schedule disables catalog reloads.
func NewScheduler(target Target) *PricingScheduler {
	return &PricingScheduler{
		cron:            cron.New(),
		target:          target,
		ratesSchedule:   env.GetEnv("RATES_REFRESH_SCHEDULE", "@every 1h"),
		catalogSchedule: env.GetEnv("CATALOG_RELOAD_SCHEDULE", "@every 15m"),
		timeout:         env.GetEnvDuration("SCHEDULER_TASK_TIMEOUT", 30*time.Second),
	}
}

func (s *PricingScheduler) Start() error {
	_, err := s.cron.AddFunc(s.ratesSchedule, func() {
		log.Printf("[Scheduler] Starting rate refresh task (Schedule: %s)...", s.ratesSchedule)
		s.RunRateRefresh()
	})
	if err != nil {
		return fmt.Errorf("schedule rate refresh %q: %w", s.ratesSchedule, err)
	}

	if s.catalogSchedule != "" {
		if _, err := s.cron.AddFunc(s.catalogSchedule, func() {
			log.Printf("[Scheduler] Starting catalog reload task (Schedule: %s)...", s.catalogSchedule)
			s.RunCatalogReload()
		}); err != nil {
			return fmt.Errorf("schedule catalog reload %q: %w", s.catalogSchedule, err)
		}
	}

	s.cron.Start()
	log.Printf("Scheduler started. Rates: %s, catalog: %s", s.ratesSchedule, s.catalogSchedule)
	return nil
}

// Stop waits for running tasks to finish.
func (s *PricingScheduler) Stop() {
	<-s.cron.Stop().Done()
}

// RunRateRefresh only fetches when the rate table is stale.
func (s *PricingScheduler) RunRateRefresh() bool {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	refreshed := s.target.RefreshRates(ctx)
	if refreshed {
		log.Printf("[Scheduler] Exchange rates refreshed")
	}
	return refreshed
}

func (s *PricingScheduler) RunCatalogReload() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	err := s.target.ReloadCatalog(ctx)
	switch {
	case errors.Is(err, pricing.ErrNoSource):
		return nil
	case err != nil:
		log.Printf("[Scheduler] Catalog reload failed: %v", err)
	}
	return err
}
