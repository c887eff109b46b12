// Package cleanup implements C7, the recurring maintenance scheduler
// that expires, consolidates, and decays memories in the durable store.
package cleanup

import (
	"context"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/engram-ai/engram/internal/config"
	"github.com/engram-ai/engram/internal/port/recordstore"
)

// Summary is the short journal every job produces (§4.5: "journal a
// short summary {deleted, merged, demoted}").
type Summary struct {
	Job     string `json:"job"`
	Deleted int    `json:"deleted"`
	Merged  int    `json:"merged"`
	Demoted int    `json:"demoted"`
}

// Scheduler runs the daily/weekly/monthly jobs against a record store on
// the cron triples configured in config.Cleanup.
type Scheduler struct {
	store recordstore.Store
	log   *slog.Logger
	cron  *cron.Cron

	mu       sync.Mutex
	running  map[string]bool
	journal  []Summary
	journalN int
}

// New constructs a Scheduler. It does not start running jobs until Start
// is called.
func New(store recordstore.Store, log *slog.Logger) *Scheduler {
	if log == nil {
		log = slog.Default()
	}
	return &Scheduler{
		store:    store,
		log:      log,
		cron:     cron.New(),
		running:  make(map[string]bool),
		journalN: 100,
	}
}

// Start registers the three jobs on cfg's cron triples and starts the
// scheduler's own goroutine. Each job is guarded so only one instance of
// a given job type runs at a time (§4.4: "capped at one in-flight job
// per job type").
func (s *Scheduler) Start(ctx context.Context, cfg config.Cleanup) error {
	if !cfg.Enabled {
		s.log.Info("cleanup scheduler disabled by configuration")
		return nil
	}
	if _, err := s.cron.AddFunc(cfg.DailyCron, s.guarded(ctx, "daily_expiry", s.RunDailyExpiry)); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc(cfg.WeeklyCron, s.guarded(ctx, "weekly_consolidation", s.RunWeeklyConsolidation)); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc(cfg.MonthlyCron, s.guarded(ctx, "monthly_decay", s.RunMonthlyDecay)); err != nil {
		return err
	}
	s.cron.Start()
	s.log.Info("cleanup scheduler started", "daily", cfg.DailyCron, "weekly", cfg.WeeklyCron, "monthly", cfg.MonthlyCron)
	return nil
}

// Stop drains in-flight jobs and stops the cron loop.
func (s *Scheduler) Stop(ctx context.Context) {
	stopCtx := s.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-ctx.Done():
	}
}

// Journal returns the most recent job summaries, newest first.
func (s *Scheduler) Journal() []Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Summary, len(s.journal))
	copy(out, s.journal)
	return out
}

func (s *Scheduler) record(sum Summary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.journal = append([]Summary{sum}, s.journal...)
	if len(s.journal) > s.journalN {
		s.journal = s.journal[:s.journalN]
	}
}

// guarded wraps a job function so a slow-running instance is skipped
// rather than overlapped, matching the "one in-flight job per job type"
// invariant.
func (s *Scheduler) guarded(ctx context.Context, name string, job func(context.Context) (Summary, error)) func() {
	return func() {
		s.mu.Lock()
		if s.running[name] {
			s.mu.Unlock()
			s.log.Warn("cleanup job still running, skipping this tick", "job", name)
			return
		}
		s.running[name] = true
		s.mu.Unlock()

		defer func() {
			s.mu.Lock()
			s.running[name] = false
			s.mu.Unlock()
		}()

		sum, err := job(ctx)
		if err != nil {
			s.log.Error("cleanup job failed", "job", name, "error", err)
			return
		}
		s.record(sum)
		s.log.Info("cleanup job completed", "job", name, "deleted", sum.Deleted, "merged", sum.Merged, "demoted", sum.Demoted)
	}
}
