// Package scheduler triggers recurring searches for profiles that have a
// schedule enabled.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"job-matcher-go/internal/models"
	"job-matcher-go/internal/scraper"
	"job-matcher-go/internal/storage"
)

// Runner starts a search in the background.
type Runner interface {
	Start(ctx context.Context, profile models.SearchProfile) (string, error)
}

// JobKey names the cron entry of a profile.
func JobKey(profileID string) string {
	return "search_profile_" + profileID
}

// Scheduler wraps robfig/cron with one entry per profile.
type Scheduler struct {
	cron         *cron.Cron
	runner       Runner
	profiles     storage.ProfileStore
	defaultHours int
	logger       *zap.Logger

	mu      sync.Mutex
	entries map[string]cron.EntryID
	ctx     context.Context
}

// New creates a scheduler. Profiles without an interval run every
// defaultHours hours.
func New(runner Runner, profiles storage.ProfileStore, defaultHours int, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if defaultHours <= 0 {
		defaultHours = 24
	}
	logger = logger.Named("scheduler")
	return &Scheduler{
		cron:         cron.New(cron.WithLogger(cronLogger{logger.Sugar()})),
		runner:       runner,
		profiles:     profiles,
		defaultHours: defaultHours,
		logger:       logger,
		entries:      make(map[string]cron.EntryID),
		ctx:          context.Background(),
	}
}

// Start restores every scheduled profile and starts ticking.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()

	n, err := s.Restore(ctx)
	if err != nil {
		return err
	}
	s.cron.Start()
	s.logger.Info("scheduler started", zap.Int("profiles", n))
	return nil
}

// Stop stops the cron and returns a context done when running jobs finish.
func (s *Scheduler) Stop() context.Context {
	s.logger.Info("scheduler stopped")
	return s.cron.Stop()
}

// Restore schedules every profile the store reports as scheduled and returns
// how many entries exist afterwards.
func (s *Scheduler) Restore(ctx context.Context) (int, error) {
	profiles, err := s.profiles.ListScheduledProfiles(ctx)
	if err != nil {
		return 0, fmt.Errorf("list scheduled profiles: %w", err)
	}
	for _, p := range profiles {
		if err := s.Schedule(p); err != nil {
			s.logger.Error("failed to schedule profile", zap.String("profile_id", p.ID), zap.Error(err))
		}
	}
	return s.Len(), nil
}

// Schedule adds or replaces the entry of profile. A profile with scheduling
// disabled is unscheduled instead.
func (s *Scheduler) Schedule(profile models.SearchProfile) error {
	if !profile.ScheduleEnabled {
		s.Unschedule(profile.ID)
		return nil
	}

	hours := profile.ScheduleIntervalHours
	if hours <= 0 {
		hours = s.defaultHours
	}
	spec := fmt.Sprintf("@every %dh", hours)
	profileID := profile.ID

	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.entries[profileID]; ok {
		s.cron.Remove(id)
		delete(s.entries, profileID)
	}
	id, err := s.cron.AddFunc(spec, func() { s.trigger(profileID) })
	if err != nil {
		return fmt.Errorf("cron.AddFunc(%q): %w", spec, err)
	}
	s.entries[profileID] = id

	s.logger.Info("profile scheduled",
		zap.String("job", JobKey(profileID)),
		zap.String("spec", spec))
	return nil
}

// Unschedule removes the entry of profileID and reports whether one existed.
func (s *Scheduler) Unschedule(profileID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.entries[profileID]
	if !ok {
		return false
	}
	s.cron.Remove(id)
	delete(s.entries, profileID)
	s.logger.Info("profile unscheduled", zap.String("job", JobKey(profileID)))
	return true
}

// Len returns the number of scheduled profiles.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Jobs lists the job keys currently scheduled, sorted.
func (s *Scheduler) Jobs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := make([]string, 0, len(s.entries))
	for id := range s.entries {
		keys = append(keys, JobKey(id))
	}
	sort.Strings(keys)
	return keys
}

// trigger reloads the profile so edits since scheduling apply, then starts a
// run. A tick that finds a run already active is skipped.
func (s *Scheduler) trigger(profileID string) {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()

	logger := s.logger.With(zap.String("job", JobKey(profileID)))

	profile, err := s.profiles.GetProfile(ctx, profileID)
	if errors.Is(err, storage.ErrProfileNotFound) {
		logger.Warn("scheduled profile no longer exists")
		s.Unschedule(profileID)
		return
	}
	if err != nil {
		logger.Error("failed to load scheduled profile", zap.Error(err))
		return
	}

	runID, err := s.runner.Start(ctx, profile)
	switch {
	case errors.Is(err, scraper.ErrRunInProgress):
		logger.Info("previous run still active, skipping tick")
	case err != nil:
		logger.Error("failed to start scheduled run", zap.Error(err))
	default:
		logger.Info("scheduled run started", zap.String("run_id", runID))
	}
}

// cronLogger routes cron's own messages through zap.
type cronLogger struct {
	sugar *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.sugar.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.sugar.Errorw(msg, append(keysAndValues, "error", err)...)
}
