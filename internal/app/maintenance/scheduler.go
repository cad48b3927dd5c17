package maintenance

import (
	"context"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/EvoluTechs/riftcollect/internal/catalog"
	"github.com/EvoluTechs/riftcollect/internal/hashstore"
	"github.com/EvoluTechs/riftcollect/pkg/logger"
)

const (
	defaultSyncSpec    = "0 4 * * *"
	defaultRefreshSpec = "@hourly"
)

// Scheduler coordinates background jobs: the nightly upstream catalog sync
// and the periodic fingerprint cache refresh.
type Scheduler struct {
	catalog *catalog.Service
	store   *hashstore.Store
	cron    *cron.Cron
	log     *zap.Logger
	enabled bool

	syncSchedule    string
	refreshSchedule string
}

// Option customises the Scheduler.
type Option func(*Scheduler)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(s *Scheduler) {
		if c != nil {
			s.cron = c
		}
	}
}

// WithSyncSchedule overrides the cron specification for catalog sync.
func WithSyncSchedule(spec string) Option {
	return func(s *Scheduler) {
		if spec != "" {
			s.syncSchedule = spec
		}
	}
}

// WithRefreshSchedule overrides the cron specification for fingerprint refresh.
func WithRefreshSchedule(spec string) Option {
	return func(s *Scheduler) {
		if spec != "" {
			s.refreshSchedule = spec
		}
	}
}

// NewScheduler constructs a Scheduler with sensible defaults. A nil
// dependency results in the corresponding job being skipped.
func NewScheduler(cat *catalog.Service, store *hashstore.Store, opts ...Option) *Scheduler {
	s := &Scheduler{
		catalog:         cat,
		store:           store,
		syncSchedule:    defaultSyncSpec,
		refreshSchedule: defaultRefreshSpec,
		log:             logger.WithModule("maintenance"),
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.cron == nil {
		s.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}

	s.enabled = s.catalog != nil || s.store != nil

	return s
}

// Start registers the jobs with the cron scheduler and launches it if at
// least one job is enabled.
func (s *Scheduler) Start() error {
	if !s.enabled {
		return nil
	}

	if s.catalog != nil {
		if _, err := s.cron.AddFunc(s.syncSchedule, func() {
			ctx := context.Background()
			cards, expansions, err := s.catalog.SyncFromOrigin(ctx)
			if err != nil {
				s.log.Warn("catalog sync failed", zap.Error(err))
				return
			}
			s.log.Info("catalog synced",
				zap.Int("cards", cards),
				zap.Int("expansions", expansions),
			)
		}); err != nil {
			return err
		}
	}

	if s.store != nil && s.catalog != nil {
		if _, err := s.cron.AddFunc(s.refreshSchedule, func() {
			ctx := context.Background()
			if err := s.refreshFingerprints(ctx); err != nil {
				s.log.Warn("fingerprint refresh failed", zap.Error(err))
			}
		}); err != nil {
			return err
		}
	}

	s.cron.Start()
	return nil
}

// Stop halts the underlying scheduler, waiting for running jobs to complete.
func (s *Scheduler) Stop() context.Context {
	if s.cron == nil {
		return context.Background()
	}
	return s.cron.Stop()
}

// RunOnce executes all configured jobs sequentially. Used in tests and to
// warm the process at start-up.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var errs error

	if s.catalog != nil {
		if _, _, err := s.catalog.SyncFromOrigin(ctx); err != nil {
			errs = multierr.Append(errs, err)
		}
	}

	if s.store != nil && s.catalog != nil {
		if err := s.refreshFingerprints(ctx); err != nil {
			errs = multierr.Append(errs, err)
		}
	}

	return errs
}

func (s *Scheduler) refreshFingerprints(ctx context.Context) error {
	cards, err := s.catalog.AllCards(ctx)
	if err != nil {
		return err
	}
	_, err = s.store.Refresh(ctx, cards)
	return err
}
