package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	auditdomain "github.com/smallbiznis/telecomservice/internal/audit/domain"
	"github.com/smallbiznis/telecomservice/internal/clock"
	obscontext "github.com/smallbiznis/telecomservice/internal/observability/context"
	"github.com/smallbiznis/telecomservice/internal/ratelimit"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const lockKeyPrefix = "telecomservice:scheduler:"

var ErrInvalidConfig = errors.New("scheduler_invalid_config")

type Params struct {
	fx.In

	DB     *gorm.DB
	Log    *zap.Logger
	Clock  clock.Clock
	Config Config            `optional:"true"`
	Locker *ratelimit.Locker `optional:"true"`
}

// Scheduler runs periodic maintenance jobs. With a redis locker only one
// replica runs a given job per tick.
type Scheduler struct {
	db      *gorm.DB
	log     *zap.Logger
	clock   clock.Clock
	cfg     Config
	locker  *ratelimit.Locker
	metrics *jobMetrics
}

type job struct {
	name string
	run  func(ctx context.Context) error
}

func New(p Params) (*Scheduler, error) {
	if p.DB == nil || p.Log == nil || p.Clock == nil {
		return nil, ErrInvalidConfig
	}
	return &Scheduler{
		db:      p.DB,
		log:     p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		clock:   p.Clock,
		cfg:     p.Config.withDefaults(),
		locker:  p.Locker,
		metrics: newJobMetrics(prometheus.DefaultRegisterer),
	}, nil
}

func (s *Scheduler) jobs() []job {
	return []job{
		{name: jobSessionCleanup, run: s.SessionCleanupJob},
	}
}

func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()

	for {
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("scheduler run failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Scheduler) RunOnce(ctx context.Context) error {
	var err error
	for _, j := range s.jobs() {
		if ctx.Err() != nil {
			return errors.Join(err, ctx.Err())
		}
		err = errors.Join(err, s.runJob(ctx, j.name, s.cfg.JobTimeout, j.run))
	}
	return err
}

// runJob executes fn under a timeout. A deadline is treated as a soft failure.
func (s *Scheduler) runJob(parent context.Context, name string, timeout time.Duration, fn func(ctx context.Context) error) error {
	release, ok := s.acquire(parent, name, timeout)
	if !ok {
		s.log.Debug("job skipped, lock held elsewhere", zap.String("job", name))
		return nil
	}
	defer release()

	start := time.Now()
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()
	ctx = obscontext.WithActor(ctx, string(auditdomain.ActorTypeSystem), "scheduler")

	log := s.log.With(zap.String("job", name))
	log.Debug("job started")

	err := fn(ctx)
	s.metrics.observe(name, time.Since(start))
	if err == nil {
		log.Debug("job finished", zap.Duration("elapsed", time.Since(start)))
		return nil
	}

	reason := errorReason(err)
	s.metrics.errors.WithLabelValues(name, reason).Inc()
	if reason != reasonError {
		s.metrics.timeouts.WithLabelValues(name).Inc()
		log.Warn("job timed out", zap.Duration("timeout", timeout), zap.Error(err))
		return nil
	}
	return fmt.Errorf("%s: %w", name, err)
}

func (s *Scheduler) acquire(ctx context.Context, name string, ttl time.Duration) (func(), bool) {
	if s.locker == nil {
		return func() {}, true
	}
	lease, err := s.locker.Acquire(ctx, lockKeyPrefix+name, ttl)
	switch {
	case errors.Is(err, ratelimit.ErrLockHeld):
		return nil, false
	case err != nil:
		s.log.Warn("scheduler lock unavailable, running unlocked", zap.String("job", name), zap.Error(err))
		return func() {}, true
	}
	return func() {
		if err := lease.Release(context.Background()); err != nil {
			s.log.Warn("scheduler lock release failed", zap.String("job", name), zap.Error(err))
		}
	}, true
}
