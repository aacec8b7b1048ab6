package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/prometheus/client_golang/prometheus/testutil"
	authdomain "github.com/smallbiznis/telecomservice/internal/auth/domain"
	"github.com/smallbiznis/telecomservice/internal/clock"
	"github.com/smallbiznis/telecomservice/internal/config"
	"github.com/smallbiznis/telecomservice/pkg/db"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var now = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

func newTestScheduler(t *testing.T, cfg Config) (*Scheduler, *gorm.DB) {
	t.Helper()
	conn, err := db.NewTest()
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := conn.AutoMigrate(&authdomain.Session{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	s, err := New(Params{DB: conn, Log: zap.NewNop(), Clock: clock.NewFakeClock(now), Config: cfg})
	if err != nil {
		t.Fatalf("new scheduler: %v", err)
	}
	return s, conn
}

func insertSession(t *testing.T, conn *gorm.DB, node *snowflake.Node, expiresAt time.Time, revokedAt *time.Time) snowflake.ID {
	t.Helper()
	id := node.Generate()
	row := authdomain.Session{
		ID:               id,
		UserID:           1,
		CompanyID:        1,
		SessionTokenHash: id.String(),
		ExpiresAt:        expiresAt,
		RevokedAt:        revokedAt,
		CreatedAt:        now.Add(-72 * time.Hour),
		LastSeenAt:       now.Add(-72 * time.Hour),
	}
	if err := conn.Create(&row).Error; err != nil {
		t.Fatalf("insert session: %v", err)
	}
	return id
}

func TestSessionCleanupRemovesStaleSessions(t *testing.T) {
	s, conn := newTestScheduler(t, Config{SessionRetention: 24 * time.Hour, BatchSize: 2})
	node, _ := snowflake.NewNode(1)

	longExpired := now.Add(-48 * time.Hour)
	recentlyRevoked := now.Add(-time.Hour)
	oldRevoked := now.Add(-30 * time.Hour)

	insertSession(t, conn, node, longExpired, nil)
	insertSession(t, conn, node, longExpired, nil)
	insertSession(t, conn, node, now.Add(time.Hour), &oldRevoked)
	keptActive := insertSession(t, conn, node, now.Add(time.Hour), nil)
	keptRevoked := insertSession(t, conn, node, now.Add(time.Hour), &recentlyRevoked)
	keptRecentExpiry := insertSession(t, conn, node, now.Add(-time.Hour), nil)

	if err := s.SessionCleanupJob(context.Background()); err != nil {
		t.Fatalf("cleanup: %v", err)
	}

	var remaining []authdomain.Session
	if err := conn.Order("id ASC").Find(&remaining).Error; err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(remaining) != 3 {
		t.Fatalf("expected 3 sessions left, got %d", len(remaining))
	}
	want := map[snowflake.ID]bool{keptActive: true, keptRevoked: true, keptRecentExpiry: true}
	for _, row := range remaining {
		if !want[row.ID] {
			t.Fatalf("unexpected session %s survived", row.ID)
		}
	}
}

func TestRunJobTimeoutIsSoft(t *testing.T) {
	s, _ := newTestScheduler(t, Config{})
	before := testutil.ToFloat64(s.metrics.timeouts.WithLabelValues("timeout_job"))

	err := s.runJob(context.Background(), "timeout_job", 5*time.Millisecond, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got := testutil.ToFloat64(s.metrics.timeouts.WithLabelValues("timeout_job")); got != before+1 {
		t.Fatalf("expected timeout count %v, got %v", before+1, got)
	}
}

func TestRunJobWrapsErrors(t *testing.T) {
	s, _ := newTestScheduler(t, Config{})
	boom := errors.New("boom")

	err := s.runJob(context.Background(), "failing_job", time.Second, func(context.Context) error {
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped boom, got %v", err)
	}
	if got := testutil.ToFloat64(s.metrics.errors.WithLabelValues("failing_job", reasonError)); got < 1 {
		t.Fatalf("expected error counter to increase, got %v", got)
	}
}

func TestNewRejectsMissingDependencies(t *testing.T) {
	if _, err := New(Params{Log: zap.NewNop()}); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestProvideConfigAppliesDefaults(t *testing.T) {
	cfg := ProvideConfig(config.Config{Scheduler: config.SchedulerConfig{Enabled: true}})
	defaults := DefaultConfig()
	if cfg.RunInterval != defaults.RunInterval || cfg.SessionRetention != defaults.SessionRetention {
		t.Fatalf("expected defaults, got %+v", cfg)
	}

	cfg = ProvideConfig(config.Config{Scheduler: config.SchedulerConfig{IntervalSeconds: 10, SessionRetentionHours: 2}})
	if cfg.Enabled || cfg.RunInterval != 10*time.Second || cfg.SessionRetention != 2*time.Hour {
		t.Fatalf("unexpected config %+v", cfg)
	}
}
