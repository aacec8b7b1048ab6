package scheduler

import (
	"context"

	authdomain "github.com/smallbiznis/telecomservice/internal/auth/domain"
	"go.uber.org/zap"
)

const jobSessionCleanup = "session_cleanup"

// SessionCleanupJob deletes sessions that expired or were revoked more than
// the retention window ago.
func (s *Scheduler) SessionCleanupJob(ctx context.Context) error {
	cutoff := s.clock.Now().UTC().Add(-s.cfg.SessionRetention)

	var total int64
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		var ids []int64
		err := s.db.WithContext(ctx).
			Model(&authdomain.Session{}).
			Where("expires_at < ? OR (revoked_at IS NOT NULL AND revoked_at < ?)", cutoff, cutoff).
			Order("id ASC").
			Limit(s.cfg.BatchSize).
			Pluck("id", &ids).Error
		if err != nil {
			return err
		}
		if len(ids) == 0 {
			break
		}

		res := s.db.WithContext(ctx).Where("id IN ?", ids).Delete(&authdomain.Session{})
		if res.Error != nil {
			return res.Error
		}
		total += res.RowsAffected
		if len(ids) < s.cfg.BatchSize {
			break
		}
	}

	if total > 0 {
		s.metrics.purged.WithLabelValues(jobSessionCleanup).Add(float64(total))
		s.log.Info("purged stale sessions", zap.Int64("count", total))
	}
	return nil
}
