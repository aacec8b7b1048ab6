package server

import (
	"context"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/telecomservice/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/telecomservice/internal/observability/metrics"
	"go.uber.org/zap"
)

const rateLimitReasonAuthenticate = "authenticate-rate"

// allowAuthenticate consumes one login attempt for the login/IP pair. A
// limiter backend failure lets the attempt through.
func (s *Server) allowAuthenticate(c *gin.Context, login string) error {
	if !s.authLimiter.Enabled() {
		return nil
	}

	ctx := c.Request.Context()
	endpoint := normalizeRateLimitEndpoint(c)
	res, err := s.authLimiter.Allow(ctx, login, c.ClientIP())
	if err != nil {
		logger.FromContext(ctx).Warn("authenticate rate limit check failed", zap.Error(err))
		return nil
	}
	if !res.Allowed {
		logger.FromContext(ctx).Warn("authenticate rate limit exceeded",
			zap.String("reason", rateLimitReasonAuthenticate),
			zap.String("endpoint", endpoint),
		)
		recordRateLimitDenied(ctx, endpoint, rateLimitReasonAuthenticate, s.obsMetrics)

		retryAfter := int(res.RetryAfter.Seconds())
		if retryAfter < 1 {
			retryAfter = 1
		}
		c.Header("Retry-After", strconv.Itoa(retryAfter))
		c.Header("X-Rate-Limited-Reason", rateLimitReasonAuthenticate)
		return ErrTooManyRequests
	}

	recordRateLimitAllowed(ctx, endpoint, s.obsMetrics)
	return nil
}

func recordRateLimitAllowed(ctx context.Context, endpoint string, metrics *obsmetrics.Metrics) {
	if metrics == nil {
		return
	}
	metrics.RecordRateLimitAllowed(ctx, endpoint)
}

func recordRateLimitDenied(ctx context.Context, endpoint, reason string, metrics *obsmetrics.Metrics) {
	if metrics == nil {
		return
	}
	metrics.RecordRateLimitDenied(ctx, endpoint, reason)
}

func normalizeRateLimitEndpoint(c *gin.Context) string {
	if c == nil {
		return "unknown"
	}
	endpoint := strings.TrimSpace(c.FullPath())
	if endpoint == "" {
		endpoint = strings.TrimSpace(c.Request.URL.Path)
	}
	if endpoint == "" {
		endpoint = "unknown"
	}
	return endpoint
}
