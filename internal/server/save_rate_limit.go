package server

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/tarumnet/mikrobill/internal/observability/logger"
	obsmetrics "github.com/tarumnet/mikrobill/internal/observability/metrics"
)

const (
	rateLimitReasonGlobal     = "global-rate"
	rateLimitReasonClient     = "client-rate"
	rateLimitReasonClientLock = "client-lock"
)

// RouterSaveRateLimit guards endpoints that write to the router. Besides the
// token buckets it takes a short-lived lock per client so two concurrent
// saves for the same lease never interleave on the RouterOS side.
func (s *Server) RouterSaveRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.saveLimiter.Enabled() {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		endpoint := normalizeRateLimitEndpoint(c)
		clientID := strings.TrimSpace(c.Param("id"))

		allowed, err := s.saveLimiter.AllowGlobal(ctx)
		if err != nil {
			logger.FromContext(ctx).Warn("router save rate limit check failed", zap.Error(err))
			AbortWithError(c, ErrServiceUnavailable)
			return
		}
		if !allowed {
			denyRouterSave(c, endpoint, rateLimitReasonGlobal, s.obsMetrics)
			return
		}

		allowed, err = s.saveLimiter.AllowClient(ctx, clientID)
		if err != nil {
			logger.FromContext(ctx).Warn("router save rate limit check failed", zap.Error(err))
			AbortWithError(c, ErrServiceUnavailable)
			return
		}
		if !allowed {
			denyRouterSave(c, endpoint, rateLimitReasonClient, s.obsMetrics)
			return
		}

		token, allowed, err := s.saveLimiter.TryLockClient(ctx, clientID)
		if err != nil {
			logger.FromContext(ctx).Warn("router save lock failed", zap.Error(err))
			AbortWithError(c, ErrServiceUnavailable)
			return
		}
		if !allowed {
			denyRouterSave(c, endpoint, rateLimitReasonClientLock, s.obsMetrics)
			return
		}
		defer func() {
			if err := s.saveLimiter.ReleaseClient(ctx, clientID, token); err != nil {
				logger.FromContext(ctx).Warn("router save unlock failed", zap.Error(err))
			}
		}()

		recordRateLimitAllowed(ctx, endpoint, s.obsMetrics)
		c.Next()
	}
}

func denyRouterSave(c *gin.Context, endpoint, reason string, metrics *obsmetrics.Metrics) {
	ctx := c.Request.Context()
	logger.FromContext(ctx).Warn("router save rate limit exceeded",
		zap.String("reason", reason),
		zap.String("endpoint", endpoint),
	)
	recordRateLimitDenied(ctx, endpoint, reason, metrics)

	c.Header("Retry-After", "1")
	c.Header("X-Rate-Limited-Reason", reason)
	AbortWithError(c, ErrRateLimited)
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
