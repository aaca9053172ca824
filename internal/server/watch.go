package server

import (
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	entitlementdomain "github.com/smallbiznis/streamhub/internal/entitlement/domain"
	"github.com/smallbiznis/streamhub/internal/observability/logger"
	"github.com/smallbiznis/streamhub/internal/ratelimit"
	"github.com/smallbiznis/streamhub/pkg/db/pagination"
	"go.uber.org/zap"
)

const (
	HeaderIdempotencyKey = "Idempotency-Key"

	rateLimitEndpointWatch = "watch"
	rateLimitReasonUser    = "user-rate"
)

// WatchRateLimit applies the per-user token bucket to watch attempts. A
// limiter failure fails closed with 503.
func (s *Server) WatchRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.watchLimiter == nil || !s.watchLimiter.Enabled() {
			c.Next()
			return
		}

		userID, ok := callerID(c)
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		ctx := c.Request.Context()
		result, err := s.watchLimiter.AllowUser(ctx, userID)
		if err != nil {
			logger.FromContext(ctx).Warn("watch rate limit check failed", zap.Error(err))
			AbortWithError(c, ErrServiceUnavailable)
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(result.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
		if !result.Allowed {
			logger.FromContext(ctx).Warn("watch rate limit exceeded", zap.String("reason", rateLimitReasonUser))
			s.obsMetrics.RecordRateLimitDenied(ctx, rateLimitEndpointWatch, rateLimitReasonUser)
			c.Header("Retry-After", strconv.Itoa(retryAfterSeconds(result)))
			AbortWithError(c, ErrRateLimited)
			return
		}

		s.obsMetrics.RecordRateLimitAllowed(ctx, rateLimitEndpointWatch)
		c.Next()
	}
}

func retryAfterSeconds(result *ratelimit.Result) int {
	secs := int(math.Ceil(result.RetryAfter.Seconds()))
	if secs < 1 {
		return 1
	}
	return secs
}

func (s *Server) WatchChannel(c *gin.Context) {
	s.attemptWatch(c, entitlementdomain.ItemKindChannel)
}

func (s *Server) WatchContent(c *gin.Context) {
	s.attemptWatch(c, entitlementdomain.ItemKindContent)
}

func (s *Server) attemptWatch(c *gin.Context, kind entitlementdomain.ItemKind) {
	userID, ok := callerID(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}
	itemID, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	result, err := s.entitlementSvc.AttemptWatch(c.Request.Context(), entitlementdomain.WatchRequest{
		UserID:         userID,
		ItemKind:       kind,
		ItemID:         itemID,
		IdempotencyKey: c.GetHeader(HeaderIdempotencyKey),
	})
	if err != nil {
		if errors.Is(err, entitlementdomain.ErrInsufficientCredits) && result != nil {
			err = withBalance(err, result.Balance)
		}
		AbortWithError(c, err)
		return
	}

	status := http.StatusCreated
	if result.Status == entitlementdomain.WatchStatusDeduplicated {
		status = http.StatusOK
	}
	c.JSON(status, result)
}

func (s *Server) GetMySubscription(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}
	sub, err := s.subscriptionSvc.GetActiveByUserID(c.Request.Context(), userID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, sub)
}

func (s *Server) ListMyHistory(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}
	var page pagination.Pagination
	if err := c.ShouldBindQuery(&page); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	resp, err := s.entitlementSvc.ListHistory(c.Request.Context(), userID, page)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
