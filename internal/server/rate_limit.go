package server

import (
	"math"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/menuya/internal/observability/logger"
	"go.uber.org/zap"
)

// TipRateLimit throttles tip-by-token attempts per client address. A limiter
// failure lets the request through: the token is still checked by the bill.
func (s *Server) TipRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.tipLimiter.Enabled() {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		res, err := s.tipLimiter.Allow(ctx, c.ClientIP())
		if err != nil {
			logger.FromContext(ctx).Warn("tip rate limit check failed", zap.Error(err))
			c.Next()
			return
		}
		if !res.Allowed {
			logger.FromContext(ctx).Warn("tip rate limit exceeded", zap.String("client_ip", c.ClientIP()))
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(res.RetryAfter.Seconds()))))
			AbortWithError(c, ErrRateLimited)
			return
		}
		c.Next()
	}
}
