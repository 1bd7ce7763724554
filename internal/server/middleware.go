package server

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/bizhub/internal/actorcontext"
)

const actorHeader = "X-Actor-ID"

// ActorMiddleware resolves the acting user from the request header. The
// gateway in front of this service authenticates and stamps the header;
// requests without it are treated as system-initiated.
func (s *Server) ActorMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader(actorHeader))
		if raw != "" {
			actorID, err := snowflake.ParseString(raw)
			if err != nil || actorID == 0 {
				AbortWithError(c, newValidationError("actor_id", "invalid_actor_id", "invalid actor id header"))
				return
			}
			ctx := actorcontext.WithActor(c.Request.Context(), actorID)
			c.Request = c.Request.WithContext(ctx)
		}
		c.Next()
	}
}

// RateLimitWrites throttles mutating requests per client IP.
func (s *Server) RateLimitWrites() gin.HandlerFunc {
	return func(c *gin.Context) {
		res := s.writeLimiter.Allow(c.Request.Context(), c.ClientIP())
		if !res.Allowed {
			if res.RetryAfter > 0 {
				c.Header("Retry-After", res.RetryAfter.Round(time.Second).String())
			}
			AbortWithError(c, ErrRateLimited)
			return
		}
		c.Next()
	}
}
