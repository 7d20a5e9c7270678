package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/clanbot/internal/observability/logger"
	"go.uber.org/zap"
)

var ErrRateLimited = errors.New("rate_limited")

type commandRateLimitKey struct {
	Caller struct {
		Ref string `json:"ref"`
	} `json:"caller"`
	Server struct {
		Ref string `json:"ref"`
	} `json:"server"`
}

// CommandRateLimit throttles invocations per caller and server before the
// command runs. Requests without refs pass through to request validation.
func (s *Server) CommandRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.limiter.Enabled() {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		serverRef, callerRef, err := readCommandRateLimitKey(c)
		if err != nil {
			logger.FromContext(ctx).Warn("command rate limit read body failed", zap.Error(err))
			AbortWithError(c, invalidRequestError())
			return
		}
		if serverRef == "" || callerRef == "" {
			c.Next()
			return
		}

		res, err := s.limiter.Allow(ctx, serverRef, callerRef)
		if err != nil {
			logger.FromContext(ctx).Warn("command rate limit check failed", zap.Error(err))
			AbortWithError(c, ErrServiceUnavailable)
			return
		}
		if !res.Allowed {
			command := c.Param("name")
			logger.FromContext(ctx).Warn("command rate limit exceeded", zap.String("command", command))
			s.metrics.RecordRateLimited(ctx, command)

			retry := int(math.Ceil(res.RetryAfter.Seconds()))
			if retry < 1 {
				retry = 1
			}
			c.Header("Retry-After", strconv.Itoa(retry))
			AbortWithError(c, ErrRateLimited)
			return
		}

		c.Next()
	}
}

func readCommandRateLimitKey(c *gin.Context) (string, string, error) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return "", "", err
	}
	c.Request.Body = io.NopCloser(bytes.NewBuffer(body))
	if len(body) == 0 {
		return "", "", nil
	}

	var payload commandRateLimitKey
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", "", nil
	}
	return strings.TrimSpace(payload.Server.Ref), strings.TrimSpace(payload.Caller.Ref), nil
}
