package server

import (
	"crypto/subtle"
	"math"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	obscontext "github.com/smallbiznis/triviabees/internal/observability/context"
	"github.com/smallbiznis/triviabees/internal/observability/logger"
	"go.uber.org/zap"
)

const (
	headerAPIKey = "apikey"

	rateLimitReasonClientRate = "client-rate"
)

// CORS answers browser preflights for the public function endpoints.
func CORS(origins []string) gin.HandlerFunc {
	corsConfig := cors.DefaultConfig()
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = origins
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{
		"Origin", "Content-Type", "Accept", "Authorization",
		headerAPIKey, "X-Client-Info", "X-Request-Id", "X-Correlation-Id",
	}
	corsConfig.MaxAge = 12 * time.Hour
	corsConfig.OptionsResponseStatusCode = http.StatusOK
	return cors.New(corsConfig)
}

// ServiceKeyRequired guards mutating endpoints with the service role key.
// With no key configured the endpoints stay open.
func (s *Server) ServiceKeyRequired() gin.HandlerFunc {
	expected := []byte(strings.TrimSpace(s.cfg.ServiceRoleKey))
	return func(c *gin.Context) {
		if len(expected) == 0 {
			c.Next()
			return
		}

		presented := serviceKeyFromRequest(c)
		if presented == "" || subtle.ConstantTimeCompare([]byte(presented), expected) != 1 {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		ctx := obscontext.WithActor(c.Request.Context(), "service", "service_role")
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func serviceKeyFromRequest(c *gin.Context) string {
	header := strings.TrimSpace(c.GetHeader("Authorization"))
	if header != "" {
		parts := strings.Fields(header)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}
	return strings.TrimSpace(c.GetHeader(headerAPIKey))
}

// ReferralLookupRateLimit throttles referral code lookups per client IP.
func (s *Server) ReferralLookupRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.referralLimit == nil || !s.referralLimit.Enabled() {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		result, err := s.referralLimit.AllowClient(ctx, c.ClientIP())
		if err != nil {
			logger.FromContext(ctx).Warn("referral lookup rate limit check failed", zap.Error(err))
			AbortWithError(c, ErrServiceUnavailable)
			return
		}

		if result.Limit > 0 {
			c.Header("X-RateLimit-Limit", strconv.Itoa(result.Limit))
			c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
		}
		if !result.Allowed {
			endpoint := normalizeRateLimitEndpoint(c)
			logger.FromContext(ctx).Warn("referral lookup rate limit exceeded",
				zap.String("reason", rateLimitReasonClientRate),
				zap.String("endpoint", endpoint),
			)
			s.obsMetrics.RecordRateLimitDenied(ctx, endpoint, rateLimitReasonClientRate)

			c.Header("Retry-After", retryAfterSeconds(result.RetryAfter))
			c.Header("X-Rate-Limited-Reason", rateLimitReasonClientRate)
			AbortWithError(c, ErrRateLimited)
			return
		}
		c.Next()
	}
}

func retryAfterSeconds(d time.Duration) string {
	seconds := int(math.Ceil(d.Seconds()))
	if seconds < 1 {
		seconds = 1
	}
	return strconv.Itoa(seconds)
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

var registerValidatorOnce sync.Once

// registerJSONFieldNames makes binding errors report json field names.
func registerJSONFieldNames() {
	registerValidatorOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(field reflect.StructField) string {
			name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name == "" {
				return field.Name
			}
			return name
		})
	})
}
