package webserver

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// limiterExpiry is how long an idle client keeps its bucket
const limiterExpiry = 10 * time.Minute

// NewLoginLimiter allows rps POST requests per second per client address, so
// forms still render when a client is throttled. A non positive rps disables
// limiting.
func NewLoginLimiter(rps float64, burst int) echo.MiddlewareFunc {
	if rps <= 0 {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	if burst < 1 {
		burst = 1
	}
	store := middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(rps),
		Burst:     burst,
		ExpiresIn: limiterExpiry,
	})
	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Skipper: func(c echo.Context) bool {
			return c.Request().Method != http.MethodPost
		},
		Store: store,
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		DenyHandler: func(c echo.Context, id string, err error) error {
			zap.L().Warn("rate limit exceeded", zap.String("ip", id), zap.String("path", c.Path()))
			return echo.NewHTTPError(http.StatusTooManyRequests, "Too many attempts, please try again later.").SetInternal(err)
		},
	})
}
