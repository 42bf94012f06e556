package webserver

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/sessions"
	jsoniter "github.com/json-iterator/go"
	"github.com/labstack/echo-contrib/session"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/talkincode/auctions/config"
	"github.com/talkincode/auctions/pkg/metrics"
	"go.uber.org/zap"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	// AppCtxKey is the echo context key holding the application context
	AppCtxKey = "appctx"
	// UserTokenKey is the echo context key holding the parsed API token
	UserTokenKey = "user"
	// CSRFKey is the echo context key holding the CSRF token for forms
	CSRFKey = "csrf"

	apiPrefix = "/api/v1"
)

// Server wraps the echo instance shared by the HTML pages and the JSON API
type Server struct {
	root   *echo.Echo
	api    *echo.Group
	cfg    *config.AppConfig
	limit  echo.MiddlewareFunc
	appctx interface{}
}

// NewServer builds the echo instance. appctx is made available to every handler
// under AppCtxKey.
func NewServer(cfg *config.AppConfig, appctx interface{}) *Server {
	s := &Server{
		root:   echo.New(),
		cfg:    cfg,
		appctx: appctx,
		limit:  NewLoginLimiter(cfg.Web.LoginRate, int(cfg.Web.LoginRate)+1),
	}
	e := s.root
	e.HideBanner = true
	e.HidePort = true
	e.Debug = cfg.System.Debug
	e.JSONSerializer = jsoniterSerializer{}
	e.Validator = &structValidator{validator: validator.New()}
	e.HTTPErrorHandler = s.errorHandler

	e.Use(middleware.Recover())
	e.Use(requestLogger())
	e.Use(requestCounter)
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set(AppCtxKey, s.appctx)
			return next(c)
		}
	})
	e.Use(session.Middleware(sessions.NewCookieStore([]byte(cfg.Web.Secret))))
	if cfg.Web.CSRF {
		e.Use(middleware.CSRFWithConfig(middleware.CSRFConfig{
			TokenLookup:    "form:csrf",
			ContextKey:     CSRFKey,
			CookiePath:     "/",
			CookieHTTPOnly: true,
			CookieSameSite: http.SameSiteLaxMode,
			Skipper: func(c echo.Context) bool {
				p := c.Request().URL.Path
				return strings.HasPrefix(p, apiPrefix) || strings.HasPrefix(p, "/live/")
			},
		}))
	}

	e.Static(strings.TrimSuffix(cfg.Media.URLPrefix, "/"), cfg.GetMediaDir())
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{})))

	s.api = e.Group(apiPrefix, echojwt.WithConfig(echojwt.Config{
		SigningKey: []byte(cfg.Web.Secret),
		ContextKey: UserTokenKey,
		Skipper: func(c echo.Context) bool {
			return c.Path() == apiPrefix+"/token"
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return echo.NewHTTPError(http.StatusUnauthorized, "Missing or invalid token").SetInternal(err)
		},
	}))
	return s
}

func (s *Server) Echo() *echo.Echo {
	return s.root
}

func (s *Server) Config() *config.AppConfig {
	return s.cfg
}

// LoginLimiter throttles credential endpoints per client address
func (s *Server) LoginLimiter() echo.MiddlewareFunc {
	return s.limit
}

func (s *Server) ApiGET(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) {
	s.api.GET(path, h, m...)
}

func (s *Server) ApiPOST(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) {
	s.api.POST(path, h, m...)
}

func (s *Server) ApiPUT(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) {
	s.api.PUT(path, h, m...)
}

func (s *Server) ApiDELETE(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) {
	s.api.DELETE(path, h, m...)
}

// Start serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Web.Host, s.cfg.Web.Port)
	zap.S().Infof("Start web server %s", addr)
	errc := make(chan error, 1)
	go func() {
		if err := s.root.Start(addr); err != nil && err != http.ErrServerClosed {
			errc <- err
		}
		close(errc)
	}()
	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.root.Shutdown(sctx)
	}
}

// errorHandler answers API requests with the JSON error envelope and pages with
// the error template.
func (s *Server) errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	code := http.StatusInternalServerError
	msg := http.StatusText(code)
	if he, ok := err.(*echo.HTTPError); ok {
		code = he.Code
		msg = fmt.Sprint(he.Message)
	}
	if code >= http.StatusInternalServerError {
		zap.L().Error("request failed", zap.String("path", c.Request().URL.Path), zap.Error(err))
	}

	var rerr error
	switch {
	case c.Request().Method == http.MethodHead:
		rerr = c.NoContent(code)
	case strings.HasPrefix(c.Request().URL.Path, apiPrefix):
		rerr = c.JSON(code, map[string]interface{}{
			"error":   strings.ToUpper(strings.ReplaceAll(http.StatusText(code), " ", "_")),
			"message": msg,
		})
	case s.root.Renderer != nil:
		rerr = c.Render(code, "error.html", map[string]interface{}{
			"Code":    code,
			"Message": msg,
		})
	default:
		rerr = c.String(code, msg)
	}
	if rerr != nil {
		zap.L().Error("write error response", zap.Error(rerr))
	}
}

type jsoniterSerializer struct{}

func (jsoniterSerializer) Serialize(c echo.Context, i interface{}, indent string) error {
	enc := json.NewEncoder(c.Response())
	if indent != "" {
		enc.SetIndent("", indent)
	}
	return enc.Encode(i)
}

func (jsoniterSerializer) Deserialize(c echo.Context, i interface{}) error {
	if err := json.NewDecoder(c.Request().Body).Decode(i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid JSON body").SetInternal(err)
	}
	return nil
}

type structValidator struct {
	validator *validator.Validate
}

func (v *structValidator) Validate(i interface{}) error {
	return v.validator.Struct(i)
}

func requestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogRemoteIP: true,
		LogError:    true,
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/metrics"
		},
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
				zap.String("ip", v.RemoteIP),
			}
			if v.Error != nil {
				zap.L().Warn("request", append(fields, zap.Error(v.Error))...)
				return nil
			}
			zap.L().Debug("request", fields...)
			return nil
		},
	})
}

func requestCounter(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		err := next(c)
		status := c.Response().Status
		if he, ok := err.(*echo.HTTPError); ok {
			status = he.Code
		} else if err != nil {
			status = http.StatusInternalServerError
		}
		path := c.Path()
		if path == "" {
			path = "unmatched"
		}
		metrics.HTTPRequests.WithLabelValues(c.Request().Method, path, strconv.Itoa(status)).Inc()
		return err
	}
}
