// Package webserver hosts the admin HTTP api. Handlers register themselves
// with ApiGET and friends before the server is built.
package webserver

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/alocode/restopos/config"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"go.uber.org/zap"
)

const (
	ApiPrefix     = "/api/v1"
	AppContextKey = "appctx"
)

type route struct {
	method  string
	path    string
	handler echo.HandlerFunc
}

var (
	routesMu sync.Mutex
	routes   []route
)

func addRoute(method, path string, h echo.HandlerFunc) {
	routesMu.Lock()
	defer routesMu.Unlock()
	routes = append(routes, route{method: method, path: path, handler: h})
}

func ApiGET(path string, h echo.HandlerFunc)    { addRoute(http.MethodGet, path, h) }
func ApiPOST(path string, h echo.HandlerFunc)   { addRoute(http.MethodPost, path, h) }
func ApiPUT(path string, h echo.HandlerFunc)    { addRoute(http.MethodPut, path, h) }
func ApiDELETE(path string, h echo.HandlerFunc) { addRoute(http.MethodDelete, path, h) }

type WebServer struct {
	cfg  *config.AppConfig
	root *echo.Echo
}

// NewWebServer builds the echo instance with every registered route mounted
// under ApiPrefix. appCtx is exposed to handlers under AppContextKey.
func NewWebServer(cfg *config.AppConfig, appCtx interface{}) *WebServer {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	if cfg.System.Debug {
		e.Logger.SetLevel(log.DEBUG)
	} else {
		e.Logger.SetLevel(log.WARN)
	}
	e.Use(middleware.Recover())
	e.Use(requestLogger())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set(AppContextKey, appCtx)
			return next(c)
		}
	})

	api := e.Group(ApiPrefix)
	routesMu.Lock()
	for _, r := range routes {
		api.Add(r.method, r.path, r.handler)
	}
	routesMu.Unlock()

	return &WebServer{cfg: cfg, root: e}
}

func requestLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}
			zap.L().Debug("http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("latency", time.Since(start)),
				zap.String("namespace", "web"))
			return nil
		}
	}
}

// Handler the root http handler, used by tests
func (s *WebServer) Handler() http.Handler {
	return s.root
}

// Start blocks serving until Shutdown
func (s *WebServer) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Web.Host, s.cfg.Web.Port)
	zap.S().Infof("admin api listening on %s", addr)
	err := s.root.Start(addr)
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *WebServer) Shutdown(ctx context.Context) error {
	return s.root.Shutdown(ctx)
}
