// Package server is the HTTP surface: alert webhooks from external monitors
// and read-only query routes over the stores.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"zygl/pkg/journal"
	"zygl/pkg/log"
	"zygl/pkg/models"
	"zygl/pkg/protocol"
	"zygl/pkg/service"
)

const (
	ServiceName = "zygl-webhook"

	DefaultShutdownTimeout = 10 * time.Second
)

// AlertHandler ingests and acknowledges alerts.
type AlertHandler interface {
	HandleBoardAlert(r service.BoardAlertReport) service.Result[string]
	HandleComponentAlert(r service.ComponentAlertReport) service.Result[string]
	Acknowledge(id string) service.Result[bool]
}

// Monitor answers the read-only queries.
type Monitor interface {
	Overview() service.Overview
	Chassis(number int) service.Result[service.ChassisView]
	Stacks() service.StackList
	Stack(uuid string) service.Result[service.StackView]
	TaskResources(taskID string) service.Result[service.TaskResourceView]
	Alerts(f service.AlertFilter) []*models.Alert
	AlertSummary() service.AlertSummary
}

// LabelPreviewer lists the stacks a label would deploy.
type LabelPreviewer interface {
	PreviewByLabel(label string) service.Result[[]string]
}

// CommandLog reads the command journal.
type CommandLog interface {
	Recent(ctx context.Context, limit int) ([]journal.Entry, error)
}

// Options configures a Server. Journal and Labels may be nil; their routes
// then answer 503.
type Options struct {
	RateLimit float64 // webhook requests per second, 0 disables
	Journal   CommandLog
	Labels    LabelPreviewer
}

type Server struct {
	alerts    AlertHandler
	monitor   Monitor
	journal   CommandLog
	labels    LabelPreviewer
	rateLimit float64
	now       func() time.Time
	logger    zerolog.Logger
	echo      *echo.Echo
}

func NewServer(alerts AlertHandler, monitor Monitor, opts Options) *Server {
	s := &Server{
		alerts:    alerts,
		monitor:   monitor,
		journal:   opts.Journal,
		labels:    opts.Labels,
		rateLimit: opts.RateLimit,
		now:       time.Now,
		logger:    log.Component("webhook"),
		echo:      echo.New(),
	}
	s.setupRoutes()
	return s
}

// Start serves on addr in the background.
func (s *Server) Start(addr string) {
	go func() {
		s.logger.Info().Str("addr", addr).Float64("rate_limit", s.rateLimit).Msg("Starting webhook server")
		if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error().Err(err).Msg("Webhook server failed")
		}
	}()
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("Shutting down webhook server...")
	return s.echo.Shutdown(ctx)
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

func (s *Server) setupRoutes() {
	s.echo.HideBanner = true
	s.echo.HidePort = true

	s.echo.Use(middleware.Logger())
	s.echo.Use(middleware.Recover())
	s.echo.Use(middleware.CORS())

	s.echo.GET("/health", s.health)

	hooks := s.echo.Group("/webhook")
	if s.rateLimit > 0 {
		hooks.Use(middleware.RateLimiter(middleware.NewRateLimiterMemoryStore(rate.Limit(s.rateLimit))))
	}
	hooks.POST("/alert", s.alertWebhook)
	hooks.POST("/status", s.statusWebhook)
	hooks.POST("/board", s.boardWebhook)

	api := s.echo.Group("/api/v1")
	api.GET("/overview", s.overview)
	api.GET("/chassis/:number", s.chassis)
	api.GET("/stacks", s.stacks)
	api.GET("/stacks/:uuid", s.stack)
	api.GET("/labels/:uuid/stacks", s.labelStacks)
	api.GET("/tasks/:id/resources", s.taskResources)
	api.GET("/alerts", s.listAlerts)
	api.POST("/alerts/:id/ack", s.ackAlert)
	api.GET("/commands", s.commands)
}

func (s *Server) health(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, map[string]string{
		"status":  "ok",
		"service": ServiceName,
	})
}

// statusFor maps a service result code onto an HTTP status.
func statusFor(code protocol.CommandResult) int {
	switch code {
	case protocol.ResultSuccess:
		return http.StatusOK
	case protocol.ResultInvalidParameter:
		return http.StatusBadRequest
	case protocol.ResultNotFound:
		return http.StatusNotFound
	case protocol.ResultTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func errorJSON(ctx echo.Context, status int, message string) error {
	return ctx.JSON(status, map[string]string{"error": message})
}
