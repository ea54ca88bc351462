package server

import (
	"net/http"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/labstack/echo/v4"

	"zygl/pkg/journal"
	"zygl/pkg/models"
	"zygl/pkg/service"
)

type overviewResponse struct {
	service.Overview
	Alerts service.AlertSummary `json:"alerts"`
}

// alertView adds a human-readable age to an alert.
type alertView struct {
	*models.Alert
	Age string `json:"age"`
}

type alertListResponse struct {
	Alerts []alertView `json:"alerts"`
	Total  int         `json:"total"`
}

type commandListResponse struct {
	Commands []journal.Entry `json:"commands"`
	Total    int             `json:"total"`
}

func resultJSON[T any](ctx echo.Context, res service.Result[T]) error {
	if !res.Success {
		return errorJSON(ctx, statusFor(res.Code), res.Message)
	}
	return ctx.JSON(http.StatusOK, res.Data)
}

func (s *Server) overview(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, overviewResponse{
		Overview: s.monitor.Overview(),
		Alerts:   s.monitor.AlertSummary(),
	})
}

func (s *Server) chassis(ctx echo.Context) error {
	number, err := strconv.Atoi(ctx.Param("number"))
	if err != nil {
		return errorJSON(ctx, http.StatusBadRequest, "invalid chassis number")
	}
	return resultJSON(ctx, s.monitor.Chassis(number))
}

func (s *Server) stacks(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, s.monitor.Stacks())
}

func (s *Server) stack(ctx echo.Context) error {
	return resultJSON(ctx, s.monitor.Stack(ctx.Param("uuid")))
}

func (s *Server) labelStacks(ctx echo.Context) error {
	if s.labels == nil {
		return errorJSON(ctx, http.StatusServiceUnavailable, "label preview unavailable")
	}
	return resultJSON(ctx, s.labels.PreviewByLabel(ctx.Param("uuid")))
}

func (s *Server) taskResources(ctx echo.Context) error {
	return resultJSON(ctx, s.monitor.TaskResources(ctx.Param("id")))
}

// listAlerts accepts unacknowledged=true, type=board|component, board=<address>
// and stack=<uuid>.
func (s *Server) listAlerts(ctx echo.Context) error {
	var filter service.AlertFilter

	if v := ctx.QueryParam("unacknowledged"); v != "" {
		only, err := strconv.ParseBool(v)
		if err != nil {
			return errorJSON(ctx, http.StatusBadRequest, "invalid unacknowledged flag")
		}
		filter.UnacknowledgedOnly = only
	}

	switch ctx.QueryParam("type") {
	case "":
	case alertTypeBoard:
		t := models.AlertTypeBoard
		filter.Type = &t
	case alertTypeComponent:
		t := models.AlertTypeComponent
		filter.Type = &t
	default:
		return errorJSON(ctx, http.StatusBadRequest, "invalid alert type")
	}

	filter.BoardAddress = ctx.QueryParam("board")
	filter.StackUUID = ctx.QueryParam("stack")

	now := s.now()
	alerts := s.monitor.Alerts(filter)
	views := make([]alertView, 0, len(alerts))
	for _, a := range alerts {
		views = append(views, alertView{
			Alert: a,
			Age:   humanize.RelTime(a.CreatedAt, now, "ago", "from now"),
		})
	}
	return ctx.JSON(http.StatusOK, alertListResponse{Alerts: views, Total: len(views)})
}

func (s *Server) ackAlert(ctx echo.Context) error {
	res := s.alerts.Acknowledge(ctx.Param("id"))
	return ctx.JSON(statusFor(res.Code), res)
}

func (s *Server) commands(ctx echo.Context) error {
	if s.journal == nil {
		return errorJSON(ctx, http.StatusServiceUnavailable, "command journal unavailable")
	}

	limit := journal.DefaultRecentLimit
	if v := ctx.QueryParam("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return errorJSON(ctx, http.StatusBadRequest, "invalid limit")
		}
		limit = n
	}

	entries, err := s.journal.Recent(ctx.Request().Context(), limit)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to read command journal")
		return errorJSON(ctx, http.StatusInternalServerError, "failed to read command journal")
	}
	return ctx.JSON(http.StatusOK, commandListResponse{Commands: entries, Total: len(entries)})
}
