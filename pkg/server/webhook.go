package server

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"zygl/pkg/models"
	"zygl/pkg/service"
)

const (
	alertTypeBoard     = "board"
	alertTypeComponent = "component"

	boardEventOffline = "offline"
	boardOfflineText  = "board offline"
)

// alertRequest is the body of POST /webhook/alert. Monitors send the message
// list as either "messages" or "alertMessages".
type alertRequest struct {
	AlertType string `json:"alertType"`

	BoardAddress  string `json:"boardAddress"`
	ChassisName   string `json:"chassisName"`
	ChassisNumber int    `json:"chassisNumber"`
	BoardName     string `json:"boardName"`
	BoardNumber   int    `json:"boardNumber"`
	BoardStatus   int    `json:"boardStatus"`

	StackName   string          `json:"stackName"`
	StackUUID   string          `json:"stackUUID"`
	ServiceName string          `json:"serviceName"`
	ServiceUUID string          `json:"serviceUUID"`
	TaskID      string          `json:"taskID"`
	Location    models.Location `json:"location"`

	Messages      []string `json:"messages"`
	AlertMessages []string `json:"alertMessages"`
}

func (r *alertRequest) messages() []string {
	return append(append([]string{}, r.Messages...), r.AlertMessages...)
}

type statusRequest struct {
	EventType string `json:"eventType"`
	StackUUID string `json:"stackUUID"`
	NewStatus int    `json:"newStatus"`
	Timestamp uint64 `json:"timestamp"`
}

type boardRequest struct {
	BoardAddress  string `json:"boardAddress"`
	ChassisNumber int    `json:"chassisNumber"`
	SlotNumber    int    `json:"slotNumber"`
	EventType     string `json:"eventType"`
	Timestamp     uint64 `json:"timestamp"`
}

type webhookResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	AlertUUID string `json:"alertUUID,omitempty"`
}

func badBody(ctx echo.Context, err error) error {
	return ctx.JSON(http.StatusBadRequest, webhookResponse{Message: "invalid JSON: " + err.Error()})
}

func alertReply(ctx echo.Context, res service.Result[string]) error {
	status := http.StatusOK
	if !res.Success {
		status = http.StatusBadRequest
	}
	return ctx.JSON(status, webhookResponse{
		Success:   res.Success,
		Message:   res.Message,
		AlertUUID: res.Data,
	})
}

// alertWebhook accepts board and component alerts. A missing alertType means
// board.
func (s *Server) alertWebhook(ctx echo.Context) error {
	var req alertRequest
	if err := ctx.Bind(&req); err != nil {
		return badBody(ctx, err)
	}

	switch req.AlertType {
	case "", alertTypeBoard:
		return alertReply(ctx, s.alerts.HandleBoardAlert(service.BoardAlertReport{
			BoardAddress:  req.BoardAddress,
			ChassisName:   req.ChassisName,
			ChassisNumber: req.ChassisNumber,
			BoardName:     req.BoardName,
			BoardNumber:   req.BoardNumber,
			BoardStatus:   req.BoardStatus,
			Messages:      req.messages(),
		}))
	case alertTypeComponent:
		return alertReply(ctx, s.alerts.HandleComponentAlert(service.ComponentAlertReport{
			StackName:   req.StackName,
			StackUUID:   req.StackUUID,
			ServiceName: req.ServiceName,
			ServiceUUID: req.ServiceUUID,
			TaskID:      req.TaskID,
			Location:    req.Location,
			Messages:    req.messages(),
		}))
	default:
		return ctx.JSON(http.StatusBadRequest, webhookResponse{
			Message: fmt.Sprintf("unsupported alert type %q", req.AlertType),
		})
	}
}

// statusWebhook only records that the event arrived; stack state comes from
// the collector.
func (s *Server) statusWebhook(ctx echo.Context) error {
	var req statusRequest
	if err := ctx.Bind(&req); err != nil {
		return badBody(ctx, err)
	}
	s.logger.Info().
		Str("event", req.EventType).
		Str("stack", req.StackUUID).
		Int("new_status", req.NewStatus).
		Msg("Status event received")
	return ctx.JSON(http.StatusOK, webhookResponse{Success: true, Message: "status received"})
}

func (s *Server) boardWebhook(ctx echo.Context) error {
	var req boardRequest
	if err := ctx.Bind(&req); err != nil {
		return badBody(ctx, err)
	}

	if req.EventType != boardEventOffline {
		s.logger.Debug().Str("event", req.EventType).Str("board", req.BoardAddress).Msg("Board event received")
		return ctx.JSON(http.StatusOK, webhookResponse{Success: true, Message: "board event received"})
	}

	return alertReply(ctx, s.alerts.HandleBoardAlert(service.BoardAlertReport{
		BoardAddress:  req.BoardAddress,
		ChassisNumber: req.ChassisNumber,
		BoardNumber:   req.SlotNumber,
		BoardStatus:   int(models.BoardStatusOffline),
		Messages:      []string{boardOfflineText},
	}))
}
