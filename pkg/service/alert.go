package service

import (
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"zygl/pkg/log"
	"zygl/pkg/models"
	"zygl/pkg/protocol"
	"zygl/pkg/store"
)

const (
	DefaultSweepInterval = time.Minute
)

// BoardAlertReport is an inbound board anomaly.
type BoardAlertReport struct {
	BoardAddress  string   `json:"boardAddress"`
	ChassisName   string   `json:"chassisName"`
	ChassisNumber int      `json:"chassisNumber"`
	BoardName     string   `json:"boardName"`
	BoardNumber   int      `json:"boardNumber"`
	BoardStatus   int      `json:"boardStatus"`
	Messages      []string `json:"alertMessages"`
}

// ComponentAlertReport is an inbound workload anomaly.
type ComponentAlertReport struct {
	StackName   string          `json:"stackName"`
	StackUUID   string          `json:"stackUUID"`
	ServiceName string          `json:"serviceName"`
	ServiceUUID string          `json:"serviceUUID"`
	TaskID      string          `json:"taskID"`
	Location    models.Location `json:"location"`
	Messages    []string        `json:"alertMessages"`
}

// AlertService ingests, acknowledges and expires alerts.
type AlertService struct {
	alerts  *store.AlertStore
	chassis store.ChassisReader
	now     func() time.Time
	newID   func(kind string) string
	logger  zerolog.Logger

	sweepMu sync.Mutex
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// NewAlertService creates the service. chassis may be nil; when set, board
// identity missing from a report is filled in from the topology.
func NewAlertService(alerts *store.AlertStore, chassis store.ChassisReader) *AlertService {
	return &AlertService{
		alerts:  alerts,
		chassis: chassis,
		now:     time.Now,
		newID:   newAlertID,
		logger:  log.Component("alerts"),
	}
}

func newAlertID(kind string) string {
	return "alert-" + kind + "-" + uuid.NewString()
}

// resolveLocation completes a location from the current topology when only the
// address is known.
func (s *AlertService) resolveLocation(loc models.Location) models.Location {
	if s.chassis == nil || loc.BoardAddress == "" {
		return loc
	}
	snap := s.chassis.Snapshot()
	if snap == nil {
		return loc
	}
	board, ok := snap.BoardByAddress(loc.BoardAddress)
	if !ok {
		return loc
	}
	if loc.ChassisNumber == 0 {
		loc.ChassisNumber = board.ChassisNumber
	}
	if loc.ChassisName == "" {
		if c, ok := snap.ChassisByNumber(board.ChassisNumber); ok {
			loc.ChassisName = c.Name
		}
	}
	if loc.BoardName == "" {
		loc.BoardName = board.Name
	}
	if loc.BoardNumber == 0 {
		loc.BoardNumber = board.Slot
	}
	return loc
}

// HandleBoardAlert records a board alert and returns its id.
func (s *AlertService) HandleBoardAlert(r BoardAlertReport) Result[string] {
	if r.BoardAddress == "" {
		return fail[string](protocol.ResultInvalidParameter, "board alert: board address is empty")
	}

	loc := s.resolveLocation(models.Location{
		ChassisName:   r.ChassisName,
		ChassisNumber: r.ChassisNumber,
		BoardName:     r.BoardName,
		BoardNumber:   r.BoardNumber,
		BoardAddress:  r.BoardAddress,
	})

	id := s.newID("board")
	alert, err := models.NewBoardAlert(id, loc, r.Messages, s.now())
	if err != nil {
		return rejectAlert(err)
	}
	s.alerts.Save(alert)

	s.logger.Info().
		Str("alert", id).
		Str("board", r.BoardAddress).
		Int("board_status", r.BoardStatus).
		Int("messages", len(alert.Messages)).
		Msg("Board alert recorded")
	return succeed(id, "board alert recorded")
}

// HandleComponentAlert records a component alert and returns its id.
func (s *AlertService) HandleComponentAlert(r ComponentAlertReport) Result[string] {
	if r.TaskID == "" && r.ServiceUUID == "" && r.StackUUID == "" {
		return fail[string](protocol.ResultInvalidParameter, "component alert: no stack, service or task identity")
	}

	ref := models.ComponentRef{
		StackName:   r.StackName,
		StackUUID:   r.StackUUID,
		ServiceName: r.ServiceName,
		ServiceUUID: r.ServiceUUID,
		TaskID:      r.TaskID,
	}

	id := s.newID("component")
	alert, err := models.NewComponentAlert(id, ref, s.resolveLocation(r.Location), r.Messages, s.now())
	if err != nil {
		return rejectAlert(err)
	}
	s.alerts.Save(alert)

	s.logger.Info().
		Str("alert", id).
		Str("stack", r.StackUUID).
		Str("task", r.TaskID).
		Int("messages", len(alert.Messages)).
		Msg("Component alert recorded")
	return succeed(id, "component alert recorded")
}

func rejectAlert(err error) Result[string] {
	if errors.Is(err, models.ErrTooManyMessages) {
		return fail[string](protocol.ResultInvalidParameter,
			"alert: more than %d messages", models.MaxAlertMessages)
	}
	return fail[string](protocol.ResultFailed, "alert: %v", err)
}

// Acknowledge marks one alert acknowledged. Acknowledging twice succeeds.
func (s *AlertService) Acknowledge(id string) Result[bool] {
	if id == "" {
		return fail[bool](protocol.ResultInvalidParameter, "alert id is empty")
	}
	if !s.alerts.Acknowledge(id) {
		return fail[bool](protocol.ResultNotFound, "alert not found")
	}
	s.logger.Debug().Str("alert", id).Msg("Alert acknowledged")
	return succeed(true, "alert acknowledged")
}

// AcknowledgeMany acknowledges every known id and reports how many matched.
func (s *AlertService) AcknowledgeMany(ids []string) Result[int] {
	if len(ids) == 0 {
		return fail[int](protocol.ResultInvalidParameter, "alert id list is empty")
	}
	n := s.alerts.AcknowledgeMany(ids)
	return succeed(n, "acknowledged "+strconv.Itoa(n)+" alerts")
}

func (s *AlertService) Remove(id string) Result[bool] {
	if !s.alerts.Remove(id) {
		return fail[bool](protocol.ResultNotFound, "alert not found")
	}
	return succeed(true, "alert removed")
}

// CleanupExpired removes acknowledged alerts older than maxAge.
func (s *AlertService) CleanupExpired(maxAge time.Duration) Result[int] {
	if maxAge <= 0 {
		maxAge = store.DefaultAlertMaxAge
	}
	n := s.alerts.RemoveExpired(maxAge, s.now())
	if n > 0 {
		s.logger.Info().Int("removed", n).Dur("max_age", maxAge).Msg("Expired alerts removed")
	}
	return succeed(n, "removed "+strconv.Itoa(n)+" expired alerts")
}

// StartSweeper runs CleanupExpired every interval until StopSweeper. Calling
// it while a sweeper runs does nothing.
func (s *AlertService) StartSweeper(interval, maxAge time.Duration) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}

	s.sweepMu.Lock()
	defer s.sweepMu.Unlock()
	if s.stopCh != nil {
		return
	}
	stopCh := make(chan struct{})
	s.stopCh = stopCh

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stopCh:
				return
			case <-ticker.C:
				s.CleanupExpired(maxAge)
			}
		}
	}()

	s.logger.Info().Dur("interval", interval).Dur("max_age", maxAge).Msg("Alert sweeper started")
}

func (s *AlertService) StopSweeper() {
	s.sweepMu.Lock()
	stopCh := s.stopCh
	s.stopCh = nil
	s.sweepMu.Unlock()

	if stopCh == nil {
		return
	}
	close(stopCh)
	s.wg.Wait()
	s.logger.Info().Msg("Alert sweeper stopped")
}
