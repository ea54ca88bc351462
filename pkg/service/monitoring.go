package service

import (
	"sort"
	"time"

	"zygl/pkg/models"
	"zygl/pkg/protocol"
	"zygl/pkg/store"
)

type BoardView struct {
	Address   string             `json:"boardAddress"`
	Name      string             `json:"boardName"`
	Slot      int                `json:"boardNumber"`
	Type      models.BoardType   `json:"boardType"`
	TypeName  string             `json:"boardTypeName"`
	Status    models.BoardStatus `json:"boardStatus"`
	StatusStr string             `json:"boardStatusName"`
	TaskCount int                `json:"taskCount"`
	TaskIDs   []string           `json:"taskIDs"`
}

type ChassisView struct {
	Number   int         `json:"chassisNumber"`
	Name     string      `json:"chassisName"`
	Boards   []BoardView `json:"boards"`
	Total    int         `json:"totalBoards"`
	Normal   int         `json:"normalBoards"`
	Abnormal int         `json:"abnormalBoards"`
	Offline  int         `json:"offlineBoards"`
	Tasks    int         `json:"totalTasks"`
}

// Overview is the whole topology as of one snapshot.
type Overview struct {
	Chassis      []ChassisView `json:"chassis"`
	Version      uint64        `json:"version"`
	UpdatedAt    time.Time     `json:"updatedAt"`
	ChassisCount int           `json:"totalChassis"`
	Boards       int           `json:"totalBoards"`
	Normal       int           `json:"totalNormalBoards"`
	Abnormal     int           `json:"totalAbnormalBoards"`
	Offline      int           `json:"totalOfflineBoards"`
	Tasks        int           `json:"totalTasks"`
}

type ServiceView struct {
	UUID      string               `json:"serviceUUID"`
	Name      string               `json:"serviceName"`
	Status    models.ServiceStatus `json:"serviceStatus"`
	Type      models.ServiceType   `json:"serviceType"`
	TaskCount int                  `json:"taskCount"`
	TaskIDs   []string             `json:"taskIDs"`
}

type StackView struct {
	UUID          string                    `json:"stackUUID"`
	Name          string                    `json:"stackName"`
	DeployStatus  models.StackDeployStatus  `json:"deployStatus"`
	RunningStatus models.StackRunningStatus `json:"runningStatus"`
	Labels        []models.Label            `json:"labels"`
	Services      []ServiceView             `json:"services"`
	ServiceCount  int                       `json:"serviceCount"`
	TaskCount     int                       `json:"totalTaskCount"`
	Resources     models.ResourceUsage      `json:"resources"`
}

type StackList struct {
	Stacks          []StackView `json:"stacks"`
	Total           int         `json:"totalStacks"`
	Deployed        int         `json:"deployedStacks"`
	RunningNormally int         `json:"normalRunningStacks"`
	Abnormal        int         `json:"abnormalStacks"`
}

// TaskResourceView is the answer to the on-demand resource query.
type TaskResourceView struct {
	TaskID      string               `json:"taskID"`
	Status      string               `json:"taskStatus"`
	Resources   models.ResourceUsage `json:"resources"`
	Location    models.Location      `json:"location"`
	Overloaded  bool                 `json:"overloaded"`
	StackUUID   string               `json:"stackUUID"`
	StackName   string               `json:"stackName"`
	ServiceUUID string               `json:"serviceUUID"`
	ServiceName string               `json:"serviceName"`
}

// AlertFilter narrows Alerts. Zero value matches every alert.
type AlertFilter struct {
	UnacknowledgedOnly bool
	Type               *models.AlertType
	BoardAddress       string
	StackUUID          string
}

type AlertSummary struct {
	Total          int `json:"totalAlerts"`
	Unacknowledged int `json:"unacknowledgedCount"`
	Board          int `json:"boardAlertCount"`
	Component      int `json:"componentAlertCount"`
}

// MonitoringService answers read-only queries over the three stores.
type MonitoringService struct {
	chassis *store.ChassisStore
	stacks  *store.StackStore
	alerts  *store.AlertStore
}

func NewMonitoringService(chassis *store.ChassisStore, stacks *store.StackStore, alerts *store.AlertStore) *MonitoringService {
	return &MonitoringService{chassis: chassis, stacks: stacks, alerts: alerts}
}

// Overview reads the topology once; every figure comes from the same snapshot.
func (s *MonitoringService) Overview() Overview {
	snap := s.chassis.Snapshot()
	out := Overview{
		Chassis:   make([]ChassisView, 0, models.ChassisCount),
		Version:   snap.Version,
		UpdatedAt: snap.UpdatedAt,
	}
	for i := range snap.Chassis {
		view := chassisView(&snap.Chassis[i])
		out.Chassis = append(out.Chassis, view)
		out.Boards += view.Total
		out.Normal += view.Normal
		out.Abnormal += view.Abnormal
		out.Offline += view.Offline
		out.Tasks += view.Tasks
	}
	out.ChassisCount = len(out.Chassis)
	return out
}

// Chassis returns one chassis by number.
func (s *MonitoringService) Chassis(number int) Result[ChassisView] {
	c, ok := s.chassis.Snapshot().ChassisByNumber(number)
	if !ok {
		return fail[ChassisView](protocol.ResultNotFound, "chassis %d not found", number)
	}
	return succeed(chassisView(c), "")
}

func chassisView(c *models.Chassis) ChassisView {
	view := ChassisView{
		Number:   c.Number,
		Name:     c.Name,
		Boards:   make([]BoardView, 0, models.SlotsPerChassis),
		Total:    models.SlotsPerChassis,
		Normal:   c.CountNormal(),
		Abnormal: c.CountAbnormal(),
		Offline:  c.CountOffline(),
		Tasks:    c.TotalTasks(),
	}
	for i := range c.Boards {
		b := &c.Boards[i]
		ids := make([]string, 0, len(b.Tasks))
		for _, t := range b.Tasks {
			ids = append(ids, t.TaskID)
		}
		view.Boards = append(view.Boards, BoardView{
			Address:   b.Address,
			Name:      b.Name,
			Slot:      b.Slot,
			Type:      b.Type,
			TypeName:  b.Type.String(),
			Status:    b.Status,
			StatusStr: b.Status.String(),
			TaskCount: len(b.Tasks),
			TaskIDs:   ids,
		})
	}
	return view
}

func (s *MonitoringService) Stacks() StackList {
	stacks := s.stacks.All()
	out := StackList{Stacks: make([]StackView, 0, len(stacks)), Total: len(stacks)}
	for _, st := range stacks {
		out.Stacks = append(out.Stacks, stackView(st))
		if st.IsDeployed() {
			out.Deployed++
			if st.IsRunningNormally() {
				out.RunningNormally++
			} else {
				out.Abnormal++
			}
		}
	}
	return out
}

func (s *MonitoringService) Stack(uuid string) Result[StackView] {
	st, ok := s.stacks.Get(uuid)
	if !ok {
		return fail[StackView](protocol.ResultNotFound, "stack not found")
	}
	return succeed(stackView(st), "")
}

func stackView(st *models.Stack) StackView {
	view := StackView{
		UUID:          st.UUID,
		Name:          st.Name,
		DeployStatus:  st.DeployStatus,
		RunningStatus: st.RunningStatus,
		Labels:        append([]models.Label{}, st.Labels...),
		Services:      make([]ServiceView, 0, len(st.Services)),
		ServiceCount:  len(st.Services),
		TaskCount:     st.TotalTasks(),
		Resources:     st.CalculateTotalResources(),
	}
	for _, svc := range st.Services {
		view.Services = append(view.Services, ServiceView{
			UUID:      svc.UUID,
			Name:      svc.Name,
			Status:    svc.Status,
			Type:      svc.Type,
			TaskCount: svc.TaskCount(),
			TaskIDs:   svc.TaskIDs(),
		})
	}
	sort.Slice(view.Services, func(i, j int) bool {
		if view.Services[i].Name != view.Services[j].Name {
			return view.Services[i].Name < view.Services[j].Name
		}
		return view.Services[i].UUID < view.Services[j].UUID
	})
	return view
}

// TaskResources finds a task anywhere in the workload tree.
func (s *MonitoringService) TaskResources(taskID string) Result[TaskResourceView] {
	if taskID == "" {
		return fail[TaskResourceView](protocol.ResultInvalidParameter, "task id is empty")
	}
	st, ok := s.stacks.FindStackByTaskID(taskID)
	if !ok {
		return fail[TaskResourceView](protocol.ResultNotFound, "task not found")
	}
	task, svc, ok := st.FindTask(taskID)
	if !ok {
		return fail[TaskResourceView](protocol.ResultNotFound, "task not found")
	}
	return succeed(TaskResourceView{
		TaskID:      task.ID,
		Status:      task.Status,
		Resources:   task.Resources,
		Location:    task.Location,
		Overloaded:  task.IsResourceOverloaded(0, 0),
		StackUUID:   st.UUID,
		StackName:   st.Name,
		ServiceUUID: svc.UUID,
		ServiceName: svc.Name,
	}, "")
}

// Alerts returns matching alerts, newest first.
func (s *MonitoringService) Alerts(f AlertFilter) []*models.Alert {
	var all []*models.Alert
	switch {
	case f.BoardAddress != "":
		all = s.alerts.ByBoardAddress(f.BoardAddress)
	case f.StackUUID != "":
		all = s.alerts.ByStackUUID(f.StackUUID)
	default:
		all = s.alerts.All()
	}

	out := all[:0]
	for _, a := range all {
		if f.UnacknowledgedOnly && a.Acknowledged {
			continue
		}
		if f.Type != nil && a.Type != *f.Type {
			continue
		}
		if f.StackUUID != "" && a.StackUUID != f.StackUUID {
			continue
		}
		out = append(out, a)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func (s *MonitoringService) AlertSummary() AlertSummary {
	return AlertSummary{
		Total:          s.alerts.Count(),
		Unacknowledged: s.alerts.CountUnacknowledged(),
		Board:          s.alerts.CountBoardAlerts(),
		Component:      s.alerts.CountComponentAlerts(),
	}
}
