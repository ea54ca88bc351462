package models

import "sort"

const (
	// DefaultCPUThreshold and DefaultMemoryThreshold are the overload limits in percent.
	DefaultCPUThreshold    = 90.0
	DefaultMemoryThreshold = 90.0
)

// Task is one running unit of a service, pinned to a board.
type Task struct {
	ID        string        `json:"taskID"`
	Status    string        `json:"taskStatus"`
	Resources ResourceUsage `json:"resources"`
	Location  Location      `json:"location"`
}

func isRunningStatus(status string) bool {
	return status != "" && status != "stopped" && status != "failed"
}

// IsRunning is true for any non-empty status other than "stopped" or "failed".
func (t *Task) IsRunning() bool {
	return isRunningStatus(t.Status)
}

// IsResourceOverloaded reports whether CPU or memory usage is above the given
// percentages. Non-positive thresholds fall back to the defaults.
func (t *Task) IsResourceOverloaded(cpuThreshold, memThreshold float64) bool {
	if cpuThreshold <= 0 {
		cpuThreshold = DefaultCPUThreshold
	}
	if memThreshold <= 0 {
		memThreshold = DefaultMemoryThreshold
	}
	return t.Resources.CPUUsage > cpuThreshold || t.Resources.MemoryUsage > memThreshold
}

// Service owns its tasks by id.
type Service struct {
	UUID   string           `json:"serviceUUID"`
	Name   string           `json:"serviceName"`
	Status ServiceStatus    `json:"serviceStatus"`
	Type   ServiceType      `json:"serviceType"`
	Tasks  map[string]*Task `json:"taskInfos"`
}

func NewService(uuid, name string, status ServiceStatus, typ ServiceType) *Service {
	return &Service{
		UUID:   uuid,
		Name:   name,
		Status: status,
		Type:   typ,
		Tasks:  make(map[string]*Task),
	}
}

// UpsertTask adds or replaces a task by id.
func (s *Service) UpsertTask(task Task) {
	if s.Tasks == nil {
		s.Tasks = make(map[string]*Task)
	}
	s.Tasks[task.ID] = &task
}

// ReplaceTasks drops all tasks and installs the given set.
func (s *Service) ReplaceTasks(tasks []Task) {
	s.Tasks = make(map[string]*Task, len(tasks))
	for _, task := range tasks {
		s.UpsertTask(task)
	}
}

func (s *Service) Task(id string) (*Task, bool) {
	task, ok := s.Tasks[id]
	return task, ok
}

func (s *Service) TaskCount() int {
	return len(s.Tasks)
}

// TaskIDs returns the task ids in sorted order.
func (s *Service) TaskIDs() []string {
	ids := make([]string, 0, len(s.Tasks))
	for id := range s.Tasks {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// RecalculateStatus derives the status from the tasks: Running when every task
// runs, Abnormal otherwise. With no tasks the previous status is kept.
func (s *Service) RecalculateStatus() ServiceStatus {
	if len(s.Tasks) == 0 {
		return s.Status
	}
	for _, task := range s.Tasks {
		if !task.IsRunning() {
			s.Status = ServiceAbnormal
			return s.Status
		}
	}
	s.Status = ServiceRunning
	return s.Status
}

func (s *Service) FindTaskResources(taskID string) (ResourceUsage, bool) {
	task, ok := s.Tasks[taskID]
	if !ok {
		return ResourceUsage{}, false
	}
	return task.Resources, true
}

func (s *Service) Clone() *Service {
	out := *s
	out.Tasks = make(map[string]*Task, len(s.Tasks))
	for id, task := range s.Tasks {
		t := *task
		out.Tasks[id] = &t
	}
	return &out
}

// Stack is a deployable business unit. It owns its services and up to
// MaxLabelsPerStack labels.
type Stack struct {
	UUID          string              `json:"stackUUID"`
	Name          string              `json:"stackName"`
	DeployStatus  StackDeployStatus   `json:"stackDeployStatus"`
	RunningStatus StackRunningStatus  `json:"stackRunningStatus"`
	Labels        []Label             `json:"stackLabelInfos"`
	Services      map[string]*Service `json:"serviceInfos"`
}

func NewStack(uuid, name string) *Stack {
	return &Stack{
		UUID:          uuid,
		Name:          name,
		DeployStatus:  StackUndeployed,
		RunningStatus: StackRunningNormal,
		Services:      make(map[string]*Service),
	}
}

// AddLabel attaches a label. It fails once the stack holds MaxLabelsPerStack.
func (s *Stack) AddLabel(label Label) error {
	if len(s.Labels) >= MaxLabelsPerStack {
		return ErrTooManyLabels
	}
	s.Labels = append(s.Labels, label)
	return nil
}

func (s *Stack) HasLabel(labelUUID string) bool {
	for _, l := range s.Labels {
		if l.UUID == labelUUID {
			return true
		}
	}
	return false
}

func (s *Stack) IsDeployed() bool {
	return s.DeployStatus == StackDeployed
}

func (s *Stack) IsRunningNormally() bool {
	return s.RunningStatus == StackRunningNormal
}

func (s *Stack) UpsertService(svc *Service) {
	if s.Services == nil {
		s.Services = make(map[string]*Service)
	}
	s.Services[svc.UUID] = svc
}

// ReplaceServices drops all services and installs the given set.
func (s *Stack) ReplaceServices(services []*Service) {
	s.Services = make(map[string]*Service, len(services))
	for _, svc := range services {
		s.Services[svc.UUID] = svc
	}
}

func (s *Stack) Service(uuid string) (*Service, bool) {
	svc, ok := s.Services[uuid]
	return svc, ok
}

// RecalculateRunningStatus is Abnormal if any service is Abnormal, else Normal.
func (s *Stack) RecalculateRunningStatus() StackRunningStatus {
	s.RunningStatus = StackRunningNormal
	for _, svc := range s.Services {
		if svc.Status == ServiceAbnormal {
			s.RunningStatus = StackRunningAbnormal
			break
		}
	}
	return s.RunningStatus
}

// RecalculateAll recomputes every service status and then the stack status.
func (s *Stack) RecalculateAll() StackRunningStatus {
	for _, svc := range s.Services {
		svc.RecalculateStatus()
	}
	return s.RecalculateRunningStatus()
}

// FindTask walks services and tasks for the given id.
func (s *Stack) FindTask(taskID string) (*Task, *Service, bool) {
	for _, svc := range s.Services {
		if task, ok := svc.Tasks[taskID]; ok {
			return task, svc, true
		}
	}
	return nil, nil, false
}

// FindTaskResources is the on-demand resource lookup for one task.
func (s *Stack) FindTaskResources(taskID string) (ResourceUsage, bool) {
	task, _, ok := s.FindTask(taskID)
	if !ok {
		return ResourceUsage{}, false
	}
	return task.Resources, true
}

func (s *Stack) TotalTasks() int {
	total := 0
	for _, svc := range s.Services {
		total += len(svc.Tasks)
	}
	return total
}

// CalculateTotalResources sums usage over every task. The percentages are
// derived from the sums, not averaged.
func (s *Stack) CalculateTotalResources() ResourceUsage {
	var total ResourceUsage
	for _, svc := range s.Services {
		for _, task := range svc.Tasks {
			r := task.Resources
			total.CPUCores += r.CPUCores
			total.CPUUsed += r.CPUUsed
			total.MemorySize += r.MemorySize
			total.MemoryUsed += r.MemoryUsed
			total.NetReceive += r.NetReceive
			total.NetSent += r.NetSent
			total.GPUMemUsed += r.GPUMemUsed
		}
	}
	if total.CPUCores > 0 {
		total.CPUUsage = total.CPUUsed / total.CPUCores * 100
	}
	if total.MemorySize > 0 {
		total.MemoryUsage = total.MemoryUsed / total.MemorySize * 100
	}
	return total
}

// Clone returns a deep copy.
func (s *Stack) Clone() *Stack {
	out := *s
	out.Labels = append([]Label(nil), s.Labels...)
	out.Services = make(map[string]*Service, len(s.Services))
	for id, svc := range s.Services {
		out.Services[id] = svc.Clone()
	}
	return &out
}
