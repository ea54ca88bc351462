package models

import "errors"

const (
	// ChassisCount is the number of chassis in the cluster.
	ChassisCount = 9
	// SlotsPerChassis is the number of board slots in one chassis.
	SlotsPerChassis = 14
	// MaxTasksPerBoard is the number of task summaries a compute board can carry.
	MaxTasksPerBoard = 8
	// MaxLabelsPerStack is the number of labels a stack can carry.
	MaxLabelsPerStack = 8
	// MaxAlertMessages is the number of messages an alert can hold.
	MaxAlertMessages = 16
)

var (
	// ErrTooManyTasks is returned when a board is given more than MaxTasksPerBoard tasks.
	ErrTooManyTasks = errors.New("too many tasks for board")

	// ErrTooManyMessages is returned when an alert already holds MaxAlertMessages messages.
	ErrTooManyMessages = errors.New("too many alert messages")

	// ErrTooManyLabels is returned when a stack already holds MaxLabelsPerStack labels.
	ErrTooManyLabels = errors.New("too many stack labels")
)

// BoardType is the hardware class of a board, fixed by its slot.
type BoardType int32

const (
	BoardTypeCompute BoardType = 0
	BoardTypeSwitch  BoardType = 1
	BoardTypePower   BoardType = 2
)

func (t BoardType) String() string {
	switch t {
	case BoardTypeCompute:
		return "compute"
	case BoardTypeSwitch:
		return "switch"
	case BoardTypePower:
		return "power"
	default:
		return "unknown"
	}
}

// BoardStatus is the operational status of a board.
type BoardStatus int32

const (
	BoardStatusUnknown  BoardStatus = -1
	BoardStatusNormal   BoardStatus = 0
	BoardStatusAbnormal BoardStatus = 1
	BoardStatusOffline  BoardStatus = 2
)

func (s BoardStatus) String() string {
	switch s {
	case BoardStatusNormal:
		return "normal"
	case BoardStatusAbnormal:
		return "abnormal"
	case BoardStatusOffline:
		return "offline"
	default:
		return "unknown"
	}
}

type StackDeployStatus int32

const (
	StackUndeployed StackDeployStatus = 0
	StackDeployed   StackDeployStatus = 1
)

func (s StackDeployStatus) String() string {
	if s == StackDeployed {
		return "deployed"
	}
	return "undeployed"
}

type StackRunningStatus int32

const (
	StackRunningNormal   StackRunningStatus = 1
	StackRunningAbnormal StackRunningStatus = 2
)

func (s StackRunningStatus) String() string {
	if s == StackRunningAbnormal {
		return "abnormal"
	}
	return "normal"
}

type ServiceStatus int32

const (
	ServiceDisabled ServiceStatus = 0
	ServiceEnabled  ServiceStatus = 1
	ServiceRunning  ServiceStatus = 2
	ServiceAbnormal ServiceStatus = 3
)

func (s ServiceStatus) String() string {
	switch s {
	case ServiceDisabled:
		return "disabled"
	case ServiceEnabled:
		return "enabled"
	case ServiceRunning:
		return "running"
	case ServiceAbnormal:
		return "abnormal"
	default:
		return "unknown"
	}
}

type ServiceType int32

const (
	ServiceTypeNormal          ServiceType = 0
	ServiceTypeSharedReference ServiceType = 1
	ServiceTypeSharedOwned     ServiceType = 2
)

func (t ServiceType) String() string {
	switch t {
	case ServiceTypeSharedReference:
		return "shared-reference"
	case ServiceTypeSharedOwned:
		return "shared-owned"
	default:
		return "normal"
	}
}

type AlertType int32

const (
	AlertTypeBoard     AlertType = 0
	AlertTypeComponent AlertType = 1
)

func (t AlertType) String() string {
	if t == AlertTypeComponent {
		return "component"
	}
	return "board"
}

// BoardTypeForSlot returns the board class wired into a slot.
// Slots 6 and 7 hold switches, 13 and 14 hold power supplies.
func BoardTypeForSlot(slot int) BoardType {
	switch slot {
	case 6, 7:
		return BoardTypeSwitch
	case 13, 14:
		return BoardTypePower
	default:
		return BoardTypeCompute
	}
}

// IsValidSlot reports whether slot is within 1..SlotsPerChassis.
func IsValidSlot(slot int) bool {
	return slot >= 1 && slot <= SlotsPerChassis
}

// IsComputeSlot reports whether slot is valid and holds a compute board.
func IsComputeSlot(slot int) bool {
	return IsValidSlot(slot) && BoardTypeForSlot(slot) == BoardTypeCompute
}

// IsValidChassisNumber reports whether n is within 1..ChassisCount.
func IsValidChassisNumber(n int) bool {
	return n >= 1 && n <= ChassisCount
}

// Location places a task or alert on the hardware grid.
type Location struct {
	ChassisName   string `json:"chassisName"`
	ChassisNumber int    `json:"chassisNumber"`
	BoardName     string `json:"boardName"`
	BoardNumber   int    `json:"boardNumber"`
	BoardAddress  string `json:"boardAddress"`
}

// ResourceUsage is a point-in-time resource snapshot of one task, or a sum of many.
type ResourceUsage struct {
	CPUCores    float64 `json:"cpuCores"`
	CPUUsed     float64 `json:"cpuUsed"`
	CPUUsage    float64 `json:"cpuUsage"`
	MemorySize  float64 `json:"memorySize"`
	MemoryUsed  float64 `json:"memoryUsed"`
	MemoryUsage float64 `json:"memoryUsage"`
	NetReceive  float64 `json:"netReceive"`
	NetSent     float64 `json:"netSent"`
	GPUMemUsed  float64 `json:"gpuMemUsed"`
}

// TaskSummary is the per-board view of a task as reported with board info.
type TaskSummary struct {
	TaskID      string `json:"taskID"`
	Status      string `json:"taskStatus"`
	ServiceName string `json:"serviceName"`
	ServiceUUID string `json:"serviceUUID"`
	StackName   string `json:"stackName"`
	StackUUID   string `json:"stackUUID"`
}

// IsRunning applies the same rule as Task.IsRunning to a summary.
func (t TaskSummary) IsRunning() bool {
	return isRunningStatus(t.Status)
}

// Label addresses a stack for batch deploy and undeploy.
type Label struct {
	Name string `json:"labelName"`
	UUID string `json:"labelUUID"`
}
