package backend

import "encoding/json"

// envelope wraps every backend reply.
type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// BoardTask is the task summary carried with board info.
type BoardTask struct {
	TaskID      string `json:"taskID"`
	TaskStatus  string `json:"taskStatus"`
	ServiceName string `json:"serviceName"`
	ServiceUUID string `json:"serviceUUID"`
	StackName   string `json:"stackName"`
	StackUUID   string `json:"stackUUID"`
}

// BoardInfo is one entry of GET /boardinfo.
type BoardInfo struct {
	ChassisName   string      `json:"chassisName"`
	ChassisNumber int         `json:"chassisNumber"`
	BoardName     string      `json:"boardName"`
	BoardNumber   int         `json:"boardNumber"`
	BoardType     int         `json:"boardType"`
	BoardAddress  string      `json:"boardAddress"`
	BoardStatus   int         `json:"boardStatus"`
	TaskInfos     []BoardTask `json:"taskInfos"`
}

type LabelInfo struct {
	LabelName string `json:"labelName"`
	LabelUUID string `json:"labelUUID"`
}

// TaskInfo is a task with resource usage and location, as reported with stack info.
type TaskInfo struct {
	TaskID        string  `json:"taskID"`
	TaskStatus    string  `json:"taskStatus"`
	CPUCores      float64 `json:"cpuCores"`
	CPUUsed       float64 `json:"cpuUsed"`
	CPUUsage      float64 `json:"cpuUsage"`
	MemorySize    float64 `json:"memorySize"`
	MemoryUsed    float64 `json:"memoryUsed"`
	MemoryUsage   float64 `json:"memoryUsage"`
	NetReceive    float64 `json:"netReceive"`
	NetSent       float64 `json:"netSent"`
	GPUMemUsed    float64 `json:"gpuMemUsed"`
	ChassisName   string  `json:"chassisName"`
	ChassisNumber int     `json:"chassisNumber"`
	BoardName     string  `json:"boardName"`
	BoardNumber   int     `json:"boardNumber"`
	BoardAddress  string  `json:"boardAddress"`
}

type ServiceInfo struct {
	ServiceName   string     `json:"serviceName"`
	ServiceUUID   string     `json:"serviceUUID"`
	ServiceStatus int        `json:"serviceStatus"`
	ServiceType   int        `json:"serviceType"`
	TaskInfos     []TaskInfo `json:"taskInfos"`
}

// StackInfo is one entry of GET /stackinfo.
type StackInfo struct {
	StackName          string        `json:"stackName"`
	StackUUID          string        `json:"stackUUID"`
	StackDeployStatus  int           `json:"stackDeployStatus"`
	StackRunningStatus int           `json:"stackRunningStatus"`
	StackLabelInfos    []LabelInfo   `json:"stackLabelInfos"`
	ServiceInfos       []ServiceInfo `json:"serviceInfos"`
}

type deployRequest struct {
	StackLabels []string `json:"stackLabels"`
}

// StackResult is the per-stack outcome of a deploy or undeploy.
type StackResult struct {
	StackName string `json:"stackName"`
	StackUUID string `json:"stackUUID"`
	Message   string `json:"message"`
}

// DeployResponse splits the addressed stacks into successes and failures.
type DeployResponse struct {
	SuccessStackInfos []StackResult `json:"successStackInfos"`
	FailureStackInfos []StackResult `json:"failureStackInfos"`
}
