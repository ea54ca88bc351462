package protocol

import (
	"encoding/binary"

	"zygl/pkg/models"
)

// Resource monitor packet layout, 1000 bytes total:
//
//	0-21    opaque header, zero filled
//	22-23   command code 0xF000
//	24-27   response id
//	28-135  board states [9][12]
//	136-999 task states  [9][12][8]
const (
	ResourceMonitorSize       = 1000
	ResourceMonitorCode       = 0xF000
	MonitorBoardsPerChassis   = 12
	monitorHeaderSize         = 22
	monitorBoardStatesOffset  = monitorHeaderSize + 2 + 4
	monitorTaskStatesOffset   = monitorBoardStatesOffset + models.ChassisCount*MonitorBoardsPerChassis
	monitorTaskStatesByteSize = models.ChassisCount * MonitorBoardsPerChassis * models.MaxTasksPerBoard
)

// Board and task state bytes.
const (
	BoardStateAbnormal uint8 = 0
	BoardStateNormal   uint8 = 1

	TaskStateEmpty    uint8 = 0
	TaskStateNormal   uint8 = 1
	TaskStateAbnormal uint8 = 2
)

// ResourceMonitorPacket is the canonical topology broadcast. Column j of a
// chassis row is slot j+1; the two power slots (13, 14) are not carried.
type ResourceMonitorPacket struct {
	ResponseID  uint32
	BoardStates [models.ChassisCount][MonitorBoardsPerChassis]uint8
	TaskStates  [models.ChassisCount][MonitorBoardsPerChassis][models.MaxTasksPerBoard]uint8
}

// NewResourceMonitor projects a topology onto the state matrices.
func NewResourceMonitor(chassis *[models.ChassisCount]models.Chassis, responseID uint32) ResourceMonitorPacket {
	p := ResourceMonitorPacket{ResponseID: responseID}
	for c := range chassis {
		for col := 0; col < MonitorBoardsPerChassis; col++ {
			board := &chassis[c].Boards[col]
			if board.IsNormal() {
				p.BoardStates[c][col] = BoardStateNormal
			}
			if !board.CanRunTasks() {
				continue
			}
			for t := 0; t < len(board.Tasks) && t < models.MaxTasksPerBoard; t++ {
				if board.Tasks[t].IsRunning() {
					p.TaskStates[c][col][t] = TaskStateNormal
				} else {
					p.TaskStates[c][col][t] = TaskStateAbnormal
				}
			}
		}
	}
	return p
}

// Encode returns the 1000-byte wire form.
func (p *ResourceMonitorPacket) Encode() []byte {
	b := make([]byte, ResourceMonitorSize)
	binary.LittleEndian.PutUint16(b[monitorHeaderSize:], ResourceMonitorCode)
	binary.LittleEndian.PutUint32(b[monitorHeaderSize+2:], p.ResponseID)

	off := monitorBoardStatesOffset
	for c := range p.BoardStates {
		off += copy(b[off:], p.BoardStates[c][:])
	}
	for c := range p.TaskStates {
		for col := range p.TaskStates[c] {
			off += copy(b[off:], p.TaskStates[c][col][:])
		}
	}
	return b
}

// DecodeResourceMonitor parses a datagram that must be exactly 1000 bytes. Any
// other length is rejected before a single matrix byte is read.
func DecodeResourceMonitor(b []byte) (ResourceMonitorPacket, error) {
	if len(b) != ResourceMonitorSize {
		return ResourceMonitorPacket{}, SizeError{Want: ResourceMonitorSize, Got: len(b)}
	}
	if code := binary.LittleEndian.Uint16(b[monitorHeaderSize:]); code != ResourceMonitorCode {
		return ResourceMonitorPacket{}, ErrBadCommandCode
	}

	var p ResourceMonitorPacket
	p.ResponseID = binary.LittleEndian.Uint32(b[monitorHeaderSize+2:])
	off := monitorBoardStatesOffset
	for c := range p.BoardStates {
		off += copy(p.BoardStates[c][:], b[off:])
	}
	for c := range p.TaskStates {
		for col := range p.TaskStates[c] {
			off += copy(p.TaskStates[c][col][:], b[off:])
		}
	}
	return p, nil
}
