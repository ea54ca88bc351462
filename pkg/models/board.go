package models

// Board is one card in a chassis slot. Identity and type never change after
// construction; status and tasks are written only by the collector.
type Board struct {
	Address       string        `json:"boardAddress"`
	Name          string        `json:"boardName"`
	ChassisNumber int           `json:"chassisNumber"`
	Slot          int           `json:"boardNumber"`
	Type          BoardType     `json:"boardType"`
	Status        BoardStatus   `json:"boardStatus"`
	Tasks         []TaskSummary `json:"taskInfos"`
}

// NewBoard creates a board in Unknown status with the type derived from the slot.
func NewBoard(chassisNumber, slot int, name, address string) Board {
	return Board{
		Address:       address,
		Name:          name,
		ChassisNumber: chassisNumber,
		Slot:          slot,
		Type:          BoardTypeForSlot(slot),
		Status:        BoardStatusUnknown,
	}
}

// CanRunTasks reports whether tasks may be scheduled on this board.
func (b *Board) CanRunTasks() bool {
	return b.Type == BoardTypeCompute
}

func (b *Board) IsNormal() bool {
	return b.Status == BoardStatusNormal
}

// IsAbnormal is true for Abnormal and Offline boards.
func (b *Board) IsAbnormal() bool {
	return b.Status == BoardStatusAbnormal || b.Status == BoardStatusOffline
}

func (b *Board) IsOffline() bool {
	return b.Status == BoardStatusOffline
}

// IsOnline is true for Normal and Abnormal boards.
func (b *Board) IsOnline() bool {
	return b.Status == BoardStatusNormal || b.Status == BoardStatusAbnormal
}

func (b *Board) TaskCount() int {
	return len(b.Tasks)
}

// SetStatus is an explicit status transition. It does not touch tasks.
func (b *Board) SetStatus(status BoardStatus) {
	b.Status = status
}

// UpdateFromAPI applies a backend report. Status 0 means Normal, anything else
// Abnormal. Non-compute boards always end up with no tasks. A compute board given
// more than MaxTasksPerBoard tasks keeps the first MaxTasksPerBoard and returns
// ErrTooManyTasks.
func (b *Board) UpdateFromAPI(apiStatus int, tasks []TaskSummary) error {
	if apiStatus == 0 {
		b.Status = BoardStatusNormal
	} else {
		b.Status = BoardStatusAbnormal
	}

	if !b.CanRunTasks() {
		b.Tasks = nil
		return nil
	}

	var err error
	if len(tasks) > MaxTasksPerBoard {
		tasks = tasks[:MaxTasksPerBoard]
		err = ErrTooManyTasks
	}
	b.Tasks = append([]TaskSummary(nil), tasks...)
	return err
}

// MarkOffline flags a board the backend no longer reports and drops its tasks.
func (b *Board) MarkOffline() {
	b.Status = BoardStatusOffline
	b.Tasks = nil
}

// Task returns the summary of the task at index i (0-based).
func (b *Board) Task(i int) (TaskSummary, bool) {
	if i < 0 || i >= len(b.Tasks) {
		return TaskSummary{}, false
	}
	return b.Tasks[i], true
}

// Clone returns a copy that shares no slices with b.
func (b Board) Clone() Board {
	if b.Tasks != nil {
		b.Tasks = append([]TaskSummary(nil), b.Tasks...)
	}
	return b
}
