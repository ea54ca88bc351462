package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

// TopologyTestSuite covers boards, chassis and the topology factory.
type TopologyTestSuite struct {
	suite.Suite
	chassis Chassis
}

func (s *TopologyTestSuite) SetupTest() {
	s.chassis = NewChassis(1, TopologyOptions{})
}

func (s *TopologyTestSuite) TestSlotClasses() {
	for slot := 1; slot <= SlotsPerChassis; slot++ {
		typ := BoardTypeForSlot(slot)
		switch slot {
		case 6, 7:
			s.Equal(BoardTypeSwitch, typ, "slot %d", slot)
		case 13, 14:
			s.Equal(BoardTypePower, typ, "slot %d", slot)
		default:
			s.Equal(BoardTypeCompute, typ, "slot %d", slot)
		}
		board := NewBoard(1, slot, "b", "a")
		s.Equal(typ == BoardTypeCompute, board.CanRunTasks(), "slot %d", slot)
		s.Equal(typ == BoardTypeCompute, IsComputeSlot(slot))
	}
	s.False(IsValidSlot(0))
	s.False(IsValidSlot(15))
	s.False(IsComputeSlot(15))
}

func (s *TopologyTestSuite) TestNewChassisDefaults() {
	s.Equal("chassis-01", s.chassis.Name)
	for slot := 1; slot <= SlotsPerChassis; slot++ {
		board, ok := s.chassis.Board(slot)
		s.Require().True(ok)
		s.Equal(slot, board.Slot)
		s.Equal(1, board.ChassisNumber)
		s.Equal(BoardStatusUnknown, board.Status)
	}
	board, _ := s.chassis.Board(3)
	s.Equal("192.168.1.103", board.Address)
	s.Equal("board-03", board.Name)
}

func (s *TopologyTestSuite) TestTopologyCustomAddressing() {
	all := NewTopology(TopologyOptions{IPPattern: "10.0.%d.%d", IPOffset: 20})
	s.Len(all, ChassisCount)
	board, ok := all[8].Board(14)
	s.Require().True(ok)
	s.Equal("10.0.9.34", board.Address)
	s.Equal(9, all[8].Number)
}

func (s *TopologyTestSuite) TestBoardLookupMisses() {
	_, ok := s.chassis.Board(0)
	s.False(ok)
	_, ok = s.chassis.Board(15)
	s.False(ok)
	_, ok = s.chassis.BoardByAddress("10.9.9.9")
	s.False(ok)
}

func (s *TopologyTestSuite) TestCollectorScenario() {
	board3, _ := s.chassis.Board(3)
	s.NoError(board3.UpdateFromAPI(0, []TaskSummary{{TaskID: "t1", Status: "running"}, {TaskID: "t2", Status: "running"}}))

	board5, _ := s.chassis.Board(5)
	s.NoError(board5.UpdateFromAPI(0, []TaskSummary{{TaskID: "t5"}}))
	board5.MarkOffline()

	s.Equal(2, board3.TaskCount())
	s.Equal(BoardStatusNormal, board3.Status)
	s.Equal(BoardStatusOffline, board5.Status)
	s.Equal(0, board5.TaskCount())
}

func (s *TopologyTestSuite) TestUpdateFromAPIStatusMapping() {
	board, _ := s.chassis.Board(1)
	s.NoError(board.UpdateFromAPI(3, nil))
	s.Equal(BoardStatusAbnormal, board.Status)
	s.True(board.IsAbnormal())
	s.True(board.IsOnline())

	board.MarkOffline()
	s.True(board.IsAbnormal())
	s.False(board.IsOnline())
}

func (s *TopologyTestSuite) TestNonComputeBoardsNeverCarryTasks() {
	for _, slot := range []int{6, 7, 13, 14} {
		board, _ := s.chassis.Board(slot)
		s.NoError(board.UpdateFromAPI(0, []TaskSummary{{TaskID: "x"}}))
		s.Equal(0, board.TaskCount(), "slot %d", slot)
		s.Equal(BoardStatusNormal, board.Status)
	}
}

func (s *TopologyTestSuite) TestTooManyTasksRejected() {
	board, _ := s.chassis.Board(1)
	tasks := make([]TaskSummary, MaxTasksPerBoard+2)
	for i := range tasks {
		tasks[i] = TaskSummary{TaskID: string(rune('a' + i)), Status: "running"}
	}
	s.ErrorIs(board.UpdateFromAPI(0, tasks), ErrTooManyTasks)
	s.Equal(MaxTasksPerBoard, board.TaskCount())
	first, ok := board.Task(0)
	s.True(ok)
	s.Equal("a", first.TaskID)
	_, ok = board.Task(MaxTasksPerBoard)
	s.False(ok)
}

func (s *TopologyTestSuite) TestCountsNeverExceedSlots() {
	for slot := 1; slot <= SlotsPerChassis; slot++ {
		board, _ := s.chassis.Board(slot)
		switch slot % 3 {
		case 0:
			s.NoError(board.UpdateFromAPI(0, nil))
		case 1:
			s.NoError(board.UpdateFromAPI(1, nil))
		default:
			board.MarkOffline()
		}
	}
	total := s.chassis.CountNormal() + s.chassis.CountAbnormal() + s.chassis.CountOffline()
	s.LessOrEqual(total, SlotsPerChassis)
	s.Equal(SlotsPerChassis, total)
}

func (s *TopologyTestSuite) TestCloneIsDeep() {
	board, _ := s.chassis.Board(2)
	s.NoError(board.UpdateFromAPI(0, []TaskSummary{{TaskID: "t1"}}))

	clone := s.chassis.Clone()
	cb, _ := clone.Board(2)
	cb.Tasks[0].TaskID = "changed"
	cb.Status = BoardStatusOffline

	s.Equal("t1", board.Tasks[0].TaskID)
	s.Equal(BoardStatusNormal, board.Status)
	s.Equal(1, s.chassis.TotalTasks())
}

func TestTopologySuite(t *testing.T) {
	suite.Run(t, new(TopologyTestSuite))
}

// WorkloadTestSuite covers tasks, services and stacks.
type WorkloadTestSuite struct {
	suite.Suite
	stack *Stack
}

func (s *WorkloadTestSuite) SetupTest() {
	s.stack = NewStack("s1", "stack one")
	svc := NewService("svc1", "service one", ServiceEnabled, ServiceTypeNormal)
	svc.UpsertTask(Task{ID: "t1", Status: "running", Resources: ResourceUsage{
		CPUCores: 4, CPUUsed: 2, CPUUsage: 50, MemorySize: 1000, MemoryUsed: 250, MemoryUsage: 25,
	}})
	s.stack.UpsertService(svc)
}

func (s *WorkloadTestSuite) TestTaskIsRunning() {
	cases := map[string]bool{
		"running": true,
		"pending": true,
		"":        false,
		"stopped": false,
		"failed":  false,
	}
	for status, want := range cases {
		task := Task{Status: status}
		s.Equal(want, task.IsRunning(), "status %q", status)
	}
}

func (s *WorkloadTestSuite) TestOverload() {
	task := Task{Resources: ResourceUsage{CPUUsage: 91}}
	s.True(task.IsResourceOverloaded(0, 0))
	s.False(task.IsResourceOverloaded(95, 95))
	task.Resources = ResourceUsage{MemoryUsage: 90}
	s.False(task.IsResourceOverloaded(0, 0))
}

func (s *WorkloadTestSuite) TestServiceStatusDerivation() {
	svc := NewService("svc", "svc", ServiceEnabled, ServiceTypeNormal)
	s.Equal(ServiceEnabled, svc.RecalculateStatus(), "empty task set keeps prior status")

	svc.ReplaceTasks([]Task{{ID: "a", Status: "running"}, {ID: "b", Status: "running"}})
	s.Equal(ServiceRunning, svc.RecalculateStatus())

	svc.UpsertTask(Task{ID: "b", Status: "failed"})
	s.Equal(ServiceAbnormal, svc.RecalculateStatus())

	svc.ReplaceTasks(nil)
	s.Equal(ServiceAbnormal, svc.RecalculateStatus())
	s.Equal([]string{}, svc.TaskIDs())
}

func (s *WorkloadTestSuite) TestStackRunningStatus() {
	s.Equal(StackRunningNormal, s.stack.RecalculateAll())

	bad := NewService("svc2", "bad", ServiceEnabled, ServiceTypeSharedOwned)
	bad.UpsertTask(Task{ID: "t2", Status: "stopped"})
	s.stack.UpsertService(bad)
	s.Equal(StackRunningAbnormal, s.stack.RecalculateAll())

	empty := NewStack("s2", "empty")
	empty.RunningStatus = StackRunningAbnormal
	s.Equal(StackRunningNormal, empty.RecalculateRunningStatus())
}

func (s *WorkloadTestSuite) TestFindTaskResources() {
	usage, ok := s.stack.FindTaskResources("t1")
	s.True(ok)
	s.Equal(50.0, usage.CPUUsage)

	_, ok = s.stack.FindTaskResources("unknown")
	s.False(ok)

	task, svc, ok := s.stack.FindTask("t1")
	s.True(ok)
	s.Equal("svc1", svc.UUID)
	s.Equal("running", task.Status)
}

func (s *WorkloadTestSuite) TestLabels() {
	for i := 0; i < MaxLabelsPerStack; i++ {
		s.NoError(s.stack.AddLabel(Label{Name: "n", UUID: string(rune('A' + i))}))
	}
	s.ErrorIs(s.stack.AddLabel(Label{UUID: "overflow"}), ErrTooManyLabels)
	s.Len(s.stack.Labels, MaxLabelsPerStack)
	s.True(s.stack.HasLabel("A"))
	s.False(s.stack.HasLabel("overflow"))
}

func (s *WorkloadTestSuite) TestTotalResources() {
	svc := NewService("svc2", "two", ServiceRunning, ServiceTypeNormal)
	svc.UpsertTask(Task{ID: "t2", Status: "running", Resources: ResourceUsage{
		CPUCores: 4, CPUUsed: 1, MemorySize: 1000, MemoryUsed: 750, NetReceive: 3, NetSent: 4, GPUMemUsed: 5,
	}})
	s.stack.UpsertService(svc)

	total := s.stack.CalculateTotalResources()
	s.Equal(8.0, total.CPUCores)
	s.Equal(3.0, total.CPUUsed)
	s.InDelta(37.5, total.CPUUsage, 0.0001)
	s.InDelta(50.0, total.MemoryUsage, 0.0001)
	s.Equal(5.0, total.GPUMemUsed)
	s.Equal(2, s.stack.TotalTasks())

	s.Equal(ResourceUsage{}, NewStack("x", "x").CalculateTotalResources())
}

func (s *WorkloadTestSuite) TestCloneIsDeep() {
	clone := s.stack.Clone()
	clone.Services["svc1"].Tasks["t1"].Status = "failed"
	clone.Labels = append(clone.Labels, Label{UUID: "L"})

	task, _, _ := s.stack.FindTask("t1")
	s.Equal("running", task.Status)
	s.Empty(s.stack.Labels)
}

func TestWorkloadSuite(t *testing.T) {
	suite.Run(t, new(WorkloadTestSuite))
}

// AlertTestSuite covers the alert aggregate.
type AlertTestSuite struct {
	suite.Suite
	now time.Time
}

func (s *AlertTestSuite) SetupTest() {
	s.now = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
}

func (s *AlertTestSuite) TestBoardAlert() {
	loc := Location{ChassisNumber: 2, BoardNumber: 4, BoardAddress: "192.168.2.104"}
	alert, err := NewBoardAlert("a1", loc, []string{"temp high", "fan stopped"}, s.now)
	s.NoError(err)
	s.True(alert.IsBoardAlert())
	s.Equal("192.168.2.104", alert.RelatedEntity)
	s.Len(alert.Messages, 2)
	s.Equal(s.now, alert.Messages[0].Timestamp)
}

func (s *AlertTestSuite) TestComponentAlert() {
	ref := ComponentRef{StackUUID: "s1", ServiceUUID: "svc1", TaskID: "t9"}
	alert, err := NewComponentAlert("a2", ref, Location{}, nil, s.now)
	s.NoError(err)
	s.True(alert.IsComponentAlert())
	s.Equal("t9", alert.RelatedEntity)
	s.Equal("s1", alert.StackUUID)
}

func (s *AlertTestSuite) TestMessageCapacity() {
	msgs := make([]string, MaxAlertMessages+1)
	alert, err := NewBoardAlert("a3", Location{}, msgs, s.now)
	s.ErrorIs(err, ErrTooManyMessages)
	s.Len(alert.Messages, MaxAlertMessages)
}

func (s *AlertTestSuite) TestAcknowledgeIdempotent() {
	alert, _ := NewBoardAlert("a4", Location{}, nil, s.now)
	alert.Acknowledge()
	alert.Acknowledge()
	s.True(alert.Acknowledged)
	alert.Unacknowledge()
	s.False(alert.Acknowledged)
}

func (s *AlertTestSuite) TestAge() {
	alert, _ := NewBoardAlert("a5", Location{}, nil, s.now)
	s.Equal(90*time.Second, alert.AgeAt(s.now.Add(90*time.Second)))
	s.Equal(time.Duration(0), alert.AgeAt(s.now.Add(-time.Hour)))
}

func TestAlertSuite(t *testing.T) {
	suite.Run(t, new(AlertTestSuite))
}
