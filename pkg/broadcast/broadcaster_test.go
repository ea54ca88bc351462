package broadcast

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"zygl/pkg/models"
	"zygl/pkg/protocol"
	"zygl/pkg/store"
)

type captureSender struct {
	mu      sync.Mutex
	packets [][]byte
	err     error
}

func (c *captureSender) Send(b []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.packets = append(c.packets, append([]byte(nil), b...))
	return nil
}

func (c *captureSender) take() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.packets
	c.packets = nil
	return out
}

type BroadcasterTestSuite struct {
	suite.Suite
	sender  *captureSender
	chassis *store.ChassisStore
	stacks  *store.StackStore
	alerts  *store.AlertStore
	b       *Broadcaster
	now     time.Time
}

func (s *BroadcasterTestSuite) SetupTest() {
	s.sender = &captureSender{}
	s.chassis = store.NewChassisStore(models.NewTopology(models.TopologyOptions{}))
	s.stacks = store.NewStackStore()
	s.alerts = store.NewAlertStore()
	s.now = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	s.b = NewBroadcaster(s.sender, s.chassis, s.stacks, s.alerts, Intervals{})
	s.b.now = func() time.Time { return s.now }
}

func (s *BroadcasterTestSuite) addAlerts(n int) {
	for i := 0; i < n; i++ {
		a, err := models.NewBoardAlert(fmt.Sprintf("alert-%03d", i), models.Location{BoardAddress: "192.168.1.101"}, []string{"temp high"}, s.now)
		s.Require().NoError(err)
		s.alerts.Save(a)
	}
}

func (s *BroadcasterTestSuite) addStacks(n int) {
	for i := 0; i < n; i++ {
		st := models.NewStack(fmt.Sprintf("stack-%03d", i), fmt.Sprintf("name-%03d", i))
		s.Require().NoError(st.AddLabel(models.Label{Name: "radar", UUID: "lbl-1"}))
		s.stacks.Save(st)
	}
}

func (s *BroadcasterTestSuite) TestDefaultIntervals() {
	s.Equal(DefaultChassisInterval, s.b.intervals.Chassis)
	s.Equal(DefaultAlertInterval, s.b.intervals.Alert)
	s.Equal(DefaultLabelInterval, s.b.intervals.Label)

	custom := NewBroadcaster(s.sender, s.chassis, s.stacks, s.alerts, Intervals{Alert: time.Second})
	s.Equal(time.Second, custom.intervals.Alert)
	s.Equal(DefaultChassisInterval, custom.intervals.Chassis)
}

func (s *BroadcasterTestSuite) TestChassisPacket() {
	s.b.BroadcastChassis()
	s.b.BroadcastChassis()

	packets := s.sender.take()
	s.Require().Len(packets, 2)
	for i, b := range packets {
		s.Len(b, protocol.ResourceMonitorSize)
		p, err := protocol.DecodeResourceMonitor(b)
		s.Require().NoError(err)
		s.Equal(uint32(i), p.ResponseID)
	}
	s.Equal(uint64(2), s.b.Stats().ChassisPackets)
}

func (s *BroadcasterTestSuite) TestResponseIDWraps() {
	s.b.responseID.Store(^uint32(0))
	s.b.BroadcastChassis()
	s.b.BroadcastChassis()

	packets := s.sender.take()
	s.Require().Len(packets, 2)
	first, err := protocol.DecodeResourceMonitor(packets[0])
	s.Require().NoError(err)
	second, err := protocol.DecodeResourceMonitor(packets[1])
	s.Require().NoError(err)
	s.Equal(^uint32(0), first.ResponseID)
	s.Equal(uint32(0), second.ResponseID)
}

func (s *BroadcasterTestSuite) TestNoAlertsSendsNothing() {
	s.b.BroadcastAlerts()
	s.Empty(s.sender.take())

	s.addAlerts(1)
	all := s.alerts.All()
	s.alerts.Acknowledge(all[0].UUID)
	s.b.BroadcastAlerts()
	s.Empty(s.sender.take())
}

func (s *BroadcasterTestSuite) TestAlertBatching() {
	s.addAlerts(protocol.MaxAlertsPerPacket + 1)
	s.b.BroadcastAlerts()

	packets := s.sender.take()
	s.Require().Len(packets, 2)

	first, err := protocol.DecodeAlertPacket(packets[0])
	s.Require().NoError(err)
	second, err := protocol.DecodeAlertPacket(packets[1])
	s.Require().NoError(err)
	s.Len(first.Records, protocol.MaxAlertsPerPacket)
	s.Len(second.Records, 1)
	s.Equal(first.Header.Sequence+1, second.Header.Sequence)
	s.Equal(uint64(2), s.b.Stats().AlertPackets)
}

func (s *BroadcasterTestSuite) TestLabelBatching() {
	s.b.BroadcastLabels()
	s.Empty(s.sender.take())

	s.addStacks(protocol.MaxStacksPerPacket*2 + 3)
	s.b.BroadcastLabels()

	packets := s.sender.take()
	s.Require().Len(packets, 3)
	total := 0
	for _, b := range packets {
		p, err := protocol.DecodeLabelPacket(b)
		s.Require().NoError(err)
		s.LessOrEqual(len(p.Records), protocol.MaxStacksPerPacket)
		total += len(p.Records)
	}
	s.Equal(protocol.MaxStacksPerPacket*2+3, total)
}

func (s *BroadcasterTestSuite) TestSendErrorsAreCounted() {
	s.sender.err = errors.New("network unreachable")
	s.addAlerts(2)

	s.b.BroadcastChassis()
	s.b.BroadcastAlerts()

	st := s.b.Stats()
	s.Equal(uint64(2), st.SendErrors)
	s.Zero(st.ChassisPackets)
	s.Zero(st.AlertPackets)
}

func (s *BroadcasterTestSuite) TestLoopSendsAndStops() {
	s.addAlerts(1)
	s.addStacks(1)

	b := NewBroadcaster(s.sender, s.chassis, s.stacks, s.alerts, Intervals{
		Chassis: 20 * time.Millisecond,
		Alert:   20 * time.Millisecond,
		Label:   20 * time.Millisecond,
	})
	b.Start()

	s.Eventually(func() bool {
		st := b.Stats()
		return st.ChassisPackets >= 2 && st.AlertPackets >= 2 && st.LabelPackets >= 2
	}, 2*time.Second, 10*time.Millisecond)

	start := time.Now()
	b.Stop()
	b.Stop()
	s.Less(time.Since(start), time.Second)

	s.sender.take()
	time.Sleep(3 * tick)
	s.Empty(s.sender.take())
}

func TestBroadcasterSuite(t *testing.T) {
	suite.Run(t, new(BroadcasterTestSuite))
}
