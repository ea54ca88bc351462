package protocol

import (
	"encoding/binary"
	"fmt"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/suite"

	"zygl/pkg/models"
)

type ProtocolTestSuite struct {
	suite.Suite
	now time.Time
}

func (s *ProtocolTestSuite) SetupTest() {
	s.now = time.Date(2026, 5, 6, 7, 8, 9, 0, time.UTC)
}

func (s *ProtocolTestSuite) TestLayoutSizes() {
	s.Equal(176, CommandSize)
	s.Equal(300, ResponseSize)
	s.Equal(1809, AlertRecordSize)
	s.Equal(912, StackLabelRecordSize)
	s.Equal(136, monitorTaskStatesOffset)
	s.Equal(ResourceMonitorSize, monitorTaskStatesOffset+monitorTaskStatesByteSize)

	s.LessOrEqual(HeaderSize+4+MaxAlertsPerPacket*AlertRecordSize, MaxDatagramSize)
	s.LessOrEqual(HeaderSize+4+MaxStacksPerPacket*StackLabelRecordSize, MaxDatagramSize)
}

func (s *ProtocolTestSuite) TestHeaderLayout() {
	h := NewHeader(7, s.now)
	b, err := EncodeCommand(Header{Type: PacketDeployStack, Sequence: h.Sequence, Timestamp: h.Timestamp}, "L1", "op", 42)
	s.Require().NoError(err)

	s.Equal(uint16(0x1001), binary.LittleEndian.Uint16(b[0:2]))
	s.Equal(uint16(1), binary.LittleEndian.Uint16(b[2:4]))
	s.Equal(uint32(7), binary.LittleEndian.Uint32(b[4:8]))
	s.Equal(uint64(s.now.UnixMilli()), binary.LittleEndian.Uint64(b[8:16]))
	s.Equal(uint32(CommandSize-HeaderSize), binary.LittleEndian.Uint32(b[16:20]))
	s.Equal([]byte{0, 0, 0, 0}, b[20:24])

	_, err = DecodeHeader(b[:HeaderSize-1])
	s.ErrorIs(err, ErrShortPacket)
}

func (s *ProtocolTestSuite) TestFixedStringTruncation() {
	field := make([]byte, 8)
	putString(field, "abcdefghij")
	s.Equal("abcdefg", getString(field))
	s.Equal(byte(0), field[7])

	putString(field, "机箱机箱")
	got := getString(field)
	s.True(utf8.ValidString(got))
	s.Equal("机箱", got)

	putString(field, "ab")
	s.Equal("ab", getString(field))
	s.Equal([]byte{'a', 'b', 0, 0, 0, 0, 0, 0}, field)
}

func (s *ProtocolTestSuite) topology() [models.ChassisCount]models.Chassis {
	all := models.NewTopology(models.TopologyOptions{})
	b3, _ := all[0].Board(3)
	s.Require().NoError(b3.UpdateFromAPI(0, []models.TaskSummary{
		{TaskID: "t1", Status: "running"},
		{TaskID: "t2", Status: "failed"},
	}))
	b6, _ := all[0].Board(6)
	s.Require().NoError(b6.UpdateFromAPI(0, nil))
	b5, _ := all[0].Board(5)
	s.Require().NoError(b5.UpdateFromAPI(1, []models.TaskSummary{{TaskID: "t5", Status: "running"}}))
	b12, _ := all[8].Board(12)
	s.Require().NoError(b12.UpdateFromAPI(0, nil))
	b13, _ := all[8].Board(13)
	s.Require().NoError(b13.UpdateFromAPI(0, nil))
	return all
}

func (s *ProtocolTestSuite) TestResourceMonitorProjection() {
	all := s.topology()
	p := NewResourceMonitor(&all, 9)

	s.Equal(BoardStateNormal, p.BoardStates[0][2])
	s.Equal(TaskStateNormal, p.TaskStates[0][2][0])
	s.Equal(TaskStateAbnormal, p.TaskStates[0][2][1])
	s.Equal(TaskStateEmpty, p.TaskStates[0][2][2])

	s.Equal(BoardStateNormal, p.BoardStates[0][5], "switch board status is carried")
	s.Equal(BoardStateAbnormal, p.BoardStates[0][4])
	s.Equal(TaskStateNormal, p.TaskStates[0][4][0], "abnormal board still reports its tasks")
	s.Equal(BoardStateAbnormal, p.BoardStates[0][0], "unknown board")
	s.Equal(BoardStateNormal, p.BoardStates[8][11])
}

func (s *ProtocolTestSuite) TestResourceMonitorWireLayout() {
	all := s.topology()
	p := NewResourceMonitor(&all, 0xDEADBEEF)
	b := p.Encode()

	s.Len(b, ResourceMonitorSize)
	s.Equal(make([]byte, 22), b[:22])
	s.Equal(uint16(0xF000), binary.LittleEndian.Uint16(b[22:24]))
	s.Equal(uint32(0xDEADBEEF), binary.LittleEndian.Uint32(b[24:28]))
	s.Equal(BoardStateNormal, b[28+2], "chassis 1 slot 3")
	s.Equal(BoardStateNormal, b[28+8*12+11], "chassis 9 slot 12")
	s.Equal(TaskStateNormal, b[136+2*8+0])
	s.Equal(TaskStateAbnormal, b[136+2*8+1])

	decoded, err := DecodeResourceMonitor(b)
	s.Require().NoError(err)
	s.Equal(p, decoded)
}

func (s *ProtocolTestSuite) TestResourceMonitorRejectsWrongSize() {
	all := s.topology()
	p := NewResourceMonitor(&all, 1)
	b := p.Encode()

	for _, n := range []int{999, 1001, 0, 28} {
		var buf []byte
		if n <= len(b) {
			buf = b[:n]
		} else {
			buf = append(append([]byte(nil), b...), make([]byte, n-len(b))...)
		}
		decoded, err := DecodeResourceMonitor(buf)
		s.Error(err, "size %d", n)
		s.ErrorAs(err, &SizeError{})
		s.Equal(ResourceMonitorPacket{}, decoded)
	}

	bad := append([]byte(nil), b...)
	bad[23] = 0
	_, err := DecodeResourceMonitor(bad)
	s.ErrorIs(err, ErrBadCommandCode)
}

func (s *ProtocolTestSuite) TestAlertPacket() {
	alert, err := models.NewBoardAlert("alert-board-1", models.Location{BoardAddress: "192.168.1.103"}, []string{"fan", "temp"}, s.now)
	s.Require().NoError(err)
	alert.Acknowledge()
	rec := NewAlertRecord(alert)

	b, err := EncodeAlertPacket(NewHeader(3, s.now), []AlertRecord{rec})
	s.Require().NoError(err)
	s.Len(b, HeaderSize+4+AlertRecordSize)

	p, err := DecodeAlertPacket(b)
	s.Require().NoError(err)
	s.Equal(PacketAlertMessage, p.Header.Type)
	s.Equal(uint32(3), p.Header.Sequence)
	s.Require().Len(p.Records, 1)
	s.Equal("alert-board-1", p.Records[0].UUID)
	s.Equal("192.168.1.103", p.Records[0].RelatedEntity)
	s.True(p.Records[0].Acknowledged)
	s.Equal(models.AlertTypeBoard, p.Records[0].Type)
	s.Require().Len(p.Records[0].Messages, 2)
	s.Equal("temp", p.Records[0].Messages[1].Text)
	s.Equal(uint64(s.now.UnixMilli()), p.Records[0].Messages[1].Timestamp)
}

func (s *ProtocolTestSuite) TestAlertPacketLimits() {
	records := make([]AlertRecord, MaxAlertsPerPacket+1)
	_, err := EncodeAlertPacket(NewHeader(1, s.now), records)
	s.Error(err)

	b, err := EncodeAlertPacket(NewHeader(1, s.now), records[:2])
	s.Require().NoError(err)
	_, err = DecodeAlertPacket(b[:len(b)-1])
	s.ErrorIs(err, ErrBadLength)

	long := AlertRecord{UUID: strings.Repeat("x", 200), Messages: []AlertRecordMessage{{Text: strings.Repeat("m", 500)}}}
	b, err = EncodeAlertPacket(NewHeader(1, s.now), []AlertRecord{long})
	s.Require().NoError(err)
	p, err := DecodeAlertPacket(b)
	s.Require().NoError(err)
	s.Len(p.Records[0].UUID, AlertUUIDSize-1)
	s.Len(p.Records[0].Messages[0].Text, AlertMessageTextSize-1)
}

func (s *ProtocolTestSuite) TestBatchAlerts() {
	records := make([]AlertRecord, 70)
	for i := range records {
		records[i].UUID = fmt.Sprintf("a%d", i)
	}
	batches := BatchAlerts(records)
	s.Require().Len(batches, 3)
	s.Len(batches[0], 32)
	s.Len(batches[1], 32)
	s.Len(batches[2], 6)
	s.Equal("a69", batches[2][5].UUID)
	s.Empty(BatchAlerts(nil))
}

func (s *ProtocolTestSuite) TestLabelPacket() {
	stack := models.NewStack("stack-1", "radar chain")
	stack.DeployStatus = models.StackDeployed
	stack.RunningStatus = models.StackRunningAbnormal
	s.Require().NoError(stack.AddLabel(models.Label{Name: "radar", UUID: "L1"}))
	s.Require().NoError(stack.AddLabel(models.Label{Name: "east", UUID: "L2"}))

	b, err := EncodeLabelPacket(NewHeader(11, s.now), []StackLabelRecord{NewStackLabelRecord(stack)})
	s.Require().NoError(err)
	s.Len(b, HeaderSize+4+StackLabelRecordSize)

	p, err := DecodeLabelPacket(b)
	s.Require().NoError(err)
	s.Require().Len(p.Records, 1)
	rec := p.Records[0]
	s.Equal("stack-1", rec.UUID)
	s.Equal("radar chain", rec.Name)
	s.Equal(models.StackDeployed, rec.DeployStatus)
	s.Equal(models.StackRunningAbnormal, rec.RunningStatus)
	s.Equal([]models.Label{{Name: "radar", UUID: "L1"}, {Name: "east", UUID: "L2"}}, rec.Labels)

	_, err = DecodeAlertPacket(b)
	s.ErrorIs(err, ErrUnexpectedType)
}

func (s *ProtocolTestSuite) TestBatchLabels() {
	records := make([]StackLabelRecord, 129)
	batches := BatchLabels(records)
	s.Require().Len(batches, 3)
	s.Len(batches[2], 1)

	_, err := EncodeLabelPacket(NewHeader(1, s.now), records[:65])
	s.Error(err)
}

func (s *ProtocolTestSuite) TestCommandRoundTrip() {
	b, err := EncodeCommand(Header{Type: PacketAcknowledgeAlert, Sequence: 5}, "alert-board-x", "operator-7", 0x0102030405060708)
	s.Require().NoError(err)
	s.Len(b, CommandSize)

	cmd, err := DecodeCommand(b)
	s.Require().NoError(err)
	s.Equal(PacketAcknowledgeAlert, cmd.Header.Type)
	s.Equal("alert-board-x", cmd.Target)
	s.Equal("operator-7", cmd.Operator)
	s.Equal(uint64(0x0102030405060708), cmd.CommandID)

	_, err = DecodeCommand(b[:CommandSize-1])
	s.ErrorIs(err, ErrShortPacket)

	_, err = EncodeCommand(Header{Type: PacketAlertMessage}, "x", "y", 1)
	s.ErrorIs(err, ErrUnexpectedType)
}

func (s *ProtocolTestSuite) TestResponseRoundTrip() {
	b := EncodeResponse(NewHeader(9, s.now), Response{
		CommandID:    77,
		OriginalType: PacketUndeployStack,
		Result:       ResultNotFound,
		Message:      "alert not found",
	})
	s.Len(b, ResponseSize)
	s.Equal(uint16(PacketCommandResponse), binary.LittleEndian.Uint16(b[0:2]))

	r, err := DecodeResponse(b)
	s.Require().NoError(err)
	s.Equal(uint64(77), r.CommandID)
	s.Equal(PacketUndeployStack, r.OriginalType)
	s.Equal(ResultNotFound, r.Result)
	s.Equal("alert not found", r.Message)

	_, err = DecodeResponse(b[:100])
	s.ErrorIs(err, ErrShortPacket)
}

func (s *ProtocolTestSuite) TestEnumStrings() {
	s.Equal("deploy-stack", PacketDeployStack.String())
	s.Equal("unknown(0x9999)", PacketType(0x9999).String())
	s.Equal("timeout", ResultTimeout.String())
	s.False(PacketChassisState.IsCommand())
}

func TestProtocolSuite(t *testing.T) {
	suite.Run(t, new(ProtocolTestSuite))
}
