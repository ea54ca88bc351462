package protocol

import (
	"fmt"

	"zygl/pkg/models"
)

const (
	// MaxStacksPerPacket caps one label datagram.
	MaxStacksPerPacket = 64

	StackUUIDSize  = 64
	StackNameSize  = 64
	LabelNameSize  = 48
	LabelUUIDSize  = 48
	labelSlotSize  = LabelNameSize + LabelUUIDSize
	labelRecordPad = 4

	// StackLabelRecordSize is uuid, name, three status words, the label slots
	// and padding.
	StackLabelRecordSize = StackUUIDSize + StackNameSize + 3*4 + models.MaxLabelsPerStack*labelSlotSize + labelRecordPad
)

// StackLabelRecord is the wire projection of a stack and its labels.
type StackLabelRecord struct {
	UUID          string
	Name          string
	DeployStatus  models.StackDeployStatus
	RunningStatus models.StackRunningStatus
	Labels        []models.Label
}

// NewStackLabelRecord projects a stack onto its fixed record, keeping at most
// MaxLabelsPerStack labels.
func NewStackLabelRecord(s *models.Stack) StackLabelRecord {
	labels := s.Labels
	if len(labels) > models.MaxLabelsPerStack {
		labels = labels[:models.MaxLabelsPerStack]
	}
	return StackLabelRecord{
		UUID:          s.UUID,
		Name:          s.Name,
		DeployStatus:  s.DeployStatus,
		RunningStatus: s.RunningStatus,
		Labels:        append([]models.Label(nil), labels...),
	}
}

func (r *StackLabelRecord) put(c *cursor) {
	c.putStr(StackUUIDSize, r.UUID)
	c.putStr(StackNameSize, r.Name)
	c.putI32(int32(r.DeployStatus))
	c.putI32(int32(r.RunningStatus))

	n := len(r.Labels)
	if n > models.MaxLabelsPerStack {
		n = models.MaxLabelsPerStack
	}
	c.putI32(int32(n))
	for i := 0; i < models.MaxLabelsPerStack; i++ {
		if i < n {
			c.putStr(LabelNameSize, r.Labels[i].Name)
			c.putStr(LabelUUIDSize, r.Labels[i].UUID)
		} else {
			c.skip(labelSlotSize)
		}
	}
	c.skip(labelRecordPad)
}

func readStackLabelRecord(c *cursor) (StackLabelRecord, error) {
	r := StackLabelRecord{
		UUID:          c.str(StackUUIDSize),
		Name:          c.str(StackNameSize),
		DeployStatus:  models.StackDeployStatus(c.i32()),
		RunningStatus: models.StackRunningStatus(c.i32()),
	}
	n := int(c.i32())
	if n < 0 || n > models.MaxLabelsPerStack {
		return StackLabelRecord{}, fmt.Errorf("%w: label count %d", ErrBadLength, n)
	}
	for i := 0; i < models.MaxLabelsPerStack; i++ {
		name := c.str(LabelNameSize)
		uuid := c.str(LabelUUIDSize)
		if i < n {
			r.Labels = append(r.Labels, models.Label{Name: name, UUID: uuid})
		}
	}
	c.skip(labelRecordPad)
	return r, nil
}

// LabelPacket is one batch of stack label records.
type LabelPacket struct {
	Header  Header
	Records []StackLabelRecord
}

// BatchLabels splits records into packets of at most MaxStacksPerPacket.
func BatchLabels(records []StackLabelRecord) [][]StackLabelRecord {
	var out [][]StackLabelRecord
	for _, r := range batch(len(records), MaxStacksPerPacket) {
		out = append(out, records[r[0]:r[1]])
	}
	return out
}

// EncodeLabelPacket writes header, count and the records in use.
func EncodeLabelPacket(h Header, records []StackLabelRecord) ([]byte, error) {
	if len(records) > MaxStacksPerPacket {
		return nil, fmt.Errorf("%d stacks exceeds packet cap %d", len(records), MaxStacksPerPacket)
	}
	dataLen := 4 + len(records)*StackLabelRecordSize
	b := make([]byte, HeaderSize+dataLen)

	h.Type = PacketStackLabel
	h.Version = Version
	h.DataLength = uint32(dataLen)
	h.put(b)

	c := &cursor{b: b, off: HeaderSize}
	c.putI32(int32(len(records)))
	for i := range records {
		records[i].put(c)
	}
	return b, nil
}

// DecodeLabelPacket parses a label datagram.
func DecodeLabelPacket(b []byte) (LabelPacket, error) {
	h, err := DecodeHeader(b)
	if err != nil {
		return LabelPacket{}, err
	}
	if h.Type != PacketStackLabel {
		return LabelPacket{}, fmt.Errorf("%w: %s", ErrUnexpectedType, h.Type)
	}
	if len(b) < HeaderSize+4 {
		return LabelPacket{}, fmt.Errorf("%w: label packet has no count", ErrShortPacket)
	}

	c := &cursor{b: b, off: HeaderSize}
	count := int(c.i32())
	if count < 0 || count > MaxStacksPerPacket {
		return LabelPacket{}, fmt.Errorf("%w: stack count %d", ErrBadLength, count)
	}
	want := HeaderSize + 4 + count*StackLabelRecordSize
	if len(b) != want || int(h.DataLength) != want-HeaderSize {
		return LabelPacket{}, fmt.Errorf("%w: %d bytes for %d stacks", ErrBadLength, len(b), count)
	}

	p := LabelPacket{Header: h, Records: make([]StackLabelRecord, 0, count)}
	for i := 0; i < count; i++ {
		rec, err := readStackLabelRecord(c)
		if err != nil {
			return LabelPacket{}, err
		}
		p.Records = append(p.Records, rec)
	}
	return p, nil
}
