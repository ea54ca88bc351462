package protocol

import (
	"fmt"
	"time"

	"zygl/pkg/models"
)

const (
	// MaxAlertsPerPacket caps one alert datagram.
	MaxAlertsPerPacket = 32

	AlertUUIDSize        = 64
	AlertEntitySize      = 64
	AlertMessageTextSize = 96

	alertMessageSize = AlertMessageTextSize + 8
	// AlertRecordSize is uuid, type, timestamp, ack flag, related entity,
	// message count and MaxAlertMessages message slots.
	AlertRecordSize = AlertUUIDSize + 4 + 8 + 1 + AlertEntitySize + 4 + models.MaxAlertMessages*alertMessageSize
)

// AlertRecord is the wire projection of one alert.
type AlertRecord struct {
	UUID          string
	Type          models.AlertType
	Timestamp     uint64
	Acknowledged  bool
	RelatedEntity string
	Messages      []AlertRecordMessage
}

// AlertRecordMessage is one message line inside an AlertRecord.
type AlertRecordMessage struct {
	Text      string
	Timestamp uint64
}

// NewAlertRecord projects an alert onto its fixed record.
func NewAlertRecord(a *models.Alert) AlertRecord {
	rec := AlertRecord{
		UUID:          a.UUID,
		Type:          a.Type,
		Timestamp:     unixMillis(a.CreatedAt),
		Acknowledged:  a.Acknowledged,
		RelatedEntity: a.RelatedEntity,
	}
	for i, m := range a.Messages {
		if i == models.MaxAlertMessages {
			break
		}
		rec.Messages = append(rec.Messages, AlertRecordMessage{Text: m.Text, Timestamp: unixMillis(m.Timestamp)})
	}
	return rec
}

func unixMillis(t time.Time) uint64 {
	if t.IsZero() {
		return 0
	}
	return uint64(t.UnixMilli())
}

func (r *AlertRecord) put(c *cursor) {
	c.putStr(AlertUUIDSize, r.UUID)
	c.putI32(int32(r.Type))
	c.putU64(r.Timestamp)
	if r.Acknowledged {
		c.putU8(1)
	} else {
		c.putU8(0)
	}
	c.putStr(AlertEntitySize, r.RelatedEntity)

	n := len(r.Messages)
	if n > models.MaxAlertMessages {
		n = models.MaxAlertMessages
	}
	c.putI32(int32(n))
	for i := 0; i < models.MaxAlertMessages; i++ {
		if i < n {
			c.putStr(AlertMessageTextSize, r.Messages[i].Text)
			c.putU64(r.Messages[i].Timestamp)
		} else {
			c.skip(alertMessageSize)
		}
	}
}

func readAlertRecord(c *cursor) (AlertRecord, error) {
	r := AlertRecord{
		UUID:          c.str(AlertUUIDSize),
		Type:          models.AlertType(c.i32()),
		Timestamp:     c.u64(),
		Acknowledged:  c.u8() != 0,
		RelatedEntity: c.str(AlertEntitySize),
	}
	n := int(c.i32())
	if n < 0 || n > models.MaxAlertMessages {
		return AlertRecord{}, fmt.Errorf("%w: alert message count %d", ErrBadLength, n)
	}
	for i := 0; i < models.MaxAlertMessages; i++ {
		text := c.str(AlertMessageTextSize)
		ts := c.u64()
		if i < n {
			r.Messages = append(r.Messages, AlertRecordMessage{Text: text, Timestamp: ts})
		}
	}
	return r, nil
}

// AlertPacket is one batch of alert records.
type AlertPacket struct {
	Header  Header
	Records []AlertRecord
}

// BatchAlerts splits records into packets of at most MaxAlertsPerPacket.
func BatchAlerts(records []AlertRecord) [][]AlertRecord {
	var out [][]AlertRecord
	for _, r := range batch(len(records), MaxAlertsPerPacket) {
		out = append(out, records[r[0]:r[1]])
	}
	return out
}

// EncodeAlertPacket writes header, count and the records. Only the records in
// use are sent. More than MaxAlertsPerPacket records is an error.
func EncodeAlertPacket(h Header, records []AlertRecord) ([]byte, error) {
	if len(records) > MaxAlertsPerPacket {
		return nil, fmt.Errorf("%d alerts exceeds packet cap %d", len(records), MaxAlertsPerPacket)
	}
	dataLen := 4 + len(records)*AlertRecordSize
	b := make([]byte, HeaderSize+dataLen)

	h.Type = PacketAlertMessage
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

// DecodeAlertPacket parses an alert datagram.
func DecodeAlertPacket(b []byte) (AlertPacket, error) {
	h, err := DecodeHeader(b)
	if err != nil {
		return AlertPacket{}, err
	}
	if h.Type != PacketAlertMessage {
		return AlertPacket{}, fmt.Errorf("%w: %s", ErrUnexpectedType, h.Type)
	}
	if len(b) < HeaderSize+4 {
		return AlertPacket{}, fmt.Errorf("%w: alert packet has no count", ErrShortPacket)
	}

	c := &cursor{b: b, off: HeaderSize}
	count := int(c.i32())
	if count < 0 || count > MaxAlertsPerPacket {
		return AlertPacket{}, fmt.Errorf("%w: alert count %d", ErrBadLength, count)
	}
	want := HeaderSize + 4 + count*AlertRecordSize
	if len(b) != want || int(h.DataLength) != want-HeaderSize {
		return AlertPacket{}, fmt.Errorf("%w: %d bytes for %d alerts", ErrBadLength, len(b), count)
	}

	p := AlertPacket{Header: h, Records: make([]AlertRecord, 0, count)}
	for i := 0; i < count; i++ {
		rec, err := readAlertRecord(c)
		if err != nil {
			return AlertPacket{}, err
		}
		p.Records = append(p.Records, rec)
	}
	return p, nil
}
