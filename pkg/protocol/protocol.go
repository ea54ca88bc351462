// Package protocol implements the fixed-layout binary packets exchanged with the
// display front-end over UDP multicast. All multi-byte integers are little-endian
// and every field is packed with no padding. Strings are NUL-padded fixed arrays.
package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"
)

// Version is the envelope protocol version.
const Version uint16 = 1

// PacketType tags every enveloped packet.
type PacketType uint16

const (
	// PacketChassisState is the legacy per-chassis packet that embedded board
	// objects directly.
	//
	// Deprecated: the topology is broadcast as a ResourceMonitorPacket. No encoder
	// exists for this type; the constant is kept so receivers can recognise it.
	PacketChassisState PacketType = 0x0001
	PacketAlertMessage PacketType = 0x0002
	PacketStackLabel   PacketType = 0x0003

	PacketDeployStack      PacketType = 0x1001
	PacketUndeployStack    PacketType = 0x1002
	PacketAcknowledgeAlert PacketType = 0x1003

	PacketCommandResponse PacketType = 0x2001
)

func (t PacketType) String() string {
	switch t {
	case PacketChassisState:
		return "chassis-state"
	case PacketAlertMessage:
		return "alert-message"
	case PacketStackLabel:
		return "stack-label"
	case PacketDeployStack:
		return "deploy-stack"
	case PacketUndeployStack:
		return "undeploy-stack"
	case PacketAcknowledgeAlert:
		return "acknowledge-alert"
	case PacketCommandResponse:
		return "command-response"
	default:
		return fmt.Sprintf("unknown(0x%04x)", uint16(t))
	}
}

// IsCommand reports whether t is a front-end request.
func (t PacketType) IsCommand() bool {
	return t == PacketDeployStack || t == PacketUndeployStack || t == PacketAcknowledgeAlert
}

// CommandResult is the outcome code carried by a command response.
type CommandResult uint16

const (
	ResultSuccess          CommandResult = 0
	ResultFailed           CommandResult = 1
	ResultInvalidParameter CommandResult = 2
	ResultNotFound         CommandResult = 3
	ResultTimeout          CommandResult = 4
)

func (r CommandResult) String() string {
	switch r {
	case ResultSuccess:
		return "success"
	case ResultFailed:
		return "failed"
	case ResultInvalidParameter:
		return "invalid-parameter"
	case ResultNotFound:
		return "not-found"
	case ResultTimeout:
		return "timeout"
	default:
		return fmt.Sprintf("unknown(%d)", uint16(r))
	}
}

// HeaderSize is the length of the common envelope.
const HeaderSize = 24

// MaxDatagramSize is the largest UDP payload over IPv4.
const MaxDatagramSize = 65507

var (
	// ErrShortPacket is returned when a datagram is smaller than its fixed layout.
	ErrShortPacket = errors.New("packet too short")

	// ErrUnexpectedType is returned when a decoder is handed the wrong packet type.
	ErrUnexpectedType = errors.New("unexpected packet type")

	// ErrBadLength is returned when the envelope length disagrees with the payload.
	ErrBadLength = errors.New("payload length mismatch")

	// ErrBadCommandCode is returned when a resource monitor packet carries the wrong code.
	ErrBadCommandCode = errors.New("unexpected command code")
)

// SizeError reports a datagram whose length does not match a fixed-size packet.
type SizeError struct {
	Want int
	Got  int
}

func (e SizeError) Error() string {
	return fmt.Sprintf("packet size %d, want %d", e.Got, e.Want)
}

// Header is the envelope shared by alert, label and command packets.
type Header struct {
	Type       PacketType
	Version    uint16
	Sequence   uint32
	Timestamp  uint64 // unix milliseconds
	DataLength uint32
}

// NewHeader stamps an envelope with a sequence number and the send time.
// Encoders fill in the type and length.
func NewHeader(seq uint32, now time.Time) Header {
	return Header{Version: Version, Sequence: seq, Timestamp: unixMillis(now)}
}

func (h Header) put(b []byte) {
	le := binary.LittleEndian
	le.PutUint16(b[0:2], uint16(h.Type))
	le.PutUint16(b[2:4], h.Version)
	le.PutUint32(b[4:8], h.Sequence)
	le.PutUint64(b[8:16], h.Timestamp)
	le.PutUint32(b[16:20], h.DataLength)
	// b[20:24] reserved
}

// DecodeHeader reads the envelope from the start of b.
func DecodeHeader(b []byte) (Header, error) {
	if len(b) < HeaderSize {
		return Header{}, fmt.Errorf("%w: header needs %d bytes, got %d", ErrShortPacket, HeaderSize, len(b))
	}
	le := binary.LittleEndian
	return Header{
		Type:       PacketType(le.Uint16(b[0:2])),
		Version:    le.Uint16(b[2:4]),
		Sequence:   le.Uint32(b[4:8]),
		Timestamp:  le.Uint64(b[8:16]),
		DataLength: le.Uint32(b[16:20]),
	}, nil
}

// putString copies s into a fixed field, NUL padded. A string that does not fit
// is cut on a rune boundary so the field stays valid UTF-8, and the last byte
// is always NUL.
func putString(field []byte, s string) {
	for i := range field {
		field[i] = 0
	}
	limit := len(field) - 1
	if len(s) > limit {
		cut := limit
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		s = s[:cut]
	}
	copy(field, s)
}

// getString reads a NUL-terminated fixed field.
func getString(field []byte) string {
	for i, c := range field {
		if c == 0 {
			return string(field[:i])
		}
	}
	return string(field)
}

// cursor walks a packet buffer field by field.
type cursor struct {
	b   []byte
	off int
}

func (c *cursor) next(n int) []byte {
	field := c.b[c.off : c.off+n]
	c.off += n
	return field
}

func (c *cursor) putU8(v uint8) { c.next(1)[0] = v }
func (c *cursor) putU16(v uint16) { binary.LittleEndian.PutUint16(c.next(2), v) }
func (c *cursor) putU32(v uint32) { binary.LittleEndian.PutUint32(c.next(4), v) }
func (c *cursor) putI32(v int32) { c.putU32(uint32(v)) }
func (c *cursor) putU64(v uint64) { binary.LittleEndian.PutUint64(c.next(8), v) }
func (c *cursor) putStr(n int, s string) { putString(c.next(n), s) }
func (c *cursor) skip(n int) { c.next(n) }

func (c *cursor) u8() uint8 { return c.next(1)[0] }
func (c *cursor) u16() uint16 { return binary.LittleEndian.Uint16(c.next(2)) }
func (c *cursor) u32() uint32 { return binary.LittleEndian.Uint32(c.next(4)) }
func (c *cursor) i32() int32 { return int32(c.u32()) }
func (c *cursor) u64() uint64 { return binary.LittleEndian.Uint64(c.next(8)) }
func (c *cursor) str(n int) string { return getString(c.next(n)) }

// batch splits n items into chunks of at most size.
func batch(n, size int) [][2]int {
	var out [][2]int
	for start := 0; start < n; start += size {
		end := start + size
		if end > n {
			end = n
		}
		out = append(out, [2]int{start, end})
	}
	return out
}
