package protocol

import "fmt"

const (
	CommandTargetSize   = 64
	CommandOperatorSize = 64
	commandReserved     = 16

	// CommandSize is header, target, operator, command id and reserved bytes.
	CommandSize = HeaderSize + CommandTargetSize + CommandOperatorSize + 8 + commandReserved

	ResponseMessageSize = 256
	responseReserved    = 8

	// ResponseSize is header, command id, original type, result, message and
	// reserved bytes.
	ResponseSize = HeaderSize + 8 + 2 + 2 + ResponseMessageSize + responseReserved
)

// Command is a deploy, undeploy or acknowledge request. Target is a label UUID
// for deploy and undeploy, and an alert id for acknowledge.
type Command struct {
	Header    Header
	Target    string
	Operator  string
	CommandID uint64
}

// EncodeCommand writes a request datagram of CommandSize bytes.
func EncodeCommand(h Header, target, operator string, commandID uint64) ([]byte, error) {
	if !h.Type.IsCommand() {
		return nil, fmt.Errorf("%w: %s is not a command", ErrUnexpectedType, h.Type)
	}
	b := make([]byte, CommandSize)
	h.Version = Version
	h.DataLength = CommandSize - HeaderSize
	h.put(b)

	c := &cursor{b: b, off: HeaderSize}
	c.putStr(CommandTargetSize, target)
	c.putStr(CommandOperatorSize, operator)
	c.putU64(commandID)
	return b, nil
}

// DecodeCommand parses a request. Datagrams shorter than CommandSize, or not
// carrying a command type, are rejected. Trailing bytes are ignored.
func DecodeCommand(b []byte) (Command, error) {
	h, err := DecodeHeader(b)
	if err != nil {
		return Command{}, err
	}
	if !h.Type.IsCommand() {
		return Command{}, fmt.Errorf("%w: %s", ErrUnexpectedType, h.Type)
	}
	if len(b) < CommandSize {
		return Command{}, fmt.Errorf("%w: %s needs %d bytes, got %d", ErrShortPacket, h.Type, CommandSize, len(b))
	}

	c := &cursor{b: b, off: HeaderSize}
	return Command{
		Header:    h,
		Target:    c.str(CommandTargetSize),
		Operator:  c.str(CommandOperatorSize),
		CommandID: c.u64(),
	}, nil
}

// Response answers exactly one Command.
type Response struct {
	Header       Header
	CommandID    uint64
	OriginalType PacketType
	Result       CommandResult
	Message      string
}

// EncodeResponse writes a response datagram of ResponseSize bytes.
func EncodeResponse(h Header, r Response) []byte {
	b := make([]byte, ResponseSize)
	h.Type = PacketCommandResponse
	h.Version = Version
	h.DataLength = ResponseSize - HeaderSize
	h.put(b)

	c := &cursor{b: b, off: HeaderSize}
	c.putU64(r.CommandID)
	c.putU16(uint16(r.OriginalType))
	c.putU16(uint16(r.Result))
	c.putStr(ResponseMessageSize, r.Message)
	return b
}

// DecodeResponse parses a response datagram.
func DecodeResponse(b []byte) (Response, error) {
	h, err := DecodeHeader(b)
	if err != nil {
		return Response{}, err
	}
	if h.Type != PacketCommandResponse {
		return Response{}, fmt.Errorf("%w: %s", ErrUnexpectedType, h.Type)
	}
	if len(b) < ResponseSize {
		return Response{}, fmt.Errorf("%w: response needs %d bytes, got %d", ErrShortPacket, ResponseSize, len(b))
	}

	c := &cursor{b: b, off: HeaderSize}
	return Response{
		Header:       h,
		CommandID:    c.u64(),
		OriginalType: PacketType(c.u16()),
		Result:       CommandResult(c.u16()),
		Message:      c.str(ResponseMessageSize),
	}, nil
}
