// Package command receives deploy, undeploy and acknowledge requests from the
// multicast group and answers each with exactly one response datagram.
package command

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"zygl/pkg/journal"
	"zygl/pkg/log"
	"zygl/pkg/protocol"
	"zygl/pkg/service"
	"zygl/pkg/transport"
)

const (
	DefaultCommandTimeout = 10 * time.Second

	// readTimeout bounds how long Stop waits on a blocked read.
	readTimeout = 200 * time.Millisecond
)

// StackController runs deploy and undeploy by label.
type StackController interface {
	DeployByLabels(ctx context.Context, labels []string) service.Result[service.DeployResult]
	UndeployByLabels(ctx context.Context, labels []string) service.Result[service.DeployResult]
}

// AlertAcknowledger acknowledges one alert by id.
type AlertAcknowledger interface {
	Acknowledge(id string) service.Result[bool]
}

// Recorder persists handled commands.
type Recorder interface {
	Record(ctx context.Context, e journal.Entry) error
}

// Responder sends response datagrams.
type Responder interface {
	Send(b []byte) error
}

// Options configures a Listener. Journal may be nil.
type Options struct {
	Timeout time.Duration
	Journal Recorder
}

type Stats struct {
	Received       uint64 `json:"received"`
	Dropped        uint64 `json:"dropped"`
	Handled        uint64 `json:"handled"`
	ResponseErrors uint64 `json:"response_errors"`
}

// Listener is a single receive loop. Commands are handled one at a time in
// arrival order.
type Listener struct {
	receiver  transport.PacketReader
	responder Responder
	stacks    StackController
	alerts    AlertAcknowledger
	journal   Recorder
	timeout   time.Duration
	now       func() time.Time
	logger    zerolog.Logger

	sequence atomic.Uint32

	received       atomic.Uint64
	dropped        atomic.Uint64
	handled        atomic.Uint64
	responseErrors atomic.Uint64

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func NewListener(receiver transport.PacketReader, responder Responder, stacks StackController, alerts AlertAcknowledger, opts Options) *Listener {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultCommandTimeout
	}
	return &Listener{
		receiver:  receiver,
		responder: responder,
		stacks:    stacks,
		alerts:    alerts,
		journal:   opts.Journal,
		timeout:   opts.Timeout,
		now:       time.Now,
		logger:    log.Component("listener"),
		stopCh:    make(chan struct{}),
	}
}

func (l *Listener) Start() {
	l.wg.Add(1)
	go l.loop()
	l.logger.Info().Dur("timeout", l.timeout).Msg("Command listener started")
}

// Stop ends the receive loop within one read deadline. It does not close the
// receiver.
func (l *Listener) Stop() {
	l.stopOnce.Do(func() { close(l.stopCh) })
	l.wg.Wait()
	l.logger.Info().Msg("Command listener stopped")
}

func (l *Listener) stopping() bool {
	select {
	case <-l.stopCh:
		return true
	default:
		return false
	}
}

func (l *Listener) loop() {
	defer l.wg.Done()

	buf := make([]byte, protocol.MaxDatagramSize)
	for !l.stopping() {
		if err := l.receiver.SetReadDeadline(time.Now().Add(readTimeout)); err != nil {
			if transport.IsClosedError(err) {
				return
			}
			l.logger.Warn().Err(err).Msg("Set read deadline failed")
		}

		n, from, err := l.receiver.ReadFrom(buf)
		if err != nil {
			switch {
			case transport.IsTimeout(err):
				continue
			case transport.IsClosedError(err):
				return
			default:
				l.logger.Warn().Err(err).Msg("Receive failed")
				continue
			}
		}

		l.received.Add(1)
		resp, ok := l.Handle(buf[:n])
		if !ok {
			l.dropped.Add(1)
			l.logger.Debug().Int("bytes", n).Stringer("from", from).Msg("Datagram dropped")
			continue
		}
		if err := l.responder.Send(resp); err != nil {
			l.responseErrors.Add(1)
			l.logger.Warn().Err(err).Msg("Send response failed")
		}
	}
}

// Handle decodes one datagram, runs the command and returns the encoded
// response. It returns false, and no response, for datagrams that are too
// short, carry an unknown type, or carry a non-command type.
func (l *Listener) Handle(datagram []byte) ([]byte, bool) {
	cmd, err := protocol.DecodeCommand(datagram)
	if err != nil {
		return nil, false
	}

	result, message := l.execute(cmd)
	l.handled.Add(1)

	l.logger.Info().
		Stringer("type", cmd.Header.Type).
		Uint64("command_id", cmd.CommandID).
		Str("target", cmd.Target).
		Str("operator", cmd.Operator).
		Stringer("result", result).
		Str("message", message).
		Msg("Command handled")

	l.record(cmd, result, message)

	resp := protocol.EncodeResponse(protocol.NewHeader(l.sequence.Add(1)-1, l.now()), protocol.Response{
		CommandID:    cmd.CommandID,
		OriginalType: cmd.Header.Type,
		Result:       result,
		Message:      message,
	})
	return resp, true
}

// execute never panics; a panicking handler is reported as Failed.
func (l *Listener) execute(cmd protocol.Command) (result protocol.CommandResult, message string) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error().Interface("panic", r).Uint64("command_id", cmd.CommandID).Msg("Command handler panicked")
			result = protocol.ResultFailed
			message = fmt.Sprintf("internal error: %v", r)
		}
	}()

	target := strings.TrimSpace(cmd.Target)
	if target == "" {
		return protocol.ResultInvalidParameter, "target is empty"
	}

	ctx, cancel := context.WithTimeout(context.Background(), l.timeout)
	defer cancel()

	switch cmd.Header.Type {
	case protocol.PacketDeployStack:
		res := l.stacks.DeployByLabels(ctx, splitLabels(target))
		return classify(ctx, res.Code, res.Message)
	case protocol.PacketUndeployStack:
		res := l.stacks.UndeployByLabels(ctx, splitLabels(target))
		return classify(ctx, res.Code, res.Message)
	case protocol.PacketAcknowledgeAlert:
		res := l.alerts.Acknowledge(target)
		return res.Code, res.Message
	default:
		return protocol.ResultInvalidParameter, "unsupported command " + cmd.Header.Type.String()
	}
}

// classify turns a failure that coincides with an expired command deadline into Timeout.
func classify(ctx context.Context, code protocol.CommandResult, message string) (protocol.CommandResult, string) {
	if code == protocol.ResultFailed && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return protocol.ResultTimeout, message
	}
	return code, message
}

// splitLabels accepts one label UUID or several separated by commas.
func splitLabels(target string) []string {
	parts := strings.Split(target, ",")
	labels := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			labels = append(labels, p)
		}
	}
	return labels
}

func (l *Listener) record(cmd protocol.Command, result protocol.CommandResult, message string) {
	if l.journal == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	err := l.journal.Record(ctx, journal.Entry{
		CommandID: cmd.CommandID,
		Type:      cmd.Header.Type,
		Target:    cmd.Target,
		Operator:  cmd.Operator,
		Result:    result,
		Message:   message,
		At:        l.now(),
	})
	if err != nil {
		l.logger.Warn().Err(err).Uint64("command_id", cmd.CommandID).Msg("Journal write failed")
	}
}

func (l *Listener) Stats() Stats {
	return Stats{
		Received:       l.received.Load(),
		Dropped:        l.dropped.Load(),
		Handled:        l.handled.Load(),
		ResponseErrors: l.responseErrors.Load(),
	}
}
