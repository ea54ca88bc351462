// Package broadcast periodically serializes store state onto the multicast
// state channel.
package broadcast

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"zygl/pkg/log"
	"zygl/pkg/protocol"
	"zygl/pkg/store"
)

const (
	DefaultChassisInterval = 1000 * time.Millisecond
	DefaultAlertInterval   = 2000 * time.Millisecond
	DefaultLabelInterval   = 5000 * time.Millisecond

	// tick bounds both timing resolution and stop latency.
	tick = 50 * time.Millisecond
)

// Sender is the outbound datagram sink.
type Sender interface {
	Send(b []byte) error
}

// Intervals holds the three broadcast periods. Zero values take the defaults.
type Intervals struct {
	Chassis time.Duration
	Alert   time.Duration
	Label   time.Duration
}

func (i Intervals) withDefaults() Intervals {
	if i.Chassis <= 0 {
		i.Chassis = DefaultChassisInterval
	}
	if i.Alert <= 0 {
		i.Alert = DefaultAlertInterval
	}
	if i.Label <= 0 {
		i.Label = DefaultLabelInterval
	}
	return i
}

// Stats counts datagrams by kind.
type Stats struct {
	ChassisPackets uint64 `json:"chassis_packets"`
	AlertPackets   uint64 `json:"alert_packets"`
	LabelPackets   uint64 `json:"label_packets"`
	SendErrors     uint64 `json:"send_errors"`
}

// Broadcaster runs one cooperative loop with three independent periods. It
// never waits on the network: a failed send is counted, logged and forgotten,
// and the next period sends current state again.
type Broadcaster struct {
	sender    Sender
	chassis   store.ChassisReader
	stacks    store.StackReader
	alerts    store.AlertReader
	intervals Intervals
	now       func() time.Time
	logger    zerolog.Logger

	sequence   atomic.Uint32
	responseID atomic.Uint32

	chassisPackets atomic.Uint64
	alertPackets   atomic.Uint64
	labelPackets   atomic.Uint64
	sendErrors     atomic.Uint64

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func NewBroadcaster(sender Sender, chassis store.ChassisReader, stacks store.StackReader, alerts store.AlertReader, intervals Intervals) *Broadcaster {
	return &Broadcaster{
		sender:    sender,
		chassis:   chassis,
		stacks:    stacks,
		alerts:    alerts,
		intervals: intervals.withDefaults(),
		now:       time.Now,
		logger:    log.Component("broadcaster"),
		stopCh:    make(chan struct{}),
	}
}

// Start launches the loop.
func (b *Broadcaster) Start() {
	b.wg.Add(1)
	go b.loop()

	b.logger.Info().
		Dur("chassis_interval", b.intervals.Chassis).
		Dur("alert_interval", b.intervals.Alert).
		Dur("label_interval", b.intervals.Label).
		Msg("Broadcaster started")
}

// Stop ends the loop and waits for it. It returns within about one tick.
func (b *Broadcaster) Stop() {
	b.stopOnce.Do(func() { close(b.stopCh) })
	b.wg.Wait()
	b.logger.Info().Msg("Broadcaster stopped")
}

func (b *Broadcaster) loop() {
	defer b.wg.Done()

	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	var lastChassis, lastAlert, lastLabel time.Time
	for {
		select {
		case <-b.stopCh:
			return
		case <-ticker.C:
		}

		now := b.now()
		if now.Sub(lastChassis) >= b.intervals.Chassis {
			b.BroadcastChassis()
			lastChassis = now
		}
		if now.Sub(lastAlert) >= b.intervals.Alert {
			b.BroadcastAlerts()
			lastAlert = now
		}
		if now.Sub(lastLabel) >= b.intervals.Label {
			b.BroadcastLabels()
			lastLabel = now
		}
	}
}

func (b *Broadcaster) send(kind string, packet []byte, counter *atomic.Uint64) {
	if err := b.sender.Send(packet); err != nil {
		b.sendErrors.Add(1)
		b.logger.Warn().Err(err).Str("kind", kind).Int("bytes", len(packet)).Msg("Broadcast send failed")
		return
	}
	counter.Add(1)
	b.logger.Debug().Str("kind", kind).Int("bytes", len(packet)).Msg("Broadcast sent")
}

func (b *Broadcaster) header() protocol.Header {
	return protocol.NewHeader(b.sequence.Add(1)-1, b.now())
}

// BroadcastChassis sends one resource monitor packet for the whole topology.
// The response id increments per packet and wraps at 2^32.
func (b *Broadcaster) BroadcastChassis() {
	snap := b.chassis.Snapshot()
	if snap == nil {
		return
	}
	packet := protocol.NewResourceMonitor(&snap.Chassis, b.responseID.Add(1)-1)
	b.send("chassis", packet.Encode(), &b.chassisPackets)
}

// BroadcastAlerts sends every unacknowledged alert, 32 per packet. Nothing is
// sent when there are none.
func (b *Broadcaster) BroadcastAlerts() {
	alerts := b.alerts.Unacknowledged()
	if len(alerts) == 0 {
		return
	}
	records := make([]protocol.AlertRecord, len(alerts))
	for i, a := range alerts {
		records[i] = protocol.NewAlertRecord(a)
	}
	for _, chunk := range protocol.BatchAlerts(records) {
		packet, err := protocol.EncodeAlertPacket(b.header(), chunk)
		if err != nil {
			b.logger.Error().Err(err).Msg("Encode alert packet")
			continue
		}
		b.send("alert", packet, &b.alertPackets)
	}
}

// BroadcastLabels sends every stack's labels, 64 stacks per packet.
func (b *Broadcaster) BroadcastLabels() {
	stacks := b.stacks.All()
	if len(stacks) == 0 {
		return
	}
	records := make([]protocol.StackLabelRecord, len(stacks))
	for i, s := range stacks {
		records[i] = protocol.NewStackLabelRecord(s)
	}
	for _, chunk := range protocol.BatchLabels(records) {
		packet, err := protocol.EncodeLabelPacket(b.header(), chunk)
		if err != nil {
			b.logger.Error().Err(err).Msg("Encode label packet")
			continue
		}
		b.send("label", packet, &b.labelPackets)
	}
}

func (b *Broadcaster) Stats() Stats {
	return Stats{
		ChassisPackets: b.chassisPackets.Load(),
		AlertPackets:   b.alertPackets.Load(),
		LabelPackets:   b.labelPackets.Load(),
		SendErrors:     b.sendErrors.Load(),
	}
}
