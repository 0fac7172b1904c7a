// Package simulate provides a small sent/ack bookkeeping helper for
// feeding deterministic congestion.AckedPacketInfo sequences to BBR in
// tests, standing in for the loss-detection subsystem this module does
// not own. It is reachable only from _test.go files.
//
// Grounded on the packet-history bookkeeping in the teacher's
// ackhandler.outgoingPacketAckHandler (ackhandler/outgoing_packet_ack_handler.go):
// a mutex-guarded map keyed by packet number, with a running total of
// bytes sent. It generalizes that pattern to also track the running total
// of bytes acked and the previous ack's snapshot, which is what the
// bandwidth sampler's send-rate/ack-rate computation needs as
// LastAckedInfo.
package simulate

import (
	"sync"

	"github.com/lucas-clemente/quic-bbr/congestion"
	"github.com/lucas-clemente/quic-bbr/protocol"
	"github.com/lucas-clemente/quic-bbr/utils"
)

type sentPacket struct {
	length               protocol.ByteCount
	sentTime             protocol.Timestamp
	totalBytesSentAtSend protocol.ByteCount
}

// Tracker records sent packets and turns later ack notifications into
// congestion.AckedPacketInfo records carrying the LastAckedInfo each one
// needs.
type Tracker struct {
	mu sync.Mutex

	clock          utils.Clock
	packets        map[protocol.PacketNumber]sentPacket
	totalBytesSent protocol.ByteCount

	totalBytesAcked protocol.ByteCount
	lastAcked       congestion.LastAckedInfo
	hasLastAcked    bool
}

// NewTracker returns an empty Tracker backed by the real wall clock.
func NewTracker() *Tracker {
	return NewTrackerWithClock(utils.RealClock{})
}

// NewTrackerWithClock returns an empty Tracker whose Now method reads from
// clock, so a scenario test can drive it with a utils.ManualClock instead of
// threading protocol.Timestamp values through by hand.
func NewTrackerWithClock(clock utils.Clock) *Tracker {
	return &Tracker{clock: clock, packets: make(map[protocol.PacketNumber]sentPacket)}
}

// Now returns the tracker's current time as a protocol.Timestamp.
func (t *Tracker) Now() protocol.Timestamp {
	return protocol.TimestampFromTime(t.clock.Now())
}

// SentPacket records that a packet of the given length was sent at
// sentTime.
func (t *Tracker) SentPacket(num protocol.PacketNumber, length protocol.ByteCount, sentTime protocol.Timestamp) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.totalBytesSent += length
	t.packets[num] = sentPacket{length: length, sentTime: sentTime, totalBytesSentAtSend: t.totalBytesSent}
}

// AckPacket turns a previously sent packet into an AckedPacketInfo. ok is
// false if num was never recorded by SentPacket (or was already acked).
func (t *Tracker) AckPacket(num protocol.PacketNumber, ackTime protocol.Timestamp, appLimited bool) (congestion.AckedPacketInfo, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	sp, ok := t.packets[num]
	if !ok {
		return congestion.AckedPacketInfo{}, false
	}
	delete(t.packets, num)

	t.totalBytesAcked += sp.length
	info := congestion.AckedPacketInfo{
		PacketNumber:         num,
		PacketLength:         sp.length,
		SentTime:             sp.sentTime,
		TotalBytesSentAtSend: sp.totalBytesSentAtSend,
		HasLastAckedInfo:     t.hasLastAcked,
		LastAckedInfo:        t.lastAcked,
		IsAppLimited:         appLimited,
	}

	t.lastAcked = congestion.LastAckedInfo{
		SentTime:        sp.sentTime,
		AckTime:         ackTime,
		AdjustedAckTime: ackTime,
		TotalBytesSent:  sp.totalBytesSentAtSend,
		TotalBytesAcked: t.totalBytesAcked,
	}
	t.hasLastAcked = true

	return info, true
}

// TotalBytesAcked returns the cumulative bytes acked so far.
func (t *Tracker) TotalBytesAcked() protocol.ByteCount {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.totalBytesAcked
}
