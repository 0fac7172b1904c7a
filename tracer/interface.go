// Package tracer defines the outbound reporting contract BBR calls into:
// network-statistics snapshots, congestion-state transitions and recovery
// milestones. Grounded on the teacher's quictrace.Tracer interface
// (quictrace/interface.go), generalized from its single Trace(event)
// method into the small set of typed callbacks the spec's outbound
// contract names, and reimplemented against three different backends
// (zap, Prometheus, qlog-style JSON) the way the wider example pack
// reports on a live connection.
package tracer

import "time"

// NetworkStatistics is the payload of the NETWORK_STATISTICS notification.
// It is built by congestion.Sender.NetworkStatistics, which publishes it
// to the Tracer when Settings.NetStatsEventEnabled is set; ack processing
// (Sender.OnDataAcknowledged) does not publish it by itself.
type NetworkStatistics struct {
	BytesInFlight    uint64
	PostedBytes      uint64
	IdealBytes       uint64
	SmoothedRTT      time.Duration
	CongestionWindow uint64
	// BandwidthBytesPerSecond is get_bandwidth()/BW_UNIT, already
	// converted out of the fixed-point internal representation.
	BandwidthBytesPerSecond uint64
}

// Tracer receives BBR's reporting callbacks. Every method is pure
// reporting: BBR never branches on what a Tracer does, and a Tracer must
// never block or panic.
type Tracer interface {
	OnNetworkStatistics(stats NetworkStatistics)
	// OnCongestionEvent fires whenever the top-level phase changes
	// (Startup, Drain, ProbeBW, ProbeRTT) or recovery is entered; state
	// names the new phase or "recovery".
	OnCongestionEvent(state string)
	OnRecoveryComplete()
	OnPersistentCongestion()
}

type noopTracer struct{}

func (noopTracer) OnNetworkStatistics(NetworkStatistics) {}
func (noopTracer) OnCongestionEvent(string)              {}
func (noopTracer) OnRecoveryComplete()                   {}
func (noopTracer) OnPersistentCongestion()                {}

// Noop returns a Tracer that discards everything, the default when a
// caller does not supply one.
func Noop() Tracer {
	return noopTracer{}
}

// OrNoop returns t, or Noop() if t is nil.
func OrNoop(t Tracer) Tracer {
	if t == nil {
		return Noop()
	}
	return t
}
