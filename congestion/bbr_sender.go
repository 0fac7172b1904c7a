package congestion

import (
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/lucas-clemente/quic-bbr/protocol"
	"github.com/lucas-clemente/quic-bbr/tracer"
	"github.com/lucas-clemente/quic-bbr/utils"
)

// Phase is the top-level BBR state: Startup → Drain → ProbeBW ↔ ProbeRTT.
type Phase int

const (
	PhaseStartup Phase = iota
	PhaseDrain
	PhaseProbeBW
	PhaseProbeRTT
)

func (p Phase) String() string {
	switch p {
	case PhaseStartup:
		return "startup"
	case PhaseDrain:
		return "drain"
	case PhaseProbeBW:
		return "probe_bw"
	case PhaseProbeRTT:
		return "probe_rtt"
	default:
		return "unknown"
	}
}

// sendPacingIntervalFloor is the smallest min-RTT pacing is bothered with;
// below it pacing granularity can't be honored meaningfully and the
// sender falls back to cwnd-limited sending. Open question in spec §9
// ("ack-elapsed fallback" sibling): the source names this threshold
// send_pacing_interval without pinning a value, so it is fixed here at
// one millisecond, the smallest interval a pacer in this stack can act
// on.
const sendPacingIntervalFloor = time.Millisecond

// debugAssertions gates the precondition checks spec §7 requires to trap
// in debug builds and be saturating/no-op in release. It is a variable,
// not a build-tag constant, so tests can flip it.
var debugAssertions = true

func assert(cond bool, msg string) {
	if debugAssertions && !cond {
		panic("congestion: precondition violated: " + msg)
	}
}

// Sender implements component C1, the BBR congestion controller, and is
// the sole concrete congestion.Sender this module ships: CUBIC and other
// siblings are out of scope here, so there is no dispatch trait, just
// this type's exported method set standing in for the contract the
// enclosing connection binds to (spec §9's "function-pointer dispatch"
// note collapses to a single concrete type when only one controller is
// compiled in).
//
// Grounded on the overall shape of the teacher's *CubicSender
// (congestion/cubic_sender.go) and on BbrCongestionControl* in msquic's
// src/core/bbr.c for every piece of the algorithm itself.
type Sender struct {
	settings Settings
	logger   *zap.Logger
	trace    tracer.Tracer
	rng      RandomSource

	mss         protocol.ByteCount
	initialCwnd protocol.ByteCount
	minCwnd     protocol.ByteCount

	cwnd             protocol.ByteCount
	bytesInFlight    protocol.ByteCount
	bytesInFlightMax protocol.ByteCount
	totalBytesAcked  protocol.ByteCount

	exemptions uint8

	phase       Phase
	pacingGain  Gain
	cwndGain    Gain
	sendQuantum protocol.ByteCount

	minRTT minRTTTracker

	roundTripCounter    uint64
	endOfRoundTrip      protocol.PacketNumber
	endOfRoundTripValid bool

	pacingCycleIndex int
	cycleStart       protocol.Timestamp

	btlbwFound                     bool
	lastEstimatedStartupBandwidth  Bandwidth
	slowStartupRoundCounter        int

	exitingQuiescence bool

	probeRTTEndTime      protocol.Timestamp
	probeRTTEndTimeValid bool
	probeRTTRound        uint64
	probeRTTRoundValid   bool

	recovery recoverySubMachine

	bandwidth      *bandwidthSampler
	ackAggregation *ackAggregationFilter
}

// New constructs a Sender per settings. logger and trace may be nil, in
// which case a no-op implementation is used for each; rng must not be
// nil.
func New(settings Settings, logger *zap.Logger, trace tracer.Tracer, rng RandomSource) *Sender {
	s := &Sender{
		settings: settings,
		logger:   utils.OrNop(logger),
		trace:    tracer.OrNoop(trace),
		rng:      rng,
		mss:      settings.DatagramPayloadSize,
		minCwnd:  minCwndInMss * settings.DatagramPayloadSize,

		bandwidth:      newBandwidthSampler(),
		ackAggregation: newAckAggregationFilter(),
	}
	s.initialCwnd = protocol.ByteCount(settings.InitialWindowPackets) * settings.DatagramPayloadSize
	s.Reset(true)
	return s
}

// Reset re-establishes the initial Startup state. full additionally zeros
// bytes_in_flight; otherwise the caller's view of what's outstanding on
// the wire survives the reset.
func (s *Sender) Reset(full bool) {
	s.phase = PhaseStartup
	s.pacingGain = highGain
	s.cwndGain = highGain
	s.cwnd = s.initialCwnd
	s.sendQuantum = s.mss
	s.exemptions = 0
	s.bytesInFlightMax = 0
	s.totalBytesAcked = 0
	if full {
		s.bytesInFlight = 0
	}

	s.recovery.reset()
	s.bandwidth.reset()
	s.ackAggregation.reset()
	s.minRTT.reset()

	s.roundTripCounter = 0
	s.endOfRoundTripValid = false
	s.pacingCycleIndex = 0
	s.cycleStart = 0

	s.btlbwFound = false
	s.lastEstimatedStartupBandwidth = 0
	s.slowStartupRoundCounter = 0
	s.exitingQuiescence = false

	s.probeRTTEndTimeValid = false
	s.probeRTTRoundValid = false
}

// CanSend reports whether the sender may emit another packet right now.
func (s *Sender) CanSend() bool {
	return s.bytesInFlight < s.GetCongestionWindow() || s.exemptions > 0
}

// SetExemption unconditionally sets the number of packets that may be
// sent while ignoring the congestion window, used by the enclosing
// connection to push through handshake or probe packets.
func (s *Sender) SetExemption(n uint8) {
	s.exemptions = n
}

// GetCongestionWindow returns the effective congestion window: pinned to
// minCwnd in ProbeRTT, clamped by the recovery window while recovering,
// and the raw cwnd otherwise.
func (s *Sender) GetCongestionWindow() protocol.ByteCount {
	if s.phase == PhaseProbeRTT {
		return s.minCwnd
	}
	if s.recovery.inRecovery() {
		return utils.Min(s.cwnd, s.recovery.cwnd())
	}
	return s.cwnd
}

// GetBytesInFlightMax returns the high-water mark of bytes_in_flight
// since the last Reset, full or not.
func (s *Sender) GetBytesInFlightMax() protocol.ByteCount {
	return s.bytesInFlightMax
}

// IsAppLimited reports whether the bandwidth filter currently considers
// the sender application-limited.
func (s *Sender) IsAppLimited() bool {
	return s.bandwidth.isAppLimited()
}

// BandwidthEstimate returns the current windowed-max delivery-rate
// estimate in the fixed-point Bandwidth representation; call
// BytesPerSecond on it for a plain bytes-per-second rate.
func (s *Sender) BandwidthEstimate() Bandwidth {
	return s.bandwidth.estimate()
}

// OnDataSent records that n bytes were just sent.
func (s *Sender) OnDataSent(n protocol.ByteCount) {
	if s.bytesInFlight == 0 && s.bandwidth.isAppLimited() {
		s.exitingQuiescence = true
	}
	s.bytesInFlight += n
	if s.bytesInFlight > s.bytesInFlightMax {
		s.bytesInFlightMax = s.bytesInFlight
	}
	if s.exemptions > 0 {
		s.exemptions--
	}
}

// OnDataInvalidated retracts n bytes previously counted by OnDataSent
// (e.g. a packet was never actually put on the wire). Returns true if the
// connection was blocked and this unblocks it.
func (s *Sender) OnDataInvalidated(n protocol.ByteCount) bool {
	assert(s.bytesInFlight >= n, "OnDataInvalidated: bytes_in_flight >= n")
	prevCanSend := s.CanSend()
	if n > s.bytesInFlight {
		n = s.bytesInFlight
	}
	s.bytesInFlight -= n
	return !prevCanSend && s.CanSend()
}

// SetAppLimited marks the bandwidth filter application-limited, provided
// the sender isn't already cwnd-bound. largestSent is the largest packet
// number sent so far, supplied by the caller in place of the inbound
// contract's largest_sent_packet_number() query (this module has no
// connection object to query back into).
func (s *Sender) SetAppLimited(largestSent protocol.PacketNumber) {
	if s.bytesInFlight <= s.cwnd {
		s.bandwidth.setAppLimited(largestSent)
	}
}

// OnSpuriousCongestionEvent always returns false: BBR does not roll back
// any state on a spurious loss signal.
func (s *Sender) OnSpuriousCongestionEvent() bool {
	return false
}

// OnDataLost enters or updates recovery for a detected loss.
func (s *Sender) OnDataLost(ev LossEvent) {
	entered := s.recovery.onLoss(ev.LargestSentPacketNumber, s.bytesInFlight, s.minCwnd)
	if entered {
		s.endOfRoundTrip = ev.LargestSentPacketNumber
		s.endOfRoundTripValid = true
		s.trace.OnCongestionEvent("recovery")
		s.logger.Debug("entering recovery", zap.Uint64("largest_lost", uint64(ev.LargestPacketNumberLost)))
	}
	s.recovery.deflate(ev.NumRetransmittableBytes, ev.PersistentCongestion, s.minCwnd)
	if ev.PersistentCongestion {
		s.trace.OnPersistentCongestion()
		s.logger.Warn("persistent congestion detected")
	}
}

// OnDataAcknowledged is the central event: it folds a batch of newly
// acked packets into every filter and sub-state-machine and runs BBR's
// per-ack algorithm in full. Returns true if the connection was blocked
// and this ack unblocks it.
func (s *Sender) OnDataAcknowledged(ev AckEvent) bool {
	if ev.IsImplicit {
		prevCanSend := s.CanSend()
		s.updateCwnd(ev.NumRetransmittableBytes, ev.NumTotalAckedRetransmittableBytes)
		return !prevCanSend && s.CanSend()
	}

	prevCanSend := s.CanSend()
	prevInflight := s.bytesInFlight
	s.bytesInFlight -= ev.NumRetransmittableBytes
	s.totalBytesAcked = ev.NumTotalAckedRetransmittableBytes

	// Step 2: min-RTT update (C5).
	rttSampleExpired := false
	if ev.MinRttValid {
		rttSampleExpired = s.minRTT.update(ev.MinRtt, ev.TimeNow)
	}

	// Step 3: round tracking.
	newRound := false
	if !s.endOfRoundTripValid || s.endOfRoundTrip < ev.LargestAcked {
		s.roundTripCounter++
		s.endOfRoundTrip = ev.LargestSentPacketNumber
		s.endOfRoundTripValid = true
		newRound = true
	}

	// Step 4: bandwidth filter update (C2), one sample per acked packet.
	s.bandwidth.onAckStart(ev.LargestAcked)
	runningAcked := ev.NumTotalAckedRetransmittableBytes - ev.NumRetransmittableBytes
	for _, pkt := range ev.AckedPackets {
		runningAcked += pkt.PacketLength
		s.bandwidth.onPacketAcked(pkt, ev.TimeNow, ev.AdjustedAckTime, runningAcked, s.roundTripCounter)
	}

	// Step 5: recovery bookkeeping (C6).
	if s.recovery.inRecovery() {
		if newRound {
			s.recovery.promoteOnNewRound()
		}
		s.recovery.maybeExit(ev.LargestAcked, ev.HasLoss)
		if s.recovery.inRecovery() {
			s.recovery.onAck(ev.NumRetransmittableBytes, s.bytesInFlight, s.minCwnd)
		} else {
			s.trace.OnRecoveryComplete()
		}
	}

	// Step 6: ack-aggregation update (C3).
	s.ackAggregation.onAckedBytes(ev.TimeNow, ev.NumRetransmittableBytes, s.bandwidth.estimate(), s.roundTripCounter)

	// Step 7: ProbeBW gain cycling.
	if s.phase == PhaseProbeBW {
		shouldAdvance := ev.TimeNow.Sub(s.cycleStart) > s.minRTT.get()
		if s.pacingGain > gainUnit && !ev.HasLoss && prevInflight < s.targetCwnd(s.pacingGain) {
			shouldAdvance = false
		}
		if s.pacingGain < gainUnit && s.bytesInFlight <= s.targetCwnd(gainUnit) {
			shouldAdvance = true
		}
		if shouldAdvance {
			s.pacingCycleIndex = (s.pacingCycleIndex + 1) % probeBwCycleLength
			s.cycleStart = ev.TimeNow
			s.pacingGain = probeBwGainCycle[s.pacingCycleIndex]
		}
	}

	// Step 8: Startup exit detection.
	if !s.btlbwFound && newRound && !ev.IsLargestAckedPacketAppLimited {
		target := Bandwidth(int64(s.lastEstimatedStartupBandwidth) * int64(startupGrowthTarget) / int64(gainUnit))
		current := s.bandwidth.estimate()
		if current >= target {
			s.lastEstimatedStartupBandwidth = current
			s.slowStartupRoundCounter = 0
		} else {
			s.slowStartupRoundCounter++
			if s.slowStartupRoundCounter >= startupSlowGrowthRoundLimit {
				s.btlbwFound = true
			}
		}
	}

	// Step 9: phase transitions.
	if s.phase == PhaseStartup && s.btlbwFound {
		s.phase = PhaseDrain
		s.pacingGain = drainGain
		s.cwndGain = highGain
		s.trace.OnCongestionEvent(s.phase.String())
		s.logPhaseTransition()
	}
	if s.phase == PhaseDrain && s.bytesInFlight <= s.targetCwnd(gainUnit) {
		s.transitToProbeBW(ev.TimeNow)
		s.trace.OnCongestionEvent(s.phase.String())
		s.logPhaseTransition()
	}
	if s.phase != PhaseProbeRTT && !s.exitingQuiescence && rttSampleExpired {
		s.transitToProbeRTT(ev.LargestSentPacketNumber)
		s.trace.OnCongestionEvent(s.phase.String())
		s.logPhaseTransition()
	}
	s.exitingQuiescence = false

	// Step 10: ProbeRTT handling.
	if s.phase == PhaseProbeRTT {
		s.handleProbeRTT(ev, newRound)
	}

	// Step 11: cwnd update.
	s.updateCwnd(ev.NumRetransmittableBytes, s.totalBytesAcked)

	return !prevCanSend && s.CanSend()
}

// logPhaseTransition emits a single debug line describing the sender's
// current phase and cwnd, guarded by a level check so the zap.Uint64
// call below doesn't fire on every ack when debug logging is disabled.
func (s *Sender) logPhaseTransition() {
	if ce := s.logger.Check(zapcore.DebugLevel, "bbr phase transition"); ce != nil {
		ce.Write(
			zap.String("phase", s.phase.String()),
			zap.Uint64("cwnd", uint64(s.cwnd)),
			zap.Uint64("bandwidth_bps", s.bandwidth.estimate().BytesPerSecond()),
		)
	}
}

// transitToProbeBW enters ProbeBW at a randomly chosen phase of the gain
// cycle, excluding phase 1 (the drain phase of the cycle), so the cycle
// never starts by immediately draining a queue that was never built.
func (s *Sender) transitToProbeBW(now protocol.Timestamp) {
	s.phase = PhaseProbeBW
	s.cwndGain = cwndGain
	r := s.rng.Uint32()
	s.pacingCycleIndex = int((r%7 + 2) % 8)
	s.pacingGain = probeBwGainCycle[s.pacingCycleIndex]
	s.cycleStart = now
}

// transitToProbeRTT enters ProbeRTT: pacing gain drops to 1.0, both
// probe-rtt timers are invalidated, and the bandwidth filter is marked
// app-limited so the brief low-inflight period doesn't poison the
// bandwidth estimate.
func (s *Sender) transitToProbeRTT(largestSent protocol.PacketNumber) {
	s.phase = PhaseProbeRTT
	s.pacingGain = gainUnit
	s.probeRTTEndTimeValid = false
	s.probeRTTRoundValid = false
	s.bandwidth.setAppLimited(largestSent)
}

// handleProbeRTT runs every ack while in ProbeRTT: it waits for
// bytes_in_flight to drop near min_cwnd, then holds there until both
// probeRttDuration has elapsed and a new round trip has begun, whichever
// comes later, and exits to ProbeBW or back to Startup.
func (s *Sender) handleProbeRTT(ev AckEvent, newRound bool) {
	s.bandwidth.setAppLimited(ev.LargestSentPacketNumber)

	if !s.probeRTTEndTimeValid && s.bytesInFlight < s.minCwnd+s.mss {
		s.probeRTTEndTime = ev.TimeNow.Add(probeRttDuration)
		s.probeRTTEndTimeValid = true
		s.probeRTTRoundValid = false
		return
	}

	if !s.probeRTTEndTimeValid {
		return
	}

	if !s.probeRTTRoundValid && newRound {
		s.probeRTTRound = s.roundTripCounter
		s.probeRTTRoundValid = true
	}

	if s.probeRTTRoundValid && s.probeRTTEndTime <= ev.TimeNow {
		s.minRTT.refreshTimestamp(ev.TimeNow)
		if s.btlbwFound {
			s.transitToProbeBW(ev.TimeNow)
		} else {
			s.phase = PhaseStartup
			s.pacingGain = highGain
			s.cwndGain = highGain
		}
		s.trace.OnCongestionEvent(s.phase.String())
		s.logPhaseTransition()
	}
}

// targetCwnd computes the window target for gain: the bandwidth-delay
// product scaled by gain, plus headroom for quantaFactor send quanta. Per
// B1, it falls back to a plain multiple of initial_cwnd until there is a
// bandwidth estimate and a validated min-RTT to compute a BDP from.
func (s *Sender) targetCwnd(gain Gain) protocol.ByteCount {
	bw := s.bandwidth.estimate()
	if bw == 0 || !s.minRTT.isValid() {
		return protocol.ByteCount(uint64(gain) * uint64(s.initialCwnd) / uint64(gainUnit))
	}
	bdp := bw.TransferSize(s.minRTT.get())
	return gain.MulBytes(bdp) + quantaFactor*s.sendQuantum
}

// computeSendQuantum recomputes the target burst size at the pacer from
// the current pacing rate, per the low/high pacing thresholds in B2/B3.
func (s *Sender) computeSendQuantum() {
	pacingRate := s.pacingGain.Mul(s.bandwidth.estimate())
	switch {
	case pacingRate < BandwidthFromBytesPerSecond(lowPacingThresholdBytesPerSec):
		s.sendQuantum = s.mss
	case pacingRate < BandwidthFromBytesPerSecond(highPacingThresholdBytesPerSec):
		s.sendQuantum = 2 * s.mss
	default:
		q := pacingRate.TransferSize(time.Millisecond)
		const maxQuantum = 64 * 1024
		if q > maxQuantum {
			q = maxQuantum
		}
		s.sendQuantum = q
	}
}

// updateCwnd grows or clamps cwnd following an ack. It is a no-op in
// ProbeRTT, where GetCongestionWindow already overrides to min_cwnd
// regardless of the stored value.
func (s *Sender) updateCwnd(ackedBytes, totalBytesAcked protocol.ByteCount) {
	if s.phase == PhaseProbeRTT {
		return
	}
	s.computeSendQuantum()

	target := s.targetCwnd(s.cwndGain)
	if s.btlbwFound {
		target += s.ackAggregation.estimate()
	}

	if s.btlbwFound {
		newCwnd := s.cwnd + ackedBytes
		if newCwnd > target {
			newCwnd = target
		}
		s.cwnd = newCwnd
	} else if s.cwnd < target || totalBytesAcked < s.initialCwnd {
		s.cwnd += ackedBytes
	}

	if s.cwnd < s.minCwnd {
		s.cwnd = s.minCwnd
	}
}

// GetSendAllowance returns the number of bytes the sender may emit right
// now. pacingEnabled mirrors Settings.PacingEnabled, accepted explicitly
// here so a connection can disable pacing transiently (e.g. during loss
// probing) without touching the sender's settings.
func (s *Sender) GetSendAllowance(timeSinceLastSend *time.Duration, pacingEnabled bool) protocol.ByteCount {
	cwndNow := int64(s.GetCongestionWindow())
	inFlight := int64(s.bytesInFlight)
	avail := cwndNow - inFlight
	if avail <= 0 {
		return 0
	}

	if !pacingEnabled || timeSinceLastSend == nil || !s.minRTT.isValid() || s.minRTT.get() < sendPacingIntervalFloor {
		return protocol.ByteCount(avail)
	}

	allowance := int64(s.pacingGain.Mul(s.bandwidth.estimate()).TransferSize(*timeSinceLastSend))

	if s.phase == PhaseStartup {
		if startupAllowance := int64(s.pacingGain.MulBytes(s.GetCongestionWindow())) - inFlight; startupAllowance > allowance {
			allowance = startupAllowance
		}
	}

	if allowance > avail {
		allowance = avail
	}
	if allowance < 0 {
		allowance = 0
	}
	if burstCap := cwndNow / 4; allowance > burstCap {
		allowance = burstCap
	}
	return protocol.ByteCount(allowance)
}

// NetworkStatistics assembles the outbound NETWORK_STATISTICS payload.
// postedBytes and idealBytes come from the send-buffer sizing subsystem,
// out of scope for this module, so the caller supplies them; BBR
// contributes bytes_in_flight, congestion_window and bandwidth from its
// own state and smoothedRTT is passed through from the path estimator.
// When Settings.NetStatsEventEnabled is set, the result is also handed to
// the configured Tracer.
func (s *Sender) NetworkStatistics(postedBytes, idealBytes protocol.ByteCount, smoothedRTT time.Duration) tracer.NetworkStatistics {
	stats := tracer.NetworkStatistics{
		BytesInFlight:           uint64(s.bytesInFlight),
		PostedBytes:             uint64(postedBytes),
		IdealBytes:              uint64(idealBytes),
		SmoothedRTT:             smoothedRTT,
		CongestionWindow:        uint64(s.GetCongestionWindow()),
		BandwidthBytesPerSecond: s.bandwidth.estimate().BytesPerSecond(),
	}
	if s.settings.NetStatsEventEnabled {
		s.trace.OnNetworkStatistics(stats)
	}
	return stats
}
