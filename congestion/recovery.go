package congestion

import "github.com/lucas-clemente/quic-bbr/protocol"

// recoveryState is the state of component C6, the loss-recovery
// sub-machine that runs alongside BBR's own Startup/Drain/ProbeBW/ProbeRTT
// state machine. BBR's loss response is intentionally mild compared to a
// loss-based controller: it never slashes the pacing rate, only clamps the
// congestion window for the duration of one round trip after a loss.
type recoveryState int

const (
	recoveryNotInRecovery recoveryState = iota
	// recoveryConservative holds the window near its size when the loss
	// was detected, growing only by acks, not by the send side.
	recoveryConservative
	// recoveryGrowth lets the window grow again once the round that saw
	// the loss has fully drained; it is still a clamp, not a gain
	// schedule, since BBR's own cwnd target resumes authority once
	// recovery ends.
	recoveryGrowth
)

// recoverySubMachine implements component C6. Grounded on the recovery
// branch of BbrCongestionControlOnDataLost and
// BbrCongestionControlUpdateRecoveryWindow in msquic's src/core/bbr.c.
type recoverySubMachine struct {
	state         recoveryState
	endOfRecovery protocol.PacketNumber // largest packet sent at the loss that opened recovery
	window        protocol.ByteCount
}

func (r *recoverySubMachine) inRecovery() bool {
	return r.state != recoveryNotInRecovery
}

// onLoss enters recovery if this is the first loss seen since the last
// exit. Returns true if recovery was freshly entered, which the caller
// uses to pin end_of_round_trip and force a new-round detection on the
// next ack.
func (r *recoverySubMachine) onLoss(largestSent protocol.PacketNumber, bytesInFlight, minCwnd protocol.ByteCount) (entered bool) {
	if r.inRecovery() {
		return false
	}
	r.state = recoveryConservative
	r.endOfRecovery = largestSent
	r.window = bytesInFlight
	if r.window < minCwnd {
		r.window = minCwnd
	}
	return true
}

// deflate shrinks the recovery window by the bytes just declared lost, or
// collapses it to minCwnd outright under persistent congestion.
func (r *recoverySubMachine) deflate(lostBytes protocol.ByteCount, persistentCongestion bool, minCwnd protocol.ByteCount) {
	if persistentCongestion {
		r.window = minCwnd
		return
	}
	r.window -= lostBytes
	if r.window < minCwnd {
		r.window = minCwnd
	}
}

// promoteOnNewRound advances Conservative into Growth; called by the
// controller on the first new round detected while already in recovery.
func (r *recoverySubMachine) promoteOnNewRound() {
	if r.state == recoveryConservative {
		r.state = recoveryGrowth
	}
}

// onAck folds a newly acked batch into the recovery window.
func (r *recoverySubMachine) onAck(ackedBytes, bytesInFlight, minCwnd protocol.ByteCount) {
	if !r.inRecovery() {
		return
	}
	if r.state == recoveryGrowth {
		r.window += ackedBytes
	}
	if floor := bytesInFlight + ackedBytes; r.window < floor {
		r.window = floor
	}
	if r.window < minCwnd {
		r.window = minCwnd
	}
}

// maybeExit leaves recovery once an ack with no loss covers a packet sent
// after recovery began.
func (r *recoverySubMachine) maybeExit(largestAck protocol.PacketNumber, hasLoss bool) {
	if r.inRecovery() && !hasLoss && r.endOfRecovery < largestAck {
		r.state = recoveryNotInRecovery
	}
}

// cwnd returns the current recovery-window clamp. Callers only consult
// this while inRecovery is true.
func (r *recoverySubMachine) cwnd() protocol.ByteCount {
	return r.window
}

func (r *recoverySubMachine) reset() {
	r.state = recoveryNotInRecovery
	r.endOfRecovery = 0
	r.window = 0
}
