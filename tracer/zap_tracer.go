package tracer

import "go.uber.org/zap"

// zapTracer logs every callback as a structured event. Grounded on the
// zap usage convention adopted across utils.NopLogger/OrNop: one
// *zap.Logger per connection, never a package-level global.
type zapTracer struct {
	logger *zap.Logger
}

// NewZapTracer returns a Tracer that logs to logger at debug level for
// statistics and info level for state transitions.
func NewZapTracer(logger *zap.Logger) Tracer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &zapTracer{logger: logger}
}

func (z *zapTracer) OnNetworkStatistics(stats NetworkStatistics) {
	z.logger.Debug("network statistics",
		zap.Uint64("bytes_in_flight", stats.BytesInFlight),
		zap.Uint64("posted_bytes", stats.PostedBytes),
		zap.Uint64("ideal_bytes", stats.IdealBytes),
		zap.Duration("smoothed_rtt", stats.SmoothedRTT),
		zap.Uint64("congestion_window", stats.CongestionWindow),
		zap.Uint64("bandwidth_bytes_per_second", stats.BandwidthBytesPerSecond),
	)
}

func (z *zapTracer) OnCongestionEvent(state string) {
	z.logger.Info("congestion event", zap.String("state", state))
}

func (z *zapTracer) OnRecoveryComplete() {
	z.logger.Info("recovery complete")
}

func (z *zapTracer) OnPersistentCongestion() {
	z.logger.Warn("persistent congestion")
}
