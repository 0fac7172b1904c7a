package utils

import "go.uber.org/zap"

// NopLogger returns a *zap.Logger that discards everything. It is the
// default logger for every component in this module, so BBR and its
// tracers can hold a non-nil logger and never branch on whether one was
// configured, matching the tolerance spec'd for the optional trace sink.
//
// This replaces the teacher's package-level log-level switch
// (SetLogLevel/Debugf/Infof/Errorf backed by fmt.Fprintf to os.Stdout):
// every other service-shaped repo in the pack (caddyserver-caddy,
// Lzww0608-AetherFlow, twogc-quic-test) configures go.uber.org/zap instead
// of a single global io.Writer, and a per-connection *zap.Logger composes
// far better than one global level when many BBR instances run in the same
// process.
func NopLogger() *zap.Logger {
	return zap.NewNop()
}

// OrNop returns l, or a no-op logger if l is nil.
func OrNop(l *zap.Logger) *zap.Logger {
	if l == nil {
		return NopLogger()
	}
	return l
}
