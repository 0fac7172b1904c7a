// Package filter provides a standalone scalar Kalman filter (component
// C7). It is a general-purpose smoother for a noisy measurement stream
// and is not wired into the congestion package; BBR's own control path
// stays in fixed-point integer arithmetic throughout.
package filter

// Kalman is a 1-D constant-position Kalman filter: it estimates a slowly
// drifting scalar from noisy measurements, with ProcessNoise governing how
// much the true value is expected to drift between updates and
// MeasurementNoise governing how much to trust each individual
// measurement.
//
// Grounded on the scalar Kalman filter described in spec component C7 and
// named the way a small, single-purpose utility sits in this pack's
// repos (e.g. NithinPJ998-quic-go's utils package): no constructor
// ceremony, just a struct with sane zero-value-adjacent fields.
type Kalman struct {
	ProcessNoise     float64
	MeasurementNoise float64

	x           float64
	p           float64
	initialized bool
}

// minCovariance floors the filter's covariance so repeated confident
// updates never drive it to (or past) zero, which would make a later
// gain computation divide by a near-zero denominator.
const minCovariance = 1e-9

// NewKalman returns a filter with the given process and measurement
// noise. Both must be positive.
func NewKalman(processNoise, measurementNoise float64) *Kalman {
	return &Kalman{ProcessNoise: processNoise, MeasurementNoise: measurementNoise}
}

// Update folds in measurement z and returns the new estimate.
func (k *Kalman) Update(z float64) float64 {
	if !k.initialized {
		k.x = z
		k.p = k.MeasurementNoise
		k.initialized = true
		return k.x
	}

	pPrime := k.p + k.ProcessNoise
	gain := pPrime / (pPrime + k.MeasurementNoise)
	k.x = k.x + gain*(z-k.x)
	k.p = (1 - gain) * pPrime
	if k.p < minCovariance {
		k.p = minCovariance
	}
	return k.x
}

// Predict advances the covariance by one step without a measurement,
// widening the uncertainty band by ProcessNoise. Use when a beat is known
// to have elapsed but no sample arrived for it.
func (k *Kalman) Predict() {
	k.p += k.ProcessNoise
}

// GetEstimate returns the current estimate, or 0 if Update has never been
// called.
func (k *Kalman) GetEstimate() float64 {
	if !k.initialized {
		return 0
	}
	return k.x
}

// Reset discards the filter's state, as if newly constructed.
func (k *Kalman) Reset() {
	k.x = 0
	k.p = 1
	k.initialized = false
}
