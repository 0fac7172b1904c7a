package congestion

import (
	"crypto/rand"
	"encoding/binary"
)

// cryptoRandomSource is the default RandomSource, used to pick the phase
// BBR's ProbeBW cycle starts at so sibling flows sharing a bottleneck don't
// probe for bandwidth in lockstep.
type cryptoRandomSource struct{}

// NewCryptoRandomSource returns a RandomSource backed by crypto/rand.
func NewCryptoRandomSource() RandomSource {
	return cryptoRandomSource{}
}

func (cryptoRandomSource) Uint32() uint32 {
	var b [4]byte
	if _, err := rand.Read(b[:]); err != nil {
		// crypto/rand.Read only fails if the OS entropy source is
		// unavailable, a condition this module cannot recover from or
		// meaningfully degrade under.
		panic("congestion: crypto/rand unavailable: " + err.Error())
	}
	return binary.BigEndian.Uint32(b[:])
}
