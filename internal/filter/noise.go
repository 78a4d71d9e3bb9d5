// SPDX-License-Identifier: MIT
package filter

import (
	"math"
	"math/rand/v2"
	"sync/atomic"

	"voiceshield/internal/pcm"
)

// DefaultAmplitude is the default peak noise level in sample units.
const DefaultAmplitude = 1

// NoiseInjector adds uniform integer noise in [-amplitude, +amplitude] to
// every sample. The random source is only touched from Process.
type NoiseInjector struct {
	base
	amplitude atomic.Int32
	rng       *rand.Rand
}

// NewNoiseInjector returns an enabled noise injector seeded from the
// runtime random source.
func NewNoiseInjector() *NoiseInjector {
	return NewSeededNoiseInjector(rand.Uint64(), rand.Uint64())
}

// NewSeededNoiseInjector returns a noise injector with a reproducible sequence.
func NewSeededNoiseInjector(seed1, seed2 uint64) *NoiseInjector {
	n := &NoiseInjector{
		base: base{name: NameNoise},
		rng:  rand.New(rand.NewPCG(seed1, seed2)),
	}
	n.amplitude.Store(DefaultAmplitude)
	return n
}

// Amplitude returns the peak noise level.
func (n *NoiseInjector) Amplitude() int { return int(n.amplitude.Load()) }

// SetAmplitude sets the peak noise level, 0 to 2000.
func (n *NoiseInjector) SetAmplitude(a int) error {
	if err := checkInt(n.name, "amplitude", a, AmplitudeMin, AmplitudeMax); err != nil {
		return err
	}
	n.amplitude.Store(int32(a))
	return nil
}

// Params implements Tunable.
func (n *NoiseInjector) Params() []Param {
	return []Param{
		intParam("amplitude", AmplitudeMin, AmplitudeMax, n.Amplitude, n.SetAmplitude),
	}
}

// Process implements Filter.
func (n *NoiseInjector) Process(f pcm.Frames) {
	if !n.Enabled() {
		return
	}
	mustBeStereo(f)

	amp := float64(n.Amplitude())
	if amp == 0 {
		return
	}

	for _, ch := range f.Channels() {
		for i := range ch {
			noise := math.Round(n.rng.Float64()*amp*2) - amp
			ch[i] = Clip(float64(ch[i]) + noise)
		}
	}
}
