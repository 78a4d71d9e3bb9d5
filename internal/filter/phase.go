// SPDX-License-Identifier: MIT
package filter

import (
	"math"

	"voiceshield/internal/pcm"
)

// DefaultIntensity is the default cross-fade intensity.
const DefaultIntensity = 0.12

// PhaseChaoticizer cross-fades each overlapping pair (i, i+1) of a channel
// by t = sin(0.0009i)*intensity. The sweep runs left to right in place, so
// pair i+1 starts from the value pair i just wrote.
type PhaseChaoticizer struct {
	base
	intensity *atomicFloat
}

// NewPhaseChaoticizer returns an enabled chaoticizer with the default intensity.
func NewPhaseChaoticizer() *PhaseChaoticizer {
	return &PhaseChaoticizer{
		base:      base{name: NamePhase},
		intensity: newAtomicFloat(DefaultIntensity),
	}
}

// Intensity returns the cross-fade intensity.
func (p *PhaseChaoticizer) Intensity() float64 { return p.intensity.Load() }

// SetIntensity sets the cross-fade intensity, 0 to 1.
func (p *PhaseChaoticizer) SetIntensity(v float64) error {
	if err := checkFloat(p.name, "intensity", v, IntensityMin, IntensityMax); err != nil {
		return err
	}
	p.intensity.Store(v)
	return nil
}

// Params implements Tunable.
func (p *PhaseChaoticizer) Params() []Param {
	return []Param{
		floatParam("intensity", IntensityMin, IntensityMax, p.Intensity, p.SetIntensity),
	}
}

// Process implements Filter.
func (p *PhaseChaoticizer) Process(f pcm.Frames) {
	if !p.Enabled() {
		return
	}
	mustBeStereo(f)

	intensity := p.Intensity()

	for _, ch := range f.Channels() {
		for i := 0; i+1 < len(ch); i++ {
			a, b := float64(ch[i]), float64(ch[i+1])
			t := math.Sin(float64(i)*0.0009) * intensity
			ch[i] = Clip(a*(1-t) + b*t)
			ch[i+1] = Clip(b*(1-t) + a*t)
		}
	}
}
