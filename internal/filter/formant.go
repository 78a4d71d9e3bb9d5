// SPDX-License-Identifier: MIT
package filter

import (
	"math"

	"voiceshield/internal/pcm"
)

// DefaultFormantAmount is the default modulation depth.
const DefaultFormantAmount = 0.22

// FormantScrambler applies a slowly wandering gain,
// 1 + amount*(sin(0.004i) + 0.5*cos(0.002i)), to both channels. The
// modulation index restarts at 0 on every call.
type FormantScrambler struct {
	base
	amount *atomicFloat
}

// NewFormantScrambler returns an enabled scrambler with the default amount.
func NewFormantScrambler() *FormantScrambler {
	return &FormantScrambler{
		base:   base{name: NameFormant},
		amount: newAtomicFloat(DefaultFormantAmount),
	}
}

// Amount returns the modulation depth.
func (s *FormantScrambler) Amount() float64 { return s.amount.Load() }

// SetAmount sets the modulation depth, -12 to 12.
func (s *FormantScrambler) SetAmount(v float64) error {
	if err := checkFloat(s.name, "amount", v, FormantMin, FormantMax); err != nil {
		return err
	}
	s.amount.Store(v)
	return nil
}

// Params implements Tunable.
func (s *FormantScrambler) Params() []Param {
	return []Param{
		floatParam("amount", FormantMin, FormantMax, s.Amount, s.SetAmount),
	}
}

// FormantGain returns the gain applied at sample index i.
func FormantGain(i int, amount float64) float64 {
	x := float64(i)
	return 1 + amount*(math.Sin(x*0.004)+0.5*math.Cos(x*0.002))
}

// Process implements Filter.
func (s *FormantScrambler) Process(f pcm.Frames) {
	if !s.Enabled() {
		return
	}
	mustBeStereo(f)

	amount := s.Amount()

	n := max(len(f.Left), len(f.Right))
	for i := range n {
		gain := FormantGain(i, amount)
		if i < len(f.Left) {
			f.Left[i] = Clip(float64(f.Left[i]) * gain)
		}
		if i < len(f.Right) {
			f.Right[i] = Clip(float64(f.Right[i]) * gain)
		}
	}
}
