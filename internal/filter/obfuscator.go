// SPDX-License-Identifier: MIT
package filter

import (
	"sync/atomic"

	"voiceshield/internal/pcm"
)

// Default obfuscator parameters.
const (
	DefaultStep     = 4
	DefaultXorValue = 0x0000
)

// Obfuscator XORs every step-th sample of both channels with a fixed
// 16-bit pattern, starting at index 0. Applying it twice with the same
// settings restores the input.
type Obfuscator struct {
	base
	step     atomic.Int32
	xorValue atomic.Int32
}

// NewObfuscator returns an enabled obfuscator with default parameters.
func NewObfuscator() *Obfuscator {
	o := &Obfuscator{base: base{name: NameObfuscator}}
	o.step.Store(DefaultStep)
	o.xorValue.Store(DefaultXorValue)
	return o
}

// Step returns the sample stride.
func (o *Obfuscator) Step() int { return int(o.step.Load()) }

// SetStep sets the sample stride, 1 to 32.
func (o *Obfuscator) SetStep(step int) error {
	if err := checkInt(o.name, "step", step, StepMin, StepMax); err != nil {
		return err
	}
	o.step.Store(int32(step))
	return nil
}

// XorValue returns the XOR pattern.
func (o *Obfuscator) XorValue() int { return int(o.xorValue.Load()) }

// SetXorValue sets the XOR pattern, 0 to 0xFFFF.
func (o *Obfuscator) SetXorValue(v int) error {
	if err := checkInt(o.name, "xor_value", v, XorValueMin, XorValueMax); err != nil {
		return err
	}
	o.xorValue.Store(int32(v))
	return nil
}

// Params implements Tunable.
func (o *Obfuscator) Params() []Param {
	return []Param{
		intParam("step", StepMin, StepMax, o.Step, o.SetStep),
		intParam("xor_value", XorValueMin, XorValueMax, o.XorValue, o.SetXorValue),
	}
}

// Process implements Filter.
func (o *Obfuscator) Process(f pcm.Frames) {
	if !o.Enabled() {
		return
	}
	mustBeStereo(f)

	step := o.Step()
	mask := int16(uint16(o.XorValue()))
	if mask == 0 {
		return
	}

	for _, ch := range f.Channels() {
		for i := 0; i < len(ch); i += step {
			ch[i] ^= mask
		}
	}
}
