// SPDX-License-Identifier: MIT
/*
Package filter implements the voice obfuscation filters and the ordered
chain that applies them to a stereo frame set.

Thread Safety:
  - Parameters and the enabled flag are stored atomically and may be
    written from a control goroutine while Process runs.
  - Each Process call loads every parameter once on entry, so a single
    buffer cycle always sees one consistent parameter set.
  - Frame buffers are owned by the processing goroutine; filters never
    retain them across calls.
*/
package filter

import (
	"math"
	"sync/atomic"

	"voiceshield/internal/pcm"
)

// Filter is one stage of the chain. Process mutates the frames in place
// and must preserve the frame count. An enabled filter panics with
// pcm.ErrChannelMismatch, before touching any sample, when the channels
// differ in length; Chain.Process checks first and returns the error instead.
type Filter interface {
	Name() string
	Enabled() bool
	Process(f pcm.Frames)
}

// Tunable is implemented by filters that expose an enabled switch and
// numeric parameters to the control surface.
type Tunable interface {
	Filter
	SetEnabled(enabled bool)
	Params() []Param
}

// Filter names, used as stable identifiers by the control surface and config.
const (
	NameObfuscator = "obfuscator"
	NameNoise      = "noise"
	NameFormant    = "formant"
	NameWarp       = "warp"
	NamePhase      = "phase"
	NameComb       = "comb"
)

type base struct {
	name     string
	disabled atomic.Bool // Zero value means enabled.
}

func (b *base) Name() string { return b.name }

func (b *base) Enabled() bool { return !b.disabled.Load() }

func (b *base) SetEnabled(enabled bool) { b.disabled.Store(!enabled) }

func mustBeStereo(f pcm.Frames) {
	if err := f.Validate(); err != nil {
		panic(err)
	}
}

// Clip rounds v half away from zero and saturates it to the 16-bit range.
// NaN maps to 0.
func Clip(v float64) int16 {
	r := math.Round(v)
	switch {
	case r >= math.MaxInt16:
		return math.MaxInt16
	case r <= math.MinInt16:
		return math.MinInt16
	case r != r:
		return 0
	}
	return int16(r)
}
