// SPDX-License-Identifier: MIT
package filter

import (
	"sync/atomic"

	"voiceshield/internal/pcm"
)

// Default comb parameters.
const (
	DefaultHoleWidth = 16
	DefaultDepth     = 0.3
)

// SpectralHoleComb attenuates alternating blocks of holeWidth samples by
// (1 - depth), starting with the block at index 0.
type SpectralHoleComb struct {
	base
	holeWidth atomic.Int32
	depth     *atomicFloat
}

// NewSpectralHoleComb returns an enabled comb with default parameters.
func NewSpectralHoleComb() *SpectralHoleComb {
	c := &SpectralHoleComb{
		base:  base{name: NameComb},
		depth: newAtomicFloat(DefaultDepth),
	}
	c.holeWidth.Store(DefaultHoleWidth)
	return c
}

// HoleWidth returns the block length in samples.
func (c *SpectralHoleComb) HoleWidth() int { return int(c.holeWidth.Load()) }

// SetHoleWidth sets the block length, 1 to 128.
func (c *SpectralHoleComb) SetHoleWidth(w int) error {
	if err := checkInt(c.name, "hole_width", w, HoleWidthMin, HoleWidthMax); err != nil {
		return err
	}
	c.holeWidth.Store(int32(w))
	return nil
}

// Depth returns the attenuation depth.
func (c *SpectralHoleComb) Depth() float64 { return c.depth.Load() }

// SetDepth sets the attenuation depth, 0 to 1.
func (c *SpectralHoleComb) SetDepth(v float64) error {
	if err := checkFloat(c.name, "depth", v, DepthMin, DepthMax); err != nil {
		return err
	}
	c.depth.Store(v)
	return nil
}

// Params implements Tunable.
func (c *SpectralHoleComb) Params() []Param {
	return []Param{
		intParam("hole_width", HoleWidthMin, HoleWidthMax, c.HoleWidth, c.SetHoleWidth),
		floatParam("depth", DepthMin, DepthMax, c.Depth, c.SetDepth),
	}
}

// Process implements Filter.
func (c *SpectralHoleComb) Process(f pcm.Frames) {
	if !c.Enabled() {
		return
	}
	mustBeStereo(f)

	width := c.HoleWidth()
	gain := 1 - c.Depth()

	for _, ch := range f.Channels() {
		for i := range ch {
			if (i/width)%2 == 0 {
				ch[i] = Clip(float64(ch[i]) * gain)
			}
		}
	}
}
