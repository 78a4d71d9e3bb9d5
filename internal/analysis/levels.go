// SPDX-License-Identifier: MIT
package analysis

import (
	"math"

	"voiceshield/internal/pcm"
)

const fullScale = 32768.0

// Levels are normalised output levels per channel, 0 is silence and 1 is
// full scale.
type Levels struct {
	Peak [pcm.Channels]float64 `json:"peak"`
	RMS  [pcm.Channels]float64 `json:"rms"`
}

// levelMeter accumulates peak and mean square over several cycles.
type levelMeter struct {
	peak   [pcm.Channels]float64
	sumSq  [pcm.Channels]float64
	frames uint64
}

func (m *levelMeter) add(f pcm.Frames) {
	for c, ch := range f.Channels() {
		peak, sum := m.peak[c], m.sumSq[c]
		for _, s := range ch {
			v := float64(s)
			sum += v * v
			if a := math.Abs(v); a > peak {
				peak = a
			}
		}
		m.peak[c], m.sumSq[c] = peak, sum
	}
	m.frames += uint64(f.Len())
}

// take returns the accumulated levels and resets the meter.
func (m *levelMeter) take() (Levels, uint64) {
	var l Levels
	frames := m.frames
	for c := range pcm.Channels {
		l.Peak[c] = math.Min(1, m.peak[c]/fullScale)
		if frames > 0 {
			l.RMS[c] = math.Min(1, math.Sqrt(m.sumSq[c]/float64(frames))/fullScale)
		}
	}
	*m = levelMeter{}
	return l, frames
}

// MeasureLevels returns the levels of a single frame set.
func MeasureLevels(f pcm.Frames) Levels {
	var m levelMeter
	m.add(f)
	l, _ := m.take()
	return l
}
