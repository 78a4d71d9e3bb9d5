// SPDX-License-Identifier: MIT
package pcm

import (
	"fmt"
	"slices"
)

// Frames is one stereo frame set: two channel buffers of equal length,
// index 0 of Channels() is left, 1 is right. The buffers are owned by
// whoever runs the processing step; filters must not retain them.
type Frames struct {
	Left  []int16
	Right []int16
}

// NewFrames allocates a zeroed frame set holding n frames.
func NewFrames(n int) Frames {
	return Frames{
		Left:  make([]int16, n),
		Right: make([]int16, n),
	}
}

// Len returns the frame count, taken from the left channel.
func (f Frames) Len() int {
	return len(f.Left)
}

// Validate reports ErrChannelMismatch when the channels differ in length.
func (f Frames) Validate() error {
	if len(f.Left) != len(f.Right) {
		return fmt.Errorf("%w: left=%d right=%d", ErrChannelMismatch, len(f.Left), len(f.Right))
	}
	return nil
}

// Channels returns both buffers indexed by channel number.
func (f Frames) Channels() [Channels][]int16 {
	return [Channels][]int16{f.Left, f.Right}
}

// Clone returns a deep copy.
func (f Frames) Clone() Frames {
	return Frames{
		Left:  slices.Clone(f.Left),
		Right: slices.Clone(f.Right),
	}
}

// Equal reports whether both channels hold identical samples.
func (f Frames) Equal(o Frames) bool {
	return slices.Equal(f.Left, o.Left) && slices.Equal(f.Right, o.Right)
}
