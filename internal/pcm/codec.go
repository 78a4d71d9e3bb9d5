// SPDX-License-Identifier: MIT
/*
Package pcm converts between the interleaved 16-bit little-endian stereo
byte stream exchanged with audio devices and the per-channel sample
buffers the filter chain operates on.

Wire layout, one frame per 4 bytes:

	+--------+--------+--------+--------+
	| L low  | L high | R low  | R high |
	+--------+--------+--------+--------+

Each sample is reconstructed as int16(b0 | b1<<8), so the sign bit is
bit 15 of the reassembled word.
*/
package pcm

import (
	"errors"
	"fmt"
)

// Fixed device format. There is no format negotiation.
const (
	SampleRate     = 48000
	BitDepth       = 16
	Channels       = 2
	BytesPerSample = BitDepth / 8
	FrameSize      = Channels * BytesPerSample // Bytes per stereo frame.

	DefaultBlockSize = 4096 // Bytes per processing cycle (1024 frames).
)

var (
	// ErrPartialFrame is returned when a byte count is not a multiple of FrameSize.
	ErrPartialFrame = errors.New("pcm: byte count is not a multiple of the frame size")

	// ErrChannelMismatch is returned when the two channel buffers differ in length.
	ErrChannelMismatch = errors.New("pcm: channel buffers differ in length")

	// ErrShortBuffer is returned when a destination cannot hold the encoded frames.
	ErrShortBuffer = errors.New("pcm: destination buffer too short")
)

// WholeFrames returns the number of bytes of n that form complete frames.
func WholeFrames(n int) int {
	return n - n%FrameSize
}

// Decode splits an interleaved byte buffer into a new pair of channel buffers.
// len(data) must be a multiple of FrameSize.
func Decode(data []byte) (Frames, error) {
	if len(data)%FrameSize != 0 {
		return Frames{}, fmt.Errorf("%w: got %d bytes", ErrPartialFrame, len(data))
	}
	return decode(NewFrames(len(data)/FrameSize), data), nil
}

// DecodeInto decodes data into the storage of dst, growing it when needed,
// and returns dst resliced to the decoded frame count.
func DecodeInto(dst Frames, data []byte) (Frames, error) {
	if len(data)%FrameSize != 0 {
		return dst, fmt.Errorf("%w: got %d bytes", ErrPartialFrame, len(data))
	}
	n := len(data) / FrameSize
	if cap(dst.Left) < n || cap(dst.Right) < n {
		dst = NewFrames(n)
	}
	dst.Left = dst.Left[:n]
	dst.Right = dst.Right[:n]
	return decode(dst, data), nil
}

func decode(dst Frames, data []byte) Frames {
	for i, s := 0, 0; i < len(data); i, s = i+FrameSize, s+1 {
		dst.Left[s] = int16(uint16(data[i]) | uint16(data[i+1])<<8)
		dst.Right[s] = int16(uint16(data[i+2]) | uint16(data[i+3])<<8)
	}
	return dst
}

// Encode interleaves the two channels into a new byte buffer of
// FrameSize*f.Len() bytes. No clipping is performed.
func Encode(f Frames) ([]byte, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	out := make([]byte, f.Len()*FrameSize)
	encode(out, f)
	return out, nil
}

// EncodeInto interleaves f into dst and returns the number of bytes written.
func EncodeInto(dst []byte, f Frames) (int, error) {
	if err := f.Validate(); err != nil {
		return 0, err
	}
	n := f.Len() * FrameSize
	if len(dst) < n {
		return 0, fmt.Errorf("%w: need %d bytes, have %d", ErrShortBuffer, n, len(dst))
	}
	encode(dst, f)
	return n, nil
}

func encode(dst []byte, f Frames) {
	for s, i := 0, 0; s < len(f.Left); s, i = s+1, i+FrameSize {
		l, r := uint16(f.Left[s]), uint16(f.Right[s])
		dst[i] = byte(l)
		dst[i+1] = byte(l >> 8)
		dst[i+2] = byte(r)
		dst[i+3] = byte(r >> 8)
	}
}
