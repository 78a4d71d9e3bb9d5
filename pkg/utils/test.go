// SPDX-License-Identifier: MIT
package utils

import (
	"math"
	"sync"

	"voiceshield/internal/pcm"
)

// MockTransport implements the Transport interface for testing.
type MockTransport struct {
	mu   sync.Mutex
	sent []any
	Err  error // Returned by Send when set.
}

// Send stores the data for later inspection instead of transmitting.
func (m *MockTransport) Send(data any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.sent = append(m.sent, data)
	return nil
}

// Close is a no-op.
func (m *MockTransport) Close() error { return nil }

// Sent returns a copy of everything passed to Send.
func (m *MockTransport) Sent() []any {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]any, len(m.sent))
	copy(out, m.sent)
	return out
}

// Last returns the most recent message.
func (m *MockTransport) Last() (any, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		return nil, false
	}
	return m.sent[len(m.sent)-1], true
}

// GenerateVoiceWave returns a 16-bit signal with a 140 Hz fundamental and
// two formant-like partials, peaking at roughly 90% of full scale.
func GenerateVoiceWave(size int, sampleRate float64) []int16 {
	buffer := make([]int16, size)
	for i := range buffer {
		tm := float64(i) / sampleRate
		signal := math.Sin(2*math.Pi*140*tm)*0.5 +
			math.Sin(2*math.Pi*700*tm)*0.3 +
			math.Sin(2*math.Pi*2400*tm)*0.2
		buffer[i] = int16(signal * math.MaxInt16 * 0.9)
	}
	return buffer
}

// GenerateSineWave returns a 16-bit sine at 90% of full scale.
func GenerateSineWave(size int, sampleRate, frequency float64) []int16 {
	buffer := make([]int16, size)
	for i := range buffer {
		t := float64(i) / sampleRate
		buffer[i] = int16(math.Sin(2*math.Pi*frequency*t) * math.MaxInt16 * 0.9)
	}
	return buffer
}

// StereoSine returns a frame set with the same sine on both channels.
func StereoSine(frames int, frequency float64) pcm.Frames {
	wave := GenerateSineWave(frames, pcm.SampleRate, frequency)
	f := pcm.NewFrames(frames)
	copy(f.Left, wave)
	copy(f.Right, wave)
	return f
}

// InterleavedBytes encodes f as little-endian PCM, panicking on mismatched
// channels. Intended for building capture fixtures.
func InterleavedBytes(f pcm.Frames) []byte {
	b, err := pcm.Encode(f)
	if err != nil {
		panic(err)
	}
	return b
}

// FindPeakBin returns the index of the largest magnitude in [startBin, endBin].
func FindPeakBin(magnitudes []float64, startBin, endBin int) int {
	if len(magnitudes) == 0 {
		return 0
	}

	if startBin < 0 {
		startBin = 0
	}

	if endBin >= len(magnitudes) {
		endBin = len(magnitudes) - 1
	}

	peakBin := startBin
	peakValue := magnitudes[startBin]

	for bin := startBin + 1; bin <= endBin; bin++ {
		if magnitudes[bin] > peakValue {
			peakValue = magnitudes[bin]
			peakBin = bin
		}
	}

	return peakBin
}
