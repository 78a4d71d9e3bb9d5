// SPDX-License-Identifier: MIT
package utils

import (
	"errors"
	"math"
	"os"
	"testing"

	"voiceshield/internal/pcm"
)

const (
	testSize       = 1024
	testSampleRate = 48000
	testFrequency  = 440.0 // A4 note
)

var testMagnitudes []float64

func TestMain(m *testing.M) {
	testMagnitudes = make([]float64, testSize)

	// A "hill" with its peak at testSize/4.
	for i := range testMagnitudes {
		testMagnitudes[i] = math.Exp(-0.01 * math.Pow(float64(i-testSize/4), 2))
	}

	os.Exit(m.Run())
}

func TestMockTransport(t *testing.T) {
	mt := &MockTransport{}

	if _, ok := mt.Last(); ok {
		t.Error("Last() on empty transport reported a message")
	}

	for _, v := range []any{"a", 2, map[string]int{"x": 1}} {
		if err := mt.Send(v); err != nil {
			t.Fatalf("Send() error = %v", err)
		}
	}

	if got := len(mt.Sent()); got != 3 {
		t.Errorf("Sent() length = %d, want 3", got)
	}
	last, ok := mt.Last()
	if !ok || last.(map[string]int)["x"] != 1 {
		t.Errorf("Last() = %v, %v", last, ok)
	}

	sent := mt.Sent()
	sent[0] = "changed"
	if mt.Sent()[0] != "a" {
		t.Error("Sent() returned internal storage instead of a copy")
	}

	mt.Err = errors.New("offline")
	if err := mt.Send("b"); err == nil {
		t.Error("Send() with Err set returned nil")
	}
	if got := len(mt.Sent()); got != 3 {
		t.Errorf("failed Send() was stored, length = %d", got)
	}
}

func TestGenerateVoiceWave(t *testing.T) {
	tests := []struct {
		name       string
		size       int
		sampleRate float64
	}{
		{"Standard", 1024, 48000},
		{"Small", 16, 8000},
		{"Large", 8192, 96000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := GenerateVoiceWave(tt.size, tt.sampleRate)

			if len(result) != tt.size {
				t.Errorf("GenerateVoiceWave() buffer size = %d, want %d", len(result), tt.size)
			}

			hasNonZero := false
			for _, v := range result {
				if v != 0 {
					hasNonZero = true
					break
				}
			}
			if !hasNonZero {
				t.Errorf("GenerateVoiceWave() produced all zeros")
			}
		})
	}
}

func TestGenerateSineWave(t *testing.T) {
	tests := []struct {
		name       string
		size       int
		sampleRate float64
		frequency  float64
	}{
		{"A4 Note", 1024, 48000, 440.0},
		{"Middle C", 1024, 48000, 261.63},
		{"High Sample Rate", 1024, 192000, 440.0},
		{"Low Sample Rate", 1024, 8000, 440.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := GenerateSineWave(tt.size, tt.sampleRate, tt.frequency)

			if len(result) != tt.size {
				t.Errorf("GenerateSineWave() buffer size = %d, want %d", len(result), tt.size)
			}

			// Roughly two zero crossings per cycle.
			samplesPerCycle := tt.sampleRate / tt.frequency
			if samplesPerCycle > 2 && float64(tt.size) > samplesPerCycle {
				crossCount := 0
				for i := 1; i < tt.size; i++ {
					if (result[i-1] < 0 && result[i] >= 0) ||
						(result[i-1] >= 0 && result[i] < 0) {
						crossCount++
					}
				}

				expectedCrossings := float64(tt.size) / (samplesPerCycle / 2)
				tolerance := 0.2 * expectedCrossings

				if math.Abs(float64(crossCount)-expectedCrossings) > tolerance {
					t.Errorf("GenerateSineWave() zero crossings = %d, expected approximately %.1f±%.1f",
						crossCount, expectedCrossings, tolerance)
				}
			}
		})
	}
}

func TestStereoSineRoundTrip(t *testing.T) {
	f := StereoSine(256, testFrequency)
	if f.Len() != 256 || !f.Equal(pcm.Frames{Left: f.Right, Right: f.Left}) {
		t.Fatalf("StereoSine() channels differ")
	}

	data := InterleavedBytes(f)
	if len(data) != 256*pcm.FrameSize {
		t.Fatalf("InterleavedBytes() length = %d, want %d", len(data), 256*pcm.FrameSize)
	}
	back, err := pcm.Decode(data)
	if err != nil || !back.Equal(f) {
		t.Errorf("decode of InterleavedBytes() did not reproduce the frames: %v", err)
	}
}

func TestFindPeakBin(t *testing.T) {
	tests := []struct {
		name     string
		mags     []float64
		start    int
		end      int
		expected int
	}{
		{"Full Range", testMagnitudes, 0, testSize - 1, testSize / 4},
		{"Partial Range Start", testMagnitudes, testSize / 8, testSize - 1, testSize / 4},
		{"Partial Range End", testMagnitudes, 0, testSize / 3, testSize / 4},
		{"Negative Start", testMagnitudes, -10, testSize - 1, testSize / 4},
		{"Out of Range End", testMagnitudes, 0, testSize * 2, testSize / 4},
		{"Empty Slice", []float64{}, 0, 10, 0},
		{"Single Value", []float64{1.0}, 0, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := FindPeakBin(tt.mags, tt.start, tt.end)
			if result != tt.expected {
				t.Errorf("FindPeakBin() = %d, want %d", result, tt.expected)
			}
		})
	}

	allocs := testing.AllocsPerRun(100, func() {
		FindPeakBin(testMagnitudes, 0, len(testMagnitudes)-1)
	})
	if allocs > 0 {
		t.Errorf("FindPeakBin allocated memory: got %.1f allocs, want 0", allocs)
	}
}

func BenchmarkGenerateVoiceWave(b *testing.B) {
	b.ReportAllocs()
	for b.Loop() {
		GenerateVoiceWave(1024, testSampleRate)
	}
}
