// SPDX-License-Identifier: MIT
/*
Package analysis measures the processed output for the monitor: per channel
peak and RMS levels and coarse spectral band energies.

Observe runs on the processing goroutine once per cycle and only copies
samples into pre-allocated buffers. Reports are assembled and published on
the monitor's own goroutine.
*/
package analysis

import "voiceshield/internal/pcm"

// FrameObserver is implemented by analysers fed from the pipeline. Observe
// must not retain f.
type FrameObserver interface {
	Observe(f pcm.Frames)
}

// FFTResultProvider defines an interface for components that can provide FFT magnitude results.
// This decouples consumers (like BandEnergyProcessor) from the specific FFT implementation.
type FFTResultProvider interface {
	GetMagnitudesInto(dest []float64) error  // GetMagnitudesInto copies the latest magnitude spectrum into dest.
	GetFrequencyForBin(binIndex int) float64 // GetFrequencyForBin returns the center frequency (Hz) for a given FFT bin index.
	GetFFTSize() int                         // GetFFTSize returns the size (number of points) of the FFT.
	GetSampleRate() float64                  // GetSampleRate returns the sample rate used for the FFT analysis.
}
