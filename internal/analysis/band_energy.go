// SPDX-License-Identifier: MIT
package analysis

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/floats"
)

// FrequencyBand defines the name and frequency range for an energy band.
type FrequencyBand struct {
	Name   string
	LowHz  float64
	HighHz float64
}

// VoiceBands splits the spectrum around the ranges that carry speech:
// fundamentals below 250 Hz, formants F1-F3 up to 4 kHz, fricatives above.
var VoiceBands = []FrequencyBand{
	{Name: "sub", LowHz: 20, HighHz: 60},
	{Name: "bass", LowHz: 60, HighHz: 250},
	{Name: "lowMid", LowHz: 250, HighHz: 500},
	{Name: "mid", LowHz: 500, HighHz: 2000},
	{Name: "highMid", LowHz: 2000, HighHz: 4000},
	{Name: "treble", LowHz: 4000, HighHz: 24000},
}

// BandEnergyProcessor calculates energy across frequency bands from FFT data.
// It is not safe for concurrent use; the monitor calls it from one goroutine.
type BandEnergyProcessor struct {
	bands       []FrequencyBand
	fftProvider FFTResultProvider
	magnitudes  []float64 // Reused copy of the provider's spectrum.
	bandOf      []int     // Band index per FFT bin, -1 when outside every band.
	energy      []float64
	bins        []float64
}

// NewBandEnergyProcessor creates a new processor for calculating band energy.
func NewBandEnergyProcessor(fftProvider FFTResultProvider, bands []FrequencyBand) (*BandEnergyProcessor, error) {
	if fftProvider == nil {
		return nil, errors.New("BandEnergyProcessor requires a non-nil FFTResultProvider")
	}
	if len(bands) == 0 {
		bands = VoiceBands
	}

	numBins := fftProvider.GetFFTSize()/2 + 1
	bandOf := make([]int, numBins)
	for i := range bandOf {
		bandOf[i] = -1
		freq := fftProvider.GetFrequencyForBin(i)
		for b, band := range bands {
			if freq >= band.LowHz && freq < band.HighHz {
				bandOf[i] = b
				break
			}
		}
	}

	return &BandEnergyProcessor{
		bands:       bands,
		fftProvider: fftProvider,
		magnitudes:  make([]float64, numBins),
		bandOf:      bandOf,
		energy:      make([]float64, len(bands)),
		bins:        make([]float64, len(bands)),
	}, nil
}

// Compute returns the mean energy per band, scaled and clamped to [0, 1].
func (p *BandEnergyProcessor) Compute() (map[string]float64, error) {
	if err := p.fftProvider.GetMagnitudesInto(p.magnitudes); err != nil {
		return nil, err
	}

	floats.Scale(0, p.energy)
	floats.Scale(0, p.bins)
	for i, m := range p.magnitudes {
		if b := p.bandOf[i]; b >= 0 {
			p.energy[b] += m * m // Sum energy (magnitude squared)
			p.bins[b]++
		}
	}

	out := make(map[string]float64, len(p.bands))
	for b, band := range p.bands {
		avgBandEnergy := 0.0
		if p.bins[b] > 0 {
			avgBandEnergy = p.energy[b] / p.bins[b]
		}
		out[band.Name] = math.Min(1.0, math.Sqrt(avgBandEnergy)*bandScale)
	}
	return out, nil
}

// bandScale maps the RMS magnitude of a band to roughly [0, 1] for a
// windowed full scale voice signal.
const bandScale = 50.0
