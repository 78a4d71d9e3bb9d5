// SPDX-License-Identifier: MIT
package config

import (
	"time"

	"voiceshield/internal/filter"
	"voiceshield/internal/pcm"
)

// Defaults applied before the config file and environment are read.
const (
	DefaultLogLevel = "info"

	DefaultDeviceID    = -1 // -1 selects the host default device.
	DefaultOutputMatch = "voicemeeter aux input"
	DefaultBlockSize   = pcm.DefaultBlockSize
	DefaultLowLatency  = false

	DefaultControlEnabled = true
	DefaultControlAddress = "127.0.0.1:8765"

	DefaultMonitorEnabled  = false
	DefaultMonitorFFTSize  = 1024
	DefaultMonitorWindow   = "Hann"
	DefaultMonitorInterval = 100 * time.Millisecond

	DefaultRecordingEnabled = false
	DefaultRecordingPath    = ""

	MaxBlockSize = 65536 // Bytes per cycle, 16384 frames.
)

// Default returns the built-in configuration: every filter enabled with the
// startup parameters of the filter package, audio routed from the default
// input to the first device matching DefaultOutputMatch.
func Default() Config {
	return Config{
		Debug:    false,
		LogLevel: DefaultLogLevel,
		Audio: AudioConfig{
			InputDevice:  DefaultDeviceID,
			OutputDevice: DefaultDeviceID,
			OutputMatch:  DefaultOutputMatch,
			BlockSize:    DefaultBlockSize,
			LowLatency:   DefaultLowLatency,
		},
		Filters: FiltersConfig{
			Obfuscator: ObfuscatorConfig{Enabled: true, Step: filter.DefaultStep, XorValue: filter.DefaultXorValue},
			Noise:      NoiseConfig{Enabled: true, Amplitude: filter.DefaultAmplitude},
			Formant:    FormantConfig{Enabled: true, Amount: filter.DefaultFormantAmount},
			Warp:       WarpConfig{Enabled: true, WarpAmount: filter.DefaultWarpAmount},
			Phase:      PhaseConfig{Enabled: true, Intensity: filter.DefaultIntensity},
			Comb:       CombConfig{Enabled: true, HoleWidth: filter.DefaultHoleWidth, Depth: filter.DefaultDepth},
		},
		Control: ControlConfig{
			Enabled: DefaultControlEnabled,
			Address: DefaultControlAddress,
		},
		Monitor: MonitorConfig{
			Enabled:  DefaultMonitorEnabled,
			FFTSize:  DefaultMonitorFFTSize,
			Window:   DefaultMonitorWindow,
			Interval: DefaultMonitorInterval,
		},
		Recording: RecordingConfig{
			Enabled: DefaultRecordingEnabled,
			Path:    DefaultRecordingPath,
		},
	}
}
