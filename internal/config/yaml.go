// SPDX-License-Identifier: MIT
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"voiceshield/internal/analysis"
	"voiceshield/internal/filter"
	applog "voiceshield/internal/log"
	"voiceshield/internal/pcm"
	"voiceshield/pkg/bitint"
)

// ErrInvalid wraps every validation failure reported by Validate.
var ErrInvalid = errors.New("invalid configuration")

// Config represents the main application configuration structure, loaded from YAML.
type Config struct {
	Debug     bool            `yaml:"debug"`     // Enable debug logging.
	LogLevel  string          `yaml:"log_level"` // Logging level ("debug", "info", "warn", "error").
	Audio     AudioConfig     `yaml:"audio"`     // Capture and render devices.
	Filters   FiltersConfig   `yaml:"filters"`   // Startup state of every filter.
	Control   ControlConfig   `yaml:"control"`   // Remote control surface.
	Monitor   MonitorConfig   `yaml:"monitor"`   // Output level and spectrum monitor.
	Recording RecordingConfig `yaml:"recording"` // WAV recording of the processed stream.
}

// AudioConfig holds settings related to audio input/output.
type AudioConfig struct {
	InputDevice  int    `yaml:"input_device"`  // PortAudio device index for capture (-1 for default).
	OutputDevice int    `yaml:"output_device"` // PortAudio device index for render (-1 to use OutputMatch).
	OutputMatch  string `yaml:"output_match"`  // Case-insensitive substring of the render device name.
	Speakers     bool   `yaml:"speakers"`      // Render to the system default output, ignoring OutputMatch.
	BlockSize    int    `yaml:"block_size"`    // Bytes read per processing cycle, multiple of 4.
	LowLatency   bool   `yaml:"low_latency"`   // Request low latency settings from PortAudio.
}

// FiltersConfig holds the startup state of the six filters. Changes made at
// runtime through the control surface are never written back.
type FiltersConfig struct {
	Obfuscator ObfuscatorConfig `yaml:"obfuscator"`
	Noise      NoiseConfig      `yaml:"noise"`
	Formant    FormantConfig    `yaml:"formant"`
	Warp       WarpConfig       `yaml:"warp"`
	Phase      PhaseConfig      `yaml:"phase"`
	Comb       CombConfig       `yaml:"comb"`
}

type ObfuscatorConfig struct {
	Enabled  bool `yaml:"enabled"`
	Step     int  `yaml:"step"`
	XorValue int  `yaml:"xor_value"`
}

type NoiseConfig struct {
	Enabled   bool `yaml:"enabled"`
	Amplitude int  `yaml:"amplitude"`
}

type FormantConfig struct {
	Enabled bool    `yaml:"enabled"`
	Amount  float64 `yaml:"amount"`
}

type WarpConfig struct {
	Enabled    bool    `yaml:"enabled"`
	WarpAmount float64 `yaml:"warp_amount"`
}

type PhaseConfig struct {
	Enabled   bool    `yaml:"enabled"`
	Intensity float64 `yaml:"intensity"`
}

type CombConfig struct {
	Enabled   bool    `yaml:"enabled"`
	HoleWidth int     `yaml:"hole_width"`
	Depth     float64 `yaml:"depth"`
}

// ControlConfig holds settings for the WebSocket control surface.
type ControlConfig struct {
	Enabled bool   `yaml:"enabled"` // Serve the control surface.
	Address string `yaml:"address"` // Listen address, e.g. "127.0.0.1:8765".
}

// MonitorConfig holds settings for the output monitor.
type MonitorConfig struct {
	Enabled   bool          `yaml:"enabled"`    // Compute and publish output levels.
	FFTSize   int           `yaml:"fft_size"`   // FFT points, power of two.
	Window    string        `yaml:"window"`     // FFT window function name (e.g. "Hann").
	Interval  time.Duration `yaml:"interval"`   // Time between published reports.
	UDPTarget string        `yaml:"udp_target"` // Optional "host:port" receiving reports as JSON datagrams.
}

// RecordingConfig holds settings for recording the processed stream.
type RecordingConfig struct {
	Enabled bool   `yaml:"enabled"` // Record from startup.
	Path    string `yaml:"path"`    // Output file, generated from the start time when empty.
}

// LoadConfig loads configuration from a YAML file specified by path. If path is empty,
// it searches "config.yaml" then "voiceshield.yaml". If no file is found, it uses built-in
// defaults. After loading defaults or from file, it applies environment variable
// overrides and validates the final configuration.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		candidates := []string{
			"config.yaml",
			"voiceshield.yaml",
		}
		for _, candidate := range candidates {
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				break
			}
		}
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	// Apply environment variable overrides AFTER loading from file.
	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks every section and reports the first problem wrapped in
// ErrInvalid. Filter parameters are checked against the same bounds the
// control surface enforces.
func (c *Config) Validate() error {
	if _, ok := applog.ParseLevel(c.LogLevel); !ok {
		return fmt.Errorf("%w: log_level %q is not one of debug, info, warn, error, fatal", ErrInvalid, c.LogLevel)
	}

	a := c.Audio
	if a.InputDevice < DefaultDeviceID {
		return fmt.Errorf("%w: audio.input_device %d", ErrInvalid, a.InputDevice)
	}
	if a.OutputDevice < DefaultDeviceID {
		return fmt.Errorf("%w: audio.output_device %d", ErrInvalid, a.OutputDevice)
	}
	if a.BlockSize <= 0 || a.BlockSize > MaxBlockSize || a.BlockSize%pcm.FrameSize != 0 {
		return fmt.Errorf("%w: audio.block_size %d must be a multiple of %d in (0, %d]",
			ErrInvalid, a.BlockSize, pcm.FrameSize, MaxBlockSize)
	}

	if _, err := c.Filters.NewChain(); err != nil {
		return fmt.Errorf("%w: filters: %w", ErrInvalid, err)
	}

	if c.Control.Enabled && !strings.Contains(c.Control.Address, ":") {
		return fmt.Errorf("%w: control.address %q is missing a port", ErrInvalid, c.Control.Address)
	}

	if c.Monitor.Enabled {
		if !bitint.IsPowerOfTwo(c.Monitor.FFTSize) {
			return fmt.Errorf("%w: monitor.fft_size %d must be a power of two (try %d)",
				ErrInvalid, c.Monitor.FFTSize, bitint.NextPowerOfTwo(c.Monitor.FFTSize))
		}
		if _, err := analysis.ParseWindowFunc(c.Monitor.Window); err != nil {
			return fmt.Errorf("%w: monitor.window: %w", ErrInvalid, err)
		}
		if c.Monitor.Interval <= 0 {
			return fmt.Errorf("%w: monitor.interval must be positive", ErrInvalid)
		}
		if c.Monitor.UDPTarget != "" && !strings.Contains(c.Monitor.UDPTarget, ":") {
			return fmt.Errorf("%w: monitor.udp_target %q is missing a port", ErrInvalid, c.Monitor.UDPTarget)
		}
	}

	return nil
}

// NewChain builds the default filter order and applies the configured
// enabled flags and parameters to it.
func (f FiltersConfig) NewChain() (*filter.Chain, error) {
	xor := filter.NewObfuscator()
	noise := filter.NewNoiseInjector()
	formant := filter.NewFormantScrambler()
	warp := filter.NewWarpPredictor()
	phase := filter.NewPhaseChaoticizer()
	comb := filter.NewSpectralHoleComb()

	err := errors.Join(
		xor.SetStep(f.Obfuscator.Step),
		xor.SetXorValue(f.Obfuscator.XorValue),
		noise.SetAmplitude(f.Noise.Amplitude),
		formant.SetAmount(f.Formant.Amount),
		warp.SetWarpAmount(f.Warp.WarpAmount),
		phase.SetIntensity(f.Phase.Intensity),
		comb.SetHoleWidth(f.Comb.HoleWidth),
		comb.SetDepth(f.Comb.Depth),
	)
	if err != nil {
		return nil, err
	}

	xor.SetEnabled(f.Obfuscator.Enabled)
	noise.SetEnabled(f.Noise.Enabled)
	formant.SetEnabled(f.Formant.Enabled)
	warp.SetEnabled(f.Warp.Enabled)
	phase.SetEnabled(f.Phase.Enabled)
	comb.SetEnabled(f.Comb.Enabled)

	return filter.NewChain(xor, noise, formant, warp, phase, comb), nil
}

// applyEnvOverrides applies ENV_* variables on top of the file values.
// Unparseable values are logged and ignored.
func (c *Config) applyEnvOverrides() {
	// ENV_DEBUG
	if val, ok := os.LookupEnv("ENV_DEBUG"); ok {
		if bVal, err := strconv.ParseBool(val); err == nil {
			c.Debug = bVal
			applog.Infof("configuration: Overriding debug from env: %v", bVal)
		} else {
			applog.Warnf("configuration: Ignoring ENV_DEBUG=%q: %v", val, err)
		}
	}
	// ENV_LOG_LEVEL
	if val, ok := os.LookupEnv("ENV_LOG_LEVEL"); ok {
		c.LogLevel = val
		applog.Infof("configuration: Overriding log_level from env: %s", val)
	}

	// ENV_CONTROL_ADDRESS
	if val, ok := os.LookupEnv("ENV_CONTROL_ADDRESS"); ok {
		c.Control.Address = val
		applog.Infof("configuration: Overriding control.address from env: %s", val)
	}

	// ENV_OUTPUT_MATCH
	if val, ok := os.LookupEnv("ENV_OUTPUT_MATCH"); ok {
		c.Audio.OutputMatch = val
		applog.Infof("configuration: Overriding audio.output_match from env: %s", val)
	}
	// ENV_BLOCK_SIZE
	if val, ok := os.LookupEnv("ENV_BLOCK_SIZE"); ok {
		if n, err := strconv.Atoi(val); err == nil {
			c.Audio.BlockSize = n
			applog.Infof("configuration: Overriding audio.block_size from env: %d", n)
		} else {
			applog.Warnf("configuration: Ignoring ENV_BLOCK_SIZE=%q: %v", val, err)
		}
	}
}
