// SPDX-License-Identifier: MIT
package config

import (
	"fmt"
	"time"

	"voiceshield/internal/analysis"
	applog "voiceshield/internal/log"
	"voiceshield/internal/pcm"
	"voiceshield/internal/transport"
)

// FramesPerBuffer returns the number of stereo frames in one processing block.
func (c *Config) FramesPerBuffer() int {
	return c.Audio.BlockSize / pcm.FrameSize
}

// Level returns the effective log level. Debug forces LevelDebug.
func (c *Config) Level() applog.LogLevel {
	if c.Debug {
		return applog.LevelDebug
	}
	level, _ := applog.ParseLevel(c.LogLevel)
	return level
}

// RecordingPath returns the configured recording file, or a name derived
// from now in the form recording-DD-MM-YYYY-HHMMSS.wav.
func (c *Config) RecordingPath(now time.Time) string {
	if c.Recording.Path != "" {
		return c.Recording.Path
	}
	return "recording-" + now.UTC().Format("02-01-2006-150405") + ".wav"
}

// NewMonitor builds the output monitor described by m, publishing to t.
// The monitor is not started.
func (m MonitorConfig) NewMonitor(t transport.Transport) (*analysis.Monitor, error) {
	window, err := analysis.ParseWindowFunc(m.Window)
	if err != nil {
		return nil, fmt.Errorf("%w: monitor.window: %w", ErrInvalid, err)
	}
	return analysis.NewMonitor(m.FFTSize, window, m.Interval, t)
}
