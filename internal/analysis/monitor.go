// SPDX-License-Identifier: MIT
package analysis

import (
	"fmt"
	"sync"
	"time"

	applog "voiceshield/internal/log"
	"voiceshield/internal/pcm"
	"voiceshield/internal/transport"
)

// TypeMonitor tags monitor reports on the wire.
const TypeMonitor = "monitor"

// Report summarises the output since the previous report.
type Report struct {
	Type      string             `json:"type"`
	Seq       uint64             `json:"seq"`
	Timestamp int64              `json:"timestamp"` // Unix nanoseconds.
	Frames    uint64             `json:"frames"`    // Frames observed in this interval.
	Levels                       // Peak and RMS per channel.
	Bands     map[string]float64 `json:"bands,omitempty"`
}

// Monitor observes the processed frames and periodically publishes a
// Report through a Transport. Observe is called by the pipeline; the
// publisher goroutine is managed by Start and Stop.
type Monitor struct {
	fft       *FFTProcessor
	bands     *BandEnergyProcessor
	transport transport.Transport
	interval  time.Duration

	mu        sync.Mutex // Protects meter, latest and seq.
	meter     levelMeter
	latest    Report
	hasLatest bool
	seq       uint64

	runMu    sync.Mutex // Protects ticker and doneChan during Start/Stop.
	ticker   *time.Ticker
	doneChan chan struct{}
	wg       sync.WaitGroup
}

var _ FrameObserver = (*Monitor)(nil)

// NewMonitor creates a monitor. t may be nil, in which case reports are only
// available through Latest.
func NewMonitor(fftSize int, windowType WindowFunc, interval time.Duration, t transport.Transport) (*Monitor, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("monitor interval must be positive, got %s", interval)
	}
	fft, err := NewFFTProcessor(fftSize, pcm.SampleRate, windowType)
	if err != nil {
		return nil, err
	}
	bands, err := NewBandEnergyProcessor(fft, VoiceBands)
	if err != nil {
		return nil, err
	}

	applog.Infof("Monitor: Initializing (Interval: %s, FFT: %d, Window: %v)", interval, fftSize, windowType)
	return &Monitor{
		fft:       fft,
		bands:     bands,
		transport: t,
		interval:  interval,
	}, nil
}

// Observe implements pipeline.Tap.
func (m *Monitor) Observe(f pcm.Frames) {
	m.fft.Observe(f)

	m.mu.Lock()
	m.meter.add(f)
	m.mu.Unlock()
}

// Flush builds a report from everything observed since the previous one and
// resets the level meter.
func (m *Monitor) Flush() Report {
	m.mu.Lock()
	levels, frames := m.meter.take()
	m.seq++
	seq := m.seq
	m.mu.Unlock()

	r := Report{
		Type:      TypeMonitor,
		Seq:       seq,
		Timestamp: time.Now().UnixNano(),
		Frames:    frames,
		Levels:    levels,
	}
	if bands, err := m.bands.Compute(); err == nil {
		r.Bands = bands
	} else {
		applog.Errorf("Monitor: Error computing band energy: %v", err)
	}

	m.mu.Lock()
	m.latest, m.hasLatest = r, true
	m.mu.Unlock()
	return r
}

// Latest returns the most recent report.
func (m *Monitor) Latest() (Report, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.latest, m.hasLatest
}

// Start launches the publisher goroutine. Calling Start on a running
// monitor is a no-op.
func (m *Monitor) Start() {
	m.runMu.Lock()
	if m.ticker != nil {
		m.runMu.Unlock()
		applog.Warnf("Monitor: Start called but already running.")
		return
	}
	m.ticker = time.NewTicker(m.interval)
	m.doneChan = make(chan struct{})

	// Local copies keep the goroutine clear of Start/Stop races.
	ticker := m.ticker
	doneChan := m.doneChan
	m.runMu.Unlock()

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		for {
			select {
			case <-ticker.C:
				m.publish()
			case <-doneChan:
				return
			}
		}
	}()
}

func (m *Monitor) publish() {
	r := m.Flush()
	if m.transport == nil {
		return
	}
	if err := m.transport.Send(r); err != nil {
		applog.Debugf("Monitor: Error sending report %d: %v", r.Seq, err)
	}
}

// Stop signals the publisher goroutine to terminate and waits for it.
// Stop on a stopped monitor is a no-op.
func (m *Monitor) Stop() error {
	m.runMu.Lock()
	if m.ticker == nil {
		m.runMu.Unlock()
		return nil
	}
	close(m.doneChan)
	m.ticker.Stop()
	m.ticker = nil
	m.runMu.Unlock()

	m.wg.Wait()
	applog.Debugf("Monitor: Publisher stopped.")
	return nil
}

// Close stops the publisher.
func (m *Monitor) Close() error {
	return m.Stop()
}
