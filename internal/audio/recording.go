// SPDX-License-Identifier: MIT
package audio

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	applog "voiceshield/internal/log"
	"voiceshield/internal/pcm"
)

// ErrAlreadyRecording is returned by Start while a recording is active.
var ErrAlreadyRecording = errors.New("already recording")

// Recorder writes the processed output to a WAV file. It is attached to the
// pipeline as a tap; Start and Stop may be called from any goroutine.
type Recorder struct {
	isRecording atomic.Bool // Fast path for Observe when idle.

	mu   sync.Mutex // Protects sink and path.
	sink *WAVSink
	path string
}

// NewRecorder returns an idle recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Start creates path and begins recording into it.
func (r *Recorder) Start(path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sink != nil {
		return fmt.Errorf("%w to %s", ErrAlreadyRecording, r.path)
	}
	sink, err := CreateWAV(path)
	if err != nil {
		return fmt.Errorf("failed to start recording: %w", err)
	}
	r.sink, r.path = sink, path
	r.isRecording.Store(true)

	applog.Infof("Audio: recording to %s", path)
	return nil
}

// Stop finalises the current file. Stop on an idle recorder is a no-op.
func (r *Recorder) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stopLocked()
}

func (r *Recorder) stopLocked() error {
	if r.sink == nil {
		return nil
	}
	r.isRecording.Store(false)

	frames := r.sink.Frames()
	err := r.sink.Close()
	applog.Infof("Audio: recorded %d frames to %s", frames, r.path)
	r.sink, r.path = nil, ""
	return err
}

// Observe appends f to the recording. A write error ends the recording.
func (r *Recorder) Observe(f pcm.Frames) {
	if !r.isRecording.Load() {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sink == nil {
		return
	}
	if err := r.sink.WriteFrames(f); err != nil {
		applog.Errorf("Audio: recording to %s failed, stopping: %v", r.path, err)
		_ = r.stopLocked()
	}
}

// Recording reports the active file, if any.
func (r *Recorder) Recording() (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.path, r.sink != nil
}

// Close stops any active recording.
func (r *Recorder) Close() error {
	return r.Stop()
}
