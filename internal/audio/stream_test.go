// SPDX-License-Identifier: MIT
package audio

import (
	"bytes"
	"errors"
	"testing"

	"github.com/gordonklaus/portaudio"

	"voiceshield/internal/pcm"
	"voiceshield/pkg/utils"
)

// fakeStream stands in for a PortAudio blocking stream. Read fills the
// shared buffer with a running counter; Write records what the device saw.
type fakeStream struct {
	buf      []int16
	params   portaudio.StreamParameters
	next     int16
	readErr  error
	writeErr error
	startErr error
	written  [][]int16
	started  bool
	stopped  bool
	closed   bool
}

func (s *fakeStream) Start() error { s.started = true; return s.startErr }
func (s *fakeStream) Stop() error  { s.stopped = true; return nil }
func (s *fakeStream) Close() error { s.closed = true; return nil }

func (s *fakeStream) Read() error {
	for i := range s.buf {
		s.buf[i] = s.next
		s.next++
	}
	return s.readErr
}

func (s *fakeStream) Write() error {
	s.written = append(s.written, append([]int16(nil), s.buf...))
	return s.writeErr
}

func useFakeStream(t *testing.T) *fakeStream {
	t.Helper()
	fake := &fakeStream{}
	orig := openStreamFunc
	openStreamFunc = func(params portaudio.StreamParameters, buf []int16) (paStream, error) {
		fake.params, fake.buf = params, buf
		return fake, nil
	}
	t.Cleanup(func() { openStreamFunc = orig })
	return fake
}

func testDeviceInfo() *portaudio.DeviceInfo {
	return &portaudio.DeviceInfo{Name: "Test Device", MaxInputChannels: 2, MaxOutputChannels: 2, DefaultSampleRate: 48000}
}

func TestOpenCaptureParameters(t *testing.T) {
	fake := useFakeStream(t)

	c, err := OpenCapture(StreamConfig{Device: testDeviceInfo(), FramesPerBuffer: 8, LowLatency: true})
	if err != nil {
		t.Fatalf("OpenCapture error: %v", err)
	}
	if !fake.started {
		t.Error("stream was not started")
	}
	if fake.params.Input.Channels != pcm.Channels || fake.params.Output.Channels != 0 {
		t.Errorf("channels = in %d / out %d", fake.params.Input.Channels, fake.params.Output.Channels)
	}
	if fake.params.SampleRate != pcm.SampleRate || fake.params.FramesPerBuffer != 8 {
		t.Errorf("rate %v, frames %d", fake.params.SampleRate, fake.params.FramesPerBuffer)
	}
	if len(fake.buf) != 8*pcm.Channels {
		t.Errorf("buffer holds %d samples, want %d", len(fake.buf), 8*pcm.Channels)
	}

	if err := c.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}
	if !fake.stopped || !fake.closed {
		t.Error("Close did not stop and close the stream")
	}
}

func TestCaptureReadSplitsDeviceBuffers(t *testing.T) {
	useFakeStream(t)
	c, err := OpenCapture(StreamConfig{Device: testDeviceInfo(), FramesPerBuffer: 4})
	if err != nil {
		t.Fatalf("OpenCapture error: %v", err)
	}

	// Two device buffers of eight samples each, read five bytes at a time.
	var out []byte
	p := make([]byte, 5)
	for len(out) < 2*8*pcm.BytesPerSample {
		n, err := c.Read(p)
		if err != nil {
			t.Fatalf("Read error: %v", err)
		}
		out = append(out, p[:n]...)
	}

	want := pcm.NewFrames(8)
	for i := range 8 {
		want.Left[i], want.Right[i] = int16(2*i), int16(2*i+1)
	}
	if !bytes.Equal(out, utils.InterleavedBytes(want)) {
		t.Errorf("captured bytes do not follow the device sample order")
	}
}

func TestCaptureReadErrors(t *testing.T) {
	fake := useFakeStream(t)
	c, err := OpenCapture(StreamConfig{Device: testDeviceInfo(), FramesPerBuffer: 4})
	if err != nil {
		t.Fatalf("OpenCapture error: %v", err)
	}

	fake.readErr = portaudio.InputOverflowed
	if n, err := c.Read(make([]byte, 16)); err != nil || n != 16 {
		t.Errorf("overflowed Read = %d, %v; want 16, nil", n, err)
	}
	if c.overflows != 1 {
		t.Errorf("overflows = %d, want 1", c.overflows)
	}

	fake.readErr = errors.New("device lost")
	if _, err := c.Read(make([]byte, 16)); err == nil {
		t.Error("expected device error")
	}
}

func TestRenderWriteBuffersWholeDeviceBlocks(t *testing.T) {
	fake := useFakeStream(t)
	r, err := OpenRender(StreamConfig{Device: testDeviceInfo(), FramesPerBuffer: 4})
	if err != nil {
		t.Fatalf("OpenRender error: %v", err)
	}
	if fake.params.Output.Channels != pcm.Channels || fake.params.Input.Channels != 0 {
		t.Errorf("channels = in %d / out %d", fake.params.Input.Channels, fake.params.Output.Channels)
	}

	f := testFrames(6)
	if n, err := r.Write(utils.InterleavedBytes(f)); err != nil || n != 6*pcm.FrameSize {
		t.Fatalf("Write = %d, %v", n, err)
	}
	if len(fake.written) != 1 {
		t.Fatalf("device writes = %d, want 1 after six frames", len(fake.written))
	}
	if got := fake.written[0]; got[0] != f.Left[0] || got[1] != f.Right[0] || got[7] != f.Right[3] {
		t.Errorf("device buffer = %v", got)
	}

	if _, err := r.Write(utils.InterleavedBytes(testFrames(2))); err != nil {
		t.Fatalf("Write error: %v", err)
	}
	if len(fake.written) != 2 {
		t.Errorf("device writes = %d, want 2", len(fake.written))
	}

	if _, err := r.Write(make([]byte, 3)); !errors.Is(err, pcm.ErrPartialFrame) {
		t.Errorf("partial frame error = %v", err)
	}
}

func TestRenderUnderflowIsNotFatal(t *testing.T) {
	fake := useFakeStream(t)
	r, err := OpenRender(StreamConfig{Device: testDeviceInfo(), FramesPerBuffer: 1})
	if err != nil {
		t.Fatalf("OpenRender error: %v", err)
	}

	fake.writeErr = portaudio.OutputUnderflowed
	if _, err := r.Write(make([]byte, pcm.FrameSize)); err != nil {
		t.Errorf("underflow returned %v", err)
	}
	fake.writeErr = errors.New("device lost")
	if _, err := r.Write(make([]byte, pcm.FrameSize)); err == nil {
		t.Error("expected device error")
	}
}

func TestOpenStreamErrors(t *testing.T) {
	if _, err := OpenCapture(StreamConfig{FramesPerBuffer: 4}); !errors.Is(err, ErrNoDevice) {
		t.Errorf("nil device error = %v, want ErrNoDevice", err)
	}
	if _, err := OpenRender(StreamConfig{Device: testDeviceInfo()}); err == nil {
		t.Error("expected error for zero frames per buffer")
	}

	fake := useFakeStream(t)
	fake.startErr = errors.New("busy")
	if _, err := OpenRender(StreamConfig{Device: testDeviceInfo(), FramesPerBuffer: 4}); err == nil {
		t.Error("expected start error")
	}
	if !fake.closed {
		t.Error("stream not closed after a failed start")
	}
}
