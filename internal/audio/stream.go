// SPDX-License-Identifier: MIT
/*
Package audio connects the processing pipeline to the host's audio devices
and to WAV files.

Streams use the PortAudio blocking API on interleaved int16 buffers at the
fixed 48 kHz stereo format. CaptureStream is an io.Reader and RenderStream
an io.Writer over little-endian PCM bytes, so the pipeline never sees
PortAudio types.

Thread Safety:
- A stream is owned by the goroutine that reads or writes it
- Close must not race with a pending Read or Write
*/
package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/gordonklaus/portaudio"

	applog "voiceshield/internal/log"
	"voiceshield/internal/pcm"
)

// paStream is the subset of *portaudio.Stream the blocking streams use.
type paStream interface {
	Start() error
	Stop() error
	Close() error
	Read() error
	Write() error
}

var openStreamFunc = func(params portaudio.StreamParameters, buf []int16) (paStream, error) {
	return portaudio.OpenStream(params, buf)
}

// StreamConfig selects the device and buffering for one stream.
type StreamConfig struct {
	Device          *portaudio.DeviceInfo
	FramesPerBuffer int
	LowLatency      bool
}

func (c StreamConfig) validate() error {
	if c.Device == nil {
		return fmt.Errorf("%w: stream requires a device", ErrNoDevice)
	}
	if c.FramesPerBuffer <= 0 {
		return fmt.Errorf("audio: invalid frames per buffer %d", c.FramesPerBuffer)
	}
	return nil
}

// CaptureStream reads interleaved PCM bytes from an input device.
type CaptureStream struct {
	stream    paStream
	buf       []int16 // Interleaved samples filled by each device read.
	encoded   []byte
	pending   []byte // Unconsumed tail of encoded.
	overflows int
}

// OpenCapture opens and starts a 48 kHz stereo input stream.
func OpenCapture(cfg StreamConfig) (*CaptureStream, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	latency := cfg.Device.DefaultHighInputLatency
	if cfg.LowLatency {
		latency = cfg.Device.DefaultLowInputLatency
	}

	buf := make([]int16, cfg.FramesPerBuffer*pcm.Channels)
	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Channels: pcm.Channels,
			Device:   cfg.Device,
			Latency:  latency,
		},
		Output: portaudio.StreamDeviceParameters{
			Channels: 0, // No output device
			Device:   nil,
		},
		FramesPerBuffer: cfg.FramesPerBuffer,
		SampleRate:      pcm.SampleRate,
	}

	stream, err := startStream(params, buf)
	if err != nil {
		return nil, fmt.Errorf("failed to open input %q: %w", cfg.Device.Name, err)
	}
	applog.Infof("Audio: capture from %q (%d frames/buffer, latency %v)", cfg.Device.Name, cfg.FramesPerBuffer, latency.Round(time.Millisecond))

	return &CaptureStream{
		stream:  stream,
		buf:     buf,
		encoded: make([]byte, len(buf)*pcm.BytesPerSample),
	}, nil
}

// Read fills p with captured bytes, blocking for one device buffer when
// nothing is pending. Input overflows are counted and not returned.
func (c *CaptureStream) Read(p []byte) (int, error) {
	if len(c.pending) == 0 {
		if err := c.stream.Read(); err != nil {
			if !errors.Is(err, portaudio.InputOverflowed) {
				return 0, fmt.Errorf("capture read: %w", err)
			}
			c.overflows++
			if c.overflows == 1 || c.overflows%100 == 0 {
				applog.Warnf("Audio: input overflowed (%d times)", c.overflows)
			}
		}
		for i, s := range c.buf {
			binary.LittleEndian.PutUint16(c.encoded[i*pcm.BytesPerSample:], uint16(s))
		}
		c.pending = c.encoded
	}

	n := copy(p, c.pending)
	c.pending = c.pending[n:]
	return n, nil
}

// Close stops and releases the device stream.
func (c *CaptureStream) Close() error {
	return stopStream(c.stream)
}

// RenderStream writes interleaved PCM bytes to an output device.
type RenderStream struct {
	stream     paStream
	buf        []int16
	fill       int // Samples of buf queued for the next device write.
	underflows int
}

// OpenRender opens and starts a 48 kHz stereo output stream.
func OpenRender(cfg StreamConfig) (*RenderStream, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	latency := cfg.Device.DefaultHighOutputLatency
	if cfg.LowLatency {
		latency = cfg.Device.DefaultLowOutputLatency
	}

	buf := make([]int16, cfg.FramesPerBuffer*pcm.Channels)
	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Channels: 0, // No input device
			Device:   nil,
		},
		Output: portaudio.StreamDeviceParameters{
			Channels: pcm.Channels,
			Device:   cfg.Device,
			Latency:  latency,
		},
		FramesPerBuffer: cfg.FramesPerBuffer,
		SampleRate:      pcm.SampleRate,
	}

	stream, err := startStream(params, buf)
	if err != nil {
		return nil, fmt.Errorf("failed to open output %q: %w", cfg.Device.Name, err)
	}
	applog.Infof("Audio: render to %q (%d frames/buffer, latency %v)", cfg.Device.Name, cfg.FramesPerBuffer, latency.Round(time.Millisecond))

	return &RenderStream{stream: stream, buf: buf}, nil
}

// Write queues whole frames and hands every full buffer to the device.
// len(p) must be a multiple of pcm.FrameSize.
func (r *RenderStream) Write(p []byte) (int, error) {
	if len(p)%pcm.FrameSize != 0 {
		return 0, fmt.Errorf("render write of %d bytes: %w", len(p), pcm.ErrPartialFrame)
	}

	written := 0
	for written < len(p) {
		free := (len(r.buf) - r.fill) * pcm.BytesPerSample
		chunk := p[written:min(len(p), written+free)]
		for i := 0; i < len(chunk); i += pcm.BytesPerSample {
			r.buf[r.fill] = int16(binary.LittleEndian.Uint16(chunk[i:]))
			r.fill++
		}
		written += len(chunk)

		if r.fill == len(r.buf) {
			if err := r.flush(); err != nil {
				return written, err
			}
		}
	}
	return written, nil
}

func (r *RenderStream) flush() error {
	r.fill = 0
	if err := r.stream.Write(); err != nil {
		if !errors.Is(err, portaudio.OutputUnderflowed) {
			return fmt.Errorf("render write: %w", err)
		}
		r.underflows++
		if r.underflows == 1 || r.underflows%100 == 0 {
			applog.Warnf("Audio: output underflowed (%d times)", r.underflows)
		}
	}
	return nil
}

// Close stops and releases the device stream. Queued samples short of a
// full buffer are discarded.
func (r *RenderStream) Close() error {
	return stopStream(r.stream)
}

func startStream(params portaudio.StreamParameters, buf []int16) (paStream, error) {
	stream, err := openStreamFunc(params, buf)
	if err != nil {
		return nil, err
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		return nil, err
	}
	return stream, nil
}

func stopStream(s paStream) error {
	if s == nil {
		return nil
	}
	if err := s.Stop(); err != nil {
		s.Close()
		return err
	}
	return s.Close()
}
