// SPDX-License-Identifier: MIT
/*
Package pipeline runs the capture -> decode -> filter chain -> encode ->
render loop.

One goroutine owns the loop and every buffer it touches. Each cycle:

	capture.Read(block) -> pcm.DecodeInto -> chain.Process -> taps -> pcm.EncodeInto -> render.Write

Reads that end mid-frame keep their 1-3 trailing bytes and prepend them
to the next read, so irregular device read sizes never drop or split a
sample. Cancellation is checked between cycles, so a stop takes effect
within one block of audio.
*/
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"

	applog "voiceshield/internal/log"
	"voiceshield/internal/pcm"
)

// Processor transforms the frames of one cycle in place.
type Processor interface {
	Process(f pcm.Frames) error
}

// Tap observes the processed frames of every cycle. It runs on the
// processing goroutine and must not retain f.
type Tap interface {
	Observe(f pcm.Frames)
}

// Stats are cumulative counters, safe to read from any goroutine.
type Stats struct {
	Cycles uint64 // Completed read/process/write cycles.
	Frames uint64 // Frames rendered.
}

// Pipeline wires a capture source, a processor and a render sink.
type Pipeline struct {
	capture   io.Reader
	render    io.Writer
	processor Processor
	taps      []Tap

	block   []byte     // Capture buffer, carry bytes at the front.
	carry   int        // Bytes of a partial frame left from the previous read.
	frames  pcm.Frames // Decoded samples, reused every cycle.
	out     []byte     // Encoded output, reused every cycle.
	running atomic.Bool

	cycles   atomic.Uint64
	rendered atomic.Uint64
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithTap registers a tap. Taps run in registration order.
func WithTap(t Tap) Option {
	return func(p *Pipeline) {
		if t != nil {
			p.taps = append(p.taps, t)
		}
	}
}

// New creates a pipeline reading blockSize bytes per cycle. blockSize must be
// a positive multiple of pcm.FrameSize.
func New(capture io.Reader, render io.Writer, processor Processor, blockSize int, opts ...Option) (*Pipeline, error) {
	if capture == nil || render == nil || processor == nil {
		return nil, errors.New("pipeline: capture, render and processor are required")
	}
	if blockSize <= 0 || blockSize%pcm.FrameSize != 0 {
		return nil, fmt.Errorf("pipeline: block size %d: %w", blockSize, pcm.ErrPartialFrame)
	}

	frames := blockSize / pcm.FrameSize
	p := &Pipeline{
		capture:   capture,
		render:    render,
		processor: processor,
		// Room for a full block after up to FrameSize-1 carried bytes.
		block:     make([]byte, blockSize+pcm.FrameSize-1),
		frames:    pcm.NewFrames(frames),
		out:       make([]byte, blockSize+pcm.FrameSize),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Run loops until ctx is cancelled, capture reports io.EOF, or an I/O or
// processing error occurs. It returns nil on EOF and ctx.Err() on
// cancellation.
func (p *Pipeline) Run(ctx context.Context) error {
	if !p.running.CompareAndSwap(false, true) {
		return errors.New("pipeline: already running")
	}
	defer p.running.Store(false)

	applog.Infof("Pipeline: started (block %d bytes, %d taps)", len(p.block)-(pcm.FrameSize-1), len(p.taps))
	defer func() {
		s := p.Stats()
		applog.Infof("Pipeline: stopped after %d cycles, %d frames", s.Cycles, s.Frames)
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		err := p.Step()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// Step performs one blocking cycle. It returns io.EOF once capture is
// exhausted; trailing bytes that never formed a whole frame are discarded
// at that point.
func (p *Pipeline) Step() error {
	blockSize := len(p.block) - (pcm.FrameSize - 1)
	n, readErr := p.capture.Read(p.block[p.carry : p.carry+blockSize])
	if n < 0 || n > blockSize {
		return fmt.Errorf("pipeline: capture returned invalid count %d", n)
	}

	total := p.carry + n
	whole := pcm.WholeFrames(total)
	if whole > 0 {
		if err := p.cycle(p.block[:whole]); err != nil {
			return err
		}
	}

	p.carry = copy(p.block, p.block[whole:total])

	if readErr != nil {
		if errors.Is(readErr, io.EOF) {
			if p.carry > 0 {
				applog.Warnf("Pipeline: dropping %d bytes of an incomplete final frame", p.carry)
				p.carry = 0
			}
			return io.EOF
		}
		return fmt.Errorf("pipeline: capture: %w", readErr)
	}
	return nil
}

func (p *Pipeline) cycle(data []byte) error {
	frames, err := pcm.DecodeInto(p.frames, data)
	if err != nil {
		return fmt.Errorf("pipeline: decode: %w", err)
	}
	p.frames = frames

	if err := p.processor.Process(frames); err != nil {
		return fmt.Errorf("pipeline: process: %w", err)
	}

	for _, t := range p.taps {
		t.Observe(frames)
	}

	n, err := pcm.EncodeInto(p.out, frames)
	if err != nil {
		return fmt.Errorf("pipeline: encode: %w", err)
	}
	if _, err := p.render.Write(p.out[:n]); err != nil {
		return fmt.Errorf("pipeline: render: %w", err)
	}

	cycles := p.cycles.Add(1)
	p.rendered.Add(uint64(frames.Len()))
	if cycles%1000 == 0 {
		applog.Debugf("Pipeline: %d cycles", cycles)
	}
	return nil
}

// Stats returns the cumulative counters.
func (p *Pipeline) Stats() Stats {
	return Stats{
		Cycles: p.cycles.Load(),
		Frames: p.rendered.Load(),
	}
}
