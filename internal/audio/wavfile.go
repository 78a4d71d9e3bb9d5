// SPDX-License-Identifier: MIT
package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"voiceshield/internal/pcm"
)

// ErrUnsupportedFormat is returned for WAV files that are not 48 kHz,
// 16-bit, stereo integer PCM.
var ErrUnsupportedFormat = errors.New("audio: unsupported WAV format")

const wavPCMFormat = 1

// WAVSource reads a WAV file as little-endian PCM bytes.
type WAVSource struct {
	decoder *wav.Decoder
	closer  io.Closer
	buf     *audio.IntBuffer
	encoded []byte
	pending []byte
}

// OpenWAV opens path for reading. The file must use the pipeline format.
func OpenWAV(path string, framesPerBuffer int) (*WAVSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input file: %w", err)
	}
	src, err := NewWAVSource(f, framesPerBuffer)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	src.closer = f
	return src, nil
}

// NewWAVSource validates the header of rs and prepares it for reading.
func NewWAVSource(rs io.ReadSeeker, framesPerBuffer int) (*WAVSource, error) {
	if framesPerBuffer <= 0 {
		return nil, fmt.Errorf("audio: invalid frames per buffer %d", framesPerBuffer)
	}
	decoder := wav.NewDecoder(rs)
	if !decoder.IsValidFile() {
		return nil, errors.New("invalid WAV file")
	}
	if decoder.SampleRate != pcm.SampleRate || decoder.BitDepth != pcm.BitDepth ||
		decoder.NumChans != pcm.Channels || decoder.WavAudioFormat != wavPCMFormat {
		return nil, fmt.Errorf("%w: %d Hz, %d-bit, %d channels (format %d), want %d Hz, %d-bit, %d channels",
			ErrUnsupportedFormat, decoder.SampleRate, decoder.BitDepth, decoder.NumChans, decoder.WavAudioFormat,
			pcm.SampleRate, pcm.BitDepth, pcm.Channels)
	}

	samples := framesPerBuffer * pcm.Channels
	return &WAVSource{
		decoder: decoder,
		buf: &audio.IntBuffer{
			Format: &audio.Format{NumChannels: pcm.Channels, SampleRate: pcm.SampleRate},
			Data:   make([]int, samples),
		},
		encoded: make([]byte, samples*pcm.BytesPerSample),
	}, nil
}

// Read implements io.Reader. It returns io.EOF after the data chunk is
// consumed.
func (s *WAVSource) Read(p []byte) (int, error) {
	if len(s.pending) == 0 {
		s.buf.Data = s.buf.Data[:cap(s.buf.Data)]
		n, err := s.decoder.PCMBuffer(s.buf)
		if err != nil && !errors.Is(err, io.EOF) {
			return 0, fmt.Errorf("failed to read audio data: %w", err)
		}
		if n == 0 {
			return 0, io.EOF
		}
		for i, v := range s.buf.Data[:n] {
			binary.LittleEndian.PutUint16(s.encoded[i*pcm.BytesPerSample:], uint16(int16(v)))
		}
		s.pending = s.encoded[:n*pcm.BytesPerSample]
	}

	n := copy(p, s.pending)
	s.pending = s.pending[n:]
	return n, nil
}

// Close closes the underlying file when the source opened it.
func (s *WAVSource) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

// WAVSink writes little-endian PCM bytes or frames to a WAV file.
type WAVSink struct {
	encoder *wav.Encoder
	closer  io.Closer
	buf     *audio.IntBuffer
	frames  uint64
}

// CreateWAV creates or truncates path for writing.
func CreateWAV(path string) (*WAVSink, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	sink := NewWAVSink(f)
	sink.closer = f
	return sink, nil
}

// NewWAVSink writes a 48 kHz, 16-bit, stereo PCM stream to ws. The header
// is finalised by Close.
func NewWAVSink(ws io.WriteSeeker) *WAVSink {
	return &WAVSink{
		encoder: wav.NewEncoder(ws, pcm.SampleRate, pcm.BitDepth, pcm.Channels, wavPCMFormat),
		buf: &audio.IntBuffer{
			Format:         &audio.Format{NumChannels: pcm.Channels, SampleRate: pcm.SampleRate},
			SourceBitDepth: pcm.BitDepth,
			Data:           make([]int, 0, pcm.DefaultBlockSize/pcm.BytesPerSample),
		},
	}
}

// Write implements io.Writer. len(p) must be a multiple of pcm.FrameSize.
func (s *WAVSink) Write(p []byte) (int, error) {
	if len(p)%pcm.FrameSize != 0 {
		return 0, fmt.Errorf("wav write of %d bytes: %w", len(p), pcm.ErrPartialFrame)
	}
	data := s.buf.Data[:0]
	for i := 0; i < len(p); i += pcm.BytesPerSample {
		data = append(data, int(int16(binary.LittleEndian.Uint16(p[i:]))))
	}
	if err := s.flush(data); err != nil {
		return 0, err
	}
	return len(p), nil
}

// WriteFrames appends f to the file.
func (s *WAVSink) WriteFrames(f pcm.Frames) error {
	if err := f.Validate(); err != nil {
		return err
	}
	data := s.buf.Data[:0]
	for i := range f.Left {
		data = append(data, int(f.Left[i]), int(f.Right[i]))
	}
	return s.flush(data)
}

func (s *WAVSink) flush(data []int) error {
	s.buf.Data = data
	if len(data) == 0 {
		return nil
	}
	if err := s.encoder.Write(s.buf); err != nil {
		return fmt.Errorf("wav write: %w", err)
	}
	s.frames += uint64(len(data) / pcm.Channels)
	return nil
}

// Frames returns the number of frames written so far.
func (s *WAVSink) Frames() uint64 {
	return s.frames
}

// Close finalises the WAV header and closes the file when the sink created it.
func (s *WAVSink) Close() error {
	err := s.encoder.Close()
	if s.closer != nil {
		if cerr := s.closer.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
