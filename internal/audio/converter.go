// Package audio decodes synthesized audio to PCM and plays it locally.
package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strconv"

	"github.com/dgnsrekt/speakeasy/internal/wav"
)

const (
	// SampleRate is the PCM rate every output is fed with.
	SampleRate = 48000
	// Channels is the PCM channel count every output is fed with.
	Channels = 2
	// FrameSize is the number of samples per channel in one 20ms frame.
	FrameSize = 960
	// FrameBytes is the size of one frame in bytes (stereo 16-bit).
	FrameBytes = FrameSize * Channels * 2
)

var (
	// ErrFFmpegNotFound is returned when ffmpeg is not installed.
	ErrFFmpegNotFound = errors.New("ffmpeg not found in PATH")
	// ErrConversionFailed is returned when ffmpeg conversion fails.
	ErrConversionFailed = errors.New("audio conversion failed")
	// ErrEmptyInput is returned when there is no audio to decode.
	ErrEmptyInput = errors.New("empty input data")
)

// Converter turns synthesized audio (WAV or MP3) into the raw PCM layout
// the outputs expect.
type Converter struct {
	ffmpegPath string
}

// NewConverter locates ffmpeg on PATH, or uses path when non-empty.
func NewConverter(path string) (*Converter, error) {
	if path == "" {
		path = "ffmpeg"
	}
	resolved, err := exec.LookPath(path)
	if err != nil {
		return nil, ErrFFmpegNotFound
	}
	return &Converter{ffmpegPath: resolved}, nil
}

// NewConverterWithPath creates a converter with a specific ffmpeg path
// without checking that it exists.
func NewConverterWithPath(path string) *Converter {
	return &Converter{ffmpegPath: path}
}

// Decode returns 48kHz stereo 16-bit little-endian PCM for data.
// WAV input already in that layout is unwrapped without running ffmpeg;
// everything else is piped through ffmpeg, which probes the container.
func (c *Converter) Decode(ctx context.Context, data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, ErrEmptyInput
	}

	if wav.IsWAV(data) {
		f, pcm, err := wav.Decode(data)
		if err == nil && f.AudioFormat == wav.FormatPCM && f.SampleRate == SampleRate &&
			f.Channels == Channels && f.BitsPerSample == 16 {
			return pcm, nil
		}
	}

	if c == nil || c.ffmpegPath == "" {
		return nil, ErrFFmpegNotFound
	}

	args := []string{
		"-i", "pipe:0",
		"-ar", strconv.Itoa(SampleRate),
		"-ac", strconv.Itoa(Channels),
		"-f", "s16le",
		"-loglevel", "error",
		"pipe:1",
	}

	cmd := exec.CommandContext(ctx, c.ffmpegPath, args...)
	cmd.Stdin = bytes.NewReader(data)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %s", ErrConversionFailed, stderr.String())
	}

	return stdout.Bytes(), nil
}

// PCMFrameReader splits raw PCM into 20ms frames.
type PCMFrameReader struct {
	data   []byte
	offset int
}

// NewPCMFrameReader creates a new frame reader from raw PCM data.
func NewPCMFrameReader(pcmData []byte) *PCMFrameReader {
	return &PCMFrameReader{data: pcmData}
}

// ReadFrame returns the next full frame. A trailing partial frame is padded
// with silence; io.EOF follows once the data is exhausted.
func (r *PCMFrameReader) ReadFrame() ([]byte, error) {
	if r.offset >= len(r.data) {
		return nil, io.EOF
	}

	if r.offset+FrameBytes > len(r.data) {
		frame := make([]byte, FrameBytes)
		copy(frame, r.data[r.offset:])
		r.offset = len(r.data)
		return frame, nil
	}

	frame := r.data[r.offset : r.offset+FrameBytes]
	r.offset += FrameBytes
	return frame, nil
}

// Remaining returns the number of bytes remaining.
func (r *PCMFrameReader) Remaining() int {
	return len(r.data) - r.offset
}
