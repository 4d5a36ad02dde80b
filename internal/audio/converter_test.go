package audio

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os/exec"
	"testing"

	"github.com/dgnsrekt/speakeasy/internal/wav"
)

func TestNewConverter_Missing(t *testing.T) {
	_, err := NewConverter("/definitely/not/ffmpeg")
	if !errors.Is(err, ErrFFmpegNotFound) {
		t.Errorf("NewConverter() error = %v, want ErrFFmpegNotFound", err)
	}
}

func TestNewConverterWithPath(t *testing.T) {
	conv := NewConverterWithPath("/usr/bin/ffmpeg")
	if conv.ffmpegPath != "/usr/bin/ffmpeg" {
		t.Errorf("ffmpegPath = %q, want %q", conv.ffmpegPath, "/usr/bin/ffmpeg")
	}
}

func TestDecode_EmptyInput(t *testing.T) {
	conv := NewConverterWithPath("ffmpeg")

	if _, err := conv.Decode(context.Background(), nil); !errors.Is(err, ErrEmptyInput) {
		t.Errorf("Decode(nil) error = %v, want ErrEmptyInput", err)
	}
}

func TestDecode_NativeWAVSkipsFFmpeg(t *testing.T) {
	pcm := bytes.Repeat([]byte{0x10, 0x20}, 2*Channels)
	data := wav.WrapRawPCM(pcm, SampleRate, Channels, 16)

	// No ffmpeg path: only the fast path can succeed.
	conv := NewConverterWithPath("")
	got, err := conv.Decode(context.Background(), data)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if !bytes.Equal(got, pcm) {
		t.Errorf("Decode() = %v, want %v", got, pcm)
	}
}

func TestDecode_ForeignFormatNeedsFFmpeg(t *testing.T) {
	data := wav.CreateMinimal(10, wav.EspeakSampleRate, wav.EspeakChannels, wav.EspeakBitsPerSample)

	conv := NewConverterWithPath("")
	if _, err := conv.Decode(context.Background(), data); !errors.Is(err, ErrFFmpegNotFound) {
		t.Errorf("Decode() error = %v, want ErrFFmpegNotFound", err)
	}
}

func TestDecode_ResamplesWithFFmpeg(t *testing.T) {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		t.Skip("ffmpeg not installed, skipping converter tests")
	}

	conv, err := NewConverter("")
	if err != nil {
		t.Fatalf("NewConverter() error = %v", err)
	}

	// One second of 22050 Hz mono becomes one second of 48 kHz stereo.
	data := wav.CreateMinimal(wav.EspeakSampleRate, wav.EspeakSampleRate, 1, 16)
	pcm, err := conv.Decode(context.Background(), data)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	want := SampleRate * Channels * 2
	if diff := len(pcm) - want; diff < -FrameBytes || diff > FrameBytes {
		t.Errorf("expected about %d PCM bytes, got %d", want, len(pcm))
	}
}

func TestDecode_InvalidInput(t *testing.T) {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		t.Skip("ffmpeg not installed, skipping converter tests")
	}

	conv, _ := NewConverter("")
	if _, err := conv.Decode(context.Background(), []byte("not audio at all")); err == nil {
		t.Error("Decode(invalid) should return error")
	}
}

func TestPCMFrameReader(t *testing.T) {
	data := make([]byte, FrameBytes*2+10)
	r := NewPCMFrameReader(data)

	for i := 0; i < 3; i++ {
		frame, err := r.ReadFrame()
		if err != nil {
			t.Fatalf("frame %d: unexpected error %v", i, err)
		}
		if len(frame) != FrameBytes {
			t.Errorf("frame %d: expected %d bytes, got %d", i, FrameBytes, len(frame))
		}
	}

	if _, err := r.ReadFrame(); err != io.EOF {
		t.Errorf("expected io.EOF, got %v", err)
	}
	if r.Remaining() != 0 {
		t.Errorf("expected 0 remaining, got %d", r.Remaining())
	}
}
