// Package wav provides utilities for WAV audio file handling.
package wav

import (
	"encoding/binary"
	"errors"
)

// WAV format constants.
const (
	// HeaderSize is the size of a canonical WAV file header in bytes.
	HeaderSize = 44

	// FormatPCM is the audio format code for uncompressed PCM.
	FormatPCM = 1
)

// espeak-ng --stdout writes 22050 Hz mono 16-bit PCM.
const (
	EspeakSampleRate    = 22050
	EspeakChannels      = 1
	EspeakBitsPerSample = 16
)

var (
	// ErrTooShort is returned for input smaller than a WAV header.
	ErrTooShort = errors.New("wav data too short")
	// ErrNotWAV is returned when the RIFF/WAVE magic is missing.
	ErrNotWAV = errors.New("not a valid WAV file")
	// ErrNoDataChunk is returned when the chunk walk finds no "data" chunk.
	ErrNoDataChunk = errors.New("data chunk not found in WAV")
)

// Format describes the PCM layout declared by a WAV "fmt " chunk.
type Format struct {
	AudioFormat   int
	Channels      int
	SampleRate    int
	BitsPerSample int
}

// IsWAV reports whether data starts with a RIFF/WAVE header.
func IsWAV(data []byte) bool {
	return len(data) >= 12 && string(data[0:4]) == "RIFF" && string(data[8:12]) == "WAVE"
}

// Decode walks the RIFF chunks and returns the declared format together
// with the PCM payload of the data chunk. The payload aliases data.
func Decode(data []byte) (Format, []byte, error) {
	var f Format
	if len(data) < HeaderSize {
		return f, nil, ErrTooShort
	}
	if !IsWAV(data) {
		return f, nil, ErrNotWAV
	}

	haveFormat := false
	pos := 12
	for pos+8 <= len(data) {
		chunkID := string(data[pos : pos+4])
		chunkSize := int(binary.LittleEndian.Uint32(data[pos+4 : pos+8]))
		start := pos + 8

		switch chunkID {
		case "fmt ":
			if start+16 > len(data) {
				return f, nil, ErrTooShort
			}
			f.AudioFormat = int(binary.LittleEndian.Uint16(data[start:]))
			f.Channels = int(binary.LittleEndian.Uint16(data[start+2:]))
			f.SampleRate = int(binary.LittleEndian.Uint32(data[start+4:]))
			f.BitsPerSample = int(binary.LittleEndian.Uint16(data[start+14:]))
			haveFormat = true
		case "data":
			end := start + chunkSize
			// Streaming writers (espeak-ng --stdout) leave the size unset.
			if end > len(data) || chunkSize == 0 || chunkSize == 0xFFFFFFFF {
				end = len(data)
			}
			if !haveFormat {
				return f, nil, ErrNotWAV
			}
			return f, data[start:end], nil
		}

		pos = start + chunkSize
		// Chunks are word-aligned.
		if chunkSize%2 != 0 {
			pos++
		}
	}

	return f, nil, ErrNoDataChunk
}

// WrapRawPCM adds a WAV header to raw PCM data.
func WrapRawPCM(pcm []byte, sampleRate, channels, bitsPerSample int) []byte {
	dataSize := len(pcm)
	byteRate := sampleRate * channels * bitsPerSample / 8
	blockAlign := channels * bitsPerSample / 8

	header := make([]byte, HeaderSize)

	copy(header[0:4], "RIFF")
	PutLE32(header[4:8], uint32(36+dataSize))
	copy(header[8:12], "WAVE")

	copy(header[12:16], "fmt ")
	PutLE32(header[16:20], 16)
	PutLE16(header[20:22], FormatPCM)
	PutLE16(header[22:24], uint16(channels))
	PutLE32(header[24:28], uint32(sampleRate))
	PutLE32(header[28:32], uint32(byteRate))
	PutLE16(header[32:34], uint16(blockAlign))
	PutLE16(header[34:36], uint16(bitsPerSample))

	copy(header[36:40], "data")
	PutLE32(header[40:44], uint32(dataSize))

	return append(header, pcm...)
}

// PutLE16 writes a uint16 value in little-endian format to a byte slice.
func PutLE16(b []byte, v uint16) {
	binary.LittleEndian.PutUint16(b, v)
}

// PutLE32 writes a uint32 value in little-endian format to a byte slice.
func PutLE32(b []byte, v uint32) {
	binary.LittleEndian.PutUint32(b, v)
}

// CreateMinimal creates a silent WAV file with the given number of samples.
func CreateMinimal(numSamples, sampleRate, channels, bitsPerSample int) []byte {
	pcm := make([]byte, numSamples*channels*(bitsPerSample/8))
	return WrapRawPCM(pcm, sampleRate, channels, bitsPerSample)
}
