// Package audiocodec provides stateless conversions between raw audio
// buffers, signed 16-bit PCM, and the text-safe transport encoding used
// by the live session.
package audiocodec

import (
	"encoding/base64"
	"errors"
	"fmt"
	"time"
)

// Common errors returned by codec functions.
var (
	// ErrDecode indicates the text payload is not valid base64.
	ErrDecode = errors.New("audiocodec: malformed text payload")

	// ErrMalformedAudio indicates a PCM byte sequence whose length does not
	// divide evenly into 16-bit frames for the requested channel count.
	ErrMalformedAudio = errors.New("audiocodec: malformed PCM payload")
)

// Standard sample rates for the live session.
const (
	InputSampleRate  = 16000 // microphone upload
	OutputSampleRate = 24000 // model speech download
)

// EncodeBytes maps a raw byte sequence to its text-safe transport form.
// The mapping is deterministic, lossless and reversible via DecodeText.
func EncodeBytes(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

// DecodeText is the inverse of EncodeBytes.
func DecodeText(text string) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return data, nil
}

// PCMMimeType returns the media tag for raw 16-bit PCM at the given rate.
func PCMMimeType(sampleRate int) string {
	return fmt.Sprintf("audio/pcm;rate=%d", sampleRate)
}

// FloatFrameToPCM16 quantizes float samples in [-1, 1] to little-endian
// signed 16-bit PCM, preserving sample order. Out-of-range input wraps
// per two's-complement truncation; no clipping guard is applied.
func FloatFrameToPCM16(frame []float32) []byte {
	out := make([]byte, len(frame)*2)
	for i, sample := range frame {
		s := int16(sample * 32768)
		out[i*2] = byte(s)
		out[i*2+1] = byte(s >> 8)
	}
	return out
}

// FloatBuffer is a decoded block of output samples, one slice per channel.
type FloatBuffer struct {
	Channels   [][]float32
	SampleRate int
}

// NumFrames returns the number of frames per channel.
func (b *FloatBuffer) NumFrames() int {
	if len(b.Channels) == 0 {
		return 0
	}
	return len(b.Channels[0])
}

// Duration returns the playback duration of the buffer.
func (b *FloatBuffer) Duration() time.Duration {
	if b.SampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(b.NumFrames()) / float64(b.SampleRate) * float64(time.Second))
}

// PCM16ToFloatBuffer de-interleaves little-endian signed 16-bit samples
// across channelCount channels and normalizes each by 1/32768. The byte
// length must be a multiple of 2*channelCount.
func PCM16ToFloatBuffer(data []byte, sampleRate, channelCount int) (*FloatBuffer, error) {
	if channelCount <= 0 {
		return nil, fmt.Errorf("%w: channel count %d", ErrMalformedAudio, channelCount)
	}
	if len(data)%(2*channelCount) != 0 {
		return nil, fmt.Errorf("%w: %d bytes for %d channels", ErrMalformedAudio, len(data), channelCount)
	}

	frames := len(data) / 2 / channelCount
	channels := make([][]float32, channelCount)
	for ch := range channels {
		channels[ch] = make([]float32, frames)
	}

	for i := 0; i < frames; i++ {
		for ch := 0; ch < channelCount; ch++ {
			off := (i*channelCount + ch) * 2
			s := int16(data[off]) | int16(data[off+1])<<8
			channels[ch][i] = float32(s) / 32768
		}
	}

	return &FloatBuffer{Channels: channels, SampleRate: sampleRate}, nil
}
