package audio

import (
	"fmt"
	"time"
)

// SampleBuffer is a fixed-length block of floating-point PCM samples in [-1, 1],
// one slice per channel, at a known sample rate.
// It is immutable after creation; callers must not modify the slices returned by Channel.
type SampleBuffer struct {
	sampleRate int
	frames     int
	channels   [][]float32
}

// NewSampleBuffer wraps per-channel sample slices into a buffer.
// Every channel must have the same length.
func NewSampleBuffer(sampleRate int, channels ...[]float32) (*SampleBuffer, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %d", sampleRate)
	}
	if len(channels) == 0 {
		return nil, fmt.Errorf("at least one channel is required")
	}

	frames := len(channels[0])
	for i, ch := range channels[1:] {
		if len(ch) != frames {
			return nil, fmt.Errorf("channel %d has %d frames, want %d", i+1, len(ch), frames)
		}
	}

	return &SampleBuffer{
		sampleRate: sampleRate,
		frames:     frames,
		channels:   channels,
	}, nil
}

// SampleRate returns the sample rate in Hz
func (b *SampleBuffer) SampleRate() int {
	return b.sampleRate
}

// Frames returns the number of sample frames (samples per channel)
func (b *SampleBuffer) Frames() int {
	return b.frames
}

// NumChannels returns the number of channels
func (b *SampleBuffer) NumChannels() int {
	return len(b.channels)
}

// Channel returns the samples of channel i
func (b *SampleBuffer) Channel(i int) []float32 {
	return b.channels[i]
}

// Duration returns the playback length of the buffer
func (b *SampleBuffer) Duration() time.Duration {
	return time.Duration(float64(b.frames) / float64(b.sampleRate) * float64(time.Second))
}
