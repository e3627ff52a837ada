package audio

import (
	"math"
	"time"
	"unicode/utf8"
)

// Placeholder tone parameters. The tone stands in for narration until a real
// text-to-speech backend produces the clip audio.
const (
	ToneFrequency      = 440.0 // Hz
	ToneAmplitude      = 0.1
	toneSecondsPerChar = 0.1
	minToneSeconds     = 3.0
)

// ToneDuration returns how long the placeholder tone lasts for a text of the
// given length in characters: 0.1s per character, never below 3s.
func ToneDuration(textLength int) time.Duration {
	return time.Duration(toneSeconds(textLength) * float64(time.Second))
}

func toneSeconds(textLength int) float64 {
	return math.Max(float64(textLength)*toneSecondsPerChar, minToneSeconds)
}

// GenerateTone synthesizes a mono 440 Hz sine with an exponential decay
// envelope, scaled to 10% amplitude, whose length tracks the text length.
func GenerateTone(text string, sampleRate int) *SampleBuffer {
	if sampleRate <= 0 {
		sampleRate = 44100
	}

	sr := float64(sampleRate)
	frames := int(toneSeconds(utf8.RuneCountInString(text)) * sr)

	samples := make([]float32, frames)
	for i := range samples {
		fi := float64(i)
		samples[i] = float32(math.Sin((2*math.Pi*ToneFrequency*fi)/sr) *
			ToneAmplitude *
			math.Exp(-fi/(sr*2)))
	}

	return &SampleBuffer{
		sampleRate: sampleRate,
		frames:     frames,
		channels:   [][]float32{samples},
	}
}

// ToneGenerator renders placeholder tones; it satisfies speech.ToneRenderer
type ToneGenerator struct{}

// Render implements speech.ToneRenderer
func (ToneGenerator) Render(text string, sampleRate int) *SampleBuffer {
	return GenerateTone(text, sampleRate)
}
