package audio

import (
	"math"
	"strings"
	"testing"
	"time"
)

func TestToneDuration(t *testing.T) {
	tests := []struct {
		length int
		want   time.Duration
	}{
		{0, 3 * time.Second},
		{10, 3 * time.Second},
		{30, 3 * time.Second},
		{31, 3100 * time.Millisecond},
		{100, 10 * time.Second},
		{1000, 100 * time.Second},
	}

	for _, tt := range tests {
		got := ToneDuration(tt.length)
		if diff := got - tt.want; diff > time.Millisecond || diff < -time.Millisecond {
			t.Errorf("ToneDuration(%d): expected %v, got %v", tt.length, tt.want, got)
		}
	}
}

func TestToneDuration_Monotonic(t *testing.T) {
	prev := ToneDuration(0)
	for n := 1; n <= 500; n++ {
		d := ToneDuration(n)
		if d < prev {
			t.Fatalf("duration decreased at length %d: %v < %v", n, d, prev)
		}
		if d < 3*time.Second {
			t.Fatalf("duration below minimum at length %d: %v", n, d)
		}
		prev = d
	}
}

func TestGenerateTone_Frames(t *testing.T) {
	tests := []struct {
		name       string
		text       string
		sampleRate int
		wantFrames int
	}{
		{"empty text uses minimum", "", 8000, 24000},
		{"short text uses minimum", "Hello world", 22050, 66150},
		{"long text", strings.Repeat("a", 50), 8000, 40000},
		{"counts characters not bytes", strings.Repeat("é", 50), 8000, 40000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := GenerateTone(tt.text, tt.sampleRate)
			if buf.Frames() != tt.wantFrames {
				t.Errorf("Expected %d frames, got %d", tt.wantFrames, buf.Frames())
			}
			if buf.NumChannels() != 1 {
				t.Errorf("Expected mono, got %d channels", buf.NumChannels())
			}
			if buf.SampleRate() != tt.sampleRate {
				t.Errorf("Expected sample rate %d, got %d", tt.sampleRate, buf.SampleRate())
			}
		})
	}
}

func TestGenerateTone_Shape(t *testing.T) {
	const sr = 8000
	samples := GenerateTone("", sr).Channel(0)

	if samples[0] != 0 {
		t.Errorf("Expected first sample 0, got %v", samples[0])
	}

	for i, s := range samples {
		if math.Abs(float64(s)) > ToneAmplitude+1e-6 {
			t.Fatalf("sample %d exceeds amplitude: %v", i, s)
		}
	}

	// Quarter period of 440 Hz at 8 kHz is not an integer sample, so compare
	// against the closed form instead of a peak.
	for _, i := range []int{1, 5, 100, 4000, 23999} {
		fi := float64(i)
		want := math.Sin(2*math.Pi*ToneFrequency*fi/sr) * ToneAmplitude * math.Exp(-fi/(sr*2))
		if math.Abs(float64(samples[i])-want) > 1e-6 {
			t.Errorf("sample %d: expected %v, got %v", i, want, samples[i])
		}
	}

	// The envelope decays: the last second is quieter than the first.
	first := peakFloat(samples[:sr])
	last := peakFloat(samples[len(samples)-sr:])
	if last >= first {
		t.Errorf("Expected decay, first-second peak %v, last-second peak %v", first, last)
	}
}

func TestGenerateTone_Deterministic(t *testing.T) {
	a := GenerateTone("same text", 16000).Channel(0)
	b := GenerateTone("same text", 16000).Channel(0)
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("sample %d differs: %v vs %v", i, a[i], b[i])
		}
	}
}

func TestGenerateTone_DefaultSampleRate(t *testing.T) {
	buf := GenerateTone("x", 0)
	if buf.SampleRate() != 44100 {
		t.Errorf("Expected default sample rate 44100, got %d", buf.SampleRate())
	}
}

func TestToneGenerator_EncodesToWAV(t *testing.T) {
	text := strings.Repeat("word ", 20)
	data := EncodeWAV(ToneGenerator{}.Render(text, 8000))

	info, err := GetWAVInfo(data)
	if err != nil {
		t.Fatalf("GetWAVInfo failed: %v", err)
	}
	want := ToneDuration(len(text))
	if diff := info.Duration - want; diff > time.Millisecond || diff < -time.Millisecond {
		t.Errorf("Expected duration %v, got %v", want, info.Duration)
	}
}

// peakFloat returns the largest absolute float sample
func peakFloat(samples []float32) float64 {
	peak := 0.0
	for _, s := range samples {
		peak = math.Max(peak, math.Abs(float64(s)))
	}
	return peak
}
