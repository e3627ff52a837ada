package audio

import (
	"math"
)

// FloatToPCM16 converts a float sample to a signed 16-bit value.
// The sample is clamped to [-1, 1]; negative values scale by 32768 and
// non-negative values by 32767, truncating toward zero. NaN maps to 0.
func FloatToPCM16(sample float32) int16 {
	s := float64(sample)
	if math.IsNaN(s) {
		return 0
	}
	s = math.Max(-1, math.Min(1, s))

	if s < 0 {
		return int16(s * 32768)
	}
	return int16(s * 32767)
}

// PCM16ToFloat is the inverse scaling of FloatToPCM16
func PCM16ToFloat(v int16) float32 {
	if v < 0 {
		return float32(float64(v) / 32768)
	}
	return float32(float64(v) / 32767)
}

// CalculateRMS calculates the root mean square (RMS) of audio samples
func CalculateRMS(samples []int16) float64 {
	if len(samples) == 0 {
		return 0.0
	}

	sum := 0.0
	for _, sample := range samples {
		sum += float64(sample) * float64(sample)
	}

	return math.Sqrt(sum / float64(len(samples)))
}

// PeakAmplitude returns the largest absolute sample value
func PeakAmplitude(samples []int16) int {
	peak := 0
	for _, sample := range samples {
		abs := int(sample)
		if abs < 0 {
			abs = -abs
		}
		if abs > peak {
			peak = abs
		}
	}
	return peak
}

// SilenceFloorDBFS is the level reported for digital silence
const SilenceFloorDBFS = -96.0

// RMSToDBFS converts an RMS sample value to decibels relative to full scale,
// floored at SilenceFloorDBFS
func RMSToDBFS(rms float64) float64 {
	if rms <= 0 {
		return SilenceFloorDBFS
	}
	return math.Max(SilenceFloorDBFS, 20*math.Log10(rms/32767))
}
