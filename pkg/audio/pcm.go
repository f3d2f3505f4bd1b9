// Package audio provides the PCM utilities used by the voice pipeline:
// frame concatenation, rate conversion, level measurement, playback framing
// and MP3 decoding.
package audio

import (
	"math"

	"github.com/jihoonkang/voice-agent-go/pkg/rtc"
)

const (
	// STTSampleRate is the rate the transcription model expects.
	STTSampleRate = 16000

	// PlaybackSampleRate is the rate of the outbound agent track.
	PlaybackSampleRate = 24000

	// PlaybackFrameSamples is the playback packet size: 20 ms at 24 kHz.
	PlaybackFrameSamples = 480

	// SilenceFloor is the mean-absolute level below which a segment is
	// treated as silence and never transcribed.
	SilenceFloor = 0.001
)

// ConcatFrames concatenates the PCM payloads of frames into one sample buffer.
func ConcatFrames(frames []*rtc.AudioFrame) []int16 {
	total := 0
	for _, f := range frames {
		total += len(f.Data) / 2
	}
	out := make([]int16, 0, total)
	for _, f := range frames {
		out = append(out, f.Samples()...)
	}
	return out
}

// Resample converts samples from srcRate to dstRate by picking across a
// linearly spaced index vector of the target length. It is intentionally a
// nearest-sample pick, not a filtered resampler: speech recognition tolerates
// the aliasing and it avoids a DSP dependency.
func Resample(samples []int16, srcRate, dstRate int) []int16 {
	if srcRate == dstRate || len(samples) == 0 {
		out := make([]int16, len(samples))
		copy(out, samples)
		return out
	}
	ratio := float64(dstRate) / float64(srcRate)
	newLen := int(float64(len(samples)) * ratio)
	if newLen <= 0 {
		return nil
	}
	out := make([]int16, newLen)
	if newLen == 1 {
		out[0] = samples[0]
		return out
	}
	step := float64(len(samples)-1) / float64(newLen-1)
	for i := range out {
		out[i] = samples[int(float64(i)*step)]
	}
	return out
}

// Int16ToFloat32 converts PCM samples to float32 in [-1.0, 1.0).
func Int16ToFloat32(samples []int16) []float32 {
	out := make([]float32, len(samples))
	for i, s := range samples {
		out[i] = float32(s) / 32768.0
	}
	return out
}

// MeanAbs returns the mean absolute level of the samples.
func MeanAbs(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += math.Abs(float64(s))
	}
	return sum / float64(len(samples))
}

// Peak returns the largest absolute sample value.
func Peak(samples []float32) float64 {
	var peak float64
	for _, s := range samples {
		if a := math.Abs(float64(s)); a > peak {
			peak = a
		}
	}
	return peak
}

// RMS returns the root-mean-square level of the samples.
func RMS(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += float64(s) * float64(s)
	}
	return math.Sqrt(sum / float64(len(samples)))
}

// ChunkPCM splits samples into fixed-size playback chunks, zero-padding the
// final short chunk so every emitted packet has exactly frameSize samples.
func ChunkPCM(samples []int16, frameSize int) [][]int16 {
	if frameSize <= 0 || len(samples) == 0 {
		return nil
	}
	n := (len(samples) + frameSize - 1) / frameSize
	chunks := make([][]int16, 0, n)
	for i := 0; i < len(samples); i += frameSize {
		end := i + frameSize
		if end <= len(samples) {
			chunks = append(chunks, samples[i:end])
			continue
		}
		padded := make([]int16, frameSize)
		copy(padded, samples[i:])
		chunks = append(chunks, padded)
	}
	return chunks
}

// DownmixToMono averages interleaved channels into a single channel.
// Mono input is returned as a copy.
func DownmixToMono(samples []int16, channels int) []int16 {
	if channels <= 1 {
		out := make([]int16, len(samples))
		copy(out, samples)
		return out
	}
	out := make([]int16, len(samples)/channels)
	for i := range out {
		var sum int
		for ch := 0; ch < channels; ch++ {
			sum += int(samples[i*channels+ch])
		}
		out[i] = int16(sum / channels)
	}
	return out
}
