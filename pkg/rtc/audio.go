// Package rtc holds the audio frame type shared by the transport layer and
// the voice pipeline.
package rtc

import (
	"encoding/binary"
	"fmt"
	"time"
)

// AudioFrame holds a chunk of 16-bit little-endian PCM audio as delivered by
// the transport. Unlike RTP packets, frames are not fixed-length: the decoder
// hands over whatever a packet contained.
//
// A zero Timestamp means the frame was created outside a live stream
// (tests, synthesized audio); live frames carry the wall-clock arrival time.
type AudioFrame struct {
	Data        []byte // 16-bit PCM, little-endian, interleaved
	SampleRate  int
	NumChannels int
	Timestamp   time.Time
}

// NewAudioFrame creates a frame and validates that the data length is a whole
// number of interleaved samples.
func NewAudioFrame(data []byte, sampleRate, numChannels int, ts time.Time) (*AudioFrame, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate %d", sampleRate)
	}
	if numChannels <= 0 {
		return nil, fmt.Errorf("invalid channel count %d", numChannels)
	}
	if len(data)%(2*numChannels) != 0 {
		return nil, fmt.Errorf("AudioFrame data length %d is not a multiple of %d-channel 16-bit samples", len(data), numChannels)
	}
	return &AudioFrame{
		Data:        data,
		SampleRate:  sampleRate,
		NumChannels: numChannels,
		Timestamp:   ts,
	}, nil
}

// FrameFromInt16 builds a frame from decoded samples.
func FrameFromInt16(samples []int16, sampleRate, numChannels int, ts time.Time) *AudioFrame {
	data := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(data[i*2:], uint16(s))
	}
	return &AudioFrame{
		Data:        data,
		SampleRate:  sampleRate,
		NumChannels: numChannels,
		Timestamp:   ts,
	}
}

// Samples decodes the PCM payload into int16 samples (interleaved).
func (f *AudioFrame) Samples() []int16 {
	out := make([]int16, len(f.Data)/2)
	for i := range out {
		out[i] = int16(binary.LittleEndian.Uint16(f.Data[i*2:]))
	}
	return out
}

// SamplesPerChannel returns the number of samples in each channel.
func (f *AudioFrame) SamplesPerChannel() int {
	return len(f.Data) / (2 * f.NumChannels)
}

// Duration returns the play time of this frame.
func (f *AudioFrame) Duration() time.Duration {
	if f.SampleRate == 0 {
		return 0
	}
	return time.Duration(f.SamplesPerChannel()) * time.Second / time.Duration(f.SampleRate)
}

// Clone creates a deep copy of the frame.
func (f *AudioFrame) Clone() *AudioFrame {
	data := make([]byte, len(f.Data))
	copy(data, f.Data)
	return &AudioFrame{
		Data:        data,
		SampleRate:  f.SampleRate,
		NumChannels: f.NumChannels,
		Timestamp:   f.Timestamp,
	}
}
