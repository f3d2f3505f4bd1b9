package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	mp3 "github.com/hajimehoshi/go-mp3"
)

// ErrMediaDecode marks a failed media decode. The error is recoverable at the
// turn level: playback for the turn is skipped and the pipeline keeps running.
var ErrMediaDecode = errors.New("media decode failed")

// DecodeMP3 decodes an MP3 byte stream into mono int16 PCM at
// PlaybackSampleRate (24 kHz). The decoder always yields 16-bit stereo at the
// stream's native rate, so the result is downmixed and resampled.
func DecodeMP3(data []byte) ([]int16, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty input", ErrMediaDecode)
	}
	dec, err := mp3.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMediaDecode, err)
	}
	raw, err := io.ReadAll(dec)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMediaDecode, err)
	}

	// go-mp3 output is interleaved L/R int16.
	stereo := make([]int16, len(raw)/2)
	for i := range stereo {
		stereo[i] = int16(binary.LittleEndian.Uint16(raw[i*2:]))
	}
	mono := DownmixToMono(stereo, 2)
	return Resample(mono, dec.SampleRate(), PlaybackSampleRate), nil
}
