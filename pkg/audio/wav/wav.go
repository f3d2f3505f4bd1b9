// Package wav reads and writes 16-bit PCM WAV files. It is used for the
// optional speech-segment debug dumps and by tests that need audio fixtures.
package wav

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
)

// Encode renders mono/interleaved int16 PCM into an in-memory WAV file.
func Encode(samples []int16, sampleRate, numChannels int) []byte {
	dataSize := len(samples) * 2
	buf := bytes.NewBuffer(make([]byte, 0, 44+dataSize))

	buf.WriteString("RIFF")
	binary.Write(buf, binary.LittleEndian, uint32(36+dataSize))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	binary.Write(buf, binary.LittleEndian, uint32(16))
	binary.Write(buf, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(buf, binary.LittleEndian, uint16(numChannels))
	binary.Write(buf, binary.LittleEndian, uint32(sampleRate))
	binary.Write(buf, binary.LittleEndian, uint32(sampleRate*numChannels*2)) // byte rate
	binary.Write(buf, binary.LittleEndian, uint16(numChannels*2))            // block align
	binary.Write(buf, binary.LittleEndian, uint16(16))                       // bits per sample

	buf.WriteString("data")
	binary.Write(buf, binary.LittleEndian, uint32(dataSize))
	for _, s := range samples {
		binary.Write(buf, binary.LittleEndian, s)
	}
	return buf.Bytes()
}

// WriteFile writes samples to filename as a 16-bit PCM WAV.
func WriteFile(filename string, samples []int16, sampleRate, numChannels int) error {
	if err := os.WriteFile(filename, Encode(samples, sampleRate, numChannels), 0o644); err != nil {
		return fmt.Errorf("failed to write WAV file: %w", err)
	}
	return nil
}

// Decode parses a 16-bit PCM WAV file and returns the samples, sample rate
// and channel count.
func Decode(data []byte) ([]int16, int, int, error) {
	if len(data) < 44 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, 0, 0, fmt.Errorf("not a RIFF/WAVE file")
	}

	var sampleRate, numChannels, bitsPerSample int
	pos := 12
	for pos+8 <= len(data) {
		chunkID := string(data[pos : pos+4])
		chunkSize := int(binary.LittleEndian.Uint32(data[pos+4 : pos+8]))
		body := pos + 8
		if body+chunkSize > len(data) {
			return nil, 0, 0, fmt.Errorf("truncated %q chunk", chunkID)
		}
		switch chunkID {
		case "fmt ":
			if chunkSize < 16 {
				return nil, 0, 0, fmt.Errorf("short fmt chunk")
			}
			format := binary.LittleEndian.Uint16(data[body:])
			if format != 1 {
				return nil, 0, 0, fmt.Errorf("unsupported WAV format %d (want PCM)", format)
			}
			numChannels = int(binary.LittleEndian.Uint16(data[body+2:]))
			sampleRate = int(binary.LittleEndian.Uint32(data[body+4:]))
			bitsPerSample = int(binary.LittleEndian.Uint16(data[body+14:]))
		case "data":
			if bitsPerSample != 16 {
				return nil, 0, 0, fmt.Errorf("unsupported bit depth %d (want 16)", bitsPerSample)
			}
			samples := make([]int16, chunkSize/2)
			for i := range samples {
				samples[i] = int16(binary.LittleEndian.Uint16(data[body+i*2:]))
			}
			return samples, sampleRate, numChannels, nil
		}
		// Chunks are word-aligned.
		pos = body + chunkSize + chunkSize%2
	}
	return nil, 0, 0, fmt.Errorf("no data chunk found")
}
