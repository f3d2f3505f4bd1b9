// Package tts defines the streaming synthesis interface. Synthesizers emit
// typed chunks; chunks of type "audio" concatenate into an MP3 stream.
package tts

import (
	"context"
	"fmt"
)

// ChunkType tags a synthesis chunk.
type ChunkType string

const (
	// ChunkAudio carries MP3 audio bytes.
	ChunkAudio ChunkType = "audio"
	// ChunkMetadata carries non-audio information (word boundaries etc.)
	// and is ignored by the pipeline.
	ChunkMetadata ChunkType = "metadata"
)

// Chunk is one streamed piece of a synthesis response.
type Chunk struct {
	Type ChunkType
	Data []byte
}

// Synthesizer converts text to a stream of chunks. The returned channel is
// closed when synthesis completes; a synthesis failure after streaming has
// begun surfaces as a closed channel with no further audio, and the overall
// error is reported by Err on the stream handle where implementations
// provide one.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, voice string) (<-chan Chunk, error)
}

// Collect drains a chunk stream and concatenates the audio chunks into one
// MP3 buffer. It returns an error when the context ends before the stream
// closes or when no audio arrived at all.
func Collect(ctx context.Context, chunks <-chan Chunk) ([]byte, error) {
	var buf []byte
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case chunk, ok := <-chunks:
			if !ok {
				if len(buf) == 0 {
					return nil, fmt.Errorf("synthesis produced no audio")
				}
				return buf, nil
			}
			if chunk.Type == ChunkAudio {
				buf = append(buf, chunk.Data...)
			}
		}
	}
}
