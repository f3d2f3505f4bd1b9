package tts

import (
	"bytes"
	"context"
	"testing"
)

func TestCollectConcatenatesAudio(t *testing.T) {
	chunks := make(chan Chunk, 4)
	chunks <- Chunk{Type: ChunkAudio, Data: []byte("one")}
	chunks <- Chunk{Type: ChunkMetadata, Data: []byte(`{"word":"x"}`)}
	chunks <- Chunk{Type: ChunkAudio, Data: []byte("two")}
	close(chunks)

	buf, err := Collect(context.Background(), chunks)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(buf, []byte("onetwo")) {
		t.Errorf("buf = %q", buf)
	}
}

func TestCollectNoAudioIsError(t *testing.T) {
	chunks := make(chan Chunk, 1)
	chunks <- Chunk{Type: ChunkMetadata, Data: []byte("{}")}
	close(chunks)

	if _, err := Collect(context.Background(), chunks); err == nil {
		t.Fatal("expected error when no audio arrived")
	}
}

func TestCollectContextCancel(t *testing.T) {
	chunks := make(chan Chunk) // never closed
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := Collect(ctx, chunks); err == nil {
		t.Fatal("expected context error")
	}
}
