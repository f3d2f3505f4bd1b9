package job

import (
	"context"
	"errors"
	"testing"

	"github.com/livekit/protocol/livekit"
	lksdk "github.com/livekit/server-sdk-go"
)

func TestShouldSubscribe(t *testing.T) {
	const self = "voice-agent"

	tests := []struct {
		name     string
		kind     lksdk.TrackKind
		identity string
		source   livekit.TrackSource
		want     bool
	}{
		{"participant microphone", lksdk.TrackKindAudio, "user-1", livekit.TrackSource_MICROPHONE, true},
		{"video track", lksdk.TrackKindVideo, "user-1", livekit.TrackSource_CAMERA, false},
		{"own voice track", lksdk.TrackKindAudio, self, livekit.TrackSource_MICROPHONE, false},
		{"screen share audio", lksdk.TrackKindAudio, "user-1", livekit.TrackSource_SCREEN_SHARE_AUDIO, false},
		{"screen share video", lksdk.TrackKindVideo, "user-1", livekit.TrackSource_SCREEN_SHARE, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := shouldSubscribe(tt.kind, tt.identity, self, tt.source)
			if got != tt.want {
				t.Errorf("shouldSubscribe = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPublishDataRejectsDoneContext(t *testing.T) {
	r := &Room{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := r.PublishData(ctx, []byte(`{"type":"transcription"}`))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
}
