// Package job wraps the LiveKit room for one agent job: audio-only
// subscription to remote participants, the published agent voice track, and
// reliable data-channel delivery.
package job

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/livekit/protocol/livekit"
	lksdk "github.com/livekit/server-sdk-go"
	"github.com/pion/webrtc/v3"

	"github.com/jihoonkang/voice-agent-go/pkg/rtc"
)

// VoiceTrackName labels the agent's published audio track.
const VoiceTrackName = "agent-voice"

// AudioTrackHandler receives the frame stream of one subscribed remote audio
// track. The channel closes when the track ends. Handlers run on their own
// goroutine.
type AudioTrackHandler func(participant string, frames <-chan *rtc.AudioFrame)

// Config identifies the room and the agent.
type Config struct {
	URL       string
	APIKey    string
	APISecret string
	RoomName  string
	Identity  string
}

// shouldSubscribe decides whether a published remote track feeds a pipeline:
// audio tracks only, microphone source only, and never the agent's own
// identity, or TTS output loops straight back into STT.
func shouldSubscribe(kind lksdk.TrackKind, identity, self string, source livekit.TrackSource) bool {
	if kind != lksdk.TrackKindAudio {
		return false
	}
	if identity == self {
		return false
	}
	return source == livekit.TrackSource_MICROPHONE
}

// Room is a connected LiveKit room.
type Room struct {
	cfg    Config
	lkroom *lksdk.Room
	source *AudioSource
	logger *slog.Logger
}

// Connect joins the room with audio-only subscription: microphone tracks
// from other participants are subscribed as they appear, everything else is
// ignored. onTrack fires once per subscribed audio track.
func Connect(cfg Config, onTrack AudioTrackHandler, logger *slog.Logger) (*Room, error) {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Room{cfg: cfg, logger: logger}

	callback := &lksdk.RoomCallback{
		OnParticipantConnected: func(rp *lksdk.RemoteParticipant) {
			logger.Info("participant connected", slog.String("identity", rp.Identity()))
		},
		OnParticipantDisconnected: func(rp *lksdk.RemoteParticipant) {
			logger.Info("participant disconnected", slog.String("identity", rp.Identity()))
		},
		ParticipantCallback: lksdk.ParticipantCallback{
			OnTrackPublished: func(publication *lksdk.RemoteTrackPublication, rp *lksdk.RemoteParticipant) {
				if !shouldSubscribe(publication.Kind(), rp.Identity(), cfg.Identity, publication.Source()) {
					logger.Debug("skipping track",
						slog.String("identity", rp.Identity()),
						slog.String("kind", string(publication.Kind())),
						slog.String("source", publication.Source().String()))
					return
				}
				if err := publication.SetSubscribed(true); err != nil {
					logger.Error("subscribe failed",
						slog.String("identity", rp.Identity()),
						slog.String("error", err.Error()))
				}
			},
			OnTrackSubscribed: func(track *webrtc.TrackRemote, publication *lksdk.RemoteTrackPublication, rp *lksdk.RemoteParticipant) {
				if track.Kind() != webrtc.RTPCodecTypeAudio {
					return
				}
				logger.Info("audio track subscribed",
					slog.String("identity", rp.Identity()),
					slog.String("sid", publication.SID()))

				frames := make(chan *rtc.AudioFrame, 32)
				go readTrack(track, frames, logger.With(slog.String("identity", rp.Identity())))
				go onTrack(rp.Identity(), frames)
			},
			OnTrackUnsubscribed: func(track *webrtc.TrackRemote, publication *lksdk.RemoteTrackPublication, rp *lksdk.RemoteParticipant) {
				logger.Info("audio track unsubscribed",
					slog.String("identity", rp.Identity()),
					slog.String("sid", publication.SID()))
			},
		},
	}

	// Auto-subscribe would pull every remote track, video included; the
	// mic-only filter in OnTrackPublished decides what we actually take.
	lkroom, err := lksdk.ConnectToRoom(cfg.URL, lksdk.ConnectInfo{
		APIKey:              cfg.APIKey,
		APISecret:           cfg.APISecret,
		RoomName:            cfg.RoomName,
		ParticipantIdentity: cfg.Identity,
		ParticipantName:     cfg.Identity,
	}, callback, lksdk.WithAutoSubscribe(false))
	if err != nil {
		return nil, fmt.Errorf("connect to room: %w", err)
	}

	r.lkroom = lkroom
	logger.Info("connected to room", slog.String("room", lkroom.Name()))
	return r, nil
}

// PublishVoiceTrack publishes the agent's outbound audio track backed by
// source. The track is labeled as a microphone so browsers treat it as a
// voice stream.
func (r *Room) PublishVoiceTrack(source *AudioSource) error {
	track, err := lksdk.NewLocalSampleTrack(webrtc.RTPCodecCapability{
		MimeType: webrtc.MimeTypeOpus,
	})
	if err != nil {
		return fmt.Errorf("create local track: %w", err)
	}
	if err := track.StartWrite(source, func() {
		r.logger.Debug("voice track write completed")
	}); err != nil {
		return fmt.Errorf("start track write: %w", err)
	}

	publication, err := r.lkroom.LocalParticipant.PublishTrack(track, &lksdk.TrackPublicationOptions{
		Name:   VoiceTrackName,
		Source: livekit.TrackSource_MICROPHONE,
	})
	if err != nil {
		return fmt.Errorf("publish voice track: %w", err)
	}

	r.source = source
	r.logger.Info("published voice track", slog.String("sid", publication.SID()))
	return nil
}

// PublishData sends one payload on the data channel with reliable delivery
// to all participants.
func (r *Room) PublishData(ctx context.Context, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return r.lkroom.LocalParticipant.PublishData(payload, livekit.DataPacket_RELIABLE, nil)
}

// Name returns the connected room name.
func (r *Room) Name() string {
	return r.lkroom.Name()
}

// Disconnect closes the audio source and leaves the room.
func (r *Room) Disconnect() {
	if r.source != nil {
		r.source.Close()
	}
	r.lkroom.Disconnect()
}
