package job

import (
	"log/slog"
	"time"

	"github.com/hraban/opus"
	"github.com/pion/webrtc/v3"

	"github.com/jihoonkang/voice-agent-go/pkg/rtc"
)

// remoteTrackRate is the decode rate for browser-published Opus audio.
const remoteTrackRate = 48000

// maxOpusFrameSamples holds up to 120 ms at 48 kHz, the largest Opus frame.
const maxOpusFrameSamples = 5760

// readTrack decodes a remote Opus track into PCM frames until the track
// ends, then closes out.
func readTrack(track *webrtc.TrackRemote, out chan<- *rtc.AudioFrame, logger *slog.Logger) {
	defer close(out)

	decoder, err := opus.NewDecoder(remoteTrackRate, 1)
	if err != nil {
		logger.Error("create opus decoder failed", slog.String("error", err.Error()))
		return
	}

	pcm := make([]int16, maxOpusFrameSamples)
	for {
		pkt, _, err := track.ReadRTP()
		if err != nil {
			logger.Debug("audio track ended", slog.String("error", err.Error()))
			return
		}
		if len(pkt.Payload) == 0 {
			continue
		}

		n, err := decoder.Decode(pkt.Payload, pcm)
		if err != nil {
			logger.Warn("opus decode failed", slog.String("error", err.Error()))
			continue
		}
		if n == 0 {
			continue
		}

		out <- rtc.FrameFromInt16(pcm[:n], remoteTrackRate, 1, time.Now())
	}
}
