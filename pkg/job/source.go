package job

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/pion/webrtc/v3/pkg/media"

	"github.com/jihoonkang/voice-agent-go/pkg/rtc"
)

// AudioSource queues outbound playback frames and feeds them to the
// published track through the SDK's sample-provider pull loop. It is the
// pipeline's audio sink.
type AudioSource struct {
	queue  chan media.Sample
	mu     sync.Mutex
	closed bool
}

// NewAudioSource creates a source with room for about two seconds of 20 ms
// frames.
func NewAudioSource() *AudioSource {
	return &AudioSource{queue: make(chan media.Sample, 100)}
}

// WriteFrame queues one PCM frame for publication. It blocks briefly when
// the track writer falls behind rather than dropping agent speech.
func (s *AudioSource) WriteFrame(frame *rtc.AudioFrame) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return fmt.Errorf("audio source closed")
	}
	s.mu.Unlock()

	sample := media.Sample{
		Data:     frame.Data,
		Duration: frame.Duration(),
	}
	select {
	case s.queue <- sample:
		return nil
	case <-time.After(time.Second):
		return fmt.Errorf("audio source queue full")
	}
}

// NextSample implements the track sample provider.
func (s *AudioSource) NextSample(ctx context.Context) (media.Sample, error) {
	select {
	case <-ctx.Done():
		return media.Sample{}, ctx.Err()
	case sample, ok := <-s.queue:
		if !ok {
			return media.Sample{}, io.EOF
		}
		return sample, nil
	}
}

// OnBind implements the track sample provider.
func (s *AudioSource) OnBind() error { return nil }

// OnUnbind implements the track sample provider.
func (s *AudioSource) OnUnbind() error { return nil }

// Close stops the source; a pending NextSample returns io.EOF.
func (s *AudioSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.queue)
	}
	return nil
}
