// Package edge implements a Synthesizer backed by the Microsoft Edge
// read-aloud service. The service speaks a websocket protocol: a JSON
// speech.config message, an SSML request, then a stream of text control
// frames and binary frames whose payload is MP3 audio.
package edge

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/jihoonkang/voice-agent-go/pkg/ai"
	"github.com/jihoonkang/voice-agent-go/pkg/ai/tts"
)

const (
	endpoint     = "wss://speech.platform.bing.com/consumer/speech/synthesize/readaloud/edge/v1"
	trustedToken = "6A5AA1D4EAFF4E9FB37E23D68491D6F4"

	// outputFormat matches the playback path: the pipeline decodes MP3 and
	// publishes 24 kHz mono.
	outputFormat = "audio-24khz-48kbitrate-mono-mp3"

	handshakeTimeout = 10 * time.Second
)

// Synthesizer streams MP3 audio from the Edge read-aloud service.
type Synthesizer struct {
	dialer *websocket.Dialer
}

// New creates an Edge TTS synthesizer.
func New() *Synthesizer {
	dialer := *websocket.DefaultDialer
	dialer.HandshakeTimeout = handshakeTimeout
	return &Synthesizer{dialer: &dialer}
}

// Synthesize implements tts.Synthesizer. The returned channel closes when the
// service signals turn.end or the connection drops.
func (s *Synthesizer) Synthesize(ctx context.Context, text, voice string) (<-chan tts.Chunk, error) {
	url := fmt.Sprintf("%s?TrustedClientToken=%s&ConnectionId=%s", endpoint, trustedToken, newID())

	conn, _, err := s.dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, ai.NewRecoverableError(err, "edge tts connect failed")
	}

	if err := conn.WriteMessage(websocket.TextMessage, speechConfigMessage()); err != nil {
		conn.Close()
		return nil, ai.NewRecoverableError(err, "edge tts config write failed")
	}
	if err := conn.WriteMessage(websocket.TextMessage, ssmlMessage(text, voice)); err != nil {
		conn.Close()
		return nil, ai.NewRecoverableError(err, "edge tts ssml write failed")
	}

	chunks := make(chan tts.Chunk, 16)
	go func() {
		defer close(chunks)
		defer conn.Close()

		done := make(chan struct{})
		defer close(done)
		go func() {
			select {
			case <-ctx.Done():
				conn.Close() // unblocks ReadMessage
			case <-done:
			}
		}()

		for {
			msgType, payload, err := conn.ReadMessage()
			if err != nil {
				return
			}
			switch msgType {
			case websocket.TextMessage:
				if strings.Contains(string(payload), "Path:turn.end") {
					return
				}
			case websocket.BinaryMessage:
				audio, ok := binaryAudioPayload(payload)
				if !ok {
					continue
				}
				select {
				case chunks <- tts.Chunk{Type: tts.ChunkAudio, Data: audio}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return chunks, nil
}

// binaryAudioPayload strips the header block of a binary frame: two
// big-endian length bytes, then headers, then audio. Only frames whose
// headers carry Path:audio contain playable bytes.
func binaryAudioPayload(frame []byte) ([]byte, bool) {
	if len(frame) < 2 {
		return nil, false
	}
	headerLen := int(binary.BigEndian.Uint16(frame[:2]))
	if len(frame) < 2+headerLen {
		return nil, false
	}
	headers := string(frame[2 : 2+headerLen])
	if !strings.Contains(headers, "Path:audio") {
		return nil, false
	}
	return frame[2+headerLen:], true
}

func speechConfigMessage() []byte {
	config := `{"context":{"synthesis":{"audio":{"metadataoptions":` +
		`{"sentenceBoundaryEnabled":"false","wordBoundaryEnabled":"false"},` +
		`"outputFormat":"` + outputFormat + `"}}}}`
	return []byte("X-Timestamp:" + timestamp() + "\r\n" +
		"Content-Type:application/json; charset=utf-8\r\n" +
		"Path:speech.config\r\n\r\n" + config)
}

func ssmlMessage(text, voice string) []byte {
	ssml := `<speak version='1.0' xmlns='http://www.w3.org/2001/10/synthesis' xml:lang='en-US'>` +
		`<voice name='` + voice + `'>` + escapeText(text) + `</voice></speak>`
	return []byte("X-RequestId:" + newID() + "\r\n" +
		"Content-Type:application/ssml+xml\r\n" +
		"X-Timestamp:" + timestamp() + "\r\n" +
		"Path:ssml\r\n\r\n" + ssml)
}

var textEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

func escapeText(text string) string {
	return textEscaper.Replace(text)
}

func timestamp() string {
	return time.Now().UTC().Format("Mon Jan 02 2006 15:04:05 GMT+0000 (Coordinated Universal Time)")
}

func newID() string {
	var b [16]byte
	rand.Read(b[:])
	return hex.EncodeToString(b[:])
}
