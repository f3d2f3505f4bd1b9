// Package whisper provides a Transcriber backed by a running whisper-server
// binary (the whisper.cpp REST frontend). Audio is submitted as a 16-bit WAV
// through POST /inference; the server answers with the recognized text.
//
// whisper.cpp is a batch engine, so every call is one full inference. Model
// size, device and compute type describe how the server was started and are
// carried for metric labels only.
package whisper

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/jihoonkang/voice-agent-go/pkg/ai"
	"github.com/jihoonkang/voice-agent-go/pkg/ai/stt"
	"github.com/jihoonkang/voice-agent-go/pkg/audio"
	"github.com/jihoonkang/voice-agent-go/pkg/audio/wav"
)

// Config parameterizes the client.
type Config struct {
	ServerURL   string // e.g. http://localhost:8178
	ModelSize   string // base, small, medium, ... (label only)
	Device      string // cpu, cuda (label only)
	ComputeType string // int8, float16 (label only)
	Timeout     time.Duration
}

// Client is a whisper-server REST client. Safe for concurrent use; wrap it in
// an stt.Executor to bound server load.
type Client struct {
	cfg    Config
	client *http.Client
}

// New creates a whisper-server client.
func New(cfg Config) (*Client, error) {
	if cfg.ServerURL == "" {
		return nil, fmt.Errorf("whisper: server URL must not be empty")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 120 * time.Second
	}
	cfg.ServerURL = strings.TrimRight(cfg.ServerURL, "/")
	return &Client{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// Prewarm checks that the server is reachable so that the first real turn
// does not pay for connection setup or model paging.
func (c *Client) Prewarm(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.ServerURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return ai.NewRecoverableError(err, "whisper server unreachable")
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	return nil
}

type inferenceResponse struct {
	Text  string `json:"text"`
	Error string `json:"error"`
}

// Transcribe implements stt.Transcriber. samples must be mono float32 at
// audio.STTSampleRate.
func (c *Client) Transcribe(ctx context.Context, samples []float32, opts stt.Options) (stt.Result, error) {
	pcm := make([]int16, len(samples))
	for i, s := range samples {
		v := s * 32768.0
		switch {
		case v > 32767:
			pcm[i] = 32767
		case v < -32768:
			pcm[i] = -32768
		default:
			pcm[i] = int16(v)
		}
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "segment.wav")
	if err != nil {
		return stt.Result{}, fmt.Errorf("whisper: build request: %w", err)
	}
	if _, err := part.Write(wav.Encode(pcm, audio.STTSampleRate, 1)); err != nil {
		return stt.Result{}, fmt.Errorf("whisper: build request: %w", err)
	}

	// whisper-server's /inference form accepts language, beam_size and
	// no_context; it exposes no vad_filter or log-probability parameters, so
	// Options.VADFilter and Options.LogProbThreshold cannot be forwarded.
	// The pipeline's defaults (VAD off, threshold -2.0) coincide with the
	// server's own behavior.
	fields := map[string]string{
		"response_format": "json",
		"language":        opts.Language,
		"beam_size":       strconv.Itoa(opts.BeamSize),
		"no_context":      strconv.FormatBool(!opts.ConditionOnPreviousText),
	}
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return stt.Result{}, fmt.Errorf("whisper: build request: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return stt.Result{}, fmt.Errorf("whisper: build request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.ServerURL+"/inference", &body)
	if err != nil {
		return stt.Result{}, fmt.Errorf("whisper: build request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return stt.Result{}, ai.NewRecoverableError(err, "whisper inference request failed")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return stt.Result{}, ai.NewRecoverableError(err, "whisper inference read failed")
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return stt.Result{}, ai.NewRecoverableError(
			fmt.Errorf("status %d: %s", resp.StatusCode, raw), "whisper inference rejected")
	}

	var parsed inferenceResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return stt.Result{}, fmt.Errorf("whisper: decode response: %w", err)
	}
	if parsed.Error != "" {
		return stt.Result{}, ai.NewRecoverableError(fmt.Errorf("%s", parsed.Error), "whisper inference error")
	}

	result := stt.Result{Info: stt.Info{Language: opts.Language}}
	if text := strings.TrimSpace(parsed.Text); text != "" {
		result.Segments = []stt.Segment{{Text: text}}
	}
	return result, nil
}

// ModelName implements stt.Transcriber.
func (c *Client) ModelName() string { return c.cfg.ModelSize }
