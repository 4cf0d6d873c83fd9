// Package tts synthesizes speech through the user-configured provider and
// normalizes whatever comes back into a playable audio container.
package tts

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/quicktrans/quicktransd/internal/audio"
	"github.com/quicktrans/quicktransd/internal/models"
	"github.com/quicktrans/quicktransd/internal/observability"
	"github.com/quicktrans/quicktransd/internal/settings"
	"github.com/quicktrans/quicktransd/internal/sse"
)

const defaultTimeout = 30 * time.Second

// ErrEmptyText rejects blank input before any provider call. Routes 400
// blank text first, so only direct callers see it.
var ErrEmptyText = errors.New("tts: text is required")

const (
	ProviderQwen   = "qwen"
	ProviderOpenAI = "openai"
)

// Settings is the slice of the settings service this package needs.
type Settings interface {
	ActiveTTSConfig(ctx context.Context) (settings.TTSConfig, error)
}

type Service struct {
	httpClient *http.Client
	settings   Settings
	metrics    *observability.Provider
	timeout    time.Duration
}

type Options struct {
	HTTPClient *http.Client
	Timeout    time.Duration
}

func NewService(st Settings, m *observability.Provider, opts Options) *Service {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Service{httpClient: httpClient, settings: st, metrics: m, timeout: timeout}
}

// Synthesize renders text as audio using the active TTS configuration. The
// returned bytes are always a playable container: raw PCM from the provider
// is wrapped into WAV before it leaves this package.
func (s *Service) Synthesize(ctx context.Context, text string) (*models.SpeechResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyText
	}

	cfg, err := s.settings.ActiveTTSConfig(ctx)
	if errors.Is(err, settings.ErrNotFound) {
		return nil, models.NewAPIError(models.CodeNoTTSConfig, "no active tts configuration; add one in settings")
	}
	if err != nil {
		return nil, models.NewAPIError(models.CodeUnknown, "load tts configuration: "+err.Error())
	}

	return s.SynthesizeWith(ctx, cfg, text)
}

// SynthesizeWith runs one synthesis against an explicit configuration. The
// settings connectivity test uses it with a candidate config before saving.
func (s *Service) SynthesizeWith(ctx context.Context, cfg settings.TTSConfig, text string) (*models.SpeechResult, error) {
	provider := cfg.Provider
	if provider == "" {
		provider = ProviderQwen
	}

	start := time.Now()
	var (
		raw []byte
		err error
	)
	switch provider {
	case ProviderQwen:
		raw, err = s.synthesizeQwen(ctx, cfg, text)
	case ProviderOpenAI:
		raw, err = s.synthesizeOpenAI(ctx, cfg, text)
	default:
		return nil, models.NewAPIError(models.CodeUnsupportedProvider, "unsupported tts provider: "+provider)
	}
	if err != nil {
		s.metrics.RecordUpstream("tts", string(models.ErrorCodeOf(err)), time.Since(start))
		return nil, err
	}
	s.metrics.RecordUpstream("tts", "ok", time.Since(start))

	format := audio.Detect(raw)
	if format == audio.FormatPCM {
		// Headerless PCM cannot be played directly; give it a WAV header.
		raw = audio.WrapPCM(raw)
		format = audio.FormatWAV
	}
	return &models.SpeechResult{
		Bytes:       raw,
		Format:      string(format),
		ContentType: audio.ContentType(format),
	}, nil
}

// qwenFrame is one DashScope SSE payload. Audio arrives base64-encoded in
// fragments that concatenate into the full clip.
type qwenFrame struct {
	Output struct {
		Audio struct {
			Data string `json:"data"`
		} `json:"audio"`
		FinishReason string `json:"finish_reason"`
	} `json:"output"`
}

func (s *Service) synthesizeQwen(ctx context.Context, cfg settings.TTSConfig, text string) ([]byte, error) {
	model := cfg.Model
	if model == "" {
		model = "qwen3-tts-flash"
	}
	voice := cfg.Voice
	if voice == "" {
		voice = "Cherry"
	}
	body, err := json.Marshal(map[string]any{
		"model": model,
		"input": map[string]any{
			"text":  text,
			"voice": voice,
		},
	})
	if err != nil {
		return nil, models.NewAPIError(models.CodeUnknown, "encode request: "+err.Error())
	}

	resp, err := s.post(ctx, cfg, body, map[string]string{"X-DashScope-SSE": "enable"})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, statusError(resp)
	}

	var (
		decoder  sse.Decoder
		segments []string
		buf      = make([]byte, 4096)
	)
	collect := func(payloads []string) {
		for _, payload := range payloads {
			var frame qwenFrame
			if err := json.Unmarshal([]byte(payload), &frame); err != nil {
				slog.Warn("skipping malformed tts frame", slog.String("error", err.Error()))
				continue
			}
			if frame.Output.Audio.Data != "" {
				segments = append(segments, frame.Output.Audio.Data)
			}
		}
	}
	for {
		n, err := resp.Body.Read(buf)
		if n > 0 {
			collect(decoder.Feed(buf[:n]))
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return nil, models.NewAPIError(models.CodeTimeout, "tts request timed out")
			}
			return nil, models.NewAPIError(models.CodeStreamError, "tts stream read failed: "+err.Error())
		}
	}
	collect(decoder.Flush())

	if len(segments) == 0 {
		return nil, models.NewAPIError(models.CodeInvalidResponse, "tts stream carried no audio data")
	}
	raw, err := base64.StdEncoding.DecodeString(strings.Join(segments, ""))
	if err != nil {
		// Bad base64 must surface, not pass through as fake PCM.
		return nil, models.NewAPIError(models.CodeInvalidResponse, "tts audio payload is not valid base64")
	}
	return raw, nil
}

func (s *Service) synthesizeOpenAI(ctx context.Context, cfg settings.TTSConfig, text string) ([]byte, error) {
	model := cfg.Model
	if model == "" {
		model = "tts-1"
	}
	voice := cfg.Voice
	if voice == "" {
		voice = "alloy"
	}
	format := cfg.Format
	if format == "" {
		format = string(audio.FormatMP3)
	}
	body, err := json.Marshal(map[string]any{
		"model":           model,
		"input":           text,
		"voice":           voice,
		"response_format": format,
	})
	if err != nil {
		return nil, models.NewAPIError(models.CodeUnknown, "encode request: "+err.Error())
	}

	resp, err := s.post(ctx, cfg, body, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, statusError(resp)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, models.NewAPIError(models.CodeTimeout, "tts request timed out")
		}
		return nil, models.NewAPIError(models.CodeStreamError, "tts response read failed: "+err.Error())
	}
	if len(raw) == 0 {
		return nil, models.NewAPIError(models.CodeInvalidResponse, "tts response carried no audio data")
	}
	return raw, nil
}

func (s *Service) post(ctx context.Context, cfg settings.TTSConfig, body []byte, headers map[string]string) (*http.Response, error) {
	reqCtx, cancel := context.WithTimeout(ctx, s.timeout)
	endpoint := strings.TrimRight(cfg.Endpoint, "/")
	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		cancel()
		return nil, models.NewAPIError(models.CodeAPIError, "build request: "+err.Error())
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+cfg.APIKey)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		cancel()
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, models.NewAPIError(models.CodeTimeout, "tts request timed out")
		}
		return nil, models.NewAPIError(models.CodeNetworkError, "tts request failed: "+err.Error())
	}
	// The cancel travels with the body so the deadline covers the stream.
	resp.Body = &cancelingBody{ReadCloser: resp.Body, cancel: cancel}
	return resp, nil
}

type cancelingBody struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (b *cancelingBody) Close() error {
	err := b.ReadCloser.Close()
	b.cancel()
	return err
}

func statusError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 8192))
	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return models.NewAPIError(models.CodeInvalidAPIKey, "api key rejected by provider")
	case http.StatusTooManyRequests:
		return models.NewAPIError(models.CodeRateLimit, "provider rate limit exceeded; retry later")
	case http.StatusInternalServerError, http.StatusServiceUnavailable:
		return models.NewAPIError(models.CodeServiceUnavailable, "provider temporarily unavailable")
	}

	var payload struct {
		Message string `json:"message"`
		Error   struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	message := fmt.Sprintf("provider returned status %d", resp.StatusCode)
	if err := json.Unmarshal(raw, &payload); err == nil {
		if payload.Message != "" {
			message = payload.Message
		} else if payload.Error.Message != "" {
			message = payload.Error.Message
		}
	}
	return models.NewAPIError(models.CodeAPIError, message)
}
