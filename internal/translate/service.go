// Package translate orchestrates translation and dictionary lookups against
// the user-configured OpenAI-compatible endpoint: language detection, cache
// short-circuits, the upstream call with its closed error taxonomy, and
// post-success bookkeeping.
package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/quicktrans/quicktransd/internal/cache"
	"github.com/quicktrans/quicktransd/internal/langdetect"
	"github.com/quicktrans/quicktransd/internal/llm"
	"github.com/quicktrans/quicktransd/internal/models"
	"github.com/quicktrans/quicktransd/internal/observability"
	"github.com/quicktrans/quicktransd/internal/settings"
	"github.com/quicktrans/quicktransd/internal/usage"
)

const defaultTimeout = 30 * time.Second

// Input validation sentinels. Routes reject blank input with a 400 before
// reaching the service, so these only surface to direct callers.
var (
	ErrEmptyText = errors.New("translate: text is required")
	ErrEmptyWord = errors.New("translate: word is required")
)

// Settings is the slice of the settings service this package needs.
type Settings interface {
	ActiveAPIConfig(ctx context.Context) (settings.APIConfig, error)
}

// Service executes translation and dictionary requests. Each call builds
// its own stream reader, so one Service serves concurrent requests.
type Service struct {
	httpClient *http.Client
	settings   Settings
	cache      *cache.ResultCache
	usage      *usage.Service
	metrics    *observability.Provider

	timeout   time.Duration
	maxTokens int
}

// Options tune the service; zero values fall back to sane defaults.
type Options struct {
	HTTPClient *http.Client
	Timeout    time.Duration
	MaxTokens  int
}

func NewService(st Settings, c *cache.ResultCache, u *usage.Service, m *observability.Provider, opts Options) *Service {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 2000
	}
	return &Service{
		httpClient: httpClient,
		settings:   st,
		cache:      c,
		usage:      u,
		metrics:    m,
		timeout:    timeout,
		maxTokens:  maxTokens,
	}
}

// Translate renders req.Text in the target language. onDelta, when non-nil,
// receives every streamed increment; cached and same-language results never
// invoke it.
func (s *Service) Translate(ctx context.Context, req models.TranslateRequest, onDelta models.DeltaFunc) (*models.TranslateResult, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, ErrEmptyText
	}

	source := req.SourceLanguage
	if source == "" {
		source = langdetect.Detect(text)
	}
	if source == req.TargetLanguage {
		return &models.TranslateResult{
			TranslatedText:   text,
			DetectedLanguage: source,
			Message:          "source and target language are the same",
		}, nil
	}

	cacheKey := cache.TranslationKey(text, req.TargetLanguage)
	if cached, ok := s.cache.GetTranslation(ctx, cacheKey); ok {
		s.metrics.RecordCacheHit("translate")
		return &models.TranslateResult{
			TranslatedText:   cached,
			DetectedLanguage: source,
			Cached:           true,
		}, nil
	}

	cfg, err := s.activeConfig(ctx)
	if err != nil {
		return nil, err
	}

	targetName := langdetect.Name(req.TargetLanguage)
	systemPrompt := fmt.Sprintf(`You are a professional translator. Translate the user's text into %s.
Rules:
1. Return only the translation, with no explanation or commentary.
2. Preserve the tone and register of the original.
3. Translate technical terms precisely.
4. Keep the original formatting, including line breaks and paragraphs.`, targetName)
	userPrompt := fmt.Sprintf("Translate the following %s text into %s:\n\n%s",
		langdetect.Name(source), targetName, text)

	result, err := s.complete(ctx, "translate", cfg, systemPrompt, userPrompt, onDelta)
	if err != nil {
		return nil, err
	}

	s.cache.PutTranslation(ctx, cacheKey, result.FullText)
	s.recordUsage(ctx, result.Usage)

	return &models.TranslateResult{
		TranslatedText:   result.FullText,
		DetectedLanguage: source,
		Model:            cfg.Model,
		Usage:            result.Usage,
	}, nil
}

// LookupWord explains a single word dictionary-style, optionally scoped to
// the sentence it appeared in. With context the response also carries a
// translation of the whole sentence, extracted from the definition body.
func (s *Service) LookupWord(ctx context.Context, req models.DictionaryRequest, onDelta models.DeltaFunc) (*models.DictionaryResult, error) {
	word := strings.TrimSpace(req.Word)
	if word == "" {
		return nil, ErrEmptyWord
	}
	sentence := strings.TrimSpace(req.Context)

	cacheKey := cache.DictionaryKey(word)
	if sentence != "" {
		cacheKey = cache.DictionaryContextKey(word, sentence)
	}
	if entry, ok := s.cache.GetDictionaryEntry(ctx, cacheKey); ok {
		s.metrics.RecordCacheHit("dictionary")
		return &models.DictionaryResult{
			Word:               word,
			Definition:         entry.Definition,
			ContextTranslation: entry.ContextTranslation,
			Cached:             true,
		}, nil
	}

	cfg, err := s.activeConfig(ctx)
	if err != nil {
		return nil, err
	}

	systemPrompt, userPrompt := dictionaryPrompts(word, sentence)
	result, err := s.complete(ctx, "dictionary", cfg, systemPrompt, userPrompt, onDelta)
	if err != nil {
		return nil, err
	}

	entry := models.DictionaryEntry{Definition: result.FullText}
	if sentence != "" {
		entry.ContextTranslation = extractContextTranslation(result.FullText)
	}
	s.cache.PutDictionaryEntry(ctx, cacheKey, entry)
	s.recordUsage(ctx, result.Usage)

	return &models.DictionaryResult{
		Word:               word,
		Definition:         entry.Definition,
		ContextTranslation: entry.ContextTranslation,
		Model:              cfg.Model,
		Usage:              result.Usage,
	}, nil
}

// TestConfig issues a minimal completion against cfg to verify the endpoint,
// key and model all work together.
func (s *Service) TestConfig(ctx context.Context, cfg settings.APIConfig) error {
	_, err := s.complete(ctx, "config-test", cfg,
		"You are a professional translator. Translate the user's text into Chinese. Return only the translation.",
		"Translate the following text into Chinese: Hello", nil)
	return err
}

func (s *Service) activeConfig(ctx context.Context) (settings.APIConfig, error) {
	cfg, err := s.settings.ActiveAPIConfig(ctx)
	if errors.Is(err, settings.ErrNotFound) {
		return settings.APIConfig{}, models.NewAPIError(models.CodeNoAPIConfig, "no active api configuration; add one in settings")
	}
	if err != nil {
		return settings.APIConfig{}, models.NewAPIError(models.CodeUnknown, "load api configuration: "+err.Error())
	}
	return cfg, nil
}

// complete performs one chat completion round trip. Streaming is keyed off
// the presence of onDelta, mirroring the wire contract: subscribers get
// deltas, everyone gets the terminal result.
func (s *Service) complete(ctx context.Context, kind string, cfg settings.APIConfig, systemPrompt, userPrompt string, onDelta models.DeltaFunc) (models.StreamResult, error) {
	stream := onDelta != nil
	chatReq := models.ChatRequest{
		Model: cfg.Model,
		Messages: []models.ChatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Temperature: cfg.Temperature,
		MaxTokens:   s.requestMaxTokens(cfg),
		Stream:      stream,
	}
	if stream {
		chatReq.StreamOptions = &models.StreamOptions{IncludeUsage: true}
	}
	body, err := json.Marshal(chatReq)
	if err != nil {
		return models.StreamResult{}, models.NewAPIError(models.CodeUnknown, "encode request: "+err.Error())
	}

	reqCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(reqCtx, http.MethodPost, cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return models.StreamResult{}, models.NewAPIError(models.CodeAPIError, "build request: "+err.Error())
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+cfg.APIKey)

	start := time.Now()
	resp, err := s.httpClient.Do(httpReq)
	if err != nil {
		apiErr := transportError(reqCtx, err)
		s.metrics.RecordUpstream(kind, string(models.ErrorCodeOf(apiErr)), time.Since(start))
		return models.StreamResult{}, apiErr
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := statusError(resp)
		s.metrics.RecordUpstream(kind, string(models.ErrorCodeOf(apiErr)), time.Since(start))
		return models.StreamResult{}, apiErr
	}

	var result models.StreamResult
	if stream {
		result, err = llm.NewStreamReader(onDelta).ReadAll(resp.Body)
		if err != nil {
			// A deadline that fires mid-stream surfaces as a read error.
			if reqCtx.Err() != nil {
				err = timeoutError(reqCtx)
			}
			s.metrics.RecordUpstream(kind, string(models.ErrorCodeOf(err)), time.Since(start))
			return models.StreamResult{}, err
		}
		if result.FullText == "" {
			err = models.NewAPIError(models.CodeInvalidResponse, "stream carried no content")
			s.metrics.RecordUpstream(kind, string(models.ErrorCodeOf(err)), time.Since(start))
			return models.StreamResult{}, err
		}
	} else {
		raw, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			err = transportError(reqCtx, readErr)
			s.metrics.RecordUpstream(kind, string(models.ErrorCodeOf(err)), time.Since(start))
			return models.StreamResult{}, err
		}
		content, u, parseErr := llm.ParseResponse(raw)
		if parseErr != nil {
			s.metrics.RecordUpstream(kind, string(models.ErrorCodeOf(parseErr)), time.Since(start))
			return models.StreamResult{}, parseErr
		}
		result = models.StreamResult{FullText: strings.TrimSpace(content), Usage: u}
	}

	s.metrics.RecordUpstream(kind, "ok", time.Since(start))
	return result, nil
}

func (s *Service) requestMaxTokens(cfg settings.APIConfig) int {
	if cfg.MaxTokens > 0 {
		return cfg.MaxTokens
	}
	return s.maxTokens
}

func (s *Service) recordUsage(ctx context.Context, u *models.Usage) {
	if s.usage == nil {
		return
	}
	if err := s.usage.Record(ctx, u); err != nil {
		slog.Warn("recording token usage failed", slog.String("error", err.Error()))
	}
	if u != nil {
		s.metrics.RecordTokens(int64(u.PromptTokens), int64(u.CompletionTokens))
	}
}

func timeoutError(ctx context.Context) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return models.NewAPIError(models.CodeTimeout, "upstream request timed out")
	}
	return models.NewAPIError(models.CodeNetworkError, "upstream request canceled")
}

func transportError(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return models.NewAPIError(models.CodeTimeout, "upstream request timed out")
	}
	return models.NewAPIError(models.CodeNetworkError, "upstream request failed: "+err.Error())
}

// statusError maps a non-2xx upstream status onto the error taxonomy,
// carrying the provider's own message through when one is present.
func statusError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 8192))
	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return models.NewAPIError(models.CodeInvalidAPIKey, "api key rejected by provider")
	case http.StatusTooManyRequests:
		return models.NewAPIError(models.CodeRateLimit, "provider rate limit exceeded; retry later or switch configurations")
	case http.StatusInternalServerError, http.StatusServiceUnavailable:
		return models.NewAPIError(models.CodeServiceUnavailable, "provider temporarily unavailable")
	}

	var payload struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	message := fmt.Sprintf("provider returned status %d", resp.StatusCode)
	if err := json.Unmarshal(raw, &payload); err == nil && payload.Error.Message != "" {
		message = payload.Error.Message
	}
	return models.NewAPIError(models.CodeAPIError, message)
}

func dictionaryPrompts(word, sentence string) (string, string) {
	if sentence != "" {
		system := `You are a professional dictionary assistant. Using the given context, provide a detailed dictionary entry for the user's word.

Return in this layout:

## Dictionary entry
1. Phonetic transcription (IPA, e.g. /ˈwɜːd/)
2. Parts of speech with definitions, each listed separately
3. One or two common example sentences with translations

## Context analysis
1. Meaning in context: (what the word means in the given sentence)
2. Sentence translation: (translate the whole context sentence)

Rules:
- Be concise; do not pad.
- Emphasize the usage in the current context.
- Expand briefly for uncommon words.`
		user := fmt.Sprintf("Word: %s\nContext: %s\n\nLook up the word in context and translate the whole sentence.", word, sentence)
		return system, user
	}

	system := `You are a professional dictionary assistant. Provide a detailed dictionary entry for the user's word.

Return in this layout:
1. Phonetic transcription (IPA, e.g. /ˈwɜːd/)
2. Parts of speech with definitions, each listed separately
3. One or two common example sentences with translations

Rules:
- Be concise; do not pad.
- Include translations with the example sentences.
- Expand briefly for uncommon words.`
	return system, "Look up the word: " + word
}

var contextTranslationPatterns = []*regexp.Regexp{
	regexp.MustCompile(`Sentence translation[:：]\s*([^\n]+)`),
	regexp.MustCompile(`Context translation[:：]\s*([^\n]+)`),
	regexp.MustCompile(`Translation[:：]\s*([^\n]+)`),
}

// extractContextTranslation pulls the sentence translation line out of the
// structured definition body. Models drift on labels, so several are tried.
func extractContextTranslation(text string) string {
	for _, pattern := range contextTranslationPatterns {
		if m := pattern.FindStringSubmatch(text); m != nil {
			return strings.TrimSpace(m[1])
		}
	}
	return ""
}
