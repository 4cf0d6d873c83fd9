package httpserver

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quicktrans/quicktransd/internal/app"
	"github.com/quicktrans/quicktransd/internal/config"
	"github.com/quicktrans/quicktransd/internal/redisclient"
	"github.com/quicktrans/quicktransd/internal/settings"
)

func newTestServer(t *testing.T) (*Server, *app.Container) {
	t.Helper()
	mr := miniredis.RunT(t)

	cfg := &config.Config{}
	cfg.Server.ListenAddr = ":0"
	cfg.Server.BodyLimitMB = 4
	cfg.Redis.URL = mr.Addr()
	cfg.Upstream.RequestTimeout = 5 * time.Second
	cfg.Upstream.DefaultMaxTokens = 100
	cfg.Cache.TTL = time.Hour
	cfg.Observability.EnableMetrics = true

	client := redisclient.New(cfg.Redis)
	t.Cleanup(func() { _ = client.Close() })

	container, err := app.NewContainer(cfg, client)
	require.NoError(t, err)

	server, err := New(container)
	require.NoError(t, err)
	return server, container
}

func jsonRequest(method, target string, body any) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func upstreamChat(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Stream bool `json:"stream"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Stream {
			w.Header().Set("Content-Type", "text/event-stream")
			fmt.Fprint(w, `data: {"choices":[{"delta":{"content":"你"}}]}`+"\n\n")
			fmt.Fprint(w, `data: {"choices":[{"delta":{"content":"好"}}]}`+"\n\n")
			fmt.Fprint(w, `data: {"choices":[],"usage":{"prompt_tokens":9,"completion_tokens":2,"total_tokens":11}}`+"\n\n")
			fmt.Fprint(w, "data: [DONE]\n\n")
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"choices":[{"message":{"content":"你好"}}],"usage":{"prompt_tokens":9,"completion_tokens":2,"total_tokens":11}}`)
	}))
	t.Cleanup(server.Close)
	return server
}

func seedAPIConfig(t *testing.T, container *app.Container, endpoint string) {
	t.Helper()
	_, err := container.Settings.AddAPIConfig(context.Background(), settings.APIConfig{
		Name:     "test",
		Endpoint: endpoint,
		APIKey:   "sk-test",
		Model:    "qwen-turbo",
	})
	require.NoError(t, err)
}

func TestTranslateRoute(t *testing.T) {
	server, container := newTestServer(t)
	seedAPIConfig(t, container, upstreamChat(t).URL)

	resp, err := server.app.Test(jsonRequest(http.MethodPost, "/v1/translate", map[string]any{
		"text":            "Hello",
		"target_language": "zh",
	}), -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Success        bool   `json:"success"`
		TranslatedText string `json:"translatedText"`
		Model          string `json:"model"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.True(t, body.Success)
	assert.Equal(t, "你好", body.TranslatedText)
	assert.Equal(t, "qwen-turbo", body.Model)
}

func TestTranslateRouteStreaming(t *testing.T) {
	server, container := newTestServer(t)
	seedAPIConfig(t, container, upstreamChat(t).URL)

	resp, err := server.app.Test(jsonRequest(http.MethodPost, "/v1/translate", map[string]any{
		"text":            "Hello",
		"target_language": "zh",
		"stream":          true,
	}), -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/event-stream")

	var frames []map[string]any
	sawDone := false
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		payload := strings.TrimPrefix(line, "data: ")
		if payload == "[DONE]" {
			sawDone = true
			continue
		}
		var frame map[string]any
		require.NoError(t, json.Unmarshal([]byte(payload), &frame))
		frames = append(frames, frame)
	}
	require.NoError(t, scanner.Err())
	require.True(t, sawDone, "stream must end with the DONE sentinel")
	require.GreaterOrEqual(t, len(frames), 3)

	assert.Equal(t, "chunk", frames[0]["type"])
	assert.Equal(t, "你", frames[0]["chunk"])
	assert.Equal(t, "你", frames[0]["fullText"])
	assert.Equal(t, "chunk", frames[1]["type"])
	assert.Equal(t, "你好", frames[1]["fullText"])

	final := frames[len(frames)-1]
	assert.Equal(t, "complete", final["type"])
	result := final["result"].(map[string]any)
	assert.Equal(t, true, result["success"])
	assert.Equal(t, "你好", result["translatedText"])
}

func TestTranslateRouteStreamErrorInsideEnvelope(t *testing.T) {
	server, _ := newTestServer(t)

	// No API config saved: the failure must arrive inside the complete
	// frame, not as an HTTP error.
	resp, err := server.app.Test(jsonRequest(http.MethodPost, "/v1/translate", map[string]any{
		"text":            "Hello",
		"target_language": "zh",
		"stream":          true,
	}), -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"type":"complete"`)
	assert.Contains(t, string(raw), `"errorCode":"NO_API_CONFIG"`)
	assert.Contains(t, string(raw), "data: [DONE]")
}

func TestTranslateRouteValidation(t *testing.T) {
	server, _ := newTestServer(t)

	resp, err := server.app.Test(jsonRequest(http.MethodPost, "/v1/translate", map[string]any{
		"target_language": "zh",
	}), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestDictionaryRoute(t *testing.T) {
	server, container := newTestServer(t)
	seedAPIConfig(t, container, upstreamChat(t).URL)

	resp, err := server.app.Test(jsonRequest(http.MethodPost, "/v1/dictionary", map[string]any{
		"word": "hello",
	}), -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Success    bool   `json:"success"`
		Word       string `json:"word"`
		Definition string `json:"definition"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.True(t, body.Success)
	assert.Equal(t, "hello", body.Word)
	assert.Equal(t, "你好", body.Definition)
}

func TestTTSRoute(t *testing.T) {
	pcmServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		// Base64 of 8 PCM bytes, delivered DashScope style.
		fmt.Fprint(w, "data: {\"output\":{\"audio\":{\"data\":\"AQIDBAUGBwg=\"}}}\n\n")
	}))
	defer pcmServer.Close()

	server, container := newTestServer(t)
	_, err := container.Settings.AddTTSConfig(context.Background(), settings.TTSConfig{
		Name:     "qwen",
		Endpoint: pcmServer.URL,
		Provider: "qwen",
	})
	require.NoError(t, err)

	resp, err := server.app.Test(jsonRequest(http.MethodPost, "/v1/tts", map[string]any{"text": "你好"}), -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "audio/wav", resp.Header.Get("Content-Type"))
	assert.Equal(t, "wav", resp.Header.Get("X-Audio-Format"))

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Len(t, raw, 44+8)
	assert.Equal(t, "RIFF", string(raw[:4]))
}

func TestSettingsRoutes(t *testing.T) {
	server, _ := newTestServer(t)

	resp, err := server.app.Test(jsonRequest(http.MethodPost, "/v1/settings/api-configs", map[string]any{
		"name":     "primary",
		"endpoint": "https://api.example.com/v1/chat/completions",
		"apiKey":   "sk-1",
		"model":    "qwen-turbo",
	}), -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created settings.APIConfig
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	assert.True(t, created.Active)
	require.NotEmpty(t, created.ID)

	resp, err = server.app.Test(httptest.NewRequest(http.MethodGet, "/v1/settings/api-configs", nil), -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list struct {
		Configs []settings.APIConfig `json:"configs"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	assert.Len(t, list.Configs, 1)

	resp, err = server.app.Test(httptest.NewRequest(http.MethodDelete, "/v1/settings/api-configs/"+created.ID, nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, err = server.app.Test(httptest.NewRequest(http.MethodDelete, "/v1/settings/api-configs/no-such-id", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestUsageAndCacheRoutes(t *testing.T) {
	server, container := newTestServer(t)
	seedAPIConfig(t, container, upstreamChat(t).URL)

	// One translation populates usage and cache.
	resp, err := server.app.Test(jsonRequest(http.MethodPost, "/v1/translate", map[string]any{
		"text":            "Hello",
		"target_language": "zh",
	}), -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = server.app.Test(httptest.NewRequest(http.MethodGet, "/v1/usage/tokens", nil), -1)
	require.NoError(t, err)
	var totals struct {
		TotalTokens  int64 `json:"totalTokens"`
		RequestCount int64 `json:"requestCount"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&totals))
	assert.EqualValues(t, 11, totals.TotalTokens)
	assert.EqualValues(t, 1, totals.RequestCount)

	resp, err = server.app.Test(httptest.NewRequest(http.MethodGet, "/v1/cache/stats", nil), -1)
	require.NoError(t, err)
	var stats struct {
		TotalCount int `json:"totalCount"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&stats))
	assert.Equal(t, 1, stats.TotalCount)

	resp, err = server.app.Test(httptest.NewRequest(http.MethodDelete, "/v1/cache", nil), -1)
	require.NoError(t, err)
	var cleared struct {
		Deleted int `json:"deleted"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&cleared))
	assert.Equal(t, 1, cleared.Deleted)

	resp, err = server.app.Test(httptest.NewRequest(http.MethodPost, "/v1/usage/tokens/reset", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestLanguagesRoute(t *testing.T) {
	server, _ := newTestServer(t)

	resp, err := server.app.Test(httptest.NewRequest(http.MethodGet, "/v1/languages", nil), -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Languages []struct {
			Code string `json:"code"`
		} `json:"languages"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Len(t, body.Languages, 13)
}

func TestHealthz(t *testing.T) {
	server, _ := newTestServer(t)

	resp, err := server.app.Test(httptest.NewRequest(http.MethodGet, "/healthz", nil), -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Status string `json:"status"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body.Status)
}
