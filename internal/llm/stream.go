// Package llm decodes OpenAI-compatible streaming chat completions into
// ordered text deltas and a terminal usage record.
package llm

import (
	"encoding/json"
	"io"
	"log/slog"

	"github.com/quicktrans/quicktransd/internal/models"
	"github.com/quicktrans/quicktransd/internal/sse"
)

const readChunkSize = 4096

// chunkFrame is the per-frame shape of a streaming chat completion. Only
// the fields this system consumes are declared; everything else is ignored.
type chunkFrame struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
	Usage *models.Usage `json:"usage"`
}

// responseBody is the non-streaming chat completion shape.
type responseBody struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage *models.Usage `json:"usage"`
}

// StreamReader accumulates deltas from one response body. Each reader
// serves exactly one stream; concurrent requests get independent readers.
type StreamReader struct {
	decoder sse.Decoder
	full    []byte
	usage   *models.Usage
	onDelta models.DeltaFunc
}

func NewStreamReader(onDelta models.DeltaFunc) *StreamReader {
	return &StreamReader{onDelta: onDelta}
}

// ReadAll consumes r until EOF, emitting every delta synchronously in frame
// order. A single malformed frame is logged and skipped; a read error is
// terminal and surfaces as a STREAM_ERROR without a partial success.
func (s *StreamReader) ReadAll(r io.Reader) (models.StreamResult, error) {
	buf := make([]byte, readChunkSize)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			for _, payload := range s.decoder.Feed(buf[:n]) {
				s.handleFrame(payload)
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return models.StreamResult{}, models.NewAPIError(models.CodeStreamError, "stream read failed: "+err.Error())
		}
	}
	// A final unterminated line is still a best-effort frame.
	for _, payload := range s.decoder.Flush() {
		s.handleFrame(payload)
	}
	return models.StreamResult{FullText: string(s.full), Usage: s.usage}, nil
}

func (s *StreamReader) handleFrame(payload string) {
	var frame chunkFrame
	if err := json.Unmarshal([]byte(payload), &frame); err != nil {
		slog.Warn("skipping malformed stream frame", slog.String("error", err.Error()))
		return
	}
	if len(frame.Choices) > 0 {
		if content := frame.Choices[0].Delta.Content; content != "" {
			s.full = append(s.full, content...)
			if s.onDelta != nil {
				s.onDelta(content, string(s.full))
			}
		}
	}
	if frame.Usage != nil {
		// Providers repeat usage on the final frame; the latest wins.
		s.usage = frame.Usage
	}
}

// ParseResponse extracts the content of a non-streaming chat completion.
// A 2xx body without content is an INVALID_RESPONSE, not a success.
func ParseResponse(body []byte) (string, *models.Usage, error) {
	var resp responseBody
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", nil, models.NewAPIError(models.CodeInvalidResponse, "unparseable completion body")
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", nil, models.NewAPIError(models.CodeInvalidResponse, "completion body carries no content")
	}
	return resp.Choices[0].Message.Content, resp.Usage, nil
}
