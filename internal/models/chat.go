package models

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type StreamOptions struct {
	IncludeUsage bool `json:"include_usage"`
}

// ChatRequest is the body sent to an OpenAI-compatible chat completions
// endpoint. StreamOptions is only populated when Stream is true.
type ChatRequest struct {
	Model         string         `json:"model"`
	Messages      []ChatMessage  `json:"messages"`
	Temperature   float64        `json:"temperature"`
	MaxTokens     int            `json:"max_tokens,omitempty"`
	Stream        bool           `json:"stream,omitempty"`
	StreamOptions *StreamOptions `json:"stream_options,omitempty"`
}

type Usage struct {
	PromptTokens     int32 `json:"prompt_tokens"`
	CompletionTokens int32 `json:"completion_tokens"`
	TotalTokens      int32 `json:"total_tokens"`
}

// StreamResult is the terminal aggregate of one decoded chat stream.
type StreamResult struct {
	FullText string
	Usage    *Usage
}

// DeltaFunc receives every incremental fragment together with the full
// accumulated text so far. Subscribers that render progressively use the
// snapshot; subscribers that forward wire frames use both.
type DeltaFunc func(chunk, fullText string)
