// Package sse splits a server-sent-event byte stream into data payloads.
// The decoder is chunk-boundary safe: callers may feed reads of any size
// and the payload sequence is identical to feeding the stream whole.
package sse

import "strings"

// doneSentinel is the end-of-stream marker used by OpenAI-style APIs. It is
// a continuation no-op, not a payload and not an error.
const doneSentinel = "[DONE]"

// Decoder carries the partial line left over by the previous feed. The zero
// value is ready to use. One decoder serves exactly one stream.
type Decoder struct {
	carry string
}

// Feed decodes one read's worth of bytes and returns the data payloads of
// every complete frame it contains. A trailing line without a newline is
// held back until the next Feed or Flush, since it may be incomplete.
func (d *Decoder) Feed(p []byte) []string {
	buf := d.carry + string(p)
	lines := strings.Split(buf, "\n")
	d.carry = lines[len(lines)-1]
	lines = lines[:len(lines)-1]

	var payloads []string
	for _, line := range lines {
		if data, ok := dataPayload(line); ok {
			payloads = append(payloads, data)
		}
	}
	return payloads
}

// Flush processes the buffered partial line after the upstream has closed.
// A stream that ends without a final newline still yields its last frame.
func (d *Decoder) Flush() []string {
	line := d.carry
	d.carry = ""
	if data, ok := dataPayload(line); ok {
		return []string{data}
	}
	return nil
}

// dataPayload extracts the payload of a data line. Blank lines, comments,
// and the id/event/retry fields carry no payload, and the terminal sentinel
// is swallowed here so callers only ever see parseable frames.
func dataPayload(line string) (string, bool) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, ":") {
		return "", false
	}
	if !strings.HasPrefix(line, "data:") {
		// id:, event:, retry:, or anything else the protocol allows.
		return "", false
	}
	data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
	if data == "" || data == doneSentinel {
		return "", false
	}
	return data, true
}
