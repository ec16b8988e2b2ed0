package llm

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"strings"
)

// ErrNoReply is returned when a response body holds no usable reply text
var ErrNoReply = errors.New("no reply text in response")

// replyObject covers the response shapes seen from local and hosted chat APIs
type replyObject struct {
	Message *struct {
		Content string `json:"content"`
	} `json:"message"`
	Response *string `json:"response"`
	Content  *string `json:"content"`
	Choices  []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
	Done *bool `json:"done"`
}

func (r *replyObject) text() string {
	switch {
	case r.Message != nil && r.Message.Content != "":
		return r.Message.Content
	case r.Response != nil && *r.Response != "":
		return *r.Response
	case r.Content != nil && *r.Content != "":
		return *r.Content
	}
	for _, c := range r.Choices {
		if c.Message.Content != "" {
			return c.Message.Content
		}
		if c.Delta.Content != "" {
			return c.Delta.Content
		}
	}
	return ""
}

// ExtractReply pulls the reply text out of a chat response body.
//
// The body may be a single JSON object, newline delimited stream chunks, or
// JSON mixed with junk lines. Stream chunks (objects carrying "done") are
// concatenated; otherwise the last well-formed object with text wins.
func ExtractReply(body []byte) (string, error) {
	var objects []replyObject
	for _, line := range splitObjects(body) {
		var obj replyObject
		if err := json.Unmarshal(line, &obj); err != nil {
			continue
		}
		objects = append(objects, obj)
	}

	if len(objects) == 0 {
		return "", ErrNoReply
	}

	if len(objects) > 1 && objects[0].Done != nil {
		var b strings.Builder
		for i := range objects {
			b.WriteString(objects[i].text())
		}
		if s := strings.TrimSpace(b.String()); s != "" {
			return s, nil
		}
		return "", ErrNoReply
	}

	for i := len(objects) - 1; i >= 0; i-- {
		if s := strings.TrimSpace(objects[i].text()); s != "" {
			return s, nil
		}
	}
	return "", ErrNoReply
}

// splitObjects returns the candidate JSON values of a body. A body that is
// one valid document (even spanning lines) is returned whole.
func splitObjects(body []byte) [][]byte {
	body = bytes.TrimSpace(body)
	if json.Valid(body) {
		return [][]byte{body}
	}

	var out [][]byte
	dec := json.NewDecoder(bytes.NewReader(body))
	for {
		var raw json.RawMessage
		err := dec.Decode(&raw)
		if err == io.EOF {
			break
		}
		if err != nil {
			// Fall back to line by line for junk interleaved with JSON
			return splitLines(body)
		}
		out = append(out, raw)
	}
	return out
}

func splitLines(body []byte) [][]byte {
	var out [][]byte
	for _, line := range bytes.Split(body, []byte("\n")) {
		line = bytes.TrimSpace(line)
		line = bytes.TrimPrefix(line, []byte("data:"))
		line = bytes.TrimSpace(line)
		if len(line) > 0 && line[0] == '{' {
			out = append(out, line)
		}
	}
	return out
}
