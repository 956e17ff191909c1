package evidence

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Type enum for what the user submitted.
type Type string

const (
	TypeText Type = "text"
	TypeFile Type = "file"
	TypeURL  Type = "url"
)

// ErrInvalidFormat indicates the submitted evidence is malformed (for example
// a data URL without a payload segment). Not retryable.
var ErrInvalidFormat = errors.New("invalid evidence format")

// Evidence is what was submitted for one analysis run. It is immutable once
// an analysis starts; Content holds raw text, a JSON-serialized file
// descriptor, or a URL string depending on Type.
type Evidence struct {
	Type    Type   `json:"type"`
	Content string `json:"content"`
}

// FileDescriptor is the decoded form of file evidence.
type FileDescriptor struct {
	Name     string `json:"name"`
	MimeType string `json:"mimeType"`
	Data     string `json:"data"` // base64 payload, optionally a data URL
}

// Bytes decodes the descriptor payload. Data-URL prefixes are accepted; a
// declared data URL missing its payload segment fails with ErrInvalidFormat.
func (f FileDescriptor) Bytes() ([]byte, error) {
	data := f.Data
	if strings.HasPrefix(data, "data:") {
		idx := strings.Index(data, ",")
		if idx < 0 || idx == len(data)-1 {
			return nil, fmt.Errorf("%w: data URL has no payload segment", ErrInvalidFormat)
		}
		data = data[idx+1:]
	}
	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	return raw, nil
}

// Files parses file evidence content. Both a single descriptor object and an
// array of descriptors are accepted.
func (e Evidence) Files() ([]FileDescriptor, error) {
	if e.Type != TypeFile {
		return nil, fmt.Errorf("%w: evidence is %s, not file", ErrInvalidFormat, e.Type)
	}
	trimmed := strings.TrimSpace(e.Content)
	if trimmed == "" {
		return nil, fmt.Errorf("%w: empty file descriptor", ErrInvalidFormat)
	}
	if strings.HasPrefix(trimmed, "[") {
		var many []FileDescriptor
		if err := json.Unmarshal([]byte(trimmed), &many); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
		}
		if len(many) == 0 {
			return nil, fmt.Errorf("%w: empty file descriptor list", ErrInvalidFormat)
		}
		return many, nil
	}
	var one FileDescriptor
	if err := json.Unmarshal([]byte(trimmed), &one); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	return []FileDescriptor{one}, nil
}
