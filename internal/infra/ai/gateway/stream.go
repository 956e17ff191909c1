package gateway

import (
	"context"
	"errors"
	"fmt"
	"io"

	analysis "github.com/LazarusMackles/Digital-Lazarus-sub000/internal/domain/analysis"
)

// Consume drains a model stream. Each chunk carries the entire response text
// accumulated so far by the transport, so the current text is replaced, never
// concatenated. onUpdate fires synchronously after every replacement with the
// latest full partial. On cancellation the stream is released, no further
// updates fire, and no partial result is committed.
func Consume(ctx context.Context, s analysis.ModelStream, onUpdate func(partial string)) (string, error) {
	defer s.Close()

	current := ""
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		chunk, err := s.Next()
		if errors.Is(err, io.EOF) {
			return current, nil
		}
		if err != nil {
			return "", err
		}
		current = chunk
		if onUpdate != nil && ctx.Err() == nil {
			onUpdate(current)
		}
	}
}

// ConsumeForensic drains the stream and parses the final text as a forensic
// payload. A final text that does not parse fails with
// ErrMalformedStreamResult.
func ConsumeForensic(ctx context.Context, s analysis.ModelStream, onUpdate func(partial string)) (analysis.ForensicRaw, error) {
	final, err := Consume(ctx, s, onUpdate)
	if err != nil {
		return analysis.ForensicRaw{}, err
	}
	raw, err := analysis.ParseForensic(final)
	if err != nil {
		return analysis.ForensicRaw{}, fmt.Errorf("%w: %v", analysis.ErrMalformedStreamResult, err)
	}
	return raw, nil
}
