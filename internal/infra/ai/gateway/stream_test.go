package gateway

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	analysis "github.com/LazarusMackles/Digital-Lazarus-sub000/internal/domain/analysis"
)

// fakeStream yields pre-baked full-so-far snapshots.
type fakeStream struct {
	chunks []string
	pos    int
	closed bool
}

func (f *fakeStream) Next() (string, error) {
	if f.pos >= len(f.chunks) {
		return "", io.EOF
	}
	c := f.chunks[f.pos]
	f.pos++
	return c, nil
}

func (f *fakeStream) Close() error {
	f.closed = true
	return nil
}

func TestConsumeReplacesNeverAppends(t *testing.T) {
	s := &fakeStream{chunks: []string{"A", "AB", "ABC"}}
	var updates []string

	final, err := Consume(context.Background(), s, func(partial string) {
		updates = append(updates, partial)
	})

	require.NoError(t, err)
	// final state is the last snapshot, never a concatenation like "AABABC"
	assert.Equal(t, "ABC", final)
	assert.Len(t, final, 3)
	assert.Equal(t, []string{"A", "AB", "ABC"}, updates)
	assert.True(t, s.closed)
}

func TestConsumeNilCallback(t *testing.T) {
	s := &fakeStream{chunks: []string{"x", "xy"}}
	final, err := Consume(context.Background(), s, nil)
	require.NoError(t, err)
	assert.Equal(t, "xy", final)
}

func TestConsumeCancellationCommitsNothing(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := &fakeStream{chunks: []string{"A", "AB"}}
	called := 0
	final, err := Consume(ctx, s, func(string) { called++ })

	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, final)
	assert.Zero(t, called, "no updates may fire after cancellation")
	assert.True(t, s.closed, "stream handle must be released")
}

func TestConsumeForensicParsesFinalText(t *testing.T) {
	s := &fakeStream{chunks: []string{
		`{"probability"`,
		`{"probability": 85, "verdict": "Fully AI-Gen`,
		`{"probability": 85, "verdict": "Fully AI-Generated", "explanation": "flat texture"}`,
	}}

	raw, err := ConsumeForensic(context.Background(), s, nil)
	require.NoError(t, err)
	require.NotNil(t, raw.Probability)
	assert.Equal(t, 85.0, *raw.Probability)
	assert.Equal(t, "Fully AI-Generated", raw.Verdict)
}

func TestConsumeForensicMalformedFinal(t *testing.T) {
	s := &fakeStream{chunks: []string{"{", "{\"probability\": "}}

	_, err := ConsumeForensic(context.Background(), s, nil)
	assert.ErrorIs(t, err, analysis.ErrMalformedStreamResult)
}
