package gateway

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	analysis "github.com/LazarusMackles/Digital-Lazarus-sub000/internal/domain/analysis"
)

// fakeSleep records requested delays without waiting.
type fakeSleep struct {
	delays []time.Duration
}

func (f *fakeSleep) sleep(_ context.Context, d time.Duration) error {
	f.delays = append(f.delays, d)
	return nil
}

func TestCallBackoffSchedule(t *testing.T) {
	fs := &fakeSleep{}
	attempts := 0
	res, err := Call(context.Background(), Options{
		MaxRetries:     3,
		InitialBackoff: time.Second,
		Sleep:          fs.sleep,
	}, func(context.Context) (string, error) {
		attempts++
		if attempts <= 2 {
			return "", errors.New("got 429 from upstream")
		}
		return "done", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "done", res)
	assert.Equal(t, 3, attempts)
	// 1000ms before the second attempt, 2000ms before the third
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, fs.delays)
}

func TestCallNonRetryableFailsImmediately(t *testing.T) {
	fs := &fakeSleep{}
	attempts := 0
	boom := errors.New("schema violation")
	_, err := Call(context.Background(), Options{Sleep: fs.sleep}, func(context.Context) (int, error) {
		attempts++
		return 0, boom
	})

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, attempts)
	assert.Empty(t, fs.delays)
}

func TestCallExhaustionRethrowsLastError(t *testing.T) {
	fs := &fakeSleep{}
	attempts := 0
	_, err := Call(context.Background(), Options{
		MaxRetries:     2,
		InitialBackoff: time.Second,
		Sleep:          fs.sleep,
	}, func(context.Context) (int, error) {
		attempts++
		return 0, analysis.ErrRateLimited
	})

	assert.ErrorIs(t, err, analysis.ErrRateLimited)
	// one initial attempt plus MaxRetries retries
	assert.Equal(t, 3, attempts)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, fs.delays)
}

func TestCallTimeoutWinsRace(t *testing.T) {
	_, err := Call(context.Background(), Options{
		Mode:    analysis.ModeDeep,
		Timeout: 20 * time.Millisecond,
	}, func(ctx context.Context) (int, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	})

	var te *analysis.TimeoutError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, analysis.ModeDeep, te.Mode)
}

// ctxStream fails like a real transport once the context it was opened under
// ends.
type ctxStream struct {
	ctx    context.Context
	chunks []string
	pos    int
}

func (s *ctxStream) Next() (string, error) {
	if err := s.ctx.Err(); err != nil {
		return "", err
	}
	if s.pos >= len(s.chunks) {
		return "", io.EOF
	}
	c := s.chunks[s.pos]
	s.pos++
	return c, nil
}

func (s *ctxStream) Close() error { return nil }

func TestCallStreamHandleOutlivesAcquisition(t *testing.T) {
	var openCtx context.Context
	s, err := CallStream(context.Background(), Options{}, func(ctx context.Context) (analysis.ModelStream, error) {
		openCtx = ctx
		return &ctxStream{ctx: ctx, chunks: []string{"A", "AB"}}, nil
	})
	require.NoError(t, err)
	require.NoError(t, openCtx.Err(), "acquisition context must stay alive for the handle")

	chunk, err := s.Next()
	require.NoError(t, err)
	assert.Equal(t, "A", chunk)

	require.NoError(t, s.Close())
	assert.ErrorIs(t, openCtx.Err(), context.Canceled, "closing the handle releases the context")
}

func TestCallStreamBackoffSchedule(t *testing.T) {
	fs := &fakeSleep{}
	attempts := 0
	s, err := CallStream(context.Background(), Options{
		MaxRetries:     3,
		InitialBackoff: time.Second,
		Sleep:          fs.sleep,
	}, func(ctx context.Context) (analysis.ModelStream, error) {
		attempts++
		if attempts <= 2 {
			return nil, analysis.ErrRateLimited
		}
		return &ctxStream{ctx: ctx}, nil
	})

	require.NoError(t, err)
	defer s.Close()
	assert.Equal(t, 3, attempts)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, fs.delays)
}

func TestCallStreamNonRetryableFailsImmediately(t *testing.T) {
	boom := errors.New("schema violation")
	_, err := CallStream(context.Background(), Options{}, func(context.Context) (analysis.ModelStream, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)
}

func TestCallStreamTimeoutAbandonsOpen(t *testing.T) {
	opened := make(chan context.Context, 1)
	_, err := CallStream(context.Background(), Options{
		Mode:    analysis.ModeDeep,
		Timeout: 20 * time.Millisecond,
	}, func(ctx context.Context) (analysis.ModelStream, error) {
		opened <- ctx
		<-ctx.Done()
		return nil, ctx.Err()
	})

	var te *analysis.TimeoutError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, analysis.ModeDeep, te.Mode)

	openCtx := <-opened
	select {
	case <-openCtx.Done():
	case <-time.After(time.Second):
		t.Fatal("abandoned open was not cancelled")
	}
}

func TestCallCallerCancellationIsNotTimeout(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Call(ctx, Options{}, func(ctx context.Context) (int, error) {
		return 0, ctx.Err()
	})

	var te *analysis.TimeoutError
	assert.False(t, errors.As(err, &te))
	assert.ErrorIs(t, err, context.Canceled)
}
