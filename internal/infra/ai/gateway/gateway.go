package gateway

import (
	"context"
	"time"

	analysis "github.com/LazarusMackles/Digital-Lazarus-sub000/internal/domain/analysis"
)

// Options tune one wrapped upstream call.
type Options struct {
	Mode           analysis.Mode
	MaxRetries     int           // retries after the first attempt
	InitialBackoff time.Duration // delay before retry i is InitialBackoff * 2^i
	Timeout        time.Duration // hard ceiling over attempts and backoff combined

	// Sleep is injectable for tests; nil means a real context-aware sleep.
	Sleep func(ctx context.Context, d time.Duration) error
}

const (
	DefaultMaxRetries     = 3
	DefaultInitialBackoff = time.Second
	DefaultTimeout        = 9 * time.Second
)

func (o *Options) fill() {
	if o.MaxRetries <= 0 {
		o.MaxRetries = DefaultMaxRetries
	}
	if o.InitialBackoff <= 0 {
		o.InitialBackoff = DefaultInitialBackoff
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.Sleep == nil {
		o.Sleep = sleep
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Call runs fn with bounded exponential-backoff retry on rate-limit errors and
// a client-side timeout race. Only rate-limit errors are retried; anything
// else propagates immediately. When the timeout wins the race the caller gets
// a TimeoutError carrying the analysis mode, not the loser's error. Call is
// agnostic to fn's result shape; for streaming operations only the call that
// obtains the stream handle is retried, never the consumption.
func Call[T any](ctx context.Context, opts Options, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	opts.fill()

	callCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	var lastErr error
	for attempt := 0; attempt <= opts.MaxRetries; attempt++ {
		res, err := fn(callCtx)
		if err == nil {
			return res, nil
		}
		if timedOut(ctx, callCtx) {
			return zero, &analysis.TimeoutError{Mode: opts.Mode}
		}
		if !analysis.IsRateLimited(err) {
			return zero, err
		}
		lastErr = err
		if attempt == opts.MaxRetries {
			break
		}
		delay := opts.InitialBackoff << attempt
		if err := opts.Sleep(callCtx, delay); err != nil {
			if timedOut(ctx, callCtx) {
				return zero, &analysis.TimeoutError{Mode: opts.Mode}
			}
			return zero, err
		}
	}
	return zero, lastErr
}

// timedOut distinguishes our deadline from a caller-initiated cancellation.
func timedOut(parent, call context.Context) bool {
	return call.Err() == context.DeadlineExceeded && parent.Err() == nil
}

// CallStream opens a model stream with the same retry and timeout policy as
// Call. Unlike Call, the context handed to fn must outlive the acquisition so
// the returned handle stays usable; it is cancelled when the handle is closed
// or the caller's context ends, never merely because CallStream returned. The
// timeout covers obtaining the handle only; consumption runs under the
// caller's context.
func CallStream(ctx context.Context, opts Options, fn func(context.Context) (analysis.ModelStream, error)) (analysis.ModelStream, error) {
	opts.fill()

	streamCtx, cancel := context.WithCancel(ctx)

	type opened struct {
		s   analysis.ModelStream
		err error
	}
	done := make(chan opened, 1)
	go func() {
		var lastErr error
		for attempt := 0; attempt <= opts.MaxRetries; attempt++ {
			s, err := fn(streamCtx)
			if err == nil {
				done <- opened{s: s}
				return
			}
			if !analysis.IsRateLimited(err) {
				done <- opened{err: err}
				return
			}
			lastErr = err
			if attempt == opts.MaxRetries {
				break
			}
			if err := opts.Sleep(streamCtx, opts.InitialBackoff<<attempt); err != nil {
				break
			}
		}
		done <- opened{err: lastErr}
	}()

	abandon := func() {
		cancel()
		// Close a handle the loser of the race may still produce.
		go func() {
			if o := <-done; o.s != nil {
				o.s.Close()
			}
		}()
	}

	deadline := time.NewTimer(opts.Timeout)
	defer deadline.Stop()

	select {
	case o := <-done:
		if o.err != nil {
			cancel()
			return nil, o.err
		}
		return &ownedStream{ModelStream: o.s, cancel: cancel}, nil
	case <-deadline.C:
		abandon()
		return nil, &analysis.TimeoutError{Mode: opts.Mode}
	case <-ctx.Done():
		abandon()
		return nil, ctx.Err()
	}
}

// ownedStream ties the lifetime of the acquisition context to the handle.
type ownedStream struct {
	analysis.ModelStream
	cancel context.CancelFunc
}

func (s *ownedStream) Close() error {
	err := s.ModelStream.Close()
	s.cancel()
	return err
}
