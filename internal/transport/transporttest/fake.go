// Package transporttest provides an in-memory transport for tests.
package transporttest

import (
	"context"
	"fmt"
	"io"
	"sync"

	"craft-keeper/internal/transport"
)

// Responder produces the body for the n-th (1-based) request of a URL.
type Responder func(ctx context.Context, n int) ([]byte, error)

// Fake serves registered URLs from memory and counts requests.
type Fake struct {
	mu        sync.Mutex
	bodies    map[string]Responder
	calls     map[string]int
	chunkSize int
}

var _ transport.Transport = (*Fake)(nil)

func New() *Fake {
	return &Fake{
		bodies:    make(map[string]Responder),
		calls:     make(map[string]int),
		chunkSize: 4,
	}
}

// Set serves data for url on every request.
func (f *Fake) Set(url string, data []byte) {
	f.SetFunc(url, func(context.Context, int) ([]byte, error) { return data, nil })
}

// SetFunc serves url through fn.
func (f *Fake) SetFunc(url string, fn Responder) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bodies[url] = fn
}

// Calls returns how many times url was requested.
func (f *Fake) Calls(url string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[url]
}

// TotalCalls returns the number of requests over all URLs.
func (f *Fake) TotalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

func (f *Fake) body(ctx context.Context, url string) ([]byte, error) {
	f.mu.Lock()
	f.calls[url]++
	n := f.calls[url]
	fn, ok := f.bodies[url]
	f.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !ok {
		return nil, &transport.StatusError{URL: url, StatusCode: 404}
	}
	return fn(ctx, n)
}

func (f *Fake) Fetch(ctx context.Context, url string) ([]byte, error) {
	return f.body(ctx, url)
}

func (f *Fake) Stream(ctx context.Context, url string, w io.Writer, progress func(n, total int64)) (int64, error) {
	data, err := f.body(ctx, url)
	if err != nil {
		return 0, err
	}
	total := int64(len(data))
	var written int64
	for written < total {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		end := written + int64(f.chunkSize)
		if end > total {
			end = total
		}
		if _, err := w.Write(data[written:end]); err != nil {
			return written, fmt.Errorf("write: %w", err)
		}
		written = end
		if progress != nil {
			progress(written, total)
		}
	}
	return written, nil
}
