package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"
)

// Transport is the fetch capability the launcher core depends on. Retries and
// timeouts below a single request are the transport's concern; whole-task
// retries belong to the download orchestrator.
type Transport interface {
	// Fetch returns the whole body of url.
	Fetch(ctx context.Context, url string) ([]byte, error)
	// Stream copies the body of url into w, calling progress after each chunk
	// with the bytes written so far and the announced total (0 if unknown).
	Stream(ctx context.Context, url string, w io.Writer, progress func(n, total int64)) (int64, error)
}

// StatusError reports a non-200 response.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET '%s' code: %d", e.URL, e.StatusCode)
}

// IsNotFound reports whether err is a 404/410 response.
func IsNotFound(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode == http.StatusNotFound || se.StatusCode == http.StatusGone
	}
	return false
}

/**
 * HTTP transport
 * @property {http.Client} client - Shared client, connections are pooled
 * @property {string} userAgent - User-Agent header sent on every request
 */
type HTTPTransport struct {
	client    *http.Client
	userAgent string
}

/**
 * Create HTTP transport
 * @param {time.Duration} timeout - Dial and response header timeout. The body of a
 *   large artifact may take longer, it is bounded by the caller's context instead.
 * @param {string} userAgent - User-Agent header value
 */
func NewHTTPTransport(timeout time.Duration, userAgent string) *HTTPTransport {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	tr := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: timeout, KeepAlive: 30 * time.Second}).DialContext,
		ResponseHeaderTimeout: timeout,
		TLSHandshakeTimeout:   timeout,
		MaxIdleConnsPerHost:   16,
		IdleConnTimeout:       90 * time.Second,
	}
	return &HTTPTransport{
		client:    &http.Client{Transport: tr},
		userAgent: userAgent,
	}
}

// NewWithClient wraps an existing client, used by tests with httptest servers.
func NewWithClient(client *http.Client, userAgent string) *HTTPTransport {
	return &HTTPTransport{client: client, userAgent: userAgent}
}

func (t *HTTPTransport) get(ctx context.Context, urlStr string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return nil, fmt.Errorf("GET '%s': %w", urlStr, err)
	}
	if t.userAgent != "" {
		req.Header.Set("User-Agent", t.userAgent)
	}
	rsp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET '%s': %w", urlStr, err)
	}
	if rsp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(rsp.Body, 4096))
		rsp.Body.Close()
		return nil, &StatusError{URL: urlStr, StatusCode: rsp.StatusCode}
	}
	return rsp, nil
}

/**
 *	从服务器获取一个文件的内容
 */
func (t *HTTPTransport) Fetch(ctx context.Context, urlStr string) ([]byte, error) {
	rsp, err := t.get(ctx, urlStr)
	if err != nil {
		return nil, err
	}
	defer rsp.Body.Close()
	data, err := io.ReadAll(rsp.Body)
	if err != nil {
		return nil, fmt.Errorf("GET '%s': read body: %w", urlStr, err)
	}
	return data, nil
}

/**
 *	从服务器获取一个文件，把响应流和w对接起来
 */
func (t *HTTPTransport) Stream(ctx context.Context, urlStr string, w io.Writer, progress func(n, total int64)) (int64, error) {
	rsp, err := t.get(ctx, urlStr)
	if err != nil {
		return 0, err
	}
	defer rsp.Body.Close()

	total := rsp.ContentLength
	if total < 0 {
		total = 0
	}
	var written int64
	buf := make([]byte, 32*1024)
	for {
		n, rerr := rsp.Body.Read(buf)
		if n > 0 {
			if _, werr := w.Write(buf[:n]); werr != nil {
				return written, fmt.Errorf("GET '%s': write: %w", urlStr, werr)
			}
			written += int64(n)
			if progress != nil {
				progress(written, total)
			}
		}
		if rerr == io.EOF {
			return written, nil
		}
		if rerr != nil {
			return written, fmt.Errorf("GET '%s': copy: %w", urlStr, rerr)
		}
	}
}
