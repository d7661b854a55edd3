package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Sender is the HTTP collaborator used by Client. Implementations must be
// safe for concurrent use.
type Sender interface {
	Send(ctx context.Context, method string, u *url.URL, header http.Header, body io.Reader) (*Response, error)
}

// Response is a fully read HTTP response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// SenderFunc adapts a function to the Sender interface.
type SenderFunc func(ctx context.Context, method string, u *url.URL, header http.Header, body io.Reader) (*Response, error)

func (f SenderFunc) Send(ctx context.Context, method string, u *url.URL, header http.Header, body io.Reader) (*Response, error) {
	return f(ctx, method, u, header, body)
}

// HTTPSender sends requests with a single reusable *http.Client.
type HTTPSender struct {
	httpClient *http.Client
}

// NewHTTPSender wraps hc. A nil hc gets a client with DefaultTimeout.
func NewHTTPSender(hc *http.Client) *HTTPSender {
	if hc == nil {
		hc = &http.Client{Timeout: DefaultTimeout}
	}
	return &HTTPSender{httpClient: hc}
}

// Send performs the request and reads the whole response body.
func (s *HTTPSender) Send(ctx context.Context, method string, u *url.URL, header http.Header, body io.Reader) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header = header.Clone()

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       data,
	}, nil
}

// StatusError reports a non-2xx answer from the storage service.
type StatusError struct {
	StatusCode int
	Body       []byte
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("unexpected status %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	if len(e.Body) > 0 {
		body := e.Body
		if len(body) > maxErrorBody {
			body = body[:maxErrorBody]
		}
		msg = fmt.Sprintf("%s: %s", msg, body)
	}
	return msg
}

const (
	// DefaultTimeout bounds a whole request including the response body.
	DefaultTimeout = 30 * time.Second

	maxErrorBody = 256
)
