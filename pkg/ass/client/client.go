// Package client implements the Smooth Storage operations (search, upload,
// file and image lookup, signed links) on top of package ass.
//
//	cred, _ := ass.LoadCredential("account.json")
//	c := client.New(cred, client.WithLogger(slog.Default()))
//	rec, err := c.UploadFile(ctx, "/data/report.pdf", "reports/")
//	link, err := c.GetFileURL(rec.Path)
package client

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/tendant/smooth-storage/pkg/ass"
)

// HeaderRequestID correlates client and server logs for one request.
const HeaderRequestID = "X-Request-Id"

// Client performs authenticated requests for one account. It is immutable
// after New and safe for concurrent use.
type Client struct {
	cred      ass.Credential
	signer    *ass.Signer
	sender    Sender
	logger    *slog.Logger
	requestID func() string
	progress  ProgressFunc
}

// Option is a functional option for configuring a Client
type Option func(*Client)

// WithSender sets the HTTP collaborator.
func WithSender(s Sender) Option {
	return func(c *Client) {
		c.sender = s
	}
}

// WithHTTPClient sends requests through hc.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.sender = NewHTTPSender(hc)
	}
}

// WithTimeout sends requests through a new http.Client with the given timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.sender = NewHTTPSender(&http.Client{Timeout: d})
	}
}

// WithLogger sets the structured logger. Default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithRequestIDFunc overrides how X-Request-Id values are generated.
func WithRequestIDFunc(fn func() string) Option {
	return func(c *Client) {
		if fn != nil {
			c.requestID = fn
		}
	}
}

// New creates a Client for cred.
func New(cred ass.Credential, opts ...Option) *Client {
	c := &Client{
		cred:      cred,
		signer:    ass.NewSigner(cred),
		logger:    slog.Default(),
		requestID: uuid.NewString,
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.sender == nil {
		c.sender = NewHTTPSender(nil)
	}

	return c
}

// Credential returns the account credential.
func (c *Client) Credential() ass.Credential {
	return c.cred
}

// Signer returns the URL signer for the account.
func (c *Client) Signer() *ass.Signer {
	return c.signer
}

// send issues one authenticated request. extra headers replace defaults of
// the same name. Non-2xx answers become KindTransport errors wrapping a
// *StatusError.
func (c *Client) send(ctx context.Context, method string, u *url.URL, body io.Reader, extra http.Header) (*Response, error) {
	if rc, ok := body.(io.Closer); ok {
		// unblocks streaming body writers if the sender never drains the body
		defer rc.Close()
	}

	header, err := ass.Headers(c.cred)
	if err != nil {
		return nil, err
	}
	for k, vs := range extra {
		header.Del(k)
		for _, v := range vs {
			header.Add(k, v)
		}
	}

	reqID := c.requestID()
	header.Set(HeaderRequestID, reqID)

	subject := method + " " + u.String()
	start := time.Now()

	resp, err := c.sender.Send(ctx, method, u, header, body)
	if err != nil {
		c.logger.ErrorContext(ctx, "storage request failed",
			"method", method, "path", u.Path, "request_id", reqID, "err", err)
		return nil, ass.Transport(subject, err)
	}

	c.logger.DebugContext(ctx, "storage request",
		"method", method,
		"path", u.Path,
		"request_id", reqID,
		"status", resp.StatusCode,
		"duration", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, ass.Transport(subject, &StatusError{StatusCode: resp.StatusCode, Body: resp.Body})
	}

	return resp, nil
}

func (c *Client) get(ctx context.Context, segments ...string) ([]byte, error) {
	u, err := ass.Endpoint(c.cred, segments...)
	if err != nil {
		return nil, err
	}
	resp, err := c.send(ctx, http.MethodGet, u, nil, nil)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

func (c *Client) postFile(ctx context.Context, u *url.URL, path, fileName string, extra http.Header) ([]byte, error) {
	body, contentType, err := multipartFile(path, fileName, c.progress)
	if err != nil {
		return nil, err
	}

	header := extra.Clone()
	if header == nil {
		header = http.Header{}
	}
	header.Set("Content-Type", contentType)

	resp, err := c.send(ctx, http.MethodPost, u, body, header)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}
