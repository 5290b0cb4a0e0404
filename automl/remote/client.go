// Package remote implements experiment.Backend over HTTP for an AutoML
// service, typically a PyCaret sidecar.
//
// The wire protocol is JSON. A setup call creates a server-side experiment and
// returns its ID; every later operation addresses /v1/experiments/{id}/{op}.
// A response outside 2xx becomes an errors.CollaboratorError carrying the
// service's message verbatim. Requests are never retried.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/YuminosukeSato/caretstudio/experiment"
	"github.com/YuminosukeSato/caretstudio/pkg/errors"
	"github.com/YuminosukeSato/caretstudio/pkg/log"
)

// DefaultTimeout bounds one request. Compare and tune can take minutes.
const DefaultTimeout = 10 * time.Minute

// maxErrorBody caps how much of an error response is kept as the message.
const maxErrorBody = 64 << 10

// Client talks to one AutoML service.
type Client struct {
	base   *url.URL
	http   *http.Client
	logger log.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.http.Timeout = d
	}
}

// WithLogger sets the logger. The default is the "automl" component logger.
func WithLogger(l log.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// New returns a client for the service at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, errors.Wrapf(err, "remote: invalid base URL %q", baseURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, errors.NewValidationError("backend.url", "must be an http or https URL", baseURL)
	}
	c := &Client{
		base:   u,
		http:   &http.Client{Timeout: DefaultTimeout},
		logger: log.GetLoggerWithName("automl"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Classification implements experiment.Backend.
func (c *Client) Classification() experiment.Experiment {
	return &remoteExperiment{client: c, variant: experiment.Classification}
}

// Regression implements experiment.Backend.
func (c *Client) Regression() experiment.Experiment {
	return &remoteExperiment{client: c, variant: experiment.Regression}
}

// Ping checks that the service answers GET /healthz.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, "ping", http.MethodGet, "/healthz", nil, nil)
}

// do sends one request. in is encoded as the JSON body when non-nil. out is
// decoded from a JSON response, or filled with the raw body when it is a
// *rawResponse.
func (c *Client) do(ctx context.Context, op, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return errors.Wrapf(err, "remote: encode %s request", op)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base.String()+path, body)
	if err != nil {
		return errors.Wrapf(err, "remote: build %s request", op)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Error("automl request failed", err,
			log.OperationKey, op,
			log.PathKey, path,
		)
		return errors.Mark(errors.Wrapf(err, "automl %s", op), errors.ErrUnavailable)
	}
	defer resp.Body.Close()

	c.logger.Debug("automl request",
		log.OperationKey, op,
		log.MethodKey, method,
		log.PathKey, path,
		log.StatusKey, resp.StatusCode,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return errors.NewCollaboratorError(op, resp.StatusCode, errorMessage(resp))
	}

	switch dst := out.(type) {
	case nil:
		return nil
	case *rawResponse:
		dst.header = resp.Header
		dst.body, err = io.ReadAll(resp.Body)
		if err != nil {
			return errors.Mark(errors.Wrapf(err, "automl %s: read response", op), errors.ErrUnavailable)
		}
		return nil
	default:
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return errors.Wrapf(err, "automl %s: decode response", op)
		}
		return nil
	}
}

type rawResponse struct {
	header http.Header
	body   []byte
}

// errorMessage extracts the service's message. JSON bodies of the form
// {"error": "..."} or {"detail": "..."} yield the field; anything else is
// returned as text.
func errorMessage(resp *http.Response) string {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var doc struct {
		Error  string `json:"error"`
		Detail string `json:"detail"`
	}
	if json.Unmarshal(b, &doc) == nil {
		if doc.Error != "" {
			return doc.Error
		}
		if doc.Detail != "" {
			return doc.Detail
		}
	}
	if msg := strings.TrimSpace(string(b)); msg != "" {
		return msg
	}
	return http.StatusText(resp.StatusCode)
}
