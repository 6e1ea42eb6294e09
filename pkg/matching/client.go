// Package matching talks to the remote matching service that keeps a searchable
// copy of every job description.
package matching

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/garnizeh/companies/internal/config"
	"github.com/garnizeh/companies/internal/models"
	"github.com/garnizeh/companies/pkg/logging"
)

// DefaultTimeout bounds every remote call when the config leaves it unset.
const DefaultTimeout = 10 * time.Second

var ErrClosed = errors.New("matching client closed")

// StatusError is returned when the matching service answers with anything but 200.
type StatusError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("matching %s: unexpected status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("matching %s: unexpected status %d: %s", e.Op, e.StatusCode, e.Body)
}

// Client pushes and removes job descriptions on the matching service. It never
// retries; a failed call is reported to the caller as is.
type Client struct {
	base    *url.URL
	timeout time.Duration
	client  *http.Client
	closed  int32
}

// pushBody is the record sent to the service. The id travels in the URL.
type pushBody struct {
	Title             string          `json:"title"`
	Description       string          `json:"description"`
	Responsibilities  []string        `json:"responsibilities"`
	Requirements      []string        `json:"requirements"`
	WorkModel         string          `json:"work_model"`
	AgeRange          models.AgeRange `json:"age_range"`
	YearsOfExperience int             `json:"years_of_experience"`
}

// NewClient creates a client for cfg.BaseURL. A nil httpClient gets a default
// one bounded by the configured timeout.
func NewClient(cfg config.MatchingConfig, httpClient *http.Client) (*Client, error) {
	u, err := url.ParseRequestURI(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}

	logger.Info("matching: client created", "base_url", cfg.BaseURL, "timeout", timeout)
	return &Client{base: u, timeout: timeout, client: httpClient}, nil
}

// NewDefaultClient builds a client with a tuned transport.
func NewDefaultClient(cfg config.MatchingConfig) (*Client, error) {
	defaultClient := &http.Client{
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   5 * time.Second,
				KeepAlive: 15 * time.Second,
			}).DialContext,
			ForceAttemptHTTP2:     true,
			MaxIdleConns:          100,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   5 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		},
	}

	return NewClient(cfg, defaultClient)
}

// Push upserts the job description under id. Create and update share it.
func (c *Client) Push(ctx context.Context, id string, jd *models.JobDescription) error {
	if jd == nil {
		return fmt.Errorf("matching push: job description is nil")
	}

	b, err := json.Marshal(pushBody{
		Title:             jd.Title,
		Description:       jd.Description,
		Responsibilities:  nonNil(jd.Responsibilities),
		Requirements:      nonNil(jd.Requirements),
		WorkModel:         jd.WorkModel,
		AgeRange:          jd.AgeRange,
		YearsOfExperience: jd.YearsOfExperience,
	})
	if err != nil {
		return fmt.Errorf("matching push: encode: %w", err)
	}

	return c.do(ctx, "push", http.MethodPost, id, b)
}

// Remove deletes the job description with id from the service.
func (c *Client) Remove(ctx context.Context, id string) error {
	return c.do(ctx, "remove", http.MethodDelete, id, nil)
}

func (c *Client) do(ctx context.Context, op, method, id string, body []byte) error {
	if atomic.LoadInt32(&c.closed) == 1 {
		return ErrClosed
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.jobURL(id), rd)
	if err != nil {
		return fmt.Errorf("matching %s: %w", op, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		logger.Warn("matching: request failed", "op", op, "id", id, "err", err)
		return fmt.Errorf("matching %s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		logger.Warn("matching: unexpected status", "op", op, "id", id, "status", resp.StatusCode)
		return &StatusError{Op: op, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
	}
	_, _ = io.Copy(io.Discard, resp.Body)

	logger.Debug("matching: request done", "op", op, "id", id, "duration", time.Since(start))
	return nil
}

func (c *Client) jobURL(id string) string {
	u := *c.base
	u.Path = strings.TrimRight(u.Path, "/") + "/matching/job/" + url.PathEscape(id) + "/"
	return u.String()
}

// Close releases idle connections. It is idempotent; calls after Close fail
// with ErrClosed.
func (c *Client) Close() error {
	if c == nil {
		return nil
	}
	if !atomic.CompareAndSwapInt32(&c.closed, 0, 1) {
		return nil
	}
	if c.client != nil {
		c.client.CloseIdleConnections()
	}
	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// package-level logger for pkg/matching; can be replaced by callers
var logger = logging.NewNop()

// SetLogger sets the logger used by pkg/matching. Passing nil is a no-op.
func SetLogger(l *logging.Logger) {
	if l != nil {
		logger = l
	}
}
