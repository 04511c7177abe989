package printing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// DefaultTimeout is the default HTTP timeout for backend calls.
const DefaultTimeout = 10 * time.Second

// Backend is the print service surface consumed by Registry and
// Dispatcher. Client is the HTTP implementation; tests substitute
// their own.
type Backend interface {
	// ListPrinters returns the enabled printers, optionally filtered
	// by class ("" means all classes).
	ListPrinters(ctx context.Context, class Class) ([]Printer, error)

	// SubmitJob sends one print request and returns the backend job id.
	SubmitJob(ctx context.Context, req PrintRequest) (string, error)
}

// Client is the HTTP JSON client for the print backend.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// ClientOption configures the client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout sets the request timeout.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// NewClient creates a client for the backend at baseURL.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type printersResponse struct {
	Success  bool      `json:"success"`
	Printers []Printer `json:"printers"`
	Error    string    `json:"error,omitempty"`
}

type printResponse struct {
	Success bool   `json:"success"`
	JobID   string `json:"jobId,omitempty"`
	Error   string `json:"error,omitempty"`
}

// ListPrinters fetches the enabled printers from GET /printers.
func (c *Client) ListPrinters(ctx context.Context, class Class) ([]Printer, error) {
	q := url.Values{}
	q.Set("enabled", "true")
	if class != "" {
		q.Set("type", string(class))
	}

	var resp printersResponse
	if err := c.do(ctx, http.MethodGet, "/printers?"+q.Encode(), nil, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, backendError(resp.Error, "printer listing failed")
	}
	return resp.Printers, nil
}

// SubmitJob posts one job to POST /print and returns the job id.
func (c *Client) SubmitJob(ctx context.Context, req PrintRequest) (string, error) {
	var resp printResponse
	if err := c.do(ctx, http.MethodPost, "/print", req, &resp); err != nil {
		return "", err
	}
	if !resp.Success {
		return "", backendError(resp.Error, "print submission failed")
	}
	return resp.JobID, nil
}

// do performs one JSON request/response round trip.
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("backend unreachable: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	// Error bodies still carry the JSON envelope; prefer its message
	// over the bare status code when it decodes.
	if err := json.Unmarshal(data, out); err != nil {
		if resp.StatusCode >= 400 {
			return fmt.Errorf("backend returned status %d", resp.StatusCode)
		}
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func backendError(msg, fallback string) error {
	if msg == "" {
		msg = fallback
	}
	return errors.New(msg)
}
