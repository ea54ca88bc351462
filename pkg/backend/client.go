// Package backend is the HTTP client for the workload backend API.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"zygl/pkg/log"
)

const (
	boardInfoPath = "/api/v1/external/qyw/boardinfo"
	stackInfoPath = "/api/v1/external/qyw/stackinfo"
	deployPath    = "/api/v1/external/qyw/deploy"
	undeployPath  = "/api/v1/external/qyw/undeploy"

	DefaultTimeout      = 10 * time.Second
	DefaultRetryMax     = 3
	DefaultRetryWaitMin = 100 * time.Millisecond
	DefaultRetryWaitMax = 2 * time.Second

	// maxResponseSize caps how much of a reply body is read.
	maxResponseSize = 32 << 20
)

// Options configures a Client. Zero values take the defaults.
type Options struct {
	Timeout      time.Duration
	RetryMax     int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
}

// Client talks to the backend API.
type Client struct {
	baseURL string
	http    *retryablehttp.Client
}

// NewClient creates a client for the backend at baseURL.
func NewClient(baseURL string, opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.RetryMax < 0 {
		opts.RetryMax = 0
	}
	if opts.RetryWaitMin <= 0 {
		opts.RetryWaitMin = DefaultRetryWaitMin
	}
	if opts.RetryWaitMax <= 0 {
		opts.RetryWaitMax = DefaultRetryWaitMax
	}

	client := CreateRetryableClient(opts.RetryMax, opts.RetryWaitMin, opts.RetryWaitMax)
	client.HTTPClient.Timeout = opts.Timeout

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    client,
	}
}

// CreateRetryableClient creates a retryable HTTP client for backend requests.
func CreateRetryableClient(retryMax int, retryWaitMin, retryWaitMax time.Duration) *retryablehttp.Client {
	client := retryablehttp.NewClient()
	client.RetryMax = retryMax
	client.RetryWaitMin = retryWaitMin
	client.RetryWaitMax = retryWaitMax
	client.Logger = nil
	client.CheckRetry = customRetryPolicy
	// Hand the last transport error back instead of retryablehttp's generic
	// "giving up" error.
	client.ErrorHandler = retryablehttp.PassthroughErrorHandler
	return client
}

// customRetryPolicy retries transport failures only. Any HTTP response, error
// status included, is returned to the caller as-is.
func customRetryPolicy(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	if resp != nil {
		return false, nil
	}
	if err != nil {
		return true, nil //nolint:nilerr // retryablehttp reports the final error
	}
	return false, nil
}

// BaseURL returns the backend root the client was built with.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// GetBoardInfo fetches the status of every board the backend knows.
func (c *Client) GetBoardInfo(ctx context.Context) ([]BoardInfo, error) {
	var boards []BoardInfo
	if err := c.do(ctx, http.MethodGet, boardInfoPath, nil, &boards); err != nil {
		return nil, err
	}
	return boards, nil
}

// GetStackInfo fetches every stack with services, tasks and resource usage.
func (c *Client) GetStackInfo(ctx context.Context) ([]StackInfo, error) {
	var stacks []StackInfo
	if err := c.do(ctx, http.MethodGet, stackInfoPath, nil, &stacks); err != nil {
		return nil, err
	}
	return stacks, nil
}

// Deploy enables every stack carrying one of the given label UUIDs.
func (c *Client) Deploy(ctx context.Context, labels []string) (*DeployResponse, error) {
	return c.deploy(ctx, deployPath, labels)
}

// Undeploy disables every stack carrying one of the given label UUIDs.
func (c *Client) Undeploy(ctx context.Context, labels []string) (*DeployResponse, error) {
	return c.deploy(ctx, undeployPath, labels)
}

func (c *Client) deploy(ctx context.Context, path string, labels []string) (*DeployResponse, error) {
	if len(labels) == 0 {
		return nil, ErrNoLabels
	}
	var out DeployResponse
	if err := c.do(ctx, http.MethodPost, path, deployRequest{StackLabels: labels}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("Failed to close backend response body")
		}
	}()

	log.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("latency", time.Since(start)).
		Msg("Backend request")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{StatusCode: resp.StatusCode}
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformedResponse, path, err)
	}
	if env.Code != 0 {
		return fmt.Errorf("%w: code %d: %s", ErrBackendRejected, env.Code, env.Message)
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("%w: %s data: %v", ErrMalformedResponse, path, err)
	}
	return nil
}
