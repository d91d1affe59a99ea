package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultHTTPTimeout = 5 * time.Minute
	httpTimeoutEnvKey  = "MDM_HTTP_TIMEOUT"
	apiKeyHeader       = "X-API-Key"
)

// Client is a simple HTTP client for the ingest API.
type Client struct {
	baseURL string
	http    *http.Client
	apiKey  string
}

// NewClient creates a new API client. An empty apiKey sends no credential.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: httpTimeoutFromEnv()},
		apiKey:  strings.TrimSpace(apiKey),
	}
}

// Ping checks whether the API server is reachable.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return decodeError(resp)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// Ingest uploads body as a raw payload with metadata in the meta header.
func (c *Client) Ingest(ctx context.Context, body io.Reader, contentType string, meta map[string]any) (IngestResponse, error) {
	var resp IngestResponse

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/ingest", body)
	if err != nil {
		return resp, err
	}
	if len(meta) > 0 {
		payload, err := json.Marshal(meta)
		if err != nil {
			return resp, fmt.Errorf("encode metadata: %w", err)
		}
		req.Header.Set(MetaHeader, string(payload))
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	req.Header.Set("Content-Type", contentType)
	c.setAuthHeader(req)

	httpResp, err := c.http.Do(req)
	if err != nil {
		return resp, err
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode >= 400 {
		return resp, decodeError(httpResp)
	}
	err = json.NewDecoder(httpResp.Body).Decode(&resp)
	return resp, err
}

func decodeError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode, Message: resp.Status}
	var errResp ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&errResp); err == nil && errResp.Error != "" {
		apiErr.Message = errResp.Error
		apiErr.Code = errResp.Code
		apiErr.ErrorCode = errResp.ErrorCode
	}
	return apiErr
}

func (c *Client) setAuthHeader(req *http.Request) {
	if c.apiKey == "" || req == nil {
		return
	}
	req.Header.Set(apiKeyHeader, c.apiKey)
}

func httpTimeoutFromEnv() time.Duration {
	value := strings.TrimSpace(os.Getenv(httpTimeoutEnvKey))
	if value == "" {
		return defaultHTTPTimeout
	}

	if duration, err := time.ParseDuration(value); err == nil && duration > 0 {
		return duration
	}
	if seconds, err := strconv.Atoi(value); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}

	return defaultHTTPTimeout
}
