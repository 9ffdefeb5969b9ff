package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client talks to a running `marktimer serve`.
type Client struct {
	BaseURL string
	Token   string
	HTTP    *http.Client
}

// NewClient returns a client for baseURL. A bare host:port gets an http
// scheme.
func NewClient(baseURL, token string) *Client {
	if !strings.Contains(baseURL, "://") {
		baseURL = "http://" + baseURL
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		HTTP:    &http.Client{Timeout: 10 * time.Second},
	}
}

// APIError is a non-2xx response.
type APIError struct {
	Status int
	Body   errResponse
}

func (e *APIError) Error() string {
	if e.Body.Code != "" {
		return fmt.Sprintf("%s (%s, http %d)", e.Body.Error, e.Body.Code, e.Status)
	}
	return fmt.Sprintf("%s (http %d)", e.Body.Error, e.Status)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var rdr io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		rdr = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, rdr)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	// Batch results report partial failure with a conflict status and a
	// normal body.
	if resp.StatusCode >= 300 && !(resp.StatusCode == http.StatusConflict && strings.HasPrefix(path, "/api/batch/")) {
		apiErr := &APIError{Status: resp.StatusCode}
		if err := json.NewDecoder(resp.Body).Decode(&apiErr.Body); err != nil {
			apiErr.Body.Error = http.StatusText(resp.StatusCode)
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Batch runs a lifecycle action on the timers matching pattern.
func (c *Client) Batch(ctx context.Context, action, pattern string) (BatchResponse, error) {
	var out BatchResponse
	path := "/api/batch/" + url.PathEscape(action)
	if pattern != "" {
		path += "?match=" + url.QueryEscape(pattern)
	}
	err := c.do(ctx, http.MethodPost, path, nil, &out)
	return out, err
}

// Command dispatches one command to a timer.
func (c *Client) Command(ctx context.Context, id string, cmd CommandRequest) (TimerView, error) {
	var out TimerView
	err := c.do(ctx, http.MethodPost, "/api/timers/"+url.PathEscape(id)+"/commands", cmd, &out)
	return out, err
}

// Timers lists the timers matching pattern.
func (c *Client) Timers(ctx context.Context, pattern string) ([]TimerView, error) {
	var out struct {
		Timers []TimerView `json:"timers"`
	}
	path := "/api/timers"
	if pattern != "" {
		path += "?match=" + url.QueryEscape(pattern)
	}
	err := c.do(ctx, http.MethodGet, path, nil, &out)
	return out.Timers, err
}
