package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// Client talks to the Supabase REST (PostgREST) and Storage APIs with a
// service key.
type Client struct {
	BaseURL    string
	Key        string
	HTTPClient *http.Client
}

func NewClient(baseURL, key string) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		Key:        strings.TrimSpace(key),
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// StatusError is an unexpected response status.
type StatusError struct {
	Method string
	Path   string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("supabase %s %s: status=%d: %s", e.Method, e.Path, e.Status, e.Body)
}

type reqConfig struct {
	Method      string
	Path        string
	Query       url.Values
	Headers     map[string]string
	Body        []byte
	ContentType string
}

func (c *Client) newRequest(ctx context.Context, cfg reqConfig) (*http.Request, error) {
	target := c.BaseURL + cfg.Path
	if len(cfg.Query) > 0 {
		target += "?" + cfg.Query.Encode()
	}
	var body io.Reader
	if cfg.Body != nil {
		body = bytes.NewReader(cfg.Body)
	}
	req, err := http.NewRequestWithContext(ctx, cfg.Method, target, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("apikey", c.Key)
	req.Header.Set("Authorization", "Bearer "+c.Key)
	if cfg.ContentType != "" {
		req.Header.Set("Content-Type", cfg.ContentType)
	} else if cfg.Body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range cfg.Headers {
		req.Header.Set(k, v)
	}
	return req, nil
}

// do sends the request and returns the body when the status is one of expected.
func (c *Client) do(ctx context.Context, cfg reqConfig, expected ...int) ([]byte, error) {
	req, err := c.newRequest(ctx, cfg)
	if err != nil {
		return nil, err
	}
	client := c.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("supabase %s %s: %w", cfg.Method, cfg.Path, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("supabase %s %s: read body: %w", cfg.Method, cfg.Path, err)
	}
	for _, code := range expected {
		if resp.StatusCode == code {
			return raw, nil
		}
	}
	return nil, &StatusError{Method: cfg.Method, Path: cfg.Path, Status: resp.StatusCode, Body: errorMessage(raw)}
}

// request sends cfg and decodes the JSON response into T.
func request[T any](ctx context.Context, c *Client, cfg reqConfig, expected ...int) (*T, error) {
	raw, err := c.do(ctx, cfg, expected...)
	if err != nil {
		return nil, err
	}
	var out T
	if len(bytes.TrimSpace(raw)) == 0 {
		return &out, nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("supabase %s %s: decode: %w", cfg.Method, cfg.Path, err)
	}
	return &out, nil
}

func errorMessage(raw []byte) string {
	for _, path := range []string{"message", "error", "msg"} {
		if v := gjson.GetBytes(raw, path); v.Exists() && v.String() != "" {
			return v.String()
		}
	}
	return strings.TrimSpace(string(raw))
}
