// Package enginehttp is the thin REST client shared by adapters that talk
// to an external inference engine over HTTP.
package enginehttp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"
)

// Client wraps one engine base URL. Inference calls can run long, so the
// default client carries a generous timeout and callers bound individual
// requests through their context.
type Client struct {
	base string
	hc   *http.Client
}

func New(base string, hc *http.Client) *Client {
	if hc == nil {
		hc = &http.Client{Timeout: 5 * time.Minute}
	}
	return &Client{base: base, hc: hc}
}

// Ping checks the engine's health endpoint.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/health", nil)
	if err != nil {
		return fmt.Errorf("engine request: %w", err)
	}
	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("engine unreachable: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("engine health: HTTP %d", resp.StatusCode)
	}
	return nil
}

// GetJSON fetches path and decodes the JSON response into dest.
func (c *Client) GetJSON(ctx context.Context, path string, dest any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path, nil)
	if err != nil {
		return fmt.Errorf("engine request: %w", err)
	}
	body, err := c.do(req)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, dest); err != nil {
		return fmt.Errorf("engine response: %w", err)
	}
	return nil
}

// PostJSON sends body as JSON and decodes the JSON response into dest.
// Pass a nil dest to discard the response.
func (c *Client) PostJSON(ctx context.Context, path string, body, dest any) error {
	raw, err := c.PostJSONBytes(ctx, path, body)
	if err != nil {
		return err
	}
	if dest == nil {
		return nil
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("engine response: %w", err)
	}
	return nil
}

// PostJSONBytes sends body as JSON and returns the raw response bytes,
// for endpoints that answer with audio rather than JSON.
func (c *Client) PostJSONBytes(ctx context.Context, path string, body any) ([]byte, error) {
	req, err := c.jsonRequest(ctx, path, body)
	if err != nil {
		return nil, err
	}
	return c.do(req)
}

// PostJSONStream sends body as JSON and hands back the response body for
// incremental consumption. The caller owns the ReadCloser.
func (c *Client) PostJSONStream(ctx context.Context, path string, body any) (io.ReadCloser, error) {
	req, err := c.jsonRequest(ctx, path, body)
	if err != nil {
		return nil, err
	}
	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("engine request: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		resp.Body.Close()
		return nil, fmt.Errorf("engine: HTTP %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}
	return resp.Body, nil
}

// PostBytes sends a raw body with the given content type and decodes the
// JSON response into dest.
func (c *Client) PostBytes(ctx context.Context, path, contentType string, body []byte, dest any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("engine request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	raw, err := c.do(req)
	if err != nil {
		return err
	}
	if dest == nil {
		return nil
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("engine response: %w", err)
	}
	return nil
}

// PostMultipart sends form fields plus one file part and returns the raw
// response bytes.
func (c *Client) PostMultipart(ctx context.Context, path string, fields map[string]string, fileField, filename string, file []byte) ([]byte, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return nil, fmt.Errorf("engine request: %w", err)
		}
	}
	part, err := mw.CreateFormFile(fileField, filename)
	if err != nil {
		return nil, fmt.Errorf("engine request: %w", err)
	}
	if _, err := part.Write(file); err != nil {
		return nil, fmt.Errorf("engine request: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("engine request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, &buf)
	if err != nil {
		return nil, fmt.Errorf("engine request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return c.do(req)
}

func (c *Client) jsonRequest(ctx context.Context, path string, body any) (*http.Request, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("engine request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("engine request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("engine request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("engine response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("engine: HTTP %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}
	return body, nil
}
