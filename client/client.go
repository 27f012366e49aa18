package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	// small json calls and fetches only
	defaultTimeout = 60 * time.Second
	userAgent      = "crtv-studio/1.0"
)

var outboundRequests = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "crtv_outbound_requests_total",
		Help: "Requests issued to external backends by backend and outcome.",
	},
	[]string{"backend", "outcome"},
)

// StatusError is returned when the remote answers with a non 2xx status.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status code: %d", e.Code)
}

// Client talks to one bearer-authenticated REST backend.
type Client struct {
	client    *http.Client
	cache     *cache.Cache
	userAgent string
	backend   string
	baseURL   *url.URL
	apiKey    string
}

func New(backend, baseURL, apiKey string) (*Client, error) {
	base, err := url.Parse(strings.TrimSuffix(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %v", err)
	}

	httpClient := http.Client{}

	fmt.Println("Initialize Client for", backend, "at", base.String())
	c := &Client{
		client:    &httpClient,
		cache:     cache.New(10*time.Minute, 15*time.Minute),
		userAgent: userAgent,
		backend:   backend,
		baseURL:   base,
		apiKey:    apiKey,
	}
	httpClient.Transport = c
	return c, nil
}

func (c *Client) RoundTrip(req *http.Request) (*http.Response, error) {
	req.Header.Set("User-Agent", c.userAgent)
	// credentials only go to our own backend, never to presigned upload urls
	if c.apiKey != "" && req.URL.Host == c.baseURL.Host && req.Header.Get("Authorization") == "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	return http.DefaultTransport.RoundTrip(req)
}

func (c *Client) endpoint(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return c.baseURL.String() + "/" + strings.TrimPrefix(path, "/")
}

func (c *Client) do(req *http.Request) (*http.Response, error) {
	resp, err := c.client.Do(req)
	if err != nil {
		outboundRequests.WithLabelValues(c.backend, "error").Inc()
		return nil, fmt.Errorf("failed to perform request: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		outboundRequests.WithLabelValues(c.backend, "status_"+statusClass(resp.StatusCode)).Inc()
		slog.WarnContext(
			req.Context(), "backend returned error status",
			slog.String("backend", c.backend),
			slog.String("url", req.URL.Redacted()),
			slog.Int("status", resp.StatusCode),
			slog.String("module", "client"),
		)
		return nil, &StatusError{Code: resp.StatusCode, Body: string(body)}
	}

	outboundRequests.WithLabelValues(c.backend, "ok").Inc()
	return resp, nil
}

func statusClass(code int) string {
	return fmt.Sprintf("%dxx", code/100)
}

// HttpRequest sends body as JSON (when non nil) and decodes the answer into response.
func (c *Client) HttpRequest(ctx context.Context, method, path string, body any, response any) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode body: %v", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path), reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if response == nil {
		return nil
	}

	err = json.NewDecoder(resp.Body).Decode(response)
	if err != nil {
		return fmt.Errorf("failed to decode response: %v", err)
	}

	return nil
}

// CachedRequest is HttpRequest for idempotent GETs. The decoded value is kept
// for ttl under key.
func (c *Client) CachedRequest(ctx context.Context, key, path string, ttl time.Duration, response any) error {
	if x, found := c.cache.Get(key); found {
		slog.DebugContext(ctx, "cache hit", slog.String("key", key), slog.String("module", "client"))
		return json.Unmarshal(x.([]byte), response)
	}

	var raw json.RawMessage
	err := c.HttpRequest(ctx, http.MethodGet, path, nil, &raw)
	if err != nil {
		return err
	}

	c.cache.Set(key, []byte(raw), ttl)
	return json.Unmarshal(raw, response)
}

// File is one part of a multipart request.
type File struct {
	Field       string
	Name        string
	ContentType string
	Body        io.Reader
}

// Multipart posts fields and files as multipart/form-data. The form is
// streamed while it is written, so file bodies are never held in memory, and
// no timeout is applied besides the one carried by ctx.
func (c *Client) Multipart(ctx context.Context, path string, fields map[string]string, files []File, response any) error {
	pr, pw := io.Pipe()
	defer pr.Close()
	writer := multipart.NewWriter(pw)

	go func() {
		pw.CloseWithError(writeForm(writer, fields, files))
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(path), pr)
	if err != nil {
		return fmt.Errorf("failed to create request: %v", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	resp, err := c.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if response == nil {
		return nil
	}

	err = json.NewDecoder(resp.Body).Decode(response)
	if err != nil {
		return fmt.Errorf("failed to decode response: %v", err)
	}
	return nil
}

func writeForm(writer *multipart.Writer, fields map[string]string, files []File) error {
	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			return fmt.Errorf("failed to write field: %v", err)
		}
	}

	for _, file := range files {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, file.Field, file.Name))
		contentType := file.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		header.Set("Content-Type", contentType)

		part, err := writer.CreatePart(header)
		if err != nil {
			return fmt.Errorf("failed to create part: %v", err)
		}
		if _, err := io.Copy(part, file.Body); err != nil {
			return fmt.Errorf("failed to write part: %v", err)
		}
	}

	return writer.Close()
}

// Upload streams body to an absolute url, usually a presigned upload target.
// No timeout is applied besides the one carried by ctx.
func (c *Client) Upload(ctx context.Context, method, rawURL, contentType string, body io.Reader, size int64) error {
	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(rawURL), body)
	if err != nil {
		return fmt.Errorf("failed to create request: %v", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if size > 0 {
		req.ContentLength = size
	}

	resp, err := c.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// Fetch downloads an absolute or base relative url.
func (c *Client) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(rawURL), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %v", err)
	}

	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %v", err)
	}
	return b, nil
}
