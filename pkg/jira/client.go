package jira

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"jiradataset/pkg/config"
	errs "jiradataset/pkg/errors"
	"jiradataset/pkg/logger"
	"jiradataset/pkg/metrics"
	"jiradataset/pkg/ratelimit"
)

// Client issues single search requests and classifies each outcome
type Client struct {
	httpClient *http.Client
	headers    map[string]string
	baseURL    string
	username   string
	apiToken   string
	limiter    ratelimit.Limiter
	logger     logger.Logger
}

// NewClient creates a client with independent connect and read timeouts
func NewClient(cfg config.JiraConfig, log logger.Logger) *Client {
	if log == nil {
		log = logger.GetLogger()
	}

	connectTimeout := cfg.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 30 * time.Second
	}
	readTimeout := cfg.ReadTimeout
	if readTimeout <= 0 {
		readTimeout = 30 * time.Second
	}
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = (&net.Dialer{
		Timeout:   connectTimeout,
		KeepAlive: 30 * time.Second,
	}).DialContext
	transport.TLSHandshakeTimeout = connectTimeout
	transport.ResponseHeaderTimeout = readTimeout

	return &Client{
		// Timeout bounds the body read as well; the transport only covers
		// dialing and response headers
		httpClient: &http.Client{Transport: transport, Timeout: connectTimeout + readTimeout},
		headers: map[string]string{
			"Accept":     "application/json",
			"User-Agent": userAgent,
		},
		baseURL:  baseURL,
		username: cfg.Username,
		apiToken: cfg.APIToken,
		logger:   log,
	}
}

// SetLimiter paces requests through l; nil disables pacing
func (c *Client) SetLimiter(l ratelimit.Limiter) {
	c.limiter = l
}

// BaseURL returns the REST root the client talks to
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Search performs exactly one search request. Failures are *errors.Error
// values carrying their class, except context cancellation which is
// returned as is.
func (c *Client) Search(ctx context.Context, p SearchParams) (Envelope, error) {
	url := SearchURL(c.baseURL, p)

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	body, status, err := c.get(ctx, url)
	if err != nil {
		return nil, err
	}
	return c.decodeEnvelope(url, status, body)
}

// get performs an HTTP GET and returns the body of a non-error response
func (c *Client) get(ctx context.Context, url string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, errs.Wrap(errs.ClassFatal, 0, "failed to create request", err)
	}
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}
	if c.username != "" && c.apiToken != "" {
		req.SetBasicAuth(c.username, c.apiToken)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)
	metrics.RequestDuration.Observe(duration.Seconds())

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, 0, ctxErr
		}
		metrics.RequestsTotal.WithLabelValues(string(errs.ClassTransport)).Inc()
		c.logger.WarnWithFields("HTTP request failed", map[string]interface{}{
			"method":   req.Method,
			"url":      url,
			"error":    err.Error(),
			"duration": duration,
		})
		return nil, 0, errs.Wrap(errs.ClassTransport, 0, "network error", err)
	}
	defer resp.Body.Close()

	metrics.RequestsTotal.WithLabelValues(strconv.Itoa(resp.StatusCode)).Inc()
	logger.LogRequest(c.logger, req.Method, url, resp.StatusCode, duration)

	if class, failed := errs.ClassForStatus(resp.StatusCode); failed {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, resp.StatusCode, errs.New(class, resp.StatusCode,
			fmt.Sprintf("search returned status %d", resp.StatusCode))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, resp.StatusCode, ctxErr
		}
		return nil, resp.StatusCode, errs.Wrap(errs.ClassTransport, resp.StatusCode, "failed to read response body", err)
	}
	return body, resp.StatusCode, nil
}

// decodeEnvelope classifies a 2xx body
func (c *Client) decodeEnvelope(url string, status int, body []byte) (Envelope, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, errs.New(errs.ClassMalformedResponse, status, "empty response body")
	}

	var parsed interface{}
	if err := json.Unmarshal(trimmed, &parsed); err != nil {
		preview := string(trimmed)
		if len(preview) > 200 {
			preview = preview[:200] + "..."
		}
		c.logger.WarnWithFields("failed to parse JSON response", map[string]interface{}{
			"url":          url,
			"status":       status,
			"error":        err.Error(),
			"body_preview": preview,
		})
		return nil, errs.Wrap(errs.ClassMalformedResponse, status, "failed to parse JSON", err)
	}
	if _, ok := parsed.(map[string]interface{}); !ok {
		return nil, errs.New(errs.ClassFatal, status, fmt.Sprintf("unexpected envelope type %T", parsed))
	}

	var env Envelope
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return nil, errs.Wrap(errs.ClassMalformedResponse, status, "failed to decode envelope", err)
	}
	return env, nil
}
