// Package reportsvc talks to the remote report-rendering service: it posts a
// normalized report and fetches the rendered document the service points to.
package reportsvc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/MrDragar/LDPR-reports-generator/internal/report"
)

// ErrBadResponse is returned when the service answers 2xx with a body that
// is not a success envelope carrying a document URL.
var ErrBadResponse = errors.New("invalid server response")

// #region types
// Config holds report service parameters.
type Config struct {
	URL     string
	Timeout time.Duration
}

// Response is the service's reply to a submission. The status literal is
// spelled the way the service spells it.
type Response struct {
	Status  string `json:"status" validate:"required,eq=Succes"`
	Message string `json:"message" validate:"required,url"`
}

// StatusError reports a non-2xx answer.
type StatusError struct {
	Op   string // "submit" | "fetch"
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: server error %d", e.Op, e.Code)
	}
	return fmt.Sprintf("%s: server error %d: %s", e.Op, e.Code, e.Body)
}
// #endregion types

// #region config
// DefaultConfig returns the report service configuration.
// Reads from env vars: REPORT_SERVICE_URL, REPORT_SERVICE_TIMEOUT (seconds).
func DefaultConfig() Config {
	cfg := Config{
		URL:     "http://localhost:8000/",
		Timeout: 60 * time.Second,
	}
	if v := strings.TrimSpace(os.Getenv("REPORT_SERVICE_URL")); v != "" {
		cfg.URL = v
	}
	if v := os.Getenv("REPORT_SERVICE_TIMEOUT"); v != "" {
		if sec, err := strconv.Atoi(v); err == nil && sec > 0 {
			cfg.Timeout = time.Duration(sec) * time.Second
		}
	}
	return cfg
}
// #endregion config

// #region client
// Client is an HTTP client for the report service.
type Client struct {
	cfg      Config
	http     *http.Client
	validate *validator.Validate
}

func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	return &Client{
		cfg:      cfg,
		http:     &http.Client{Timeout: cfg.Timeout},
		validate: validator.New(),
	}
}

// EncodePayload serializes r for submission. Output is deterministic: struct
// fields keep declaration order and map keys are sorted.
func EncodePayload(r report.Report) ([]byte, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("encode report: %w", err)
	}
	return b, nil
}

// Submit posts payload and returns the rendered document's URL.
func (c *Client) Submit(ctx context.Context, payload []byte) (string, error) {
	body, err := c.Post(ctx, payload)
	if err != nil {
		return "", err
	}
	return c.Decode(body)
}

// Post sends payload and returns the raw 2xx answer. A non-2xx answer is a
// *StatusError.
func (c *Client) Post(ctx context.Context, payload []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("post report: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{Op: "submit", Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return body, nil
}

// Decode checks the success envelope and returns the document URL.
func (c *Client) Decode(body []byte) (string, error) {
	var parsed Response
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("%w: %v", ErrBadResponse, err)
	}
	if err := c.validate.Struct(parsed); err != nil {
		return "", fmt.Errorf("%w: %v", ErrBadResponse, err)
	}
	return parsed.Message, nil
}

// Fetch downloads the rendered document.
func (c *Client) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{Op: "fetch", Code: resp.StatusCode}
	}
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	return b, nil
}
// #endregion client
