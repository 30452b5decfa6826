// Package prospeo implements a minimal client for the Prospeo email-finder API.
//
// Only the fields needed to resolve a lead to an email are modeled; every
// transport or API failure is annotated with a retry category so callers can
// wrap FindEmail in retry.Execute.
package prospeo

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/vietddude/genie/internal/core/domain"
	"github.com/vietddude/genie/internal/retry"
)

// ErrNoMatch is returned when the API found no email for the lead.
var ErrNoMatch = errors.New("no email found")

// Config holds Prospeo client settings.
type Config struct {
	URL     string        `yaml:"url"`
	APIKey  string        `yaml:"api_key"`
	Timeout time.Duration `yaml:"timeout"`
}

// APIError is a non-2xx answer from the API.
type APIError struct {
	StatusCode int
	ErrorCode  string
	Message    string
}

func (e *APIError) Error() string {
	if e.ErrorCode != "" {
		return fmt.Sprintf("prospeo http %d: %s: %s", e.StatusCode, e.ErrorCode, e.Message)
	}
	return fmt.Sprintf("prospeo http %d: %s", e.StatusCode, e.Message)
}

// Code exposes the API error code for text based classification.
func (e *APIError) Code() string { return e.ErrorCode }

// Client calls the email-finder endpoint.
type Client struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a new Prospeo client.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		endpoint: strings.TrimRight(cfg.URL, "/") + "/email-finder",
		apiKey:   cfg.APIKey,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

type finderRequest struct {
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	FullName  string `json:"full_name,omitempty"`
	Company   string `json:"company"`
}

type finderResponse struct {
	Error    bool   `json:"error"`
	Message  string `json:"message"`
	Response struct {
		Email       string `json:"email"`
		EmailStatus string `json:"email_status"`
		Confidence  int    `json:"confidence"`
	} `json:"response"`
}

// FindEmail resolves lead to an email address.
func (c *Client) FindEmail(ctx context.Context, lead domain.Lead) (domain.LookupResult, error) {
	body := finderRequest{
		FirstName: lead.FirstName,
		LastName:  lead.LastName,
		FullName:  lead.FullName,
		Company:   lead.Domain,
	}
	jsonData, err := json.Marshal(body)
	if err != nil {
		return domain.LookupResult{}, retry.Permanent(fmt.Errorf("marshal request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(jsonData))
	if err != nil {
		return domain.LookupResult{}, retry.Permanent(fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-KEY", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.LookupResult{}, retry.Transport(fmt.Errorf("send request: %w", err))
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.LookupResult{}, retry.Categorize(
			fmt.Errorf("read response: %w", err), retry.CategoryNetworkUnavailable)
	}

	var parsed finderResponse
	parseErr := json.Unmarshal(data, &parsed)

	if resp.StatusCode != http.StatusOK {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(data))}
		if parseErr == nil && parsed.Message != "" {
			apiErr.ErrorCode = parsed.Message
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		if parsed.Message == "NO_MATCH" {
			return domain.LookupResult{}, fmt.Errorf("%w: %w", ErrNoMatch, retry.Permanent(apiErr))
		}
		return domain.LookupResult{}, categorizeStatus(apiErr)
	}

	if parseErr != nil {
		return domain.LookupResult{}, retry.Permanent(fmt.Errorf("parse response: %w", parseErr))
	}
	if parsed.Error {
		if parsed.Message == "NO_MATCH" {
			return domain.LookupResult{}, retry.Permanent(ErrNoMatch)
		}
		return domain.LookupResult{}, &APIError{StatusCode: resp.StatusCode, ErrorCode: parsed.Message}
	}
	if parsed.Response.Email == "" {
		return domain.LookupResult{}, retry.Permanent(ErrNoMatch)
	}

	return domain.LookupResult{
		Email:      parsed.Response.Email,
		Verified:   strings.EqualFold(parsed.Response.EmailStatus, "VALID"),
		Confidence: parsed.Response.Confidence,
	}, nil
}

// categorizeStatus maps retryable HTTP statuses onto retry categories.
// Anything else is left for the default classifier.
func categorizeStatus(err *APIError) error {
	switch err.StatusCode {
	case http.StatusTooManyRequests:
		return retry.Categorize(err, retry.CategoryResourceExhausted)
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return retry.Categorize(err, retry.CategoryDeadlineExceeded)
	case http.StatusBadGateway, http.StatusServiceUnavailable:
		return retry.Categorize(err, retry.CategoryNetworkUnavailable)
	case http.StatusInternalServerError:
		return retry.Categorize(err, retry.CategoryInternal)
	default:
		return retry.Permanent(err)
	}
}
