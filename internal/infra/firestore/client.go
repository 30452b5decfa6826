// Package firestore writes documents through the Firestore REST API.
//
// The REST error envelope carries a canonical google.rpc.Code name in its
// "status" field. APIError exposes it as a gRPC status so retry.Classify maps
// UNAVAILABLE, DEADLINE_EXCEEDED, RESOURCE_EXHAUSTED, ABORTED and INTERNAL
// onto retryable categories without looking at message text.
package firestore

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

	"google.golang.org/genproto/googleapis/rpc/code"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/vietddude/genie/internal/core/domain"
	"github.com/vietddude/genie/internal/retry"
)

// Config holds Firestore REST settings. An empty ProjectID disables the sink.
type Config struct {
	ProjectID  string        `yaml:"project_id"`
	Collection string        `yaml:"collection"`
	Token      string        `yaml:"token"` // OAuth2 bearer token
	BaseURL    string        `yaml:"base_url"`
	Timeout    time.Duration `yaml:"timeout"`
}

// Enabled reports whether enough settings are present to write documents.
func (c Config) Enabled() bool {
	return c.ProjectID != "" && c.Collection != ""
}

// APIError is the decoded REST error envelope.
type APIError struct {
	HTTPStatus int
	Status     string // Canonical code name, e.g. "UNAVAILABLE"
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("firestore http %d %s: %s", e.HTTPStatus, e.Status, e.Message)
}

// RPCCode resolves Status through the google.rpc.Code enum.
func (e *APIError) RPCCode() code.Code {
	if v, ok := code.Code_value[e.Status]; ok {
		return code.Code(v)
	}
	return code.Code_UNKNOWN
}

// GRPCStatus lets status.FromError, and therefore retry.Classify, see the code.
func (e *APIError) GRPCStatus() *status.Status {
	return status.New(codes.Code(e.RPCCode()), e.Message)
}

// Client writes documents into one collection.
type Client struct {
	baseURL    string
	projectID  string
	collection string
	token      string
	httpClient *http.Client
}

// NewClient creates a new Firestore REST client.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://firestore.googleapis.com/v1"
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		projectID:  cfg.ProjectID,
		collection: cfg.Collection,
		token:      cfg.Token,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *Client) documentURL(docID string) string {
	return fmt.Sprintf("%s/projects/%s/databases/(default)/documents/%s/%s",
		c.baseURL, url.PathEscape(c.projectID), url.PathEscape(c.collection), url.PathEscape(docID))
}

// SetDocument creates or replaces the document docID with fields.
func (c *Client) SetDocument(ctx context.Context, docID string, fields map[string]any) error {
	encoded := make(map[string]any, len(fields))
	for k, v := range fields {
		val, err := encodeValue(v)
		if err != nil {
			return fmt.Errorf("encode field %s: %w", k, err)
		}
		encoded[k] = val
	}

	jsonData, err := json.Marshal(map[string]any{"fields": encoded})
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, c.documentURL(docID), bytes.NewReader(jsonData))
	if err != nil {
		return retry.Permanent(fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return retry.Transport(fmt.Errorf("send request: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return retry.Categorize(fmt.Errorf("read response: %w", err), retry.CategoryNetworkUnavailable)
	}

	if resp.StatusCode >= 300 {
		return parseError(resp.StatusCode, body)
	}
	return nil
}

// SaveJob mirrors a job record as a document keyed by its ID.
func (c *Client) SaveJob(ctx context.Context, rec *domain.JobRecord) error {
	return c.SetDocument(ctx, rec.ID, map[string]any{
		"batchId":   rec.BatchID,
		"index":     rec.Index,
		"label":     rec.Label,
		"status":    string(rec.Status),
		"email":     rec.Email,
		"domain":    rec.Lead.Domain,
		"name":      rec.Lead.Name(),
		"createdAt": rec.CreatedAt,
	})
}

func parseError(httpStatus int, body []byte) error {
	var envelope struct {
		Error struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
			Status  string `json:"status"`
		} `json:"error"`
	}
	apiErr := &APIError{HTTPStatus: httpStatus, Status: statusFromHTTP(httpStatus), Message: strings.TrimSpace(string(body))}
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error.Status != "" {
		apiErr.Status = envelope.Error.Status
		apiErr.Message = envelope.Error.Message
	}
	return apiErr
}

// statusFromHTTP is the fallback when the body carries no status name.
func statusFromHTTP(httpStatus int) string {
	switch httpStatus {
	case http.StatusTooManyRequests:
		return code.Code_RESOURCE_EXHAUSTED.String()
	case http.StatusServiceUnavailable, http.StatusBadGateway:
		return code.Code_UNAVAILABLE.String()
	case http.StatusGatewayTimeout:
		return code.Code_DEADLINE_EXCEEDED.String()
	case http.StatusConflict:
		return code.Code_ABORTED.String()
	case http.StatusInternalServerError:
		return code.Code_INTERNAL.String()
	case http.StatusNotFound:
		return code.Code_NOT_FOUND.String()
	case http.StatusForbidden:
		return code.Code_PERMISSION_DENIED.String()
	case http.StatusUnauthorized:
		return code.Code_UNAUTHENTICATED.String()
	default:
		return code.Code_UNKNOWN.String()
	}
}

// encodeValue converts a Go value into a Firestore REST typed value.
func encodeValue(v any) (map[string]any, error) {
	switch val := v.(type) {
	case nil:
		return map[string]any{"nullValue": nil}, nil
	case string:
		return map[string]any{"stringValue": val}, nil
	case bool:
		return map[string]any{"booleanValue": val}, nil
	case int:
		return map[string]any{"integerValue": fmt.Sprintf("%d", val)}, nil
	case int64:
		return map[string]any{"integerValue": fmt.Sprintf("%d", val)}, nil
	case float64:
		return map[string]any{"doubleValue": val}, nil
	case time.Time:
		return map[string]any{"timestampValue": val.UTC().Format(time.RFC3339Nano)}, nil
	default:
		return nil, fmt.Errorf("unsupported type %T", v)
	}
}
