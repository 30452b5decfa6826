package firestore

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"google.golang.org/genproto/googleapis/rpc/code"

	"github.com/vietddude/genie/internal/core/domain"
	"github.com/vietddude/genie/internal/retry"
)

func TestClient_SaveJob(t *testing.T) {
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch {
			t.Errorf("expected PATCH, got %s", r.Method)
		}
		wantPath := "/projects/demo/databases/(default)/documents/leads/job-1"
		if r.URL.Path != wantPath {
			t.Errorf("expected path %s, got %s", wantPath, r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer tok" {
			t.Errorf("unexpected auth header %q", r.Header.Get("Authorization"))
		}

		var doc struct {
			Fields map[string]map[string]any `json:"fields"`
		}
		if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
			t.Errorf("decode body: %v", err)
			return
		}
		if doc.Fields["email"]["stringValue"] != "ada@acme.com" {
			t.Errorf("unexpected email field: %v", doc.Fields["email"])
		}
		if doc.Fields["index"]["integerValue"] != "4" {
			t.Errorf("unexpected index field: %v", doc.Fields["index"])
		}
		if doc.Fields["createdAt"]["timestampValue"] != "2026-03-01T12:00:00Z" {
			t.Errorf("unexpected createdAt field: %v", doc.Fields["createdAt"])
		}
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	c := NewClient(Config{ProjectID: "demo", Collection: "leads", Token: "tok", BaseURL: server.URL})
	rec := &domain.JobRecord{
		ID:        "job-1",
		BatchID:   "batch-1",
		Index:     4,
		Label:     "find-email:acme.com:Ada Lovelace",
		Lead:      domain.Lead{FirstName: "Ada", LastName: "Lovelace", Domain: "acme.com"},
		Status:    domain.JobStatusSucceeded,
		Email:     "ada@acme.com",
		CreatedAt: created,
	}
	if err := c.SaveJob(context.Background(), rec); err != nil {
		t.Fatalf("SaveJob failed: %v", err)
	}
}

func TestClient_ErrorClassification(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		wantCode  code.Code
		retryable bool
	}{
		{"unavailable", 503, `{"error":{"code":503,"message":"backend down","status":"UNAVAILABLE"}}`, code.Code_UNAVAILABLE, true},
		{"deadline", 504, `{"error":{"code":504,"message":"slow","status":"DEADLINE_EXCEEDED"}}`, code.Code_DEADLINE_EXCEEDED, true},
		{"quota", 429, `{"error":{"code":429,"message":"quota","status":"RESOURCE_EXHAUSTED"}}`, code.Code_RESOURCE_EXHAUSTED, true},
		{"contention", 409, `{"error":{"code":409,"message":"too much contention","status":"ABORTED"}}`, code.Code_ABORTED, true},
		{"permission denied", 403, `{"error":{"code":403,"message":"no","status":"PERMISSION_DENIED"}}`, code.Code_PERMISSION_DENIED, false},
		{"invalid argument", 400, `{"error":{"code":400,"message":"bad","status":"INVALID_ARGUMENT"}}`, code.Code_INVALID_ARGUMENT, false},
		{"plain 503 body", 503, `service unavailable`, code.Code_UNAVAILABLE, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			c := NewClient(Config{ProjectID: "p", Collection: "c", BaseURL: server.URL})
			err := c.SetDocument(context.Background(), "doc", map[string]any{"ok": true})
			if err == nil {
				t.Fatal("expected error")
			}
			apiErr, ok := err.(*APIError)
			if !ok {
				t.Fatalf("expected *APIError, got %T", err)
			}
			if apiErr.RPCCode() != tt.wantCode {
				t.Errorf("RPCCode = %v, want %v", apiErr.RPCCode(), tt.wantCode)
			}
			if got := retry.IsRetryable(err); got != tt.retryable {
				t.Errorf("IsRetryable = %v, want %v (category %v)", got, tt.retryable, retry.Classify(err))
			}
		})
	}
}

func TestEncodeValue_Unsupported(t *testing.T) {
	c := NewClient(Config{ProjectID: "p", Collection: "c", BaseURL: "http://127.0.0.1:0"})
	err := c.SetDocument(context.Background(), "doc", map[string]any{"bad": []string{"x"}})
	if err == nil {
		t.Fatal("expected encode error")
	}
}

func TestConfig_Enabled(t *testing.T) {
	if (Config{}).Enabled() {
		t.Error("empty config should be disabled")
	}
	if !(Config{ProjectID: "p", Collection: "c"}).Enabled() {
		t.Error("expected config to be enabled")
	}
}

func TestClient_SetDocument_BadSchemeIsPermanent(t *testing.T) {
	c := NewClient(Config{ProjectID: "p", Collection: "c", BaseURL: "htp://bad-scheme.example"})

	err := c.SetDocument(context.Background(), "doc", map[string]any{"email": "ada@acme.com"})
	if err == nil {
		t.Fatal("expected error for unsupported scheme")
	}
	if retry.IsRetryable(err) {
		t.Errorf("expected misconfigured URL to be permanent, got category %v (%v)", retry.Classify(err), err)
	}
}
