package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/vietddude/genie/internal/core/domain"
)

func TestParseLeads(t *testing.T) {
	leads, err := parseLeads([]byte(`
leads:
  - first_name: Ada
    last_name: Lovelace
    domain: acme.com
  - full_name: Grace Hopper
    domain: navy.mil
`))
	if err != nil {
		t.Fatalf("parseLeads failed: %v", err)
	}
	if len(leads) != 2 {
		t.Fatalf("expected 2 leads, got %d", len(leads))
	}
	if leads[0].Name() != "Ada Lovelace" || leads[1].Domain != "navy.mil" {
		t.Errorf("unexpected leads: %+v", leads)
	}
}

func TestParseLeads_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"empty", `leads: []`},
		{"malformed", `leads: [`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := parseLeads([]byte(tt.data)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestLoadLeads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "leads.yaml")
	if err := os.WriteFile(path, []byte("leads:\n  - full_name: Ada\n    domain: acme.com\n"), 0o600); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	leads, err := loadLeads(path)
	if err != nil {
		t.Fatalf("loadLeads failed: %v", err)
	}
	if len(leads) != 1 {
		t.Errorf("expected 1 lead, got %d", len(leads))
	}

	if _, err := loadLeads(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestPrintSummary(t *testing.T) {
	var buf bytes.Buffer
	printSummary(&buf, &domain.BatchSummary{BatchID: "b1", Total: 5, Succeeded: 4, Failed: 1, SuccessRate: "80.0"})

	out := buf.String()
	if !strings.Contains(out, "b1") || !strings.Contains(out, "80.0%") {
		t.Errorf("unexpected summary output: %s", out)
	}
}

func TestCommandsRegistered(t *testing.T) {
	want := map[string]bool{"lookup": false, "replay": false, "status": false, "serve": false}
	for _, c := range rootCmd.Commands() {
		if _, ok := want[c.Name()]; ok {
			want[c.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("command %s not registered", name)
		}
	}
}
