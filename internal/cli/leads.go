package cli

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"

	"github.com/vietddude/genie/internal/core/domain"
)

// leadsFile is the lookup input format.
type leadsFile struct {
	Leads []domain.Lead `yaml:"leads"`
}

// loadLeads reads leads from a YAML file with a top-level "leads" list.
func loadLeads(path string) ([]domain.Lead, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read leads file: %w", err)
	}
	return parseLeads(data)
}

func parseLeads(data []byte) ([]domain.Lead, error) {
	var f leadsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse leads file: %w", err)
	}
	if len(f.Leads) == 0 {
		return nil, fmt.Errorf("leads file has no leads")
	}
	return f.Leads, nil
}
