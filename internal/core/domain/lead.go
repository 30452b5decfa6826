package domain

import "strings"

// Lead identifies a person whose work email should be looked up.
type Lead struct {
	FirstName string `json:"first_name" yaml:"first_name"`
	LastName  string `json:"last_name"  yaml:"last_name"`
	FullName  string `json:"full_name"  yaml:"full_name"`
	Domain    string `json:"domain"     yaml:"domain"` // Company domain, e.g. "acme.com"
}

// Name returns the full name, falling back to first + last.
func (l Lead) Name() string {
	if l.FullName != "" {
		return l.FullName
	}
	return strings.TrimSpace(l.FirstName + " " + l.LastName)
}

// Valid reports whether the lead has enough data for a lookup.
func (l Lead) Valid() bool {
	return l.Domain != "" && l.Name() != ""
}

// LookupResult is what the email finder returned for a lead.
type LookupResult struct {
	Email      string `json:"email"`
	Verified   bool   `json:"verified"`
	Confidence int    `json:"confidence"`
}
