// Package logging provides log hygiene helpers: a redactor for secret
// values and a slog.Handler wrapper that applies it to every record, so
// bearer tokens and API keys never reach log output.
package logging

import (
	"regexp"
	"strings"
	"sync"
)

// Placeholder is the replacement string for redacted secrets.
const Placeholder = "***REDACTED***"

// Redactor replaces secret values in strings with Placeholder. It combines
// regex patterns (known token formats) with literal values registered at
// runtime (configured bearer tokens). Safe for concurrent use.
type Redactor struct {
	mu       sync.RWMutex
	patterns []*regexp.Regexp
	literals []string
}

// NewRedactor creates a Redactor pre-loaded with patterns for common token
// formats (HTTP bearer credentials, GitHub and AWS keys).
func NewRedactor() *Redactor {
	return &Redactor{patterns: defaultPatterns()}
}

// AddPattern adds a compiled regex pattern to the redactor.
func (r *Redactor) AddPattern(pattern *regexp.Regexp) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.patterns = append(r.patterns, pattern)
}

// AddLiteral registers a literal secret value to be redacted on sight.
// Empty strings are ignored.
func (r *Redactor) AddLiteral(secret string) {
	if secret == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.literals = append(r.literals, secret)
}

// Redact replaces all known secret patterns and literal values in s.
func (r *Redactor) Redact(s string) string {
	if s == "" {
		return s
	}

	r.mu.RLock()
	patterns := r.patterns
	literals := r.literals
	r.mu.RUnlock()

	for _, p := range patterns {
		s = p.ReplaceAllString(s, Placeholder)
	}
	for _, lit := range literals {
		if strings.Contains(s, lit) {
			s = strings.ReplaceAll(s, lit, Placeholder)
		}
	}
	return s
}

func defaultPatterns() []*regexp.Regexp {
	return []*regexp.Regexp{
		// Authorization header credentials.
		regexp.MustCompile(`(?i)bearer\s+[a-zA-Z0-9._\-]{8,}`),
		// GitHub tokens: ghp_, gho_, ghs_, github_pat_
		regexp.MustCompile(`(ghp_|gho_|ghs_|github_pat_)[a-zA-Z0-9_]{20,}`),
		// AWS access key id.
		regexp.MustCompile(`AKIA[A-Z0-9]{16}`),
	}
}
