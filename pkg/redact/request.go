// Package redact replaces configured search terms inside the string values
// of decoded Parquet files.
package redact

import (
	"strings"

	"github.com/ajitpratap0/scrub/pkg/errors"
)

// DefaultReplacement is substituted for every term when no replacement is
// configured
const DefaultReplacement = "ghost@example.com"

// Request is an ordered, deduplicated list of search terms and the single
// replacement written in their place.
type Request struct {
	Terms       []string
	Replacement string
}

// NewRequest normalizes terms and validates the result. Terms are trimmed,
// empty ones dropped and duplicates removed, keeping first-occurrence order.
func NewRequest(terms []string, replacement string) (Request, error) {
	req := Request{
		Terms:       normalize(terms),
		Replacement: replacement,
	}
	if err := req.Validate(); err != nil {
		return Request{}, err
	}
	return req, nil
}

// ParseTerms splits a comma separated term list
func ParseTerms(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return normalize(strings.Split(s, ","))
}

// Validate checks that the request has at least one term and that no term
// occurs inside the replacement, so a replacement never re-matches on its
// own. A term can still match across the boundary between a replacement and
// the text around it, in which case a second run rewrites the value again.
func (r Request) Validate() error {
	if len(r.Terms) == 0 {
		return errors.New(errors.ErrorTypeValidation, "at least one search term is required")
	}
	for _, term := range r.Terms {
		if term == "" {
			return errors.New(errors.ErrorTypeValidation, "search terms must not be empty")
		}
		if strings.Contains(r.Replacement, term) {
			return errors.Newf(errors.ErrorTypeValidation, "replacement %q contains search term %q", r.Replacement, term).
				WithDetail("term", term)
		}
	}
	return nil
}

func normalize(terms []string) []string {
	seen := make(map[string]struct{}, len(terms))
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
