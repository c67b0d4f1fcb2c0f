// Package roster supplies the competitor identifier lists the simulation
// is seeded from. Providers return an ordered, de-duplicated list of
// non-empty driver codes; grid-size enforcement belongs to the caller.
package roster

import (
	"context"
	"errors"
	"strings"
)

// ErrUnavailable indicates the underlying roster source is unreachable
// or misconfigured. It is recoverable; callers degrade rather than crash.
var ErrUnavailable = errors.New("roster provider unavailable")

// Provider is the contract for roster sources. Implementations must
// return identifiers in source order, trimmed, non-empty, and
// de-duplicated case-insensitively.
type Provider interface {
	Fetch(ctx context.Context) ([]string, error)
}

// Normalize trims whitespace, drops empty entries, and removes
// case-insensitive duplicates while preserving source order and the
// first-seen casing of each identifier.
func Normalize(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		key := strings.ToLower(id)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, id)
	}
	return out
}
