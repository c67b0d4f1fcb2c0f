package roster

import (
	"context"
	"fmt"
)

// Static serves a fixed driver list taken from configuration.
type Static struct {
	drivers []string
}

// NewStatic creates a provider over the given driver list.
// The list is normalized once at construction.
func NewStatic(drivers []string) *Static {
	return &Static{drivers: Normalize(drivers)}
}

// Fetch returns a copy of the configured list. An empty list is a
// configuration problem and reported as ErrUnavailable.
func (s *Static) Fetch(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if len(s.drivers) == 0 {
		return nil, fmt.Errorf("%w: static driver list is empty", ErrUnavailable)
	}
	out := make([]string, len(s.drivers))
	copy(out, s.drivers)
	return out, nil
}
