package roster

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{
			name: "passthrough",
			in:   []string{"VER", "NOR", "LEC"},
			want: []string{"VER", "NOR", "LEC"},
		},
		{
			name: "trims and drops empties",
			in:   []string{" VER ", "", "  ", "NOR"},
			want: []string{"VER", "NOR"},
		},
		{
			name: "case-insensitive dedup keeps first casing",
			in:   []string{"VER", "ver", "Ver", "NOR"},
			want: []string{"VER", "NOR"},
		},
		{
			name: "empty input",
			in:   nil,
			want: []string{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestStaticFetch(t *testing.T) {
	p := NewStatic([]string{"VER", "ver", " NOR", "LEC"})

	got, err := p.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"VER", "NOR", "LEC"}, got)
}

func TestStaticFetchReturnsCopy(t *testing.T) {
	p := NewStatic([]string{"VER", "NOR"})

	first, err := p.Fetch(context.Background())
	require.NoError(t, err)
	first[0] = "mutated"

	second, err := p.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "VER", second[0])
}

func TestStaticFetchEmptyList(t *testing.T) {
	p := NewStatic(nil)

	_, err := p.Fetch(context.Background())
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestStaticFetchCancelledContext(t *testing.T) {
	p := NewStatic([]string{"VER"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Fetch(ctx)
	assert.ErrorIs(t, err, ErrUnavailable)
}
