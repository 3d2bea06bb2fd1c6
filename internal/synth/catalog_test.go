package synth

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// catalogProvider is a minimal Provider for aggregation tests.
type catalogProvider struct {
	name      string
	voices    []Voice
	listErr   error
	available bool
}

func (p *catalogProvider) Name() string { return p.name }

func (p *catalogProvider) ListVoices(ctx context.Context) ([]Voice, error) {
	return p.voices, p.listErr
}

func (p *catalogProvider) Synthesize(ctx context.Context, text string, options Options) (io.ReadCloser, error) {
	return nil, errors.New("not used")
}

func (p *catalogProvider) IsAvailable(ctx context.Context) bool { return p.available }

func TestCatalog_ListVoices(t *testing.T) {
	t.Run("aggregates in provider order", func(t *testing.T) {
		c := NewCatalog(
			&catalogProvider{name: "a", available: true, voices: []Voice{{ID: "a1"}, {ID: "a2"}}},
			&catalogProvider{name: "b", available: true, voices: []Voice{{ID: "b1"}}},
		)

		voices, err := c.ListVoices(context.Background())
		require.NoError(t, err)
		require.Len(t, voices, 3)
		assert.Equal(t, "a1", voices[0].ID)
		assert.Equal(t, "b1", voices[2].ID)
	})

	t.Run("skips unavailable and failing providers", func(t *testing.T) {
		c := NewCatalog(
			&catalogProvider{name: "down", available: false, voices: []Voice{{ID: "x"}}},
			&catalogProvider{name: "broken", available: true, listErr: errors.New("boom")},
			&catalogProvider{name: "ok", available: true, voices: []Voice{{ID: "ok1"}}},
		)

		voices, err := c.ListVoices(context.Background())
		require.NoError(t, err)
		require.Len(t, voices, 1)
		assert.Equal(t, "ok1", voices[0].ID)
	})

	t.Run("errors when nothing contributes", func(t *testing.T) {
		c := NewCatalog(&catalogProvider{name: "down", available: false})
		_, err := c.ListVoices(context.Background())
		assert.Error(t, err)
	})
}
