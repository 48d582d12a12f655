package content

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type named string

func (n named) DisplayName() string { return string(n) }

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	resolver := ResolverFunc(func(ctx context.Context, id string) (Object, error) {
		if id == "1" {
			return named("printer"), nil
		}
		return nil, ErrObjectNotFound
	})

	require.NoError(t, r.Register("device", resolver))
	assert.Error(t, r.Register("device", resolver))
	assert.Error(t, r.Register("", resolver))
	assert.Error(t, r.Register("ship", nil))
	assert.True(t, r.Has("device"))
	assert.Equal(t, []string{"device"}, r.Kinds())

	obj, err := r.Resolve(context.Background(), Ref{Kind: "device", ID: "1"})
	require.NoError(t, err)
	assert.Equal(t, "printer", obj.DisplayName())

	_, err = r.Resolve(context.Background(), Ref{Kind: "device", ID: "2"})
	assert.True(t, errors.Is(err, ErrObjectNotFound))

	_, err = r.Resolve(context.Background(), Ref{Kind: "ship", ID: "1"})
	assert.Error(t, err)
}

func TestRefString(t *testing.T) {
	assert.Equal(t, "device:42", Ref{Kind: "device", ID: "42"}.String())
}
