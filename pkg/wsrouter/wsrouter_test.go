package wsrouter

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type seekInput struct {
	Time int `json:"time"`
}

func TestRoute(t *testing.T) {
	r := New[*[]string]()

	var order []string
	r.Use(func(next HandlerFunc[*[]string]) HandlerFunc[*[]string] {
		return func(ctx context.Context, s *[]string, raw json.RawMessage) error {
			order = append(order, "mw:"+GetActionFromCtx(ctx))
			return next(ctx, s, raw)
		}
	})
	Handle(r, "seek", func(ctx context.Context, s *[]string, input seekInput) error {
		*s = append(*s, "seek")
		assert.Equal(t, 42, input.Time)
		return nil
	})

	var calls []string
	ctx := context.Background()
	require.NoError(t, r.Route(ctx, &calls, []byte(`{"action":"seek","time":42}`)))
	assert.Equal(t, []string{"seek"}, calls)
	assert.Equal(t, []string{"mw:seek"}, order)

	assert.ErrorIs(t, r.Route(ctx, &calls, []byte(`{"action":"seek","time":"soon"}`)), ErrInvalidPayload)
	assert.ErrorIs(t, r.Route(ctx, &calls, []byte(`{"action":"dance"}`)), ErrUnknownAction)
	assert.ErrorIs(t, r.Route(ctx, &calls, []byte(`{"time":1}`)), ErrMalformedMessage)
	assert.ErrorIs(t, r.Route(ctx, &calls, []byte(`seek`)), ErrMalformedMessage)
	assert.ErrorIs(t, r.Route(ctx, &calls, []byte(`["seek"]`)), ErrMalformedMessage)
}
