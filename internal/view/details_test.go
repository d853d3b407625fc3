package view

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"monthcal/internal/model"
)

// disposingFetcher disposes the loader while the first lookup is in flight.
type disposingFetcher struct {
	stubFetcher
	loader *DetailsLoader
}

func (f *disposingFetcher) GetEventByID(ctx context.Context, id string) (model.Event, error) {
	f.loader.Dispose()
	return model.Event{ID: id, Title: "late"}, nil
}

func TestDetailsLoaderSkipsApplyAfterDispose(t *testing.T) {
	f := &disposingFetcher{}
	applied := false
	f.loader = NewDetailsLoader(f, func([]EventDetails) { applied = true })

	err := f.loader.Load(context.Background(), []model.Event{
		{ID: "r1", IsRemote: true},
		{ID: "r2", IsRemote: true},
	})
	assert.ErrorIs(t, err, ErrDisposed)
	assert.False(t, applied)
	assert.True(t, f.loader.Disposed())
}

func TestDetailsLoaderWithoutFetcher(t *testing.T) {
	var got []EventDetails
	l := NewDetailsLoader(nil, func(d []EventDetails) { got = d })

	require.NoError(t, l.Load(context.Background(), []model.Event{
		{ID: "r1", Title: "remote", IsRemote: true},
		{ID: "l1", Title: "local"},
	}))
	require.Len(t, got, 2)
	assert.True(t, got[0].ReadOnly)
	assert.False(t, got[1].ReadOnly)
}

func TestDetailsLoaderPropagatesLookupError(t *testing.T) {
	f := &stubFetcher{}
	applied := false
	l := NewDetailsLoader(f, func([]EventDetails) { applied = true })

	err := l.Load(context.Background(), []model.Event{{ID: "gone", IsRemote: true}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gone")
	assert.False(t, applied)
}

func TestDetailsLoaderDisposedBeforeLoad(t *testing.T) {
	l := NewDetailsLoader(nil, func([]EventDetails) { t.Fatal("applied") })
	l.Dispose()
	assert.ErrorIs(t, l.Load(context.Background(), nil), ErrDisposed)
}
