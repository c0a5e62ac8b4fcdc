package panorama

import (
	"context"
	"errors"
	"image"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olablt/wander/metrics"
	"github.com/olablt/wander/tiles"
)

var library = tiles.LatLng{Lat: 40.5050, Lng: -88.9700}

type providerFunc func(ctx context.Context, at tiles.LatLng) (image.Image, error)

func (f providerFunc) Fetch(ctx context.Context, at tiles.LatLng) (image.Image, error) {
	return f(ctx, at)
}

// syncPost collects posted functions so the test plays the UI goroutine.
type syncPost struct {
	ch chan func()
}

func newSyncPost() *syncPost { return &syncPost{ch: make(chan func(), 4)} }

func (s *syncPost) post(fn func()) { s.ch <- fn }

func (s *syncPost) runOne(t *testing.T) {
	t.Helper()
	select {
	case fn := <-s.ch:
		fn()
	case <-time.After(2 * time.Second):
		t.Fatal("nothing posted")
	}
}

func TestLocalProviderSize(t *testing.T) {
	img, err := LocalProvider{Width: 512, Height: 256}.Fetch(context.Background(), library)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 512, 256), img.Bounds())
}

func TestViewLoadsOnUIGoroutine(t *testing.T) {
	p := newSyncPost()
	v := New(library, Options{Provider: LocalProvider{Width: 64, Height: 32}, Post: p.post})

	assert.Equal(t, library, v.Position())
	assert.False(t, v.Loaded())
	p.runOne(t)
	assert.True(t, v.Loaded())
}

func TestViewReleaseCancelsLoad(t *testing.T) {
	started := make(chan struct{})
	provider := providerFunc(func(ctx context.Context, _ tiles.LatLng) (image.Image, error) {
		close(started)
		<-ctx.Done()
		return nil, ctx.Err()
	})
	p := newSyncPost()
	v := New(library, Options{Provider: provider, Post: p.post})

	<-started
	v.Release()
	p.runOne(t)
	assert.False(t, v.Loaded())
}

func TestViewLoadFailure(t *testing.T) {
	provider := providerFunc(func(context.Context, tiles.LatLng) (image.Image, error) {
		return nil, ErrNoImagery
	})
	p := newSyncPost()
	v := New(library, Options{Provider: provider, Post: p.post})
	p.runOne(t)

	assert.False(t, v.Loaded())
	assert.True(t, v.failed)
}

func TestHeadingWraps(t *testing.T) {
	v := &View{fov: defaultFOV, width: 900}
	v.SetHeading(-30)
	assert.InDelta(t, 330, v.Heading(), 1e-9)
	v.SetHeading(725)
	assert.InDelta(t, 5, v.Heading(), 1e-9)

	v.SetHeading(0)
	v.pan(-900) // a full-width drag left turns one field of view right
	assert.InDelta(t, 90, v.Heading(), 1e-9)
}

func TestChainFallsThrough(t *testing.T) {
	failing := providerFunc(func(context.Context, tiles.LatLng) (image.Image, error) {
		return nil, errors.New("offline")
	})
	img, err := Chain{failing, LocalProvider{Width: 16, Height: 8}}.Fetch(context.Background(), library)
	require.NoError(t, err)
	assert.Equal(t, 16, img.Bounds().Dx())

	_, err = Chain{failing}.Fetch(context.Background(), library)
	assert.Error(t, err)
}

func TestHTTPProvider(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "40.505000", r.URL.Query().Get("lat"))
		http.NotFound(w, r)
	}))
	defer srv.Close()

	p := NewHTTPProvider(srv.URL+"/pano?lat={lat}&lng={lng}", "wander-test", srv.Client())
	assert.Equal(t, srv.URL+"/pano?lat=40.505000&lng=-88.970000", p.URL(library))

	failures := testutil.ToFloat64(metrics.PanoramaFetches.WithLabelValues("error"))
	_, err := p.Fetch(context.Background(), library)
	assert.ErrorIs(t, err, ErrNoImagery)
	assert.Equal(t, failures+1, testutil.ToFloat64(metrics.PanoramaFetches.WithLabelValues("error")))
	assert.Zero(t, testutil.ToFloat64(metrics.TileFetches.WithLabelValues("panorama", "error")))
}
