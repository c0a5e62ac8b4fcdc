package tiles

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPTileProvider_GetTileURL(t *testing.T) {
	p := NewHTTPTileProvider("satellite", "https://example.com/tile/{z}/{y}/{x}", "wander-test", nil, nil)
	assert.Equal(t, "https://example.com/tile/15/12345/8123", p.GetTileURL(Tile{X: 8123, Y: 12345, Zoom: 15}))
}

func TestHTTPTileProvider_Decodes(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, TileSize, TileSize))))

	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		assert.Equal(t, "/3/1/2.png", r.URL.Path)
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(buf.Bytes())
	}))
	defer srv.Close()

	p := NewHTTPTileProvider("normal", srv.URL+"/{z}/{x}/{y}.png", "wander-test", srv.Client(), nil)
	img, err := p.GetTile(context.Background(), Tile{X: 1, Y: 2, Zoom: 3})
	require.NoError(t, err)
	assert.Equal(t, TileSize, img.Bounds().Dx())
	assert.Equal(t, "wander-test", gotUA)
}

func TestHTTPTileProvider_StatusAndCircuit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	p := NewHTTPTileProvider("terrain", srv.URL+"/{z}/{x}/{y}.png", "wander-test", srv.Client(), nil)

	for i := 0; i < 5; i++ {
		_, err := p.GetTile(context.Background(), Tile{Zoom: 1})
		require.ErrorIs(t, err, ErrStatus)
	}

	_, err := p.GetTile(context.Background(), Tile{Zoom: 1})
	assert.True(t, errors.Is(err, ErrCircuitOpen), "got %v", err)
}
