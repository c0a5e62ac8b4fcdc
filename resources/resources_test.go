package resources

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"github.com/olablt/wander/tiles"
)

func TestEmbeddedAssets(t *testing.T) {
	b, err := New("", language.English)
	require.NoError(t, err)

	img, err := b.Bitmap(OverlayImage)
	require.NoError(t, err)
	assert.Equal(t, 96, img.Bounds().Dx())

	style, err := b.Raw(MapStyle)
	require.NoError(t, err)
	assert.Contains(t, string(style), "stylers")

	pois, err := b.POIs()
	require.NoError(t, err)
	require.NotEmpty(t, pois)
	assert.Equal(t, "Library", pois[0].Name)
	assert.Equal(t, tiles.LatLng{Lat: 40.5050, Lng: -88.9700}, pois[0].Position)
}

func TestOverrideLayerWins(t *testing.T) {
	override := fstest.MapFS{MapStyle: {Data: []byte(`[]`)}}
	base := fstest.MapFS{
		MapStyle: {Data: []byte(`[{"stylers":[]}]`)},
		POIList:  {Data: []byte(`[]`)},
	}
	b := NewFS(language.English, override, base)

	style, err := b.Raw(MapStyle)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(style))

	pois, err := b.POIs()
	require.NoError(t, err)
	assert.Empty(t, pois)
}

func TestMissingResource(t *testing.T) {
	b := NewFS(language.English, fstest.MapFS{})

	_, err := b.Raw(MapStyle)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = b.Bitmap(OverlayImage)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestInvalidPOI(t *testing.T) {
	b := NewFS(language.English, fstest.MapFS{
		POIList: {Data: []byte(`[{"place_id":"x","name":"Nowhere","lat":123,"lng":0}]`)},
	})
	_, err := b.POIs()
	assert.Error(t, err)
}

func TestSnippetEnglish(t *testing.T) {
	b := NewFS(language.English)
	assert.Equal(t, "Lat: 40.50000, Long: -89.00000", b.Snippet(tiles.LatLng{Lat: 40.5, Lng: -89}))
	assert.Equal(t, "Lat: 40.50545, Long: -88.97285", b.Snippet(tiles.LatLng{Lat: 40.505449, Lng: -88.972851}))
}

func TestSnippetUsesLocaleSeparator(t *testing.T) {
	b := NewFS(language.German)
	assert.Contains(t, b.Snippet(tiles.LatLng{Lat: 40.5, Lng: -89}), "40,50000")
}

func TestStrings(t *testing.T) {
	assert.Equal(t, "Dropped Pin", NewFS(language.English).String(DroppedPin))
	assert.Equal(t, "Abgelegte Markierung", NewFS(language.German).String(DroppedPin))
	assert.Equal(t, "Relief", NewFS(language.French).String(MenuTerrain))
}

func TestLocale(t *testing.T) {
	assert.Equal(t, language.French, NewFS(language.French).Locale())
}

func TestParseLocale(t *testing.T) {
	assert.Equal(t, language.MustParse("de-DE"), ParseLocale("de_DE.UTF-8"))
	assert.Equal(t, language.English, ParseLocale("C"))
	assert.Equal(t, language.French, ParseLocale("fr"))
}
