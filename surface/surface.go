// Package surface declares the capabilities the interaction controller
// consumes from the map and panorama renderers.
package surface

import (
	"image"

	"gioui.org/layout"

	"github.com/olablt/wander/tiles"
)

// MapType is the cartographic rendering family.
type MapType int

const (
	Normal MapType = iota
	Hybrid
	Satellite
	Terrain
)

func (t MapType) String() string {
	switch t {
	case Normal:
		return "normal"
	case Hybrid:
		return "hybrid"
	case Satellite:
		return "satellite"
	case Terrain:
		return "terrain"
	}
	return "unknown"
}

// Marker hues in degrees, matching the usual default-marker palette.
const (
	HueRed    = 0.0
	HueOrange = 30.0
	HueYellow = 60.0
	HueGreen  = 120.0
	HueCyan   = 180.0
	HueAzure  = 210.0
	HueBlue   = 240.0
	HueViolet = 270.0
	HueRose   = 330.0
)

// Icon selects the marker glyph. The zero value is the default red marker.
type Icon struct {
	Hue    float64
	Preset bool
}

// DefaultMarker returns the default marker tinted with hue.
func DefaultMarker(hue float64) Icon {
	return Icon{Hue: hue, Preset: true}
}

type MarkerOptions struct {
	Position tiles.LatLng
	Title    string
	Snippet  string
	Icon     Icon
	Tag      string
}

type Marker interface {
	ID() string
	Position() tiles.LatLng
	Title() string
	Snippet() string
	Icon() Icon
	Tag() string
	SetTag(tag string)
	ShowInfoWindow()
	HideInfoWindow()
	IsInfoWindowShown() bool
}

type GroundOverlayOptions struct {
	Image       image.Image
	Anchor      tiles.LatLng
	WidthMeters float64
}

// POI is a provider point of interest hotspot.
type POI struct {
	Position tiles.LatLng
	Name     string
	PlaceID  string
}

// Map is the map renderer handle delivered by MapHost.GetMapAsync.
type Map interface {
	MoveCamera(target tiles.LatLng, zoom int)
	SetMapType(t MapType)
	MapType() MapType
	SetMapStyle(doc []byte) bool
	AddMarker(opts MarkerOptions) Marker
	AddGroundOverlay(opts GroundOverlayOptions)
	SetMyLocationEnabled(enabled bool)
	IsMyLocationEnabled() bool

	SetOnMapLongClickListener(fn func(tiles.LatLng))
	SetOnPoiClickListener(fn func(POI))
	SetOnInfoWindowClickListener(fn func(Marker))
}

// MapHost owns a map renderer that initialises asynchronously. The
// continuation runs on the UI dispatcher.
type MapHost interface {
	GetMapAsync(fn func(Map))
}

// Content is anything the view host can place in its content region.
type Content interface {
	Layout(gtx layout.Context) layout.Dimensions
}

// Panorama is a street-level surface anchored at one coordinate.
type Panorama interface {
	Content
	Position() tiles.LatLng
	Release()
}

type PanoramaFactory func(at tiles.LatLng) Panorama
