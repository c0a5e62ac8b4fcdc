package mapview

import (
	"image"

	"gioui.org/op/paint"
	"github.com/google/uuid"
	xdraw "golang.org/x/image/draw"

	"github.com/olablt/wander/style"
	"github.com/olablt/wander/surface"
	"github.com/olablt/wander/tiles"
)

// maxOverlayPixels bounds the stored overlay bitmap; larger images are
// downscaled once when added.
const maxOverlayPixels = 256

var _ surface.Map = (*MapView)(nil)

func (mv *MapView) MoveCamera(target tiles.LatLng, zoom int) {
	if mv.destroyed {
		return
	}
	mv.Center = normalize(target)
	mv.setZoom(zoom)
}

func (mv *MapView) SetMapType(t surface.MapType) {
	if mv.destroyed || mv.mapType == t {
		return
	}
	if len(mv.layers[t]) == 0 {
		mv.logger.Warn("map type has no tile layers", "type", t.String())
	}
	mv.mapType = t
}

func (mv *MapView) MapType() surface.MapType {
	return mv.mapType
}

// SetMapStyle applies a style document to the normal map type. It reports
// false when the document does not parse; the previous style stays.
func (mv *MapView) SetMapStyle(doc []byte) bool {
	if mv.destroyed {
		return false
	}
	s, err := style.Parse(doc)
	if err != nil {
		mv.logger.Debug("style rejected", "error", err)
		return false
	}
	mv.style = s
	mv.gen++
	mv.ops.Clear()
	return true
}

func (mv *MapView) AddMarker(opts surface.MarkerOptions) surface.Marker {
	m := &marker{id: uuid.NewString(), opts: opts, mv: mv}
	if mv.destroyed {
		return m
	}
	mv.markers = append(mv.markers, m)
	return m
}

// Markers returns the markers on the map, oldest first.
func (mv *MapView) Markers() []surface.Marker {
	out := make([]surface.Marker, len(mv.markers))
	for i, m := range mv.markers {
		out[i] = m
	}
	return out
}

func (mv *MapView) AddGroundOverlay(opts surface.GroundOverlayOptions) {
	if mv.destroyed || opts.Image == nil || opts.WidthMeters <= 0 {
		return
	}
	img := downscale(opts.Image, maxOverlayPixels)
	mv.overlays = append(mv.overlays, &groundOverlay{
		opts: opts,
		size: img.Bounds().Size(),
		op:   paint.NewImageOp(img),
	})
}

// GroundOverlays returns how many overlays are on the map.
func (mv *MapView) GroundOverlays() int {
	return len(mv.overlays)
}

func (mv *MapView) SetMyLocationEnabled(enabled bool) {
	if mv.destroyed {
		return
	}
	mv.myLocation = enabled
}

func (mv *MapView) IsMyLocationEnabled() bool {
	return mv.myLocation
}

func (mv *MapView) SetOnMapLongClickListener(fn func(tiles.LatLng)) {
	if mv.destroyed {
		return
	}
	mv.onLongClick = fn
}

func (mv *MapView) SetOnPoiClickListener(fn func(surface.POI)) {
	if mv.destroyed {
		return
	}
	mv.onPoiClick = fn
}

func (mv *MapView) SetOnInfoWindowClickListener(fn func(surface.Marker)) {
	if mv.destroyed {
		return
	}
	mv.onInfoWindowClick = fn
}

type marker struct {
	id   string
	opts surface.MarkerOptions
	mv   *MapView
}

func (m *marker) ID() string              { return m.id }
func (m *marker) Position() tiles.LatLng  { return m.opts.Position }
func (m *marker) Title() string           { return m.opts.Title }
func (m *marker) Snippet() string         { return m.opts.Snippet }
func (m *marker) Icon() surface.Icon      { return m.opts.Icon }
func (m *marker) Tag() string             { return m.opts.Tag }
func (m *marker) SetTag(tag string)       { m.opts.Tag = tag }
func (m *marker) IsInfoWindowShown() bool { return m.mv.selected == m }

// ShowInfoWindow opens this marker's info window, closing any other.
func (m *marker) ShowInfoWindow() {
	if m.mv.destroyed {
		return
	}
	m.mv.selected = m
}

func (m *marker) HideInfoWindow() {
	if m.mv.selected == m {
		m.mv.selected = nil
	}
}

type groundOverlay struct {
	opts surface.GroundOverlayOptions
	size image.Point
	op   paint.ImageOp
}

func downscale(src image.Image, limit int) image.Image {
	b := src.Bounds()
	if b.Dx() <= limit && b.Dy() <= limit {
		return src
	}
	scale := float64(limit) / float64(max(b.Dx(), b.Dy()))
	w := max(1, int(float64(b.Dx())*scale))
	h := max(1, int(float64(b.Dy())*scale))
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, b, xdraw.Over, nil)
	return dst
}
