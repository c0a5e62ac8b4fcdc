package mapview

import (
	"context"
	"image"
	"log/slog"
	"math"
	"time"

	"gioui.org/f32"
	"gioui.org/io/event"
	"gioui.org/io/pointer"
	"gioui.org/layout"
	"gioui.org/op"
	"gioui.org/op/clip"
	"gioui.org/op/paint"
	"gioui.org/widget/material"

	"github.com/olablt/wander/style"
	"github.com/olablt/wander/surface"
	"github.com/olablt/wander/tiles"
)

const (
	longPressDuration = 500 * time.Millisecond
	touchSlop         = 8  // px a press may wander before it becomes a drag
	poiHitRadius      = 16 // px
	minLabelZoom      = 13
)

// Layers lists the tile layers drawn for each map type, bottom first.
type Layers map[surface.MapType][]*tiles.TileManager

type Options struct {
	Layers  Layers
	POIs    []surface.POI
	MinZoom int
	MaxZoom int
	// Locate reports the device position for the self-location layer.
	Locate func() (tiles.LatLng, bool)
	// Post runs a function on the UI goroutine after the current event.
	Post   func(func())
	Theme  *material.Theme
	Logger *slog.Logger
}

// MapView is a slippy map widget that also acts as the map renderer
// handle (surface.Map) for the controller.
type MapView struct {
	Center  tiles.LatLng
	Zoom    int
	MinZoom int
	MaxZoom int

	layers  Layers
	mapType surface.MapType
	style   *style.Style
	gen     int
	ops     *tiles.ImageOpCache

	markers    []*marker
	selected   *marker
	overlays   []*groundOverlay
	pois       []surface.POI
	myLocation bool
	locate     func() (tiles.LatLng, bool)

	onLongClick       func(tiles.LatLng)
	onPoiClick        func(surface.POI)
	onInfoWindowClick func(surface.Marker)

	post      func(func())
	readyFns  []func(surface.Map)
	ready     bool
	destroyed bool
	warned    bool

	ctx    context.Context
	cancel context.CancelFunc
	theme  *material.Theme
	logger *slog.Logger

	size      image.Point
	pressed   bool
	moved     bool
	longFired bool
	pressPos  f32.Point
	lastPos   f32.Point
	pressAt   time.Time
	infoRect  image.Rectangle
}

func New(opts Options) *MapView {
	if opts.MinZoom == 0 {
		opts.MinZoom = 2
	}
	if opts.MaxZoom == 0 {
		opts.MaxZoom = 19
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Post == nil {
		opts.Post = func(fn func()) { fn() }
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &MapView{
		Zoom:    opts.MinZoom,
		MinZoom: opts.MinZoom,
		MaxZoom: opts.MaxZoom,
		layers:  opts.Layers,
		ops:     tiles.NewImageOpCache(512),
		pois:    opts.POIs,
		locate:  opts.Locate,
		post:    opts.Post,
		ctx:     ctx,
		cancel:  cancel,
		theme:   opts.Theme,
		logger:  opts.Logger,
	}
}

// GetMapAsync hands the map to fn once the renderer has laid out its first
// frame. Nothing is delivered after Destroy.
func (mv *MapView) GetMapAsync(fn func(surface.Map)) {
	if mv.destroyed {
		return
	}
	if mv.ready {
		mv.deliver(fn)
		return
	}
	mv.readyFns = append(mv.readyFns, fn)
}

func (mv *MapView) deliver(fn func(surface.Map)) {
	mv.post(func() {
		if mv.destroyed {
			return
		}
		fn(mv)
	})
}

// available reports whether a base layer exists; without one the map
// never becomes ready.
func (mv *MapView) available() bool {
	return len(mv.layers[surface.Normal]) > 0
}

func (mv *MapView) markReady() {
	if mv.ready || mv.destroyed || mv.size.X == 0 || mv.size.Y == 0 {
		return
	}
	if !mv.available() {
		if !mv.warned {
			mv.logger.Error("map provider unavailable: no base tile layer configured")
			mv.warned = true
		}
		return
	}
	mv.ready = true
	fns := mv.readyFns
	mv.readyFns = nil
	for _, fn := range fns {
		mv.deliver(fn)
	}
}

// Destroy releases the renderer. Pending continuations are dropped and
// later calls on the handle do nothing.
func (mv *MapView) Destroy() {
	if mv.destroyed {
		return
	}
	mv.destroyed = true
	mv.readyFns = nil
	mv.onLongClick = nil
	mv.onPoiClick = nil
	mv.onInfoWindowClick = nil
	mv.cancel()
	mv.ops.Clear()
}

func (mv *MapView) Destroyed() bool {
	return mv.destroyed
}

func (mv *MapView) Layout(gtx layout.Context) layout.Dimensions {
	tag := mv

	for {
		ev, ok := gtx.Event(pointer.Filter{
			Target:  tag,
			Kinds:   pointer.Scroll | pointer.Drag | pointer.Press | pointer.Release | pointer.Cancel,
			ScrollY: pointer.ScrollRange{Min: -10, Max: 10},
		})
		if !ok {
			break
		}
		if x, ok := ev.(pointer.Event); ok {
			mv.handlePointer(gtx, x)
		}
	}

	if mv.pressed && !mv.moved && !mv.longFired {
		fireAt := mv.pressAt.Add(longPressDuration)
		if !gtx.Now.Before(fireAt) {
			mv.longFired = true
			mv.longPress(mv.pressPos)
		} else {
			gtx.Execute(op.InvalidateCmd{At: fireAt})
		}
	}

	if mv.size != gtx.Constraints.Max {
		mv.size = gtx.Constraints.Max
	}
	mv.markReady()

	defer clip.Rect{Max: mv.size}.Push(gtx.Ops).Pop()
	event.Op(gtx.Ops, tag)

	paint.Fill(gtx.Ops, backgroundColor)
	if mv.destroyed {
		return layout.Dimensions{Size: mv.size}
	}

	mv.drawTiles(gtx)
	mv.drawOverlays(gtx)
	mv.drawPOIs(gtx)
	mv.drawMyLocation(gtx)
	mv.drawMarkers(gtx)
	mv.drawInfoWindow(gtx)

	return layout.Dimensions{Size: mv.size}
}

func (mv *MapView) handlePointer(gtx layout.Context, x pointer.Event) {
	switch x.Kind {
	case pointer.Press:
		mv.pressed = true
		mv.moved = false
		mv.longFired = false
		mv.pressPos = x.Position
		mv.lastPos = x.Position
		mv.pressAt = gtx.Now
	case pointer.Drag:
		if !mv.moved && dist(x.Position, mv.pressPos) > touchSlop {
			mv.moved = true
		}
		if mv.moved {
			mv.pan(x.Position.Sub(mv.lastPos))
			mv.lastPos = x.Position
		}
	case pointer.Release:
		if mv.pressed && !mv.moved && !mv.longFired {
			mv.tap(x.Position)
		}
		mv.pressed = false
	case pointer.Cancel:
		mv.pressed = false
	case pointer.Scroll:
		mv.zoomAround(x.Position, x.Scroll.Y)
	}
}

func dist(a, b f32.Point) float32 {
	d := a.Sub(b)
	return float32(math.Hypot(float64(d.X), float64(d.Y)))
}

func (mv *MapView) pan(delta f32.Point) {
	cx, cy := tiles.CalculateWorldCoordinates(mv.Center, mv.Zoom)
	c := tiles.WorldToLatLng(cx-float64(delta.X), cy-float64(delta.Y), mv.Zoom)
	mv.Center = normalize(c)
}

// zoomAround keeps the world point under the cursor fixed while zooming.
func (mv *MapView) zoomAround(pos f32.Point, scrollY float32) {
	offX := float64(pos.X) - float64(mv.size.X)/2
	offY := float64(pos.Y) - float64(mv.size.Y)/2
	worldX, worldY := tiles.CalculateWorldCoordinates(mv.Center, mv.Zoom)
	mouseWorldX := worldX + offX
	mouseWorldY := worldY + offY

	oldZoom := mv.Zoom
	if scrollY < 0 {
		mv.setZoom(mv.Zoom + 1)
	} else if scrollY > 0 {
		mv.setZoom(mv.Zoom - 1)
	}
	if oldZoom == mv.Zoom {
		return
	}
	factor := math.Pow(2, float64(mv.Zoom-oldZoom))
	mv.Center = normalize(tiles.WorldToLatLng(mouseWorldX*factor-offX, mouseWorldY*factor-offY, mv.Zoom))
}

func (mv *MapView) setZoom(z int) {
	mv.Zoom = max(mv.MinZoom, min(z, mv.MaxZoom))
}

func normalize(ll tiles.LatLng) tiles.LatLng {
	ll.Lat = math.Max(-85, math.Min(ll.Lat, 85))
	ll.Lng = math.Mod(ll.Lng+540, 360) - 180
	return ll
}

// ScreenToLatLng converts a point in widget pixels to a coordinate.
func (mv *MapView) ScreenToLatLng(p f32.Point) tiles.LatLng {
	cx, cy := tiles.CalculateWorldCoordinates(mv.Center, mv.Zoom)
	wx := cx + float64(p.X) - float64(mv.size.X)/2
	wy := cy + float64(p.Y) - float64(mv.size.Y)/2
	return tiles.WorldToLatLng(wx, wy, mv.Zoom)
}

// LatLngToScreen converts a coordinate to widget pixels, choosing the copy
// of the world nearest the centre.
func (mv *MapView) LatLngToScreen(ll tiles.LatLng) f32.Point {
	cx, cy := tiles.CalculateWorldCoordinates(mv.Center, mv.Zoom)
	wx, wy := tiles.CalculateWorldCoordinates(ll, mv.Zoom)
	world := float64(tiles.TileSize) * math.Pow(2, float64(mv.Zoom))
	dx := wx - cx
	if dx > world/2 {
		dx -= world
	} else if dx < -world/2 {
		dx += world
	}
	return f32.Pt(float32(dx+float64(mv.size.X)/2), float32(wy-cy+float64(mv.size.Y)/2))
}

func (mv *MapView) tap(pos f32.Point) {
	pt := image.Pt(int(pos.X), int(pos.Y))
	if mv.selected != nil && pt.In(mv.infoRect) {
		if fn := mv.onInfoWindowClick; fn != nil {
			fn(mv.selected)
		}
		return
	}
	if m := mv.markerAt(pos); m != nil {
		m.ShowInfoWindow()
		return
	}
	if poi, ok := mv.poiAt(pos); ok {
		if fn := mv.onPoiClick; fn != nil {
			fn(poi)
		}
		return
	}
	mv.selected = nil
}

func (mv *MapView) longPress(pos f32.Point) {
	if fn := mv.onLongClick; fn != nil {
		fn(mv.ScreenToLatLng(pos))
	}
	if poi, ok := mv.poiAt(pos); ok {
		if fn := mv.onPoiClick; fn != nil {
			fn(poi)
		}
	}
}

func (mv *MapView) markerAt(pos f32.Point) *marker {
	for i := len(mv.markers) - 1; i >= 0; i-- {
		m := mv.markers[i]
		p := mv.LatLngToScreen(m.opts.Position)
		if pos.X >= p.X-pinRadius && pos.X <= p.X+pinRadius && pos.Y >= p.Y-pinHeight && pos.Y <= p.Y {
			return m
		}
	}
	return nil
}

func (mv *MapView) poiAt(pos f32.Point) (surface.POI, bool) {
	if mv.Zoom < minLabelZoom {
		return surface.POI{}, false
	}
	best := -1
	bestDist := float32(poiHitRadius)
	for i, poi := range mv.pois {
		d := dist(mv.LatLngToScreen(poi.Position), pos)
		if d <= bestDist {
			best, bestDist = i, d
		}
	}
	if best < 0 {
		return surface.POI{}, false
	}
	return mv.pois[best], true
}
