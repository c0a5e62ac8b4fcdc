// Package controller binds gestures, toolbar choices and permission
// results to map and navigation changes.
package controller

import (
	"image"
	"log/slog"

	"github.com/olablt/wander/permission"
	"github.com/olablt/wander/resources"
	"github.com/olablt/wander/surface"
	"github.com/olablt/wander/tiles"
)

// Home is where the camera starts and the ground overlay sits.
var Home = tiles.LatLng{Lat: 40.50545, Lng: -88.97285}

const (
	DefaultZoom = 15
	// OverlayWidth is the home ground overlay width in meters.
	OverlayWidth = 25.0
	// PoiTag marks pins created from provider POI taps.
	PoiTag = "poi"
)

// Mode is one toolbar entry.
type Mode struct {
	ID    string
	Type  surface.MapType
	Label resources.Key
}

var Modes = []Mode{
	{ID: "normal_map", Type: surface.Normal, Label: resources.MenuNormal},
	{ID: "hybrid_map", Type: surface.Hybrid, Label: resources.MenuHybrid},
	{ID: "satellite_map", Type: surface.Satellite, Label: resources.MenuSatellite},
	{ID: "terrain_map", Type: surface.Terrain, Label: resources.MenuTerrain},
}

type State int

const (
	Created State = iota
	MapPending
	MapReady
	PanoramaActive
)

func (s State) String() string {
	switch s {
	case Created:
		return "created"
	case MapPending:
		return "map_pending"
	case MapReady:
		return "map_ready"
	case PanoramaActive:
		return "panorama_active"
	}
	return "unknown"
}

// Resources is the asset loader the controller reads from.
type Resources interface {
	Bitmap(name string) (image.Image, error)
	Raw(name string) ([]byte, error)
	String(key resources.Key) string
	Snippet(ll tiles.LatLng) string
}

type Gate interface {
	Ensure(c permission.Capability, onGranted func())
}

// Navigator shows a surface over the current one.
type Navigator interface {
	Push(c surface.Content) error
}

type Options struct {
	Resources Resources
	Gate      Gate
	Navigator Navigator
	Panoramas surface.PanoramaFactory
	Logger    *slog.Logger
}

// Controller runs entirely on the UI goroutine.
type Controller struct {
	res       Resources
	gate      Gate
	nav       Navigator
	panoramas surface.PanoramaFactory
	logger    *slog.Logger

	state     State
	destroyed bool
	m         surface.Map
	panorama  surface.Panorama

	onLongPress       func(tiles.LatLng)
	onPoiClick        func(surface.POI)
	onInfoWindowClick func(surface.Marker)
}

func New(opts Options) *Controller {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Controller{
		res:       opts.Resources,
		gate:      opts.Gate,
		nav:       opts.Navigator,
		panoramas: opts.Panoramas,
		logger:    opts.Logger,
	}
}

func (c *Controller) State() State {
	return c.state
}

// OnCreate asks host for its map. The controller stays in MapPending
// until the map arrives, possibly forever.
func (c *Controller) OnCreate(host surface.MapHost) {
	if c.destroyed || c.state != Created {
		return
	}
	c.state = MapPending
	host.GetMapAsync(c.OnMapReady)
}

// OnMapReady prepares a freshly delivered map.
func (c *Controller) OnMapReady(m surface.Map) {
	if c.destroyed {
		return
	}
	if c.m != nil {
		c.logger.Warn("map delivered twice; ignoring")
		return
	}
	c.m = m
	c.state = MapReady

	m.MoveCamera(Home, DefaultZoom)
	c.addHomeOverlay(m)
	c.bindGestures(m)
	c.applyStyle(m)
	c.EnableSelfLocation()

	c.logger.Info("map ready", "lat", Home.Lat, "lng", Home.Lng, "zoom", DefaultZoom)
}

func (c *Controller) addHomeOverlay(m surface.Map) {
	img, err := c.res.Bitmap(resources.OverlayImage)
	if err != nil {
		c.logger.Error("overlay image missing", "resource", resources.OverlayImage, "error", err)
		return
	}
	m.AddGroundOverlay(surface.GroundOverlayOptions{
		Image:       img,
		Anchor:      Home,
		WidthMeters: OverlayWidth,
	})
}

func (c *Controller) applyStyle(m surface.Map) {
	doc, err := c.res.Raw(resources.MapStyle)
	if err != nil {
		c.logger.Error("can't find style", "resource", resources.MapStyle, "error", err)
		return
	}
	if !m.SetMapStyle(doc) {
		c.logger.Error("style parsing failed", "resource", resources.MapStyle)
	}
}

func (c *Controller) bindGestures(m surface.Map) {
	c.onLongPress = func(at tiles.LatLng) {
		if c.destroyed {
			return
		}
		m.AddMarker(surface.MarkerOptions{
			Position: at,
			Title:    c.res.String(resources.DroppedPin),
			Snippet:  c.res.Snippet(at),
			Icon:     surface.DefaultMarker(surface.HueBlue),
		})
	}
	c.onPoiClick = func(poi surface.POI) {
		if c.destroyed {
			return
		}
		pin := m.AddMarker(surface.MarkerOptions{
			Position: poi.Position,
			Title:    poi.Name,
			Tag:      PoiTag,
		})
		pin.ShowInfoWindow()
	}
	c.onInfoWindowClick = func(pin surface.Marker) {
		if c.destroyed || pin.Tag() != PoiTag {
			return
		}
		c.openPanorama(pin.Position())
	}

	m.SetOnMapLongClickListener(c.onLongPress)
	m.SetOnPoiClickListener(c.onPoiClick)
	m.SetOnInfoWindowClickListener(c.onInfoWindowClick)
}

func (c *Controller) openPanorama(at tiles.LatLng) {
	if c.state != MapReady || c.panoramas == nil {
		return
	}
	p := c.panoramas(at)
	if err := c.nav.Push(p); err != nil {
		c.logger.Error("can't show panorama", "error", err)
		p.Release()
		return
	}
	c.panorama = p
	c.state = PanoramaActive
	c.logger.Info("panorama opened", "lat", at.Lat, "lng", at.Lng)
}

// OnToolbarSelection handles the four map type items. Selections made
// before the map is ready are dropped but still count as handled.
func (c *Controller) OnToolbarSelection(id string) bool {
	for _, mode := range Modes {
		if mode.ID != id {
			continue
		}
		if c.destroyed || c.m == nil {
			c.logger.Debug("map not ready; dropping selection", "id", id)
			return true
		}
		c.m.SetMapType(mode.Type)
		return true
	}
	return false
}

// EnableSelfLocation turns on the location layer now if fine location is
// granted, or once a pending request is granted.
func (c *Controller) EnableSelfLocation() {
	if c.destroyed || c.m == nil {
		return
	}
	m := c.m
	c.gate.Ensure(permission.FineLocation, func() {
		if c.destroyed || c.m != m {
			return
		}
		m.SetMyLocationEnabled(true)
	})
}

// OnBack is called after the host pops a surface.
func (c *Controller) OnBack() {
	if c.state != PanoramaActive {
		return
	}
	c.panorama = nil
	c.state = MapReady
}

// OnDestroy drops the map. Every later callback is ignored.
func (c *Controller) OnDestroy() {
	c.destroyed = true
	c.state = Created
	c.m = nil
	c.panorama = nil
	c.onLongPress = nil
	c.onPoiClick = nil
	c.onInfoWindowClick = nil
}
