package controller

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"gioui.org/layout"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"github.com/olablt/wander/host"
	"github.com/olablt/wander/permission"
	"github.com/olablt/wander/resources"
	"github.com/olablt/wander/surface"
	"github.com/olablt/wander/tiles"
)

// --- fakes ---

type fakeMarker struct {
	opts  surface.MarkerOptions
	shown bool
}

func (m *fakeMarker) ID() string              { return m.opts.Title }
func (m *fakeMarker) Position() tiles.LatLng  { return m.opts.Position }
func (m *fakeMarker) Title() string           { return m.opts.Title }
func (m *fakeMarker) Snippet() string         { return m.opts.Snippet }
func (m *fakeMarker) Icon() surface.Icon      { return m.opts.Icon }
func (m *fakeMarker) Tag() string             { return m.opts.Tag }
func (m *fakeMarker) SetTag(tag string)       { m.opts.Tag = tag }
func (m *fakeMarker) ShowInfoWindow()         { m.shown = true }
func (m *fakeMarker) HideInfoWindow()         { m.shown = false }
func (m *fakeMarker) IsInfoWindowShown() bool { return m.shown }

type fakeMap struct {
	target     tiles.LatLng
	zoom       int
	mapType    surface.MapType
	style      []byte
	styleOK    bool
	markers    []*fakeMarker
	overlays   []surface.GroundOverlayOptions
	myLocation bool

	longClick func(tiles.LatLng)
	poiClick  func(surface.POI)
	infoClick func(surface.Marker)
}

func newFakeMap() *fakeMap { return &fakeMap{styleOK: true} }

func (m *fakeMap) MoveCamera(target tiles.LatLng, zoom int) { m.target, m.zoom = target, zoom }
func (m *fakeMap) SetMapType(t surface.MapType)             { m.mapType = t }
func (m *fakeMap) MapType() surface.MapType                 { return m.mapType }
func (m *fakeMap) SetMapStyle(doc []byte) bool {
	m.style = doc
	return m.styleOK
}
func (m *fakeMap) AddMarker(opts surface.MarkerOptions) surface.Marker {
	mk := &fakeMarker{opts: opts}
	m.markers = append(m.markers, mk)
	return mk
}
func (m *fakeMap) AddGroundOverlay(opts surface.GroundOverlayOptions) {
	m.overlays = append(m.overlays, opts)
}
func (m *fakeMap) SetMyLocationEnabled(enabled bool)                    { m.myLocation = enabled }
func (m *fakeMap) IsMyLocationEnabled() bool                            { return m.myLocation }
func (m *fakeMap) SetOnMapLongClickListener(fn func(tiles.LatLng))      { m.longClick = fn }
func (m *fakeMap) SetOnPoiClickListener(fn func(surface.POI))           { m.poiClick = fn }
func (m *fakeMap) SetOnInfoWindowClickListener(fn func(surface.Marker)) { m.infoClick = fn }

type fakeMapHost struct {
	pending []func(surface.Map)
}

func (h *fakeMapHost) GetMapAsync(fn func(surface.Map)) { h.pending = append(h.pending, fn) }

func (h *fakeMapHost) deliver(m surface.Map) {
	fns := h.pending
	h.pending = nil
	for _, fn := range fns {
		fn(m)
	}
}

type fakePermissionHost struct {
	state    permission.State
	requests []int
}

func (h *fakePermissionHost) Check(permission.Capability) permission.State { return h.state }
func (h *fakePermissionHost) Request(_ permission.Capability, code int) {
	h.requests = append(h.requests, code)
}

type fakeContent struct{}

func (fakeContent) Layout(layout.Context) layout.Dimensions { return layout.Dimensions{} }

type fakePanorama struct {
	fakeContent
	at       tiles.LatLng
	released int
}

func (p *fakePanorama) Position() tiles.LatLng { return p.at }
func (p *fakePanorama) Release()               { p.released++ }

type failingNav struct{}

func (failingNav) Push(surface.Content) error { return host.ErrStackFull }

// missingStyle hides the style resource.
type missingStyle struct {
	*resources.Bundle
}

func (r missingStyle) Raw(name string) ([]byte, error) {
	if name == resources.MapStyle {
		return nil, errors.New("resource not found: map_style.json")
	}
	return r.Bundle.Raw(name)
}

// --- harness ---

type harness struct {
	c         *Controller
	mapHost   *fakeMapHost
	m         *fakeMap
	perm      *fakePermissionHost
	gate      *permission.Gate
	view      *host.ViewHost
	panoramas []*fakePanorama
	logs      *bytes.Buffer
}

func newHarness(t *testing.T, grant permission.State) *harness {
	t.Helper()
	bundle, err := resources.New("", language.English)
	require.NoError(t, err)
	return newHarnessWith(t, grant, bundle, nil)
}

func newHarnessWith(t *testing.T, grant permission.State, res Resources, nav Navigator) *harness {
	t.Helper()
	h := &harness{
		mapHost: &fakeMapHost{},
		m:       newFakeMap(),
		perm:    &fakePermissionHost{state: grant},
		logs:    &bytes.Buffer{},
	}
	logger := slog.New(slog.NewTextHandler(h.logs, nil))
	h.gate = permission.NewGate(h.perm, logger)
	h.view = host.New(fakeContent{}, nil, host.Options{})
	if nav == nil {
		nav = h.view
	}
	h.c = New(Options{
		Resources: res,
		Gate:      h.gate,
		Navigator: nav,
		Panoramas: func(at tiles.LatLng) surface.Panorama {
			p := &fakePanorama{at: at}
			h.panoramas = append(h.panoramas, p)
			return p
		},
		Logger: logger,
	})
	h.view.SetBackHandler(h.c.OnBack)
	return h
}

func (h *harness) start() {
	h.c.OnCreate(h.mapHost)
	h.mapHost.deliver(h.m)
}

// --- scenarios ---

func TestColdStartPermissionGranted(t *testing.T) {
	h := newHarness(t, permission.Granted)

	h.c.OnCreate(h.mapHost)
	assert.Equal(t, MapPending, h.c.State())
	h.mapHost.deliver(h.m)

	assert.Equal(t, MapReady, h.c.State())
	assert.Equal(t, tiles.LatLng{Lat: 40.50545, Lng: -88.97285}, h.m.target)
	assert.Equal(t, 15, h.m.zoom)
	require.Len(t, h.m.overlays, 1)
	assert.Equal(t, Home, h.m.overlays[0].Anchor)
	assert.Equal(t, 25.0, h.m.overlays[0].WidthMeters)
	assert.NotNil(t, h.m.overlays[0].Image)
	assert.NotEmpty(t, h.m.style)
	assert.True(t, h.m.myLocation)
	assert.Equal(t, surface.Normal, h.m.mapType)
	assert.Empty(t, h.perm.requests)
}

func TestLongPressDropsBluePin(t *testing.T) {
	h := newHarness(t, permission.Granted)
	h.start()

	at := tiles.LatLng{Lat: 40.5000, Lng: -89.0000}
	h.m.longClick(at)

	require.Len(t, h.m.markers, 1)
	pin := h.m.markers[0]
	assert.Equal(t, at, pin.Position())
	assert.Equal(t, "Dropped Pin", pin.Title())
	assert.Equal(t, "Lat: 40.50000, Long: -89.00000", pin.Snippet())
	assert.Equal(t, surface.DefaultMarker(surface.HueBlue), pin.Icon())
	assert.Empty(t, pin.Tag())
	assert.False(t, pin.IsInfoWindowShown())
}

func TestLongPressSnippetIsLocalized(t *testing.T) {
	bundle, err := resources.New("", language.German)
	require.NoError(t, err)
	h := newHarnessWith(t, permission.Granted, bundle, nil)
	h.start()

	h.m.longClick(tiles.LatLng{Lat: 40.5, Lng: -89})
	require.Len(t, h.m.markers, 1)
	assert.Equal(t, "Lat: 40,50000, Long: -89,00000", h.m.markers[0].Snippet())
}

func TestPoiClickAddsTaggedPinWithInfoWindow(t *testing.T) {
	h := newHarness(t, permission.Granted)
	h.start()

	library := surface.POI{Position: tiles.LatLng{Lat: 40.5050, Lng: -88.9700}, Name: "Library", PlaceID: "lib"}
	h.m.poiClick(library)

	require.Len(t, h.m.markers, 1)
	pin := h.m.markers[0]
	assert.Equal(t, library.Position, pin.Position())
	assert.Equal(t, "Library", pin.Title())
	assert.Equal(t, "poi", pin.Tag())
	assert.True(t, pin.IsInfoWindowShown())
}

func TestLongPressOnPoiKeepsBothPins(t *testing.T) {
	h := newHarness(t, permission.Granted)
	h.start()

	at := tiles.LatLng{Lat: 40.5050, Lng: -88.9700}
	h.m.longClick(at)
	h.m.poiClick(surface.POI{Position: at, Name: "Library"})

	require.Len(t, h.m.markers, 2)
	assert.Empty(t, h.m.markers[0].Tag())
	assert.Equal(t, PoiTag, h.m.markers[1].Tag())
}

func TestInfoWindowOnPoiOpensPanoramaAndBackRestoresMap(t *testing.T) {
	h := newHarness(t, permission.Granted)
	h.start()
	library := tiles.LatLng{Lat: 40.5050, Lng: -88.9700}
	h.m.poiClick(surface.POI{Position: library, Name: "Library"})
	pin := h.m.markers[0]

	h.m.infoClick(pin)

	require.Len(t, h.panoramas, 1)
	assert.Equal(t, library, h.panoramas[0].Position())
	assert.Equal(t, PanoramaActive, h.c.State())
	assert.Equal(t, 2, h.view.Depth())
	assert.Same(t, h.panoramas[0], h.view.Top())

	require.True(t, h.view.Back())
	assert.Equal(t, MapReady, h.c.State())
	assert.Equal(t, 1, h.view.Depth())
	assert.Equal(t, 1, h.panoramas[0].released)
	require.Len(t, h.m.markers, 1)
	assert.Equal(t, "Library", h.m.markers[0].Title())
}

func TestInfoWindowComparesTagByValue(t *testing.T) {
	h := newHarness(t, permission.Granted)
	h.start()

	pin := h.m.AddMarker(surface.MarkerOptions{Position: Home, Title: "built"})
	pin.SetTag(strings.Join([]string{"p", "o", "i"}, ""))
	h.m.infoClick(pin)

	assert.Len(t, h.panoramas, 1)
}

func TestInfoWindowOnPlainPinDoesNotNavigate(t *testing.T) {
	h := newHarness(t, permission.Granted)
	h.start()

	h.m.longClick(tiles.LatLng{Lat: 40.5, Lng: -89})
	h.m.infoClick(h.m.markers[0])

	assert.Empty(t, h.panoramas)
	assert.Equal(t, MapReady, h.c.State())
	assert.Equal(t, 1, h.view.Depth())
}

func TestPanoramaPushFailureReleases(t *testing.T) {
	bundle, err := resources.New("", language.English)
	require.NoError(t, err)
	h := newHarnessWith(t, permission.Granted, bundle, failingNav{})
	h.start()

	h.m.poiClick(surface.POI{Position: Home, Name: "Home"})
	h.m.infoClick(h.m.markers[0])

	require.Len(t, h.panoramas, 1)
	assert.Equal(t, 1, h.panoramas[0].released)
	assert.Equal(t, MapReady, h.c.State())
	assert.Contains(t, h.logs.String(), "can't show panorama")
}

func TestToolbarSequenceEndsHybrid(t *testing.T) {
	h := newHarness(t, permission.Granted)
	h.start()

	for _, id := range []string{"normal_map", "satellite_map", "terrain_map", "hybrid_map"} {
		assert.True(t, h.c.OnToolbarSelection(id))
	}
	assert.Equal(t, surface.Hybrid, h.m.mapType)

	assert.True(t, h.c.OnToolbarSelection("hybrid_map"))
	assert.Equal(t, surface.Hybrid, h.m.mapType)
}

func TestToolbarEachMode(t *testing.T) {
	h := newHarness(t, permission.Granted)
	h.start()

	for _, mode := range Modes {
		require.True(t, h.c.OnToolbarSelection(mode.ID))
		assert.Equal(t, mode.Type, h.m.mapType, mode.ID)
	}
	assert.False(t, h.c.OnToolbarSelection("settings"))
}

func TestToolbarBeforeReadyIsDropped(t *testing.T) {
	h := newHarness(t, permission.Granted)
	h.c.OnCreate(h.mapHost)

	assert.True(t, h.c.OnToolbarSelection("satellite_map"))
	h.mapHost.deliver(h.m)
	assert.Equal(t, surface.Normal, h.m.mapType)
}

func TestColdStartPermissionDenied(t *testing.T) {
	h := newHarness(t, permission.Unknown)
	h.start()

	require.Equal(t, []int{permission.RequestCode(permission.FineLocation)}, h.perm.requests)
	h.gate.OnResult(h.perm.requests[0], false)

	assert.False(t, h.m.myLocation)
	assert.Equal(t, permission.Denied, h.gate.State(permission.FineLocation))
	assert.Equal(t, Home, h.m.target)
	assert.Equal(t, 15, h.m.zoom)
	assert.Len(t, h.m.overlays, 1)
	assert.Equal(t, surface.Normal, h.m.mapType)
}

func TestPermissionGrantedLater(t *testing.T) {
	h := newHarness(t, permission.Unknown)
	h.start()
	assert.False(t, h.m.myLocation)

	h.gate.OnResult(permission.RequestCode(permission.FineLocation), true)
	assert.True(t, h.m.myLocation)
}

func TestGrantAfterDestroyIsIgnored(t *testing.T) {
	h := newHarness(t, permission.Unknown)
	h.start()
	h.c.OnDestroy()

	h.gate.OnResult(permission.RequestCode(permission.FineLocation), true)
	assert.False(t, h.m.myLocation)
}

func TestMapReadyAfterDestroyIsIgnored(t *testing.T) {
	h := newHarness(t, permission.Granted)
	h.c.OnCreate(h.mapHost)
	h.c.OnDestroy()
	h.mapHost.deliver(h.m)

	assert.Equal(t, Created, h.c.State())
	assert.Empty(t, h.m.overlays)
	assert.Nil(t, h.m.longClick)
}

func TestGesturesAfterDestroyAreIgnored(t *testing.T) {
	h := newHarness(t, permission.Granted)
	h.start()
	h.c.OnDestroy()

	h.m.longClick(Home)
	h.m.poiClick(surface.POI{Position: Home, Name: "late"})
	assert.Empty(t, h.m.markers)
	assert.False(t, h.c.OnToolbarSelection("bogus"))
	assert.True(t, h.c.OnToolbarSelection("terrain_map"))
	assert.Equal(t, surface.Normal, h.m.mapType)
}

func TestOverlayAddedOncePerMap(t *testing.T) {
	h := newHarness(t, permission.Granted)
	h.start()
	h.c.OnMapReady(h.m)

	assert.Len(t, h.m.overlays, 1)
}

func TestStyleParseFailureIsLogged(t *testing.T) {
	h := newHarness(t, permission.Granted)
	h.m.styleOK = false
	h.start()

	assert.Contains(t, h.logs.String(), "style parsing failed")
	assert.Equal(t, MapReady, h.c.State())

	h.m.longClick(Home)
	assert.Len(t, h.m.markers, 1)
}

func TestStyleResourceMissingIsLogged(t *testing.T) {
	bundle, err := resources.New("", language.English)
	require.NoError(t, err)
	h := newHarnessWith(t, permission.Granted, missingStyle{bundle}, nil)
	h.start()

	assert.Nil(t, h.m.style)
	assert.Contains(t, h.logs.String(), "can't find style")
	assert.Contains(t, h.logs.String(), "map_style.json")
	assert.True(t, h.m.myLocation)
}

func TestMapNeverDeliveredStaysPending(t *testing.T) {
	h := newHarness(t, permission.Granted)
	h.c.OnCreate(h.mapHost)

	assert.Equal(t, MapPending, h.c.State())
	assert.True(t, h.c.OnToolbarSelection("normal_map"))
	h.c.EnableSelfLocation()
	assert.Empty(t, h.perm.requests)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "panorama_active", PanoramaActive.String())
	assert.Equal(t, "map_pending", MapPending.String())
}
