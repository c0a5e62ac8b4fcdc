// Package panorama renders a street-level surface anchored at one
// coordinate.
package panorama

import (
	"context"
	"image"
	"image/color"
	"log/slog"
	"math"

	"gioui.org/f32"
	"gioui.org/io/event"
	"gioui.org/io/pointer"
	"gioui.org/layout"
	"gioui.org/op"
	"gioui.org/op/clip"
	"gioui.org/op/paint"
	"gioui.org/widget/material"

	"github.com/olablt/wander/surface"
	"github.com/olablt/wander/tiles"
)

const defaultFOV = 90.0

type Options struct {
	Provider Provider
	// Post runs a function on the UI goroutine.
	Post         func(func())
	Theme        *material.Theme
	LoadingLabel string
	FailedLabel  string
	Logger       *slog.Logger
}

type View struct {
	at      tiles.LatLng
	heading float64
	fov     float64

	img      image.Image
	imgOp    paint.ImageOp
	loaded   bool
	failed   bool
	released bool

	ctx    context.Context
	cancel context.CancelFunc
	opts   Options

	dragging bool
	lastX    float32
	width    int
}

var _ surface.Panorama = (*View)(nil)

// Factory returns a constructor for the view host.
func Factory(opts Options) surface.PanoramaFactory {
	return func(at tiles.LatLng) surface.Panorama {
		return New(at, opts)
	}
}

// New starts loading imagery for at and returns immediately.
func New(at tiles.LatLng, opts Options) *View {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Post == nil {
		opts.Post = func(fn func()) { fn() }
	}
	if opts.Provider == nil {
		opts.Provider = LocalProvider{}
	}
	ctx, cancel := context.WithCancel(context.Background())
	v := &View{
		at:     at,
		fov:    defaultFOV,
		ctx:    ctx,
		cancel: cancel,
		opts:   opts,
	}
	go v.load()
	return v
}

func (v *View) load() {
	img, err := v.opts.Provider.Fetch(v.ctx, v.at)
	v.opts.Post(func() {
		if v.released {
			return
		}
		if err != nil {
			v.opts.Logger.Error("panorama load failed", "lat", v.at.Lat, "lng", v.at.Lng, "error", err)
			v.failed = true
			return
		}
		v.img = img
		v.imgOp = paint.NewImageOp(img)
		v.loaded = true
	})
}

func (v *View) Position() tiles.LatLng {
	return v.at
}

// Release cancels any in-flight load. The view draws nothing afterwards.
func (v *View) Release() {
	if v.released {
		return
	}
	v.released = true
	v.cancel()
	v.img = nil
}

func (v *View) Loaded() bool {
	return v.loaded
}

func (v *View) Heading() float64 {
	return v.heading
}

// SetHeading turns the camera, wrapping into [0, 360).
func (v *View) SetHeading(deg float64) {
	v.heading = math.Mod(math.Mod(deg, 360)+360, 360)
}

func (v *View) Layout(gtx layout.Context) layout.Dimensions {
	size := gtx.Constraints.Max
	v.width = size.X

	for {
		ev, ok := gtx.Event(pointer.Filter{
			Target: v,
			Kinds:  pointer.Press | pointer.Drag | pointer.Release | pointer.Cancel,
		})
		if !ok {
			break
		}
		x, ok := ev.(pointer.Event)
		if !ok {
			continue
		}
		switch x.Kind {
		case pointer.Press:
			v.dragging = true
			v.lastX = x.Position.X
		case pointer.Drag:
			if v.dragging {
				v.pan(x.Position.X - v.lastX)
				v.lastX = x.Position.X
			}
		case pointer.Release, pointer.Cancel:
			v.dragging = false
		}
	}

	defer clip.Rect{Max: size}.Push(gtx.Ops).Pop()
	event.Op(gtx.Ops, v)
	paint.Fill(gtx.Ops, color.NRGBA{R: 0x20, G: 0x20, B: 0x20, A: 0xff})

	if !v.loaded || v.img == nil {
		v.layoutStatus(gtx)
		return layout.Dimensions{Size: size}
	}

	b := v.img.Bounds()
	viewportW := float64(b.Dx()) * v.fov / 360
	scale := float32(float64(size.X) / viewportW)
	x0 := (v.heading - v.fov/2) / 360 * float64(b.Dx())
	offY := (float32(size.Y) - float32(b.Dy())*scale) / 2

	// neighbouring copies cover the seam at 0/360 degrees
	for k := -1; k <= 1; k++ {
		left := -x0 + float64(k*b.Dx())
		tr := f32.Affine2D{}.
			Scale(f32.Point{}, f32.Pt(scale, scale)).
			Offset(f32.Pt(float32(left)*scale, offY))
		t := op.Affine(tr).Push(gtx.Ops)
		v.imgOp.Add(gtx.Ops)
		paint.PaintOp{}.Add(gtx.Ops)
		t.Pop()
	}
	return layout.Dimensions{Size: size}
}

func (v *View) pan(dx float32) {
	if v.width == 0 {
		return
	}
	v.SetHeading(v.heading - float64(dx)*v.fov/float64(v.width))
}

func (v *View) layoutStatus(gtx layout.Context) {
	if v.opts.Theme == nil {
		return
	}
	text := v.opts.LoadingLabel
	if v.failed {
		text = v.opts.FailedLabel
	}
	gtx.Constraints.Min = image.Point{}
	layout.Center.Layout(gtx, func(gtx layout.Context) layout.Dimensions {
		lbl := material.Body1(v.opts.Theme, text)
		lbl.Color = color.NRGBA{R: 0xee, G: 0xee, B: 0xee, A: 0xff}
		return lbl.Layout(gtx)
	})
}
