package mapview

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"gioui.org/f32"
	"gioui.org/layout"
	"gioui.org/op"
	"gioui.org/op/clip"
	"gioui.org/op/paint"
	"gioui.org/unit"
	"gioui.org/widget/material"

	"github.com/olablt/wander/surface"
	"github.com/olablt/wander/tiles"
)

// Pin geometry in pixels; the pin tip sits on the marker position.
const (
	pinRadius = 10
	pinHeight = 30
)

var (
	backgroundColor = color.NRGBA{R: 0xe8, G: 0xe4, B: 0xdc, A: 0xff}
	poiColor        = color.NRGBA{R: 0x1a, G: 0x73, B: 0xe8, A: 0xff}
	poiLabelColor   = color.NRGBA{R: 0x1a, G: 0x4b, B: 0x8c, A: 0xff}
	locationColor   = color.NRGBA{R: 0x42, G: 0x85, B: 0xf4, A: 0xff}
	white           = color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
	shadow          = color.NRGBA{A: 0x40}
)

func (mv *MapView) drawTiles(gtx layout.Context) {
	visible := tiles.CalculateVisibleTiles(mv.Center, mv.Zoom, mv.size)
	for i, tm := range mv.layers[mv.mapType] {
		styled := i == 0 && mv.mapType == surface.Normal && mv.style != nil
		for _, v := range visible {
			imgOp, ok := mv.tileOp(tm, v.Tile, styled)
			if !ok {
				continue
			}
			t := op.Offset(v.Offset).Push(gtx.Ops)
			imgOp.Add(gtx.Ops)
			paint.PaintOp{}.Add(gtx.Ops)
			t.Pop()
		}
	}
}

// tileOp returns the paint op for a tile, scheduling a load when the tile
// is missing or only a placeholder is available.
func (mv *MapView) tileOp(tm *tiles.TileManager, tile tiles.Tile, styled bool) (paint.ImageOp, bool) {
	gen := 0
	if styled {
		gen = mv.gen
	}
	key := fmt.Sprintf("%s/%d/%s", tm.Name(), gen, tiles.GetTileKey(tile))
	if cached, ok := mv.ops.Op(key); ok {
		return cached, true
	}

	img, ok := tm.Peek(tile)
	if !ok {
		tm.Prefetch(mv.ctx, tile)
		return paint.ImageOp{}, false
	}
	fbKey := fallbackKey(tm, tile)
	if fb, ok := img.(tiles.FallbackImage); ok {
		tm.Prefetch(mv.ctx, tile)
		if cached, ok := mv.ops.Op(fbKey); ok {
			return cached, true
		}
		imgOp := paint.NewImageOp(fb.Image)
		mv.ops.Set(fbKey, imgOp)
		return imgOp, true
	}
	mv.ops.Delete(fbKey)
	if styled {
		img = mv.style.Apply(img)
	}
	imgOp := paint.NewImageOp(img)
	mv.ops.Set(key, imgOp)
	return imgOp, true
}

// fallbackKey is shared by every style generation; placeholders are
// never styled.
func fallbackKey(tm *tiles.TileManager, tile tiles.Tile) string {
	return fmt.Sprintf("%s/fb/%s", tm.Name(), tiles.GetTileKey(tile))
}

func (mv *MapView) drawOverlays(gtx layout.Context) {
	for _, o := range mv.overlays {
		mpp := tiles.CalculateMetersPerPixel(o.opts.Anchor.Lat, mv.Zoom)
		widthPx := float32(o.opts.WidthMeters / mpp)
		scale := widthPx / float32(o.size.X)
		heightPx := float32(o.size.Y) * scale

		c := mv.LatLngToScreen(o.opts.Anchor)
		origin := f32.Pt(c.X-widthPx/2, c.Y-heightPx/2)
		tr := f32.Affine2D{}.Scale(f32.Point{}, f32.Pt(scale, scale)).Offset(origin)

		t := op.Affine(tr).Push(gtx.Ops)
		o.op.Add(gtx.Ops)
		paint.PaintOp{}.Add(gtx.Ops)
		t.Pop()
	}
}

func (mv *MapView) drawPOIs(gtx layout.Context) {
	if mv.Zoom < minLabelZoom {
		return
	}
	for _, poi := range mv.pois {
		p := mv.LatLngToScreen(poi.Position)
		if !mv.onScreen(p, 100) {
			continue
		}
		fillCircle(gtx.Ops, p, 7, white)
		fillCircle(gtx.Ops, p, 5, poiColor)
		if mv.theme == nil {
			continue
		}
		t := op.Offset(image.Pt(int(p.X)+9, int(p.Y)-8)).Push(gtx.Ops)
		lgtx := gtx
		lgtx.Constraints = layout.Constraints{Max: image.Pt(gtx.Dp(unit.Dp(160)), gtx.Dp(unit.Dp(40)))}
		lbl := material.Caption(mv.theme, poi.Name)
		lbl.Color = poiLabelColor
		lbl.MaxLines = 1
		lbl.Layout(lgtx)
		t.Pop()
	}
}

func (mv *MapView) drawMyLocation(gtx layout.Context) {
	if !mv.myLocation || mv.locate == nil {
		return
	}
	pos, ok := mv.locate()
	if !ok {
		return
	}
	p := mv.LatLngToScreen(pos)
	fillCircle(gtx.Ops, p, 14, color.NRGBA{R: 0x42, G: 0x85, B: 0xf4, A: 0x30})
	fillCircle(gtx.Ops, p, 9, white)
	fillCircle(gtx.Ops, p, 7, locationColor)
}

func (mv *MapView) drawMarkers(gtx layout.Context) {
	for _, m := range mv.markers {
		p := mv.LatLngToScreen(m.opts.Position)
		if !mv.onScreen(p, pinHeight) {
			continue
		}
		drawPin(gtx.Ops, p, pinColor(m.opts.Icon))
	}
}

func drawPin(ops *op.Ops, tip f32.Point, col color.NRGBA) {
	head := f32.Pt(tip.X, tip.Y-pinHeight+pinRadius)

	var path clip.Path
	path.Begin(ops)
	path.MoveTo(tip)
	path.LineTo(f32.Pt(head.X-pinRadius*0.7, head.Y+pinRadius*0.5))
	path.LineTo(f32.Pt(head.X+pinRadius*0.7, head.Y+pinRadius*0.5))
	path.Close()
	paint.FillShape(ops, col, clip.Outline{Path: path.End()}.Op())

	fillCircle(ops, head, pinRadius, col)
	fillCircle(ops, head, 3.5, white)
}

func (mv *MapView) drawInfoWindow(gtx layout.Context) {
	mv.infoRect = image.Rectangle{}
	m := mv.selected
	if m == nil {
		return
	}
	p := mv.LatLngToScreen(m.opts.Position)

	size := image.Pt(160, 48)
	var content op.CallOp
	if mv.theme != nil {
		macro := op.Record(gtx.Ops)
		cgtx := gtx
		cgtx.Constraints = layout.Constraints{Max: image.Pt(gtx.Dp(unit.Dp(240)), gtx.Dp(unit.Dp(120)))}
		dims := layout.UniformInset(unit.Dp(8)).Layout(cgtx, func(gtx layout.Context) layout.Dimensions {
			return layout.Flex{Axis: layout.Vertical}.Layout(gtx,
				layout.Rigid(material.Subtitle2(mv.theme, m.opts.Title).Layout),
				layout.Rigid(func(gtx layout.Context) layout.Dimensions {
					if m.opts.Snippet == "" {
						return layout.Dimensions{}
					}
					return material.Caption(mv.theme, m.opts.Snippet).Layout(gtx)
				}),
			)
		})
		content = macro.Stop()
		size = dims.Size
	}

	origin := image.Pt(int(p.X)-size.X/2, int(p.Y)-pinHeight-size.Y-4)
	rect := image.Rectangle{Min: origin, Max: origin.Add(size)}
	mv.infoRect = rect

	paint.FillShape(gtx.Ops, shadow, clip.UniformRRect(rect.Add(image.Pt(1, 2)), 4).Op(gtx.Ops))
	paint.FillShape(gtx.Ops, white, clip.UniformRRect(rect, 4).Op(gtx.Ops))
	if mv.theme != nil {
		t := op.Offset(origin).Push(gtx.Ops)
		content.Add(gtx.Ops)
		t.Pop()
	}
}

func (mv *MapView) onScreen(p f32.Point, margin float32) bool {
	return p.X >= -margin && p.Y >= -margin &&
		p.X <= float32(mv.size.X)+margin && p.Y <= float32(mv.size.Y)+margin
}

func fillCircle(ops *op.Ops, c f32.Point, r float32, col color.NRGBA) {
	rect := image.Rect(int(c.X-r), int(c.Y-r), int(math.Ceil(float64(c.X+r))), int(math.Ceil(float64(c.Y+r))))
	paint.FillShape(ops, col, clip.Ellipse(rect).Op(ops))
}

// pinColor renders a marker hue the way default markers are tinted.
func pinColor(icon surface.Icon) color.NRGBA {
	hue := icon.Hue
	if !icon.Preset {
		hue = surface.HueRed
	}
	return hsv(hue, 0.85, 0.92)
}

func hsv(h, s, v float64) color.NRGBA {
	h = math.Mod(h, 360)
	if h < 0 {
		h += 360
	}
	c := v * s
	x := c * (1 - math.Abs(math.Mod(h/60, 2)-1))
	m := v - c
	var r, g, b float64
	switch {
	case h < 60:
		r, g, b = c, x, 0
	case h < 120:
		r, g, b = x, c, 0
	case h < 180:
		r, g, b = 0, c, x
	case h < 240:
		r, g, b = 0, x, c
	case h < 300:
		r, g, b = x, 0, c
	default:
		r, g, b = c, 0, x
	}
	to8 := func(f float64) uint8 { return uint8(math.Round((f + m) * 255)) }
	return color.NRGBA{R: to8(r), G: to8(g), B: to8(b), A: 0xff}
}
