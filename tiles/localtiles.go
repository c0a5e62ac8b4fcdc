package tiles

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// LocalTileProvider draws a labelled placeholder tile. It is the fallback
// when a network layer is unreachable.
type LocalTileProvider struct {
	background color.RGBA
}

func NewLocalTileProvider(background color.RGBA) *LocalTileProvider {
	return &LocalTileProvider{background: background}
}

func (p *LocalTileProvider) GetTile(_ context.Context, tile Tile) (image.Image, error) {
	img := image.NewRGBA(image.Rect(0, 0, TileSize, TileSize))
	draw.Draw(img, img.Bounds(), &image.Uniform{p.background}, image.Point{}, draw.Src)

	drawText(img, fmt.Sprintf("%d/%d/%d", tile.Zoom, tile.X, tile.Y))

	borderColor := color.RGBA{100, 100, 100, 255}
	borders := []image.Rectangle{
		image.Rect(0, 0, TileSize, 1),                 // Top
		image.Rect(0, TileSize-1, TileSize, TileSize), // Bottom
		image.Rect(0, 0, 1, TileSize),                 // Left
		image.Rect(TileSize-1, 0, TileSize, TileSize), // Right
	}
	for _, rect := range borders {
		draw.Draw(img, rect, &image.Uniform{borderColor}, image.Point{}, draw.Src)
	}
	return img, nil
}

func drawText(img *image.RGBA, text string) {
	face := basicfont.Face7x13
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(color.RGBA{60, 60, 60, 255}),
		Face: face,
	}

	textWidth := d.MeasureString(text).Round()
	textHeight := face.Metrics().Height.Round()
	mid := TileSize / 2

	padding := 10
	textBgRect := image.Rect(
		(TileSize-textWidth)/2-padding,
		mid-textHeight/2-padding,
		(TileSize+textWidth)/2+padding,
		mid+textHeight/2+padding,
	)
	draw.Draw(img, textBgRect, &image.Uniform{color.RGBA{255, 255, 255, 220}}, image.Point{}, draw.Over)

	d.Dot = fixed.Point26_6{
		X: fixed.I((TileSize - textWidth) / 2),
		Y: fixed.I(mid + textHeight/2),
	}
	d.DrawString(text)
}
