package tiles

import (
	"image"
	"math"
)

const (
	TileSize           = 256
	earthCircumference = 40075016.686 // meters at equator
	maxMercatorLat     = 85.05112878
)

// Tile represents a map tile coordinates
type Tile struct {
	X, Y, Zoom int
}

// LatLng represents a geographical point
type LatLng struct {
	Lat, Lng float64
}

// Valid reports whether the point lies inside the WGS84 ranges.
func (ll LatLng) Valid() bool {
	return ll.Lat >= -90 && ll.Lat <= 90 && ll.Lng >= -180 && ll.Lng <= 180
}

// clampLat keeps a latitude inside the range web mercator can project.
func clampLat(lat float64) float64 {
	return math.Max(-maxMercatorLat, math.Min(lat, maxMercatorLat))
}

// LatLngToTile converts geographical coordinates to tile coordinates
func LatLngToTile(ll LatLng, zoom int) Tile {
	x, y := CalculateWorldCoordinates(ll, zoom)
	return Tile{X: int(x / TileSize), Y: int(y / TileSize), Zoom: zoom}
}

// TileToLatLng returns the north-west corner of the tile.
func TileToLatLng(tile Tile) LatLng {
	return WorldToLatLng(float64(tile.X*TileSize), float64(tile.Y*TileSize), tile.Zoom)
}

// CalculateWorldCoordinates converts geographical coordinates to world pixel coordinates at given zoom level
func CalculateWorldCoordinates(ll LatLng, zoom int) (float64, float64) {
	n := math.Pow(2, float64(zoom))
	latRad := clampLat(ll.Lat) * math.Pi / 180.0
	worldX := float64(TileSize) * n * (ll.Lng + 180) / 360
	worldY := float64(TileSize) * n * (1 - math.Log(math.Tan(latRad)+1/math.Cos(latRad))/math.Pi) / 2
	return worldX, worldY
}

// WorldToLatLng converts world pixel coordinates back to geographical coordinates
func WorldToLatLng(worldX, worldY float64, zoom int) LatLng {
	n := math.Pow(2, float64(zoom))
	lng := (worldX/(float64(TileSize)*n))*360 - 180
	latRad := math.Pi * (1 - 2*worldY/(float64(TileSize)*n))
	lat := 180 / math.Pi * math.Atan(math.Sinh(latRad))
	return LatLng{Lat: lat, Lng: lng}
}

// CalculateMetersPerPixel calculates the meters per pixel at a given latitude and zoom level
func CalculateMetersPerPixel(latitude float64, zoom int) float64 {
	return earthCircumference * math.Cos(latitude*math.Pi/180) / (math.Pow(2, float64(zoom)) * TileSize)
}

// WrapTile folds X around the antimeridian and reports false when Y is off the map.
func WrapTile(tile Tile) (Tile, bool) {
	n := 1 << tile.Zoom
	if tile.Y < 0 || tile.Y >= n {
		return tile, false
	}
	tile.X = ((tile.X % n) + n) % n
	return tile, true
}

// VisibleTile pairs a tile to load with the screen offset it is drawn at.
type VisibleTile struct {
	Tile   Tile
	Offset image.Point
}

// CalculateVisibleTiles calculates which tiles are visible given a center point and screen size
func CalculateVisibleTiles(center LatLng, zoom int, screenSize image.Point) []VisibleTile {
	cx, cy := CalculateWorldCoordinates(center, zoom)
	left := cx - float64(screenSize.X)/2
	top := cy - float64(screenSize.Y)/2

	startX := int(math.Floor(left / TileSize))
	startY := int(math.Floor(top / TileSize))
	endX := int(math.Floor((left + float64(screenSize.X)) / TileSize))
	endY := int(math.Floor((top + float64(screenSize.Y)) / TileSize))

	visible := make([]VisibleTile, 0, (endX-startX+1)*(endY-startY+1))
	for x := startX; x <= endX; x++ {
		for y := startY; y <= endY; y++ {
			tile, ok := WrapTile(Tile{X: x, Y: y, Zoom: zoom})
			if !ok {
				continue
			}
			visible = append(visible, VisibleTile{
				Tile: tile,
				Offset: image.Point{
					X: int(math.Round(float64(x*TileSize) - left)),
					Y: int(math.Round(float64(y*TileSize) - top)),
				},
			})
		}
	}
	return visible
}
