// Package resources loads the app's bundled assets and localized text.
package resources

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	_ "image/png"
	"io/fs"
	"os"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/olablt/wander/surface"
	"github.com/olablt/wander/tiles"
)

//go:embed assets
var embedded embed.FS

// Asset names.
const (
	OverlayImage = "overlay.png"
	MapStyle     = "map_style.json"
	POIList      = "pois.json"
)

var ErrNotFound = errors.New("resource not found")

// Bundle resolves assets against an optional override directory first and
// the embedded copies second.
type Bundle struct {
	layers  []fs.FS
	tag     language.Tag
	printer *message.Printer
}

// New builds a bundle for the given locale. dir may be empty.
func New(dir string, tag language.Tag) (*Bundle, error) {
	base, err := fs.Sub(embedded, "assets")
	if err != nil {
		return nil, fmt.Errorf("embedded assets: %w", err)
	}
	layers := []fs.FS{base}
	if dir != "" {
		info, err := os.Stat(dir)
		if err != nil {
			return nil, fmt.Errorf("assets dir: %w", err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("assets dir %q is not a directory", dir)
		}
		layers = append([]fs.FS{os.DirFS(dir)}, layers...)
	}
	return NewFS(tag, layers...), nil
}

// NewFS builds a bundle over explicit layers, earliest wins.
func NewFS(tag language.Tag, layers ...fs.FS) *Bundle {
	return &Bundle{
		layers:  layers,
		tag:     tag,
		printer: message.NewPrinter(tag),
	}
}

func (b *Bundle) Locale() language.Tag {
	return b.tag
}

// Raw returns the bytes of a named asset.
func (b *Bundle) Raw(name string) ([]byte, error) {
	for _, layer := range b.layers {
		data, err := fs.ReadFile(layer, name)
		if err == nil {
			return data, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
}

// Bitmap decodes a named image asset.
func (b *Bundle) Bitmap(name string) (image.Image, error) {
	for _, layer := range b.layers {
		f, err := layer.Open(name)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", name, err)
		}
		img, _, err := image.Decode(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", name, err)
		}
		return img, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
}

type poiRecord struct {
	PlaceID string  `json:"place_id"`
	Name    string  `json:"name"`
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
}

// POIs returns the provider hotspots shipped with the app.
func (b *Bundle) POIs() ([]surface.POI, error) {
	data, err := b.Raw(POIList)
	if err != nil {
		return nil, err
	}
	var records []poiRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parse %s: %w", POIList, err)
	}
	pois := make([]surface.POI, 0, len(records))
	for _, r := range records {
		pos := tiles.LatLng{Lat: r.Lat, Lng: r.Lng}
		if !pos.Valid() || r.Name == "" {
			return nil, fmt.Errorf("parse %s: invalid entry %q", POIList, r.PlaceID)
		}
		pois = append(pois, surface.POI{Position: pos, Name: r.Name, PlaceID: r.PlaceID})
	}
	return pois, nil
}
