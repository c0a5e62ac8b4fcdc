package panorama

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/olablt/wander/metrics"
	"github.com/olablt/wander/tiles"
)

// Provider returns an equirectangular image covering 360 degrees of
// heading around a coordinate.
type Provider interface {
	Fetch(ctx context.Context, at tiles.LatLng) (image.Image, error)
}

var ErrNoImagery = errors.New("no panorama imagery")

// HTTPProvider fetches imagery from a URL template with {lat} and {lng}.
type HTTPProvider struct {
	template  string
	userAgent string
	client    *http.Client
	circuit   *gobreaker.CircuitBreaker
}

func NewHTTPProvider(template, userAgent string, client *http.Client) *HTTPProvider {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	return &HTTPProvider{
		template:  template,
		userAgent: userAgent,
		client:    client,
		circuit: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "panorama",
			MaxRequests: 1,
			Interval:    time.Minute,
			Timeout:     time.Minute,
		}),
	}
}

func (p *HTTPProvider) URL(at tiles.LatLng) string {
	r := strings.NewReplacer(
		"{lat}", strconv.FormatFloat(at.Lat, 'f', 6, 64),
		"{lng}", strconv.FormatFloat(at.Lng, 'f', 6, 64),
	)
	return r.Replace(p.template)
}

func (p *HTTPProvider) Fetch(ctx context.Context, at tiles.LatLng) (image.Image, error) {
	start := time.Now()
	result, err := p.circuit.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.URL(at), nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", p.userAgent)
		resp, err := p.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusNotFound:
			return nil, ErrNoImagery
		case resp.StatusCode != http.StatusOK:
			return nil, fmt.Errorf("panorama status %d", resp.StatusCode)
		}
		img, _, err := image.Decode(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("decode panorama: %w", err)
		}
		return img, nil
	})
	metrics.ObservePanoramaFetch(start, err)
	if err != nil {
		return nil, err
	}
	return result.(image.Image), nil
}

// LocalProvider draws a synthetic panorama: sky, ground, a horizon with
// compass marks and the coordinate.
type LocalProvider struct {
	Width, Height int
}

func (p LocalProvider) Fetch(_ context.Context, at tiles.LatLng) (image.Image, error) {
	w, h := p.Width, p.Height
	if w == 0 || h == 0 {
		w, h = 2048, 1024
	}
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	horizon := h / 2

	for y := 0; y < horizon; y++ {
		t := float64(y) / float64(horizon)
		c := color.RGBA{
			R: uint8(90 + 100*t),
			G: uint8(150 + 70*t),
			B: uint8(230 + 20*t),
			A: 0xff,
		}
		draw.Draw(img, image.Rect(0, y, w, y+1), &image.Uniform{c}, image.Point{}, draw.Src)
	}
	for y := horizon; y < h; y++ {
		t := float64(y-horizon) / float64(h-horizon)
		c := color.RGBA{
			R: uint8(120 - 50*t),
			G: uint8(150 - 60*t),
			B: uint8(90 - 40*t),
			A: 0xff,
		}
		draw.Draw(img, image.Rect(0, y, w, y+1), &image.Uniform{c}, image.Point{}, draw.Src)
	}
	draw.Draw(img, image.Rect(0, horizon-1, w, horizon+1), &image.Uniform{color.RGBA{60, 60, 60, 255}}, image.Point{}, draw.Src)

	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(color.RGBA{30, 30, 30, 255}),
		Face: basicfont.Face7x13,
	}
	for i, label := range []string{"N", "NE", "E", "SE", "S", "SW", "W", "NW"} {
		x := i * w / 8
		draw.Draw(img, image.Rect(x, horizon-12, x+1, horizon+12), &image.Uniform{color.RGBA{30, 30, 30, 255}}, image.Point{}, draw.Src)
		d.Dot = fixed.Point26_6{X: fixed.I(x + 4), Y: fixed.I(horizon - 16)}
		d.DrawString(label)
	}

	text := fmt.Sprintf("%.5f, %.5f", at.Lat, at.Lng)
	for i := 0; i < 4; i++ {
		x := i*w/4 + w/16
		d.Dot = fixed.Point26_6{X: fixed.I(x), Y: fixed.I(horizon + 40)}
		d.DrawString(text)
	}
	return img, nil
}

// Chain tries each provider in turn and returns the first image.
type Chain []Provider

func (c Chain) Fetch(ctx context.Context, at tiles.LatLng) (image.Image, error) {
	var errs []error
	for _, p := range c {
		img, err := p.Fetch(ctx, at)
		if err == nil {
			return img, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		slog.Debug("panorama provider failed", "error", err)
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return nil, ErrNoImagery
	}
	return nil, errors.Join(errs...)
}
