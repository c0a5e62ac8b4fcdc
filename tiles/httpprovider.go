package tiles

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/olablt/wander/metrics"
)

var (
	ErrCircuitOpen = errors.New("tile server circuit open")
	ErrStatus      = errors.New("unexpected status code")
)

// HTTPTileProvider fetches raster tiles from a {z}/{x}/{y} URL template.
type HTTPTileProvider struct {
	name      string
	template  string
	userAgent string
	client    *http.Client
	circuit   *gobreaker.CircuitBreaker
	logger    *slog.Logger
}

func NewHTTPTileProvider(name, template, userAgent string, client *http.Client, logger *slog.Logger) *HTTPTileProvider {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("provider", name)
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 2,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("tile circuit state changed", "from", from.String(), "to", to.String())
			open := 0.0
			if to == gobreaker.StateOpen {
				open = 1
			}
			metrics.CircuitState.WithLabelValues(name).Set(open)
		},
	})
	return &HTTPTileProvider{
		name:      name,
		template:  template,
		userAgent: userAgent,
		client:    client,
		circuit:   cb,
		logger:    logger,
	}
}

func (p *HTTPTileProvider) GetTile(ctx context.Context, tile Tile) (image.Image, error) {
	url := p.GetTileURL(tile)
	start := time.Now()

	result, err := p.circuit.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", p.userAgent)
		req.Header.Set("Accept", "image/png,image/jpeg,*/*")

		resp, err := p.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("%w: %d", ErrStatus, resp.StatusCode)
		}
		img, _, err := image.Decode(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("decode tile: %w", err)
		}
		return img, nil
	})
	metrics.ObserveFetch(p.name, start, err)

	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %v", ErrCircuitOpen, err)
		}
		p.logger.Debug("tile fetch failed", "url", url, "error", err)
		return nil, err
	}
	return result.(image.Image), nil
}

// GetTileURL expands {z}, {x} and {y} in the template.
func (p *HTTPTileProvider) GetTileURL(tile Tile) string {
	r := strings.NewReplacer(
		"{z}", strconv.Itoa(tile.Zoom),
		"{x}", strconv.Itoa(tile.X),
		"{y}", strconv.Itoa(tile.Y),
	)
	return r.Replace(p.template)
}
