package main

import (
	"context"
	"fmt"
	"image/color"
	"log/slog"
	"net/http"
	"os"

	"gioui.org/app"
	"gioui.org/op"
	"gioui.org/unit"
	"gioui.org/widget/material"

	"github.com/olablt/wander/config"
	"github.com/olablt/wander/controller"
	"github.com/olablt/wander/dispatch"
	"github.com/olablt/wander/host"
	"github.com/olablt/wander/logging"
	"github.com/olablt/wander/mapview"
	"github.com/olablt/wander/metrics"
	"github.com/olablt/wander/panorama"
	"github.com/olablt/wander/permission"
	"github.com/olablt/wander/resources"
	"github.com/olablt/wander/surface"
	"github.com/olablt/wander/tiles"
	"github.com/olablt/wander/tiles/worker"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger := logging.Setup(cfg.Log.Level, cfg.Log.Format)

	go func() {
		if err := run(cfg, logger); err != nil {
			logger.Error("wander stopped", "error", err)
			os.Exit(1)
		}
		os.Exit(0)
	}()
	app.Main()
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	metrics.Serve(ctx, cfg.Metrics.Addr, logger)

	bundle, err := resources.New(cfg.AssetsDir, resources.ParseLocale(cfg.Locale))
	if err != nil {
		return fmt.Errorf("load resources: %w", err)
	}
	logger.Info("resources loaded", "locale", bundle.Locale().String(), "assets_dir", cfg.AssetsDir)
	pois, err := bundle.POIs()
	if err != nil {
		logger.Error("poi list unavailable", "error", err)
	}

	w := new(app.Window)
	w.Option(
		app.Title(cfg.Window.Title),
		app.Size(unit.Dp(cfg.Window.Width), unit.Dp(cfg.Window.Height)),
	)

	refresh := make(chan struct{}, 1)
	go func() {
		for range refresh {
			w.Invalidate()
		}
	}()
	wake := func() {
		select {
		case refresh <- struct{}{}:
		default:
		}
	}
	queue := dispatch.New(wake)

	th := material.NewTheme()
	client := &http.Client{Timeout: cfg.Tiles.Timeout}
	pool := worker.NewPool(cfg.Tiles.Workers, 256, cfg.Tiles.Timeout)
	defer pool.Shutdown()

	device := tiles.LatLng{Lat: cfg.Location.Lat, Lng: cfg.Location.Lng}
	mv := mapview.New(mapview.Options{
		Layers: buildLayers(cfg, client, pool, wake, logger),
		POIs:   pois,
		Locate: func() (tiles.LatLng, bool) { return device, true },
		Post:   queue.Post,
		Theme:  th,
		Logger: logger.With("component", "map"),
	})

	prompt := permission.NewPromptHost(permission.ParseState(cfg.Permission.FineLocation), queue.Post, permission.Labels{
		Message: bundle.String(resources.LocationPrompt),
		Allow:   bundle.String(resources.PromptAllow),
		Deny:    bundle.String(resources.PromptDeny),
	})
	gate := permission.NewGate(prompt, logger.With("component", "permission"))
	prompt.SetResultHandler(gate.OnResult)

	items := make([]host.MenuItem, len(controller.Modes))
	for i, mode := range controller.Modes {
		items[i] = host.MenuItem{ID: mode.ID, Label: bundle.String(mode.Label)}
	}
	view := host.New(mv, items, host.Options{
		Title:    bundle.String(resources.AppTitle),
		MaxDepth: cfg.Host.MaxDepth,
		Theme:    th,
		Prompt:   prompt,
		Logger:   logger.With("component", "host"),
	})

	ctrl := controller.New(controller.Options{
		Resources: bundle,
		Gate:      gate,
		Navigator: view,
		Panoramas: panorama.Factory(panorama.Options{
			Provider:     panoramaProvider(cfg, client),
			Post:         queue.Post,
			Theme:        th,
			LoadingLabel: bundle.String(resources.PanoramaLoading),
			FailedLabel:  bundle.String(resources.PanoramaFailed),
			Logger:       logger.With("component", "panorama"),
		}),
		Logger: logger.With("component", "controller"),
	})
	view.SetSelectionHandler(ctrl.OnToolbarSelection)
	view.SetBackHandler(ctrl.OnBack)
	ctrl.OnCreate(mv)

	var ops op.Ops
	for {
		switch e := w.Event().(type) {
		case app.DestroyEvent:
			ctrl.OnDestroy()
			gate.Forget()
			view.Close()
			mv.Destroy()
			queue.Close()
			return e.Err
		case app.FrameEvent:
			queue.Drain()
			gtx := app.NewContext(&ops, e)
			view.Layout(gtx)
			e.Frame(gtx.Ops)
		}
	}
}

// buildLayers wires a tile manager per configured server. Base layers
// fall back to locally drawn tiles; the label overlay does not.
func buildLayers(cfg *config.Config, client *http.Client, pool *worker.Pool, onLoad func(), logger *slog.Logger) mapview.Layers {
	layer := func(name, url string, fallback *color.RGBA) *tiles.TileManager {
		if url == "" {
			return nil
		}
		var provider tiles.TileProvider = tiles.NewHTTPTileProvider(name, url, cfg.Tiles.UserAgent, client, logger)
		if fallback != nil {
			provider = tiles.NewCombinedTileProvider(provider, tiles.NewLocalTileProvider(*fallback))
		}
		tm := tiles.NewTileManager(name, provider, pool, cfg.Tiles.CacheSize, logger)
		tm.SetOnLoadCallback(onLoad)
		return tm
	}

	normal := layer("normal", cfg.Tiles.NormalURL, &color.RGBA{R: 0xe8, G: 0xe4, B: 0xdc, A: 0xff})
	satellite := layer("satellite", cfg.Tiles.SatelliteURL, &color.RGBA{R: 0x3b, G: 0x4a, B: 0x3a, A: 0xff})
	terrain := layer("terrain", cfg.Tiles.TerrainURL, &color.RGBA{R: 0xdf, G: 0xe6, B: 0xc8, A: 0xff})
	labels := layer("labels", cfg.Tiles.LabelsURL, nil)

	layers := mapview.Layers{}
	add := func(t surface.MapType, tms ...*tiles.TileManager) {
		for _, tm := range tms {
			if tm != nil {
				layers[t] = append(layers[t], tm)
			}
		}
	}
	add(surface.Normal, normal)
	add(surface.Satellite, satellite)
	add(surface.Terrain, terrain)
	add(surface.Hybrid, satellite, labels)
	return layers
}

func panoramaProvider(cfg *config.Config, client *http.Client) panorama.Provider {
	if cfg.Panorama.URL == "" {
		return panorama.LocalProvider{}
	}
	return panorama.Chain{
		panorama.NewHTTPProvider(cfg.Panorama.URL, cfg.Tiles.UserAgent, client),
		panorama.LocalProvider{},
	}
}
