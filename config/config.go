package config

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Log        LogConfig        `mapstructure:"log"`
	Window     WindowConfig     `mapstructure:"window"`
	Locale     string           `mapstructure:"locale"`
	AssetsDir  string           `mapstructure:"assets_dir" validate:"omitempty,dir"`
	Tiles      TilesConfig      `mapstructure:"tiles"`
	Panorama   PanoramaConfig   `mapstructure:"panorama"`
	Permission PermissionConfig `mapstructure:"permission"`
	Location   LocationConfig   `mapstructure:"location"`
	Host       HostConfig       `mapstructure:"host"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=text json"`
}

type WindowConfig struct {
	Title  string `mapstructure:"title" validate:"required"`
	Width  int    `mapstructure:"width" validate:"min=200"`
	Height int    `mapstructure:"height" validate:"min=200"`
}

// TilesConfig describes the tile servers per map type. An empty
// NormalURL leaves the map without a base layer.
type TilesConfig struct {
	UserAgent    string        `mapstructure:"user_agent" validate:"required"`
	Timeout      time.Duration `mapstructure:"timeout" validate:"gt=0"`
	Workers      int           `mapstructure:"workers" validate:"min=1,max=64"`
	CacheSize    int           `mapstructure:"cache_size" validate:"min=16"`
	NormalURL    string        `mapstructure:"normal_url" validate:"omitempty,tile_template"`
	SatelliteURL string        `mapstructure:"satellite_url" validate:"omitempty,tile_template"`
	TerrainURL   string        `mapstructure:"terrain_url" validate:"omitempty,tile_template"`
	LabelsURL    string        `mapstructure:"labels_url" validate:"omitempty,tile_template"`
}

// PanoramaConfig points at an equirectangular image service. Empty
// means synthetic panoramas only.
type PanoramaConfig struct {
	URL string `mapstructure:"url" validate:"omitempty,panorama_template"`
}

type PermissionConfig struct {
	FineLocation string `mapstructure:"fine_location" validate:"oneof=ask granted denied"`
}

// LocationConfig is the position reported for this device.
type LocationConfig struct {
	Lat float64 `mapstructure:"lat" validate:"latitude"`
	Lng float64 `mapstructure:"lng" validate:"longitude"`
}

type HostConfig struct {
	MaxDepth int `mapstructure:"max_depth" validate:"min=2,max=32"`
}

type MetricsConfig struct {
	Addr string `mapstructure:"addr" validate:"omitempty,hostname_port"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("tile_template", func(fl validator.FieldLevel) bool {
		return isHTTP(fl.Field().String()) && hasAll(fl.Field().String(), "{z}", "{x}", "{y}")
	})
	_ = v.RegisterValidation("panorama_template", func(fl validator.FieldLevel) bool {
		return isHTTP(fl.Field().String()) && hasAll(fl.Field().String(), "{lat}", "{lng}")
	})
	return v
}

func isHTTP(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

func hasAll(s string, parts ...string) bool {
	for _, p := range parts {
		if !strings.Contains(s, p) {
			return false
		}
	}
	return true
}

// Load reads configuration from dir/config.yaml, dir/.env and WANDER_*
// environment variables, in increasing precedence. dir may be empty.
func Load(dir string) (*Config, error) {
	if dir == "" {
		dir = "."
	}
	if err := godotenv.Load(filepath.Join(dir, ".env")); err != nil {
		slog.Debug("no .env file loaded", "error", err)
	}

	v := viper.New()
	setDefaults(v)

	// Config file (optional)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	// Environment variables: WANDER_TILES_NORMAL_URL → tiles.normal_url
	v.SetEnvPrefix("WANDER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("window.title", "Wander")
	v.SetDefault("window.width", 480)
	v.SetDefault("window.height", 800)
	v.SetDefault("locale", "")
	v.SetDefault("assets_dir", "")
	v.SetDefault("tiles.user_agent", "wander/1.0 (+https://github.com/olablt/wander)")
	v.SetDefault("tiles.timeout", 10*time.Second)
	v.SetDefault("tiles.workers", 4)
	v.SetDefault("tiles.cache_size", 256)
	v.SetDefault("tiles.normal_url", "https://tile.openstreetmap.org/{z}/{x}/{y}.png")
	v.SetDefault("tiles.satellite_url", "https://server.arcgisonline.com/ArcGIS/rest/services/World_Imagery/MapServer/tile/{z}/{y}/{x}")
	v.SetDefault("tiles.terrain_url", "https://tile.opentopomap.org/{z}/{x}/{y}.png")
	v.SetDefault("tiles.labels_url", "https://server.arcgisonline.com/ArcGIS/rest/services/Reference/World_Boundaries_and_Places/MapServer/tile/{z}/{y}/{x}")
	v.SetDefault("panorama.url", "")
	v.SetDefault("permission.fine_location", "ask")
	v.SetDefault("location.lat", 40.50900)
	v.SetDefault("location.lng", -88.98400)
	v.SetDefault("host.max_depth", 8)
	v.SetDefault("metrics.addr", "")
}

// Validate checks the struct tags and reports every failing key.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("config validation: %w", err)
		}
		msgs := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
		}
		return fmt.Errorf("config validation failed: %s", strings.Join(msgs, "; "))
	}
	return nil
}
