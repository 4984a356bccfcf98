package fits3

import (
	"bytes"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// Config holds the startup settings of the viewer. Values come from the
// defaults, then an optional TOML file, then explicitly set command-line flags.
type Config struct {
	Width  int    `toml:"width"`
	Height int    `toml:"height"`
	Title  string `toml:"title"`

	CubePath string `toml:"cube"`
	CubeURL  string `toml:"url"`
	Watch    bool   `toml:"watch"`

	Perspective bool     `toml:"perspective"`
	Min         *float32 `toml:"min"`
	Max         *float32 `toml:"max"`

	// MaxTextureDimension bounds every cube axis; 2048 is the WebGPU default limit.
	MaxTextureDimension uint32 `toml:"max_texture_dimension"`

	Debug     bool   `toml:"debug"`
	LogPrefix string `toml:"log_prefix"`
}

func DefaultConfig() Config {
	return Config{
		Width:               768,
		Height:              512,
		Title:               "Astronomical cube visualizer",
		CubePath:            "cubes/NGC3198_cube.fits",
		Perspective:         true,
		MaxTextureDimension: 2048,
		LogPrefix:           "fits3",
	}
}

// LoadConfig reads a TOML file on top of the defaults. Unknown keys are rejected.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := DecodeConfig(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

func DecodeConfig(data []byte, cfg *Config) error {
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	return dec.Decode(cfg)
}

// Range returns the fixed normalisation range, if both bounds are set.
func (c Config) Range() (lo, hi float32, ok bool) {
	if c.Min == nil || c.Max == nil {
		return 0, 0, false
	}
	return *c.Min, *c.Max, true
}

func (c Config) Validate() error {
	var errs []error
	if c.Width <= 0 || c.Height <= 0 {
		errs = append(errs, fmt.Errorf("window size must be positive, got %dx%d", c.Width, c.Height))
	}
	if (c.Min == nil) != (c.Max == nil) {
		errs = append(errs, errors.New("min and max must be set together"))
	}
	if lo, hi, ok := c.Range(); ok && lo >= hi {
		errs = append(errs, fmt.Errorf("min (%g) must be below max (%g)", lo, hi))
	}
	if c.MaxTextureDimension == 0 {
		errs = append(errs, errors.New("max_texture_dimension must be positive"))
	}
	if c.CubePath == "" && c.CubeURL == "" {
		errs = append(errs, errors.New("either a cube path or a cube url is required"))
	}
	if c.Watch && c.CubePath == "" {
		errs = append(errs, errors.New("watch requires a cube path"))
	}
	return errors.Join(errs...)
}

// ParseArgs builds the configuration from command-line arguments. A -config
// file is applied first; flags given on the command line win over it.
func ParseArgs(name string, args []string) (Config, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	def := DefaultConfig()

	configPath := fs.String("config", "", "TOML configuration file")
	width := fs.Int("width", def.Width, "window width")
	height := fs.Int("height", def.Height, "window height")
	title := fs.String("title", def.Title, "window title")
	cube := fs.String("cube", def.CubePath, "FITS cube to load")
	url := fs.String("url", "", "fetch the cube from this URL in the background")
	watch := fs.Bool("watch", false, "reload the cube when the file changes")
	perspective := fs.Bool("perspective", def.Perspective, "perspective projection (false: orthographic)")
	minValue := fs.Float64("min", 0, "lower bound of the displayed intensity range")
	maxValue := fs.Float64("max", 0, "upper bound of the displayed intensity range")
	maxDim := fs.Uint("max-texture-dim", uint(def.MaxTextureDimension), "largest accepted cube axis")
	debug := fs.Bool("debug", false, "enable debug logging and frame statistics")

	if err := fs.Parse(args); err != nil {
		return def, err
	}

	cfg := def
	if *configPath != "" {
		loaded, err := LoadConfig(*configPath)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "width":
			cfg.Width = *width
		case "height":
			cfg.Height = *height
		case "title":
			cfg.Title = *title
		case "cube":
			cfg.CubePath = *cube
		case "url":
			cfg.CubeURL = *url
		case "watch":
			cfg.Watch = *watch
		case "perspective":
			cfg.Perspective = *perspective
		case "min":
			v := float32(*minValue)
			cfg.Min = &v
		case "max":
			v := float32(*maxValue)
			cfg.Max = &v
		case "max-texture-dim":
			cfg.MaxTextureDimension = uint32(*maxDim)
		case "debug":
			cfg.Debug = *debug
		}
	})

	return cfg, cfg.Validate()
}
