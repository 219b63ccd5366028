// Package config holds the engine settings. Settings come from built-in
// defaults, then an optional TOML file, then command-line flags.
package config

import (
	"bytes"
	"io/fs"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/cockroachdb/errors"

	"github.com/jdg534/Dx12Eng/internal/gfxerr"
	"github.com/jdg534/Dx12Eng/internal/logging"
)

// DefaultPath is the config path the entry point hands to the application.
const DefaultPath = "index.txt"

// SwapChainBufferCount is the only supported back-buffer count.
const SwapChainBufferCount = 2

type WindowConfig struct {
	Width     int    `toml:"width"`
	Height    int    `toml:"height"`
	Title     string `toml:"title"`
	ClassName string `toml:"class_name"`
	// Hidden creates the window without showing it.
	Hidden bool `toml:"hidden"`
}

type ShaderConfig struct {
	// Path to a WGSL file. Empty selects the built-in DefaultShader.wgsl.
	Path        string `toml:"path"`
	VertexEntry string `toml:"vertex_entry"`
	PixelEntry  string `toml:"pixel_entry"`
}

type GeometryConfig struct {
	// ModelPath is an OBJ file such as "TestCube.obj". Empty draws the
	// built-in triangle.
	ModelPath string  `toml:"model_path"`
	Scale     float32 `toml:"scale"`
}

type DeviceConfig struct {
	UseWarp        bool       `toml:"use_warp"`
	Debug          bool       `toml:"debug"`
	BufferCount    int        `toml:"buffer_count"`
	FramesInFlight int        `toml:"frames_in_flight"`
	FenceTimeoutMS int        `toml:"fence_timeout_ms"`
	ClearColor     [4]float32 `toml:"clear_color"`
}

type Config struct {
	Window   WindowConfig   `toml:"window"`
	Shader   ShaderConfig   `toml:"shader"`
	Geometry GeometryConfig `toml:"geometry"`
	Device   DeviceConfig   `toml:"device"`
	LogLevel string         `toml:"log_level"`
}

func Default() Config {
	return Config{
		Window: WindowConfig{
			Width:     800,
			Height:    600,
			Title:     "Dx12 Engine Window",
			ClassName: "Dx12 Engine",
		},
		Shader: ShaderConfig{
			VertexEntry: "VSMain",
			PixelEntry:  "PSMain",
		},
		Geometry: GeometryConfig{
			Scale: 0.5,
		},
		Device: DeviceConfig{
			BufferCount:    SwapChainBufferCount,
			FramesInFlight: 1,
			ClearColor:     [4]float32{0.0, 0.4, 0.2, 1.0},
		},
		LogLevel: "info",
	}
}

// Load reads path over the defaults. A missing file is not an error and
// yields the defaults unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		logging.Logger().Debug("config file not found, using defaults", "path", path)
		return cfg, nil
	} else if err != nil {
		return cfg, gfxerr.Wrapf(err, gfxerr.ConfigInvalid, "read config %s", path)
	}

	if err := Decode(data, &cfg); err != nil {
		return cfg, gfxerr.Wrapf(err, gfxerr.ConfigInvalid, "parse config %s", path)
	}
	return cfg, cfg.Validate()
}

// Decode overlays TOML data onto cfg.
func Decode(data []byte, cfg *Config) error {
	meta, err := toml.NewDecoder(bytes.NewReader(data)).Decode(cfg)
	if err != nil {
		return gfxerr.Wrap(err, gfxerr.ConfigInvalid, "decode toml")
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return gfxerr.New(gfxerr.ConfigInvalid, "unknown config key %q", undecoded[0].String())
	}
	return nil
}

func (c Config) Validate() error {
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		return gfxerr.New(gfxerr.ConfigInvalid, "window size %dx%d must be positive", c.Window.Width, c.Window.Height)
	}
	if c.Device.BufferCount != SwapChainBufferCount {
		return gfxerr.New(gfxerr.ConfigInvalid, "buffer_count %d unsupported, only %d", c.Device.BufferCount, SwapChainBufferCount)
	}
	if c.Device.FramesInFlight < 1 || c.Device.FramesInFlight > c.Device.BufferCount {
		return gfxerr.New(gfxerr.ConfigInvalid, "frames_in_flight %d must be between 1 and %d", c.Device.FramesInFlight, c.Device.BufferCount)
	}
	if c.Device.FenceTimeoutMS < 0 {
		return gfxerr.New(gfxerr.ConfigInvalid, "fence_timeout_ms %d is negative", c.Device.FenceTimeoutMS)
	}
	if c.Geometry.Scale <= 0 {
		return gfxerr.New(gfxerr.ConfigInvalid, "geometry scale %v must be positive", c.Geometry.Scale)
	}
	if c.Shader.VertexEntry == "" || c.Shader.PixelEntry == "" {
		return gfxerr.New(gfxerr.ConfigInvalid, "shader entry points must be named")
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return gfxerr.Wrap(err, gfxerr.ConfigInvalid, "log_level")
	}
	return nil
}

// AspectRatio is width over height of the window and swap chain.
func (c Config) AspectRatio() float32 {
	return float32(c.Window.Width) / float32(c.Window.Height)
}

// FenceTimeout is the frame wait limit. Zero means wait forever.
func (c Config) FenceTimeout() time.Duration {
	return time.Duration(c.Device.FenceTimeoutMS) * time.Millisecond
}
