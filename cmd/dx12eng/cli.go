package main

import (
	"flag"

	"github.com/jdg534/Dx12Eng/internal/config"
)

type CLIOpts struct {
	configPath string
	model      string
	shader     string
	warp       bool
	hidden     bool
	debug      bool
	frames     int
	logLevel   string

	set map[string]bool
}

func parseCLIOpts() CLIOpts {
	var opt CLIOpts
	flag.StringVar(&opt.configPath, "config", config.DefaultPath, "Path to the TOML settings file")
	flag.StringVar(&opt.model, "model", "", "OBJ model to draw instead of the built-in triangle")
	flag.StringVar(&opt.shader, "shader", "", "WGSL shader with VSMain and PSMain entry points")
	flag.BoolVar(&opt.warp, "warp", false, "Render on a software adapter")
	flag.BoolVar(&opt.hidden, "hidden", false, "Create the window without showing it")
	flag.BoolVar(&opt.debug, "debug", false, "Enable the GPU debug layer")
	flag.IntVar(&opt.frames, "frames", 1, "Frames in flight, 1 or 2")
	flag.StringVar(&opt.logLevel, "log", "info", "Log level: debug, info, warn or error")
	flag.Parse()

	opt.set = map[string]bool{}
	flag.Visit(func(f *flag.Flag) {
		opt.set[f.Name] = true
	})
	return opt
}

// apply overrides cfg with the flags given on the command line.
func (opt CLIOpts) apply(cfg *config.Config) {
	if opt.set["model"] {
		cfg.Geometry.ModelPath = opt.model
	}
	if opt.set["shader"] {
		cfg.Shader.Path = opt.shader
	}
	if opt.set["warp"] {
		cfg.Device.UseWarp = opt.warp
	}
	if opt.set["hidden"] {
		cfg.Window.Hidden = opt.hidden
	}
	if opt.set["debug"] {
		cfg.Device.Debug = opt.debug
	}
	if opt.set["frames"] {
		cfg.Device.FramesInFlight = opt.frames
	}
	if opt.set["log"] {
		cfg.LogLevel = opt.logLevel
	}
}
