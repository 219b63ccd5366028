package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jdg534/Dx12Eng/internal/config"
)

func TestApplyOnlySetFlags(t *testing.T) {
	cfg := config.Default()
	cfg.Geometry.ModelPath = "FromFile.obj"
	cfg.Device.FramesInFlight = 2

	opt := CLIOpts{
		model:  "ignored.obj",
		warp:   true,
		frames: 1,
		set:    map[string]bool{"warp": true},
	}
	opt.apply(&cfg)

	assert.True(t, cfg.Device.UseWarp)
	assert.Equal(t, "FromFile.obj", cfg.Geometry.ModelPath)
	assert.Equal(t, 2, cfg.Device.FramesInFlight)
}

func TestApplyOverrides(t *testing.T) {
	cfg := config.Default()
	opt := CLIOpts{
		model:    "TestCube.obj",
		shader:   "Custom.wgsl",
		hidden:   true,
		debug:    true,
		frames:   2,
		logLevel: "debug",
		set:      map[string]bool{"model": true, "shader": true, "hidden": true, "debug": true, "frames": true, "log": true},
	}
	opt.apply(&cfg)

	assert.Equal(t, "TestCube.obj", cfg.Geometry.ModelPath)
	assert.Equal(t, "Custom.wgsl", cfg.Shader.Path)
	assert.True(t, cfg.Window.Hidden)
	assert.True(t, cfg.Device.Debug)
	assert.Equal(t, 2, cfg.Device.FramesInFlight)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.NoError(t, cfg.Validate())
}
