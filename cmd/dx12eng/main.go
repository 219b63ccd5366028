package main

import (
	"context"
	"log/slog"
	"os"
	"runtime"

	"github.com/veandco/go-sdl2/sdl"

	"github.com/jdg534/Dx12Eng/internal/app"
	"github.com/jdg534/Dx12Eng/internal/config"
	"github.com/jdg534/Dx12Eng/internal/gfxerr"
	"github.com/jdg534/Dx12Eng/internal/logging"
)

func main() {
	// SDL and the swap chain must stay on the main thread
	runtime.LockOSThread()

	opt := parseCLIOpts()

	cfg, err := config.Load(opt.configPath)
	if err == nil {
		opt.apply(&cfg)
		err = cfg.Validate()
	}
	if err != nil {
		fail(cfg.Window.ClassName, err)
	}

	level, _ := logging.ParseLevel(cfg.LogLevel)
	logging.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	engine := app.New(cfg)
	if err := engine.Init(context.Background()); err != nil {
		engine.Shutdown()
		fail(cfg.Window.ClassName, err)
	}

	code, err := engine.Run()
	engine.Shutdown()
	if err != nil {
		logging.Logger().Error("frame failed", "kind", gfxerr.KindOf(err), "error", err)
	}
	os.Exit(code)
}

// fail reports an initialization error in a blocking dialog and exits.
func fail(title string, err error) {
	msg := gfxerr.UserMessage(err)
	logging.Logger().Error("initialization failed", "kind", gfxerr.KindOf(err), "error", err)
	if boxErr := sdl.ShowSimpleMessageBox(sdl.MESSAGEBOX_ERROR, title, msg, nil); boxErr != nil {
		os.Stderr.WriteString(msg + "\n")
	}
	os.Exit(-1)
}
