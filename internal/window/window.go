// Package window provides the single fixed-size OS window the renderer
// presents into, and pumps its messages.
package window

import (
	"github.com/cockroachdb/errors"
	"github.com/veandco/go-sdl2/sdl"

	"github.com/jdg534/Dx12Eng/internal/config"
	"github.com/jdg534/Dx12Eng/internal/gfxerr"
	"github.com/jdg534/Dx12Eng/internal/logging"
)

type Window struct {
	width     int
	height    int
	title     string
	className string

	sdlStarted bool
	handle     *sdl.Window
	visible    bool
}

// Events summarises one pass over the message queue.
type Events struct {
	Quit bool
	// Visible is false while the window is minimized.
	Visible bool
}

func New(cfg config.WindowConfig) *Window {
	return &Window{
		width:     cfg.Width,
		height:    cfg.Height,
		title:     cfg.Title,
		className: cfg.ClassName,
	}
}

// Create starts the video subsystem and opens the window at the configured
// client size. The window is shown immediately when show is true.
func (w *Window) Create(show bool) error {
	if w.handle != nil {
		return gfxerr.New(gfxerr.WindowCreationFailed, "window %q already created", w.title)
	}

	if err := sdl.Init(sdl.INIT_VIDEO); err != nil {
		return errors.WithHint(
			gfxerr.Wrap(err, gfxerr.WindowCreationFailed, "init video subsystem"),
			"check that a display is available")
	}
	w.sdlStarted = true

	flags := uint32(sdl.WINDOW_VULKAN)
	if show {
		flags |= sdl.WINDOW_SHOWN
	} else {
		flags |= sdl.WINDOW_HIDDEN
	}

	handle, err := sdl.CreateWindow(w.title, sdl.WINDOWPOS_UNDEFINED, sdl.WINDOWPOS_UNDEFINED, int32(w.width), int32(w.height), flags)
	if err != nil {
		return gfxerr.Wrapf(err, gfxerr.WindowCreationFailed, "create window %q", w.title)
	}
	w.handle = handle
	w.visible = true

	logging.Logger().Info("window created", "title", w.title, "class", w.className, "width", w.width, "height", w.height)
	return nil
}

// Handle is the native window the renderer binds its surface to. It is nil
// before Create and after Shutdown.
func (w *Window) Handle() *sdl.Window {
	return w.handle
}

func (w *Window) Size() (int, int) {
	return w.width, w.height
}

func (w *Window) Title() string {
	return w.title
}

func (w *Window) ClassName() string {
	return w.className
}

// PumpEvents drains the message queue without blocking.
func (w *Window) PumpEvents() Events {
	ev := Events{Visible: w.visible}
	for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
		translate(event, &ev)
	}
	w.visible = ev.Visible
	return ev
}

func translate(event sdl.Event, ev *Events) {
	switch e := event.(type) {
	case *sdl.QuitEvent:
		ev.Quit = true
	case *sdl.WindowEvent:
		switch e.Event {
		case sdl.WINDOWEVENT_CLOSE:
			ev.Quit = true
		case sdl.WINDOWEVENT_MINIMIZED, sdl.WINDOWEVENT_HIDDEN:
			ev.Visible = false
		case sdl.WINDOWEVENT_RESTORED, sdl.WINDOWEVENT_SHOWN:
			ev.Visible = true
		}
	}
}

// Shutdown destroys the window. It is safe to call more than once and after
// a failed Create.
func (w *Window) Shutdown() {
	if w.handle != nil {
		if err := w.handle.Destroy(); err != nil {
			logging.Logger().Warn("destroy window", "error", err)
		}
		w.handle = nil
	}
	if w.sdlStarted {
		sdl.Quit()
		w.sdlStarted = false
	}
}
