// Package app drives the engine: it wires the window, renderer and geometry
// together at startup and runs the message loop until the window closes.
package app

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/loov/hrtime"
	"github.com/veandco/go-sdl2/sdl"
	"golang.org/x/sync/errgroup"

	"github.com/jdg534/Dx12Eng/internal/config"
	"github.com/jdg534/Dx12Eng/internal/logging"
	"github.com/jdg534/Dx12Eng/internal/mesh"
	"github.com/jdg534/Dx12Eng/internal/renderer"
	"github.com/jdg534/Dx12Eng/internal/shader"
	"github.com/jdg534/Dx12Eng/internal/window"
)

type State int

const (
	Uninitialized State = iota
	Running
	ShutDown
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Running:
		return "running"
	case ShutDown:
		return "shut down"
	}
	return "unknown"
}

type Window interface {
	Create(show bool) error
	Handle() *sdl.Window
	Size() (int, int)
	PumpEvents() window.Events
	Shutdown()
}

type Renderer interface {
	Init(surface renderer.Surface, program *shader.Program) error
	UploadGeometry(vertices []mesh.Vertex) (*renderer.Geometry, error)
	CreateInitialDrawingCommands() error
	AppendDrawingCommands(g *renderer.Geometry) error
	FinishDrawing() error
	Shutdown()
}

type App struct {
	cfg      config.Config
	window   Window
	renderer Renderer

	state    State
	geometry []*renderer.Geometry

	frameStart time.Duration
	frameEnd   time.Duration
	delta      float64
}

// New builds the application with the platform window and Vulkan renderer.
func New(cfg config.Config) *App {
	return NewWith(cfg, window.New(cfg.Window), renderer.New(cfg))
}

// NewWith builds the application on the given window and renderer.
func NewWith(cfg config.Config, w Window, r Renderer) *App {
	return &App{cfg: cfg, window: w, renderer: r}
}

func (a *App) State() State {
	return a.state
}

// Init loads the shader and mesh, opens the window, initializes the renderer
// and uploads the geometry. On failure the app stays Uninitialized with
// whatever was created so far; Shutdown releases it.
func (a *App) Init(ctx context.Context) error {
	if a.state != Uninitialized {
		return errors.Newf("init from state %s", a.state)
	}

	var (
		program  *shader.Program
		vertices []mesh.Vertex
	)
	var group errgroup.Group
	group.Go(func() error {
		var err error
		program, err = shader.Load(a.cfg.Shader.Path, a.cfg.Shader.VertexEntry, a.cfg.Shader.PixelEntry)
		return err
	})
	group.Go(func() error {
		var err error
		vertices, err = a.loadVertices()
		return err
	})
	if err := group.Wait(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := a.window.Create(!a.cfg.Window.Hidden); err != nil {
		return err
	}
	if err := a.renderer.Init(a.window, program); err != nil {
		return err
	}

	geometry, err := a.renderer.UploadGeometry(vertices)
	if err != nil {
		return err
	}
	a.geometry = append(a.geometry, geometry)

	a.state = Running
	a.frameStart = hrtime.Now()
	logging.Logger().Info("application running", "vertices", len(vertices), "shader", program.Name)
	return nil
}

func (a *App) loadVertices() ([]mesh.Vertex, error) {
	if a.cfg.Geometry.ModelPath == "" {
		return mesh.Triangle(a.cfg.AspectRatio()), nil
	}
	return mesh.LoadFile(a.cfg.Geometry.ModelPath, a.cfg.Geometry.Scale)
}

// Run pumps window messages and draws whenever the queue is empty, until the
// window is closed. It returns the process exit code.
func (a *App) Run() (int, error) {
	if a.state != Running {
		return -1, errors.Newf("run from state %s", a.state)
	}

	for {
		events := a.window.PumpEvents()
		if events.Quit {
			return 0, nil
		}
		if !events.Visible {
			// nothing to present into while minimized
			sdl.Delay(10)
			continue
		}

		a.frameEnd = hrtime.Now()
		a.delta = (a.frameEnd - a.frameStart).Seconds()
		a.frameStart = a.frameEnd

		a.Update(a.delta)
		if err := a.Draw(); err != nil {
			return 1, err
		}
	}
}

// Update advances the scene by dt seconds. The scene is static.
func (a *App) Update(dt float64) {}

// Draw records and presents one frame of every geometry.
func (a *App) Draw() error {
	if err := a.renderer.CreateInitialDrawingCommands(); err != nil {
		return err
	}
	for _, g := range a.geometry {
		if err := a.renderer.AppendDrawingCommands(g); err != nil {
			return err
		}
	}
	return a.renderer.FinishDrawing()
}

// Shutdown releases geometry, then the renderer, then the window. It is safe
// after a failed Init and when called twice.
func (a *App) Shutdown() {
	if a.state == ShutDown {
		return
	}

	for _, g := range a.geometry {
		g.Release()
	}
	a.geometry = nil
	a.renderer.Shutdown()
	a.window.Shutdown()

	a.state = ShutDown
	logging.Logger().Info("application shut down")
}
