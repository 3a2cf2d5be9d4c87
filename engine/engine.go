package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-anim/engine/animation"
	"github.com/Carmen-Shannon/oxy-anim/engine/profiler"
	"github.com/Carmen-Shannon/oxy-anim/engine/renderer"
	"github.com/Carmen-Shannon/oxy-anim/engine/window"
)

// Player is the part of an animation cache the engine drives every frame.
type Player interface {
	Sync() int
	Release(id string)
	PreloadAsync(ids ...string)
	Stats() animation.Stats
}

// Changes is a source of changed animation identities, such as a loader.Watcher.
type Changes interface {
	Changes() <-chan string
}

// engine implements the Engine interface.
// Runs the whole frame on the window thread: events, hot reload, async installs, drawing and presenting.
type engine struct {
	quitChannel chan struct{}
	quitOnce    sync.Once // Ensures quitChannel is only closed once

	window   window.Window
	renderer renderer.Renderer
	player   Player
	changes  <-chan string

	profiler         *profiler.Profiler
	profilingEnabled bool

	renderCallback   func(deltaTime float32)
	reloadCallback   func(id string)
	renderFrameLimit time.Duration // minimum frame duration; 0 = uncapped

	lastRender time.Time
	clock      func() time.Time
	log        *slog.Logger
}

// Engine is the main entry point for the viewer.
// It owns the frame lifecycle and calls back into the application to draw between BeginFrame and EndFrame.
type Engine interface {
	// Window returns the underlying window.
	//
	// Returns:
	//   - window.Window: the window instance
	Window() window.Window

	// Renderer returns the renderer frames are drawn with.
	//
	// Returns:
	//   - renderer.Renderer: the renderer instance
	Renderer() renderer.Renderer

	// EnableProfiler enables performance profiling output to the log.
	EnableProfiler()

	// DisableProfiler disables performance profiling output.
	DisableProfiler()

	// SetRenderCallback registers the function called each frame between BeginFrame and EndFrame.
	// Use this to render animations.
	//
	// Parameters:
	//   - callback: function to call each render frame, receiving the delta time in seconds
	SetRenderCallback(callback func(deltaTime float32))

	// SetReloadCallback registers the function called after a changed animation was released and queued for
	// reloading.
	//
	// Parameters:
	//   - callback: function receiving the identity of the changed animation
	SetReloadCallback(callback func(id string))

	// SetRenderFrameLimit sets an optional render frame rate cap in frames per second.
	// Pass 0 to uncap the render loop (default).
	//
	// Parameters:
	//   - fps: maximum render frames per second (0 = uncapped)
	SetRenderFrameLimit(fps float64)

	// Run runs the frame loop on the calling goroutine until the window closes or Quit is called.
	Run()

	// Quit stops the frame loop and closes the window.
	// Safe to call multiple times; subsequent calls are no-ops.
	Quit()
}

var _ Engine = &engine{}

// NewEngine creates a new Engine from the provided options. A window and a renderer are required.
//
// Parameters:
//   - options: functional options for engine configuration
//
// Returns:
//   - Engine: the newly created engine
//   - error: an error if the window or renderer is missing
func NewEngine(options ...EngineBuilderOption) (Engine, error) {
	e := &engine{
		quitChannel: make(chan struct{}),
		clock:       time.Now,
		log:         slog.Default(),
	}

	for _, opt := range options {
		opt(e)
	}

	if e.window == nil {
		return nil, errors.New("engine requires a window")
	}
	if e.renderer == nil {
		return nil, errors.New("engine requires a renderer")
	}
	e.log = e.log.With(slog.String("component", "engine"))

	if e.profiler == nil {
		e.profiler = profiler.NewProfiler(
			profiler.WithLogger(e.log, slog.LevelInfo),
			profiler.WithClock(e.clock),
			profiler.WithStats(e.stats),
		)
	}

	e.window.SetResizeCallback(func(width, height int) {
		if err := e.renderer.Resize(width, height); err != nil {
			e.log.Error("failed to resize", slog.Any("error", err))
		}
	})

	return e, nil
}

func (e *engine) Window() window.Window {
	return e.window
}

func (e *engine) Renderer() renderer.Renderer {
	return e.renderer
}

func (e *engine) Run() {
	e.lastRender = e.clock()
	e.window.SetUpdateCallback(e.frame)
	e.window.ProcessMessages()
	e.signalQuit()
}

// Quit signals the frame loop to stop.
// Safe to call multiple times; subsequent calls are no-ops due to sync.Once.
func (e *engine) Quit() {
	e.signalQuit()
}

// signalQuit closes the quit channel to signal the frame loop to exit.
func (e *engine) signalQuit() {
	e.quitOnce.Do(func() {
		close(e.quitChannel)
	})
}

// frame runs one iteration of the frame loop. It is the window's update callback.
// Panics are recovered, logged and stop the loop.
func (e *engine) frame() {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error("frame loop recovered from panic", slog.Any("panic", r))
			e.signalQuit()
			e.closeWindow()
		}
	}()

	select {
	case <-e.quitChannel:
		e.closeWindow()
		return
	default:
	}

	now := e.clock()
	dt := float32(now.Sub(e.lastRender).Seconds())
	e.lastRender = now

	e.reload()
	if e.player != nil {
		if n := e.player.Sync(); n > 0 {
			e.log.Debug("installed animations", slog.Int("count", n))
		}
	}

	if err := e.draw(dt); err != nil {
		e.log.Warn("skipped frame", slog.Any("error", err))
	}

	if e.profilingEnabled && e.profiler != nil {
		e.profiler.Tick()
	}

	// Frame rate limiting
	if e.renderFrameLimit > 0 {
		if remaining := e.renderFrameLimit - time.Since(now); remaining > 0 {
			time.Sleep(remaining)
		}
	}
}

// draw runs the render callback inside one renderer frame.
func (e *engine) draw(dt float32) error {
	err := e.renderer.BeginFrame()
	if errors.Is(err, renderer.ErrMinimized) {
		// Nothing to draw into; avoid spinning.
		time.Sleep(10 * time.Millisecond)
		return nil
	}
	if err != nil {
		return err
	}

	if e.renderCallback != nil {
		e.renderCallback(dt)
	}
	if err := e.renderer.EndFrame(); err != nil {
		return fmt.Errorf("failed to end frame: %w", err)
	}
	e.renderer.Present()
	return nil
}

// reload drains pending change notifications, releasing every changed animation and queueing it again.
func (e *engine) reload() {
	if e.changes == nil {
		return
	}
	for {
		select {
		case id, ok := <-e.changes:
			if !ok {
				e.changes = nil
				return
			}
			if e.player != nil {
				e.player.Release(id)
				e.player.PreloadAsync(id)
			}
			e.log.Info("reloading animation", slog.String("id", id))
			if e.reloadCallback != nil {
				e.reloadCallback(id)
			}
		default:
			return
		}
	}
}

// stats reports cache occupancy to the profiler.
func (e *engine) stats() []slog.Attr {
	attrs := []slog.Attr{slog.Int("textures", e.renderer.TextureCount())}
	if e.player == nil {
		return attrs
	}
	s := e.player.Stats()
	return append(attrs,
		slog.Int("animations", s.Animations),
		slog.Int("loaded", s.Loaded),
		slog.Int("pending", s.Pending),
		slog.Int("failed", s.Failed),
	)
}

func (e *engine) closeWindow() {
	if !e.window.IsRunning() {
		return
	}
	if err := e.window.Close(); err != nil {
		e.log.Error("failed to close window", slog.Any("error", err))
	}
}

// EnableProfiler enables performance profiling output to the log.
func (e *engine) EnableProfiler() {
	e.profilingEnabled = true
}

// DisableProfiler disables performance profiling output.
func (e *engine) DisableProfiler() {
	e.profilingEnabled = false
}

// SetRenderCallback registers the function called each render frame.
func (e *engine) SetRenderCallback(callback func(deltaTime float32)) {
	e.renderCallback = callback
}

// SetReloadCallback registers the function called for every hot-reloaded animation.
func (e *engine) SetReloadCallback(callback func(id string)) {
	e.reloadCallback = callback
}

// SetRenderFrameLimit sets an optional render frame rate cap.
// Pass 0 to uncap the render loop.
func (e *engine) SetRenderFrameLimit(fps float64) {
	e.renderFrameLimit = frameDuration(fps)
}

// frameDuration converts a frame rate cap into a minimum frame duration, 0 for uncapped.
func frameDuration(fps float64) time.Duration {
	if fps <= 0 {
		return 0
	}
	return time.Duration(float64(time.Second) / fps)
}
