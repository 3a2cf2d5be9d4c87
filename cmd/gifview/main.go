// Command gifview plays every GIF of a directory, and any GIF dropped onto its window, in a tiled grid.
//
// Keys: + and - change the playback speed, 0 resets it, holding Space fast-forwards, R reloads every
// animation and Esc quits. The mouse wheel also changes the speed.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/Carmen-Shannon/oxy-anim/common"
	"github.com/Carmen-Shannon/oxy-anim/config"
	"github.com/Carmen-Shannon/oxy-anim/engine"
	"github.com/Carmen-Shannon/oxy-anim/engine/animation"
	"github.com/Carmen-Shannon/oxy-anim/engine/loader"
	"github.com/Carmen-Shannon/oxy-anim/engine/renderer"
	"github.com/Carmen-Shannon/oxy-anim/engine/window"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "gifview: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "YAML or TOML configuration file")
	dir := flag.String("dir", "", "directory to load animations from")
	level := flag.String("log", "", "log level: debug, info, warn or error")
	watch := flag.Bool("watch", false, "reload animations whose file changes")
	speed := flag.Float64("speed", 0, "initial playback speed")
	software := flag.Bool("software", false, "force the software renderer")
	profile := flag.Bool("profile", false, "log frame statistics every second")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			return err
		}
	}

	// Flags given on the command line override the file.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "dir":
			cfg.Viewer.Dir = *dir
		case "log":
			cfg.Log.Level = *level
		case "watch":
			cfg.Viewer.Watch = *watch
		case "speed":
			cfg.Viewer.Speed = *speed
		case "software":
			cfg.Renderer.Software = *software
		case "profile":
			cfg.Renderer.Profile = *profile
		}
	})
	if flag.NArg() > 0 {
		cfg.Viewer.Dir = flag.Arg(0)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	log, err := newLogger(cfg.Log, os.Stderr)
	if err != nil {
		return err
	}
	slog.SetDefault(log)

	// ── Window + Renderer ───────────────────────────────────────────────
	win, err := window.NewWindow(
		window.WithTitle(cfg.Viewer.Title),
		window.WithSize(cfg.Viewer.Width, cfg.Viewer.Height),
	)
	if err != nil {
		return err
	}
	defer win.Close()

	rnd, err := renderer.NewRenderer(renderer.BackendTypeWGPU, win, rendererOptions(cfg.Renderer, log)...)
	if err != nil {
		return err
	}
	defer rnd.Release()

	// ── Animations ──────────────────────────────────────────────────────
	ldr := loader.NewLoader(loader.BackendTypeFS,
		loader.WithDir(cfg.Viewer.Dir),
		loader.WithLogger(log),
	)
	cache := animation.NewCache[string](dropResolver(ldr), rnd, cfg.CacheOptions(log)...)
	defer cache.ReleaseAll()

	tint, _ := common.ParseTint(cfg.Viewer.Tint)
	v := newViewer(cache, cfg.Viewer.Tile, cfg.Viewer.Speed, tint, cfg.Viewer.Title, log)

	names, err := ldr.List()
	if err != nil {
		return fmt.Errorf("failed to list %s: %w", cfg.Viewer.Dir, err)
	}
	v.add(names...)
	log.Info("queued animations", slog.String("dir", cfg.Viewer.Dir), slog.Int("count", len(names)))

	// ── Engine ──────────────────────────────────────────────────────────
	options := []engine.EngineBuilderOption{
		engine.WithWindow(win),
		engine.WithRenderer(rnd),
		engine.WithPlayer(cache),
		engine.WithProfiling(cfg.Renderer.Profile),
		engine.WithRenderFrameLimit(cfg.Renderer.FrameLimit),
		engine.WithLogger(log),
	}
	if cfg.Viewer.Watch {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		w, err := loader.NewWatcher(ctx, cfg.Viewer.Dir, loader.DefaultDebounce, log)
		if err != nil {
			return fmt.Errorf("failed to watch %s: %w", cfg.Viewer.Dir, err)
		}
		defer w.Close()
		options = append(options, engine.WithChanges(w))
	}

	eng, err := engine.NewEngine(options...)
	if err != nil {
		return err
	}

	eng.SetRenderCallback(func(float32) {
		v.render(win.Width())
	})
	// A file created in the watched directory joins the grid.
	eng.SetReloadCallback(func(id string) {
		if v.add(id) > 0 {
			win.SetTitle(v.caption())
		}
	})

	win.SetKeyDownCallback(func(key uint32) {
		switch key {
		case common.KeyEqual, common.KeyKPAdd:
			v.faster()
		case common.KeyMinus, common.KeyKPSubtract:
			v.slower()
		case common.KeyZero:
			v.resetSpeed()
		case common.KeySpace:
			if v.boost {
				return
			}
			v.fastForward(true)
		case common.KeyR:
			v.reload()
		case common.KeyEsc:
			eng.Quit()
			return
		}
		win.SetTitle(v.caption())
	})
	win.SetKeyUpCallback(func(key uint32) {
		if key == common.KeySpace {
			v.fastForward(false)
			win.SetTitle(v.caption())
		}
	})
	win.SetScrollCallback(func(delta float32) {
		switch {
		case delta > 0:
			v.faster()
		case delta < 0:
			v.slower()
		}
		win.SetTitle(v.caption())
	})
	win.SetDropCallback(func(paths []string) {
		if n := v.drop(paths); n > 0 {
			log.Info("queued dropped animations", slog.Int("count", n))
		}
		win.SetTitle(v.caption())
	})

	win.SetTitle(v.caption())
	eng.Run()
	return nil
}

// newLogger builds the process logger from the log section of the configuration.
func newLogger(cfg config.Log, w io.Writer) (*slog.Logger, error) {
	level, err := cfg.SlogLevel()
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}

// rendererOptions converts the renderer section of the configuration into renderer builder options.
func rendererOptions(cfg config.Renderer, log *slog.Logger) []renderer.RendererBuilderOption {
	options := []renderer.RendererBuilderOption{
		renderer.WithPresentMode(renderer.PresentModeVSync),
		renderer.WithFilter(renderer.FilterNearest),
		renderer.WithMSAA(renderer.MSAAOff),
		renderer.WithForceSoftwareRenderer(cfg.Software),
		renderer.WithLogger(log),
	}
	if strings.EqualFold(cfg.PresentMode, "uncapped") {
		options = append(options, renderer.WithPresentMode(renderer.PresentModeUncapped))
	}
	if strings.EqualFold(cfg.Filter, "linear") {
		options = append(options, renderer.WithFilter(renderer.FilterLinear))
	}
	if cfg.MSAA == int(renderer.MSAA4x) {
		options = append(options, renderer.WithMSAA(renderer.MSAA4x))
	}
	if color, err := common.ParseTint(cfg.ClearColor); err == nil && color != common.NoTint {
		options = append(options, renderer.WithClearColor(color))
	}
	return options
}

// dropResolver resolves names relative to the loader's directory through ldr and absolute paths, as
// produced by dropping files onto the window, from the file system.
func dropResolver(ldr loader.Loader) loader.Resolver[string] {
	return loader.ResolverFunc[string](func(id string) (io.ReadCloser, error) {
		if !filepath.IsAbs(id) {
			return ldr.Resolve(id)
		}
		f, err := os.Open(id)
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %q", loader.ErrNotFound, id)
		}
		if err != nil {
			return nil, err
		}
		return f, nil
	})
}
