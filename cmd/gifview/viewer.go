package main

import (
	"fmt"
	"log/slog"
	"math"
	"path/filepath"
	"strings"

	"github.com/Carmen-Shannon/oxy-anim/common"
	"github.com/Carmen-Shannon/oxy-anim/engine/animation"
)

const (
	speedStep = 1.25
	minSpeed  = 1.0 / 16
	maxSpeed  = 16.0

	// boostFactor multiplies the speed while the fast-forward key is held.
	boostFactor = 4

	// tileGap is the padding in pixels around every tile.
	tileGap = 8
)

// viewer lays out every known animation in a grid of square tiles and plays them at a shared speed.
type viewer struct {
	cache animation.Cache[string]
	ids   []string
	known map[string]bool

	tile  int
	speed float64
	boost bool
	tint  common.Tint
	title string

	log *slog.Logger
}

func newViewer(cache animation.Cache[string], tile int, speed float64, tint common.Tint, title string, log *slog.Logger) *viewer {
	return &viewer{
		cache: cache,
		known: make(map[string]bool),
		tile:  tile,
		speed: clampSpeed(speed),
		tint:  tint,
		title: title,
		log:   log,
	}
}

// add appends the identities not shown yet and queues them for decoding.
//
// Parameters:
//   - ids: the animation identities to show
//
// Returns:
//   - int: the number of identities added
func (v *viewer) add(ids ...string) int {
	var added []string
	for _, id := range ids {
		if v.known[id] {
			continue
		}
		v.known[id] = true
		v.ids = append(v.ids, id)
		added = append(added, id)
	}
	v.cache.PreloadAsync(added...)
	return len(added)
}

// drop adds the GIF files among paths dropped onto the window, by absolute path.
func (v *viewer) drop(paths []string) int {
	var ids []string
	for _, p := range paths {
		if !strings.EqualFold(filepath.Ext(p), ".gif") {
			v.log.Warn("ignored dropped file", slog.String("path", p))
			continue
		}
		abs, err := filepath.Abs(p)
		if err != nil {
			v.log.Warn("ignored dropped file", slog.String("path", p), slog.Any("error", err))
			continue
		}
		ids = append(ids, abs)
	}
	return v.add(ids...)
}

// reload releases every animation and queues all of them for decoding again.
func (v *viewer) reload() {
	v.cache.ReleaseAll()
	v.cache.PreloadAsync(v.ids...)
}

// render draws every animation into its tile for a framebuffer width pixels wide.
func (v *viewer) render(width int) {
	for i, id := range v.ids {
		w, h := v.cache.Dimensions(id)
		rect := fit(v.cell(i, width), w, h)
		if err := v.cache.RenderWithSpeed(id, rect, v.tint, v.playbackSpeed()); err != nil {
			v.log.Debug("failed to render animation", slog.String("id", id), slog.Any("error", err))
		}
	}
}

// cell returns the tile of the i-th animation. Tiles fill rows left to right.
func (v *viewer) cell(i, width int) common.Rect {
	pitch := v.tile + tileGap
	cols := max(1, (width-tileGap)/pitch)
	return common.Rect{
		X:      tileGap + (i%cols)*pitch,
		Y:      tileGap + (i/cols)*pitch,
		Width:  v.tile,
		Height: v.tile,
	}
}

// fit scales a width x height animation to the largest size inside cell that keeps its aspect ratio,
// centred in the cell. Unknown dimensions fill the cell.
func fit(cell common.Rect, width, height int) common.Rect {
	if width <= 0 || height <= 0 {
		return cell
	}
	scale := math.Min(float64(cell.Width)/float64(width), float64(cell.Height)/float64(height))
	w := max(1, int(float64(width)*scale))
	h := max(1, int(float64(height)*scale))
	return common.Rect{
		X:      cell.X + (cell.Width-w)/2,
		Y:      cell.Y + (cell.Height-h)/2,
		Width:  w,
		Height: h,
	}
}

func (v *viewer) faster() { v.speed = clampSpeed(v.speed * speedStep) }

func (v *viewer) slower() { v.speed = clampSpeed(v.speed / speedStep) }

func (v *viewer) resetSpeed() { v.speed = 1 }

// fastForward sets whether playback runs boostFactor times faster than the chosen speed.
func (v *viewer) fastForward(on bool) { v.boost = on }

// playbackSpeed is the speed animations are rendered at.
func (v *viewer) playbackSpeed() float64 {
	if v.boost {
		return clampSpeed(v.speed * boostFactor)
	}
	return v.speed
}

func clampSpeed(s float64) float64 {
	return math.Max(minSpeed, math.Min(maxSpeed, s))
}

// caption is the window title for the current state.
func (v *viewer) caption() string {
	stats := v.cache.Stats()
	return fmt.Sprintf("%s - %d/%d loaded - %.2fx", v.title, stats.Loaded, len(v.ids), v.playbackSpeed())
}
