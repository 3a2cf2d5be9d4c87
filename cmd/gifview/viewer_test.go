package main

import (
	"bytes"
	"image"
	"image/color"
	"image/gif"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/Carmen-Shannon/oxy-anim/common"
	"github.com/Carmen-Shannon/oxy-anim/engine/animation"
	"github.com/Carmen-Shannon/oxy-anim/engine/loader"
	"github.com/Carmen-Shannon/oxy-anim/engine/texture"
)

type handle string

func (h handle) Name() string { return string(h) }

// screen is a texture bridge and drawer that records draws.
type screen struct {
	rects []common.Rect
}

func (s *screen) Upload(staging common.TextureStagingData, name string) (texture.Handle, error) {
	return handle(name), staging.Validate()
}

func (s *screen) Free(texture.Handle) {}

func (s *screen) Draw(_ texture.Handle, rect common.Rect, _ common.Tint) error {
	s.rects = append(s.rects, rect)
	return nil
}

func encodeGIF(t *testing.T, width, height int) []byte {
	t.Helper()

	palette := color.Palette{color.Black, color.White}
	img := image.NewPaletted(image.Rect(0, 0, width, height), palette)
	var buf bytes.Buffer
	if err := gif.EncodeAll(&buf, &gif.GIF{Image: []*image.Paletted{img}, Delay: []int{10}}); err != nil {
		t.Fatalf("failed to encode fixture: %v", err)
	}
	return buf.Bytes()
}

func newTestViewer(t *testing.T, assets map[string][]byte) (*viewer, *screen) {
	t.Helper()

	options := []loader.LoaderBuilderOption{}
	for name, data := range assets {
		options = append(options, loader.WithAsset(name, data))
	}
	ldr := loader.NewLoader(loader.BackendTypeMemory, options...)
	s := &screen{}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	cache := animation.NewCache[string](ldr, s, animation.WithLogger[string](log))
	return newViewer(cache, 100, 1, common.NoTint, "gifview", log), s
}

func waitLoaded(t *testing.T, v *viewer) {
	t.Helper()

	deadline := time.Now().Add(5 * time.Second)
	for v.cache.Stats().Pending > 0 {
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for asynchronous loads")
		}
		v.cache.Sync()
		time.Sleep(time.Millisecond)
	}
}

func TestFit(t *testing.T) {
	cell := common.Rect{X: 10, Y: 20, Width: 100, Height: 100}
	tests := []struct {
		name          string
		width, height int
		want          common.Rect
	}{
		{name: "square", width: 10, height: 10, want: cell},
		{name: "wide", width: 4, height: 2, want: common.Rect{X: 10, Y: 45, Width: 100, Height: 50}},
		{name: "tall", width: 50, height: 200, want: common.Rect{X: 47, Y: 20, Width: 25, Height: 100}},
		{name: "unknown", width: 0, height: 0, want: cell},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if diff := cmp.Diff(test.want, fit(cell, test.width, test.height)); diff != "" {
				t.Errorf("unexpected rect (-want +got):\n%s", diff)
			}
		})
	}
}

func TestCell(t *testing.T) {
	v, _ := newTestViewer(t, nil)

	// Three 100px tiles with 8px gaps fit in 340px.
	tests := map[int]common.Rect{
		0: {X: 8, Y: 8, Width: 100, Height: 100},
		2: {X: 224, Y: 8, Width: 100, Height: 100},
		3: {X: 8, Y: 116, Width: 100, Height: 100},
	}
	for i, want := range tests {
		if diff := cmp.Diff(want, v.cell(i, 340)); diff != "" {
			t.Errorf("cell %d (-want +got):\n%s", i, diff)
		}
	}
	if got := v.cell(1, 50); got.X != 8 || got.Y != 116 {
		t.Errorf("narrow window should keep one column, got %+v", got)
	}
}

func TestViewerRender(t *testing.T) {
	v, s := newTestViewer(t, map[string][]byte{"a.gif": encodeGIF(t, 4, 2)})

	if n := v.add("a.gif", "a.gif"); n != 1 {
		t.Fatalf("added %d animations, want 1", n)
	}
	if n := v.add("a.gif"); n != 0 {
		t.Errorf("re-added a known animation")
	}
	waitLoaded(t, v)

	v.render(340)
	want := []common.Rect{{X: 8, Y: 33, Width: 100, Height: 50}}
	if diff := cmp.Diff(want, s.rects); diff != "" {
		t.Errorf("unexpected draws (-want +got):\n%s", diff)
	}
	if got, want := v.caption(), "gifview - 1/1 loaded - 1.00x"; got != want {
		t.Errorf("caption = %q, want %q", got, want)
	}

	v.reload()
	if v.cache.IsLoaded("a.gif") {
		t.Error("expected reload to release the animation")
	}
	waitLoaded(t, v)
	if !v.cache.IsLoaded("a.gif") {
		t.Error("expected the animation to load again")
	}
}

func TestSpeed(t *testing.T) {
	v, _ := newTestViewer(t, nil)

	v.faster()
	if v.speed != speedStep {
		t.Errorf("speed = %v, want %v", v.speed, speedStep)
	}
	for range 100 {
		v.faster()
	}
	if v.speed != maxSpeed {
		t.Errorf("speed = %v, want the maximum %v", v.speed, maxSpeed)
	}
	for range 100 {
		v.slower()
	}
	if v.speed != minSpeed {
		t.Errorf("speed = %v, want the minimum %v", v.speed, minSpeed)
	}
	v.resetSpeed()
	if v.speed != 1 {
		t.Errorf("speed = %v after reset", v.speed)
	}
}

func TestFastForward(t *testing.T) {
	v, _ := newTestViewer(t, nil)

	v.fastForward(true)
	if got := v.playbackSpeed(); got != boostFactor {
		t.Errorf("boosted speed = %v, want %v", got, boostFactor)
	}
	if got, want := v.caption(), "gifview - 0/0 loaded - 4.00x"; got != want {
		t.Errorf("caption = %q, want %q", got, want)
	}
	for range 100 {
		v.faster()
	}
	if got := v.playbackSpeed(); got != maxSpeed {
		t.Errorf("boosted speed = %v, want the maximum %v", got, maxSpeed)
	}

	v.resetSpeed()
	v.fastForward(false)
	if got := v.playbackSpeed(); got != 1 {
		t.Errorf("speed after release = %v, want 1", got)
	}
}

func TestDrop(t *testing.T) {
	v, _ := newTestViewer(t, nil)
	path := filepath.Join(t.TempDir(), "dropped.GIF")

	if n := v.drop([]string{"notes.txt", path}); n != 1 {
		t.Fatalf("dropped %d animations, want 1", n)
	}
	if diff := cmp.Diff([]string{path}, v.ids); diff != "" {
		t.Errorf("unexpected ids (-want +got):\n%s", diff)
	}
}
