package renderer

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/Carmen-Shannon/oxy-anim/common"
	"github.com/Carmen-Shannon/oxy-anim/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-anim/engine/texture"
)

// fakeBackend records what the renderer asks of it without touching a GPU.
type fakeBackend struct {
	configured  [][2]int
	presentMode PresentMode
	clear       common.Tint
	created     []string
	createErr   error
	frames      int
	drawn       [][]spriteRun
	vertices    int
	presented   int
	released    bool
}

func (b *fakeBackend) ConfigureSurface(width, height int) error {
	b.configured = append(b.configured, [2]int{width, height})
	return nil
}

func (b *fakeBackend) SetPresentMode(mode PresentMode) { b.presentMode = mode }

func (b *fakeBackend) SetClearColor(tint common.Tint) { b.clear = tint }

func (b *fakeBackend) CreateSpriteTexture(name string, staging common.TextureStagingData) (bind_group_provider.BindGroupProvider, error) {
	if b.createErr != nil {
		return nil, b.createErr
	}
	b.created = append(b.created, name)
	return bind_group_provider.NewBindGroupProvider(name, staging.Width, staging.Height), nil
}

func (b *fakeBackend) BeginFrame() error {
	b.frames++
	return nil
}

func (b *fakeBackend) DrawSprites(vertices []spriteVertex, runs []spriteRun) error {
	b.vertices += len(vertices)
	b.drawn = append(b.drawn, append([]spriteRun(nil), runs...))
	return nil
}

func (b *fakeBackend) EndFrame() {}

func (b *fakeBackend) Present() { b.presented++ }

func (b *fakeBackend) Release() { b.released = true }

func newTestRenderer(t *testing.T, options ...RendererBuilderOption) (*renderer, *fakeBackend) {
	t.Helper()

	backend := &fakeBackend{}
	r := newRenderer(BackendTypeWGPU, options...)
	r.backend = backend
	if err := r.init(200, 100); err != nil {
		t.Fatalf("failed to init renderer: %v", err)
	}
	return r, backend
}

func staging(w, h uint32) common.TextureStagingData {
	return common.TextureStagingData{Pixels: make([]byte, w*h*4), Width: w, Height: h}
}

func TestNewRendererConfiguresBackend(t *testing.T) {
	r, backend := newTestRenderer(t, WithPresentMode(PresentModeUncapped), WithClearColor(common.NewTint(1, 2, 3, 255)))

	if diff := cmp.Diff([][2]int{{200, 100}}, backend.configured); diff != "" {
		t.Errorf("unexpected surface configuration (-want +got):\n%s", diff)
	}
	if backend.presentMode != PresentModeUncapped {
		t.Errorf("unexpected present mode %v", backend.presentMode)
	}
	if backend.clear != common.NewTint(1, 2, 3, 255) {
		t.Errorf("unexpected clear color %#x", uint32(backend.clear))
	}
	if w, h := r.Viewport(); w != 200 || h != 100 {
		t.Errorf("unexpected viewport %dx%d", w, h)
	}
}

func TestUpload(t *testing.T) {
	r, backend := newTestRenderer(t)

	h, err := r.Upload(staging(2, 2), "gif_frame_0")
	if err != nil {
		t.Fatalf("unexpected upload error: %v", err)
	}
	if h.Name() != "gif_frame_0" {
		t.Errorf("unexpected handle name %q", h.Name())
	}

	tests := []struct {
		name    string
		staging common.TextureStagingData
		texture string
		want    error
	}{
		{name: "duplicate", staging: staging(2, 2), texture: "gif_frame_0", want: ErrDuplicateTexture},
		{name: "empty_name", staging: staging(2, 2), texture: ""},
		{name: "short_pixels", staging: common.TextureStagingData{Pixels: make([]byte, 3), Width: 2, Height: 2}, texture: "gif_frame_1"},
		{name: "zero_size", staging: common.TextureStagingData{}, texture: "gif_frame_2"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if _, err := r.Upload(test.staging, test.texture); err == nil {
				t.Fatal("expected upload to fail")
			} else if test.want != nil && !errors.Is(err, test.want) {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}

	backend.createErr = errors.New("out of memory")
	if _, err := r.Upload(staging(1, 1), "gif_frame_3"); err == nil {
		t.Error("expected backend failure to surface")
	}

	if diff := cmp.Diff([]string{"gif_frame_0"}, backend.created); diff != "" {
		t.Errorf("unexpected textures created (-want +got):\n%s", diff)
	}
	if r.TextureCount() != 1 {
		t.Errorf("unexpected texture count %d", r.TextureCount())
	}
}

func TestFree(t *testing.T) {
	r, _ := newTestRenderer(t)

	h, err := r.Upload(staging(1, 1), "gif_frame_0")
	if err != nil {
		t.Fatalf("unexpected upload error: %v", err)
	}
	r.Free(h)
	r.Free(h)
	r.Free(nil)

	if !h.(bind_group_provider.BindGroupProvider).Released() {
		t.Error("expected texture to be released")
	}
	if r.TextureCount() != 0 {
		t.Errorf("unexpected texture count %d", r.TextureCount())
	}

	// The name can be reused once freed.
	if _, err := r.Upload(staging(1, 1), "gif_frame_0"); err != nil {
		t.Errorf("unexpected error reusing a freed name: %v", err)
	}

	// A foreign handle with a live name is not freed.
	foreign := bind_group_provider.NewBindGroupProvider("gif_frame_0", 1, 1)
	r.Free(foreign)
	if r.TextureCount() != 1 {
		t.Error("foreign handle freed a live texture")
	}
}

func TestDraw(t *testing.T) {
	r, backend := newTestRenderer(t)

	a, _ := r.Upload(staging(1, 1), "a")
	b, _ := r.Upload(staging(1, 1), "b")

	if err := r.Draw(a, common.Rect{Width: 10, Height: 10}, common.NoTint); !errors.Is(err, ErrNoFrame) {
		t.Errorf("expected ErrNoFrame outside a frame, got %v", err)
	}

	if err := r.BeginFrame(); err != nil {
		t.Fatalf("unexpected begin error: %v", err)
	}
	if err := r.BeginFrame(); !errors.Is(err, ErrFrameInProgress) {
		t.Errorf("expected ErrFrameInProgress, got %v", err)
	}

	rect := common.Rect{X: 10, Y: 10, Width: 20, Height: 20}
	for _, h := range []texture.Handle{a, a, b, a} {
		if err := r.Draw(h, rect, common.NoTint); err != nil {
			t.Fatalf("unexpected draw error: %v", err)
		}
	}
	// Empty and off-screen rectangles are dropped.
	if err := r.Draw(a, common.Rect{X: 10, Y: 10}, common.NoTint); err != nil {
		t.Errorf("unexpected error for empty rect: %v", err)
	}
	if err := r.Draw(a, common.Rect{X: 500, Y: 10, Width: 10, Height: 10}, common.NoTint); err != nil {
		t.Errorf("unexpected error for off-screen rect: %v", err)
	}
	foreign := bind_group_provider.NewBindGroupProvider("a", 1, 1)
	if err := r.Draw(foreign, rect, common.NoTint); !errors.Is(err, ErrUnknownTexture) {
		t.Errorf("expected ErrUnknownTexture, got %v", err)
	}

	if err := r.EndFrame(); err != nil {
		t.Fatalf("unexpected end error: %v", err)
	}
	r.Present()

	type run struct {
		Name         string
		First, Count uint32
	}
	var got []run
	for _, rr := range backend.drawn[0] {
		got = append(got, run{Name: rr.provider.Name(), First: rr.first, Count: rr.count})
	}
	want := []run{{"a", 0, 12}, {"b", 12, 6}, {"a", 18, 6}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("unexpected runs (-want +got):\n%s", diff)
	}
	if backend.vertices != 24 || backend.presented != 1 {
		t.Errorf("unexpected frame: %d vertices, %d presents", backend.vertices, backend.presented)
	}

	if err := r.EndFrame(); !errors.Is(err, ErrNoFrame) {
		t.Errorf("expected ErrNoFrame, got %v", err)
	}
}

func TestFreedTextureSkippedAtEndFrame(t *testing.T) {
	r, backend := newTestRenderer(t)

	a, _ := r.Upload(staging(1, 1), "a")
	b, _ := r.Upload(staging(1, 1), "b")

	if err := r.BeginFrame(); err != nil {
		t.Fatalf("unexpected begin error: %v", err)
	}
	rect := common.Rect{Width: 5, Height: 5}
	_ = r.Draw(a, rect, common.NoTint)
	_ = r.Draw(b, rect, common.NoTint)
	r.Free(a)
	if err := r.EndFrame(); err != nil {
		t.Fatalf("unexpected end error: %v", err)
	}

	if len(backend.drawn[0]) != 1 || backend.drawn[0][0].provider.Name() != "b" {
		t.Errorf("expected only b to be drawn, got %d runs", len(backend.drawn[0]))
	}
}

func TestMinimized(t *testing.T) {
	r, backend := newTestRenderer(t)

	if err := r.Resize(0, 0); err != nil {
		t.Fatalf("unexpected resize error: %v", err)
	}
	if err := r.BeginFrame(); !errors.Is(err, ErrMinimized) {
		t.Errorf("expected ErrMinimized, got %v", err)
	}
	if err := r.Resize(640, 480); err != nil {
		t.Fatalf("unexpected resize error: %v", err)
	}
	if diff := cmp.Diff([][2]int{{200, 100}, {640, 480}}, backend.configured); diff != "" {
		t.Errorf("unexpected surface configuration (-want +got):\n%s", diff)
	}
	if err := r.BeginFrame(); err != nil {
		t.Errorf("unexpected begin error after restore: %v", err)
	}
}

func TestRelease(t *testing.T) {
	r, backend := newTestRenderer(t)

	a, _ := r.Upload(staging(1, 1), "a")
	r.Release()

	if !a.(bind_group_provider.BindGroupProvider).Released() || !backend.released {
		t.Error("expected textures and backend to be released")
	}
	if r.TextureCount() != 0 {
		t.Errorf("unexpected texture count %d", r.TextureCount())
	}
}
