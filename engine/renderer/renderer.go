package renderer

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Carmen-Shannon/oxy-anim/common"
	"github.com/Carmen-Shannon/oxy-anim/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-anim/engine/texture"
	"github.com/Carmen-Shannon/oxy-anim/engine/window"
)

var (
	// ErrNoFrame is returned by Draw and EndFrame outside a BeginFrame/EndFrame pair.
	ErrNoFrame = errors.New("no frame in progress")
	// ErrFrameInProgress is returned by BeginFrame while a frame is already open.
	ErrFrameInProgress = errors.New("frame already in progress")
	// ErrMinimized is returned by BeginFrame while the surface has zero size. The frame should be skipped.
	ErrMinimized = errors.New("surface has zero size")
	// ErrUnknownTexture is returned by Draw for a handle this renderer did not upload, or already freed.
	ErrUnknownTexture = errors.New("unknown texture")
	// ErrDuplicateTexture is returned by Upload for a name that is already in use.
	ErrDuplicateTexture = errors.New("duplicate texture name")
)

// defaultClearColor is an opaque dark grey.
var defaultClearColor = common.NewTint(0x1A, 0x1A, 0x1A, 0xFF)

// renderer is the implementation of the Renderer interface.
type renderer struct {
	mu *sync.Mutex

	backendType RendererBackendType
	backend     spriteBackend

	width, height int
	textures      map[string]bind_group_provider.BindGroupProvider
	batch         spriteBatch
	inFrame       bool
	log           *slog.Logger

	// Pre-creation config collected from builder options
	forceFallbackAdapter bool
	pendingPresentMode   *PresentMode
	pendingMSAA          *MSAASampleCount
	filter               FilterMode
	clearColor           common.Tint
}

// Renderer is the GPU host of the animation cache: it uploads decoded frames as textures, hands them out as
// texture.Handle values and draws them as tinted quads into the window.
//
// Draw calls made between BeginFrame and EndFrame are batched; EndFrame uploads every quad in one buffer write and
// records one draw call per run of consecutive quads sharing a texture. Every method must be called from the thread
// that created the Renderer.
type Renderer interface {
	texture.Bridge
	texture.Drawer

	// Resize reconfigures the surface for a new window size. A zero width or height is recorded and the
	// surface is left alone until the window is restored.
	//
	// Parameters:
	//   - width: the new framebuffer width in pixels
	//   - height: the new framebuffer height in pixels
	//
	// Returns:
	//   - error: an error if the surface could not be reconfigured
	Resize(width, height int) error

	// SetPresentMode changes the present mode and reconfigures the surface.
	//
	// Parameters:
	//   - mode: the PresentMode to use
	//
	// Returns:
	//   - error: an error if the surface could not be reconfigured
	SetPresentMode(mode PresentMode) error

	// Viewport returns the current surface size in pixels.
	//
	// Returns:
	//   - int: the surface width
	//   - int: the surface height
	Viewport() (int, int)

	// BeginFrame acquires the next surface texture and opens a render pass cleared to the clear color.
	//
	// Returns:
	//   - error: ErrMinimized while the window has no area, ErrFrameInProgress if a frame is open, or a
	//     surface error
	BeginFrame() error

	// EndFrame draws every quad batched since BeginFrame and submits the frame.
	//
	// Returns:
	//   - error: ErrNoFrame without an open frame, or an error if the vertex buffer could not be grown
	EndFrame() error

	// Present presents the submitted frame.
	Present()

	// TextureCount returns the number of live textures.
	//
	// Returns:
	//   - int: the number of textures uploaded and not yet freed
	TextureCount() int

	// Release frees every live texture and the GPU device.
	Release()
}

var _ Renderer = &renderer{}

// NewRenderer creates a Renderer presenting into the given window.
//
// Parameters:
//   - backendType: the GPU backend to use
//   - window: the window to present into
//   - options: functional options configuring the renderer
//
// Returns:
//   - Renderer: the renderer, with its surface configured for the window size
//   - error: an error if no GPU device could be created or the surface could not be configured
func NewRenderer(backendType RendererBackendType, window window.Window, options ...RendererBuilderOption) (Renderer, error) {
	r := newRenderer(backendType, options...)

	switch backendType {
	case BackendTypeWGPU:
		fallthrough
	default:
		msaa := MSAAOff
		if r.pendingMSAA != nil {
			msaa = *r.pendingMSAA
		}
		backend, err := newWGPURendererBackend(window.SurfaceDescriptor(), r.forceFallbackAdapter, msaa, r.filter)
		if err != nil {
			return nil, fmt.Errorf("failed to create renderer backend: %w", err)
		}
		r.backend = backend
	}

	if err := r.init(window.Width(), window.Height()); err != nil {
		r.backend.Release()
		return nil, err
	}
	return r, nil
}

// newRenderer applies the options to a renderer without a backend.
func newRenderer(backendType RendererBackendType, options ...RendererBuilderOption) *renderer {
	r := &renderer{
		mu:          &sync.Mutex{},
		backendType: backendType,
		textures:    make(map[string]bind_group_provider.BindGroupProvider),
		clearColor:  defaultClearColor,
		log:         slog.Default(),
	}
	// Apply options first so config flags (e.g. forceFallbackAdapter) are
	// available before the backend requests a GPU adapter.
	for _, opt := range options {
		opt(r)
	}
	r.log = r.log.With(slog.String("component", "renderer"))
	return r
}

// init pushes the collected configuration into the backend and configures the surface.
func (r *renderer) init(width, height int) error {
	if r.pendingPresentMode != nil {
		r.backend.SetPresentMode(*r.pendingPresentMode)
	}
	r.backend.SetClearColor(r.clearColor)
	return r.Resize(width, height)
}

func (r *renderer) Resize(width, height int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.width, r.height = width, height
	if width <= 0 || height <= 0 {
		return nil
	}
	if err := r.backend.ConfigureSurface(width, height); err != nil {
		return fmt.Errorf("failed to configure surface %dx%d: %w", width, height, err)
	}
	r.log.Debug("configured surface", slog.Int("width", width), slog.Int("height", height))
	return nil
}

func (r *renderer) SetPresentMode(mode PresentMode) error {
	r.backend.SetPresentMode(mode)
	w, h := r.Viewport()
	return r.Resize(w, h)
}

func (r *renderer) Viewport() (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.width, r.height
}

func (r *renderer) Upload(staging common.TextureStagingData, name string) (texture.Handle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if name == "" {
		return nil, errors.New("texture name is empty")
	}
	if _, ok := r.textures[name]; ok {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateTexture, name)
	}
	if err := staging.Validate(); err != nil {
		return nil, fmt.Errorf("invalid texture %s: %w", name, err)
	}

	provider, err := r.backend.CreateSpriteTexture(name, staging)
	if err != nil {
		return nil, err
	}
	r.textures[name] = provider
	return provider, nil
}

func (r *renderer) Free(h texture.Handle) {
	if h == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	provider, ok := r.textures[h.Name()]
	if !ok || texture.Handle(provider) != h {
		return
	}
	delete(r.textures, h.Name())
	provider.Release()
}

func (r *renderer) Draw(h texture.Handle, rect common.Rect, tint common.Tint) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.inFrame {
		return ErrNoFrame
	}
	if h == nil {
		return ErrUnknownTexture
	}
	provider, ok := r.textures[h.Name()]
	if !ok || texture.Handle(provider) != h {
		return fmt.Errorf("%w: %s", ErrUnknownTexture, h.Name())
	}
	if !visible(rect, r.width, r.height) {
		return nil
	}

	r.batch.add(provider, rect, tint, r.width, r.height)
	return nil
}

func (r *renderer) BeginFrame() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.inFrame {
		return ErrFrameInProgress
	}
	if r.width <= 0 || r.height <= 0 {
		return ErrMinimized
	}
	if err := r.backend.BeginFrame(); err != nil {
		return fmt.Errorf("failed to begin frame: %w", err)
	}
	r.inFrame = true
	return nil
}

func (r *renderer) EndFrame() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.inFrame {
		return ErrNoFrame
	}
	r.inFrame = false
	defer r.batch.reset()

	// Textures freed after being drawn this frame are skipped.
	err := r.backend.DrawSprites(r.batch.vertices, r.batch.live())
	r.backend.EndFrame()
	if err != nil {
		return fmt.Errorf("failed to draw %d sprites: %w", r.batch.quads(), err)
	}
	return nil
}

func (r *renderer) Present() {
	r.backend.Present()
}

func (r *renderer) TextureCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.textures)
}

func (r *renderer) Release() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for name, provider := range r.textures {
		provider.Release()
		delete(r.textures, name)
	}
	r.backend.Release()
}
