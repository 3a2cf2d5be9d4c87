package renderer

import (
	"github.com/Carmen-Shannon/oxy-anim/common"
	"github.com/Carmen-Shannon/oxy-anim/engine/renderer/bind_group_provider"
)

// RendererBackendType identifies the GPU backend implementation used by the Renderer.
type RendererBackendType int

const (
	// BackendTypeWGPU selects the WebGPU-based rendering backend.
	BackendTypeWGPU RendererBackendType = iota
)

// PresentMode controls how rendered frames are presented to the display surface.
type PresentMode int

const (
	// PresentModeVSync waits for the next vertical blank before presenting, capping frame rate
	// to the monitor's refresh rate. Eliminates tearing.
	PresentModeVSync PresentMode = iota

	// PresentModeUncapped presents frames immediately without waiting for vertical blank.
	// May cause screen tearing but provides the lowest latency.
	PresentModeUncapped
)

// MSAASampleCount controls the number of samples used for multisample anti-aliasing (MSAA).
// Only specific power-of-two values are valid for GPU hardware. WebGPU guarantees support for
// 1 (off) and 4; higher values (8, 16) are adapter-dependent and may not be available.
type MSAASampleCount uint32

const (
	// MSAAOff disables multisample anti-aliasing (sample count 1). This is the default.
	MSAAOff MSAASampleCount = 1

	// MSAA4x enables 4× multisample anti-aliasing.
	MSAA4x MSAASampleCount = 4
)

// FilterMode selects how frame textures are sampled when drawn at a size other than their own.
type FilterMode int

const (
	// FilterNearest keeps hard pixel edges. This is the default.
	FilterNearest FilterMode = iota

	// FilterLinear blends neighbouring pixels for smooth scaling.
	FilterLinear
)

// RendererBackend is the top-level backend interface for the Renderer.
// It embeds the concrete backend interface for the selected GPU API.
type RendererBackend interface {
	wgpuRendererBackend
}

// spriteBackend is the GPU-API independent part of a backend the Renderer drives. Every method is called from the
// thread that created the backend.
type spriteBackend interface {
	// ConfigureSurface (re)configures the presentation surface for the given size in pixels.
	//
	// Parameters:
	//   - width: the new width of the surface in pixels
	//   - height: the new height of the surface in pixels
	//
	// Returns:
	//   - error: an error if the surface could not be configured
	ConfigureSurface(width, height int) error

	// SetPresentMode sets the present mode used by the next ConfigureSurface.
	//
	// Parameters:
	//   - mode: the PresentMode to use
	SetPresentMode(mode PresentMode)

	// SetClearColor sets the color the surface is cleared to at the start of every frame.
	//
	// Parameters:
	//   - tint: the clear color
	SetClearColor(tint common.Tint)

	// CreateSpriteTexture uploads staging as a new texture bound for the sprite pipeline.
	//
	// Parameters:
	//   - name: the unique texture name
	//   - staging: the RGBA pixels to upload
	//
	// Returns:
	//   - bind_group_provider.BindGroupProvider: the texture, its view and bind group
	//   - error: an error if any GPU object could not be created
	CreateSpriteTexture(name string, staging common.TextureStagingData) (bind_group_provider.BindGroupProvider, error)

	// BeginFrame acquires the next surface texture and opens the frame's render pass.
	//
	// Returns:
	//   - error: an error if the surface texture could not be acquired
	BeginFrame() error

	// DrawSprites uploads the frame's vertices and records one draw per run.
	//
	// Parameters:
	//   - vertices: every quad vertex of the frame
	//   - runs: the ranges of vertices to draw and the texture each one samples
	//
	// Returns:
	//   - error: an error if the vertex buffer could not be grown
	DrawSprites(vertices []spriteVertex, runs []spriteRun) error

	// EndFrame closes the render pass and submits the frame's commands.
	EndFrame()

	// Present presents the acquired surface texture.
	Present()

	// Release releases every GPU object the backend owns. Textures handed out by CreateSpriteTexture are released
	// by their owner.
	Release()
}
