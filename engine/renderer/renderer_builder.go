package renderer

import (
	"log/slog"

	"github.com/Carmen-Shannon/oxy-anim/common"
)

// RendererBuilderOption is a functional option applied to a renderer during construction via NewRenderer.
type RendererBuilderOption func(*renderer)

// WithPresentMode sets the surface present mode which controls how frames are delivered to the display.
//
// Parameters:
//   - mode: the PresentMode to use (VSync or Uncapped)
//
// Returns:
//   - RendererBuilderOption: a function that applies the present mode option to a renderer
func WithPresentMode(mode PresentMode) RendererBuilderOption {
	return func(r *renderer) {
		r.pendingPresentMode = &mode
	}
}

// WithMSAA sets the MSAA sample count for the main render pass. Sprites are drawn without MSAA by default.
//
// Parameters:
//   - count: the MSAASampleCount to use
//
// Returns:
//   - RendererBuilderOption: a function that applies the MSAA option to a renderer
func WithMSAA(count MSAASampleCount) RendererBuilderOption {
	return func(r *renderer) {
		r.pendingMSAA = &count
	}
}

// WithForceSoftwareRenderer requests the fallback (software) adapter instead of a hardware GPU.
//
// Parameters:
//   - force: true to request the fallback adapter
//
// Returns:
//   - RendererBuilderOption: a function that applies the option to a renderer
func WithForceSoftwareRenderer(force bool) RendererBuilderOption {
	return func(r *renderer) {
		r.forceFallbackAdapter = force
	}
}

// WithFilter sets how frame textures are sampled when scaled.
//
// Parameters:
//   - filter: the FilterMode to sample with
//
// Returns:
//   - RendererBuilderOption: a function that applies the filter option to a renderer
func WithFilter(filter FilterMode) RendererBuilderOption {
	return func(r *renderer) {
		r.filter = filter
	}
}

// WithClearColor sets the color the window is cleared to every frame. NoTint keeps the default dark grey.
//
// Parameters:
//   - tint: the clear color
//
// Returns:
//   - RendererBuilderOption: a function that applies the clear color option to a renderer
func WithClearColor(tint common.Tint) RendererBuilderOption {
	return func(r *renderer) {
		r.clearColor = tint
	}
}

// WithLogger sets the logger the renderer reports surface changes to.
//
// Parameters:
//   - log: the logger to use
//
// Returns:
//   - RendererBuilderOption: a function that applies the logger option to a renderer
func WithLogger(log *slog.Logger) RendererBuilderOption {
	return func(r *renderer) {
		if log != nil {
			r.log = log
		}
	}
}
