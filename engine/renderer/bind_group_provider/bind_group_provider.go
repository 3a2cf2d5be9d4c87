package bind_group_provider

import (
	"github.com/cogentcore/webgpu/wgpu"

	"github.com/Carmen-Shannon/oxy-anim/engine/texture"
)

// bindGroupProvider is the unexported implementation of BindGroupProvider.
type bindGroupProvider struct {
	// name is the unique texture name the provider was uploaded under. It doubles as the debug label of every GPU object it owns.
	name string
	// width and height are the texture dimensions in pixels.
	width, height uint32

	// The following fields are GPU allocated resources and must be released when no longer needed. They are populated by the Renderer
	// during upload, not by user-creation.

	// texture is the GPU texture holding the frame pixels.
	texture *wgpu.Texture
	// textureView is the view of texture bound at binding 0 of the sprite bind group.
	textureView *wgpu.TextureView
	// bindGroup binds textureView and the renderer's shared sampler for the sprite pipeline.
	bindGroup *wgpu.BindGroup

	released bool
}

// BindGroupProvider is the GPU side of one uploaded animation frame: a texture, its view and the bind group
// the sprite pipeline samples it through. It is the texture.Handle the Renderer hands back from Upload.
//
// Usage pattern:
//  1. Renderer.Upload creates the texture and bind group and wraps them in a provider
//  2. The animation cache stores the provider as an opaque texture.Handle
//  3. Renderer.Draw binds BindGroup() for each sprite drawn with the handle
//  4. Renderer.Free calls Release once the cache lets go of the frame
type BindGroupProvider interface {
	texture.Handle

	// Release releases the GPU resources held by this provider. Calling it more than once is a no-op.
	Release()

	// Released reports whether Release has been called.
	//
	// Returns:
	//   - bool: true once the GPU resources are gone
	Released() bool

	// Size returns the texture dimensions in pixels.
	//
	// Returns:
	//   - uint32: the texture width
	//   - uint32: the texture height
	Size() (uint32, uint32)

	// Texture returns the GPU texture, or nil if not initialized.
	//
	// Returns:
	//   - *wgpu.Texture: the texture or nil
	Texture() *wgpu.Texture

	// TextureView returns the GPU texture view, or nil if not initialized.
	//
	// Returns:
	//   - *wgpu.TextureView: the texture view or nil
	TextureView() *wgpu.TextureView

	// BindGroup returns the created bind group for shader binding.
	// Returns nil if GPU resources have not been initialized.
	//
	// Returns:
	//   - *wgpu.BindGroup: the bind group or nil
	BindGroup() *wgpu.BindGroup

	// SetTexture sets the texture after GPU initialization.
	//
	// Parameters:
	//   - tex: the created texture
	SetTexture(tex *wgpu.Texture)

	// SetTextureView sets the texture view after GPU initialization.
	//
	// Parameters:
	//   - tv: the created texture view
	SetTextureView(tv *wgpu.TextureView)

	// SetBindGroup sets the bind group after GPU initialization.
	//
	// Parameters:
	//   - bg: the created bind group
	SetBindGroup(bg *wgpu.BindGroup)
}

var _ BindGroupProvider = &bindGroupProvider{}

// NewBindGroupProvider creates a provider for a texture of the given name and size. GPU resources are attached
// through the options or the setters.
//
// Parameters:
//   - name: the unique texture name
//   - width: the texture width in pixels
//   - height: the texture height in pixels
//   - options: functional options to attach GPU resources
//
// Returns:
//   - BindGroupProvider: the new provider
func NewBindGroupProvider(name string, width, height uint32, options ...BindGroupProviderOption) BindGroupProvider {
	p := &bindGroupProvider{
		name:   name,
		width:  width,
		height: height,
	}
	for _, opt := range options {
		opt(p)
	}
	return p
}

func (p *bindGroupProvider) Name() string {
	return p.name
}

func (p *bindGroupProvider) Released() bool {
	return p.released
}

func (p *bindGroupProvider) Size() (uint32, uint32) {
	return p.width, p.height
}

func (p *bindGroupProvider) Texture() *wgpu.Texture {
	return p.texture
}

func (p *bindGroupProvider) TextureView() *wgpu.TextureView {
	return p.textureView
}

func (p *bindGroupProvider) BindGroup() *wgpu.BindGroup {
	return p.bindGroup
}

func (p *bindGroupProvider) SetTexture(tex *wgpu.Texture) {
	p.texture = tex
}

func (p *bindGroupProvider) SetTextureView(tv *wgpu.TextureView) {
	p.textureView = tv
}

func (p *bindGroupProvider) SetBindGroup(bg *wgpu.BindGroup) {
	p.bindGroup = bg
}

func (p *bindGroupProvider) Release() {
	if p.released {
		return
	}
	p.released = true

	// The bind group references the view, which references the texture.
	if p.bindGroup != nil {
		p.bindGroup.Release()
		p.bindGroup = nil
	}
	if p.textureView != nil {
		p.textureView.Release()
		p.textureView = nil
	}
	if p.texture != nil {
		p.texture.Release()
		p.texture = nil
	}
}
