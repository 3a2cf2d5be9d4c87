package bind_group_provider

import "github.com/cogentcore/webgpu/wgpu"

// BindGroupProviderOption is a functional option used to configure a BindGroupProvider during construction.
type BindGroupProviderOption func(*bindGroupProvider)

// WithTexture sets the GPU texture for this provider.
//
// Parameters:
//   - tex: the texture holding the frame pixels
//
// Returns:
//   - BindGroupProviderOption: a function that sets the texture for this provider
func WithTexture(tex *wgpu.Texture) BindGroupProviderOption {
	return func(p *bindGroupProvider) {
		p.texture = tex
	}
}

// WithTextureView sets the texture view for this provider.
//
// Parameters:
//   - tv: the view of the provider's texture
//
// Returns:
//   - BindGroupProviderOption: a function that sets the texture view for this provider
func WithTextureView(tv *wgpu.TextureView) BindGroupProviderOption {
	return func(p *bindGroupProvider) {
		p.textureView = tv
	}
}

// WithBindGroup sets the bind group for this provider.
//
// Parameters:
//   - bg: the bind group to set for this provider
//
// Returns:
//   - BindGroupProviderOption: a function that sets the bind group for this provider
func WithBindGroup(bg *wgpu.BindGroup) BindGroupProviderOption {
	return func(p *bindGroupProvider) {
		p.bindGroup = bg
	}
}
