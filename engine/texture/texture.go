// Package texture defines the boundary between animation playback and the GPU resource registry.
// Animation code only ever holds Handles; creating, drawing and freeing the underlying GPU objects
// is the host's business.
package texture

import (
	"github.com/Carmen-Shannon/oxy-anim/common"
)

// Handle is an opaque reference to a GPU-resident texture owned by whoever uploaded it.
type Handle interface {
	// Name returns the unique resource name the texture was uploaded under.
	//
	// Returns:
	//   - string: the resource name
	Name() string
}

// Bridge creates and destroys GPU textures.
type Bridge interface {
	// Upload copies an RGBA pixel buffer to the GPU under a unique name.
	//
	// Parameters:
	//   - staging: the pixel buffer and its dimensions
	//   - name: the unique resource name
	//
	// Returns:
	//   - Handle: the handle of the new texture
	//   - error: error if the texture could not be created
	Upload(staging common.TextureStagingData, name string) (Handle, error)

	// Free releases the GPU resources behind h. The handle must not be used afterwards.
	//
	// Parameters:
	//   - h: the handle to free
	Free(h Handle)
}

// Drawer draws uploaded textures as screen-space quads.
type Drawer interface {
	// Draw queues h to be drawn into rect, multiplied by tint.
	//
	// Parameters:
	//   - h: the texture to draw
	//   - rect: the destination rectangle in pixels, origin top-left
	//   - tint: the packed ARGB tint, common.NoTint for none
	//
	// Returns:
	//   - error: error if the draw could not be recorded
	Draw(h Handle, rect common.Rect, tint common.Tint) error
}
