package common

import (
	"unsafe"
)

// SliceToBytes converts any slice to a byte slice for GPU buffer uploads.
// Uses unsafe pointer operations to create a view into the original data.
// WARNING: The returned slice shares memory with the input - do not modify.
//
// Parameters:
//   - data: source slice of any type
//
// Returns:
//   - []byte: byte slice view of the input data, or nil if input is empty
func SliceToBytes[T any](data []T) []byte {
	if len(data) == 0 {
		return nil
	}
	size := int(unsafe.Sizeof(data[0])) * len(data)
	return unsafe.Slice((*byte)(unsafe.Pointer(&data[0])), size)
}

// ScreenToClip converts a rectangle in window pixels (origin top-left, y down) into the
// clip-space corners used by the sprite vertex shader (origin center, y up).
//
// Parameters:
//   - r: the destination rectangle in pixels
//   - viewportWidth: the surface width in pixels
//   - viewportHeight: the surface height in pixels
//
// Returns:
//   - left, top, right, bottom: the clip-space edges of r
func ScreenToClip(r Rect, viewportWidth, viewportHeight int) (left, top, right, bottom float32) {
	if viewportWidth <= 0 || viewportHeight <= 0 {
		return 0, 0, 0, 0
	}
	w := float32(viewportWidth)
	h := float32(viewportHeight)
	left = float32(r.X)/w*2 - 1
	right = float32(r.X+r.Width)/w*2 - 1
	top = 1 - float32(r.Y)/h*2
	bottom = 1 - float32(r.Y+r.Height)/h*2
	return left, top, right, bottom
}
