package animation

import "errors"

var (
	// ErrResourceNotFound is recorded when an identity cannot be resolved to a byte stream.
	ErrResourceNotFound = errors.New("animation resource not found")

	// ErrDecodeFailure is recorded when the byte stream is not a usable animated image.
	ErrDecodeFailure = errors.New("animation decode failed")

	// ErrFrameDecodeSkipped is recorded for every frame the decoder had to skip.
	ErrFrameDecodeSkipped = errors.New("animation frame skipped")

	// ErrUploadFailure is recorded for every frame the texture bridge failed to upload.
	ErrUploadFailure = errors.New("animation frame upload failed")

	// ErrInvalidSpeed is returned by RenderWithSpeed for a speed multiplier that is not a positive finite number.
	ErrInvalidSpeed = errors.New("speed multiplier must be positive and finite")

	// ErrNoDrawer is returned by Render when the cache has no texture.Drawer to draw with.
	ErrNoDrawer = errors.New("no drawer configured")
)
