package decoder

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidHeader is returned when the stream does not start with a recognisable header.
	ErrInvalidHeader = errors.New("invalid image header")

	// ErrNoFrames is returned when not a single frame of the stream could be decoded.
	ErrNoFrames = errors.New("no decodable frames")

	// ErrFrameSize is recorded for frames rejected by FramePolicyReject.
	ErrFrameSize = errors.New("frame size differs from frame 0")
)

// FrameError describes a single frame that was skipped during decoding.
type FrameError struct {
	// Index is the zero-based position of the frame in the stream.
	Index int
	// Err is the underlying cause.
	Err error
}

func (e *FrameError) Error() string {
	return fmt.Sprintf("frame %d: %v", e.Index, e.Err)
}

func (e *FrameError) Unwrap() error {
	return e.Err
}

// decoderBackend defines the generic interface for format-specific decoders.
// Concrete implementations (e.g., gifDecoderBackend) handle the container format details.
type decoderBackend interface {
	// Decode decodes a complete encoded image held in memory.
	//
	// Parameters:
	//   - data: the encoded image bytes
	//
	// Returns:
	//   - *Result: the decoded frames
	//   - error: error if the stream is unusable or no frame decoded
	Decode(data []byte) (*Result, error)
}
