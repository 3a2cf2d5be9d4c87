// Package decoder turns an encoded animated image into an ordered list of RGBA frames and their
// display delays. It holds no state between calls and knows nothing about GPUs or playback.
package decoder

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/Carmen-Shannon/oxy-anim/common"
)

// DecoderBackendType identifies the encoded image format backend to use.
type DecoderBackendType int

const (
	// BackendTypeGIF selects the GIF89a/GIF87a decoder backend.
	BackendTypeGIF DecoderBackendType = iota
)

// FramePolicy controls how frames whose size differs from frame 0 are handled.
type FramePolicy int

const (
	// FramePolicyComposite draws every frame onto a canvas the size of frame 0, honouring the
	// GIF disposal methods, so all emitted frames share frame 0's dimensions.
	FramePolicyComposite FramePolicy = iota

	// FramePolicyReject skips any frame whose own size differs from frame 0.
	FramePolicyReject

	// FramePolicyScale rescales any frame whose own size differs from frame 0 to frame 0's size.
	FramePolicyScale
)

const (
	// DefaultFrameDelay is used when a frame carries no usable timing metadata.
	DefaultFrameDelay = 100 * time.Millisecond

	// MinFrameDelay is the floor applied to every resolved frame delay.
	MinFrameDelay = 20 * time.Millisecond
)

// Frame is a single decoded still image and the minimum time it stays on screen.
type Frame struct {
	// Index is the zero-based position of the frame in the encoded stream. Indices of skipped frames are absent.
	Index int
	// Pixels is the tightly packed RGBA pixel data of the frame.
	Pixels common.TextureStagingData
	// Delay is the display duration of the frame, always a whole number of milliseconds.
	Delay time.Duration
}

// Result is the fully decoded animation.
type Result struct {
	// Frames holds the successfully decoded frames in stored order.
	Frames []Frame
	// Width and Height are the dimensions of frame 0.
	Width, Height int
	// LoopCount is the number of times the animation asks to be repeated, 0 meaning forever and -1 meaning
	// the stream did not say.
	LoopCount int
	// Total is the number of frames found in the stream, including skipped ones.
	Total int
	// Skipped holds a *FrameError for every frame that could not be decoded.
	Skipped []error
}

// decoder is the implementation of the Decoder interface.
type decoder struct {
	backend decoderBackend

	defaultDelay time.Duration
	minDelay     time.Duration
	policy       FramePolicy

	log *slog.Logger
}

// Decoder defines the public-facing interface for decoding animated images.
type Decoder interface {
	// Decode reads the complete encoded image from r and decodes every frame eagerly.
	// Individual frames that fail are skipped and reported in Result.Skipped; an error is only
	// returned when the stream cannot be read or no frame at all could be decoded.
	//
	// Parameters:
	//   - r: the reader providing the encoded image
	//
	// Returns:
	//   - *Result: the decoded frames and frame 0's dimensions
	//   - error: ErrInvalidHeader, ErrNoFrames or a read error
	Decode(r io.Reader) (*Result, error)
}

var _ Decoder = &decoder{}

// NewDecoder creates a new Decoder with the specified backend type and options applied.
//
// Parameters:
//   - backendType: the encoded format backend to use (e.g., BackendTypeGIF)
//   - options: a variadic list of DecoderBuilderOption functions to configure the Decoder
//
// Returns:
//   - Decoder: a new instance of Decoder configured with the provided backend and options
func NewDecoder(backendType DecoderBackendType, options ...DecoderBuilderOption) Decoder {
	d := &decoder{
		defaultDelay: DefaultFrameDelay,
		minDelay:     MinFrameDelay,
		policy:       FramePolicyComposite,
		log:          slog.Default(),
	}

	for _, option := range options {
		option(d)
	}

	switch backendType {
	case BackendTypeGIF:
		fallthrough
	default:
		d.backend = newGIFDecoderBackend(d.defaultDelay, d.minDelay, d.policy)
	}
	return d
}

func (d *decoder) Decode(r io.Reader) (*Result, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read encoded image: %w", err)
	}

	res, err := d.backend.Decode(data)
	if err != nil {
		return nil, err
	}
	for _, skipped := range res.Skipped {
		d.log.Debug("skipped frame", slog.Any("error", skipped))
	}
	return res, nil
}
