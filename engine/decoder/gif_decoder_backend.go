package decoder

import (
	"bytes"
	"fmt"
	"image"
	"image/gif"
	"time"

	"golang.org/x/image/draw"

	"github.com/Carmen-Shannon/oxy-anim/common"
)

// gifDecoderBackend is the GIF implementation of decoderBackend.
// Frames are decoded one at a time from standalone streams built by the block scanner, so a corrupt
// frame only costs that frame.
type gifDecoderBackend struct {
	defaultDelay time.Duration
	minDelay     time.Duration
	policy       FramePolicy
}

var _ decoderBackend = &gifDecoderBackend{}

// newGIFDecoderBackend creates a GIF decoder backend.
//
// Parameters:
//   - defaultDelay: the delay used for frames without a well-formed graphic control extension
//   - minDelay: the floor applied to every resolved delay
//   - policy: how frames whose size differs from frame 0 are handled
//
// Returns:
//   - *gifDecoderBackend: the backend
func newGIFDecoderBackend(defaultDelay, minDelay time.Duration, policy FramePolicy) *gifDecoderBackend {
	return &gifDecoderBackend{
		defaultDelay: defaultDelay,
		minDelay:     minDelay,
		policy:       policy,
	}
}

func (b *gifDecoderBackend) Decode(data []byte) (*Result, error) {
	stream, err := scanGIF(data)
	if err != nil {
		return nil, err
	}

	res := &Result{
		LoopCount: stream.loopCount,
		Total:     len(stream.segments),
	}
	comp := &compositor{policy: b.policy}

	for _, seg := range stream.segments {
		img, disposal, err := decodeSegment(stream, seg)
		if err != nil {
			res.Skipped = append(res.Skipped, &FrameError{Index: seg.index, Err: err})
			continue
		}

		pixels, err := comp.apply(img, disposal)
		if err != nil {
			res.Skipped = append(res.Skipped, &FrameError{Index: seg.index, Err: err})
			continue
		}

		res.Frames = append(res.Frames, Frame{
			Index:  seg.index,
			Pixels: pixels,
			Delay:  b.resolveDelay(seg),
		})
	}

	if len(res.Frames) == 0 {
		if stream.err != nil {
			return nil, fmt.Errorf("%w: %d frames found: %w", ErrNoFrames, res.Total, stream.err)
		}
		return nil, fmt.Errorf("%w: %d frames found", ErrNoFrames, res.Total)
	}

	res.Width = int(res.Frames[0].Pixels.Width)
	res.Height = int(res.Frames[0].Pixels.Height)
	return res, nil
}

// resolveDelay converts a segment's timing metadata into a display duration.
func (b *gifDecoderBackend) resolveDelay(seg gifSegment) time.Duration {
	delay := b.defaultDelay
	if seg.gce != nil {
		delay = time.Duration(seg.delay) * 10 * time.Millisecond
	}
	return max(delay, b.minDelay)
}

// decodeSegment decodes a single frame. Panics raised while decoding corrupt data are turned into errors.
//
// Parameters:
//   - stream: the scanned GIF stream
//   - seg: the frame to decode
//
// Returns:
//   - *image.Paletted: the frame image, bounds positioned on the logical screen
//   - byte: the frame's disposal method
//   - error: error if the frame could not be decoded
func decodeSegment(stream *gifStream, seg gifSegment) (img *image.Paletted, disposal byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			img, disposal, err = nil, 0, fmt.Errorf("panic while decoding: %v", r)
		}
	}()

	if seg.truncated {
		return nil, 0, fmt.Errorf("truncated image data")
	}

	g, err := gif.DecodeAll(bytes.NewReader(stream.frame(seg)))
	if err != nil {
		return nil, 0, err
	}
	if len(g.Image) != 1 {
		return nil, 0, fmt.Errorf("expected 1 image, decoded %d", len(g.Image))
	}
	if len(g.Disposal) == 1 {
		disposal = g.Disposal[0]
	}
	return g.Image[0], disposal, nil
}

// compositor turns decoded frames into uniformly sized RGBA buffers according to a FramePolicy.
type compositor struct {
	policy FramePolicy

	// bounds is frame 0's rectangle on the logical screen, empty until frame 0 is seen.
	bounds image.Rectangle
	canvas *image.RGBA
}

// apply produces the output pixels for the next successfully decoded frame.
//
// Parameters:
//   - img: the decoded frame
//   - disposal: the frame's disposal method
//
// Returns:
//   - common.TextureStagingData: the frame pixels, sized like frame 0
//   - error: ErrFrameSize when FramePolicyReject rejects the frame
func (c *compositor) apply(img *image.Paletted, disposal byte) (common.TextureStagingData, error) {
	first := c.canvas == nil
	if first {
		c.bounds = img.Bounds()
		c.canvas = image.NewRGBA(c.bounds)
	}

	switch c.policy {
	case FramePolicyReject:
		if !first && img.Bounds().Size() != c.bounds.Size() {
			return common.TextureStagingData{}, fmt.Errorf("%w: got %v, want %v", ErrFrameSize, img.Bounds().Size(), c.bounds.Size())
		}
		return common.NewTextureStagingData(img), nil

	case FramePolicyScale:
		if first || img.Bounds().Size() == c.bounds.Size() {
			return common.NewTextureStagingData(img), nil
		}
		dst := image.NewRGBA(image.Rect(0, 0, c.bounds.Dx(), c.bounds.Dy()))
		draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
		return common.NewTextureStagingData(dst), nil

	default:
		return c.composite(img, disposal), nil
	}
}

// composite draws img over the running canvas, snapshots it and then applies the disposal method.
func (c *compositor) composite(img *image.Paletted, disposal byte) common.TextureStagingData {
	var previous *image.RGBA
	if disposal == gif.DisposalPrevious {
		previous = image.NewRGBA(c.canvas.Bounds())
		draw.Draw(previous, previous.Bounds(), c.canvas, c.canvas.Bounds().Min, draw.Src)
	}

	draw.Draw(c.canvas, img.Bounds(), img, img.Bounds().Min, draw.Over)
	out := common.NewTextureStagingData(c.canvas)

	switch disposal {
	case gif.DisposalBackground:
		draw.Draw(c.canvas, img.Bounds(), image.Transparent, image.Point{}, draw.Src)
	case gif.DisposalPrevious:
		c.canvas = previous
	}
	return out
}
