package animation

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Carmen-Shannon/oxy-anim/engine/decoder"
	"github.com/Carmen-Shannon/oxy-anim/engine/texture"
)

// load runs the whole load pipeline for a on the calling thread.
func (c *cache[K]) load(id K, a *animation) {
	res, err := c.fetch(id)
	c.install(id, a, res, err)
}

// fetch resolves and decodes id. It touches no cache state and may run on any goroutine.
// Panics are contained and reported as ErrDecodeFailure.
//
// Parameters:
//   - id: the animation identity
//
// Returns:
//   - *decoder.Result: the decoded frames
//   - error: an error wrapping ErrResourceNotFound or ErrDecodeFailure
func (c *cache[K]) fetch(id K) (res *decoder.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			res, err = nil, fmt.Errorf("%w: panic: %v", ErrDecodeFailure, r)
		}
	}()

	stream, err := c.resolver.Resolve(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %v: %w", ErrResourceNotFound, id, err)
	}
	if stream == nil {
		return nil, fmt.Errorf("%w: %v: resolver returned no stream", ErrResourceNotFound, id)
	}
	defer stream.Close()

	res, err = c.decoder.Decode(stream)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecodeFailure, err)
	}
	return res, nil
}

// install uploads the decoded frames of a fetch and populates a in a single assignment.
// It must run on the thread that owns the bridge. Upload failures skip the frame; a panic frees what
// was already uploaded and marks a failed.
//
// Parameters:
//   - id: the animation identity
//   - a: the cache entry to populate
//   - res: the fetch result, nil when fetchErr is set
//   - fetchErr: the fetch error
func (c *cache[K]) install(id K, a *animation, res *decoder.Result, fetchErr error) {
	start := c.clock()

	if fetchErr != nil {
		a.populate(nil, nil, 0, 0, -1, fetchErr, nil)
		c.log.Error("failed to load animation", slog.Any("id", id), slog.Any("error", fetchErr))
		return
	}

	var (
		uploaded  []texture.Handle
		populated bool
	)
	defer func() {
		if r := recover(); r != nil {
			if populated {
				c.log.Error("panic after loading animation", slog.Any("id", id), slog.Any("panic", r))
				return
			}
			c.freeAll(uploaded)
			err := fmt.Errorf("%w: panic: %v", ErrUploadFailure, r)
			a.populate(nil, nil, 0, 0, -1, err, nil)
			c.log.Error("failed to load animation", slog.Any("id", id), slog.Any("error", err))
		}
	}()

	var skipped []error
	for _, s := range res.Skipped {
		skipped = append(skipped, fmt.Errorf("%w: %w", ErrFrameDecodeSkipped, s))
	}

	delays := make([]time.Duration, 0, len(res.Frames))
	for _, f := range res.Frames {
		h, err := c.bridge.Upload(f.Pixels, c.nextName())
		if err == nil && h == nil {
			err = errors.New("bridge returned no handle")
		}
		if err != nil {
			skipped = append(skipped, fmt.Errorf("%w: frame %d: %w", ErrUploadFailure, f.Index, err))
			continue
		}
		uploaded = append(uploaded, h)
		delays = append(delays, f.Delay)
	}

	var err error
	if len(uploaded) == 0 {
		err = fmt.Errorf("%w: none of %d decoded frames could be uploaded", ErrUploadFailure, len(res.Frames))
	}
	a.populate(uploaded, delays, res.Width, res.Height, res.LoopCount, err, skipped)
	populated = true

	for _, s := range skipped {
		c.log.Warn("skipped animation frame", slog.Any("id", id), slog.Any("error", s))
	}
	if err != nil {
		c.log.Error("failed to load animation", slog.Any("id", id), slog.Any("error", err))
		return
	}
	c.log.Info("loaded animation",
		slog.Any("id", id),
		slog.Int("frames", len(uploaded)),
		slog.Int("width", res.Width),
		slog.Int("height", res.Height),
		slog.Duration("upload", c.clock().Sub(start)),
	)
}
