package decoder

import (
	"log/slog"
	"time"
)

// DecoderBuilderOption is a functional option for configuring a Decoder via NewDecoder.
type DecoderBuilderOption func(*decoder)

// WithDefaultDelay sets the delay used for frames without usable timing metadata.
// Values <= 0 keep DefaultFrameDelay.
//
// Parameters:
//   - d: the fallback frame delay
//
// Returns:
//   - DecoderBuilderOption: a function that applies the default delay option to a decoder
func WithDefaultDelay(d time.Duration) DecoderBuilderOption {
	return func(dec *decoder) {
		if d > 0 {
			dec.defaultDelay = d.Truncate(time.Millisecond)
		}
	}
}

// WithMinDelay sets the floor applied to every resolved frame delay.
// Values <= 0 keep MinFrameDelay.
//
// Parameters:
//   - d: the minimum frame delay
//
// Returns:
//   - DecoderBuilderOption: a function that applies the minimum delay option to a decoder
func WithMinDelay(d time.Duration) DecoderBuilderOption {
	return func(dec *decoder) {
		if d > 0 {
			dec.minDelay = d.Truncate(time.Millisecond)
		}
	}
}

// WithFramePolicy sets how frames whose size differs from frame 0 are handled.
//
// Parameters:
//   - p: the frame size policy
//
// Returns:
//   - DecoderBuilderOption: a function that applies the frame policy option to a decoder
func WithFramePolicy(p FramePolicy) DecoderBuilderOption {
	return func(dec *decoder) {
		dec.policy = p
	}
}

// WithLogger sets the logger used for per-frame diagnostics.
//
// Parameters:
//   - log: the logger, nil keeps slog.Default()
//
// Returns:
//   - DecoderBuilderOption: a function that applies the logger option to a decoder
func WithLogger(log *slog.Logger) DecoderBuilderOption {
	return func(dec *decoder) {
		if log != nil {
			dec.log = log
		}
	}
}
