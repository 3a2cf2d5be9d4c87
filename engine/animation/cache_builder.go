package animation

import (
	"log/slog"
	"time"

	"github.com/Carmen-Shannon/oxy-anim/engine/decoder"
	"github.com/Carmen-Shannon/oxy-anim/engine/texture"
)

// CacheBuilderOption is a functional option for configuring a Cache via NewCache.
type CacheBuilderOption[K comparable] func(*cache[K])

// WithDrawer is an option builder that sets the Drawer used by Render.
//
// Parameters:
//   - d: the drawer
//
// Returns:
//   - CacheBuilderOption[K]: a function that applies the drawer option to a cache
func WithDrawer[K comparable](d texture.Drawer) CacheBuilderOption[K] {
	return func(c *cache[K]) {
		c.drawer = d
	}
}

// WithDecoder is an option builder that sets the Decoder used by the load pipeline.
// The default is a GIF decoder with default options.
//
// Parameters:
//   - d: the decoder
//
// Returns:
//   - CacheBuilderOption[K]: a function that applies the decoder option to a cache
func WithDecoder[K comparable](d decoder.Decoder) CacheBuilderOption[K] {
	return func(c *cache[K]) {
		c.decoder = d
	}
}

// WithClock is an option builder that sets the time source used to advance playback.
//
// Parameters:
//   - now: the clock, nil keeps time.Now
//
// Returns:
//   - CacheBuilderOption[K]: a function that applies the clock option to a cache
func WithClock[K comparable](now func() time.Time) CacheBuilderOption[K] {
	return func(c *cache[K]) {
		if now != nil {
			c.clock = now
		}
	}
}

// WithNamePrefix is an option builder that sets the prefix of generated texture names.
//
// Parameters:
//   - prefix: the name prefix, empty keeps DefaultNamePrefix
//
// Returns:
//   - CacheBuilderOption[K]: a function that applies the name prefix option to a cache
func WithNamePrefix[K comparable](prefix string) CacheBuilderOption[K] {
	return func(c *cache[K]) {
		if prefix != "" {
			c.namePrefix = prefix
		}
	}
}

// WithRetryFailed is an option builder that makes Preload and PreloadAsync retry animations whose
// previous load failed. Render never retries.
//
// Parameters:
//   - retry: whether failed loads are retried
//
// Returns:
//   - CacheBuilderOption[K]: a function that applies the retry option to a cache
func WithRetryFailed[K comparable](retry bool) CacheBuilderOption[K] {
	return func(c *cache[K]) {
		c.retryFailed = retry
	}
}

// WithWorkers is an option builder that sets the maximum number of goroutines used by PreloadAsync.
//
// Parameters:
//   - n: the worker count, values < 1 are ignored
//
// Returns:
//   - CacheBuilderOption[K]: a function that applies the worker count option to a cache
func WithWorkers[K comparable](n int) CacheBuilderOption[K] {
	return func(c *cache[K]) {
		if n > 0 {
			c.workers = n
		}
	}
}

// WithLogger is an option builder that sets the Cache's logger.
//
// Parameters:
//   - log: the logger, nil keeps slog.Default()
//
// Returns:
//   - CacheBuilderOption[K]: a function that applies the logger option to a cache
func WithLogger[K comparable](log *slog.Logger) CacheBuilderOption[K] {
	return func(c *cache[K]) {
		if log != nil {
			c.log = log
		}
	}
}
