// Package animation caches decoded animations as GPU textures and drives their playback.
//
// A Cache is not safe for concurrent use. Every method must be called from the thread that owns the
// texture.Bridge, normally the render thread. Off-thread decoding is available through PreloadAsync,
// whose results are installed on the render thread by Sync.
package animation

import (
	"fmt"
	"log/slog"
	"math"
	"runtime"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"

	"github.com/Carmen-Shannon/oxy-anim/common"
	"github.com/Carmen-Shannon/oxy-anim/engine/decoder"
	"github.com/Carmen-Shannon/oxy-anim/engine/loader"
	"github.com/Carmen-Shannon/oxy-anim/engine/texture"
)

// DefaultNamePrefix prefixes the unique resource names of uploaded frame textures.
const DefaultNamePrefix = "gif_frame"

// cache is the implementation of the Cache interface.
type cache[K comparable] struct {
	resolver loader.Resolver[K]
	decoder  decoder.Decoder
	bridge   texture.Bridge
	drawer   texture.Drawer

	entries map[K]*animation

	// nameCounter generates the unique texture names; ReleaseAll resets it.
	nameCounter uint64
	namePrefix  string

	retryFailed bool
	clock       func() time.Time

	workers  int
	pool     worker.DynamicWorkerPool
	taskID   int
	resultMu sync.Mutex
	results  []fetchResult[K]

	log *slog.Logger
}

// Cache defines the public-facing interface for decoding, caching and playing animations keyed by an
// arbitrary comparable identity.
type Cache[K comparable] interface {
	// Render draws the current frame of the animation identified by id at normal speed.
	// It is equivalent to RenderWithSpeed(id, rect, tint, 1).
	//
	// Parameters:
	//   - id: the animation identity
	//   - rect: the destination rectangle in pixels
	//   - tint: the packed ARGB tint, common.NoTint for none
	//
	// Returns:
	//   - error: an error from the Drawer, or ErrNoDrawer
	Render(id K, rect common.Rect, tint common.Tint) error

	// RenderWithSpeed draws the current frame of the animation identified by id, loading it synchronously
	// on first reference. The cursor is advanced before drawing, with every frame delay divided by speed.
	// Animations that are pending or failed to load draw nothing and return nil; their load error is
	// available from Info.
	//
	// Parameters:
	//   - id: the animation identity
	//   - rect: the destination rectangle in pixels
	//   - tint: the packed ARGB tint, common.NoTint for none
	//   - speed: the playback speed multiplier, must be positive and finite
	//
	// Returns:
	//   - error: ErrInvalidSpeed, ErrNoDrawer or an error from the Drawer
	RenderWithSpeed(id K, rect common.Rect, tint common.Tint, speed float64) error

	// Preload loads the animation identified by id if it is not cached yet. An animation that is already
	// cached is never decoded again, unless it failed and the cache was built WithRetryFailed.
	//
	// Parameters:
	//   - id: the animation identity
	//
	// Returns:
	//   - bool: true if the animation is loaded and drawable
	Preload(id K) bool

	// PreloadAsync caches a pending entry for every id not cached yet and decodes them on worker
	// goroutines. Call Sync once per frame to install completed loads.
	//
	// Parameters:
	//   - ids: the animation identities
	PreloadAsync(ids ...K)

	// Sync uploads and installs the animations whose asynchronous decode has completed. Results for
	// entries released while decoding are discarded.
	//
	// Returns:
	//   - int: the number of animations installed
	Sync() int

	// IsLoaded reports whether the animation identified by id is cached, loaded and has at least one frame.
	//
	// Parameters:
	//   - id: the animation identity
	//
	// Returns:
	//   - bool: true if the animation is drawable
	IsLoaded(id K) bool

	// Dimensions returns the size of frame 0 of a loaded animation, or (0, 0).
	//
	// Parameters:
	//   - id: the animation identity
	//
	// Returns:
	//   - int: the width in pixels
	//   - int: the height in pixels
	Dimensions(id K) (width, height int)

	// Release frees the textures of the animation identified by id and removes it from the cache.
	// It is a no-op if id is not cached.
	//
	// Parameters:
	//   - id: the animation identity
	Release(id K)

	// ReleaseAll frees every cached animation, empties the cache and restarts texture naming.
	ReleaseAll()

	// Info returns a snapshot of the animation identified by id.
	//
	// Parameters:
	//   - id: the animation identity
	//
	// Returns:
	//   - Info: the snapshot
	//   - bool: false if id is not cached
	Info(id K) (Info, bool)

	// Stats summarises the cache contents.
	//
	// Returns:
	//   - Stats: the summary
	Stats() Stats

	// Len returns the number of cached animations in any state.
	//
	// Returns:
	//   - int: the number of cached animations
	Len() int
}

var _ Cache[string] = &cache[string]{}

// NewCache creates a new Cache with the specified collaborators and options applied.
// If bridge also implements texture.Drawer it is used for drawing unless WithDrawer overrides it.
//
// Parameters:
//   - resolver: maps identities to encoded byte streams; must be safe for concurrent use if PreloadAsync is used
//   - bridge: uploads and frees frame textures
//   - options: a variadic list of CacheBuilderOption functions to configure the Cache
//
// Returns:
//   - Cache[K]: a new instance of Cache configured with the provided collaborators and options
func NewCache[K comparable](resolver loader.Resolver[K], bridge texture.Bridge, options ...CacheBuilderOption[K]) Cache[K] {
	c := &cache[K]{
		resolver:   resolver,
		bridge:     bridge,
		entries:    make(map[K]*animation),
		namePrefix: DefaultNamePrefix,
		clock:      time.Now,
		workers:    max(runtime.NumCPU()-1, 1),
		log:        slog.Default(),
	}
	if d, ok := bridge.(texture.Drawer); ok {
		c.drawer = d
	}

	for _, option := range options {
		option(c)
	}

	c.log = c.log.With(slog.String("component", "animation"))
	if c.decoder == nil {
		c.decoder = decoder.NewDecoder(decoder.BackendTypeGIF, decoder.WithLogger(c.log))
	}
	return c
}

func (c *cache[K]) Render(id K, rect common.Rect, tint common.Tint) error {
	return c.RenderWithSpeed(id, rect, tint, 1)
}

func (c *cache[K]) RenderWithSpeed(id K, rect common.Rect, tint common.Tint, speed float64) error {
	if !(speed > 0) || math.IsInf(speed, 1) {
		return fmt.Errorf("%w: %v", ErrInvalidSpeed, speed)
	}

	a, ok := c.entries[id]
	if !ok {
		a = &animation{state: StatePending}
		c.entries[id] = a
		c.load(id, a)
	}
	if !a.loaded() {
		return nil
	}

	a.advance(c.clock(), speed)

	if c.drawer == nil {
		return ErrNoDrawer
	}
	if err := c.drawer.Draw(a.frames[a.current], rect, tint); err != nil {
		return fmt.Errorf("failed to draw frame %d: %w", a.current, err)
	}
	return nil
}

func (c *cache[K]) Preload(id K) bool {
	a, ok := c.entries[id]
	switch {
	case !ok:
		a = &animation{state: StatePending}
		c.entries[id] = a
		c.load(id, a)
	case a.state == StateFailed && c.retryFailed:
		c.freeAll(a.reset())
		c.load(id, a)
	}
	return a.loaded()
}

func (c *cache[K]) IsLoaded(id K) bool {
	a, ok := c.entries[id]
	return ok && a.loaded()
}

func (c *cache[K]) Dimensions(id K) (width, height int) {
	a, ok := c.entries[id]
	if !ok || !a.loaded() {
		return 0, 0
	}
	return a.width, a.height
}

func (c *cache[K]) Release(id K) {
	a, ok := c.entries[id]
	if !ok {
		return
	}
	c.freeAll(a.frames)
	a.frames, a.delays = nil, nil
	delete(c.entries, id)
	c.log.Debug("released animation", slog.Any("id", id))
}

func (c *cache[K]) ReleaseAll() {
	for id, a := range c.entries {
		c.freeAll(a.frames)
		a.frames, a.delays = nil, nil
		delete(c.entries, id)
	}
	c.nameCounter = 0
	c.log.Debug("released all animations")
}

func (c *cache[K]) Info(id K) (Info, bool) {
	a, ok := c.entries[id]
	if !ok {
		return Info{}, false
	}
	return a.info(), true
}

func (c *cache[K]) Stats() Stats {
	s := Stats{Animations: len(c.entries)}
	for _, a := range c.entries {
		switch a.state {
		case StateLoaded:
			s.Loaded++
		case StateFailed:
			s.Failed++
		default:
			s.Pending++
		}
		s.Textures += len(a.frames)
	}
	return s
}

func (c *cache[K]) Len() int {
	return len(c.entries)
}

// nextName returns a texture name that has not been handed out since the last ReleaseAll.
func (c *cache[K]) nextName() string {
	name := fmt.Sprintf("%s_%d", c.namePrefix, c.nameCounter)
	c.nameCounter++
	return name
}

// freeAll returns every handle to the bridge.
func (c *cache[K]) freeAll(handles []texture.Handle) {
	for _, h := range handles {
		c.bridge.Free(h)
	}
}
