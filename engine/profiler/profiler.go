package profiler

import (
	"context"
	"log/slog"
	"runtime"
	"time"
)

// StatsFunc reports extra attributes logged with every profiler report, such as cache occupancy.
type StatsFunc func() []slog.Attr

// Profiler tracks frame rate and memory statistics for performance monitoring.
// Outputs stats to the log at a configurable interval.
type Profiler struct {
	frameCount     int
	lastTime       time.Time
	updateInterval time.Duration
	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64

	clock func() time.Time
	stats []StatsFunc
	log   *slog.Logger
	level slog.Level
}

// ProfilerOption is a functional option for configuring a Profiler.
type ProfilerOption func(*Profiler)

// WithInterval sets how often statistics are reported.
//
// Parameters:
//   - interval: the report interval, ignored unless positive
//
// Returns:
//   - ProfilerOption: option function to apply
func WithInterval(interval time.Duration) ProfilerOption {
	return func(p *Profiler) {
		if interval > 0 {
			p.updateInterval = interval
		}
	}
}

// WithStats adds a source of extra attributes to every report.
//
// Parameters:
//   - fn: the attribute source
//
// Returns:
//   - ProfilerOption: option function to apply
func WithStats(fn StatsFunc) ProfilerOption {
	return func(p *Profiler) {
		if fn != nil {
			p.stats = append(p.stats, fn)
		}
	}
}

// WithLogger sets the logger reports are written to, and the level they are written at.
//
// Parameters:
//   - log: the logger to use
//   - level: the level of every report
//
// Returns:
//   - ProfilerOption: option function to apply
func WithLogger(log *slog.Logger, level slog.Level) ProfilerOption {
	return func(p *Profiler) {
		if log != nil {
			p.log = log
		}
		p.level = level
	}
}

// WithClock replaces time.Now.
//
// Parameters:
//   - clock: the time source
//
// Returns:
//   - ProfilerOption: option function to apply
func WithClock(clock func() time.Time) ProfilerOption {
	return func(p *Profiler) {
		if clock != nil {
			p.clock = clock
		}
	}
}

// NewProfiler creates a new Profiler.
// Update interval defaults to 1 second and reports go to slog.Default at debug level.
//
// Parameters:
//   - options: functional options to configure the profiler
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler(options ...ProfilerOption) *Profiler {
	p := &Profiler{
		updateInterval: time.Second,
		clock:          time.Now,
		log:            slog.Default(),
		level:          slog.LevelDebug,
	}
	for _, opt := range options {
		opt(p)
	}
	p.lastTime = p.clock()
	return p
}

// Tick should be called once per frame to track frame timing.
// Logs performance statistics when the update interval has elapsed.
// Statistics include: FPS, heap usage, allocation rate, GC count/pause times, total memory, and the attributes of
// every StatsFunc.
//
// Returns:
//   - bool: true if stats were logged this tick, false otherwise
func (p *Profiler) Tick() bool {
	p.frameCount++
	currentTime := p.clock()
	elapsed := currentTime.Sub(p.lastTime)
	if elapsed < p.updateInterval {
		return false
	}

	fps := float64(p.frameCount) / elapsed.Seconds()

	runtime.ReadMemStats(&p.memStats)
	// Alloc: Bytes of allocated heap objects (live memory)
	// TotalAlloc: Cumulative bytes allocated for heap objects (increases forever, tracks churn)
	// Sys: Total bytes of memory obtained from the OS (actual process footprint)
	allocMB := float64(p.memStats.Alloc) / 1024 / 1024
	sysMB := float64(p.memStats.Sys) / 1024 / 1024
	allocRateMB := float64(p.memStats.TotalAlloc-p.lastTotalAlloc) / 1024 / 1024 / elapsed.Seconds()

	gcCount := p.memStats.NumGC
	var lastPause, maxPause time.Duration
	if gcCount > 0 {
		// PauseNs is a circular buffer of last 256 GC pauses
		lastPause = time.Duration(p.memStats.PauseNs[(gcCount-1)%256])

		startIdx := p.lastGCCount
		if gcCount-startIdx > 256 {
			startIdx = gcCount - 256
		}
		for i := startIdx; i < gcCount; i++ {
			maxPause = max(maxPause, time.Duration(p.memStats.PauseNs[i%256]))
		}
	}

	attrs := []slog.Attr{
		slog.Float64("fps", fps),
		slog.Float64("heap_mb", allocMB),
		slog.Float64("alloc_mb_per_sec", allocRateMB),
		slog.Any("gc", gcCount),
		slog.Duration("gc_last_pause", lastPause),
		slog.Duration("gc_max_pause", maxPause),
		slog.Float64("sys_mb", sysMB),
	}
	for _, fn := range p.stats {
		attrs = append(attrs, fn()...)
	}
	p.log.LogAttrs(context.Background(), p.level, "frame stats", attrs...)

	p.frameCount = 0
	p.lastTime = currentTime
	p.lastGCCount = gcCount
	p.lastTotalAlloc = p.memStats.TotalAlloc
	return true
}
