package animation

import (
	"math"
	"slices"
	"time"

	"github.com/Carmen-Shannon/oxy-anim/engine/texture"
)

// State is the load state of a cached animation.
type State int

const (
	// StatePending means the animation is cached but its load has not completed.
	StatePending State = iota

	// StateFailed means the load completed without producing a single frame.
	StateFailed

	// StateLoaded means the animation has at least one frame and can be drawn.
	StateLoaded
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateFailed:
		return "failed"
	case StateLoaded:
		return "loaded"
	default:
		return "unknown"
	}
}

// animation is one cached decoded animation and its playback cursor.
// frames and delays always have equal length and are only ever replaced together.
type animation struct {
	frames []texture.Handle
	delays []time.Duration

	current     int
	lastAdvance time.Time
	// anchored is false until the first draw after a load sets lastAdvance.
	anchored bool

	state     State
	width     int
	height    int
	loopCount int

	err     error
	skipped []error
}

// loaded reports whether the animation can be drawn.
func (a *animation) loaded() bool {
	return a.state == StateLoaded && len(a.frames) > 0
}

// reset returns the animation to the pending state and hands back the handles it owned.
func (a *animation) reset() []texture.Handle {
	frames := a.frames
	*a = animation{state: StatePending}
	return frames
}

// populate installs a completed load. All playback fields are replaced at once.
func (a *animation) populate(frames []texture.Handle, delays []time.Duration, width, height, loopCount int, err error, skipped []error) {
	state := StateFailed
	if len(frames) > 0 {
		state = StateLoaded
	}
	*a = animation{
		frames:    frames,
		delays:    delays,
		state:     state,
		width:     width,
		height:    height,
		loopCount: loopCount,
		err:       err,
		skipped:   skipped,
	}
}

// advance moves the cursor along the delay schedule up to now.
//
// The first call after a load anchors the schedule at now and keeps frame 0. A later call may step
// through several frames: every frame whose scaled delay has fully elapsed since the last step is
// consumed, and lastAdvance moves by exactly the consumed delays rather than to now. The cursor
// position is therefore a pure function of the elapsed time since the anchor, independent of how
// often advance is called. Each delay is divided by speed at the moment it is consumed.
//
// Parameters:
//   - now: the current time
//   - speed: the playback speed multiplier, > 0
func (a *animation) advance(now time.Time, speed float64) {
	n := len(a.frames)
	if n == 0 {
		return
	}
	if !a.anchored {
		a.anchored = true
		a.lastAdvance = now
		return
	}
	if n == 1 {
		return
	}

	elapsed := now.Sub(a.lastAdvance)
	if elapsed <= 0 {
		return
	}

	var cycle time.Duration
	for _, d := range a.delays {
		cycle = addSaturated(cycle, scaleDelay(d, speed))
	}
	if elapsed >= cycle {
		skip := (elapsed / cycle) * cycle
		a.lastAdvance = a.lastAdvance.Add(skip)
		elapsed -= skip
	}

	for {
		d := scaleDelay(a.delays[a.current], speed)
		if elapsed < d {
			return
		}
		elapsed -= d
		a.lastAdvance = a.lastAdvance.Add(d)
		a.current = (a.current + 1) % n
	}
}

// scaleDelay divides d by speed, clamped to [1ns, math.MaxInt64].
func scaleDelay(d time.Duration, speed float64) time.Duration {
	scaled := float64(d) / speed
	if scaled >= math.MaxInt64 {
		return math.MaxInt64
	}
	return max(time.Duration(scaled), 1)
}

// addSaturated adds two non-negative durations, stopping at math.MaxInt64.
func addSaturated(a, b time.Duration) time.Duration {
	if a > math.MaxInt64-b {
		return math.MaxInt64
	}
	return a + b
}

// Info is a snapshot of a cached animation.
type Info struct {
	State State
	// Err is the reason a failed load produced no frames.
	Err error
	// Skipped holds the non-fatal per-frame failures of the last load.
	Skipped []error

	Frames  int
	Delays  []time.Duration
	Current int

	Width, Height int
	// LoopCount is the repeat count stored in the image, 0 meaning forever and -1 meaning unspecified.
	// Playback always loops forever.
	LoopCount int
}

func (a *animation) info() Info {
	return Info{
		State:     a.state,
		Err:       a.err,
		Skipped:   slices.Clone(a.skipped),
		Frames:    len(a.frames),
		Delays:    slices.Clone(a.delays),
		Current:   a.current,
		Width:     a.width,
		Height:    a.height,
		LoopCount: a.loopCount,
	}
}

// Stats summarises the contents of a Cache.
type Stats struct {
	Animations int
	Loaded     int
	Failed     int
	Pending    int
	// Textures is the number of live texture handles owned by cached animations.
	Textures int
}
