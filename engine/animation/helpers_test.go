package animation

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/gif"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-anim/common"
	"github.com/Carmen-Shannon/oxy-anim/engine/decoder"
	"github.com/Carmen-Shannon/oxy-anim/engine/loader"
	"github.com/Carmen-Shannon/oxy-anim/engine/texture"
)

var testPalette = color.Palette{
	color.RGBA{A: 255},
	color.RGBA{R: 255, A: 255},
	color.RGBA{G: 255, A: 255},
	color.RGBA{B: 255, A: 255},
}

// encodeGIF builds a width x height GIF with one solid frame per delay, in hundredths of a second.
func encodeGIF(t *testing.T, width, height int, delays ...int) []byte {
	t.Helper()

	g := &gif.GIF{Config: image.Config{ColorModel: testPalette, Width: width, Height: height}}
	for i, d := range delays {
		img := image.NewPaletted(image.Rect(0, 0, width, height), testPalette)
		for p := range img.Pix {
			img.Pix[p] = uint8(1 + i%3)
		}
		g.Image = append(g.Image, img)
		g.Delay = append(g.Delay, d)
	}

	var buf bytes.Buffer
	if err := gif.EncodeAll(&buf, g); err != nil {
		t.Fatalf("failed to encode fixture: %v", err)
	}
	return buf.Bytes()
}

// emptyGIF is a well-formed GIF stream without a single image.
func emptyGIF() []byte {
	return []byte{
		'G', 'I', 'F', '8', '9', 'a',
		1, 0, 1, 0, 0x80, 0, 0,
		0, 0, 0, 255, 255, 255,
		0x3B,
	}
}

type fakeHandle struct {
	name string
}

func (h *fakeHandle) Name() string { return h.name }

// fakeBridge records uploads and frees. Upload fails for every name in fail.
type fakeBridge struct {
	uploaded []string
	freed    []string
	live     map[string]bool
	fail     map[string]bool
	panicAt  string
}

func newFakeBridge() *fakeBridge {
	return &fakeBridge{live: make(map[string]bool), fail: make(map[string]bool)}
}

func (b *fakeBridge) Upload(staging common.TextureStagingData, name string) (texture.Handle, error) {
	if name == b.panicAt {
		panic("device lost")
	}
	if b.fail[name] {
		return nil, errors.New("out of memory")
	}
	if err := staging.Validate(); err != nil {
		return nil, err
	}
	if b.live[name] {
		return nil, errors.New("duplicate texture name " + name)
	}
	b.uploaded = append(b.uploaded, name)
	b.live[name] = true
	return &fakeHandle{name: name}, nil
}

func (b *fakeBridge) Free(h texture.Handle) {
	b.freed = append(b.freed, h.Name())
	delete(b.live, h.Name())
}

type draw struct {
	name string
	rect common.Rect
	tint common.Tint
}

type fakeDrawer struct {
	draws []draw
	err   error
}

func (d *fakeDrawer) Draw(h texture.Handle, rect common.Rect, tint common.Tint) error {
	if d.err != nil {
		return d.err
	}
	d.draws = append(d.draws, draw{name: h.Name(), rect: rect, tint: tint})
	return nil
}

func (d *fakeDrawer) last() string {
	if len(d.draws) == 0 {
		return ""
	}
	return d.draws[len(d.draws)-1].name
}

// drawingBridge is a bridge that can also draw.
type drawingBridge struct {
	*fakeBridge
	*fakeDrawer
}

type fakeClock struct {
	base time.Time
	now  time.Time
}

func newFakeClock() *fakeClock {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return &fakeClock{base: base, now: base}
}

func (c *fakeClock) Now() time.Time { return c.now }

// at sets the clock to ms milliseconds after its base.
func (c *fakeClock) at(ms int) {
	c.now = c.base.Add(time.Duration(ms) * time.Millisecond)
}

// countingResolver serves in-memory assets and counts resolutions per identity.
type countingResolver struct {
	mu     sync.Mutex
	assets map[string][]byte
	counts map[string]int
	// gate, when set, blocks every resolution until it is closed.
	gate chan struct{}
}

func newCountingResolver(assets map[string][]byte) *countingResolver {
	return &countingResolver{assets: assets, counts: make(map[string]int)}
}

func (r *countingResolver) Resolve(id string) (io.ReadCloser, error) {
	if r.gate != nil {
		<-r.gate
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counts[id]++
	return loader.NewMemoryResolver(r.assets).Resolve(id)
}

func (r *countingResolver) count(id string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counts[id]
}

func (r *countingResolver) put(id string, data []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.assets[id] = data
}

// countingDecoder counts Decode calls of the wrapped decoder.
type countingDecoder struct {
	decoder.Decoder
	calls atomic.Int32
}

func (d *countingDecoder) Decode(r io.Reader) (*decoder.Result, error) {
	d.calls.Add(1)
	return d.Decoder.Decode(r)
}

// fixedDecoder returns a canned result.
type fixedDecoder struct {
	res *decoder.Result
	err error
}

func (d fixedDecoder) Decode(io.Reader) (*decoder.Result, error) {
	return d.res, d.err
}

func stagingOf(w, h uint32) common.TextureStagingData {
	return common.TextureStagingData{Pixels: make([]byte, w*h*4), Width: w, Height: h}
}

// testCache bundles a cache with its fakes.
type testCache struct {
	Cache[string]
	bridge   *fakeBridge
	drawer   *fakeDrawer
	clock    *fakeClock
	resolver *countingResolver
	decoder  *countingDecoder
}

func newTestCache(t *testing.T, assets map[string][]byte, options ...CacheBuilderOption[string]) *testCache {
	t.Helper()

	tc := &testCache{
		bridge:   newFakeBridge(),
		drawer:   &fakeDrawer{},
		clock:    newFakeClock(),
		resolver: newCountingResolver(assets),
		decoder:  &countingDecoder{Decoder: decoder.NewDecoder(decoder.BackendTypeGIF)},
	}
	opts := append([]CacheBuilderOption[string]{
		WithDrawer[string](tc.drawer),
		WithClock[string](tc.clock.Now),
		WithDecoder[string](tc.decoder),
	}, options...)
	tc.Cache = NewCache[string](tc.resolver, tc.bridge, opts...)
	return tc
}

// renderAt renders id at ms and returns the name of the drawn texture, or "" if nothing was drawn.
func (tc *testCache) renderAt(t *testing.T, id string, ms int) string {
	t.Helper()

	before := len(tc.drawer.draws)
	tc.clock.at(ms)
	if err := tc.Render(id, common.Rect{Width: 10, Height: 10}, common.NoTint); err != nil {
		t.Fatalf("unexpected render error at t=%d: %v", ms, err)
	}
	if len(tc.drawer.draws) == before {
		return ""
	}
	return tc.drawer.last()
}

// waitForLoads syncs until no entry is pending.
func (tc *testCache) waitForLoads(t *testing.T) {
	t.Helper()

	deadline := time.Now().Add(5 * time.Second)
	for tc.Stats().Pending > 0 {
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for asynchronous loads")
		}
		tc.Sync()
		time.Sleep(time.Millisecond)
	}
}
