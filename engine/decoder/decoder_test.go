package decoder

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/gif"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

var (
	testBlack = color.RGBA{A: 255}
	testRed   = color.RGBA{R: 255, A: 255}
	testBlue  = color.RGBA{B: 255, A: 255}

	testPalette = color.Palette{testBlack, testRed, testBlue}
)

// testFrame describes one frame of a generated GIF fixture.
type testFrame struct {
	rect     image.Rectangle
	fill     color.Color
	delay    int
	disposal byte
}

// encodeGIF builds a GIF with a global palette from the given frames.
func encodeGIF(t *testing.T, width, height, loopCount int, frames ...testFrame) []byte {
	t.Helper()

	g := &gif.GIF{
		Config:    image.Config{ColorModel: testPalette, Width: width, Height: height},
		LoopCount: loopCount,
	}
	for _, f := range frames {
		img := image.NewPaletted(f.rect, testPalette)
		idx := uint8(testPalette.Index(f.fill))
		for i := range img.Pix {
			img.Pix[i] = idx
		}
		g.Image = append(g.Image, img)
		g.Delay = append(g.Delay, f.delay)
		g.Disposal = append(g.Disposal, f.disposal)
	}

	var buf bytes.Buffer
	if err := gif.EncodeAll(&buf, g); err != nil {
		t.Fatalf("failed to encode fixture: %v", err)
	}
	return buf.Bytes()
}

func solid(w, h int, c color.RGBA) []byte {
	out := make([]byte, 0, w*h*4)
	for range w * h {
		out = append(out, c.R, c.G, c.B, c.A)
	}
	return out
}

func frameDelays(res *Result) []time.Duration {
	var out []time.Duration
	for _, f := range res.Frames {
		out = append(out, f.Delay)
	}
	return out
}

func TestDecodeDelays(t *testing.T) {
	full := image.Rect(0, 0, 2, 2)
	data := encodeGIF(t, 2, 2, 0,
		testFrame{rect: full, fill: testRed, delay: 10},
		testFrame{rect: full, fill: testBlue, delay: 5},
		testFrame{rect: full, fill: testRed, delay: 20},
		testFrame{rect: full, fill: testBlue, delay: 1},
		testFrame{rect: full, fill: testRed, delay: 0},
	)

	res, err := NewDecoder(BackendTypeGIF).Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []time.Duration{
		100 * time.Millisecond,
		50 * time.Millisecond,
		200 * time.Millisecond,
		MinFrameDelay,
		DefaultFrameDelay,
	}
	if diff := cmp.Diff(want, frameDelays(res)); diff != "" {
		t.Errorf("unexpected delays (-want +got):\n%s", diff)
	}
	if res.Width != 2 || res.Height != 2 {
		t.Errorf("unexpected dimensions: %dx%d", res.Width, res.Height)
	}
	if res.Total != 5 || len(res.Skipped) != 0 {
		t.Errorf("unexpected counts: total=%d skipped=%v", res.Total, res.Skipped)
	}
	if res.LoopCount != 0 {
		t.Errorf("unexpected loop count: got %d want 0", res.LoopCount)
	}
	if diff := cmp.Diff(solid(2, 2, testBlue), res.Frames[1].Pixels.Pixels); diff != "" {
		t.Errorf("unexpected frame 1 pixels (-want +got):\n%s", diff)
	}
}

func TestDecodeConfiguredDelays(t *testing.T) {
	full := image.Rect(0, 0, 1, 1)
	data := encodeGIF(t, 1, 1, 0,
		testFrame{rect: full, fill: testRed, delay: 0},
		testFrame{rect: full, fill: testBlue, delay: 2},
	)

	dec := NewDecoder(BackendTypeGIF,
		WithDefaultDelay(250*time.Millisecond),
		WithMinDelay(40*time.Millisecond),
	)
	res, err := dec.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []time.Duration{250 * time.Millisecond, 40 * time.Millisecond}
	if diff := cmp.Diff(want, frameDelays(res)); diff != "" {
		t.Errorf("unexpected delays (-want +got):\n%s", diff)
	}
}

func TestDecodeSingleFrameHasNoLoopCount(t *testing.T) {
	data := encodeGIF(t, 3, 1, 0, testFrame{rect: image.Rect(0, 0, 3, 1), fill: testRed})

	res, err := NewDecoder(BackendTypeGIF).Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Frames) != 1 || res.Width != 3 || res.Height != 1 {
		t.Fatalf("unexpected result: %d frames, %dx%d", len(res.Frames), res.Width, res.Height)
	}
	if res.LoopCount != -1 {
		t.Errorf("unexpected loop count: got %d want -1", res.LoopCount)
	}
}

func TestDecodeLoopCount(t *testing.T) {
	full := image.Rect(0, 0, 1, 1)
	data := encodeGIF(t, 1, 1, 3,
		testFrame{rect: full, fill: testRed},
		testFrame{rect: full, fill: testBlue},
	)
	res, err := NewDecoder(BackendTypeGIF).Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.LoopCount != 3 {
		t.Errorf("unexpected loop count: got %d want 3", res.LoopCount)
	}
}

func TestDecodeSkipsCorruptFrame(t *testing.T) {
	full := image.Rect(0, 0, 2, 2)
	data := encodeGIF(t, 2, 2, 0,
		testFrame{rect: full, fill: testRed, delay: 10},
		testFrame{rect: full, fill: testBlue, delay: 20},
		testFrame{rect: full, fill: testRed, delay: 30},
	)

	stream, err := scanGIF(data)
	if err != nil {
		t.Fatalf("unexpected scan error: %v", err)
	}
	// An LZW minimum code size above 8 is rejected by the pixel decoder.
	stream.segments[1].image[1+gifImageDescLen] = 12

	res, err := NewDecoder(BackendTypeGIF).Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if res.Total != 3 {
		t.Errorf("unexpected total: got %d want 3", res.Total)
	}
	want := []time.Duration{100 * time.Millisecond, 300 * time.Millisecond}
	if diff := cmp.Diff(want, frameDelays(res)); diff != "" {
		t.Errorf("unexpected delays (-want +got):\n%s", diff)
	}
	if got := []int{res.Frames[0].Index, res.Frames[1].Index}; !cmp.Equal(got, []int{0, 2}) {
		t.Errorf("unexpected frame indices: %v", got)
	}
	if len(res.Skipped) != 1 {
		t.Fatalf("expected 1 skipped frame, got %v", res.Skipped)
	}
	var ferr *FrameError
	if !errors.As(res.Skipped[0], &ferr) || ferr.Index != 1 {
		t.Errorf("unexpected skip error: %v", res.Skipped[0])
	}
}

func TestDecodeTruncatedStream(t *testing.T) {
	full := image.Rect(0, 0, 4, 4)
	data := encodeGIF(t, 4, 4, 0,
		testFrame{rect: full, fill: testRed, delay: 10},
		testFrame{rect: full, fill: testBlue, delay: 10},
	)

	stream, err := scanGIF(data)
	if err != nil {
		t.Fatalf("unexpected scan error: %v", err)
	}
	cut := len(data) - len(stream.segments[1].image)/2 - 1

	res, err := NewDecoder(BackendTypeGIF).Decode(bytes.NewReader(data[:cut]))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Frames) != 1 || res.Total != 2 || len(res.Skipped) != 1 {
		t.Errorf("unexpected result: frames=%d total=%d skipped=%v", len(res.Frames), res.Total, res.Skipped)
	}
}

func TestDecodeErrors(t *testing.T) {
	full := image.Rect(0, 0, 2, 2)
	valid := encodeGIF(t, 2, 2, 0, testFrame{rect: full, fill: testRed})

	stream, err := scanGIF(valid)
	if err != nil {
		t.Fatalf("unexpected scan error: %v", err)
	}
	noFrames := append(append([]byte{}, stream.preamble...), gifTrailer)

	corrupt := append([]byte{}, valid...)
	s, _ := scanGIF(corrupt)
	s.segments[0].image[1+gifImageDescLen] = 12

	tests := []struct {
		name string
		data []byte
		want error
	}{
		{name: "empty", data: nil, want: ErrInvalidHeader},
		{name: "not_a_gif", data: []byte("\x89PNG\r\n\x1a\n0000000000"), want: ErrInvalidHeader},
		{name: "no_frames", data: noFrames, want: ErrNoFrames},
		{name: "all_frames_corrupt", data: corrupt, want: ErrNoFrames},
		{name: "garbage_after_header", data: append(append([]byte{}, stream.preamble...), 0x99, 0x01), want: ErrNoFrames},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := NewDecoder(BackendTypeGIF).Decode(bytes.NewReader(test.data))
			if !errors.Is(err, test.want) {
				t.Errorf("unexpected error: got %v want %v", err, test.want)
			}
		})
	}
}

func TestDecodeFramePolicies(t *testing.T) {
	data := encodeGIF(t, 2, 2, 0,
		testFrame{rect: image.Rect(0, 0, 2, 2), fill: testRed, delay: 10},
		testFrame{rect: image.Rect(1, 1, 2, 2), fill: testBlue, delay: 10},
	)

	composited := solid(2, 2, testRed)
	copy(composited[12:], []byte{0, 0, 255, 255})

	tests := []struct {
		name        string
		policy      FramePolicy
		wantFrames  int
		wantSecond  []byte
		wantSkipErr error
	}{
		{name: "composite", policy: FramePolicyComposite, wantFrames: 2, wantSecond: composited},
		{name: "reject", policy: FramePolicyReject, wantFrames: 1, wantSkipErr: ErrFrameSize},
		{name: "scale", policy: FramePolicyScale, wantFrames: 2, wantSecond: solid(2, 2, testBlue)},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			res, err := NewDecoder(BackendTypeGIF, WithFramePolicy(test.policy)).Decode(bytes.NewReader(data))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(res.Frames) != test.wantFrames {
				t.Fatalf("unexpected frame count: got %d want %d", len(res.Frames), test.wantFrames)
			}
			if res.Width != 2 || res.Height != 2 {
				t.Errorf("unexpected dimensions: %dx%d", res.Width, res.Height)
			}
			if test.wantSkipErr != nil {
				if len(res.Skipped) != 1 || !errors.Is(res.Skipped[0], test.wantSkipErr) {
					t.Errorf("unexpected skipped frames: %v", res.Skipped)
				}
				return
			}
			second := res.Frames[1].Pixels
			if second.Width != 2 || second.Height != 2 {
				t.Errorf("unexpected frame 1 size: %dx%d", second.Width, second.Height)
			}
			if diff := cmp.Diff(test.wantSecond, second.Pixels); diff != "" {
				t.Errorf("unexpected frame 1 pixels (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDecodeCompositeDisposal(t *testing.T) {
	tests := []struct {
		name     string
		disposal byte
		want     []byte
	}{
		{
			name:     "background",
			disposal: gif.DisposalBackground,
			want:     append(make([]byte, 12), 0, 0, 255, 255),
		},
		{
			name:     "none",
			disposal: gif.DisposalNone,
			want:     append(solid(1, 3, testRed), 0, 0, 255, 255),
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			data := encodeGIF(t, 2, 2, 0,
				testFrame{rect: image.Rect(0, 0, 2, 2), fill: testRed, delay: 10, disposal: test.disposal},
				testFrame{rect: image.Rect(1, 1, 2, 2), fill: testBlue, delay: 10},
			)
			res, err := NewDecoder(BackendTypeGIF).Decode(bytes.NewReader(data))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if diff := cmp.Diff(test.want, res.Frames[1].Pixels.Pixels); diff != "" {
				t.Errorf("unexpected frame 1 pixels (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDecodeCompositeDisposalPrevious(t *testing.T) {
	data := encodeGIF(t, 2, 1, 0,
		testFrame{rect: image.Rect(0, 0, 2, 1), fill: testRed, delay: 10},
		testFrame{rect: image.Rect(0, 0, 1, 1), fill: testBlue, delay: 10, disposal: gif.DisposalPrevious},
		testFrame{rect: image.Rect(1, 0, 2, 1), fill: testBlack, delay: 10},
	)
	res, err := NewDecoder(BackendTypeGIF).Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := [][]byte{
		solid(2, 1, testRed),
		{0, 0, 255, 255, 255, 0, 0, 255},
		{255, 0, 0, 255, 0, 0, 0, 255},
	}
	for i, w := range want {
		if diff := cmp.Diff(w, res.Frames[i].Pixels.Pixels); diff != "" {
			t.Errorf("unexpected frame %d pixels (-want +got):\n%s", i, diff)
		}
	}
}
