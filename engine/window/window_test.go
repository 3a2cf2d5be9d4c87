package window

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestBuilderOptions(t *testing.T) {
	tests := []struct {
		name    string
		options []WindowBuilderOption
		want    [6]int
	}{
		{
			name: "defaults_kept_for_zero_size",
			options: []WindowBuilderOption{
				WithSize(0, -1),
			},
			want: [6]int{1280, 720, 160, 120, 3840, 2160},
		},
		{
			name: "all_set",
			options: []WindowBuilderOption{
				WithSize(800, 600),
				WithMinSize(320, 240),
				WithMaxSize(1920, 1080),
			},
			want: [6]int{800, 600, 320, 240, 1920, 1080},
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			w := &engineWindow{width: 1280, height: 720, minWidth: 160, minHeight: 120, maxWidth: 3840, maxHeight: 2160}
			for _, opt := range test.options {
				opt(w)
			}
			got := [6]int{w.width, w.height, w.minWidth, w.minHeight, w.maxWidth, w.maxHeight}
			if diff := cmp.Diff(test.want, got); diff != "" {
				t.Errorf("unexpected window size (-want +got):\n%s", diff)
			}
		})
	}
}

func TestWindowWithoutPlatform(t *testing.T) {
	w := &engineWindow{}
	WithTitle("spin.gif")(w)

	var dropped []string
	w.SetDropCallback(func(paths []string) { dropped = paths })
	w.onDrop([]string{"/tmp/a.gif"})
	if diff := cmp.Diff([]string{"/tmp/a.gif"}, dropped); diff != "" {
		t.Errorf("unexpected drop (-want +got):\n%s", diff)
	}

	w.SetTitle("1.5x")
	if w.title != "1.5x" {
		t.Errorf("unexpected title %q", w.title)
	}
	if w.IsRunning() {
		t.Error("window without a platform window reports running")
	}
	if w.SurfaceDescriptor() != nil {
		t.Error("expected no surface without a platform window")
	}
	if err := w.Close(); err == nil {
		t.Error("expected closing an uninitialized window to fail")
	}
}
