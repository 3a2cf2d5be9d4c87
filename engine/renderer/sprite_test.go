package renderer

import (
	"testing"
	"unsafe"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/google/go-cmp/cmp"

	"github.com/Carmen-Shannon/oxy-anim/common"
)

func TestSpriteVertexStride(t *testing.T) {
	if got := unsafe.Sizeof(spriteVertex{}); got != spriteVertexStride {
		t.Errorf("spriteVertex is %d bytes, want %d", got, spriteVertexStride)
	}
	layout := spriteVertexLayout()
	if layout.ArrayStride != spriteVertexStride {
		t.Errorf("unexpected layout stride %d", layout.ArrayStride)
	}
}

func TestBuildSpriteQuad(t *testing.T) {
	quad := buildSpriteQuad(common.Rect{X: 0, Y: 0, Width: 50, Height: 25}, common.NoTint, 100, 50)

	white := [4]float32{1, 1, 1, 1}
	topLeft := spriteVertex{Position: [2]float32{-1, 1}, UV: [2]float32{0, 0}, Tint: white}
	bottomLeft := spriteVertex{Position: [2]float32{-1, 0}, UV: [2]float32{0, 1}, Tint: white}
	bottomRight := spriteVertex{Position: [2]float32{0, 0}, UV: [2]float32{1, 1}, Tint: white}
	topRight := spriteVertex{Position: [2]float32{0, 1}, UV: [2]float32{1, 0}, Tint: white}

	want := [6]spriteVertex{topLeft, bottomLeft, bottomRight, topLeft, bottomRight, topRight}
	if diff := cmp.Diff(want, quad); diff != "" {
		t.Errorf("unexpected quad (-want +got):\n%s", diff)
	}
}

func TestBuildSpriteQuadTint(t *testing.T) {
	quad := buildSpriteQuad(common.Rect{Width: 1, Height: 1}, common.NewTint(0, 0xFF, 0, 0x80), 10, 10)
	for i, v := range quad {
		if v.Tint != [4]float32{0, 1, 0, float32(0x80) / 255} {
			t.Errorf("vertex %d has tint %v", i, v.Tint)
		}
	}
}

func TestVisible(t *testing.T) {
	tests := []struct {
		name string
		rect common.Rect
		want bool
	}{
		{name: "inside", rect: common.Rect{X: 10, Y: 10, Width: 5, Height: 5}, want: true},
		{name: "partly_left", rect: common.Rect{X: -3, Y: 0, Width: 5, Height: 5}, want: true},
		{name: "fully_left", rect: common.Rect{X: -5, Y: 0, Width: 5, Height: 5}},
		{name: "below", rect: common.Rect{X: 0, Y: 50, Width: 5, Height: 5}},
		{name: "right", rect: common.Rect{X: 100, Y: 0, Width: 5, Height: 5}},
		{name: "empty", rect: common.Rect{X: 10, Y: 10}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := visible(test.rect, 100, 50); got != test.want {
				t.Errorf("visible(%+v) = %v, want %v", test.rect, got, test.want)
			}
		})
	}
}

func TestVertexBufferCapacity(t *testing.T) {
	base := uint64(minSpriteBufferQuads * spriteVerticesPerQuad * spriteVertexStride)
	tests := []struct {
		size uint64
		want uint64
	}{
		{size: 0, want: base},
		{size: base, want: base},
		{size: base + 1, want: base * 2},
		{size: base*4 + 1, want: base * 8},
	}
	for _, test := range tests {
		if got := vertexBufferCapacity(test.size); got != test.want {
			t.Errorf("vertexBufferCapacity(%d) = %d, want %d", test.size, got, test.want)
		}
	}
}

func TestPreferredSurfaceFormat(t *testing.T) {
	tests := []struct {
		name    string
		formats []wgpu.TextureFormat
		want    wgpu.TextureFormat
	}{
		{
			name:    "prefers_srgb",
			formats: []wgpu.TextureFormat{wgpu.TextureFormatBGRA8Unorm, wgpu.TextureFormatBGRA8UnormSrgb},
			want:    wgpu.TextureFormatBGRA8UnormSrgb,
		},
		{
			name:    "falls_back_to_first",
			formats: []wgpu.TextureFormat{wgpu.TextureFormatRGBA16Float, wgpu.TextureFormatBGRA8Unorm},
			want:    wgpu.TextureFormatRGBA16Float,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := preferredSurfaceFormat(test.formats); got != test.want {
				t.Errorf("unexpected format %v", got)
			}
		})
	}
}

func TestClearColorOf(t *testing.T) {
	if got := clearColorOf(common.NewTint(0, 0, 0, 0xFF)); got != (wgpu.Color{A: 1}) {
		t.Errorf("unexpected clear color %+v", got)
	}
	if clearColorOf(common.NoTint) != clearColorOf(defaultClearColor) {
		t.Error("NoTint should clear to the default color")
	}
}
