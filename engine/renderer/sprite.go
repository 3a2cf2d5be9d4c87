package renderer

import (
	_ "embed"

	"github.com/Carmen-Shannon/oxy-anim/common"
	"github.com/Carmen-Shannon/oxy-anim/engine/renderer/bind_group_provider"
)

//go:embed sprite.wgsl
var spriteShaderSource string

const (
	spriteVertexEntryPoint   = "vs_main"
	spriteFragmentEntryPoint = "fs_main"

	// spriteVerticesPerQuad is two triangles without an index buffer.
	spriteVerticesPerQuad = 6
)

// spriteVertex matches VertexInput in sprite.wgsl.
type spriteVertex struct {
	Position [2]float32
	UV       [2]float32
	Tint     [4]float32
}

// spriteVertexStride is the byte size of one spriteVertex.
const spriteVertexStride = 8 + 8 + 16

// spriteRun is a range of consecutive quads sampling the same texture.
type spriteRun struct {
	provider bind_group_provider.BindGroupProvider
	first    uint32
	count    uint32
}

// spriteBatch accumulates the quads drawn during a frame. Consecutive draws of the same texture share a run so
// they can be issued with one bind and one draw call.
type spriteBatch struct {
	vertices []spriteVertex
	runs     []spriteRun
}

// add appends a quad covering rect to the batch.
//
// Parameters:
//   - provider: the texture to sample
//   - rect: the destination rectangle in window pixels
//   - tint: the color multiplied into the texture
//   - viewportWidth: the surface width in pixels
//   - viewportHeight: the surface height in pixels
func (s *spriteBatch) add(provider bind_group_provider.BindGroupProvider, rect common.Rect, tint common.Tint, viewportWidth, viewportHeight int) {
	quad := buildSpriteQuad(rect, tint, viewportWidth, viewportHeight)
	first := uint32(len(s.vertices))
	s.vertices = append(s.vertices, quad[:]...)

	if n := len(s.runs); n > 0 && s.runs[n-1].provider == provider {
		s.runs[n-1].count += spriteVerticesPerQuad
		return
	}
	s.runs = append(s.runs, spriteRun{provider: provider, first: first, count: spriteVerticesPerQuad})
}

// live returns the runs whose texture has not been released since it was drawn.
func (s *spriteBatch) live() []spriteRun {
	runs := make([]spriteRun, 0, len(s.runs))
	for _, r := range s.runs {
		if !r.provider.Released() {
			runs = append(runs, r)
		}
	}
	return runs
}

// reset empties the batch, keeping its storage for the next frame.
func (s *spriteBatch) reset() {
	s.vertices = s.vertices[:0]
	clear(s.runs)
	s.runs = s.runs[:0]
}

// quads returns the number of quads in the batch.
func (s *spriteBatch) quads() int {
	return len(s.vertices) / spriteVerticesPerQuad
}

// buildSpriteQuad returns the two counter-clockwise triangles covering rect, with texture coordinates mapping the
// whole texture onto it.
//
// Parameters:
//   - rect: the destination rectangle in window pixels
//   - tint: the color multiplied into the texture
//   - viewportWidth: the surface width in pixels
//   - viewportHeight: the surface height in pixels
//
// Returns:
//   - [6]spriteVertex: the quad vertices
func buildSpriteQuad(rect common.Rect, tint common.Tint, viewportWidth, viewportHeight int) [spriteVerticesPerQuad]spriteVertex {
	left, top, right, bottom := common.ScreenToClip(rect, viewportWidth, viewportHeight)
	color := tint.Linear()

	topLeft := spriteVertex{Position: [2]float32{left, top}, UV: [2]float32{0, 0}, Tint: color}
	topRight := spriteVertex{Position: [2]float32{right, top}, UV: [2]float32{1, 0}, Tint: color}
	bottomLeft := spriteVertex{Position: [2]float32{left, bottom}, UV: [2]float32{0, 1}, Tint: color}
	bottomRight := spriteVertex{Position: [2]float32{right, bottom}, UV: [2]float32{1, 1}, Tint: color}

	return [spriteVerticesPerQuad]spriteVertex{
		topLeft, bottomLeft, bottomRight,
		topLeft, bottomRight, topRight,
	}
}

// visible reports whether any part of rect lies inside the viewport.
func visible(rect common.Rect, viewportWidth, viewportHeight int) bool {
	if rect.Empty() {
		return false
	}
	return rect.X < viewportWidth && rect.Y < viewportHeight && rect.X+rect.Width > 0 && rect.Y+rect.Height > 0
}
