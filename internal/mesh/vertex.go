// Package mesh builds the CPU-side vertex arrays that get uploaded to the GPU.
package mesh

import (
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"
)

// Vertex matches the pipeline input layout: a 3-float position at offset 0
// and a 4-float colour at offset 12.
type Vertex struct {
	Position mgl32.Vec3
	Color    mgl32.Vec4
}

var (
	PositionOffset = int(unsafe.Offsetof(Vertex{}.Position))
	ColorOffset    = int(unsafe.Offsetof(Vertex{}.Color))
	Stride         = int(unsafe.Sizeof(Vertex{}))
)

var (
	Red   = mgl32.Vec4{1, 0, 0, 1}
	Green = mgl32.Vec4{0, 1, 0, 1}
	Blue  = mgl32.Vec4{0, 0, 1, 1}
)

// ColorForIndex colours loaded mesh vertices: every third vertex is blue,
// then even indices are green and the rest red.
func ColorForIndex(i int) mgl32.Vec4 {
	switch {
	case i%3 == 0:
		return Blue
	case i%2 == 0:
		return Green
	default:
		return Red
	}
}

// Triangle is the hardcoded fallback geometry. Heights are scaled by the
// aspect ratio so the triangle keeps its shape on a non-square swap chain.
func Triangle(aspect float32) []Vertex {
	return []Vertex{
		{Position: mgl32.Vec3{0.0, 0.25 * aspect, 0.0}, Color: Red},
		{Position: mgl32.Vec3{0.25, -0.25 * aspect, 0.0}, Color: Green},
		{Position: mgl32.Vec3{-0.25, -0.25 * aspect, 0.0}, Color: Blue},
	}
}

// SizeInBytes is the size of the vertex buffer needed for vertices.
func SizeInBytes(vertices []Vertex) int {
	return len(vertices) * Stride
}
