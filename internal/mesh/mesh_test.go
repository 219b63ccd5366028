package mesh

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jdg534/Dx12Eng/internal/gfxerr"
)

func TestVertexLayout(t *testing.T) {
	assert.Equal(t, 0, PositionOffset)
	assert.Equal(t, 12, ColorOffset)
	assert.Equal(t, 28, Stride)
	assert.Equal(t, 84, SizeInBytes(Triangle(1)))
}

func TestColorForIndex(t *testing.T) {
	want := []mgl32.Vec4{Blue, Red, Green, Blue, Green, Red, Blue}
	for i, w := range want {
		assert.Equal(t, w, ColorForIndex(i), "index %d", i)
	}

	// blue wins over green when both rules match
	assert.Equal(t, Blue, ColorForIndex(12))
	assert.Equal(t, Green, ColorForIndex(8))
	assert.Equal(t, Red, ColorForIndex(7))
}

func TestTriangleUsesAspectRatio(t *testing.T) {
	aspect := float32(800) / float32(600)
	tri := Triangle(aspect)
	require.Len(t, tri, 3)

	assert.Equal(t, mgl32.Vec3{0, 0.25 * aspect, 0}, tri[0].Position)
	assert.Equal(t, mgl32.Vec3{0.25, -0.25 * aspect, 0}, tri[1].Position)
	assert.Equal(t, mgl32.Vec3{-0.25, -0.25 * aspect, 0}, tri[2].Position)
	assert.Equal(t, Red, tri[0].Color)
	assert.Equal(t, Green, tri[1].Color)
	assert.Equal(t, Blue, tri[2].Color)

	height := tri[0].Position.Y() - tri[1].Position.Y()
	width := tri[1].Position.X() - tri[2].Position.X()
	assert.InDelta(t, aspect, height/width, 1e-6)
}

const quadOBJ = `o Quad
v -1.0 -1.0 1.0
v 1.0 -1.0 1.0
v 1.0 1.0 1.0
v -1.0 1.0 1.0
f 1 2 3 4
`

func TestLoadOBJTriangulatesAndConverts(t *testing.T) {
	vertices, err := LoadOBJ(strings.NewReader(quadOBJ), nil, 0.5)
	require.NoError(t, err)
	require.Len(t, vertices, 6)

	// fan (0, i, i-1): flipped winding of (0, i-1, i)
	wantPositions := []mgl32.Vec3{
		{-0.5, -0.5, -0.5}, {0.5, 0.5, -0.5}, {0.5, -0.5, -0.5},
		{-0.5, -0.5, -0.5}, {-0.5, 0.5, -0.5}, {0.5, 0.5, -0.5},
	}
	for i, v := range vertices {
		assert.Equal(t, wantPositions[i], v.Position, "vertex %d", i)
		assert.Equal(t, ColorForIndex(i), v.Color, "vertex %d", i)
	}
}

func TestLoadOBJRequiresExactlyOneMesh(t *testing.T) {
	two := quadOBJ + "o Second\nf 1 2 3\n"
	_, err := LoadOBJ(strings.NewReader(two), nil, 1)
	require.Error(t, err)
	assert.Equal(t, gfxerr.MeshLoadFailed, gfxerr.KindOf(err))
}

func TestLoadOBJRejectsEmptyMesh(t *testing.T) {
	_, err := LoadOBJ(strings.NewReader("o Empty\nv 0 0 0\n"), nil, 1)
	require.Error(t, err)
	assert.Equal(t, gfxerr.MeshLoadFailed, gfxerr.KindOf(err))
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "TestCube.obj")
	require.NoError(t, os.WriteFile(path, []byte(quadOBJ), 0o644))

	vertices, err := LoadFile(path, 1)
	require.NoError(t, err)
	assert.Len(t, vertices, 6)

	_, err = LoadFile(filepath.Join(dir, "missing.obj"), 1)
	require.Error(t, err)
	assert.Equal(t, gfxerr.MeshLoadFailed, gfxerr.KindOf(err))
}
