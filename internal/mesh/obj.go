package mesh

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/g3n/engine/loader/obj"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/jdg534/Dx12Eng/internal/gfxerr"
	"github.com/jdg534/Dx12Eng/internal/logging"
)

// LoadFile imports the single mesh in an OBJ file. A material library next
// to the file (same name, .mtl extension) is used when present.
func LoadFile(path string, scale float32) ([]Vertex, error) {
	meshFile, err := os.Open(path)
	if err != nil {
		return nil, gfxerr.Wrapf(err, gfxerr.MeshLoadFailed, "open mesh %s", path)
	}
	defer meshFile.Close()

	var matReader io.Reader = strings.NewReader("")
	matPath := strings.TrimSuffix(path, filepath.Ext(path)) + ".mtl"
	if matFile, err := os.Open(matPath); err == nil {
		defer matFile.Close()
		matReader = matFile
	}

	vertices, err := LoadOBJ(meshFile, matReader, scale)
	if err != nil {
		return nil, gfxerr.Wrapf(err, gfxerr.MeshLoadFailed, "load mesh %s", path)
	}

	logging.Logger().Info("mesh loaded", "path", path, "vertices", len(vertices))
	return vertices, nil
}

// LoadOBJ decodes an OBJ stream holding exactly one object and expands it
// into a non-indexed triangle list. Polygons are fan-triangulated, converted
// to left-handed coordinates (z negated, winding flipped) and scaled.
// Vertex colours follow ColorForIndex.
func LoadOBJ(meshReader, matReader io.Reader, scale float32) ([]Vertex, error) {
	if matReader == nil {
		matReader = strings.NewReader("")
	}

	decoder, err := obj.DecodeReader(meshReader, matReader)
	if err != nil {
		return nil, gfxerr.Wrap(err, gfxerr.MeshLoadFailed, "decode obj")
	}

	if len(decoder.Objects) != 1 {
		return nil, gfxerr.New(gfxerr.MeshLoadFailed, "expected exactly one mesh, found %d", len(decoder.Objects))
	}

	positionCount := len(decoder.Vertices) / 3
	position := func(index int) (mgl32.Vec3, error) {
		if index < 0 || index >= positionCount {
			return mgl32.Vec3{}, gfxerr.New(gfxerr.MeshLoadFailed, "face references vertex %d of %d", index, positionCount)
		}
		return mgl32.Vec3{
			decoder.Vertices[index*3] * scale,
			decoder.Vertices[index*3+1] * scale,
			-decoder.Vertices[index*3+2] * scale,
		}, nil
	}

	var vertices []Vertex
	emit := func(index int) error {
		pos, err := position(index)
		if err != nil {
			return err
		}
		vertices = append(vertices, Vertex{Position: pos, Color: ColorForIndex(len(vertices))})
		return nil
	}

	for _, face := range decoder.Objects[0].Faces {
		if len(face.Vertices) < 3 {
			return nil, gfxerr.New(gfxerr.MeshLoadFailed, "face with %d vertices", len(face.Vertices))
		}
		for i := 2; i < len(face.Vertices); i++ {
			for _, corner := range [3]int{0, i, i - 1} {
				if err := emit(face.Vertices[corner]); err != nil {
					return nil, err
				}
			}
		}
	}

	if len(vertices) == 0 {
		return nil, gfxerr.New(gfxerr.MeshLoadFailed, "mesh %q has no faces", decoder.Objects[0].Name)
	}
	return vertices, nil
}
