package shader

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jdg534/Dx12Eng/internal/gfxerr"
)

const spirvMagic = 0x07230203

func TestDefaultCompiles(t *testing.T) {
	p, err := Default("VSMain", "PSMain")
	require.NoError(t, err)
	assert.Equal(t, DefaultName, p.Name)
	assert.Equal(t, "VSMain", p.VertexEntry)
	assert.Equal(t, "PSMain", p.PixelEntry)

	code := p.Code()
	require.NotEmpty(t, code)
	assert.Equal(t, len(p.SPIRV)/4, len(code))
	assert.Equal(t, uint32(spirvMagic), code[0])
}

func TestCompileChecksEntryPoints(t *testing.T) {
	tests := []struct {
		name   string
		vs, ps string
	}{
		{"missing vertex", "main", "PSMain"},
		{"missing pixel", "VSMain", "main"},
		{"pixel bound as vertex", "PSMain", "PSMain"},
		{"vertex bound as pixel", "VSMain", "VSMain"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compile("test.wgsl", defaultSource, tt.vs, tt.ps)
			require.Error(t, err)
			assert.Equal(t, gfxerr.ShaderCompileFailed, gfxerr.KindOf(err))
		})
	}
}

func TestCompileRejectsBadSource(t *testing.T) {
	_, err := Compile("broken.wgsl", "fn VSMain( -> {", "VSMain", "PSMain")
	require.Error(t, err)
	assert.Equal(t, gfxerr.ShaderCompileFailed, gfxerr.KindOf(err))
}

func TestLoad(t *testing.T) {
	p, err := Load("", "VSMain", "PSMain")
	require.NoError(t, err)
	assert.Equal(t, DefaultName, p.Name)

	path := filepath.Join(t.TempDir(), "Custom.wgsl")
	require.NoError(t, os.WriteFile(path, []byte(defaultSource), 0o644))
	p, err = Load(path, "VSMain", "PSMain")
	require.NoError(t, err)
	assert.Equal(t, path, p.Name)

	_, err = Load(filepath.Join(t.TempDir(), "missing.wgsl"), "VSMain", "PSMain")
	require.Error(t, err)
	assert.Equal(t, gfxerr.ShaderCompileFailed, gfxerr.KindOf(err))
}

func TestCodeLittleEndian(t *testing.T) {
	p := &Program{SPIRV: []byte{0x03, 0x02, 0x23, 0x07, 0x01, 0x00, 0x00, 0x00}}
	assert.Equal(t, []uint32{spirvMagic, 1}, p.Code())
}
