// Package shader compiles the engine's WGSL shader source to SPIR-V at
// startup, resolving the vertex and pixel entry points the pipeline binds.
package shader

import (
	_ "embed"
	"os"

	"github.com/gogpu/naga"
	"github.com/gogpu/naga/ir"
	"github.com/gogpu/naga/spirv"

	"github.com/jdg534/Dx12Eng/internal/gfxerr"
	"github.com/jdg534/Dx12Eng/internal/logging"
)

const DefaultName = "DefaultShader.wgsl"

//go:embed DefaultShader.wgsl
var defaultSource string

// Program is a compiled SPIR-V module holding both entry points.
type Program struct {
	Name        string
	VertexEntry string
	PixelEntry  string
	SPIRV       []byte
}

// Code returns the module as the little-endian words vkCreateShaderModule takes.
func (p *Program) Code() []uint32 {
	b := p.SPIRV
	byteCode := make([]uint32, len(b)/4)
	for i := 0; i < len(byteCode); i++ {
		byteIndex := i * 4
		byteCode[i] = 0
		byteCode[i] |= uint32(b[byteIndex])
		byteCode[i] |= uint32(b[byteIndex+1]) << 8
		byteCode[i] |= uint32(b[byteIndex+2]) << 16
		byteCode[i] |= uint32(b[byteIndex+3]) << 24
	}

	return byteCode
}

// Default compiles the built-in shader.
func Default(vertexEntry, pixelEntry string) (*Program, error) {
	return Compile(DefaultName, defaultSource, vertexEntry, pixelEntry)
}

// Load compiles the WGSL file at path. An empty path selects the built-in shader.
func Load(path, vertexEntry, pixelEntry string) (*Program, error) {
	if path == "" {
		return Default(vertexEntry, pixelEntry)
	}

	source, err := os.ReadFile(path)
	if err != nil {
		return nil, gfxerr.Wrapf(err, gfxerr.ShaderCompileFailed, "read shader %s", path)
	}
	return Compile(path, string(source), vertexEntry, pixelEntry)
}

// Compile turns WGSL source into a Program. It fails unless source defines
// a vertex stage named vertexEntry and a fragment stage named pixelEntry.
func Compile(name, source, vertexEntry, pixelEntry string) (*Program, error) {
	ast, err := naga.Parse(source)
	if err != nil {
		return nil, gfxerr.Wrapf(err, gfxerr.ShaderCompileFailed, "parse %s", name)
	}

	module, err := naga.LowerWithSource(ast, source)
	if err != nil {
		return nil, gfxerr.Wrapf(err, gfxerr.ShaderCompileFailed, "lower %s", name)
	}

	if err := requireEntry(module, vertexEntry, ir.StageVertex); err != nil {
		return nil, gfxerr.Wrapf(err, gfxerr.ShaderCompileFailed, "compile %s", name)
	}
	if err := requireEntry(module, pixelEntry, ir.StageFragment); err != nil {
		return nil, gfxerr.Wrapf(err, gfxerr.ShaderCompileFailed, "compile %s", name)
	}

	validationErrors, err := naga.Validate(module)
	if err != nil {
		return nil, gfxerr.Wrapf(err, gfxerr.ShaderCompileFailed, "validate %s", name)
	}
	for _, v := range validationErrors {
		logging.Logger().Warn("shader validation", "shader", name, "error", v.Error())
	}

	code, err := naga.GenerateSPIRV(module, spirv.Options{Version: spirv.Version1_0})
	if err != nil {
		return nil, gfxerr.Wrapf(err, gfxerr.ShaderCompileFailed, "generate spir-v for %s", name)
	}
	if len(code) == 0 || len(code)%4 != 0 {
		return nil, gfxerr.New(gfxerr.ShaderCompileFailed, "%s produced %d bytes of spir-v", name, len(code))
	}

	logging.Logger().Debug("shader compiled", "shader", name, "bytes", len(code))
	return &Program{
		Name:        name,
		VertexEntry: vertexEntry,
		PixelEntry:  pixelEntry,
		SPIRV:       code,
	}, nil
}

func requireEntry(module *ir.Module, name string, stage ir.ShaderStage) error {
	for _, ep := range module.EntryPoints {
		if ep.Name != name {
			continue
		}
		if ep.Stage != stage {
			return gfxerr.New(gfxerr.ShaderCompileFailed, "entry point %s has stage %d, want %d", name, ep.Stage, stage)
		}
		return nil
	}
	return gfxerr.New(gfxerr.ShaderCompileFailed, "entry point %s not found", name)
}
