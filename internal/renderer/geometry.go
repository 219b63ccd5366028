package renderer

import (
	"bytes"
	"encoding/binary"
	"unsafe"

	"github.com/google/uuid"
	"github.com/vkngwrapper/core/v3/common"
	"github.com/vkngwrapper/core/v3/core1_0"

	"github.com/jdg534/Dx12Eng/internal/gfxerr"
	"github.com/jdg534/Dx12Eng/internal/logging"
	"github.com/jdg534/Dx12Eng/internal/mesh"
)

// VertexBufferView locates the vertices inside a buffer.
type VertexBufferView struct {
	Offset int
	Stride int
	Size   int
}

// Geometry is one drawable mesh resident in a host-visible vertex buffer.
// It is immutable once uploaded. The application owns it; the renderer only
// reads it while recording.
type Geometry struct {
	ID          uuid.UUID
	Buffer      core1_0.Buffer
	Memory      core1_0.DeviceMemory
	View        VertexBufferView
	VertexCount int

	driver core1_0.DeviceDriver
}

// Release frees the buffer and its memory. Safe on nil and when called twice.
func (g *Geometry) Release() {
	if g == nil || g.driver == nil {
		return
	}
	if g.released() && !g.Memory.Initialized() {
		return
	}

	// a frame still in flight may read the buffer
	if _, err := g.driver.DeviceWaitIdle(); err != nil {
		logging.Logger().Warn("wait before geometry release", "id", g.ID, "error", err)
	}
	if g.Buffer.Initialized() {
		g.driver.DestroyBuffer(g.Buffer, nil)
		g.Buffer = core1_0.Buffer{}
	}
	if g.Memory.Initialized() {
		g.driver.FreeMemory(g.Memory, nil)
		g.Memory = core1_0.DeviceMemory{}
	}
	g.VertexCount = 0
}

func (g *Geometry) released() bool {
	return g == nil || !g.Buffer.Initialized()
}

// UploadGeometry copies vertices into a new upload-heap vertex buffer.
func (r *Renderer) UploadGeometry(vertices []mesh.Vertex) (*Geometry, error) {
	if r.deviceDriver == nil || r.shutDown {
		return nil, gfxerr.New(gfxerr.GeometryUploadFailed, "renderer is not initialized")
	}
	if len(vertices) == 0 {
		return nil, gfxerr.New(gfxerr.GeometryUploadFailed, "no vertices to upload")
	}

	size := mesh.SizeInBytes(vertices)
	g := &Geometry{
		ID:          uuid.New(),
		VertexCount: len(vertices),
		View: VertexBufferView{
			Offset: 0,
			Stride: mesh.Stride,
			Size:   size,
		},
		driver: r.deviceDriver,
	}

	var err error
	g.Buffer, g.Memory, err = r.createBuffer(size, core1_0.BufferUsageVertexBuffer, core1_0.MemoryPropertyHostVisible|core1_0.MemoryPropertyHostCoherent)
	if err != nil {
		g.Release()
		return nil, err
	}

	if err := writeData(r.deviceDriver, g.Memory, 0, vertices); err != nil {
		g.Release()
		return nil, gfxerr.Wrapf(err, gfxerr.GeometryUploadFailed, "write %d vertices", len(vertices))
	}

	logging.Logger().Info("geometry uploaded", "id", g.ID, "vertices", g.VertexCount, "bytes", size)
	return g, nil
}

func (r *Renderer) createBuffer(size int, usage core1_0.BufferUsageFlags, properties core1_0.MemoryPropertyFlags) (core1_0.Buffer, core1_0.DeviceMemory, error) {
	buffer, _, err := r.deviceDriver.CreateBuffer(nil, core1_0.BufferCreateInfo{
		Size:        size,
		Usage:       usage,
		SharingMode: core1_0.SharingModeExclusive,
	})
	if err != nil {
		return core1_0.Buffer{}, core1_0.DeviceMemory{}, gfxerr.Wrapf(err, gfxerr.GeometryUploadFailed, "create buffer of %d bytes", size)
	}

	memRequirements := r.deviceDriver.GetBufferMemoryRequirements(buffer)
	memoryTypeIndex, err := r.findMemoryType(memRequirements.MemoryTypeBits, properties)
	if err != nil {
		return buffer, core1_0.DeviceMemory{}, err
	}

	memory, _, err := r.deviceDriver.AllocateMemory(nil, core1_0.MemoryAllocateInfo{
		AllocationSize:  memRequirements.Size,
		MemoryTypeIndex: memoryTypeIndex,
	})
	if err != nil {
		return buffer, core1_0.DeviceMemory{}, gfxerr.Wrap(err, gfxerr.GeometryUploadFailed, "allocate buffer memory")
	}

	if _, err = r.deviceDriver.BindBufferMemory(buffer, memory, 0); err != nil {
		return buffer, memory, gfxerr.Wrap(err, gfxerr.GeometryUploadFailed, "bind buffer memory")
	}
	logging.Logger().Debug("buffer created", "size", size, "allocated", memRequirements.Size, "memory_type", memoryTypeIndex)
	return buffer, memory, nil
}

// writeData maps memory and copies data into it in the device's byte order.
func writeData(driver core1_0.DeviceDriver, memory core1_0.DeviceMemory, offset int, data any) error {
	bufferSize := binary.Size(data)

	memoryPtr, _, err := driver.MapMemory(memory, offset, bufferSize, 0)
	if err != nil {
		return err
	}
	defer driver.UnmapMemory(memory)

	dataBuffer := unsafe.Slice((*byte)(memoryPtr), bufferSize)

	buf := &bytes.Buffer{}
	if err := binary.Write(buf, common.ByteOrder, data); err != nil {
		return err
	}

	copy(dataBuffer, buf.Bytes())
	return nil
}
