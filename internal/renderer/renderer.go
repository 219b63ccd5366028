// Package renderer owns the GPU object graph and runs the frame lifecycle:
// begin a frame, append one draw per geometry, then submit, present and wait.
//
// The device is driven through Vulkan. A single direct queue, a two-image
// swap chain, an empty pipeline layout and one pipeline are created at Init.
// Command memory lives in frame slots, and FrameSync guarantees a slot is
// never reset while the GPU may still read it.
package renderer

import (
	"github.com/cockroachdb/errors"
	"github.com/veandco/go-sdl2/sdl"
	"github.com/vkngwrapper/core/v3"
	"github.com/vkngwrapper/core/v3/common"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/ext_debug_utils"
	"github.com/vkngwrapper/extensions/v3/khr_portability_enumeration"
	"github.com/vkngwrapper/extensions/v3/khr_surface"
	"github.com/vkngwrapper/extensions/v3/khr_swapchain"
	vkng_sdl2 "github.com/vkngwrapper/integrations/sdl2/v3"

	"github.com/jdg534/Dx12Eng/internal/config"
	"github.com/jdg534/Dx12Eng/internal/gfxerr"
	"github.com/jdg534/Dx12Eng/internal/logging"
	"github.com/jdg534/Dx12Eng/internal/shader"
)

const validationLayer = "VK_LAYER_KHRONOS_validation"

// Surface is the window the swap chain presents into.
type Surface interface {
	Handle() *sdl.Window
	Size() (int, int)
}

// frameSlot is the command memory of one frame in flight.
type frameSlot struct {
	pool           core1_0.CommandPool
	commands       core1_0.CommandBuffer
	imageAvailable core1_0.Semaphore
}

type Renderer struct {
	cfg config.Config

	globalDriver   core1_0.GlobalDriver
	instanceDriver core1_0.CoreInstanceDriver
	deviceDriver   core1_0.CoreDeviceDriver

	debugDriver      ext_debug_utils.ExtensionDriver
	debugMessenger   ext_debug_utils.DebugUtilsMessenger
	surfaceExtension khr_surface.ExtensionDriver
	surface          khr_surface.Surface

	adapter       adapter
	graphicsQueue core1_0.Queue
	presentQueue  core1_0.Queue

	swapchainExtension khr_swapchain.ExtensionDriver
	swapchain          khr_swapchain.Swapchain
	format             core1_0.Format
	extent             core1_0.Extent2D
	images             []core1_0.Image
	imageViews         []core1_0.ImageView
	framebuffers       []core1_0.Framebuffer
	renderFinished     []core1_0.Semaphore
	backBuffers        BackBuffers

	renderPass     core1_0.RenderPass
	pipelineLayout core1_0.PipelineLayout
	pipeline       core1_0.Pipeline

	slots []frameSlot
	fence *queueFence
	sync  *FrameSync

	frameIndex    int
	imageAcquired bool
	recording     bool
	initialized   bool
	shutDown      bool
}

func New(cfg config.Config) *Renderer {
	return &Renderer{cfg: cfg}
}

// Init builds the device objects for surface and the pipeline for program,
// then waits once so the first back buffer is known. On failure the objects
// created so far stay alive until Shutdown.
func (r *Renderer) Init(surface Surface, program *shader.Program) error {
	if r.initialized || r.shutDown {
		return gfxerr.New(gfxerr.DeviceCreationFailed, "renderer already initialized or shut down")
	}
	if surface == nil || program == nil {
		return gfxerr.New(gfxerr.DeviceCreationFailed, "renderer needs a surface and a shader program")
	}
	window := surface.Handle()
	if window == nil {
		return gfxerr.New(gfxerr.DeviceCreationFailed, "surface has no window")
	}

	var err error
	r.globalDriver, err = core.CreateDriverFromProcAddr(sdl.VulkanGetVkGetInstanceProcAddr())
	if err != nil {
		return errors.WithHint(
			gfxerr.Wrap(err, gfxerr.DeviceCreationFailed, "load vulkan"),
			"install a Vulkan driver")
	}

	steps := []func() error{
		func() error { return r.createInstance(window) },
		r.setupDebugMessenger,
		func() error { return r.createSurface(window) },
		r.pickPhysicalDevice,
		r.createLogicalDevice,
		func() error {
			width, height := surface.Size()
			return r.createSwapchain(width, height)
		},
		r.createImageViews,
		r.createRenderPass,
		func() error { return r.createPipeline(program) },
		r.createFramebuffers,
		r.createFrameSlots,
		r.createSyncObjects,
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}
	r.initialized = true

	return r.WaitForLastFrame()
}

func (r *Renderer) createInstance(window *sdl.Window) error {
	instanceOptions := core1_0.InstanceCreateInfo{
		ApplicationName:    r.cfg.Window.ClassName,
		ApplicationVersion: common.CreateVersion(1, 0, 0),
		EngineName:         r.cfg.Window.ClassName,
		EngineVersion:      common.CreateVersion(1, 0, 0),
		APIVersion:         common.Vulkan1_2,
	}

	extensions, _, err := r.globalDriver.AvailableExtensions()
	if err != nil {
		return gfxerr.Wrap(err, gfxerr.DeviceCreationFailed, "list instance extensions")
	}
	for _, ext := range window.VulkanGetInstanceExtensions() {
		if _, ok := extensions[ext]; !ok {
			return gfxerr.New(gfxerr.DeviceCreationFailed, "missing instance extension %s", ext)
		}
		instanceOptions.EnabledExtensionNames = append(instanceOptions.EnabledExtensionNames, ext)
	}

	if _, ok := extensions[khr_portability_enumeration.ExtensionName]; ok {
		instanceOptions.EnabledExtensionNames = append(instanceOptions.EnabledExtensionNames, khr_portability_enumeration.ExtensionName)
		instanceOptions.Flags |= khr_portability_enumeration.InstanceCreateEnumeratePortability
	}

	if r.cfg.Device.Debug {
		layers, _, err := r.globalDriver.AvailableLayers()
		if err != nil {
			return gfxerr.Wrap(err, gfxerr.DeviceCreationFailed, "list instance layers")
		}
		_, hasLayer := layers[validationLayer]
		_, hasDebugUtils := extensions[ext_debug_utils.ExtensionName]
		if hasLayer && hasDebugUtils {
			instanceOptions.EnabledLayerNames = append(instanceOptions.EnabledLayerNames, validationLayer)
			instanceOptions.EnabledExtensionNames = append(instanceOptions.EnabledExtensionNames, ext_debug_utils.ExtensionName)
			instanceOptions.Next = r.debugMessengerOptions()
		} else {
			logging.Logger().Warn("debug layer unavailable, continuing without it", "layer", validationLayer)
			r.cfg.Device.Debug = false
		}
	}

	instance, _, err := r.globalDriver.CreateInstance(nil, instanceOptions)
	if err != nil {
		return gfxerr.Wrap(err, gfxerr.DeviceCreationFailed, "create instance")
	}
	r.instanceDriver, err = r.globalDriver.BuildInstanceDriver(instance)
	if err != nil {
		return gfxerr.Wrap(err, gfxerr.DeviceCreationFailed, "load instance functions")
	}
	return nil
}

func (r *Renderer) debugMessengerOptions() ext_debug_utils.DebugUtilsMessengerCreateInfo {
	return ext_debug_utils.DebugUtilsMessengerCreateInfo{
		MessageSeverity: ext_debug_utils.SeverityError | ext_debug_utils.SeverityWarning,
		MessageType:     ext_debug_utils.TypeGeneral | ext_debug_utils.TypeValidation | ext_debug_utils.TypePerformance,
		UserCallback:    logDebug,
	}
}

func logDebug(msgType ext_debug_utils.DebugUtilsMessageTypeFlags, severity ext_debug_utils.DebugUtilsMessageSeverityFlags, data *ext_debug_utils.DebugUtilsMessengerCallbackData) bool {
	if severity&ext_debug_utils.SeverityError != 0 {
		logging.Logger().Error("vulkan", "type", msgType, "message", data.Message)
	} else {
		logging.Logger().Warn("vulkan", "type", msgType, "message", data.Message)
	}
	return false
}

func (r *Renderer) setupDebugMessenger() error {
	if !r.cfg.Device.Debug {
		return nil
	}

	var err error
	r.debugDriver = ext_debug_utils.CreateExtensionDriverFromCoreDriver(r.instanceDriver)
	r.debugMessenger, _, err = r.debugDriver.CreateDebugUtilsMessenger(nil, r.debugMessengerOptions())
	if err != nil {
		return gfxerr.Wrap(err, gfxerr.DeviceCreationFailed, "create debug messenger")
	}
	return nil
}

func (r *Renderer) createSurface(window *sdl.Window) error {
	r.surfaceExtension = khr_surface.CreateExtensionDriverFromCoreDriver(r.instanceDriver)
	surface, err := vkng_sdl2.CreateSurface(r.instanceDriver.Instance(), r.surfaceExtension, window)
	if err != nil {
		return gfxerr.Wrap(err, gfxerr.SwapChainFailed, "create window surface")
	}
	r.surface = surface
	return nil
}

// createFrameSlots gives every frame in flight its own pool and command
// buffer. Buffers start out closed; each frame resets its own before use.
func (r *Renderer) createFrameSlots() error {
	for i := 0; i < r.cfg.Device.FramesInFlight; i++ {
		var slot frameSlot
		var err error

		slot.pool, _, err = r.deviceDriver.CreateCommandPool(nil, core1_0.CommandPoolCreateInfo{
			QueueFamilyIndex: r.adapter.families.graphics,
			Flags:            core1_0.CommandPoolCreateResetBuffer,
		})
		if err != nil {
			return gfxerr.Wrapf(err, gfxerr.DeviceCreationFailed, "create command pool %d", i)
		}
		r.slots = append(r.slots, slot)

		buffers, _, err := r.deviceDriver.AllocateCommandBuffers(core1_0.CommandBufferAllocateInfo{
			CommandPool:        slot.pool,
			Level:              core1_0.CommandBufferLevelPrimary,
			CommandBufferCount: 1,
		})
		if err != nil {
			return gfxerr.Wrapf(err, gfxerr.DeviceCreationFailed, "allocate command buffer %d", i)
		}
		r.slots[i].commands = buffers[0]

		r.slots[i].imageAvailable, _, err = r.deviceDriver.CreateSemaphore(nil, core1_0.SemaphoreCreateInfo{})
		if err != nil {
			return gfxerr.Wrapf(err, gfxerr.DeviceCreationFailed, "create acquire semaphore %d", i)
		}
	}
	return nil
}

func (r *Renderer) createSyncObjects() error {
	for i := range r.images {
		semaphore, _, err := r.deviceDriver.CreateSemaphore(nil, core1_0.SemaphoreCreateInfo{})
		if err != nil {
			return gfxerr.Wrapf(err, gfxerr.DeviceCreationFailed, "create present semaphore %d", i)
		}
		r.renderFinished = append(r.renderFinished, semaphore)
	}

	r.backBuffers = &swapchainImages{
		driver:    r.deviceDriver,
		extension: r.swapchainExtension,
		swapchain: r.swapchain,
		queue:     r.graphicsQueue,
	}
	r.fence = newQueueFence(r.deviceDriver, r.graphicsQueue)
	r.sync = NewFrameSync(r.fence, len(r.slots), r.cfg.FenceTimeout())
	return nil
}

func (r *Renderer) ready() error {
	if !r.initialized || r.shutDown {
		return gfxerr.New(gfxerr.CommandRecordingFailed, "renderer is not running")
	}
	return nil
}

// CreateInitialDrawingCommands starts the frame: it resets the current slot's
// commands, then clears the back buffer and binds the pipeline.
func (r *Renderer) CreateInitialDrawingCommands() error {
	commands, err := r.beginFrame()
	if err != nil {
		return err
	}
	if _, err := r.deviceDriver.ResetCommandBuffer(commands, 0); err != nil {
		return gfxerr.Wrap(err, gfxerr.CommandRecordingFailed, "reset command buffer")
	}
	if _, err := r.deviceDriver.BeginCommandBuffer(commands, core1_0.CommandBufferBeginInfo{
		Flags: core1_0.CommandBufferUsageOneTimeSubmit,
	}); err != nil {
		return gfxerr.Wrap(err, gfxerr.CommandRecordingFailed, "begin command buffer")
	}

	color := r.cfg.Device.ClearColor
	err = r.deviceDriver.CmdBeginRenderPass(commands, core1_0.SubpassContentsInline,
		core1_0.RenderPassBeginInfo{
			RenderPass:  r.renderPass,
			Framebuffer: r.framebuffers[r.frameIndex],
			RenderArea: core1_0.Rect2D{
				Offset: core1_0.Offset2D{X: 0, Y: 0},
				Extent: r.extent,
			},
			ClearValues: []core1_0.ClearValue{
				core1_0.ClearValueFloat{color[0], color[1], color[2], color[3]},
			},
		})
	if err != nil {
		return gfxerr.Wrap(err, gfxerr.CommandRecordingFailed, "begin render pass")
	}

	r.deviceDriver.CmdBindPipeline(commands, core1_0.PipelineBindPointGraphics, r.pipeline)
	r.recording = true
	return nil
}

// beginFrame makes sure the frame's back buffer is held and returns the
// current slot's commands. The image acquired by the last wait is reused.
func (r *Renderer) beginFrame() (core1_0.CommandBuffer, error) {
	if err := r.ready(); err != nil {
		return core1_0.CommandBuffer{}, err
	}
	if r.recording {
		return core1_0.CommandBuffer{}, gfxerr.New(gfxerr.CommandRecordingFailed, "frame already begun")
	}
	if err := r.acquireBackBuffer(); err != nil {
		return core1_0.CommandBuffer{}, err
	}
	return r.slots[r.sync.Slot()].commands, nil
}

// AppendDrawingCommands records a non-indexed draw of g. It may be called
// once per geometry between CreateInitialDrawingCommands and FinishDrawing.
func (r *Renderer) AppendDrawingCommands(g *Geometry) error {
	if !r.recording {
		return gfxerr.New(gfxerr.CommandRecordingFailed, "draw appended outside a frame")
	}
	if g.released() {
		return gfxerr.New(gfxerr.CommandRecordingFailed, "geometry has been released")
	}

	commands := r.slots[r.sync.Slot()].commands
	r.deviceDriver.CmdBindVertexBuffers(commands, 0, []core1_0.Buffer{g.Buffer}, []int{g.View.Offset})
	r.deviceDriver.CmdDraw(commands, g.VertexCount, 1, 0, 0)
	return nil
}

// FinishDrawing closes the frame's commands, submits them, presents, and
// waits until the next slot may be reused.
func (r *Renderer) FinishDrawing() error {
	if !r.recording {
		return gfxerr.New(gfxerr.CommandRecordingFailed, "no frame to finish")
	}
	r.recording = false

	slot := r.slots[r.sync.Slot()]
	r.deviceDriver.CmdEndRenderPass(slot.commands)
	if _, err := r.deviceDriver.EndCommandBuffer(slot.commands); err != nil {
		return gfxerr.Wrap(err, gfxerr.CommandRecordingFailed, "close command buffer")
	}

	_, err := r.deviceDriver.QueueSubmit(r.graphicsQueue, nil,
		core1_0.SubmitInfo{
			WaitSemaphores:   []core1_0.Semaphore{slot.imageAvailable},
			WaitDstStageMask: []core1_0.PipelineStageFlags{core1_0.PipelineStageColorAttachmentOutput},
			CommandBuffers:   []core1_0.CommandBuffer{slot.commands},
			SignalSemaphores: []core1_0.Semaphore{r.renderFinished[r.frameIndex]},
		},
	)
	if err != nil {
		return gfxerr.Wrap(err, gfxerr.CommandRecordingFailed, "submit frame")
	}

	res, err := r.swapchainExtension.QueuePresent(r.presentQueue, khr_swapchain.PresentInfo{
		WaitSemaphores: []core1_0.Semaphore{r.renderFinished[r.frameIndex]},
		Swapchains:     []khr_swapchain.Swapchain{r.swapchain},
		ImageIndices:   []int{r.frameIndex},
	})
	r.imageAcquired = false
	if res == khr_swapchain.VKErrorOutOfDate {
		return gfxerr.New(gfxerr.PresentFailed, "swap chain out of date")
	} else if err != nil {
		return gfxerr.Wrap(err, gfxerr.PresentFailed, "present")
	} else if res == khr_swapchain.VKSuboptimal {
		logging.Logger().Debug("swap chain suboptimal", "frame", r.frameIndex)
	}

	return r.nextFrame()
}

// nextFrame waits until the next slot may be reused, then acquires the back
// buffer it will render into.
func (r *Renderer) nextFrame() error {
	r.imageAcquired = false
	if err := r.sync.Advance(); err != nil {
		return err
	}
	return r.acquireBackBuffer()
}

// WaitForLastFrame blocks until everything submitted so far has completed,
// then refreshes the current back buffer.
func (r *Renderer) WaitForLastFrame() error {
	if !r.initialized || r.shutDown {
		return gfxerr.New(gfxerr.SyncTimeout, "renderer is not running")
	}
	if err := r.sync.Wait(); err != nil {
		return err
	}
	return r.acquireBackBuffer()
}

// Shutdown waits for the GPU and releases every object in reverse creation
// order. It is safe after a failed Init and when called more than once.
func (r *Renderer) Shutdown() {
	if r.shutDown {
		return
	}
	r.shutDown = true
	r.recording = false

	if r.sync != nil {
		r.releaseBackBuffer()
	}
	if r.deviceDriver != nil {
		if r.sync != nil {
			if err := r.sync.Wait(); err != nil {
				logging.Logger().Warn("final frame wait", "error", err)
			}
		}
		if _, err := r.deviceDriver.DeviceWaitIdle(); err != nil {
			logging.Logger().Warn("device wait idle", "error", err)
		}
	}

	if r.fence != nil {
		r.fence.Destroy()
		r.fence = nil
	}

	for _, semaphore := range r.renderFinished {
		r.deviceDriver.DestroySemaphore(semaphore, nil)
	}
	r.renderFinished = nil

	for _, slot := range r.slots {
		if slot.imageAvailable.Initialized() {
			r.deviceDriver.DestroySemaphore(slot.imageAvailable, nil)
		}
		if slot.commands.Initialized() {
			r.deviceDriver.FreeCommandBuffers(slot.commands)
		}
		if slot.pool.Initialized() {
			r.deviceDriver.DestroyCommandPool(slot.pool, nil)
		}
	}
	r.slots = nil

	for _, framebuffer := range r.framebuffers {
		r.deviceDriver.DestroyFramebuffer(framebuffer, nil)
	}
	r.framebuffers = nil

	if r.pipeline.Initialized() {
		r.deviceDriver.DestroyPipeline(r.pipeline, nil)
		r.pipeline = core1_0.Pipeline{}
	}

	if r.pipelineLayout.Initialized() {
		r.deviceDriver.DestroyPipelineLayout(r.pipelineLayout, nil)
		r.pipelineLayout = core1_0.PipelineLayout{}
	}

	if r.renderPass.Initialized() {
		r.deviceDriver.DestroyRenderPass(r.renderPass, nil)
		r.renderPass = core1_0.RenderPass{}
	}

	for _, view := range r.imageViews {
		r.deviceDriver.DestroyImageView(view, nil)
	}
	r.imageViews = nil
	r.images = nil

	if r.swapchain.Initialized() {
		r.swapchainExtension.DestroySwapchain(r.swapchain, nil)
		r.swapchain = khr_swapchain.Swapchain{}
	}

	if r.deviceDriver != nil {
		r.deviceDriver.DestroyDevice(nil)
		r.deviceDriver = nil
	}

	if r.debugMessenger.Initialized() {
		r.debugDriver.DestroyDebugUtilsMessenger(r.debugMessenger, nil)
		r.debugMessenger = ext_debug_utils.DebugUtilsMessenger{}
	}

	if r.surface.Initialized() {
		r.surfaceExtension.DestroySurface(r.surface, nil)
		r.surface = khr_surface.Surface{}
	}

	if r.instanceDriver != nil {
		r.instanceDriver.DestroyInstance(nil)
		r.instanceDriver = nil
	}

	if r.initialized {
		logging.Logger().Info("renderer shut down")
	}
}
