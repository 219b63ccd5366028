package renderer

import (
	"github.com/google/uuid"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_portability_subset"
	"github.com/vkngwrapper/extensions/v3/khr_swapchain"

	"github.com/jdg534/Dx12Eng/internal/gfxerr"
	"github.com/jdg534/Dx12Eng/internal/logging"
)

var deviceExtensions = []string{khr_swapchain.ExtensionName}

// adapterInfo is what adapter selection needs to know about a physical
// device.
type adapterInfo struct {
	index    int
	name     string
	software bool
	// suitable is true when the device has graphics and present queues and
	// supports the swap chain extension.
	suitable bool
}

// pickAdapter returns the position in adapters of the device to use. The
// hardware path skips software rasterizers and takes the first suitable
// device; the warp path takes the first suitable software device.
func pickAdapter(adapters []adapterInfo, useWarp bool) (int, error) {
	for i, a := range adapters {
		if a.software == useWarp && a.suitable {
			return i, nil
		}
	}

	kind := "hardware"
	if useWarp {
		kind = "software"
	}
	return -1, gfxerr.New(gfxerr.AdapterNotFound, "no suitable %s adapter among %d", kind, len(adapters))
}

type queueFamilies struct {
	graphics int
	present  int
}

type adapter struct {
	info     adapterInfo
	device   core1_0.PhysicalDevice
	families queueFamilies
	cacheID  uuid.UUID
}

func (r *Renderer) pickPhysicalDevice() error {
	physicalDevices, _, err := r.instanceDriver.EnumeratePhysicalDevices()
	if err != nil {
		return gfxerr.Wrap(err, gfxerr.AdapterNotFound, "enumerate physical devices")
	}

	candidates := make([]adapter, 0, len(physicalDevices))
	infos := make([]adapterInfo, 0, len(physicalDevices))
	for idx, device := range physicalDevices {
		props, err := r.instanceDriver.GetPhysicalDeviceProperties(device)
		if err != nil {
			return gfxerr.Wrapf(err, gfxerr.AdapterNotFound, "read properties of device %d", idx)
		}

		a := adapter{
			info: adapterInfo{
				index:    idx,
				name:     props.DriverName,
				software: props.DriverType == core1_0.PhysicalDeviceTypeCPU,
			},
			device:  device,
			cacheID: props.PipelineCacheUUID,
		}
		a.families, a.info.suitable = r.checkDevice(device)

		logging.Logger().Debug("adapter found", "index", idx, "name", a.info.name, "software", a.info.software, "suitable", a.info.suitable)
		candidates = append(candidates, a)
		infos = append(infos, a.info)
	}

	chosen, err := pickAdapter(infos, r.cfg.Device.UseWarp)
	if err != nil {
		return err
	}
	r.adapter = candidates[chosen]

	logging.Logger().Info("adapter chosen", "name", r.adapter.info.name, "software", r.adapter.info.software, "pipeline_cache", r.adapter.cacheID)
	return nil
}

func (r *Renderer) checkDevice(device core1_0.PhysicalDevice) (queueFamilies, bool) {
	families, complete, err := r.findQueueFamilies(device)
	if err != nil || !complete {
		return families, false
	}

	extensions, _, err := r.instanceDriver.EnumerateDeviceExtensionProperties(device)
	if err != nil {
		return families, false
	}
	for _, extension := range deviceExtensions {
		if _, ok := extensions[extension]; !ok {
			return families, false
		}
	}

	support, err := r.querySwapchainSupport(device)
	if err != nil {
		return families, false
	}
	return families, len(support.formats) > 0 && len(support.presentModes) > 0
}

func (r *Renderer) findQueueFamilies(device core1_0.PhysicalDevice) (queueFamilies, bool, error) {
	families := queueFamilies{graphics: -1, present: -1}
	queueFamilyProps := r.instanceDriver.GetPhysicalDeviceQueueFamilyProperties(device)

	for idx, family := range queueFamilyProps {
		if family.QueueFlags&core1_0.QueueGraphics != 0 && families.graphics < 0 {
			families.graphics = idx
		}

		supported, _, err := r.surfaceExtension.GetPhysicalDeviceSurfaceSupport(r.surface, device, idx)
		if err != nil {
			return families, false, err
		}
		if supported && families.present < 0 {
			families.present = idx
		}

		if families.graphics >= 0 && families.present >= 0 {
			return families, true, nil
		}
	}
	return families, false, nil
}

// createLogicalDevice creates the device and fetches its single direct queue,
// plus a separate present queue when the families differ.
func (r *Renderer) createLogicalDevice() error {
	families := r.adapter.families
	unique := []int{families.graphics}
	if families.present != families.graphics {
		unique = append(unique, families.present)
	}

	var queueInfos []core1_0.DeviceQueueCreateInfo
	for _, family := range unique {
		queueInfos = append(queueInfos, core1_0.DeviceQueueCreateInfo{
			QueueFamilyIndex: family,
			QueuePriorities:  []float32{1.0},
		})
	}

	extensionNames := append([]string(nil), deviceExtensions...)
	extensions, _, err := r.instanceDriver.EnumerateDeviceExtensionProperties(r.adapter.device)
	if err != nil {
		return gfxerr.Wrap(err, gfxerr.DeviceCreationFailed, "enumerate device extensions")
	}
	if _, ok := extensions[khr_portability_subset.ExtensionName]; ok {
		extensionNames = append(extensionNames, khr_portability_subset.ExtensionName)
	}

	device, _, err := r.instanceDriver.CreateDevice(r.adapter.device, nil, core1_0.DeviceCreateInfo{
		QueueCreateInfos:      queueInfos,
		EnabledExtensionNames: extensionNames,
	})
	if err != nil {
		return gfxerr.Wrapf(err, gfxerr.DeviceCreationFailed, "create device on %s", r.adapter.info.name)
	}
	r.deviceDriver, err = r.instanceDriver.BuildDeviceDriver(device)
	if err != nil {
		return gfxerr.Wrap(err, gfxerr.DeviceCreationFailed, "load device functions")
	}

	r.graphicsQueue = r.deviceDriver.GetQueue(families.graphics, 0)
	r.presentQueue = r.deviceDriver.GetQueue(families.present, 0)
	return nil
}

func (r *Renderer) findMemoryType(typeFilter uint32, properties core1_0.MemoryPropertyFlags) (int, error) {
	memProperties := r.instanceDriver.GetPhysicalDeviceMemoryProperties(r.adapter.device)
	for i, memoryType := range memProperties.MemoryTypes {
		typeBit := uint32(1 << i)
		if typeFilter&typeBit != 0 && memoryType.PropertyFlags&properties == properties {
			return i, nil
		}
	}
	return 0, gfxerr.New(gfxerr.GeometryUploadFailed, "no memory type matches filter %#x", typeFilter)
}
