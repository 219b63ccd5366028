package renderer

import (
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_surface"
	"github.com/vkngwrapper/extensions/v3/khr_swapchain"

	"github.com/jdg534/Dx12Eng/internal/gfxerr"
	"github.com/jdg534/Dx12Eng/internal/logging"
)

type swapchainSupport struct {
	capabilities *khr_surface.SurfaceCapabilities
	formats      []khr_surface.SurfaceFormat
	presentModes []khr_surface.PresentMode
}

func (r *Renderer) querySwapchainSupport(device core1_0.PhysicalDevice) (swapchainSupport, error) {
	var support swapchainSupport
	var err error

	support.capabilities, _, err = r.surfaceExtension.GetPhysicalDeviceSurfaceCapabilities(r.surface, device)
	if err != nil {
		return support, err
	}

	support.formats, _, err = r.surfaceExtension.GetPhysicalDeviceSurfaceFormats(r.surface, device)
	if err != nil {
		return support, err
	}

	support.presentModes, _, err = r.surfaceExtension.GetPhysicalDeviceSurfacePresentModes(r.surface, device)
	return support, err
}

// chooseSurfaceFormat prefers 8-bit RGBA, then 8-bit BGRA, then whatever the
// surface lists first.
func chooseSurfaceFormat(formats []khr_surface.SurfaceFormat) khr_surface.SurfaceFormat {
	for _, want := range []core1_0.Format{core1_0.FormatR8G8B8A8UnsignedNormalized, core1_0.FormatB8G8R8A8UnsignedNormalized} {
		for _, format := range formats {
			if format.Format == want {
				return format
			}
		}
	}
	return formats[0]
}

// chooseImageCount asks for want images, kept inside what the surface allows.
func chooseImageCount(caps *khr_surface.SurfaceCapabilities, want int) int {
	count := want
	if count < caps.MinImageCount {
		count = caps.MinImageCount
	}
	if caps.MaxImageCount > 0 && count > caps.MaxImageCount {
		count = caps.MaxImageCount
	}
	return count
}

// chooseExtent uses the surface's own extent when it has one, otherwise the
// window size clamped to the supported range.
func chooseExtent(caps *khr_surface.SurfaceCapabilities, width, height int) core1_0.Extent2D {
	if caps.CurrentExtent.Width != -1 {
		return caps.CurrentExtent
	}

	width = clamp(width, caps.MinImageExtent.Width, caps.MaxImageExtent.Width)
	height = clamp(height, caps.MinImageExtent.Height, caps.MaxImageExtent.Height)
	return core1_0.Extent2D{Width: width, Height: height}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func (r *Renderer) createSwapchain(width, height int) error {
	r.swapchainExtension = khr_swapchain.CreateExtensionDriverFromCoreDriver(r.deviceDriver)

	support, err := r.querySwapchainSupport(r.adapter.device)
	if err != nil {
		return gfxerr.Wrap(err, gfxerr.SwapChainFailed, "query surface support")
	}

	surfaceFormat := chooseSurfaceFormat(support.formats)
	extent := chooseExtent(support.capabilities, width, height)
	imageCount := chooseImageCount(support.capabilities, r.cfg.Device.BufferCount)

	sharingMode := core1_0.SharingModeExclusive
	var queueFamilyIndices []int
	if families := r.adapter.families; families.graphics != families.present {
		sharingMode = core1_0.SharingModeConcurrent
		queueFamilyIndices = []int{families.graphics, families.present}
	}

	// FIFO is the only mode every surface supports; it discards on flip.
	swapchain, _, err := r.swapchainExtension.CreateSwapchain(nil, khr_swapchain.SwapchainCreateInfo{
		Surface: r.surface,

		MinImageCount:    imageCount,
		ImageFormat:      surfaceFormat.Format,
		ImageColorSpace:  surfaceFormat.ColorSpace,
		ImageExtent:      extent,
		ImageArrayLayers: 1,
		ImageUsage:       core1_0.ImageUsageColorAttachment,

		ImageSharingMode:   sharingMode,
		QueueFamilyIndices: queueFamilyIndices,

		PreTransform:   support.capabilities.CurrentTransform,
		CompositeAlpha: khr_surface.CompositeAlphaOpaque,
		PresentMode:    khr_surface.PresentModeFIFO,
		Clipped:        true,
	})
	if err != nil {
		return gfxerr.Wrap(err, gfxerr.SwapChainFailed, "create swap chain")
	}
	r.swapchain = swapchain
	r.format = surfaceFormat.Format
	r.extent = extent

	images, _, err := r.swapchainExtension.GetSwapchainImages(r.swapchain)
	if err != nil {
		return gfxerr.Wrap(err, gfxerr.SwapChainFailed, "get swap chain images")
	}
	r.images = images
	if len(images) != r.cfg.Device.BufferCount {
		logging.Logger().Warn("swap chain image count differs from request", "requested", r.cfg.Device.BufferCount, "got", len(images))
	}

	logging.Logger().Info("swap chain created", "format", r.format, "width", extent.Width, "height", extent.Height, "images", len(images))
	return nil
}

// createImageViews makes one render target view per back buffer.
func (r *Renderer) createImageViews() error {
	for i, image := range r.images {
		view, _, err := r.deviceDriver.CreateImageView(nil, core1_0.ImageViewCreateInfo{
			Image:    image,
			ViewType: core1_0.ImageViewType2D,
			Format:   r.format,
			SubresourceRange: core1_0.ImageSubresourceRange{
				AspectMask:     core1_0.ImageAspectColor,
				BaseMipLevel:   0,
				LevelCount:     1,
				BaseArrayLayer: 0,
				LayerCount:     1,
			},
		})
		if err != nil {
			return gfxerr.Wrapf(err, gfxerr.SwapChainFailed, "create view for back buffer %d", i)
		}
		r.imageViews = append(r.imageViews, view)
	}
	return nil
}

func (r *Renderer) createFramebuffers() error {
	for i, view := range r.imageViews {
		framebuffer, _, err := r.deviceDriver.CreateFramebuffer(nil, core1_0.FramebufferCreateInfo{
			RenderPass:  r.renderPass,
			Layers:      1,
			Attachments: []core1_0.ImageView{view},
			Width:       r.extent.Width,
			Height:      r.extent.Height,
		})
		if err != nil {
			return gfxerr.Wrapf(err, gfxerr.SwapChainFailed, "create framebuffer %d", i)
		}
		r.framebuffers = append(r.framebuffers, framebuffer)
	}
	return nil
}
