package renderer

import (
	"time"

	"github.com/vkngwrapper/core/v3/common"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_swapchain"

	"github.com/jdg534/Dx12Eng/internal/gfxerr"
	"github.com/jdg534/Dx12Eng/internal/logging"
)

// BackBuffers hands out swap chain images. Acquire signals ready once the
// image may be rendered into. Release consumes that signal for an image that
// will never be presented, so the semaphore is idle before it is destroyed.
type BackBuffers interface {
	Acquire(timeout time.Duration, ready core1_0.Semaphore) (int, common.VkResult, error)
	Release(ready core1_0.Semaphore) error
}

type swapchainImages struct {
	driver    core1_0.DeviceDriver
	extension khr_swapchain.ExtensionDriver
	swapchain khr_swapchain.Swapchain
	queue     core1_0.Queue
}

func (s *swapchainImages) Acquire(timeout time.Duration, ready core1_0.Semaphore) (int, common.VkResult, error) {
	return s.extension.AcquireNextImage(s.swapchain, timeout, &ready, nil)
}

func (s *swapchainImages) Release(ready core1_0.Semaphore) error {
	_, err := s.driver.QueueSubmit(s.queue, nil, core1_0.SubmitInfo{
		WaitSemaphores:   []core1_0.Semaphore{ready},
		WaitDstStageMask: []core1_0.PipelineStageFlags{core1_0.PipelineStageBottomOfPipe},
	})
	if err != nil {
		return gfxerr.Wrap(err, gfxerr.SyncTimeout, "release back buffer")
	}
	return nil
}

func (r *Renderer) acquireBackBuffer() error {
	if r.imageAcquired {
		return nil
	}

	timeout := common.NoTimeout
	if t := r.cfg.FenceTimeout(); t > 0 {
		timeout = t
	}

	imageIndex, res, err := r.backBuffers.Acquire(timeout, r.slots[r.sync.Slot()].imageAvailable)
	if res == khr_swapchain.VKErrorOutOfDate {
		return gfxerr.New(gfxerr.SwapChainFailed, "swap chain out of date")
	} else if err != nil {
		return gfxerr.Wrap(err, gfxerr.SwapChainFailed, "acquire back buffer")
	} else if res == core1_0.VKTimeout {
		return gfxerr.New(gfxerr.SyncTimeout, "no back buffer within %s", timeout)
	}

	r.frameIndex = imageIndex
	r.imageAcquired = true
	logging.Logger().Debug("back buffer acquired", "index", imageIndex, "fence", r.sync.LastSignaled())
	return nil
}

// releaseBackBuffer hands back an image that was acquired but not drawn.
func (r *Renderer) releaseBackBuffer() {
	if !r.imageAcquired || r.backBuffers == nil {
		return
	}
	r.imageAcquired = false
	if err := r.backBuffers.Release(r.slots[r.sync.Slot()].imageAvailable); err != nil {
		logging.Logger().Warn("release back buffer", "error", err)
	}
}

// FrameIndex is the back buffer the next frame renders into.
func (r *Renderer) FrameIndex() int {
	return r.frameIndex
}
