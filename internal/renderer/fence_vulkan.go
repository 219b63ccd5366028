package renderer

import (
	"time"

	"github.com/vkngwrapper/core/v3/common"
	"github.com/vkngwrapper/core/v3/core1_0"

	"github.com/jdg534/Dx12Eng/internal/gfxerr"
)

type pendingSignal struct {
	value uint64
	fence core1_0.Fence
}

// queueFence gives a queue a monotonically increasing completion counter.
// Each Signal submits an empty batch guarded by a binary fence; the counter
// is the value of the newest batch known to have finished. Retired fences
// are pooled so steady-state frames allocate nothing.
type queueFence struct {
	driver core1_0.DeviceDriver
	queue  core1_0.Queue

	free      []core1_0.Fence
	pending   []pendingSignal
	completed uint64
}

func newQueueFence(driver core1_0.DeviceDriver, queue core1_0.Queue) *queueFence {
	return &queueFence{driver: driver, queue: queue}
}

func (f *queueFence) Signal(value uint64) error {
	fence, err := f.take()
	if err != nil {
		return err
	}

	// no batches: the fence fires once everything queued before it is done
	if _, err := f.driver.QueueSubmit(f.queue, &fence); err != nil {
		f.free = append(f.free, fence)
		return gfxerr.Wrapf(err, gfxerr.SyncTimeout, "submit signal %d", value)
	}
	f.pending = append(f.pending, pendingSignal{value: value, fence: fence})
	return nil
}

func (f *queueFence) take() (core1_0.Fence, error) {
	if n := len(f.free); n > 0 {
		fence := f.free[n-1]
		f.free = f.free[:n-1]
		if _, err := f.driver.ResetFences(fence); err != nil {
			return core1_0.Fence{}, gfxerr.Wrap(err, gfxerr.SyncTimeout, "reset fence")
		}
		return fence, nil
	}

	fence, _, err := f.driver.CreateFence(nil, core1_0.FenceCreateInfo{})
	if err != nil {
		return core1_0.Fence{}, gfxerr.Wrap(err, gfxerr.SyncTimeout, "create fence")
	}
	return fence, nil
}

func (f *queueFence) Completed() (uint64, error) {
	for len(f.pending) > 0 {
		res, err := f.driver.WaitForFences(true, 0, f.pending[0].fence)
		if err != nil {
			return f.completed, gfxerr.Wrap(err, gfxerr.SyncTimeout, "poll fence")
		}
		if res != core1_0.VKSuccess {
			break
		}
		f.retire()
	}
	return f.completed, nil
}

func (f *queueFence) WaitFor(value uint64, timeout time.Duration) error {
	wait := common.NoTimeout
	if timeout > 0 {
		wait = timeout
	}

	for len(f.pending) > 0 && f.completed < value {
		res, err := f.driver.WaitForFences(true, wait, f.pending[0].fence)
		if err != nil {
			return gfxerr.Wrapf(err, gfxerr.SyncTimeout, "wait for fence value %d", value)
		}
		if res == core1_0.VKTimeout {
			return gfxerr.New(gfxerr.SyncTimeout, "fence value %d not reached within %s", value, timeout)
		}
		f.retire()
	}
	return nil
}

func (f *queueFence) retire() {
	done := f.pending[0]
	f.pending = f.pending[1:]
	f.completed = done.value
	f.free = append(f.free, done.fence)
}

// Destroy releases every fence. The caller must have drained the queue.
func (f *queueFence) Destroy() {
	for _, p := range f.pending {
		f.driver.DestroyFence(p.fence, nil)
	}
	for _, fence := range f.free {
		f.driver.DestroyFence(fence, nil)
	}
	f.pending = nil
	f.free = nil
}
