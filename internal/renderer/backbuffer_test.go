package renderer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/core/v3/common"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_swapchain"

	"github.com/jdg534/Dx12Eng/internal/config"
	"github.com/jdg534/Dx12Eng/internal/gfxerr"
)

// fakeBackBuffers hands out images round robin, like a FIFO swap chain.
type fakeBackBuffers struct {
	images   int
	next     int
	acquired []int
	released int

	result common.VkResult
}

func (b *fakeBackBuffers) Acquire(timeout time.Duration, ready core1_0.Semaphore) (int, common.VkResult, error) {
	if b.result != core1_0.VKSuccess {
		return 0, b.result, nil
	}
	index := b.next
	b.next = (b.next + 1) % b.images
	b.acquired = append(b.acquired, index)
	return index, core1_0.VKSuccess, nil
}

func (b *fakeBackBuffers) Release(ready core1_0.Semaphore) error {
	b.released++
	return nil
}

func runningRenderer(frames int, buffers BackBuffers) (*Renderer, *fakeFence) {
	fence := &fakeFence{}
	r := New(config.Default())
	r.slots = make([]frameSlot, frames)
	r.sync = NewFrameSync(fence, frames, 0)
	r.backBuffers = buffers
	r.initialized = true
	return r, fence
}

func TestFrameIndexFollowsAcquiredImage(t *testing.T) {
	images := &fakeBackBuffers{images: 2}
	r, fence := runningRenderer(1, images)

	require.NoError(t, r.WaitForLastFrame())
	assert.Equal(t, 0, r.FrameIndex())
	assert.Equal(t, []int{0}, images.acquired)

	for frame := 1; frame <= 4; frame++ {
		// the frame draws into the image the previous wait acquired
		_, err := r.beginFrame()
		require.NoError(t, err)
		assert.Len(t, images.acquired, frame)

		require.NoError(t, r.nextFrame())
		assert.Equal(t, frame%2, r.FrameIndex())
		assert.Equal(t, images.acquired[len(images.acquired)-1], r.FrameIndex())
		assert.Equal(t, fence.completed, r.sync.LastSignaled())
	}
	assert.Equal(t, []int{0, 1, 0, 1, 0}, images.acquired)

	// an image is already held, so waiting again keeps it
	require.NoError(t, r.WaitForLastFrame())
	assert.Len(t, images.acquired, 5)
	assert.Equal(t, 0, r.FrameIndex())
}

func TestFrameIndexWithTwoFramesInFlight(t *testing.T) {
	images := &fakeBackBuffers{images: 2}
	r, fence := runningRenderer(2, images)
	require.NoError(t, r.WaitForLastFrame())

	for frame := 1; frame <= 4; frame++ {
		_, err := r.beginFrame()
		require.NoError(t, err)
		require.NoError(t, r.nextFrame())
		assert.Equal(t, frame%2, r.FrameIndex())
	}
	assert.Equal(t, []int{0, 1, 0, 1, 0}, images.acquired)
	assert.Equal(t, []uint64{1, 2, 3, 4, 5}, fence.signalled)
}

func TestAcquireFailures(t *testing.T) {
	tests := []struct {
		name   string
		result common.VkResult
		kind   gfxerr.Kind
	}{
		{"out of date", khr_swapchain.VKErrorOutOfDate, gfxerr.SwapChainFailed},
		{"timeout", core1_0.VKTimeout, gfxerr.SyncTimeout},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			images := &fakeBackBuffers{images: 2, result: tt.result}
			r, _ := runningRenderer(1, images)

			err := r.WaitForLastFrame()
			require.Error(t, err)
			assert.Equal(t, tt.kind, gfxerr.KindOf(err))

			_, err = r.beginFrame()
			assert.Equal(t, tt.kind, gfxerr.KindOf(err))
		})
	}
}

func TestShutdownReleasesHeldImage(t *testing.T) {
	images := &fakeBackBuffers{images: 2}
	r, _ := runningRenderer(1, images)
	require.NoError(t, r.WaitForLastFrame())

	r.Shutdown()
	assert.Equal(t, 1, images.released)

	r.Shutdown()
	assert.Equal(t, 1, images.released)
}

func TestShutdownWithoutHeldImage(t *testing.T) {
	images := &fakeBackBuffers{images: 2}
	r, _ := runningRenderer(1, images)

	r.Shutdown()
	assert.Zero(t, images.released)
}
