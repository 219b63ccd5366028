package renderer

import (
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jdg534/Dx12Eng/internal/gfxerr"
)

// fakeFence stands in for the GPU. Signalled values complete only when a
// wait reaches them, or when the test retires them with finish.
type fakeFence struct {
	signalled []uint64
	completed uint64
	waits     []uint64

	signalErr error
	hang      bool
}

func (f *fakeFence) Signal(value uint64) error {
	if f.signalErr != nil {
		return f.signalErr
	}
	f.signalled = append(f.signalled, value)
	return nil
}

func (f *fakeFence) Completed() (uint64, error) {
	return f.completed, nil
}

func (f *fakeFence) WaitFor(value uint64, timeout time.Duration) error {
	f.waits = append(f.waits, value)
	if f.hang {
		return gfxerr.New(gfxerr.SyncTimeout, "fence stuck below %d", value)
	}
	f.finish(value)
	return nil
}

func (f *fakeFence) finish(value uint64) {
	if value > f.completed {
		f.completed = value
	}
}

func (f *fakeFence) Destroy() {}

func TestFrameSyncBlockingWait(t *testing.T) {
	fence := &fakeFence{}
	sync := NewFrameSync(fence, 1, 0)
	assert.Equal(t, uint64(1), sync.Value())
	assert.Equal(t, uint64(0), sync.LastSignaled())

	for frame := 1; frame <= 5; frame++ {
		require.NoError(t, sync.Wait())

		// the signalled value is the last one submitted and the GPU has reached it
		assert.Equal(t, uint64(frame), sync.LastSignaled())
		assert.Equal(t, uint64(frame), fence.signalled[len(fence.signalled)-1])
		assert.Equal(t, sync.LastSignaled(), fence.completed)

		// the next value moved exactly once
		assert.Equal(t, uint64(frame+1), sync.Value())
	}
	assert.Equal(t, []uint64{1, 2, 3, 4, 5}, fence.signalled)
	assert.Equal(t, []uint64{1, 2, 3, 4, 5}, fence.waits)
}

func TestFrameSyncSkipsWaitWhenAlreadyComplete(t *testing.T) {
	fence := &fakeFence{completed: 10}
	sync := NewFrameSync(fence, 1, 0)

	require.NoError(t, sync.Wait())
	assert.Empty(t, fence.waits)
	assert.Equal(t, uint64(1), sync.LastSignaled())
}

func TestFrameSyncSingleSlotAdvanceMatchesWait(t *testing.T) {
	fence := &fakeFence{}
	sync := NewFrameSync(fence, 1, 0)

	for frame := 1; frame <= 3; frame++ {
		require.NoError(t, sync.Advance())
		assert.Equal(t, 0, sync.Slot())
		assert.Equal(t, uint64(frame), fence.completed)
	}
	assert.Equal(t, []uint64{1, 2, 3}, fence.waits)
}

func TestFrameSyncTwoSlotsPipeline(t *testing.T) {
	fence := &fakeFence{}
	sync := NewFrameSync(fence, 2, 0)
	require.Equal(t, 2, sync.Slots())

	// frame 1 in slot 0: slot 1 has never been used, no wait
	require.NoError(t, sync.Advance())
	assert.Equal(t, 1, sync.Slot())
	assert.Empty(t, fence.waits)
	assert.Equal(t, uint64(0), fence.completed)

	// frame 2 in slot 1: slot 0 must finish frame 1 first
	require.NoError(t, sync.Advance())
	assert.Equal(t, 0, sync.Slot())
	assert.Equal(t, []uint64{1}, fence.waits)

	// frame 3 in slot 0: waits for frame 2 only
	require.NoError(t, sync.Advance())
	assert.Equal(t, 1, sync.Slot())
	assert.Equal(t, []uint64{1, 2}, fence.waits)

	// GPU ran ahead, no wait needed for frame 3's slot reuse
	fence.finish(3)
	require.NoError(t, sync.Advance())
	assert.Equal(t, 0, sync.Slot())
	assert.Equal(t, []uint64{1, 2}, fence.waits)

	assert.Equal(t, []uint64{1, 2, 3, 4}, fence.signalled)
	assert.Equal(t, uint64(4), sync.LastSignaled())
	assert.Equal(t, uint64(5), sync.Value())
}

func TestFrameSyncSlotAlternation(t *testing.T) {
	sync := NewFrameSync(&fakeFence{}, 2, 0)
	var slots []int
	for i := 0; i < 6; i++ {
		slots = append(slots, sync.Slot())
		require.NoError(t, sync.Advance())
	}
	assert.Equal(t, []int{0, 1, 0, 1, 0, 1}, slots)
}

func TestFrameSyncWaitDrainsAllSlots(t *testing.T) {
	fence := &fakeFence{}
	sync := NewFrameSync(fence, 2, 0)
	require.NoError(t, sync.Advance())
	require.NoError(t, sync.Advance())

	require.NoError(t, sync.Wait())
	assert.Equal(t, uint64(3), fence.completed)
	assert.Equal(t, sync.LastSignaled(), fence.completed)
}

func TestFrameSyncTimeout(t *testing.T) {
	fence := &fakeFence{hang: true}
	sync := NewFrameSync(fence, 1, 50*time.Millisecond)

	err := sync.Wait()
	require.Error(t, err)
	assert.Equal(t, gfxerr.SyncTimeout, gfxerr.KindOf(err))
	assert.True(t, errors.Is(err, gfxerr.ErrSyncTimeout))
}

func TestFrameSyncSignalFailureKeepsValue(t *testing.T) {
	fence := &fakeFence{signalErr: errors.New("device lost")}
	sync := NewFrameSync(fence, 1, 0)

	require.Error(t, sync.Wait())
	assert.Equal(t, uint64(1), sync.Value())
	assert.Equal(t, uint64(0), sync.LastSignaled())
}

func TestNewFrameSyncClampsSlots(t *testing.T) {
	assert.Equal(t, 1, NewFrameSync(&fakeFence{}, 0, 0).Slots())
}
