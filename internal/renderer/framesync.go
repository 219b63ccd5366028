package renderer

import (
	"time"

	"github.com/loov/hrtime"

	"github.com/jdg534/Dx12Eng/internal/gfxerr"
	"github.com/jdg534/Dx12Eng/internal/logging"
)

// Fence is a GPU completion counter that only moves forward.
type Fence interface {
	// Signal queues a command that raises the counter to value once all
	// work submitted before it has finished.
	Signal(value uint64) error
	// Completed returns the highest value the GPU has reached.
	Completed() (uint64, error)
	// WaitFor blocks until the counter reaches value. A zero timeout waits
	// forever.
	WaitFor(value uint64, timeout time.Duration) error
	Destroy()
}

// FrameSync decides when the command memory of a frame slot may be reused.
//
// Each slot records the fence value signalled after its last submission.
// A slot is only handed back once the GPU has passed that value. With a
// single slot every frame waits for itself, so CPU and GPU strictly
// alternate.
type FrameSync struct {
	fence   Fence
	timeout time.Duration

	next  uint64
	last  uint64
	slots []uint64
	slot  int
}

func NewFrameSync(fence Fence, slots int, timeout time.Duration) *FrameSync {
	if slots < 1 {
		slots = 1
	}
	return &FrameSync{
		fence:   fence,
		timeout: timeout,
		next:    1,
		slots:   make([]uint64, slots),
	}
}

// Wait signals the next value and blocks until the GPU reaches it. Nothing
// is in flight when it returns.
func (s *FrameSync) Wait() error {
	value, err := s.signal()
	if err != nil {
		return err
	}
	return s.waitFor(value)
}

// Advance closes the current slot's frame. It signals the next value on
// behalf of the slot, moves to the following slot and waits only until that
// slot's previous frame has completed.
func (s *FrameSync) Advance() error {
	value, err := s.signal()
	if err != nil {
		return err
	}
	s.slots[s.slot] = value
	s.slot = (s.slot + 1) % len(s.slots)

	if pending := s.slots[s.slot]; pending > 0 {
		return s.waitFor(pending)
	}
	return nil
}

func (s *FrameSync) signal() (uint64, error) {
	value := s.next
	if err := s.fence.Signal(value); err != nil {
		return 0, gfxerr.Wrapf(err, gfxerr.SyncTimeout, "signal fence value %d", value)
	}
	s.next++
	s.last = value
	return value, nil
}

func (s *FrameSync) waitFor(value uint64) error {
	completed, err := s.fence.Completed()
	if err != nil {
		return gfxerr.Wrap(err, gfxerr.SyncTimeout, "read fence value")
	}
	if completed >= value {
		return nil
	}

	start := hrtime.Now()
	if err := s.fence.WaitFor(value, s.timeout); err != nil {
		return gfxerr.Wrapf(err, gfxerr.SyncTimeout, "wait for fence value %d", value)
	}
	logging.Logger().Debug("fence wait", "value", value, "waited", hrtime.Since(start))
	return nil
}

// Value is the value the next signal will use.
func (s *FrameSync) Value() uint64 {
	return s.next
}

// LastSignaled is the most recent value handed to the fence, 0 before the
// first signal.
func (s *FrameSync) LastSignaled() uint64 {
	return s.last
}

// Slot is the frame slot whose command memory may be recorded into now.
func (s *FrameSync) Slot() int {
	return s.slot
}

func (s *FrameSync) Slots() int {
	return len(s.slots)
}
