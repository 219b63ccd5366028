package gfxerr

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCarriesKind(t *testing.T) {
	err := New(AdapterNotFound, "no adapter among %d candidates", 3)
	require.Error(t, err)
	assert.Equal(t, AdapterNotFound, KindOf(err))
	assert.True(t, errors.Is(err, ErrAdapterNotFound))
	assert.False(t, errors.Is(err, ErrDeviceCreationFailed))
	assert.Contains(t, err.Error(), "no adapter among 3 candidates")
}

func TestWrapMarksPlainErrors(t *testing.T) {
	base := errors.New("vkCreateSwapchainKHR returned VK_ERROR_SURFACE_LOST_KHR")
	err := Wrap(base, SwapChainFailed, "create swap chain")
	assert.Equal(t, SwapChainFailed, KindOf(err))
	assert.Contains(t, err.Error(), "create swap chain")
	assert.Contains(t, err.Error(), "VK_ERROR_SURFACE_LOST_KHR")
}

func TestWrapKeepsInnerKind(t *testing.T) {
	inner := New(SyncTimeout, "fence value %d not reached", 7)
	err := Wrapf(inner, PresentFailed, "finish frame %d", 2)
	assert.Equal(t, SyncTimeout, KindOf(err))
	assert.True(t, errors.Is(err, ErrSyncTimeout))
}

func TestWrapNil(t *testing.T) {
	assert.NoError(t, Wrap(nil, PresentFailed, "present"))
	assert.NoError(t, Wrapf(nil, PresentFailed, "present %d", 1))
}

func TestKindOfUnknown(t *testing.T) {
	assert.Equal(t, Unknown, KindOf(nil))
	assert.Equal(t, Unknown, KindOf(errors.New("plain")))
}

func TestKindStrings(t *testing.T) {
	for kind := Unknown; kind <= MeshLoadFailed; kind++ {
		assert.NotEmpty(t, kind.String())
	}
	assert.Equal(t, "unknown", Kind(99).String())
	assert.Equal(t, "shader compile failed", ShaderCompileFailed.String())
}

func TestUserMessageIncludesHints(t *testing.T) {
	err := errors.WithHint(New(DeviceCreationFailed, "no vulkan driver"), "install a Vulkan driver")
	msg := UserMessage(err)
	assert.Contains(t, msg, "no vulkan driver")
	assert.Contains(t, msg, "install a Vulkan driver")
	assert.Equal(t, "", UserMessage(nil))
}
