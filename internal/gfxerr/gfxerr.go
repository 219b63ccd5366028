// Package gfxerr defines the error kinds every dx12eng failure is reported
// with. A kind is attached as a cockroachdb/errors mark, so it survives
// further wrapping and can be recovered with KindOf or errors.Is.
package gfxerr

import (
	"github.com/cockroachdb/errors"
)

type Kind int

const (
	Unknown Kind = iota
	ConfigInvalid
	WindowCreationFailed
	AdapterNotFound
	DeviceCreationFailed
	SwapChainFailed
	ShaderCompileFailed
	PipelineCreationFailed
	SyncTimeout
	CommandRecordingFailed
	PresentFailed
	GeometryUploadFailed
	MeshLoadFailed
)

var kindNames = map[Kind]string{
	Unknown:                "unknown",
	ConfigInvalid:          "config invalid",
	WindowCreationFailed:   "window creation failed",
	AdapterNotFound:        "adapter not found",
	DeviceCreationFailed:   "device creation failed",
	SwapChainFailed:        "swap chain failed",
	ShaderCompileFailed:    "shader compile failed",
	PipelineCreationFailed: "pipeline creation failed",
	SyncTimeout:            "sync timeout",
	CommandRecordingFailed: "command recording failed",
	PresentFailed:          "present failed",
	GeometryUploadFailed:   "geometry upload failed",
	MeshLoadFailed:         "mesh load failed",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Sentinels, one per kind. Use with errors.Is.
var (
	ErrConfigInvalid          = errors.New(ConfigInvalid.String())
	ErrWindowCreationFailed   = errors.New(WindowCreationFailed.String())
	ErrAdapterNotFound        = errors.New(AdapterNotFound.String())
	ErrDeviceCreationFailed   = errors.New(DeviceCreationFailed.String())
	ErrSwapChainFailed        = errors.New(SwapChainFailed.String())
	ErrShaderCompileFailed    = errors.New(ShaderCompileFailed.String())
	ErrPipelineCreationFailed = errors.New(PipelineCreationFailed.String())
	ErrSyncTimeout            = errors.New(SyncTimeout.String())
	ErrCommandRecordingFailed = errors.New(CommandRecordingFailed.String())
	ErrPresentFailed          = errors.New(PresentFailed.String())
	ErrGeometryUploadFailed   = errors.New(GeometryUploadFailed.String())
	ErrMeshLoadFailed         = errors.New(MeshLoadFailed.String())
)

var sentinels = []struct {
	kind Kind
	err  error
}{
	{ConfigInvalid, ErrConfigInvalid},
	{WindowCreationFailed, ErrWindowCreationFailed},
	{AdapterNotFound, ErrAdapterNotFound},
	{DeviceCreationFailed, ErrDeviceCreationFailed},
	{SwapChainFailed, ErrSwapChainFailed},
	{ShaderCompileFailed, ErrShaderCompileFailed},
	{PipelineCreationFailed, ErrPipelineCreationFailed},
	{SyncTimeout, ErrSyncTimeout},
	{CommandRecordingFailed, ErrCommandRecordingFailed},
	{PresentFailed, ErrPresentFailed},
	{GeometryUploadFailed, ErrGeometryUploadFailed},
	{MeshLoadFailed, ErrMeshLoadFailed},
}

func sentinel(kind Kind) error {
	for _, s := range sentinels {
		if s.kind == kind {
			return s.err
		}
	}
	return nil
}

// New creates an error of the given kind.
func New(kind Kind, format string, args ...interface{}) error {
	err := errors.NewWithDepthf(1, format, args...)
	if ref := sentinel(kind); ref != nil {
		err = errors.Mark(err, ref)
	}
	return err
}

// Wrap annotates err with msg and marks it with kind. A nil err stays nil.
// An error that already carries a kind keeps it.
func Wrap(err error, kind Kind, msg string) error {
	if err == nil {
		return nil
	}
	wrapped := errors.WrapWithDepth(1, err, msg)
	if KindOf(err) != Unknown {
		return wrapped
	}
	if ref := sentinel(kind); ref != nil {
		wrapped = errors.Mark(wrapped, ref)
	}
	return wrapped
}

// Wrapf is Wrap with a formatted message.
func Wrapf(err error, kind Kind, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	wrapped := errors.WrapWithDepthf(1, err, format, args...)
	if KindOf(err) != Unknown {
		return wrapped
	}
	if ref := sentinel(kind); ref != nil {
		wrapped = errors.Mark(wrapped, ref)
	}
	return wrapped
}

// KindOf reports the kind err was marked with, or Unknown.
func KindOf(err error) Kind {
	if err == nil {
		return Unknown
	}
	for _, s := range sentinels {
		if errors.Is(err, s.err) {
			return s.kind
		}
	}
	return Unknown
}

// UserMessage renders err for the blocking error dialog: the message followed
// by any hints.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	if hints := errors.FlattenHints(err); hints != "" {
		msg += "\n\n" + hints
	}
	return msg
}
