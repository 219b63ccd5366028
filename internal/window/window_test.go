package window

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/veandco/go-sdl2/sdl"

	"github.com/jdg534/Dx12Eng/internal/config"
)

func TestNewKeepsConfig(t *testing.T) {
	w := New(config.Default().Window)
	width, height := w.Size()
	assert.Equal(t, 800, width)
	assert.Equal(t, 600, height)
	assert.Equal(t, "Dx12 Engine Window", w.Title())
	assert.Equal(t, "Dx12 Engine", w.ClassName())
	assert.Nil(t, w.Handle())
}

func TestShutdownBeforeCreate(t *testing.T) {
	w := New(config.Default().Window)
	w.Shutdown()
	w.Shutdown()
	assert.Nil(t, w.Handle())
}

func TestTranslate(t *testing.T) {
	tests := []struct {
		name  string
		start Events
		event sdl.Event
		want  Events
	}{
		{"quit", Events{Visible: true}, &sdl.QuitEvent{}, Events{Quit: true, Visible: true}},
		{"close", Events{Visible: true}, &sdl.WindowEvent{Event: sdl.WINDOWEVENT_CLOSE}, Events{Quit: true, Visible: true}},
		{"minimize", Events{Visible: true}, &sdl.WindowEvent{Event: sdl.WINDOWEVENT_MINIMIZED}, Events{Visible: false}},
		{"restore", Events{Visible: false}, &sdl.WindowEvent{Event: sdl.WINDOWEVENT_RESTORED}, Events{Visible: true}},
		{"unrelated", Events{Visible: true}, &sdl.KeyboardEvent{}, Events{Visible: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := tt.start
			translate(tt.event, &ev)
			assert.Equal(t, tt.want, ev)
		})
	}
}
