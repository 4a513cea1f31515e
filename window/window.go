package window

import (
	"log"
	"unsafe"

	"github.com/go-gl/gl/v4.6-core/gl"
	"github.com/pkg/errors"
	"github.com/veandco/go-sdl2/sdl"

	"goradiance/cvars"
)

var (
	window  *sdl.Window
	context sdl.GLContext
)

func Get() *sdl.Window {
	return window
}

func Size() (int, int) {
	w, h := window.GetSize()
	return int(w), int(h)
}

func Shutdown() {
	if window == nil {
		return
	}
	sdl.GLDeleteContext(context)
	context = nil
	window.Destroy()
	window = nil
	sdl.QuitSubSystem(sdl.INIT_VIDEO)
}

// InitHidden creates an invisible window owning a GL 4.6 core context.
// The compute and bake passes render to framebuffers only, so the window
// never needs to be shown. Must run on the main thread.
func InitHidden(width, height int32) error {
	if context != nil {
		return nil
	}
	if err := sdl.InitSubSystem(sdl.INIT_VIDEO); err != nil {
		return errors.Wrap(err, "init video")
	}
	sdl.GLSetAttribute(sdl.GL_CONTEXT_MAJOR_VERSION, 4)
	sdl.GLSetAttribute(sdl.GL_CONTEXT_MINOR_VERSION, 6)
	sdl.GLSetAttribute(sdl.GL_CONTEXT_PROFILE_MASK, sdl.GL_CONTEXT_PROFILE_CORE)
	sdl.GLSetAttribute(sdl.GL_DEPTH_SIZE, 24)
	sdl.GLSetAttribute(sdl.GL_STENCIL_SIZE, 8)
	if cvars.Developer.Bool() {
		sdl.GLSetAttribute(sdl.GL_CONTEXT_FLAGS, sdl.GL_CONTEXT_DEBUG_FLAG)
	}

	flags := uint32(sdl.WINDOW_OPENGL | sdl.WINDOW_HIDDEN)
	w, err := sdl.CreateWindow("goradiance", sdl.WINDOWPOS_UNDEFINED, sdl.WINDOWPOS_UNDEFINED, width, height, flags)
	if err != nil {
		// compute shaders are core since 4.3
		sdl.GLSetAttribute(sdl.GL_CONTEXT_MINOR_VERSION, 3)
		sdl.GLSetAttribute(sdl.GL_STENCIL_SIZE, 0)
		w, err = sdl.CreateWindow("goradiance", sdl.WINDOWPOS_UNDEFINED, sdl.WINDOWPOS_UNDEFINED, width, height, flags)
		if err != nil {
			return errors.Wrap(err, "create window")
		}
	}
	window = w

	context, err = window.GLCreateContext()
	if err != nil {
		window.Destroy()
		window = nil
		return errors.Wrap(err, "create GL context")
	}
	if err := gl.Init(); err != nil {
		Shutdown()
		return errors.Wrap(err, "init gl")
	}
	log.Printf("GL %s, %s\n", gl.GoStr(gl.GetString(gl.VERSION)), gl.GoStr(gl.GetString(gl.RENDERER)))
	if cvars.Developer.Bool() {
		gl.DebugMessageCallback(debugCb, unsafe.Pointer(nil))
	}
	return nil
}

func debugCb(
	source uint32,
	gltype uint32,
	id uint32,
	severity uint32,
	length int32,
	message string,
	userParam unsafe.Pointer) {
	if severity == gl.DEBUG_SEVERITY_HIGH {
		log.Panicf("[GL_DEBUG] source %d gltype %d id %d severity %d length %d: %s", source, gltype, id, severity, length, message)
	} else {
		log.Printf("[GL_DEBUG] source %d gltype %d id %d severity %d length %d: %s", source, gltype, id, severity, length, message)
	}
}
