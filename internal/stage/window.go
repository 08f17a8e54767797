package stage

import (
	"fmt"
	"runtime"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/sirupsen/logrus"
)

// scrollLineHeight converts wheel ticks into virtual page pixels.
const scrollLineHeight = 64.0

func initWindow(cfg Config, spec TierSpec) (*glfw.Window, error) {
	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 1)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)
	glfw.WindowHint(glfw.Resizable, glfw.True)
	if spec.Samples > 0 {
		glfw.WindowHint(glfw.Samples, spec.Samples)
	}

	window, err := glfw.CreateWindow(cfg.WindowWidth, cfg.WindowHeight, "Lumen", nil, nil)
	if err != nil {
		return nil, fmt.Errorf("create window: %w", err)
	}
	window.MakeContextCurrent()
	glfw.SwapInterval(1)

	return window, nil
}

// Input tracks just-pressed edges and accumulated wheel scroll between
// frames.
type Input struct {
	prevKeys map[glfw.Key]bool
	scrollY  float64
}

func NewInput(window *glfw.Window) *Input {
	in := &Input{prevKeys: make(map[glfw.Key]bool)}
	window.SetScrollCallback(func(_ *glfw.Window, _, yoff float64) {
		in.scrollY += yoff
	})
	return in
}

func (in *Input) JustPressed(window *glfw.Window, key glfw.Key) bool {
	down := window.GetKey(key) == glfw.Press
	fired := down && !in.prevKeys[key]
	in.prevKeys[key] = down
	return fired
}

// TakeScroll drains the wheel accumulator, returning page pixels. Wheel
// up is negative (scrolls toward the hero).
func (in *Input) TakeScroll() float64 {
	d := -in.scrollY * scrollLineHeight
	in.scrollY = 0
	return d
}

// PointerNorm returns the cursor position normalized to [-1,1] on both
// axes, +Y up.
func PointerNorm(window *glfw.Window) (float64, float64) {
	cx, cy := window.GetCursorPos()
	w, h := window.GetSize()
	if w <= 0 || h <= 0 {
		return 0, 0
	}
	nx := cx/float64(w)*2 - 1
	ny := 1 - cy/float64(h)*2
	return clampF(nx, -1, 1), clampF(ny, -1, 1)
}

// Run is the desktop entry point: config, boot, window, render loop.
func Run() {
	runtime.LockOSThread()

	cfg, err := LoadConfig()
	if err != nil {
		logrus.WithError(err).Fatal("config")
	}
	cfg.ApplyLogLevel()
	log := logrus.WithField("component", "window")

	if err := glfw.Init(); err != nil {
		logrus.WithError(err).Fatal("glfw init")
	}
	defer glfw.Terminate()

	app, reused := CreateOrReuse(cfg, bootDeps{})
	if reused {
		log.Info("reusing existing stage")
	}
	if !app.Booted() {
		log.WithField("status", app.Status.Line()).Error("stage unavailable")
		return
	}

	window, err := initWindow(cfg, SpecFor(app.Tier()))
	if err != nil {
		app.Status.SetFailure(fmt.Sprintf(statusFailFormat, err))
		log.WithError(err).Error("window")
		return
	}
	defer window.Destroy()
	if !app.AttachRenderTarget(window) {
		return
	}
	window.SetTitle(app.Status.Line())
	app.SetStatusSink(func(line string) { window.SetTitle(line) })

	if err := gl.Init(); err != nil {
		app.Status.SetFailure(fmt.Sprintf(statusFailFormat, err))
		log.WithError(err).Error("gl init")
		return
	}

	rend, err := NewRenderer(app.Scene)
	if err != nil {
		app.Status.SetFailure(fmt.Sprintf(statusFailFormat, err))
		log.WithError(err).Error("renderer")
		return
	}
	defer rend.Destroy()

	input := NewInput(window)
	lastW, lastH := window.GetFramebufferSize()
	rend.Resize(lastW, lastH)
	app.Resize(lastW, lastH)

	last := glfw.GetTime()
	for !window.ShouldClose() {
		now := glfw.GetTime()
		dt := now - last
		last = now
		if dt > 0.1 {
			dt = 0.1
		}

		glfw.PollEvents()
		if window.GetKey(glfw.KeyEscape) == glfw.Press {
			window.SetShouldClose(true)
			continue
		}

		fbW, fbH := window.GetFramebufferSize()
		if fbW <= 0 || fbH <= 0 {
			continue
		}
		if fbW != lastW || fbH != lastH {
			lastW, lastH = fbW, fbH
			rend.Resize(fbW, fbH)
			app.Resize(fbW, fbH)
		}

		if input.JustPressed(window, glfw.KeyM) {
			app.ToggleSound()
		}
		if d := input.TakeScroll(); d != 0 {
			app.Page.ScrollBy(d)
		}
		px, py := PointerNorm(window)
		app.Scene.SetPointer(px, py)

		app.Frame(dt)
		rend.Draw(fbW, fbH)
		window.SwapBuffers()
	}

	if app.AudioOn() {
		app.ToggleSound()
	}
}
