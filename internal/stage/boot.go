package stage

import (
	"fmt"
	"sync"

	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/sirupsen/logrus"
)

// Status strings are an external contract; keep them byte-for-byte.
const (
	statusNoGL       = "3D: unavailable (WebGL not supported)"
	statusNoCanvas   = "3D: unavailable (canvas missing)"
	statusFailFormat = "3D: failed (%v)"
)

// bootDeps are the environment seams of the boot controller. Zero values
// select the real implementations.
type bootDeps struct {
	Feasible  func() bool
	Signals   func(Config) Signals
	NewEngine func(assetDir string) *Engine
}

func (d bootDeps) withDefaults() bootDeps {
	if d.Feasible == nil {
		d.Feasible = RenderFeasible
	}
	if d.Signals == nil {
		d.Signals = ProbeSignals
	}
	if d.NewEngine == nil {
		d.NewEngine = NewEngine
	}
	return d
}

var (
	appMu     sync.Mutex
	sharedApp *App
)

// CreateOrReuse returns the process-wide app. First call constructs and
// boots; later calls (re-entry after a client-side navigation) only
// rebind the chapter markers — the scene survives.
func CreateOrReuse(cfg Config, deps bootDeps) (*App, bool) {
	appMu.Lock()
	defer appMu.Unlock()
	if sharedApp != nil {
		sharedApp.Rebind()
		return sharedApp, true
	}
	app := NewApp(cfg, deps)
	app.Boot()
	sharedApp = app
	return app, false
}

// App wires probe, scene, page, tracker, audio, and status together. It
// holds no GL state: the renderer attaches separately in the desktop
// shell, so the whole lifecycle is testable headless.
type App struct {
	cfg  Config
	deps bootDeps
	log  *logrus.Entry

	Status  *Status
	Bus     *EventBus
	Page    *Page
	Tracker *Tracker
	Scene   *Scene

	accent RGB
	tier   Tier
	spec   TierSpec

	// audioMu guards engine and audioOn: the sample load finishes on
	// its own goroutine while the frame loop keeps running.
	audioMu sync.Mutex
	engine  *Engine
	audioOn bool

	narrow bool
	booted bool
}

func NewApp(cfg Config, deps bootDeps) *App {
	a := &App{
		cfg:    cfg,
		deps:   deps.withDefaults(),
		log:    logrus.WithField("component", "boot"),
		Status: NewStatus(nil),
		Bus:    NewEventBus(),
	}
	accent, err := ParseAccent(cfg.Accent)
	if err != nil && cfg.Accent != "" {
		a.log.WithError(err).Warn("bad accent colour, using default")
	}
	a.accent = accent
	return a
}

// SetStatusSink routes status line changes (e.g. to the window title).
func (a *App) SetStatusSink(sink func(string)) {
	a.Status.sink = sink
}

// Boot performs first-time construction. Construction failures are
// caught here: they surface as status text and a log entry, never as a
// crash of the host.
func (a *App) Boot() {
	defer func() {
		if r := recover(); r != nil {
			a.log.WithField("panic", r).Error("boot failed")
			a.Status.SetFailure(fmt.Sprintf(statusFailFormat, r))
		}
	}()

	if a.booted {
		a.Rebind()
		return
	}
	if !a.deps.Feasible() {
		a.Status.SetFailure(statusNoGL)
		return
	}

	signals := a.deps.Signals(a.cfg)
	a.tier = DetectTier(signals)
	a.spec = SpecFor(a.tier)
	a.log.WithFields(logrus.Fields{
		"tier":   a.tier.String(),
		"pixels": signals.PixelRatio,
		"cores":  signals.Cores,
	}).Info("capability probe")

	a.narrow = a.cfg.WindowWidth < NarrowViewportWidth
	a.Page = NewPage(float64(a.cfg.WindowWidth), float64(a.cfg.WindowHeight))
	a.Tracker = NewTracker(a.Page, a.Bus)
	a.Scene = NewScene(a.spec, a.accent)

	// Chapter transition side effects are performed together here: cue,
	// layout reflow, tint, status. Subscribed once; Rebind never re-adds.
	a.Bus.Subscribe(EventChapterChanged, func(e Event) {
		a.audioMu.Lock()
		eng, on := a.engine, a.audioOn
		a.audioMu.Unlock()
		if on && eng != nil {
			eng.PlayCue(chapterCues[e.Chapter.ID])
		}
		a.Scene.SetChapter(e.Chapter, a.narrow)
		a.Status.SetChapter(e.Chapter.ID)
	})

	a.Status.SetChapter(ChapterHero)
	a.booted = true
}

// Booted reports whether first-time construction succeeded.
func (a *App) Booted() bool { return a.booted }

// Tier returns the session quality tier.
func (a *App) Tier() Tier { return a.tier }

// AttachRenderTarget validates the render surface before the renderer
// is built. A missing surface is a reportable failure, not a crash.
func (a *App) AttachRenderTarget(target *glfw.Window) bool {
	if target == nil {
		a.Status.SetFailure(statusNoCanvas)
		return false
	}
	return true
}

// Rebind is the re-entry path after a client-side navigation: rescan
// chapter markers, keep everything else.
func (a *App) Rebind() {
	if !a.booted {
		return
	}
	a.Tracker.Rebind(a.Page.ViewportWidth(), a.Page.viewportH)
}

// Resize responds to viewport changes: narrow layout flag, page rects,
// and a reflow of the current chapter placement.
func (a *App) Resize(w, h int) {
	if !a.booted || w <= 0 || h <= 0 {
		return
	}
	a.narrow = w < NarrowViewportWidth
	a.Tracker.Rebind(float64(w), float64(h))
	a.Scene.SetChapter(a.Tracker.State(), a.narrow)
	a.Bus.Emit(Event{Type: EventViewportResized, W: w, H: h})
}

// ToggleSound flips the audio state. Enabling runs the user-gesture
// flow: init, resume ramp, immediate confirmation chime (synthesized
// until the samples arrive), then the asset load and ambient start on a
// separate goroutine so the frame loop never stalls on disk or decode.
// Disabling stops the engine; the instance is terminal, so the next
// enable builds a fresh one.
func (a *App) ToggleSound() {
	if !a.booted {
		return
	}
	a.audioMu.Lock()
	if a.audioOn {
		eng := a.engine
		a.engine = nil
		a.audioOn = false
		a.audioMu.Unlock()
		if eng != nil {
			eng.Stop()
		}
		a.Status.SetSound("off")
		a.Status.SetMissing(nil)
		a.Status.SetToggle(false)
		a.Bus.Emit(Event{Type: EventSoundToggled, On: false})
		return
	}

	a.Status.SetSound("loading")
	eng := a.engine
	if eng == nil {
		eng = a.deps.NewEngine(a.cfg.AssetDir)
		eng.SetMasterVolume(a.cfg.MasterVolume)
	}
	if err := eng.Init(); err != nil {
		a.engine = nil
		a.audioMu.Unlock()
		a.log.WithError(err).Error("audio init failed")
		a.Status.SetSound("off")
		return
	}
	a.engine = eng
	a.audioOn = true
	a.audioMu.Unlock()

	eng.Resume()
	eng.PlayCue(CueChime)
	a.Status.SetToggle(true)
	a.Bus.Emit(Event{Type: EventSoundToggled, On: true})

	go func() {
		ok, missing := eng.LoadAll()
		eng.StartAmbient()
		a.finishSoundLoad(eng, ok, missing)
	}()
}

// finishSoundLoad reports the load result. A toggle-off during the load
// already stopped the engine, which discarded the buffers; the stale
// result is dropped here so the status never flips back to "on".
func (a *App) finishSoundLoad(eng *Engine, ok bool, missing []string) {
	a.audioMu.Lock()
	defer a.audioMu.Unlock()
	if !a.audioOn || a.engine != eng {
		return
	}
	if !ok {
		a.Status.SetMissing(missing)
	}
	a.Status.SetSound("on")
}

// AudioOn reports whether sound is currently enabled.
func (a *App) AudioOn() bool {
	a.audioMu.Lock()
	defer a.audioMu.Unlock()
	return a.audioOn
}

// AudioLevel is the per-frame animation feedback signal.
func (a *App) AudioLevel() float64 {
	a.audioMu.Lock()
	eng, on := a.engine, a.audioOn
	a.audioMu.Unlock()
	if !on || eng == nil {
		return 0
	}
	return eng.Level()
}

// Frame advances the logic side of one animation frame: chapter
// tracking, scroll fade, and scene animation. Rendering happens after.
func (a *App) Frame(dt float64) {
	if !a.booted {
		return
	}
	a.Tracker.Update(dt)
	a.Scene.SetFade(a.Page.HeroFade())
	a.Scene.Update(dt, a.AudioLevel())
}

// resetSharedApp clears the singleton (tests only).
func resetSharedApp() {
	appMu.Lock()
	sharedApp = nil
	appMu.Unlock()
}
