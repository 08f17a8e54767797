package stage

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(dir string) Config {
	return Config{
		AssetDir:     dir,
		WindowWidth:  1280,
		WindowHeight: 800,
		MasterVolume: 0.9,
		MemoryGB:     8,
	}
}

func testDeps(t *testing.T, dir string) bootDeps {
	t.Helper()
	return bootDeps{
		Feasible: func() bool { return true },
		Signals: func(Config) Signals {
			return Signals{PixelRatio: 2, Cores: 8, MemoryGB: 8}
		},
		NewEngine: func(assetDir string) *Engine {
			e, _ := newTestEngine(t, assetDir)
			return e
		},
	}
}

func newTestApp(t *testing.T, dir string) *App {
	t.Helper()
	app := NewApp(testConfig(dir), testDeps(t, dir))
	app.Boot()
	require.True(t, app.Booted())
	return app
}

// lineRecorder is a status sink safe to feed from the load goroutine.
type lineRecorder struct {
	mu    sync.Mutex
	lines []string
}

func (r *lineRecorder) record(line string) {
	r.mu.Lock()
	r.lines = append(r.lines, line)
	r.mu.Unlock()
}

func (r *lineRecorder) has(line string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, l := range r.lines {
		if l == line {
			return true
		}
	}
	return false
}

// waitForStatus blocks until the sample load settles the status line.
func waitForStatus(t *testing.T, app *App, line string) {
	t.Helper()
	require.Eventually(t, func() bool {
		return app.Status.Line() == line
	}, time.Second, 2*time.Millisecond)
}

func TestBootInfeasibleContext(t *testing.T) {
	deps := testDeps(t, t.TempDir())
	deps.Feasible = func() bool { return false }
	app := NewApp(testConfig(""), deps)
	app.Boot()

	assert.False(t, app.Booted())
	assert.Equal(t, "3D: unavailable (WebGL not supported)", app.Status.Line())
}

func TestAttachRenderTargetMissing(t *testing.T) {
	app := newTestApp(t, t.TempDir())
	assert.False(t, app.AttachRenderTarget(nil))
	assert.Equal(t, "3D: unavailable (canvas missing)", app.Status.Line())
}

func TestBootSelectsTier(t *testing.T) {
	app := newTestApp(t, t.TempDir())
	assert.Equal(t, TierHigh, app.Tier())
	assert.Equal(t, "3D: ON • hero • sound off", app.Status.Line())
	assert.NotNil(t, app.Scene)
	assert.Len(t, app.Scene.Swarm, SpecFor(TierHigh).Swarm)
}

func TestToggleSoundFullFlow(t *testing.T) {
	dir := t.TempDir()
	writeSampleSet(t, dir, assetNames...)
	app := newTestApp(t, dir)

	rec := &lineRecorder{}
	app.SetStatusSink(rec.record)

	app.ToggleSound()
	require.True(t, app.AudioOn())

	// The confirmation chime is scheduled before the samples arrive.
	assert.Equal(t, 1, app.engine.mix.activeEffects())
	label, pressed := app.Status.Toggle()
	assert.Equal(t, "Sound: On", label)
	assert.True(t, pressed)

	waitForStatus(t, app, "3D: ON • hero • sound on")
	assert.True(t, rec.has("3D: ON • hero • sound loading"))
	assert.True(t, app.engine.mix.hasAmbient())
}

func TestToggleSoundMissingAmbient(t *testing.T) {
	dir := t.TempDir()
	var present []string
	for _, name := range assetNames {
		if name != "ambient" {
			present = append(present, name)
		}
	}
	writeSampleSet(t, dir, present...)
	app := newTestApp(t, dir)

	app.ToggleSound()
	require.True(t, app.AudioOn())
	waitForStatus(t, app, "3D: ON • hero • sound on (missing: ambient)")

	// No ambience, but the chime still fired.
	assert.False(t, app.engine.mix.hasAmbient())
	assert.Equal(t, 1, app.engine.mix.activeEffects())
}

// gatedTestApp stalls every sample read until gate closes.
func gatedTestApp(t *testing.T, dir string, gate chan struct{}) *App {
	t.Helper()
	deps := testDeps(t, dir)
	deps.NewEngine = func(assetDir string) *Engine {
		e, _ := newTestEngine(t, assetDir)
		read := e.readFile
		e.readFile = func(path string) ([]byte, error) {
			<-gate
			return read(path)
		}
		return e
	}
	app := NewApp(testConfig(dir), deps)
	app.Boot()
	require.True(t, app.Booted())
	return app
}

func TestToggleSoundLoadDoesNotBlock(t *testing.T) {
	dir := t.TempDir()
	writeSampleSet(t, dir, assetNames...)
	gate := make(chan struct{})
	app := gatedTestApp(t, dir, gate)

	// With every sample read stalled, the toggle still returns: the
	// status shows "loading", the chime comes from synthesis, and
	// frames keep advancing.
	app.ToggleSound()
	require.True(t, app.AudioOn())
	assert.Equal(t, "3D: ON • hero • sound loading", app.Status.Line())
	assert.Equal(t, 1, app.engine.mix.activeEffects())
	app.Frame(1.0 / 60)

	close(gate)
	waitForStatus(t, app, "3D: ON • hero • sound on")
	assert.True(t, app.engine.mix.hasAmbient())
}

func TestToggleSoundOffDuringLoad(t *testing.T) {
	dir := t.TempDir()
	writeSampleSet(t, dir, assetNames...)
	gate := make(chan struct{})
	app := gatedTestApp(t, dir, gate)

	app.ToggleSound()
	app.ToggleSound()
	close(gate)

	// The late load result is dropped: sound stays off.
	assert.Never(t, func() bool {
		return app.Status.Line() != "3D: ON • hero • sound off"
	}, 150*time.Millisecond, 10*time.Millisecond)
	assert.Nil(t, app.engine)
	assert.False(t, app.AudioOn())
}

func TestToggleSoundUsesConfiguredMasterVolume(t *testing.T) {
	dir := t.TempDir()
	writeSampleSet(t, dir, assetNames...)
	cfg := testConfig(dir)
	cfg.MasterVolume = 0.4
	app := NewApp(cfg, testDeps(t, dir))
	app.Boot()
	require.True(t, app.Booted())

	app.ToggleSound()
	waitForStatus(t, app, "3D: ON • hero • sound on")

	mix := app.engine.mix
	mix.mu.Lock()
	goal := mix.masterGoal
	mix.mu.Unlock()
	assert.InDelta(t, 0.4, goal, 1e-9)
}

func TestToggleSoundOffTearsDown(t *testing.T) {
	dir := t.TempDir()
	writeSampleSet(t, dir, assetNames...)
	app := newTestApp(t, dir)

	app.ToggleSound()
	require.True(t, app.AudioOn())
	waitForStatus(t, app, "3D: ON • hero • sound on")
	mix := app.engine.mix
	require.True(t, mix.hasAmbient())

	app.ToggleSound()
	assert.False(t, app.AudioOn())
	assert.Nil(t, app.engine, "stopped engines are never reused")
	assert.False(t, mix.hasAmbient())
	assert.Equal(t, "3D: ON • hero • sound off", app.Status.Line())
	label, pressed := app.Status.Toggle()
	assert.Equal(t, "Sound: Off", label)
	assert.False(t, pressed)

	// Re-enabling builds a fresh engine and works again.
	app.ToggleSound()
	assert.True(t, app.AudioOn())
	waitForStatus(t, app, "3D: ON • hero • sound on")
	assert.True(t, app.engine.mix.hasAmbient())
}

func TestChapterTransitionSideEffects(t *testing.T) {
	dir := t.TempDir()
	writeSampleSet(t, dir, assetNames...)
	app := newTestApp(t, dir)
	app.ToggleSound()
	waitForStatus(t, app, "3D: ON • hero • sound on")
	base := app.engine.mix.activeEffects()

	// Scroll to capabilities and let the debounce window pass.
	app.Page.SetScroll(2 * 800)
	app.Frame(0.1)
	app.Frame(0.1)

	assert.Equal(t, ChapterCapabilities, app.Tracker.State().ID)
	assert.Equal(t, "3D: ON • capabilities • sound on", app.Status.Line())
	assert.Equal(t, base+1, app.engine.mix.activeEffects(), "transition cue scheduled")

	// Scene reflowed toward the capabilities placement and cyan tint.
	p := chapterPlacements[ChapterCapabilities]
	assert.InDelta(t, p.Bloom, app.Scene.bloomBase, 1e-9)
	assert.Equal(t, app.Scene.SwarmMat.Base.Blend(colorCyan, 0.25), app.Scene.SwarmColor())
}

func TestChapterTransitionSilentWithoutAudio(t *testing.T) {
	app := newTestApp(t, t.TempDir())

	app.Page.SetScroll(3 * 800)
	app.Frame(0.1)
	app.Frame(0.1)

	assert.Equal(t, ChapterProcess, app.Tracker.State().ID)
	assert.Equal(t, "3D: ON • process • sound off", app.Status.Line())
	assert.Nil(t, app.engine)
}

func TestResizeNarrowsLayout(t *testing.T) {
	app := newTestApp(t, t.TempDir())

	app.Resize(800, 600)
	assert.True(t, app.narrow)

	// Back to a wide viewport restores the full offsets.
	app.Resize(1400, 900)
	assert.False(t, app.narrow)
}

func TestFrameFadesWithScroll(t *testing.T) {
	app := newTestApp(t, t.TempDir())

	app.Page.SetScroll(800)
	app.Frame(1.0 / 60)
	assert.InDelta(t, 0.45, app.Scene.Fade, 1e-9)
}

func TestCreateOrReuseSingleton(t *testing.T) {
	resetSharedApp()
	t.Cleanup(resetSharedApp)

	dir := t.TempDir()
	first, reused := CreateOrReuse(testConfig(dir), testDeps(t, dir))
	require.False(t, reused)
	require.True(t, first.Booted())

	second, reused := CreateOrReuse(testConfig(dir), testDeps(t, dir))
	assert.True(t, reused)
	assert.Same(t, first, second, "re-entry reuses the live stage")
}

func TestBootBadAccentFallsBack(t *testing.T) {
	cfg := testConfig("")
	cfg.Accent = "#zzzzzz"
	app := NewApp(cfg, testDeps(t, ""))
	app.Boot()
	require.True(t, app.Booted())
	assert.Equal(t, DefaultAccent, app.Scene.Accent())
}
