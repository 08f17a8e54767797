package stage

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/hajimehoshi/oto/v2"
	"github.com/sirupsen/logrus"
)

type engineState int

const (
	engineUninitialized engineState = iota
	engineInitializing
	engineRunning
	engineStopped // terminal: a new Engine is required to reactivate
)

// audioPlayer is the subset of oto.Player the engine drives.
type audioPlayer interface {
	Play()
	IsPlaying() bool
	SetVolume(float64)
	io.Closer
}

// audioBackend abstracts the oto context so tests run without a device.
type audioBackend interface {
	NewPlayer(io.Reader) audioPlayer
	Suspend() error
	Resume() error
}

type otoBackend struct {
	ctx *oto.Context
}

func (b otoBackend) NewPlayer(r io.Reader) audioPlayer { return b.ctx.NewPlayer(r) }
func (b otoBackend) Suspend() error                    { return b.ctx.Suspend() }
func (b otoBackend) Resume() error                     { return b.ctx.Resume() }

func newOtoBackend() (audioBackend, <-chan struct{}, error) {
	ctx, ready, err := oto.NewContext(SampleRate, ChannelCount, BitDepth)
	if err != nil {
		return nil, nil, err
	}
	return otoBackend{ctx: ctx}, ready, nil
}

// Engine owns the audio graph and the decoded sample set. One instance may
// be live at a time; Stop is terminal for the instance.
type Engine struct {
	log      *logrus.Entry
	assetDir string

	mu        sync.Mutex
	state     engineState
	mix       *mixer
	backend   audioBackend
	player    audioPlayer
	samples   map[string][]float64
	missing   []string
	masterVol float64
	rng       *Rand

	loadCtx    context.Context
	loadCancel context.CancelFunc

	// Seams for tests.
	newBackend func() (audioBackend, <-chan struct{}, error)
	readFile   func(string) ([]byte, error)
}

func NewEngine(assetDir string) *Engine {
	return &Engine{
		log:        logrus.WithField("component", "audio"),
		assetDir:   assetDir,
		masterVol:  masterLevel,
		rng:        NewRand(uint64(time.Now().UnixNano())),
		newBackend: newOtoBackend,
		readFile:   os.ReadFile,
	}
}

// SetMasterVolume sets the level Resume ramps the master gain to. A
// live ramp keeps its current target; the new level applies on the next
// Resume.
func (e *Engine) SetMasterVolume(v float64) {
	e.mu.Lock()
	e.masterVol = clampF(v, 0, 1)
	e.mu.Unlock()
}

// Init builds the audio graph and starts the (muted) pull player once the
// device is ready. Idempotent: repeat calls on a live engine are no-ops.
func (e *Engine) Init() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != engineUninitialized {
		return nil
	}
	e.state = engineInitializing

	mix, err := newMixer(e.rng.NextU64())
	if err != nil {
		e.state = engineUninitialized
		return fmt.Errorf("audio graph: %w", err)
	}
	backend, ready, err := e.newBackend()
	if err != nil {
		e.state = engineUninitialized
		return fmt.Errorf("audio context: %w", err)
	}

	e.mix = mix
	e.backend = backend
	e.loadCtx, e.loadCancel = context.WithCancel(context.Background())
	e.state = engineRunning

	go func() {
		if ready != nil {
			<-ready
		}
		e.mu.Lock()
		defer e.mu.Unlock()
		if e.state != engineRunning {
			return
		}
		p := e.backend.NewPlayer(e.mix)
		p.SetVolume(1)
		p.Play()
		e.player = p
	}()
	return nil
}

// Resume restarts the suspended device and ramps the master gain from 0
// to its working level. Device errors (gesture policy analogs) are
// swallowed: the engine simply stays silent.
func (e *Engine) Resume() {
	e.mu.Lock()
	if e.state != engineRunning {
		e.mu.Unlock()
		return
	}
	backend, mix, target := e.backend, e.mix, e.masterVol
	e.mu.Unlock()

	if err := backend.Resume(); err != nil {
		e.log.WithError(err).Debug("audio resume rejected")
	}
	mix.rampFromZero(target, masterRampSecs)
}

// LoadAll fetches and decodes the 9 sample assets concurrently. Failures
// are isolated and reported through the missing list, never as an error.
// Buffers finishing after Stop are discarded.
func (e *Engine) LoadAll() (ok bool, missing []string) {
	e.mu.Lock()
	if e.state != engineRunning {
		e.mu.Unlock()
		return false, nil
	}
	ctx, dir, readFile := e.loadCtx, e.assetDir, e.readFile
	e.mu.Unlock()

	clips, missing, ok := loadSamples(ctx, dir, readFile)

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != engineRunning {
		// Raced with Stop: drop everything that arrived late.
		return false, nil
	}
	e.samples = clips
	e.missing = missing
	if !ok {
		e.log.WithField("missing", missing).Warn("sample set incomplete")
	}
	return ok, missing
}

// StartAmbient starts the looping ambience track. No-op when the buffer
// is absent or an ambient source is already playing.
func (e *Engine) StartAmbient() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != engineRunning {
		return
	}
	clip := e.samples["ambient"]
	if clip == nil {
		return
	}
	e.mix.startAmbient(clip)
}

// PlayCue plays one of the two sample variants for the kind, or falls
// back to real-time synthesis when no buffer is loaded. It never drops a
// request silently while the engine runs.
func (e *Engine) PlayCue(kind CueKind) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != engineRunning {
		return
	}
	gain := cueGains[kind]
	variant := fmt.Sprintf("%s%d", kind, 1+e.rng.Intn(2))
	if clip := e.samples[variant]; clip != nil {
		// ±5% pitch jitter.
		step := 1 + e.rng.RangeF(-0.05, 0.05)
		e.mix.playClip(clip, gain, step)
		return
	}
	e.mix.playClip(synthCue(kind, e.rng.NextU64()), gain, 1)
}

// Stop tears the graph down. Idempotent; the instance is dead afterwards
// and a fresh Engine must be created to re-enable sound.
func (e *Engine) Stop() {
	e.mu.Lock()
	if e.state == engineStopped {
		e.mu.Unlock()
		return
	}
	prev := e.state
	e.state = engineStopped
	if e.loadCancel != nil {
		e.loadCancel()
	}
	mix, player, backend := e.mix, e.player, e.backend
	e.mu.Unlock()

	if prev != engineRunning && prev != engineInitializing {
		return
	}
	if mix != nil {
		mix.kill()
	}
	// Close asynchronously so the caller (a frame callback) never blocks
	// on device teardown.
	go func() {
		if player != nil {
			_ = player.Close()
		}
		if backend != nil {
			_ = backend.Suspend()
		}
	}()
}

// Level reports a cheap 0..1 amplitude signal for the animation loop:
// a function of master gain plus a little jitter. Not a meter.
func (e *Engine) Level() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != engineRunning || e.mix == nil {
		return 0
	}
	v := e.mix.masterGain()*0.25 + e.rng.RangeF(-0.015, 0.015)
	return clampF(v, 0, 1)
}

// Missing returns the asset names that failed to load.
func (e *Engine) Missing() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.missing...)
}
