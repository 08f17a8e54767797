package stage

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"

	"github.com/cwbudde/algo-dsp/dsp/effects/dynamics"
	"github.com/cwbudde/algo-dsp/dsp/effects/reverb"
)

// Bus weights and master ramp targets.
const (
	ambienceBusGain = 0.33
	effectsBusGain  = 0.78

	masterLevel    = 0.9
	masterRampSecs = 0.55
)

// source is one playing clip: the ambient loop or a one-shot effect.
// pos is a fractional frame index; step != 1 repitches the clip.
type source struct {
	clip []float64 // interleaved stereo
	pos  float64
	step float64
	gain float64
	loop bool
	done bool
}

// next returns the current stereo frame and advances the playhead with
// linear interpolation between frames.
func (s *source) next() (l, r float64) {
	frames := len(s.clip) / 2
	if s.done || frames == 0 {
		return 0, 0
	}
	i0 := int(s.pos)
	if i0 >= frames {
		if !s.loop {
			s.done = true
			return 0, 0
		}
		s.pos = math.Mod(s.pos, float64(frames))
		i0 = int(s.pos)
	}
	i1 := i0 + 1
	if i1 >= frames {
		if s.loop {
			i1 = 0
		} else {
			i1 = i0
		}
	}
	frac := s.pos - float64(i0)
	l = lerpF(s.clip[i0*2], s.clip[i1*2], frac) * s.gain
	r = lerpF(s.clip[i0*2+1], s.clip[i1*2+1], frac) * s.gain
	s.pos += s.step
	return l, r
}

// mixer is the live audio graph: ambience and effects buses feeding a
// stereo convolution reverb, a bus compressor, and a ramped master gain.
// It implements io.Reader producing float32 LE stereo for the oto player.
type mixer struct {
	mu   sync.Mutex
	live bool

	ambient *source
	effects []*source

	master     float64
	masterGoal float64
	masterStep float64 // per-sample delta while ramping

	revL, revR   *reverb.ConvolutionReverb
	compL, compR *dynamics.Compressor

	bufL, bufR []float64
}

func newMixer(seed uint64) (*mixer, error) {
	irL, irR := reverbImpulse(seed)
	revL, err := reverb.NewConvolutionReverb(irL, 7)
	if err != nil {
		return nil, fmt.Errorf("reverb L: %w", err)
	}
	revR, err := reverb.NewConvolutionReverb(irR, 7)
	if err != nil {
		return nil, fmt.Errorf("reverb R: %w", err)
	}

	m := &mixer{live: true, revL: revL, revR: revR}
	for _, ch := range []**dynamics.Compressor{&m.compL, &m.compR} {
		c, err := dynamics.NewCompressor(SampleRate)
		if err != nil {
			return nil, fmt.Errorf("compressor: %w", err)
		}
		if err := c.SetThreshold(-22); err != nil {
			return nil, err
		}
		if err := c.SetRatio(3.5); err != nil {
			return nil, err
		}
		if err := c.SetAttack(3); err != nil {
			return nil, err
		}
		if err := c.SetRelease(90); err != nil {
			return nil, err
		}
		if err := c.SetMakeupGain(0); err != nil {
			return nil, err
		}
		*ch = c
	}
	return m, nil
}

// rampFromZero restarts the master gain at 0 and ramps linearly to
// target over seconds, cancelling any ramp already in flight.
func (m *mixer) rampFromZero(target, seconds float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.master = 0
	m.masterGoal = clampF(target, 0, 1)
	if seconds <= 0 {
		m.master = m.masterGoal
		m.masterStep = 0
		return
	}
	m.masterStep = m.masterGoal / (seconds * SampleRate)
}

func (m *mixer) masterGain() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.master
}

// startAmbient starts the looping ambience source. At most one ambient
// source is live at a time; extra calls are no-ops.
func (m *mixer) startAmbient(clip []float64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.live || len(clip) == 0 {
		return false
	}
	if m.ambient != nil && !m.ambient.done {
		return false
	}
	m.ambient = &source{clip: clip, step: 1, gain: 1, loop: true}
	return true
}

// playClip schedules a one-shot on the effects bus.
func (m *mixer) playClip(clip []float64, gain, step float64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.live || len(clip) == 0 {
		return false
	}
	m.effects = append(m.effects, &source{clip: clip, step: step, gain: gain})
	return true
}

func (m *mixer) hasAmbient() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ambient != nil && !m.ambient.done
}

func (m *mixer) activeEffects() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.effects)
}

// kill silences and detaches all sources. Clips scheduled afterwards
// (e.g. loads finishing after Stop) are rejected by playClip.
func (m *mixer) kill() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.live = false
	m.ambient = nil
	m.effects = nil
	m.master = 0
	m.masterGoal = 0
	m.masterStep = 0
}

// Read renders the next block of float32 LE stereo frames. It never
// returns an error so the player keeps pulling (silence when idle).
func (m *mixer) Read(p []byte) (int, error) {
	frames := len(p) / 8
	if frames == 0 {
		return 0, nil
	}

	m.mu.Lock()
	if cap(m.bufL) < frames {
		m.bufL = make([]float64, frames)
		m.bufR = make([]float64, frames)
	}
	bufL := m.bufL[:frames]
	bufR := m.bufR[:frames]

	// Dry mix: ambience and effects buses.
	for i := 0; i < frames; i++ {
		var l, r float64
		if m.ambient != nil && !m.ambient.done {
			al, ar := m.ambient.next()
			l += al * ambienceBusGain
			r += ar * ambienceBusGain
		}
		for _, src := range m.effects {
			el, er := src.next()
			l += el * effectsBusGain
			r += er * effectsBusGain
		}
		bufL[i] = l
		bufR[i] = r
	}
	// Drop finished one-shots.
	alive := m.effects[:0]
	for _, src := range m.effects {
		if !src.done {
			alive = append(alive, src)
		}
	}
	m.effects = alive

	// Reverb and compressor in series, per channel.
	if err := m.revL.ProcessInPlace(bufL); err == nil {
		_ = m.revR.ProcessInPlace(bufR)
	}
	m.compL.ProcessInPlace(bufL)
	m.compR.ProcessInPlace(bufR)

	// Master gain with linear ramp, then float32 LE interleave.
	for i := 0; i < frames; i++ {
		if m.master != m.masterGoal && m.masterStep > 0 {
			m.master = approach(m.master, m.masterGoal, m.masterStep)
		}
		l := softSat(bufL[i]) * m.master
		r := softSat(bufR[i]) * m.master
		binary.LittleEndian.PutUint32(p[i*8:], math.Float32bits(float32(l)))
		binary.LittleEndian.PutUint32(p[i*8+4:], math.Float32bits(float32(r)))
	}
	m.mu.Unlock()
	return frames * 8, nil
}
