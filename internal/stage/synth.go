package stage

import (
	"math"

	"github.com/cwbudde/algo-dsp/dsp/filter/biquad"
	"github.com/cwbudde/algo-dsp/dsp/filter/design"
)

// CueKind identifies the short sound effects tied to chapter transitions.
type CueKind int

const (
	CueWhoosh CueKind = iota
	CueChime
	CueImpact
	CueTick
)

func (k CueKind) String() string {
	switch k {
	case CueWhoosh:
		return "whoosh"
	case CueChime:
		return "chime"
	case CueImpact:
		return "impact"
	default:
		return "tick"
	}
}

// Per-play gain for each cue kind, applied on the effects bus.
var cueGains = map[CueKind]float64{
	CueImpact: 0.9,
	CueWhoosh: 0.75,
	CueChime:  0.55,
	CueTick:   0.35,
}

// softSat applies gentle tanh-like saturation — no harsh clipping.
func softSat(x float64) float64 {
	if x > 1.0 {
		return 1.0 - 0.5/(x)
	}
	if x < -1.0 {
		return -1.0 + 0.5/(-x)
	}
	return x - x*x*x/3.0
}

// adsr returns an envelope at normalized progress [0,1].
// attack/decay/release are fractions of the total duration.
func adsr(progress, attack, decay, sustain, release float64) float64 {
	switch {
	case progress < attack:
		return progress / attack
	case progress < attack+decay:
		return 1.0 - (progress-attack)/decay*(1.0-sustain)
	case progress < 1.0-release:
		return sustain
	default:
		return sustain * (1.0 - (progress-(1.0-release))/release)
	}
}

// lcg advances an LCG seed and returns a noise sample in [-1,1].
func lcg(seed *uint64) float64 {
	*seed = *seed*6364136223846793005 + 1442695040888963407
	return float64(int64(*seed>>33)-int64(1<<30)) / float64(1<<30)
}

// makeClip allocates an interleaved stereo float64 buffer for n frames.
func makeClip(n int) []float64 { return make([]float64, n*2) }

// putStereo writes a [-1,1] sample to both channels at frame i.
func putStereo(clip []float64, i int, s float64) {
	clip[i*2] = s
	clip[i*2+1] = s
}

// putStereoLR writes independent left/right samples at frame i.
func putStereoLR(clip []float64, i int, l, r float64) {
	clip[i*2] = l
	clip[i*2+1] = r
}

// synthCue renders the fallback for a cue kind. It always produces a
// non-empty bounded clip, so cues are audible even with every sample
// asset missing.
func synthCue(kind CueKind, seed uint64) []float64 {
	switch kind {
	case CueTick:
		return synthTick()
	case CueChime:
		return synthChime()
	case CueImpact:
		return synthImpact(seed)
	default:
		return synthWhoosh(seed)
	}
}

// synthTick: short square-wave click with fast exponential decay.
func synthTick() []float64 {
	n := int(0.07 * SampleRate)
	clip := makeClip(n)
	for i := 0; i < n; i++ {
		t := float64(i) / SampleRate
		p := float64(i) / float64(n)
		sq := 1.0
		if math.Sin(2*math.Pi*1150*t) < 0 {
			sq = -1.0
		}
		env := math.Exp(-p * 26)
		// Tiny sine layer rounds off the pure square edge.
		s := (sq*0.62 + math.Sin(2*math.Pi*2300*t)*0.12) * env
		putStereo(clip, i, softSat(s*0.8))
	}
	return clip
}

// synthChime: 3-partial sine chord, harmonically related with slight
// detune, decaying over ~0.6s.
func synthChime() []float64 {
	n := int(0.62 * SampleRate)
	clip := makeClip(n)
	partials := []struct{ freq, gain float64 }{
		{523.25, 0.42},        // C5
		{523.25 * 2.003, 0.2}, // detuned octave
		{523.25 * 3.007, 0.1}, // detuned twelfth
	}
	for i := 0; i < n; i++ {
		t := float64(i) / SampleRate
		p := float64(i) / float64(n)
		env := adsr(p, 0.008, 0.55, 0.12, 0.3) * math.Exp(-p*3.2)
		s := 0.0
		for _, pt := range partials {
			s += math.Sin(2*math.Pi*pt.freq*t) * pt.gain
		}
		putStereo(clip, i, softSat(s*env))
	}
	return clip
}

// synthImpact: white noise through a lowpass sweeping high→low with a
// punchy envelope (~0.3s), plus a small sub thud.
func synthImpact(seed uint64) []float64 {
	n := int(0.3 * SampleRate)
	clip := makeClip(n)
	sec := biquad.NewSection(design.Lowpass(3200, 0.9, SampleRate))
	for i := 0; i < n; i++ {
		t := float64(i) / SampleRate
		p := float64(i) / float64(n)
		// Sweep 3200 Hz down to 180 Hz over the clip.
		freq := 3200 * math.Pow(180.0/3200.0, p)
		sec.Coefficients = design.Lowpass(freq, 0.9, SampleRate)
		body := sec.ProcessSample(lcg(&seed)) * math.Exp(-p*9) * 0.9
		thud := math.Sin(2*math.Pi*(95-45*p)*t) * math.Exp(-p*16) * 0.4
		putStereo(clip, i, softSat(body+thud))
	}
	return clip
}

// synthWhoosh: white noise through a bandpass sweeping low→high with a
// smooth rise-and-fall envelope (~0.9s).
func synthWhoosh(seed uint64) []float64 {
	n := int(0.9 * SampleRate)
	clip := makeClip(n)
	sec := biquad.NewSection(design.Bandpass(220, 1.1, SampleRate))
	for i := 0; i < n; i++ {
		p := float64(i) / float64(n)
		freq := 220 * math.Pow(2400.0/220.0, p)
		sec.Coefficients = design.Bandpass(freq, 1.1, SampleRate)
		env := smoothstep(p/0.35) * smoothstep((1-p)/0.45)
		s := sec.ProcessSample(lcg(&seed)) * env * 1.4
		putStereo(clip, i, softSat(s))
	}
	return clip
}

// reverbImpulse generates the left/right impulse responses for the bus
// reverb: exponentially decaying stereo noise, ~1.05s, decay exponent 0.9.
// The tail is scaled down so the wet send stays well below the dry level.
func reverbImpulse(seed uint64) (left, right []float64) {
	n := int(1.05 * SampleRate)
	left = make([]float64, n)
	right = make([]float64, n)
	ls := seed
	rs := splitmix64(seed ^ 0x5EED)
	for i := 0; i < n; i++ {
		p := float64(i) / float64(n)
		env := math.Pow(1-p, 0.9) * math.Exp(-p*4.5)
		left[i] = lcg(&ls) * env * 0.055
		right[i] = lcg(&rs) * env * 0.055
	}
	return left, right
}
