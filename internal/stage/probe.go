package stage

import (
	"runtime"

	"github.com/go-gl/glfw/v3.3/glfw"
)

// Tier is the coarse rendering fidelity level, fixed for the session.
type Tier int

const (
	TierLow Tier = iota
	TierMed
	TierHigh
)

func (t Tier) String() string {
	switch t {
	case TierLow:
		return "low"
	case TierMed:
		return "med"
	default:
		return "high"
	}
}

// Signals are the raw device capability inputs to tier selection.
type Signals struct {
	ReducedMotion bool
	PixelRatio    float64
	Cores         int
	MemoryGB      int
}

// DetectTier maps capability signals to a tier. Pure, no side effects.
// Reduced motion forces low regardless of the other signals.
func DetectTier(s Signals) Tier {
	if s.ReducedMotion {
		return TierLow
	}
	if s.PixelRatio <= 1 || s.Cores <= 4 || s.MemoryGB <= 4 {
		return TierMed
	}
	return TierHigh
}

// TierSpec fixes the geometry resolution and render settings for a tier.
type TierSpec struct {
	OrbSubdiv     int
	KnotSegments  int
	KnotSides     int
	Stars         int
	Swarm         int
	PixelRatioCap float64
	Samples       int // MSAA samples; 0 disables antialiasing
}

var tierSpecs = map[Tier]TierSpec{
	TierHigh: {OrbSubdiv: 3, KnotSegments: 256, KnotSides: 48, Stars: 2200, Swarm: 160, PixelRatioCap: 2.0, Samples: 4},
	TierMed:  {OrbSubdiv: 2, KnotSegments: 160, KnotSides: 32, Stars: 1200, Swarm: 96, PixelRatioCap: 1.5, Samples: 2},
	TierLow:  {OrbSubdiv: 1, KnotSegments: 96, KnotSides: 24, Stars: 500, Swarm: 48, PixelRatioCap: 1.0, Samples: 0},
}

// SpecFor returns the render settings for a tier.
func SpecFor(t Tier) TierSpec {
	s, ok := tierSpecs[t]
	if !ok {
		return tierSpecs[TierLow]
	}
	return s
}

// ProbeSignals reads device signals. glfw must already be initialized for
// the pixel ratio to be meaningful; without a monitor it assumes 1.
func ProbeSignals(cfg Config) Signals {
	ratio := 1.0
	if mon := glfw.GetPrimaryMonitor(); mon != nil {
		sx, sy := mon.GetContentScale()
		if sx > 0 {
			ratio = float64(sx)
		}
		if float64(sy) > ratio {
			ratio = float64(sy)
		}
	}
	return Signals{
		ReducedMotion: cfg.ReducedMotion,
		PixelRatio:    ratio,
		Cores:         runtime.NumCPU(),
		MemoryGB:      cfg.MemoryGB,
	}
}

// RenderFeasible reports whether a GL context can be created at all:
// preferred 4.1 core, fallback 3.3. The probe window is never shown.
func RenderFeasible() bool {
	for _, v := range [][2]int{{4, 1}, {3, 3}} {
		glfw.DefaultWindowHints()
		glfw.WindowHint(glfw.Visible, glfw.False)
		glfw.WindowHint(glfw.ContextVersionMajor, v[0])
		glfw.WindowHint(glfw.ContextVersionMinor, v[1])
		glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
		glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)
		w, err := glfw.CreateWindow(64, 64, "probe", nil, nil)
		if err == nil {
			w.Destroy()
			glfw.DefaultWindowHints()
			return true
		}
	}
	glfw.DefaultWindowHints()
	return false
}
