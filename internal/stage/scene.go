package stage

import "math"

// Breathing pulse period for the orb, seconds.
const orbBreathPeriod = 5.2

// Camera parallax smoothing factor per frame (exponential, not a jump).
const cameraSmoothing = 0.05

// swarmTransform is one instance in the swarm arena: index-addressed,
// mutated in place every frame, never reallocated.
type swarmTransform struct {
	BaseX, BaseY, BaseZ float64
	X, Y, Z             float64
	Rot                 float64
	Scale               float64
}

// material is the mutable colour state of one drawable group.
type material struct {
	Base     RGB
	Emissive RGB
}

// Scene owns the transform and material state of the four drawable
// groups plus the camera. It is pure state: the renderer reads it, GL
// never leaks in. Geometry is built once per quality tier at boot.
type Scene struct {
	spec   TierSpec
	accent RGB

	elapsed float64

	// Camera.
	CamX, CamY, CamZ float64
	pointerX         float64 // -1..1
	pointerY         float64

	// Orb.
	OrbX, OrbY, OrbZ    float64
	orbTX, orbTY, orbTZ float64 // chapter layout targets
	OrbRot              float64
	OrbScale            float64
	OrbMat              material
	EmissiveStrength    float64

	// Knot.
	KnotX, KnotY, KnotZ    float64
	knotTX, knotTY, knotTZ float64
	KnotRotX, KnotRotY     float64
	KnotMat                material

	// Starfield.
	StarRot float64

	// Swarm.
	Swarm     []swarmTransform
	SwarmMat  material
	swarmTint RGB

	// Bloom / fade.
	bloomBase     float64
	BloomStrength float64
	Fade          float64
}

func NewScene(spec TierSpec, accent RGB) *Scene {
	s := &Scene{
		spec:      spec,
		CamZ:      7.5,
		OrbScale:  1,
		bloomBase: chapterPlacements[ChapterHero].Bloom,
		Fade:      1,
	}
	rng := NewRand(0xB10C5)
	s.Swarm = make([]swarmTransform, spec.Swarm)
	for i := range s.Swarm {
		s.Swarm[i] = swarmTransform{
			BaseX: rng.RangeF(-6, 6),
			BaseY: rng.RangeF(-3.5, 3.5),
			BaseZ: rng.RangeF(-7, -1.5),
			Scale: rng.RangeF(0.05, 0.16),
		}
	}
	hero := placementFor(ChapterHero, false)
	s.orbTX, s.orbTY, s.orbTZ = hero.Orb[0], hero.Orb[1], hero.Orb[2]
	s.knotTX, s.knotTY, s.knotTZ = hero.Knot[0], hero.Knot[1], hero.Knot[2]
	s.OrbX, s.OrbY, s.OrbZ = s.orbTX, s.orbTY, s.orbTZ
	s.KnotX, s.KnotY, s.KnotZ = s.knotTX, s.knotTY, s.knotTZ
	s.SetAccent(accent)
	s.swarmTint = chapterTint(accent, ChapterHero, 0)
	return s
}

func (s *Scene) Spec() TierSpec { return s.spec }

// SetAccent recolours the drawable materials from the theme accent.
// Idempotent: repeated identical input yields identical material state.
func (s *Scene) SetAccent(c RGB) {
	s.accent = c
	s.OrbMat = material{Base: c.Scale(0.35), Emissive: c}
	// Knot blends 75% accent / 25% white.
	knot := c.Blend(colorWhite, 0.25)
	s.KnotMat = material{Base: knot.Scale(0.5), Emissive: knot.Scale(0.6)}
	// Swarm uses the raw accent; the chapter tint is applied on top.
	s.SwarmMat = material{Base: c, Emissive: c.Scale(0.3)}
}

// Accent returns the boot accent colour the materials derive from.
func (s *Scene) Accent() RGB { return s.accent }

// SetChapter reflows the layout targets, bloom base, and swarm tint for
// a chapter transition. The tint re-derives from the boot accent.
func (s *Scene) SetChapter(st ChapterState, narrow bool) {
	p := placementFor(st.ID, narrow)
	s.orbTX, s.orbTY, s.orbTZ = p.Orb[0], p.Orb[1], p.Orb[2]
	s.knotTX, s.knotTY, s.knotTZ = p.Knot[0], p.Knot[1], p.Knot[2]
	s.bloomBase = p.Bloom
	s.swarmTint = chapterTint(s.accent, st.ID, st.Index)
}

// SwarmColor is the tinted swarm draw colour: chapter tint blended 25%
// into the raw accent.
func (s *Scene) SwarmColor() RGB {
	return s.SwarmMat.Base.Blend(s.swarmTint, 0.25)
}

// SetPointer feeds the parallax target, coordinates in [-1,1].
func (s *Scene) SetPointer(x, y float64) {
	s.pointerX = clampF(x, -1, 1)
	s.pointerY = clampF(y, -1, 1)
}

// SetFade applies the scroll-derived opacity factor (Page.HeroFade).
func (s *Scene) SetFade(f float64) {
	s.Fade = clampF(f, 0, 1)
}

// Update advances the continuous animation by dt seconds, reading the
// audio level for the breathing pulse, emissive, and bloom response.
func (s *Scene) Update(dt, level float64) {
	s.elapsed += dt

	// Camera parallax: exponential smoothing toward the pointer target.
	tx := s.pointerX * 1.6
	ty := -s.pointerY * 0.9
	s.CamX += (tx - s.CamX) * cameraSmoothing
	s.CamY += (ty - s.CamY) * cameraSmoothing

	// Layout targets approached smoothly after a chapter reflow.
	k := 1 - math.Exp(-dt*2.4)
	s.OrbX += (s.orbTX - s.OrbX) * k
	s.OrbY += (s.orbTY - s.OrbY) * k
	s.OrbZ += (s.orbTZ - s.OrbZ) * k
	s.KnotX += (s.knotTX - s.KnotX) * k
	s.KnotY += (s.knotTY - s.KnotY) * k
	s.KnotZ += (s.knotTZ - s.KnotZ) * k

	// Continuous rotation, modulated by pointer position.
	s.OrbRot += dt * (0.22 + 0.1*s.pointerX)
	s.KnotRotX += dt * 0.17
	s.KnotRotY += dt * (0.31 + 0.08*s.pointerY)
	s.StarRot += dt * 0.012

	// Breathing pulse: sinusoidal term plus the audio level.
	s.OrbScale = 1 + 0.04*math.Sin(2*math.Pi*s.elapsed/orbBreathPeriod) + 0.18*level

	// Swarm wobble: per-instance-indexed offsets, one pass, in place.
	for i := range s.Swarm {
		inst := &s.Swarm[i]
		phase := s.elapsed + float64(i)*0.37
		inst.X = inst.BaseX + 0.35*math.Sin(phase*0.9)
		inst.Y = inst.BaseY + 0.2*math.Sin(phase*0.7+1.3)
		inst.Z = inst.BaseZ
		inst.Rot = phase * 0.6
	}

	// Emissive and bloom respond to audio and the scroll fade together.
	s.EmissiveStrength = (0.6 + 1.4*level) * s.Fade
	s.BloomStrength = (s.bloomBase + 0.3*level) * s.Fade
}
