package stage

import "github.com/sirupsen/logrus"

// ChapterID names one of the 7 fixed page chapters.
type ChapterID string

const (
	ChapterHero         ChapterID = "hero"
	ChapterFeatured     ChapterID = "featured"
	ChapterCapabilities ChapterID = "capabilities"
	ChapterProcess      ChapterID = "process"
	ChapterStudio       ChapterID = "studio"
	ChapterRecognition  ChapterID = "recognition"
	ChapterContact      ChapterID = "contact"
)

var chapterOrder = [7]ChapterID{
	ChapterHero,
	ChapterFeatured,
	ChapterCapabilities,
	ChapterProcess,
	ChapterStudio,
	ChapterRecognition,
	ChapterContact,
}

// ChapterState is the tracker's current chapter.
type ChapterState struct {
	Index int
	ID    ChapterID
}

// Cue fired on entering each chapter.
var chapterCues = map[ChapterID]CueKind{
	ChapterHero:         CueChime,
	ChapterFeatured:     CueWhoosh,
	ChapterCapabilities: CueWhoosh,
	ChapterProcess:      CueTick,
	ChapterStudio:       CueWhoosh,
	ChapterRecognition:  CueImpact,
	ChapterContact:      CueChime,
}

// chapterPlacement is the scene layout for one chapter: orb/knot target
// offsets, bloom base strength, and an optional fixed tint override.
type chapterPlacement struct {
	Orb, Knot [3]float64
	Bloom     float64
	Tint      RGB
	HasTint   bool
}

var chapterPlacements = map[ChapterID]chapterPlacement{
	ChapterHero:         {Orb: [3]float64{0, 0.2, 0}, Knot: [3]float64{2.6, -0.4, -1.5}, Bloom: 0.75},
	ChapterFeatured:     {Orb: [3]float64{-2.2, 0.6, -1.0}, Knot: [3]float64{2.0, 0.8, -2.0}, Bloom: 0.58},
	ChapterCapabilities: {Orb: [3]float64{2.4, -0.3, -0.5}, Knot: [3]float64{-2.4, 0.5, -1.2}, Bloom: 0.64, Tint: colorCyan, HasTint: true},
	ChapterProcess:      {Orb: [3]float64{-1.8, -0.8, -2.0}, Knot: [3]float64{1.4, 1.2, -0.8}, Bloom: 0.55},
	ChapterStudio:       {Orb: [3]float64{1.6, 1.0, -1.5}, Knot: [3]float64{-2.0, -0.9, -1.8}, Bloom: 0.6},
	ChapterRecognition:  {Orb: [3]float64{0, 1.1, -0.6}, Knot: [3]float64{0, -1.3, -2.4}, Bloom: 0.72, Tint: colorWhite, HasTint: true},
	ChapterContact:      {Orb: [3]float64{-2.6, 0.1, -1.2}, Knot: [3]float64{2.2, -0.6, -0.6}, Bloom: 0.62},
}

// placementFor returns the layout for a chapter, narrowed on small
// viewports so the objects stay out of the text column.
func placementFor(id ChapterID, narrow bool) chapterPlacement {
	p := chapterPlacements[id]
	if narrow {
		p.Orb[0] *= 0.55
		p.Knot[0] *= 0.55
	}
	return p
}

// chapterTint derives the per-chapter accent tint from the boot accent.
// It always re-derives from the boot accent — tints never compound across
// transitions. Capabilities and recognition override to fixed colours.
func chapterTint(accent RGB, id ChapterID, index int) RGB {
	if p := chapterPlacements[id]; p.HasTint {
		return p.Tint
	}
	// Subtle per-chapter shift: brighten and rotate slightly with depth.
	k := float64(index) * 0.05
	return RGB{
		R: clampF(accent.R*(1-k)+k*0.9, 0, 1),
		G: clampF(accent.G*(1-k*0.5)+k*0.55, 0, 1),
		B: clampF(accent.B, 0, 1),
	}
}

// Visibility thresholds: a section only competes for dominance once a
// quarter of the viewport is covered.
var visibilityThresholds = [3]float64{0.25, 0.45, 0.65}

// Debounce window for chapter switches.
const chapterDebounceSecs = 0.18

// Tracker observes section visibility and resolves the dominant chapter.
// A change of winner, held through the debounce window, transitions the
// tracker and emits EventChapterChanged with the atomic side effects
// (cue, layout, tint) handled by the bus subscribers.
type Tracker struct {
	log  *logrus.Entry
	page *Page
	bus  *EventBus

	state      ChapterState
	pending    int
	pendingFor float64

	ratios []float64 // scratch
}

func NewTracker(page *Page, bus *EventBus) *Tracker {
	return &Tracker{
		log:     logrus.WithField("component", "chapters"),
		page:    page,
		bus:     bus,
		state:   ChapterState{Index: 0, ID: chapterOrder[0]},
		pending: -1,
	}
}

func (t *Tracker) State() ChapterState { return t.state }

// winner picks the marker with the strictly highest visibility ratio at
// or above the lowest threshold. Ties resolve to document order (first
// wins).
func winner(ratios []float64) int {
	win := -1
	best := 0.0
	for i, r := range ratios {
		if r >= visibilityThresholds[0] && r > best {
			best = r
			win = i
		}
	}
	return win
}

// Update re-evaluates visibility and advances the debounce clock.
func (t *Tracker) Update(dt float64) {
	t.ratios = t.page.VisibilityRatios(t.ratios)
	win := winner(t.ratios)
	if win < 0 || win == t.state.Index {
		t.pending = -1
		t.pendingFor = 0
		return
	}
	if win != t.pending {
		t.pending = win
		t.pendingFor = 0
	}
	t.pendingFor += dt
	if t.pendingFor < chapterDebounceSecs {
		return
	}
	t.transition(win)
}

func (t *Tracker) transition(win int) {
	t.state = ChapterState{Index: win, ID: chapterOrder[win]}
	t.pending = -1
	t.pendingFor = 0
	t.log.WithField("chapter", t.state.ID).Debug("chapter transition")
	t.bus.Emit(Event{Type: EventChapterChanged, Chapter: t.state})
}

// Rebind rescans the page sections after a navigation. Bus subscriptions
// are made once at boot, so rebinding never duplicates listeners.
func (t *Tracker) Rebind(viewportW, viewportH float64) {
	t.page.Rebind(viewportW, viewportH)
	t.pending = -1
	t.pendingFor = 0
}
