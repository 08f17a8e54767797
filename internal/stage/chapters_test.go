package stage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWinner(t *testing.T) {
	tests := []struct {
		name   string
		ratios []float64
		want   int
	}{
		{"nothing visible", []float64{0, 0, 0, 0, 0, 0, 0}, -1},
		{"below threshold", []float64{0.2, 0.1, 0, 0, 0, 0, 0}, -1},
		{"single dominant", []float64{0.1, 0.9, 0, 0, 0, 0, 0}, 1},
		{"tie goes to document order", []float64{0.5, 0.5, 0, 0, 0, 0, 0}, 0},
		{"strictly higher wins", []float64{0.5, 0.51, 0, 0, 0, 0, 0}, 1},
		{"late section", []float64{0, 0, 0, 0, 0, 0, 1}, 6},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, winner(tt.ratios))
		})
	}
}

func TestTrackerDebounce(t *testing.T) {
	page := NewPage(1280, 800)
	bus := NewEventBus()
	var events []Event
	bus.Subscribe(EventChapterChanged, func(e Event) { events = append(events, e) })
	tr := NewTracker(page, bus)
	require.Equal(t, ChapterHero, tr.State().ID)

	// Jump straight to the capabilities section.
	page.SetScroll(2 * 800)

	// One update inside the debounce window: no transition yet.
	tr.Update(0.1)
	assert.Equal(t, ChapterHero, tr.State().ID)
	assert.Empty(t, events)

	// Crossing the window commits exactly one transition.
	tr.Update(0.1)
	require.Len(t, events, 1)
	assert.Equal(t, ChapterCapabilities, tr.State().ID)
	assert.Equal(t, 2, tr.State().Index)
	assert.Equal(t, ChapterCapabilities, events[0].Chapter.ID)

	// Staying put stays quiet.
	tr.Update(1)
	assert.Len(t, events, 1)
}

func TestTrackerFlickerSuppressed(t *testing.T) {
	page := NewPage(1280, 800)
	bus := NewEventBus()
	var events []Event
	bus.Subscribe(EventChapterChanged, func(e Event) { events = append(events, e) })
	tr := NewTracker(page, bus)

	// Oscillate across a boundary faster than the debounce window.
	for i := 0; i < 10; i++ {
		page.SetScroll(790)
		tr.Update(0.05)
		page.SetScroll(0)
		tr.Update(0.05)
	}
	assert.Empty(t, events, "rapid flicker must never commit a transition")
	assert.Equal(t, ChapterHero, tr.State().ID)
}

func TestTrackerRebindResetsPending(t *testing.T) {
	page := NewPage(1280, 800)
	tr := NewTracker(page, NewEventBus())

	page.SetScroll(1600)
	tr.Update(0.1) // pending but not committed
	tr.Rebind(1280, 900)
	assert.Equal(t, -1, tr.pending)
	assert.Equal(t, 0.0, tr.pendingFor)
}

func TestChapterCuesComplete(t *testing.T) {
	for _, id := range chapterOrder {
		_, ok := chapterCues[id]
		assert.True(t, ok, "chapter %s has no cue", id)
	}
	assert.Equal(t, CueTick, chapterCues[ChapterProcess])
	assert.Equal(t, CueImpact, chapterCues[ChapterRecognition])
}

func TestPlacementFor(t *testing.T) {
	wide := placementFor(ChapterCapabilities, false)
	narrow := placementFor(ChapterCapabilities, true)

	assert.InDelta(t, wide.Orb[0]*0.55, narrow.Orb[0], 1e-9)
	assert.InDelta(t, wide.Knot[0]*0.55, narrow.Knot[0], 1e-9)
	assert.Equal(t, wide.Bloom, narrow.Bloom, "narrowing only shifts x")
	assert.Equal(t, wide.Orb[1], narrow.Orb[1])
}

func TestChapterBloomTable(t *testing.T) {
	assert.InDelta(t, 0.75, chapterPlacements[ChapterHero].Bloom, 1e-9)
	assert.InDelta(t, 0.64, chapterPlacements[ChapterCapabilities].Bloom, 1e-9)
	assert.InDelta(t, 0.72, chapterPlacements[ChapterRecognition].Bloom, 1e-9)
}

func TestChapterTint(t *testing.T) {
	accent := DefaultAccent

	// Fixed overrides.
	assert.Equal(t, colorCyan, chapterTint(accent, ChapterCapabilities, 2))
	assert.Equal(t, colorWhite, chapterTint(accent, ChapterRecognition, 5))

	// Derived tints re-derive from the boot accent: applying the same
	// chapter twice gives the same colour, nothing compounds.
	a := chapterTint(accent, ChapterStudio, 4)
	b := chapterTint(accent, ChapterStudio, 4)
	assert.Equal(t, a, b)

	// Different chapters shift differently.
	hero := chapterTint(accent, ChapterHero, 0)
	contact := chapterTint(accent, ChapterContact, 6)
	assert.Equal(t, accent, hero, "hero keeps the raw accent")
	assert.NotEqual(t, hero, contact)
}
