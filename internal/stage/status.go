package stage

import (
	"fmt"
	"strings"
	"sync"
)

// Status is the human-readable state indicator plus the sound-toggle
// control state (label and pressed flag). A sink receives every change;
// the desktop shell mirrors it to the window title.
type Status struct {
	mu      sync.Mutex
	failure string
	chapter ChapterID
	sound   string // "on", "off", "loading"
	missing []string

	toggleLabel   string
	togglePressed bool

	sink func(string)
}

func NewStatus(sink func(string)) *Status {
	s := &Status{
		chapter:     ChapterHero,
		sound:       "off",
		toggleLabel: "Sound: Off",
		sink:        sink,
	}
	return s
}

// Line renders the indicator text. Failures replace the normal line.
func (s *Status) Line() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.line()
}

func (s *Status) line() string {
	if s.failure != "" {
		return s.failure
	}
	line := fmt.Sprintf("3D: ON • %s • sound %s", s.chapter, s.sound)
	if len(s.missing) > 0 {
		line += fmt.Sprintf(" (missing: %s)", strings.Join(s.missing, ", "))
	}
	return line
}

func (s *Status) publish() {
	if s.sink != nil {
		s.sink(s.line())
	}
}

func (s *Status) SetFailure(msg string) {
	s.mu.Lock()
	s.failure = msg
	s.publish()
	s.mu.Unlock()
}

func (s *Status) SetChapter(id ChapterID) {
	s.mu.Lock()
	s.chapter = id
	s.publish()
	s.mu.Unlock()
}

func (s *Status) SetSound(state string) {
	s.mu.Lock()
	s.sound = state
	s.publish()
	s.mu.Unlock()
}

func (s *Status) SetMissing(names []string) {
	s.mu.Lock()
	s.missing = append([]string(nil), names...)
	s.publish()
	s.mu.Unlock()
}

// SetToggle updates the sound control state (the aria-pressed analog).
func (s *Status) SetToggle(on bool) {
	s.mu.Lock()
	s.togglePressed = on
	if on {
		s.toggleLabel = "Sound: On"
	} else {
		s.toggleLabel = "Sound: Off"
	}
	s.mu.Unlock()
}

func (s *Status) Toggle() (label string, pressed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.toggleLabel, s.togglePressed
}
