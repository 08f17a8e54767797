package stage

type EventType int

const (
	EventChapterChanged EventType = iota
	EventSoundToggled
	EventViewportResized
)

type Event struct {
	Type    EventType
	Chapter ChapterState // chapter change
	On      bool         // sound toggle
	W, H    int          // viewport resize
}

type EventHandler func(Event)

type EventBus struct {
	handlers map[EventType][]EventHandler
}

func NewEventBus() *EventBus {
	return &EventBus{
		handlers: make(map[EventType][]EventHandler),
	}
}

func (eb *EventBus) Subscribe(t EventType, fn EventHandler) {
	eb.handlers[t] = append(eb.handlers[t], fn)
}

func (eb *EventBus) Emit(e Event) {
	for _, fn := range eb.handlers[e.Type] {
		fn(e)
	}
}
