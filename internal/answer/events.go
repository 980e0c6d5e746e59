package answer

// EventType discriminates streamed answer events.
type EventType string

const (
	// EventDelta carries partial answer text; Text is the cumulative answer so
	// far and is strictly growing across the sequence.
	EventDelta EventType = "delta"
	// EventDone terminates a successful stream; Text is the full answer.
	EventDone EventType = "done"
	// EventError terminates a failed stream. No further events follow it.
	EventError EventType = "error"
)

// Event is one element of a streamed answer sequence.
type Event struct {
	Type      EventType
	Delta     string
	Text      string
	Citations []Citation
	Err       error
}
