package facedetect

// EventKind tells the two frame outcomes apart.
type EventKind int

const (
	// NoFace means no detection survived for the frame.
	NoFace EventKind = iota
	// Faces means the event carries at least one bounding box.
	Faces
)

// String returns the topic-style name of the kind.
func (k EventKind) String() string {
	switch k {
	case Faces:
		return "faces"
	default:
		return "noface"
	}
}

// Event is the single outcome of processing one frame.
type Event struct {
	Kind    EventKind
	Faces   []Face       // set for Faces only
	Context FrameContext // set for Faces only
}

// Select turns the normalized faces of a frame into its output event.
func Select(faces []Face, ctx FrameContext) Event {
	if len(faces) == 0 {
		return Event{Kind: NoFace}
	}
	return Event{Kind: Faces, Faces: faces, Context: ctx}
}
