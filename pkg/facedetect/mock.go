package facedetect

import "sync"

// MockDetector implements Detector for testing. It packs Records into the
// scratch buffer the way the real detector lays them out.
type MockDetector struct {
	// DetectFunc, when set, replaces the default behavior.
	DetectFunc func(scratch []byte, frame Frame) ResultHandle

	// Records are packed into scratch on every call.
	Records []RawRecord

	mu    sync.Mutex
	calls int
}

// Detect implements Detector.
func (m *MockDetector) Detect(scratch []byte, frame Frame) ResultHandle {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()

	if m.DetectFunc != nil {
		return m.DetectFunc(scratch, frame)
	}
	h, err := Pack(scratch, m.Records)
	if err != nil {
		return NoResult
	}
	return h
}

// Calls returns how many times Detect ran.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// RecordingPublisher implements Publisher for testing and keeps every event.
type RecordingPublisher struct {
	// Err is returned from every Publish call.
	Err error

	mu     sync.Mutex
	events []Event
}

// Publish implements Publisher.
func (r *RecordingPublisher) Publish(ev Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return r.Err
}

// Events returns a copy of the recorded events.
func (r *RecordingPublisher) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}
