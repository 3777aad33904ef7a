// Package hub fans face events out to websocket subscribers using a
// channel-based broadcast loop.
package hub

// Message is one encoded event queued for broadcast. Every subscriber gets
// it as a single text frame.
type Message struct {
	Data []byte
}

// NewMessage wraps pre-encoded JSON.
func NewMessage(data []byte) Message {
	return Message{Data: data}
}
