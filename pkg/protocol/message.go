// Package protocol defines the JSON messages exchanged with camera sources and
// face-event subscribers.
package protocol

import (
	"encoding/json"
	"fmt"
	"time"
)

// MessageType identifies the type of message
type MessageType string

const (
	// Source → node
	TypeFrame MessageType = "frame" // Encoded camera frame

	// Node → subscribers
	TypeFaceBBox MessageType = "face_bbox" // Bounding boxes of detected faces
	TypeNoFace   MessageType = "noface"    // Nothing detected in a frame

	// Bidirectional
	TypePing MessageType = "ping" // Health check
	TypePong MessageType = "pong" // Health check response
)

// Message is the base wrapper for all messages
type Message struct {
	Type      MessageType     `json:"type"`
	Timestamp int64           `json:"ts,omitempty"` // Unix milliseconds
	Data      json.RawMessage `json:"data,omitempty"`
}

// NewMessage creates a new message with the current timestamp
func NewMessage(msgType MessageType, data interface{}) (*Message, error) {
	var rawData json.RawMessage
	if data != nil {
		var err error
		rawData, err = json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal message data: %w", err)
		}
	}

	return &Message{
		Type:      msgType,
		Timestamp: time.Now().UnixMilli(),
		Data:      rawData,
	}, nil
}

// ParseData unmarshals the message data into the provided struct
func (m *Message) ParseData(v interface{}) error {
	if m.Data == nil {
		return nil
	}
	return json.Unmarshal(m.Data, v)
}

// Bytes returns the JSON-encoded message
func (m *Message) Bytes() ([]byte, error) {
	return json.Marshal(m)
}

// ParseMessage parses a JSON message from bytes
func ParseMessage(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}
	return &msg, nil
}

// FrameData contains an encoded camera frame
type FrameData struct {
	Width   int    `json:"width,omitempty"`
	Height  int    `json:"height,omitempty"`
	Format  string `json:"format"` // "jpeg", "png"
	Data    string `json:"data"`   // base64 encoded
	Seq     uint32 `json:"seq,omitempty"`
	Stamp   int64  `json:"stamp,omitempty"` // Unix nanoseconds
	FrameID string `json:"frame_id,omitempty"`
}

// Header is the wire form of a frame header.
type Header struct {
	Seq     uint32 `json:"seq"`
	Stamp   int64  `json:"stamp"` // Unix nanoseconds
	FrameID string `json:"frame_id"`
}

// Point32 is a single-precision 3D point.
type Point32 struct {
	X float32 `json:"x"`
	Y float32 `json:"y"`
	Z float32 `json:"z"`
}

// BoundingBoxes lists detected faces as point pairs: for each face, the
// top-left corner (x, y, 0) followed by its size (width, height, 0).
type BoundingBoxes struct {
	Header Header    `json:"header"`
	Points []Point32 `json:"points"`
}

// Box is one face rectangle recovered from a point pair.
type Box struct {
	X, Y, Width, Height int
}

// Boxes pairs up Points. A trailing unpaired point is ignored.
func (b *BoundingBoxes) Boxes() []Box {
	boxes := make([]Box, 0, len(b.Points)/2)
	for i := 0; i+1 < len(b.Points); i += 2 {
		pos, size := b.Points[i], b.Points[i+1]
		boxes = append(boxes, Box{
			X:      int(pos.X),
			Y:      int(pos.Y),
			Width:  int(size.X),
			Height: int(size.Y),
		})
	}
	return boxes
}

// PingData contains ping information
type PingData struct {
	ID        string `json:"id"`
	Timestamp int64  `json:"ts"`
}

// PongData contains pong response
type PongData struct {
	ID        string `json:"id"`
	PingTS    int64  `json:"ping_ts"`
	PongTS    int64  `json:"pong_ts"`
	LatencyMs int64  `json:"latency_ms"`
}
