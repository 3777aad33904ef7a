package protocol

import (
	"encoding/base64"
	"fmt"
	"time"

	"github.com/teslashibe/go-facenode/pkg/facedetect"
)

// NewFrameMessage creates a frame message from encoded image data
func NewFrameMessage(format string, data []byte, header facedetect.Header) (*Message, error) {
	return NewMessage(TypeFrame, FrameData{
		Format:  format,
		Data:    base64.StdEncoding.EncodeToString(data),
		Seq:     header.Seq,
		Stamp:   stampNanos(header.Stamp),
		FrameID: header.FrameID,
	})
}

// GetFrameData extracts frame data from a message
func (m *Message) GetFrameData() (*FrameData, error) {
	if m.Type != TypeFrame {
		return nil, fmt.Errorf("message type %q is not %q", m.Type, TypeFrame)
	}
	var data FrameData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// DecodeFrameData decodes the base64 image data
func (f *FrameData) DecodeFrameData() ([]byte, error) {
	return base64.StdEncoding.DecodeString(f.Data)
}

// FrameHeader returns the frame header carried by the message.
func (f *FrameData) FrameHeader() facedetect.Header {
	h := facedetect.Header{Seq: f.Seq, FrameID: f.FrameID}
	if f.Stamp != 0 {
		h.Stamp = time.Unix(0, f.Stamp)
	}
	return h
}

// NewBoundingBoxes converts the faces of an event into the point-pair layout.
func NewBoundingBoxes(ev facedetect.Event) BoundingBoxes {
	bb := BoundingBoxes{
		Header: HeaderFrom(ev.Context.Header),
		Points: make([]Point32, 0, 2*len(ev.Faces)),
	}
	for _, f := range ev.Faces {
		bb.Points = append(bb.Points,
			Point32{X: float32(f.X), Y: float32(f.Y)},
			Point32{X: float32(f.Width), Y: float32(f.Height)},
		)
	}
	return bb
}

// HeaderFrom converts a frame header to its wire form.
func HeaderFrom(h facedetect.Header) Header {
	return Header{Seq: h.Seq, Stamp: stampNanos(h.Stamp), FrameID: h.FrameID}
}

// NewEventMessage creates the message for a frame outcome: face_bbox with the
// bounding boxes, or an empty noface.
func NewEventMessage(ev facedetect.Event) (*Message, error) {
	if ev.Kind == facedetect.Faces {
		return NewMessage(TypeFaceBBox, NewBoundingBoxes(ev))
	}
	return NewMessage(TypeNoFace, nil)
}

// GetBoundingBoxes extracts bounding boxes from a face_bbox message
func (m *Message) GetBoundingBoxes() (*BoundingBoxes, error) {
	if m.Type != TypeFaceBBox {
		return nil, fmt.Errorf("message type %q is not %q", m.Type, TypeFaceBBox)
	}
	var data BoundingBoxes
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// NewPingMessage creates a ping message
func NewPingMessage(id string) (*Message, error) {
	return NewMessage(TypePing, PingData{ID: id, Timestamp: time.Now().UnixMilli()})
}

// NewPongMessage creates a pong response message
func NewPongMessage(id string, pingTS, pongTS int64) (*Message, error) {
	return NewMessage(TypePong, PongData{
		ID:        id,
		PingTS:    pingTS,
		PongTS:    pongTS,
		LatencyMs: pongTS - pingTS,
	})
}

func stampNanos(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}
