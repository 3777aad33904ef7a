package protocol

import "fmt"

// Output topics. Names follow the face detection node's published topics.
const (
	// TopicFaceBBox carries BoundingBoxes for frames with faces.
	TopicFaceBBox = "face/bbox"

	// TopicNoFace carries an empty message for frames without faces.
	TopicNoFace = "noface"
)

// Queue depths of the output topics.
const (
	FaceBBoxQueueDepth = 1000
	NoFaceQueueDepth   = 100
)

// Topics builds fully-qualified topic names under a prefix.
type Topics struct {
	prefix string
}

// NewTopics creates a Topics helper. An empty prefix leaves names bare.
func NewTopics(prefix string) *Topics {
	return &Topics{prefix: prefix}
}

// FaceBBox returns the full bounding-box topic.
func (t *Topics) FaceBBox() string {
	return t.join(TopicFaceBBox)
}

// NoFace returns the full no-face topic.
func (t *Topics) NoFace() string {
	return t.join(TopicNoFace)
}

// For returns the topic a message type is published on.
func (t *Topics) For(msgType MessageType) string {
	if msgType == TypeFaceBBox {
		return t.FaceBBox()
	}
	return t.NoFace()
}

func (t *Topics) join(topic string) string {
	if t.prefix == "" {
		return topic
	}
	return fmt.Sprintf("%s/%s", t.prefix, topic)
}
