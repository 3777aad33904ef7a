package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTopics(t *testing.T) {
	tests := []struct {
		prefix    string
		wantBBox  string
		wantEmpty string
	}{
		{"", "face/bbox", "noface"},
		{"facenode", "facenode/face/bbox", "facenode/noface"},
		{"site/cam1", "site/cam1/face/bbox", "site/cam1/noface"},
	}

	for _, tt := range tests {
		t.Run(tt.prefix, func(t *testing.T) {
			topics := NewTopics(tt.prefix)
			assert.Equal(t, tt.wantBBox, topics.FaceBBox())
			assert.Equal(t, tt.wantEmpty, topics.NoFace())
			assert.Equal(t, tt.wantBBox, topics.For(TypeFaceBBox))
			assert.Equal(t, tt.wantEmpty, topics.For(TypeNoFace))
		})
	}
}
