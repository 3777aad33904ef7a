// Package detection provides the OpenCV-backed face detector and the BGR
// frame conversion that feeds it.
package detection

import (
	"fmt"
	"os"
)

// Config holds detector configuration
type Config struct {
	ModelPath   string  `yaml:"model_path"`   // Path to ONNX model
	ScoreThresh float64 `yaml:"score_thresh"` // Backend pre-filter (0-1); the pipeline applies its own threshold
	NMSThresh   float64 `yaml:"nms_thresh"`   // Non-maximum suppression overlap
	TopK        int     `yaml:"top_k"`        // Candidates kept before NMS
	InputWidth  int     `yaml:"input_width"`  // Initial model input width
	InputHeight int     `yaml:"input_height"` // Initial model input height
}

// DefaultConfig returns production defaults for YuNet
func DefaultConfig() Config {
	return Config{
		ModelPath:   "models/face_detection_yunet.onnx",
		ScoreThresh: 0.5,
		NMSThresh:   0.3,
		TopK:        5000,
		InputWidth:  320,
		InputHeight: 320,
	}
}

// Validate checks the configuration and that the model file exists.
func (c Config) Validate() error {
	if c.ModelPath == "" {
		return fmt.Errorf("detection: model path required")
	}
	if _, err := os.Stat(c.ModelPath); os.IsNotExist(err) {
		return fmt.Errorf("detection: model file not found: %s", c.ModelPath)
	}
	if c.ScoreThresh < 0 || c.ScoreThresh > 1 {
		return fmt.Errorf("detection: score threshold must be 0-1, got %.2f", c.ScoreThresh)
	}
	if c.InputWidth <= 0 || c.InputHeight <= 0 {
		return fmt.Errorf("detection: input size must be positive, got %dx%d", c.InputWidth, c.InputHeight)
	}
	return nil
}

// scoreToConfidence maps a 0-1 backend score onto the 0-100 scale of the
// result layout.
func scoreToConfidence(score float32) int16 {
	switch {
	case score <= 0:
		return 0
	case score >= 1:
		return 100
	}
	return int16(score*100 + 0.5)
}

// toField saturates a pixel coordinate into an int16 record field.
func toField(v float32) int16 {
	switch {
	case v >= 32767:
		return 32767
	case v <= -32768:
		return -32768
	}
	return int16(v)
}
