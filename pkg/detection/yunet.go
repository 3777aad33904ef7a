package detection

import (
	"image"
	"log/slog"
	"sync"

	"github.com/teslashibe/go-facenode/pkg/facedetect"
	"gocv.io/x/gocv"
)

// YuNetDetector uses OpenCV's FaceDetectorYN and writes its detections into
// the scratch buffer in the packed result layout.
type YuNetDetector struct {
	detector gocv.FaceDetectorYN
	config   Config
	logger   *slog.Logger
	mu       sync.Mutex // Protects inference
}

// NewYuNet creates a new YuNet face detector using GoCV's built-in FaceDetectorYN
func NewYuNet(cfg Config, logger *slog.Logger) (*YuNetDetector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	// Input size is updated per frame
	detector := gocv.NewFaceDetectorYNWithParams(
		cfg.ModelPath,
		"",
		image.Pt(cfg.InputWidth, cfg.InputHeight),
		float32(cfg.ScoreThresh),
		float32(cfg.NMSThresh),
		cfg.TopK,
		int(gocv.NetBackendDefault),
		int(gocv.NetTargetCPU),
	)

	logger.Info("yunet detector loaded", "model", cfg.ModelPath)

	return &YuNetDetector{
		detector: detector,
		config:   cfg,
		logger:   logger,
	}, nil
}

// Detect implements facedetect.Detector.
func (d *YuNetDetector) Detect(scratch []byte, frame facedetect.Frame) facedetect.ResultHandle {
	d.mu.Lock()
	defer d.mu.Unlock()

	img, err := MatFromFrame(frame)
	if err != nil {
		d.logger.Warn("frame to mat", "error", err, "frame_id", frame.Header.FrameID)
		return facedetect.NoResult
	}
	defer img.Close()

	d.detector.SetInputSize(image.Pt(frame.Width, frame.Height))

	faces := gocv.NewMat()
	defer faces.Close()

	d.detector.Detect(img, &faces)

	records := make([]facedetect.RawRecord, 0, faces.Rows())
	for r := 0; r < faces.Rows() && len(records) < facedetect.MaxRecords; r++ {
		// YuNet output format (15 columns):
		// 0-3: x, y, w, h (bounding box in pixels)
		// 4-13: 5 facial landmarks (x,y pairs)
		// 14: face score
		records = append(records, facedetect.RawRecord{
			X:          toField(faces.GetFloatAt(r, 0)),
			Y:          toField(faces.GetFloatAt(r, 1)),
			Width:      toField(faces.GetFloatAt(r, 2)),
			Height:     toField(faces.GetFloatAt(r, 3)),
			Confidence: scoreToConfidence(faces.GetFloatAt(r, 14)),
		})
	}

	h, err := facedetect.Pack(scratch, records)
	if err != nil {
		d.logger.Warn("pack detections", "error", err, "count", len(records))
		return facedetect.NoResult
	}
	return h
}

// Close releases the detector resources
func (d *YuNetDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.detector.Close()
	return nil
}
