package facedetect

import "errors"

// Sentinel errors for common conditions.
var (
	// ErrInvalidBufferSize is returned when a scratch buffer is requested with
	// a size other than BufferSize.
	ErrInvalidBufferSize = errors.New("facedetect: invalid scratch buffer size")

	// ErrBufferReleased is returned when a scratch buffer is used or released
	// after Release.
	ErrBufferReleased = errors.New("facedetect: scratch buffer released")

	// ErrNoDetector is returned when a pipeline is built without a detector.
	ErrNoDetector = errors.New("facedetect: detector required")

	// ErrNoPublisher is returned when a pipeline is built without a publisher.
	ErrNoPublisher = errors.New("facedetect: publisher required")

	// ErrInvalidFrame is returned for frames whose geometry does not match
	// their pixel buffer.
	ErrInvalidFrame = errors.New("facedetect: invalid frame")

	// ErrTooManyRecords is returned when packing more records than a result
	// region can hold.
	ErrTooManyRecords = errors.New("facedetect: too many records for result region")

	// ErrPipelineClosed is returned when processing after Close.
	ErrPipelineClosed = errors.New("facedetect: pipeline closed")
)
