package web

import (
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/teslashibe/go-facenode/pkg/facedetect"
	"github.com/teslashibe/go-facenode/pkg/hub"
	"github.com/teslashibe/go-facenode/pkg/protocol"
)

// Request headers that set the frame header of an upload.
const (
	HeaderFrameID  = "X-Frame-Id"
	HeaderFrameSeq = "X-Frame-Seq"
)

// StatusResponse is returned by GET /api/status
type StatusResponse struct {
	Uptime      string         `json:"uptime"`
	Processing  bool           `json:"processing"`
	Subscribers map[string]int `json:"subscribers"`
}

// StatsResponse is returned by GET /api/stats
type StatsResponse struct {
	Pipeline *facedetect.Stats `json:"pipeline,omitempty"`
	Topics   []hub.Stats       `json:"topics"`
}

func (s *Server) handleStatus(c *fiber.Ctx) error {
	s.mu.RLock()
	processing := s.processor != nil
	s.mu.RUnlock()

	return c.JSON(StatusResponse{
		Uptime:     time.Since(s.started).Round(time.Second).String(),
		Processing: processing,
		Subscribers: map[string]int{
			s.bboxHub.Topic():   s.bboxHub.ClientCount(),
			s.nofaceHub.Topic(): s.nofaceHub.ClientCount(),
		},
	})
}

func (s *Server) handleStats(c *fiber.Ctx) error {
	resp := StatsResponse{
		Topics: []hub.Stats{s.bboxHub.Stats(), s.nofaceHub.Stats()},
	}

	s.mu.RLock()
	if s.processor != nil {
		st := s.processor.Stats()
		resp.Pipeline = &st
	}
	s.mu.RUnlock()

	return c.JSON(resp)
}

// handleFrame runs an uploaded image through the pipeline and answers with the
// message published for it.
func (s *Server) handleFrame(c *fiber.Ctx) error {
	s.mu.RLock()
	processor, decode := s.processor, s.decode
	s.mu.RUnlock()

	if processor == nil || decode == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "frame processing not configured",
		})
	}

	body := c.Body()
	if len(body) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "empty body",
		})
	}

	header, err := s.uploadHeader(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	// fasthttp reuses the body buffer after the handler returns
	frame, err := decode(append([]byte(nil), body...), header)
	if err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	ev, err := processor.Process(frame)
	if errors.Is(err, facedetect.ErrInvalidFrame) {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	if errors.Is(err, facedetect.ErrPipelineClosed) {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	if err != nil {
		// The event was produced; only delivery failed.
		s.logger.Warn("publish failed", "error", err, "frame_id", header.FrameID)
	}

	msg, err := protocol.NewEventMessage(ev)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.JSON(msg)
}

func (s *Server) uploadHeader(c *fiber.Ctx) (facedetect.Header, error) {
	header := facedetect.Header{
		Stamp:   time.Now(),
		FrameID: c.Get(HeaderFrameID),
	}
	if header.FrameID == "" {
		header.FrameID = uuid.NewString()
	}

	if raw := c.Get(HeaderFrameSeq); raw != "" {
		seq, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			return header, errors.New("invalid " + HeaderFrameSeq)
		}
		header.Seq = uint32(seq)
	} else {
		header.Seq = s.nextSeq()
	}
	return header, nil
}
