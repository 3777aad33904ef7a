// Package web serves face events over HTTP and websockets.
package web

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"
	"github.com/teslashibe/go-facenode/pkg/facedetect"
	"github.com/teslashibe/go-facenode/pkg/hub"
	"github.com/teslashibe/go-facenode/pkg/protocol"
)

// maxUploadSize caps POST /api/frames bodies.
const maxUploadSize = 16 * 1024 * 1024

// FrameProcessor runs one frame through the face pipeline.
type FrameProcessor interface {
	Process(frame facedetect.Frame) (facedetect.Event, error)
	Stats() facedetect.Stats
}

// FrameDecoder turns an uploaded image into a BGR frame.
type FrameDecoder func(data []byte, header facedetect.Header) (facedetect.Frame, error)

// Server publishes face events to websocket subscribers and accepts frame
// uploads.
type Server struct {
	app    *fiber.App
	addr   string
	logger *slog.Logger
	topics *protocol.Topics

	bboxHub   *hub.Hub
	nofaceHub *hub.Hub

	mu        sync.RWMutex
	processor FrameProcessor
	decode    FrameDecoder
	seq       uint32

	started time.Time
}

// NewServer creates a server listening on addr (e.g. ":8080").
func NewServer(addr string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "web")

	topics := protocol.NewTopics("")
	s := &Server{
		addr:      addr,
		logger:    logger,
		topics:    topics,
		bboxHub:   hub.New(topics.FaceBBox(), protocol.FaceBBoxQueueDepth, logger),
		nofaceHub: hub.New(topics.NoFace(), protocol.NoFaceQueueDepth, logger),
		started:   time.Now(),
	}

	app := fiber.New(fiber.Config{
		AppName:               "facenode",
		DisableStartupMessage: true,
		BodyLimit:             maxUploadSize,
	})

	app.Use(cors.New())

	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Get("/stats", s.handleStats)
	api.Post("/frames", s.handleFrame)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws/"+protocol.TopicFaceBBox, websocket.New(s.subscribe(s.bboxHub)))
	app.Get("/ws/"+protocol.TopicNoFace, websocket.New(s.subscribe(s.nofaceHub)))

	s.app = app
	return s
}

// SetProcessor attaches the pipeline used for uploaded frames.
func (s *Server) SetProcessor(p FrameProcessor, decode FrameDecoder) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.processor = p
	s.decode = decode
}

// Publish implements facedetect.Publisher by broadcasting the event's wire
// message to the subscribers of its topic.
func (s *Server) Publish(ev facedetect.Event) error {
	msg, err := protocol.NewEventMessage(ev)
	if err != nil {
		return err
	}
	data, err := msg.Bytes()
	if err != nil {
		return err
	}

	h := s.nofaceHub
	if ev.Kind == facedetect.Faces {
		h = s.bboxHub
	}
	return h.Broadcast(hub.NewMessage(data))
}

// Start runs the hubs and serves until ctx is done.
func (s *Server) Start(ctx context.Context) error {
	go s.bboxHub.Run(ctx)
	go s.nofaceHub.Run(ctx)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("web server listening", "addr", s.addr)
		errCh <- s.app.Listen(s.addr)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("web server: %w", err)
	case <-ctx.Done():
		if err := s.app.ShutdownWithTimeout(5 * time.Second); err != nil {
			return fmt.Errorf("web server shutdown: %w", err)
		}
		if err := <-errCh; err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Debug("listener closed", "error", err)
		}
		return nil
	}
}

// App returns the fiber app, for tests and embedding.
func (s *Server) App() *fiber.App {
	return s.app
}

// Hubs returns the bounding-box and no-face hubs.
func (s *Server) Hubs() (bbox, noface *hub.Hub) {
	return s.bboxHub, s.nofaceHub
}

func (s *Server) subscribe(h *hub.Hub) func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		hub.NewClient(h, c).Run()
	}
}

func (s *Server) nextSeq() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	return s.seq
}
