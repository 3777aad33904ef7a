package source

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/teslashibe/go-facenode/pkg/facedetect"
	"github.com/teslashibe/go-facenode/pkg/protocol"
)

// Decoder converts an encoded image into a BGR frame.
type Decoder func(data []byte, header facedetect.Header) (facedetect.Frame, error)

// Handler consumes one frame. Frames are delivered sequentially.
type Handler func(frame facedetect.Frame) error

// Source subscribes to an upstream frame stream.
//
// Text messages are protocol envelopes: "frame" messages carry a base64
// image and header, "ping" is answered with "pong", anything else is
// ignored. Binary messages are bare encoded images.
type Source struct {
	cfg    Config
	decode Decoder
	logger *slog.Logger
	dialer websocket.Dialer

	queue *pending
	seq   atomic.Uint32

	writeMu sync.Mutex

	received      atomic.Int64
	dropped       atomic.Int64
	decodeErrors  atomic.Int64
	handlerErrors atomic.Int64
	reconnects    atomic.Int64
	connected     atomic.Bool
}

// New creates a frame source. Call Run to start receiving.
func New(cfg Config, decode Decoder, logger *slog.Logger) (*Source, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if decode == nil {
		return nil, errors.New("source: decoder is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Source{
		cfg:    cfg,
		decode: decode,
		logger: logger.With("component", "source"),
		dialer: websocket.Dialer{HandshakeTimeout: cfg.HandshakeTimeout},
		queue:  newPending(cfg.Depth),
	}, nil
}

// Run receives frames and passes them to handle until ctx is done or the
// reconnect limit is reached.
func (s *Source) Run(ctx context.Context, handle Handler) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.consume(ctx, handle)
	}()

	err := s.receive(ctx)
	cancel()
	wg.Wait()
	return err
}

// receive dials and reads until ctx is done, redialing on failure.
func (s *Source) receive(ctx context.Context) error {
	attempts := 0

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		conn, _, err := s.dialer.DialContext(ctx, s.cfg.URL, nil)
		if err == nil {
			attempts = 0
			s.connected.Store(true)
			s.logger.Info("connected to frame source", "url", s.cfg.URL)

			err = s.readLoop(ctx, conn)

			s.connected.Store(false)
			conn.Close()
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.logger.Warn("frame source disconnected", "error", err)
		} else {
			attempts++
			if s.cfg.MaxReconnectAttempts > 0 && attempts >= s.cfg.MaxReconnectAttempts {
				return fmt.Errorf("max reconnect attempts (%d) reached: %w", s.cfg.MaxReconnectAttempts, err)
			}
			s.logger.Warn("frame source connection failed, retrying",
				"error", err,
				"attempt", attempts,
				"retry_in", s.cfg.ReconnectInterval,
			)
		}

		s.reconnects.Add(1)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.cfg.ReconnectInterval):
		}
	}
}

func (s *Source) readLoop(ctx context.Context, conn *websocket.Conn) error {
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		switch msgType {
		case websocket.BinaryMessage:
			s.enqueue(encoded{data: data, header: facedetect.Header{Seq: s.seq.Add(1)}})
		case websocket.TextMessage:
			s.handleText(conn, data)
		}
	}
}

func (s *Source) handleText(conn *websocket.Conn, data []byte) {
	msg, err := protocol.ParseMessage(data)
	if err != nil {
		s.decodeErrors.Add(1)
		s.logger.Debug("ignoring malformed message", "error", err)
		return
	}

	switch msg.Type {
	case protocol.TypeFrame:
		fd, err := msg.GetFrameData()
		if err != nil {
			s.decodeErrors.Add(1)
			s.logger.Debug("bad frame message", "error", err)
			return
		}
		img, err := fd.DecodeFrameData()
		if err != nil {
			s.decodeErrors.Add(1)
			s.logger.Debug("bad frame payload", "error", err)
			return
		}
		s.enqueue(encoded{data: img, header: fd.FrameHeader()})

	case protocol.TypePing:
		var ping protocol.PingData
		if err := msg.ParseData(&ping); err != nil {
			return
		}
		pong, err := protocol.NewPongMessage(ping.ID, ping.Timestamp, time.Now().UnixMilli())
		if err != nil {
			return
		}
		payload, err := pong.Bytes()
		if err != nil {
			return
		}
		s.writeMu.Lock()
		err = conn.WriteMessage(websocket.TextMessage, payload)
		s.writeMu.Unlock()
		if err != nil {
			s.logger.Debug("pong failed", "error", err)
		}
	}
}

func (s *Source) enqueue(e encoded) {
	if e.header.FrameID == "" {
		e.header.FrameID = uuid.NewString()
	}
	if e.header.Stamp.IsZero() {
		e.header.Stamp = time.Now()
	}
	s.received.Add(1)
	if s.queue.push(e) {
		s.dropped.Add(1)
	}
}

// consume drains the pending queue into handle, one frame at a time.
func (s *Source) consume(ctx context.Context, handle Handler) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.queue.notify:
		}

		for {
			if ctx.Err() != nil {
				return
			}
			e, ok := s.queue.pop()
			if !ok {
				break
			}
			frame, err := s.decode(e.data, e.header)
			if err != nil {
				s.decodeErrors.Add(1)
				s.logger.Warn("frame decode failed", "frame_id", e.header.FrameID, "error", err)
				continue
			}
			if err := handle(frame); err != nil {
				s.handlerErrors.Add(1)
				s.logger.Warn("frame handler failed", "frame_id", e.header.FrameID, "error", err)
			}
		}
	}
}

// Stats returns source statistics.
func (s *Source) Stats() Stats {
	return Stats{
		Connected:     s.connected.Load(),
		Received:      s.received.Load(),
		Dropped:       s.dropped.Load(),
		Pending:       s.queue.len(),
		DecodeErrors:  s.decodeErrors.Load(),
		HandlerErrors: s.handlerErrors.Load(),
		Reconnects:    s.reconnects.Load(),
	}
}

// Stats contains frame source statistics.
type Stats struct {
	Connected     bool  `json:"connected"`
	Received      int64 `json:"received"`
	Dropped       int64 `json:"dropped"`
	Pending       int   `json:"pending"`
	DecodeErrors  int64 `json:"decode_errors"`
	HandlerErrors int64 `json:"handler_errors"`
	Reconnects    int64 `json:"reconnects"`
}
