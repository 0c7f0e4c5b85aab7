package realtime

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"simple-openai-go/internal/metrics"
	wire "simple-openai-go/pkg/domain/realtime"
	"simple-openai-go/pkg/validation"
)

// ErrSessionClosed is returned by Send and Receive after Close.
var ErrSessionClosed = errors.New("realtime: session closed")

// Session is one open realtime connection. Send and Receive may be called
// from different goroutines; each is serialized on its own.
type Session struct {
	conn   *websocket.Conn
	logger *zap.Logger

	writeMu sync.Mutex
	readMu  sync.Mutex

	closeOnce sync.Once
	closed    chan struct{}
}

func newSession(conn *websocket.Conn, logger *zap.Logger) *Session {
	return &Session{
		conn:   conn,
		logger: logger,
		closed: make(chan struct{}),
	}
}

// Send validates ev, stamps an event_id when it has none, and writes it.
func (s *Session) Send(ctx context.Context, ev wire.ClientEvent) error {
	if s.isClosed() {
		return ErrSessionClosed
	}
	if err := validation.Validate(ev); err != nil {
		metrics.ConstraintViolationsTotal.WithLabelValues(ev.EventType()).Inc()
		return err
	}

	ev = wire.StampEventID(ev, "event_"+uuid.NewString())
	data, err := wire.EncodeEvent(ev)
	if err != nil {
		return fmt.Errorf("realtime: encode %s: %w", ev.EventType(), err)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	_ = s.conn.SetWriteDeadline(time.Time{})
	stop := context.AfterFunc(ctx, func() { _ = s.conn.SetWriteDeadline(time.Now()) })
	defer stop()

	if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("realtime: write %s: %w", ev.EventType(), err)
	}

	metrics.RealtimeEventsTotal.WithLabelValues("sent", ev.EventType()).Inc()
	s.logger.Debug("realtime event sent", zap.String("type", ev.EventType()))
	return nil
}

// Receive blocks for the next server event. Event types outside the
// modelled set return a *union.SchemaError and the session stays usable.
// Cancelling ctx interrupts the read and leaves the session unusable.
func (s *Session) Receive(ctx context.Context) (wire.ServerEvent, error) {
	if s.isClosed() {
		return nil, ErrSessionClosed
	}

	s.readMu.Lock()
	defer s.readMu.Unlock()

	_ = s.conn.SetReadDeadline(time.Time{})
	stop := context.AfterFunc(ctx, func() { _ = s.conn.SetReadDeadline(time.Now()) })
	defer stop()

	for {
		kind, data, err := s.conn.ReadMessage()
		if err != nil {
			switch {
			case ctx.Err() != nil:
				return nil, ctx.Err()
			case s.isClosed():
				return nil, ErrSessionClosed
			}
			return nil, fmt.Errorf("realtime: read: %w", err)
		}
		if kind != websocket.TextMessage {
			continue
		}

		ev, err := wire.DecodeServerEvent(data)
		if err != nil {
			s.logger.Debug("realtime event rejected", zap.Error(err))
			return nil, err
		}

		metrics.RealtimeEventsTotal.WithLabelValues("received", ev.EventType()).Inc()
		return ev, nil
	}
}

// Close sends a close frame and releases the connection. It is safe to
// call more than once.
func (s *Session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.closed)

		s.writeMu.Lock()
		_ = s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		s.writeMu.Unlock()

		err = s.conn.Close()
		s.logger.Info("realtime session closed")
	})
	return err
}

func (s *Session) isClosed() bool {
	select {
	case <-s.closed:
		return true
	default:
		return false
	}
}
