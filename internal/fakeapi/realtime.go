package fakeapi

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"simple-openai-go/internal/metrics"
	wire "simple-openai-go/pkg/domain/realtime"
	"simple-openai-go/pkg/logging/logging"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(*http.Request) bool { return true },
}

// Realtime handles GET /v1/realtime. Each user text item is remembered and
// response.create answers with "echo: <text>" as deltas then response.done.
func (s *Server) Realtime(w http.ResponseWriter, r *http.Request) {
	logger := logging.L(r.Context())
	s.count("realtime")

	model := r.URL.Query().Get("model")
	if model == "" {
		model = r.URL.Query().Get("deployment")
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	rs := &realtimeSession{
		conn:    conn,
		logger:  logger,
		session: wire.Session{ID: "sess_" + uuid.NewString(), Object: "realtime.session", Model: model},
	}
	if err := rs.send(wire.SessionCreated{Session: rs.session}); err != nil {
		return
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Debug("realtime read ended", zap.Error(err))
			}
			return
		}

		ev, err := wire.DecodeClientEvent(data)
		if err != nil {
			if rs.send(wire.ErrorEvent{Error: wire.ServerError{Type: "invalid_request_error", Message: err.Error()}}) != nil {
				return
			}
			continue
		}
		metrics.RealtimeEventsTotal.WithLabelValues("received", ev.EventType()).Inc()

		if err := rs.handle(ev); err != nil {
			logger.Debug("realtime write failed", zap.Error(err))
			return
		}
	}
}

type realtimeSession struct {
	conn    *websocket.Conn
	logger  *zap.Logger
	session wire.Session
	pending []string
	lastID  string
}

func (rs *realtimeSession) handle(ev wire.ClientEvent) error {
	switch e := ev.(type) {
	case wire.SessionUpdate:
		if e.Session.Instructions != "" {
			rs.session.Instructions = e.Session.Instructions
		}
		if len(e.Session.Modalities) > 0 {
			rs.session.Modalities = e.Session.Modalities
		}
		if e.Session.Voice != "" {
			rs.session.Voice = e.Session.Voice
		}
		return rs.send(wire.SessionUpdated{Session: rs.session})

	case wire.ConversationItemCreate:
		item := e.Item
		if m, ok := item.(wire.MessageItem); ok {
			if m.ID == "" {
				m.ID = "item_" + uuid.NewString()
			}
			for _, c := range m.Content {
				if c.Text != "" {
					rs.pending = append(rs.pending, c.Text)
				}
			}
			item = m
		}
		prev := rs.lastID
		rs.lastID = itemID(item)
		return rs.send(wire.ConversationItemCreated{PreviousItemID: prev, Item: item})

	case wire.ResponseCreate:
		return rs.respond()

	case wire.ResponseCancel, wire.InputAudioBufferAppend, wire.InputAudioBufferCommit:
		return nil
	}

	return rs.send(wire.ErrorEvent{Error: wire.ServerError{
		Type:    "invalid_request_error",
		Message: fmt.Sprintf("unsupported event %s", ev.EventType()),
	}})
}

func (rs *realtimeSession) respond() error {
	text := "echo: " + strings.Join(rs.pending, " ")
	rs.pending = nil

	resp := wire.Response{ID: "resp_" + uuid.NewString(), Object: "realtime.response", Status: wire.StatusInProgress}
	if err := rs.send(wire.ResponseCreated{Response: resp}); err != nil {
		return err
	}

	itemID := "item_" + uuid.NewString()
	for _, word := range strings.SplitAfter(text, " ") {
		if err := rs.send(wire.ResponseTextDelta{Delta: wire.Delta{
			ResponseID: resp.ID,
			ItemID:     itemID,
			Delta:      word,
		}}); err != nil {
			return err
		}
	}

	resp.Status = wire.StatusCompleted
	resp.Output = wire.Items{wire.MessageItem{
		ID:      itemID,
		Status:  wire.StatusCompleted,
		Role:    "assistant",
		Content: []wire.ItemContent{{Type: "text", Text: text}},
	}}
	words := len(strings.Fields(text))
	resp.Usage = &wire.UsageResponse{TotalTokens: words, OutputTokens: words}
	return rs.send(wire.ResponseDone{Response: resp})
}

func (rs *realtimeSession) send(ev wire.ServerEvent) error {
	data, err := wire.EncodeEvent(ev)
	if err != nil {
		return err
	}
	if err := rs.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return err
	}
	metrics.RealtimeEventsTotal.WithLabelValues("sent", ev.EventType()).Inc()
	return nil
}

func itemID(item wire.Item) string {
	switch it := item.(type) {
	case wire.MessageItem:
		return it.ID
	case wire.FunctionCallItem:
		return it.ID
	case wire.FunctionCallOutputItem:
		return it.ID
	}
	return ""
}
