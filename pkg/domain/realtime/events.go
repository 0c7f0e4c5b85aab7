package realtime

import (
	"encoding/json"
	"fmt"

	"simple-openai-go/pkg/domain/union"
)

const (
	EventSessionUpdate          = "session.update"
	EventInputAudioBufferAppend = "input_audio_buffer.append"
	EventInputAudioBufferCommit = "input_audio_buffer.commit"
	EventConversationItemCreate = "conversation.item.create"
	EventResponseCreate         = "response.create"
	EventResponseCancel         = "response.cancel"

	EventError                        = "error"
	EventSessionCreated               = "session.created"
	EventSessionUpdated               = "session.updated"
	EventConversationItemCreated      = "conversation.item.created"
	EventResponseCreated              = "response.created"
	EventResponseDone                 = "response.done"
	EventResponseTextDelta            = "response.text.delta"
	EventResponseAudioTranscriptDelta = "response.audio_transcript.delta"
)

// ClientEvent is an event sent by the client.
type ClientEvent interface {
	EventType() string
	isClientEvent()
}

// ServerEvent is an event sent by the server.
type ServerEvent interface {
	EventType() string
	isServerEvent()
}

type SessionUpdate struct {
	EventID string  `json:"event_id,omitempty"`
	Session Session `json:"session"`
}

type InputAudioBufferAppend struct {
	EventID string `json:"event_id,omitempty"`
	Audio   string `json:"audio" validate:"required"` // base64
}

type InputAudioBufferCommit struct {
	EventID string `json:"event_id,omitempty"`
}

type ConversationItemCreate struct {
	EventID        string `json:"event_id,omitempty"`
	PreviousItemID string `json:"previous_item_id,omitempty"`
	Item           Item   `json:"item" validate:"required"`
}

type ResponseCreate struct {
	EventID  string           `json:"event_id,omitempty"`
	Response *ResponseOptions `json:"response,omitempty"`
}

type ResponseCancel struct {
	EventID    string `json:"event_id,omitempty"`
	ResponseID string `json:"response_id,omitempty"`
}

func (SessionUpdate) EventType() string          { return EventSessionUpdate }
func (InputAudioBufferAppend) EventType() string { return EventInputAudioBufferAppend }
func (InputAudioBufferCommit) EventType() string { return EventInputAudioBufferCommit }
func (ConversationItemCreate) EventType() string { return EventConversationItemCreate }
func (ResponseCreate) EventType() string         { return EventResponseCreate }
func (ResponseCancel) EventType() string         { return EventResponseCancel }

func (SessionUpdate) isClientEvent()          {}
func (InputAudioBufferAppend) isClientEvent() {}
func (InputAudioBufferCommit) isClientEvent() {}
func (ConversationItemCreate) isClientEvent() {}
func (ResponseCreate) isClientEvent()         {}
func (ResponseCancel) isClientEvent()         {}

// ServerError is the payload of an error event.
type ServerError struct {
	Type    string `json:"type"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
	Param   string `json:"param,omitempty"`
	EventID string `json:"event_id,omitempty"`
}

type ErrorEvent struct {
	EventID string      `json:"event_id,omitempty"`
	Error   ServerError `json:"error"`
}

type SessionCreated struct {
	EventID string  `json:"event_id,omitempty"`
	Session Session `json:"session"`
}

type SessionUpdated struct {
	EventID string  `json:"event_id,omitempty"`
	Session Session `json:"session"`
}

type ConversationItemCreated struct {
	EventID        string `json:"event_id,omitempty"`
	PreviousItemID string `json:"previous_item_id,omitempty"`
	Item           Item   `json:"item"`
}

type ResponseCreated struct {
	EventID  string   `json:"event_id,omitempty"`
	Response Response `json:"response"`
}

type ResponseDone struct {
	EventID  string   `json:"event_id,omitempty"`
	Response Response `json:"response"`
}

// Delta is a fragment of generated text or transcript.
type Delta struct {
	EventID      string `json:"event_id,omitempty"`
	ResponseID   string `json:"response_id"`
	ItemID       string `json:"item_id"`
	OutputIndex  int    `json:"output_index"`
	ContentIndex int    `json:"content_index"`
	Delta        string `json:"delta"`
}

type ResponseTextDelta struct{ Delta }

type ResponseAudioTranscriptDelta struct{ Delta }

func (ErrorEvent) EventType() string                   { return EventError }
func (SessionCreated) EventType() string               { return EventSessionCreated }
func (SessionUpdated) EventType() string               { return EventSessionUpdated }
func (ConversationItemCreated) EventType() string      { return EventConversationItemCreated }
func (ResponseCreated) EventType() string              { return EventResponseCreated }
func (ResponseDone) EventType() string                 { return EventResponseDone }
func (ResponseTextDelta) EventType() string            { return EventResponseTextDelta }
func (ResponseAudioTranscriptDelta) EventType() string { return EventResponseAudioTranscriptDelta }

func (ErrorEvent) isServerEvent()                   {}
func (SessionCreated) isServerEvent()               {}
func (SessionUpdated) isServerEvent()               {}
func (ConversationItemCreated) isServerEvent()      {}
func (ResponseCreated) isServerEvent()              {}
func (ResponseDone) isServerEvent()                 {}
func (ResponseTextDelta) isServerEvent()            {}
func (ResponseAudioTranscriptDelta) isServerEvent() {}

// EncodeEvent writes ev with its "type" member first.
func EncodeEvent(ev interface{ EventType() string }) ([]byte, error) {
	return union.Marshal("type", ev.EventType(), ev)
}

// StampEventID returns ev carrying id as its event_id, unless ev already has one.
func StampEventID(ev ClientEvent, id string) ClientEvent {
	switch e := ev.(type) {
	case SessionUpdate:
		if e.EventID == "" {
			e.EventID = id
		}
		return e
	case InputAudioBufferAppend:
		if e.EventID == "" {
			e.EventID = id
		}
		return e
	case InputAudioBufferCommit:
		if e.EventID == "" {
			e.EventID = id
		}
		return e
	case ConversationItemCreate:
		if e.EventID == "" {
			e.EventID = id
		}
		return e
	case ResponseCreate:
		if e.EventID == "" {
			e.EventID = id
		}
		return e
	case ResponseCancel:
		if e.EventID == "" {
			e.EventID = id
		}
		return e
	}
	return ev
}

// DecodeClientEvent selects the client event variant named by "type".
func DecodeClientEvent(data []byte) (ClientEvent, error) {
	tag, err := union.Tag("client event", data, "type")
	if err != nil {
		return nil, err
	}

	var ev ClientEvent
	switch tag {
	case EventSessionUpdate:
		var e SessionUpdate
		err = json.Unmarshal(data, &e)
		ev = e
	case EventInputAudioBufferAppend:
		var e InputAudioBufferAppend
		err = json.Unmarshal(data, &e)
		ev = e
	case EventInputAudioBufferCommit:
		var e InputAudioBufferCommit
		err = json.Unmarshal(data, &e)
		ev = e
	case EventConversationItemCreate:
		var e ConversationItemCreate
		e.EventID, e.PreviousItemID, e.Item, err = decodeItemEnvelope(data)
		ev = e
	case EventResponseCreate:
		var e ResponseCreate
		err = json.Unmarshal(data, &e)
		ev = e
	case EventResponseCancel:
		var e ResponseCancel
		err = json.Unmarshal(data, &e)
		ev = e
	default:
		return nil, union.Unknown("client event", "type", tag)
	}
	if err != nil {
		return nil, fmt.Errorf("client event %s: %w", tag, err)
	}
	return ev, nil
}

// DecodeServerEvent selects the server event variant named by "type".
// Event types outside the modelled set are rejected with a *union.SchemaError.
func DecodeServerEvent(data []byte) (ServerEvent, error) {
	tag, err := union.Tag("server event", data, "type")
	if err != nil {
		return nil, err
	}

	var ev ServerEvent
	switch tag {
	case EventError:
		var e ErrorEvent
		err = json.Unmarshal(data, &e)
		ev = e
	case EventSessionCreated:
		var e SessionCreated
		err = json.Unmarshal(data, &e)
		ev = e
	case EventSessionUpdated:
		var e SessionUpdated
		err = json.Unmarshal(data, &e)
		ev = e
	case EventConversationItemCreated:
		var e ConversationItemCreated
		e.EventID, e.PreviousItemID, e.Item, err = decodeItemEnvelope(data)
		ev = e
	case EventResponseCreated:
		var e ResponseCreated
		err = json.Unmarshal(data, &e)
		ev = e
	case EventResponseDone:
		var e ResponseDone
		err = json.Unmarshal(data, &e)
		ev = e
	case EventResponseTextDelta:
		var e ResponseTextDelta
		err = json.Unmarshal(data, &e.Delta)
		ev = e
	case EventResponseAudioTranscriptDelta:
		var e ResponseAudioTranscriptDelta
		err = json.Unmarshal(data, &e.Delta)
		ev = e
	default:
		return nil, union.Unknown("server event", "type", tag)
	}
	if err != nil {
		return nil, fmt.Errorf("server event %s: %w", tag, err)
	}
	return ev, nil
}

func decodeItemEnvelope(data []byte) (eventID, previousID string, item Item, err error) {
	var env struct {
		EventID        string          `json:"event_id"`
		PreviousItemID string          `json:"previous_item_id"`
		Item           json.RawMessage `json:"item"`
	}
	if err = json.Unmarshal(data, &env); err != nil {
		return "", "", nil, err
	}
	if len(env.Item) > 0 && string(env.Item) != "null" {
		if item, err = DecodeItem(env.Item); err != nil {
			return "", "", nil, err
		}
	}
	return env.EventID, env.PreviousItemID, item, nil
}
