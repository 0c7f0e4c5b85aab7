// Package chat models the chat completion payloads: the role-tagged message
// variants, multi-part content, the request with its declared constraints, and
// the replies in both whole and streamed form.
package chat

import (
	"encoding/json"
	"fmt"

	"simple-openai-go/pkg/domain/union"
)

// Role is the author of a message.
type Role string

const (
	RoleDeveloper Role = "developer"
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ChatMessage is one of the message variants of this package. The role is
// fixed by the variant and written as the "role" member on the wire.
type ChatMessage interface {
	Role() Role
	isChatMessage()
}

type DeveloperMessage struct {
	Content string `json:"content" validate:"required"`
	Name    string `json:"name,omitempty"`
}

type SystemMessage struct {
	Content string `json:"content" validate:"required"`
	Name    string `json:"name,omitempty"`
}

type UserMessage struct {
	Content Content `json:"content" validate:"required,min=1"`
	Name    string  `json:"name,omitempty"`
}

// AudioRef points back at audio produced by an earlier assistant turn.
type AudioRef struct {
	ID string `json:"id" validate:"required"`
}

// AssistantMessage replays an assistant turn. Content is always written,
// as null when the turn only carried tool calls.
type AssistantMessage struct {
	Content   Content    `json:"content"`
	Refusal   string     `json:"refusal,omitempty"`
	Name      string     `json:"name,omitempty"`
	Audio     *AudioRef  `json:"audio,omitempty"`
	ToolCalls []ToolCall `json:"tool_calls,omitempty" validate:"omitempty,dive"`
}

type ToolMessage struct {
	Content    string `json:"content" validate:"required"`
	ToolCallID string `json:"tool_call_id" validate:"required"`
}

// AudioResponse is the audio attached to a generated message.
type AudioResponse struct {
	ID         string `json:"id"`
	ExpiresAt  int64  `json:"expires_at,omitempty"`
	Data       string `json:"data,omitempty"`
	Transcript string `json:"transcript,omitempty"`
}

// ResponseMessage is the message the server generates. It is only ever
// decoded from a reply, but may be appended to the next request as is.
type ResponseMessage struct {
	Content   string         `json:"content,omitempty"`
	ToolCalls []ToolCall     `json:"tool_calls,omitempty"`
	Refusal   string         `json:"refusal,omitempty"`
	Audio     *AudioResponse `json:"audio,omitempty"`
}

func (DeveloperMessage) Role() Role { return RoleDeveloper }
func (SystemMessage) Role() Role    { return RoleSystem }
func (UserMessage) Role() Role      { return RoleUser }
func (AssistantMessage) Role() Role { return RoleAssistant }
func (ToolMessage) Role() Role      { return RoleTool }
func (ResponseMessage) Role() Role  { return RoleAssistant }

func (DeveloperMessage) isChatMessage() {}
func (SystemMessage) isChatMessage()    {}
func (UserMessage) isChatMessage()      {}
func (AssistantMessage) isChatMessage() {}
func (ToolMessage) isChatMessage()      {}
func (ResponseMessage) isChatMessage()  {}

func Developer(content string) DeveloperMessage { return DeveloperMessage{Content: content} }

func System(content string) SystemMessage { return SystemMessage{Content: content} }

func User(content string) UserMessage { return UserMessage{Content: Text(content)} }

func UserParts(parts ...ContentPart) UserMessage { return UserMessage{Content: Parts(parts)} }

func Assistant(content string) AssistantMessage { return AssistantMessage{Content: Text(content)} }

func AssistantToolCalls(calls ...ToolCall) AssistantMessage {
	return AssistantMessage{ToolCalls: calls}
}

// ToolResult answers the tool call with the given id.
func ToolResult(content, toolCallID string) ToolMessage {
	return ToolMessage{Content: content, ToolCallID: toolCallID}
}

// WithAudio returns a copy referencing the audio with the given id; an empty
// id clears the reference.
func (m AssistantMessage) WithAudio(id string) AssistantMessage {
	if id == "" {
		m.Audio = nil
	} else {
		m.Audio = &AudioRef{ID: id}
	}
	return m
}

func (m DeveloperMessage) MarshalJSON() ([]byte, error) {
	type alias DeveloperMessage
	return union.Marshal("role", string(RoleDeveloper), alias(m))
}

func (m SystemMessage) MarshalJSON() ([]byte, error) {
	type alias SystemMessage
	return union.Marshal("role", string(RoleSystem), alias(m))
}

func (m UserMessage) MarshalJSON() ([]byte, error) {
	type alias UserMessage
	return union.Marshal("role", string(RoleUser), alias(m))
}

func (m AssistantMessage) MarshalJSON() ([]byte, error) {
	type alias AssistantMessage
	return union.Marshal("role", string(RoleAssistant), alias(m))
}

func (m ToolMessage) MarshalJSON() ([]byte, error) {
	type alias ToolMessage
	return union.Marshal("role", string(RoleTool), alias(m))
}

func (m ResponseMessage) MarshalJSON() ([]byte, error) {
	type alias ResponseMessage
	return union.Marshal("role", string(RoleAssistant), alias(m))
}

func (m *UserMessage) UnmarshalJSON(data []byte) error {
	type alias UserMessage
	aux := struct {
		*alias
		Content json.RawMessage `json:"content"`
	}{alias: (*alias)(m)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	c, err := decodeContent(aux.Content)
	if err != nil {
		return fmt.Errorf("user message: %w", err)
	}
	m.Content = c
	return nil
}

func (m *AssistantMessage) UnmarshalJSON(data []byte) error {
	type alias AssistantMessage
	aux := struct {
		*alias
		Content json.RawMessage `json:"content"`
	}{alias: (*alias)(m)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	c, err := decodeContent(aux.Content)
	if err != nil {
		return fmt.Errorf("assistant message: %w", err)
	}
	m.Content = c
	return nil
}

// DecodeMessage selects the message variant named by the "role" field.
// Unknown or missing roles are rejected.
func DecodeMessage(data []byte) (ChatMessage, error) {
	tag, err := union.Tag("chat message", data, "role")
	if err != nil {
		return nil, err
	}

	var msg ChatMessage
	switch Role(tag) {
	case RoleDeveloper:
		var m DeveloperMessage
		err = json.Unmarshal(data, &m)
		msg = m
	case RoleSystem:
		var m SystemMessage
		err = json.Unmarshal(data, &m)
		msg = m
	case RoleUser:
		var m UserMessage
		err = json.Unmarshal(data, &m)
		msg = m
	case RoleAssistant:
		var m AssistantMessage
		err = json.Unmarshal(data, &m)
		msg = m
	case RoleTool:
		var m ToolMessage
		err = json.Unmarshal(data, &m)
		msg = m
	default:
		return nil, union.Unknown("chat message", "role", tag)
	}
	if err != nil {
		return nil, fmt.Errorf("chat message %s: %w", tag, err)
	}
	return msg, nil
}

// Messages is an ordered conversation.
type Messages []ChatMessage

func (ms *Messages) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(Messages, 0, len(raw))
	for i, r := range raw {
		m, err := DecodeMessage(r)
		if err != nil {
			return fmt.Errorf("messages[%d]: %w", i, err)
		}
		out = append(out, m)
	}
	*ms = out
	return nil
}
