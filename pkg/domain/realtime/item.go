package realtime

import (
	"encoding/json"
	"fmt"

	"simple-openai-go/pkg/domain/union"
)

const (
	ItemMessage            = "message"
	ItemFunctionCall       = "function_call"
	ItemFunctionCallOutput = "function_call_output"
)

// Item is a conversation item, tagged on the wire by "type".
type Item interface {
	ItemType() string
	isItem()
}

// ItemContent is one piece of a message item. Type is input_text,
// input_audio or item_reference for client content and text or audio for
// generated content.
type ItemContent struct {
	Type       string `json:"type" validate:"required,oneof=input_text input_audio item_reference text audio"`
	Text       string `json:"text,omitempty"`
	Audio      string `json:"audio,omitempty"`
	Transcript string `json:"transcript,omitempty"`
	ID         string `json:"id,omitempty"`
}

type MessageItem struct {
	ID      string        `json:"id,omitempty"`
	Status  string        `json:"status,omitempty"`
	Role    string        `json:"role" validate:"required,oneof=user assistant system"`
	Content []ItemContent `json:"content" validate:"required,min=1,dive"`
}

type FunctionCallItem struct {
	ID        string `json:"id,omitempty"`
	Status    string `json:"status,omitempty"`
	CallID    string `json:"call_id" validate:"required"`
	Name      string `json:"name" validate:"required"`
	Arguments string `json:"arguments"`
}

type FunctionCallOutputItem struct {
	ID     string `json:"id,omitempty"`
	CallID string `json:"call_id" validate:"required"`
	Output string `json:"output" validate:"required"`
}

// UserText builds a user message item holding one input_text part.
func UserText(text string) MessageItem {
	return MessageItem{Role: "user", Content: []ItemContent{{Type: "input_text", Text: text}}}
}

func (MessageItem) ItemType() string            { return ItemMessage }
func (FunctionCallItem) ItemType() string       { return ItemFunctionCall }
func (FunctionCallOutputItem) ItemType() string { return ItemFunctionCallOutput }

func (MessageItem) isItem()            {}
func (FunctionCallItem) isItem()       {}
func (FunctionCallOutputItem) isItem() {}

func (i MessageItem) MarshalJSON() ([]byte, error) {
	type alias MessageItem
	return union.Marshal("type", ItemMessage, alias(i))
}

func (i FunctionCallItem) MarshalJSON() ([]byte, error) {
	type alias FunctionCallItem
	return union.Marshal("type", ItemFunctionCall, alias(i))
}

func (i FunctionCallOutputItem) MarshalJSON() ([]byte, error) {
	type alias FunctionCallOutputItem
	return union.Marshal("type", ItemFunctionCallOutput, alias(i))
}

// DecodeItem selects the item variant named by the "type" field.
func DecodeItem(data []byte) (Item, error) {
	tag, err := union.Tag("conversation item", data, "type")
	if err != nil {
		return nil, err
	}

	var item Item
	switch tag {
	case ItemMessage:
		var i MessageItem
		err = json.Unmarshal(data, &i)
		item = i
	case ItemFunctionCall:
		var i FunctionCallItem
		err = json.Unmarshal(data, &i)
		item = i
	case ItemFunctionCallOutput:
		var i FunctionCallOutputItem
		err = json.Unmarshal(data, &i)
		item = i
	default:
		return nil, union.Unknown("conversation item", "type", tag)
	}
	if err != nil {
		return nil, fmt.Errorf("conversation item %s: %w", tag, err)
	}
	return item, nil
}

// Items is an ordered list of conversation items.
type Items []Item

func (is *Items) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(Items, 0, len(raw))
	for n, r := range raw {
		item, err := DecodeItem(r)
		if err != nil {
			return fmt.Errorf("output[%d]: %w", n, err)
		}
		out = append(out, item)
	}
	*is = out
	return nil
}
