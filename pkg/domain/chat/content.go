package chat

import (
	"bytes"
	"encoding/json"
	"fmt"

	"simple-openai-go/pkg/domain/union"
)

// Content is the body of a user or assistant message: either plain Text or
// an ordered list of Parts.
type Content interface {
	isContent()
}

// Text is string content.
type Text string

// Parts is multi-part content.
type Parts []ContentPart

func (Text) isContent()  {}
func (Parts) isContent() {}

// ContentPart is one element of multi-part content, tagged on the wire by "type".
type ContentPart interface {
	PartType() string
	isContentPart()
}

const (
	PartText       = "text"
	PartImageURL   = "image_url"
	PartInputAudio = "input_audio"
	PartFile       = "file"
	PartRefusal    = "refusal"
)

type TextPart struct {
	Text string `json:"text" validate:"required"`
}

// ImageURL points at an image by URL or data URI.
type ImageURL struct {
	URL    string `json:"url" validate:"required"`
	Detail string `json:"detail,omitempty" validate:"omitempty,oneof=auto low high"`
}

type ImagePart struct {
	ImageURL ImageURL `json:"image_url"`
}

// InputAudio carries base64 audio inline.
type InputAudio struct {
	Data   string `json:"data" validate:"required"`
	Format string `json:"format" validate:"required,oneof=wav mp3"`
}

type AudioPart struct {
	InputAudio InputAudio `json:"input_audio"`
}

// FileRef names an uploaded file or embeds one as base64.
type FileRef struct {
	FileID   string `json:"file_id,omitempty"`
	FileData string `json:"file_data,omitempty"`
	Filename string `json:"filename,omitempty"`
}

type FilePart struct {
	File FileRef `json:"file"`
}

type RefusalPart struct {
	Refusal string `json:"refusal" validate:"required"`
}

func (TextPart) PartType() string    { return PartText }
func (ImagePart) PartType() string   { return PartImageURL }
func (AudioPart) PartType() string   { return PartInputAudio }
func (FilePart) PartType() string    { return PartFile }
func (RefusalPart) PartType() string { return PartRefusal }

func (TextPart) isContentPart()    {}
func (ImagePart) isContentPart()   {}
func (AudioPart) isContentPart()   {}
func (FilePart) isContentPart()    {}
func (RefusalPart) isContentPart() {}

func (p TextPart) MarshalJSON() ([]byte, error) {
	type alias TextPart
	return union.Marshal("type", PartText, alias(p))
}

func (p ImagePart) MarshalJSON() ([]byte, error) {
	type alias ImagePart
	return union.Marshal("type", PartImageURL, alias(p))
}

func (p AudioPart) MarshalJSON() ([]byte, error) {
	type alias AudioPart
	return union.Marshal("type", PartInputAudio, alias(p))
}

func (p FilePart) MarshalJSON() ([]byte, error) {
	type alias FilePart
	return union.Marshal("type", PartFile, alias(p))
}

func (p RefusalPart) MarshalJSON() ([]byte, error) {
	type alias RefusalPart
	return union.Marshal("type", PartRefusal, alias(p))
}

// DecodeContentPart selects the part variant named by the "type" field.
func DecodeContentPart(data []byte) (ContentPart, error) {
	tag, err := union.Tag("content part", data, "type")
	if err != nil {
		return nil, err
	}

	var part ContentPart
	switch tag {
	case PartText:
		var p TextPart
		err = json.Unmarshal(data, &p)
		part = p
	case PartImageURL:
		var p ImagePart
		err = json.Unmarshal(data, &p)
		part = p
	case PartInputAudio:
		var p AudioPart
		err = json.Unmarshal(data, &p)
		part = p
	case PartFile:
		var p FilePart
		err = json.Unmarshal(data, &p)
		part = p
	case PartRefusal:
		var p RefusalPart
		err = json.Unmarshal(data, &p)
		part = p
	default:
		return nil, union.Unknown("content part", "type", tag)
	}
	if err != nil {
		return nil, fmt.Errorf("content part %s: %w", tag, err)
	}
	return part, nil
}

// UnmarshalJSON decodes each element through DecodeContentPart.
func (ps *Parts) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(Parts, 0, len(raw))
	for i, r := range raw {
		p, err := DecodeContentPart(r)
		if err != nil {
			return fmt.Errorf("parts[%d]: %w", i, err)
		}
		out = append(out, p)
	}
	*ps = out
	return nil
}

// decodeContent maps a JSON string, array or null onto Content.
func decodeContent(data []byte) (Content, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, nil
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil, err
		}
		return Text(s), nil
	case '[':
		var ps Parts
		if err := json.Unmarshal(data, &ps); err != nil {
			return nil, err
		}
		return ps, nil
	}
	return nil, fmt.Errorf("content: expected string or array, got %s", data[:1])
}
