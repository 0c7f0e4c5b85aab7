package chat

import (
	"bytes"
	"encoding/json"
	"fmt"

	"simple-openai-go/pkg/domain/audio"
	"simple-openai-go/pkg/domain/union"
	"simple-openai-go/pkg/validation"
)

type ReasoningEffort string

const (
	ReasoningLow    ReasoningEffort = "low"
	ReasoningMedium ReasoningEffort = "medium"
	ReasoningHigh   ReasoningEffort = "high"
)

type ServiceTier string

const (
	ServiceTierAuto    ServiceTier = "auto"
	ServiceTierDefault ServiceTier = "default"
)

type Modality string

const (
	ModalityText  Modality = "text"
	ModalityAudio Modality = "audio"
)

// AudioOutput asks for a spoken reply.
type AudioOutput struct {
	Voice  audio.Voice  `json:"voice" validate:"required,oneof=alloy ash ballad coral echo sage shimmer verse"`
	Format audio.Format `json:"format" validate:"required,oneof=wav mp3 flac opus pcm16"`
}

type StreamOptions struct {
	IncludeUsage bool `json:"include_usage"`
}

const (
	FormatText       = "text"
	FormatJSONObject = "json_object"
	FormatJSONSchema = "json_schema"
)

// ResponseFormat constrains the shape of the generated content.
type ResponseFormat struct {
	Type       string      `json:"type" validate:"required,oneof=text json_object json_schema"`
	JSONSchema *JSONSchema `json:"json_schema,omitempty" validate:"required_if=Type json_schema"`
}

type JSONSchema struct {
	Name        string `json:"name" validate:"required,max=64"`
	Description string `json:"description,omitempty"`
	Schema      any    `json:"schema,omitempty"`
	Strict      *bool  `json:"strict,omitempty"`
}

func JSONSchemaFormat(name string, schema any) *ResponseFormat {
	return &ResponseFormat{Type: FormatJSONSchema, JSONSchema: &JSONSchema{Name: name, Schema: schema}}
}

// Stop is either a single StopWord or a list of StopWords.
type Stop interface {
	isStop()
}

type StopWord string

type StopWords []string

func (StopWord) isStop()  {}
func (StopWords) isStop() {}

// ToolChoice is either a ToolChoiceOption or a NamedToolChoice.
type ToolChoice interface {
	isToolChoice()
}

type ToolChoiceOption string

const (
	ToolChoiceNone     ToolChoiceOption = "none"
	ToolChoiceAuto     ToolChoiceOption = "auto"
	ToolChoiceRequired ToolChoiceOption = "required"
)

// NamedToolChoice forces a call to one function.
type NamedToolChoice struct {
	Function FunctionName `json:"function"`
}

type FunctionName struct {
	Name string `json:"name" validate:"required"`
}

func ChooseFunction(name string) NamedToolChoice {
	return NamedToolChoice{Function: FunctionName{Name: name}}
}

func (ToolChoiceOption) isToolChoice() {}
func (NamedToolChoice) isToolChoice()  {}

func (c NamedToolChoice) MarshalJSON() ([]byte, error) {
	type alias NamedToolChoice
	return union.Marshal("type", ToolTypeFunction, alias(c))
}

// ChatRequest is the body of a chat completion call. Optional fields are
// pointers or zero-valued and are left out of the encoding when unset.
//
// MaxTokens is deprecated in favour of MaxCompletionTokens; setting both is
// rejected.
type ChatRequest struct {
	Messages            Messages          `json:"messages" validate:"required,min=1,dive"`
	Model               string            `json:"model" validate:"required"`
	Store               *bool             `json:"store,omitempty"`
	ReasoningEffort     ReasoningEffort   `json:"reasoning_effort,omitempty" validate:"omitempty,oneof=low medium high"`
	Metadata            map[string]string `json:"metadata,omitempty"`
	FrequencyPenalty    *float64          `json:"frequency_penalty,omitempty" validate:"omitempty,gte=-2,lte=2"`
	LogitBias           map[string]int    `json:"logit_bias,omitempty"`
	Logprobs            *bool             `json:"logprobs,omitempty"`
	TopLogprobs         *int              `json:"top_logprobs,omitempty" validate:"omitempty,gte=0,lte=20"`
	MaxTokens           *int              `json:"max_tokens,omitempty" validate:"omitempty,excluded_with=MaxCompletionTokens"`
	MaxCompletionTokens *int              `json:"max_completion_tokens,omitempty"`
	N                   *int              `json:"n,omitempty" validate:"omitempty,gte=1,lte=128"`
	Modalities          []Modality        `json:"modalities,omitempty" validate:"omitempty,dive,oneof=text audio"`
	Audio               *AudioOutput      `json:"audio,omitempty"`
	PresencePenalty     *float64          `json:"presence_penalty,omitempty" validate:"omitempty,gte=-2,lte=2"`
	ResponseFormat      *ResponseFormat   `json:"response_format,omitempty"`
	Seed                *int              `json:"seed,omitempty"`
	ServiceTier         ServiceTier       `json:"service_tier,omitempty" validate:"omitempty,oneof=auto default"`
	Stop                Stop              `json:"stop,omitempty"`
	Stream              *bool             `json:"stream,omitempty"`
	StreamOptions       *StreamOptions    `json:"stream_options,omitempty"`
	Temperature         *float64          `json:"temperature,omitempty" validate:"omitempty,gte=0,lte=2"`
	TopP                *float64          `json:"top_p,omitempty" validate:"omitempty,gte=0,lte=1"`
	Tools               []Tool            `json:"tools,omitempty" validate:"omitempty,dive"`
	ToolChoice          ToolChoice        `json:"tool_choice,omitempty"`
	ParallelToolCalls   *bool             `json:"parallel_tool_calls,omitempty"`
	User                string            `json:"user,omitempty"`
}

// NewRequest builds a request with the two required fields.
func NewRequest(model string, messages ...ChatMessage) ChatRequest {
	return ChatRequest{Model: model, Messages: messages}
}

func (r ChatRequest) WithStream(stream bool) ChatRequest {
	r.Stream = &stream
	return r
}

func (r ChatRequest) WithStreamOptions(opts *StreamOptions) ChatRequest {
	r.StreamOptions = opts
	return r
}

func (r ChatRequest) WithToolChoice(choice ToolChoice) ChatRequest {
	r.ToolChoice = choice
	return r
}

// IsStream reports whether the request asks for a streamed reply.
func (r ChatRequest) IsStream() bool {
	return r.Stream != nil && *r.Stream
}

func (r *ChatRequest) UnmarshalJSON(data []byte) error {
	type alias ChatRequest
	aux := struct {
		*alias
		Stop       json.RawMessage `json:"stop,omitempty"`
		ToolChoice json.RawMessage `json:"tool_choice,omitempty"`
	}{alias: (*alias)(r)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	stop, err := decodeStop(aux.Stop)
	if err != nil {
		return err
	}
	choice, err := decodeToolChoice(aux.ToolChoice)
	if err != nil {
		return err
	}
	r.Stop, r.ToolChoice = stop, choice
	return nil
}

func decodeStop(data json.RawMessage) (Stop, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		return nil, nil
	}
	if data[0] == '[' {
		var ws StopWords
		if err := json.Unmarshal(data, &ws); err != nil {
			return nil, fmt.Errorf("stop: %w", err)
		}
		return ws, nil
	}
	var w string
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("stop: %w", err)
	}
	return StopWord(w), nil
}

func decodeToolChoice(data json.RawMessage) (ToolChoice, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		return nil, nil
	}
	if data[0] == '"' {
		var opt string
		if err := json.Unmarshal(data, &opt); err != nil {
			return nil, fmt.Errorf("tool_choice: %w", err)
		}
		return ToolChoiceOption(opt), nil
	}

	tag, err := union.Tag("tool choice", data, "type")
	if err != nil {
		return nil, err
	}
	if tag != ToolTypeFunction {
		return nil, union.Unknown("tool choice", "type", tag)
	}
	type alias NamedToolChoice
	var c alias
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("tool_choice: %w", err)
	}
	return NamedToolChoice(c), nil
}

const maxStopWords = 4

func init() {
	validation.RegisterRule(checkRequest, ChatRequest{})
	validation.RegisterRule(checkUserMessage, UserMessage{})
	validation.RegisterRule(checkAssistantMessage, AssistantMessage{})
}

// checkRequest covers the polymorphic fields a struct tag cannot describe.
func checkRequest(r validation.Reporter, value any) {
	req := value.(ChatRequest)

	if ws, ok := req.Stop.(StopWords); ok && len(ws) > maxStopWords {
		r.Report("stop", "max", fmt.Sprint(maxStopWords), len(ws))
	}

	if opt, ok := req.ToolChoice.(ToolChoiceOption); ok {
		switch opt {
		case ToolChoiceNone, ToolChoiceAuto, ToolChoiceRequired:
		default:
			r.Report("tool_choice", "oneof", "none auto required", string(opt))
		}
	}
}

func checkUserMessage(r validation.Reporter, value any) {
	checkParts(r, value.(UserMessage).Content)
}

// An assistant turn must say something, refuse, or call a tool.
func checkAssistantMessage(r validation.Reporter, value any) {
	m := value.(AssistantMessage)
	if m.Content == nil && m.Refusal == "" && len(m.ToolCalls) == 0 && m.Audio == nil {
		r.Report("content", "required_without", "tool_calls", nil)
	}
	checkParts(r, m.Content)
}

// checkParts runs each part's own tags, reported as content[i].<field>.
func checkParts(r validation.Reporter, c Content) {
	ps, ok := c.(Parts)
	if !ok {
		return
	}
	for i, p := range ps {
		field := fmt.Sprintf("content[%d]", i)
		if p == nil {
			r.Report(field, "required", "", nil)
			continue
		}
		r.Nested(field, p)
	}
}
