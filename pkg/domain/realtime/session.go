package realtime

// Session holds the settings of a realtime session. Clients send the fields
// they want to change in session.update; the server echoes the whole
// session back.
type Session struct {
	ID                      string                   `json:"id,omitempty"`
	Object                  string                   `json:"object,omitempty"`
	Model                   string                   `json:"model,omitempty"`
	Modalities              []string                 `json:"modalities,omitempty" validate:"omitempty,dive,oneof=text audio"`
	Instructions            string                   `json:"instructions,omitempty"`
	Voice                   string                   `json:"voice,omitempty"`
	InputAudioFormat        string                   `json:"input_audio_format,omitempty" validate:"omitempty,oneof=pcm16 g711_ulaw g711_alaw"`
	OutputAudioFormat       string                   `json:"output_audio_format,omitempty" validate:"omitempty,oneof=pcm16 g711_ulaw g711_alaw"`
	InputAudioTranscription *InputAudioTranscription `json:"input_audio_transcription,omitempty"`
	TurnDetection           *TurnDetection           `json:"turn_detection,omitempty"`
	Tools                   []Tool                   `json:"tools,omitempty" validate:"omitempty,dive"`
	ToolChoice              string                   `json:"tool_choice,omitempty"`
	Temperature             *float64                 `json:"temperature,omitempty" validate:"omitempty,gte=0.6,lte=1.2"`
}

type InputAudioTranscription struct {
	Model string `json:"model" validate:"required"`
}

// TurnDetection configures server-side voice activity detection.
type TurnDetection struct {
	Type              string   `json:"type" validate:"required,oneof=server_vad"`
	Threshold         *float64 `json:"threshold,omitempty" validate:"omitempty,gte=0,lte=1"`
	PrefixPaddingMs   int      `json:"prefix_padding_ms,omitempty"`
	SilenceDurationMs int      `json:"silence_duration_ms,omitempty"`
}

// Tool is a function the model may call during the session. Unlike chat
// tools the function fields are not nested.
type Tool struct {
	Type        string `json:"type" validate:"required,oneof=function"`
	Name        string `json:"name" validate:"required"`
	Description string `json:"description,omitempty"`
	Parameters  any    `json:"parameters,omitempty"`
}

// ResponseOptions overrides session settings for a single response.
type ResponseOptions struct {
	Modalities   []string `json:"modalities,omitempty" validate:"omitempty,dive,oneof=text audio"`
	Instructions string   `json:"instructions,omitempty"`
	Voice        string   `json:"voice,omitempty"`
	Conversation string   `json:"conversation,omitempty" validate:"omitempty,oneof=auto none"`
	Temperature  *float64 `json:"temperature,omitempty" validate:"omitempty,gte=0.6,lte=1.2"`
}
