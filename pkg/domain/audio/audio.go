// Package audio models the speech, transcription and translation payloads.
package audio

import (
	"fmt"
	"io"
	"mime/multipart"
	"strconv"
)

// Voice is a synthesized voice token.
type Voice string

const (
	VoiceAlloy   Voice = "alloy"
	VoiceAsh     Voice = "ash"
	VoiceBallad  Voice = "ballad"
	VoiceCoral   Voice = "coral"
	VoiceEcho    Voice = "echo"
	VoiceFable   Voice = "fable"
	VoiceOnyx    Voice = "onyx"
	VoiceNova    Voice = "nova"
	VoiceSage    Voice = "sage"
	VoiceShimmer Voice = "shimmer"
	VoiceVerse   Voice = "verse"
)

// Format is an encoding for generated audio.
type Format string

const (
	FormatMP3   Format = "mp3"
	FormatOpus  Format = "opus"
	FormatAAC   Format = "aac"
	FormatFLAC  Format = "flac"
	FormatWAV   Format = "wav"
	FormatPCM   Format = "pcm"
	FormatPCM16 Format = "pcm16"
)

// SpeechRequest asks for text to be spoken. The reply body is the raw audio.
type SpeechRequest struct {
	Model          string   `json:"model" validate:"required"`
	Input          string   `json:"input" validate:"required,max=4096"`
	Voice          Voice    `json:"voice" validate:"required,oneof=alloy echo fable onyx nova shimmer"`
	ResponseFormat Format   `json:"response_format,omitempty" validate:"omitempty,oneof=mp3 opus aac flac wav pcm"`
	Speed          *float64 `json:"speed,omitempty" validate:"omitempty,gte=0.25,lte=4"`
}

// TranscriptFormat selects the body returned by transcription endpoints.
type TranscriptFormat string

const (
	TranscriptJSON        TranscriptFormat = "json"
	TranscriptText        TranscriptFormat = "text"
	TranscriptSRT         TranscriptFormat = "srt"
	TranscriptVerboseJSON TranscriptFormat = "verbose_json"
	TranscriptVTT         TranscriptFormat = "vtt"
)

// Granularity is a timestamp granularity for verbose transcriptions.
type Granularity string

const (
	GranularityWord    Granularity = "word"
	GranularitySegment Granularity = "segment"
)

// TranscriptionRequest uploads audio to be transcribed in its own language.
// It is sent as multipart/form-data rather than JSON.
type TranscriptionRequest struct {
	File                   io.Reader        `json:"-" validate:"required"`
	FileName               string           `json:"-" validate:"required"`
	Model                  string           `json:"model" validate:"required"`
	Language               string           `json:"language,omitempty"`
	Prompt                 string           `json:"prompt,omitempty"`
	ResponseFormat         TranscriptFormat `json:"response_format,omitempty" validate:"omitempty,oneof=json text srt verbose_json vtt"`
	Temperature            *float64         `json:"temperature,omitempty" validate:"omitempty,gte=0,lte=1"`
	TimestampGranularities []Granularity    `json:"timestamp_granularities,omitempty" validate:"omitempty,dive,oneof=word segment"`
}

// TranslationRequest uploads audio to be transcribed into English.
type TranslationRequest struct {
	File           io.Reader        `json:"-" validate:"required"`
	FileName       string           `json:"-" validate:"required"`
	Model          string           `json:"model" validate:"required"`
	Prompt         string           `json:"prompt,omitempty"`
	ResponseFormat TranscriptFormat `json:"response_format,omitempty" validate:"omitempty,oneof=json text srt verbose_json vtt"`
	Temperature    *float64         `json:"temperature,omitempty" validate:"omitempty,gte=0,lte=1"`
}

// WriteMultipart encodes the request as form fields plus the file part.
func (r TranscriptionRequest) WriteMultipart(w *multipart.Writer) error {
	fields := [][2]string{
		{"model", r.Model},
		{"language", r.Language},
		{"prompt", r.Prompt},
		{"response_format", string(r.ResponseFormat)},
	}
	if r.Temperature != nil {
		fields = append(fields, [2]string{"temperature", strconv.FormatFloat(*r.Temperature, 'f', -1, 64)})
	}
	for _, g := range r.TimestampGranularities {
		fields = append(fields, [2]string{"timestamp_granularities[]", string(g)})
	}
	return writeForm(w, fields, r.FileName, r.File)
}

// WriteMultipart encodes the request as form fields plus the file part.
func (r TranslationRequest) WriteMultipart(w *multipart.Writer) error {
	fields := [][2]string{
		{"model", r.Model},
		{"prompt", r.Prompt},
		{"response_format", string(r.ResponseFormat)},
	}
	if r.Temperature != nil {
		fields = append(fields, [2]string{"temperature", strconv.FormatFloat(*r.Temperature, 'f', -1, 64)})
	}
	return writeForm(w, fields, r.FileName, r.File)
}

func writeForm(w *multipart.Writer, fields [][2]string, name string, file io.Reader) error {
	for _, f := range fields {
		if f[1] == "" {
			continue
		}
		if err := w.WriteField(f[0], f[1]); err != nil {
			return fmt.Errorf("audio: write field %s: %w", f[0], err)
		}
	}
	part, err := w.CreateFormFile("file", name)
	if err != nil {
		return fmt.Errorf("audio: create file part: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return fmt.Errorf("audio: copy file: %w", err)
	}
	return nil
}

// Word is one timestamped word of a verbose transcription.
type Word struct {
	Word  string  `json:"word"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Segment is one timestamped segment of a verbose transcription.
type Segment struct {
	ID               int     `json:"id"`
	Seek             int     `json:"seek"`
	Start            float64 `json:"start"`
	End              float64 `json:"end"`
	Text             string  `json:"text"`
	Tokens           []int   `json:"tokens,omitempty"`
	Temperature      float64 `json:"temperature"`
	AvgLogprob       float64 `json:"avg_logprob"`
	CompressionRatio float64 `json:"compression_ratio"`
	NoSpeechProb     float64 `json:"no_speech_prob"`
}

// Transcription is the JSON reply of transcription and translation calls.
// Words and Segments are only filled for verbose_json.
type Transcription struct {
	Text     string    `json:"text"`
	Task     string    `json:"task,omitempty"`
	Language string    `json:"language,omitempty"`
	Duration float64   `json:"duration,omitempty"`
	Words    []Word    `json:"words,omitempty"`
	Segments []Segment `json:"segments,omitempty"`
}
