package openai

import (
	"context"
	"io"
	"strings"

	"simple-openai-go/internal/transport"
	"simple-openai-go/pkg/domain/audio"
)

const (
	speechPath        = "/v1/audio/speech"
	transcriptionPath = "/v1/audio/transcriptions"
	translationPath   = "/v1/audio/translations"
)

// AudioService generates speech and transcribes or translates recordings.
type AudioService interface {
	// Speak returns the generated audio. The caller must close it.
	Speak(ctx context.Context, req audio.SpeechRequest) (io.ReadCloser, error)
	// Transcribe returns the recording's text in its spoken language. For
	// the text, srt and vtt formats the raw reply is placed in Text.
	Transcribe(ctx context.Context, req audio.TranscriptionRequest) (*audio.Transcription, error)
	// Translate returns the recording's text in English.
	Translate(ctx context.Context, req audio.TranslationRequest) (*audio.Transcription, error)
}

type audioService struct {
	transport *transport.Client
}

func newAudioService(p *Provider) AudioService {
	return &audioService{transport: p.transport}
}

func (s *audioService) Speak(ctx context.Context, req audio.SpeechRequest) (io.ReadCloser, error) {
	return s.transport.DoRaw(ctx, transport.Request{
		Path:  speechPath,
		Body:  req,
		Model: req.Model,
	})
}

func (s *audioService) Transcribe(ctx context.Context, req audio.TranscriptionRequest) (*audio.Transcription, error) {
	return s.transcript(ctx, transcriptionPath, req, req.Model, req.ResponseFormat)
}

func (s *audioService) Translate(ctx context.Context, req audio.TranslationRequest) (*audio.Transcription, error) {
	return s.transcript(ctx, translationPath, req, req.Model, req.ResponseFormat)
}

func (s *audioService) transcript(ctx context.Context, path string, body any, model string, format audio.TranscriptFormat) (*audio.Transcription, error) {
	req := transport.Request{Path: path, Body: body, Model: model}

	switch format {
	case "", audio.TranscriptJSON, audio.TranscriptVerboseJSON:
		var out audio.Transcription
		if err := s.transport.Do(ctx, req, &out); err != nil {
			return nil, err
		}
		return &out, nil
	}

	rc, err := s.transport.DoRaw(ctx, req)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	var text strings.Builder
	if _, err := io.Copy(&text, rc); err != nil {
		return nil, err
	}
	return &audio.Transcription{Text: text.String()}, nil
}
