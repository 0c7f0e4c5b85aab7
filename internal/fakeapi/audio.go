package fakeapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"simple-openai-go/internal/middleware"
	"simple-openai-go/pkg/domain/audio"
	"simple-openai-go/pkg/logging/logging"
	"simple-openai-go/pkg/validation"
)

var speechContentTypes = map[audio.Format]string{
	audio.FormatMP3:  "audio/mpeg",
	audio.FormatOpus: "audio/opus",
	audio.FormatAAC:  "audio/aac",
	audio.FormatFLAC: "audio/flac",
	audio.FormatWAV:  "audio/wav",
	audio.FormatPCM:  "audio/pcm",
}

// Speech handles POST /v1/audio/speech. The "audio" is the voice and input
// as text, so callers can check what was sent.
func (s *Server) Speech(w http.ResponseWriter, r *http.Request) {
	s.count("speech")

	var req audio.SpeechRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "invalid_request_error", "invalid JSON: "+err.Error())
		return
	}
	if err := validation.Validate(req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "invalid_request_error", err.Error())
		return
	}

	format := req.ResponseFormat
	if format == "" {
		format = audio.FormatMP3
	}
	w.Header().Set("Content-Type", speechContentTypes[format])
	_, _ = fmt.Fprintf(w, "FAKE-%s:%s:%s", format, req.Voice, req.Input)
}

// Transcription handles POST /v1/audio/transcriptions.
func (s *Server) Transcription(w http.ResponseWriter, r *http.Request) {
	s.count("transcription")
	s.transcript(w, r, "transcribe")
}

// Translation handles POST /v1/audio/translations.
func (s *Server) Translation(w http.ResponseWriter, r *http.Request) {
	s.count("translation")
	s.transcript(w, r, "translate")
}

func (s *Server) transcript(w http.ResponseWriter, r *http.Request, task string) {
	logger := logging.L(r.Context())

	if err := r.ParseMultipartForm(1 << 20); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "invalid_request_error", "expected multipart form: "+err.Error())
		return
	}
	if r.FormValue("model") == "" {
		middleware.WriteError(w, http.StatusBadRequest, "invalid_request_error", "model is required")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "invalid_request_error", "file is required")
		return
	}
	defer file.Close()

	n, err := io.Copy(io.Discard, file)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			middleware.WriteError(w, http.StatusRequestEntityTooLarge, "invalid_request_error", "file too large")
			return
		}
		middleware.WriteError(w, http.StatusBadRequest, "invalid_request_error", err.Error())
		return
	}

	text := fmt.Sprintf("%sd %s (%d bytes)", task, header.Filename, n)
	logger.Info("transcript", zap.String("task", task), zap.String("file", header.Filename), zap.Int64("bytes", n))

	switch audio.TranscriptFormat(r.FormValue("response_format")) {
	case audio.TranscriptText:
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = io.WriteString(w, text)
	case audio.TranscriptSRT:
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = fmt.Fprintf(w, "1\n00:00:00,000 --> 00:00:01,000\n%s\n", text)
	case audio.TranscriptVTT:
		w.Header().Set("Content-Type", "text/vtt")
		_, _ = fmt.Fprintf(w, "WEBVTT\n\n00:00:00.000 --> 00:00:01.000\n%s\n", text)
	case audio.TranscriptVerboseJSON:
		language := r.FormValue("language")
		if language == "" || task == "translate" {
			language = "en"
		}
		writeJSON(w, audio.Transcription{
			Text:     text,
			Task:     task,
			Language: language,
			Duration: 1,
			Segments: []audio.Segment{{Text: text, End: 1}},
		})
	default:
		writeJSON(w, audio.Transcription{Text: text})
	}
}
