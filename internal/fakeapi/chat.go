package fakeapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"simple-openai-go/internal/middleware"
	"simple-openai-go/pkg/domain/chat"
	"simple-openai-go/pkg/logging/logging"
	"simple-openai-go/pkg/validation"
)

// ChatCompletion handles POST /v1/chat/completions. The reply is
// "echo: <last user text>", streamed word by word when stream is set.
func (s *Server) ChatCompletion(w http.ResponseWriter, r *http.Request) {
	logger := logging.L(r.Context())
	s.count("chat")

	var req chat.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid request", zap.Error(err))
		middleware.WriteError(w, http.StatusBadRequest, "invalid_request_error", "invalid JSON: "+err.Error())
		return
	}
	if err := validation.Validate(req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "invalid_request_error", err.Error())
		return
	}

	model := req.Model
	if d := chi.URLParam(r, "deployment"); d != "" {
		model = d
	}

	reply := "echo: " + lastUserText(req.Messages)
	usage := &chat.Usage{
		PromptTokens:     len(req.Messages),
		CompletionTokens: len(strings.Fields(reply)),
	}
	usage.TotalTokens = usage.PromptTokens + usage.CompletionTokens

	logger.Info("chat completion",
		zap.String("model", model),
		zap.Bool("stream", req.IsStream()),
		zap.Int("messages", len(req.Messages)),
	)

	if req.IsStream() {
		includeUsage := req.StreamOptions != nil && req.StreamOptions.IncludeUsage
		s.streamChat(w, r, model, reply, usage, includeUsage)
		return
	}

	writeJSON(w, chat.Chat{
		ID:      "chatcmpl-fake",
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   model,
		Choices: []chat.Choice{{
			Message:      chat.ResponseMessage{Content: reply},
			FinishReason: "stop",
		}},
		Usage: usage,
	})
}

func (s *Server) streamChat(w http.ResponseWriter, r *http.Request, model, reply string, usage *chat.Usage, includeUsage bool) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		middleware.WriteError(w, http.StatusInternalServerError, "server_error", "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	send := func(chunk chat.ChatChunk) bool {
		chunk.ID, chunk.Object, chunk.Model = "chatcmpl-fake", "chat.completion.chunk", model
		data, err := json.Marshal(chunk)
		if err != nil {
			return false
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
			return false
		}
		flusher.Flush()
		return r.Context().Err() == nil
	}

	words := strings.SplitAfter(reply, " ")
	for i, word := range words {
		choice := chat.ChunkChoice{Delta: chat.ResponseMessage{Content: word}}
		if i == len(words)-1 {
			choice.FinishReason = "stop"
		}
		if !send(chat.ChatChunk{Choices: []chat.ChunkChoice{choice}}) {
			return
		}
	}
	if includeUsage && !send(chat.ChatChunk{Choices: []chat.ChunkChoice{}, Usage: usage}) {
		return
	}

	_, _ = fmt.Fprint(w, "data: [DONE]\n\n")
	flusher.Flush()
}

// lastUserText joins the text of the most recent user message.
func lastUserText(msgs chat.Messages) string {
	for i := len(msgs) - 1; i >= 0; i-- {
		um, ok := msgs[i].(chat.UserMessage)
		if !ok {
			continue
		}
		switch c := um.Content.(type) {
		case chat.Text:
			return string(c)
		case chat.Parts:
			var texts []string
			for _, p := range c {
				if tp, ok := p.(chat.TextPart); ok {
					texts = append(texts, tp.Text)
				}
			}
			return strings.Join(texts, " ")
		}
	}
	return ""
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
