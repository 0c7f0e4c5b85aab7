package fakeapi

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"go.uber.org/zap/zaptest"

	"simple-openai-go/pkg/domain/chat"
	wire "simple-openai-go/pkg/domain/realtime"
)

func newTestServer(t *testing.T, opts Options) (*Server, *httptest.Server) {
	t.Helper()

	s := New(opts, zaptest.NewLogger(t))
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return s, srv
}

func postJSON(t *testing.T, url string, body any, header http.Header) *http.Response {
	t.Helper()

	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header[k] = v
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	_, srv := newTestServer(t, Options{APIKey: "k"})

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

func TestChatRequiresKey(t *testing.T) {
	t.Parallel()

	s, srv := newTestServer(t, Options{APIKey: "k"})

	resp := postJSON(t, srv.URL+"/v1/chat/completions", chat.NewRequest("m", chat.User("hi")), nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
	if s.Calls("chat") != 0 {
		t.Fatalf("handler must not run without a key")
	}
}

func TestChatCompletionEchoes(t *testing.T) {
	t.Parallel()

	s, srv := newTestServer(t, Options{APIKey: "k"})

	req := chat.NewRequest("gpt-4o-mini", chat.System("be brief"), chat.User("hello there"))
	resp := postJSON(t, srv.URL+"/v1/chat/completions", req, http.Header{"Authorization": {"Bearer k"}})
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, body)
	}

	var out chat.Chat
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.FirstContent() != "echo: hello there" || out.Model != "gpt-4o-mini" {
		t.Fatalf("unexpected reply: %#v", out)
	}
	if s.Calls("chat") != 1 {
		t.Fatalf("expected one recorded call, got %d", s.Calls("chat"))
	}
}

func TestChatRejectsInvalidRequest(t *testing.T) {
	t.Parallel()

	_, srv := newTestServer(t, Options{})

	resp := postJSON(t, srv.URL+"/v1/chat/completions", map[string]any{"model": "m", "messages": []any{}}, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestChatStream(t *testing.T) {
	t.Parallel()

	_, srv := newTestServer(t, Options{})

	req := chat.NewRequest("m", chat.User("a b")).
		WithStream(true).
		WithStreamOptions(&chat.StreamOptions{IncludeUsage: true})
	resp := postJSON(t, srv.URL+"/v1/chat/completions", req, nil)

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("unexpected content type %s", ct)
	}

	var text strings.Builder
	var sawUsage, sawDone bool
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		payload, ok := strings.CutPrefix(scanner.Text(), "data: ")
		if !ok {
			continue
		}
		if payload == "[DONE]" {
			sawDone = true
			break
		}
		var chunk chat.ChatChunk
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			t.Fatalf("decode chunk %q: %v", payload, err)
		}
		text.WriteString(chunk.FirstContent())
		if chunk.Usage != nil {
			sawUsage = true
		}
	}

	if text.String() != "echo: a b" || !sawUsage || !sawDone {
		t.Fatalf("text=%q usage=%v done=%v", text.String(), sawUsage, sawDone)
	}
}

func TestDeploymentPathUsesDeploymentAsModel(t *testing.T) {
	t.Parallel()

	_, srv := newTestServer(t, Options{APIKey: "k"})

	resp := postJSON(t, srv.URL+"/openai/deployments/my-gpt/chat/completions?api-version=2024-10-21",
		chat.NewRequest("ignored", chat.User("x")), http.Header{"Api-Key": {"k"}})

	var out chat.Chat
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Model != "my-gpt" {
		t.Fatalf("expected deployment as model, got %q", out.Model)
	}
}

func TestSpeech(t *testing.T) {
	t.Parallel()

	_, srv := newTestServer(t, Options{})

	resp := postJSON(t, srv.URL+"/v1/audio/speech",
		map[string]any{"model": "tts-1", "input": "hi", "voice": "nova", "response_format": "wav"}, nil)

	body, _ := io.ReadAll(resp.Body)
	if resp.Header.Get("Content-Type") != "audio/wav" || string(body) != "FAKE-wav:nova:hi" {
		t.Fatalf("unexpected speech reply %q (%s)", body, resp.Header.Get("Content-Type"))
	}
}

func TestTranscriptionFormats(t *testing.T) {
	t.Parallel()

	_, srv := newTestServer(t, Options{})

	upload := func(format string) (*http.Response, string) {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		_ = mw.WriteField("model", "whisper-1")
		_ = mw.WriteField("response_format", format)
		fw, _ := mw.CreateFormFile("file", "clip.wav")
		_, _ = fw.Write([]byte("RIFF1234"))
		_ = mw.Close()

		resp, err := http.Post(srv.URL+"/v1/audio/transcriptions", mw.FormDataContentType(), &buf)
		if err != nil {
			t.Fatalf("post: %v", err)
		}
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		return resp, string(body)
	}

	if _, body := upload("text"); body != "transcribed clip.wav (8 bytes)" {
		t.Fatalf("unexpected text body %q", body)
	}
	if _, body := upload("json"); !strings.Contains(body, `"text":"transcribed clip.wav (8 bytes)"`) {
		t.Fatalf("unexpected json body %q", body)
	}
	if _, body := upload("vtt"); !strings.HasPrefix(body, "WEBVTT") {
		t.Fatalf("unexpected vtt body %q", body)
	}
}

func TestRealtimeEcho(t *testing.T) {
	t.Parallel()

	_, srv := newTestServer(t, Options{})

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/realtime?model=rt"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	read := func() wire.ServerEvent {
		t.Helper()
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		ev, err := wire.DecodeServerEvent(data)
		if err != nil {
			t.Fatalf("decode %s: %v", data, err)
		}
		return ev
	}
	write := func(ev wire.ClientEvent) {
		t.Helper()
		data, err := wire.EncodeEvent(ev)
		if err != nil {
			t.Fatalf("encode: %v", err)
		}
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	if created, ok := read().(wire.SessionCreated); !ok || created.Session.Model != "rt" {
		t.Fatalf("expected session.created for model rt")
	}

	write(wire.ConversationItemCreate{Item: wire.UserText("ping")})
	if _, ok := read().(wire.ConversationItemCreated); !ok {
		t.Fatalf("expected conversation.item.created")
	}

	write(wire.ResponseCreate{})
	if _, ok := read().(wire.ResponseCreated); !ok {
		t.Fatalf("expected response.created")
	}

	var text strings.Builder
	for {
		switch ev := read().(type) {
		case wire.ResponseTextDelta:
			text.WriteString(ev.Delta.Delta)
			continue
		case wire.ResponseDone:
			if ev.Response.Status != wire.StatusCompleted || len(ev.Response.Output) != 1 {
				t.Fatalf("unexpected response.done: %#v", ev.Response)
			}
		default:
			t.Fatalf("unexpected event %T", ev)
		}
		break
	}
	if text.String() != "echo: ping" {
		t.Fatalf("unexpected deltas %q", text.String())
	}
}
