package chat

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"simple-openai-go/pkg/domain/union"
)

func TestMessageRoleMatchesVariant(t *testing.T) {
	t.Parallel()

	cases := []ChatMessage{
		Developer("be terse"),
		System("you are helpful"),
		User("hello"),
		UserParts(TextPart{Text: "look"}, ImagePart{ImageURL: ImageURL{URL: "https://x/y.png", Detail: "low"}}),
		Assistant("hi there").WithAudio("audio_1"),
		AssistantToolCalls(ToolCall{ID: "call_1", Type: ToolTypeFunction, Function: FunctionCall{Name: "f", Arguments: "{}"}}),
		ToolResult("42", "call_1"),
	}

	for _, msg := range cases {
		data, err := json.Marshal(msg)
		if err != nil {
			t.Fatalf("Marshal %T: %v", msg, err)
		}

		role, err := union.Tag("chat message", data, "role")
		if err != nil {
			t.Fatalf("%T: %v", msg, err)
		}
		if Role(role) != msg.Role() {
			t.Fatalf("%T: encoded role %q, want %q", msg, role, msg.Role())
		}

		back, err := DecodeMessage(data)
		if err != nil {
			t.Fatalf("DecodeMessage %s: %v", data, err)
		}
		if diff := cmp.Diff(msg, back); diff != "" {
			t.Fatalf("%T round trip mismatch (-want +got):\n%s", msg, diff)
		}
	}
}

func TestResponseMessageEncodesAsAssistant(t *testing.T) {
	t.Parallel()

	var m ResponseMessage
	if err := json.Unmarshal([]byte(`{"role":"assistant","content":"ok","audio":{"id":"a1","expires_at":10,"transcript":"ok"}}`), &m); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if m.Role() != RoleAssistant || m.Audio == nil || m.Audio.ExpiresAt != 10 {
		t.Fatalf("unexpected response message %#v", m)
	}

	data, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	back, err := DecodeMessage(data)
	if err != nil {
		t.Fatalf("DecodeMessage: %v", err)
	}
	if _, ok := back.(AssistantMessage); !ok {
		t.Fatalf("expected AssistantMessage, got %T", back)
	}
}

func TestDecodeMessageRejectsUnknownRole(t *testing.T) {
	t.Parallel()

	_, err := DecodeMessage([]byte(`{"role":"robot","content":"beep"}`))
	if !errors.Is(err, union.ErrUnknownDiscriminator) {
		t.Fatalf("expected ErrUnknownDiscriminator, got %v", err)
	}

	_, err = DecodeMessage([]byte(`{"content":"no role"}`))
	if !errors.Is(err, union.ErrMissingDiscriminator) {
		t.Fatalf("expected ErrMissingDiscriminator, got %v", err)
	}

	var req ChatRequest
	err = json.Unmarshal([]byte(`{"model":"m","messages":[{"role":"user","content":"a"},{"role":"narrator","content":"b"}]}`), &req)
	if !errors.Is(err, union.ErrUnknownDiscriminator) {
		t.Fatalf("expected request decode to fail on unknown role, got %v", err)
	}
}

func TestAssistantContentAlwaysEncoded(t *testing.T) {
	t.Parallel()

	msg := AssistantToolCalls(ToolCall{ID: "c", Type: ToolTypeFunction, Function: FunctionCall{Name: "f", Arguments: "{}"}})
	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	want := `{"role":"assistant","content":null,"tool_calls":[{"id":"c","type":"function","function":{"name":"f","arguments":"{}"}}]}`
	if string(data) != want {
		t.Fatalf("unexpected encoding\n got %s\nwant %s", data, want)
	}
}

func TestContentParts(t *testing.T) {
	t.Parallel()

	msg := UserParts(
		TextPart{Text: "transcribe"},
		AudioPart{InputAudio: InputAudio{Data: "AAA=", Format: "wav"}},
		FilePart{File: FileRef{FileID: "file_1"}},
	)
	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	want := `{"role":"user","content":[{"type":"text","text":"transcribe"},{"type":"input_audio","input_audio":{"data":"AAA=","format":"wav"}},{"type":"file","file":{"file_id":"file_1"}}]}`
	if string(data) != want {
		t.Fatalf("unexpected encoding\n got %s\nwant %s", data, want)
	}

	_, err = DecodeMessage([]byte(`{"role":"user","content":[{"type":"hologram"}]}`))
	if !errors.Is(err, union.ErrUnknownDiscriminator) {
		t.Fatalf("expected unknown part type to fail, got %v", err)
	}

	_, err = DecodeMessage([]byte(`{"role":"user","content":42}`))
	if err == nil {
		t.Fatalf("expected numeric content to fail")
	}
}
