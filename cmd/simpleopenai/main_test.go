package main

import (
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap/zaptest"

	"simple-openai-go/internal/fakeapi"
)

func TestRunRejectsBadCommands(t *testing.T) {
	if err := run(nil); err == nil {
		t.Fatalf("expected error without a command")
	}
	if err := run([]string{"dance"}); err == nil {
		t.Fatalf("expected error for an unknown command")
	}
}

func TestRunAgainstFake(t *testing.T) {
	fake := fakeapi.New(fakeapi.Options{APIKey: "k"}, zaptest.NewLogger(t))
	srv := httptest.NewServer(fake.Handler())
	defer srv.Close()

	t.Setenv("OPENAI_API_KEY", "k")
	t.Setenv("OPENAI_BASE_URL", srv.URL)
	t.Setenv("OPENAI_REALTIME_MODEL", "")

	if err := run([]string{"chat", "hello"}); err != nil {
		t.Fatalf("chat: %v", err)
	}
	if err := run([]string{"chat", "-stream", "hello"}); err != nil {
		t.Fatalf("chat -stream: %v", err)
	}
	if fake.Calls("chat") != 2 {
		t.Fatalf("expected two chat calls, got %d", fake.Calls("chat"))
	}

	out := filepath.Join(t.TempDir(), "hi.wav")
	if err := run([]string{"speak", "-voice", "echo", "-format", "wav", "hi", out}); err != nil {
		t.Fatalf("speak: %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if string(data) != "FAKE-wav:echo:hi" {
		t.Fatalf("unexpected audio %q", data)
	}
}
