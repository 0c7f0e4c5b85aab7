package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"go.uber.org/zap"

	"simple-openai-go/internal/fakeapi"
	"simple-openai-go/pkg/domain/audio"
	"simple-openai-go/pkg/domain/chat"
	"simple-openai-go/pkg/logging/logging"
	"simple-openai-go/pkg/openai"
)

const usage = `usage: simpleopenai [-config settings.yaml] <command> [args]

commands:
  chat [-model m] [-stream] [-system s] <prompt>
        send one chat completion
  speak [-model m] [-voice v] [-format f] <text> <out-file>
        write generated speech to a file
  fake [-addr :8089] [-key k]
        serve the fake API locally
`

func main() {
	if err := run(os.Args[1:]); err != nil {
		log.Fatalf("simpleopenai: %v", err)
	}
}

func run(args []string) error {
	global := flag.NewFlagSet("simpleopenai", flag.ContinueOnError)
	configPath := global.String("config", "", "YAML settings file (default: environment only)")
	global.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	if err := global.Parse(args); err != nil {
		return err
	}
	if global.NArg() == 0 {
		global.Usage()
		return errors.New("missing command")
	}

	logger := logging.DefaultLogger()
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cmd, rest := global.Arg(0), global.Args()[1:]
	switch cmd {
	case "fake":
		return runFake(ctx, logger, rest)
	case "chat", "speak":
	default:
		global.Usage()
		return fmt.Errorf("unknown command %q", cmd)
	}

	settings, err := loadSettings(*configPath)
	if err != nil {
		return err
	}
	provider, err := openai.NewProvider(settings.Configurator(), logger)
	if err != nil {
		return err
	}
	defer provider.Close()

	if cmd == "chat" {
		return runChat(ctx, provider, rest)
	}
	return runSpeak(ctx, provider, rest)
}

func loadSettings(path string) (openai.Settings, error) {
	if path != "" {
		return openai.LoadSettings(path)
	}
	s := openai.SettingsFromEnv()
	if err := s.Validate(); err != nil {
		return openai.Settings{}, fmt.Errorf("environment settings: %w", err)
	}
	return s, nil
}

func runChat(ctx context.Context, p *openai.Provider, args []string) error {
	fs := flag.NewFlagSet("chat", flag.ContinueOnError)
	model := fs.String("model", "gpt-4o-mini", "model name")
	stream := fs.Bool("stream", false, "print the reply as it arrives")
	system := fs.String("system", "", "optional system prompt")
	if err := fs.Parse(args); err != nil {
		return err
	}
	prompt := strings.Join(fs.Args(), " ")
	if prompt == "" {
		return errors.New("chat: prompt is required")
	}

	var msgs []chat.ChatMessage
	if *system != "" {
		msgs = append(msgs, chat.System(*system))
	}
	msgs = append(msgs, chat.User(prompt))
	req := chat.NewRequest(*model, msgs...)

	if !*stream {
		resp, err := p.Chat().Create(ctx, req)
		if err != nil {
			return err
		}
		fmt.Println(resp.FirstContent())
		return nil
	}

	results, err := p.Chat().CreateStream(ctx, req)
	if err != nil {
		return err
	}
	for res := range results {
		if res.Err != nil {
			return res.Err
		}
		fmt.Print(res.Chunk.FirstContent())
	}
	fmt.Println()
	return nil
}

func runSpeak(ctx context.Context, p *openai.Provider, args []string) error {
	fs := flag.NewFlagSet("speak", flag.ContinueOnError)
	model := fs.String("model", "tts-1", "model name")
	voice := fs.String("voice", string(audio.VoiceAlloy), "voice")
	format := fs.String("format", string(audio.FormatMP3), "audio format")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 2 {
		return errors.New("speak: expected <text> <out-file>")
	}

	speech, err := p.Audio().Speak(ctx, audio.SpeechRequest{
		Model:          *model,
		Input:          fs.Arg(0),
		Voice:          audio.Voice(*voice),
		ResponseFormat: audio.Format(*format),
	})
	if err != nil {
		return err
	}
	defer speech.Close()

	out, err := os.Create(fs.Arg(1))
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, speech); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func runFake(ctx context.Context, logger *zap.Logger, args []string) error {
	fs := flag.NewFlagSet("fake", flag.ContinueOnError)
	addr := fs.String("addr", ":8089", "listen address")
	key := fs.String("key", os.Getenv("FAKEAPI_KEY"), "API key callers must present (empty: any)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	fake := fakeapi.New(fakeapi.Options{APIKey: *key}, logger.Named("fakeapi"))

	srv := &http.Server{
		Addr:              *addr,
		Handler:           fake.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	logger.Info("starting fake api", zap.String("addr", srv.Addr))

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
		return err
	}

	logger.Info("server shutdown complete")
	return nil
}
