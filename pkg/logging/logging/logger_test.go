package logging

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

func TestFromContextReturnsAttachedLogger(t *testing.T) {
	t.Parallel()

	l := zaptest.NewLogger(t)
	ctx := WithLogger(context.Background(), l)

	if got := FromContext(ctx); got != l {
		t.Fatalf("expected attached logger, got %p", got)
	}
	if got := L(ctx); got != l {
		t.Fatalf("L should match FromContext")
	}
}

func TestFromContextFallsBackToDefault(t *testing.T) {
	t.Parallel()

	if FromContext(context.Background()) != DefaultLogger() {
		t.Fatalf("expected default logger for bare context")
	}
}

func TestWithFieldsWrapsLogger(t *testing.T) {
	t.Parallel()

	base := zaptest.NewLogger(t)
	ctx := WithFields(WithLogger(context.Background(), base), zap.String("model", "gpt-4o"))

	if FromContext(ctx) == base {
		t.Fatalf("expected a derived logger")
	}
}

func TestOrNop(t *testing.T) {
	t.Parallel()

	if OrNop(nil) == nil {
		t.Fatalf("OrNop(nil) must not be nil")
	}
	l := zaptest.NewLogger(t)
	if OrNop(l) != l {
		t.Fatalf("OrNop should return the given logger")
	}
}
