package logging

import (
	"context"
	"io"
	"log/slog"
	"testing"
)

func TestContextRoundTrip(t *testing.T) {
	t.Parallel()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx := ContextWithLogger(context.Background(), logger)

	if got := FromContext(ctx); got != logger {
		t.Error("FromContext must return the attached logger")
	}
	if got := FromContext(context.Background()); got != nil {
		t.Error("FromContext without attachment must return nil")
	}
}

func TestFromContextOr(t *testing.T) {
	t.Parallel()

	attached := slog.New(slog.NewTextHandler(io.Discard, nil))
	fallback := slog.New(slog.NewTextHandler(io.Discard, nil))

	ctx := ContextWithLogger(context.Background(), attached)
	if got := FromContextOr(ctx, fallback); got != attached {
		t.Error("context logger must win over the fallback")
	}
	if got := FromContextOr(context.Background(), fallback); got != fallback {
		t.Error("fallback must be used without a context logger")
	}
	if got := FromContextOr(context.Background(), nil); got == nil {
		t.Error("the process default is the last resort, never nil")
	}
}
