package gemini

import (
	"context"
	"runtime"
	"testing"
)

func TestNewGeminiClient_MissingKey(t *testing.T) {
	c, err := newGeminiClient(context.Background(), "gemini-2.5-flash-lite", "", nil)
	if err == nil {
		t.Fatal("expected error for missing api key")
	}
	if c != nil {
		t.Errorf("expected nil client, got %+v", c)
	}
}

func TestNewGeminiClient_StartsNoBackgroundWork(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	before := runtime.NumGoroutine()
	c, err := newGeminiClient(ctx, "gemini-2.5-flash-lite", "test-key", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.ModelName() != "gemini-2.5-flash-lite" {
		t.Errorf("unexpected model %q", c.ModelName())
	}
	if after := runtime.NumGoroutine(); after > before {
		t.Errorf("client left %d goroutines running", after-before)
	}
}
