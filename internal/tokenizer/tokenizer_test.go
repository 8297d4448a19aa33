package tokenizer

import (
	"errors"
	"net"
	"testing"
)

type testCounter struct{}

func (testCounter) Name() string { return "stub" }

func (testCounter) CountString(input string) (int, error) { return len([]rune(input)), nil }

func TestCountBytesText(t *testing.T) {
	result, err := CountBytes(testCounter{}, []byte("hello"))
	if err != nil {
		t.Fatalf("CountBytes error: %v", err)
	}
	if !result.Counted {
		t.Fatalf("expected counted result")
	}
	if result.Tokens != len([]rune("hello")) {
		t.Fatalf("expected %d tokens, got %d", len([]rune("hello")), result.Tokens)
	}
}

func TestCountBytesBinary(t *testing.T) {
	data := []byte{0x00, 0x01, 0x02}
	result, err := CountBytes(testCounter{}, data)
	if err != nil {
		t.Fatalf("CountBytes error: %v", err)
	}
	if result.Counted {
		t.Fatalf("expected binary data to be skipped")
	}
}

func TestCountBytesNilCounter(t *testing.T) {
	if _, err := CountBytes(nil, []byte("x")); err == nil {
		t.Fatalf("expected error for nil counter")
	}
}

// newCounterOrSkip skips the test when tiktoken cannot download its encoding
// files and no cached copy exists in TIKTOKEN_CACHE_DIR.
func newCounterOrSkip(t *testing.T, cfg Config) (Counter, string) {
	t.Helper()
	counter, model, err := NewCounter(cfg)
	var networkError net.Error
	if errors.As(err, &networkError) {
		t.Skipf("tiktoken encoding unavailable offline: %v", err)
	}
	if err != nil {
		t.Fatalf("NewCounter error: %v", err)
	}
	return counter, model
}

func TestNewCounterFallsBackForUnknownModels(t *testing.T) {
	counter, model := newCounterOrSkip(t, Config{Model: "claude-3-5-sonnet"})
	if model != defaultEncodingName || counter.Name() != defaultEncodingName {
		t.Fatalf("expected fallback encoding %s, got model %q counter %q", defaultEncodingName, model, counter.Name())
	}
}

func TestNewCounterDefault(t *testing.T) {
	counter, model := newCounterOrSkip(t, Config{})
	if counter == nil {
		t.Fatalf("expected non-nil counter")
	}
	if model != DefaultModel {
		t.Fatalf("expected model %s, got %q", DefaultModel, model)
	}
	tokens, err := counter.CountString("hello world")
	if err != nil {
		t.Fatalf("CountString error: %v", err)
	}
	if tokens <= 0 {
		t.Fatalf("expected positive token count, got %d", tokens)
	}
}
