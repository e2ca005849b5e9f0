package logx

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
)

func TestNewJSONCarriesServiceAttrs(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Service: "phoneauth", Env: "test", Level: "debug", Output: &buf})

	logger.Debug("hello")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if rec["service"] != "phoneauth" || rec["env"] != "test" {
		t.Fatalf("missing service attrs: %v", rec)
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARNING": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestContextLogger(t *testing.T) {
	fallback := Discard()
	if FromContext(context.Background(), fallback) != fallback {
		t.Fatal("expected fallback when context carries no logger")
	}

	custom := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	ctx := WithContext(context.Background(), custom)
	if FromContext(ctx, fallback) != custom {
		t.Fatal("expected context logger")
	}
}

func TestMaskPhone(t *testing.T) {
	if got := MaskPhone("+963991234567"); got != "+963*******67" {
		t.Fatalf("unexpected mask %q", got)
	}
	if got := MaskPhone("12345"); got != "*****" {
		t.Fatalf("unexpected short mask %q", got)
	}
}
