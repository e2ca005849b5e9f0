package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestDispatcherDeliversInOrder(t *testing.T) {
	sink := NewChannelSink(8)
	d := NewDispatcher(Config{Enabled: true, BufferSize: 8}, sink)

	for _, typ := range []string{"registration_begin", "registration_verify", "registration_complete"} {
		d.Emit(context.Background(), Event{EventType: typ, Success: true})
	}
	d.Close()

	for _, want := range []string{"registration_begin", "registration_verify", "registration_complete"} {
		select {
		case got := <-sink.Events():
			if got.EventType != want {
				t.Fatalf("expected %s, got %s", want, got.EventType)
			}
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for %s", want)
		}
	}
}

func TestDispatcherDisabledIsNil(t *testing.T) {
	d := NewDispatcher(Config{Enabled: false}, NoOpSink{})
	if d != nil {
		t.Fatal("expected nil dispatcher when disabled")
	}
	d.Emit(context.Background(), Event{EventType: "login_success"})
	d.Close()
	if d.Dropped() != 0 {
		t.Fatal("expected zero drops on nil dispatcher")
	}
}

type blockingSink struct {
	release chan struct{}
}

func (s blockingSink) Emit(context.Context, Event) { <-s.release }

func TestDispatcherDropIfFullCountsDrops(t *testing.T) {
	sink := blockingSink{release: make(chan struct{})}
	d := NewDispatcher(Config{Enabled: true, BufferSize: 1, DropIfFull: true}, sink)

	for i := 0; i < 10; i++ {
		d.Emit(context.Background(), Event{EventType: "login_failure"})
	}
	close(sink.release)
	d.Close()

	if d.Dropped() == 0 {
		t.Fatal("expected dropped events with a full buffer")
	}
}

func TestDispatcherOnDropSeesEveryDrop(t *testing.T) {
	sink := blockingSink{release: make(chan struct{})}
	var onDrop atomic.Uint64
	d := NewDispatcher(Config{
		Enabled:    true,
		BufferSize: 1,
		DropIfFull: true,
		OnDrop:     func(Event) { onDrop.Add(1) },
	}, sink)

	for i := 0; i < 10; i++ {
		d.Emit(context.Background(), Event{EventType: "code_issue_rate_limited"})
	}
	close(sink.release)
	d.Close()

	if d.Dropped() == 0 || onDrop.Load() != d.Dropped() {
		t.Fatalf("expected OnDrop per drop, dropped=%d onDrop=%d", d.Dropped(), onDrop.Load())
	}
}

func TestDispatcherCloseFlushesAndRejectsLateEvents(t *testing.T) {
	sink := NewChannelSink(16)
	d := NewDispatcher(Config{Enabled: true, BufferSize: 16}, sink)

	for i := 0; i < 5; i++ {
		d.Emit(context.Background(), Event{EventType: "password_reset_verify"})
	}
	d.Close()
	d.Close()
	d.Emit(context.Background(), Event{EventType: "late"})

	if got := len(sink.Events()); got != 5 {
		t.Fatalf("expected 5 flushed events, got %d", got)
	}
}

func TestJSONWriterSinkWritesLines(t *testing.T) {
	var buf bytes.Buffer
	sink := NewJSONWriterSink(&buf)

	sink.Emit(context.Background(), Event{EventType: "login_success", AccountID: "acc-1", Success: true})
	sink.Emit(context.Background(), Event{EventType: "login_failure", Subject: "+96399*****67"})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	var first Event
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if first.AccountID != "acc-1" || !first.Success {
		t.Fatalf("unexpected event: %+v", first)
	}
}

func TestSlogSinkLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
	sink := NewSlogSink(logger)

	sink.Emit(context.Background(), Event{EventType: "login_locked", Subject: "+96399*****67", Error: "account locked"})

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if rec["level"] != "WARN" {
		t.Fatalf("expected WARN for failed event, got %v", rec["level"])
	}
	if rec["event_type"] != "login_locked" || rec["component"] != "audit" {
		t.Fatalf("unexpected record: %v", rec)
	}
}
