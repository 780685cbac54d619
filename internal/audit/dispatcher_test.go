package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/eprintd/authcore/logging"
)

func TestNilDispatcherSafe(t *testing.T) {
	var d *Dispatcher
	d.Emit(context.Background(), Event{EventType: EventLogin})
	d.Close()
	if d.Dropped() != 0 {
		t.Fatalf("nil dispatcher reported drops")
	}
}

func TestDisabledReturnsNil(t *testing.T) {
	if d := NewDispatcher(Config{Enabled: false}, NoOpSink{}, nil); d != nil {
		t.Fatalf("disabled config should return nil dispatcher")
	}
}

func TestCloseDrainsBuffer(t *testing.T) {
	sink := NewChannelSink(16)
	d := NewDispatcher(Config{Enabled: true, BufferSize: 16}, sink, logging.Nop{})

	for i := 0; i < 5; i++ {
		d.Emit(context.Background(), Event{EventType: EventSessionCreate})
	}
	d.Close()

	received := 0
	for {
		select {
		case <-sink.Events():
			received++
		case <-time.After(100 * time.Millisecond):
			if received != 5 {
				t.Fatalf("expected 5 drained events, got %d", received)
			}
			return
		}
	}
}

func TestEmitAfterCloseDropped(t *testing.T) {
	d := NewDispatcher(Config{Enabled: true, BufferSize: 1}, NoOpSink{}, nil)
	d.Close()
	d.Emit(context.Background(), Event{EventType: EventLogin})
	d.Close()
}

// blockingSink holds the forwarding goroutine until released, so the
// queue fills deterministically.
type blockingSink struct {
	release chan struct{}
}

func (s *blockingSink) Emit(context.Context, Event) { <-s.release }

type warnCounter struct {
	logging.Nop
	warns atomic.Int32
}

func (w *warnCounter) Warn(context.Context, string, ...any) { w.warns.Add(1) }

func TestDropIfFullCountsAndWarnsOnce(t *testing.T) {
	sink := &blockingSink{release: make(chan struct{})}
	log := &warnCounter{}
	d := NewDispatcher(Config{Enabled: true, BufferSize: 1, DropIfFull: true}, sink, log)

	for i := 0; i < 10; i++ {
		d.Emit(context.Background(), Event{EventType: EventLogin})
	}
	if d.Dropped() == 0 {
		t.Fatalf("expected drops with a blocked sink")
	}
	if got := log.warns.Load(); got != 1 {
		t.Fatalf("expected exactly one queue-full warning, got %d", got)
	}

	close(sink.release)
	d.Close()
}

func TestJSONWriterSink(t *testing.T) {
	var buf bytes.Buffer
	sink := NewJSONWriterSink(&buf)

	sink.Emit(context.Background(), Event{
		EventType: EventLogin,
		UserID:    "u-1",
		Success:   true,
	})
	sink.Emit(context.Background(), Event{
		EventType: EventSessionInvalidate,
		SessionID: "s-9",
		Success:   false,
		Error:     "session unknown",
	})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}

	var first Event
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatalf("unmarshal first line: %v", err)
	}
	if first.EventType != EventLogin || first.UserID != "u-1" || !first.Success {
		t.Fatalf("unexpected first event: %+v", first)
	}
	if !strings.Contains(lines[1], `"error":"session unknown"`) {
		t.Fatalf("missing error field: %s", lines[1])
	}
}
