package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type gateSink struct {
	gate chan struct{}
}

func (s *gateSink) Emit(context.Context, Event) { <-s.gate }

func TestDispatcherDisabledIsNil(t *testing.T) {
	d := NewDispatcher(Config{Enabled: false}, NoOpSink{})
	require.Nil(t, d)

	d.Emit(context.Background(), Event{EventType: "ignored"})
	d.Close()
	require.Zero(t, d.Dropped())
}

func TestDispatcherDeliversQueuedEventsOnClose(t *testing.T) {
	sink := NewChannelSink(8)
	d := NewDispatcher(Config{Enabled: true, BufferSize: 8}, sink)

	for _, name := range []string{"login_success", "authenticate_renewed", "logout"} {
		d.Emit(context.Background(), Event{EventType: name})
	}
	d.Close()

	var got []string
	for len(sink.Events()) > 0 {
		got = append(got, (<-sink.Events()).EventType)
	}
	require.Equal(t, []string{"login_success", "authenticate_renewed", "logout"}, got)

	d.Emit(context.Background(), Event{EventType: "after_close"})
	require.Empty(t, sink.Events())
}

func TestDispatcherDropIfFullCountsDrops(t *testing.T) {
	sink := &gateSink{gate: make(chan struct{})}
	d := NewDispatcher(Config{Enabled: true, BufferSize: 1, DropIfFull: true}, sink)

	// one event blocks inside the sink, one fills the buffer
	d.Emit(context.Background(), Event{EventType: "a"})
	require.Eventually(t, func() bool { return len(d.queue) == 0 }, time.Second, time.Millisecond)
	d.Emit(context.Background(), Event{EventType: "b"})

	for i := 0; i < 5; i++ {
		d.Emit(context.Background(), Event{EventType: "dropped"})
	}
	require.EqualValues(t, 5, d.Dropped())

	close(sink.gate)
	d.Close()
}

func TestDispatcherBlockingEmitHonoursContext(t *testing.T) {
	sink := &gateSink{gate: make(chan struct{})}
	d := NewDispatcher(Config{Enabled: true, BufferSize: 1}, sink)

	d.Emit(context.Background(), Event{EventType: "a"})
	require.Eventually(t, func() bool { return len(d.queue) == 0 }, time.Second, time.Millisecond)
	d.Emit(context.Background(), Event{EventType: "b"})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	start := time.Now()
	d.Emit(ctx, Event{EventType: "c"})
	require.Less(t, time.Since(start), time.Second)
	require.EqualValues(t, 1, d.Dropped())
	require.Equal(t, map[string]uint64{"c": 1}, d.DroppedByType())

	close(sink.gate)
	d.Close()
}

func TestDispatcherKeepsCriticalSessionEvents(t *testing.T) {
	sink := &gateSink{gate: make(chan struct{})}
	d := NewDispatcher(Config{
		Enabled:    true,
		BufferSize: 1,
		DropIfFull: true,
		Critical:   func(e Event) bool { return e.EventType == "authenticate_error" },
	}, sink)

	d.Emit(context.Background(), Event{EventType: "login_success", SessionID: "s-1", Success: true})
	require.Eventually(t, func() bool { return len(d.queue) == 0 }, time.Second, time.Millisecond)
	d.Emit(context.Background(), Event{EventType: "authenticate_renewed", SessionID: "s-1", Metadata: map[string]string{"fallback": "false"}})

	for i := 0; i < 3; i++ {
		d.Emit(context.Background(), Event{EventType: "authenticate_rejected", Error: "refresh_invalid"})
	}
	d.Emit(context.Background(), Event{EventType: "renewal_conflict", SessionID: "s-1", Success: true})

	accepted := make(chan struct{})
	go func() {
		d.Emit(context.Background(), Event{EventType: "authenticate_error", SessionID: "s-1", Error: "backend_unavailable"})
		close(accepted)
	}()
	select {
	case <-accepted:
		t.Fatal("critical event was dropped instead of waiting")
	case <-time.After(20 * time.Millisecond):
	}

	close(sink.gate)
	<-accepted
	d.Close()

	require.EqualValues(t, 4, d.Dropped())
	require.Equal(t, map[string]uint64{"authenticate_rejected": 3, "renewal_conflict": 1}, d.DroppedByType())
}

func TestDispatcherStampsSessionEventsInOrder(t *testing.T) {
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.FixedZone("CET", 3600))
	sink := NewChannelSink(8)
	d := NewDispatcher(Config{Enabled: true, BufferSize: 8, Now: func() time.Time { return at }}, sink)

	explicit := at.Add(-time.Minute).UTC()
	d.Emit(context.Background(), Event{EventType: "login_success", SessionID: "s-1", Success: true})
	d.Emit(context.Background(), Event{EventType: "authenticate_renewed", SessionID: "s-2", Metadata: map[string]string{"fallback": "true"}, Timestamp: explicit})
	d.Emit(context.Background(), Event{EventType: "logout", SessionID: "s-2", Success: true})
	d.Close()

	var got []Event
	for len(sink.Events()) > 0 {
		got = append(got, <-sink.Events())
	}
	require.Len(t, got, 3)
	require.Equal(t, "login_success", got[0].EventType)
	require.Equal(t, at.UTC(), got[0].Timestamp)
	require.Equal(t, explicit, got[1].Timestamp)
	require.Equal(t, "true", got[1].Metadata["fallback"])
	require.Equal(t, "s-2", got[2].SessionID)
	require.Equal(t, time.UTC, got[2].Timestamp.Location())
}

func TestJSONWriterSinkWritesLines(t *testing.T) {
	var buf bytes.Buffer
	sink := NewJSONWriterSink(&buf)
	sink.Emit(context.Background(), Event{EventType: "login_success", UserID: "u-1", Success: true})
	sink.Emit(context.Background(), Event{EventType: "authenticate_rejected", Error: "refresh_invalid"})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var ev Event
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &ev))
	require.Equal(t, "authenticate_rejected", ev.EventType)
	require.Equal(t, "refresh_invalid", ev.Error)
	require.False(t, ev.Success)
}

func TestLoggerSinkLevels(t *testing.T) {
	var buf bytes.Buffer
	sink := NewLoggerSink(zerolog.New(&buf))

	sink.Emit(context.Background(), Event{
		EventType: "authenticate_renewed",
		UserID:    "u-1",
		SessionID: "s-1",
		Success:   true,
		Metadata:  map[string]string{"fallback": "true"},
	})
	sink.Emit(context.Background(), Event{EventType: "authenticate_rejected", Error: "session_revoked"})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var first map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	require.Equal(t, "info", first["level"])
	require.Equal(t, "authenticate_renewed", first["message"])
	require.Equal(t, "audit", first["component"])
	require.Equal(t, map[string]any{"fallback": "true"}, first["metadata"])

	var second map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &second))
	require.Equal(t, "warn", second["level"])
	require.Equal(t, "session_revoked", second["error_code"])
}
