package file

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/vshulcz/netstats/internal/services/audit"
)

func readEvents(t *testing.T, path string) []audit.Event {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()

	var out []audit.Event
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var evt audit.Event
		if err := json.Unmarshal(sc.Bytes(), &evt); err != nil {
			t.Fatalf("unmarshal %q: %v", sc.Text(), err)
		}
		out = append(out, evt)
	}
	return out
}

func TestWriter_Notify_AppendsJSONLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "audit.log")
	w := New(path)

	for i := range 3 {
		evt := audit.Event{Timestamp: int64(i), SessionID: "s1", Metrics: []string{"NetworkMetric.BytesSent"}, IPAddress: "127.0.0.1"}
		if err := w.Notify(context.Background(), evt); err != nil {
			t.Fatalf("Notify error: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	events := readEvents(t, path)
	if len(events) != 3 {
		t.Fatalf("got %d events, want 3", len(events))
	}
	if events[2].Timestamp != 2 || events[0].SessionID != "s1" || events[1].Metrics[0] != "NetworkMetric.BytesSent" {
		t.Fatalf("decoded mismatch: %+v", events)
	}
}

func TestWriter_ReopensAfterClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.log")
	w := New(path)

	_ = w.Notify(context.Background(), audit.Event{Timestamp: 1})
	_ = w.Close()
	_ = w.Notify(context.Background(), audit.Event{Timestamp: 2})
	_ = w.Close()

	if events := readEvents(t, path); len(events) != 2 {
		t.Fatalf("got %d events after reopen, want 2", len(events))
	}
}

func TestWriter_NoPathIsNoop(t *testing.T) {
	var nilWriter *Writer
	if err := nilWriter.Notify(context.Background(), audit.Event{}); err != nil {
		t.Fatalf("nil writer: %v", err)
	}
	if err := New("").Notify(context.Background(), audit.Event{}); err != nil {
		t.Fatalf("empty path: %v", err)
	}
	if err := nilWriter.Close(); err != nil {
		t.Fatalf("nil close: %v", err)
	}
}
