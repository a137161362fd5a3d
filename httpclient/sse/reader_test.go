package sse

import (
	"io"
	"strings"
	"testing"
	"time"
)

type mockReadCloser struct {
	*strings.Reader
	closed bool
}

func (m *mockReadCloser) Close() error {
	m.closed = true
	return nil
}

func newMockBody(s string) *mockReadCloser {
	return &mockReadCloser{Reader: strings.NewReader(s)}
}

func TestReader_ChangeMessage(t *testing.T) {
	body := newMockBody(`data: {"entityType":"product","action":"updated","channelId":"c1","id":"p1"}` + "\n\n")
	r := NewReader(body)
	defer r.Close()

	ev, err := r.Next()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(ev.Data, `"id":"p1"`) {
		t.Errorf("got data %q", ev.Data)
	}

	if _, err := r.Next(); err != io.EOF {
		t.Errorf("expected io.EOF, got %v", err)
	}
}

func TestReader_MultipleEventsAndIDs(t *testing.T) {
	body := newMockBody("id: 1\ndata: first\n\nid: 2\nevent: message\ndata: second\n\n")
	r := NewReader(body)
	defer r.Close()

	ev1, err := r.Next()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ev1.Data != "first" || ev1.ID != "1" {
		t.Errorf("first event = %+v", ev1)
	}

	ev2, err := r.Next()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ev2.Data != "second" || ev2.Event != "message" {
		t.Errorf("second event = %+v", ev2)
	}
	if r.LastEventID() != "2" {
		t.Errorf("LastEventID = %q, want %q", r.LastEventID(), "2")
	}
}

func TestReader_MultiLineData(t *testing.T) {
	r := NewReader(newMockBody("data: line1\ndata: line2\n\n"))
	ev, err := r.Next()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ev.Data != "line1\nline2" {
		t.Errorf("data = %q, want %q", ev.Data, "line1\nline2")
	}
}

func TestReader_SkipsCommentsAndRetryOnlyBlocks(t *testing.T) {
	r := NewReader(newMockBody(": keepalive\n\nretry: 1500\n\ndata: hello\n\n"))
	ev, err := r.Next()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ev.Data != "hello" {
		t.Errorf("data = %q, want %q", ev.Data, "hello")
	}
	if ev.Retry != 0 {
		t.Errorf("retry from a previous block leaked: %v", ev.Retry)
	}
}

func TestReader_RetryField(t *testing.T) {
	r := NewReader(newMockBody("retry: 2500\ndata: x\n\n"))
	ev, err := r.Next()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ev.Retry != 2500*time.Millisecond {
		t.Errorf("retry = %v, want 2.5s", ev.Retry)
	}
}

func TestReader_CRLF(t *testing.T) {
	r := NewReader(newMockBody("data: crlf\r\n\r\n"))
	ev, err := r.Next()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ev.Data != "crlf" {
		t.Errorf("data = %q, want %q", ev.Data, "crlf")
	}
}

func TestReader_EmptyStream(t *testing.T) {
	r := NewReader(newMockBody(""))
	if _, err := r.Next(); err != io.EOF {
		t.Errorf("expected io.EOF, got %v", err)
	}
}

func TestReader_LastEventWithoutTrailingNewline(t *testing.T) {
	r := NewReader(newMockBody("data: tail"))
	ev, err := r.Next()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ev.Data != "tail" {
		t.Errorf("data = %q, want %q", ev.Data, "tail")
	}
}

func TestReader_LargePayload(t *testing.T) {
	big := strings.Repeat("x", 200*1024)
	r := NewReader(newMockBody("data: " + big + "\n\n"))
	ev, err := r.Next()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ev.Data) != len(big) {
		t.Errorf("data length = %d, want %d", len(ev.Data), len(big))
	}
}

func TestReader_Close(t *testing.T) {
	body := newMockBody("")
	r := NewReader(body)
	if err := r.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !body.closed {
		t.Error("expected body to be closed")
	}
}

func TestParseSSELine(t *testing.T) {
	tests := []struct {
		line, field, value string
	}{
		{"data: hello", "data", "hello"},
		{"data:hello", "data", "hello"},
		{"data:  two", "data", " two"},
		{"data", "data", ""},
		{"id: 7", "id", "7"},
	}
	for _, tc := range tests {
		f, v := parseSSELine(tc.line)
		if f != tc.field || v != tc.value {
			t.Errorf("parseSSELine(%q) = (%q, %q), want (%q, %q)", tc.line, f, v, tc.field, tc.value)
		}
	}
}
