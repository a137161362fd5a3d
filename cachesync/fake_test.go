package cachesync

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/kbukum/cachesync/resilience"
)

var errStreamEnded = fmt.Errorf("stream ended")

type fakeStream struct {
	msgs   chan []byte
	closed chan struct{}
	once   sync.Once
}

func newFakeStream() *fakeStream {
	return &fakeStream{msgs: make(chan []byte, 64), closed: make(chan struct{})}
}

func (s *fakeStream) Next(ctx context.Context) ([]byte, error) {
	select {
	case d, ok := <-s.msgs:
		if !ok {
			return nil, errStreamEnded
		}
		return d, nil
	case <-s.closed:
		return nil, errStreamEnded
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *fakeStream) Close() error {
	s.once.Do(func() { close(s.closed) })
	return nil
}

func (s *fakeStream) isClosed() bool {
	select {
	case <-s.closed:
		return true
	default:
		return false
	}
}

func (s *fakeStream) send(m Message) {
	data, _ := json.Marshal(m)
	s.msgs <- data
}

func (s *fakeStream) sendRaw(data string) {
	s.msgs <- []byte(data)
}

// end makes Next fail as if the server dropped the connection.
func (s *fakeStream) end() {
	close(s.msgs)
}

// fakeTransport answers Connect from a script of errors; once the script is
// used up every Connect opens a new fakeStream.
type fakeTransport struct {
	mu          sync.Mutex
	script      []error
	connects    []Channel
	checkStatus int
	streams     chan *fakeStream
}

func newFakeTransport(script ...error) *fakeTransport {
	return &fakeTransport{script: script, checkStatus: 200, streams: make(chan *fakeStream, 16)}
}

func (f *fakeTransport) Connect(ctx context.Context, ch Channel) (MessageStream, error) {
	f.mu.Lock()
	f.connects = append(f.connects, ch)
	if len(f.script) > 0 {
		err := f.script[0]
		f.script = f.script[1:]
		f.mu.Unlock()
		if err != nil {
			return nil, err
		}
	} else {
		f.mu.Unlock()
	}
	s := newFakeStream()
	f.streams <- s
	return s, nil
}

func (f *fakeTransport) CheckStatus(ctx context.Context, ch Channel) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.checkStatus, nil
}

func (f *fakeTransport) connectCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.connects)
}

func (f *fakeTransport) nextStream(t *testing.T) *fakeStream {
	t.Helper()
	select {
	case s := <-f.streams:
		return s
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a stream")
		return nil
	}
}

// recorder counts handler calls per entity id.
type recorder struct {
	mu      sync.Mutex
	calls   []string
	cached  map[string]bool
	hasHits int
}

func newRecorder() *recorder {
	return &recorder{cached: make(map[string]bool)}
}

func (r *recorder) record(op string) func(context.Context, string, string) error {
	return func(_ context.Context, channelID, id string) error {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.calls = append(r.calls, op+":"+channelID+"/"+id)
		if op == "hydrate" {
			r.cached[id] = true
		}
		return nil
	}
}

func (r *recorder) has(_ context.Context, _, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cached[id] {
		r.hasHits++
	}
	return r.cached[id], nil
}

func (r *recorder) hits() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.hasHits
}

func (r *recorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

func testConfig() Config {
	return Config{
		CatchUpWindow: 20 * time.Millisecond,
		ReceiveDelay:  2 * time.Millisecond,
		Backoff: resilience.BackoffConfig{
			InitialBackoff: 5 * time.Millisecond,
			MaxBackoff:     time.Second,
			BackoffFactor:  2,
		},
	}
}

func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func waitForState(t *testing.T, e *Engine, want State) {
	t.Helper()
	eventually(t, "state "+want.String(), func() bool { return e.State() == want })
}
