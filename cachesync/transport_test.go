package cachesync

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/kbukum/cachesync/errors"
	"github.com/kbukum/cachesync/httpclient"
)

func newTestTransport(t *testing.T, h http.HandlerFunc) *HTTPTransport {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	client, err := httpclient.New(httpclient.Config{BaseURL: srv.URL, ConnectTimeout: time.Second})
	if err != nil {
		t.Fatalf("httpclient.New failed: %v", err)
	}
	return NewHTTPTransport(client, Config{})
}

func TestHTTPTransport_Connect(t *testing.T) {
	tr := newTestTransport(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != DefaultStreamPath {
			t.Errorf("expected path %s, got %s", DefaultStreamPath, r.URL.Path)
		}
		if got := r.URL.Query().Get("channelId"); got != "c1" {
			t.Errorf("expected channelId=c1, got %q", got)
		}
		if got := r.URL.Query().Get(DefaultTokenParam); got != "tok" {
			t.Errorf("expected token tok, got %q", got)
		}
		if got := r.Header.Get("Accept"); got != "text/event-stream" {
			t.Errorf("expected event-stream accept header, got %q", got)
		}
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, ": comment\n\n")
		fmt.Fprint(w, "event: ping\ndata: keepalive\n\n")
		fmt.Fprint(w, "data: {\"entityType\":\"product\",\"action\":\"updated\",\"channelId\":\"c1\",\"id\":\"p1\"}\n\n")
	})

	s, err := tr.Connect(context.Background(), Channel{ID: "c1", Token: "tok"})
	if err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer s.Close()

	data, err := s.Next(context.Background())
	if err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	m, err := DecodeMessage(data)
	if err != nil {
		t.Fatalf("DecodeMessage failed: %v", err)
	}
	if m.EntityType != EntityProduct || m.ID != "p1" || m.Action != ActionUpdated {
		t.Errorf("unexpected message %+v", m)
	}

	_, err = s.Next(context.Background())
	if !errors.HasCode(err, errors.ErrCodeStreamTransient) {
		t.Errorf("expected STREAM_TRANSIENT at end of stream, got %v", err)
	}
}

func TestHTTPTransport_ConnectErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		ctype  string
		want   errors.ErrorCode
	}{
		{"unauthorized", http.StatusUnauthorized, "text/plain", errors.ErrCodeStreamAuth},
		{"server error", http.StatusBadGateway, "text/plain", errors.ErrCodeStreamTransient},
		{"forbidden is not auth", http.StatusForbidden, "text/plain", errors.ErrCodeStreamTransient},
		{"not an event stream", http.StatusOK, "application/json", errors.ErrCodeStreamTransient},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tr := newTestTransport(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", tc.ctype)
				w.WriteHeader(tc.status)
			})
			_, err := tr.Connect(context.Background(), Channel{ID: "c1", Token: "tok"})
			if !errors.HasCode(err, tc.want) {
				t.Errorf("expected %s, got %v", tc.want, err)
			}
		})
	}
}

func TestHTTPTransport_CheckStatus(t *testing.T) {
	tr := newTestTransport(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get(DefaultTokenParam) != "good" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	tests := []struct {
		token string
		want  int
	}{
		{"good", http.StatusOK},
		{"bad", http.StatusUnauthorized},
	}
	for _, tc := range tests {
		status, err := tr.CheckStatus(context.Background(), Channel{ID: "c1", Token: tc.token})
		if err != nil {
			t.Fatalf("CheckStatus failed: %v", err)
		}
		if status != tc.want {
			t.Errorf("token %s: expected %d, got %d", tc.token, tc.want, status)
		}
	}
}

func TestEngine_OverHTTP(t *testing.T) {
	var mu sync.Mutex
	connects := 0
	tr := newTestTransport(t, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		connects++
		mu.Unlock()
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"entityType\":\"customer\",\"action\":\"deleted\",\"channelId\":\"c1\",\"id\":\"u1\"}\n\n")
		fmt.Fprint(w, "data: {\"entityType\":\"customer\",\"action\":\"updated\",\"channelId\":\"c1\",\"id\":\"u1\"}\n\n")
		w.(http.Flusher).Flush()
		<-r.Context().Done()
	})

	rec := newRecorder()
	e := NewEngine(testConfig(), tr, nil, nil)
	defer e.Disconnect()
	e.Register(Handler{EntityType: EntityCustomer, HydrateOne: rec.record("hydrate"), InvalidateOne: rec.record("invalidate")})

	e.SetChannel(Channel{ID: "c1", Token: "tok"})
	waitForState(t, e, StateLive)
	eventually(t, "hydrate", func() bool { return len(rec.snapshot()) == 1 })

	if calls := rec.snapshot(); calls[0] != "hydrate:c1/u1" {
		t.Errorf("expected the later update to win, got %v", calls)
	}
	mu.Lock()
	defer mu.Unlock()
	if connects != 1 {
		t.Errorf("expected one connection, got %d", connects)
	}
}

func TestEngine_OverHTTPRejectedToken(t *testing.T) {
	tr := newTestTransport(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	e := NewEngine(testConfig(), tr, nil, nil)
	defer e.Disconnect()

	e.SetChannel(Channel{ID: "c1", Token: "expired"})
	eventually(t, "auth failure", func() bool {
		return e.Health(context.Background()).Message == "channel token rejected"
	})
	if got := e.State(); got != StateDisconnected {
		t.Errorf("expected disconnected, got %s", got)
	}
}
