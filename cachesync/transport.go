package cachesync

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"

	"github.com/kbukum/cachesync/errors"
	"github.com/kbukum/cachesync/httpclient"
	"github.com/kbukum/cachesync/httpclient/sse"
)

// Channel is the sales channel the engine follows and the token that
// authorizes its change feed.
type Channel struct {
	ID    string
	Token string
}

// MessageStream yields the data of successive change events.
type MessageStream interface {
	// Next blocks until the next event. Closing the stream unblocks it.
	Next(ctx context.Context) ([]byte, error)
	Close() error
}

// Transport opens change feeds.
type Transport interface {
	// Connect opens the change feed of ch. A rejected token is reported as a
	// STREAM_AUTH error.
	Connect(ctx context.Context, ch Channel) (MessageStream, error)

	// CheckStatus requests the change feed URL once and returns the HTTP status,
	// so a failed stream can be told apart from a rejected token.
	CheckStatus(ctx context.Context, ch Channel) (int, error)
}

// HTTPTransport reads the change feed as Server-Sent Events.
type HTTPTransport struct {
	client     *httpclient.Client
	streamPath string
	tokenParam string
}

var _ Transport = (*HTTPTransport)(nil)

// NewHTTPTransport creates a transport on client, which carries the API base
// URL.
func NewHTTPTransport(client *httpclient.Client, cfg Config) *HTTPTransport {
	cfg.ApplyDefaults()
	return &HTTPTransport{client: client, streamPath: cfg.StreamPath, tokenParam: cfg.TokenParam}
}

func (t *HTTPTransport) request(ch Channel) httpclient.Request {
	return httpclient.Request{
		Path:    t.streamPath,
		Query:   map[string]string{"channelId": ch.ID},
		Headers: map[string]string{"Accept": "text/event-stream"},
		Auth:    httpclient.APIKeyAuthQuery(ch.Token, t.tokenParam),
	}
}

// Connect opens the stream of ch.
func (t *HTTPTransport) Connect(ctx context.Context, ch Channel) (MessageStream, error) {
	resp, err := t.client.DoStream(ctx, t.request(ch))
	if err != nil {
		if httpclient.IsUnauthorized(err) {
			return nil, errors.StreamAuth(ch.ID).WithCause(err)
		}
		return nil, errors.StreamTransient(ch.ID, err)
	}
	if resp.SSE == nil {
		_ = resp.Close()
		return nil, errors.StreamTransient(ch.ID, fmt.Errorf("unexpected content type %q", resp.Headers["Content-Type"]))
	}
	return &sseStream{resp: resp, channelID: ch.ID}, nil
}

// CheckStatus returns the status the stream URL answers with.
func (t *HTTPTransport) CheckStatus(ctx context.Context, ch Channel) (int, error) {
	return t.client.Status(ctx, t.request(ch))
}

type sseStream struct {
	resp      *httpclient.StreamResponse
	channelID string
}

// Next skips events without data, such as keep-alives.
func (s *sseStream) Next(ctx context.Context) ([]byte, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		ev, err := s.resp.SSE.Next()
		if stderrors.Is(err, io.EOF) {
			return nil, errors.StreamTransient(s.channelID, io.ErrUnexpectedEOF).WithDetail("reason", "stream closed by server")
		}
		if err != nil {
			return nil, errors.StreamTransient(s.channelID, err)
		}
		if isKeepAlive(ev) {
			continue
		}
		return []byte(ev.Data), nil
	}
}

func isKeepAlive(ev *sse.Event) bool {
	return ev.Data == "" || ev.Event == "ping"
}

func (s *sseStream) Close() error {
	return s.resp.Close()
}
