package cachesync

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/kbukum/cachesync/component"
	"github.com/kbukum/cachesync/errors"
	"github.com/kbukum/cachesync/httpclient"
	"github.com/kbukum/cachesync/logger"
	"github.com/kbukum/cachesync/resilience"
)

// Engine follows the change feed of one channel at a time and routes its
// messages to registered handlers.
type Engine struct {
	cfg       Config
	transport Transport
	registry  *Registry
	backoff   *resilience.Backoff
	log       *logger.Logger

	// switchMu serializes SetChannel and Disconnect.
	switchMu sync.Mutex

	mu         sync.Mutex
	state      State
	channel    Channel
	authFailed bool
	cancel     context.CancelFunc
	done       chan struct{}
	listeners  []listener
	nextID     int

	received   atomic.Uint64
	dropped    atomic.Uint64
	dispatched atomic.Uint64
	reconnects atomic.Uint64

	// onSchedule observes every reconnect delay.
	onSchedule func(time.Duration)
}

type listener struct {
	id int
	fn func(State)
}

var _ component.Component = (*Engine)(nil)

// NewEngine creates a disconnected engine. A nil registry starts empty.
func NewEngine(cfg Config, transport Transport, registry *Registry, log *logger.Logger) *Engine {
	cfg.ApplyDefaults()
	if registry == nil {
		registry = NewRegistry()
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Engine{
		cfg:       cfg,
		transport: transport,
		registry:  registry,
		backoff:   resilience.NewBackoff(cfg.Backoff),
		log:       log.WithComponent("cachesync"),
	}
}

// Registry returns the handler registry.
func (e *Engine) Registry() *Registry {
	return e.registry
}

// Register adds a handler to the registry.
func (e *Engine) Register(h Handler) error {
	return e.registry.Register(h)
}

// State returns the current connection state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// ActiveChannelID returns the channel being followed, or "" when
// disconnected by the caller.
func (e *Engine) ActiveChannelID(_ context.Context) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.channel.ID, nil
}

// Stats returns a snapshot of the engine counters.
func (e *Engine) Stats() Stats {
	return Stats{
		Received:   e.received.Load(),
		Dropped:    e.dropped.Load(),
		Dispatched: e.dispatched.Load(),
		Reconnects: e.reconnects.Load(),
	}
}

// OnStateChange calls fn after every state transition. The returned func
// removes fn.
func (e *Engine) OnStateChange(fn func(State)) func() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.nextID++
	id := e.nextID
	e.listeners = append(e.listeners, listener{id: id, fn: fn})
	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		for i, l := range e.listeners {
			if l.id == id {
				e.listeners = append(e.listeners[:i], e.listeners[i+1:]...)
				return
			}
		}
	}
}

// setState moves to s unless ctx, the session that asks for it, has been
// cancelled. A nil ctx always applies.
func (e *Engine) setState(ctx context.Context, s State) {
	e.mu.Lock()
	if (ctx != nil && ctx.Err() != nil) || e.state == s {
		e.mu.Unlock()
		return
	}
	prev := e.state
	e.state = s
	ls := make([]listener, len(e.listeners))
	copy(ls, e.listeners)
	channelID := e.channel.ID
	e.mu.Unlock()

	e.log.Info("sync state changed", logger.Fields(
		logger.FieldState, s.String(), "previous", prev.String(), logger.FieldChannelID, channelID))
	for _, l := range ls {
		l.fn(s)
	}
}

// SetChannel drops the current stream and follows ch instead. An empty
// channel id leaves the engine disconnected.
func (e *Engine) SetChannel(ch Channel) {
	e.switchMu.Lock()
	defer e.switchMu.Unlock()

	e.stopSession()
	if ch.ID == "" {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	e.mu.Lock()
	e.channel = ch
	e.authFailed = false
	e.cancel = cancel
	e.done = done
	e.mu.Unlock()

	go func() {
		defer close(done)
		e.run(ctx, ch)
	}()
}

// Disconnect closes the stream and cancels any pending reconnect and
// catch-up. Handler calls already running complete.
func (e *Engine) Disconnect() {
	e.switchMu.Lock()
	defer e.switchMu.Unlock()
	e.stopSession()
}

func (e *Engine) stopSession() {
	e.mu.Lock()
	cancel, done := e.cancel, e.done
	e.cancel, e.done = nil, nil
	e.channel = Channel{}
	e.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	e.backoff.Reset()
	e.setState(nil, StateDisconnected)
}

// Follow switches channels as values arrive on channels until ctx ends,
// then disconnects. Repeated identical values are ignored. When channels is
// closed Follow returns and the current stream stays up.
func (e *Engine) Follow(ctx context.Context, channels <-chan Channel) error {
	var last Channel
	first := true
	for {
		select {
		case <-ctx.Done():
			e.Disconnect()
			return ctx.Err()
		case ch, ok := <-channels:
			if !ok {
				return nil
			}
			if !first && ch == last {
				continue
			}
			first, last = false, ch
			e.SetChannel(ch)
		}
	}
}

// run connects and reconnects until ctx ends or the token is rejected.
func (e *Engine) run(ctx context.Context, ch Channel) {
	for {
		log := e.log.WithFields(logger.Fields(logger.FieldChannelID, ch.ID, logger.FieldConnID, uuid.NewString()))
		e.setState(ctx, StateConnecting)

		stream, err := e.transport.Connect(ctx, ch)
		if err == nil {
			e.backoff.Reset()
			e.setState(ctx, StateCatchingUp)
			log.Info("change feed connected")
			err = e.consume(ctx, stream, log)
			_ = stream.Close()
		}
		if ctx.Err() != nil {
			return
		}

		if e.isAuthFailure(ctx, ch, err) {
			log.Warn("change feed rejected the channel token", logger.ErrorFields("connect", err))
			e.mu.Lock()
			e.authFailed = true
			e.mu.Unlock()
			e.setState(ctx, StateDisconnected)
			return
		}
		if !e.waitReconnect(ctx, err, log) {
			return
		}
	}
}

// isAuthFailure reports whether err, or a status check of the stream URL, shows a
// rejected token.
func (e *Engine) isAuthFailure(ctx context.Context, ch Channel, err error) bool {
	if errors.IsStreamAuth(err) || httpclient.IsUnauthorized(err) {
		return true
	}
	if httpclient.StatusOf(err) != 0 {
		return false
	}
	status, perr := e.transport.CheckStatus(ctx, ch)
	return perr == nil && status == http.StatusUnauthorized
}

func (e *Engine) waitReconnect(ctx context.Context, cause error, log *logger.Logger) bool {
	e.setState(ctx, StateReconnecting)
	d := e.backoff.Next()
	e.reconnects.Add(1)

	fields := logger.Fields(logger.FieldDelay, d.Milliseconds())
	if cause != nil {
		fields[logger.FieldError] = cause.Error()
	}
	if code, ok := httpclient.CodeOf(cause); ok {
		fields["failure"] = code.String()
	}
	log.Warn("change feed failed, reconnecting", fields)
	if e.onSchedule != nil {
		e.onSchedule(d)
	}

	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

type delayedMessage struct {
	msg Message
	due time.Time
}

// consume reads stream until it fails or ctx ends. Messages that arrive
// within CatchUpWindow of connecting are held for ReceiveDelay, then
// buffered. Later messages queue behind the buffer, which is flushed once the
// window has elapsed and nothing is still held; then the engine is live.
func (e *Engine) consume(ctx context.Context, stream MessageStream, log *logger.Logger) error {
	events := make(chan []byte)
	errc := make(chan error, 1)
	go func() {
		for {
			data, err := stream.Next(ctx)
			if err != nil {
				errc <- err
				return
			}
			select {
			case events <- data:
			case <-ctx.Done():
				return
			}
		}
	}()

	windowEnd := time.Now().Add(e.cfg.CatchUpWindow)
	window := time.NewTimer(e.cfg.CatchUpWindow)
	defer window.Stop()
	delay := time.NewTimer(e.cfg.ReceiveDelay)
	delay.Stop()
	defer delay.Stop()

	var (
		delayC        <-chan time.Time
		pending       []delayedMessage
		backlog       []Message
		buf           = newCatchUpBuffer()
		catching      = true
		windowElapsed bool
	)

	armDelay := func() {
		if len(pending) == 0 {
			delayC = nil
			return
		}
		delay.Reset(max(time.Until(pending[0].due), 0))
		delayC = delay.C
	}
	goLive := func() {
		if !catching || !windowElapsed || len(pending) > 0 {
			return
		}
		catching = false
		msgs := buf.drain()
		log.Info("catch-up complete", logger.Fields(logger.FieldCount, len(msgs)))
		for _, m := range msgs {
			e.dispatch(ctx, m, log)
		}
		for _, m := range backlog {
			e.dispatch(ctx, m, log)
		}
		backlog = nil
		e.setState(ctx, StateLive)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case err := <-errc:
			return err

		case data := <-events:
			e.received.Add(1)
			msg, err := DecodeMessage(data)
			if err != nil {
				e.dropped.Add(1)
				log.Debug("dropping malformed message", logger.ErrorFields("decode", err))
				continue
			}
			if !catching {
				e.dispatch(ctx, msg, log)
				continue
			}
			if !time.Now().Before(windowEnd) {
				backlog = append(backlog, msg)
				continue
			}
			pending = append(pending, delayedMessage{msg: msg, due: time.Now().Add(e.cfg.ReceiveDelay)})
			if delayC == nil {
				armDelay()
			}

		case <-delayC:
			now := time.Now()
			for len(pending) > 0 && !pending[0].due.After(now) {
				buf.add(pending[0].msg)
				pending = pending[1:]
			}
			armDelay()
			goLive()

		case <-window.C:
			windowElapsed = true
			goLive()
		}
	}
}

// dispatch routes m to its handler. Handlers run with a context detached
// from the session, so a channel switch does not abort them.
func (e *Engine) dispatch(ctx context.Context, m Message, log *logger.Logger) {
	fields := logger.Fields(
		logger.FieldEntityType, string(m.EntityType),
		logger.FieldEntityID, m.ID,
		logger.FieldAction, string(m.Action),
	)
	drop := func(reason string) {
		e.dropped.Add(1)
		fields["reason"] = reason
		log.Debug("dropping change message", fields)
	}

	e.mu.Lock()
	active := e.channel.ID
	e.mu.Unlock()

	if m.ChannelID != active {
		drop("channel mismatch")
		return
	}
	if m.ID == "" {
		drop("missing id")
		return
	}
	h, ok := e.registry.Lookup(m.EntityType)
	if !ok {
		drop("no handler")
		return
	}

	hctx := context.WithoutCancel(ctx)
	switch m.Action {
	case ActionDeleted:
		if h.InvalidateOne == nil {
			drop("no invalidate handler")
			return
		}
		e.call(hctx, "invalidate", h.InvalidateOne, m, log)

	case ActionCreated, ActionUpdated:
		if h.HydrateOne == nil {
			e.call(hctx, "invalidate", h.InvalidateOne, m, log)
			return
		}
		// Has only guards hydration.
		if h.Has != nil {
			has, err := h.Has(hctx, m.ChannelID, m.ID)
			if err != nil {
				log.Warn("cache lookup failed", logger.ErrorFields("has", err))
			} else if has {
				log.Debug("entity already cached", fields)
				return
			}
		}
		e.call(hctx, "hydrate", h.HydrateOne, m, log)

	default:
		drop("unknown action")
	}
}

func (e *Engine) call(ctx context.Context, op string, fn func(context.Context, string, string) error, m Message, log *logger.Logger) {
	e.dispatched.Add(1)
	if err := fn(ctx, m.ChannelID, m.ID); err != nil {
		fields := logger.ErrorFields(op, err)
		fields[logger.FieldEntityType] = string(m.EntityType)
		fields[logger.FieldEntityID] = m.ID
		log.Warn("sync handler failed", fields)
	}
}

// Name returns the component name.
func (e *Engine) Name() string { return "cachesync" }

// Start is a no-op; the engine connects when a channel is set.
func (e *Engine) Start(_ context.Context) error {
	e.log.Info("sync engine ready", logger.Fields("stream_path", e.cfg.StreamPath))
	return nil
}

// Stop disconnects.
func (e *Engine) Stop(_ context.Context) error {
	e.Disconnect()
	return nil
}

// Health maps the connection state to component health.
func (e *Engine) Health(_ context.Context) component.Health {
	e.mu.Lock()
	state, authFailed := e.state, e.authFailed
	e.mu.Unlock()

	h := component.Health{Name: e.Name(), Status: component.StatusHealthy, Message: state.String()}
	switch {
	case state == StateReconnecting:
		h.Status = component.StatusDegraded
	case state == StateDisconnected && authFailed:
		h.Status = component.StatusUnhealthy
		h.Message = "channel token rejected"
	}
	return h
}

// Describe returns summary info for startup logging.
func (e *Engine) Describe() component.Description {
	return component.Description{
		Name:    "Cache sync",
		Type:    "sync",
		Details: "path=" + e.cfg.StreamPath + " window=" + e.cfg.CatchUpWindow.String() + " delay=" + e.cfg.ReceiveDelay.String(),
	}
}
