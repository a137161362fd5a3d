package cachesync

// catchUpBuffer collects messages while catching up. A later message for the
// same entity replaces the earlier one but keeps its position.
type catchUpBuffer struct {
	order  []messageKey
	latest map[messageKey]Message
}

func newCatchUpBuffer() *catchUpBuffer {
	return &catchUpBuffer{latest: make(map[messageKey]Message)}
}

func (b *catchUpBuffer) add(m Message) {
	k := m.key()
	if _, seen := b.latest[k]; !seen {
		b.order = append(b.order, k)
	}
	b.latest[k] = m
}

func (b *catchUpBuffer) len() int {
	return len(b.order)
}

// drain returns the surviving messages and empties the buffer.
func (b *catchUpBuffer) drain() []Message {
	out := make([]Message, 0, len(b.order))
	for _, k := range b.order {
		out = append(out, b.latest[k])
	}
	b.order = nil
	b.latest = make(map[messageKey]Message)
	return out
}
