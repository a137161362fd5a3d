package store

import (
	"strings"

	"github.com/kbukum/cachesync/errors"
)

// Scope names a storage partition.
type Scope string

// Fixed scopes. Channel scopes are built with ChannelScope.
const (
	Global  Scope = "global"
	Session Scope = "session"
)

const channelPrefix = "channel:"

// ChannelScope returns the scope of a single sales channel.
func ChannelScope(channelID string) Scope {
	return Scope(channelPrefix + channelID)
}

// IsChannel reports whether s is a channel scope.
func (s Scope) IsChannel() bool {
	return strings.HasPrefix(string(s), channelPrefix)
}

// ChannelID returns the channel id of a channel scope, or "" otherwise.
func (s Scope) ChannelID() string {
	if !s.IsChannel() {
		return ""
	}
	return strings.TrimPrefix(string(s), channelPrefix)
}

// Validate checks that s is global, session or a channel scope with a
// non-empty id.
func (s Scope) Validate() error {
	switch {
	case s == Global, s == Session:
		return nil
	case s.IsChannel() && s.ChannelID() != "":
		return nil
	default:
		return errors.InvalidInput("scope", "must be global, session or channel:{id}").
			WithDetail("scope", string(s))
	}
}

// ParseScope converts a scope string and validates it.
func ParseScope(raw string) (Scope, error) {
	s := Scope(raw)
	if err := s.Validate(); err != nil {
		return "", err
	}
	return s, nil
}

// NamespacedKey returns the key under which a global or session record is
// kept in the shared global key/value store.
func NamespacedKey(s Scope, key string) string {
	return string(s) + "::" + key
}

// NamespacePrefix returns the key prefix shared by every record of a global
// or session scope.
func NamespacePrefix(s Scope) string {
	return string(s) + "::"
}
