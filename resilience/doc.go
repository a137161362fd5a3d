// Package resilience provides the reconnect backoff used by the change-feed
// consumer.
//
//	b := resilience.NewBackoff(resilience.DefaultBackoffConfig())
//	delay := b.Next() // 1s, then 2s, 4s ... capped at 30s
//	b.Reset()         // back to 1s after a successful connect
package resilience
