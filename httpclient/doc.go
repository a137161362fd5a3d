// Package httpclient is the HTTP client the change-feed transport is built
// on. It resolves paths against a base URL, applies default headers and
// credentials (including query-parameter credentials for transports that
// cannot set headers), classifies error statuses into typed errors and
// exposes long-lived responses as Server-Sent Event readers.
package httpclient
