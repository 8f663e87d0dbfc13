// Package middleware provides the gin middleware installed by the envelope
// server: request IDs, access logging, panic recovery, tracing, request
// metrics and body size limits.
package middleware
