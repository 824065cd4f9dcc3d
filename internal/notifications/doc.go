// Package notifications delivers backup lifecycle events to an ntfy
// topic. Without a configured topic every call is a no-op.
package notifications
