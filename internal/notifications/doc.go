// Package notifications delivers operational events via ntfy push.
//
// The default implementation publishes to the topic configured in
// config.toml and gracefully degrades to a no-op when no topic is set.
// Per-category switches (scans, maintenance, errors) silence whole event
// families, and identical error alerts are suppressed for the configured
// dedup window so a failing store does not flood the topic.
//
// Extend this package if you need alternative transports; daemon loops
// and CLI commands depend only on the simple Service interface.
package notifications
