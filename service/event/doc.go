// Package event provides the engine's fire-and-forget notification fan-out:
// typed publishers over pluggable message queues, with an untyped mirror
// stream for consumers that want everything.
package event
