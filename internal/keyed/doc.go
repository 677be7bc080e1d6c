// Package keyed implements per-key mutual exclusion. It backs the engine's
// per-player critical sections and lives under `internal` because callers
// must not rely on its exact locking granularity.
package keyed
