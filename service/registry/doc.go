// Package registry is the authoritative store of processes. All state
// transitions are validated against the lifecycle state machine and written
// through to persistence before taking effect in memory.
package registry
