// Package admission owns the decision to run a process now versus queue it.
// It is the only component that moves processes into the Running state and
// the only writer of the per-player wait queue.
package admission
