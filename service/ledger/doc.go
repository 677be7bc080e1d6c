// Package ledger owns per-player resource accounting. It is the only state
// shared between admission, scheduling and cancellation for a given player,
// and all three mutate it exclusively inside the player's critical section.
package ledger
