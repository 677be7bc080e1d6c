// Package balance supplies externally configured game-balance data: the
// demand table per process type and the pure duration formula. The engine
// treats both as injected configuration and contains no balance constants
// of its own.
package balance
