// Package model defines the engine's core data types: the process and its
// lifecycle state machine, the four resource dimensions, completion effect
// descriptors and the error taxonomy surfaced to callers.
package model
