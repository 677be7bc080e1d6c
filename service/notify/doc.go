// Package notify implements the downstream notification sink: a websocket
// hub broadcasting engine events to UI subscribers with no delivery
// guarantee.
package notify
