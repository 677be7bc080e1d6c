package model

import (
	"encoding/json"
	"time"
)

// Effect is the deferred side-effect descriptor a process produces at 1.0
// progress. It is owned by the completion resolver, applied exactly once
// through external game-state mutators, then discarded.
type Effect struct {
	ProcessID string          `json:"processId"`
	Player    string          `json:"player"`
	Kind      string          `json:"kind"`
	Target    string          `json:"target"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
}
