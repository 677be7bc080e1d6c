package event

import "github.com/hexsim/hexsim/model"

// Event type names used in Context.EventType.
const (
	TypeProcessUpdate    = "process_update"
	TypeProcessCompleted = "process_completed"
)

// ProcessUpdate is published on every observable process change: admission,
// queueing, promotion, progress advancement, pause/resume, cancellation and
// failure.
type ProcessUpdate struct {
	ProcessID string      `json:"processId"`
	Player    string      `json:"player"`
	State     model.State `json:"state"`
	Progress  float64     `json:"progress"`
}

// ProcessCompleted is published once per process whose completion effect was
// applied.
type ProcessCompleted struct {
	ProcessID string `json:"processId"`
	Player    string `json:"player"`
}
