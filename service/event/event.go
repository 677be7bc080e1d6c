package event

import "time"

// Context identifies what an event is about.
type Context struct {
	ProcessID string `json:"processId"`
	Player    string `json:"player"`
	EventType string `json:"eventType"`
}

// Event wraps a typed payload with its context and metadata.
type Event[T any] struct {
	Context   *Context               `json:"context"`
	CreatedAt time.Time              `json:"createdAt"`
	Metadata  map[string]interface{} `json:"metadata"`
	Data      T                      `json:"data"`
}

func NewEvent[T any](context *Context, data T) *Event[T] {
	return &Event[T]{
		Context:   context,
		CreatedAt: time.Now(),
		Metadata:  make(map[string]interface{}),
		Data:      data,
	}
}
