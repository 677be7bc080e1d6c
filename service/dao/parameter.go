package dao

// Parameter narrows a List call. Supported names are backend-specific; all
// process stores understand "Player" (exact match) and "State" (one of the
// supplied values).
type Parameter struct {
	Name  string
	Value interface{}
}

func NewParameter(name string, values ...string) *Parameter {
	if len(values) == 1 {
		return &Parameter{Name: name, Value: values[0]}
	}
	return &Parameter{Name: name, Value: values}
}
