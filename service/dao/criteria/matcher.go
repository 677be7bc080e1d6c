package criteria

import (
	"github.com/hexsim/hexsim/model"
	"github.com/hexsim/hexsim/service/dao"
)

// MatchProcess applies List parameters to a process. Unknown parameter names
// are ignored so that backends stay forward compatible.
func MatchProcess(p *model.Process, parameters []*dao.Parameter) bool {
	for _, parameter := range parameters {
		switch parameter.Name {
		case "Player":
			if actual, ok := parameter.Value.(string); ok && p.Player != actual {
				return false
			}
		case "State":
			if !matchState(p.State, parameter.Value) {
				return false
			}
		}
	}
	return true
}

func matchState(state model.State, value interface{}) bool {
	switch actual := value.(type) {
	case string:
		return string(state) == actual
	case []string:
		for _, s := range actual {
			if string(state) == s {
				return true
			}
		}
		return false
	}
	return true
}
