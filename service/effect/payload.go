package effect

import "github.com/hexsim/hexsim/model"

// TransferPayload records a completed file movement.
type TransferPayload struct {
	FileRef   string `json:"fileRef"`
	Direction string `json:"direction"`
}

// AccessPayload marks a target as compromised by a cracking operation.
type AccessPayload struct {
	Method string `json:"method"`
}

// InstallPayload records software installed on the target.
type InstallPayload struct {
	Software string `json:"software"`
}

// CollectPayload credits proceeds gathered from installed software.
type CollectPayload struct {
	Amount uint64 `json:"amount"`
}

// WirePayload moves funds between accounts.
type WirePayload struct {
	Amount uint64 `json:"amount"`
}

// ForgePayload rewrites a target's access logs.
type ForgePayload struct {
	Entries int `json:"entries"`
}

func transferBuilder(p *model.Process) (interface{}, error) {
	direction := "in"
	if p.Type == model.TypeFileUpload {
		direction = "out"
	}
	return TransferPayload{FileRef: p.Target, Direction: direction}, nil
}

func accessBuilder(p *model.Process) (interface{}, error) {
	return AccessPayload{Method: string(p.Type)}, nil
}

func installBuilder(p *model.Process) (interface{}, error) {
	return InstallPayload{Software: string(p.Type)}, nil
}

func collectBuilder(*model.Process) (interface{}, error) {
	return CollectPayload{}, nil
}

func wireBuilder(*model.Process) (interface{}, error) {
	return WirePayload{}, nil
}

func forgeBuilder(*model.Process) (interface{}, error) {
	return ForgePayload{}, nil
}
