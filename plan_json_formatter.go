package slr

import (
	"encoding/json"
)

// JSON formats the plan as indented JSON.
func (p *RunPlan) JSON() (string, error) {
	b, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}
