package slr

import (
	"fmt"
	"time"
)

// UnitPlan describes one work unit of a planned run.
type UnitPlan struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Kind        Mode   `json:"kind"`
	Records     int    `json:"records,omitempty"`
	Bytes       int    `json:"bytes"`
	MimeType    string `json:"mimeType,omitempty"`
	InputTokens int    `json:"inputTokens"` // estimated from text parts only
}

// RunPlan is the result of a dry run: what Run would send, without calling the model.
type RunPlan struct {
	Mode             Mode          `json:"mode"`
	Model            string        `json:"model"`
	Header           TableHeader   `json:"header"`
	Units            []UnitPlan    `json:"units"`
	Records          int           `json:"records"`
	TotalInputTokens int           `json:"totalInputTokens"`
	ScheduledWait    time.Duration `json:"scheduledWait"` // inter-unit delays, excluding any backoff
}

// Plan splits in and renders every request as Run would, without calling the
// model. It is useful to check batching and prompt size before spending quota.
func (x *Extractor) Plan(in Input) (*RunPlan, error) {
	units, err := x.Units(in)
	if err != nil {
		return nil, fmt.Errorf("plan: %w", err)
	}

	plan := &RunPlan{
		Mode:   in.Mode,
		Model:  x.opts.Model,
		Header: HeaderFromInstruction(in.Instruction),
		Units:  make([]UnitPlan, 0, len(units)),
	}
	instructionTokens := EstimateTokensFromText(in.Instruction)

	for _, u := range units {
		req, err := x.gateway.BuildRequest(u, in.Instruction)
		if err != nil {
			return nil, fmt.Errorf("plan %s: %w", u.Label(), err)
		}
		up := UnitPlan{
			ID:          u.ID,
			Name:        u.Label(),
			Kind:        u.Kind,
			Records:     len(u.Records),
			MimeType:    u.MimeType,
			InputTokens: instructionTokens,
		}
		for _, p := range req.Parts {
			up.Bytes += len(p.Text) + len(p.Data)
			if p.Type == "text" {
				up.InputTokens += EstimateTokensFromText(p.Text)
			}
		}
		plan.Records += up.Records
		plan.TotalInputTokens += up.InputTokens
		plan.Units = append(plan.Units, up)

		x.log.Debug("Planned unit", "unit", up.Name, "bytes", up.Bytes, "input_tokens", up.InputTokens)
	}
	if n := len(units); n > 1 {
		plan.ScheduledWait = time.Duration(n-1) * x.opts.UnitDelay
	}

	x.log.Info("Dry run completed",
		"units", len(plan.Units),
		"total_input_tokens", plan.TotalInputTokens,
		"scheduled_wait", plan.ScheduledWait)
	return plan, nil
}

// EstimateTokensFromText provides a rough token estimate from text length.
func EstimateTokensFromText(text string) int {
	// Rough heuristic: ~4 characters per token for English text
	return (len(text) + 3) / 4
}
