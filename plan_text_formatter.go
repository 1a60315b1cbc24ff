package slr

import (
	"fmt"
	"strings"
)

// Text formats the plan as an ASCII tree.
func (p *RunPlan) Text() string {
	var sb strings.Builder
	sb.WriteString("Extraction Plan (estimated)\n")
	fmt.Fprintf(&sb, "Run (mode=%s, model=%s, units=%d, input_tokens=%d, wait=%s)\n",
		p.Mode, p.Model, len(p.Units), p.TotalInputTokens, p.ScheduledWait)
	fmt.Fprintf(&sb, "  ├─ Header %s\n", p.Header.Header)

	for i, u := range p.Units {
		connector := "├─ "
		if i == len(p.Units)-1 {
			connector = "└─ "
		}
		var details []string
		if u.Kind == ModeText {
			details = append(details, fmt.Sprintf("records=%d", u.Records))
		} else {
			details = append(details, "mime="+u.MimeType)
		}
		details = append(details, fmt.Sprintf("bytes=%d", u.Bytes), fmt.Sprintf("input_tokens=%d", u.InputTokens))
		fmt.Fprintf(&sb, "  %sModelCall %q (%s)\n", connector, u.Name, strings.Join(details, ", "))
	}
	return sb.String()
}
