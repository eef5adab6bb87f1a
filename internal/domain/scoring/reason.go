package scoring

import "strings"

const fallbackReason = "Suitable match"

// Reason summarises the strongest dimensions of a candidate.
func Reason(c Components) string {
	var parts []string
	switch {
	case c.SkillMatch > 0.8:
		parts = append(parts, "Excellent skill match")
	case c.SkillMatch > 0.6:
		parts = append(parts, "Good skill match")
	}
	switch {
	case c.Workload > 0.7:
		parts = append(parts, "Low workload")
	case c.Workload > 0.4:
		parts = append(parts, "Moderate workload")
	}
	if c.Performance > 0.8 {
		parts = append(parts, "High performer")
	}
	if c.Experience > 0.7 {
		parts = append(parts, "Experienced")
	}
	if len(parts) == 0 {
		return fallbackReason
	}
	return strings.Join(parts, " | ")
}
