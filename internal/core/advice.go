package core

import "strings"

// AdvicePhase is the state of the optimize-goals cycle.
type AdvicePhase string

const (
	PhaseIdle       AdvicePhase = "idle"
	PhaseRequesting AdvicePhase = "requesting"
	PhaseSuggested  AdvicePhase = "suggested"
	PhaseNoAction   AdvicePhase = "no_action"
	PhaseFailed     AdvicePhase = "failed"
)

// HasAction reports whether the advice carries a deposit suggestion.
func (a Advice) HasAction() bool {
	return a.Action != nil && a.Action.Amount > 0
}

// PlainLines returns the advice lines with the service's inline <b> markup
// turned into markdown bold.
func (a Advice) PlainLines() []string {
	out := make([]string, len(a.Lines))
	r := strings.NewReplacer("<b>", "**", "</b>", "**")
	for i, l := range a.Lines {
		out[i] = r.Replace(l)
	}
	return out
}
