package render

import (
	"fmt"
	"time"

	md "github.com/nao1215/markdown"

	"dompet/internal/core"
)

// Suggestion is the deposit the advisory service proposes.
type Suggestion struct {
	GoalID    int64
	GoalTitle string
	Wallet    core.Wallet
	Amount    string
	// CanReveal is set while the amount is masked; the reveal control
	// unmasks it for a few seconds.
	CanReveal bool
	RevealID  string
	RevealEnd time.Time
}

type AdvisoryView struct {
	Phase core.AdvicePhase
	Lines []string
	Note  string
	Error string

	Suggestion *Suggestion
}

func (AdvisoryView) Name() Name { return Advisory }

func RenderAdvisory(in Input) AdvisoryView {
	a := in.Advisory
	phase := a.Phase
	if phase == "" {
		phase = core.PhaseIdle
	}
	v := AdvisoryView{Phase: phase, Error: a.Error}
	if phase != core.PhaseSuggested && phase != core.PhaseNoAction {
		return v
	}
	v.Lines = a.Advice.PlainLines()
	v.Note = a.Advice.CalculationNote
	if phase != core.PhaseSuggested || !a.Advice.HasAction() {
		return v
	}

	act := a.Advice.Action
	revealed := in.Privacy.Enabled && a.Reveal.Revealed
	s := &Suggestion{
		GoalID:    act.GoalID,
		GoalTitle: act.GoalTitle,
		Wallet:    act.Wallet,
		Amount:    in.Privacy.Format(act.Amount, revealed),
		CanReveal: in.Privacy.Enabled && !revealed,
		RevealID:  a.RevealID,
	}
	if revealed {
		s.RevealEnd = a.Reveal.ExpiresAt
	}
	v.Suggestion = s
	return v
}

func (v AdvisoryView) Markdown() string {
	doc := newDoc()
	doc.H1("Goal advisor")
	switch v.Phase {
	case core.PhaseIdle:
		doc.PlainText("Ask the advisor to optimise your savings goals.")
		return doc.String()
	case core.PhaseRequesting:
		doc.PlainText("Analysing…")
		return doc.String()
	case core.PhaseFailed:
		msg := v.Error
		if msg == "" {
			msg = "The advisor could not be reached."
		}
		doc.PlainText(md.Bold(msg))
		return doc.String()
	}

	if len(v.Lines) > 0 {
		doc.BulletList(v.Lines...)
	}
	if v.Note != "" {
		doc.PlainText(md.Italic(v.Note))
	}
	if v.Suggestion == nil {
		return doc.String()
	}
	s := v.Suggestion
	doc.H2("Suggested deposit")
	doc.PlainText(fmt.Sprintf("%s to %s from %s", md.Bold(s.Amount), s.GoalTitle, s.Wallet))
	if s.CanReveal {
		doc.PlainText("Amount hidden by privacy mode. Reveal it to check before saving.")
	}
	return doc.String()
}
