package render

import (
	"fmt"

	md "github.com/nao1215/markdown"

	"dompet/internal/core"
)

// Tone is the colour family of a priority badge.
type Tone string

const (
	ToneCritical Tone = "critical"
	ToneWarning  Tone = "warning"
	ToneInfo     Tone = "info"
)

func toneFor(p core.Priority) Tone {
	switch p {
	case core.P1:
		return ToneCritical
	case core.P2:
		return ToneWarning
	default:
		return ToneInfo
	}
}

type GoalRow struct {
	ID       int64
	Title    string
	Current  string
	Target   string
	Progress int
	Done     bool
	Priority core.Priority
	Tone     Tone
	Deadline string
}

type GoalsView struct {
	Loaded bool
	Goals  []GoalRow
}

func (GoalsView) Name() Name { return Goals }

func (v GoalsView) Empty() bool { return len(v.Goals) == 0 }

func RenderGoals(in Input) GoalsView {
	v := GoalsView{Loaded: !in.State.Empty()}
	for _, g := range in.State.Goals {
		v.Goals = append(v.Goals, GoalRow{
			ID:       g.ID,
			Title:    g.Title,
			Current:  in.Privacy.Format(g.Current, false),
			Target:   in.Privacy.Format(g.Target, false),
			Progress: g.Progress(),
			Done:     g.Progress() >= 100,
			Priority: g.Priority,
			Tone:     toneFor(g.Priority),
			Deadline: g.Deadline,
		})
	}
	return v
}

func (v GoalsView) Markdown() string {
	doc := newDoc()
	doc.H1("Savings goals")
	if !v.Loaded {
		doc.PlainText(notLoaded)
		return doc.String()
	}
	if v.Empty() {
		doc.PlainText("No savings goals yet.")
		return doc.String()
	}
	t := md.TableSet{
		Header:    []string{"Priority", "Goal", "Saved", "Progress", "Deadline"},
		Alignment: []md.TableAlignment{md.AlignLeft, md.AlignLeft, md.AlignRight, md.AlignRight, md.AlignLeft},
	}
	for _, g := range v.Goals {
		progress := fmt.Sprintf("%d%%", g.Progress)
		if g.Done {
			progress = md.Bold(progress)
		}
		t.Rows = append(t.Rows, []string{
			string(g.Priority),
			g.Title,
			fmt.Sprintf("%s / %s", g.Current, g.Target),
			progress,
			g.Deadline,
		})
	}
	doc.Table(t)
	return doc.String()
}
