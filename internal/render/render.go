// Package render turns the cached snapshot into view models and their
// markdown form. Every function here is pure: identical inputs produce
// byte-identical output.
package render

import (
	"bytes"
	"time"

	md "github.com/nao1215/markdown"

	"dompet/internal/cache"
	"dompet/internal/core"
	"dompet/internal/privacy"
)

// Name identifies a view.
type Name string

const (
	Dashboard Name = "dashboard"
	Analysis  Name = "analysis"
	History   Name = "history"
	Goals     Name = "goals"
	Advisory  Name = "advisory"
)

// Names lists every view in display order.
var Names = []Name{Dashboard, Analysis, History, Goals, Advisory}

func (n Name) Valid() bool {
	for _, v := range Names {
		if v == n {
			return true
		}
	}
	return false
}

// Palette colours chart series; entry i uses Palette[i%len(Palette)].
var Palette = []string{"#a855f7", "#3b82f6", "#ef4444", "#f59e0b", "#10b981", "#6366f1", "#ec4899"}

// Color returns the palette colour for index i.
func Color(i int) string {
	if i < 0 {
		i = -i
	}
	return Palette[i%len(Palette)]
}

// Input is everything a render depends on.
type Input struct {
	State    cache.State
	Privacy  privacy.State
	Now      time.Time
	Filter   core.TxFilter
	Advisory AdvisoryInput
}

// AdvisoryInput is the goal controller's state as seen by the advisory view.
type AdvisoryInput struct {
	Phase    core.AdvicePhase
	Advice   core.Advice
	Error    string
	RevealID string
	Reveal   privacy.RevealState
}

// View is a rendered view model.
type View interface {
	Name() Name
	Markdown() string
}

// Views holds one render of every view, all from the same Input.
type Views struct {
	Dashboard DashboardView
	Analysis  AnalysisView
	History   HistoryView
	Goals     GoalsView
	Advisory  AdvisoryView
}

// All renders every view from in.
func All(in Input) Views {
	return Views{
		Dashboard: RenderDashboard(in),
		Analysis:  RenderAnalysis(in),
		History:   RenderHistory(in),
		Goals:     RenderGoals(in),
		Advisory:  RenderAdvisory(in),
	}
}

// Get returns the view called n.
func (v Views) Get(n Name) (View, bool) {
	switch n {
	case Dashboard:
		return v.Dashboard, true
	case Analysis:
		return v.Analysis, true
	case History:
		return v.History, true
	case Goals:
		return v.Goals, true
	case Advisory:
		return v.Advisory, true
	}
	return nil, false
}

// Row is one transaction line, shared by the dashboard mini list and the
// history view.
type Row struct {
	ID          int64
	Type        core.TxType
	Amount      string
	Description string
	Category    string
	Wallet      core.Wallet
	When        string
}

func newRow(tx core.Transaction, p privacy.State) Row {
	sign := "-"
	if tx.Type == core.In {
		sign = "+"
	}
	return Row{
		ID:          tx.ID,
		Type:        tx.Type,
		Amount:      sign + p.Format(tx.Amount, false),
		Description: tx.Description,
		Category:    tx.Category,
		Wallet:      tx.Wallet,
		When:        tx.When,
	}
}

func rowsTable(rows []Row) md.TableSet {
	t := md.TableSet{
		Header:    []string{"When", "Description", "Category", "Wallet", "Amount"},
		Alignment: []md.TableAlignment{md.AlignLeft, md.AlignLeft, md.AlignLeft, md.AlignLeft, md.AlignRight},
		Rows:      make([][]string, 0, len(rows)),
	}
	for _, r := range rows {
		t.Rows = append(t.Rows, []string{r.When, r.Description, r.Category, string(r.Wallet), r.Amount})
	}
	return t
}

func newDoc() *md.Markdown {
	var buf bytes.Buffer
	return md.NewMarkdown(&buf)
}

const notLoaded = "Data has not been loaded yet."
