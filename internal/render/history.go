package render

import (
	"fmt"

	"dompet/internal/core"
	"dompet/internal/history"
)

type HistoryView struct {
	Loaded bool
	Filter core.TxFilter
	Rows   []Row
}

func (HistoryView) Name() Name { return History }

func (v HistoryView) Empty() bool { return len(v.Rows) == 0 }

func RenderHistory(in Input) HistoryView {
	res := history.Filter(in.State.Recents, in.Filter)
	v := HistoryView{Loaded: !in.State.Empty(), Filter: res.Filter}
	for _, tx := range res.Transactions {
		v.Rows = append(v.Rows, newRow(tx, in.Privacy))
	}
	return v
}

func (v HistoryView) Markdown() string {
	doc := newDoc()
	doc.H1("History")
	if !v.Loaded {
		doc.PlainText(notLoaded)
		return doc.String()
	}
	doc.PlainText(fmt.Sprintf("Showing: %s", filterLabel(v.Filter)))
	if v.Empty() {
		doc.PlainText("No transactions match this filter.")
		return doc.String()
	}
	doc.Table(rowsTable(v.Rows))
	return doc.String()
}

func filterLabel(f core.TxFilter) string {
	switch f {
	case core.FilterIn:
		return "income"
	case core.FilterOut:
		return "expenses"
	default:
		return "all transactions"
	}
}
