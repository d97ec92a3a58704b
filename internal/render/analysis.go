package render

import (
	"fmt"

	md "github.com/nao1215/markdown"
	"github.com/shopspring/decimal"

	"dompet/internal/core"
)

// Band classifies budget usage.
type Band string

const (
	BandNormal   Band = "normal"
	BandWarning  Band = "warning"
	BandCritical Band = "critical"
)

var (
	hundred      = decimal.NewFromInt(100)
	warningFrom  = decimal.NewFromInt(80)
	criticalFrom = hundred
)

// BandFor classifies a raw usage percentage, which may exceed 100.
func BandFor(pct decimal.Decimal) Band {
	switch {
	case pct.GreaterThanOrEqual(criticalFrom):
		return BandCritical
	case pct.GreaterThanOrEqual(warningFrom):
		return BandWarning
	default:
		return BandNormal
	}
}

// BudgetPercent is expense/limit*100, or zero when no limit is set.
func BudgetPercent(expense, limit int64) decimal.Decimal {
	if limit <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(expense).Div(decimal.NewFromInt(limit)).Mul(hundred)
}

// DisplayPercent clamps pct to [0, 100] and rounds it to a whole number.
func DisplayPercent(pct decimal.Decimal) int {
	switch {
	case pct.IsNegative():
		return 0
	case pct.GreaterThan(hundred):
		return 100
	}
	return int(pct.Round(0).IntPart())
}

// TopCategory is the label with the largest value; the first one wins
// ties. It returns "-" when there are no categories.
func TopCategory(cats []core.CategoryAmount) string {
	if len(cats) == 0 {
		return "-"
	}
	top := cats[0]
	for _, c := range cats[1:] {
		if c.Value > top.Value {
			top = c
		}
	}
	return top.Label
}

// DailyAverage divides the latest month's expense by the day of month,
// truncating.
func DailyAverage(lastMonthExpense int64, dayOfMonth int) int64 {
	if dayOfMonth < 1 {
		dayOfMonth = 1
	}
	return decimal.NewFromInt(lastMonthExpense).
		Div(decimal.NewFromInt(int64(dayOfMonth))).
		Truncate(0).
		IntPart()
}

type CategoryShare struct {
	Label  string
	Amount string
	Share  string // "37.5%"
	Color  string
}

type MonthPoint struct {
	Label   string
	Income  string
	Expense string
	Color   string
}

type AnalysisView struct {
	Loaded bool
	Locked bool

	Budget         string
	Spent          string
	RawPercent     decimal.Decimal
	DisplayPercent int
	Band           Band
	TopCategory    string
	DailyAverage   string
	Categories     []CategoryShare
	Months         []MonthPoint
}

func (AnalysisView) Name() Name { return Analysis }

// Empty reports whether there is no category breakdown to chart.
func (v AnalysisView) Empty() bool { return len(v.Categories) == 0 }

// RenderAnalysis builds the budget and chart view. Tiers without budget
// access get the locked view and nothing else is computed.
func RenderAnalysis(in Input) AnalysisView {
	snap := in.State.Snapshot
	if in.State.Empty() {
		return AnalysisView{}
	}
	if !core.CapabilitiesFor(snap.Tier).CanBudget {
		return AnalysisView{Loaded: true, Locked: true}
	}
	raw := BudgetPercent(snap.Expense, snap.BudgetLimit)
	v := AnalysisView{
		Loaded:         true,
		Budget:         in.Privacy.Format(snap.BudgetLimit, false),
		Spent:          in.Privacy.Format(snap.Expense, false),
		RawPercent:     raw,
		DisplayPercent: DisplayPercent(raw),
		Band:           BandFor(raw),
		TopCategory:    TopCategory(snap.Categories),
		DailyAverage:   in.Privacy.Format(DailyAverage(snap.Monthly.LastExpense(), in.Now.Day()), false),
	}

	var total int64
	for _, c := range snap.Categories {
		total += c.Value
	}
	for i, c := range snap.Categories {
		share := decimal.Zero
		if total > 0 {
			share = decimal.NewFromInt(c.Value).Div(decimal.NewFromInt(total)).Mul(hundred)
		}
		v.Categories = append(v.Categories, CategoryShare{
			Label:  c.Label,
			Amount: in.Privacy.Format(c.Value, false),
			Share:  share.StringFixed(1) + "%",
			Color:  Color(i),
		})
	}
	m := snap.Monthly
	for i := 0; i < m.Len(); i++ {
		v.Months = append(v.Months, MonthPoint{
			Label:   m.Labels[i],
			Income:  in.Privacy.Format(m.Income[i], false),
			Expense: in.Privacy.Format(m.Expense[i], false),
			Color:   Color(i),
		})
	}
	return v
}

func (v AnalysisView) Markdown() string {
	doc := newDoc()
	doc.H1("Analysis")
	if !v.Loaded {
		doc.PlainText(notLoaded)
		return doc.String()
	}
	if v.Locked {
		doc.PlainText(md.Bold("Budget and analysis are available on Pro plans. 🔒"))
		doc.PlainText("Upgrade to track a monthly budget and see where your money goes.")
		return doc.String()
	}

	doc.H2("Budget")
	doc.PlainText(fmt.Sprintf("%s of %s used: %s (%s)", v.Spent, v.Budget, md.Bold(fmt.Sprintf("%d%%", v.DisplayPercent)), v.Band))
	doc.PlainText(fmt.Sprintf("Top category: %s", md.Bold(v.TopCategory)))
	doc.PlainText(fmt.Sprintf("Daily average this month: %s", v.DailyAverage))

	doc.H2("Spending by category")
	if v.Empty() {
		doc.PlainText("No expenses recorded yet.")
	} else {
		t := md.TableSet{
			Header:    []string{"Category", "Amount", "Share", "Colour"},
			Alignment: []md.TableAlignment{md.AlignLeft, md.AlignRight, md.AlignRight, md.AlignLeft},
		}
		for _, c := range v.Categories {
			t.Rows = append(t.Rows, []string{c.Label, c.Amount, c.Share, c.Color})
		}
		doc.Table(t)
	}

	if len(v.Months) > 0 {
		doc.H2("Monthly")
		t := md.TableSet{
			Header:    []string{"Month", "Income", "Expense"},
			Alignment: []md.TableAlignment{md.AlignLeft, md.AlignRight, md.AlignRight},
		}
		for _, m := range v.Months {
			t.Rows = append(t.Rows, []string{m.Label, m.Income, m.Expense})
		}
		doc.Table(t)
	}
	return doc.String()
}
