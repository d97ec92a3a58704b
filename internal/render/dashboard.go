package render

import (
	"fmt"

	md "github.com/nao1215/markdown"

	"dompet/internal/core"
)

// MiniListSize is how many recent transactions the dashboard shows.
const MiniListSize = 5

// Control is a secondary action offered on the dashboard.
type Control struct {
	Name    string
	Feature string // gated feature, empty for ungated controls
	Locked  bool   // shown with an upgrade prompt instead of acting
}

type WalletLine struct {
	Wallet core.Wallet
	Amount string
}

type DashboardView struct {
	Loaded    bool
	Tier      core.Tier
	Badge     string
	PlanLabel string
	Privacy   bool
	Total     string
	Wallets   []WalletLine
	Controls  []Control
	Recent    []Row
}

func (DashboardView) Name() Name { return Dashboard }

// RenderDashboard builds the header, balances and mini history.
func RenderDashboard(in Input) DashboardView {
	snap := in.State.Snapshot
	tier := snap.Tier
	if tier == "" {
		tier = core.Free
	}
	caps := core.CapabilitiesFor(tier)

	v := DashboardView{
		Loaded:    !in.State.Empty(),
		Tier:      tier,
		Badge:     caps.Badge,
		PlanLabel: core.PlanLabel(tier, snap.ExpiryDate),
		Privacy:   in.Privacy.Enabled,
		Total:     in.Privacy.Format(snap.TotalBalance(), false),
		Controls:  controlsFor(caps),
	}
	for _, w := range core.Wallets {
		v.Wallets = append(v.Wallets, WalletLine{Wallet: w, Amount: in.Privacy.Format(snap.Balance(w), false)})
	}
	recents := in.State.Recents
	if len(recents) > MiniListSize {
		recents = recents[:MiniListSize]
	}
	for _, tx := range recents {
		v.Recent = append(v.Recent, newRow(tx, in.Privacy))
	}
	return v
}

func controlsFor(caps core.Capabilities) []Control {
	controls := []Control{
		{Name: "Add manually"},
		{Name: "Add from text"},
		{Name: "Add by voice", Feature: core.FeatureVoice, Locked: !caps.CanVoice},
		{Name: "Add from receipt", Feature: core.FeatureImage, Locked: !caps.CanImage},
		{Name: "Transfer"},
		{Name: "Set budget", Feature: core.FeatureBudget, Locked: !caps.CanBudget},
		{Name: "Export ledger"},
	}
	if caps.ShowFeedback {
		controls = append(controls, Control{Name: "Send feedback"})
	}
	if caps.ShowExtend {
		controls = append(controls, Control{Name: "Extend subscription"})
	}
	if caps.ShowAdminPanel {
		controls = append(controls, Control{Name: "Admin panel"})
	}
	return controls
}

func (v DashboardView) Markdown() string {
	doc := newDoc()
	doc.H1(fmt.Sprintf("Dompet · %s", v.Badge))
	doc.PlainText(md.Italic(v.PlanLabel))
	if !v.Loaded {
		doc.PlainText(notLoaded)
		return doc.String()
	}
	if v.Privacy {
		doc.PlainText("Privacy mode is on.")
	}

	doc.H2("Balance")
	doc.PlainText(md.Bold(v.Total))
	balances := md.TableSet{
		Header:    []string{"Wallet", "Balance"},
		Alignment: []md.TableAlignment{md.AlignLeft, md.AlignRight},
	}
	for _, w := range v.Wallets {
		balances.Rows = append(balances.Rows, []string{string(w.Wallet), w.Amount})
	}
	doc.Table(balances)

	doc.H2("Recent transactions")
	if len(v.Recent) == 0 {
		doc.PlainText("No transactions yet.")
	} else {
		doc.Table(rowsTable(v.Recent))
	}

	items := make([]string, 0, len(v.Controls))
	for _, c := range v.Controls {
		if c.Locked {
			items = append(items, c.Name+" 🔒")
			continue
		}
		items = append(items, c.Name)
	}
	doc.H2("Actions")
	doc.BulletList(items...)
	return doc.String()
}
