package render

import (
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"dompet/internal/cache"
	"dompet/internal/core"
	"dompet/internal/privacy"
)

var now = time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)

func loadedState(tier core.Tier) cache.State {
	return cache.State{
		Seq: 3,
		Snapshot: core.Snapshot{
			Loaded: true,
			Tier:   tier,
			Balances: map[core.Wallet]int64{
				core.Cash:    100000,
				core.EWallet: 50000,
				core.Bank:    0,
			},
			ExpiryDate:  "31 Dec 2026",
			BudgetLimit: 500000,
			Expense:     450000,
			Categories: []core.CategoryAmount{
				{Label: "Makanan", Value: 300000},
				{Label: "Transport", Value: 150000},
			},
			Monthly: core.MonthlySeries{
				Labels:  []string{"2026-09", "2026-10"},
				Income:  []int64{0, 1000000},
				Expense: []int64{0, 320000},
			},
		},
		Recents: []core.Transaction{
			{ID: 7, Type: core.Out, Amount: 25000, Description: "Kopi", Category: "Makanan", Wallet: core.Cash, When: "16 Oct 09:00"},
			{ID: 6, Type: core.In, Amount: 1000000, Description: "Gaji", Category: "Pemasukan", Wallet: core.Bank, When: "01 Oct 08:00"},
		},
		Goals: []core.Goal{
			{ID: 3, Title: "Laptop", Target: 5000000, Current: 1250000, Deadline: "2026-12-31", Priority: core.P1},
		},
	}
}

func input(tier core.Tier, masked bool) Input {
	return Input{
		State:   loadedState(tier),
		Privacy: privacy.State{Enabled: masked},
		Now:     now,
		Filter:  core.FilterAll,
	}
}

var rawAmount = regexp.MustCompile(`Rp \d`)

func allMarkdown(v Views) string {
	var b strings.Builder
	for _, n := range Names {
		view, _ := v.Get(n)
		b.WriteString(view.Markdown())
	}
	return b.String()
}

func TestBudgetWarningScenario(t *testing.T) {
	v := RenderAnalysis(input(core.Pro, false))
	if v.Locked {
		t.Fatal("pro analysis should not be locked")
	}
	if !v.RawPercent.Equal(decimal.NewFromInt(90)) || v.DisplayPercent != 90 || v.Band != BandWarning {
		t.Fatalf("percent=%s display=%d band=%s", v.RawPercent, v.DisplayPercent, v.Band)
	}
	if v.TopCategory != "Makanan" {
		t.Fatalf("top category = %q", v.TopCategory)
	}
	// 320000 / 16
	if v.DailyAverage != "Rp 20.000" {
		t.Fatalf("daily average = %q", v.DailyAverage)
	}
}

func TestBudgetPercentAndBands(t *testing.T) {
	cases := []struct {
		expense, limit int64
		display        int
		band           Band
	}{
		{0, 0, 0, BandNormal},
		{450000, 0, 0, BandNormal},
		{399999, 500000, 80, BandNormal},
		{400000, 500000, 80, BandWarning},
		{495000, 500000, 99, BandWarning},
		{500000, 500000, 100, BandCritical},
		{750000, 500000, 100, BandCritical},
	}
	for _, tc := range cases {
		raw := BudgetPercent(tc.expense, tc.limit)
		if got := DisplayPercent(raw); got != tc.display {
			t.Errorf("DisplayPercent(%d/%d) = %d, want %d", tc.expense, tc.limit, got, tc.display)
		}
		if got := BandFor(raw); got != tc.band {
			t.Errorf("BandFor(%d/%d) = %s, want %s", tc.expense, tc.limit, got, tc.band)
		}
	}
	if !BudgetPercent(750000, 500000).Equal(decimal.NewFromInt(150)) {
		t.Error("raw ratio must not be clamped")
	}
}

func TestTopCategoryFirstMaxWins(t *testing.T) {
	cats := []core.CategoryAmount{{Label: "A", Value: 5}, {Label: "B", Value: 9}, {Label: "C", Value: 9}}
	if got := TopCategory(cats); got != "B" {
		t.Fatalf("TopCategory = %q, want B", got)
	}
	if got := TopCategory(nil); got != "-" {
		t.Fatalf("TopCategory(nil) = %q", got)
	}
}

func TestDailyAverage(t *testing.T) {
	cases := []struct {
		expense int64
		day     int
		want    int64
	}{
		{100, 3, 33},
		{320000, 16, 20000},
		{5000, 0, 5000},
		{0, 10, 0},
	}
	for _, tc := range cases {
		if got := DailyAverage(tc.expense, tc.day); got != tc.want {
			t.Errorf("DailyAverage(%d, %d) = %d, want %d", tc.expense, tc.day, got, tc.want)
		}
	}
}

func TestPaletteCycles(t *testing.T) {
	if Color(0) != "#a855f7" || Color(7) != "#a855f7" || Color(8) != "#3b82f6" || Color(6) != "#ec4899" {
		t.Fatal("palette does not cycle modulo 7")
	}
	v := RenderAnalysis(input(core.VIP, false))
	if v.Categories[1].Color != Palette[1] || v.Months[1].Color != Palette[1] {
		t.Fatalf("series colours = %+v %+v", v.Categories, v.Months)
	}
	if v.Categories[0].Share != "66.7%" {
		t.Fatalf("share = %s", v.Categories[0].Share)
	}
}

func TestAnalysisLockedAndEmpty(t *testing.T) {
	free := RenderAnalysis(input(core.Free, false))
	if !free.Locked || free.Budget != "" || !strings.Contains(free.Markdown(), "Pro plans") {
		t.Fatalf("free analysis should be the locked upsell: %+v", free)
	}

	in := input(core.Admin, false)
	in.State.Snapshot.Categories = nil
	v := RenderAnalysis(in)
	if !v.Empty() || !strings.Contains(v.Markdown(), "No expenses recorded yet.") || v.TopCategory != "-" {
		t.Fatalf("expected explicit empty state: %+v", v)
	}
}

func TestDashboardCapabilities(t *testing.T) {
	cases := []struct {
		tier     core.Tier
		badge    string
		plan     string
		controls []string
		absent   []string
	}{
		{core.Admin, "Administrator", "God Mode", []string{"Admin panel"}, []string{"Send feedback", "Extend subscription"}},
		{core.VIP, "VIP", "Lifetime", nil, []string{"Send feedback", "Extend subscription", "Admin panel"}},
		{core.Pro, "Pro", "Exp: 31 Dec 2026", []string{"Send feedback", "Extend subscription"}, []string{"Admin panel"}},
		{core.Free, "Free", "Basic", []string{"Send feedback"}, []string{"Extend subscription", "Admin panel"}},
	}
	for _, tc := range cases {
		t.Run(string(tc.tier), func(t *testing.T) {
			v := RenderDashboard(input(tc.tier, false))
			if v.Badge != tc.badge || v.PlanLabel != tc.plan {
				t.Fatalf("badge=%q plan=%q", v.Badge, v.PlanLabel)
			}
			names := map[string]Control{}
			for _, c := range v.Controls {
				names[c.Name] = c
			}
			for _, c := range tc.controls {
				if _, ok := names[c]; !ok {
					t.Errorf("missing control %q", c)
				}
			}
			for _, c := range tc.absent {
				if _, ok := names[c]; ok {
					t.Errorf("unexpected control %q", c)
				}
			}
			if locked := names["Add by voice"].Locked; locked != (tc.tier == core.Free) {
				t.Errorf("voice locked = %v", locked)
			}
		})
	}
}

func TestDashboardBalancesAndMiniList(t *testing.T) {
	in := input(core.Pro, false)
	for i := 0; i < 6; i++ {
		in.State.Recents = append(in.State.Recents, core.Transaction{ID: int64(100 + i), Type: core.Out, Amount: 1000})
	}
	v := RenderDashboard(in)
	if v.Total != "Rp 150.000" {
		t.Fatalf("total = %q", v.Total)
	}
	if v.Wallets[0] != (WalletLine{Wallet: core.Cash, Amount: "Rp 100.000"}) {
		t.Fatalf("wallets = %+v", v.Wallets)
	}
	if len(v.Recent) != MiniListSize || v.Recent[0].Amount != "-Rp 25.000" || v.Recent[1].Amount != "+Rp 1.000.000" {
		t.Fatalf("mini list = %+v", v.Recent)
	}
}

func TestPrivacyMasksEveryView(t *testing.T) {
	in := input(core.Pro, true)
	in.Advisory = AdvisoryInput{
		Phase:  core.PhaseSuggested,
		Advice: core.Advice{Lines: []string{"Percepat <b>Laptop</b>"}, Action: &core.Action{GoalID: 3, GoalTitle: "Laptop", Wallet: core.Cash, Amount: 20000}},
	}
	out := allMarkdown(All(in))
	if rawAmount.MatchString(out) {
		t.Fatalf("raw amount leaked with privacy on:\n%s", out)
	}
	if !strings.Contains(out, privacy.Marker) {
		t.Fatal("marker missing")
	}

	in.Privacy.Enabled = false
	if !rawAmount.MatchString(allMarkdown(All(in))) {
		t.Fatal("amounts should be visible with privacy off")
	}
}

func TestRenderIsDeterministic(t *testing.T) {
	in := input(core.Admin, false)
	a := allMarkdown(All(in))
	b := allMarkdown(All(in))
	if a != b {
		t.Fatal("identical inputs rendered differently")
	}
}

func TestHistoryView(t *testing.T) {
	in := input(core.Pro, false)
	in.Filter = core.FilterIn
	v := RenderHistory(in)
	if len(v.Rows) != 1 || v.Rows[0].ID != 6 {
		t.Fatalf("rows = %+v", v.Rows)
	}
	in.State.Recents = in.State.Recents[:1]
	v = RenderHistory(in)
	if !v.Empty() || !strings.Contains(v.Markdown(), "No transactions match") {
		t.Fatalf("expected empty state, got %+v", v)
	}
}

func TestGoalsView(t *testing.T) {
	v := RenderGoals(input(core.Pro, false))
	g := v.Goals[0]
	if g.Progress != 25 || g.Tone != ToneCritical || g.Current != "Rp 1.250.000" || g.Done {
		t.Fatalf("goal row = %+v", g)
	}
	in := input(core.Pro, false)
	in.State.Goals = nil
	if !strings.Contains(RenderGoals(in).Markdown(), "No savings goals yet.") {
		t.Fatal("expected goals empty state")
	}
}

func TestAdvisoryReveal(t *testing.T) {
	in := input(core.Pro, true)
	in.Advisory = AdvisoryInput{
		Phase:    core.PhaseSuggested,
		Advice:   core.Advice{Lines: []string{"🚀 Percepat <b>Laptop</b>."}, CalculationNote: "Sisa dana: 500,000", Action: &core.Action{GoalID: 3, GoalTitle: "Laptop", Wallet: core.Cash, Amount: 20000}},
		RevealID: "r1",
	}
	v := RenderAdvisory(in)
	if v.Lines[0] != "🚀 Percepat **Laptop**." {
		t.Fatalf("lines = %v", v.Lines)
	}
	if v.Suggestion == nil || v.Suggestion.Amount != privacy.Marker || !v.Suggestion.CanReveal {
		t.Fatalf("masked suggestion = %+v", v.Suggestion)
	}

	in.Advisory.Reveal = privacy.RevealState{Revealed: true, ExpiresAt: now.Add(5 * time.Second)}
	v = RenderAdvisory(in)
	if v.Suggestion.Amount != "Rp 20.000" || v.Suggestion.CanReveal || !v.Suggestion.RevealEnd.Equal(now.Add(5*time.Second)) {
		t.Fatalf("revealed suggestion = %+v", v.Suggestion)
	}
	if RenderDashboard(in).Total != privacy.Marker {
		t.Fatal("a reveal must not unmask other amounts")
	}
}

func TestAdvisoryPhases(t *testing.T) {
	cases := []struct {
		phase core.AdvicePhase
		err   string
		want  string
	}{
		{"", "", "Ask the advisor"},
		{core.PhaseRequesting, "", "Analysing"},
		{core.PhaseFailed, "boom", "boom"},
		{core.PhaseNoAction, "", "sudah tercapai"},
	}
	for _, tc := range cases {
		in := input(core.Pro, false)
		in.Advisory = AdvisoryInput{Phase: tc.phase, Error: tc.err, Advice: core.Advice{Lines: []string{"Semua tujuan sudah tercapai"}}}
		v := RenderAdvisory(in)
		if v.Suggestion != nil || !strings.Contains(v.Markdown(), tc.want) {
			t.Errorf("phase %q: %q", tc.phase, v.Markdown())
		}
	}
}

func TestNotLoadedViews(t *testing.T) {
	in := Input{Now: now, Filter: core.FilterAll}
	v := All(in)
	for _, n := range []Name{Dashboard, Analysis, History, Goals} {
		view, _ := v.Get(n)
		if !strings.Contains(view.Markdown(), notLoaded) {
			t.Errorf("%s should show the not-loaded state", n)
		}
	}
}
