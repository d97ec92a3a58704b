package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"dompet/internal/cache"
	"dompet/internal/core"
	"dompet/internal/gateway/memory"
	"dompet/internal/privacy"
	"dompet/internal/session"
	"dompet/internal/storage"
)

var fixedNow = time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)

// spyGateway records calls made through the memory store.
type spyGateway struct {
	*memory.Store

	mu          sync.Mutex
	snapshots   int
	goalLists   int
	deposits    []core.Deposit
	adds        []core.Entry
	optimizeErr error
	depositErr  error
}

func (g *spyGateway) FetchSnapshot(ctx context.Context) (core.Snapshot, []core.Transaction, error) {
	g.mu.Lock()
	g.snapshots++
	g.mu.Unlock()
	return g.Store.FetchSnapshot(ctx)
}

func (g *spyGateway) ListGoals(ctx context.Context) ([]core.Goal, error) {
	g.mu.Lock()
	g.goalLists++
	g.mu.Unlock()
	return g.Store.ListGoals(ctx)
}

func (g *spyGateway) OptimizeGoals(ctx context.Context) (core.Advice, error) {
	if g.optimizeErr != nil {
		return core.Advice{}, g.optimizeErr
	}
	return g.Store.OptimizeGoals(ctx)
}

func (g *spyGateway) DepositToGoal(ctx context.Context, d core.Deposit) error {
	g.mu.Lock()
	g.deposits = append(g.deposits, d)
	g.mu.Unlock()
	if g.depositErr != nil {
		return g.depositErr
	}
	return g.Store.DepositToGoal(ctx, d)
}

func (g *spyGateway) AddTransaction(ctx context.Context, e core.Entry) (int, error) {
	g.mu.Lock()
	g.adds = append(g.adds, e)
	g.mu.Unlock()
	return g.Store.AddTransaction(ctx, e)
}

func (g *spyGateway) resetCounts() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.snapshots, g.goalLists = 0, 0
}

func (g *spyGateway) counts() (int, int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.snapshots, g.goalLists
}

type recordingNotifier struct {
	reqs []core.UpgradeRequest
}

func (n *recordingNotifier) RequestUpgrade(_ context.Context, req core.UpgradeRequest) error {
	n.reqs = append(n.reqs, req)
	return nil
}

type fixture struct {
	gw       *spyGateway
	sess     *session.Session
	goals    *GoalController
	entries  *EntryService
	notifier *recordingNotifier
	goalID   int64
}

func newFixture(t *testing.T, tier core.Tier) *fixture {
	t.Helper()
	store := memory.New(memory.WithClock(func() time.Time { return fixedNow }), memory.WithTier(tier, "01 Jan 2027"), memory.WithUserID(42))
	store.Record(fixedNow, core.In, 1000000, core.CategoryIncome, core.Cash, "Gaji")
	store.Record(fixedNow, core.Out, 200000, core.CategoryFood, core.Cash, "Makan")
	goalID := store.AddGoal(core.Goal{Title: "Laptop", Target: 500000, Deadline: "2027-01-01", Priority: core.P1})

	gw := &spyGateway{Store: store}
	mask, err := privacy.NewMask(context.Background(), storage.NewMemoryPrefs())
	if err != nil {
		t.Fatalf("NewMask: %v", err)
	}
	sess := session.New(cache.NewSnapshot(gw), mask, session.WithClock(func() time.Time { return fixedNow }))
	t.Cleanup(sess.Close)
	if _, err := sess.Refresh(context.Background()); err != nil {
		t.Fatalf("initial refresh: %v", err)
	}
	gw.resetCounts()

	n := &recordingNotifier{}
	return &fixture{
		gw:       gw,
		sess:     sess,
		goals:    NewGoalController(gw, sess, nil),
		entries:  NewEntryService(gw, sess, n, nil),
		notifier: n,
		goalID:   goalID,
	}
}

func TestExecuteDepositsExactActionAndRefreshesOnce(t *testing.T) {
	f := newFixture(t, core.Pro)
	ctx := context.Background()

	fr, err := f.goals.Optimize(ctx)
	if err != nil {
		t.Fatalf("Optimize: %v", err)
	}
	if fr.Views.Advisory.Phase != core.PhaseSuggested || fr.Views.Advisory.Suggestion == nil {
		t.Fatalf("expected a suggestion, got %+v", fr.Views.Advisory)
	}

	before := fr.Seq
	var mu sync.Mutex
	var phases []core.AdvicePhase
	var seqs []uint64
	unsubscribe := f.sess.Subscribe(func(nf session.Frame) {
		mu.Lock()
		defer mu.Unlock()
		phases = append(phases, nf.Views.Advisory.Phase)
		seqs = append(seqs, nf.Seq)
	})
	defer unsubscribe()

	fr, err = f.goals.Execute(ctx)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	mu.Lock()
	for i, p := range phases {
		if p == core.PhaseIdle && seqs[i] == before {
			t.Errorf("idle published at stale seq %d before the refresh: %v", before, phases)
		}
	}
	if len(phases) == 0 || phases[len(phases)-1] != core.PhaseIdle {
		t.Errorf("last published phase = %v, want idle", phases)
	}
	mu.Unlock()
	want := core.Deposit{GoalID: f.goalID, Wallet: core.Cash, Amount: 500000}
	if len(f.gw.deposits) != 1 || f.gw.deposits[0] != want {
		t.Fatalf("deposits = %+v, want [%+v]", f.gw.deposits, want)
	}
	if snaps, goals := f.gw.counts(); snaps != 1 || goals != 1 {
		t.Fatalf("refresh calls: %d snapshot, %d goals; want 1 each", snaps, goals)
	}
	if f.goals.Cycle().Phase != core.PhaseIdle || fr.Views.Advisory.Phase != core.PhaseIdle {
		t.Fatal("cycle should return to idle")
	}
	if fr.Views.Goals.Goals[0].Progress != 100 || fr.Views.Dashboard.Wallets[0].Amount != "Rp 300.000" {
		t.Fatalf("frame not refreshed: %+v %+v", fr.Views.Goals.Goals[0], fr.Views.Dashboard.Wallets[0])
	}
}

func TestExecuteFailureReturnsToIdleWithoutRefresh(t *testing.T) {
	f := newFixture(t, core.Pro)
	ctx := context.Background()
	f.goals.Optimize(ctx)
	f.gw.depositErr = core.BusinessError("goal_deposit", "Saldo Cash tidak cukup (Sisa: 1,000).")

	_, err := f.goals.Execute(ctx)
	if core.KindOf(err) != core.KindBusiness || core.Message(err) != "Saldo Cash tidak cukup (Sisa: 1,000)." {
		t.Fatalf("err = %v", err)
	}
	if f.goals.Cycle().Phase != core.PhaseIdle {
		t.Fatal("failed execute should return to idle")
	}
	if snaps, goals := f.gw.counts(); snaps != 0 || goals != 0 {
		t.Fatalf("failed deposit triggered a refresh (%d, %d)", snaps, goals)
	}
}

func TestExecuteWithoutSuggestion(t *testing.T) {
	f := newFixture(t, core.Pro)
	if _, err := f.goals.Execute(context.Background()); !errors.Is(err, core.ErrNoSuggestion) {
		t.Fatalf("err = %v", err)
	}
	if _, err := f.goals.Reveal(); !errors.Is(err, core.ErrNoSuggestion) {
		t.Fatalf("reveal err = %v", err)
	}
	if len(f.gw.deposits) != 0 {
		t.Fatal("no deposit expected")
	}
}

func TestOptimizeFailureAndDismiss(t *testing.T) {
	f := newFixture(t, core.Pro)
	f.gw.optimizeErr = core.ConnectivityError("optimize_goals", errors.New("timeout"))

	fr, err := f.goals.Optimize(context.Background())
	if core.KindOf(err) != core.KindConnectivity {
		t.Fatalf("err = %v", err)
	}
	if fr.Views.Advisory.Phase != core.PhaseFailed || fr.Views.Advisory.Error == "" {
		t.Fatalf("advisory = %+v", fr.Views.Advisory)
	}
	if fr = f.goals.Dismiss(); fr.Views.Advisory.Phase != core.PhaseIdle {
		t.Fatal("dismiss should return to idle")
	}
}

func TestOptimizeNoAction(t *testing.T) {
	f := newFixture(t, core.Pro)
	f.gw.Store.AddGoal(core.Goal{Title: "Done", Target: 10, Current: 10, Priority: core.P3})
	if _, err := f.goals.DeleteGoal(context.Background(), f.goalID); err != nil {
		t.Fatalf("DeleteGoal: %v", err)
	}
	fr, err := f.goals.Optimize(context.Background())
	if err != nil {
		t.Fatalf("Optimize: %v", err)
	}
	if fr.Views.Advisory.Phase != core.PhaseNoAction || fr.Views.Advisory.Suggestion != nil {
		t.Fatalf("advisory = %+v", fr.Views.Advisory)
	}
}

func TestRevealSuggestedAmount(t *testing.T) {
	f := newFixture(t, core.Pro)
	ctx := context.Background()
	f.sess.TogglePrivacy(ctx)
	f.goals.Optimize(ctx)

	if s := f.sess.Frame().Views.Advisory.Suggestion; s.Amount != privacy.Marker || !s.CanReveal {
		t.Fatalf("suggestion should start masked: %+v", s)
	}
	fr, err := f.goals.Reveal()
	if err != nil {
		t.Fatalf("Reveal: %v", err)
	}
	if s := fr.Views.Advisory.Suggestion; s.Amount != "Rp 500.000" || s.CanReveal {
		t.Fatalf("suggestion not revealed: %+v", s)
	}
	if fr.Views.Dashboard.Total != privacy.Marker {
		t.Fatal("reveal must not change privacy mode")
	}
	first := f.goals.Cycle().RevealID
	if _, err := f.goals.Reveal(); err != nil {
		t.Fatalf("second Reveal: %v", err)
	}
	if f.goals.Cycle().RevealID != first || f.sess.ActiveReveals() != 1 {
		t.Fatalf("revealing again should keep the running reveal (active=%d)", f.sess.ActiveReveals())
	}
}

func TestManualDepositValidatesGoal(t *testing.T) {
	f := newFixture(t, core.Pro)
	_, err := f.goals.Deposit(context.Background(), core.Deposit{GoalID: 999, Wallet: core.Cash, Amount: 1000})
	if !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("err = %v", err)
	}
	if _, err := f.goals.Deposit(context.Background(), core.Deposit{GoalID: f.goalID, Wallet: core.Cash, Amount: 0}); !errors.Is(err, core.ErrInvalidAmount) {
		t.Fatalf("err = %v", err)
	}
	if _, err := f.goals.Deposit(context.Background(), core.Deposit{GoalID: f.goalID, Wallet: core.Cash, Amount: 1000}); err != nil {
		t.Fatalf("Deposit: %v", err)
	}
	if snaps, goals := f.gw.counts(); snaps != 1 || goals != 1 {
		t.Fatalf("refresh calls: %d, %d", snaps, goals)
	}
}

func TestGoalCRUDRefreshesGoalsOnly(t *testing.T) {
	f := newFixture(t, core.Pro)
	ctx := context.Background()

	if _, err := f.goals.CreateGoal(ctx, core.GoalDraft{Title: "  ", Target: 10, Deadline: "2027-01-01", Priority: core.P1}); !errors.Is(err, core.ErrEmptyField) {
		t.Fatalf("blank title err = %v", err)
	}
	fr, err := f.goals.CreateGoal(ctx, core.GoalDraft{Title: "Motor", Target: 2000000, Deadline: "2027-06-01", Priority: core.P2})
	if err != nil {
		t.Fatalf("CreateGoal: %v", err)
	}
	if len(fr.Views.Goals.Goals) != 2 {
		t.Fatalf("goals = %+v", fr.Views.Goals.Goals)
	}
	if snaps, goals := f.gw.counts(); snaps != 0 || goals != 1 {
		t.Fatalf("refresh calls: %d snapshot, %d goals", snaps, goals)
	}
	if _, err := f.goals.EditGoal(ctx, core.Goal{ID: 999, Title: "x", Target: 1, Deadline: "d", Priority: core.P1}); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("edit unknown err = %v", err)
	}
}

func TestAddTransactionTierGate(t *testing.T) {
	f := newFixture(t, core.Free)
	for _, mode := range []core.EntryMode{core.ModeVoice, core.ModeImage} {
		_, err := f.entries.AddTransaction(context.Background(), core.Entry{Mode: mode})
		if core.KindOf(err) != core.KindUpgradeRequired || core.FeatureOf(err) != mode.Feature() {
			t.Fatalf("%s: err = %v", mode, err)
		}
	}
	if len(f.gw.adds) != 0 {
		t.Fatal("gated entries must not reach the gateway")
	}
}

func TestAddTransactionManual(t *testing.T) {
	f := newFixture(t, core.Pro)
	ctx := context.Background()

	_, err := f.entries.AddTransaction(ctx, core.Entry{Mode: core.ModeManual, Type: core.Out, Amount: 900000, Category: core.CategoryFood, Wallet: core.Cash, Description: "TV"})
	if !errors.Is(err, core.ErrInsufficientBalance) || core.KindOf(err) != core.KindValidation {
		t.Fatalf("err = %v", err)
	}
	if len(f.gw.adds) != 0 {
		t.Fatal("insufficient balance must be rejected locally")
	}

	res, err := f.entries.AddTransaction(ctx, core.Entry{Mode: core.ModeManual, Type: core.In, Amount: 50000, Category: core.CategoryFood, Wallet: core.Bank, Description: "Bonus"})
	if err != nil {
		t.Fatalf("AddTransaction: %v", err)
	}
	if res.Count != 1 || f.gw.adds[0].Category != core.CategoryIncome {
		t.Fatalf("income should force the income category: %+v", f.gw.adds[0])
	}
	if res.Frame.Views.Dashboard.Wallets[2].Amount != "Rp 50.000" {
		t.Fatalf("frame not refreshed: %+v", res.Frame.Views.Dashboard.Wallets)
	}
}

func TestAddTransactionValidation(t *testing.T) {
	f := newFixture(t, core.Pro)
	cases := []struct {
		name  string
		entry core.Entry
		want  error
	}{
		{"empty text", core.Entry{Mode: core.ModeText, Text: " "}, core.ErrEmptyField},
		{"voice without media", core.Entry{Mode: core.ModeVoice}, core.ErrEmptyField},
		{"zero amount", core.Entry{Mode: core.ModeManual, Type: core.Out, Category: core.CategoryFood, Wallet: core.Cash, Description: "x"}, core.ErrInvalidAmount},
		{"unknown mode", core.Entry{Mode: "fax"}, core.ErrEmptyField},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := f.entries.AddTransaction(context.Background(), tc.entry); !errors.Is(err, tc.want) {
				t.Fatalf("err = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestTransferAndBudget(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, core.Pro)
	if _, err := f.entries.Transfer(ctx, core.Transfer{Source: core.Cash, Target: core.Cash, Amount: 100}); !errors.Is(err, core.ErrSameWallet) {
		t.Fatalf("err = %v", err)
	}
	fr, err := f.entries.Transfer(ctx, core.Transfer{Source: core.Cash, Target: core.EWallet, Amount: 100000})
	if err != nil {
		t.Fatalf("Transfer: %v", err)
	}
	if fr.Views.Dashboard.Wallets[1].Amount != "Rp 100.000" {
		t.Fatalf("wallets = %+v", fr.Views.Dashboard.Wallets)
	}
	if _, err := f.entries.SetBudget(ctx, -1); !errors.Is(err, core.ErrInvalidAmount) {
		t.Fatalf("negative budget err = %v", err)
	}
	if fr, err = f.entries.SetBudget(ctx, 250000); err != nil || fr.Views.Analysis.Budget != "Rp 250.000" {
		t.Fatalf("SetBudget: %v %+v", err, fr.Views.Analysis)
	}

	free := newFixture(t, core.Free)
	if _, err := free.entries.SetBudget(ctx, 1000); core.KindOf(err) != core.KindUpgradeRequired {
		t.Fatalf("free budget err = %v", err)
	}
}

func TestEditDeleteRequireCachedTransaction(t *testing.T) {
	f := newFixture(t, core.Pro)
	ctx := context.Background()
	if _, err := f.entries.DeleteTransaction(ctx, 999); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("err = %v", err)
	}
	id := f.sess.State().Recents[0].ID
	if _, err := f.entries.EditTransaction(ctx, core.TransactionEdit{ID: id, Amount: 1000, Category: core.CategoryFood, Wallet: core.Cash, Description: "Teh"}); err != nil {
		t.Fatalf("EditTransaction: %v", err)
	}
	if _, err := f.entries.DeleteTransaction(ctx, id); err != nil {
		t.Fatalf("DeleteTransaction: %v", err)
	}
	if _, ok := f.sess.State().Transaction(id); ok {
		t.Fatal("deleted transaction still cached")
	}
}

func TestFeedbackExportAndUpgrade(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, core.Free)
	if err := f.entries.SendFeedback(ctx, ""); !errors.Is(err, core.ErrEmptyField) {
		t.Fatalf("err = %v", err)
	}
	if err := f.entries.SendFeedback(ctx, "mantap"); err != nil {
		t.Fatalf("SendFeedback: %v", err)
	}
	if _, err := f.entries.ExportFeedback(ctx); core.KindOf(err) != core.KindValidation {
		t.Fatalf("non-admin export err = %v", err)
	}
	if b, err := f.entries.ExportLedger(ctx); err != nil || len(b) == 0 {
		t.Fatalf("ExportLedger: %d bytes, %v", len(b), err)
	}

	if err := f.entries.RequestUpgrade(ctx, core.FeatureVoice); err != nil {
		t.Fatalf("RequestUpgrade: %v", err)
	}
	want := core.UpgradeRequest{UserID: 42, Tier: core.Free, Feature: core.FeatureVoice}
	if len(f.notifier.reqs) != 1 || f.notifier.reqs[0] != want {
		t.Fatalf("requests = %+v", f.notifier.reqs)
	}

	vip := newFixture(t, core.VIP)
	if err := vip.entries.SendFeedback(ctx, "x"); core.KindOf(err) != core.KindValidation {
		t.Fatalf("vip feedback err = %v", err)
	}
	noNotifier := NewEntryService(f.gw, f.sess, nil, nil)
	if err := noNotifier.RequestUpgrade(ctx, core.FeatureVoice); core.KindOf(err) != core.KindBusiness {
		t.Fatalf("err = %v", err)
	}
}
