// Package memory is an in-process ledger service used for the demo backend
// and for tests. It follows the rules of the hosted service closely enough
// for the client core to behave the same against either.
package memory

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Rhymond/go-money"

	"dompet/internal/core"
	"dompet/internal/gateway"
)

var _ gateway.Gateway = (*Store)(nil)

const (
	recentLimit       = 50
	monthlyWindow     = 6
	freeExportsPerDay = 3
	farExpiry         = "31 Dec 2099"
)

type record struct {
	id          int64
	at          time.Time
	typ         core.TxType
	amount      int64
	category    string
	wallet      core.Wallet
	description string
}

type Store struct {
	mu       sync.Mutex
	now      func() time.Time
	userID   int64
	tier     core.Tier
	expiry   string
	records  []record
	goals    []core.Goal
	budget   int64
	nextTx   int64
	nextGoal int64
	exports  map[string]int
	feedback []string
}

// Option configures a Store.
type Option func(*Store)

// WithTier sets the account tier and, for Pro, the expiry label.
func WithTier(t core.Tier, expiry string) Option {
	return func(s *Store) {
		s.tier = t
		s.expiry = expiry
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func WithUserID(id int64) Option {
	return func(s *Store) { s.userID = id }
}

func New(opts ...Option) *Store {
	s := &Store{
		now:     time.Now,
		userID:  1,
		tier:    core.Free,
		exports: map[string]int{},
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// NewDemo returns a store seeded with a month of sample activity.
func NewDemo(opts ...Option) *Store {
	s := New(append([]Option{WithTier(core.Pro, "")}, opts...)...)
	now := s.now()
	if s.tier == core.Pro && s.expiry == "" {
		s.expiry = now.AddDate(0, 0, 30).Format("02 Jan 2006")
	}
	start := time.Date(now.Year(), now.Month(), 1, 8, 0, 0, 0, now.Location())
	prev := start.AddDate(0, -1, 0)
	s.Record(prev, core.In, 4500000, core.CategoryIncome, core.Bank, "Gaji")
	s.Record(prev.Add(48*time.Hour), core.Out, 850000, core.CategoryBills, core.Bank, "Listrik dan air")
	s.Record(start, core.In, 5000000, core.CategoryIncome, core.Bank, "Gaji")
	s.Record(start.Add(2*time.Hour), core.Out, 300000, core.CategoryBills, core.Bank, "Internet")
	s.Record(start.Add(26*time.Hour), core.In, 400000, core.CategoryTransfer, core.Cash, "Tarik tunai")
	s.Record(start.Add(28*time.Hour), core.Out, 45000, core.CategoryFood, core.Cash, "Makan siang")
	s.Record(start.Add(50*time.Hour), core.In, 250000, core.CategoryTransfer, core.EWallet, "Top up")
	s.Record(start.Add(52*time.Hour), core.Out, 60000, core.CategoryTransport, core.EWallet, "Ojek")
	s.AddGoal(core.Goal{Title: "Laptop", Target: 12000000, Current: 1500000, Deadline: now.AddDate(0, 6, 0).Format("2006-01-02"), Priority: core.P1})
	s.AddGoal(core.Goal{Title: "Dana darurat", Target: 20000000, Deadline: now.AddDate(1, 0, 0).Format("2006-01-02"), Priority: core.P2})
	s.budget = 3000000
	return s
}

// Record appends a transaction at the given time and returns its id.
func (s *Store) Record(at time.Time, typ core.TxType, amount int64, category string, w core.Wallet, desc string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appendLocked(at, typ, amount, category, w, desc)
}

// AddGoal stores g with a fresh id and returns it.
func (s *Store) AddGoal(g core.Goal) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextGoal++
	g.ID = s.nextGoal
	s.goals = append(s.goals, g)
	return g.ID
}

// Feedback returns the messages received so far.
func (s *Store) Feedback() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.feedback...)
}

func (s *Store) appendLocked(at time.Time, typ core.TxType, amount int64, category string, w core.Wallet, desc string) int64 {
	s.nextTx++
	s.records = append(s.records, record{
		id:          s.nextTx,
		at:          at,
		typ:         typ,
		amount:      amount,
		category:    category,
		wallet:      w,
		description: desc,
	})
	return s.nextTx
}

func (s *Store) Login(_ context.Context, initData string) error {
	if strings.TrimSpace(initData) == "" {
		return core.BusinessError("login", "Invalid signature")
	}
	return nil
}

func (s *Store) FetchSnapshot(_ context.Context) (core.Snapshot, []core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := core.Snapshot{
		Loaded:      true,
		UserID:      s.userID,
		Balances:    s.balancesLocked(),
		Tier:        s.tier,
		ExpiryDate:  s.expiryLocked(),
		BudgetLimit: s.budget,
	}

	byCategory := map[string]int64{}
	byMonth := map[string][2]int64{}
	for _, r := range s.records {
		month := r.at.Format("2006-01")
		m := byMonth[month]
		if r.typ == core.In {
			snap.Income += r.amount
			m[0] += r.amount
		} else {
			snap.Expense += r.amount
			m[1] += r.amount
			byCategory[r.category] += r.amount
		}
		byMonth[month] = m
	}

	labels := make([]string, 0, len(byCategory))
	for k := range byCategory {
		labels = append(labels, k)
	}
	sort.Strings(labels)
	for _, k := range labels {
		snap.Categories = append(snap.Categories, core.CategoryAmount{Label: k, Value: byCategory[k]})
	}

	months := make([]string, 0, len(byMonth))
	for k := range byMonth {
		months = append(months, k)
	}
	sort.Strings(months)
	if len(months) > monthlyWindow {
		months = months[len(months)-monthlyWindow:]
	}
	for _, k := range months {
		snap.Monthly.Labels = append(snap.Monthly.Labels, k)
		snap.Monthly.Income = append(snap.Monthly.Income, byMonth[k][0])
		snap.Monthly.Expense = append(snap.Monthly.Expense, byMonth[k][1])
	}

	var recents []core.Transaction
	for i := len(s.records) - 1; i >= 0 && len(recents) < recentLimit; i-- {
		r := s.records[i]
		recents = append(recents, core.Transaction{
			ID:          r.id,
			Type:        r.typ,
			Amount:      r.amount,
			Description: r.description,
			Category:    r.category,
			Wallet:      r.wallet,
			When:        r.at.Format("02 Jan 15:04"),
		})
	}
	return snap, recents, nil
}

func (s *Store) ListGoals(_ context.Context) ([]core.Goal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := append([]core.Goal(nil), s.goals...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Deadline < out[j].Deadline })
	return out, nil
}

func (s *Store) CreateGoal(_ context.Context, d core.GoalDraft) error {
	if err := d.Validate(); err != nil {
		return core.BusinessError("create goal", "Data tidak lengkap")
	}
	s.AddGoal(core.Goal{Title: d.Title, Target: d.Target, Deadline: d.Deadline, Priority: d.Priority})
	return nil
}

func (s *Store) EditGoal(_ context.Context, g core.Goal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.goalIndexLocked(g.ID)
	if i < 0 {
		return core.BusinessError("edit goal", "Tujuan tidak ditemukan.")
	}
	cur := s.goals[i]
	cur.Title, cur.Target, cur.Deadline, cur.Priority = g.Title, g.Target, g.Deadline, g.Priority
	s.goals[i] = cur
	return nil
}

func (s *Store) DeleteGoal(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.goalIndexLocked(id); i >= 0 {
		s.goals = append(s.goals[:i], s.goals[i+1:]...)
	}
	return nil
}

func (s *Store) DepositToGoal(_ context.Context, d core.Deposit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	w := core.NormalizeWallet(string(d.Wallet))
	if err := (core.Deposit{GoalID: d.GoalID, Wallet: w, Amount: d.Amount}).Validate(); err != nil {
		return rejected("goal deposit", err)
	}
	if bal := s.balancesLocked()[w]; bal < d.Amount {
		return core.BusinessError("goal deposit", fmt.Sprintf("Saldo %s tidak cukup (Sisa: %s).", d.Wallet, grouped(bal)))
	}
	i := s.goalIndexLocked(d.GoalID)
	if i < 0 {
		return core.BusinessError("goal deposit", "Tujuan tidak ditemukan.")
	}
	s.appendLocked(s.now(), core.Out, d.Amount, core.CategorySavings, w, "Tabungan ke "+s.goals[i].Title)
	s.goals[i].Current += d.Amount
	return nil
}

// OptimizeGoals suggests moving part of this month's surplus into the most
// urgent unfinished goal.
func (s *Store) OptimizeGoals(_ context.Context) (core.Advice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var inc, exp int64
	spent := map[string]int64{}
	for _, r := range s.records {
		if r.at.Year() != now.Year() || r.at.Month() != now.Month() {
			continue
		}
		if r.typ == core.In {
			inc += r.amount
		} else {
			exp += r.amount
			spent[r.category] += r.amount
		}
	}
	topCategory := core.CategoryOther
	var top int64
	for _, k := range sortedKeys(spent) {
		if spent[k] > top {
			top, topCategory = spent[k], k
		}
	}
	free := inc - exp

	var adv core.Advice
	switch {
	case len(s.goals) == 0:
		adv.Lines = []string{
			"⚠️ Anda belum memiliki tujuan keuangan.",
			"💡 Buat tujuan baru (ex: Laptop) di tab Rencana.",
		}
	case free <= 0:
		adv.Lines = []string{
			"⚠️ Arus kas bulan ini <b>negatif</b> atau pas-pasan.",
			fmt.Sprintf("📉 Pengeluaran terbesar: <b>%s</b>.", topCategory),
			"💡 Fokus kurangi pengeluaran sebelum menabung.",
		}
	default:
		target, ok := s.targetGoalLocked()
		if !ok {
			adv.Lines = []string{"🎉 Hebat! Semua tujuan keuangan Anda sudah tercapai."}
			break
		}
		save := free * 8 / 10
		if rem := target.Remaining(); rem < save {
			save = rem
		}
		save = save / 1000 * 1000
		if save <= 10000 {
			adv.Lines = []string{"✅ Kondisi keuangan aman, tapi sisa dana tipis."}
			break
		}
		adv.Lines = []string{
			fmt.Sprintf("✅ Arus kas Anda positif! (Sisa: Rp %s)", grouped(free)),
			fmt.Sprintf("🚀 Percepat tujuan <b>%s</b>.", target.Title),
		}
		adv.CalculationNote = fmt.Sprintf("80%% dari sisa Rp %s, maksimal kekurangan tujuan.", grouped(free))
		adv.Action = &core.Action{
			GoalID:    target.ID,
			GoalTitle: target.Title,
			Wallet:    s.bestWalletLocked(),
			Amount:    save,
		}
	}
	return adv, nil
}

func (s *Store) AddTransaction(_ context.Context, e core.Entry) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch e.Mode {
	case core.ModeManual:
		if e.Amount <= 0 {
			return 0, core.BusinessError("add transaction", "Nominal tidak valid")
		}
		typ := e.Type
		if typ == "" {
			typ = core.Out
			if e.Category == core.CategoryIncome {
				typ = core.In
			}
		}
		if !typ.Valid() {
			return 0, core.BusinessError("add transaction", "Tipe transaksi tidak valid")
		}
		w := core.NormalizeWallet(string(e.Wallet))
		if typ == core.Out {
			if bal := s.balancesLocked()[w]; bal < e.Amount {
				return 0, core.BusinessError("add transaction", fmt.Sprintf("Saldo %s Kurang (Sisa: %s)", e.Wallet, grouped(bal)))
			}
		}
		s.appendLocked(s.now(), typ, e.Amount, e.Category, w, e.Description)
		return 1, nil
	case core.ModeVoice, core.ModeImage:
		if !s.tier.Premium() {
			return 0, core.BusinessError("add transaction", "Fitur Pro Terkunci 🔒")
		}
		return 0, core.BusinessError("add transaction", "Media tidak dapat diproses offline")
	default:
		p, ok := parseText(e.Text)
		if !ok {
			return 0, core.BusinessError("add transaction", "Gagal membaca data.")
		}
		s.appendLocked(s.now(), p.typ, p.amount, p.category, p.wallet, p.description)
		return 1, nil
	}
}

func (s *Store) EditTransaction(_ context.Context, e core.TransactionEdit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.records {
		if s.records[i].id == e.ID {
			r := &s.records[i]
			r.amount, r.category, r.wallet, r.description = e.Amount, e.Category, core.NormalizeWallet(string(e.Wallet)), e.Description
			return nil
		}
	}
	return core.BusinessError("edit transaction", "Transaksi tidak ditemukan")
}

func (s *Store) DeleteTransaction(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.records {
		if s.records[i].id == id {
			s.records = append(s.records[:i], s.records[i+1:]...)
			return nil
		}
	}
	return core.BusinessError("delete transaction", "Transaksi tidak ditemukan")
}

func (s *Store) TransferBalance(_ context.Context, t core.Transfer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := t.Validate(); err != nil {
		return rejected("transfer", err)
	}
	if bal := s.balancesLocked()[core.NormalizeWallet(string(t.Source))]; bal < t.Amount {
		return core.BusinessError("transfer", "TRANSAKSI GAGAL: Saldo tidak mencukupi. Saldo tidak dapat menjadi negatif.")
	}
	now := s.now()
	s.appendLocked(now, core.Out, t.Amount, core.CategoryTransfer, t.Source, "Transfer ke "+string(t.Target))
	s.appendLocked(now, core.In, t.Amount, core.CategoryTransfer, t.Target, "Terima dari "+string(t.Source))
	return nil
}

func (s *Store) SetBudget(_ context.Context, amount int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.budget = amount
	return nil
}

func (s *Store) ResetData(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = nil
	s.goals = nil
	return nil
}

func (s *Store) SendFeedback(_ context.Context, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tier == core.VIP || s.tier == core.Admin {
		return core.BusinessError("feedback", "Fitur tidak tersedia")
	}
	s.feedback = append(s.feedback, message)
	return nil
}

// ExportLedger returns the ledger as CSV. Free accounts get three exports
// per day.
func (s *Store) ExportLedger(_ context.Context) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.tier.Premium() {
		day := s.now().Format("2006-01-02")
		if s.exports[day] >= freeExportsPerDay {
			return nil, core.UpgradeRequired(core.FeatureExport)
		}
		s.exports[day]++
	}
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write([]string{"id", "datetime", "type", "amount", "category", "wallet", "description"})
	for i := len(s.records) - 1; i >= 0; i-- {
		r := s.records[i]
		_ = w.Write([]string{
			strconv.FormatInt(r.id, 10),
			r.at.Format("2006-01-02 15:04:05"),
			string(r.typ),
			strconv.FormatInt(r.amount, 10),
			r.category,
			string(r.wallet),
			r.description,
		})
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

func (s *Store) ExportFeedback(_ context.Context) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tier != core.Admin {
		return nil, core.BusinessError("export feedback", "Akses ditolak")
	}
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write([]string{"message"})
	for _, m := range s.feedback {
		_ = w.Write([]string{m})
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

// rejected turns a failed draft check into the service's reply.
func rejected(op string, err error) error {
	switch {
	case errors.Is(err, core.ErrInvalidAmount):
		return core.BusinessError(op, "Nominal tidak valid")
	case errors.Is(err, core.ErrSameWallet):
		return core.BusinessError(op, "Dompet sama")
	}
	return core.BusinessError(op, "Data tidak lengkap")
}

func (s *Store) balancesLocked() map[core.Wallet]int64 {
	out := map[core.Wallet]int64{core.Cash: 0, core.EWallet: 0, core.Bank: 0}
	for _, r := range s.records {
		if r.typ == core.In {
			out[r.wallet] += r.amount
		} else {
			out[r.wallet] -= r.amount
		}
	}
	return out
}

func (s *Store) expiryLocked() string {
	switch s.tier {
	case core.VIP, core.Admin:
		return farExpiry
	case core.Pro:
		return s.expiry
	}
	return ""
}

func (s *Store) goalIndexLocked(id int64) int {
	for i, g := range s.goals {
		if g.ID == id {
			return i
		}
	}
	return -1
}

// targetGoalLocked picks the first unfinished P1 goal, otherwise the
// unfinished goal with the earliest deadline.
func (s *Store) targetGoalLocked() (core.Goal, bool) {
	for _, g := range s.goals {
		if g.Priority == core.P1 && !g.Done() {
			return g, true
		}
	}
	sorted := append([]core.Goal(nil), s.goals...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Deadline < sorted[j].Deadline })
	for _, g := range sorted {
		if !g.Done() {
			return g, true
		}
	}
	return core.Goal{}, false
}

func (s *Store) bestWalletLocked() core.Wallet {
	bal := s.balancesLocked()
	best, most := core.Cash, int64(0)
	for _, w := range core.Wallets {
		if bal[w] > most {
			best, most = w, bal[w]
		}
	}
	return best
}

func sortedKeys(m map[string]int64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

var groupFormatter = money.NewFormatter(0, ".", ",", "", "1")

// grouped renders n the way the hosted service does ("1,234").
func grouped(n int64) string {
	return groupFormatter.Format(n)
}
