package remote

import (
	"encoding/json"
	"strings"

	"dompet/internal/core"
)

// number decodes amounts and ids sent either as JSON numbers or as
// separator formatted strings ("1,234").
type number int64

func (n *number) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		*n = 0
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		if strings.TrimSpace(s) == "" {
			*n = 0
			return nil
		}
	}
	v, err := core.ParseAmount(s)
	if err != nil {
		return err
	}
	*n = number(v)
	return nil
}

func numbers(in []number) []int64 {
	out := make([]int64, len(in))
	for i, v := range in {
		out[i] = int64(v)
	}
	return out
}

type envelope struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func (e envelope) ok() bool {
	return e.Status == "success"
}

type snapshotWire struct {
	envelope
	UserID         number   `json:"user_id"`
	IsPrem         bool     `json:"is_prem"`
	IsVIP          bool     `json:"is_vip"`
	IsAdmin        bool     `json:"is_admin"`
	ExpiryDate     string   `json:"expiry_date"`
	Income         number   `json:"income"`
	Expense        number   `json:"expense"`
	CashBalance    number   `json:"cash_balance"`
	EWalletBalance number   `json:"ewallet_balance"`
	BankBalance    number   `json:"bank_balance"`
	BudgetLimit    number   `json:"budget_limit"`
	Recents        []txWire `json:"recents"`
	ChartLabels    []string `json:"chart_labels"`
	ChartValues    []number `json:"chart_values"`
	MonthlyLabels  []string `json:"monthly_labels"`
	MonthlyInc     []number `json:"monthly_inc"`
	MonthlyExp     []number `json:"monthly_exp"`
}

type txWire struct {
	ID          number `json:"id"`
	Type        string `json:"type"`
	Amount      number `json:"amount"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Wallet      string `json:"wallet"`
	Datetime    string `json:"datetime"`
}

type goalWire struct {
	ID       number `json:"id"`
	Title    string `json:"title"`
	Target   number `json:"target"`
	Current  number `json:"current"`
	Deadline string `json:"deadline"`
	Priority string `json:"priority"`
}

type goalsWire struct {
	envelope
	Data []goalWire `json:"data"`
}

type adviceWire struct {
	envelope
	Advice          []string    `json:"advice"`
	CalculationNote string      `json:"calculation_note"`
	Action          *actionWire `json:"action"`
}

type actionWire struct {
	GoalID    number `json:"goal_id"`
	GoalTitle string `json:"goal_title"`
	Wallet    string `json:"wallet"`
	Amount    number `json:"amount"`
}

type addWire struct {
	envelope
	Count int `json:"count"`
}

// goalBody is the JSON body of create and edit goal requests.
type goalBody struct {
	ID       int64  `json:"id,omitempty"`
	Title    string `json:"title"`
	Target   int64  `json:"target"`
	Deadline string `json:"deadline"`
	Priority string `json:"priority"`
}

func (w snapshotWire) toCore() (core.Snapshot, []core.Transaction) {
	snap := core.Snapshot{
		Loaded: true,
		UserID: int64(w.UserID),
		Balances: map[core.Wallet]int64{
			core.Cash:    int64(w.CashBalance),
			core.EWallet: int64(w.EWalletBalance),
			core.Bank:    int64(w.BankBalance),
		},
		Tier:        core.TierFromFlags(w.IsPrem, w.IsVIP, w.IsAdmin),
		ExpiryDate:  w.ExpiryDate,
		BudgetLimit: int64(w.BudgetLimit),
		Income:      int64(w.Income),
		Expense:     int64(w.Expense),
	}
	for i, label := range w.ChartLabels {
		if i >= len(w.ChartValues) {
			break
		}
		snap.Categories = append(snap.Categories, core.CategoryAmount{Label: label, Value: int64(w.ChartValues[i])})
	}
	n := len(w.MonthlyLabels)
	if len(w.MonthlyInc) < n {
		n = len(w.MonthlyInc)
	}
	if len(w.MonthlyExp) < n {
		n = len(w.MonthlyExp)
	}
	snap.Monthly = core.MonthlySeries{
		Labels:  append([]string(nil), w.MonthlyLabels[:n]...),
		Income:  numbers(w.MonthlyInc[:n]),
		Expense: numbers(w.MonthlyExp[:n]),
	}

	recents := make([]core.Transaction, 0, len(w.Recents))
	for _, r := range w.Recents {
		recents = append(recents, core.Transaction{
			ID:          int64(r.ID),
			Type:        core.TxType(strings.ToUpper(r.Type)),
			Amount:      int64(r.Amount),
			Description: r.Description,
			Category:    r.Category,
			Wallet:      core.NormalizeWallet(r.Wallet),
			When:        r.Datetime,
		})
	}
	return snap, recents
}

func (g goalWire) toCore() core.Goal {
	return core.Goal{
		ID:       int64(g.ID),
		Title:    g.Title,
		Target:   int64(g.Target),
		Current:  int64(g.Current),
		Deadline: g.Deadline,
		Priority: core.Priority(g.Priority),
	}
}

func (a adviceWire) toCore() core.Advice {
	adv := core.Advice{
		Lines:           append([]string(nil), a.Advice...),
		CalculationNote: a.CalculationNote,
	}
	if a.Action != nil {
		adv.Action = &core.Action{
			GoalID:    int64(a.Action.GoalID),
			GoalTitle: a.Action.GoalTitle,
			Wallet:    core.NormalizeWallet(a.Action.Wallet),
			Amount:    int64(a.Action.Amount),
		}
	}
	return adv
}
