package core

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	Cash    Wallet = "Cash"
	EWallet Wallet = "E-Wallet"
	Bank    Wallet = "Bank"
)

const (
	In  TxType = "IN"
	Out TxType = "OUT"
)

// TxFilter selects which transactions the history view shows.
const (
	FilterAll TxFilter = "ALL"
	FilterIn  TxFilter = "IN"
	FilterOut TxFilter = "OUT"
)

const (
	P1 Priority = "P1"
	P2 Priority = "P2"
	P3 Priority = "P3"
)

// Category names understood by the ledger service.
const (
	CategoryFood          = "Makanan"
	CategoryTransport     = "Transport"
	CategoryBills         = "Tagihan"
	CategoryShopping      = "Belanja"
	CategoryHealth        = "Kesehatan"
	CategoryEntertainment = "Hiburan"
	CategoryIncome        = "Pemasukan"
	CategoryOther         = "Lainnya"
	CategorySavings       = "Tabungan"
	CategoryTransfer      = "Transfer"
)

type (
	Wallet   string
	TxType   string
	TxFilter string
	Priority string

	Transaction struct {
		ID          int64
		Type        TxType
		Amount      int64
		Description string
		Category    string
		Wallet      Wallet
		When        string // server formatted, e.g. "02 Jan 15:04"
	}

	Goal struct {
		ID       int64
		Title    string
		Target   int64
		Current  int64
		Deadline string // YYYY-MM-DD
		Priority Priority
	}

	// GoalDraft is a goal that has not been stored yet.
	GoalDraft struct {
		Title    string   `validate:"required"`
		Target   int64    `validate:"gt=0"`
		Deadline string   `validate:"required"`
		Priority Priority `validate:"required,oneof=P1 P2 P3"`
	}

	Deposit struct {
		GoalID int64  `validate:"gt=0"`
		Wallet Wallet `validate:"required,oneof=Cash E-Wallet Bank"`
		Amount int64  `validate:"gt=0"`
	}

	Transfer struct {
		Source Wallet `validate:"required,oneof=Cash E-Wallet Bank"`
		Target Wallet `validate:"required,oneof=Cash E-Wallet Bank,nefield=Source"`
		Amount int64  `validate:"gt=0"`
	}

	TransactionEdit struct {
		ID          int64  `validate:"gt=0"`
		Amount      int64  `validate:"gt=0"`
		Category    string `validate:"required"`
		Wallet      Wallet `validate:"required,oneof=Cash E-Wallet Bank"`
		Description string `validate:"required"`
	}

	// Action is a deposit proposed by the advisory service.
	Action struct {
		GoalID    int64
		GoalTitle string
		Wallet    Wallet
		Amount    int64
	}

	Advice struct {
		Lines           []string
		CalculationNote string
		Action          *Action
	}
)

var (
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrSameWallet          = errors.New("source and target wallet are the same")
	ErrEmptyField          = errors.New("empty field")
	ErrNoSuggestion        = errors.New("no suggested action")
	ErrNotFound            = errors.New("not found")
)

// Wallets lists the balance buckets in display order.
var Wallets = []Wallet{Cash, EWallet, Bank}

// NormalizeWallet maps free-form wallet names to one of the three buckets.
func NormalizeWallet(s string) Wallet {
	switch v := strings.ToLower(strings.TrimSpace(s)); v {
	case "cash", "tunai", "uang":
		return Cash
	case "bank", "bca", "mandiri", "bri", "bni", "atm", "debit":
		return Bank
	default:
		return EWallet
	}
}

func (w Wallet) Valid() bool {
	return w == Cash || w == EWallet || w == Bank
}

func (t TxType) Valid() bool {
	return t == In || t == Out
}

// Progress is current/target as a whole percentage clamped to [0, 100].
func (g Goal) Progress() int {
	if g.Target <= 0 {
		return 0
	}
	pct := decimal.NewFromInt(g.Current).
		Div(decimal.NewFromInt(g.Target)).
		Mul(decimal.NewFromInt(100)).
		Round(0).
		IntPart()
	switch {
	case pct < 0:
		return 0
	case pct > 100:
		return 100
	}
	return int(pct)
}

// Done reports whether the goal has reached its target.
func (g Goal) Done() bool {
	return g.Current >= g.Target
}

func (g Goal) Remaining() int64 {
	if g.Done() {
		return 0
	}
	return g.Target - g.Current
}

func (d GoalDraft) Validate() error {
	if strings.TrimSpace(d.Title) == "" || strings.TrimSpace(d.Deadline) == "" {
		return ErrEmptyField
	}
	if d.Target <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (d Deposit) Validate() error {
	if d.Amount <= 0 {
		return ErrInvalidAmount
	}
	if d.GoalID <= 0 || !d.Wallet.Valid() {
		return ErrEmptyField
	}
	return nil
}

func (t Transfer) Validate() error {
	if t.Amount <= 0 {
		return ErrInvalidAmount
	}
	if t.Source == t.Target {
		return ErrSameWallet
	}
	return nil
}
