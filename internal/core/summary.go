package core

// CategoryAmount represents an expense amount aggregated by category name.
type CategoryAmount struct {
	Label string
	Value int64
}

// MonthlySeries holds income and expense totals per month label.
// Labels, Income and Expense always have the same length.
type MonthlySeries struct {
	Labels  []string
	Income  []int64
	Expense []int64
}

// Snapshot is the dashboard state as last fetched from the ledger service.
type Snapshot struct {
	Loaded      bool
	UserID      int64
	Balances    map[Wallet]int64
	Tier        Tier
	ExpiryDate  string // "02 Jan 2006" or empty
	BudgetLimit int64  // 0 means unset
	Income      int64
	Expense     int64
	Categories  []CategoryAmount
	Monthly     MonthlySeries
}

// Len returns the number of months in the series.
func (m MonthlySeries) Len() int {
	n := len(m.Labels)
	if len(m.Income) < n {
		n = len(m.Income)
	}
	if len(m.Expense) < n {
		n = len(m.Expense)
	}
	return n
}

// LastExpense returns the expense of the most recent month, or 0.
func (m MonthlySeries) LastExpense() int64 {
	n := m.Len()
	if n == 0 {
		return 0
	}
	return m.Expense[n-1]
}

// Balance returns the balance of a single wallet.
func (s Snapshot) Balance(w Wallet) int64 {
	return s.Balances[w]
}

// TotalBalance is recomputed from the wallet balances on every call.
func (s Snapshot) TotalBalance() int64 {
	var total int64
	for _, w := range Wallets {
		total += s.Balances[w]
	}
	return total
}
