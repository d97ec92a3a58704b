// Package history filters the cached recent transactions for the history
// view.
package history

import (
	"fmt"
	"strings"

	"dompet/internal/core"
)

// Result is the outcome of filtering. An empty result is a valid state the
// view renders as "no transactions", not an error.
type Result struct {
	Filter       core.TxFilter
	Transactions []core.Transaction
}

func (r Result) Empty() bool { return len(r.Transactions) == 0 }

func (r Result) Len() int { return len(r.Transactions) }

// Filter keeps the transactions matching f in their delivered order. ALL
// returns the list unchanged. Unknown filters behave like ALL.
func Filter(txs []core.Transaction, f core.TxFilter) Result {
	switch f {
	case core.FilterIn, core.FilterOut:
	default:
		return Result{Filter: core.FilterAll, Transactions: txs}
	}

	out := make([]core.Transaction, 0, len(txs))
	for _, tx := range txs {
		if string(tx.Type) == string(f) {
			out = append(out, tx)
		}
	}
	return Result{Filter: f, Transactions: out}
}

// ParseFilter accepts all, in and out in any case. The empty string is ALL.
func ParseFilter(s string) (core.TxFilter, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "ALL":
		return core.FilterAll, nil
	case "IN":
		return core.FilterIn, nil
	case "OUT":
		return core.FilterOut, nil
	}
	return "", fmt.Errorf("unknown history filter %q", s)
}
