package services

import (
	"errors"
	"testing"

	"dompet/internal/core"
)

func TestCheck(t *testing.T) {
	cases := []struct {
		name     string
		value    any
		sentinel error
		message  string
	}{
		{"valid deposit", core.Deposit{GoalID: 1, Wallet: core.Cash, Amount: 10}, nil, ""},
		{"zero amount", core.Deposit{GoalID: 1, Wallet: core.Cash}, core.ErrInvalidAmount, "amount must be greater than 0"},
		{"missing goal", core.Deposit{Wallet: core.Bank, Amount: 5}, core.ErrEmptyField, "goal must be greater than 0"},
		{"bad wallet", core.Deposit{GoalID: 1, Wallet: "Dompet", Amount: 5}, core.ErrEmptyField, "wallet must be one of: Cash E-Wallet Bank"},
		{"same wallet", core.Transfer{Source: core.Cash, Target: core.Cash, Amount: 5}, core.ErrSameWallet, "source and target wallet must be different"},
		{"goal without title", core.GoalDraft{Target: 10, Deadline: "2027-01-01", Priority: core.P1}, core.ErrEmptyField, "title is required"},
		{"goal bad priority", core.GoalDraft{Title: "x", Target: 10, Deadline: "2027-01-01", Priority: "P9"}, core.ErrEmptyField, "priority must be one of: P1 P2 P3"},
		{"goal zero target", core.GoalDraft{Title: "x", Deadline: "2027-01-01", Priority: core.P2}, core.ErrInvalidAmount, "target must be greater than 0"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := check(tc.value)
			if tc.sentinel == nil {
				if err != nil {
					t.Fatalf("unexpected error %v", err)
				}
				return
			}
			if core.KindOf(err) != core.KindValidation || !errors.Is(err, tc.sentinel) {
				t.Fatalf("err = %v, want validation wrapping %v", err, tc.sentinel)
			}
			if core.Message(err) != tc.message {
				t.Fatalf("message = %q, want %q", core.Message(err), tc.message)
			}
		})
	}
}
