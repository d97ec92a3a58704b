// Package gateway defines the ports to the remote ledger service.
package gateway

import (
	"context"

	"dompet/internal/core"
)

// Ports for outbound adapters.
type (
	Authenticator interface {
		// Login exchanges signed launch data for a session.
		Login(ctx context.Context, initData string) error
	}

	SnapshotReader interface {
		// FetchSnapshot returns the dashboard state and the most recent
		// transactions, newest first.
		FetchSnapshot(ctx context.Context) (core.Snapshot, []core.Transaction, error)
	}

	GoalReader interface {
		ListGoals(ctx context.Context) ([]core.Goal, error)
	}

	GoalWriter interface {
		CreateGoal(ctx context.Context, g core.GoalDraft) error
		EditGoal(ctx context.Context, g core.Goal) error
		DeleteGoal(ctx context.Context, id int64) error
		DepositToGoal(ctx context.Context, d core.Deposit) error
	}

	// Advisor proposes savings moves based on this month's cash flow.
	Advisor interface {
		OptimizeGoals(ctx context.Context) (core.Advice, error)
	}

	TransactionWriter interface {
		// AddTransaction returns the number of transactions recorded.
		AddTransaction(ctx context.Context, e core.Entry) (int, error)
		EditTransaction(ctx context.Context, e core.TransactionEdit) error
		DeleteTransaction(ctx context.Context, id int64) error
		TransferBalance(ctx context.Context, t core.Transfer) error
	}

	AccountWriter interface {
		SetBudget(ctx context.Context, amount int64) error
		ResetData(ctx context.Context) error
		SendFeedback(ctx context.Context, message string) error
	}

	Exporter interface {
		ExportLedger(ctx context.Context) ([]byte, error)
		ExportFeedback(ctx context.Context) ([]byte, error)
	}

	// Gateway is the full remote surface consumed by the client core.
	Gateway interface {
		Authenticator
		SnapshotReader
		GoalReader
		GoalWriter
		Advisor
		TransactionWriter
		AccountWriter
		Exporter
	}
)
