package services

import (
	"context"
	"fmt"

	"dompet/internal/core"
	"dompet/internal/gateway"
	"dompet/internal/log"
	"dompet/internal/privacy"
	"dompet/internal/session"
)

// EntryGateway is the part of the ledger service that records and exports
// transactions.
type EntryGateway interface {
	gateway.TransactionWriter
	gateway.AccountWriter
	gateway.Exporter
}

// UpgradeNotifier relays upgrade requests to the operators.
type UpgradeNotifier interface {
	RequestUpgrade(ctx context.Context, req core.UpgradeRequest) error
}

// EntryService validates and submits ledger mutations. Every accepted
// mutation is followed by a full refresh; nothing is applied locally first.
type EntryService struct {
	gw       EntryGateway
	sess     *session.Session
	notifier UpgradeNotifier
	logger   *log.Logger
}

func NewEntryService(gw EntryGateway, sess *session.Session, notifier UpgradeNotifier, logger *log.Logger) *EntryService {
	if logger == nil {
		logger = log.Nop()
	}
	return &EntryService{
		gw:       gw,
		sess:     sess,
		notifier: notifier,
		logger:   logger.WithComponent(log.ComponentEntry),
	}
}

// AddResult reports how many transactions the service recorded.
type AddResult struct {
	Count int
	Frame session.Frame
}

// AddTransaction submits an entry. Voice and image entries are gated by
// tier before anything else is checked.
func (s *EntryService) AddTransaction(ctx context.Context, e core.Entry) (AddResult, error) {
	st := s.sess.State()
	caps := core.CapabilitiesFor(st.Snapshot.Tier)

	if !e.Mode.Valid() {
		return AddResult{Frame: s.sess.Frame()}, core.ValidationError(fmt.Sprintf("unknown entry mode %q", e.Mode), core.ErrEmptyField)
	}
	if f := e.Mode.Feature(); f != "" && !caps.Allows(f) {
		return AddResult{Frame: s.sess.Frame()}, core.UpgradeRequired(f)
	}

	switch e.Mode {
	case core.ModeManual:
		m := e.Manual()
		if err := check(m); err != nil {
			return AddResult{Frame: s.sess.Frame()}, err
		}
		if blank(m.Description) {
			return AddResult{Frame: s.sess.Frame()}, core.ValidationError("description is required", core.ErrEmptyField)
		}
		if m.Type == core.Out && m.Amount > st.Snapshot.Balance(m.Wallet) {
			msg := fmt.Sprintf("%s balance is not enough (left: %s)", m.Wallet, privacy.State{}.Format(st.Snapshot.Balance(m.Wallet), true))
			return AddResult{Frame: s.sess.Frame()}, core.ValidationError(msg, core.ErrInsufficientBalance)
		}
		e.Type, e.Amount, e.Category, e.Wallet, e.Description = m.Type, m.Amount, m.Category, m.Wallet, m.Description
	case core.ModeText:
		if blank(e.Text) {
			return AddResult{Frame: s.sess.Frame()}, core.ValidationError("text is required", core.ErrEmptyField)
		}
	case core.ModeVoice, core.ModeImage:
		if e.Media == nil || len(e.Media.Data) == 0 {
			return AddResult{Frame: s.sess.Frame()}, core.ValidationError(fmt.Sprintf("%s entry needs a file", e.Mode), core.ErrEmptyField)
		}
	}

	n, err := s.gw.AddTransaction(ctx, e)
	if err != nil {
		s.logger.WarnContext(ctx, "add transaction failed", log.FieldMode, e.Mode, log.FieldError, err)
		return AddResult{Frame: s.sess.Frame()}, fmt.Errorf("add transaction: %w", err)
	}
	s.logger.InfoContext(ctx, "transactions recorded", log.FieldMode, e.Mode, log.FieldCount, n)
	f, err := s.refresh(ctx)
	return AddResult{Count: n, Frame: f}, err
}

// EditTransaction changes a transaction from the cached recent list.
func (s *EntryService) EditTransaction(ctx context.Context, e core.TransactionEdit) (session.Frame, error) {
	if err := check(e); err != nil {
		return s.sess.Frame(), err
	}
	if _, ok := s.sess.State().Transaction(e.ID); !ok {
		return s.sess.Frame(), core.ValidationError(fmt.Sprintf("transaction %d not found", e.ID), core.ErrNotFound)
	}
	if err := s.gw.EditTransaction(ctx, e); err != nil {
		return s.sess.Frame(), fmt.Errorf("edit transaction: %w", err)
	}
	return s.refresh(ctx)
}

func (s *EntryService) DeleteTransaction(ctx context.Context, id int64) (session.Frame, error) {
	if _, ok := s.sess.State().Transaction(id); !ok {
		return s.sess.Frame(), core.ValidationError(fmt.Sprintf("transaction %d not found", id), core.ErrNotFound)
	}
	if err := s.gw.DeleteTransaction(ctx, id); err != nil {
		return s.sess.Frame(), fmt.Errorf("delete transaction: %w", err)
	}
	return s.refresh(ctx)
}

// Transfer moves money between two different wallets.
func (s *EntryService) Transfer(ctx context.Context, t core.Transfer) (session.Frame, error) {
	if err := check(t); err != nil {
		return s.sess.Frame(), err
	}
	if err := s.gw.TransferBalance(ctx, t); err != nil {
		return s.sess.Frame(), fmt.Errorf("transfer: %w", err)
	}
	s.logger.InfoContext(ctx, "transfer saved",
		log.NewFields().WithOperation(log.OpTransfer).WithMovement(t.Source, t.Amount).ToSlice()...)
	return s.refresh(ctx)
}

// SetBudget sets the monthly budget limit. Zero clears it.
func (s *EntryService) SetBudget(ctx context.Context, amount int64) (session.Frame, error) {
	if !s.sess.Capabilities().CanBudget {
		return s.sess.Frame(), core.UpgradeRequired(core.FeatureBudget)
	}
	if amount < 0 {
		return s.sess.Frame(), core.ValidationError("budget cannot be negative", core.ErrInvalidAmount)
	}
	if err := s.gw.SetBudget(ctx, amount); err != nil {
		return s.sess.Frame(), fmt.Errorf("set budget: %w", err)
	}
	return s.refresh(ctx)
}

// ResetData deletes every transaction of the account.
func (s *EntryService) ResetData(ctx context.Context) (session.Frame, error) {
	if err := s.gw.ResetData(ctx); err != nil {
		return s.sess.Frame(), fmt.Errorf("reset data: %w", err)
	}
	s.logger.WarnContext(ctx, "account data reset")
	return s.refresh(ctx)
}

// SendFeedback is offered to tiers that show the feedback form.
func (s *EntryService) SendFeedback(ctx context.Context, message string) error {
	if !s.sess.Capabilities().ShowFeedback {
		return core.ValidationError("feedback is not available for this plan", nil)
	}
	if blank(message) {
		return core.ValidationError("message is required", core.ErrEmptyField)
	}
	if err := s.gw.SendFeedback(ctx, message); err != nil {
		return fmt.Errorf("send feedback: %w", err)
	}
	return nil
}

// ExportLedger downloads the spreadsheet export. The bytes are opaque.
func (s *EntryService) ExportLedger(ctx context.Context) ([]byte, error) {
	b, err := s.gw.ExportLedger(ctx)
	if err != nil {
		return nil, fmt.Errorf("export ledger: %w", err)
	}
	s.logger.InfoContext(ctx, "ledger exported", log.FieldOperation, log.OpExport, log.FieldCount, len(b))
	return b, nil
}

// ExportFeedback downloads collected feedback. Admin only.
func (s *EntryService) ExportFeedback(ctx context.Context) ([]byte, error) {
	if !s.sess.Capabilities().ShowAdminPanel {
		return nil, core.ValidationError("admin access required", nil)
	}
	b, err := s.gw.ExportFeedback(ctx)
	if err != nil {
		return nil, fmt.Errorf("export feedback: %w", err)
	}
	return b, nil
}

// RequestUpgrade asks the operators to upgrade the account, naming the
// feature that prompted it.
func (s *EntryService) RequestUpgrade(ctx context.Context, feature string) error {
	snap := s.sess.State().Snapshot
	if s.notifier == nil {
		s.logger.WarnContext(ctx, "upgrade notifier not configured, dropping request", log.FieldFeature, feature)
		return core.BusinessError("request upgrade", "upgrade requests are unavailable right now")
	}
	req := core.UpgradeRequest{UserID: snap.UserID, Tier: snap.Tier, Feature: feature}
	if err := s.notifier.RequestUpgrade(ctx, req); err != nil {
		return core.ConnectivityError("request upgrade", err)
	}
	return nil
}

func (s *EntryService) refresh(ctx context.Context) (session.Frame, error) {
	f, err := s.sess.Refresh(ctx)
	if err != nil {
		return f, fmt.Errorf("%w: %w", ErrRefreshAfterSave, err)
	}
	return f, nil
}
