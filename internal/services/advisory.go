package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"dompet/internal/core"
	"dompet/internal/gateway"
	"dompet/internal/log"
	"dompet/internal/render"
	"dompet/internal/session"
)

// ErrRefreshAfterSave marks a mutation the ledger service accepted whose
// follow-up refresh failed. The displayed data is stale until the next
// refresh.
var ErrRefreshAfterSave = errors.New("saved, but refresh failed")

// GoalGateway is the part of the ledger service used for goals.
type GoalGateway interface {
	gateway.Advisor
	gateway.GoalWriter
}

// GoalController drives the optimize-goals cycle (request advice, reveal
// the suggested amount, execute the deposit, refresh) and goal CRUD.
type GoalController struct {
	gw     GoalGateway
	sess   *session.Session
	logger *log.Logger

	mu        sync.Mutex
	phase     core.AdvicePhase
	advice    core.Advice
	errMsg    string
	revealID  string
	request   uint64
	executing bool
}

func NewGoalController(gw GoalGateway, sess *session.Session, logger *log.Logger) *GoalController {
	if logger == nil {
		logger = log.Nop()
	}
	return &GoalController{
		gw:     gw,
		sess:   sess,
		logger: logger.WithComponent(log.ComponentAdvisory),
		phase:  core.PhaseIdle,
	}
}

// Cycle returns the current advisory state.
func (c *GoalController) Cycle() render.AdvisoryInput {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *GoalController) snapshotLocked() render.AdvisoryInput {
	return render.AdvisoryInput{
		Phase:    c.phase,
		Advice:   c.advice,
		Error:    c.errMsg,
		RevealID: c.revealID,
	}
}

// publish pushes the state to the session so the advisory view re-renders.
func (c *GoalController) publish() session.Frame {
	c.mu.Lock()
	in := c.snapshotLocked()
	c.mu.Unlock()
	return c.sess.SetAdvisory(in)
}

// Optimize asks the advisory service for suggestions. A request started
// later supersedes one still in flight.
func (c *GoalController) Optimize(ctx context.Context) (session.Frame, error) {
	c.mu.Lock()
	c.request++
	req := c.request
	c.phase = core.PhaseRequesting
	c.advice = core.Advice{}
	c.errMsg = ""
	c.revealID = ""
	c.mu.Unlock()
	c.publish()

	adv, err := c.gw.OptimizeGoals(ctx)

	c.mu.Lock()
	if req != c.request {
		c.mu.Unlock()
		c.logger.DebugContext(ctx, "discarding superseded advice")
		return c.sess.Frame(), nil
	}
	switch {
	case err != nil:
		c.phase = core.PhaseFailed
		c.errMsg = core.Message(err)
	case adv.HasAction():
		c.phase = core.PhaseSuggested
		c.advice = adv
	default:
		c.phase = core.PhaseNoAction
		c.advice = adv
	}
	phase := c.phase
	c.mu.Unlock()

	if err != nil {
		c.logger.WarnContext(ctx, "optimize failed", log.FieldOperation, log.OpOptimize, log.FieldError, err)
	} else {
		c.logger.InfoContext(ctx, "advice received", log.FieldPhase, phase)
	}
	return c.publish(), err
}

// Reveal shows the suggested amount for the reveal duration. Revealing again
// while the amount is showing keeps the running reveal.
func (c *GoalController) Reveal() (session.Frame, error) {
	c.mu.Lock()
	if c.phase != core.PhaseSuggested || !c.advice.HasAction() {
		c.mu.Unlock()
		return c.sess.Frame(), core.ValidationError("there is no suggestion to reveal", core.ErrNoSuggestion)
	}
	amount := c.advice.Action.Amount
	current := c.revealID
	c.mu.Unlock()

	if r, ok := c.sess.ActiveReveal(current); ok && r.Amount == amount {
		return c.publish(), nil
	}
	r := c.sess.Reveal(amount)

	c.mu.Lock()
	c.revealID = r.ID
	c.mu.Unlock()
	return c.publish(), nil
}

// Dismiss closes the advisory result without acting.
func (c *GoalController) Dismiss() session.Frame {
	c.mu.Lock()
	c.request++
	c.resetLocked()
	c.mu.Unlock()
	return c.publish()
}

func (c *GoalController) resetLocked() {
	c.phase = core.PhaseIdle
	c.advice = core.Advice{}
	c.errMsg = ""
	c.revealID = ""
}

// Execute deposits exactly the suggested goal, wallet and amount, then
// refreshes the snapshot and goals once. The cycle returns to idle after the
// refresh, or right away when the deposit fails.
func (c *GoalController) Execute(ctx context.Context) (session.Frame, error) {
	c.mu.Lock()
	if c.phase != core.PhaseSuggested || !c.advice.HasAction() {
		c.mu.Unlock()
		return c.sess.Frame(), core.ValidationError("there is no suggestion to execute", core.ErrNoSuggestion)
	}
	if c.executing {
		c.mu.Unlock()
		return c.sess.Frame(), core.ValidationError("a deposit is already in progress", nil)
	}
	act := *c.advice.Action
	c.executing = true
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.executing = false
		c.mu.Unlock()
	}()

	dep := core.Deposit{GoalID: act.GoalID, Wallet: act.Wallet, Amount: act.Amount}
	if err := c.deposit(ctx, dep); err != nil {
		return c.finish(), err
	}
	_, err := c.refreshAll(ctx)
	return c.finish(), err
}

// finish ends an execute and publishes the idle cycle.
func (c *GoalController) finish() session.Frame {
	c.mu.Lock()
	c.request++
	c.resetLocked()
	c.mu.Unlock()
	return c.publish()
}

// Deposit adds money to a goal from a wallet and refreshes.
func (c *GoalController) Deposit(ctx context.Context, dep core.Deposit) (session.Frame, error) {
	if err := check(dep); err != nil {
		return c.sess.Frame(), err
	}
	if _, ok := c.sess.State().Goal(dep.GoalID); !ok {
		return c.sess.Frame(), core.ValidationError(fmt.Sprintf("goal %d not found", dep.GoalID), core.ErrNotFound)
	}
	if err := c.deposit(ctx, dep); err != nil {
		return c.sess.Frame(), err
	}
	return c.refreshAll(ctx)
}

func (c *GoalController) deposit(ctx context.Context, dep core.Deposit) error {
	if err := check(dep); err != nil {
		return err
	}
	if err := c.gw.DepositToGoal(ctx, dep); err != nil {
		c.logger.WarnContext(ctx, "deposit rejected",
			log.NewFields().WithOperation(log.OpDeposit).WithMovement(dep.Wallet, dep.Amount).WithError(err).ToSlice()...)
		return fmt.Errorf("deposit to goal %d: %w", dep.GoalID, err)
	}
	c.logger.InfoContext(ctx, "deposit saved", log.FieldGoalID, dep.GoalID, log.FieldWallet, dep.Wallet)
	return nil
}

func (c *GoalController) refreshAll(ctx context.Context) (session.Frame, error) {
	f, err := c.sess.Refresh(ctx)
	if err != nil {
		return f, fmt.Errorf("%w: %w", ErrRefreshAfterSave, err)
	}
	return f, nil
}

// CreateGoal stores a new goal and reloads the goal list.
func (c *GoalController) CreateGoal(ctx context.Context, d core.GoalDraft) (session.Frame, error) {
	if err := validateDraft(d); err != nil {
		return c.sess.Frame(), err
	}
	if err := c.gw.CreateGoal(ctx, d); err != nil {
		return c.sess.Frame(), fmt.Errorf("create goal: %w", err)
	}
	c.logger.InfoContext(ctx, "goal created", log.FieldOperation, log.OpCreate)
	return c.refreshGoals(ctx)
}

// EditGoal updates title, target, deadline and priority of a cached goal.
func (c *GoalController) EditGoal(ctx context.Context, g core.Goal) (session.Frame, error) {
	if _, ok := c.sess.State().Goal(g.ID); !ok {
		return c.sess.Frame(), core.ValidationError(fmt.Sprintf("goal %d not found", g.ID), core.ErrNotFound)
	}
	d := core.GoalDraft{Title: g.Title, Target: g.Target, Deadline: g.Deadline, Priority: g.Priority}
	if err := validateDraft(d); err != nil {
		return c.sess.Frame(), err
	}
	if err := c.gw.EditGoal(ctx, g); err != nil {
		return c.sess.Frame(), fmt.Errorf("edit goal: %w", err)
	}
	c.logger.InfoContext(ctx, "goal updated", log.FieldOperation, log.OpUpdate, log.FieldGoalID, g.ID)
	return c.refreshGoals(ctx)
}

func (c *GoalController) DeleteGoal(ctx context.Context, id int64) (session.Frame, error) {
	if _, ok := c.sess.State().Goal(id); !ok {
		return c.sess.Frame(), core.ValidationError(fmt.Sprintf("goal %d not found", id), core.ErrNotFound)
	}
	if err := c.gw.DeleteGoal(ctx, id); err != nil {
		return c.sess.Frame(), fmt.Errorf("delete goal: %w", err)
	}
	c.logger.InfoContext(ctx, "goal deleted", log.FieldOperation, log.OpDelete, log.FieldGoalID, id)
	return c.refreshGoals(ctx)
}

func (c *GoalController) refreshGoals(ctx context.Context) (session.Frame, error) {
	f, err := c.sess.RefreshGoals(ctx)
	if err != nil {
		return f, fmt.Errorf("%w: %w", ErrRefreshAfterSave, err)
	}
	return f, nil
}

func validateDraft(d core.GoalDraft) error {
	if err := check(d); err != nil {
		return err
	}
	if blank(d.Title, d.Deadline) {
		return core.ValidationError("title and deadline are required", core.ErrEmptyField)
	}
	return nil
}
