package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/subcommands"

	"dompet/internal/core"
	"dompet/internal/render"
)

// amountArg parses a rupiah amount given on the command line. An empty
// value is zero and left to validation.
func amountArg(name, v string) (int64, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, nil
	}
	n, err := core.ParseAmount(v)
	if err != nil {
		return 0, core.ValidationError(fmt.Sprintf("-%s must be a number", name), core.ErrInvalidAmount)
	}
	return n, nil
}

func walletArg(v string) core.Wallet {
	if strings.TrimSpace(v) == "" {
		return ""
	}
	return core.NormalizeWallet(v)
}

// readMedia loads a voice note or receipt picture from disk.
func readMedia(path string) (*core.Media, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, core.ValidationError(fmt.Sprintf("cannot open %s", path), err)
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, 10<<20))
	if err != nil {
		return nil, core.ValidationError(fmt.Sprintf("cannot read %s", path), err)
	}
	ctype := mime.TypeByExtension(filepath.Ext(path))
	if ctype == "" {
		ctype = http.DetectContentType(data)
	}
	return &core.Media{Name: filepath.Base(path), ContentType: ctype, Data: data}, nil
}

type addCmd struct {
	env         *Env
	txType      string
	amount      string
	category    string
	wallet      string
	description string
	text        string
	voice       string
	image       string
}

func (*addCmd) Name() string     { return "add" }
func (*addCmd) Synopsis() string { return "Record a transaction." }
func (*addCmd) Usage() string {
	return `add -amount N -category C -wallet W -desc D [-type OUT|IN]
add -text "makan siang 25rb, parkir 5rb"
add -voice note.ogg
add -image receipt.jpg

Records one transaction manually, or lets the ledger service parse text,
a voice note or a receipt picture into one or more transactions.
`
}

func (c *addCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.txType, "type", "OUT", "OUT for expenses, IN for income")
	f.StringVar(&c.amount, "amount", "", "amount in rupiah")
	f.StringVar(&c.category, "category", core.CategoryOther, "category")
	f.StringVar(&c.wallet, "wallet", "Cash", "Cash, E-Wallet or Bank")
	f.StringVar(&c.description, "desc", "", "description")
	f.StringVar(&c.text, "text", "", "free text to parse")
	f.StringVar(&c.voice, "voice", "", "voice note file")
	f.StringVar(&c.image, "image", "", "receipt picture file")
}

func (c *addCmd) entry() (core.Entry, error) {
	switch {
	case c.voice != "":
		m, err := readMedia(c.voice)
		return core.Entry{Mode: core.ModeVoice, Media: m}, err
	case c.image != "":
		m, err := readMedia(c.image)
		return core.Entry{Mode: core.ModeImage, Media: m}, err
	case c.text != "":
		return core.Entry{Mode: core.ModeText, Text: c.text}, nil
	}
	amount, err := amountArg("amount", c.amount)
	if err != nil {
		return core.Entry{}, err
	}
	return core.Entry{
		Mode:        core.ModeManual,
		Type:        core.TxType(strings.ToUpper(c.txType)),
		Amount:      amount,
		Category:    c.category,
		Wallet:      walletArg(c.wallet),
		Description: c.description,
	}, nil
}

func (c *addCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	e, err := c.entry()
	if err != nil {
		return c.env.Out.Fail(err)
	}
	app, err := c.env.App(ctx)
	if err != nil {
		return c.env.Out.Fail(err)
	}
	res, err := app.Entries.AddTransaction(ctx, e)
	if err != nil {
		return c.env.Out.Fail(err)
	}
	if res.Count > 1 {
		c.env.Out.Success(fmt.Sprintf("%d transactions saved", res.Count))
	} else {
		c.env.Out.Success("Transaction saved")
	}
	return printViews(c.env, app, render.Dashboard)
}

type transferCmd struct {
	env      *Env
	from, to string
	amount   string
}

func (*transferCmd) Name() string     { return "transfer" }
func (*transferCmd) Synopsis() string { return "Move money between wallets." }
func (*transferCmd) Usage() string {
	return `transfer -from W -to W -amount N
`
}

func (c *transferCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.from, "from", "", "source wallet")
	f.StringVar(&c.to, "to", "", "target wallet")
	f.StringVar(&c.amount, "amount", "", "amount in rupiah")
}

func (c *transferCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	amount, err := amountArg("amount", c.amount)
	if err != nil {
		return c.env.Out.Fail(err)
	}
	app, err := c.env.App(ctx)
	if err != nil {
		return c.env.Out.Fail(err)
	}
	t := core.Transfer{Source: walletArg(c.from), Target: walletArg(c.to), Amount: amount}
	if _, err := app.Entries.Transfer(ctx, t); err != nil {
		return c.env.Out.Fail(err)
	}
	c.env.Out.Success("Transfer saved")
	return printViews(c.env, app, render.Dashboard)
}

type depositCmd struct {
	env    *Env
	goal   int64
	wallet string
	amount string
}

func (*depositCmd) Name() string     { return "deposit" }
func (*depositCmd) Synopsis() string { return "Save money towards a goal." }
func (*depositCmd) Usage() string {
	return `deposit -goal ID -wallet W -amount N
`
}

func (c *depositCmd) SetFlags(f *flag.FlagSet) {
	f.Int64Var(&c.goal, "goal", 0, "goal id")
	f.StringVar(&c.wallet, "wallet", "", "wallet to take the money from")
	f.StringVar(&c.amount, "amount", "", "amount in rupiah")
}

func (c *depositCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	amount, err := amountArg("amount", c.amount)
	if err != nil {
		return c.env.Out.Fail(err)
	}
	app, err := c.env.App(ctx)
	if err != nil {
		return c.env.Out.Fail(err)
	}
	dep := core.Deposit{GoalID: c.goal, Wallet: walletArg(c.wallet), Amount: amount}
	if _, err := app.Goals.Deposit(ctx, dep); err != nil {
		return c.env.Out.Fail(err)
	}
	c.env.Out.Success("Deposit saved")
	return printViews(c.env, app, render.Goals)
}

type budgetCmd struct {
	env    *Env
	amount string
}

func (*budgetCmd) Name() string     { return "budget" }
func (*budgetCmd) Synopsis() string { return "Set the monthly spending limit." }
func (*budgetCmd) Usage() string {
	return `budget -amount N

An amount of 0 clears the budget.
`
}

func (c *budgetCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.amount, "amount", "", "monthly limit in rupiah")
}

func (c *budgetCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	amount, err := amountArg("amount", c.amount)
	if err != nil {
		return c.env.Out.Fail(err)
	}
	app, err := c.env.App(ctx)
	if err != nil {
		return c.env.Out.Fail(err)
	}
	if _, err := app.Entries.SetBudget(ctx, amount); err != nil {
		return c.env.Out.Fail(err)
	}
	c.env.Out.Success("Budget saved")
	return printViews(c.env, app, render.Dashboard)
}

type goalCmd struct {
	env      *Env
	id       int64
	delete   bool
	title    string
	target   string
	deadline string
	priority string
}

func (*goalCmd) Name() string     { return "goal" }
func (*goalCmd) Synopsis() string { return "Create, edit or delete a savings goal." }
func (*goalCmd) Usage() string {
	return `goal -title T -target N -deadline YYYY-MM-DD [-priority P1|P2|P3]
goal -id ID [-title T] [-target N] [-deadline D] [-priority P]
goal -id ID -delete

Fields left out of an edit keep their current value.
`
}

func (c *goalCmd) SetFlags(f *flag.FlagSet) {
	f.Int64Var(&c.id, "id", 0, "goal id to edit or delete")
	f.BoolVar(&c.delete, "delete", false, "delete the goal")
	f.StringVar(&c.title, "title", "", "title")
	f.StringVar(&c.target, "target", "", "target amount in rupiah")
	f.StringVar(&c.deadline, "deadline", "", "deadline, YYYY-MM-DD")
	f.StringVar(&c.priority, "priority", "", "P1, P2 or P3")
}

func (c *goalCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	target, err := amountArg("target", c.target)
	if err != nil {
		return c.env.Out.Fail(err)
	}
	if c.delete && c.id == 0 {
		fmt.Fprintln(c.env.Out.errOut, "-delete needs -id")
		return subcommands.ExitUsageError
	}
	app, err := c.env.App(ctx)
	if err != nil {
		return c.env.Out.Fail(err)
	}
	priority := core.Priority(strings.ToUpper(c.priority))

	var msg string
	switch {
	case c.delete:
		_, err = app.Goals.DeleteGoal(ctx, c.id)
		msg = "Goal deleted"
	case c.id != 0:
		g, ok := app.Session.State().Goal(c.id)
		if !ok {
			return c.env.Out.Fail(core.ValidationError(fmt.Sprintf("goal %d not found", c.id), core.ErrNotFound))
		}
		if c.title != "" {
			g.Title = c.title
		}
		if target > 0 {
			g.Target = target
		}
		if c.deadline != "" {
			g.Deadline = c.deadline
		}
		if priority != "" {
			g.Priority = priority
		}
		_, err = app.Goals.EditGoal(ctx, g)
		msg = "Goal updated"
	default:
		if priority == "" {
			priority = core.P2
		}
		_, err = app.Goals.CreateGoal(ctx, core.GoalDraft{Title: c.title, Target: target, Deadline: c.deadline, Priority: priority})
		msg = fmt.Sprintf("Goal %q created", c.title)
	}
	if err != nil {
		return c.env.Out.Fail(err)
	}
	c.env.Out.Success(msg)
	return printViews(c.env, app, render.Goals)
}

type txCmd struct {
	env         *Env
	id          int64
	delete      bool
	amount      string
	category    string
	wallet      string
	description string
}

func (*txCmd) Name() string     { return "tx" }
func (*txCmd) Synopsis() string { return "Edit or delete a recent transaction." }
func (*txCmd) Usage() string {
	return `tx -id ID [-amount N] [-category C] [-wallet W] [-desc D]
tx -id ID -delete

Only transactions in the recent history can be changed. Fields left out
keep their current value.
`
}

func (c *txCmd) SetFlags(f *flag.FlagSet) {
	f.Int64Var(&c.id, "id", 0, "transaction id")
	f.BoolVar(&c.delete, "delete", false, "delete the transaction")
	f.StringVar(&c.amount, "amount", "", "amount in rupiah")
	f.StringVar(&c.category, "category", "", "category")
	f.StringVar(&c.wallet, "wallet", "", "Cash, E-Wallet or Bank")
	f.StringVar(&c.description, "desc", "", "description")
}

func (c *txCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.id == 0 {
		fmt.Fprintln(c.env.Out.errOut, "-id is required")
		return subcommands.ExitUsageError
	}
	amount, err := amountArg("amount", c.amount)
	if err != nil {
		return c.env.Out.Fail(err)
	}
	app, err := c.env.App(ctx)
	if err != nil {
		return c.env.Out.Fail(err)
	}
	if c.delete {
		if _, err := app.Entries.DeleteTransaction(ctx, c.id); err != nil {
			return c.env.Out.Fail(err)
		}
		c.env.Out.Success("Transaction deleted")
		return printViews(c.env, app, render.History)
	}

	tx, ok := app.Session.State().Transaction(c.id)
	if !ok {
		return c.env.Out.Fail(core.ValidationError(fmt.Sprintf("transaction %d not found", c.id), core.ErrNotFound))
	}
	e := core.TransactionEdit{ID: tx.ID, Amount: tx.Amount, Category: tx.Category, Wallet: tx.Wallet, Description: tx.Description}
	if amount > 0 {
		e.Amount = amount
	}
	if c.category != "" {
		e.Category = c.category
	}
	if w := walletArg(c.wallet); w != "" {
		e.Wallet = w
	}
	if c.description != "" {
		e.Description = c.description
	}
	if _, err := app.Entries.EditTransaction(ctx, e); err != nil {
		return c.env.Out.Fail(err)
	}
	c.env.Out.Success("Transaction updated")
	return printViews(c.env, app, render.History)
}

type exportCmd struct {
	env      *Env
	output   string
	feedback bool
}

func (*exportCmd) Name() string     { return "export" }
func (*exportCmd) Synopsis() string { return "Download the ledger or the feedback log." }
func (*exportCmd) Usage() string {
	return `export [-o file] [-feedback]

Writes to standard output when -o is not given. -feedback exports user
feedback and needs admin access.
`
}

func (c *exportCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.output, "o", "", "output file")
	f.BoolVar(&c.feedback, "feedback", false, "export feedback instead of the ledger")
}

func (c *exportCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	app, err := c.env.App(ctx)
	if err != nil {
		return c.env.Out.Fail(err)
	}
	var b []byte
	if c.feedback {
		b, err = app.Entries.ExportFeedback(ctx)
	} else {
		b, err = app.Entries.ExportLedger(ctx)
	}
	if err != nil {
		return c.env.Out.Fail(err)
	}
	if c.output == "" {
		_, _ = c.env.Out.out.Write(b)
		return subcommands.ExitSuccess
	}
	if err := os.WriteFile(c.output, b, 0o644); err != nil {
		return c.env.Out.Fail(err)
	}
	c.env.Out.Success(fmt.Sprintf("Saved %s", c.output))
	return subcommands.ExitSuccess
}

type feedbackCmd struct {
	env     *Env
	message string
}

func (*feedbackCmd) Name() string     { return "feedback" }
func (*feedbackCmd) Synopsis() string { return "Send feedback to the developers." }
func (*feedbackCmd) Usage() string {
	return `feedback -m "message"
`
}

func (c *feedbackCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.message, "m", "", "message")
}

func (c *feedbackCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	app, err := c.env.App(ctx)
	if err != nil {
		return c.env.Out.Fail(err)
	}
	if err := app.Entries.SendFeedback(ctx, c.message); err != nil {
		return c.env.Out.Fail(err)
	}
	c.env.Out.Success("Thanks for the feedback")
	return subcommands.ExitSuccess
}

type upgradeCmd struct {
	env     *Env
	feature string
}

func (*upgradeCmd) Name() string     { return "upgrade" }
func (*upgradeCmd) Synopsis() string { return "Request a Pro plan." }
func (*upgradeCmd) Usage() string {
	return `upgrade [-feature name]
`
}

func (c *upgradeCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.feature, "feature", "subscription", "feature that prompted the request")
}

func (c *upgradeCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	app, err := c.env.App(ctx)
	if err != nil {
		return c.env.Out.Fail(err)
	}
	if err := app.Entries.RequestUpgrade(ctx, c.feature); err != nil {
		return c.env.Out.Fail(err)
	}
	c.env.Out.Success("Upgrade requested, we will contact you shortly")
	return subcommands.ExitSuccess
}

type resetCmd struct {
	env *Env
	yes bool
}

func (*resetCmd) Name() string     { return "reset" }
func (*resetCmd) Synopsis() string { return "Delete every transaction." }
func (*resetCmd) Usage() string {
	return `reset -yes

This cannot be undone.
`
}

func (c *resetCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.yes, "yes", false, "confirm the reset")
}

func (c *resetCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if !c.yes {
		c.env.Out.Warn("Refusing to delete every transaction without -yes")
		return subcommands.ExitUsageError
	}
	app, err := c.env.App(ctx)
	if err != nil {
		return c.env.Out.Fail(err)
	}
	if _, err := app.Entries.ResetData(ctx); err != nil {
		return c.env.Out.Fail(err)
	}
	c.env.Out.Success("All transactions deleted")
	return printViews(c.env, app, render.Dashboard)
}
