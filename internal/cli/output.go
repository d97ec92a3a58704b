package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/subcommands"

	"dompet/internal/core"
	"dompet/internal/services"
)

var (
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#a6e3a1"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#f9e2af"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#f38ba8")).Bold(true)
	hintStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#89b4fa")).Italic(true)
)

// Printer writes view markdown and status lines for a terminal.
type Printer struct {
	out    io.Writer
	errOut io.Writer
	term   *glamour.TermRenderer
}

// NewPrinter renders markdown through glamour when styled is true and
// prints it verbatim otherwise.
func NewPrinter(out, errOut io.Writer, styled bool) *Printer {
	p := &Printer{out: out, errOut: errOut}
	if styled {
		r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(100))
		if err == nil {
			p.term = r
		}
	}
	return p
}

// Markdown prints one rendered view.
func (p *Printer) Markdown(src string) {
	if p.term != nil {
		if s, err := p.term.Render(src); err == nil {
			fmt.Fprint(p.out, s)
			return
		}
	}
	fmt.Fprintln(p.out, src)
}

func (p *Printer) Success(msg string) {
	fmt.Fprintln(p.out, successStyle.Render(msg))
}

func (p *Printer) Warn(msg string) {
	fmt.Fprintln(p.errOut, warningStyle.Render(msg))
}

// Fail reports err by kind and returns the matching exit status. A save
// whose follow-up refresh failed is a warning, not a failure.
func (p *Printer) Fail(err error) subcommands.ExitStatus {
	if errors.Is(err, services.ErrRefreshAfterSave) {
		p.Warn("Saved, but the data could not be refreshed. Run `dompet view` to retry.")
		return subcommands.ExitSuccess
	}
	switch core.KindOf(err) {
	case core.KindUpgradeRequired:
		fmt.Fprintln(p.errOut, errorStyle.Render(core.Message(err)))
		fmt.Fprintln(p.errOut, hintStyle.Render(fmt.Sprintf("Run `dompet upgrade -feature %q` to request Pro access.", core.FeatureOf(err))))
	case core.KindValidation, core.KindBusiness:
		fmt.Fprintln(p.errOut, errorStyle.Render(core.Message(err)))
	default:
		fmt.Fprintln(p.errOut, errorStyle.Render("Error: "+err.Error()))
	}
	return subcommands.ExitFailure
}
