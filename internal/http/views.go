package http

import (
	"bytes"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"dompet/internal/core"
	"dompet/internal/log"
	"dompet/internal/render"
	"dompet/internal/session"
)

// revealSlack is added to the reveal window before the advisory view
// reloads itself, so the reload lands after the amount is masked again.
const revealSlack = 150 * time.Millisecond

// categories offered by the manual entry form.
var categories = []string{
	core.CategoryFood,
	core.CategoryTransport,
	core.CategoryBills,
	core.CategoryShopping,
	core.CategoryHealth,
	core.CategoryEntertainment,
	core.CategoryIncome,
	core.CategoryOther,
}

var priorities = []core.Priority{core.P1, core.P2, core.P3}

var filters = []core.TxFilter{core.FilterAll, core.FilterIn, core.FilterOut}

// viewData is one view section: the converted markdown plus the frame it
// came from, for the controls rendered around it.
type viewData struct {
	Name    render.Name
	Body    template.HTML
	Reload  string
	Frame   session.Frame
	Caps    core.Capabilities
	Wallets []core.Wallet
	Filters []core.TxFilter
}

type pageData struct {
	Views      []viewData
	Privacy    bool
	Caps       core.Capabilities
	Wallets    []core.Wallet
	Categories []string
	Priorities []core.Priority
}

// renderView converts the markdown of one view to HTML. The markdown is
// produced by the session, so raw HTML in server-provided text is escaped
// by goldmark.
func (s *Server) renderView(name render.Name, f session.Frame) (viewData, error) {
	text, err := s.sess.FrameMarkdown(f, name)
	if err != nil {
		return viewData{}, err
	}
	var buf bytes.Buffer
	if err := s.markdown.Convert([]byte(text), &buf); err != nil {
		return viewData{}, fmt.Errorf("convert %s view: %w", name, err)
	}
	v := viewData{
		Name:    name,
		Body:    template.HTML(buf.String()),
		Frame:   f,
		Caps:    s.sess.Capabilities(),
		Wallets: core.Wallets,
		Filters: filters,
	}
	if name == render.Advisory {
		v.Reload = s.revealReload(f)
	}
	return v, nil
}

// revealReload returns the htmx delay after which a revealed suggestion
// should be fetched again, or "" when nothing is revealed.
func (s *Server) revealReload(f session.Frame) string {
	sug := f.Views.Advisory.Suggestion
	if sug == nil || sug.RevealEnd.IsZero() {
		return ""
	}
	d := sug.RevealEnd.Sub(s.now()) + revealSlack
	if d <= 0 {
		return ""
	}
	return fmt.Sprintf("%dms", d.Milliseconds())
}

// writeView responds with a single view section.
func (s *Server) writeView(w http.ResponseWriter, r *http.Request, name render.Name, f session.Frame, b *HTMXResponseBuilder) {
	v, err := s.renderView(name, f)
	if err != nil {
		s.access.LogError(r.Context(), "View render failed", err, log.OpRender, log.NewFields())
		InternalServerError("Could not render the view").Write(w)
		return
	}
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, "view", v); err != nil {
		s.access.LogError(r.Context(), "View template failed", err, log.OpRender, log.NewFields())
		InternalServerError("Could not render the view").Write(w)
		return
	}
	if b == nil {
		b = NewHTMXResponse()
	}
	b.Header("Cache-Control", "no-store").BodyHTML(buf.String()).Write(w)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if s.sess.State().Empty() {
		if _, err := s.sess.Refresh(ctx); err != nil {
			log.FromContext(ctx).WarnContext(ctx, "Initial refresh failed", log.FieldOperation, log.OpRefresh, log.FieldError, err)
		}
	}

	f := s.sess.Frame()
	data := pageData{
		Privacy:    f.Privacy,
		Caps:       s.sess.Capabilities(),
		Wallets:    core.Wallets,
		Categories: categories,
		Priorities: priorities,
	}
	for _, name := range render.Names {
		v, err := s.renderView(name, f)
		if err != nil {
			s.access.LogError(ctx, "View render failed", err, log.OpRender, log.NewFields())
			InternalServerError("Could not render the page").Write(w)
			return
		}
		data.Views = append(data.Views, v)
	}

	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, "index.html", data); err != nil {
		s.access.LogError(ctx, "Index template failed", err, log.OpRender, log.NewFields())
		InternalServerError("Could not render the page").Write(w)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(buf.Bytes())
}

// handleView serves one view section for htmx reloads.
func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	name := render.Name(chi.URLParam(r, "name"))
	if !name.Valid() {
		NotFoundError("Unknown view").Write(w)
		return
	}
	s.writeView(w, r, name, s.sess.Frame(), nil)
}
