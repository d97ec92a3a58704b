package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"dompet/internal/core"
	"dompet/internal/history"
	"dompet/internal/log"
	"dompet/internal/render"
	"dompet/internal/session"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":    "ok",
		"timestamp": s.now().Format(time.RFC3339),
		"uptime":    s.now().Sub(s.started).String(),
	})
}

// handleReady reports ready once a snapshot has been loaded.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	st := s.sess.State()
	status, code := "ready", http.StatusOK
	if st.Empty() {
		status, code = "not_ready", http.StatusServiceUnavailable
	}
	limits := s.limiter.GetMetrics()
	security := s.detector.GetMetrics()

	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":    status,
		"timestamp": s.now().Format(time.RFC3339),
		"checks": map[string]any{
			"snapshot_seq":   st.Seq,
			"fetched_at":     st.FetchedAt.Format(time.RFC3339),
			"active_reveals": s.sess.ActiveReveals(),
			"rate_limiter": map[string]any{
				"active_clients": limits.ClientCount,
				"hits":           limits.TotalHits,
			},
			"security": map[string]any{
				"suspicious": security.SuspiciousRequests,
				"blocked":    security.BlockedRequests,
			},
		},
	})
}

// mutated answers a successful mutation: every view reloads from the new
// frame and the submitting form is cleared.
func mutated(w http.ResponseWriter, f session.Frame, message string) {
	NewHTMXResponse().
		TriggerViewsRefresh(f.Seq).
		TriggerFormReset().
		TriggerSuccessNotification(message).
		BodyHTML(`<div class="success">` + htmlEscape(message) + `</div>`).
		Write(w)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	f, err := s.sess.Refresh(r.Context())
	if err != nil {
		s.writeError(w, r, log.OpRefresh, err)
		return
	}
	NewHTMXResponse().
		TriggerViewsRefresh(f.Seq).
		BodyHTML(`<div class="success">Up to date</div>`).
		Write(w)
}

func (s *Server) handleTogglePrivacy(w http.ResponseWriter, r *http.Request) {
	f, err := s.sess.TogglePrivacy(r.Context())
	if err != nil {
		s.writeError(w, r, log.OpToggle, err)
		return
	}
	label := "Hide amounts"
	if f.Privacy {
		label = "Show amounts"
	}
	NewHTMXResponse().
		TriggerViewsRefresh(f.Seq).
		TriggerPrivacyChanged(f.Privacy).
		BodyHTML(htmlEscape(label)).
		Write(w)
}

func (s *Server) handleHistoryFilter(w http.ResponseWriter, r *http.Request) {
	form, err := formValues(r)
	if err != nil {
		s.writeError(w, r, log.OpRender, err)
		return
	}
	filter, err := history.ParseFilter(form.Get("filter"))
	if err != nil {
		s.writeError(w, r, log.OpRender, core.ValidationError(err.Error(), nil))
		return
	}
	f := s.sess.SetFilter(filter)
	s.writeView(w, r, render.History, f, nil)
}

// handleOptimize requests advice. A failure is part of the advisory view,
// so the view is returned either way.
func (s *Server) handleOptimize(w http.ResponseWriter, r *http.Request) {
	f, err := s.goals.Optimize(r.Context())
	b := NewHTMXResponse()
	if err != nil {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Optimize failed",
			log.FieldOperation, log.OpOptimize, log.FieldError, err)
		b.TriggerErrorNotification(core.Message(err))
	}
	s.writeView(w, r, render.Advisory, f, b)
}

func (s *Server) handleReveal(w http.ResponseWriter, r *http.Request) {
	f, err := s.goals.Reveal()
	if err != nil {
		s.writeError(w, r, log.OpOptimize, err)
		return
	}
	s.writeView(w, r, render.Advisory, f, nil)
}

func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	f, err := s.goals.Execute(r.Context())
	if err != nil {
		s.writeError(w, r, log.OpExecute, err)
		return
	}
	mutated(w, f, "Deposit saved")
}

func (s *Server) handleDismiss(w http.ResponseWriter, r *http.Request) {
	f := s.goals.Dismiss()
	s.writeView(w, r, render.Advisory, f, nil)
}

func (s *Server) handleCreateGoal(w http.ResponseWriter, r *http.Request) {
	d, err := ParseGoalDraft(r)
	if err != nil {
		s.writeError(w, r, log.OpCreate, err)
		return
	}
	f, err := s.goals.CreateGoal(r.Context(), d)
	if err != nil {
		s.writeError(w, r, log.OpCreate, err)
		return
	}
	mutated(w, f, fmt.Sprintf("Goal %q created", d.Title))
}

func (s *Server) handleEditGoal(w http.ResponseWriter, r *http.Request) {
	g, err := ParseGoalEdit(r)
	if err != nil {
		s.writeError(w, r, log.OpUpdate, err)
		return
	}
	f, err := s.goals.EditGoal(r.Context(), g)
	if err != nil {
		s.writeError(w, r, log.OpUpdate, err)
		return
	}
	mutated(w, f, "Goal updated")
}

func (s *Server) handleDeleteGoal(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, log.OpDelete, err)
		return
	}
	f, err := s.goals.DeleteGoal(r.Context(), id)
	if err != nil {
		s.writeError(w, r, log.OpDelete, err)
		return
	}
	mutated(w, f, "Goal deleted")
}

func (s *Server) handleDeposit(w http.ResponseWriter, r *http.Request) {
	dep, err := ParseDeposit(r)
	if err != nil {
		s.writeError(w, r, log.OpDeposit, err)
		return
	}
	f, err := s.goals.Deposit(r.Context(), dep)
	if err != nil {
		s.writeError(w, r, log.OpDeposit, err)
		return
	}
	mutated(w, f, "Deposit saved")
}

func (s *Server) handleAddTransaction(w http.ResponseWriter, r *http.Request) {
	e, err := ParseEntry(r)
	if err != nil {
		s.writeError(w, r, log.OpCreate, err)
		return
	}
	res, err := s.entries.AddTransaction(r.Context(), e)
	if err != nil {
		s.writeError(w, r, log.OpCreate, err)
		return
	}
	msg := "Transaction saved"
	if res.Count > 1 {
		msg = fmt.Sprintf("%d transactions saved", res.Count)
	}
	mutated(w, res.Frame, msg)
}

func (s *Server) handleEditTransaction(w http.ResponseWriter, r *http.Request) {
	e, err := ParseTransactionEdit(r)
	if err != nil {
		s.writeError(w, r, log.OpUpdate, err)
		return
	}
	f, err := s.entries.EditTransaction(r.Context(), e)
	if err != nil {
		s.writeError(w, r, log.OpUpdate, err)
		return
	}
	mutated(w, f, "Transaction updated")
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, log.OpDelete, err)
		return
	}
	f, err := s.entries.DeleteTransaction(r.Context(), id)
	if err != nil {
		s.writeError(w, r, log.OpDelete, err)
		return
	}
	mutated(w, f, "Transaction deleted")
}

func (s *Server) handleTransfer(w http.ResponseWriter, r *http.Request) {
	t, err := ParseTransfer(r)
	if err != nil {
		s.writeError(w, r, log.OpTransfer, err)
		return
	}
	f, err := s.entries.Transfer(r.Context(), t)
	if err != nil {
		s.writeError(w, r, log.OpTransfer, err)
		return
	}
	mutated(w, f, "Transfer saved")
}

func (s *Server) handleSetBudget(w http.ResponseWriter, r *http.Request) {
	form, err := formValues(r)
	if err != nil {
		s.writeError(w, r, log.OpUpdate, err)
		return
	}
	amount, err := formAmount(form, "amount")
	if err != nil {
		s.writeError(w, r, log.OpUpdate, err)
		return
	}
	f, err := s.entries.SetBudget(r.Context(), amount)
	if err != nil {
		s.writeError(w, r, log.OpUpdate, err)
		return
	}
	mutated(w, f, "Budget saved")
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	form, err := formValues(r)
	if err != nil {
		s.writeError(w, r, log.OpDelete, err)
		return
	}
	if form.Get("confirm") != "yes" {
		s.writeError(w, r, log.OpDelete, core.ValidationError("confirm the reset first", core.ErrEmptyField))
		return
	}
	f, err := s.entries.ResetData(r.Context())
	if err != nil {
		s.writeError(w, r, log.OpDelete, err)
		return
	}
	mutated(w, f, "All transactions deleted")
}

func (s *Server) handleFeedback(w http.ResponseWriter, r *http.Request) {
	form, err := formValues(r)
	if err != nil {
		s.writeError(w, r, log.OpCreate, err)
		return
	}
	if err := s.entries.SendFeedback(r.Context(), formString(form, "message")); err != nil {
		s.writeError(w, r, log.OpCreate, err)
		return
	}
	NewHTMXResponse().
		TriggerFormReset().
		TriggerSuccessNotification("Thanks for the feedback").
		BodyHTML(`<div class="success">Thanks for the feedback</div>`).
		Write(w)
}

func (s *Server) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	form, err := formValues(r)
	if err != nil {
		s.writeError(w, r, log.OpPublish, err)
		return
	}
	if err := s.entries.RequestUpgrade(r.Context(), formString(form, "feature")); err != nil {
		s.writeError(w, r, log.OpPublish, err)
		return
	}
	NewHTMXResponse().
		TriggerSuccessNotification("Upgrade requested, we will contact you shortly").
		BodyHTML(`<div class="success">Upgrade requested</div>`).
		Write(w)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	b, err := s.entries.ExportLedger(r.Context())
	if err != nil {
		s.writeError(w, r, log.OpExport, err)
		return
	}
	writeDownload(w, "dompet-ledger", b)
}

func (s *Server) handleAdminFeedback(w http.ResponseWriter, r *http.Request) {
	b, err := s.entries.ExportFeedback(r.Context())
	if err != nil {
		s.writeError(w, r, log.OpExport, err)
		return
	}
	writeDownload(w, "dompet-feedback", b)
}

// writeDownload sends export bytes as an attachment. The ledger service
// returns either a spreadsheet (zip container) or plain CSV.
func writeDownload(w http.ResponseWriter, base string, b []byte) {
	ctype := http.DetectContentType(b)
	name := base + ".csv"
	if ctype == "application/zip" {
		ctype = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
		name = base + ".xlsx"
	} else {
		ctype = "text/csv; charset=utf-8"
	}
	w.Header().Set("Content-Type", ctype)
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(b)
}
