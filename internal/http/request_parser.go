// Package http serves the dompet views over HTMX.
//
// This file turns form submissions into core values. Malformed numbers are
// reported as validation errors so they map to the same response as any
// other rejected input.

package http

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"dompet/internal/core"
)

// maxUploadBytes bounds voice and receipt uploads.
const maxUploadBytes = 10 << 20

// formValues parses url-encoded and multipart bodies alike.
func formValues(r *http.Request) (url.Values, error) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			return nil, core.ValidationError("invalid upload", err)
		}
		return r.Form, nil
	}
	if err := r.ParseForm(); err != nil {
		return nil, core.ValidationError("invalid form data", err)
	}
	return r.Form, nil
}

func formString(form url.Values, key string) string {
	return sanitizeInput(form.Get(key))
}

// formAmount parses a rupiah amount. Separators and an "Rp" prefix are
// accepted; an empty field reads as zero and is left to validation.
func formAmount(form url.Values, key string) (int64, error) {
	v := strings.TrimSpace(form.Get(key))
	if v == "" {
		return 0, nil
	}
	n, err := core.ParseAmount(v)
	if err != nil {
		return 0, core.ValidationError(fmt.Sprintf("%s must be a number", key), core.ErrInvalidAmount)
	}
	return n, nil
}

// pathID reads the {id} route parameter.
func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, core.ValidationError("invalid id", core.ErrNotFound)
	}
	return id, nil
}

func parseWallet(form url.Values, key string) core.Wallet {
	v := formString(form, key)
	if v == "" {
		return ""
	}
	return core.NormalizeWallet(v)
}

// ParseEntry reads an add-transaction form. Voice and image entries carry
// the upload in the media_file field.
func ParseEntry(r *http.Request) (core.Entry, error) {
	form, err := formValues(r)
	if err != nil {
		return core.Entry{}, err
	}
	amount, err := formAmount(form, "amount")
	if err != nil {
		return core.Entry{}, err
	}
	e := core.Entry{
		Mode:        core.EntryMode(strings.ToLower(formString(form, "mode"))),
		Type:        core.TxType(strings.ToUpper(formString(form, "type"))),
		Amount:      amount,
		Category:    formString(form, "category"),
		Wallet:      parseWallet(form, "wallet"),
		Description: formString(form, "description"),
		Text:        formString(form, "text"),
	}
	if e.Mode == "" {
		e.Mode = core.ModeManual
	}
	if r.MultipartForm != nil {
		if f, hdr, err := r.FormFile("media_file"); err == nil {
			defer f.Close()
			data, err := io.ReadAll(io.LimitReader(f, maxUploadBytes))
			if err != nil {
				return core.Entry{}, core.ValidationError("could not read upload", err)
			}
			e.Media = &core.Media{Name: hdr.Filename, ContentType: hdr.Header.Get("Content-Type"), Data: data}
		}
	}
	return e, nil
}

// ParseTransactionEdit reads an edit form for the transaction in the path.
func ParseTransactionEdit(r *http.Request) (core.TransactionEdit, error) {
	id, err := pathID(r)
	if err != nil {
		return core.TransactionEdit{}, err
	}
	form, err := formValues(r)
	if err != nil {
		return core.TransactionEdit{}, err
	}
	amount, err := formAmount(form, "amount")
	if err != nil {
		return core.TransactionEdit{}, err
	}
	return core.TransactionEdit{
		ID:          id,
		Amount:      amount,
		Category:    formString(form, "category"),
		Wallet:      parseWallet(form, "wallet"),
		Description: formString(form, "description"),
	}, nil
}

func ParseTransfer(r *http.Request) (core.Transfer, error) {
	form, err := formValues(r)
	if err != nil {
		return core.Transfer{}, err
	}
	amount, err := formAmount(form, "amount")
	if err != nil {
		return core.Transfer{}, err
	}
	return core.Transfer{
		Source: parseWallet(form, "source"),
		Target: parseWallet(form, "target"),
		Amount: amount,
	}, nil
}

// ParseDeposit reads a manual deposit for the goal in the path.
func ParseDeposit(r *http.Request) (core.Deposit, error) {
	id, err := pathID(r)
	if err != nil {
		return core.Deposit{}, err
	}
	form, err := formValues(r)
	if err != nil {
		return core.Deposit{}, err
	}
	amount, err := formAmount(form, "amount")
	if err != nil {
		return core.Deposit{}, err
	}
	return core.Deposit{GoalID: id, Wallet: parseWallet(form, "wallet"), Amount: amount}, nil
}

func ParseGoalDraft(r *http.Request) (core.GoalDraft, error) {
	form, err := formValues(r)
	if err != nil {
		return core.GoalDraft{}, err
	}
	target, err := formAmount(form, "target")
	if err != nil {
		return core.GoalDraft{}, err
	}
	return core.GoalDraft{
		Title:    formString(form, "title"),
		Target:   target,
		Deadline: formString(form, "deadline"),
		Priority: core.Priority(strings.ToUpper(formString(form, "priority"))),
	}, nil
}

// ParseGoalEdit reads a goal form for the goal in the path.
func ParseGoalEdit(r *http.Request) (core.Goal, error) {
	id, err := pathID(r)
	if err != nil {
		return core.Goal{}, err
	}
	d, err := ParseGoalDraft(r)
	if err != nil {
		return core.Goal{}, err
	}
	return core.Goal{ID: id, Title: d.Title, Target: d.Target, Deadline: d.Deadline, Priority: d.Priority}, nil
}

// sanitizeInput removes control characters except tab and newlines and
// trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
