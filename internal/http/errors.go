package http

import (
	"bytes"
	"errors"
	"net/http"

	"dompet/internal/core"
	"dompet/internal/log"
	"dompet/internal/services"
)

// statusFor maps an error kind to the response status.
func statusFor(err error) int {
	switch core.KindOf(err) {
	case core.KindValidation:
		if errors.Is(err, core.ErrNotFound) {
			return http.StatusNotFound
		}
		return http.StatusUnprocessableEntity
	case core.KindBusiness:
		return http.StatusConflict
	case core.KindUpgradeRequired:
		return http.StatusPaymentRequired
	case core.KindConnectivity:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// writeError reports a failed action. An accepted mutation whose refresh
// failed is still a success for the user, with a warning.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	ctx := r.Context()
	logger := log.FromContext(ctx)

	if errors.Is(err, services.ErrRefreshAfterSave) {
		logger.WarnContext(ctx, "Mutation saved but refresh failed",
			log.FieldOperation, op, log.FieldError, err)
		NewHTMXResponse().
			TriggerViewsRefresh(s.sess.Frame().Seq).
			TriggerFormReset().
			TriggerNotification(NotificationWarning, "Saved. The latest data could not be loaded; press refresh.", 5000).
			BodyHTML(`<div class="warning">Saved. The latest data could not be loaded.</div>`).
			Write(w)
		return
	}

	status := statusFor(err)
	msg := core.Message(err)

	switch {
	case status >= http.StatusInternalServerError:
		s.access.LogError(ctx, "Action failed", err, op,
			log.NewFields().WithClientIP(s.detector.ExtractClientIP(r)))
	default:
		logger.WarnContext(ctx, "Action rejected",
			log.FieldOperation, op,
			log.FieldErrorKind, string(core.KindOf(err)),
			log.FieldError, err)
	}

	if status == http.StatusPaymentRequired {
		body, rerr := s.upsell(core.FeatureOf(err), msg)
		if rerr != nil {
			logger.ErrorContext(ctx, "Upsell template failed", log.FieldError, rerr)
			ErrorResponse(status, msg).Write(w)
			return
		}
		NewHTMXResponse().
			Status(status).
			TriggerNotification(NotificationInfo, msg, 5000).
			BodyHTML(body).
			Write(w)
		return
	}

	ErrorResponse(status, msg).Write(w)
}

type upsellData struct {
	Feature string
	Message string
}

func (s *Server) upsell(feature, msg string) (string, error) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, "upsell", upsellData{Feature: feature, Message: msg}); err != nil {
		return "", err
	}
	return buf.String(), nil
}
