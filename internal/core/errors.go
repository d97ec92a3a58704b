package core

import (
	"errors"
	"fmt"
)

// Kind classifies a failure for presentation.
type Kind string

const (
	KindConnectivity    Kind = "connectivity"
	KindValidation      Kind = "validation"
	KindBusiness        Kind = "business"
	KindUpgradeRequired Kind = "upgrade_required"
)

// Error is a classified failure. Business messages come from the ledger
// service and are shown verbatim.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Feature string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Op != "" {
		return fmt.Sprintf("%s: %s", e.Op, msg)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ConnectivityError wraps a transport failure or non-2xx response.
func ConnectivityError(op string, err error) *Error {
	return &Error{Kind: KindConnectivity, Op: op, Message: "cannot reach the ledger service", Err: err}
}

// ValidationError is raised before any network call.
func ValidationError(message string, err error) *Error {
	return &Error{Kind: KindValidation, Message: message, Err: err}
}

// BusinessError carries a server-reported failure message.
func BusinessError(op, message string) *Error {
	if message == "" {
		message = "request rejected"
	}
	return &Error{Kind: KindBusiness, Op: op, Message: message}
}

// UpgradeRequired signals that the current tier cannot use feature.
func UpgradeRequired(feature string) *Error {
	return &Error{
		Kind:    KindUpgradeRequired,
		Feature: feature,
		Message: fmt.Sprintf("%s is available on Pro plans", feature),
	}
}

// KindOf returns the kind of the first *Error in err's chain.
// Unclassified errors are treated as connectivity failures.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindConnectivity
}

// Message returns the user-facing text of err.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		if e.Message != "" {
			return e.Message
		}
	}
	if err == nil {
		return ""
	}
	return err.Error()
}

// FeatureOf returns the feature of an upgrade-required error.
func FeatureOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Feature
	}
	return ""
}
