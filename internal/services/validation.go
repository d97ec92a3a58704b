package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"dompet/internal/core"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// check validates v's struct tags and reports the first failure as a
// validation error carrying the matching domain sentinel.
func check(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return core.ValidationError("invalid request", err)
	}
	fe := fieldErrs[0]
	return core.ValidationError(translate(fe), sentinelFor(fe))
}

func fieldName(fe validator.FieldError) string {
	switch fe.Field() {
	case "GoalID":
		return "goal"
	case "Source":
		return "source wallet"
	case "Target":
		if fe.StructNamespace() != "" && strings.HasPrefix(fe.StructNamespace(), "Transfer.") {
			return "target wallet"
		}
		return "target"
	case "ID":
		return "id"
	}
	return strings.ToLower(fe.Field())
}

func translate(fe validator.FieldError) string {
	name := fieldName(fe)
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", name)
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", name, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be at least %s", name, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", name, fe.Param())
	case "nefield":
		return "source and target wallet must be different"
	}
	return fmt.Sprintf("%s is invalid", name)
}

func sentinelFor(fe validator.FieldError) error {
	switch fe.Tag() {
	case "gt", "gte":
		if fe.Field() == "Amount" || fe.Field() == "Target" {
			return core.ErrInvalidAmount
		}
	case "nefield":
		return core.ErrSameWallet
	}
	return core.ErrEmptyField
}

// blank reports whether any of the values is empty after trimming.
func blank(values ...string) bool {
	for _, v := range values {
		if strings.TrimSpace(v) == "" {
			return true
		}
	}
	return false
}
