package app

import (
	"strings"
	"unicode/utf8"

	"github.com/pscheid92/applied/internal/domain"
)

// CreateApplicationRequest carries raw caller input for a new application.
// A nil Status means domain.DefaultStatus; a nil AppliedAt means today.
type CreateApplicationRequest struct {
	CompanyName    string
	RoleTitle      string
	Status         *string
	AppliedAt      *string
	JobURL         *string
	JobDescription *string
	Note           *string
}

// ChangeStatusRequest moves an application to ToStatus.
type ChangeStatusRequest struct {
	ToStatus string
	Note     *string
}

// EditApplicationRequest is a partial update. Nil fields are left unchanged;
// a blank JobURL or JobDescription clears the field.
type EditApplicationRequest struct {
	CompanyName    *string
	RoleTitle      *string
	JobURL         *string
	JobDescription *string
	AppliedAt      *string
}

// ListQuery selects and orders a listing. Empty fields mean "all" and newest first.
type ListQuery struct {
	Status string
	Sort   string
}

func requiredText(field, value string, maxLen int) (string, error) {
	if !utf8.ValidString(value) {
		return "", domain.NewValidationError(field, field+" is not valid UTF-8")
	}
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return "", domain.NewValidationError(field, field+" is required")
	}
	if utf8.RuneCountInString(trimmed) > maxLen {
		return "", domain.NewValidationError(field, field+" is too long")
	}
	return trimmed, nil
}

// optionalText maps nil and blank input to nil. trim controls whether the
// stored value is trimmed or kept verbatim.
func optionalText(field string, value *string, maxLen int, trim bool) (*string, error) {
	if value == nil {
		return nil, nil
	}
	if !utf8.ValidString(*value) {
		return nil, domain.NewValidationError(field, field+" is not valid UTF-8")
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil, nil
	}
	out := *value
	if trim {
		out = trimmed
	}
	if utf8.RuneCountInString(out) > maxLen {
		return nil, domain.NewValidationError(field, field+" is too long")
	}
	return &out, nil
}
