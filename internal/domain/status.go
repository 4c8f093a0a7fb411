package domain

import (
	"strconv"
	"strings"
)

// Status is a lifecycle stage of an application.
type Status string

const (
	StatusApplied         Status = "applied"
	StatusPhoneScreen     Status = "phone_screen"
	StatusRecruiterScreen Status = "recruiter_screen"
	StatusTakeHome        Status = "take_home"
	StatusTechnicalScreen Status = "technical_screen"
	StatusOnsite          Status = "onsite"
	StatusOffer           Status = "offer"
	StatusRejected        Status = "rejected"
	StatusWithdrawn       Status = "withdrawn"
)

// DefaultStatus is assigned when an application is created without one.
const DefaultStatus = StatusApplied

const maxStatusLength = 50

// statuses is the presentation order. It does not constrain transitions.
var statuses = []Status{
	StatusApplied,
	StatusPhoneScreen,
	StatusRecruiterScreen,
	StatusTakeHome,
	StatusTechnicalScreen,
	StatusOnsite,
	StatusOffer,
	StatusRejected,
	StatusWithdrawn,
}

// Statuses returns the vocabulary in presentation order. The slice is a copy.
func Statuses() []Status {
	out := make([]Status, len(statuses))
	copy(out, statuses)
	return out
}

// Valid reports whether s is a member of the vocabulary.
func (s Status) Valid() bool {
	for _, known := range statuses {
		if s == known {
			return true
		}
	}
	return false
}

func (s Status) String() string {
	return string(s)
}

// ParseStatus validates raw against the vocabulary. Surrounding whitespace is ignored,
// case is not: "Offer" is rejected.
func ParseStatus(raw string) (Status, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", NewValidationError("status", "status is required")
	}
	if len(trimmed) > maxStatusLength {
		return "", NewValidationError("status", "status is too long")
	}
	s := Status(trimmed)
	if !s.Valid() {
		return "", NewValidationError("status", "unknown status "+strconv.Quote(trimmed))
	}
	return s, nil
}
