package projection

import (
	"cmp"
	"slices"
	"strings"

	"github.com/pscheid92/applied/internal/domain"
	"golang.org/x/text/collate"
)

// SortMode selects the order of a listing.
type SortMode string

const (
	SortNewest    SortMode = "newest"
	SortOldest    SortMode = "oldest"
	SortCompanyAZ SortMode = "company_az"
	SortCompanyZA SortMode = "company_za"
)

// DefaultSortMode matches the store's natural listing order.
const DefaultSortMode = SortNewest

var sortModes = []SortMode{SortNewest, SortOldest, SortCompanyAZ, SortCompanyZA}

// ParseSortMode accepts one of the known modes; empty means DefaultSortMode.
func ParseSortMode(raw string) (SortMode, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return DefaultSortMode, nil
	}
	mode := SortMode(raw)
	if !slices.Contains(sortModes, mode) {
		return "", domain.NewValidationError("sort", "unknown sort mode "+raw)
	}
	return mode, nil
}

// StatusFilter keeps applications with one status. The zero value keeps all.
type StatusFilter struct {
	Status domain.Status
}

const filterAll = "all"

// ParseStatusFilter accepts "all", empty, or a vocabulary member.
func ParseStatusFilter(raw string) (StatusFilter, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == filterAll {
		return StatusFilter{}, nil
	}
	status, err := domain.ParseStatus(raw)
	if err != nil {
		return StatusFilter{}, err
	}
	return StatusFilter{Status: status}, nil
}

func (f StatusFilter) All() bool {
	return f.Status == ""
}

func (f StatusFilter) Matches(app domain.Application) bool {
	return f.All() || app.Status == f.Status
}

// List filters then sorts. The input slice is not modified.
func (p *Projector) List(apps []domain.Application, filter StatusFilter, mode SortMode) []domain.Application {
	out := make([]domain.Application, 0, len(apps))
	for _, app := range apps {
		if filter.Matches(app) {
			out = append(out, app)
		}
	}

	byID := func(a, b domain.Application) int { return cmp.Compare(a.ID, b.ID) }

	var order func(a, b domain.Application) int
	switch mode {
	case SortOldest:
		order = func(a, b domain.Application) int { return a.UpdatedAt.Compare(b.UpdatedAt) }
	case SortCompanyAZ, SortCompanyZA:
		// Collators keep scratch buffers and are not safe for concurrent use.
		col := collate.New(p.lang, collate.IgnoreCase)
		sign := 1
		if mode == SortCompanyZA {
			sign = -1
		}
		order = func(a, b domain.Application) int {
			return sign * col.CompareString(a.CompanyName, b.CompanyName)
		}
	default:
		order = func(a, b domain.Application) int { return b.UpdatedAt.Compare(a.UpdatedAt) }
	}

	slices.SortFunc(out, func(a, b domain.Application) int {
		if c := order(a, b); c != 0 {
			return c
		}
		return byID(a, b)
	})
	return out
}
