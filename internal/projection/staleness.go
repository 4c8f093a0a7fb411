package projection

import (
	"cmp"
	"slices"
	"time"

	"github.com/pscheid92/applied/internal/domain"
)

// Staleness is the derived inactivity signal of one application.
// DaysInactive is nil when UpdatedAt is unset.
type Staleness struct {
	Stale        bool
	DaysInactive *int
}

// StaleItem is a stale application with its whole days of inactivity.
type StaleItem struct {
	Application  domain.Application
	DaysInactive int
}

// StaleReport carries the top of the stale ranking and the full stale count,
// so callers can render "showing len(Items) of Total".
type StaleReport struct {
	Total int
	Items []StaleItem
}

func (p *Projector) Staleness(app domain.Application, now time.Time) Staleness {
	if app.UpdatedAt.IsZero() {
		return Staleness{}
	}
	inactive := now.Sub(app.UpdatedAt)
	days := floorDays(inactive)
	return Staleness{
		Stale:        inactive >= p.staleThreshold,
		DaysInactive: &days,
	}
}

// StaleRanking orders stale applications most overdue first, ties by id.
// limit <= 0 uses the configured top N.
func (p *Projector) StaleRanking(apps []domain.Application, now time.Time, limit int) StaleReport {
	if limit <= 0 {
		limit = p.staleTopN
	}

	var stale []StaleItem
	for _, app := range apps {
		s := p.Staleness(app, now)
		if !s.Stale {
			continue
		}
		stale = append(stale, StaleItem{Application: app, DaysInactive: *s.DaysInactive})
	}

	slices.SortFunc(stale, func(a, b StaleItem) int {
		if c := cmp.Compare(b.DaysInactive, a.DaysInactive); c != 0 {
			return c
		}
		return cmp.Compare(a.Application.ID, b.Application.ID)
	})

	report := StaleReport{Total: len(stale), Items: []StaleItem{}}
	if len(stale) > limit {
		stale = stale[:limit]
	}
	report.Items = append(report.Items, stale...)
	return report
}

// floorDays rounds toward negative infinity.
func floorDays(d time.Duration) int {
	days := d / day
	if d < 0 && d%day != 0 {
		days--
	}
	return int(days)
}
