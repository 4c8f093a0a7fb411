package projection

import "github.com/pscheid92/applied/internal/domain"

// Replay folds status_change events over initial and returns the resulting status.
// Events must be in log order; other event types are skipped.
func Replay(initial domain.Status, events []domain.ApplicationEvent) domain.Status {
	status := initial
	for _, e := range events {
		if !e.IsStatusChange() || e.ToStatus == nil {
			continue
		}
		status = *e.ToStatus
	}
	return status
}

// InitialStatus recovers the status an application was created with: the
// from_status of its first transition, or current when it never transitioned.
func InitialStatus(current domain.Status, events []domain.ApplicationEvent) domain.Status {
	for _, e := range events {
		if e.IsStatusChange() && e.FromStatus != nil {
			return *e.FromStatus
		}
	}
	return current
}

// BrokenLinks returns the ids of status_change events whose from_status does
// not equal the previous event's to_status. An intact history returns none.
func BrokenLinks(initial domain.Status, events []domain.ApplicationEvent) []int64 {
	var broken []int64
	status := initial
	for _, e := range events {
		if !e.IsStatusChange() || e.ToStatus == nil {
			continue
		}
		if e.FromStatus == nil || *e.FromStatus != status {
			broken = append(broken, e.ID)
		}
		status = *e.ToStatus
	}
	return broken
}
