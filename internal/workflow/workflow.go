// Package workflow is the single source of truth for legal defect status
// transitions. Callers must not hand-roll alternate graphs.
package workflow

import "github.com/spec-kit/defects-service/internal/domain"

var edges = map[domain.DefectStatus][]domain.DefectStatus{
	domain.DefectStatusNew:        {domain.DefectStatusInProgress, domain.DefectStatusCanceled},
	domain.DefectStatusInProgress: {domain.DefectStatusInReview, domain.DefectStatusCanceled},
	domain.DefectStatusInReview:   {domain.DefectStatusInProgress, domain.DefectStatusClosed, domain.DefectStatusCanceled},
	domain.DefectStatusClosed:     {},
	domain.DefectStatusCanceled:   {},
}

// CanTransition reports whether the edge from -> to exists in the graph.
// Closed -> InProgress (reopen) is structurally legal; authorization decides
// who may invoke it. Unknown from values have no legal transitions.
func CanTransition(from, to domain.DefectStatus) bool {
	if from == domain.DefectStatusClosed && to == domain.DefectStatusInProgress {
		return true
	}
	for _, next := range edges[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Next returns the set of statuses reachable from the given one, including
// the reopen edge out of Closed.
func Next(from domain.DefectStatus) []domain.DefectStatus {
	if from == domain.DefectStatusClosed {
		return []domain.DefectStatus{domain.DefectStatusInProgress}
	}
	next, ok := edges[from]
	if !ok {
		return nil
	}
	out := make([]domain.DefectStatus, len(next))
	copy(out, next)
	return out
}

// IsReopen reports whether the pair is the special Manager-only reopen edge.
func IsReopen(from, to domain.DefectStatus) bool {
	return from == domain.DefectStatusClosed && to == domain.DefectStatusInProgress
}
