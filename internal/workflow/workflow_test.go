package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/spec-kit/defects-service/internal/domain"
)

func TestCanTransition(t *testing.T) {
	allowed := map[domain.DefectStatus][]domain.DefectStatus{
		domain.DefectStatusNew:        {domain.DefectStatusInProgress, domain.DefectStatusCanceled},
		domain.DefectStatusInProgress: {domain.DefectStatusInReview, domain.DefectStatusCanceled},
		domain.DefectStatusInReview:   {domain.DefectStatusInProgress, domain.DefectStatusClosed, domain.DefectStatusCanceled},
		domain.DefectStatusClosed:     {domain.DefectStatusInProgress},
		domain.DefectStatusCanceled:   {},
	}
	all := []domain.DefectStatus{
		domain.DefectStatusNew,
		domain.DefectStatusInProgress,
		domain.DefectStatusInReview,
		domain.DefectStatusClosed,
		domain.DefectStatusCanceled,
	}

	for _, from := range all {
		for _, to := range all {
			want := false
			for _, next := range allowed[from] {
				if next == to {
					want = true
				}
			}
			assert.Equalf(t, want, CanTransition(from, to), "%s -> %s", from, to)
		}
	}
}

func TestCanTransitionReflexivelyFalse(t *testing.T) {
	for _, s := range []domain.DefectStatus{
		domain.DefectStatusNew,
		domain.DefectStatusInProgress,
		domain.DefectStatusInReview,
		domain.DefectStatusClosed,
		domain.DefectStatusCanceled,
	} {
		assert.Falsef(t, CanTransition(s, s), "%s -> %s should be illegal", s, s)
	}
}

func TestCanTransitionUnknownFrom(t *testing.T) {
	assert.False(t, CanTransition(domain.DefectStatus("BOGUS"), domain.DefectStatusInProgress))
	assert.Empty(t, Next(domain.DefectStatus("BOGUS")))
}

func TestNext(t *testing.T) {
	tests := []struct {
		from domain.DefectStatus
		want []domain.DefectStatus
	}{
		{domain.DefectStatusNew, []domain.DefectStatus{domain.DefectStatusInProgress, domain.DefectStatusCanceled}},
		{domain.DefectStatusInProgress, []domain.DefectStatus{domain.DefectStatusInReview, domain.DefectStatusCanceled}},
		{domain.DefectStatusInReview, []domain.DefectStatus{domain.DefectStatusInProgress, domain.DefectStatusClosed, domain.DefectStatusCanceled}},
		{domain.DefectStatusClosed, []domain.DefectStatus{domain.DefectStatusInProgress}},
		{domain.DefectStatusCanceled, []domain.DefectStatus{}},
	}
	for _, tc := range tests {
		assert.ElementsMatchf(t, tc.want, Next(tc.from), "Next(%s)", tc.from)
	}
}

func TestIsReopen(t *testing.T) {
	assert.True(t, IsReopen(domain.DefectStatusClosed, domain.DefectStatusInProgress))
	assert.False(t, IsReopen(domain.DefectStatusInReview, domain.DefectStatusInProgress))
	assert.False(t, IsReopen(domain.DefectStatusClosed, domain.DefectStatusClosed))
}
