package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/spec-kit/defects-service/internal/domain"
)

var (
	manager  = domain.Actor{ID: "m1", Role: domain.RoleManager}
	engineer = domain.Actor{ID: "e1", Role: domain.RoleEngineer}
	observer = domain.Actor{ID: "o1", Role: domain.RoleObserver}
)

func TestCanEditContent(t *testing.T) {
	tests := []struct {
		name   string
		actor  domain.Actor
		own    Ownership
		status domain.DefectStatus
		want   bool
	}{
		{"manager always", manager, Ownership{}, domain.DefectStatusClosed, true},
		{"engineer creator open", engineer, Ownership{IsCreator: true}, domain.DefectStatusNew, true},
		{"engineer assignee open", engineer, Ownership{IsAssignee: true}, domain.DefectStatusInProgress, true},
		{"engineer not owner", engineer, Ownership{}, domain.DefectStatusNew, false},
		{"engineer creator closed", engineer, Ownership{IsCreator: true}, domain.DefectStatusClosed, false},
		{"engineer creator canceled", engineer, Ownership{IsCreator: true}, domain.DefectStatusCanceled, false},
		{"observer never", observer, Ownership{IsCreator: true}, domain.DefectStatusNew, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, CanEditContent(tc.actor, tc.own, tc.status))
		})
	}
}

func TestManagerOnlyCapabilities(t *testing.T) {
	assert.True(t, CanChangePriority(manager))
	assert.False(t, CanChangePriority(engineer))
	assert.False(t, CanChangePriority(observer))

	assert.True(t, CanAssign(manager))
	assert.False(t, CanAssign(engineer))

	assert.True(t, CanChangeDueDate(manager))
	assert.False(t, CanChangeDueDate(engineer))

	assert.True(t, CanDelete(manager))
	assert.False(t, CanDelete(engineer))
	assert.False(t, CanDelete(observer))

	assert.True(t, CanCreateWithAssignment(manager))
	assert.False(t, CanCreateWithAssignment(engineer))
}

func TestCanChangeStatus(t *testing.T) {
	owner := Ownership{IsCreator: true}
	tests := []struct {
		name  string
		actor domain.Actor
		own   Ownership
		from  domain.DefectStatus
		to    domain.DefectStatus
		want  bool
	}{
		{"manager forward", manager, Ownership{}, domain.DefectStatusNew, domain.DefectStatusInProgress, true},
		{"manager cancel", manager, Ownership{}, domain.DefectStatusNew, domain.DefectStatusCanceled, true},
		{"manager reopen", manager, Ownership{}, domain.DefectStatusClosed, domain.DefectStatusInProgress, true},
		{"engineer owner forward", engineer, owner, domain.DefectStatusNew, domain.DefectStatusInProgress, true},
		{"engineer assignee forward", engineer, Ownership{IsAssignee: true}, domain.DefectStatusInProgress, domain.DefectStatusInReview, true},
		{"engineer non-owner forward", engineer, Ownership{}, domain.DefectStatusNew, domain.DefectStatusInProgress, false},
		{"engineer cancel", engineer, owner, domain.DefectStatusNew, domain.DefectStatusCanceled, false},
		{"engineer reopen", engineer, owner, domain.DefectStatusClosed, domain.DefectStatusInProgress, false},
		{"observer", observer, owner, domain.DefectStatusNew, domain.DefectStatusInProgress, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, CanChangeStatus(tc.actor, tc.own, tc.from, tc.to))
		})
	}
}

func TestCanReplaceTags(t *testing.T) {
	assert.True(t, CanReplaceTags(manager, Ownership{}))
	assert.True(t, CanReplaceTags(engineer, Ownership{IsAssignee: true}))
	assert.False(t, CanReplaceTags(engineer, Ownership{}))
	assert.False(t, CanReplaceTags(observer, Ownership{IsCreator: true}))
}

func TestCreateAndCollaboratorCapabilities(t *testing.T) {
	assert.True(t, CanCreate(engineer))
	assert.True(t, CanCreate(manager))
	assert.False(t, CanCreate(observer))

	assert.True(t, CanModerateComment(observer, true))
	assert.True(t, CanModerateComment(manager, false))
	assert.False(t, CanModerateComment(engineer, false))

	assert.True(t, CanUploadAttachment(engineer))
	assert.True(t, CanUploadAttachment(manager))
	assert.False(t, CanUploadAttachment(observer))

	assert.True(t, CanDeleteAttachment(engineer, true))
	assert.True(t, CanDeleteAttachment(manager, false))
	assert.False(t, CanDeleteAttachment(engineer, false))
}
