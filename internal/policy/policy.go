// Package policy decides, given an actor's global role and per-defect
// ownership facts, whether a specific field mutation is permitted. All
// functions are pure; the aggregate service evaluates them before touching
// any field, and a single rejection fails the whole mutation.
package policy

import "github.com/spec-kit/defects-service/internal/domain"

// Ownership carries the per-defect facts a capability check may depend on.
type Ownership struct {
	IsCreator  bool
	IsAssignee bool
}

func (o Ownership) owns() bool {
	return o.IsCreator || o.IsAssignee
}

// CanEditContent governs title and description edits. Engineers may edit
// defects they created or are assigned to, as long as the defect has not
// reached a terminal state. Managers always may; Observers never.
func CanEditContent(actor domain.Actor, own Ownership, status domain.DefectStatus) bool {
	switch actor.Role {
	case domain.RoleManager:
		return true
	case domain.RoleEngineer:
		return own.owns() && !status.IsTerminal()
	default:
		return false
	}
}

// CanChangePriority is Manager-only.
func CanChangePriority(actor domain.Actor) bool {
	return actor.Role == domain.RoleManager
}

// CanChangeStatus governs a single status edge. Workflow legality is checked
// separately; this answers only whether the role may take the edge.
// Engineers need ownership and may never cancel or reopen.
func CanChangeStatus(actor domain.Actor, own Ownership, from, to domain.DefectStatus) bool {
	switch actor.Role {
	case domain.RoleManager:
		return true
	case domain.RoleEngineer:
		if to == domain.DefectStatusCanceled {
			return false
		}
		if from == domain.DefectStatusClosed {
			return false
		}
		return own.owns()
	default:
		return false
	}
}

// CanAssign governs setting or clearing the assignee. Manager-only.
func CanAssign(actor domain.Actor) bool {
	return actor.Role == domain.RoleManager
}

// CanChangeDueDate is Manager-only.
func CanChangeDueDate(actor domain.Actor) bool {
	return actor.Role == domain.RoleManager
}

// CanReplaceTags governs full tag-set replacement.
func CanReplaceTags(actor domain.Actor, own Ownership) bool {
	switch actor.Role {
	case domain.RoleManager:
		return true
	case domain.RoleEngineer:
		return own.owns()
	default:
		return false
	}
}

// CanDelete governs soft deletion. Manager-only; the New/Canceled status gate
// lives in the aggregate service because its failure is a workflow error,
// not an authorization one.
func CanDelete(actor domain.Actor) bool {
	return actor.Role == domain.RoleManager
}

// CanCreate reports whether the actor may create defects at all.
func CanCreate(actor domain.Actor) bool {
	return actor.Role == domain.RoleEngineer || actor.Role == domain.RoleManager
}

// CanCreateWithAssignment reports whether the actor may set assignee or due
// date at creation time. Engineers may create but those fields are stripped.
func CanCreateWithAssignment(actor domain.Actor) bool {
	return actor.Role == domain.RoleManager
}

// CanModerateComment governs editing or deleting someone's comment: the
// author always may, Managers may moderate anyone's.
func CanModerateComment(actor domain.Actor, isAuthor bool) bool {
	return isAuthor || actor.Role == domain.RoleManager
}

// CanUploadAttachment governs adding files. Observers are read-only.
func CanUploadAttachment(actor domain.Actor) bool {
	return actor.Role == domain.RoleEngineer || actor.Role == domain.RoleManager
}

// CanDeleteAttachment governs removing files: the uploader or a Manager.
func CanDeleteAttachment(actor domain.Actor, isUploader bool) bool {
	return isUploader || actor.Role == domain.RoleManager
}
