package service

import "github.com/timecard-io/timecard-api/internal/models"

// AccessPolicy concentrates every role and department scope decision. Core
// operations ask one of four questions instead of re-deriving role logic at
// call sites; the acting user is always an explicit parameter.
type AccessPolicy struct{}

// NewAccessPolicy constructs the policy.
func NewAccessPolicy() *AccessPolicy {
	return &AccessPolicy{}
}

// CanView reports whether actor may see target's attendance data. Users see
// their own records; full-access admins see everyone; department-scoped
// admins see members of their own department.
func (p *AccessPolicy) CanView(actor, target *models.User) bool {
	if actor == nil || target == nil {
		return false
	}
	if actor.ID == target.ID {
		return true
	}
	if actor.HasFullAccess() {
		return true
	}
	if actor.HasDepartmentAccess() && actor.SameDepartment(target) {
		return true
	}
	return false
}

// CanDirectEdit reports whether actor may mutate owner's attendance record
// immediately, bypassing the approval workflow. Only admins edit directly.
// A department-scoped admin editing their own record is routed through the
// request path even though they can view it; a full-access admin may edit
// their own directly.
func (p *AccessPolicy) CanDirectEdit(actor, owner *models.User) bool {
	if actor == nil || !actor.IsAdmin() {
		return false
	}
	if !p.CanView(actor, owner) {
		return false
	}
	if owner.ID == actor.ID && !actor.HasFullAccess() {
		return false
	}
	return true
}

// CanRequestCorrection reports whether actor may submit a correction request
// against owner's attendance.
func (p *AccessPolicy) CanRequestCorrection(actor, owner *models.User) bool {
	if actor == nil || owner == nil {
		return false
	}
	if owner.ID == actor.ID {
		return true
	}
	return actor.IsAdmin() && p.CanView(actor, owner)
}

// CanApprove reports whether actor may approve the request submitted by
// submitter. Self-approval is never allowed, regardless of access scope.
func (p *AccessPolicy) CanApprove(actor *models.User, req *models.StampCorrectionRequest, submitter *models.User) bool {
	if actor == nil || req == nil {
		return false
	}
	if !actor.IsAdmin() {
		return false
	}
	if req.ApprovedAt != nil {
		return false
	}
	if !p.CanView(actor, submitter) {
		return false
	}
	if req.UserID == actor.ID {
		return false
	}
	return true
}
