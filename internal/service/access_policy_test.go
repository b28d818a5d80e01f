package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/timecard-io/timecard-api/internal/models"
)

func user(id string, role models.UserRole, dept *int) *models.User {
	return &models.User{ID: id, Role: role, DepartmentCode: dept}
}

func dept(code int) *int {
	return &code
}

func TestCanView(t *testing.T) {
	policy := NewAccessPolicy()

	general := user("u1", models.RoleGeneral, dept(3))
	fullAdmin := user("a1", models.RoleAdmin, dept(models.FullAccessDepartment))
	deptAdmin := user("a2", models.RoleAdmin, dept(3))
	otherDeptAdmin := user("a3", models.RoleAdmin, dept(5))
	noDeptAdmin := user("a4", models.RoleAdmin, nil)

	assert.True(t, policy.CanView(general, general), "own record")
	assert.False(t, policy.CanView(general, user("u2", models.RoleGeneral, dept(3))), "peer record")
	assert.True(t, policy.CanView(fullAdmin, general))
	assert.True(t, policy.CanView(deptAdmin, general), "same department")
	assert.False(t, policy.CanView(otherDeptAdmin, general), "other department")
	assert.False(t, policy.CanView(noDeptAdmin, general), "admin without department")
	assert.True(t, policy.CanView(noDeptAdmin, noDeptAdmin), "own record regardless of scope")
}

func TestCanDirectEdit(t *testing.T) {
	policy := NewAccessPolicy()

	general := user("u1", models.RoleGeneral, dept(3))
	fullAdmin := user("a1", models.RoleAdmin, dept(models.FullAccessDepartment))
	deptAdmin := user("a2", models.RoleAdmin, dept(3))

	assert.True(t, policy.CanDirectEdit(fullAdmin, general))
	assert.True(t, policy.CanDirectEdit(deptAdmin, general))
	assert.True(t, policy.CanDirectEdit(fullAdmin, fullAdmin), "full access edits own record")
	assert.False(t, policy.CanDirectEdit(deptAdmin, deptAdmin), "scoped admin requests corrections for own record")
	assert.False(t, policy.CanDirectEdit(general, general), "general users always go through the request path")
	assert.False(t, policy.CanDirectEdit(deptAdmin, user("u9", models.RoleGeneral, dept(7))))
}

func TestCanRequestCorrection(t *testing.T) {
	policy := NewAccessPolicy()

	general := user("u1", models.RoleGeneral, dept(3))
	peer := user("u2", models.RoleGeneral, dept(3))
	deptAdmin := user("a2", models.RoleAdmin, dept(3))

	assert.True(t, policy.CanRequestCorrection(general, general))
	assert.False(t, policy.CanRequestCorrection(general, peer))
	assert.True(t, policy.CanRequestCorrection(deptAdmin, general))
	assert.True(t, policy.CanRequestCorrection(deptAdmin, deptAdmin), "scoped admin corrects own record via request")
}

func TestCanApprove(t *testing.T) {
	policy := NewAccessPolicy()

	fullAdmin := user("a1", models.RoleAdmin, dept(models.FullAccessDepartment))
	deptAdmin := user("a2", models.RoleAdmin, dept(3))
	general := user("u1", models.RoleGeneral, dept(3))

	pendingFor := func(userID string) *models.StampCorrectionRequest {
		return &models.StampCorrectionRequest{ID: "req-1", UserID: userID}
	}

	assert.True(t, policy.CanApprove(fullAdmin, pendingFor("u1"), general))
	assert.True(t, policy.CanApprove(deptAdmin, pendingFor("u1"), general))
	assert.False(t, policy.CanApprove(general, pendingFor("u1"), general), "general users never approve")
	assert.False(t, policy.CanApprove(fullAdmin, pendingFor("a1"), fullAdmin), "self-approval blocked even with full access")
	assert.False(t, policy.CanApprove(deptAdmin, pendingFor("a2"), deptAdmin), "self-approval blocked for scoped admin")
	assert.False(t, policy.CanApprove(deptAdmin, pendingFor("u9"), user("u9", models.RoleGeneral, dept(7))), "outside department scope")

	now := time.Now()
	approved := &models.StampCorrectionRequest{ID: "req-2", UserID: "u1", ApprovedAt: &now}
	assert.False(t, policy.CanApprove(fullAdmin, approved, general), "already approved")
}
