package handlers

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"erpdocs/models"
)

func TestStatusForWorkflowsZeroConfigsAlwaysApproved(t *testing.T) {
	// Absence of configured workflows must never block an upload
	status, wf := statusForWorkflows(nil, "Policy", "HR")
	assert.Equal(t, models.DocStatusApproved, status)
	assert.Nil(t, wf)

	status, _ = statusForWorkflows([]models.ApprovalWorkflow{}, "Financial", "Finance")
	assert.Equal(t, models.DocStatusApproved, status)
}

func TestStatusForWorkflowsExactMatchBeatsGlobalDefault(t *testing.T) {
	workflows := []models.ApprovalWorkflow{
		{Name: "global", Category: models.WildcardAll, Department: models.WildcardAll},
		{Name: "policy-hr", Category: "Policy", Department: "HR"},
	}

	status, wf := statusForWorkflows(workflows, "Policy", "HR")
	assert.Equal(t, models.DocStatusPendingReview, status)
	require.NotNil(t, wf)
	assert.Equal(t, "policy-hr", wf.Name)
}

func TestStatusForWorkflowsFallsBackToGlobalDefault(t *testing.T) {
	workflows := []models.ApprovalWorkflow{
		{Name: "policy-hr", Category: "Policy", Department: "HR"},
		{Name: "global", Category: models.WildcardAll, Department: models.WildcardAll},
	}

	status, wf := statusForWorkflows(workflows, "Financial", "Finance")
	assert.Equal(t, models.DocStatusPendingReview, status)
	require.NotNil(t, wf)
	assert.Equal(t, "global", wf.Name)
}

func TestStatusForWorkflowsNoApplicableWorkflowApproves(t *testing.T) {
	// Workflows exist elsewhere, but none matches and there is no global
	// default: the document still goes through
	workflows := []models.ApprovalWorkflow{
		{Name: "policy-hr", Category: "Policy", Department: "HR"},
	}

	status, wf := statusForWorkflows(workflows, "Financial", "Finance")
	assert.Equal(t, models.DocStatusApproved, status)
	assert.Nil(t, wf)
}

func TestStatusAfterWorkflowLookupFailsOpenOnError(t *testing.T) {
	// A broken workflow store must never block an upload, even when a matching
	// workflow would otherwise have sent the document into review
	workflows := []models.ApprovalWorkflow{
		{Name: "policy-hr", Category: "Policy", Department: "HR"},
	}

	status, wf := statusAfterWorkflowLookup(workflows, errors.New("connection reset"), "Policy", "HR")
	assert.Equal(t, models.DocStatusApproved, status)
	assert.Nil(t, wf)
}

func TestStatusAfterWorkflowLookupDelegatesOnSuccess(t *testing.T) {
	workflows := []models.ApprovalWorkflow{
		{Name: "policy-hr", Category: "Policy", Department: "HR"},
	}

	status, wf := statusAfterWorkflowLookup(workflows, nil, "Policy", "HR")
	assert.Equal(t, models.DocStatusPendingReview, status)
	require.NotNil(t, wf)
	assert.Equal(t, "policy-hr", wf.Name)
}

func TestBuildApprovalChainOrdersLevelsAscending(t *testing.T) {
	approver := primitive.NewObjectID()
	wf := &models.ApprovalWorkflow{Levels: []models.WorkflowLevel{
		{Level: 3, Department: "Executive"},
		{Level: 1, Department: "HR", Approver: &approver},
		{Level: 2, Department: "Finance"},
	}}

	steps := buildApprovalChain(wf)
	require.Len(t, steps, 3)
	assert.Equal(t, []int{1, 2, 3}, []int{steps[0].Level, steps[1].Level, steps[2].Level})
	assert.Equal(t, "HR", steps[0].Department)
	require.NotNil(t, steps[0].Approver)
	assert.Equal(t, approver, *steps[0].Approver)
	for _, s := range steps {
		assert.Equal(t, models.StepStatusPending, s.Status)
	}
}

func TestBuildApprovalChainNilWorkflow(t *testing.T) {
	assert.Nil(t, buildApprovalChain(nil))
	assert.Nil(t, buildApprovalChain(&models.ApprovalWorkflow{}))
}

func approverFixture() []models.User {
	return []models.User{
		{ID: primitive.NewObjectID(), Email: "head@x.test", Department: "Finance", RoleLevel: 700, IsActive: true},
		{ID: primitive.NewObjectID(), Email: "exec@x.test", Department: "Finance", RoleLevel: 1000, IsActive: true},
		{ID: primitive.NewObjectID(), Email: "clerk@x.test", Department: "Finance", RoleLevel: 300, IsActive: true},
		{ID: primitive.NewObjectID(), Email: "gone@x.test", Department: "Finance", RoleLevel: 800, IsActive: false},
	}
}

func TestFilterApproversByRoleLevel(t *testing.T) {
	users := approverFixture()

	got := filterApprovers(users, models.RoleLevelApprover)
	require.Len(t, got, 2)
	assert.Equal(t, "head@x.test", got[0].Email)
	assert.Equal(t, "exec@x.test", got[1].Email)
}

func TestFilterApproversMatchesQuerySideFilter(t *testing.T) {
	// The in-Go filter must be equivalent to filtering on the query side:
	// same fixture, same minimum level, same survivors
	users := approverFixture()

	var querySide []models.User
	for _, u := range users {
		if u.IsActive && u.RoleLevel >= models.RoleLevelApprover {
			querySide = append(querySide, u)
		}
	}

	assert.Equal(t, querySide, filterApprovers(users, models.RoleLevelApprover))
}

func TestFilterApproversEmpty(t *testing.T) {
	got := filterApprovers(approverFixture(), 2000)
	assert.Empty(t, got)
}

func TestNotificationTypeForUpload(t *testing.T) {
	assert.Equal(t, models.NotifyDocumentApprovalRequired, notificationTypeForUpload(false))
	assert.Equal(t, models.NotifyProjectReadyForApproval, notificationTypeForUpload(true))
}

func TestUploadOutcomeType(t *testing.T) {
	assert.Equal(t, models.NotifyDocumentApprovalRequired, uploadOutcomeType(models.DocStatusPendingReview))
	assert.Equal(t, models.NotifyDocumentUploaded, uploadOutcomeType(models.DocStatusApproved))
}
