package handlers

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"erpdocs/models"
)

func TestAuthorizeStepActorBoundApprover(t *testing.T) {
	approver := primitive.NewObjectID()
	step := &models.ApprovalStep{Level: 1, Status: models.StepStatusPending, Approver: &approver}

	err := authorizeStepActor(context.Background(), step, &actor{ID: approver})
	assert.NoError(t, err)
}

func TestAuthorizeStepActorRejectsNonApprover(t *testing.T) {
	approver := primitive.NewObjectID()
	step := &models.ApprovalStep{Level: 1, Status: models.StepStatusPending, Approver: &approver}

	err := authorizeStepActor(context.Background(), step, &actor{ID: primitive.NewObjectID(), RoleLevel: models.RoleLevelSuperAdmin})
	assert.ErrorIs(t, err, models.ErrNotAuthorized)
}

func TestStepActionFilterMatchesOnlyPendingStep(t *testing.T) {
	docID := primitive.NewObjectID()
	filter := stepActionFilter(docID, 2)

	assert.Equal(t, docID, filter["_id"])
	assert.Equal(t, models.DocStatusPendingReview, filter["status"])

	elem := filter["approvalChain"].(bson.M)["$elemMatch"].(bson.M)
	assert.Equal(t, 2, elem["level"])
	assert.Equal(t, models.StepStatusPending, elem["status"])
}

func TestStepResolutionErrorOnConcurrentAction(t *testing.T) {
	// Two reviewers race on the same pending step: the conditional update lets
	// exactly one through, the other matches nothing and must see a conflict
	err := stepResolutionError(0)
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrConflict)

	assert.NoError(t, stepResolutionError(1))
}

func TestStepActionUpdateStampsStepTransition(t *testing.T) {
	actorID := primitive.NewObjectID()
	now := time.Now().UTC()

	update := stepActionUpdate(models.StepStatusApproved, actorID, 1, "looks good", now)
	set := update["$set"].(bson.M)
	assert.Equal(t, models.StepStatusApproved, set["approvalChain.$.status"])
	assert.Equal(t, "looks good", set["approvalChain.$.comments"])
	assert.Equal(t, now, set["approvalChain.$.actionDate"])
	assert.Equal(t, actorID, set["approvalChain.$.approver"])

	// Approval never touches the document status in the same write; that is
	// derived from the full chain afterwards
	_, ok := set["status"]
	assert.False(t, ok)

	entry := update["$push"].(bson.M)["auditTrail"].(models.AuditEntry)
	assert.Equal(t, "document_approved", entry.Action)
	assert.Equal(t, actorID, entry.UserID)
}

func TestStepActionUpdateRejectionIsTerminal(t *testing.T) {
	update := stepActionUpdate(models.StepStatusRejected, primitive.NewObjectID(), 1, "missing signature", time.Now().UTC())
	set := update["$set"].(bson.M)
	assert.Equal(t, models.StepStatusRejected, set["approvalChain.$.status"])
	assert.Equal(t, models.DocStatusRejected, set["status"])
}
