package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestValidateClassification(t *testing.T) {
	assert.NoError(t, ValidateClassification("Policy", "HR Policy"))
	assert.NoError(t, ValidateClassification("Financial", "Invoice"))

	err := ValidateClassification("Policy", "Invoice")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValidation)

	err = ValidateClassification("Nonsense", "HR Policy")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestAllowedTypes(t *testing.T) {
	assert.Contains(t, AllowedTypes("Contract"), "NDA")
	assert.Nil(t, AllowedTypes("Unknown"))
}

func chain(statuses ...string) []ApprovalStep {
	steps := make([]ApprovalStep, len(statuses))
	for i, s := range statuses {
		steps[i] = ApprovalStep{Level: i + 1, Status: s}
	}
	return steps
}

func TestCurrentStepPicksLowestPendingLevel(t *testing.T) {
	doc := &Document{
		Status: DocStatusPendingReview,
		// Deliberately out of order to prove level ordering, not slice order
		ApprovalChain: []ApprovalStep{
			{Level: 3, Status: StepStatusPending},
			{Level: 1, Status: StepStatusApproved},
			{Level: 2, Status: StepStatusPending},
		},
	}

	step := doc.CurrentStep()
	require.NotNil(t, step)
	assert.Equal(t, 2, step.Level)
}

func TestCurrentStepNilWhenChainExhausted(t *testing.T) {
	doc := &Document{Status: DocStatusApproved, ApprovalChain: chain(StepStatusApproved, StepStatusApproved)}
	assert.Nil(t, doc.CurrentStep())
}

func TestCurrentStepNilAfterRejection(t *testing.T) {
	// Once rejected no further step may transition, even if later levels are
	// still stored as pending
	doc := &Document{
		Status:        DocStatusRejected,
		ApprovalChain: chain(StepStatusRejected, StepStatusPending),
	}
	assert.Nil(t, doc.CurrentStep())
}

func TestDeriveStatusApprovedOnlyWhenAllStepsApproved(t *testing.T) {
	doc := &Document{Status: DocStatusPendingReview, ApprovalChain: chain(StepStatusApproved, StepStatusPending)}
	assert.Equal(t, DocStatusPendingReview, doc.DeriveStatus())

	doc.ApprovalChain = chain(StepStatusApproved, StepStatusApproved)
	assert.Equal(t, DocStatusApproved, doc.DeriveStatus())
}

func TestDeriveStatusRejectedWhenAnyStepRejected(t *testing.T) {
	doc := &Document{Status: DocStatusPendingReview, ApprovalChain: chain(StepStatusApproved, StepStatusRejected, StepStatusPending)}
	assert.Equal(t, DocStatusRejected, doc.DeriveStatus())
}

func TestDeriveStatusWithoutChainKeepsStoredStatus(t *testing.T) {
	// No workflow applied at upload: the document was approved outright
	doc := &Document{Status: DocStatusApproved}
	assert.Equal(t, DocStatusApproved, doc.DeriveStatus())
}

func TestCurrentApprover(t *testing.T) {
	uid := primitive.NewObjectID()
	doc := &Document{
		Status: DocStatusPendingReview,
		ApprovalChain: []ApprovalStep{
			{Level: 1, Status: StepStatusApproved},
			{Level: 2, Status: StepStatusPending, Approver: &uid},
		},
	}
	require.NotNil(t, doc.CurrentApprover())
	assert.Equal(t, uid, *doc.CurrentApprover())

	doc.ApprovalChain[1].Approver = nil
	assert.Nil(t, doc.CurrentApprover())
}

func TestFormatFileSize(t *testing.T) {
	assert.Equal(t, "512 B", FormatFileSize(512))
	assert.Equal(t, "1.0 KB", FormatFileSize(1024))
	assert.Equal(t, "1.5 MB", FormatFileSize(1536*1024))
}

func TestNormalizeTags(t *testing.T) {
	tags := NormalizeTags([]string{" Invoice ", "invoice", "", "Q3", "q3"})
	assert.Equal(t, []string{"invoice", "q3"}, tags)
}
