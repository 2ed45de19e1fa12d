// models/workflow.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// WorkflowLevel is one step template inside a workflow configuration. When
// Approver is nil the step is resolved dynamically at review time by
// department + role level.
type WorkflowLevel struct {
	Level      int                 `bson:"level" json:"level"`
	Department string              `bson:"department" json:"department"`
	Approver   *primitive.ObjectID `bson:"approver,omitempty" json:"approver,omitempty"`
}

// ApprovalWorkflow decides whether a freshly uploaded document enters review
// and, if so, which chain it gets. Category/Department may be the literal
// "ALL" to act as the global default.
type ApprovalWorkflow struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name       string             `bson:"name" json:"name"`
	Category   string             `bson:"category" json:"category"`
	Department string             `bson:"department" json:"department"`
	Levels     []WorkflowLevel    `bson:"levels" json:"levels"`
	IsActive   bool               `bson:"isActive" json:"isActive"`
	CreatedBy  primitive.ObjectID `bson:"createdBy,omitempty" json:"createdBy,omitempty"`
	CreatedAt  time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt  time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// Matches reports whether this workflow applies to the given classification
// exactly (no wildcard involved).
func (w *ApprovalWorkflow) Matches(category, department string) bool {
	return w.Category == category && w.Department == department
}

// IsGlobalDefault reports whether this workflow is the ALL/ALL fallback.
func (w *ApprovalWorkflow) IsGlobalDefault() bool {
	return w.Category == WildcardAll && w.Department == WildcardAll
}
