// models/project.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Project statuses that matter to the document engine. A project whose status
// is approved or completed is finalized: its documents may no longer be
// replaced.
const (
	ProjectStatusPlanning  = "planning"
	ProjectStatusActive    = "active"
	ProjectStatusApproved  = "approved"
	ProjectStatusCompleted = "completed"
)

// RequiredDocument is one entry of a project's document checklist.
type RequiredDocument struct {
	DocumentType string              `bson:"documentType" json:"documentType"`
	IsSubmitted  bool                `bson:"isSubmitted" json:"isSubmitted"`
	SubmittedAt  *time.Time          `bson:"submittedAt,omitempty" json:"submittedAt,omitempty"`
	SubmittedBy  *primitive.ObjectID `bson:"submittedBy,omitempty" json:"submittedBy,omitempty"`
	DocumentID   *primitive.ObjectID `bson:"documentId,omitempty" json:"documentId,omitempty"`
	FileName     string              `bson:"fileName,omitempty" json:"fileName,omitempty"`
	FileURL      string              `bson:"fileUrl,omitempty" json:"fileUrl,omitempty"`
}

// ChainLevel is one level of a project's approval chain template. The engine
// reads it to find the department whose approvers review the next step.
type ChainLevel struct {
	Level      int                 `bson:"level" json:"level"`
	Department string              `bson:"department" json:"department"`
	Approver   *primitive.ObjectID `bson:"approver,omitempty" json:"approver,omitempty"`
}

type Project struct {
	ID                primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name              string             `bson:"name" json:"name"`
	Code              string             `bson:"code" json:"code"`
	Status            string             `bson:"status" json:"status"`
	Department        string             `bson:"department,omitempty" json:"department,omitempty"`
	RequiredDocuments []RequiredDocument `bson:"requiredDocuments,omitempty" json:"requiredDocuments,omitempty"`
	ApprovalChain     []ChainLevel       `bson:"approvalChain,omitempty" json:"approvalChain,omitempty"`
	Progress          int                `bson:"progress" json:"progress"`
	CreatedBy         primitive.ObjectID `bson:"createdBy,omitempty" json:"createdBy,omitempty"`
	CreatedAt         time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt         time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// IsFinalized reports whether the project may no longer have documents
// replaced.
func (p *Project) IsFinalized() bool {
	return p.Status == ProjectStatusApproved || p.Status == ProjectStatusCompleted
}

// SubmittedCount counts checklist entries already satisfied.
func (p *Project) SubmittedCount() int {
	n := 0
	for _, rd := range p.RequiredDocuments {
		if rd.IsSubmitted {
			n++
		}
	}
	return n
}

// ComputeProgress recomputes checklist progress as a whole percentage. It is
// derived purely from checklist state, so recomputing is safe to repeat.
func (p *Project) ComputeProgress() int {
	if len(p.RequiredDocuments) == 0 {
		return 0
	}
	return p.SubmittedCount() * 100 / len(p.RequiredDocuments)
}

// AllDocumentsSubmitted is the readiness signal: true once the number of
// uploaded documents covers the checklist length.
func (p *Project) AllDocumentsSubmitted(uploadedCount int) bool {
	return uploadedCount >= len(p.RequiredDocuments)
}

// NextChainLevel returns the lowest chain template level, which determines the
// department asked to review freshly uploaded documents.
func (p *Project) NextChainLevel() *ChainLevel {
	var next *ChainLevel
	for i := range p.ApprovalChain {
		lvl := &p.ApprovalChain[i]
		if next == nil || lvl.Level < next.Level {
			next = lvl
		}
	}
	return next
}
