// models/document.go
package models

import (
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Document statuses. Status is derived from the approval chain once one
// exists; clients never set it directly.
const (
	DocStatusDraft         = "draft"
	DocStatusPendingReview = "pending_review"
	DocStatusApproved      = "approved"
	DocStatusRejected      = "rejected"
)

// Approval step statuses
const (
	StepStatusPending   = "pending"
	StepStatusApproved  = "approved"
	StepStatusRejected  = "rejected"
	StepStatusDelegated = "delegated"
)

// Coarse role levels used across the platform
const (
	RoleLevelSuperAdmin = 1000
	RoleLevelApprover   = 700
	RoleLevelViewAll    = 100
)

// WildcardAll matches any category/department in workflow configs
const WildcardAll = "ALL"

// allowedDocumentTypes maps each category to its valid document types.
var allowedDocumentTypes = map[string][]string{
	"Policy":      {"HR Policy", "IT Policy", "Finance Policy", "Compliance Policy"},
	"Contract":    {"Employment Contract", "Vendor Contract", "Service Agreement", "NDA"},
	"Financial":   {"Invoice", "Receipt", "Budget", "Payment Voucher", "Tax Document"},
	"Project":     {"Project Proposal", "Project Plan", "Progress Report", "Completion Certificate"},
	"Procurement": {"Purchase Order", "Quotation", "Delivery Note"},
	"General":     {"Memo", "Report", "Letter", "Other"},
}

// AllowedTypes returns the document types valid for a category, nil if the
// category itself is unknown.
func AllowedTypes(category string) []string {
	return allowedDocumentTypes[category]
}

// ValidateClassification enforces documentType ∈ allowedTypes(category).
func ValidateClassification(category, documentType string) error {
	types, ok := allowedDocumentTypes[category]
	if !ok {
		return fmt.Errorf("%w: unknown category %q", ErrValidation, category)
	}
	for _, t := range types {
		if t == documentType {
			return nil
		}
	}
	return fmt.Errorf("%w: document type %q is not valid for category %q", ErrValidation, documentType, category)
}

type ApprovalStep struct {
	Level      int                 `bson:"level" json:"level"`
	Approver   *primitive.ObjectID `bson:"approver,omitempty" json:"approver,omitempty"`
	Department string              `bson:"department,omitempty" json:"department,omitempty"`
	Status     string              `bson:"status" json:"status"`
	Comments   string              `bson:"comments,omitempty" json:"comments,omitempty"`
	ActionDate *time.Time          `bson:"actionDate,omitempty" json:"actionDate,omitempty"`
}

type OCRData struct {
	ExtractedText          string   `bson:"extractedText,omitempty" json:"extractedText,omitempty"`
	Confidence             float64  `bson:"confidence" json:"confidence"`
	DocumentType           string   `bson:"documentType,omitempty" json:"documentType,omitempty"`
	Keywords               []string `bson:"keywords,omitempty" json:"keywords,omitempty"`
	DateReferences         []string `bson:"dateReferences,omitempty" json:"dateReferences,omitempty"`
	OrganizationReferences []string `bson:"organizationReferences,omitempty" json:"organizationReferences,omitempty"`
	MonetaryValues         []string `bson:"monetaryValues,omitempty" json:"monetaryValues,omitempty"`
}

type AuditEntry struct {
	Action    string             `bson:"action" json:"action"`
	UserID    primitive.ObjectID `bson:"userId" json:"userId"`
	Timestamp time.Time          `bson:"timestamp" json:"timestamp"`
	Details   bson.M             `bson:"details,omitempty" json:"details,omitempty"`
}

type PreviousVersion struct {
	FileName   string    `bson:"fileName" json:"fileName"`
	FileSize   int64     `bson:"fileSize" json:"fileSize"`
	Reference  string    `bson:"reference" json:"reference"`
	ReplacedAt time.Time `bson:"replacedAt" json:"replacedAt"`
}

type Document struct {
	ID               primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	Reference        string              `bson:"reference" json:"reference"`
	Title            string              `bson:"title" json:"title"`
	Description      string              `bson:"description,omitempty" json:"description,omitempty"`
	FileName         string              `bson:"fileName" json:"fileName"`
	OriginalFileName string              `bson:"originalFileName" json:"originalFileName"`
	FileURL          string              `bson:"fileUrl" json:"fileUrl"`
	FileSize         int64               `bson:"fileSize" json:"fileSize"`
	MimeType         string              `bson:"mimeType,omitempty" json:"mimeType,omitempty"`
	Category         string              `bson:"category" json:"category"`
	DocumentType     string              `bson:"documentType" json:"documentType"`
	Priority         string              `bson:"priority,omitempty" json:"priority,omitempty"`
	Tags             []string            `bson:"tags,omitempty" json:"tags,omitempty"`
	IsConfidential   bool                `bson:"isConfidential" json:"isConfidential"`
	Status           string              `bson:"status" json:"status"`
	ApprovalChain    []ApprovalStep      `bson:"approvalChain,omitempty" json:"approvalChain,omitempty"`
	Project          *primitive.ObjectID `bson:"project,omitempty" json:"project,omitempty"`
	Department       string              `bson:"department,omitempty" json:"department,omitempty"`
	CreatedBy        primitive.ObjectID  `bson:"createdBy" json:"createdBy"`
	IsActive         bool                `bson:"isActive" json:"isActive"`
	Version          int                 `bson:"version" json:"version"`
	ReplacementCount int                 `bson:"replacementCount,omitempty" json:"replacementCount,omitempty"`
	PreviousVersions []PreviousVersion   `bson:"previousVersions,omitempty" json:"previousVersions,omitempty"`
	OCRData          *OCRData            `bson:"ocrData,omitempty" json:"ocrData,omitempty"`
	AuditTrail       []AuditEntry        `bson:"auditTrail,omitempty" json:"auditTrail,omitempty"`
	CreatedAt        time.Time           `bson:"createdAt" json:"createdAt"`
	UpdatedAt        time.Time           `bson:"updatedAt" json:"updatedAt"`
}

// CurrentStep returns the pending step with the lowest level, or nil when the
// chain is exhausted or the document is terminal. Steps resolve strictly in
// ascending level order, so this is the only step an approve/reject may touch.
func (d *Document) CurrentStep() *ApprovalStep {
	if d.Status == DocStatusRejected {
		return nil
	}
	var current *ApprovalStep
	for i := range d.ApprovalChain {
		step := &d.ApprovalChain[i]
		if step.Status != StepStatusPending {
			continue
		}
		if current == nil || step.Level < current.Level {
			current = step
		}
	}
	return current
}

// DeriveStatus computes the document status from the chain: rejected if any
// step is rejected, approved iff every step is approved, otherwise still under
// review. Documents without a chain keep their stored status.
func (d *Document) DeriveStatus() string {
	if len(d.ApprovalChain) == 0 {
		return d.Status
	}
	allApproved := true
	for _, step := range d.ApprovalChain {
		if step.Status == StepStatusRejected {
			return DocStatusRejected
		}
		if step.Status != StepStatusApproved {
			allApproved = false
		}
	}
	if allApproved {
		return DocStatusApproved
	}
	return DocStatusPendingReview
}

// CurrentApprover returns the statically bound approver of the current step,
// nil when the chain is exhausted or the step resolves dynamically.
func (d *Document) CurrentApprover() *primitive.ObjectID {
	step := d.CurrentStep()
	if step == nil {
		return nil
	}
	return step.Approver
}

// FormatFileSize renders a byte count the way the upload response expects it.
func FormatFileSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %s", float64(bytes)/float64(div), []string{"KB", "MB", "GB", "TB"}[exp])
}

// NormalizeTags trims, lowercases and de-duplicates a tag list.
func NormalizeTags(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
