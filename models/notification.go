// models/notification.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Notification types emitted by the document engine. Stable tags: clients and
// the mail worker dispatch on them.
const (
	NotifyDocumentUploaded         = "DOCUMENT_UPLOADED"
	NotifyDocumentApprovalRequired = "DOCUMENT_APPROVAL_REQUIRED"
	NotifyProjectReadyForApproval  = "PROJECT_READY_FOR_APPROVAL"
	NotifyDocumentApproved         = "DOCUMENT_APPROVED"
	NotifyDocumentRejected         = "DOCUMENT_REJECTED"
	NotifyApprovalEscalated        = "APPROVAL_ESCALATED"
)

type Notification struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Recipient primitive.ObjectID `bson:"recipient" json:"recipient"`
	Type      string             `bson:"type" json:"type"`
	Title     string             `bson:"title" json:"title"`
	Message   string             `bson:"message" json:"message"`
	Data      bson.M             `bson:"data,omitempty" json:"data,omitempty"`
	IsRead    bool               `bson:"isRead" json:"isRead"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}
