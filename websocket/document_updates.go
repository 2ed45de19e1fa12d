package websocket

import (
	"encoding/json"
	"log"
	"time"
)

// DocumentUpdate is the single domain event shape emitted by every document
// mutation. Socket delivery here; notifications and audit are separate
// subscribers in the handlers.
type DocumentUpdate struct {
	Type       string      `json:"type"` // DOCUMENT_CREATED, DOCUMENT_STATUS_CHANGE, DOCUMENT_REPLACED
	DocumentID string      `json:"documentId,omitempty"`
	Data       interface{} `json:"data,omitempty"`
	Timestamp  time.Time   `json:"timestamp"`
	UserID     string      `json:"userId,omitempty"`
	UserName   string      `json:"userName,omitempty"`
}

// BroadcastDocumentUpdate sends an update to every client allowed to see the
// department's documents.
func BroadcastDocumentUpdate(department string, update DocumentUpdate) {
	data, err := json.Marshal(update)
	if err != nil {
		log.Printf("Failed to marshal document update: %v", err)
		return
	}
	hub.broadcast(department, data)
}

// SendDocumentCreated broadcasts a new document upload.
func SendDocumentCreated(department string, doc interface{}, userID, userName string) {
	BroadcastDocumentUpdate(department, DocumentUpdate{
		Type:      "DOCUMENT_CREATED",
		Data:      doc,
		Timestamp: time.Now(),
		UserID:    userID,
		UserName:  userName,
	})
}

// SendDocumentStatusChange broadcasts an approval-chain status transition.
func SendDocumentStatusChange(department, documentID, oldStatus, newStatus, userID, userName string) {
	BroadcastDocumentUpdate(department, DocumentUpdate{
		Type:       "DOCUMENT_STATUS_CHANGE",
		DocumentID: documentID,
		Data: map[string]interface{}{
			"oldStatus": oldStatus,
			"newStatus": newStatus,
		},
		Timestamp: time.Now(),
		UserID:    userID,
		UserName:  userName,
	})
}

// SendDocumentReplaced broadcasts a file replacement on a project document.
func SendDocumentReplaced(department, documentID string, doc interface{}, userID, userName string) {
	BroadcastDocumentUpdate(department, DocumentUpdate{
		Type:       "DOCUMENT_REPLACED",
		DocumentID: documentID,
		Data:       doc,
		Timestamp:  time.Now(),
		UserID:     userID,
		UserName:   userName,
	})
}
