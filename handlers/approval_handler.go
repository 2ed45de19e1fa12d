package handlers

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"erpdocs/models"
	"erpdocs/utils"
	ws "erpdocs/websocket"
)

// ApproveDocument transitions the current pending step to approved. When the
// chain is exhausted the document itself becomes approved.
func ApproveDocument(w http.ResponseWriter, r *http.Request) {
	processApprovalAction(w, r, models.StepStatusApproved)
}

// RejectDocument transitions the current pending step to rejected. Rejection
// is terminal: the document is rejected immediately and the chain stops.
func RejectDocument(w http.ResponseWriter, r *http.Request) {
	processApprovalAction(w, r, models.StepStatusRejected)
}

func processApprovalAction(w http.ResponseWriter, r *http.Request, action string) {
	if documentCollection == nil {
		utils.RespondWithError(w, http.StatusInternalServerError,
			"Server configuration error: documents database not initialized")
		return
	}

	act, ok := actorFromRequest(r)
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "User ID required")
		return
	}

	docID, err := primitive.ObjectIDFromHex(mux.Vars(r)["id"])
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid document ID format")
		return
	}

	var req struct {
		Comments string `json:"comments,omitempty"`
	}
	if r.Body != nil {
		_ = utils.ParseJSON(r, &req) // comments are optional
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	var doc models.Document
	err = documentCollection.FindOne(ctx, bson.M{"_id": docID, "isActive": true}).Decode(&doc)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			utils.RespondWithError(w, http.StatusNotFound, "Document not found")
		} else {
			utils.RespondWithError(w, http.StatusInternalServerError, "Failed to fetch document")
		}
		return
	}

	if doc.Status == models.DocStatusApproved || doc.Status == models.DocStatusRejected {
		utils.RespondWithDomainError(w, fmt.Errorf("%w: document is already %s", models.ErrConflict, doc.Status))
		return
	}

	step := doc.CurrentStep()
	if step == nil {
		utils.RespondWithDomainError(w, fmt.Errorf("%w: no pending approval step", models.ErrConflict))
		return
	}

	if err := authorizeStepActor(ctx, step, act); err != nil {
		utils.RespondWithDomainError(w, err)
		return
	}

	// Atomic conditional update: the step transitions only if it is still
	// pending at this exact level. Two concurrent reviewers cannot both win:
	// the loser matches nothing and gets a conflict, never a lost update.
	now := time.Now().UTC()
	result, err := documentCollection.UpdateOne(ctx,
		stepActionFilter(docID, step.Level),
		stepActionUpdate(action, act.ID, step.Level, req.Comments, now),
	)
	if err != nil {
		log.Printf("processApprovalAction - update error: %v", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to update approval step")
		return
	}
	if err := stepResolutionError(result.MatchedCount); err != nil {
		utils.RespondWithDomainError(w, err)
		return
	}

	var updated models.Document
	if err = documentCollection.FindOne(ctx, bson.M{"_id": docID}).Decode(&updated); err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Step updated but failed to fetch document")
		return
	}

	// Derive the aggregate status from the chain. Only one step is pending at
	// a time, so this read-derive-write cannot race another approval on the
	// same document version.
	oldStatus := updated.Status
	derived := updated.DeriveStatus()
	if derived != updated.Status {
		if _, err := documentCollection.UpdateOne(ctx,
			bson.M{"_id": docID, "status": bson.M{"$ne": models.DocStatusRejected}},
			bson.M{"$set": bson.M{"status": derived, "updatedAt": time.Now().UTC()}},
		); err != nil {
			log.Printf("processApprovalAction - status derivation update failed: %v", err)
		} else {
			updated.Status = derived
		}
	}

	writeAudit(ctx, r, act, "document_"+action, "document", docID, bson.M{
		"reference": updated.Reference,
		"level":     step.Level,
		"oldStatus": oldStatus,
		"newStatus": updated.Status,
		"comments":  req.Comments,
	})
	ws.SendDocumentStatusChange(updated.Department, docID.Hex(), oldStatus, updated.Status, act.IDHex, act.Name)

	notifyApprovalOutcome(ctx, &updated, action)

	log.Printf("Document %s step %d %s by %s", updated.Reference, step.Level, action, act.IDHex)

	utils.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"document": updated,
		"message":  "Document " + action + " recorded",
		"success":  true,
	})
}

// stepActionFilter matches the document only while the given level is still
// pending. A step resolved by a concurrent reviewer matches nothing.
func stepActionFilter(docID primitive.ObjectID, level int) bson.M {
	return bson.M{
		"_id":    docID,
		"status": models.DocStatusPendingReview,
		"approvalChain": bson.M{"$elemMatch": bson.M{
			"level":  level,
			"status": models.StepStatusPending,
		}},
	}
}

// stepActionUpdate builds the positional step transition plus the audit-trail
// append. Rejection also sets the terminal document status in the same write.
func stepActionUpdate(action string, actorID primitive.ObjectID, level int, comments string, now time.Time) bson.M {
	update := bson.M{
		"$set": bson.M{
			"approvalChain.$.status":     action,
			"approvalChain.$.comments":   comments,
			"approvalChain.$.actionDate": now,
			"approvalChain.$.approver":   actorID,
			"updatedAt":                  now,
		},
		"$push": bson.M{
			"auditTrail": models.AuditEntry{
				Action:    "document_" + action,
				UserID:    actorID,
				Timestamp: now,
				Details:   bson.M{"level": level, "comments": comments},
			},
		},
	}
	if action == models.StepStatusRejected {
		update["$set"].(bson.M)["status"] = models.DocStatusRejected
	}
	return update
}

// stepResolutionError maps a conditional update that matched nothing onto the
// conflict error: the step was already resolved by another reviewer.
func stepResolutionError(matchedCount int64) error {
	if matchedCount == 0 {
		return fmt.Errorf("%w: approval step already resolved", models.ErrConflict)
	}
	return nil
}

// authorizeStepActor checks that the caller is the assigned or resolved
// approver for the step. Steps without a bound approver resolve dynamically
// by department + role level; zero candidates escalates to super-admins.
func authorizeStepActor(ctx context.Context, step *models.ApprovalStep, act *actor) error {
	if step.Approver != nil {
		if *step.Approver == act.ID {
			return nil
		}
		return fmt.Errorf("%w: you are not the assigned approver for this step", models.ErrNotAuthorized)
	}

	approvers, err := ResolveApprovers(ctx, step.Department, models.RoleLevelApprover)
	if err != nil {
		return fmt.Errorf("failed to resolve approvers: %w", err)
	}
	if len(approvers) == 0 {
		// Escalated step: super-admins act in place of the missing approvers
		if act.RoleLevel >= models.RoleLevelSuperAdmin {
			return nil
		}
		return fmt.Errorf("%w: approval for this step has been escalated to administrators", models.ErrNotAuthorized)
	}
	for _, u := range approvers {
		if u.ID == act.ID {
			return nil
		}
	}
	return fmt.Errorf("%w: you are not a resolved approver for this step", models.ErrNotAuthorized)
}

// notifyApprovalOutcome informs the uploader of terminal outcomes and the
// next reviewer of advancing chains. Failures never surface to the caller.
func notifyApprovalOutcome(ctx context.Context, doc *models.Document, action string) {
	var uploader models.User
	if err := userCollection.FindOne(ctx, bson.M{"_id": doc.CreatedBy}).Decode(&uploader); err != nil {
		log.Printf("Uploader %s not found for notification: %v", doc.CreatedBy.Hex(), err)
		return
	}

	switch {
	case doc.Status == models.DocStatusApproved:
		notifyUsers(ctx, []models.User{uploader}, models.NotifyDocumentApproved,
			"Document approved",
			"Document "+doc.Reference+" has completed its approval chain",
			"/documents/"+doc.ID.Hex(),
			bson.M{"documentId": doc.ID.Hex(), "reference": doc.Reference})
	case doc.Status == models.DocStatusRejected:
		notifyUsers(ctx, []models.User{uploader}, models.NotifyDocumentRejected,
			"Document rejected",
			"Document "+doc.Reference+" was rejected during review",
			"/documents/"+doc.ID.Hex(),
			bson.M{"documentId": doc.ID.Hex(), "reference": doc.Reference})
	case action == models.StepStatusApproved:
		notifyStepApprovers(ctx, doc, models.NotifyDocumentApprovalRequired)
	}
}

// ListPendingApprovals returns documents whose current step awaits the caller.
func ListPendingApprovals(w http.ResponseWriter, r *http.Request) {
	act, ok := actorFromRequest(r)
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "User ID required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 12*time.Second)
	defer cancel()

	filter := bson.M{
		"isActive": true,
		"status":   models.DocStatusPendingReview,
		"approvalChain": bson.M{"$elemMatch": bson.M{
			"status": models.StepStatusPending,
			"$or": []bson.M{
				{"approver": act.ID},
				{"approver": nil, "department": act.Department},
			},
		}},
	}

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}).SetLimit(100)
	cursor, err := documentCollection.Find(ctx, filter, opts)
	if err != nil {
		log.Printf("ListPendingApprovals - Find failed: %v", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to fetch pending approvals")
		return
	}
	defer cursor.Close(ctx)

	var candidates []models.Document
	if err = cursor.All(ctx, &candidates); err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to decode pending approvals")
		return
	}

	// The query matches any pending step; keep only documents whose *current*
	// step (lowest pending level) the caller may act on.
	pending := make([]models.Document, 0, len(candidates))
	for i := range candidates {
		step := candidates[i].CurrentStep()
		if step == nil {
			continue
		}
		if step.Approver != nil && *step.Approver == act.ID {
			pending = append(pending, candidates[i])
			continue
		}
		if step.Approver == nil && step.Department == act.Department && act.RoleLevel >= models.RoleLevelApprover {
			pending = append(pending, candidates[i])
		}
	}

	utils.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"documents": pending,
		"count":     len(pending),
		"success":   true,
	})
}
