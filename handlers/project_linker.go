package handlers

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"path/filepath"
	"time"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"erpdocs/models"
	"erpdocs/utils"
	ws "erpdocs/websocket"
)

// linkDocumentToProject flips the matching checklist entry, recomputes the
// project's progress and notifies the next approver. The checklist flip is a
// single conditional update keyed on documentType + isSubmitted:false, so two
// concurrent uploads of the same type cannot both claim the entry.
func linkDocumentToProject(ctx context.Context, doc *models.Document, act *actor) error {
	if doc.Project == nil {
		return nil
	}

	var project models.Project
	err := projectCollection.FindOne(ctx, bson.M{"_id": *doc.Project}).Decode(&project)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return fmt.Errorf("%w: project %s", models.ErrNotFound, doc.Project.Hex())
		}
		return fmt.Errorf("failed to load project: %w", err)
	}

	now := time.Now().UTC()
	result, err := projectCollection.UpdateOne(ctx,
		bson.M{
			"_id": project.ID,
			"requiredDocuments": bson.M{"$elemMatch": bson.M{
				"documentType": doc.DocumentType,
				"isSubmitted":  false,
			}},
		},
		bson.M{"$set": bson.M{
			"requiredDocuments.$.isSubmitted": true,
			"requiredDocuments.$.submittedAt": now,
			"requiredDocuments.$.submittedBy": act.ID,
			"requiredDocuments.$.documentId":  doc.ID,
			"requiredDocuments.$.fileName":    doc.FileName,
			"requiredDocuments.$.fileUrl":     doc.FileURL,
			"updatedAt":                       now,
		}},
	)
	if err != nil {
		return fmt.Errorf("checklist update failed: %w", err)
	}
	if result.MatchedCount == 0 {
		// Not on the checklist, or that slot is already satisfied. The
		// document still belongs to the project, there is just nothing to flip
		log.Printf("Document type %q not pending on project %s checklist", doc.DocumentType, project.Code)
	}

	// Recompute progress from the stored checklist. Derived purely from
	// state, so repeating it after a redundant flip is harmless.
	if err := projectCollection.FindOne(ctx, bson.M{"_id": project.ID}).Decode(&project); err != nil {
		return fmt.Errorf("failed to reload project: %w", err)
	}
	progress := project.ComputeProgress()
	if _, err := projectCollection.UpdateOne(ctx,
		bson.M{"_id": project.ID},
		bson.M{"$set": bson.M{"progress": progress, "updatedAt": time.Now().UTC()}},
	); err != nil {
		log.Printf("Progress update failed for project %s: %v", project.Code, err)
	}

	uploadedCount, err := documentCollection.CountDocuments(ctx, bson.M{"project": project.ID, "isActive": true})
	if err != nil {
		log.Printf("Uploaded-count query failed for project %s: %v", project.Code, err)
	}

	if doc.Status == models.DocStatusPendingReview || project.AllDocumentsSubmitted(int(uploadedCount)) {
		ntype := notificationTypeForUpload(project.AllDocumentsSubmitted(int(uploadedCount)))
		notifyProjectApprovers(ctx, &project, doc, ntype)
	}
	return nil
}

// notifyProjectApprovers resolves the project's next chain level and informs
// its reviewers, falling back to the document's own chain when the project
// has no template.
func notifyProjectApprovers(ctx context.Context, project *models.Project, doc *models.Document, ntype string) {
	next := project.NextChainLevel()
	if next == nil {
		notifyStepApprovers(ctx, doc, ntype)
		return
	}

	var approvers []models.User
	escalated := false
	if next.Approver != nil {
		var u models.User
		if err := userCollection.FindOne(ctx, bson.M{"_id": *next.Approver}).Decode(&u); err == nil {
			approvers = []models.User{u}
		}
	}
	if len(approvers) == 0 {
		resolved, err := ResolveApprovers(ctx, next.Department, models.RoleLevelApprover)
		if err != nil {
			log.Printf("Approver resolution failed for project %s department %s: %v", project.Code, next.Department, err)
		}
		approvers = resolved
	}
	if len(approvers) == 0 {
		approvers = superAdmins(ctx)
		escalated = true
	}
	if escalated {
		ntype = models.NotifyApprovalEscalated
	}

	title := "Document approval required"
	message := "Document " + doc.Reference + " was uploaded to project " + project.Name
	if ntype == models.NotifyProjectReadyForApproval {
		title = "Project ready for approval"
		message = "Project " + project.Name + " has all required documents submitted"
	}

	notifyUsers(ctx, approvers, ntype, title, message,
		"/projects/"+project.ID.Hex(),
		bson.M{
			"projectId":  project.ID.Hex(),
			"documentId": doc.ID.Hex(),
			"reference":  doc.Reference,
		})
}

// ReplaceProjectDocument swaps the file behind an existing project document.
// The document keeps its identity but gets new file fields, a fresh reference
// and a restarted approval chain. Finalized projects reject replacements.
func ReplaceProjectDocument(w http.ResponseWriter, r *http.Request) {
	act, ok := actorFromRequest(r)
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "User ID required")
		return
	}

	vars := mux.Vars(r)
	projectID, err := primitive.ObjectIDFromHex(vars["projectId"])
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid project ID format")
		return
	}
	docID, err := primitive.ObjectIDFromHex(vars["documentId"])
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid document ID format")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	var project models.Project
	err = projectCollection.FindOne(ctx, bson.M{"_id": projectID}).Decode(&project)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			utils.RespondWithError(w, http.StatusNotFound, "Project not found")
		} else {
			utils.RespondWithError(w, http.StatusInternalServerError, "Failed to fetch project")
		}
		return
	}

	// Guard against mutating finalized records: no partial mutation happens
	// past this point if the project is already approved or completed.
	if project.IsFinalized() {
		utils.RespondWithDomainError(w, fmt.Errorf(
			"%w: project %s is %s; its documents can no longer be replaced",
			models.ErrConflict, project.Code, project.Status))
		return
	}

	var doc models.Document
	err = documentCollection.FindOne(ctx, bson.M{"_id": docID, "project": projectID, "isActive": true}).Decode(&doc)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			utils.RespondWithError(w, http.StatusNotFound, "Document not found on this project")
		} else {
			utils.RespondWithError(w, http.StatusInternalServerError, "Failed to fetch document")
		}
		return
	}

	if !canMutateDocument(&doc, act) {
		utils.RespondWithError(w, http.StatusForbidden, "Only the uploader or an administrator can replace this document")
		return
	}

	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid multipart payload: "+err.Error())
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "File is required")
		return
	}
	defer file.Close()

	// The replacement restarts review from scratch
	status, workflow := determineDocumentStatus(ctx, doc.Category, doc.Department)
	chain := buildApprovalChain(workflow)

	now := time.Now().UTC()
	previous := models.PreviousVersion{
		FileName:   doc.OriginalFileName,
		FileSize:   doc.FileSize,
		Reference:  doc.Reference,
		ReplacedAt: now,
	}

	replaced := false
	var newReference, newFileName string
	for attempt := 0; attempt < referenceMaxAttempts; attempt++ {
		newReference = utils.GenerateReference(doc.Category)
		newFileName = newReference + filepath.Ext(header.Filename)

		_, err = documentCollection.UpdateOne(ctx,
			bson.M{"_id": docID},
			bson.M{
				"$set": bson.M{
					"reference":        newReference,
					"fileName":         newFileName,
					"originalFileName": header.Filename,
					"fileUrl":          "/uploads/" + newFileName,
					"fileSize":         header.Size,
					"mimeType":         header.Header.Get("Content-Type"),
					"status":           status,
					"approvalChain":    chain,
					"updatedAt":        now,
				},
				"$inc": bson.M{"replacementCount": 1, "version": 1},
				"$push": bson.M{
					"previousVersions": previous,
					"auditTrail": models.AuditEntry{
						Action:    "document_replace",
						UserID:    act.ID,
						Timestamp: now,
						Details:   bson.M{"previousFileName": previous.FileName, "previousFileSize": previous.FileSize},
					},
				},
			},
		)
		if err == nil {
			replaced = true
			break
		}
		if !mongo.IsDuplicateKeyError(err) {
			log.Printf("ReplaceProjectDocument - update error: %v", err)
			utils.RespondWithError(w, http.StatusInternalServerError, "Failed to replace document")
			return
		}
	}
	if !replaced {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to generate a unique reference")
		return
	}

	if err := saveUploadedFile(file, newFileName); err != nil {
		log.Printf("ReplaceProjectDocument - file save failed: %v", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to store file")
		return
	}

	// Point the checklist entry at the new file
	if _, err := projectCollection.UpdateOne(ctx,
		bson.M{"_id": projectID, "requiredDocuments": bson.M{"$elemMatch": bson.M{"documentId": docID}}},
		bson.M{"$set": bson.M{
			"requiredDocuments.$.fileName": newFileName,
			"requiredDocuments.$.fileUrl":  "/uploads/" + newFileName,
			"updatedAt":                    time.Now().UTC(),
		}},
	); err != nil {
		log.Printf("ReplaceProjectDocument - checklist update failed: %v", err)
	}

	var updated models.Document
	if err = documentCollection.FindOne(ctx, bson.M{"_id": docID}).Decode(&updated); err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Document replaced but failed to fetch details")
		return
	}

	writeAudit(ctx, r, act, "document_replace", "document", docID, bson.M{
		"projectId":        projectID.Hex(),
		"oldReference":     previous.Reference,
		"newReference":     newReference,
		"replacementCount": updated.ReplacementCount,
	})
	ws.SendDocumentReplaced(updated.Department, docID.Hex(), updated, act.IDHex, act.Name)

	if updated.Status == models.DocStatusPendingReview {
		notifyProjectApprovers(ctx, &project, &updated, models.NotifyDocumentApprovalRequired)
	}

	log.Printf("Document %s replaced on project %s (now %s)", previous.Reference, project.Code, newReference)

	utils.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"document": updated,
		"message":  "Document replaced successfully",
		"success":  true,
	})
}
