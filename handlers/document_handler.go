package handlers

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
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

const (
	maxUploadSize        = 50 << 20 // 50 MB
	uploadDir            = "./uploads"
	referenceMaxAttempts = 5
)

// UploadDocument ingests a file plus metadata, decides the initial status via
// the workflow lookup, synthesizes the approval chain and links the document
// to its project checklist when a projectId is supplied.
func UploadDocument(w http.ResponseWriter, r *http.Request) {
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

	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid multipart payload: "+err.Error())
		return
	}

	title := strings.TrimSpace(r.FormValue("title"))
	category := r.FormValue("category")
	documentType := r.FormValue("documentType")
	if title == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "Title is required")
		return
	}
	if err := models.ValidateClassification(category, documentType); err != nil {
		utils.RespondWithDomainError(w, err)
		return
	}

	department := r.FormValue("department")
	if department == "" {
		department = act.Department
	}

	var projectID *primitive.ObjectID
	if projectIDStr := r.FormValue("projectId"); projectIDStr != "" {
		pid, err := primitive.ObjectIDFromHex(projectIDStr)
		if err != nil {
			utils.RespondWithError(w, http.StatusBadRequest, "Invalid project ID format")
			return
		}
		projectID = &pid
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "File is required")
		return
	}
	defer file.Close()

	// OCR output arrives pre-extracted alongside the upload; the engine only
	// consumes it.
	var ocrData *models.OCRData
	if raw := r.FormValue("ocrData"); raw != "" {
		ocrData = &models.OCRData{}
		if err := json.Unmarshal([]byte(raw), ocrData); err != nil {
			utils.RespondWithError(w, http.StatusBadRequest, "Invalid ocrData payload")
			return
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	status, workflow := determineDocumentStatus(ctx, category, department)
	chain := buildApprovalChain(workflow)

	now := time.Now().UTC()
	doc := models.Document{
		ID:               primitive.NewObjectID(),
		Title:            title,
		Description:      r.FormValue("description"),
		OriginalFileName: header.Filename,
		FileSize:         header.Size,
		MimeType:         header.Header.Get("Content-Type"),
		Category:         category,
		DocumentType:     documentType,
		Priority:         r.FormValue("priority"),
		Tags:             models.NormalizeTags(strings.Split(r.FormValue("tags"), ",")),
		IsConfidential:   r.FormValue("confidential") == "true",
		Status:           status,
		ApprovalChain:    chain,
		Project:          projectID,
		Department:       department,
		CreatedBy:        act.ID,
		IsActive:         true,
		Version:          1,
		OCRData:          ocrData,
		AuditTrail: []models.AuditEntry{{
			Action:    "document_upload",
			UserID:    act.ID,
			Timestamp: now,
			Details:   bson.M{"fileName": header.Filename, "category": category},
		}},
		CreatedAt: now,
		UpdatedAt: now,
	}

	// The unique index on reference backs uniqueness; on the (vanishingly
	// rare) duplicate-key insert we generate a fresh value and retry.
	inserted := false
	for attempt := 0; attempt < referenceMaxAttempts; attempt++ {
		doc.Reference = utils.GenerateReference(category)
		doc.FileName = doc.Reference + filepath.Ext(header.Filename)
		if _, err = documentCollection.InsertOne(ctx, doc); err == nil {
			inserted = true
			break
		}
		if !mongo.IsDuplicateKeyError(err) {
			log.Printf("UploadDocument - insert error: %v", err)
			utils.RespondWithError(w, http.StatusInternalServerError, "Failed to create document")
			return
		}
		log.Printf("Reference collision on %s, regenerating (attempt %d)", doc.Reference, attempt+1)
	}
	if !inserted {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to generate a unique reference")
		return
	}

	doc.FileURL = "/uploads/" + doc.FileName
	if err := saveUploadedFile(file, doc.FileName); err != nil {
		// Roll the record back rather than keep a document without a file
		_, _ = documentCollection.DeleteOne(ctx, bson.M{"_id": doc.ID})
		log.Printf("UploadDocument - file save failed: %v", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to store file")
		return
	}
	if _, err := documentCollection.UpdateOne(ctx,
		bson.M{"_id": doc.ID},
		bson.M{"$set": bson.M{"fileUrl": doc.FileURL}},
	); err != nil {
		log.Printf("UploadDocument - fileUrl update failed: %v", err)
	}

	writeAudit(ctx, r, act, "document_upload", "document", doc.ID, bson.M{
		"reference": doc.Reference,
		"title":     doc.Title,
		"category":  doc.Category,
		"status":    doc.Status,
	})
	ws.SendDocumentCreated(doc.Department, doc, act.IDHex, act.Name)

	if projectID != nil {
		// At-least-once: recomputation is derived purely from checklist state
		if err := linkDocumentToProject(ctx, &doc, act); err != nil {
			log.Printf("Project linkage for document %s: %v", doc.Reference, err)
		}
	} else if ntype := uploadOutcomeType(doc.Status); ntype == models.NotifyDocumentApprovalRequired {
		notifyStepApprovers(ctx, &doc, ntype)
	} else {
		notifyUsers(ctx, []models.User{{ID: act.ID}}, ntype,
			"Document uploaded",
			"Document "+doc.Reference+" was registered and approved automatically",
			"/documents/"+doc.ID.Hex(),
			bson.M{"documentId": doc.ID.Hex(), "reference": doc.Reference})
	}

	log.Printf("Created document %s (%s) with status %s", doc.Reference, doc.ID.Hex(), doc.Status)

	utils.RespondWithJSON(w, http.StatusCreated, map[string]interface{}{
		"id":         doc.ID.Hex(),
		"reference":  doc.Reference,
		"status":     doc.Status,
		"fileSize":   models.FormatFileSize(doc.FileSize),
		"uploadedBy": act.Name,
		"uploadDate": doc.CreatedAt,
		"fileUrl":    doc.FileURL,
		"success":    true,
	})
}

func saveUploadedFile(src io.Reader, fileName string) error {
	if err := os.MkdirAll(uploadDir, 0o755); err != nil {
		return err
	}
	dst, err := os.Create(filepath.Join(uploadDir, fileName))
	if err != nil {
		return err
	}
	defer dst.Close()
	_, err = io.Copy(dst, src)
	return err
}

// GetDocument returns one document, subject to access scoping.
func GetDocument(w http.ResponseWriter, r *http.Request) {
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

	if !canAccessDocument(&doc, act) {
		utils.RespondWithError(w, http.StatusForbidden, "You don't have access to this document")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, doc)
}

// ListDocuments returns the caller's visible documents with basic filters and
// pagination. Full search lives in the search handlers.
func ListDocuments(w http.ResponseWriter, r *http.Request) {
	act, ok := actorFromRequest(r)
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "User ID required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 12*time.Second)
	defer cancel()

	filter := bson.M{"isActive": true}
	query := r.URL.Query()
	if category := query.Get("category"); category != "" && category != "all" {
		filter["category"] = category
	}
	if status := query.Get("status"); status != "" && status != "all" {
		filter["status"] = status
	}
	if scope := accessScopeFilter(act); scope != nil {
		filter["$and"] = []bson.M{scope}
	}

	page, limit := paginationParams(query.Get("page"), query.Get("limit"))

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(int64(limit)).
		SetSkip(int64((page - 1) * limit))

	cursor, err := documentCollection.Find(ctx, filter, opts)
	if err != nil {
		log.Printf("ListDocuments - Find failed: %v", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to fetch documents")
		return
	}
	defer cursor.Close(ctx)

	var documents []models.Document
	if err = cursor.All(ctx, &documents); err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to decode documents")
		return
	}
	if documents == nil {
		documents = []models.Document{}
	}

	total, _ := documentCollection.CountDocuments(ctx, filter)

	utils.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"documents":  documents,
		"pagination": paginationMeta(page, limit, total),
		"success":    true,
	})
}

// DeleteDocument soft-deletes a document. Uploader or super-admin only.
func DeleteDocument(w http.ResponseWriter, r *http.Request) {
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

	if !canMutateDocument(&doc, act) {
		utils.RespondWithError(w, http.StatusForbidden, "Only the uploader or an administrator can delete this document")
		return
	}

	now := time.Now().UTC()
	_, err = documentCollection.UpdateOne(ctx,
		bson.M{"_id": docID},
		bson.M{
			"$set":  bson.M{"isActive": false, "updatedAt": now},
			"$push": bson.M{"auditTrail": models.AuditEntry{Action: "document_delete", UserID: act.ID, Timestamp: now}},
		},
	)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to delete document")
		return
	}

	writeAudit(ctx, r, act, "document_delete", "document", docID, bson.M{"reference": doc.Reference})

	utils.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Document deleted successfully",
		"success": true,
	})
}

// canMutateDocument gates destructive operations on a document record:
// uploader or super-admin only.
func canMutateDocument(doc *models.Document, act *actor) bool {
	return doc.CreatedBy == act.ID || act.RoleLevel >= models.RoleLevelSuperAdmin
}

// GetDocumentStats aggregates counts by status and category over the caller's
// visible documents. The same scope clause as search applies, so the counts
// never leak documents the caller could not list.
func GetDocumentStats(w http.ResponseWriter, r *http.Request) {
	act, ok := actorFromRequest(r)
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "User ID required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	match := bson.M{"isActive": true}
	if scope := accessScopeFilter(act); scope != nil {
		match["$and"] = []bson.M{scope}
	}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$facet", Value: bson.D{
			{Key: "byStatus", Value: []bson.D{
				{{Key: "$group", Value: bson.D{
					{Key: "_id", Value: "$status"},
					{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
				}}},
			}},
			{Key: "byCategory", Value: []bson.D{
				{{Key: "$group", Value: bson.D{
					{Key: "_id", Value: "$category"},
					{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
				}}},
			}},
		}}},
	}

	cursor, err := documentCollection.Aggregate(ctx, pipeline)
	if err != nil {
		log.Printf("GetDocumentStats - aggregate failed: %v", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to calculate statistics")
		return
	}
	defer cursor.Close(ctx)

	var results []bson.M
	if err = cursor.All(ctx, &results); err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to decode statistics")
		return
	}

	stats := map[string]interface{}{"byStatus": bson.A{}, "byCategory": bson.A{}}
	if len(results) > 0 {
		stats["byStatus"] = results[0]["byStatus"]
		stats["byCategory"] = results[0]["byCategory"]
	}

	utils.RespondWithJSON(w, http.StatusOK, map[string]interface{}{"stats": stats, "success": true})
}

func paginationParams(pageStr, limitStr string) (int, int) {
	page, limit := 1, 20
	if p, err := strconv.Atoi(pageStr); err == nil && p > 0 {
		page = p
	}
	if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= 100 {
		limit = l
	}
	return page, limit
}

func paginationMeta(page, limit int, total int64) map[string]interface{} {
	pages := int((total + int64(limit) - 1) / int64(limit))
	return map[string]interface{}{
		"page":  page,
		"limit": limit,
		"total": total,
		"pages": pages,
	}
}
