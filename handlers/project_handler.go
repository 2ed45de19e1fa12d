package handlers

import (
	"context"
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
)

// CreateProject registers a project with its required-documents checklist and
// approval chain template. Admin only.
func CreateProject(w http.ResponseWriter, r *http.Request) {
	act, ok := actorFromRequest(r)
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "User ID required")
		return
	}
	if act.RoleLevel < models.RoleLevelApprover {
		utils.RespondWithError(w, http.StatusForbidden, "You don't have permission to create projects")
		return
	}

	var req struct {
		Name              string              `json:"name"`
		Code              string              `json:"code"`
		Department        string              `json:"department,omitempty"`
		RequiredDocuments []string            `json:"requiredDocuments,omitempty"`
		ApprovalChain     []models.ChainLevel `json:"approvalChain,omitempty"`
	}
	if err := utils.ParseJSON(r, &req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid payload: "+err.Error())
		return
	}
	if req.Name == "" || req.Code == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "Name and code are required")
		return
	}

	checklist := make([]models.RequiredDocument, 0, len(req.RequiredDocuments))
	for _, dt := range req.RequiredDocuments {
		checklist = append(checklist, models.RequiredDocument{DocumentType: dt})
	}

	now := time.Now().UTC()
	project := models.Project{
		ID:                primitive.NewObjectID(),
		Name:              req.Name,
		Code:              req.Code,
		Status:            models.ProjectStatusActive,
		Department:        req.Department,
		RequiredDocuments: checklist,
		ApprovalChain:     req.ApprovalChain,
		CreatedBy:         act.ID,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	if _, err := projectCollection.InsertOne(ctx, project); err != nil {
		log.Printf("CreateProject - insert error: %v", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to create project")
		return
	}

	writeAudit(ctx, r, act, "project_create", "project", project.ID, bson.M{
		"code":              project.Code,
		"requiredDocuments": len(project.RequiredDocuments),
	})

	utils.RespondWithJSON(w, http.StatusCreated, map[string]interface{}{
		"project": project,
		"success": true,
	})
}

// GetProject returns one project with its checklist and progress.
func GetProject(w http.ResponseWriter, r *http.Request) {
	if _, ok := actorFromRequest(r); !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "User ID required")
		return
	}

	projectID, err := primitive.ObjectIDFromHex(mux.Vars(r)["id"])
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid project ID format")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
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

	uploadedCount, _ := documentCollection.CountDocuments(ctx, bson.M{"project": projectID, "isActive": true})

	utils.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"project":               project,
		"uploadedCount":         uploadedCount,
		"allDocumentsSubmitted": project.AllDocumentsSubmitted(int(uploadedCount)),
		"success":               true,
	})
}

// GetProjectDocuments lists the documents uploaded against a project.
func GetProjectDocuments(w http.ResponseWriter, r *http.Request) {
	act, ok := actorFromRequest(r)
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "User ID required")
		return
	}

	projectID, err := primitive.ObjectIDFromHex(mux.Vars(r)["id"])
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid project ID format")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	filter := bson.M{"project": projectID, "isActive": true}
	if scope := accessScopeFilter(act); scope != nil {
		filter["$and"] = []bson.M{scope}
	}

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := documentCollection.Find(ctx, filter, opts)
	if err != nil {
		log.Printf("GetProjectDocuments - Find failed: %v", err)
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

	utils.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"documents": documents,
		"count":     len(documents),
		"success":   true,
	})
}
