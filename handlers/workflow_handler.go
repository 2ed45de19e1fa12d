package handlers

import (
	"context"
	"log"
	"net/http"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"

	"erpdocs/models"
	"erpdocs/utils"
)

// ListWorkflows returns the configured approval workflows.
func ListWorkflows(w http.ResponseWriter, r *http.Request) {
	act, ok := actorFromRequest(r)
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "User ID required")
		return
	}
	if act.RoleLevel < models.RoleLevelApprover {
		utils.RespondWithError(w, http.StatusForbidden, "You don't have permission to view workflows")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	filter := bson.M{}
	if r.URL.Query().Get("active") == "true" {
		filter["isActive"] = true
	}

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := workflowCollection.Find(ctx, filter, opts)
	if err != nil {
		log.Printf("ListWorkflows - Find failed: %v", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to fetch workflows")
		return
	}
	defer cursor.Close(ctx)

	var workflows []models.ApprovalWorkflow
	if err = cursor.All(ctx, &workflows); err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to decode workflows")
		return
	}
	if workflows == nil {
		workflows = []models.ApprovalWorkflow{}
	}

	utils.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"workflows": workflows,
		"count":     len(workflows),
		"success":   true,
	})
}

// CreateWorkflow registers an approval workflow configuration. Super-admin
// only: workflows gate every upload in their category/department.
func CreateWorkflow(w http.ResponseWriter, r *http.Request) {
	act, ok := actorFromRequest(r)
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "User ID required")
		return
	}
	if act.RoleLevel < models.RoleLevelSuperAdmin {
		utils.RespondWithError(w, http.StatusForbidden, "Only administrators can configure workflows")
		return
	}

	var req struct {
		Name       string                 `json:"name"`
		Category   string                 `json:"category"`
		Department string                 `json:"department"`
		Levels     []models.WorkflowLevel `json:"levels"`
	}
	if err := utils.ParseJSON(r, &req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid payload: "+err.Error())
		return
	}
	if req.Name == "" || req.Category == "" || req.Department == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "Name, category and department are required")
		return
	}
	if req.Category != models.WildcardAll && models.AllowedTypes(req.Category) == nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Unknown category: "+req.Category)
		return
	}
	if len(req.Levels) == 0 {
		utils.RespondWithError(w, http.StatusBadRequest, "At least one approval level is required")
		return
	}

	seen := make(map[int]bool, len(req.Levels))
	for _, lvl := range req.Levels {
		if lvl.Level <= 0 {
			utils.RespondWithError(w, http.StatusBadRequest, "Levels must be positive integers")
			return
		}
		if seen[lvl.Level] {
			utils.RespondWithError(w, http.StatusBadRequest, "Duplicate approval level")
			return
		}
		seen[lvl.Level] = true
	}
	sort.Slice(req.Levels, func(i, j int) bool { return req.Levels[i].Level < req.Levels[j].Level })

	now := time.Now().UTC()
	workflow := models.ApprovalWorkflow{
		ID:         primitive.NewObjectID(),
		Name:       req.Name,
		Category:   req.Category,
		Department: req.Department,
		Levels:     req.Levels,
		IsActive:   true,
		CreatedBy:  act.ID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	if _, err := workflowCollection.InsertOne(ctx, workflow); err != nil {
		log.Printf("CreateWorkflow - insert error: %v", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to create workflow")
		return
	}

	writeAudit(ctx, r, act, "workflow_create", "workflow", workflow.ID, bson.M{
		"name":       workflow.Name,
		"category":   workflow.Category,
		"department": workflow.Department,
		"levels":     len(workflow.Levels),
	})

	utils.RespondWithJSON(w, http.StatusCreated, map[string]interface{}{
		"workflow": workflow,
		"success":  true,
	})
}
