package handlers

import (
	"context"
	"log"
	"net/http"
	"strconv"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"

	"erpdocs/models"
	"erpdocs/utils"
)

// writeAudit appends one audit entry for a state-changing operation. The
// trail is append-only and never read back by the engine; failures are logged
// and never fail the primary operation.
func writeAudit(ctx context.Context, r *http.Request, act *actor, action, entityType string, entityID primitive.ObjectID, details bson.M) {
	if auditLogCollection == nil {
		return
	}

	audit := models.AuditLog{
		ID:         primitive.NewObjectID(),
		UserID:     act.ID,
		UserEmail:  act.Email,
		UserRole:   act.Role,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Details:    details,
		CreatedAt:  time.Now().UTC(),
	}
	if r != nil {
		audit.IPAddress = r.RemoteAddr
		audit.UserAgent = r.UserAgent()
	}

	if _, err := auditLogCollection.InsertOne(ctx, audit); err != nil {
		log.Printf("Failed to create audit log for %s: %v", action, err)
	}
}

// ListAuditLogs returns recent audit entries, admin only.
func ListAuditLogs(w http.ResponseWriter, r *http.Request) {
	act, ok := actorFromRequest(r)
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "User ID required")
		return
	}
	if act.RoleLevel < models.RoleLevelSuperAdmin {
		utils.RespondWithError(w, http.StatusForbidden, "Only administrators can view audit logs")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	filter := bson.M{}
	query := r.URL.Query()
	if action := query.Get("action"); action != "" && action != "all" {
		filter["action"] = action
	}
	if entityType := query.Get("entityType"); entityType != "" && entityType != "all" {
		filter["entityType"] = entityType
	}

	limit := int64(50)
	if limitStr := query.Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= 200 {
			limit = int64(l)
		}
	}

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}).SetLimit(limit)
	cursor, err := auditLogCollection.Find(ctx, filter, opts)
	if err != nil {
		log.Printf("ListAuditLogs - Find failed: %v", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to fetch audit logs")
		return
	}
	defer cursor.Close(ctx)

	var logs []models.AuditLog
	if err = cursor.All(ctx, &logs); err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to decode audit logs")
		return
	}
	if logs == nil {
		logs = []models.AuditLog{}
	}

	utils.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"logs":    logs,
		"count":   len(logs),
		"success": true,
	})
}
