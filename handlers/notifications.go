package handlers

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"

	"erpdocs/config"
	"erpdocs/models"
	"erpdocs/utils"
)

// createNotification inserts one notification. Dispatch is fire-and-forget
// relative to the primary operation: failures are logged, never propagated.
func createNotification(ctx context.Context, n models.Notification) {
	if notificationCollection == nil {
		return
	}
	n.ID = primitive.NewObjectID()
	n.CreatedAt = time.Now().UTC()
	if _, err := notificationCollection.InsertOne(ctx, n); err != nil {
		log.Printf("Notification dispatch failed (type=%s recipient=%s): %v", n.Type, n.Recipient.Hex(), err)
	}
}

// notifyUsers fans one message out to a recipient set.
func notifyUsers(ctx context.Context, recipients []models.User, ntype, title, message, actionURL string, data bson.M) {
	if data == nil {
		data = bson.M{}
	}
	data["actionUrl"] = config.BaseURL + actionURL
	for _, u := range recipients {
		createNotification(ctx, models.Notification{
			Recipient: u.ID,
			Type:      ntype,
			Title:     title,
			Message:   message,
			Data:      data,
		})
	}
}

// notificationTypeForUpload selects the variant sent to the next approver:
// once every required document is in, the project as a whole is ready.
func notificationTypeForUpload(allSubmitted bool) string {
	if allSubmitted {
		return models.NotifyProjectReadyForApproval
	}
	return models.NotifyDocumentApprovalRequired
}

// uploadOutcomeType selects the notification for a standalone upload: entering
// review asks the approvers, an outright approval confirms to the uploader.
func uploadOutcomeType(status string) string {
	if status == models.DocStatusPendingReview {
		return models.NotifyDocumentApprovalRequired
	}
	return models.NotifyDocumentUploaded
}

// ListNotifications returns the caller's notifications, newest first.
func ListNotifications(w http.ResponseWriter, r *http.Request) {
	act, ok := actorFromRequest(r)
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "User ID required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	filter := bson.M{"recipient": act.ID}
	if r.URL.Query().Get("unread") == "true" {
		filter["isRead"] = false
	}

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}).SetLimit(100)
	cursor, err := notificationCollection.Find(ctx, filter, opts)
	if err != nil {
		log.Printf("ListNotifications - Find failed: %v", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to fetch notifications")
		return
	}
	defer cursor.Close(ctx)

	var notifications []models.Notification
	if err = cursor.All(ctx, &notifications); err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to decode notifications")
		return
	}
	if notifications == nil {
		notifications = []models.Notification{}
	}

	utils.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"notifications": notifications,
		"count":         len(notifications),
		"success":       true,
	})
}

// MarkNotificationRead marks one of the caller's notifications as read.
func MarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	act, ok := actorFromRequest(r)
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "User ID required")
		return
	}

	notifID, err := primitive.ObjectIDFromHex(mux.Vars(r)["id"])
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid notification ID format")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	result, err := notificationCollection.UpdateOne(ctx,
		bson.M{"_id": notifID, "recipient": act.ID},
		bson.M{"$set": bson.M{"isRead": true}},
	)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to update notification")
		return
	}
	if result.MatchedCount == 0 {
		utils.RespondWithError(w, http.StatusNotFound, "Notification not found")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}
