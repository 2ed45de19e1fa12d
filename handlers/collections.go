package handlers

import (
	"go.mongodb.org/mongo-driver/mongo"

	"erpdocs/config"
	"erpdocs/database"
)

var (
	documentCollection     *mongo.Collection
	projectCollection      *mongo.Collection
	userCollection         *mongo.Collection
	workflowCollection     *mongo.Collection
	notificationCollection *mongo.Collection
	auditLogCollection     *mongo.Collection
)

func InitCollections() {
	db := database.Client.Database(config.DatabaseName)
	documentCollection = db.Collection("documents")
	projectCollection = db.Collection("projects")
	userCollection = db.Collection("users")
	workflowCollection = db.Collection("workflows")
	notificationCollection = db.Collection("notifications")
	auditLogCollection = db.Collection("auditlogs")
}
