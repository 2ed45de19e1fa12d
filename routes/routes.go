package routes

import (
	"github.com/gorilla/mux"

	"erpdocs/handlers"
	"erpdocs/middleware"
	"erpdocs/websocket"
)

// HTTP method constants for better maintainability
var (
	MethodsGetOnly    = []string{"GET", "OPTIONS"}
	MethodsPostOnly   = []string{"POST", "OPTIONS"}
	MethodsPutOnly    = []string{"PUT", "OPTIONS"}
	MethodsDeleteOnly = []string{"DELETE", "OPTIONS"}
)

func RegisterRoutes(r *mux.Router) {
	// ====================
	// PUBLIC
	// ====================
	r.HandleFunc("/health", handlers.HealthCheck).Methods(MethodsGetOnly...)
	r.HandleFunc("/api/auth/login", handlers.Login).Methods(MethodsPostOnly...)
	r.HandleFunc("/ws", websocket.ServeWS)

	// ====================
	// PROTECTED API ROUTES (Require authentication)
	// ====================
	apiRouter := r.PathPrefix("/api").Subrouter()
	apiRouter.Use(middleware.AuthMiddleware)

	apiRouter.HandleFunc("/user/me", handlers.GetCurrentUser).Methods(MethodsGetOnly...)

	// ====================
	// DOCUMENTS
	// ====================
	apiRouter.HandleFunc("/documents", handlers.UploadDocument).Methods(MethodsPostOnly...)
	apiRouter.HandleFunc("/documents", handlers.ListDocuments).Methods(MethodsGetOnly...)
	apiRouter.HandleFunc("/documents/search", handlers.SearchDocuments).Methods(MethodsGetOnly...)
	apiRouter.HandleFunc("/documents/search/fulltext", handlers.FullTextSearch).Methods(MethodsGetOnly...)
	apiRouter.HandleFunc("/documents/search/suggestions", handlers.SearchSuggestions).Methods(MethodsGetOnly...)
	apiRouter.HandleFunc("/documents/stats", handlers.GetDocumentStats).Methods(MethodsGetOnly...)
	apiRouter.HandleFunc("/documents/pending-approvals", handlers.ListPendingApprovals).Methods(MethodsGetOnly...)
	apiRouter.HandleFunc("/documents/{id}", handlers.GetDocument).Methods(MethodsGetOnly...)
	apiRouter.HandleFunc("/documents/{id}", handlers.DeleteDocument).Methods(MethodsDeleteOnly...)
	apiRouter.HandleFunc("/documents/{id}/similar", handlers.SimilarDocuments).Methods(MethodsGetOnly...)

	// ====================
	// APPROVALS
	// ====================
	apiRouter.HandleFunc("/documents/{id}/approve", handlers.ApproveDocument).Methods(MethodsPutOnly...)
	apiRouter.HandleFunc("/documents/{id}/reject", handlers.RejectDocument).Methods(MethodsPutOnly...)

	// ====================
	// PROJECTS
	// ====================
	apiRouter.HandleFunc("/projects", handlers.CreateProject).Methods(MethodsPostOnly...)
	apiRouter.HandleFunc("/projects/{id}", handlers.GetProject).Methods(MethodsGetOnly...)
	apiRouter.HandleFunc("/projects/{id}/documents", handlers.GetProjectDocuments).Methods(MethodsGetOnly...)
	apiRouter.HandleFunc("/projects/{projectId}/documents/{documentId}", handlers.ReplaceProjectDocument).Methods(MethodsPutOnly...)

	// ====================
	// WORKFLOWS
	// ====================
	apiRouter.HandleFunc("/workflows", handlers.ListWorkflows).Methods(MethodsGetOnly...)
	apiRouter.HandleFunc("/workflows", handlers.CreateWorkflow).Methods(MethodsPostOnly...)

	// ====================
	// NOTIFICATIONS
	// ====================
	apiRouter.HandleFunc("/notifications", handlers.ListNotifications).Methods(MethodsGetOnly...)
	apiRouter.HandleFunc("/notifications/{id}/read", handlers.MarkNotificationRead).Methods(MethodsPutOnly...)

	// ====================
	// AUDIT LOGS
	// ====================
	apiRouter.HandleFunc("/audit", handlers.ListAuditLogs).Methods(MethodsGetOnly...)
}
