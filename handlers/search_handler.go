package handlers

import (
	"context"
	"log"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"erpdocs/models"
	"erpdocs/utils"
)

// accessScopeFilter builds the visibility clause ANDed into every search:
// full-privilege actors see everything; everyone else sees what they
// uploaded, what lives in their department, and non-confidential documents.
// Returns nil when no restriction applies.
func accessScopeFilter(act *actor) bson.M {
	if act.RoleLevel >= models.RoleLevelViewAll {
		return nil
	}
	return bson.M{"$or": []bson.M{
		{"createdBy": act.ID},
		{"department": act.Department},
		{"isConfidential": false},
	}}
}

// canAccessDocument applies the same scope to a single loaded document.
func canAccessDocument(doc *models.Document, act *actor) bool {
	if act.RoleLevel >= models.RoleLevelViewAll {
		return true
	}
	return doc.CreatedBy == act.ID || doc.Department == act.Department || !doc.IsConfidential
}

func regexMatch(value string) bson.M {
	return bson.M{"$regex": regexp.QuoteMeta(value), "$options": "i"}
}

// buildSearchFilter assembles the structured criteria (AND-combined) plus the
// free-text OR clause from query parameters. The access scope is always
// ANDed in last and cannot be bypassed by any parameter.
func buildSearchFilter(query url.Values, act *actor) bson.M {
	filter := bson.M{"isActive": true}
	and := []bson.M{}

	if dt := query.Get("documentType"); dt != "" && dt != "all" {
		// Matches the declared type or the OCR-detected one
		and = append(and, bson.M{"$or": []bson.M{
			{"documentType": dt},
			{"ocrData.documentType": dt},
		}})
	}
	if category := query.Get("category"); category != "" && category != "all" {
		filter["category"] = category
	}
	if status := query.Get("status"); status != "" && status != "all" {
		filter["status"] = status
	}
	if priority := query.Get("priority"); priority != "" && priority != "all" {
		filter["priority"] = priority
	}
	if department := query.Get("department"); department != "" && department != "all" {
		filter["department"] = department
	}
	if uploadedBy := query.Get("uploadedBy"); uploadedBy != "" {
		if uid, err := primitive.ObjectIDFromHex(uploadedBy); err == nil {
			filter["createdBy"] = uid
		}
	}

	dateRange := bson.M{}
	if from := query.Get("dateFrom"); from != "" {
		if t, err := time.Parse("2006-01-02", from); err == nil {
			dateRange["$gte"] = t
		}
	}
	if to := query.Get("dateTo"); to != "" {
		if t, err := time.Parse("2006-01-02", to); err == nil {
			dateRange["$lte"] = t.AddDate(0, 0, 1)
		}
	}
	if len(dateRange) > 0 {
		filter["createdAt"] = dateRange
	}

	if tags, ok := query["tags"]; ok && len(tags) > 0 {
		filter["tags"] = bson.M{"$in": models.NormalizeTags(tags)}
	}
	if keywords, ok := query["keywords"]; ok && len(keywords) > 0 {
		filter["ocrData.keywords"] = bson.M{"$in": keywords}
	}
	if org := query.Get("organization"); org != "" {
		filter["ocrData.organizationReferences"] = regexMatch(org)
	}

	if q := query.Get("query"); q != "" {
		and = append(and, bson.M{"$or": []bson.M{
			{"title": regexMatch(q)},
			{"description": regexMatch(q)},
			{"reference": regexMatch(q)},
			{"ocrData.extractedText": regexMatch(q)},
			{"ocrData.keywords": regexMatch(q)},
			{"tags": regexMatch(q)},
		}})
	}

	if scope := accessScopeFilter(act); scope != nil {
		and = append(and, scope)
	}
	if len(and) > 0 {
		filter["$and"] = and
	}
	return filter
}

// SearchDocuments filters documents by structured criteria and free text,
// re-sorting the fetched page by relevance when a query is present.
func SearchDocuments(w http.ResponseWriter, r *http.Request) {
	act, ok := actorFromRequest(r)
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "User ID required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 12*time.Second)
	defer cancel()

	query := r.URL.Query()
	filter := buildSearchFilter(query, act)
	page, limit := paginationParams(query.Get("page"), query.Get("limit"))

	sortBy := query.Get("sortBy")
	if sortBy == "" {
		sortBy = "createdAt"
	}
	sortOrder := -1
	if query.Get("sortOrder") == "asc" {
		sortOrder = 1
	}

	opts := options.Find().
		SetSort(bson.D{{Key: sortBy, Value: sortOrder}}).
		SetLimit(int64(limit)).
		SetSkip(int64((page - 1) * limit))

	cursor, err := documentCollection.Find(ctx, filter, opts)
	if err != nil {
		log.Printf("SearchDocuments - Find failed: %v", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to search documents")
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

	if q := query.Get("query"); q != "" {
		sortByRelevance(documents, q)
	}

	total, _ := documentCollection.CountDocuments(ctx, filter)

	utils.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"documents":  documents,
		"pagination": paginationMeta(page, limit, total),
		"success":    true,
	})
}

// FullTextSearch searches OCR-extracted text, requiring a minimum extraction
// confidence and sorting by confidence rather than relevance score.
func FullTextSearch(w http.ResponseWriter, r *http.Request) {
	act, ok := actorFromRequest(r)
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "User ID required")
		return
	}

	query := r.URL.Query()
	q := query.Get("query")
	if q == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "Query is required")
		return
	}

	minConfidence := 50.0
	if mc := query.Get("minConfidence"); mc != "" {
		if v, err := strconv.ParseFloat(mc, 64); err == nil && v >= 0 && v <= 100 {
			minConfidence = v
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), 12*time.Second)
	defer cancel()

	filter := bson.M{
		"isActive":           true,
		"ocrData.confidence": bson.M{"$gte": minConfidence},
		"$and": []bson.M{
			{"$or": []bson.M{
				{"ocrData.extractedText": regexMatch(q)},
				{"ocrData.keywords": regexMatch(q)},
			}},
		},
	}
	if scope := accessScopeFilter(act); scope != nil {
		filter["$and"] = append(filter["$and"].([]bson.M), scope)
	}

	page, limit := paginationParams(query.Get("page"), query.Get("limit"))
	opts := options.Find().
		SetSort(bson.D{{Key: "ocrData.confidence", Value: -1}}).
		SetLimit(int64(limit)).
		SetSkip(int64((page - 1) * limit))

	cursor, err := documentCollection.Find(ctx, filter, opts)
	if err != nil {
		log.Printf("FullTextSearch - Find failed: %v", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to search documents")
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

// SimilarDocuments finds documents sharing at least one OCR keyword with the
// given one, newest first.
func SimilarDocuments(w http.ResponseWriter, r *http.Request) {
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

	ctx, cancel := context.WithTimeout(r.Context(), 12*time.Second)
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

	if doc.OCRData == nil || len(doc.OCRData.Keywords) == 0 {
		utils.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
			"documents": []models.Document{},
			"count":     0,
			"success":   true,
		})
		return
	}

	filter := bson.M{
		"_id":              bson.M{"$ne": docID},
		"isActive":         true,
		"ocrData.keywords": bson.M{"$in": doc.OCRData.Keywords},
	}
	if scope := accessScopeFilter(act); scope != nil {
		filter["$and"] = []bson.M{scope}
	}

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}).SetLimit(20)
	cursor, err := documentCollection.Find(ctx, filter, opts)
	if err != nil {
		log.Printf("SimilarDocuments - Find failed: %v", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to find similar documents")
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

// SearchSuggestions returns up to five distinct matches each from titles, OCR
// keywords, OCR organization references and document types. Autocomplete
// only, not full search.
func SearchSuggestions(w http.ResponseWriter, r *http.Request) {
	act, ok := actorFromRequest(r)
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "User ID required")
		return
	}

	partial := r.URL.Query().Get("query")
	if partial == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "Query is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	filter := bson.M{
		"isActive": true,
		"$and": []bson.M{
			{"$or": []bson.M{
				{"title": regexMatch(partial)},
				{"ocrData.keywords": regexMatch(partial)},
				{"ocrData.organizationReferences": regexMatch(partial)},
				{"documentType": regexMatch(partial)},
			}},
		},
	}
	if scope := accessScopeFilter(act); scope != nil {
		filter["$and"] = append(filter["$and"].([]bson.M), scope)
	}

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}).SetLimit(100)
	cursor, err := documentCollection.Find(ctx, filter, opts)
	if err != nil {
		log.Printf("SearchSuggestions - Find failed: %v", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to fetch suggestions")
		return
	}
	defer cursor.Close(ctx)

	var documents []models.Document
	if err = cursor.All(ctx, &documents); err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to decode documents")
		return
	}

	var titles, keywords, organizations, documentTypes []string
	for i := range documents {
		titles = append(titles, documents[i].Title)
		documentTypes = append(documentTypes, documents[i].DocumentType)
		if documents[i].OCRData != nil {
			keywords = append(keywords, documents[i].OCRData.Keywords...)
			organizations = append(organizations, documents[i].OCRData.OrganizationReferences...)
		}
	}

	utils.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"suggestions": map[string]interface{}{
			"titles":        collectSuggestions(titles, partial, 5, map[string]bool{}),
			"keywords":      collectSuggestions(keywords, partial, 5, map[string]bool{}),
			"organizations": collectSuggestions(organizations, partial, 5, map[string]bool{}),
			"documentTypes": collectSuggestions(documentTypes, partial, 5, map[string]bool{}),
		},
		"success": true,
	})
}
