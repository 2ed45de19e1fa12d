package handlers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"erpdocs/models"
)

func TestRelevanceScoreWeights(t *testing.T) {
	doc := &models.Document{
		Title:       "Quarterly budget review",
		Description: "Budget figures for Q3",
		Reference:   "FIN-1712000000000-AB12CD",
		Tags:        []string{"budget", "finance"},
		OCRData: &models.OCRData{
			ExtractedText: "total budget allocation",
			Keywords:      []string{"budget", "allocation"},
		},
	}

	// title 100 + description 50 + ocr text 30 + one keyword 20 + one tag 15
	assert.Equal(t, 215, relevanceScore(doc, "budget"))

	// reference only
	assert.Equal(t, 25, relevanceScore(doc, "fin-1712"))

	// no match
	assert.Equal(t, 0, relevanceScore(doc, "payroll"))
	assert.Equal(t, 0, relevanceScore(doc, ""))
}

func TestRelevanceScoreIsCaseInsensitive(t *testing.T) {
	doc := &models.Document{Title: "Vendor Contract"}
	assert.Equal(t, 100, relevanceScore(doc, "VENDOR"))
}

func TestTitleMatchOutranksOCRTextMatch(t *testing.T) {
	titleHit := models.Document{
		ID:    primitive.NewObjectID(),
		Title: "invoice for services",
	}
	ocrHit := models.Document{
		ID:      primitive.NewObjectID(),
		Title:   "scanned upload",
		OCRData: &models.OCRData{ExtractedText: "invoice number 42"},
	}

	docs := []models.Document{ocrHit, titleHit}
	sortByRelevance(docs, "invoice")

	assert.Equal(t, titleHit.ID, docs[0].ID)
	assert.Equal(t, ocrHit.ID, docs[1].ID)
}

func TestSortByRelevanceIsStableForTies(t *testing.T) {
	a := models.Document{ID: primitive.NewObjectID(), Title: "payroll june"}
	b := models.Document{ID: primitive.NewObjectID(), Title: "payroll july"}

	docs := []models.Document{a, b}
	sortByRelevance(docs, "payroll")

	assert.Equal(t, a.ID, docs[0].ID)
	assert.Equal(t, b.ID, docs[1].ID)
}

func TestCollectSuggestions(t *testing.T) {
	values := []string{"Invoice A", "invoice a", "Invoice B", "Receipt", "Invoice C", "Invoice D", "Invoice E", "Invoice F"}

	got := collectSuggestions(values, "inv", 5, map[string]bool{})
	// capped at 5, duplicates dropped case-insensitively, non-matches skipped
	assert.Equal(t, []string{"Invoice A", "Invoice B", "Invoice C", "Invoice D", "Invoice E"}, got)
}

func TestCollectSuggestionsSharedSeenSet(t *testing.T) {
	seen := map[string]bool{}
	first := collectSuggestions([]string{"Budget"}, "bud", 5, seen)
	second := collectSuggestions([]string{"budget"}, "bud", 5, seen)

	assert.Equal(t, []string{"Budget"}, first)
	assert.Empty(t, second)
}
