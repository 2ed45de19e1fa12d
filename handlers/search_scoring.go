package handlers

import (
	"sort"
	"strings"

	"erpdocs/models"
)

// Additive relevance weights. No normalization: a title hit alone must
// outrank an OCR-text hit alone.
const (
	scoreTitleMatch       = 100
	scoreDescriptionMatch = 50
	scoreOCRTextMatch     = 30
	scoreReferenceMatch   = 25
	scorePerKeywordMatch  = 20
	scorePerTagMatch      = 15
)

// relevanceScore computes the additive score of one document for a free-text
// query. Matching is case-insensitive substring, mirroring the regex filters
// used to fetch the page.
func relevanceScore(doc *models.Document, query string) int {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return 0
	}

	score := 0
	if strings.Contains(strings.ToLower(doc.Title), q) {
		score += scoreTitleMatch
	}
	if strings.Contains(strings.ToLower(doc.Description), q) {
		score += scoreDescriptionMatch
	}
	if strings.Contains(strings.ToLower(doc.Reference), q) {
		score += scoreReferenceMatch
	}
	if doc.OCRData != nil {
		if strings.Contains(strings.ToLower(doc.OCRData.ExtractedText), q) {
			score += scoreOCRTextMatch
		}
		for _, kw := range doc.OCRData.Keywords {
			if strings.Contains(strings.ToLower(kw), q) {
				score += scorePerKeywordMatch
			}
		}
	}
	for _, tag := range doc.Tags {
		if strings.Contains(strings.ToLower(tag), q) {
			score += scorePerTagMatch
		}
	}
	return score
}

// sortByRelevance re-sorts one already-fetched page by score, highest first.
// Ranking applies within the page, not the full corpus.
func sortByRelevance(docs []models.Document, query string) {
	scores := make(map[string]int, len(docs))
	for i := range docs {
		scores[docs[i].ID.Hex()] = relevanceScore(&docs[i], query)
	}
	sort.SliceStable(docs, func(i, j int) bool {
		return scores[docs[i].ID.Hex()] > scores[docs[j].ID.Hex()]
	})
}

// collectSuggestions appends up to max distinct values matching the partial
// query, preserving encounter order.
func collectSuggestions(values []string, partial string, max int, seen map[string]bool) []string {
	q := strings.ToLower(partial)
	out := make([]string, 0, max)
	for _, v := range values {
		if len(out) == max {
			break
		}
		key := strings.ToLower(v)
		if v == "" || seen[key] || !strings.Contains(key, q) {
			continue
		}
		seen[key] = true
		out = append(out, v)
	}
	return out
}
