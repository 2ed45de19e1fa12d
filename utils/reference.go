// utils/reference.go
package utils

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
)

// GenerateReference builds a document reference of the form
// PREFIX-TIMESTAMP-RANDOM. The prefix is the first three letters of the seed
// (category or tenant code) uppercased; the millisecond timestamp keeps
// references roughly sortable and the uuid-derived suffix breaks ties within
// the same millisecond. Global uniqueness is enforced by the unique index on
// documents.reference; on a duplicate-key insert the caller must call this
// again for a fresh value, never resubmit the old one.
func GenerateReference(seed string) string {
	return fmt.Sprintf("%s-%d-%s", referencePrefix(seed), time.Now().UnixMilli(), randomSuffix())
}

func referencePrefix(seed string) string {
	letters := make([]rune, 0, 3)
	for _, r := range seed {
		if unicode.IsLetter(r) {
			letters = append(letters, unicode.ToUpper(r))
			if len(letters) == 3 {
				break
			}
		}
	}
	if len(letters) < 3 {
		return "DOC"
	}
	return string(letters)
}

func randomSuffix() string {
	id := uuid.New()
	return strings.ToUpper(fmt.Sprintf("%x", id[:3]))
}
