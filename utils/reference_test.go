package utils

import (
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var referencePattern = regexp.MustCompile(`^[A-Z]{3}-\d{13}-[0-9A-F]{6}$`)

func TestGenerateReferenceFormat(t *testing.T) {
	ref := GenerateReference("Policy")
	assert.Regexp(t, referencePattern, ref)
	assert.True(t, strings.HasPrefix(ref, "POL-"))
}

func TestGenerateReferencePrefixDerivation(t *testing.T) {
	assert.True(t, strings.HasPrefix(GenerateReference("financial"), "FIN-"))
	// Non-letters are skipped when deriving the prefix
	assert.True(t, strings.HasPrefix(GenerateReference("2nd-contract"), "NDC-"))
}

func TestGenerateReferenceFallbackPrefix(t *testing.T) {
	assert.True(t, strings.HasPrefix(GenerateReference(""), "DOC-"))
	assert.True(t, strings.HasPrefix(GenerateReference("42"), "DOC-"))
	assert.True(t, strings.HasPrefix(GenerateReference("ab"), "DOC-"))
}

func TestGenerateReferenceDistinctUnderRapidCalls(t *testing.T) {
	// Many calls within the same millisecond must still differ: the entropy
	// suffix breaks timestamp ties
	seen := make(map[string]bool)
	for i := 0; i < 500; i++ {
		ref := GenerateReference("Policy")
		require.False(t, seen[ref], "duplicate reference generated: %s", ref)
		seen[ref] = true
	}
}
