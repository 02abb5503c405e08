package storage

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestObjectKey(t *testing.T) {
	key := ObjectKey("college-resources", "Chapter 5 (final).pdf")

	assert.True(t, strings.HasPrefix(key, "college-resources/"))
	assert.True(t, strings.HasSuffix(key, "-Chapter_5_final_.pdf"))
	assert.NotEqual(t, key, ObjectKey("college-resources", "Chapter 5 (final).pdf"))
}

func TestObjectKey_StripsDirectories(t *testing.T) {
	key := ObjectKey("f", `..\..\etc/passwd`)
	assert.True(t, strings.HasSuffix(key, "-passwd"))
	assert.Equal(t, 1, strings.Count(key, "/"))

	assert.True(t, strings.HasSuffix(ObjectKey("f", "???"), "-file"))
}
