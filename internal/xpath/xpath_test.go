package xpath

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestCaseFolding(t *testing.T) {
	assert.Equal(t,
		"translate(@title, 'ABCDEFGHIJKLMNOPQRSTUVWXYZ', 'abcdefghijklmnopqrstuvwxyz')",
		ToLower("@title"))
	assert.Equal(t,
		"translate(string(), 'ABCDEFGHIJKLMNOPQRSTUVWXYZ', 'abcdefghijklmnopqrstuvwxyz')",
		StringLower())
	assert.Equal(t,
		"translate(string(), 'abcdefghijklmnopqrstuvwxyz', 'ABCDEFGHIJKLMNOPQRSTUVWXYZ')",
		StringUpper())
}

func TestPredicates(t *testing.T) {
	assert.Equal(t, `contains(@class, "nav")`, Contains("@class", "nav"))
	assert.Equal(t, `@id = "main"`, ExactMatch("@id", "main"))
	assert.Equal(t, `not(@hidden)`, Not("@hidden"))
}

func TestComposedQuery(t *testing.T) {
	q := "//a[" + Contains(StringLower(), "login") + " and " + Not(ExactMatch("@href", "#")) + "]"
	assert.Equal(t,
		`//a[contains(translate(string(), 'ABCDEFGHIJKLMNOPQRSTUVWXYZ', 'abcdefghijklmnopqrstuvwxyz'), "login") and not(@href = "#")]`,
		q)
}
