package executor

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePlan(t *testing.T) {
	plan, err := ParsePlan([]byte(`
steps:
  - action: navigate
    url: example.com
    wait: 1500ms
    close_alert: true
  - action: mark
    selectors: ["h1", "xpath://nav"]
    style:
      color: green
  - action: screenshot-page
    path: page.png
`))
	require.NoError(t, err)
	require.Len(t, plan.Steps, 3)

	assert.Equal(t, 1500*time.Millisecond, plan.Steps[0].Wait)
	assert.True(t, plan.Steps[0].CloseAlert)
	assert.Equal(t, []string{"h1", "xpath://nav"}, plan.Steps[1].Selectors)
	require.NotNil(t, plan.Steps[1].Style)
	assert.Equal(t, "green", plan.Steps[1].Style.Color)
	assert.Equal(t, "page.png", plan.Steps[2].Path)
}

func TestPlanValidation(t *testing.T) {
	cases := map[string]string{
		"unknown action":          "steps: [{action: click}]",
		"navigate without url":    "steps: [{action: navigate}]",
		"mark without selectors":  "steps: [{action: mark}]",
		"screenshot without path": "steps: [{action: screenshot}]",
		"script without body":     "steps: [{action: script}]",
		"resize without size":     "steps: [{action: resize, width: 10}]",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParsePlan([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestLoadPlan(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plan.yaml")
	require.NoError(t, os.WriteFile(path, []byte("steps:\n  - action: main-frame\n"), 0o644))

	plan, err := LoadPlan(path)
	require.NoError(t, err)
	assert.Equal(t, "main-frame", plan.Steps[0].Action)
}

func TestIsXPath(t *testing.T) {
	assert.True(t, IsXPath("//div"))
	assert.True(t, IsXPath("xpath:./a"))
	assert.False(t, IsXPath("div > a"))
}
