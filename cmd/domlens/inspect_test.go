package main

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/go-rod/rod/lib/launcher"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const inspectPage = `<!DOCTYPE html>
<html><head><title>Shop</title><style>body { margin: 0 }</style></head>
<body><ul id="list"><li id="one">Buy now</li><li id="two">Later</li></ul></body></html>`

func browserServer(t *testing.T) *httptest.Server {
	t.Helper()
	if _, has := launcher.LookPath(); !has {
		t.Skip("no local browser found")
	}
	t.Setenv("DOMLENS_BROWSER_NO_SANDBOX", "true")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(inspectPage))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestInspectCommand(t *testing.T) {
	srv := browserServer(t)

	out, _, err := executeCommand(t, "inspect", srv.URL, "#two", "--contains", "BUY")
	require.NoError(t, err)

	assert.Contains(t, out, "title:    Shop")
	assert.Contains(t, out, "2 element(s)")
	assert.Contains(t, out, `<li>`)
	assert.Contains(t, out, `"Buy now"`)
	assert.Contains(t, out, "common ancestor: <ul>")
}

func TestMarkCommand(t *testing.T) {
	srv := browserServer(t)
	path := filepath.Join(t.TempDir(), "marked.png")

	out, _, err := executeCommand(t, "mark", srv.URL, "li", "-o", path, "--annotate", "--thumb-width", "200")
	require.NoError(t, err)
	assert.Contains(t, out, "Saved to "+path)
	assert.FileExists(t, path)
}
