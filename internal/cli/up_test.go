package cli

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shinji-kodama/docfill/internal/deploy"
	"github.com/shinji-kodama/docfill/internal/health"
)

func TestPrintUpResultText_EnvCreated(t *testing.T) {
	setJSONOutput(t, false)

	var buf bytes.Buffer
	printUpResult(&buf, &deploy.Result{EnvCreated: true, EnvFile: "/srv/app/.env"})

	out := buf.String()
	assert.Contains(t, out, "Created /srv/app/.env from template.")
	assert.Contains(t, out, "GEMINI_API_KEY")
	assert.NotContains(t, out, "running at")
}

func TestPrintUpResultText_Started(t *testing.T) {
	setJSONOutput(t, false)

	var buf bytes.Buffer
	printUpResult(&buf, &deploy.Result{
		Name:        "document-filler",
		ContainerID: "0123456789abcdef0123",
		Stopped:     []string{"old-filler"},
		URL:         "http://localhost:8000",
		Health:      &health.Result{StatusCode: 200, Attempts: 3},
	})

	out := buf.String()
	assert.Contains(t, out, "Stopped old-filler")
	assert.Contains(t, out, "Container document-filler started (0123456789ab)")
	assert.Contains(t, out, "after 3 attempt(s) (HTTP 200)")
	assert.Contains(t, out, "Document Filler is running at http://localhost:8000")
}

func TestPrintUpResult_JSON(t *testing.T) {
	setJSONOutput(t, true)

	var buf bytes.Buffer
	printUpResult(&buf, &deploy.Result{Name: "document-filler", URL: "http://localhost:8000"})

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "http://localhost:8000", got["url"])
	assert.Equal(t, false, got["envCreated"])
}
