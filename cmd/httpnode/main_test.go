package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"advanced-http-worker/pkg/registry"
)

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// ==========================
// run
// ==========================

func TestRunCommand_StaticRequestPerItem(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"path":"` + r.URL.Path + `"}`))
	}))
	defer srv.Close()

	params := writeFile(t, "node.yaml", "method: GET\nurl: "+srv.URL+"/ping\n")

	out, err := execute(t, `[{"a":1},{"a":2}]`, "run", "--params", params)
	require.NoError(t, err)

	var records []map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &records))
	require.Len(t, records, 2)
	assert.Equal(t, map[string]interface{}{"path": "/ping"}, records[0]["json"])
	assert.Equal(t, float64(1), records[1]["pairedItem"])
}

func TestRunCommand_ContinueOnFailFlag(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	params := writeFile(t, "node.json", `{"method":"GET","url":"`+srv.URL+`"}`)

	_, err := execute(t, `[{}]`, "run", "--params", params)
	require.Error(t, err)

	out, err := execute(t, `[{}]`, "run", "--params", params, "--continue-on-fail")
	require.NoError(t, err)

	var records []map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &records))
	require.Len(t, records, 1)
	assert.Contains(t, records[0]["json"], "error")
}

func TestRunCommand_InputErrors(t *testing.T) {
	valid := writeFile(t, "node.yaml", "method: GET\nurl: https://example.com\n")
	badMethod := writeFile(t, "bad.yaml", "method: TRACE\nurl: https://example.com\n")

	tests := []struct {
		name  string
		stdin string
		args  []string
	}{
		{"missing params flag", "[]", []string{"run"}},
		{"params file missing", "[]", []string{"run", "--params", filepath.Join(t.TempDir(), "none.yaml")}},
		{"unsupported method", "[]", []string{"run", "--params", badMethod}},
		{"items not an array", `{"a":1}`, []string{"run", "--params", valid}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.stdin, tt.args...)
			assert.Error(t, err)
		})
	}
}

// ==========================
// coerce / validate-url
// ==========================

func TestCoerceCommand(t *testing.T) {
	out, err := execute(t, `{"n":{"type":"number","value":"42"},"s":"plain"}`, "coerce")
	require.NoError(t, err)

	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.Equal(t, float64(42), doc["n"])
	assert.Equal(t, "plain", doc["s"])

	_, err = execute(t, `not json`, "coerce")
	assert.Error(t, err)
}

func TestValidateURLCommand(t *testing.T) {
	out, err := execute(t, "", "validate-url", "https://api.example.com/v1")
	require.NoError(t, err)
	assert.Equal(t, "valid\n", out)

	_, err = execute(t, "", "validate-url", "ftp://example.com")
	assert.Error(t, err)

	_, err = execute(t, "", "validate-url")
	assert.Error(t, err)
}

// ==========================
// describe
// ==========================

func TestDescribeCommand_PrintsYAML(t *testing.T) {
	out, err := execute(t, "", "describe")
	require.NoError(t, err)

	var activity registry.Activity
	require.NoError(t, yaml.Unmarshal([]byte(out), &activity))
	assert.Equal(t, "http-request", activity.ID)
	assert.Equal(t, "http.request", activity.TaskType)
}

func TestDescribeCommand_WritesRegistry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry", "activities.yaml")

	_, err := execute(t, "", "describe", "--write", path)
	require.NoError(t, err)
	_, err = execute(t, "", "describe", "--write", path)
	require.NoError(t, err)

	reg, err := registry.LoadRegistry(path)
	require.NoError(t, err)
	require.Len(t, reg.Activities, 1)
	assert.Equal(t, "http-request", reg.Activities[0].ID)
	assert.NotEmpty(t, reg.LastUpdated)
}
