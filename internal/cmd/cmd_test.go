package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/harrison/benchmaker/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const suiteJSON = `{
  "id": "arithmetic",
  "name": "Arithmetic",
  "description": null,
  "systemPrompt": "You are a calculator.",
  "judgeSystemPrompt": null,
  "testCases": [
    {
      "id": "add",
      "prompt": "2+2?",
      "expectedOutput": "4",
      "scoringMethod": "exact",
      "weight": 1,
      "metadata": {"category": null, "difficulty": null, "tags": []}
    }
  ],
  "createdAt": 1000,
  "updatedAt": 2000
}`

const runJSON = `{
  "id": "run-1",
  "testSuiteId": "arithmetic",
  "testSuiteName": "Arithmetic",
  "models": ["model-a"],
  "parameters": {"temperature": 0.2, "topP": 1, "maxTokens": 256, "frequencyPenalty": 0, "presencePenalty": 0},
  "results": [
    {
      "testCaseId": "add",
      "modelId": "model-a",
      "response": "4",
      "tokenCount": 3,
      "latencyMs": 120,
      "status": "completed",
      "error": null,
      "score": {"score": 1, "confidence": null, "notes": null, "rawScore": null, "maxScore": null},
      "streamedContent": null
    }
  ],
  "status": "completed",
  "startedAt": 5000,
  "completedAt": 6000,
  "judgeModel": null
}`

// runCLI executes the root command against dbPath and returns stdout.
func runCLI(t *testing.T, dbPath, stdin string, args ...string) (string, error) {
	t.Helper()

	root := NewRootCommand()
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(append([]string{"--db", dbPath}, args...))

	err := root.Execute()
	return stdout.String(), err
}

func setupCLI(t *testing.T) string {
	t.Helper()
	t.Setenv("BENCHMAKER_HOME", t.TempDir())
	return filepath.Join(t.TempDir(), "bench.sqlite")
}

func TestMigrateCommand(t *testing.T) {
	dbPath := setupCLI(t)

	out, err := runCLI(t, dbPath, "", "migrate")
	require.NoError(t, err)
	assert.Equal(t, "schema version 2\n", out)
	assert.FileExists(t, dbPath)
}

func TestInvalidLogLevelFlag(t *testing.T) {
	dbPath := setupCLI(t)

	_, err := runCLI(t, dbPath, "", "--log-level", "loud", "migrate")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log_level")
}

func TestSuitesCommands(t *testing.T) {
	dbPath := setupCLI(t)

	_, err := runCLI(t, dbPath, suiteJSON, "suites", "save", "-")
	require.NoError(t, err)

	out, err := runCLI(t, dbPath, "", "suites", "list")
	require.NoError(t, err)

	var suites []models.TestSuite
	require.NoError(t, json.Unmarshal([]byte(out), &suites))
	require.Len(t, suites, 1)
	assert.Equal(t, "arithmetic", suites[0].ID)
	assert.Equal(t, int64(1000), suites[0].CreatedAt)
	require.Len(t, suites[0].TestCases, 1)
	require.NotNil(t, suites[0].TestCases[0].ExpectedOutput)
	assert.Equal(t, "4", *suites[0].TestCases[0].ExpectedOutput)

	_, err = runCLI(t, dbPath, "", "suites", "delete", "arithmetic")
	require.NoError(t, err)

	out, err = runCLI(t, dbPath, "", "suites", "list")
	require.NoError(t, err)
	assert.Equal(t, "[]\n", out)
}

func TestSuitesSaveFromFile(t *testing.T) {
	dbPath := setupCLI(t)
	path := filepath.Join(t.TempDir(), "suite.json")
	require.NoError(t, os.WriteFile(path, []byte(suiteJSON), 0644))

	_, err := runCLI(t, dbPath, "", "suites", "save", path)
	require.NoError(t, err)

	out, err := runCLI(t, dbPath, "", "suites", "list")
	require.NoError(t, err)
	assert.Contains(t, out, `"id": "arithmetic"`)
}

func TestSuitesSaveDefaultsMissingWeight(t *testing.T) {
	dbPath := setupCLI(t)
	input := `{"id": "w", "name": "Weights", "systemPrompt": "", "testCases": [
		{"id": "w1", "prompt": "p", "scoringMethod": "exact"},
		{"id": "w2", "prompt": "p", "scoringMethod": "exact", "weight": 4}
	], "createdAt": 1, "updatedAt": 1}`

	_, err := runCLI(t, dbPath, input, "suites", "save", "-")
	require.NoError(t, err)

	out, err := runCLI(t, dbPath, "", "suites", "list")
	require.NoError(t, err)

	var suites []models.TestSuite
	require.NoError(t, json.Unmarshal([]byte(out), &suites))
	require.Len(t, suites, 1)
	require.Len(t, suites[0].TestCases, 2)
	assert.Equal(t, models.DefaultWeight, suites[0].TestCases[0].Weight)
	assert.Equal(t, 4.0, suites[0].TestCases[1].Weight)
}

func TestSuitesSaveRejectsBadInput(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr string
	}{
		{name: "unknown field", input: `{"id": "x", "bogus": true}`, wantErr: "failed to decode JSON from stdin"},
		{name: "malformed", input: `{"id": `, wantErr: "failed to decode JSON from stdin"},
		{name: "missing id", input: `{"name": "x"}`, wantErr: "invalid input"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dbPath := setupCLI(t)
			_, err := runCLI(t, dbPath, tt.input, "suites", "save", "-")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSuitesImportMarkdown(t *testing.T) {
	dbPath := setupCLI(t)
	dir := t.TempDir()
	md := "# Greetings\n\n## Case: hello\n\nSay hello.\n\n```expected\nhello\n```\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "greetings.md"), []byte(md), 0644))
	yml := "id: farewell\nname: Farewell\ncases:\n  - id: bye\n    prompt: Say bye.\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "farewell.yaml"), []byte(yml), 0644))

	out, err := runCLI(t, dbPath, "", "suites", "import", dir)
	require.NoError(t, err)
	ids := strings.Fields(out)
	require.Len(t, ids, 2)
	assert.Equal(t, "farewell", ids[0])

	out, err = runCLI(t, dbPath, "", "suites", "list")
	require.NoError(t, err)

	var suites []models.TestSuite
	require.NoError(t, json.Unmarshal([]byte(out), &suites))
	require.Len(t, suites, 2)

	byName := map[string]models.TestSuite{}
	for _, s := range suites {
		byName[s.Name] = s
	}
	greetings := byName["Greetings"]
	assert.Equal(t, ids[1], greetings.ID)
	require.Len(t, greetings.TestCases, 1)
	assert.Equal(t, "hello", greetings.TestCases[0].ID)
	assert.Equal(t, "Say hello.", greetings.TestCases[0].Prompt)
}

func TestSuitesImportMissingPath(t *testing.T) {
	dbPath := setupCLI(t)

	_, err := runCLI(t, dbPath, "", "suites", "import", filepath.Join(t.TempDir(), "nope.md"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to access path")
}

func TestRunsCommands(t *testing.T) {
	dbPath := setupCLI(t)

	_, err := runCLI(t, dbPath, runJSON, "runs", "save", "-")
	require.NoError(t, err)

	out, err := runCLI(t, dbPath, "", "runs", "list")
	require.NoError(t, err)

	var runs []models.RunResult
	require.NoError(t, json.Unmarshal([]byte(out), &runs))
	require.Len(t, runs, 1)
	assert.Equal(t, "run-1", runs[0].ID)
	assert.Equal(t, 0.2, runs[0].Parameters.Temperature)
	require.Len(t, runs[0].Results, 1)
	require.NotNil(t, runs[0].Results[0].Score)
	assert.Equal(t, 1.0, runs[0].Results[0].Score.Score)

	_, err = runCLI(t, dbPath, "", "runs", "delete", "run-1")
	require.NoError(t, err)

	out, err = runCLI(t, dbPath, "", "runs", "list")
	require.NoError(t, err)
	assert.Equal(t, "[]\n", out)
}

func TestStateCommands(t *testing.T) {
	dbPath := setupCLI(t)

	out, err := runCLI(t, dbPath, "", "state", "get")
	require.NoError(t, err)
	assert.JSONEq(t, `{"activeTestSuiteId": null, "currentRunId": null}`, out)

	_, err = runCLI(t, dbPath, "", "state", "set", "--suite", "arithmetic", "--run", "run-1")
	require.NoError(t, err)

	// Only the flags given change.
	out, err = runCLI(t, dbPath, "", "state", "set", "--run", "")
	require.NoError(t, err)
	assert.JSONEq(t, `{"activeTestSuiteId": "arithmetic", "currentRunId": null}`, out)

	out, err = runCLI(t, dbPath, "", "state", "get")
	require.NoError(t, err)
	assert.JSONEq(t, `{"activeTestSuiteId": "arithmetic", "currentRunId": null}`, out)
}

func TestStateSetRequiresFlag(t *testing.T) {
	dbPath := setupCLI(t)

	_, err := runCLI(t, dbPath, "", "state", "set")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nothing to change")
}

func TestSnapshotRoundTrip(t *testing.T) {
	srcDB := setupCLI(t)

	_, err := runCLI(t, srcDB, suiteJSON, "suites", "save", "-")
	require.NoError(t, err)
	_, err = runCLI(t, srcDB, runJSON, "runs", "save", "-")
	require.NoError(t, err)
	_, err = runCLI(t, srcDB, "", "state", "set", "--suite", "arithmetic")
	require.NoError(t, err)

	exportPath := filepath.Join(t.TempDir(), "export.json")
	out, err := runCLI(t, srcDB, "", "snapshot", "read", "--output", exportPath)
	require.NoError(t, err)
	assert.Empty(t, out)

	data, err := os.ReadFile(exportPath)
	require.NoError(t, err)
	var snap models.Snapshot
	require.NoError(t, json.Unmarshal(data, &snap))
	assert.Equal(t, int64(2), snap.Version)
	require.Len(t, snap.TestSuites, 1)
	require.Len(t, snap.Runs, 1)
	require.NotNil(t, snap.ActiveTestSuiteID)

	dstDB := filepath.Join(t.TempDir(), "copy.sqlite")
	_, err = runCLI(t, dstDB, "", "snapshot", "write", exportPath)
	require.NoError(t, err)

	out, err = runCLI(t, dstDB, "", "snapshot", "read")
	require.NoError(t, err)
	var copied models.Snapshot
	require.NoError(t, json.Unmarshal([]byte(out), &copied))
	assert.Equal(t, snap.TestSuites, copied.TestSuites)
	assert.Equal(t, snap.Runs, copied.Runs)
	assert.Equal(t, "arithmetic", *copied.ActiveTestSuiteID)
	assert.Nil(t, copied.CurrentRunID)
}

func TestSnapshotWriteIgnoresUnknownKeys(t *testing.T) {
	dbPath := setupCLI(t)
	doc := `{
  "version": 1,
  "updatedAt": 0,
  "theme": "dark",
  "testSuites": [{"id": "s1", "name": "Old", "systemPrompt": "", "createdAt": 1, "updatedAt": 1,
    "testCases": [{"id": "c1", "prompt": "p", "scoringMethod": "exact", "legacyFlag": true}]}],
  "runs": [],
  "activeTestSuiteId": "s1",
  "currentRunId": null
}`

	_, err := runCLI(t, dbPath, doc, "snapshot", "write", "-")
	require.NoError(t, err)

	out, err := runCLI(t, dbPath, "", "suites", "list")
	require.NoError(t, err)

	var suites []models.TestSuite
	require.NoError(t, json.Unmarshal([]byte(out), &suites))
	require.Len(t, suites, 1)
	require.Len(t, suites[0].TestCases, 1)
	assert.Equal(t, models.DefaultWeight, suites[0].TestCases[0].Weight)

	// Entity saves stay strict.
	_, err = runCLI(t, dbPath, `{"id": "s2", "theme": "dark"}`, "suites", "save", "-")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown field")
}
