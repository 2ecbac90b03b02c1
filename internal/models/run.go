package models

import "fmt"

// Run status values written by the benchmark runner. The store treats the
// status as an opaque tag; these are listed for callers.
const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusCancelled = "cancelled"
	RunStatusFailed    = "failed"
)

// Result status values for TestCaseResult.Status. Like run statuses they are
// opaque to the store.
const (
	ResultStatusCompleted = "completed"
	ResultStatusFailed    = "failed"
)

// ModelParameters are the sampling parameters a run was executed with
type ModelParameters struct {
	Temperature      float64 `json:"temperature"`
	TopP             float64 `json:"topP"`
	MaxTokens        int64   `json:"maxTokens"`
	FrequencyPenalty float64 `json:"frequencyPenalty"`
	PresencePenalty  float64 `json:"presencePenalty"`
}

// DefaultModelParameters returns the parameter set used when a stored run
// carries parameters that cannot be read back.
func DefaultModelParameters() ModelParameters {
	return ModelParameters{
		Temperature:      0.7,
		TopP:             1.0,
		MaxTokens:        1024,
		FrequencyPenalty: 0,
		PresencePenalty:  0,
	}
}

// ScoringResult is the judge's verdict for one response
type ScoringResult struct {
	Score      float64  `json:"score"`
	Confidence *float64 `json:"confidence"`
	Notes      *string  `json:"notes"`
	RawScore   *float64 `json:"rawScore"`
	MaxScore   *float64 `json:"maxScore"`
}

// TestCaseResult is one model's answer to one test case.
// (TestCaseID, ModelID) is not unique within a run: retries append.
type TestCaseResult struct {
	TestCaseID      string         `json:"testCaseId"`
	ModelID         string         `json:"modelId"`
	Response        string         `json:"response"`
	TokenCount      *int64         `json:"tokenCount"`
	LatencyMs       *int64         `json:"latencyMs"`
	Status          string         `json:"status"`
	Error           *string        `json:"error"`
	Score           *ScoringResult `json:"score"`
	StreamedContent *string        `json:"streamedContent"`
}

// RunResult is one execution of a suite against a set of models.
// TestSuiteName is captured at run time so the run survives suite renames
// and deletes; TestSuiteID is a loose reference.
type RunResult struct {
	ID            string           `json:"id"`
	TestSuiteID   string           `json:"testSuiteId"`
	TestSuiteName string           `json:"testSuiteName"`
	Models        []string         `json:"models"`
	Parameters    ModelParameters  `json:"parameters"`
	Results       []TestCaseResult `json:"results"`
	Status        string           `json:"status"`
	StartedAt     int64            `json:"startedAt"`
	CompletedAt   *int64           `json:"completedAt"`
	JudgeModel    *string          `json:"judgeModel"`
}

// Validate checks the fields the store relies on as keys.
func (r *RunResult) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("run id is required")
	}
	return nil
}
