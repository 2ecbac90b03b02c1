package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/harrison/benchmaker/internal/models"
)

// ============================================================================
// Null Type Conversion Helpers
// ============================================================================

// nullToStringPtr converts a nullable column to an optional string
func nullToStringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}

// stringPtrToNull converts an optional string to a nullable column value
func stringPtrToNull(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// nullToInt64Ptr converts a nullable integer column to an optional int64
func nullToInt64Ptr(ni sql.NullInt64) *int64 {
	if !ni.Valid {
		return nil
	}
	v := ni.Int64
	return &v
}

// int64PtrToNull converts an optional int64 to a nullable column value
func int64PtrToNull(i *int64) sql.NullInt64 {
	if i == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *i, Valid: true}
}

// ============================================================================
// Embedded Column Codecs
// ============================================================================
//
// tags, models, parameters and score are JSON documents inside relational
// rows. Encoding never fails for these shapes in practice, but errors are
// still returned so a write never stores a half-encoded value. Decoding
// errors are returned to the caller, which decides whether to degrade
// (ordinary reads) or abort (migration).

// encodeStringList encodes tags or model ids. nil encodes as "[]".
func encodeStringList(values []string) (string, error) {
	if values == nil {
		return "[]", nil
	}
	data, err := json.Marshal(values)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// decodeStringList decodes a JSON array of strings. The result is never nil.
func decodeStringList(raw string) ([]string, error) {
	values := []string{}
	if raw == "" {
		return values, nil
	}
	if err := json.Unmarshal([]byte(raw), &values); err != nil {
		return []string{}, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	if values == nil {
		values = []string{}
	}
	return values, nil
}

// storedParameters mirrors models.ModelParameters with every field optional
// so an object missing a field can be completed from the defaults.
type storedParameters struct {
	Temperature      *float64 `json:"temperature"`
	TopP             *float64 `json:"topP"`
	MaxTokens        *int64   `json:"maxTokens"`
	FrequencyPenalty *float64 `json:"frequencyPenalty"`
	PresencePenalty  *float64 `json:"presencePenalty"`
}

func encodeParameters(p models.ModelParameters) (string, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// decodeParameters decodes a run's parameters. Fields absent from the stored
// object take their default value. An unparseable value returns the full
// default set together with an ErrDecode error.
func decodeParameters(raw string) (models.ModelParameters, error) {
	var stored storedParameters
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		return models.DefaultModelParameters(), fmt.Errorf("%w: %w", ErrDecode, err)
	}
	return stored.withDefaults(), nil
}

// withDefaults fills every absent field from DefaultModelParameters.
func (stored storedParameters) withDefaults() models.ModelParameters {
	params := models.DefaultModelParameters()
	if stored.Temperature != nil {
		params.Temperature = *stored.Temperature
	}
	if stored.TopP != nil {
		params.TopP = *stored.TopP
	}
	if stored.MaxTokens != nil {
		params.MaxTokens = *stored.MaxTokens
	}
	if stored.FrequencyPenalty != nil {
		params.FrequencyPenalty = *stored.FrequencyPenalty
	}
	if stored.PresencePenalty != nil {
		params.PresencePenalty = *stored.PresencePenalty
	}
	return params
}

// encodeScore stores an absent score as NULL
func encodeScore(score *models.ScoringResult) (sql.NullString, error) {
	if score == nil {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(score)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

// decodeScore returns nil for NULL, empty text, or a JSON null.
func decodeScore(ns sql.NullString) (*models.ScoringResult, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	var score *models.ScoringResult
	if err := json.Unmarshal([]byte(ns.String), &score); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	return score, nil
}

// ============================================================================
// Row Scanners
// ============================================================================
//
// CRITICAL: each scanArgs() must match its *Columns constant exactly.

// degradeFunc is called when an embedded column cannot be decoded and a
// default value is used instead.
type degradeFunc func(field string, err error)

// suiteRow holds all columns from a test_suites query
type suiteRow struct {
	ID                string
	Name              string
	Description       sql.NullString
	SystemPrompt      string
	JudgeSystemPrompt sql.NullString
	CreatedAt         int64
	UpdatedAt         int64
}

const suiteColumns = `id, name, description, system_prompt, judge_system_prompt, created_at, updated_at`

func (r *suiteRow) scanArgs() []any {
	return []any{
		&r.ID,
		&r.Name,
		&r.Description,
		&r.SystemPrompt,
		&r.JudgeSystemPrompt,
		&r.CreatedAt,
		&r.UpdatedAt,
	}
}

func (r *suiteRow) toModel() models.TestSuite {
	return models.TestSuite{
		ID:                r.ID,
		Name:              r.Name,
		Description:       nullToStringPtr(r.Description),
		SystemPrompt:      r.SystemPrompt,
		JudgeSystemPrompt: nullToStringPtr(r.JudgeSystemPrompt),
		TestCases:         []models.TestCase{},
		CreatedAt:         r.CreatedAt,
		UpdatedAt:         r.UpdatedAt,
	}
}

// caseRow holds all columns from a test_cases query
type caseRow struct {
	ID             string
	TestSuiteID    string
	Prompt         string
	ExpectedOutput sql.NullString
	ScoringMethod  string
	Weight         float64
	Category       sql.NullString
	Difficulty     sql.NullString
	TagsJSON       string
}

const caseColumns = `id, test_suite_id, prompt, expected_output, scoring_method, weight, category, difficulty, tags`

func (r *caseRow) scanArgs() []any {
	return []any{
		&r.ID,
		&r.TestSuiteID,
		&r.Prompt,
		&r.ExpectedOutput,
		&r.ScoringMethod,
		&r.Weight,
		&r.Category,
		&r.Difficulty,
		&r.TagsJSON,
	}
}

func (r *caseRow) toModel(degrade degradeFunc) models.TestCase {
	tags, err := decodeStringList(r.TagsJSON)
	if err != nil {
		degrade("tags", err)
	}

	return models.TestCase{
		ID:             r.ID,
		Prompt:         r.Prompt,
		ExpectedOutput: nullToStringPtr(r.ExpectedOutput),
		ScoringMethod:  r.ScoringMethod,
		Weight:         r.Weight,
		Metadata: models.TestCaseMetadata{
			Category:   nullToStringPtr(r.Category),
			Difficulty: nullToStringPtr(r.Difficulty),
			Tags:       tags,
		},
	}
}

// runRow holds all columns from a runs query
type runRow struct {
	ID             string
	TestSuiteID    string
	TestSuiteName  string
	ModelsJSON     string
	ParametersJSON string
	Status         string
	StartedAt      int64
	CompletedAt    sql.NullInt64
	JudgeModel     sql.NullString
}

const runColumns = `id, test_suite_id, test_suite_name, models, parameters, status, started_at, completed_at, judge_model`

func (r *runRow) scanArgs() []any {
	return []any{
		&r.ID,
		&r.TestSuiteID,
		&r.TestSuiteName,
		&r.ModelsJSON,
		&r.ParametersJSON,
		&r.Status,
		&r.StartedAt,
		&r.CompletedAt,
		&r.JudgeModel,
	}
}

func (r *runRow) toModel(degrade degradeFunc) models.RunResult {
	modelIDs, err := decodeStringList(r.ModelsJSON)
	if err != nil {
		degrade("models", err)
	}

	params, err := decodeParameters(r.ParametersJSON)
	if err != nil {
		degrade("parameters", err)
	}

	return models.RunResult{
		ID:            r.ID,
		TestSuiteID:   r.TestSuiteID,
		TestSuiteName: r.TestSuiteName,
		Models:        modelIDs,
		Parameters:    params,
		Results:       []models.TestCaseResult{},
		Status:        r.Status,
		StartedAt:     r.StartedAt,
		CompletedAt:   nullToInt64Ptr(r.CompletedAt),
		JudgeModel:    nullToStringPtr(r.JudgeModel),
	}
}

// resultRow holds all columns from a test_case_results query
type resultRow struct {
	RunID           string
	TestCaseID      string
	ModelID         string
	Response        string
	TokenCount      sql.NullInt64
	LatencyMs       sql.NullInt64
	Status          string
	Error           sql.NullString
	ScoreJSON       sql.NullString
	StreamedContent sql.NullString
}

const resultColumns = `run_id, test_case_id, model_id, response, token_count, latency_ms, status, error, score, streamed_content`

func (r *resultRow) scanArgs() []any {
	return []any{
		&r.RunID,
		&r.TestCaseID,
		&r.ModelID,
		&r.Response,
		&r.TokenCount,
		&r.LatencyMs,
		&r.Status,
		&r.Error,
		&r.ScoreJSON,
		&r.StreamedContent,
	}
}

func (r *resultRow) toModel(degrade degradeFunc) models.TestCaseResult {
	score, err := decodeScore(r.ScoreJSON)
	if err != nil {
		degrade("score", err)
	}

	return models.TestCaseResult{
		TestCaseID:      r.TestCaseID,
		ModelID:         r.ModelID,
		Response:        r.Response,
		TokenCount:      nullToInt64Ptr(r.TokenCount),
		LatencyMs:       nullToInt64Ptr(r.LatencyMs),
		Status:          r.Status,
		Error:           nullToStringPtr(r.Error),
		Score:           score,
		StreamedContent: nullToStringPtr(r.StreamedContent),
	}
}
