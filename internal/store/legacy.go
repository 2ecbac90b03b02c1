package store

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/harrison/benchmaker/internal/models"
)

// The generation-1 document is decoded into these shapes rather than straight
// into the models, so that a field the old writer omitted takes the current
// default instead of a zero value. Unknown fields are ignored by
// encoding/json. Only ids are required.

type legacySnapshot struct {
	TestSuites        []legacySuite `json:"testSuites"`
	Runs              []legacyRun   `json:"runs"`
	ActiveTestSuiteID *string       `json:"activeTestSuiteId"`
	CurrentRunID      *string       `json:"currentRunId"`
}

type legacySuite struct {
	ID                string       `json:"id"`
	Name              string       `json:"name"`
	Description       *string      `json:"description"`
	SystemPrompt      string       `json:"systemPrompt"`
	JudgeSystemPrompt *string      `json:"judgeSystemPrompt"`
	TestCases         []legacyCase `json:"testCases"`
	CreatedAt         int64        `json:"createdAt"`
	UpdatedAt         int64        `json:"updatedAt"`
}

type legacyCase struct {
	ID             string   `json:"id"`
	Prompt         string   `json:"prompt"`
	ExpectedOutput *string  `json:"expectedOutput"`
	ScoringMethod  string   `json:"scoringMethod"`
	Weight         *float64 `json:"weight"`
	Metadata       *struct {
		Category   *string  `json:"category"`
		Difficulty *string  `json:"difficulty"`
		Tags       []string `json:"tags"`
	} `json:"metadata"`
}

type legacyRun struct {
	ID            string                  `json:"id"`
	TestSuiteID   string                  `json:"testSuiteId"`
	TestSuiteName string                  `json:"testSuiteName"`
	Models        []string                `json:"models"`
	Parameters    *storedParameters       `json:"parameters"`
	Results       []models.TestCaseResult `json:"results"`
	Status        string                  `json:"status"`
	StartedAt     int64                   `json:"startedAt"`
	CompletedAt   *int64                  `json:"completedAt"`
	JudgeModel    *string                 `json:"judgeModel"`
}

// decodeLegacySnapshot parses a generation-1 payload into a snapshot ready
// for import.
func decodeLegacySnapshot(payload []byte) (*models.Snapshot, error) {
	var doc legacySnapshot
	if err := json.Unmarshal(payload, &doc); err != nil {
		return nil, err
	}

	snap := &models.Snapshot{
		TestSuites:        make([]models.TestSuite, 0, len(doc.TestSuites)),
		Runs:              make([]models.RunResult, 0, len(doc.Runs)),
		ActiveTestSuiteID: doc.ActiveTestSuiteID,
		CurrentRunID:      doc.CurrentRunID,
	}

	for i, ls := range doc.TestSuites {
		if ls.ID == "" {
			return nil, fmt.Errorf("test suite %d: missing id", i)
		}
		suite := models.TestSuite{
			ID:                ls.ID,
			Name:              ls.Name,
			Description:       ls.Description,
			SystemPrompt:      ls.SystemPrompt,
			JudgeSystemPrompt: ls.JudgeSystemPrompt,
			TestCases:         make([]models.TestCase, 0, len(ls.TestCases)),
			CreatedAt:         ls.CreatedAt,
			UpdatedAt:         ls.UpdatedAt,
		}
		for j, lc := range ls.TestCases {
			tc, err := lc.toModel()
			if err != nil {
				return nil, fmt.Errorf("test suite %q case %d: %w", ls.ID, j, err)
			}
			suite.TestCases = append(suite.TestCases, tc)
		}
		snap.TestSuites = append(snap.TestSuites, suite)
	}

	for i, lr := range doc.Runs {
		if lr.ID == "" {
			return nil, fmt.Errorf("run %d: missing id", i)
		}
		snap.Runs = append(snap.Runs, lr.toModel())
	}

	return snap, nil
}

func (lc legacyCase) toModel() (models.TestCase, error) {
	if lc.ID == "" {
		return models.TestCase{}, errors.New("missing id")
	}

	tc := models.TestCase{
		ID:             lc.ID,
		Prompt:         lc.Prompt,
		ExpectedOutput: lc.ExpectedOutput,
		ScoringMethod:  lc.ScoringMethod,
		Weight:         models.DefaultWeight,
		Metadata:       models.TestCaseMetadata{Tags: []string{}},
	}
	if lc.Weight != nil {
		tc.Weight = *lc.Weight
	}
	if lc.Metadata != nil {
		tc.Metadata.Category = lc.Metadata.Category
		tc.Metadata.Difficulty = lc.Metadata.Difficulty
		if lc.Metadata.Tags != nil {
			tc.Metadata.Tags = lc.Metadata.Tags
		}
	}
	return tc, nil
}

func (lr legacyRun) toModel() models.RunResult {
	run := models.RunResult{
		ID:            lr.ID,
		TestSuiteID:   lr.TestSuiteID,
		TestSuiteName: lr.TestSuiteName,
		Models:        lr.Models,
		Parameters:    models.DefaultModelParameters(),
		Results:       lr.Results,
		Status:        lr.Status,
		StartedAt:     lr.StartedAt,
		CompletedAt:   lr.CompletedAt,
		JudgeModel:    lr.JudgeModel,
	}
	if run.Models == nil {
		run.Models = []string{}
	}
	if run.Results == nil {
		run.Results = []models.TestCaseResult{}
	}
	if lr.Parameters != nil {
		run.Parameters = lr.Parameters.withDefaults()
	}
	return run
}
