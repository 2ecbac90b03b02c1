package models

import (
	"encoding/json"
	"fmt"
)

// DefaultWeight is the weight a test case carries when none was supplied.
const DefaultWeight = 1.0

// TestCaseMetadata holds the optional classification of a test case
type TestCaseMetadata struct {
	Category   *string  `json:"category"`
	Difficulty *string  `json:"difficulty"`
	Tags       []string `json:"tags"`
}

// TestCase is a single prompt within a suite.
// Its display position is its index in TestSuite.TestCases; the store
// persists that index as sort_order and never derives order from ids.
type TestCase struct {
	ID             string           `json:"id"`
	Prompt         string           `json:"prompt"`
	ExpectedOutput *string          `json:"expectedOutput"`
	ScoringMethod  string           `json:"scoringMethod"` // free-form tag, e.g. "exact", "contains", "judge"
	Weight         float64          `json:"weight"`
	Metadata       TestCaseMetadata `json:"metadata"`
}

// UnmarshalJSON decodes a test case, leaving Weight at DefaultWeight when
// the document omits it or sets it to null.
func (tc *TestCase) UnmarshalJSON(data []byte) error {
	type plain TestCase
	c := plain{Weight: DefaultWeight}
	if err := json.Unmarshal(data, &c); err != nil {
		return err
	}
	*tc = TestCase(c)
	return nil
}

// TestSuite owns an ordered list of test cases.
// CreatedAt and UpdatedAt are epoch milliseconds supplied by the caller.
type TestSuite struct {
	ID                string     `json:"id"`
	Name              string     `json:"name"`
	Description       *string    `json:"description"`
	SystemPrompt      string     `json:"systemPrompt"`
	JudgeSystemPrompt *string    `json:"judgeSystemPrompt"`
	TestCases         []TestCase `json:"testCases"`
	CreatedAt         int64      `json:"createdAt"`
	UpdatedAt         int64      `json:"updatedAt"`
}

// Validate checks the fields the store relies on as keys.
func (s *TestSuite) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("test suite id is required")
	}

	seen := make(map[string]bool, len(s.TestCases))
	for i, tc := range s.TestCases {
		if tc.ID == "" {
			return fmt.Errorf("test suite %s: test case at index %d has no id", s.ID, i)
		}
		if seen[tc.ID] {
			return fmt.Errorf("test suite %s: duplicate test case id %q", s.ID, tc.ID)
		}
		seen[tc.ID] = true
	}

	return nil
}

// CaseIDs returns the test case ids in display order.
func (s *TestSuite) CaseIDs() []string {
	ids := make([]string, 0, len(s.TestCases))
	for _, tc := range s.TestCases {
		ids = append(ids, tc.ID)
	}
	return ids
}

// StringPtr returns a pointer to v, or nil when v is empty.
// Optional text fields use nil for "absent".
func StringPtr(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
