package parser

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/harrison/benchmaker/internal/models"
)

// JSONParser reads a suite in the same JSON shape the CLI prints.
type JSONParser struct{}

// NewJSONParser creates a JSONParser
func NewJSONParser() *JSONParser {
	return &JSONParser{}
}

// Parse reads one JSON suite object. A missing weight decodes as
// models.DefaultWeight; a missing scoring method becomes DefaultScoringMethod.
func (p *JSONParser) Parse(r io.Reader) (*models.TestSuite, error) {
	var suite models.TestSuite
	if err := json.NewDecoder(r).Decode(&suite); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}

	for i := range suite.TestCases {
		tc := &suite.TestCases[i]
		tc.ID = strings.TrimSpace(tc.ID)
		tc.ScoringMethod = strings.TrimSpace(tc.ScoringMethod)
		if tc.ScoringMethod == "" {
			tc.ScoringMethod = DefaultScoringMethod
		}
		if tc.Metadata.Tags == nil {
			tc.Metadata.Tags = []string{}
		}
	}
	return &suite, nil
}
