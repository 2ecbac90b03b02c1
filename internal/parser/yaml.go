package parser

import (
	"fmt"
	"io"
	"strings"

	"github.com/harrison/benchmaker/internal/models"
	"gopkg.in/yaml.v3"
)

// YAMLParser parses suites written as YAML
type YAMLParser struct{}

// NewYAMLParser creates a YAMLParser
func NewYAMLParser() *YAMLParser {
	return &YAMLParser{}
}

type yamlSuite struct {
	ID                string     `yaml:"id"`
	Name              string     `yaml:"name"`
	Description       string     `yaml:"description"`
	SystemPrompt      string     `yaml:"system_prompt"`
	JudgeSystemPrompt string     `yaml:"judge_system_prompt"`
	Cases             []yamlCase `yaml:"cases"`
}

type yamlCase struct {
	ID             string   `yaml:"id"`
	Prompt         string   `yaml:"prompt"`
	ExpectedOutput *string  `yaml:"expected_output"`
	Scoring        string   `yaml:"scoring"`
	Weight         *float64 `yaml:"weight"`
	Category       string   `yaml:"category"`
	Difficulty     string   `yaml:"difficulty"`
	Tags           []string `yaml:"tags"`
}

// Parse reads a YAML suite. Unknown keys are rejected so typos in field
// names surface instead of silently dropping data.
func (p *YAMLParser) Parse(r io.Reader) (*models.TestSuite, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var doc yamlSuite
	if err := dec.Decode(&doc); err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("empty suite file")
		}
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	suite := &models.TestSuite{
		ID:                strings.TrimSpace(doc.ID),
		Name:              strings.TrimSpace(doc.Name),
		Description:       models.StringPtr(strings.TrimSpace(doc.Description)),
		SystemPrompt:      strings.TrimSpace(doc.SystemPrompt),
		JudgeSystemPrompt: models.StringPtr(strings.TrimSpace(doc.JudgeSystemPrompt)),
		TestCases:         make([]models.TestCase, 0, len(doc.Cases)),
	}

	for i, c := range doc.Cases {
		prompt := strings.TrimSpace(c.Prompt)
		if prompt == "" {
			return nil, fmt.Errorf("case %d: prompt is required", i+1)
		}

		tc := newCase(c.ID, prompt, c.Scoring, c.Weight)
		tc.ExpectedOutput = c.ExpectedOutput
		tc.Metadata.Category = models.StringPtr(strings.TrimSpace(c.Category))
		tc.Metadata.Difficulty = models.StringPtr(strings.TrimSpace(c.Difficulty))
		for _, tag := range c.Tags {
			if tag = strings.TrimSpace(tag); tag != "" {
				tc.Metadata.Tags = append(tc.Metadata.Tags, tag)
			}
		}
		suite.TestCases = append(suite.TestCases, tc)
	}

	if suite.Name == "" {
		return nil, fmt.Errorf("suite name is required")
	}
	return suite, nil
}
