// Package parser reads test suites from authoring files.
//
// Three formats are accepted: YAML and Markdown for hand-written suites, and
// JSON in the same shape the store and the CLI emit. Parsers fill defaults
// for fields a format leaves out (scoring method, weight); ParseFile then
// assigns generated ids and timestamps to anything still missing.
package parser

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/harrison/benchmaker/internal/fileutil"
	"github.com/harrison/benchmaker/internal/models"
)

// DefaultScoringMethod is used for cases that name no scoring method.
const DefaultScoringMethod = "exact"

// ErrUnsupportedFormat is returned for files with an unknown extension.
var ErrUnsupportedFormat = errors.New("unsupported suite format")

// Format represents the format of a suite file
type Format int

const (
	// FormatUnknown represents an unknown or unsupported file format
	FormatUnknown Format = iota
	// FormatMarkdown represents a Markdown (.md, .markdown) suite file
	FormatMarkdown
	// FormatYAML represents a YAML (.yaml, .yml) suite file
	FormatYAML
	// FormatJSON represents a JSON (.json) suite file
	FormatJSON
)

// String returns the string representation of the Format
func (f Format) String() string {
	switch f {
	case FormatMarkdown:
		return "markdown"
	case FormatYAML:
		return "yaml"
	case FormatJSON:
		return "json"
	default:
		return "unknown"
	}
}

// Parser is the interface that all suite parsers implement
type Parser interface {
	// Parse reads one suite from r. Ids and timestamps may be left empty.
	Parse(r io.Reader) (*models.TestSuite, error)
}

// DetectFormat detects the suite format based on file extension
func DetectFormat(filename string) Format {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".md", ".markdown":
		return FormatMarkdown
	case ".yaml", ".yml":
		return FormatYAML
	case ".json":
		return FormatJSON
	default:
		return FormatUnknown
	}
}

// NewParser creates a parser for format
func NewParser(format Format) (Parser, error) {
	switch format {
	case FormatMarkdown:
		return NewMarkdownParser(), nil
	case FormatYAML:
		return NewYAMLParser(), nil
	case FormatJSON:
		return NewJSONParser(), nil
	default:
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedFormat, format)
	}
}

// ParseFile parses the suite at path, choosing the parser by extension, and
// completes it with Complete.
func ParseFile(path string) (*models.TestSuite, error) {
	format := DetectFormat(path)
	if format == FormatUnknown {
		return nil, fmt.Errorf("%w: %s (supported: .md, .markdown, .yaml, .yml, .json)", ErrUnsupportedFormat, path)
	}

	p, err := NewParser(format)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	suite, err := p.Parse(file)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	Complete(suite, time.Now())
	if err := suite.Validate(); err != nil {
		return nil, fmt.Errorf("invalid suite in %s: %w", path, err)
	}
	return suite, nil
}

// SuiteExtensions lists the file extensions DetectFormat recognises.
var SuiteExtensions = []string{".md", ".markdown", ".yaml", ".yml", ".json"}

// ParseDirectory parses every suite file in dir, in path order. With
// recursive set, subdirectories are searched too. Hidden files and
// directories are skipped. The first file that fails to parse aborts the
// whole directory.
func ParseDirectory(dir string, recursive bool) ([]*models.TestSuite, error) {
	paths, err := fileutil.ScanDirectory(dir, fileutil.ScanOptions{
		Extensions:  SuiteExtensions,
		Recursive:   recursive,
		ExcludeDirs: []string{"node_modules", "vendor"},
	})
	if err != nil {
		return nil, err
	}

	suites := make([]*models.TestSuite, 0, len(paths))
	for _, path := range paths {
		suite, err := ParseFile(path)
		if err != nil {
			return nil, err
		}
		suites = append(suites, suite)
	}
	return suites, nil
}

// Complete assigns a generated id to the suite and to each case that has
// none, and stamps zero timestamps with now.
func Complete(suite *models.TestSuite, now time.Time) {
	if suite.ID == "" {
		suite.ID = uuid.NewString()
	}
	for i := range suite.TestCases {
		if suite.TestCases[i].ID == "" {
			suite.TestCases[i].ID = uuid.NewString()
		}
		if suite.TestCases[i].Metadata.Tags == nil {
			suite.TestCases[i].Metadata.Tags = []string{}
		}
	}
	if suite.TestCases == nil {
		suite.TestCases = []models.TestCase{}
	}

	ms := now.UnixMilli()
	if suite.CreatedAt == 0 {
		suite.CreatedAt = ms
	}
	if suite.UpdatedAt == 0 {
		suite.UpdatedAt = ms
	}
}

// newCase builds a case with the defaults for omitted fields applied.
func newCase(id, prompt, scoring string, weight *float64) models.TestCase {
	tc := models.TestCase{
		ID:            strings.TrimSpace(id),
		Prompt:        prompt,
		ScoringMethod: strings.TrimSpace(scoring),
		Weight:        models.DefaultWeight,
		Metadata:      models.TestCaseMetadata{Tags: []string{}},
	}
	if tc.ScoringMethod == "" {
		tc.ScoringMethod = DefaultScoringMethod
	}
	if weight != nil {
		tc.Weight = *weight
	}
	return tc
}

// splitTags splits a comma separated tag list, dropping empty entries.
func splitTags(raw string) []string {
	tags := []string{}
	for _, tag := range strings.Split(raw, ",") {
		if tag = strings.TrimSpace(tag); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}
