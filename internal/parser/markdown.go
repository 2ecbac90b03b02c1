package parser

import (
	"bytes"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
	"gopkg.in/yaml.v3"

	"github.com/harrison/benchmaker/internal/models"
)

// MarkdownParser parses suites written as Markdown:
//
//	---
//	id: arithmetic          (optional front matter)
//	---
//	# Suite name
//
//	Description paragraphs.
//
//	## System Prompt
//	## Judge Prompt
//	## Case: optional-id
//
//	- scoring: judge
//	- weight: 2
//	- tags: math, easy
//
//	Prompt text.
//
//	```expected
//	Expected output.
//	```
type MarkdownParser struct {
	markdown goldmark.Markdown
}

// markdownFrontmatter holds suite-level settings given in front matter
type markdownFrontmatter struct {
	ID             string   `yaml:"id"`
	DefaultScoring string   `yaml:"default_scoring"`
	DefaultWeight  *float64 `yaml:"default_weight"`
}

type sectionKind int

const (
	sectionDescription sectionKind = iota
	sectionSystemPrompt
	sectionJudgePrompt
	sectionCase
)

var caseHeadingRegex = regexp.MustCompile(`(?i)^case(?:(?:\s*[:#-]\s*|\s+)(.*))?$`)

var metadataKeys = map[string]bool{
	"scoring":    true,
	"weight":     true,
	"category":   true,
	"difficulty": true,
	"tags":       true,
}

// NewMarkdownParser creates a MarkdownParser
func NewMarkdownParser() *MarkdownParser {
	return &MarkdownParser{
		markdown: goldmark.New(),
	}
}

// markdownCase accumulates one "## Case" section
type markdownCase struct {
	id       string
	prompt   []string
	expected *string
	meta     map[string]string
	hasMeta  bool
}

// Parse reads a Markdown suite.
func (p *MarkdownParser) Parse(r io.Reader) (*models.TestSuite, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read content: %w", err)
	}

	var front markdownFrontmatter
	content, frontmatter := extractFrontmatter(content)
	if frontmatter != nil {
		if err := yaml.Unmarshal(frontmatter, &front); err != nil {
			return nil, fmt.Errorf("failed to parse frontmatter: %w", err)
		}
	}

	doc := p.markdown.Parser().Parse(text.NewReader(content))

	var (
		name        string
		description []string
		system      []string
		judge       []string
		cases       []*markdownCase
		current     *markdownCase
		section     = sectionDescription
	)

	// Only top-level blocks are sections or section content; nested blocks
	// are rendered as part of their parent.
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		if heading, ok := n.(*ast.Heading); ok && heading.Level <= 2 {
			title := strings.TrimSpace(extractText(heading, content))

			if heading.Level == 1 {
				if name != "" {
					return nil, fmt.Errorf("suite has more than one title: %q and %q", name, title)
				}
				name = title
				section = sectionDescription
				continue
			}

			switch lower := strings.ToLower(title); {
			case lower == "system prompt":
				section = sectionSystemPrompt
			case lower == "judge prompt" || lower == "judge system prompt":
				section = sectionJudgePrompt
			case caseHeadingRegex.MatchString(title):
				m := caseHeadingRegex.FindStringSubmatch(title)
				current = &markdownCase{id: strings.TrimSpace(m[1]), meta: map[string]string{}}
				cases = append(cases, current)
				section = sectionCase
			default:
				return nil, fmt.Errorf("unknown section %q (expected System Prompt, Judge Prompt or Case)", title)
			}
			continue
		}

		switch section {
		case sectionDescription:
			description = append(description, blockText(n, content))
		case sectionSystemPrompt:
			system = append(system, blockText(n, content))
		case sectionJudgePrompt:
			judge = append(judge, blockText(n, content))
		case sectionCase:
			if fenced, ok := n.(*ast.FencedCodeBlock); ok && strings.EqualFold(string(fenced.Language(content)), "expected") {
				expected := strings.TrimRight(linesText(fenced.Lines(), content), "\n")
				current.expected = &expected
				continue
			}
			if list, ok := n.(*ast.List); ok && !current.hasMeta && len(current.prompt) == 0 {
				if meta, ok := metadataList(list, content); ok {
					current.meta = meta
					current.hasMeta = true
					continue
				}
			}
			current.prompt = append(current.prompt, blockText(n, content))
		}
	}

	if name == "" {
		return nil, fmt.Errorf("suite title (# heading) is required")
	}

	suite := &models.TestSuite{
		ID:                strings.TrimSpace(front.ID),
		Name:              name,
		Description:       models.StringPtr(joinBlocks(description)),
		SystemPrompt:      joinBlocks(system),
		JudgeSystemPrompt: models.StringPtr(joinBlocks(judge)),
		TestCases:         make([]models.TestCase, 0, len(cases)),
	}

	for i, mc := range cases {
		tc, err := mc.toModel(front)
		if err != nil {
			return nil, fmt.Errorf("case %d: %w", i+1, err)
		}
		suite.TestCases = append(suite.TestCases, tc)
	}

	return suite, nil
}

func (mc *markdownCase) toModel(front markdownFrontmatter) (models.TestCase, error) {
	prompt := joinBlocks(mc.prompt)
	if prompt == "" {
		return models.TestCase{}, fmt.Errorf("prompt is required")
	}

	scoring := mc.meta["scoring"]
	if scoring == "" {
		scoring = front.DefaultScoring
	}

	weight := front.DefaultWeight
	if raw, ok := mc.meta["weight"]; ok {
		w, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return models.TestCase{}, fmt.Errorf("invalid weight %q: %w", raw, err)
		}
		weight = &w
	}

	tc := newCase(mc.id, prompt, scoring, weight)
	tc.ExpectedOutput = mc.expected
	tc.Metadata.Category = models.StringPtr(mc.meta["category"])
	tc.Metadata.Difficulty = models.StringPtr(mc.meta["difficulty"])
	if raw, ok := mc.meta["tags"]; ok {
		tc.Metadata.Tags = splitTags(raw)
	}
	return tc, nil
}

// metadataList reads a "- key: value" list. It reports false when any item
// is not a known key, in which case the list is prompt text.
func metadataList(list *ast.List, source []byte) (map[string]string, bool) {
	meta := map[string]string{}
	for item := list.FirstChild(); item != nil; item = item.NextSibling() {
		key, value, found := strings.Cut(strings.TrimSpace(blockText(item, source)), ":")
		key = strings.ToLower(strings.TrimSpace(key))
		if !found || !metadataKeys[key] {
			return nil, false
		}
		meta[key] = strings.TrimSpace(value)
	}
	return meta, len(meta) > 0
}

// blockText renders a block back to Markdown-ish text: paragraphs keep
// their lines, lists keep their bullets and code keeps its fences.
func blockText(n ast.Node, source []byte) string {
	switch node := n.(type) {
	case *ast.FencedCodeBlock:
		return "```" + string(node.Language(source)) + "\n" + linesText(node.Lines(), source) + "```"
	case *ast.CodeBlock:
		return strings.TrimRight(linesText(node.Lines(), source), "\n")
	case *ast.List:
		var items []string
		i := node.Start
		for item := node.FirstChild(); item != nil; item = item.NextSibling() {
			marker := "- "
			if node.IsOrdered() {
				marker = strconv.Itoa(i) + ". "
				i++
			}
			items = append(items, marker+blockText(item, source))
		}
		return strings.Join(items, "\n")
	case *ast.Blockquote:
		inner := strings.Split(childrenText(node, source), "\n")
		for i, line := range inner {
			inner[i] = "> " + line
		}
		return strings.Join(inner, "\n")
	case *ast.ThematicBreak:
		return "---"
	case *ast.Heading:
		return strings.Repeat("#", node.Level) + " " + extractText(node, source)
	}

	if n.Type() == ast.TypeBlock && n.Lines().Len() > 0 {
		return strings.TrimRight(linesText(n.Lines(), source), "\n")
	}
	return childrenText(n, source)
}

func childrenText(n ast.Node, source []byte) string {
	var parts []string
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		parts = append(parts, blockText(c, source))
	}
	return strings.Join(parts, "\n")
}

// linesText concatenates the raw source lines of a block, one per line.
func linesText(lines *text.Segments, source []byte) string {
	var buf bytes.Buffer
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		buf.Write(bytes.TrimRight(seg.Value(source), "\n"))
		buf.WriteByte('\n')
	}
	return buf.String()
}

func joinBlocks(blocks []string) string {
	return strings.TrimSpace(strings.Join(blocks, "\n\n"))
}

// extractText extracts plain text from an inline container such as a heading
func extractText(n ast.Node, source []byte) string {
	var buf bytes.Buffer
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if t, ok := c.(*ast.Text); ok {
			buf.Write(t.Segment.Value(source))
			continue
		}
		buf.WriteString(extractText(c, source))
	}
	return buf.String()
}

// extractFrontmatter splits a leading "---" delimited YAML block from the body
func extractFrontmatter(content []byte) ([]byte, []byte) {
	lines := bytes.Split(content, []byte("\n"))

	if len(lines) < 3 || !bytes.Equal(bytes.TrimSpace(lines[0]), []byte("---")) {
		return content, nil
	}

	for i := 1; i < len(lines); i++ {
		if bytes.Equal(bytes.TrimSpace(lines[i]), []byte("---")) {
			frontmatter := bytes.Join(lines[1:i], []byte("\n"))
			body := bytes.Join(lines[i+1:], []byte("\n"))
			return body, frontmatter
		}
	}

	return content, nil
}
