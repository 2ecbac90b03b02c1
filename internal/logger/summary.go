package logger

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/harrison/benchmaker/internal/models"
)

// Summary counts the contents of a snapshot.
type Summary struct {
	Suites  int
	Cases   int
	Runs    int
	Results int
	Failed  int // results with models.ResultStatusFailed
}

// Summarize counts suites, cases, runs and results in snap.
func Summarize(snap *models.Snapshot) Summary {
	var s Summary
	if snap == nil {
		return s
	}

	s.Suites = len(snap.TestSuites)
	for _, suite := range snap.TestSuites {
		s.Cases += len(suite.TestCases)
	}

	s.Runs = len(snap.Runs)
	for _, run := range snap.Runs {
		s.Results += len(run.Results)
		for _, r := range run.Results {
			if r.Status == models.ResultStatusFailed {
				s.Failed++
			}
		}
	}
	return s
}

// LogSummary logs "<action>: suites: N, cases: N, runs: N, results: N" at
// info level, with failed results appended when there are any.
func (cl *ConsoleLogger) LogSummary(action string, s Summary) {
	cl.LogInfo(fmt.Sprintf("%s: %s", action, cl.formatSummary(s)))
}

func (cl *ConsoleLogger) formatSummary(s Summary) string {
	label := func(v string) string { return v }
	value := func(v int) string { return fmt.Sprintf("%d", v) }
	failed := value

	if cl.colorOutput {
		label = func(v string) string { return color.New(color.FgCyan).Sprint(v) }
		value = func(v int) string { return color.New(color.FgWhite).Sprintf("%d", v) }
		failed = func(v int) string { return color.New(color.FgRed).Sprintf("%d", v) }
	}

	parts := []string{
		fmt.Sprintf("%s: %s", label("suites"), value(s.Suites)),
		fmt.Sprintf("%s: %s", label("cases"), value(s.Cases)),
		fmt.Sprintf("%s: %s", label("runs"), value(s.Runs)),
		fmt.Sprintf("%s: %s", label("results"), value(s.Results)),
	}
	if s.Failed > 0 {
		parts = append(parts, fmt.Sprintf("%s: %s", label("failed"), failed(s.Failed)))
	}
	return strings.Join(parts, ", ")
}
