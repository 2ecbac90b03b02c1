package models

import "fmt"

// Snapshot is the whole-database document used by the legacy read/write
// interface. Writing a snapshot replaces the stored state: suites and runs
// missing from the document are deleted.
type Snapshot struct {
	Version           int64       `json:"version"`
	UpdatedAt         int64       `json:"updatedAt"`
	TestSuites        []TestSuite `json:"testSuites"`
	Runs              []RunResult `json:"runs"`
	ActiveTestSuiteID *string     `json:"activeTestSuiteId"`
	CurrentRunID      *string     `json:"currentRunId"`
}

// AppState returns the session pointer carried by the snapshot.
func (s *Snapshot) AppState() AppState {
	return AppState{
		ActiveTestSuiteID: s.ActiveTestSuiteID,
		CurrentRunID:      s.CurrentRunID,
	}
}

// Validate validates every suite and run and rejects duplicate ids.
func (s *Snapshot) Validate() error {
	suiteIDs := make(map[string]bool, len(s.TestSuites))
	for i := range s.TestSuites {
		suite := &s.TestSuites[i]
		if err := suite.Validate(); err != nil {
			return fmt.Errorf("snapshot suite %d: %w", i, err)
		}
		if suiteIDs[suite.ID] {
			return fmt.Errorf("snapshot contains test suite %q twice", suite.ID)
		}
		suiteIDs[suite.ID] = true
	}

	runIDs := make(map[string]bool, len(s.Runs))
	for i := range s.Runs {
		run := &s.Runs[i]
		if err := run.Validate(); err != nil {
			return fmt.Errorf("snapshot run %d: %w", i, err)
		}
		if runIDs[run.ID] {
			return fmt.Errorf("snapshot contains run %q twice", run.ID)
		}
		runIDs[run.ID] = true
	}

	return nil
}
