package models

// AppState is the session pointer. Both ids are soft references: nothing
// checks that the suite or run exists.
type AppState struct {
	ActiveTestSuiteID *string `json:"activeTestSuiteId"`
	CurrentRunID      *string `json:"currentRunId"`
}
