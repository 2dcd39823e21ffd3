package models

import "time"

// TestRunStatus is the final state of one harness session
type TestRunStatus string

const (
	TestRunRunning TestRunStatus = "running"
	TestRunPassed  TestRunStatus = "passed"
	TestRunFailed  TestRunStatus = "failed"
	TestRunSkipped TestRunStatus = "skipped"
)

// TestRun is the ledger entry written for each harness session
type TestRun struct {
	ID          string        `json:"id" badgerhold:"key"`
	Name        string        `json:"name" badgerhold:"index"`
	Status      TestRunStatus `json:"status" badgerhold:"index"`
	StartedAt   time.Time     `json:"started_at"`
	CompletedAt time.Time     `json:"completed_at,omitempty"`
	DurationMs  int64         `json:"duration_ms"`
	Logs        []string      `json:"logs,omitempty"`
	Failure     string        `json:"failure,omitempty"`
	StrayDialog string        `json:"stray_dialog,omitempty"`
	Screenshot  string        `json:"screenshot,omitempty"`
}
