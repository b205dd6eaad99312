// Package run defines the record of one executed test case.
package run

import (
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// Outcome classifies how a test case ended.
type Outcome int

const (
	Success Outcome = iota
	Failure
	Inconclusive
)

// String returns the human-readable outcome name.
func (o Outcome) String() string {
	switch o {
	case Success:
		return "Success"
	case Failure:
		return "Failure"
	case Inconclusive:
		return "Inconclusive"
	default:
		return "Unknown"
	}
}

// ParseOutcome is the inverse of String. Unknown names are Inconclusive.
func ParseOutcome(s string) Outcome {
	switch {
	case strings.EqualFold(s, "Success"):
		return Success
	case strings.EqualFold(s, "Failure"):
		return Failure
	default:
		return Inconclusive
	}
}

// AssertionStatus is the result of a single recorded assertion.
type AssertionStatus string

const (
	Passed AssertionStatus = "Passed"
	Failed AssertionStatus = "Failed"
)

// Assertion is one check recorded by the test runner.
type Assertion struct {
	Status     AssertionStatus
	Message    string
	StackTrace string
}

// Record describes one executed test case.
type Record struct {
	// ID is a ULID, so records sort by start time.
	ID string

	// Flow is the test case name.
	Flow string

	// LoggerID names the diagnostics files: {LoggerID}.txt and {LoggerID}.png.
	LoggerID string

	Outcome  Outcome
	Started  time.Time
	Finished time.Time

	Assertions  []Assertion
	Attachments []string

	// Error is the failure message, empty on success.
	Error string
}

// NewRecord creates a record for flow started now.
func NewRecord(flow string) *Record {
	now := time.Now()
	return &Record{
		ID:      ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy()).String(),
		Flow:    flow,
		Outcome: Inconclusive,
		Started: now,
	}
}

// Duration returns how long the run took, or zero if it has not finished.
func (r *Record) Duration() time.Duration {
	if r.Finished.IsZero() {
		return 0
	}
	return r.Finished.Sub(r.Started)
}

// Failures returns the failed assertions.
func (r *Record) Failures() []Assertion {
	var out []Assertion
	for _, a := range r.Assertions {
		if a.Status == Failed {
			out = append(out, a)
		}
	}
	return out
}

// Clone creates a deep copy of the record.
func (r *Record) Clone() *Record {
	clone := *r
	if len(r.Assertions) > 0 {
		clone.Assertions = make([]Assertion, len(r.Assertions))
		copy(clone.Assertions, r.Assertions)
	}
	if len(r.Attachments) > 0 {
		clone.Attachments = make([]string, len(r.Attachments))
		copy(clone.Attachments, r.Attachments)
	}
	return &clone
}
