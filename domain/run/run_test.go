package run

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"
)

func TestOutcome_String(t *testing.T) {
	tests := []struct {
		outcome Outcome
		want    string
	}{
		{Success, "Success"},
		{Failure, "Failure"},
		{Inconclusive, "Inconclusive"},
		{Outcome(99), "Unknown"},
	}

	for _, tt := range tests {
		if got := tt.outcome.String(); got != tt.want {
			t.Errorf("Outcome(%d).String() = %v, want %v", tt.outcome, got, tt.want)
		}
		if tt.want != "Unknown" && ParseOutcome(tt.want) != tt.outcome {
			t.Errorf("ParseOutcome(%q) = %v, want %v", tt.want, ParseOutcome(tt.want), tt.outcome)
		}
	}
}

func TestNewRecord(t *testing.T) {
	a := NewRecord("search")
	time.Sleep(2 * time.Millisecond)
	b := NewRecord("search")

	if len(a.ID) != 26 {
		t.Errorf("len(ID) = %d, want 26", len(a.ID))
	}
	if a.ID >= b.ID {
		t.Errorf("IDs should sort by creation time: %s >= %s", a.ID, b.ID)
	}
	if a.Outcome != Inconclusive {
		t.Errorf("Outcome = %v, want Inconclusive", a.Outcome)
	}
	if a.Duration() != 0 {
		t.Errorf("Duration() = %v, want 0 before finish", a.Duration())
	}

	a.Finished = a.Started.Add(3 * time.Second)
	if a.Duration() != 3*time.Second {
		t.Errorf("Duration() = %v, want 3s", a.Duration())
	}
}

func TestRecord_CloneAndFailures(t *testing.T) {
	rec := NewRecord("f")
	rec.Assertions = []Assertion{
		{Status: Passed, Message: "ok"},
		{Status: Failed, Message: "boom", StackTrace: "at line 1"},
	}
	rec.Attachments = []string{"a.txt"}

	clone := rec.Clone()
	clone.Assertions[0].Message = "changed"
	clone.Attachments[0] = "b.txt"

	if rec.Assertions[0].Message != "ok" || rec.Attachments[0] != "a.txt" {
		t.Error("Clone should not share slices with the original")
	}

	failures := rec.Failures()
	if len(failures) != 1 || failures[0].Message != "boom" {
		t.Errorf("Failures() = %v, want one failure 'boom'", failures)
	}
}

type memoryRepo struct {
	recs map[string]*Record
}

func (m *memoryRepo) Save(ctx context.Context, rec *Record) error {
	m.recs[rec.ID] = rec.Clone()
	return nil
}

func (m *memoryRepo) Recent(ctx context.Context, limit int) ([]*Record, error) {
	var out []*Record
	for _, r := range m.recs {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func TestHistory(t *testing.T) {
	ctx := context.Background()

	if _, err := NewHistory(nil).Recent(ctx, 5); !errors.Is(err, ErrNoRepository) {
		t.Errorf("Recent() without repo error = %v, want ErrNoRepository", err)
	}

	h := NewHistory(&memoryRepo{recs: make(map[string]*Record)})
	outcomes := []Outcome{Success, Failure, Success}
	for _, o := range outcomes {
		rec := NewRecord("f")
		rec.Outcome = o
		if err := h.Record(ctx, rec); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
		time.Sleep(time.Millisecond)
	}

	recs, err := h.Recent(ctx, 0)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(recs) != 3 {
		t.Fatalf("len(Recent()) = %d, want 3", len(recs))
	}

	s := Summarize(recs)
	if s.Total != 3 || s.Success != 2 || s.Failure != 1 {
		t.Errorf("Summarize() = %+v, want 3 total, 2 success, 1 failure", s)
	}
	if s.Passed() {
		t.Error("Passed() should be false with a failure")
	}
}
