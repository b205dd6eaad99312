package run

import (
	"context"
	"errors"
)

// ErrNoRepository is returned when history is requested without a store.
var ErrNoRepository = errors.New("no run repository configured")

// History provides summaries over stored run records.
type History struct {
	repo Repository
}

// NewHistory creates a history over repo. A nil repo is allowed; every
// call then fails with ErrNoRepository.
func NewHistory(repo Repository) *History {
	return &History{repo: repo}
}

// Record saves rec.
func (h *History) Record(ctx context.Context, rec *Record) error {
	if h.repo == nil {
		return ErrNoRepository
	}
	return h.repo.Save(ctx, rec)
}

// Recent returns up to limit records, newest first. A non-positive limit means 20.
func (h *History) Recent(ctx context.Context, limit int) ([]*Record, error) {
	if h.repo == nil {
		return nil, ErrNoRepository
	}
	if limit <= 0 {
		limit = 20
	}
	return h.repo.Recent(ctx, limit)
}

// Summary counts outcomes over recs.
type Summary struct {
	Total        int
	Success      int
	Failure      int
	Inconclusive int
}

// Summarize counts the outcomes of recs.
func Summarize(recs []*Record) Summary {
	var s Summary
	for _, r := range recs {
		s.Total++
		switch r.Outcome {
		case Success:
			s.Success++
		case Failure:
			s.Failure++
		default:
			s.Inconclusive++
		}
	}
	return s
}

// Passed reports whether every run succeeded or was inconclusive.
func (s Summary) Passed() bool {
	return s.Failure == 0
}
