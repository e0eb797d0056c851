// Package source provides the sightings data-access collaborator.
//
// Sources are injected into whoever needs them; there is no package-level
// collection. Results are always fresh slices the caller may keep.
package source

import (
	"cmp"
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"slices"
	"time"

	"github.com/ufotracker/tracker/db"
	"github.com/ufotracker/tracker/logging"
	"github.com/ufotracker/tracker/sighting"
)

// ErrUnavailable is returned by sources that cannot currently serve data.
var ErrUnavailable = errors.New("sightings source unavailable")

// Source returns the most recent sightings, newest first. A limit <= 0
// returns everything the source has.
type Source interface {
	FetchRecent(ctx context.Context, limit int) ([]sighting.Sighting, error)
}

// RangeSource is implemented by sources that can select a time window.
type RangeSource interface {
	Source
	FetchBetween(ctx context.Context, start, end time.Time) ([]sighting.Sighting, error)
}

//go:embed demo.json
var demoJSON []byte

// Demo returns a fresh copy of the bundled demo sightings.
func Demo() []sighting.Sighting {
	var sightings []sighting.Sighting
	if err := json.Unmarshal(demoJSON, &sightings); err != nil {
		panic(fmt.Sprintf("decoding bundled demo sightings: %v", err))
	}
	return sightings
}

// Static serves a fixed, injected collection.
type Static struct {
	sightings []sighting.Sighting
}

func NewStatic(sightings []sighting.Sighting) *Static {
	return &Static{sightings: newestFirst(sightings)}
}

func (s *Static) FetchRecent(ctx context.Context, limit int) ([]sighting.Sighting, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	n := len(s.sightings)
	if limit > 0 {
		n = min(limit, n)
	}
	return append([]sighting.Sighting{}, s.sightings[:n]...), nil
}

func (s *Static) FetchBetween(ctx context.Context, start, end time.Time) ([]sighting.Sighting, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	result := []sighting.Sighting{}
	for _, r := range s.sightings {
		if !r.Time.Before(start) && r.Time.Before(end) {
			result = append(result, r)
		}
	}
	return result, nil
}

// SQLite reads sightings from the sqlite store.
type SQLite struct {
	DB *sql.DB
}

func (s *SQLite) FetchRecent(ctx context.Context, limit int) ([]sighting.Sighting, error) {
	rows, err := db.SelectRecent(ctx, s.DB, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return collect(rows), nil
}

func (s *SQLite) FetchBetween(ctx context.Context, start, end time.Time) ([]sighting.Sighting, error) {
	rows, err := db.SelectBetween(ctx, s.DB, start, end)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return collect(rows), nil
}

func collect(rows iter.Seq[sighting.Sighting]) []sighting.Sighting {
	result := []sighting.Sighting{}
	for s := range rows {
		result = append(result, s)
	}
	return result
}

// Failing is a source that always fails. Useful for exercising empty states.
type Failing struct {
	Err error
}

func (f Failing) FetchRecent(context.Context, int) ([]sighting.Sighting, error) {
	return nil, cmp.Or(f.Err, ErrUnavailable)
}

// Result is what the page renders from: a collection that is never nil and
// a flag telling an empty collection apart from a failed fetch.
type Result struct {
	Sightings []sighting.Sighting `json:"sightings"`
	Failed    bool                `json:"failed,omitempty"`
}

// Load fetches from src and turns any failure into an empty, flagged Result.
func Load(ctx context.Context, src Source, limit int, log logging.Logger) (res Result) {
	if log == nil {
		log = logging.Noop()
	}
	defer func() {
		if r := recover(); r != nil {
			log.Error(ctx, "sightings source panicked", logging.Any("panic", r))
			res = Result{Sightings: []sighting.Sighting{}, Failed: true}
		}
	}()

	if src == nil {
		log.Warn(ctx, "no sightings source configured")
		return Result{Sightings: []sighting.Sighting{}, Failed: true}
	}
	sightings, err := src.FetchRecent(ctx, limit)
	if err != nil {
		log.Error(ctx, "failed to load sightings", logging.Err(err), logging.Int("limit", limit))
		return Result{Sightings: []sighting.Sighting{}, Failed: true}
	}
	if sightings == nil {
		sightings = []sighting.Sighting{}
	}
	return Result{Sightings: sightings}
}

func newestFirst(sightings []sighting.Sighting) []sighting.Sighting {
	sorted := slices.Clone(sightings)
	slices.SortStableFunc(sorted, func(a, b sighting.Sighting) int {
		return b.Time.Compare(a.Time.Time)
	})
	return sorted
}
