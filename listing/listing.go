// Package listing filters and orders sightings for the list view.
package listing

import (
	"slices"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/ufotracker/tracker/sighting"
)

type SortBy string

const (
	ByDate    SortBy = "date"
	ByCountry SortBy = "country"
)

// ParseSort maps the sort query parameter, defaulting to ByDate.
func ParseSort(s string) SortBy {
	switch SortBy(strings.ToLower(strings.TrimSpace(s))) {
	case ByCountry:
		return ByCountry
	default:
		return ByDate
	}
}

// Filter keeps the sightings whose city, country or shape contains query,
// ignoring case. A blank query keeps everything.
func Filter(sightings []sighting.Sighting, query string) []sighting.Sighting {
	fold := cases.Fold()
	needle := fold.String(strings.TrimSpace(query))
	result := make([]sighting.Sighting, 0, len(sightings))
	for _, s := range sightings {
		if needle == "" ||
			strings.Contains(fold.String(s.City), needle) ||
			strings.Contains(fold.String(s.Country), needle) ||
			strings.Contains(fold.String(s.Shape), needle) {
			result = append(result, s)
		}
	}
	return result
}

// Sort returns a sorted copy. ByDate is newest first; ByCountry is
// alphabetical using English collation. Ties keep their input order.
func Sort(sightings []sighting.Sighting, by SortBy) []sighting.Sighting {
	sorted := slices.Clone(sightings)
	if sorted == nil {
		sorted = []sighting.Sighting{}
	}
	switch by {
	case ByCountry:
		coll := collate.New(language.English, collate.IgnoreCase)
		slices.SortStableFunc(sorted, func(a, b sighting.Sighting) int {
			return coll.CompareString(a.Country, b.Country)
		})
	default:
		slices.SortStableFunc(sorted, func(a, b sighting.Sighting) int {
			return b.Time.Compare(a.Time.Time)
		})
	}
	return sorted
}

// Apply filters, then sorts.
func Apply(sightings []sighting.Sighting, query string, by SortBy) []sighting.Sighting {
	return Sort(Filter(sightings, query), by)
}
