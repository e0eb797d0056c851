package sighting

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ufotracker/tracker/consts"
)

// Sighting is a single geolocated report. Collections of sightings are
// treated as read-only once loaded.
type Sighting struct {
	ID       string    `json:"id"`
	Time     Timestamp `json:"datetime"`
	City     string    `json:"city"`
	State    string    `json:"state"`
	Country  string    `json:"country"`
	Shape    string    `json:"shape"`
	Duration string    `json:"duration"`
	Summary  string    `json:"summary"`
	Lat      float64   `json:"lat"`
	Lng      float64   `json:"lng"`
}

// Label is the short "City, Country" caption used on map points.
func (s Sighting) Label() string {
	return s.City + ", " + s.Country
}

// Place is "City, State", or just the city when the region is empty.
func (s Sighting) Place() string {
	if s.State == "" {
		return s.City
	}
	return s.City + ", " + s.State
}

// Timestamp marshals as "2006-01-02 15:04:05" in UTC.
type Timestamp struct {
	time.Time
}

func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Time: t.UTC()}
}

// ParseTimestamp accepts the report format and RFC 3339.
func ParseTimestamp(s string) (Timestamp, error) {
	if t, err := time.ParseInLocation(consts.DateTimeFormat, s, time.UTC); err == nil {
		return Timestamp{Time: t}, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return Timestamp{}, fmt.Errorf("parsing timestamp %q: %w", s, err)
	}
	return NewTimestamp(t), nil
}

func (t Timestamp) String() string {
	return t.UTC().Format(consts.DateTimeFormat)
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseTimestamp(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Key selectors used by the summary panels.
func ShapeOf(s Sighting) string   { return s.Shape }
func CountryOf(s Sighting) string { return s.Country }
func CityOf(s Sighting) string    { return s.Place() }

// KeyFor returns the selector for a field name (shape, country or city).
func KeyFor(field string) (func(Sighting) string, bool) {
	switch strings.ToLower(field) {
	case "shape", "shapes":
		return ShapeOf, true
	case "country", "countries":
		return CountryOf, true
	case "city", "cities":
		return CityOf, true
	}
	return nil, false
}
