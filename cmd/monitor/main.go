package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/ufotracker/tracker/consts"
	"github.com/ufotracker/tracker/db"
	"github.com/ufotracker/tracker/geo"
	"github.com/ufotracker/tracker/rank"
	"github.com/ufotracker/tracker/sighting"
	"github.com/ufotracker/tracker/source"
	"github.com/ufotracker/tracker/summary"
)

type options struct {
	from, to time.Time
	top      int
}

func main() {
	dbPath := flag.String("db", "", "Path to sightings.db (default: the bundled demo set)")
	fromStr := flag.String("from", "", "First day to include (YYYY-MM-DD)")
	toStr := flag.String("to", "", "Last day to include (YYYY-MM-DD)")
	top := flag.Int("top", 10, "Rows per table")
	flag.Parse()

	opts := options{top: *top}
	var err error
	if opts.from, opts.to, err = parseRange(*fromStr, *toStr); err != nil {
		log.Fatalf("Error: %v", err)
	}

	var src source.RangeSource = source.NewStatic(source.Demo())
	if *dbPath != "" {
		dbConn, err := db.OpenDB(*dbPath)
		if err != nil {
			log.Fatalf("Error: opening database %s: %v", *dbPath, err)
		}
		defer func() { _ = dbConn.Close() }()
		src = &source.SQLite{DB: dbConn}
	}

	if err := run(context.Background(), os.Stdout, src, opts); err != nil {
		log.Fatalf("Error: %v", err)
	}
}

// parseRange turns the day flags into a half-open window. Missing bounds
// cover all time.
func parseRange(fromStr, toStr string) (from, to time.Time, err error) {
	to = time.Date(9999, 1, 1, 0, 0, 0, 0, time.UTC)
	if fromStr != "" {
		if from, err = time.Parse(consts.DateFormat, fromStr); err != nil {
			return from, to, fmt.Errorf("parsing from %q: %w", fromStr, err)
		}
	}
	if toStr != "" {
		day, err := time.Parse(consts.DateFormat, toStr)
		if err != nil {
			return from, to, fmt.Errorf("parsing to %q: %w", toStr, err)
		}
		to = day.AddDate(0, 0, 1)
	}
	if !from.Before(to) {
		return from, to, fmt.Errorf("empty range %s to %s", fromStr, toStr)
	}
	return from, to, nil
}

func run(ctx context.Context, w io.Writer, src source.RangeSource, opts options) error {
	sightings, err := src.FetchBetween(ctx, opts.from, opts.to)
	if err != nil {
		return fmt.Errorf("selecting sightings: %w", err)
	}
	if len(sightings) == 0 {
		return fmt.Errorf("no sightings found")
	}

	s := summary.SummarizeData(sightings, summary.WithTop(opts.top))
	fmt.Fprintf(w, "Period: %s to %s\n", s.Oldest.Format(consts.DateFormat), s.Newest.Format(consts.DateFormat))
	fmt.Fprintf(w, "Total sightings: %d\n\n", s.Total)

	fmt.Fprintln(w, "By Shape:")
	printTopN(w, s.TopShapes)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "By Country:")
	printTopN(w, s.TopCountries)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "By City:")
	printTopN(w, s.TopCities)
	fmt.Fprintln(w)

	if a, b, km, ok := farthestPair(sightings); ok {
		fmt.Fprintln(w, "Spread:")
		fmt.Fprintf(w, "  %.0f km between %s and %s\n", km, a.Label(), b.Label())
	}
	return nil
}

func printTopN(w io.Writer, entries []rank.Entry) {
	for _, e := range entries {
		key := e.Key
		if key == "" {
			key = "(unknown)"
		}
		fmt.Fprintf(w, "%6d | %s\n", e.Count, key)
	}
}

// farthestPair returns the two sightings furthest apart on the globe.
func farthestPair(sightings []sighting.Sighting) (a, b sighting.Sighting, km float64, ok bool) {
	for i := range sightings {
		for j := i + 1; j < len(sightings); j++ {
			d := geo.DistanceKm(sightings[i].Lat, sightings[i].Lng, sightings[j].Lat, sightings[j].Lng)
			if !ok || d > km {
				a, b, km, ok = sightings[i], sightings[j], d, true
			}
		}
	}
	return a, b, km, ok
}
