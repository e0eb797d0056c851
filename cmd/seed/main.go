package main

import (
	"archive/zip"
	"cmp"
	"context"
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/ufotracker/tracker/consts"
	"github.com/ufotracker/tracker/db"
	"github.com/ufotracker/tracker/sighting"
	"github.com/ufotracker/tracker/source"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

func main() {
	dataFolder := cmp.Or(os.Getenv("DATA_FOLDER"), ".")
	dbPath := flag.String("db", filepath.Join(dataFolder, consts.DBFileName), "Path to the sightings database")
	fixtures := flag.String("fixtures", "", "Folder of .json or .zip fixtures (default: the bundled demo set)")
	flag.Parse()

	if err := run(context.Background(), *dbPath, *fixtures); err != nil {
		log.Fatalf("Error: %v", err)
	}
}

func run(ctx context.Context, dbPath, fixtures string) error {
	if err := os.MkdirAll(filepath.Dir(dbPath), consts.DirPermissions); err != nil {
		return fmt.Errorf("creating database folder: %w", err)
	}
	log.Printf("Opening database: %s", dbPath)
	dbConn, err := db.OpenDB(dbPath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer dbConn.Close()

	if fixtures == "" {
		return save(ctx, dbConn, "demo set", source.Demo())
	}

	files, err := findFixtures(fixtures)
	if err != nil {
		return fmt.Errorf("finding fixtures: %w", err)
	}
	if len(files) == 0 {
		return fmt.Errorf("no fixture files found in %s", fixtures)
	}
	log.Printf("Found %d fixture files", len(files))

	for i, file := range files {
		log.Printf("Processing fixture %d of %d: %s", i+1, len(files), filepath.Base(file))
		sightings, err := readFixture(file)
		if err != nil {
			log.Printf("Warning: error reading %s: %v", file, err)
			continue
		}
		if err := save(ctx, dbConn, filepath.Base(file), sightings); err != nil {
			return err
		}
	}

	total, err := db.CountSightings(ctx, dbConn)
	if err != nil {
		return fmt.Errorf("counting sightings: %w", err)
	}
	log.Printf("Seeding complete, %d sightings in database", total)
	return nil
}

func save(ctx context.Context, dbConn *sql.DB, name string, sightings []sighting.Sighting) error {
	written, err := db.SaveSightings(ctx, dbConn, normalize(sightings))
	if err != nil {
		return fmt.Errorf("saving %s: %w", name, err)
	}
	log.Printf("  Saved %d sightings from %s", written, name)
	return nil
}

func findFixtures(folder string) ([]string, error) {
	entries, err := os.ReadDir(folder)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".json", ".zip":
			files = append(files, filepath.Join(folder, entry.Name()))
		}
	}

	// Sort by name so later exports win on conflicting ids
	slices.Sort(files)
	return files, nil
}

func readFixture(path string) ([]sighting.Sighting, error) {
	if strings.EqualFold(filepath.Ext(path), ".zip") {
		return readZip(path)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return decode(f)
}

func readZip(path string) ([]sighting.Sighting, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	var all []sighting.Sighting
	for _, f := range r.File {
		// Skip macOS metadata files
		if strings.HasPrefix(f.Name, "__MACOSX") || !strings.EqualFold(filepath.Ext(f.Name), ".json") {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, err
		}
		sightings, err := decode(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f.Name, err)
		}
		all = append(all, sightings...)
	}
	if len(all) == 0 {
		return nil, fmt.Errorf("no sightings found in zip")
	}
	return all, nil
}

func decode(r io.Reader) ([]sighting.Sighting, error) {
	var sightings []sighting.Sighting
	if err := json.NewDecoder(r).Decode(&sightings); err != nil {
		return nil, fmt.Errorf("decoding sightings: %w", err)
	}
	return sightings, nil
}

// normalize tidies free-text fields so reports of the same shape or country
// rank together.
func normalize(sightings []sighting.Sighting) []sighting.Sighting {
	title := cases.Title(language.English)
	out := make([]sighting.Sighting, 0, len(sightings))
	for _, s := range sightings {
		s.City = strings.TrimSpace(s.City)
		s.State = strings.TrimSpace(s.State)
		s.Country = strings.TrimSpace(s.Country)
		s.Shape = title.String(strings.TrimSpace(s.Shape))
		out = append(out, s)
	}
	return out
}
