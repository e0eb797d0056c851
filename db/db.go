package db

import (
	"context"
	"database/sql"
	"fmt"
	"iter"
	"log"
	"net/url"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/ufotracker/tracker/consts"
	"github.com/ufotracker/tracker/sighting"
)

func OpenDB(fileName string) (*sql.DB, error) {
	params := url.Values{
		"_journal_mode": []string{"WAL"},
		"_synchronous":  []string{"NORMAL"},
		"cache":         []string{"shared"},
		"_busy_timeout": []string{"5000"},
		"_txlock":       []string{"immediate"},
	}
	dataSourceName := fmt.Sprintf("file:%s?%s", fileName, params.Encode())
	db, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return nil, err
	}

	// Create schema if not exists
	createTableQuery := `
CREATE TABLE IF NOT EXISTS sightings (
	id VARCHAR NOT NULL PRIMARY KEY,
	time TEXT NOT NULL,
	city VARCHAR NOT NULL DEFAULT '',
	state VARCHAR NOT NULL DEFAULT '',
	country VARCHAR NOT NULL DEFAULT '',
	shape VARCHAR NOT NULL DEFAULT '',
	duration VARCHAR NOT NULL DEFAULT '',
	summary TEXT NOT NULL DEFAULT '',
	lat REAL NOT NULL,
	lng REAL NOT NULL
);
CREATE INDEX IF NOT EXISTS sightings_time ON sightings(time);
`
	_, err = db.Exec(createTableQuery)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(1)
	return db, nil
}

// SaveSightings upserts sightings in one transaction and returns how many were written.
func SaveSightings(ctx context.Context, db *sql.DB, sightings []sighting.Sighting) (int64, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("starting transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO sightings (id, time, city, state, country, shape, duration, summary, lat, lng)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	time = excluded.time, city = excluded.city, state = excluded.state, country = excluded.country,
	shape = excluded.shape, duration = excluded.duration, summary = excluded.summary,
	lat = excluded.lat, lng = excluded.lng`)
	if err != nil {
		return 0, fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	var written int64
	for _, s := range sightings {
		_, err := stmt.ExecContext(ctx, s.ID, s.Time.UTC().Format(consts.DateTimeFormat),
			s.City, s.State, s.Country, s.Shape, s.Duration, s.Summary, s.Lat, s.Lng)
		if err != nil {
			return 0, fmt.Errorf("saving sighting %s: %w", s.ID, err)
		}
		written++
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing: %w", err)
	}
	return written, nil
}

// SelectRecent yields the newest sightings first. limit <= 0 selects all rows.
func SelectRecent(ctx context.Context, db *sql.DB, limit int) (iter.Seq[sighting.Sighting], error) {
	if limit <= 0 {
		limit = -1
	}
	query := `
SELECT id, time, city, state, country, shape, duration, summary, lat, lng
FROM sightings
ORDER BY time DESC, id
LIMIT ?;`
	rows, err := db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("querying recent sightings: %w", err)
	}
	return scanRows(rows), nil
}

// SelectBetween yields sightings with start <= time < end, newest first.
func SelectBetween(ctx context.Context, db *sql.DB, start, end time.Time) (iter.Seq[sighting.Sighting], error) {
	query := `
SELECT id, time, city, state, country, shape, duration, summary, lat, lng
FROM sightings
WHERE time >= ? AND time < ?
ORDER BY time DESC, id;`
	rows, err := db.QueryContext(ctx, query,
		start.UTC().Format(consts.DateTimeFormat), end.UTC().Format(consts.DateTimeFormat))
	if err != nil {
		return nil, fmt.Errorf("querying sightings between %s and %s: %w",
			start.Format(consts.DateFormat), end.Format(consts.DateFormat), err)
	}
	return scanRows(rows), nil
}

func CountSightings(ctx context.Context, db *sql.DB) (int64, error) {
	var n int64
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sightings`).Scan(&n)
	return n, err
}

func scanRows(rows *sql.Rows) iter.Seq[sighting.Sighting] {
	return func(yield func(sighting.Sighting) bool) {
		defer rows.Close()
		for rows.Next() {
			var s sighting.Sighting
			var t string
			err := rows.Scan(&s.ID, &t, &s.City, &s.State, &s.Country, &s.Shape, &s.Duration, &s.Summary, &s.Lat, &s.Lng)
			if err != nil {
				log.Printf("Error scanning row: %s", err)
				return
			}
			s.Time, err = sighting.ParseTimestamp(t)
			if err != nil {
				log.Printf("Error parsing time of sighting %s: %s", s.ID, err)
				return
			}
			if !yield(s) {
				return
			}
		}
	}
}
