package store

import (
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"
	"time"
)

//go:embed sql/delete-stops.sql
var deleteStopsSQL string

//go:embed sql/insert-stop.sql
var insertStopSQL string

//go:embed sql/get-stop.sql
var getStopSQL string

//go:embed sql/count-stops.sql
var countStopsSQL string

//go:embed sql/upsert-result.sql
var upsertResultSQL string

//go:embed sql/get-result.sql
var getResultSQL string

//go:embed sql/list-results.sql
var listResultsSQL string

// StopRecord is one row of the cached stops directory.
type StopRecord struct {
	ID           string
	Code         string
	Name         string
	Lat          float64
	Lon          float64
	LocationType int
	Wheelchair   int
	FetchedAt    time.Time
}

// ResultRecord is the last published result for one stop. Attributes holds
// the JSON document exactly as it went out on the wire.
type ResultRecord struct {
	StopID     string
	PolledAt   time.Time
	State      string
	Attributes string
}

type Repository interface {
	ReplaceStops(records []StopRecord) error
	GetStop(id string) (*StopRecord, error)
	CountStops() (int, error)
	UpsertResult(rec ResultRecord) error
	GetResult(stopID string) (*ResultRecord, error)
	ListResults() ([]ResultRecord, error)
}

type repositoryImpl struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repositoryImpl{db: db}
}

// ReplaceStops swaps the whole directory cache for the given snapshot in one
// transaction.
func (r *repositoryImpl) ReplaceStops(records []StopRecord) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("begin replace stops: %w", err)
	}
	defer func() {
		if err := tx.Rollback(); err != nil && err != sql.ErrTxDone {
			slog.Error("rollback replace stops", "error", err)
		}
	}()

	if _, err := tx.Exec(deleteStopsSQL); err != nil {
		return fmt.Errorf("clear stops: %w", err)
	}
	for _, rec := range records {
		_, err := tx.Exec(insertStopSQL,
			rec.ID, rec.Code, rec.Name, rec.Lat, rec.Lon,
			rec.LocationType, rec.Wheelchair,
			rec.FetchedAt.UTC().Format(time.RFC3339Nano),
		)
		if err != nil {
			return fmt.Errorf("insert stop %s: %w", rec.ID, err)
		}
	}
	return tx.Commit()
}

func (r *repositoryImpl) GetStop(id string) (*StopRecord, error) {
	var rec StopRecord
	var fetched string
	err := r.db.QueryRow(getStopSQL, id).Scan(
		&rec.ID, &rec.Code, &rec.Name, &rec.Lat, &rec.Lon,
		&rec.LocationType, &rec.Wheelchair, &fetched,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	rec.FetchedAt, err = parseStoredTime(fetched)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *repositoryImpl) CountStops() (int, error) {
	var n int
	err := r.db.QueryRow(countStopsSQL).Scan(&n)
	return n, err
}

func (r *repositoryImpl) UpsertResult(rec ResultRecord) error {
	_, err := r.db.Exec(upsertResultSQL,
		rec.StopID,
		rec.PolledAt.UTC().Format(time.RFC3339Nano),
		rec.State,
		rec.Attributes,
	)
	if err != nil {
		return fmt.Errorf("upsert result for %s: %w", rec.StopID, err)
	}
	return nil
}

func (r *repositoryImpl) GetResult(stopID string) (*ResultRecord, error) {
	var rec ResultRecord
	var polled string
	err := r.db.QueryRow(getResultSQL, stopID).Scan(&rec.StopID, &polled, &rec.State, &rec.Attributes)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	rec.PolledAt, err = parseStoredTime(polled)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *repositoryImpl) ListResults() ([]ResultRecord, error) {
	rows, err := r.db.Query(listResultsSQL)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("close results rows", "error", err)
		}
	}()

	var out []ResultRecord
	for rows.Next() {
		var rec ResultRecord
		var polled string
		if err := rows.Scan(&rec.StopID, &polled, &rec.State, &rec.Attributes); err != nil {
			return nil, err
		}
		rec.PolledAt, err = parseStoredTime(polled)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func parseStoredTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}
