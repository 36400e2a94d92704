package tripstore

import (
	"citibike-scraper/lib/tripdata"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"
)

const schema = `CREATE TABLE IF NOT EXISTS trips (
	run_id TEXT NOT NULL,
	seq INTEGER NOT NULL,
	start_time TEXT NOT NULL,
	end_time TEXT NOT NULL,
	start_station TEXT NOT NULL,
	end_station TEXT NOT NULL,
	duration TEXT NOT NULL,
	PRIMARY KEY (run_id, seq)
)`

// DriverFor picks the database/sql driver for dsn.
func DriverFor(dsn string) string {
	switch {
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return "pgx"
	case strings.HasPrefix(dsn, "libsql://"),
		strings.HasPrefix(dsn, "http://"),
		strings.HasPrefix(dsn, "https://"):
		return "libsql"
	default:
		return "sqlite"
	}
}

// Store is a database of scraped trips, every scrape is stored under its own
// run id.
type Store struct {
	DB     *sql.DB
	driver string
}

func OpenStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("a database was not specified")
	}
	driver := DriverFor(dsn)

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}
	if driver == "sqlite" {
		db.SetMaxOpenConns(1)
		_, err = db.ExecContext(ctx, "PRAGMA journal_mode=WAL")
		if err != nil {
			db.Close()
			return nil, err
		}
	}
	_, err = db.ExecContext(ctx, schema)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{DB: db, driver: driver}, nil
}

func (s *Store) Close() error {
	return s.DB.Close()
}

// rebind rewrites ? placeholders for drivers that number them.
func (s *Store) rebind(query string) string {
	if s.driver != "pgx" {
		return query
	}
	var out strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&out, "$%d", n)
			continue
		}
		out.WriteRune(r)
	}
	return out.String()
}

// Trips returns the trips of a run in the order they were scraped.
func (s *Store) Trips(ctx context.Context, runId string) ([]tripdata.RawTrip, error) {
	rows, err := s.DB.QueryContext(
		ctx,
		s.rebind(`SELECT start_time, end_time, start_station, end_station, duration
		FROM trips WHERE run_id = ? ORDER BY seq`),
		runId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trips []tripdata.RawTrip
	for rows.Next() {
		var t tripdata.RawTrip
		err := rows.Scan(&t.StartTime, &t.EndTime, &t.StartStation, &t.EndStation, &t.Duration)
		if err != nil {
			return nil, err
		}
		trips = append(trips, t)
	}
	return trips, rows.Err()
}

// SQLSink writes the trips of one run inside a single transaction, nothing
// of the run is visible before Commit.
type SQLSink struct {
	RunId string

	tx     *sql.Tx
	insert *sql.Stmt
	seq    int
}

func (s *Store) NewSink(ctx context.Context, runId string) (*SQLSink, error) {
	// the transaction must outlive a cancelled walk so Abort can roll it back
	tx, err := s.DB.BeginTx(context.WithoutCancel(ctx), nil)
	if err != nil {
		return nil, err
	}
	insert, err := tx.PrepareContext(ctx, s.rebind(`INSERT INTO trips (
		run_id, seq, start_time, end_time, start_station, end_station, duration
	) VALUES (?, ?, ?, ?, ?, ?, ?)`))
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	return &SQLSink{RunId: runId, tx: tx, insert: insert}, nil
}

func (s *SQLSink) Push(ctx context.Context, trips []tripdata.RawTrip) error {
	if s.tx == nil {
		return fmt.Errorf("push to closed sink %s", s.RunId)
	}
	for _, t := range trips {
		_, err := s.insert.ExecContext(
			ctx,
			s.RunId, s.seq,
			t.StartTime, t.EndTime, t.StartStation, t.EndStation, t.Duration,
		)
		if err != nil {
			return fmt.Errorf("insert trip %d: %w", s.seq, err)
		}
		s.seq++
	}
	return nil
}

func (s *SQLSink) Commit() error {
	if s.tx == nil {
		return fmt.Errorf("commit closed sink %s", s.RunId)
	}
	tx := s.tx
	s.tx = nil
	s.insert.Close()
	return tx.Commit()
}

func (s *SQLSink) Abort() error {
	if s.tx == nil {
		return nil
	}
	tx := s.tx
	s.tx = nil
	s.insert.Close()
	err := tx.Rollback()
	if errors.Is(err, sql.ErrTxDone) {
		return nil
	}
	return err
}
