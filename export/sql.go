package export

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/golang/glog"

	// Blind import support for sqlite3 used by OpenSQLite.
	_ "github.com/mattn/go-sqlite3"
)

const (
	sqlRecordCountInfo = 100

	// The schema sticks to types and names both sqlite and MySQL accept.
	sqlCreateTableTmpl = `CREATE TABLE IF NOT EXISTS cuts (
		ID             VARCHAR(36) NOT NULL PRIMARY KEY,
		InFile         TEXT NOT NULL,
		OutFile        TEXT NOT NULL,
		SourceName     TEXT,
		NBits          INTEGER,
		NSpec          BIGINT,
		OrigNChans     INTEGER,
		LoChan         INTEGER,
		HiChan         INTEGER,
		NChans         INTEGER,
		Fch1           DOUBLE,
		Foff           DOUBLE,
		StartUnixMilli BIGINT,
		EndUnixMilli   BIGINT
	);`
	sqlInsertRecordTmpl = `INSERT INTO cuts (
		ID,
		InFile,
		OutFile,
		SourceName,
		NBits,
		NSpec,
		OrigNChans,
		LoChan,
		HiChan,
		NChans,
		Fch1,
		Foff,
		StartUnixMilli,
		EndUnixMilli
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);`
	sqlSelectRecordsTmpl = `SELECT
		ID, InFile, OutFile, SourceName, NBits, NSpec, OrigNChans,
		LoChan, HiChan, NChans, Fch1, Foff, StartUnixMilli, EndUnixMilli
	FROM
		cuts`
)

var ErrNotFound = errors.New("record not found")

// OpenSQLite opens (and creates if needed) the sqlite DB at file.
func OpenSQLite(file string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", file)
	if err != nil {
		return nil, fmt.Errorf("unable to open sqlite DB %q: %s", file, err)
	}
	return db, nil
}

// OpenMySQL connects to a MySQL server, reading the password from
// passwordFile.
func OpenMySQL(server, user, passwordFile, dbName string) (*sql.DB, error) {
	pass, err := os.ReadFile(passwordFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read MySQL password file %q: %s", passwordFile, err)
	}
	cfg := mysql.Config{
		User:   user,
		Passwd: strings.TrimSpace(string(pass)),
		Net:    "tcp",
		Addr:   server,
		DBName: dbName,
	}
	db, err := sql.Open("mysql", cfg.FormatDSN())
	if err != nil {
		return nil, fmt.Errorf("unable to open MySQL DB %q: %s", server, err)
	}
	db.SetConnMaxLifetime(3 * time.Minute)
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	return db, nil
}

// SQL stores records in a sqlite or MySQL DB.
type SQL struct {
	DB *sql.DB
}

// Close releases the underlying DB handle.
func (s *SQL) Close() error {
	return s.DB.Close()
}

func (s *SQL) Write(ctx context.Context, records <-chan Record) error {
	if err := s.CreateTableIfNotExists(ctx); err != nil {
		return fmt.Errorf("unable to create table: %s", err)
	}

	counts := map[string]int{
		"error":   0,
		"success": 0,
		"total":   0,
	}
	for r := range records {
		counts["total"] += 1
		if err := s.Insert(ctx, r); err != nil {
			counts["error"] += 1
			glog.Warningf("error storing record in DB: %s\n", err)
			continue
		}
		counts["success"] += 1
		if counts["total"]%sqlRecordCountInfo == 0 {
			glog.Infof("Record export counts: %+v\n", counts)
		}
	}
	if counts["error"] > 0 {
		return fmt.Errorf("unable to store %d of %d records", counts["error"], counts["total"])
	}
	return nil
}

func (s *SQL) CreateTableIfNotExists(ctx context.Context) error {
	_, err := s.DB.ExecContext(ctx, sqlCreateTableTmpl)
	return err
}

func (s *SQL) Insert(ctx context.Context, r Record) error {
	_, err := s.DB.ExecContext(ctx, sqlInsertRecordTmpl,
		r.ID, r.InFile, r.OutFile, r.SourceName, r.NBits, r.NSpec, r.OrigNChans,
		r.LoChan, r.HiChan, r.NChans, r.Fch1, r.Foff, r.Start.UnixMilli(), r.End.UnixMilli())
	return err
}

// List returns up to limit records, most recent first.
func (s *SQL) List(ctx context.Context, limit int) ([]Record, error) {
	rows, err := s.DB.QueryContext(ctx, sqlSelectRecordsTmpl+" ORDER BY StartUnixMilli DESC LIMIT ?;", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := []Record{}
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// Get returns the record with the given ID or ErrNotFound.
func (s *SQL) Get(ctx context.Context, id string) (Record, error) {
	row := s.DB.QueryRowContext(ctx, sqlSelectRecordsTmpl+" WHERE ID = ?;", id)
	r, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return r, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (Record, error) {
	var r Record
	var sourceName sql.NullString
	var start, end int64
	if err := row.Scan(&r.ID, &r.InFile, &r.OutFile, &sourceName, &r.NBits, &r.NSpec, &r.OrigNChans,
		&r.LoChan, &r.HiChan, &r.NChans, &r.Fch1, &r.Foff, &start, &end); err != nil {
		return Record{}, err
	}
	r.SourceName = sourceName.String
	r.Start = time.UnixMilli(start)
	r.End = time.UnixMilli(end)
	return r, nil
}
