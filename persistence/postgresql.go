// persistence/postgresql.go
package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	// PostgreSQL driver
	_ "github.com/lib/pq"

	"github.com/wfunc/stationhub/room"
)

// PostgreSQL is the raw database/sql snapshot store, for deployments that
// prefer plain SQL over GORM.
type PostgreSQL struct {
	db *sql.DB
}

func NewPostgreSQL(host string, port int, user, password, dbname string) (*PostgreSQL, error) {
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := initTables(db); err != nil {
		return nil, err
	}

	return &PostgreSQL{db: db}, nil
}

func initTables(db *sql.DB) error {
	_, err := db.Exec(`
        CREATE TABLE IF NOT EXISTS room_snapshots (
            id SERIAL PRIMARY KEY,
            code VARCHAR(16) UNIQUE NOT NULL,
            state VARCHAR(16) NOT NULL,
            stations_count INT NOT NULL,
            round_duration_sec INT NOT NULL,
            snapshot JSONB NOT NULL,
            created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
            updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
        )
    `)
	return err
}

func (p *PostgreSQL) SaveRoom(snap room.Snapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return err
	}

	_, err = p.db.Exec(`
        INSERT INTO room_snapshots (code, state, stations_count, round_duration_sec, snapshot)
        VALUES ($1, $2, $3, $4, $5)
        ON CONFLICT (code) DO UPDATE SET
            state = EXCLUDED.state,
            stations_count = EXCLUDED.stations_count,
            round_duration_sec = EXCLUDED.round_duration_sec,
            snapshot = EXCLUDED.snapshot,
            updated_at = CURRENT_TIMESTAMP
    `, snap.Code, snap.State, snap.StationsCount, snap.RoundDurationSec, payload)
	return err
}

func (p *PostgreSQL) LoadRoom(code string) (room.Snapshot, error) {
	var payload []byte
	err := p.db.QueryRow(
		`SELECT snapshot FROM room_snapshots WHERE code = $1`, code,
	).Scan(&payload)
	if err == sql.ErrNoRows {
		return room.Snapshot{}, ErrRecordNotFound
	}
	if err != nil {
		return room.Snapshot{}, err
	}

	var snap room.Snapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return room.Snapshot{}, err
	}
	return snap, nil
}

func (p *PostgreSQL) DeleteRoom(code string) error {
	_, err := p.db.Exec(`DELETE FROM room_snapshots WHERE code = $1`, code)
	return err
}

func (p *PostgreSQL) ListCodes() ([]string, error) {
	rows, err := p.db.Query(`SELECT code FROM room_snapshots ORDER BY code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var codes []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, err
		}
		codes = append(codes, code)
	}
	return codes, rows.Err()
}

func (p *PostgreSQL) Close() error {
	return p.db.Close()
}
