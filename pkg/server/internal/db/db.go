package db

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// DB represents the database connection
type DB struct {
	*sql.DB
}

// Elimination is one stored ledger entry.
type Elimination struct {
	PlayerID int
	Place    int
	Hand     int
	TableID  int
}

// TournamentRecord is a finished tournament.
type TournamentRecord struct {
	ID           string
	TotalPlayers int
	HandsPlayed  int
	Winner       int
	Truncated    bool
	Config       string // YAML
	FinishedAt   time.Time
	Eliminations []Elimination
}

// NewDB opens (or creates) the sqlite database at dbPath.
func NewDB(dbPath string) (*DB, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	// Create tables if they don't exist
	if err := createTables(db); err != nil {
		db.Close()
		return nil, err
	}

	return &DB{db}, nil
}

// createTables creates the necessary database tables
func createTables(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS tournaments (
			id TEXT PRIMARY KEY,
			total_players INTEGER NOT NULL,
			hands_played INTEGER NOT NULL,
			winner INTEGER NOT NULL,
			truncated INTEGER NOT NULL DEFAULT 0,
			config TEXT,
			finished_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS eliminations (
			tournament_id TEXT NOT NULL,
			player_id INTEGER NOT NULL,
			place INTEGER NOT NULL,
			hand INTEGER NOT NULL,
			table_id INTEGER NOT NULL,
			PRIMARY KEY (tournament_id, player_id),
			FOREIGN KEY (tournament_id) REFERENCES tournaments(id)
		)
	`)
	return err
}

// SaveTournament stores a tournament and its eliminations atomically.
func (db *DB) SaveTournament(rec *TournamentRecord) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	finished := rec.FinishedAt
	if finished.IsZero() {
		finished = time.Now()
	}
	_, err = tx.Exec(`
		INSERT INTO tournaments (id, total_players, hands_played, winner, truncated, config, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, rec.ID, rec.TotalPlayers, rec.HandsPlayed, rec.Winner, rec.Truncated, rec.Config, finished.UTC())
	if err != nil {
		return fmt.Errorf("failed to insert tournament %s: %v", rec.ID, err)
	}

	for _, e := range rec.Eliminations {
		_, err = tx.Exec(`
			INSERT INTO eliminations (tournament_id, player_id, place, hand, table_id)
			VALUES (?, ?, ?, ?, ?)
		`, rec.ID, e.PlayerID, e.Place, e.Hand, e.TableID)
		if err != nil {
			return fmt.Errorf("failed to insert elimination of player %d: %v", e.PlayerID, err)
		}
	}

	return tx.Commit()
}

// LoadTournament returns a stored tournament with its eliminations ordered
// by place.
func (db *DB) LoadTournament(id string) (*TournamentRecord, error) {
	rec := &TournamentRecord{ID: id}
	var cfg sql.NullString
	err := db.QueryRow(`
		SELECT total_players, hands_played, winner, truncated, config, finished_at
		FROM tournaments WHERE id = ?
	`, id).Scan(&rec.TotalPlayers, &rec.HandsPlayed, &rec.Winner, &rec.Truncated, &cfg, &rec.FinishedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("tournament not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load tournament: %v", err)
	}
	rec.Config = cfg.String

	rows, err := db.Query(`
		SELECT player_id, place, hand, table_id
		FROM eliminations WHERE tournament_id = ? ORDER BY place ASC
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load eliminations: %v", err)
	}
	defer rows.Close()
	for rows.Next() {
		var e Elimination
		if err := rows.Scan(&e.PlayerID, &e.Place, &e.Hand, &e.TableID); err != nil {
			return nil, err
		}
		rec.Eliminations = append(rec.Eliminations, e)
	}
	return rec, rows.Err()
}

// ListTournaments returns the most recent tournaments first, without their
// eliminations.
func (db *DB) ListTournaments(limit int) ([]*TournamentRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.Query(`
		SELECT id, total_players, hands_played, winner, truncated, finished_at
		FROM tournaments ORDER BY finished_at DESC, id ASC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list tournaments: %v", err)
	}
	defer rows.Close()

	var out []*TournamentRecord
	for rows.Next() {
		rec := &TournamentRecord{}
		if err := rows.Scan(&rec.ID, &rec.TotalPlayers, &rec.HandsPlayed, &rec.Winner, &rec.Truncated, &rec.FinishedAt); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.DB.Close()
}
