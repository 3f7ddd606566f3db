package server

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/vctt94/pokertourney/pkg/server/internal/db"
)

// Database defines the interface for database operations
type Database interface {
	// SaveTournament stores a finished tournament with its eliminations.
	SaveTournament(rec *db.TournamentRecord) error
	// LoadTournament returns one stored tournament.
	LoadTournament(id string) (*db.TournamentRecord, error)
	// ListTournaments returns up to limit tournaments, newest first.
	ListTournaments(limit int) ([]*db.TournamentRecord, error)

	// Close closes the database connection
	Close() error
}

// NewDatabase creates a new database connection
func NewDatabase(dbPath string) (Database, error) {
	// Ensure the directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %v", err)
	}

	// Create the database
	return db.NewDB(dbPath)
}
