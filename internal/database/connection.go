package database

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// Connect opens the database selected by DB_TYPE ("sqlite", the default, or
// "postgres" via DATABASE_URL) and initializes the schema.
func Connect() (*sqlx.DB, error) {
	dbType := os.Getenv("DB_TYPE")
	if dbType == "" {
		dbType = "sqlite"
	}

	var db *sqlx.DB
	var err error

	switch dbType {
	case "sqlite":
		dataDir := os.Getenv("DATA_DIR")
		if dataDir == "" {
			dataDir = "data"
		}
		if err := os.MkdirAll(dataDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %v", err)
		}
		dbPath := filepath.Join(dataDir, "lingobot.db")
		db, err = sqlx.Connect("sqlite3", dbPath)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to sqlite: %v", err)
		}
		if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
			return nil, fmt.Errorf("failed to enable foreign keys: %v", err)
		}
		// SQLite doesn't support multiple writers
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	case "postgres":
		dsn := os.Getenv("DATABASE_URL")
		if dsn == "" {
			return nil, fmt.Errorf("DATABASE_URL is required when DB_TYPE=postgres")
		}
		db, err = sqlx.Connect("postgres", dsn)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to postgres: %v", err)
		}
	default:
		return nil, fmt.Errorf("unsupported DB_TYPE %q", dbType)
	}

	if err := initializeSchema(db); err != nil {
		return nil, err
	}
	return db, nil
}

// initializeSchema creates necessary tables if they don't exist
func initializeSchema(db *sqlx.DB) error {
	serial := "INTEGER PRIMARY KEY AUTOINCREMENT"
	if db.DriverName() == "postgres" {
		serial = "BIGSERIAL PRIMARY KEY"
	}

	_, err := db.Exec(fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS learners (
			id %s,
			chat_id BIGINT UNIQUE NOT NULL,
			username TEXT DEFAULT '',
			first_name TEXT DEFAULT '',
			learning_path TEXT DEFAULT '',
			daily_target INTEGER DEFAULT 20,
			notification_hour INTEGER DEFAULT 9,
			notification_enabled BOOLEAN DEFAULT true,
			is_admin BOOLEAN DEFAULT false,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`, serial))
	if err != nil {
		return fmt.Errorf("failed to create learners table: %v", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS words (
			id TEXT PRIMARY KEY,
			learning_path TEXT NOT NULL,
			term TEXT NOT NULL,
			translation TEXT NOT NULL,
			example TEXT DEFAULT '',
			frequency_rank INTEGER DEFAULT 0,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(term, learning_path)
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create words table: %v", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS progress (
			word_id TEXT NOT NULL,
			learning_path TEXT NOT NULL,
			bucket_level INTEGER NOT NULL DEFAULT 0,
			last_reviewed TIMESTAMP,
			next_review TIMESTAMP NOT NULL,
			success_count INTEGER NOT NULL DEFAULT 0,
			failure_count INTEGER NOT NULL DEFAULT 0,
			consecutive_successes INTEGER NOT NULL DEFAULT 0,
			total_review_time_ms BIGINT NOT NULL DEFAULT 0,
			schema_version INTEGER NOT NULL DEFAULT 1,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (word_id, learning_path)
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create progress table: %v", err)
	}

	_, err = db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_progress_path_next_review
		ON progress (learning_path, next_review)
	`)
	if err != nil {
		return fmt.Errorf("failed to create progress index: %v", err)
	}

	return nil
}
