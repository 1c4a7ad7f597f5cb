package database

import (
	"fmt"

	sqlite "github.com/glebarez/sqlite"
	"github.com/pericope-app/pericope/internal/auth"
	"github.com/pericope-app/pericope/internal/notes"
	"github.com/pericope-app/pericope/internal/study"
	"github.com/pericope-app/pericope/internal/theology"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// OpenSQLite establishes a SQLite connection and performs schema migrations.
func OpenSQLite(path string, logger *zap.Logger) (*gorm.DB, error) {
	if path == "" {
		return nil, fmt.Errorf("database path is required")
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.Exec("PRAGMA foreign_keys = ON;").Error; err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(
		&notes.Note{},
		&notes.Topic{},
		&notes.NoteTopic{},
		&notes.InlineTag{},
		&notes.Series{},
		&notes.SeriesItem{},
		&theology.Entry{},
		&theology.ScriptureRef{},
		&theology.Annotation{},
		&study.Session{},
		&auth.Session{},
		&migrationRecord{},
	); err != nil {
		return nil, err
	}

	if err := applyMigrations(db, logger); err != nil {
		return nil, err
	}

	if logger != nil {
		logger.Info("database initialized", zap.String("path", path))
	}

	return db, nil
}
