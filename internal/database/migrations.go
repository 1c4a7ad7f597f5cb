package database

import (
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	migrationCreateNoteSearch     = "2026-05-11_create_note_search_fts"
	migrationCreateTheologySearch = "2026-05-11_create_theology_search_fts"
)

type migrationRecord struct {
	Name             string `gorm:"column:name;primaryKey;size:190;not null"`
	AppliedAtSeconds int64  `gorm:"column:applied_at_s;not null"`
}

func (migrationRecord) TableName() string {
	return "db_migrations"
}

type migrationDefinition struct {
	name  string
	apply func(*gorm.DB) error
}

func applyMigrations(db *gorm.DB, logger *zap.Logger) error {
	migrations := []migrationDefinition{
		{name: migrationCreateNoteSearch, apply: createNoteSearch},
		{name: migrationCreateTheologySearch, apply: createTheologySearch},
	}

	for _, migration := range migrations {
		var record migrationRecord
		err := db.Where("name = ?", migration.name).Take(&record).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err := migration.apply(db); err != nil {
			return err
		}
		appliedAt := time.Now().UTC().Unix()
		if err := db.Create(&migrationRecord{Name: migration.name, AppliedAtSeconds: appliedAt}).Error; err != nil {
			return err
		}
		if logger != nil {
			logger.Info("database migration applied", zap.String("migration", migration.name))
		}
	}
	return nil
}

// createNoteSearch installs the FTS5 index over note titles and content,
// kept current by triggers so the application never touches the index.
func createNoteSearch(db *gorm.DB) error {
	statements := []string{
		`CREATE VIRTUAL TABLE IF NOT EXISTS note_search USING fts5(
			note_id UNINDEXED,
			title,
			content
		);`,
		`CREATE TRIGGER IF NOT EXISTS notes_search_insert AFTER INSERT ON notes BEGIN
			INSERT INTO note_search(note_id, title, content)
			VALUES (new.note_id, new.title, new.content);
		END;`,
		`CREATE TRIGGER IF NOT EXISTS notes_search_update AFTER UPDATE ON notes BEGIN
			DELETE FROM note_search WHERE note_id = old.note_id;
			INSERT INTO note_search(note_id, title, content)
			VALUES (new.note_id, new.title, new.content);
		END;`,
		`CREATE TRIGGER IF NOT EXISTS notes_search_delete AFTER DELETE ON notes BEGIN
			DELETE FROM note_search WHERE note_id = old.note_id;
		END;`,
		`INSERT INTO note_search(note_id, title, content)
			SELECT note_id, title, content FROM notes
			WHERE note_id NOT IN (SELECT note_id FROM note_search);`,
	}
	for _, statement := range statements {
		if err := db.Exec(statement).Error; err != nil {
			return err
		}
	}
	return nil
}

// createTheologySearch installs the FTS5 index over theology entries.
func createTheologySearch(db *gorm.DB) error {
	statements := []string{
		`CREATE VIRTUAL TABLE IF NOT EXISTS theology_search USING fts5(
			entry_id UNINDEXED,
			title,
			summary,
			body
		);`,
		`CREATE TRIGGER IF NOT EXISTS theology_search_insert AFTER INSERT ON theology_entries BEGIN
			INSERT INTO theology_search(entry_id, title, summary, body)
			VALUES (new.entry_id, new.title, new.summary, new.body);
		END;`,
		`CREATE TRIGGER IF NOT EXISTS theology_search_update AFTER UPDATE ON theology_entries BEGIN
			DELETE FROM theology_search WHERE entry_id = old.entry_id;
			INSERT INTO theology_search(entry_id, title, summary, body)
			VALUES (new.entry_id, new.title, new.summary, new.body);
		END;`,
		`CREATE TRIGGER IF NOT EXISTS theology_search_delete AFTER DELETE ON theology_entries BEGIN
			DELETE FROM theology_search WHERE entry_id = old.entry_id;
		END;`,
		`INSERT INTO theology_search(entry_id, title, summary, body)
			SELECT entry_id, title, summary, body FROM theology_entries
			WHERE entry_id NOT IN (SELECT entry_id FROM theology_search);`,
	}
	for _, statement := range statements {
		if err := db.Exec(statement).Error; err != nil {
			return err
		}
	}
	return nil
}
