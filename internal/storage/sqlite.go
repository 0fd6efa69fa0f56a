package storage

import (
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/clipquery/clipquery/internal/video"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store wraps a SQLite database with methods for videos, transcript segments,
// and chapters.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) a SQLite database in dataDir and runs pending migrations.
// Pass ":memory:" as dataDir for an in-memory database (used by tests).
func Open(dataDir string) (*Store, error) {
	var dsn string
	if dataDir == ":memory:" {
		dsn = ":memory:"
	} else {
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		dsn = filepath.Join(dataDir, "clipquery.db")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	// Limit to single connection to avoid "database is locked" errors.
	db.SetMaxOpenConns(1)

	// Set busy timeout so concurrent access waits briefly instead of failing immediately.
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting journal mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate reads embedded SQL migration files and applies any that haven't been run yet.
func (s *Store) migrate() error {
	// Ensure schema_version table exists (bootstrap).
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	// Sort by filename to guarantee ascending order.
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		version, err := parseMigrationVersion(entry.Name())
		if err != nil {
			return err
		}

		// Check if already applied.
		var exists int
		if err := s.db.QueryRow("SELECT COUNT(*) FROM schema_version WHERE version = ?", version).Scan(&exists); err != nil {
			return fmt.Errorf("checking migration %d: %w", version, err)
		}
		if exists > 0 {
			continue
		}

		content, err := migrationsFS.ReadFile("migrations/" + entry.Name())
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", entry.Name(), err)
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("beginning transaction for migration %d: %w", version, err)
		}

		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback()
			return fmt.Errorf("applying migration %d: %w", version, err)
		}

		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", version); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording migration %d: %w", version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %d: %w", version, err)
		}
	}

	return nil
}

func parseMigrationVersion(filename string) (int, error) {
	var version int
	if _, err := fmt.Sscanf(filename, "%d_", &version); err != nil {
		return 0, fmt.Errorf("parsing migration version from %q: %w", filename, err)
	}
	return version, nil
}

// --- Videos ---

// SaveVideo persists a processed video together with its transcript segments,
// replacing any previous record for the same ID.
func (s *Store) SaveVideo(rec VideoRecord, segments []video.Segment) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning save transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM videos WHERE id = ?`, rec.ID); err != nil {
		return fmt.Errorf("removing previous record: %w", err)
	}

	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	if _, err := tx.Exec(`
		INSERT INTO videos (id, title, duration, method, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		rec.ID, rec.Title, rec.Duration, rec.Method, createdAt.UTC().Format(time.RFC3339),
	); err != nil {
		return fmt.Errorf("inserting video: %w", err)
	}

	for i, seg := range segments {
		if _, err := tx.Exec(`
			INSERT INTO segments (video_id, seq, start_sec, end_sec, text)
			VALUES (?, ?, ?, ?, ?)`,
			rec.ID, i, seg.Start, seg.End, seg.Text,
		); err != nil {
			return fmt.Errorf("inserting segment %d: %w", i, err)
		}
	}

	return tx.Commit()
}

// GetVideo returns the record for the given video ID.
func (s *Store) GetVideo(id string) (VideoRecord, error) {
	var rec VideoRecord
	var createdAt string
	err := s.db.QueryRow(`
		SELECT id, title, duration, method, created_at
		FROM videos WHERE id = ?`, id,
	).Scan(&rec.ID, &rec.Title, &rec.Duration, &rec.Method, &createdAt)
	if err == sql.ErrNoRows {
		return VideoRecord{}, ErrNotFound
	}
	if err != nil {
		return VideoRecord{}, err
	}
	t, err := time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return VideoRecord{}, fmt.Errorf("parsing created_at: %w", err)
	}
	rec.CreatedAt = t
	return rec, nil
}

// GetSegments returns the transcript segments for the given video ID in order.
func (s *Store) GetSegments(id string) ([]video.Segment, error) {
	rows, err := s.db.Query(`
		SELECT start_sec, end_sec, text FROM segments
		WHERE video_id = ? ORDER BY seq ASC`, id,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var segs []video.Segment
	for rows.Next() {
		var seg video.Segment
		if err := rows.Scan(&seg.Start, &seg.End, &seg.Text); err != nil {
			return nil, err
		}
		segs = append(segs, seg)
	}
	return segs, rows.Err()
}

// ListVideos returns all stored video records, newest first.
func (s *Store) ListVideos() ([]VideoRecord, error) {
	rows, err := s.db.Query(`
		SELECT id, title, duration, method, created_at
		FROM videos ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []VideoRecord
	for rows.Next() {
		var rec VideoRecord
		var createdAt string
		if err := rows.Scan(&rec.ID, &rec.Title, &rec.Duration, &rec.Method, &createdAt); err != nil {
			return nil, err
		}
		t, err := time.Parse(time.RFC3339, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		rec.CreatedAt = t
		results = append(results, rec)
	}
	return results, rows.Err()
}

// DeleteVideo removes a video record and its segments and chapters.
func (s *Store) DeleteVideo(id string) error {
	res, err := s.db.Exec(`DELETE FROM videos WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteAllVideos removes every stored record. Used when clearing the cache.
func (s *Store) DeleteAllVideos() error {
	_, err := s.db.Exec(`DELETE FROM videos`)
	return err
}

// --- Chapters ---

// SaveChapters replaces the stored chapters for the given video ID.
func (s *Store) SaveChapters(id string, chapters []video.Chapter) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning chapters transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM chapters WHERE video_id = ?`, id); err != nil {
		return fmt.Errorf("removing previous chapters: %w", err)
	}

	for i, ch := range chapters {
		if _, err := tx.Exec(`
			INSERT INTO chapters (video_id, seq, seconds, title)
			VALUES (?, ?, ?, ?)`,
			id, i, ch.Seconds, ch.Title,
		); err != nil {
			return fmt.Errorf("inserting chapter %d: %w", i, err)
		}
	}

	return tx.Commit()
}

// GetChapters returns the stored chapters for the given video ID in order.
// ErrNotFound is returned when no chapters were ever stored for the video.
func (s *Store) GetChapters(id string) ([]video.Chapter, error) {
	rows, err := s.db.Query(`
		SELECT seconds, title FROM chapters
		WHERE video_id = ? ORDER BY seq ASC`, id,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chapters []video.Chapter
	for rows.Next() {
		var ch video.Chapter
		if err := rows.Scan(&ch.Seconds, &ch.Title); err != nil {
			return nil, err
		}
		chapters = append(chapters, ch)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(chapters) == 0 {
		return nil, ErrNotFound
	}
	return chapters, nil
}
