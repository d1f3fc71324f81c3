package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Store is the SQLite-backed content, performance, doubt and user repository.
// Every read decodes fresh values, so callers never share state with the store.
type Store struct {
	db      *sql.DB
	latency time.Duration
	now     func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithLatency delays every read accessor by d, mimicking a remote backend.
func WithLatency(d time.Duration) Option {
	return func(s *Store) { s.latency = d }
}

// WithClock overrides the clock used for session expiry and recorded timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func New(dbPath string, opts ...Option) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// A single connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &Store{db: db, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks that the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// pause applies the simulated read latency.
func (s *Store) pause(ctx context.Context) error {
	if s.latency <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(s.latency)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL,
		role TEXT NOT NULL,
		profile_picture TEXT NOT NULL DEFAULT '',
		parent_name TEXT NOT NULL DEFAULT '',
		parent_phone TEXT NOT NULL DEFAULT '',
		teacher_notes TEXT NOT NULL DEFAULT '',
		class INTEGER NOT NULL DEFAULT 0,
		subject_en TEXT NOT NULL DEFAULT '',
		subject_pa TEXT NOT NULL DEFAULT ''
	);
	CREATE INDEX IF NOT EXISTS idx_users_email ON users(email COLLATE NOCASE);

	CREATE TABLE IF NOT EXISTS quizzes (
		id TEXT PRIMARY KEY,
		title_en TEXT NOT NULL,
		title_pa TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS questions (
		id TEXT PRIMARY KEY,
		quiz_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		text_en TEXT NOT NULL,
		text_pa TEXT NOT NULL,
		type TEXT NOT NULL,
		options TEXT NOT NULL DEFAULT '[]',
		punjabi_options TEXT NOT NULL DEFAULT '[]',
		correct_answer TEXT NOT NULL,
		FOREIGN KEY (quiz_id) REFERENCES quizzes(id)
	);

	CREATE TABLE IF NOT EXISTS subjects (
		id TEXT PRIMARY KEY,
		position INTEGER NOT NULL,
		name_en TEXT NOT NULL,
		name_pa TEXT NOT NULL,
		stream TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS chapters (
		id TEXT PRIMARY KEY,
		subject_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		title_en TEXT NOT NULL,
		title_pa TEXT NOT NULL,
		video_url TEXT NOT NULL DEFAULT '',
		pdf_url TEXT NOT NULL DEFAULT '',
		quiz_id TEXT NOT NULL,
		completed INTEGER NOT NULL DEFAULT 0,
		FOREIGN KEY (subject_id) REFERENCES subjects(id),
		FOREIGN KEY (quiz_id) REFERENCES quizzes(id)
	);

	CREATE TABLE IF NOT EXISTS contests (
		id TEXT PRIMARY KEY,
		position INTEGER NOT NULL,
		subject TEXT NOT NULL,
		title TEXT NOT NULL,
		quiz_id TEXT NOT NULL,
		duration_minutes INTEGER NOT NULL,
		FOREIGN KEY (quiz_id) REFERENCES quizzes(id)
	);

	CREATE TABLE IF NOT EXISTS contest_scores (
		contest_id TEXT NOT NULL,
		student_id TEXT NOT NULL,
		score INTEGER NOT NULL,
		PRIMARY KEY (contest_id, student_id),
		FOREIGN KEY (contest_id) REFERENCES contests(id)
	);

	CREATE TABLE IF NOT EXISTS quiz_scores (
		student_id TEXT NOT NULL,
		quiz_id TEXT NOT NULL,
		score INTEGER NOT NULL,
		recorded_at DATETIME NOT NULL,
		PRIMARY KEY (student_id, quiz_id)
	);

	CREATE TABLE IF NOT EXISTS video_views (
		student_id TEXT NOT NULL,
		video_key TEXT NOT NULL,
		PRIMARY KEY (student_id, video_key)
	);

	CREATE TABLE IF NOT EXISTS weak_areas (
		student_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		area TEXT NOT NULL,
		PRIMARY KEY (student_id, area)
	);

	CREATE TABLE IF NOT EXISTS doubts (
		id TEXT PRIMARY KEY,
		student_id TEXT NOT NULL,
		subject_en TEXT NOT NULL,
		subject_pa TEXT NOT NULL,
		chapter_en TEXT NOT NULL,
		chapter_pa TEXT NOT NULL,
		question_en TEXT NOT NULL,
		question_pa TEXT NOT NULL,
		is_resolved INTEGER NOT NULL DEFAULT 0,
		answer_en TEXT NOT NULL DEFAULT '',
		answer_pa TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS resources (
		id TEXT PRIMARY KEY,
		position INTEGER NOT NULL,
		title TEXT NOT NULL,
		type TEXT NOT NULL,
		url TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS faqs (
		id TEXT PRIMARY KEY,
		position INTEGER NOT NULL,
		question TEXT NOT NULL,
		answer TEXT NOT NULL,
		roles TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS attendance (
		student_id TEXT NOT NULL,
		date TEXT NOT NULL,
		status TEXT NOT NULL,
		PRIMARY KEY (student_id, date)
	);

	CREATE TABLE IF NOT EXISTS textbooks (
		id TEXT PRIMARY KEY,
		position INTEGER NOT NULL,
		class INTEGER NOT NULL,
		subject_en TEXT NOT NULL,
		subject_pa TEXT NOT NULL,
		stream TEXT NOT NULL,
		url TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS career_paths (
		id TEXT PRIMARY KEY,
		position INTEGER NOT NULL,
		name_en TEXT NOT NULL,
		name_pa TEXT NOT NULL,
		description_en TEXT NOT NULL DEFAULT '',
		description_pa TEXT NOT NULL DEFAULT '',
		parent_info_en TEXT NOT NULL DEFAULT '',
		parent_info_pa TEXT NOT NULL DEFAULT '',
		roadmap TEXT NOT NULL DEFAULT '[]',
		resources TEXT NOT NULL DEFAULT '[]',
		tasks TEXT NOT NULL DEFAULT '[]'
	);

	CREATE TABLE IF NOT EXISTS motivational_stories (
		id TEXT PRIMARY KEY,
		position INTEGER NOT NULL,
		name_en TEXT NOT NULL,
		name_pa TEXT NOT NULL,
		image_url TEXT NOT NULL DEFAULT '',
		story_en TEXT NOT NULL,
		story_pa TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS auth_sessions (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		role TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		expires_at DATETIME NOT NULL,
		FOREIGN KEY (user_id) REFERENCES users(id)
	);

	CREATE TABLE IF NOT EXISTS imported_files (
		path TEXT PRIMARY KEY,
		sha256 TEXT NOT NULL,
		imported_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS portal_metadata (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}
	// Databases created before careers carried roadmaps lack these columns.
	for _, col := range []string{"roadmap", "resources", "tasks"} {
		if err := s.ensureColumn("career_paths", col, `TEXT NOT NULL DEFAULT '[]'`); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) ensureColumn(table, column, decl string) error {
	rows, err := s.db.Query(`SELECT name FROM pragma_table_info(?)`, table)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return err
		}
		if name == column {
			return nil
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}
	rows.Close()
	_, err = s.db.Exec(fmt.Sprintf(`ALTER TABLE %s ADD COLUMN %s %s`, table, column, decl))
	return err
}
