package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// ErrCourseNotFound is returned when a course id does not resolve.
var ErrCourseNotFound = errors.New("course not found")

// Store is the SQLite-backed course knowledge store. Reads are safe for
// concurrent use; writes are serialized through mu.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

func Open(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	s := &Store{db: db}
	if err := s.configure(); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) configure() error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	}
	for _, p := range pragmas {
		if _, err := s.db.Exec(p); err != nil {
			return fmt.Errorf("sqlite pragma %q: %w", p, err)
		}
	}
	return nil
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) initSchema() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS courses (
			id TEXT PRIMARY KEY,
			label TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			level TEXT NOT NULL DEFAULT '',
			duration TEXT NOT NULL DEFAULT '',
			format TEXT NOT NULL DEFAULT '',
			price TEXT NOT NULL DEFAULT '',
			enrollment_count INTEGER NOT NULL DEFAULT 0,
			rating REAL NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS modules (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			course_id TEXT NOT NULL REFERENCES courses(id) ON DELETE CASCADE,
			position INTEGER NOT NULL DEFAULT 0,
			title TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			topics TEXT NOT NULL DEFAULT '[]'
		)`,
		`CREATE INDEX IF NOT EXISTS idx_modules_course ON modules(course_id, position)`,
		`CREATE TABLE IF NOT EXISTS instructors (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			course_id TEXT NOT NULL REFERENCES courses(id) ON DELETE CASCADE,
			name TEXT NOT NULL,
			title TEXT NOT NULL DEFAULT '',
			bio TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS skills (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			course_id TEXT NOT NULL REFERENCES courses(id) ON DELETE CASCADE,
			name TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_skills_course ON skills(course_id)`,
		`CREATE TABLE IF NOT EXISTS certifications (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			course_id TEXT NOT NULL REFERENCES courses(id) ON DELETE CASCADE,
			name TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS testimonials (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			course_id TEXT NOT NULL REFERENCES courses(id) ON DELETE CASCADE,
			author TEXT NOT NULL,
			role TEXT NOT NULL DEFAULT '',
			quote TEXT NOT NULL,
			rating REAL NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS registrations (
			id TEXT PRIMARY KEY,
			course_id TEXT NOT NULL REFERENCES courses(id),
			first_name TEXT NOT NULL,
			last_name TEXT NOT NULL,
			email TEXT NOT NULL,
			phone TEXT NOT NULL DEFAULT '',
			whatsapp TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL DEFAULT (datetime('now'))
		)`,
		`CREATE INDEX IF NOT EXISTS idx_registrations_created ON registrations(created_at)`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

// CourseByID loads a course with all of its details. Returns
// ErrCourseNotFound when the id does not exist.
func (s *Store) CourseByID(id string) (*Course, error) {
	c := &Course{}
	err := s.db.QueryRow(`
		SELECT id, label, description, level, duration, format, price, enrollment_count, rating
		FROM courses WHERE id = ?
	`, id).Scan(&c.ID, &c.Label, &c.Description, &c.Level, &c.Duration, &c.Format, &c.Price, &c.EnrollmentCount, &c.Rating)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrCourseNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("load course %s: %w", id, err)
	}
	if err := s.loadDetails(c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Store) loadDetails(c *Course) error {
	rows, err := s.db.Query(`
		SELECT position, title, description, topics FROM modules
		WHERE course_id = ? ORDER BY position ASC
	`, c.ID)
	if err != nil {
		return fmt.Errorf("load modules: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var m Module
		var topics string
		if err := rows.Scan(&m.Position, &m.Title, &m.Description, &topics); err != nil {
			return fmt.Errorf("scan module: %w", err)
		}
		if err := json.Unmarshal([]byte(topics), &m.Topics); err != nil {
			m.Topics = nil
		}
		c.Modules = append(c.Modules, m)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate modules: %w", err)
	}

	irows, err := s.db.Query(`SELECT name, title, bio FROM instructors WHERE course_id = ? ORDER BY id`, c.ID)
	if err != nil {
		return fmt.Errorf("load instructors: %w", err)
	}
	defer irows.Close()
	for irows.Next() {
		var in Instructor
		if err := irows.Scan(&in.Name, &in.Title, &in.Bio); err != nil {
			return fmt.Errorf("scan instructor: %w", err)
		}
		c.Instructors = append(c.Instructors, in)
	}
	if err := irows.Err(); err != nil {
		return fmt.Errorf("iterate instructors: %w", err)
	}

	c.Skills, err = s.loadNames(`SELECT name FROM skills WHERE course_id = ? ORDER BY id`, c.ID)
	if err != nil {
		return fmt.Errorf("load skills: %w", err)
	}
	c.Certifications, err = s.loadNames(`SELECT name FROM certifications WHERE course_id = ? ORDER BY id`, c.ID)
	if err != nil {
		return fmt.Errorf("load certifications: %w", err)
	}

	trows, err := s.db.Query(`SELECT author, role, quote, rating FROM testimonials WHERE course_id = ? ORDER BY id`, c.ID)
	if err != nil {
		return fmt.Errorf("load testimonials: %w", err)
	}
	defer trows.Close()
	for trows.Next() {
		var tm Testimonial
		if err := trows.Scan(&tm.Author, &tm.Role, &tm.Quote, &tm.Rating); err != nil {
			return fmt.Errorf("scan testimonial: %w", err)
		}
		c.Testimonials = append(c.Testimonials, tm)
	}
	return trows.Err()
}

func (s *Store) loadNames(query, courseID string) ([]string, error) {
	rows, err := s.db.Query(query, courseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// ListCourses returns summaries for the whole catalog, in insertion order.
func (s *Store) ListCourses() ([]CourseSummary, error) {
	rows, err := s.db.Query(`
		SELECT id, label, description, level, duration, enrollment_count, rating
		FROM courses ORDER BY rowid ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	defer rows.Close()

	var out []CourseSummary
	for rows.Next() {
		var cs CourseSummary
		if err := rows.Scan(&cs.ID, &cs.Label, &cs.Description, &cs.Level, &cs.Duration, &cs.EnrollmentCount, &cs.Rating); err != nil {
			return nil, fmt.Errorf("scan course summary: %w", err)
		}
		out = append(out, cs)
	}
	return out, rows.Err()
}

// AllCourses loads every course with full details, in insertion order.
// The search tool scans these in memory; the catalog is small.
func (s *Store) AllCourses() ([]Course, error) {
	summaries, err := s.ListCourses()
	if err != nil {
		return nil, err
	}
	out := make([]Course, 0, len(summaries))
	for _, cs := range summaries {
		c, err := s.CourseByID(cs.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, nil
}

// CreateRegistration validates the course id and inserts exactly one row.
// On any failure no record is created.
func (s *Store) CreateRegistration(reg NewRegistration) (*Registration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin registration: %w", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRow(`SELECT COUNT(1) FROM courses WHERE id = ?`, reg.CourseID).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("check course: %w", err)
	}
	if exists == 0 {
		return nil, fmt.Errorf("%w: %s", ErrCourseNotFound, reg.CourseID)
	}

	r := &Registration{
		ID:        uuid.NewString(),
		CourseID:  reg.CourseID,
		FirstName: reg.FirstName,
		LastName:  reg.LastName,
		Email:     reg.Email,
		Phone:     reg.Phone,
		WhatsApp:  reg.WhatsApp,
		CreatedAt: time.Now().UTC(),
	}
	_, err = tx.Exec(`
		INSERT INTO registrations (id, course_id, first_name, last_name, email, phone, whatsapp, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, r.ID, r.CourseID, r.FirstName, r.LastName, r.Email, r.Phone, r.WhatsApp, r.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("insert registration: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit registration: %w", err)
	}
	return r, nil
}

// RegistrationsSince returns registrations created at or after the cutoff,
// oldest first. Used by the daily digest job.
func (s *Store) RegistrationsSince(cutoff time.Time) ([]Registration, error) {
	rows, err := s.db.Query(`
		SELECT id, course_id, first_name, last_name, email, phone, whatsapp, created_at
		FROM registrations WHERE created_at >= ? ORDER BY created_at ASC
	`, cutoff.UTC().Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	defer rows.Close()

	var out []Registration
	for rows.Next() {
		var r Registration
		var created string
		if err := rows.Scan(&r.ID, &r.CourseID, &r.FirstName, &r.LastName, &r.Email, &r.Phone, &r.WhatsApp, &created); err != nil {
			return nil, fmt.Errorf("scan registration: %w", err)
		}
		if t, err := time.Parse(time.RFC3339, created); err == nil {
			r.CreatedAt = t
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// CountCourses reports the catalog size; used by status and to decide
// whether the seed catalog should be loaded.
func (s *Store) CountCourses() (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(1) FROM courses`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count courses: %w", err)
	}
	return n, nil
}

func (s *Store) CountRegistrations() (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(1) FROM registrations`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count registrations: %w", err)
	}
	return n, nil
}
