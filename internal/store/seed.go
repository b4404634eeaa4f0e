package store

import (
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"os"
)

//go:embed seed/catalog.json
var seedFS embed.FS

type seedCourse struct {
	ID              string          `json:"id"`
	Label           string          `json:"label"`
	Description     string          `json:"description"`
	Level           string          `json:"level"`
	Duration        string          `json:"duration"`
	Format          string          `json:"format"`
	Price           string          `json:"price"`
	EnrollmentCount int             `json:"enrollmentCount"`
	Rating          float64         `json:"rating"`
	Modules         []seedModule    `json:"modules"`
	Instructors     []seedPerson    `json:"instructors"`
	Skills          []string        `json:"skills"`
	Certifications  []string        `json:"certifications"`
	Testimonials    []seedQuote     `json:"testimonials"`
}

type seedModule struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Topics      []string `json:"topics"`
}

type seedPerson struct {
	Name  string `json:"name"`
	Title string `json:"title"`
	Bio   string `json:"bio"`
}

type seedQuote struct {
	Author string  `json:"author"`
	Role   string  `json:"role"`
	Quote  string  `json:"quote"`
	Rating float64 `json:"rating"`
}

// SeedFromFile loads a catalog JSON file and replaces the course tables.
func (s *Store) SeedFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read seed file: %w", err)
	}
	return s.seed(data)
}

// SeedDefault loads the embedded catalog. Called on first start when the
// database is empty and no seed file is configured.
func (s *Store) SeedDefault() error {
	data, err := seedFS.ReadFile("seed/catalog.json")
	if err != nil {
		return fmt.Errorf("read embedded catalog: %w", err)
	}
	return s.seed(data)
}

func (s *Store) seed(data []byte) error {
	var courses []seedCourse
	if err := json.Unmarshal(data, &courses); err != nil {
		return fmt.Errorf("parse catalog: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin seed: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"testimonials", "certifications", "skills", "instructors", "modules", "courses"} {
		if _, err := tx.Exec("DELETE FROM " + table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	for _, c := range courses {
		if err := insertCourse(tx, c); err != nil {
			return fmt.Errorf("seed course %s: %w", c.ID, err)
		}
	}
	return tx.Commit()
}

func insertCourse(tx *sql.Tx, c seedCourse) error {
	_, err := tx.Exec(`
		INSERT INTO courses (id, label, description, level, duration, format, price, enrollment_count, rating)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, c.ID, c.Label, c.Description, c.Level, c.Duration, c.Format, c.Price, c.EnrollmentCount, c.Rating)
	if err != nil {
		return err
	}

	for i, m := range c.Modules {
		topics, err := json.Marshal(m.Topics)
		if err != nil {
			topics = []byte("[]")
		}
		if _, err := tx.Exec(`
			INSERT INTO modules (course_id, position, title, description, topics) VALUES (?, ?, ?, ?, ?)
		`, c.ID, i+1, m.Title, m.Description, string(topics)); err != nil {
			return err
		}
	}
	for _, in := range c.Instructors {
		if _, err := tx.Exec(`
			INSERT INTO instructors (course_id, name, title, bio) VALUES (?, ?, ?, ?)
		`, c.ID, in.Name, in.Title, in.Bio); err != nil {
			return err
		}
	}
	for _, sk := range c.Skills {
		if _, err := tx.Exec(`INSERT INTO skills (course_id, name) VALUES (?, ?)`, c.ID, sk); err != nil {
			return err
		}
	}
	for _, cert := range c.Certifications {
		if _, err := tx.Exec(`INSERT INTO certifications (course_id, name) VALUES (?, ?)`, c.ID, cert); err != nil {
			return err
		}
	}
	for _, tm := range c.Testimonials {
		if _, err := tx.Exec(`
			INSERT INTO testimonials (course_id, author, role, quote, rating) VALUES (?, ?, ?, ?, ?)
		`, c.ID, tm.Author, tm.Role, tm.Quote, tm.Rating); err != nil {
			return err
		}
	}
	return nil
}
