package store

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "formabot.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	if err := s.SeedDefault(); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return s
}

func TestStore_SeedDefault(t *testing.T) {
	s := newTestStore(t)

	count, err := s.CountCourses()
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count == 0 {
		t.Fatal("seeded catalog is empty")
	}

	// Seeding twice replaces, it must not duplicate.
	if err := s.SeedDefault(); err != nil {
		t.Fatalf("reseed: %v", err)
	}
	again, _ := s.CountCourses()
	if again != count {
		t.Errorf("count after reseed = %d, want %d", again, count)
	}
}

func TestStore_CourseByID(t *testing.T) {
	s := newTestStore(t)

	c, err := s.CourseByID("python")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Label == "" || c.Level == "" {
		t.Errorf("incomplete course: %+v", c)
	}
	if len(c.Modules) == 0 {
		t.Error("no modules loaded")
	}
	for i := 1; i < len(c.Modules); i++ {
		if c.Modules[i].Position < c.Modules[i-1].Position {
			t.Error("modules not ordered by position")
		}
	}
	if len(c.Instructors) == 0 {
		t.Error("no instructors loaded")
	}
	if len(c.Skills) == 0 {
		t.Error("no skills loaded")
	}
}

func TestStore_CourseByID_NotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.CourseByID("cobol")
	if !errors.Is(err, ErrCourseNotFound) {
		t.Errorf("err = %v, want ErrCourseNotFound", err)
	}
}

func TestStore_ListCourses(t *testing.T) {
	s := newTestStore(t)

	summaries, err := s.ListCourses()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(summaries) == 0 {
		t.Fatal("empty catalog")
	}
	// Insertion order is stable across calls.
	again, err := s.ListCourses()
	if err != nil {
		t.Fatal(err)
	}
	for i := range summaries {
		if summaries[i].ID != again[i].ID {
			t.Fatalf("catalog order changed between calls at %d", i)
		}
	}
}

func TestStore_AllCourses(t *testing.T) {
	s := newTestStore(t)

	courses, err := s.AllCourses()
	if err != nil {
		t.Fatalf("all courses: %v", err)
	}
	summaries, _ := s.ListCourses()
	if len(courses) != len(summaries) {
		t.Fatalf("AllCourses = %d, ListCourses = %d", len(courses), len(summaries))
	}
	for _, c := range courses {
		if len(c.Modules) == 0 && len(c.Skills) == 0 {
			t.Errorf("course %s has no details", c.ID)
		}
	}
}

func TestStore_CreateRegistration(t *testing.T) {
	s := newTestStore(t)

	reg, err := s.CreateRegistration(NewRegistration{
		CourseID:  "python",
		FirstName: "Marie",
		LastName:  "Durand",
		Email:     "marie@example.com",
		Phone:     "+33600000000",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if reg.ID == "" {
		t.Error("missing registration id")
	}
	if reg.CreatedAt.IsZero() {
		t.Error("missing created_at")
	}

	count, err := s.CountRegistrations()
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("registrations = %d, want 1", count)
	}
}

func TestStore_CreateRegistration_UnknownCourse(t *testing.T) {
	s := newTestStore(t)

	_, err := s.CreateRegistration(NewRegistration{
		CourseID:  "cobol",
		FirstName: "Marie",
		LastName:  "Durand",
		Email:     "marie@example.com",
	})
	if !errors.Is(err, ErrCourseNotFound) {
		t.Fatalf("err = %v, want ErrCourseNotFound", err)
	}

	// No partial write.
	count, _ := s.CountRegistrations()
	if count != 0 {
		t.Errorf("registrations = %d, want 0", count)
	}
}

func TestStore_RegistrationsSince(t *testing.T) {
	s := newTestStore(t)

	before := time.Now().Add(-time.Minute)
	for _, email := range []string{"a@example.com", "b@example.com"} {
		if _, err := s.CreateRegistration(NewRegistration{
			CourseID: "python", FirstName: "Test", LastName: "User", Email: email,
		}); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	regs, err := s.RegistrationsSince(before)
	if err != nil {
		t.Fatalf("since: %v", err)
	}
	if len(regs) != 2 {
		t.Fatalf("regs = %d, want 2", len(regs))
	}
	if !regs[0].CreatedAt.Before(regs[1].CreatedAt) && !regs[0].CreatedAt.Equal(regs[1].CreatedAt) {
		t.Error("registrations not ordered oldest first")
	}

	future, err := s.RegistrationsSince(time.Now().Add(time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if len(future) != 0 {
		t.Errorf("future cutoff returned %d rows", len(future))
	}
}

func TestStore_SeedFromFile(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "formabot.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer s.Close()

	path := filepath.Join(t.TempDir(), "catalog.json")
	writeFile(t, path, `[
		{
			"id": "go",
			"label": "Formation Go",
			"description": "Services backend en Go.",
			"level": "Niveau intermédiaire",
			"skills": ["Go", "Concurrence"],
			"modules": [{"title": "Goroutines", "description": "Concurrence de base.", "topics": ["channels"]}]
		}
	]`)

	if err := s.SeedFromFile(path); err != nil {
		t.Fatalf("seed from file: %v", err)
	}
	c, err := s.CourseByID("go")
	if err != nil {
		t.Fatalf("load seeded course: %v", err)
	}
	if len(c.Modules) != 1 || len(c.Modules[0].Topics) != 1 {
		t.Errorf("module topics not round-tripped: %+v", c.Modules)
	}
}
