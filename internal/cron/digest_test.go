package cron

import (
	"strings"
	"testing"
	"time"

	"github.com/atelierforma/formabot/internal/store"
)

func TestBuildDigest_Empty(t *testing.T) {
	since := time.Date(2026, 8, 30, 8, 0, 0, 0, time.UTC)

	digest := BuildDigest(nil, since)

	if !strings.Contains(digest, "30/08/2026") {
		t.Errorf("digest missing the cutoff date: %q", digest)
	}
	if !strings.Contains(digest, ": 0") {
		t.Errorf("digest missing the zero count: %q", digest)
	}
	if !strings.Contains(digest, "Aucune nouvelle inscription") {
		t.Errorf("digest = %q", digest)
	}
}

func TestBuildDigest(t *testing.T) {
	since := time.Date(2026, 8, 30, 8, 0, 0, 0, time.UTC)
	regs := []store.Registration{
		{FirstName: "Marie", LastName: "Durand", CourseID: "python", Email: "marie@example.com"},
		{FirstName: "Paul", LastName: "Petit", CourseID: "aws", Email: "paul@example.com"},
		{FirstName: "Lina", LastName: "Moreau", CourseID: "python", Email: "lina@example.com"},
	}

	digest := BuildDigest(regs, since)

	if !strings.Contains(digest, ": 3") {
		t.Errorf("digest missing the count: %q", digest)
	}
	for _, want := range []string{"Marie Durand", "Paul Petit", "Lina Moreau"} {
		if !strings.Contains(digest, want) {
			t.Errorf("digest missing %q:\n%s", want, digest)
		}
	}
	if !strings.Contains(digest, "python ×2") || !strings.Contains(digest, "aws ×1") {
		t.Errorf("per-course summary wrong:\n%s", digest)
	}
	// Courses appear in first-registration order, every run.
	if strings.Index(digest, "python ×2") > strings.Index(digest, "aws ×1") {
		t.Errorf("per-course summary not in insertion order:\n%s", digest)
	}
}

func TestService_AddJobValidatesSchedule(t *testing.T) {
	s := NewService()

	if err := s.AddJob("bad", "not a cron expr", func() error { return nil }); err == nil {
		t.Error("invalid schedule should be rejected")
	}
	if err := s.AddJob("good", "0 0 8 * * *", func() error { return nil }); err != nil {
		t.Errorf("valid schedule rejected: %v", err)
	}
	jobs := s.Jobs()
	if len(jobs) != 1 || jobs[0] != "good" {
		t.Errorf("jobs = %v, want [good]", jobs)
	}
}
