package store

import "time"

// Course is a full course record with every related detail loaded.
type Course struct {
	ID              string
	Label           string
	Description     string
	Level           string
	Duration        string
	Format          string
	Price           string
	EnrollmentCount int
	Rating          float64
	Modules         []Module
	Instructors     []Instructor
	Skills          []string
	Certifications  []string
	Testimonials    []Testimonial
}

type Module struct {
	Position    int
	Title       string
	Description string
	Topics      []string
}

type Instructor struct {
	Name  string
	Title string
	Bio   string
}

type Testimonial struct {
	Author string
	Role   string
	Quote  string
	Rating float64
}

// CourseSummary is the lightweight shape returned by catalog listings.
type CourseSummary struct {
	ID              string
	Label           string
	Description     string
	Level           string
	Duration        string
	EnrollmentCount int
	Rating          float64
}

type Registration struct {
	ID        string
	CourseID  string
	FirstName string
	LastName  string
	Email     string
	Phone     string
	WhatsApp  string
	CreatedAt time.Time
}

// NewRegistration carries the fields a caller provides; ID and CreatedAt
// are assigned by the store.
type NewRegistration struct {
	CourseID  string
	FirstName string
	LastName  string
	Email     string
	Phone     string
	WhatsApp  string
}
