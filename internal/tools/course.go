package tools

import (
	"fmt"
	"strings"

	"github.com/atelierforma/formabot/internal/store"
)

// Tool names exposed to the intent router.
const (
	ToolGetCourseInfo      = "get_course_info"
	ToolGetAllCourses      = "get_all_courses"
	ToolSearchCourses      = "search_courses"
	ToolCheckPrerequisites = "check_prerequisites"
	ToolCreateRegistration = "create_registration"
)

// CourseStore is the read/write contract the course tools consume. The
// SQLite store satisfies it; tests inject fakes.
type CourseStore interface {
	CourseByID(id string) (*store.Course, error)
	ListCourses() ([]store.CourseSummary, error)
	AllCourses() ([]store.Course, error)
	CreateRegistration(reg store.NewRegistration) (*store.Registration, error)
}

// SearchMatch pairs a course with its relevance score. The tool returns
// matches in catalog order; ranking is the caller's concern.
type SearchMatch struct {
	Course store.Course
	Score  int
}

type SearchResult struct {
	Query   string
	Matches []SearchMatch
}

type CatalogResult struct {
	Courses []store.CourseSummary
}

// RegistrationOutcome is the result of create_registration. A failed
// attempt is reported as an unsuccessful outcome, not a handler error,
// so the composer can phrase a retry message.
type RegistrationOutcome struct {
	Success        bool
	RegistrationID string
	CourseLabel    string
	FailureReason  string
}

// Toolset bundles the course tools with their tuning knobs.
type Toolset struct {
	store   CourseStore
	weights ScoringWeights
	conf    PrereqConfidence
}

func NewToolset(cs CourseStore) *Toolset {
	return &Toolset{
		store:   cs,
		weights: DefaultScoringWeights(),
		conf:    DefaultPrereqConfidence(),
	}
}

func (ts *Toolset) SetScoringWeights(w ScoringWeights) { ts.weights = w }

func (ts *Toolset) SetPrereqConfidence(c PrereqConfidence) { ts.conf = c }

// RegisterAll adds the five course tools to the registry.
func (ts *Toolset) RegisterAll(r *Registry) error {
	all := []*Tool{
		{
			Name:        ToolGetCourseInfo,
			Description: "Retourne la fiche complète d'une formation (programme, formateurs, compétences, certifications, témoignages).",
			Params: Schema{
				"courseId": {Type: "string", Required: true, Description: "Identifiant de la formation"},
			},
			Handler: ts.getCourseInfo,
		},
		{
			Name:        ToolGetAllCourses,
			Description: "Liste toutes les formations du catalogue.",
			Params:      Schema{},
			Handler:     ts.getAllCourses,
		},
		{
			Name:        ToolSearchCourses,
			Description: "Recherche des formations par mot-clé dans le libellé, la description, les compétences et les modules.",
			Params: Schema{
				"query": {Type: "string", Required: true, Description: "Mot-clé de recherche"},
			},
			Handler: ts.searchCourses,
		},
		{
			Name:        ToolCheckPrerequisites,
			Description: "Évalue l'adéquation entre le profil d'un prospect et une formation.",
			Params: Schema{
				"courseId":       {Type: "string", Required: true, Description: "Identifiant de la formation"},
				"userSkills":     {Type: "array", Required: false, Description: "Compétences déclarées"},
				"userExperience": {Type: "string", Required: false, Description: "Description libre de l'expérience"},
			},
			Handler: ts.checkPrerequisites,
		},
		{
			Name:        ToolCreateRegistration,
			Description: "Enregistre une demande d'inscription à une formation.",
			Params: Schema{
				"courseId":  {Type: "string", Required: true, Description: "Identifiant de la formation"},
				"firstName": {Type: "string", Required: true, Description: "Prénom"},
				"lastName":  {Type: "string", Required: true, Description: "Nom"},
				"email":     {Type: "string", Required: true, Description: "Adresse e-mail"},
				"phone":     {Type: "string", Required: false, Description: "Téléphone"},
				"whatsapp":  {Type: "string", Required: false, Description: "Numéro WhatsApp"},
			},
			Handler: ts.createRegistration,
		},
	}
	for _, t := range all {
		if err := r.Register(t); err != nil {
			return err
		}
	}
	return nil
}

func (ts *Toolset) getCourseInfo(params Params) (any, error) {
	course, err := ts.store.CourseByID(params.String("courseId"))
	if err != nil {
		return nil, err
	}
	return course, nil
}

func (ts *Toolset) getAllCourses(Params) (any, error) {
	courses, err := ts.store.ListCourses()
	if err != nil {
		return nil, err
	}
	return &CatalogResult{Courses: courses}, nil
}

func (ts *Toolset) searchCourses(params Params) (any, error) {
	query := params.String("query")
	courses, err := ts.store.AllCourses()
	if err != nil {
		return nil, err
	}

	result := &SearchResult{Query: query}
	for i := range courses {
		score := ts.weights.Score(&courses[i], query)
		if score > 0 {
			result.Matches = append(result.Matches, SearchMatch{Course: courses[i], Score: score})
		}
	}
	return result, nil
}

func (ts *Toolset) checkPrerequisites(params Params) (any, error) {
	course, err := ts.store.CourseByID(params.String("courseId"))
	if err != nil {
		return nil, err
	}
	assessment := assessPrerequisites(course, params.Strings("userSkills"), params.String("userExperience"), ts.conf)
	return &assessment, nil
}

func (ts *Toolset) createRegistration(params Params) (any, error) {
	email := strings.TrimSpace(params.String("email"))
	if !strings.Contains(email, "@") {
		return nil, fmt.Errorf("invalid email address %q", email)
	}

	reg, err := ts.store.CreateRegistration(store.NewRegistration{
		CourseID:  params.String("courseId"),
		FirstName: strings.TrimSpace(params.String("firstName")),
		LastName:  strings.TrimSpace(params.String("lastName")),
		Email:     email,
		Phone:     strings.TrimSpace(params.String("phone")),
		WhatsApp:  strings.TrimSpace(params.String("whatsapp")),
	})
	if err != nil {
		// The store creates nothing on failure; report an unsuccessful
		// outcome the composer can phrase for the visitor.
		return &RegistrationOutcome{Success: false, FailureReason: err.Error()}, nil
	}

	outcome := &RegistrationOutcome{Success: true, RegistrationID: reg.ID}
	if course, err := ts.store.CourseByID(reg.CourseID); err == nil {
		outcome.CourseLabel = course.Label
	}
	return outcome, nil
}
