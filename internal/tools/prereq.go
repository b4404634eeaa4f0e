package tools

import (
	"strings"

	"github.com/atelierforma/formabot/internal/store"
)

const (
	RecommendationExcellentFit = "excellent_fit"
	RecommendationSuitable     = "suitable"
	RecommendationChallenging  = "challenging"
)

// PrereqConfidence holds the base confidence per recommendation and the
// bonus applied when a declared skill overlaps the course skills. Like the
// search weights these are tuned values, not invariants.
type PrereqConfidence struct {
	Suitable     float64
	ExcellentFit float64
	Challenging  float64
	OverlapBonus float64
}

func DefaultPrereqConfidence() PrereqConfidence {
	return PrereqConfidence{
		Suitable:     0.8,
		ExcellentFit: 0.95,
		Challenging:  0.6,
		OverlapBonus: 0.1,
	}
}

// PrereqAssessment is the result of check_prerequisites.
type PrereqAssessment struct {
	CourseID       string
	CourseLabel    string
	Recommendation string
	Confidence     float64
	Notes          []string
	Preparation    []string
}

// experienceMarkers are phrases a prospect uses when describing prior
// practice in free text.
var experienceMarkers = []string{
	"expérience",
	"experience",
	"déjà",
	"maîtrise",
	"maitrise",
	"pratiqué",
	"pratique",
	"travaillé",
	"travaille",
	"utilisé",
	"utilise",
	"connais",
	"ans de",
}

func hasExperienceLanguage(text string) bool {
	lower := strings.ToLower(text)
	for _, marker := range experienceMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

func isIntroductoryLevel(level string) bool {
	lower := strings.ToLower(level)
	return strings.Contains(lower, "débutant") || strings.Contains(lower, "debutant") || strings.Contains(lower, "introduct")
}

func isAdvancedLevel(level string) bool {
	lower := strings.ToLower(level)
	return strings.Contains(lower, "avancé") || strings.Contains(lower, "avance") || strings.Contains(lower, "expert")
}

func skillOverlap(userSkills []string, courseSkills []string) []string {
	var overlap []string
	for _, us := range userSkills {
		u := strings.ToLower(strings.TrimSpace(us))
		if u == "" {
			continue
		}
		for _, cs := range courseSkills {
			c := strings.ToLower(cs)
			if strings.Contains(c, u) || strings.Contains(u, c) {
				overlap = append(overlap, cs)
				break
			}
		}
	}
	return overlap
}

// assessPrerequisites classifies how well a prospect fits a course.
// Introductory courses are always an excellent fit. Advanced courses with
// neither a skill overlap nor experience language in the free text are
// flagged challenging. Everything else is suitable.
func assessPrerequisites(c *store.Course, userSkills []string, userExperience string, conf PrereqConfidence) PrereqAssessment {
	overlap := skillOverlap(userSkills, c.Skills)
	experienced := hasExperienceLanguage(userExperience)

	a := PrereqAssessment{
		CourseID:    c.ID,
		CourseLabel: c.Label,
	}

	switch {
	case isIntroductoryLevel(c.Level):
		a.Recommendation = RecommendationExcellentFit
		a.Confidence = conf.ExcellentFit
		a.Notes = append(a.Notes, "Cette formation est conçue pour les débutants, aucun prérequis technique n'est exigé.")
	case isAdvancedLevel(c.Level) && len(overlap) == 0 && !experienced:
		a.Recommendation = RecommendationChallenging
		a.Confidence = conf.Challenging
		a.Notes = append(a.Notes, "Cette formation est de niveau avancé et suppose une pratique préalable du domaine.")
		a.Preparation = append(a.Preparation,
			"Suivre d'abord une formation de niveau intermédiaire sur le même sujet",
			"Échanger avec notre équipe pédagogique pour valider votre parcours")
	default:
		a.Recommendation = RecommendationSuitable
		a.Confidence = conf.Suitable
		a.Notes = append(a.Notes, "Votre profil correspond au niveau attendu pour cette formation.")
	}

	if len(overlap) > 0 {
		a.Confidence += conf.OverlapBonus
		if a.Confidence > 1.0 {
			a.Confidence = 1.0
		}
		a.Notes = append(a.Notes, "Compétences en lien avec le programme : "+strings.Join(overlap, ", "))
	}
	if experienced && a.Recommendation != RecommendationExcellentFit {
		a.Notes = append(a.Notes, "Votre expérience déclarée facilitera la prise en main du programme.")
	}

	return a
}
