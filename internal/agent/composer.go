package agent

import (
	"fmt"
	"sort"
	"strings"

	"github.com/atelierforma/formabot/internal/store"
	"github.com/atelierforma/formabot/internal/tools"
)

const (
	dataDrivenConfidence = 0.9
	maxSearchResults     = 3
	descriptionPreview   = 90
)

// Composer renders resolved tool calls, or conversational templates when
// no tool matched, into the final reply.
type Composer struct{}

func NewComposer() *Composer {
	return &Composer{}
}

// Compose builds the AgentResponse for one turn. Successful tool results
// become one formatted section each, in call order; failed calls
// contribute no text but stay visible in ToolCalls. Without any usable
// result the reply falls back to keyword-selected templates.
func (c *Composer) Compose(msg string, ctx *ConversationContext, calls []ToolCall) AgentResponse {
	var sections []string
	for i := range calls {
		if calls[i].Failed() || calls[i].Result == nil {
			continue
		}
		if section := c.formatResult(calls[i].Result); section != "" {
			sections = append(sections, section)
		}
	}

	if len(sections) > 0 {
		return AgentResponse{
			Message:    strings.Join(sections, "\n\n"),
			ToolCalls:  calls,
			Confidence: dataDrivenConfidence,
			Metadata:   map[string]any{"mode": "tools"},
		}
	}

	text, confidence, template := c.templateReply(strings.ToLower(msg), ctx)
	return AgentResponse{
		Message:    text,
		ToolCalls:  calls,
		Confidence: confidence,
		Metadata:   map[string]any{"mode": "template", "template": template},
	}
}

func (c *Composer) formatResult(result any) string {
	switch v := result.(type) {
	case *store.Course:
		return formatCourseInfo(v)
	case *tools.SearchResult:
		return formatSearchResults(v)
	case *tools.CatalogResult:
		return formatCatalog(v)
	case *tools.PrereqAssessment:
		return formatPrereq(v)
	case *tools.RegistrationOutcome:
		return formatRegistration(v)
	}
	return ""
}

func formatCourseInfo(course *store.Course) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "📘 %s\n\n", course.Label)
	fmt.Fprintf(&sb, "Niveau : %s\n", course.Level)
	fmt.Fprintf(&sb, "Durée : %s\n", course.Duration)
	fmt.Fprintf(&sb, "Format : %s\n", course.Format)

	if len(course.Modules) > 0 {
		sb.WriteString("\nProgramme :\n")
		for _, m := range course.Modules {
			fmt.Fprintf(&sb, "Module %d — %s : %s", m.Position, m.Title, m.Description)
			if len(m.Topics) > 0 {
				topics := m.Topics
				if len(topics) > 3 {
					topics = topics[:3]
				}
				fmt.Fprintf(&sb, " (%s)", strings.Join(topics, ", "))
			}
			sb.WriteString("\n")
		}
	}

	if len(course.Instructors) > 0 {
		sb.WriteString("\n")
		for _, in := range course.Instructors {
			fmt.Fprintf(&sb, "Formateur : %s — %s\n", in.Name, in.Title)
		}
	}

	if len(course.Skills) > 0 {
		sb.WriteString("\nCompétences visées :\n")
		for _, skill := range course.Skills {
			fmt.Fprintf(&sb, "• %s\n", skill)
		}
	}

	if len(course.Certifications) > 0 {
		sb.WriteString("\nCertifications :\n")
		for _, cert := range course.Certifications {
			fmt.Fprintf(&sb, "• %s\n", cert)
		}
	}

	if len(course.Testimonials) > 0 {
		t := course.Testimonials[0]
		fmt.Fprintf(&sb, "\n💬 « %s » — %s", t.Quote, t.Author)
		if t.Role != "" {
			fmt.Fprintf(&sb, ", %s", t.Role)
		}
	}

	return strings.TrimRight(sb.String(), "\n")
}

// formatSearchResults ranks matches by descending score (input order
// breaks ties) and keeps the top results.
func formatSearchResults(result *tools.SearchResult) string {
	if len(result.Matches) == 0 {
		return fmt.Sprintf("Je n'ai trouvé aucune formation correspondant à « %s ». Essayez un autre mot-clé ou demandez la liste complète des formations.", result.Query)
	}

	matches := make([]tools.SearchMatch, len(result.Matches))
	copy(matches, result.Matches)
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	if len(matches) > maxSearchResults {
		matches = matches[:maxSearchResults]
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "🔎 Formations correspondant à « %s » :\n", result.Query)
	for _, m := range matches {
		fmt.Fprintf(&sb, "• %s — %s", m.Course.Label, truncate(m.Course.Description, descriptionPreview))
		if matched := matchedSkills(&m.Course, result.Query); len(matched) > 0 {
			fmt.Fprintf(&sb, " — compétences : %s", strings.Join(matched, ", "))
		}
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

func matchedSkills(course *store.Course, query string) []string {
	q := strings.ToLower(query)
	var out []string
	for _, skill := range course.Skills {
		if strings.Contains(strings.ToLower(skill), q) {
			out = append(out, skill)
		}
	}
	return out
}

func formatCatalog(result *tools.CatalogResult) string {
	var sb strings.Builder
	sb.WriteString("📚 Nos formations :\n")
	for _, cs := range result.Courses {
		fmt.Fprintf(&sb, "• %s (%s) — %s — %d inscrits, note %.1f/5\n",
			cs.Label, cs.Level, truncate(cs.Description, descriptionPreview), cs.EnrollmentCount, cs.Rating)
	}
	return strings.TrimRight(sb.String(), "\n")
}

var prereqHeadlines = map[string]string{
	tools.RecommendationExcellentFit: "🎯 Excellente adéquation",
	tools.RecommendationSuitable:     "👍 Formation adaptée à votre profil",
	tools.RecommendationChallenging:  "⚠️ Formation exigeante pour votre profil actuel",
}

func formatPrereq(a *tools.PrereqAssessment) string {
	headline, ok := prereqHeadlines[a.Recommendation]
	if !ok {
		headline = "ℹ️ Évaluation des prérequis"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s — %s\n", headline, a.CourseLabel)
	fmt.Fprintf(&sb, "Confiance : %.0f%%\n", a.Confidence*100)
	for _, note := range a.Notes {
		fmt.Fprintf(&sb, "• %s\n", note)
	}
	if len(a.Preparation) > 0 {
		sb.WriteString("Pour bien vous préparer :\n")
		for _, p := range a.Preparation {
			fmt.Fprintf(&sb, "• %s\n", p)
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

func formatRegistration(o *tools.RegistrationOutcome) string {
	if !o.Success {
		return "❌ Votre demande d'inscription n'a pas pu être enregistrée. Merci de réessayer dans quelques instants ou de nous contacter directement à contact@atelierforma.fr."
	}

	var sb strings.Builder
	sb.WriteString("✅ Votre demande d'inscription est bien enregistrée")
	if o.CourseLabel != "" {
		fmt.Fprintf(&sb, " pour la %s", o.CourseLabel)
	}
	fmt.Fprintf(&sb, " (réf. %s).\n", o.RegistrationID)
	sb.WriteString("Prochaines étapes :\n")
	sb.WriteString("• Vous recevez un e-mail de confirmation d'ici quelques minutes\n")
	sb.WriteString("• Un conseiller vous contacte sous 48 h ouvrées\n")
	sb.WriteString("• Nous validons ensemble les dates et le financement")
	return sb.String()
}

type template struct {
	name       string
	confidence float64
	match      func(msg string) bool
	render     func(ctx *ConversationContext) string
}

var templates = []template{
	{
		name:       "greeting",
		confidence: 0.95,
		match: func(msg string) bool {
			return containsAny(msg, []string{"bonjour", "bonsoir", "salut", "hello", "coucou"})
		},
		render: func(ctx *ConversationContext) string {
			if ctx != nil && ctx.CourseID != "" {
				return "Bonjour ! 👋 Je suis l'assistant d'Atelier Forma. Posez-moi vos questions sur cette formation : programme, durée, prérequis, tarifs ou inscription."
			}
			return "Bonjour ! 👋 Je suis l'assistant d'Atelier Forma. Je peux vous présenter nos formations, vérifier les prérequis ou vous aider à vous inscrire. Que puis-je faire pour vous ?"
		},
	},
	{
		name:       "pricing",
		confidence: 0.85,
		match: func(msg string) bool {
			return containsAny(msg, []string{"tarif", "prix", "coût", "cout", "combien"})
		},
		render: func(ctx *ConversationContext) string {
			return "Nos tarifs dépendent de la formation et du format choisi (présentiel ou distanciel). Toutes nos formations sont éligibles aux financements OPCO et, pour la plupart, au CPF. Indiquez-moi la formation qui vous intéresse et je vous donne le détail."
		},
	},
	{
		name:       "registration",
		confidence: 0.9,
		match: func(msg string) bool {
			return strings.Contains(msg, "inscri")
		},
		render: func(ctx *ConversationContext) string {
			return "Pour vous inscrire, remplissez le formulaire d'inscription de la page formation : prénom, nom, e-mail et téléphone suffisent. Un conseiller vous recontacte ensuite sous 48 h pour confirmer les dates et le financement."
		},
	},
	{
		name:       "course-question",
		confidence: 0.8,
		match: func(msg string) bool {
			return containsAny(msg, []string{"formation", "cours", "programme"})
		},
		render: func(ctx *ConversationContext) string {
			return "Je peux vous détailler le programme, la durée, les formateurs ou les débouchés de chacune de nos formations. Précisez le sujet qui vous intéresse (Python, AWS, Docker, sécurité, IA…) et je vous guide."
		},
	},
}

const defaultTemplateConfidence = 0.7

func (c *Composer) templateReply(msg string, ctx *ConversationContext) (string, float64, string) {
	for _, t := range templates {
		if t.match(msg) {
			return t.render(ctx), t.confidence, t.name
		}
	}
	return "Je suis là pour répondre à vos questions sur nos formations : programme, prérequis, tarifs, inscriptions. Comment puis-je vous aider ?", defaultTemplateConfidence, "default"
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return strings.TrimRight(string(runes[:n]), " ") + "…"
}
