package agent

import (
	"fmt"
	"sort"
	"strings"

	"github.com/atelierforma/formabot/internal/tools"
	"github.com/google/uuid"
)

// Rule is one entry of the intent table: a predicate over the message and
// context, the tool it triggers, and a builder for its parameters. Rules
// are evaluated in order; emission order is insertion order. Match
// receives the lowercased message; Params receives the original text so
// tools that record it (check_prerequisites) keep the user's casing.
type Rule struct {
	Name   string
	Tool   string
	Match  func(msg string, ctx *ConversationContext) bool
	Params func(msg string, ctx *ConversationContext) tools.Params
}

// Router maps a user message plus context to zero or more tool calls.
// Matching is deliberately conservative keyword work, no classifier: an
// ambiguous message emits nothing and the composer falls back to
// templates.
type Router struct {
	rules []Rule
}

func NewRouter() *Router {
	return &Router{rules: DefaultRules()}
}

func NewRouterWithRules(rules []Rule) *Router {
	return &Router{rules: rules}
}

// Route emits the tool calls for one turn. When the session is scoped to
// a course, get_course_info for that course always comes first so every
// reply is grounded in fresh catalog data. No tool appears twice with
// identical parameters.
func (r *Router) Route(msg string, ctx *ConversationContext) []ToolCall {
	var calls []ToolCall
	seen := make(map[string]bool)

	emit := func(tool string, params tools.Params) {
		key := callKey(tool, params)
		if seen[key] {
			return
		}
		seen[key] = true
		calls = append(calls, ToolCall{
			ID:         uuid.NewString(),
			Name:       tool,
			Parameters: params,
		})
	}

	if ctx != nil && ctx.CourseID != "" {
		emit(tools.ToolGetCourseInfo, tools.Params{"courseId": ctx.CourseID})
	}

	lower := strings.ToLower(msg)
	for _, rule := range r.rules {
		if rule.Match(lower, ctx) {
			emit(rule.Tool, rule.Params(msg, ctx))
		}
	}
	return calls
}

func callKey(tool string, params tools.Params) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var sb strings.Builder
	sb.WriteString(tool)
	for _, k := range keys {
		fmt.Fprintf(&sb, "|%s=%v", k, params[k])
	}
	return sb.String()
}

var courseScopedKeywords = []string{
	"programme", "module", "formateur", "durée", "prérequis", "compétence",
	"certificat", "niveau", "témoignage", "avis", "inscription", "tarif", "prix",
}

var techKeywords = []string{
	"python", "aws", "docker", "design", "sécurité", "ia", "github", "terraform",
}

var catalogPhrases = []string{
	"toutes les formations", "toutes vos formations", "liste des formations",
	"quelles formations", "catalogue", "vos formations",
}

var prereqPhrases = []string{
	"prérequis", "pré-requis", "niveau requis", "faut-il savoir",
	"est-ce pour moi", "suis-je capable", "niveau faut-il",
}

// DefaultRules is the production intent table.
func DefaultRules() []Rule {
	return []Rule{
		{
			Name: "course-scoped-keywords",
			Tool: tools.ToolGetCourseInfo,
			Match: func(msg string, ctx *ConversationContext) bool {
				return ctx != nil && ctx.CourseID != "" && containsAny(msg, courseScopedKeywords)
			},
			Params: func(_ string, ctx *ConversationContext) tools.Params {
				return tools.Params{"courseId": ctx.CourseID}
			},
		},
		{
			Name: "tech-search",
			Tool: tools.ToolSearchCourses,
			Match: func(msg string, _ *ConversationContext) bool {
				return strings.Contains(msg, "formation") && firstTechKeyword(msg) != ""
			},
			Params: func(msg string, _ *ConversationContext) tools.Params {
				return tools.Params{"query": firstTechKeyword(msg)}
			},
		},
		{
			Name: "catalog",
			Tool: tools.ToolGetAllCourses,
			Match: func(msg string, _ *ConversationContext) bool {
				return containsAny(msg, catalogPhrases)
			},
			Params: func(string, *ConversationContext) tools.Params {
				return tools.Params{}
			},
		},
		{
			Name: "prerequisites",
			Tool: tools.ToolCheckPrerequisites,
			Match: func(msg string, ctx *ConversationContext) bool {
				return ctx != nil && ctx.CourseID != "" && containsAny(msg, prereqPhrases)
			},
			Params: func(msg string, ctx *ConversationContext) tools.Params {
				return tools.Params{"courseId": ctx.CourseID, "userExperience": msg}
			},
		},
	}
}

func containsAny(msg string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(msg, kw) {
			return true
		}
	}
	return false
}

// firstTechKeyword returns the first technology keyword present in the
// message. Short keywords ("ia", "aws") match on word boundaries so that
// incidental substrings do not trigger a search.
func firstTechKeyword(msg string) string {
	msg = strings.ToLower(msg)
	for _, kw := range techKeywords {
		if len(kw) <= 3 {
			if containsWord(msg, kw) {
				return kw
			}
			continue
		}
		if strings.Contains(msg, kw) {
			return kw
		}
	}
	return ""
}

func containsWord(msg, word string) bool {
	for _, field := range strings.Fields(msg) {
		trimmed := strings.Trim(field, ".,;:!?\"'()«»")
		if trimmed == word {
			return true
		}
	}
	return false
}
