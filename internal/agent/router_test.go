package agent

import (
	"testing"

	"github.com/atelierforma/formabot/internal/tools"
)

func callNames(calls []ToolCall) []string {
	out := make([]string, 0, len(calls))
	for _, c := range calls {
		out = append(out, c.Name)
	}
	return out
}

func TestRouter_CourseScopedMessage(t *testing.T) {
	r := NewRouter()
	ctx := NewContext("aws", "fr")

	calls := r.Route("Quel est le programme ?", ctx)

	// The implicit context lookup and the course-scoped keyword rule both
	// target get_course_info for the same course; only one call survives.
	if len(calls) != 1 {
		t.Fatalf("calls = %v, want exactly one", callNames(calls))
	}
	if calls[0].Name != tools.ToolGetCourseInfo {
		t.Errorf("tool = %s, want %s", calls[0].Name, tools.ToolGetCourseInfo)
	}
	if got := calls[0].Parameters.String("courseId"); got != "aws" {
		t.Errorf("courseId = %q, want aws", got)
	}
}

func TestRouter_ContextLookupComesFirst(t *testing.T) {
	r := NewRouter()
	ctx := NewContext("securite", "fr")

	calls := r.Route("Quels sont les prérequis pour suivre cette formation ?", ctx)

	if len(calls) != 2 {
		t.Fatalf("calls = %v, want course info then prerequisites", callNames(calls))
	}
	if calls[0].Name != tools.ToolGetCourseInfo {
		t.Errorf("first call = %s, want %s", calls[0].Name, tools.ToolGetCourseInfo)
	}
	if calls[1].Name != tools.ToolCheckPrerequisites {
		t.Errorf("second call = %s, want %s", calls[1].Name, tools.ToolCheckPrerequisites)
	}
	if got := calls[1].Parameters.String("courseId"); got != "securite" {
		t.Errorf("prereq courseId = %q, want securite", got)
	}
	if calls[1].Parameters.String("userExperience") == "" {
		t.Error("prereq call should carry the raw message as experience text")
	}
}

func TestRouter_TechSearch(t *testing.T) {
	tests := []struct {
		name    string
		message string
		query   string
	}{
		{"long keyword", "Avez-vous une formation Python pour débutants ?", "python"},
		{"accented keyword", "je cherche une formation en sécurité applicative", "sécurité"},
		{"short keyword as word", "proposez-vous une formation IA ?", "ia"},
		{"short keyword with punctuation", "une formation aws, c'est possible ?", "aws"},
	}

	r := NewRouter()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := r.Route(tt.message, NewContext("", "fr"))
			if len(calls) != 1 || calls[0].Name != tools.ToolSearchCourses {
				t.Fatalf("calls = %v, want one search", callNames(calls))
			}
			if got := calls[0].Parameters.String("query"); got != tt.query {
				t.Errorf("query = %q, want %q", got, tt.query)
			}
		})
	}
}

func TestRouter_ShortKeywordNeedsWordBoundary(t *testing.T) {
	r := NewRouter()

	// "médiation" contains "ia" but must not trigger a search.
	calls := r.Route("une formation à la médiation", NewContext("", "fr"))
	for _, c := range calls {
		if c.Name == tools.ToolSearchCourses {
			t.Fatalf("incidental substring triggered a search: %v", callNames(calls))
		}
	}
}

// Matching is case-insensitive but the message recorded for the
// prerequisite assessment keeps the user's original casing.
func TestRouter_PrereqCarriesRawMessage(t *testing.T) {
	r := NewRouter()
	ctx := NewContext("aws", "fr")
	msg := "Quels sont les PRÉREQUIS pour cette formation ?"

	calls := r.Route(msg, ctx)

	var prereq *ToolCall
	for i := range calls {
		if calls[i].Name == tools.ToolCheckPrerequisites {
			prereq = &calls[i]
		}
	}
	if prereq == nil {
		t.Fatalf("calls = %v, want a prerequisites call", callNames(calls))
	}
	if got := prereq.Parameters.String("userExperience"); got != msg {
		t.Errorf("userExperience = %q, want the raw message %q", got, msg)
	}
}

func TestRouter_Catalog(t *testing.T) {
	r := NewRouter()

	calls := r.Route("Quelles formations proposez-vous ?", NewContext("", "fr"))
	if len(calls) != 1 || calls[0].Name != tools.ToolGetAllCourses {
		t.Fatalf("calls = %v, want one catalog call", callNames(calls))
	}
}

func TestRouter_AmbiguousMessageEmitsNothing(t *testing.T) {
	r := NewRouter()

	calls := r.Route("Bonjour, comment allez-vous ?", NewContext("", "fr"))
	if len(calls) != 0 {
		t.Errorf("calls = %v, want none for an ambiguous message", callNames(calls))
	}
}

func TestRouter_DedupeIdenticalCalls(t *testing.T) {
	dup := Rule{
		Name: "dup",
		Tool: tools.ToolSearchCourses,
		Match: func(string, *ConversationContext) bool {
			return true
		},
		Params: func(string, *ConversationContext) tools.Params {
			return tools.Params{"query": "python"}
		},
	}
	r := NewRouterWithRules([]Rule{dup, dup})

	calls := r.Route("peu importe", NewContext("", "fr"))
	if len(calls) != 1 {
		t.Fatalf("calls = %v, want duplicates collapsed", callNames(calls))
	}
}

func TestRouter_SameToolDifferentParamsKept(t *testing.T) {
	mk := func(query string) Rule {
		return Rule{
			Name: "search-" + query,
			Tool: tools.ToolSearchCourses,
			Match: func(string, *ConversationContext) bool {
				return true
			},
			Params: func(string, *ConversationContext) tools.Params {
				return tools.Params{"query": query}
			},
		}
	}
	r := NewRouterWithRules([]Rule{mk("python"), mk("docker")})

	calls := r.Route("peu importe", NewContext("", "fr"))
	if len(calls) != 2 {
		t.Fatalf("calls = %v, want both parameter sets", callNames(calls))
	}
}

func TestRouter_NilContext(t *testing.T) {
	r := NewRouter()

	calls := r.Route("quelles formations proposez-vous ?", nil)
	if len(calls) != 1 || calls[0].Name != tools.ToolGetAllCourses {
		t.Fatalf("calls = %v, want catalog call with nil context", callNames(calls))
	}
}
