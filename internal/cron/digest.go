package cron

import (
	"fmt"
	"strings"
	"time"

	"github.com/atelierforma/formabot/internal/store"
)

// BuildDigest formats the registrations received since the cutoff into
// the daily summary sent to the sales channel.
func BuildDigest(regs []store.Registration, since time.Time) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "📋 Inscriptions depuis le %s : %d\n", since.Format("02/01/2006"), len(regs))

	if len(regs) == 0 {
		sb.WriteString("Aucune nouvelle inscription.")
		return sb.String()
	}

	byCourse := make(map[string]int)
	var order []string
	for _, r := range regs {
		if byCourse[r.CourseID] == 0 {
			order = append(order, r.CourseID)
		}
		byCourse[r.CourseID]++
		fmt.Fprintf(&sb, "• %s %s — %s (%s)\n", r.FirstName, r.LastName, r.CourseID, r.Email)
	}

	sb.WriteString("Par formation : ")
	parts := make([]string, 0, len(order))
	for _, course := range order {
		parts = append(parts, fmt.Sprintf("%s ×%d", course, byCourse[course]))
	}
	sb.WriteString(strings.Join(parts, ", "))
	return sb.String()
}
