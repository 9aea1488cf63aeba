package answer

import (
	"fmt"
	"strings"

	"github.com/staffdex/staffdex/internal/domain"
)

const systemStyle = `You are an HR assistant.
Return concise, helpful recommendations.
Cite concrete skills, years, project/domain signals, and availability.
Format with short bullet points for each candidate followed by a one-paragraph recommendation.`

// buildPrompt renders the user query and the ranked candidates into the chat
// prompt. Reason tags are included so the model can ground its rationale in
// the boosts that actually fired.
func buildPrompt(query string, items []domain.RetrievedItem) string {
	var b strings.Builder

	fmt.Fprintf(&b, "HR Query: %s\n\nTop candidates:\n", query)
	for i, item := range items {
		e := item.Employee
		fmt.Fprintf(&b, "%d. %s — %d yrs; skills=%s; projects=%s; availability=%s; reasons=%s\n",
			i+1, e.Name, e.ExperienceYears,
			strings.Join(e.Skills, ", "),
			strings.Join(e.Projects, ", "),
			e.Availability,
			strings.Join(item.Reasons, ", "),
		)
	}
	b.WriteString("\nNow produce a natural response with rationale and suggestions.")
	return b.String()
}
