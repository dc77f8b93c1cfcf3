package store

import (
	"fmt"
	"strings"
	"time"

	"github.com/meetmind/meetmind/meeting"
)

// RenderMarkdown formats a finished session as a readable report: header
// metadata, the structured summary when present, then the transcript.
func RenderMarkdown(rec meeting.Record) string {
	var b strings.Builder

	title := rec.Title
	if title == "" {
		title = "Meeting Transcript"
	}
	fmt.Fprintf(&b, "# %s\n\n", title)

	fmt.Fprintf(&b, "- Session: `%s`\n", rec.ID)
	if !rec.StartedAt.IsZero() {
		fmt.Fprintf(&b, "- Started: %s\n", rec.StartedAt.Format(time.RFC3339))
	}
	if !rec.EndedAt.IsZero() && !rec.StartedAt.IsZero() {
		fmt.Fprintf(&b, "- Duration: %s\n", rec.EndedAt.Sub(rec.StartedAt).Truncate(time.Second))
	}
	if len(rec.Speakers) > 0 {
		names := make([]string, len(rec.Speakers))
		for i, sp := range rec.Speakers {
			names[i] = sp.Name
		}
		fmt.Fprintf(&b, "- Speakers: %s\n", strings.Join(names, ", "))
	}
	fmt.Fprintf(&b, "- AI cost: $%.4f of $%.2f budget (%d requests)\n",
		rec.Cost.TotalCostUSD, rec.Cost.BudgetUSD, rec.Cost.TotalRequests)
	b.WriteString("\n")

	if sum := rec.Summary; sum != nil {
		b.WriteString("## Summary\n\n")
		if sum.Summary != "" {
			fmt.Fprintf(&b, "%s\n\n", sum.Summary)
		}
		if len(sum.KeyTopics) > 0 {
			fmt.Fprintf(&b, "**Key topics:** %s\n\n", strings.Join(sum.KeyTopics, ", "))
		}
		if len(sum.Decisions) > 0 {
			b.WriteString("### Decisions\n\n")
			for _, d := range sum.Decisions {
				fmt.Fprintf(&b, "- %s (%s)\n", d.What, d.Who)
			}
			b.WriteString("\n")
		}
		if len(sum.ActionItems) > 0 {
			b.WriteString("### Action items\n\n")
			for _, a := range sum.ActionItems {
				fmt.Fprintf(&b, "- [ ] %s (owner: %s, due: %s)\n", a.Task, a.Owner, a.Deadline)
			}
			b.WriteString("\n")
		}
		if len(sum.Risks) > 0 {
			b.WriteString("### Risks\n\n")
			for _, r := range sum.Risks {
				fmt.Fprintf(&b, "- **%s**: %s\n", r.Severity, r.Description)
			}
			b.WriteString("\n")
		}
		if len(sum.NextSteps) > 0 {
			b.WriteString("### Next steps\n\n")
			for _, n := range sum.NextSteps {
				fmt.Fprintf(&b, "- %s\n", n)
			}
			b.WriteString("\n")
		}
	}

	if len(rec.Insights) > 0 {
		b.WriteString("## Insights\n\n")
		for _, ins := range rec.Insights {
			fmt.Fprintf(&b, "### %s (%s)\n\n%s\n\n", ins.Title, ins.Category, ins.Analysis)
			if ins.Recommendation != "" {
				fmt.Fprintf(&b, "> %s\n\n", ins.Recommendation)
			}
		}
	}

	b.WriteString("---\n\n## Transcript\n\n")
	for _, seg := range rec.Segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		if seg.Speaker != "" {
			fmt.Fprintf(&b, "%s: %s\n\n", seg.Speaker, text)
		} else {
			fmt.Fprintf(&b, "%s\n\n", text)
		}
	}
	return b.String()
}
