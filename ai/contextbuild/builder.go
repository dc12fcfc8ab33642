// Package contextbuild renders a memory selection into prompt text.
// Thin glue between selection and the model call; no scoring logic here.
package contextbuild

import (
	"fmt"
	"strings"

	"github.com/bokpilot/bokpilot/ai/memory"
)

// sectionHeader introduces the injected memories to the model.
const sectionHeader = "Known facts about this company and user (ranked by relevance):"

// Render produces the prompt segment for a selection. Empty selections
// render to an empty string so the caller can skip the segment entirely.
func Render(selection *memory.Selection) string {
	if selection == nil || len(selection.Memories) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString(sectionHeader)
	b.WriteString("\n")
	for i, m := range selection.Memories {
		fmt.Fprintf(&b, "%d. [%s] %s\n", i+1, m.Record.Tier, strings.TrimSpace(m.Record.Content))
	}
	return strings.TrimRight(b.String(), "\n")
}

// RenderTransparency produces the user-facing explanation of which
// memories were used and why.
func RenderTransparency(selection *memory.Selection) string {
	if selection == nil || len(selection.Info) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("Memories used:\n")
	for _, info := range selection.Info {
		fmt.Fprintf(&b, "- %s (%s, %s confidence): %s\n", info.Preview, info.Reason, info.ConfidenceLevel, info.Tier)
	}
	return strings.TrimRight(b.String(), "\n")
}
