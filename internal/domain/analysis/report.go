package analysis

import (
	"fmt"
	"strings"
)

// Report renders a result as the plain-text export block. The section headers
// and line layout are a stable contract with downstream consumers (copy/paste,
// email), so changes here break round-tripping with humans.
func Report(r Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "VERDICT: %s\n", r.Verdict)
	fmt.Fprintf(&b, "AI PROBABILITY: %d%%\n", r.Probability)
	b.WriteString("\nEXPLANATION:\n")
	b.WriteString(r.Explanation)
	b.WriteString("\n")
	if len(r.Highlights) > 0 {
		b.WriteString("\nKEY INDICATORS:\n")
		for _, h := range r.Highlights {
			fmt.Fprintf(&b, "- %q: %s\n", h.Text, h.Reason)
		}
	}
	return b.String()
}
