// Package report renders an expansion as a Markdown or HTML document.
package report

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"

	"nexus/internal/types"
)

// Markdown lays out the expansion the way the dashboard does: summary first,
// then features, audience, pivots and risks.
func Markdown(exp types.Expansion) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", inline(exp.Title))
	if t := inline(exp.Tagline); t != "" {
		fmt.Fprintf(&b, "_%s_\n\n", t)
	}

	b.WriteString("## Executive Summary\n\n")
	if d := strings.TrimSpace(exp.Description); d != "" {
		b.WriteString(d)
		b.WriteString("\n\n")
	}

	list(&b, "Core Features", exp.KeyFeatures)
	list(&b, "Target Audience", exp.TargetAudience)

	b.WriteString("## Strategic Pivots\n\n")
	for _, p := range exp.PivotOptions {
		fmt.Fprintf(&b, "- **%s** - %s\n", inline(p.Name), inline(p.Description))
	}
	b.WriteString("\n")

	list(&b, "Risk Assessment", exp.PotentialChallenges)
	return strings.TrimRight(b.String(), "\n") + "\n"
}

// HTML converts Markdown(exp) with goldmark. Raw HTML in model output is not
// passed through.
func HTML(exp types.Expansion) (string, error) {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(Markdown(exp)), &buf); err != nil {
		return "", fmt.Errorf("render report: %w", err)
	}
	return buf.String(), nil
}

func list(b *strings.Builder, heading string, items []string) {
	fmt.Fprintf(b, "## %s\n\n", heading)
	for _, it := range items {
		fmt.Fprintf(b, "- %s\n", inline(it))
	}
	b.WriteString("\n")
}

// inline keeps a value on one line so it cannot open a new block.
func inline(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
