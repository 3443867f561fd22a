package report

import (
	"fmt"
	"sort"
	"strings"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"

	"gocoex/domain/run"
)

// maxTablePairs caps the pair table so reports stay readable on large panels
const maxTablePairs = 25

// BuildMarkdown renders a run record as a markdown report: parameters,
// dataset shape and a pair table ordered by significance
func BuildMarkdown(ar *run.AnalysisRun) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Analysis Run %s\n\n", ar.ID)
	fmt.Fprintf(&b, "- **Status:** %s\n", ar.Status)
	fmt.Fprintf(&b, "- **Created:** %s\n", ar.CreatedAt)
	if !ar.CompletedAt.IsZero() {
		fmt.Fprintf(&b, "- **Completed:** %s\n", ar.CompletedAt)
	}
	fmt.Fprintf(&b, "- **Dataset:** %d spots, %d pairs, hash `%s`\n", ar.SpotCount, ar.PairCount, shortHash(string(ar.DatasetHash)))
	fmt.Fprintf(&b, "- **Fingerprint:** `%s`\n", shortHash(string(ar.Fingerprint)))
	if ar.Error != "" {
		fmt.Fprintf(&b, "- **Error:** %s\n", ar.Error)
	}

	b.WriteString("\n## Parameters\n\n")
	p := ar.Params
	fmt.Fprintf(&b, "- **Statistic:** %s", p.Method)
	if p.Masked {
		fmt.Fprintf(&b, " (masked, weight threshold %g)", p.WeightThreshold)
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "- **Kernel:** %s, parameter %g", p.KernelFamily, p.KernelParam)
	if p.KernelCutoff != nil {
		fmt.Fprintf(&b, ", cutoff %g", *p.KernelCutoff)
	}
	if p.NNeighbors > 0 {
		fmt.Fprintf(&b, ", %d nearest neighbours", p.NNeighbors)
	}
	if p.BypassDiagonal {
		b.WriteString(", zero diagonal")
	}
	b.WriteString("\n")
	if p.Permutations > 0 {
		fmt.Fprintf(&b, "- **Permutations:** %d, seed %d", p.Permutations, p.Seed)
		if p.PositiveOnly {
			b.WriteString(", positive-only")
		}
		b.WriteString("\n")
	} else {
		b.WriteString("- **Permutations:** none\n")
	}
	if len(p.Metabolites) > 0 {
		fmt.Fprintf(&b, "- **Metabolites:** %d estimated with %s\n", len(p.Metabolites), p.Estimator)
	}

	if len(ar.Summaries) > 0 {
		b.WriteString("\n## Pairs\n\n")
		writePairTable(&b, ar.Summaries, p.Permutations > 0)
	}

	return b.String()
}

func writePairTable(b *strings.Builder, summaries []run.PairSummary, withSignificance bool) {
	ordered := append([]run.PairSummary(nil), summaries...)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].FracSignificant != ordered[j].FracSignificant {
			return ordered[i].FracSignificant > ordered[j].FracSignificant
		}
		return ordered[i].MeanStat > ordered[j].MeanStat
	})
	truncated := false
	if len(ordered) > maxTablePairs {
		ordered = ordered[:maxTablePairs]
		truncated = true
	}

	if withSignificance {
		b.WriteString("| Pair | Mean statistic | Significant spots | Interaction score | Agreeing | Opposing |\n")
		b.WriteString("|---|---|---|---|---|---|\n")
		for _, sm := range ordered {
			fmt.Fprintf(b, "| %s | %.4f | %.1f%% | %.4f | %d | %d |\n",
				sm.Pair, sm.MeanStat, 100*sm.FracSignificant, sm.InteractionScore, sm.Agreeing, sm.Opposing)
		}
	} else {
		b.WriteString("| Pair | Mean statistic | Interaction score | Agreeing | Opposing |\n")
		b.WriteString("|---|---|---|---|---|\n")
		for _, sm := range ordered {
			fmt.Fprintf(b, "| %s | %.4f | %.4f | %d | %d |\n",
				sm.Pair, sm.MeanStat, sm.InteractionScore, sm.Agreeing, sm.Opposing)
		}
	}
	if truncated {
		fmt.Fprintf(b, "\n%d further pairs omitted.\n", len(summaries)-maxTablePairs)
	}
}

// RenderHTML converts a markdown report to an HTML fragment
func RenderHTML(md string) []byte {
	extensions := parser.CommonExtensions | parser.AutoHeadingIDs
	p := parser.NewWithExtensions(extensions)
	doc := p.Parse([]byte(md))

	opts := html.RendererOptions{Flags: html.CommonFlags}
	renderer := html.NewRenderer(opts)
	return markdown.Render(doc, renderer)
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
