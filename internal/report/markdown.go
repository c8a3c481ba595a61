package report

import (
	"io"
	"strconv"
	"time"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/relayfetch/internal/log"
	"github.com/nao1215/relayfetch/internal/model"
)

// MarkdownWriter outputs reports in Markdown format.
// This format is designed for documentation and sharing.
//
// Design decision: We use the nao1215/markdown library for fluent
// markdown generation which provides:
// 1. Type-safe markdown generation
// 2. Support for tables, lists, and code blocks
// 3. GitHub-flavored markdown alerts
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given
// writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the results in Markdown format.
func (w *MarkdownWriter) Write(results []*model.FetchResult) (int, error) {
	md := markdown.NewMarkdown(w.output)
	summary := model.Summarize(results)

	w.writeHeader(md, summary)
	w.writeRouteChart(md, summary)
	w.writeAlert(md, summary)
	w.writeResults(md, results)

	return len(md.String()), md.Build()
}

// writeHeader writes the report header with the batch summary.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, summary model.Summary) {
	md.H1("relayfetch Report")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"URLs fetched", strconv.Itoa(summary.Total)},
			{"Succeeded", strconv.Itoa(summary.Succeeded)},
			{"Failed", strconv.Itoa(summary.Failed)},
			{"Via proxy", strconv.Itoa(summary.ViaProxy)},
			{"Direct fallback", strconv.Itoa(summary.FellBack)},
		},
	})
	md.PlainText("")
}

// writeRouteChart writes a mermaid pie chart of how responses were routed.
func (w *MarkdownWriter) writeRouteChart(md *markdown.Markdown, summary model.Summary) {
	if summary.Total == 0 {
		return
	}

	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Response Routing"),
		piechart.WithShowData(true),
	)

	direct := summary.Succeeded - summary.ViaProxy - summary.FellBack
	if summary.ViaProxy > 0 {
		chart.LabelAndIntValue("Proxy", uint64(summary.ViaProxy))
	}
	if summary.FellBack > 0 {
		chart.LabelAndIntValue("Fallback", uint64(summary.FellBack))
	}
	if direct > 0 {
		chart.LabelAndIntValue("Direct", uint64(direct))
	}
	if summary.Failed > 0 {
		chart.LabelAndIntValue("Failed", uint64(summary.Failed))
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeAlert writes an appropriate alert based on the batch outcome.
func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, summary model.Summary) {
	switch {
	case summary.Failed == summary.Total && summary.Total > 0:
		md.Cautionf("All %d fetches failed. Check the proxy configuration and network connectivity.", summary.Failed)
	case summary.Failed > 0:
		md.Warningf("%d fetch(es) failed. See the result table for details.", summary.Failed)
	case summary.FellBack > 0:
		md.Importantf("%d fetch(es) were answered directly after the proxy failed. The proxy may be flaky or dead.", summary.FellBack)
	default:
		md.Tip("All fetches completed through the intended route.")
	}
	md.PlainText("")
}

// writeResults writes the per-URL result table.
func (w *MarkdownWriter) writeResults(md *markdown.Markdown, results []*model.FetchResult) {
	md.H2("Results")
	md.PlainText("")

	if len(results) == 0 {
		md.PlainText("No fetches were attempted.")
		md.PlainText("")
		return
	}

	rows := make([][]string, 0, len(results))
	for _, r := range results {
		if r == nil {
			continue
		}

		status := "-"
		if r.StatusCode != 0 {
			status = strconv.Itoa(r.StatusCode)
		}

		outcome := routeLabeler.String(routeLabel(r))
		if !r.Succeeded() {
			outcome = "Failed: " + truncateString(r.Error, 60)
		}

		rows = append(rows, []string{
			"`" + log.MaskURLCredentials(r.URL) + "`",
			status,
			strconv.FormatInt(r.BodySize, 10),
			r.Duration.Round(time.Millisecond).String(),
			outcome,
		})
	}

	md.Table(markdown.TableSet{
		Header: []string{"URL", "Status", "Bytes", "Duration", "Outcome"},
		Rows:   rows,
	})
	md.PlainText("")
}

// truncateString shortens s to at most max characters, appending an
// ellipsis when truncation happened.
func truncateString(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
