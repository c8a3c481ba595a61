package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/nao1215/relayfetch/internal/log"
	"github.com/nao1215/relayfetch/internal/model"
)

// routeLabeler renders routing labels ("Proxy", "Direct", "Fallback") in
// title case for display.
var routeLabeler = cases.Title(language.English)

// SimpleWriter outputs human-readable text reports.
// This format is designed for terminal display.
//
// Design decision: We use plain text with ASCII formatting rather than
// ANSI colors by default because:
//  1. It works in all terminals without compatibility issues
//  2. It's easier to pipe to files or other tools
//  3. Color can be added as an option later if needed
type SimpleWriter struct {
	baseWriter

	// verbose enables per-result header and timing detail.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithVerbose enables verbose output with additional details.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the results in human-readable format.
func (w *SimpleWriter) Write(results []*model.FetchResult) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, results)
	w.writeResults(&sb, results)

	return fmt.Fprint(w.output, sb.String())
}

// writeHeader writes the summary block.
func (w *SimpleWriter) writeHeader(sb *strings.Builder, results []*model.FetchResult) {
	summary := model.Summarize(results)

	sb.WriteString("relayfetch results\n")
	sb.WriteString(strings.Repeat("=", 60))
	sb.WriteString("\n")
	fmt.Fprintf(sb, "Fetched:   %d (%d succeeded, %d failed)\n",
		summary.Total, summary.Succeeded, summary.Failed)
	fmt.Fprintf(sb, "Via proxy: %d\n", summary.ViaProxy)
	if summary.FellBack > 0 {
		fmt.Fprintf(sb, "Fell back: %d (proxy failed, answered directly)\n", summary.FellBack)
	}
	sb.WriteString("\n")
}

// writeResults writes one block per fetch result.
func (w *SimpleWriter) writeResults(sb *strings.Builder, results []*model.FetchResult) {
	for _, r := range results {
		if r == nil {
			continue
		}

		fmt.Fprintf(sb, "%s\n", log.MaskURLCredentials(r.URL))

		if !r.Succeeded() {
			fmt.Fprintf(sb, "  ERROR  %s\n", r.Error)
			if r.FellBack {
				sb.WriteString("  (direct fallback also failed)\n")
			}
			sb.WriteString("\n")
			continue
		}

		fmt.Fprintf(sb, "  %d  %s  %s  via %s\n",
			r.StatusCode,
			r.Proto,
			formatBodySize(r.BodySize, r.Truncated),
			routeLabeler.String(routeLabel(r)),
		)

		if w.verbose {
			fmt.Fprintf(sb, "  content-type: %s\n", valueOrDash(r.ContentType))
			fmt.Fprintf(sb, "  duration:     %s\n", r.Duration.Round(time.Millisecond))
		}
		sb.WriteString("\n")
	}
}

// routeLabel names the path the response took.
func routeLabel(r *model.FetchResult) string {
	switch {
	case r.FellBack:
		return "fallback"
	case r.ViaProxy:
		return "proxy"
	default:
		return "direct"
	}
}

// formatBodySize renders the body size with a truncation marker.
func formatBodySize(size int64, truncated bool) string {
	if truncated {
		return fmt.Sprintf("%dB (truncated)", size)
	}
	return fmt.Sprintf("%dB", size)
}

// valueOrDash substitutes "-" for empty values.
func valueOrDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
