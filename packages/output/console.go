package output

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/fatih/color"
	"github.com/tidwall/gjson"

	"github.com/nixpig/corkscrew/packages/core/runner"
	"github.com/nixpig/corkscrew/packages/http"
	"github.com/nixpig/corkscrew/packages/stats"
)

// maxCellWidth bounds URL and picked values in the table
const maxCellWidth = 60

type ConsoleFormatter struct {
	writer  io.Writer
	verbose bool
	noColor bool
	pick    string
}

type ConsoleOption func(*ConsoleFormatter)

func NewConsoleFormatter(opts ...ConsoleOption) *ConsoleFormatter {
	f := &ConsoleFormatter{
		writer: os.Stdout,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.noColor {
		color.NoColor = true
	}
	return f
}

func WithWriter(w io.Writer) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.writer = w
	}
}

// WithVerbose prints each response body below its row
func WithVerbose(v bool) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.verbose = v
	}
}

func WithNoColor(nc bool) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.noColor = nc
	}
}

// WithPick adds a column holding the value at a gjson path of each JSON
// response body.
func WithPick(path string) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.pick = path
	}
}

type consoleRow struct {
	cells []string
	paint func(a ...any) string
	err   string
	body  string
}

func (f *ConsoleFormatter) FormatResult(result *runner.RunResult) {
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	cyan := color.New(color.FgCyan).SprintFunc()
	bold := color.New(color.Bold).SprintFunc()

	if result.File != "" {
		fmt.Fprintf(f.writer, "\n%s\n\n", bold("Running: "+result.File))
	}

	if len(result.Outcomes) == 0 {
		fmt.Fprintf(f.writer, "No requests to run\n\n")
		return
	}

	header := []string{"#", "Name", "Method", "URL", "Status", "Time"}
	if f.pick != "" {
		header = append(header, f.pick)
	}

	rows := make([]consoleRow, 0, len(result.Outcomes))
	for i, o := range result.Outcomes {
		rows = append(rows, f.row(i+1, o))
	}

	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = utf8.RuneCountInString(h)
	}
	for _, r := range rows {
		for i, c := range r.cells {
			widths[i] = max(widths[i], utf8.RuneCountInString(c))
		}
	}

	fmt.Fprintln(f.writer, bold(joinCells(header, widths)))
	for _, r := range rows {
		fmt.Fprintln(f.writer, r.paint(joinCells(r.cells, widths)))
		if r.err != "" {
			fmt.Fprintf(f.writer, "    %s\n", red("→ "+r.err))
		}
		if r.body != "" {
			for _, line := range strings.Split(strings.TrimRight(r.body, "\n"), "\n") {
				fmt.Fprintf(f.writer, "    %s\n", line)
			}
		}
	}

	fmt.Fprintf(f.writer, "\n")
	fmt.Fprintf(f.writer, "Requests: ")
	if result.Succeeded > 0 {
		fmt.Fprintf(f.writer, "%s, ", green(fmt.Sprintf("%d succeeded", result.Succeeded)))
	}
	if result.Failed > 0 {
		fmt.Fprintf(f.writer, "%s, ", red(fmt.Sprintf("%d failed", result.Failed)))
	}
	fmt.Fprintf(f.writer, "%d total\n", len(result.Outcomes))
	fmt.Fprintf(f.writer, "Time:     %dms\n", result.Duration.Milliseconds())
	if s := result.Stats; s != nil && s.Total > 0 {
		fmt.Fprintf(f.writer, "Latency:  %s\n", cyan(formatLatency(s)))
	}
	fmt.Fprintf(f.writer, "\n")
}

func (f *ConsoleFormatter) row(n int, o *runner.Outcome) consoleRow {
	method := ""
	if o.Request != nil {
		method = o.Request.Method.String()
	}

	r := consoleRow{
		cells: []string{strconv.Itoa(n), o.Name, method, truncate(o.URL(), maxCellWidth), "", formatDuration(o.Duration)},
	}

	if !o.Success() {
		r.cells[4] = "ERROR"
		r.paint = color.New(color.FgRed).SprintFunc()
		if o.Error != nil {
			r.err = o.Error.Error()
		}
		if f.pick != "" {
			r.cells = append(r.cells, "")
		}
		return r
	}

	resp := o.Response
	r.cells[4] = strconv.Itoa(resp.StatusCode)
	r.paint = statusColor(resp)

	if f.pick != "" {
		picked := ""
		if resp.IsJSON() || gjson.ValidBytes(resp.Body) {
			if v := gjson.GetBytes(resp.Body, f.pick); v.Exists() {
				picked = truncate(v.String(), maxCellWidth)
			}
		}
		r.cells = append(r.cells, picked)
	}

	if f.verbose && len(resp.Body) > 0 {
		r.body = formatBody(resp.Body)
	}
	return r
}

func (f *ConsoleFormatter) FormatError(err error) {
	red := color.New(color.FgRed).SprintFunc()
	fmt.Fprintf(f.writer, "%s %v\n", red("Error:"), err)
}

func (f *ConsoleFormatter) FormatHeader(version string) {
	bold := color.New(color.Bold).SprintFunc()
	fmt.Fprintf(f.writer, "%s %s\n", bold("corkscrew"), version)
}

func statusColor(resp *http.Response) func(a ...any) string {
	switch {
	case resp.IsSuccess():
		return color.New(color.FgGreen).SprintFunc()
	case resp.IsRedirect(), resp.IsClientError():
		return color.New(color.FgYellow).SprintFunc()
	case resp.IsServerError():
		return color.New(color.FgRed).SprintFunc()
	default:
		return fmt.Sprint
	}
}

func joinCells(cells []string, widths []int) string {
	var b strings.Builder
	for i, c := range cells {
		if i > 0 {
			b.WriteString("  ")
		}
		b.WriteString(c)
		if i < len(cells)-1 {
			b.WriteString(strings.Repeat(" ", widths[i]-utf8.RuneCountInString(c)))
		}
	}
	return b.String()
}

// formatBody pretty-prints JSON bodies and returns anything else unchanged
func formatBody(body []byte) string {
	if gjson.ValidBytes(body) {
		return gjson.GetBytes(body, "@pretty").String()
	}
	return string(body)
}

func formatLatency(s *stats.Summary) string {
	return fmt.Sprintf("min %s, mean %s, p50 %s, p95 %s, p99 %s, max %s",
		formatDuration(s.Min), formatDuration(s.Mean), formatDuration(s.P50),
		formatDuration(s.P95), formatDuration(s.P99), formatDuration(s.Max))
}

func formatDuration(d time.Duration) string {
	if d < time.Millisecond {
		return fmt.Sprintf("%dµs", d.Microseconds())
	}
	return fmt.Sprintf("%dms", d.Milliseconds())
}

func truncate(s string, maxLen int) string {
	if len(s) > maxLen {
		return s[:maxLen-3] + "..."
	}
	return s
}
