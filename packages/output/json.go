package output

import (
	"encoding/json"
	"errors"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"

	"github.com/nixpig/corkscrew/packages/core/runner"
	"github.com/nixpig/corkscrew/packages/http"
	"github.com/nixpig/corkscrew/packages/stats"
)

// JSONOutput represents the complete JSON output structure
type JSONOutput struct {
	RunID    string        `json:"runId"`
	File     string        `json:"file,omitempty"`
	Summary  JSONSummary   `json:"summary"`
	Outcomes []JSONOutcome `json:"outcomes"`
	Stats    *JSONStats    `json:"stats,omitempty"`
	Duration float64       `json:"duration"`
	Time     string        `json:"time"`
	Error    string        `json:"error,omitempty"`
}

type JSONSummary struct {
	Total     int `json:"total"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

// JSONOutcome is one dispatched request. Response is set on success, Error
// on failure.
type JSONOutcome struct {
	Name     string          `json:"name"`
	Success  bool            `json:"success"`
	Duration float64         `json:"duration"`
	Request  *JSONRequest    `json:"request,omitempty"`
	Response *JSONResponse   `json:"response,omitempty"`
	Picked   json.RawMessage `json:"picked,omitempty"`
	Error    string          `json:"error,omitempty"`
	Timeout  bool            `json:"timeout,omitempty"`
}

type JSONRequest struct {
	Method  string            `json:"method"`
	URL     string            `json:"url"`
	Headers map[string]string `json:"headers,omitempty"`
}

type JSONResponse struct {
	StatusCode int               `json:"statusCode"`
	Status     string            `json:"status"`
	URL        string            `json:"url"`
	Headers    map[string]string `json:"headers,omitempty"`
	Body       string            `json:"body"`
	Duration   float64           `json:"duration"`
}

// JSONStats holds latencies in milliseconds
type JSONStats struct {
	Total    int64   `json:"total"`
	Timeouts int64   `json:"timeouts"`
	RPS      float64 `json:"rps"`
	Min      float64 `json:"min"`
	Mean     float64 `json:"mean"`
	P50      float64 `json:"p50"`
	P95      float64 `json:"p95"`
	P99      float64 `json:"p99"`
	Max      float64 `json:"max"`
}

// JSONFormatter formats run results as a single JSON document
type JSONFormatter struct {
	writer io.Writer
	pick   string
	output JSONOutput
}

type JSONOption func(*JSONFormatter)

func NewJSONFormatter(opts ...JSONOption) *JSONFormatter {
	f := &JSONFormatter{
		writer: os.Stdout,
		output: JSONOutput{
			RunID:    uuid.NewString(),
			Outcomes: make([]JSONOutcome, 0),
		},
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func JSONWithWriter(w io.Writer) JSONOption {
	return func(f *JSONFormatter) {
		f.writer = w
	}
}

// JSONWithPick adds the value at a gjson path of each JSON response body
func JSONWithPick(path string) JSONOption {
	return func(f *JSONFormatter) {
		f.pick = path
	}
}

func (f *JSONFormatter) FormatResult(result *runner.RunResult) {
	f.output.File = result.File
	if result.Stats != nil {
		f.output.Stats = toJSONStats(result.Stats)
	}

	for _, o := range result.Outcomes {
		out := JSONOutcome{
			Name:     o.Name,
			Success:  o.Success(),
			Duration: millis(o.Duration),
		}

		if o.Request != nil {
			out.Request = &JSONRequest{
				Method:  o.Request.Method.String(),
				URL:     http.Redact(o.Request.BuildURL()),
				Headers: o.Request.Headers,
			}
		}

		if o.Error != nil {
			out.Error = o.Error.Error()
			var transportErr *http.TransportError
			out.Timeout = errors.As(o.Error, &transportErr) && transportErr.Timeout()
		}

		if resp := o.Response; resp != nil {
			out.Response = &JSONResponse{
				StatusCode: resp.StatusCode,
				Status:     resp.Status,
				URL:        resp.URL,
				Headers:    resp.Headers,
				Body:       resp.BodyString(),
				Duration:   millis(resp.Duration),
			}
			if f.pick != "" && gjson.ValidBytes(resp.Body) {
				if v := gjson.GetBytes(resp.Body, f.pick); v.Exists() {
					out.Picked = json.RawMessage(v.Raw)
				}
			}
		}

		f.output.Outcomes = append(f.output.Outcomes, out)
	}
}

func (f *JSONFormatter) FormatError(err error) {
	f.output.Error = err.Error()
}

func (f *JSONFormatter) FormatHeader(version string) {
	// No header needed for JSON output
}

// Flush writes the accumulated JSON output
func (f *JSONFormatter) Flush(totalDuration time.Duration) error {
	var succeeded, failed int
	for _, o := range f.output.Outcomes {
		if o.Success {
			succeeded++
		} else {
			failed++
		}
	}

	f.output.Summary = JSONSummary{
		Total:     len(f.output.Outcomes),
		Succeeded: succeeded,
		Failed:    failed,
	}
	f.output.Duration = millis(totalDuration)
	f.output.Time = time.Now().Format(time.RFC3339)

	encoder := json.NewEncoder(f.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(f.output)
}

func toJSONStats(s *stats.Summary) *JSONStats {
	return &JSONStats{
		Total:    s.Total,
		Timeouts: s.Timeouts,
		RPS:      s.RPS,
		Min:      millis(s.Min),
		Mean:     millis(s.Mean),
		P50:      millis(s.P50),
		P95:      millis(s.P95),
		P99:      millis(s.P99),
		Max:      millis(s.Max),
	}
}

func millis(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}
