// Package stats aggregates per-run latency statistics.
package stats

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

const (
	// latencies are tracked in microseconds, 1us to 60s
	minTrackable = 1
	maxTrackable = 60_000_000
	sigFigures   = 3
)

// Collector records request latencies. It is safe for concurrent use.
type Collector struct {
	mu        sync.Mutex
	histogram *hdrhistogram.Histogram

	total     atomic.Int64
	succeeded atomic.Int64
	failed    atomic.Int64
	timeouts  atomic.Int64

	startTime time.Time
	endTime   time.Time
}

// Summary is a snapshot of a Collector.
type Summary struct {
	Duration  time.Duration `json:"duration"`
	Total     int64         `json:"total"`
	Succeeded int64         `json:"succeeded"`
	Failed    int64         `json:"failed"`
	Timeouts  int64         `json:"timeouts"`
	RPS       float64       `json:"rps"`

	Min    time.Duration `json:"min"`
	Max    time.Duration `json:"max"`
	Mean   time.Duration `json:"mean"`
	StdDev time.Duration `json:"stdDev"`
	P50    time.Duration `json:"p50"`
	P95    time.Duration `json:"p95"`
	P99    time.Duration `json:"p99"`
}

func NewCollector() *Collector {
	return &Collector{
		histogram: hdrhistogram.New(minTrackable, maxTrackable, sigFigures),
	}
}

// Start marks the beginning of the run
func (c *Collector) Start() {
	c.mu.Lock()
	c.startTime = time.Now()
	c.mu.Unlock()
}

// Stop marks the end of the run
func (c *Collector) Stop() {
	c.mu.Lock()
	c.endTime = time.Now()
	c.mu.Unlock()
}

// Record adds one dispatch. A nil err is a received response, whatever its
// status.
func (c *Collector) Record(duration time.Duration, err error) {
	c.total.Add(1)
	if err != nil {
		c.failed.Add(1)
		var t interface{ Timeout() bool }
		if errors.As(err, &t) && t.Timeout() {
			c.timeouts.Add(1)
		}
	} else {
		c.succeeded.Add(1)
	}

	latencyUs := duration.Microseconds()
	if latencyUs < minTrackable {
		latencyUs = minTrackable
	}
	if latencyUs > maxTrackable {
		latencyUs = maxTrackable
	}

	c.mu.Lock()
	_ = c.histogram.RecordValue(latencyUs)
	c.mu.Unlock()
}

func (c *Collector) Summary() *Summary {
	c.mu.Lock()
	defer c.mu.Unlock()

	duration := c.endTime.Sub(c.startTime)
	if c.endTime.IsZero() {
		duration = time.Since(c.startTime)
	}
	if c.startTime.IsZero() {
		duration = 0
	}

	s := &Summary{
		Duration:  duration,
		Total:     c.total.Load(),
		Succeeded: c.succeeded.Load(),
		Failed:    c.failed.Load(),
		Timeouts:  c.timeouts.Load(),
	}
	if s.Total == 0 {
		return s
	}

	if duration.Seconds() > 0 {
		s.RPS = float64(s.Total) / duration.Seconds()
	}

	s.Min = micros(c.histogram.Min())
	s.Max = micros(c.histogram.Max())
	s.Mean = micros(int64(c.histogram.Mean()))
	s.StdDev = micros(int64(c.histogram.StdDev()))
	s.P50 = micros(c.histogram.ValueAtQuantile(50))
	s.P95 = micros(c.histogram.ValueAtQuantile(95))
	s.P99 = micros(c.histogram.ValueAtQuantile(99))
	return s
}

func micros(v int64) time.Duration {
	return time.Duration(v) * time.Microsecond
}
