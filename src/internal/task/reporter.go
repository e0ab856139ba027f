package task

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/crs4/hadoop-galaxy/src/internal/log"
)

var counterMetric = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "hadoop_galaxy",
	Subsystem: "task",
	Name:      "counter_total",
	Help:      "Counters reported by running tasks, by entry point, group and name.",
}, []string{"entry_point", "group", "name"})

// Report line prefixes used by worker processes on stderr.
const (
	statusPrefix  = "reporter:status:"
	counterPrefix = "reporter:counter:"
)

// LogReporter logs status updates at debug level and adds counters to Prometheus and to Counters.
type LogReporter struct {
	ctx        context.Context
	entryPoint string
	counters   *Counters
}

// NewLogReporter returns a reporter for one task of a job running entryPoint.
func NewLogReporter(ctx context.Context, entryPoint string, counters *Counters) *LogReporter {
	return &LogReporter{ctx: ctx, entryPoint: entryPoint, counters: counters}
}

func (r *LogReporter) Status(msg string) {
	log.Debug(r.ctx, "task status", zap.String("status", msg))
}

func (r *LogReporter) Count(group, name string, n int64) {
	counterMetric.WithLabelValues(r.entryPoint, group, name).Add(float64(n))
	if r.counters != nil {
		r.counters.Add(group, name, n)
	}
}

// StreamReporter writes reports as text lines, for a worker process to send to its executor.
type StreamReporter struct {
	mu sync.Mutex
	w  io.Writer
}

// NewStreamReporter returns a reporter writing to w.
func NewStreamReporter(w io.Writer) *StreamReporter {
	return &StreamReporter{w: w}
}

func (r *StreamReporter) Status(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(r.w, "%s%s\n", statusPrefix, strings.ReplaceAll(msg, "\n", " "))
}

func (r *StreamReporter) Count(group, name string, n int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(r.w, "%s%s,%s,%d\n", counterPrefix, group, name, n)
}

// ParseReport delivers a line written by a StreamReporter to r.  It returns false for lines that
// are not reports.
func ParseReport(line string, r Reporter) bool {
	switch {
	case strings.HasPrefix(line, statusPrefix):
		r.Status(strings.TrimPrefix(line, statusPrefix))
		return true
	case strings.HasPrefix(line, counterPrefix):
		rest := strings.TrimPrefix(line, counterPrefix)
		i := strings.LastIndexByte(rest, ',')
		if i < 0 {
			return false
		}
		n, err := strconv.ParseInt(rest[i+1:], 10, 64)
		if err != nil {
			return false
		}
		group, name, ok := strings.Cut(rest[:i], ",")
		if !ok {
			return false
		}
		r.Count(group, name, n)
		return true
	}
	return false
}

// Counters accumulates the counters of a job.
type Counters struct {
	mu sync.Mutex
	m  map[string]int64
}

func counterKey(group, name string) string {
	return group + "/" + name
}

// Add adds n to a counter.
func (c *Counters) Add(group, name string, n int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.m == nil {
		c.m = make(map[string]int64)
	}
	c.m[counterKey(group, name)] += n
}

// Get returns the value of a counter.
func (c *Counters) Get(group, name string) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.m[counterKey(group, name)]
}
