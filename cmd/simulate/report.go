package main

import (
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Target is one bookable (doctor, date, time).
type Target struct {
	DoctorID int64
	Date     string
	Time     string
}

func (t Target) String() string {
	return fmt.Sprintf("doctor=%d %s %s", t.DoctorID, t.Date, t.Time)
}

// TargetPool tracks which targets the simulator currently holds. A target
// seen with two live bookings means the server let a double booking through.
type TargetPool struct {
	Targets []Target

	mu         sync.Mutex
	live       map[Target][]uuid.UUID
	violations map[Target]struct{}
}

func newTargetPool() *TargetPool {
	return &TargetPool{
		live:       make(map[Target][]uuid.UUID),
		violations: make(map[Target]struct{}),
	}
}

func (p *TargetPool) Booked(t Target, id uuid.UUID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.live[t] = append(p.live[t], id)
	if len(p.live[t]) > 1 {
		p.violations[t] = struct{}{}
	}
}

// TakeBooking picks a random live booking for cancellation.
func (p *TargetPool) TakeBooking(rng *rand.Rand) (Target, uuid.UUID, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.live) == 0 {
		return Target{}, uuid.Nil, false
	}
	n := rng.Intn(len(p.live))
	for t, ids := range p.live {
		if n == 0 {
			return t, ids[0], true
		}
		n--
	}
	return Target{}, uuid.Nil, false
}

func (p *TargetPool) Cancelled(t Target, id uuid.UUID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	ids := p.live[t]
	for i, v := range ids {
		if v == id {
			ids = append(ids[:i], ids[i+1:]...)
			break
		}
	}
	if len(ids) == 0 {
		delete(p.live, t)
		return
	}
	p.live[t] = ids
}

func (p *TargetPool) Violations() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.violations))
	for t := range p.violations {
		out = append(out, t.String())
	}
	sort.Strings(out)
	return out
}

type outcome int

const (
	outcomeSuccess outcome = iota
	outcomeConflict
	outcomeError
)

type OperationMetrics struct {
	Total     int64
	Success   int64
	Conflict  int64
	Error     int64
	Latencies []time.Duration
	mu        sync.Mutex
}

func (om *OperationMetrics) Record(latency time.Duration, o outcome) {
	atomic.AddInt64(&om.Total, 1)
	switch o {
	case outcomeSuccess:
		atomic.AddInt64(&om.Success, 1)
	case outcomeConflict:
		atomic.AddInt64(&om.Conflict, 1)
	default:
		atomic.AddInt64(&om.Error, 1)
	}

	om.mu.Lock()
	om.Latencies = append(om.Latencies, latency)
	om.mu.Unlock()
}

func (om *OperationMetrics) Stats() (avg, min, max, p50, p95 time.Duration) {
	om.mu.Lock()
	defer om.mu.Unlock()

	if len(om.Latencies) == 0 {
		return 0, 0, 0, 0, 0
	}

	latencies := make([]time.Duration, len(om.Latencies))
	copy(latencies, om.Latencies)
	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })

	var sum time.Duration
	for _, l := range latencies {
		sum += l
	}

	avg = sum / time.Duration(len(latencies))
	min = latencies[0]
	max = latencies[len(latencies)-1]
	p50 = latencies[percentileIndex(len(latencies), 50)]
	p95 = latencies[percentileIndex(len(latencies), 95)]
	return avg, min, max, p50, p95
}

func percentileIndex(n, pct int) int {
	idx := n * pct / 100
	if idx >= n {
		idx = n - 1
	}
	return idx
}

type Metrics struct {
	Booking      OperationMetrics
	Cancel       OperationMetrics
	Availability OperationMetrics
}

func (s *Simulator) PrintReport() {
	fmt.Println("\n" + strings.Repeat("=", 80))
	fmt.Println("SIMULATION REPORT")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("Duration: %s\n", s.config.Duration)
	fmt.Printf("Workers: %d\n", s.config.Workers)
	fmt.Printf("Targets: %d\n", len(s.pool.Targets))
	fmt.Println()

	printOperationReport("Booking", &s.metrics.Booking)
	printOperationReport("Cancel", &s.metrics.Cancel)
	printOperationReport("Availability", &s.metrics.Availability)

	if v := s.pool.Violations(); len(v) > 0 {
		fmt.Printf("DOUBLE BOOKINGS: %d\n", len(v))
	} else {
		fmt.Println("No double bookings observed.")
	}
}

func printOperationReport(name string, om *OperationMetrics) {
	total := atomic.LoadInt64(&om.Total)
	if total == 0 {
		return
	}

	success := atomic.LoadInt64(&om.Success)
	conflict := atomic.LoadInt64(&om.Conflict)
	failed := atomic.LoadInt64(&om.Error)

	avg, min, max, p50, p95 := om.Stats()

	fmt.Printf("%s:\n", name)
	fmt.Printf("  Total: %d\n", total)
	fmt.Printf("  Success: %d (%.1f%%)\n", success, float64(success)/float64(total)*100)
	if conflict > 0 {
		fmt.Printf("  Conflicts: %d (%.1f%%)\n", conflict, float64(conflict)/float64(total)*100)
	}
	if failed > 0 {
		fmt.Printf("  Errors: %d (%.1f%%)\n", failed, float64(failed)/float64(total)*100)
	}
	fmt.Printf("  Latency: avg=%s min=%s max=%s p50=%s p95=%s\n",
		avg.Round(time.Millisecond), min.Round(time.Millisecond), max.Round(time.Millisecond),
		p50.Round(time.Millisecond), p95.Round(time.Millisecond))
	fmt.Println()
}
