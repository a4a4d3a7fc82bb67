// Package progress reports hashing throughput and ETA.
package progress

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
)

// Event describes hashing status at a point in time.
type Event struct {
	Bytes      uint64
	Total      uint64
	AverageBps float64
	ETA        time.Duration
	Elapsed    time.Duration
}

// Reporter prints throttled progress lines for one input. It is safe for use
// by several goroutines sharing a writer.
type Reporter struct {
	mu         *sync.Mutex
	w          io.Writer
	name       string
	total      uint64
	start      time.Time
	lastTick   time.Time
	minTickGap time.Duration
	now        func() time.Time
}

// NewReporter creates a reporter for an input of total bytes. A zero total
// means the size is unknown.
func NewReporter(w io.Writer, mu *sync.Mutex, name string, total uint64) *Reporter {
	if mu == nil {
		mu = &sync.Mutex{}
	}
	r := &Reporter{w: w, mu: mu, name: name, total: total, minTickGap: 250 * time.Millisecond, now: time.Now}
	r.start = r.now()
	r.lastTick = r.start
	return r
}

// Update prints progress when enough time has passed since the last line.
func (r *Reporter) Update(bytes uint64) {
	now := r.now()
	if now.Sub(r.lastTick) < r.minTickGap {
		return
	}
	r.lastTick = now
	e := r.buildEvent(bytes, now)
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.total > 0 {
		_, _ = fmt.Fprintf(r.w, "%s: %s/%s %s/s eta %s\n", r.name, humanize.IBytes(e.Bytes), humanize.IBytes(e.Total), humanize.IBytes(uint64(e.AverageBps)), humanDuration(e.ETA))
		return
	}
	_, _ = fmt.Fprintf(r.w, "%s: %s %s/s\n", r.name, humanize.IBytes(e.Bytes), humanize.IBytes(uint64(e.AverageBps)))
}

// Done prints the final summary.
func (r *Reporter) Done(bytes uint64) {
	e := r.buildEvent(bytes, r.now())
	r.mu.Lock()
	defer r.mu.Unlock()
	_, _ = fmt.Fprintf(r.w, "%s: hashed %s in %s (%s/s)\n", r.name, humanize.IBytes(e.Bytes), humanDuration(e.Elapsed), humanize.IBytes(uint64(e.AverageBps)))
}

func (r *Reporter) buildEvent(bytes uint64, now time.Time) Event {
	elapsed := now.Sub(r.start)
	if elapsed <= 0 {
		elapsed = time.Millisecond
	}
	avg := float64(bytes) / elapsed.Seconds()
	remaining := uint64(0)
	if bytes < r.total {
		remaining = r.total - bytes
	}
	eta := time.Duration(0)
	if avg > 0 && remaining > 0 {
		eta = time.Duration(float64(remaining) / avg * float64(time.Second))
	}
	return Event{Bytes: bytes, Total: r.total, AverageBps: avg, ETA: eta, Elapsed: elapsed}
}

func humanDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	return d.Truncate(time.Second).String()
}
