package waveshaper

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

// Throughput reporting.
const (
	// statsReportBusy is the processing time between throughput log lines.
	statsReportBusy = 100 * time.Millisecond

	// defaultStatsPoll is how often ReportStats samples the counters.
	defaultStatsPoll = 20 * time.Millisecond
)

// Stats is a snapshot of the processing counters since the session started.
type Stats struct {
	// Blocks is the number of successfully processed blocks.
	Blocks uint64

	// Samples counts interleaved samples, all channels included.
	Samples uint64

	// Busy is the time spent inside Process.
	Busy time.Duration
}

// SamplesPerSecond returns Samples divided by Busy, or 0 before any work.
func (s Stats) SamplesPerSecond() float64 {
	if s.Busy <= 0 {
		return 0
	}
	return float64(s.Samples) / s.Busy.Seconds()
}

// sub returns the counters accumulated since prev.
func (s Stats) sub(prev Stats) Stats {
	return Stats{
		Blocks:  s.Blocks - prev.Blocks,
		Samples: s.Samples - prev.Samples,
		Busy:    s.Busy - prev.Busy,
	}
}

// counters are updated once per block by the audio goroutine and read from
// anywhere.
type counters struct {
	blocks  atomic.Uint64
	samples atomic.Uint64
	busy    atomic.Int64
}

func (c *counters) record(samples int, d time.Duration) {
	c.blocks.Add(1)
	c.samples.Add(uint64(samples))
	c.busy.Add(int64(d))
}

func (c *counters) load() Stats {
	return Stats{
		Blocks:  c.blocks.Load(),
		Samples: c.samples.Load(),
		Busy:    time.Duration(c.busy.Load()),
	}
}

func (c *counters) reset() {
	c.blocks.Store(0)
	c.samples.Store(0)
	c.busy.Store(0)
}

// Stats returns the processing counters of the current or last session.
func (e *Effect) Stats() Stats {
	return e.stats.load()
}

// ReportStats logs throughput at debug level every time another 100 ms of
// processing time has accumulated. It polls the counters every poll interval
// (a default is used when poll <= 0) and returns when ctx is done.
// Run it on its own goroutine; Process itself never logs.
func (e *Effect) ReportStats(ctx context.Context, poll time.Duration) {
	if poll <= 0 {
		poll = defaultStatsPoll
	}
	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	var last Stats
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		cur := e.stats.load()
		if cur.Samples < last.Samples || cur.Busy < last.Busy {
			// A new session reset the counters.
			last = Stats{}
		}
		window := cur.sub(last)
		if window.Busy < statsReportBusy {
			continue
		}

		e.log.WithFields(logrus.Fields{
			"blocks":          window.Blocks,
			"samples":         window.Samples,
			"busy_ms":         window.Busy.Milliseconds(),
			"samples_per_sec": int64(window.SamplesPerSecond()),
		}).Debug("throughput")
		last = cur
	}
}
