// Package metrics counts per-source pipeline events and, when configured,
// publishes them to CloudWatch on an interval.
package metrics

import (
	"context"
	"sync"
	"time"

	"quoteflow/internal/market"
	"quoteflow/logger"
)

type counters struct {
	frames     int64
	reconnects int64
	drops      int64
}

var (
	mu      sync.Mutex
	perSrc  = map[market.Source]*counters{}
	started bool
)

func get(src market.Source) *counters {
	c, ok := perSrc[src]
	if !ok {
		c = &counters{}
		perSrc[src] = c
	}
	return c
}

// CountFrame records one processed message frame for a source.
func CountFrame(src market.Source) {
	mu.Lock()
	get(src).frames++
	mu.Unlock()
}

// CountReconnect records one reconnect attempt for a source.
func CountReconnect(src market.Source) {
	mu.Lock()
	get(src).reconnects++
	mu.Unlock()
}

// CountDrop records one discarded frame, e.g. unparsable payloads.
func CountDrop(src market.Source) {
	mu.Lock()
	get(src).drops++
	mu.Unlock()
}

// Counts is one source's totals since process start.
type Counts struct {
	Frames     int64 `json:"frames"`
	Reconnects int64 `json:"reconnects"`
	Drops      int64 `json:"drops"`
}

// Snapshot copies the current totals for every source that has recorded
// anything.
func Snapshot() map[market.Source]Counts {
	mu.Lock()
	defer mu.Unlock()
	out := make(map[market.Source]Counts, len(perSrc))
	for src, c := range perSrc {
		out[src] = Counts{Frames: c.frames, Reconnects: c.reconnects, Drops: c.drops}
	}
	return out
}

// swapDeltas returns the counts accumulated since the previous call and
// resets the accumulators, so each reporting period publishes deltas.
func swapDeltas() map[market.Source]Counts {
	mu.Lock()
	defer mu.Unlock()
	out := make(map[market.Source]Counts, len(perSrc))
	for src, c := range perSrc {
		if c.frames == 0 && c.reconnects == 0 && c.drops == 0 {
			continue
		}
		out[src] = Counts{Frames: c.frames, Reconnects: c.reconnects, Drops: c.drops}
		c.frames, c.reconnects, c.drops = 0, 0, 0
	}
	return out
}

// StartReporting publishes accumulated counters every interval until the
// context is cancelled. Safe to call when CloudWatch was never initialised;
// publishing is then a no-op and only the log line remains.
func StartReporting(ctx context.Context, interval time.Duration) {
	mu.Lock()
	if started {
		mu.Unlock()
		return
	}
	started = true
	mu.Unlock()

	if interval <= 0 {
		interval = time.Minute
	}
	log := logger.GetLogger()

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				deltas := swapDeltas()
				for src, c := range deltas {
					log.LogMetric("metrics", "frames", c.Frames, "counter", logger.Fields{"source": string(src)})
					log.LogMetric("metrics", "reconnects", c.Reconnects, "counter", logger.Fields{"source": string(src)})
					log.LogMetric("metrics", "drops", c.Drops, "counter", logger.Fields{"source": string(src)})
					publish(ctx, src, c)
				}
			}
		}
	}()
}
