package store

import (
	"sync"

	"quoteflow/internal/market"
	"quoteflow/logger"
)

// Store is the single authoritative holder of per-source, per-symbol metrics,
// per-source connection statuses and the currently selected symbol. It is the
// only shared mutable state in the aggregation core and is mutated solely
// through AddDataPoint, SetStatus and SelectSymbol, each of which is atomic
// with respect to readers. It is safe for concurrent use.
type Store struct {
	mu       sync.RWMutex
	selected market.Symbol
	latest   map[market.Source]map[market.Symbol]market.Metric
	statuses map[market.Source]market.Status

	subMu   sync.Mutex
	subs    map[int]chan struct{}
	nextSub int

	log *logger.Log
}

// State is a point-in-time snapshot handed to readers. Maps are deep copies;
// mutating a snapshot never affects the store.
type State struct {
	Selected market.Symbol                                    `json:"selected"`
	Latest   map[market.Source]map[market.Symbol]market.Metric `json:"latest"`
	Statuses map[market.Source]market.Status                   `json:"statuses"`
}

func New() *Store {
	return &Store{
		latest:   make(map[market.Source]map[market.Symbol]market.Metric),
		statuses: initialStatuses(),
		subs:     make(map[int]chan struct{}),
		log:      logger.GetLogger(),
	}
}

func initialStatuses() map[market.Source]market.Status {
	m := make(map[market.Source]market.Status, len(market.AllSources))
	for _, src := range market.AllSources {
		m[src] = market.StatusClosed
	}
	return m
}

// SelectSymbol replaces the entire state with a fresh one whose only
// populated field is the new selection. The wholesale reset guarantees old
// and new selections' data are never visible together.
func (s *Store) SelectSymbol(sym market.Symbol) {
	s.mu.Lock()
	s.selected = sym
	s.latest = make(map[market.Source]map[market.Symbol]market.Metric)
	s.statuses = initialStatuses()
	s.mu.Unlock()

	s.log.WithComponent("store").WithFields(logger.Fields{"symbol": string(sym)}).Info("selection changed, state reset")
	s.notify()
}

// Selected returns the currently selected symbol ("" when nothing is
// selected).
func (s *Store) Selected() market.Symbol {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selected
}

// AddDataPoint folds one tick into the metric for (src, sym). The previous
// metric for the same key, if any, supplies previousPrice; all other keys are
// left untouched.
func (s *Store) AddDataPoint(src market.Source, sym market.Symbol, tick market.Tick) {
	s.mu.Lock()
	bySymbol, ok := s.latest[src]
	if !ok {
		bySymbol = make(map[market.Symbol]market.Metric)
		s.latest[src] = bySymbol
	}
	if prev, ok := bySymbol[sym]; ok {
		bySymbol[sym] = prev.Next(tick)
	} else {
		bySymbol[sym] = market.First(tick)
	}
	s.mu.Unlock()

	s.notify()
}

// SetStatus records the connection status for one source, independent of any
// price data.
func (s *Store) SetStatus(src market.Source, status market.Status) {
	s.mu.Lock()
	prev := s.statuses[src]
	s.statuses[src] = status
	s.mu.Unlock()

	if prev != status {
		s.log.WithComponent("store").WithFields(logger.Fields{
			"source": string(src),
			"status": string(status),
		}).Debug("source status changed")
	}
	s.notify()
}

// Status returns the recorded status for one source.
func (s *Store) Status(src market.Source) market.Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if st, ok := s.statuses[src]; ok {
		return st
	}
	return market.StatusClosed
}

// Metric returns the latest metric for (src, sym).
func (s *Store) Metric(src market.Source, sym market.Symbol) (market.Metric, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.latest[src][sym]
	return m, ok
}

// Snapshot returns a deep copy of the whole state.
func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()

	latest := make(map[market.Source]map[market.Symbol]market.Metric, len(s.latest))
	for src, bySymbol := range s.latest {
		cp := make(map[market.Symbol]market.Metric, len(bySymbol))
		for sym, m := range bySymbol {
			cp[sym] = m
		}
		latest[src] = cp
	}
	statuses := make(map[market.Source]market.Status, len(s.statuses))
	for src, st := range s.statuses {
		statuses[src] = st
	}
	return State{Selected: s.selected, Latest: latest, Statuses: statuses}
}

// Subscribe registers an observer. The returned channel receives a signal
// after every mutation; signals are coalesced rather than queued, so a slow
// consumer sees at least one notification for any burst of updates. The
// cancel function releases the subscription.
func (s *Store) Subscribe() (<-chan struct{}, func()) {
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	ch := make(chan struct{}, 1)
	s.subs[id] = ch
	s.subMu.Unlock()

	cancel := func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
	return ch, cancel
}

func (s *Store) notify() {
	s.subMu.Lock()
	for _, ch := range s.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
	s.subMu.Unlock()
}
