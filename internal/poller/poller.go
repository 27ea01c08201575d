package poller

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"quoteflow/internal/market"
	"quoteflow/logger"
)

// Emitter receives normalized ticks. Satisfied by *store.Store.
type Emitter interface {
	AddDataPoint(src market.Source, sym market.Symbol, tick market.Tick)
}

// StatusSink receives connection-status updates. Satisfied by *store.Store.
type StatusSink interface {
	SetStatus(src market.Source, status market.Status)
}

// Poller drives a source that has no streaming feed: it polls a REST
// endpoint returning {price, timestamp} or {error} on a fixed interval. Each
// successful poll is one tick; polls that repeat the upstream timestamp are
// not re-emitted. A new cycle aborts the previous in-flight request, so a
// stale response can never land after newer data.
type Poller struct {
	source   market.Source
	sym      market.Symbol
	url      string
	interval time.Duration
	client   *http.Client
	limiter  *rate.Limiter
	emit     Emitter
	statuses StatusSink

	mu           sync.Mutex
	fetchCancel  context.CancelFunc
	lastUpstream int64

	cancel context.CancelFunc
	wg     sync.WaitGroup
	log    *logger.Entry
}

// Config for one polling source.
type Config struct {
	Source   market.Source
	Symbol   market.Symbol
	URL      string
	Interval time.Duration // defaults to 500ms
}

func New(cfg Config, emit Emitter, statuses StatusSink) *Poller {
	if cfg.Interval <= 0 {
		cfg.Interval = 500 * time.Millisecond
	}
	return &Poller{
		source:   cfg.Source,
		sym:      cfg.Symbol,
		url:      cfg.URL,
		interval: cfg.Interval,
		client:   &http.Client{Timeout: 5 * time.Second},
		// Cap request rate slightly above the nominal cadence so a burst of
		// interval drift cannot hammer the endpoint.
		limiter:  rate.NewLimiter(rate.Every(cfg.Interval), 2),
		emit:     emit,
		statuses: statuses,
		log: logger.GetLogger().WithComponent("poller").WithFields(logger.Fields{
			"source": string(cfg.Source),
			"symbol": string(cfg.Symbol),
		}),
	}
}

// Start polls immediately and then on the configured interval until the
// context is cancelled. A polling source reports connected while the loop
// runs; there is no transport handshake to track.
func (p *Poller) Start(ctx context.Context) {
	ctx, p.cancel = context.WithCancel(ctx)
	p.statuses.SetStatus(p.source, market.StatusConnected)

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.poll(ctx)
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				p.poll(ctx)
			}
		}
	}()
}

// Stop aborts any in-flight request, stops the loop and marks the source
// closed.
func (p *Poller) Stop() {
	if p.cancel != nil {
		p.cancel()
	}
	p.abortInFlight()
	p.wg.Wait()
	p.statuses.SetStatus(p.source, market.StatusClosed)
}

func (p *Poller) abortInFlight() {
	p.mu.Lock()
	if p.fetchCancel != nil {
		p.fetchCancel()
		p.fetchCancel = nil
	}
	p.mu.Unlock()
}

type pollResponse struct {
	Price     *float64 `json:"price"`
	Timestamp int64    `json:"timestamp"`
	Error     string   `json:"error"`
}

func (p *Poller) poll(ctx context.Context) {
	if !p.limiter.Allow() {
		return
	}

	p.abortInFlight()
	fctx, cancel := context.WithCancel(ctx)
	p.mu.Lock()
	p.fetchCancel = cancel
	p.mu.Unlock()
	defer cancel()

	res, err := p.fetchOnce(fctx)
	if err != nil {
		if ctx.Err() == nil {
			p.log.WithError(err).Debug("poll failed")
		}
		return
	}

	p.mu.Lock()
	dup := res.Timestamp == p.lastUpstream
	if !dup {
		p.lastUpstream = res.Timestamp
	}
	p.mu.Unlock()
	if dup {
		return
	}

	p.emit.AddDataPoint(p.source, p.sym, market.Tick{
		Price:     *res.Price,
		Timestamp: time.Now().UnixMilli(),
	})
}

func (p *Poller) fetchOnce(ctx context.Context) (*pollResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var body pollResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, err
	}
	if body.Error != "" {
		return nil, fmt.Errorf("upstream error: %s", body.Error)
	}
	if body.Price == nil {
		return nil, fmt.Errorf("response missing price")
	}
	return &body, nil
}
