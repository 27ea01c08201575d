// Package orchestrator decides, for the selected symbol, which sources are
// enabled, and owns the supervisors, adapters and pollers that feed the
// aggregation store.
package orchestrator

import (
	"context"
	"fmt"
	"net/url"
	"sync"

	"github.com/google/uuid"

	"quoteflow/config"
	"quoteflow/internal/adapter"
	"quoteflow/internal/market"
	"quoteflow/internal/metrics"
	"quoteflow/internal/poller"
	"quoteflow/internal/store"
	"quoteflow/internal/stream"
	"quoteflow/logger"
)

// Orchestrator wires the per-source pipelines for one selected symbol at a
// time. Selecting a new symbol tears everything down, resets the store and
// builds fresh pipelines; the store reset plus the supervisors' teardown
// guarantee no data or subscription from the old symbol survives.
type Orchestrator struct {
	cfg   *config.Config
	store *store.Store
	rates adapter.RateSource

	mu      sync.Mutex
	ctx     context.Context
	runners map[market.Source]*runner
	pollers map[market.Source]*poller.Poller

	log *logger.Entry
}

// runner couples one supervisor with its adapter and the drain loop that
// moves frames between them.
type runner struct {
	sup *stream.Supervisor
	ad  adapter.Adapter
	wg  sync.WaitGroup
}

func New(cfg *config.Config, st *store.Store, rates adapter.RateSource) *Orchestrator {
	return &Orchestrator{
		cfg:     cfg,
		store:   st,
		rates:   rates,
		runners: make(map[market.Source]*runner),
		pollers: make(map[market.Source]*poller.Poller),
		log:     logger.GetLogger().WithComponent("orchestrator"),
	}
}

// Start records the root context used for all subsequently created pipelines.
func (o *Orchestrator) Start(ctx context.Context) {
	o.mu.Lock()
	o.ctx = ctx
	o.mu.Unlock()
}

// SelectSymbol switches the whole system to a new instrument. An empty
// symbol tears everything down and leaves nothing selected; an unknown
// symbol is rejected without touching the current selection.
func (o *Orchestrator) SelectSymbol(sym market.Symbol) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.ctx == nil {
		return fmt.Errorf("orchestrator not started")
	}
	// Reject before touching anything so a bad symbol cannot disturb the
	// running selection.
	if sym != "" && !market.IsAllowed(sym) {
		return fmt.Errorf("unknown symbol %q", sym)
	}

	o.teardownLocked()
	o.store.SelectSymbol(sym)

	if sym == "" {
		return nil
	}

	for _, src := range market.SourcesFor(sym) {
		srcCfg, ok := o.cfg.Sources.ForSource(string(src))
		if !ok || !srcCfg.Enabled {
			continue
		}
		if market.RequiresCredential(src) && srcCfg.Token() == "" {
			// Missing credential degrades to "source unavailable", never an
			// error.
			o.log.WithFields(logger.Fields{"source": string(src)}).Debug("source disabled, credential not configured")
			continue
		}

		if src == market.SourceYahoo {
			o.startPollerLocked(src, sym, srcCfg)
			continue
		}
		o.startStreamLocked(src, sym, srcCfg)
	}

	o.log.WithFields(logger.Fields{
		"symbol":  string(sym),
		"streams": len(o.runners),
		"pollers": len(o.pollers),
	}).Info("symbol selected, pipelines started")
	return nil
}

// Reconnect forces a redial of one source's connection. This is the only
// reconnect path when auto-reconnect is off.
func (o *Orchestrator) Reconnect(src market.Source) {
	o.mu.Lock()
	r := o.runners[src]
	o.mu.Unlock()
	if r != nil {
		r.sup.Reconnect()
	}
}

// Close tears down all pipelines.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.teardownLocked()
}

func (o *Orchestrator) startStreamLocked(src market.Source, sym market.Symbol, srcCfg config.SourceConfig) {
	u, ok := o.buildURL(src, sym, srcCfg)
	if !ok {
		// No mapping for this symbol on this provider; nothing to connect.
		return
	}

	ad, ok := adapter.New(src, sym, o.store, o.rates)
	if !ok {
		return
	}

	sup := stream.NewSupervisor(stream.Config{
		URL:           u,
		Source:        src,
		AutoReconnect: srcCfg.AutoReconnect,
		OnStatus: func(st market.Status) {
			o.store.SetStatus(src, st)
			if st == market.StatusReconnecting {
				metrics.CountReconnect(src)
			}
		},
	})

	r := &runner{sup: sup, ad: ad}
	if err := sup.Start(o.ctx); err != nil {
		o.log.WithError(err).WithFields(logger.Fields{"source": string(src)}).Warn("failed to start supervisor")
		return
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		o.drain(r)
	}()

	o.runners[src] = r
}

// drain moves frames from the supervisor into the adapter. One goroutine per
// source keeps per-connection frame ordering intact, which is what makes the
// store's sequential per-key updates sound.
func (o *Orchestrator) drain(r *runner) {
	defer r.ad.OnClose()
	for frame := range r.sup.Frames() {
		switch frame.Kind {
		case stream.FrameOpen:
			r.ad.OnOpen(r.sup)
		case stream.FrameMessage:
			r.ad.OnMessage(r.sup, frame.Data)
			metrics.CountFrame(r.ad.Source())
		case stream.FrameClosed:
			r.ad.OnClose()
		}
	}
}

func (o *Orchestrator) startPollerLocked(src market.Source, sym market.Symbol, srcCfg config.SourceConfig) {
	p := poller.New(poller.Config{
		Source:   src,
		Symbol:   sym,
		URL:      srcCfg.URL,
		Interval: srcCfg.Interval,
	}, o.store, o.store)
	p.Start(o.ctx)
	o.pollers[src] = p
}

func (o *Orchestrator) teardownLocked() {
	for src, r := range o.runners {
		r.sup.Close()
		r.wg.Wait()
		delete(o.runners, src)
	}
	for src, p := range o.pollers {
		p.Stop()
		delete(o.pollers, src)
	}
}

// buildURL computes the provider connection URL for the symbol: path
// segments for providers that encode the subscription in the URL, query
// string credentials, and a uuid cache-buster on every URL. Some transports
// key connection reuse on the URL, so a fresh query parameter per selection
// forces a genuinely new connection.
func (o *Orchestrator) buildURL(src market.Source, sym market.Symbol, srcCfg config.SourceConfig) (string, bool) {
	base := srcCfg.URL

	if src == market.SourceBinance {
		path, ok := adapter.BinanceStreamPath(sym)
		if !ok {
			return "", false
		}
		base = base + "/" + path
	}

	u, err := url.Parse(base)
	if err != nil {
		o.log.WithError(err).WithFields(logger.Fields{"source": string(src)}).Warn("invalid source url")
		return "", false
	}

	q := u.Query()
	switch src {
	case market.SourcePythPro:
		q.Set("ACCESS_TOKEN", srcCfg.Token())
	case market.SourceInfoway:
		q.Set("apikey", srcCfg.Token())
	case market.SourceTwelveData:
		q.Set("apikey", srcCfg.Token())
	case market.SourcePrimeAPI:
		q.Set("token", srcCfg.Token())
	}
	q.Set("cb", uuid.NewString())
	u.RawQuery = q.Encode()

	return u.String(), true
}
