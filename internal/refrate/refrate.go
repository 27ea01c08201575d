package refrate

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"quoteflow/logger"
)

// usdtUsdFeedID is the Hermes price-feed id for USDT/USD.
const usdtUsdFeedID = "2b89b9dc8fdf9f34709a5b106b472f0f39bb6ca9ce04b0fd7f2e971688e2e53b"

// DefaultURL is the Hermes latest-price endpoint for the USDT/USD feed.
const DefaultURL = "https://hermes.pyth.network/v2/updates/price/latest?ids%5B%5D=" + usdtUsdFeedID

// Provider maintains the shared USDT to USD conversion rate. The rate is
// refreshed on an interval; fetch failures keep the previous value, and the
// rate reads as unknown until the first successful fetch. Consumers never
// block on a fetch.
type Provider struct {
	url      string
	interval time.Duration
	client   *http.Client

	mu    sync.RWMutex
	rate  float64
	known bool

	fetchMu     sync.Mutex
	fetchCancel context.CancelFunc

	wg     sync.WaitGroup
	cancel context.CancelFunc
	log    *logger.Entry
}

// New builds a provider polling url every interval. Zero values fall back to
// the Hermes endpoint and a 10 second cadence.
func New(url string, interval time.Duration) *Provider {
	if url == "" {
		url = DefaultURL
	}
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &Provider{
		url:      url,
		interval: interval,
		client:   &http.Client{Timeout: 8 * time.Second},
		rate:     1.0,
		log:      logger.GetLogger().WithComponent("refrate"),
	}
}

// Start fetches immediately and then on the configured interval until the
// context is cancelled.
func (p *Provider) Start(ctx context.Context) {
	ctx, p.cancel = context.WithCancel(ctx)
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.fetch(ctx)
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				p.fetch(ctx)
			}
		}
	}()
}

// Stop aborts any in-flight fetch and stops the refresh loop.
func (p *Provider) Stop() {
	if p.cancel != nil {
		p.cancel()
	}
	p.abortInFlight()
	p.wg.Wait()
}

// Rate returns the latest conversion rate and whether it has ever been
// successfully fetched. Adapters that need the rate suppress emission while
// it is unknown.
func (p *Provider) Rate() (float64, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.rate, p.known
}

func (p *Provider) abortInFlight() {
	p.fetchMu.Lock()
	if p.fetchCancel != nil {
		p.fetchCancel()
		p.fetchCancel = nil
	}
	p.fetchMu.Unlock()
}

// hermesResponse mirrors the subset of the Hermes latest-price payload the
// provider needs: the first parsed update's price and exponent.
type hermesResponse struct {
	Parsed []struct {
		Price struct {
			Price string `json:"price"`
			Expo  int    `json:"expo"`
		} `json:"price"`
	} `json:"parsed"`
}

func (p *Provider) fetch(ctx context.Context) {
	// A new fetch cycle invalidates the previous one; a stale in-flight
	// response can never overwrite a newer rate.
	p.abortInFlight()
	fctx, cancel := context.WithCancel(ctx)
	p.fetchMu.Lock()
	p.fetchCancel = cancel
	p.fetchMu.Unlock()
	defer cancel()

	rate, err := p.fetchOnce(fctx)
	if err != nil {
		p.log.WithError(err).Debug("reference rate fetch failed, keeping previous value")
		return
	}

	p.mu.Lock()
	p.rate = rate
	p.known = true
	p.mu.Unlock()
}

func (p *Provider) fetchOnce(ctx context.Context) (float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return 0, err
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var body hermesResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, err
	}
	if len(body.Parsed) == 0 {
		return 0, fmt.Errorf("empty parsed price list")
	}

	raw, err := strconv.ParseFloat(body.Parsed[0].Price.Price, 64)
	if err != nil {
		return 0, fmt.Errorf("unparseable price: %w", err)
	}
	rate := raw * math.Pow(10, float64(body.Parsed[0].Price.Expo))
	if rate <= 0 {
		return 0, fmt.Errorf("non-positive rate %f", rate)
	}
	return rate, nil
}
