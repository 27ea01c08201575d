// Package dashboard exposes the aggregation state and the symbol selection
// control over HTTP.
package dashboard

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"quoteflow/config"
	"quoteflow/internal/market"
	"quoteflow/internal/metrics"
	"quoteflow/internal/store"
	"quoteflow/logger"
)

// Selector is the control surface the dashboard drives. Satisfied by the
// orchestrator.
type Selector interface {
	SelectSymbol(sym market.Symbol) error
	Reconnect(src market.Source)
}

// Server hosts the JSON API over the aggregation store.
type Server struct {
	cfg        config.DashboardConfig
	log        *logger.Entry
	store      *store.Store
	selector   Selector
	httpServer *http.Server
}

// NewServer constructs a dashboard server when the dashboard feature is
// enabled. When the dashboard is disabled the returned server is nil.
func NewServer(cfg config.DashboardConfig, st *store.Store, sel Selector) *Server {
	if !cfg.Enabled {
		return nil
	}

	cfg.Listen = normalizeAddress(cfg.Listen)

	return &Server{
		cfg:      cfg,
		log:      logger.GetLogger().WithComponent("dashboard"),
		store:    st,
		selector: sel,
	}
}

// Run starts the HTTP server and blocks until the provided context is
// cancelled or the underlying server exits with an error.
func (s *Server) Run(ctx context.Context) error {
	if s == nil {
		return nil
	}

	router, err := s.buildRouter()
	if err != nil {
		return err
	}

	s.httpServer = &http.Server{
		Addr:    s.cfg.Listen,
		Handler: router,
	}

	s.log.WithFields(logger.Fields{"address": s.cfg.Listen}).Info("dashboard listening")

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		<-errCh
		return nil
	case err := <-errCh:
		return err
	}
}

// Address reports the network address the server listens on.
func (s *Server) Address() string {
	if s == nil {
		return ""
	}
	return s.cfg.Listen
}

func (s *Server) buildRouter() (*gin.Engine, error) {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	if err := router.SetTrustedProxies(nil); err != nil {
		return nil, err
	}

	router.GET("/api/healthz", func(c *gin.Context) {
		issues := gin.H{}
		for _, component := range []string{"stream", "poller", "refrate", "orchestrator"} {
			warns, errs := logger.IssueCounts(component)
			if warns > 0 || errs > 0 {
				issues[component] = gin.H{"warns": warns, "errors": errs}
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "issues": issues})
	})

	router.GET("/api/state", func(c *gin.Context) {
		c.JSON(http.StatusOK, s.store.Snapshot())
	})

	router.GET("/api/symbols", func(c *gin.Context) {
		payload := gin.H{}
		for _, class := range []market.AssetClass{
			market.ClassCrypto, market.ClassEquity, market.ClassForex,
			market.ClassTreasury, market.ClassFuture,
		} {
			payload[string(class)] = market.AllowedSymbols(class)
		}
		c.JSON(http.StatusOK, payload)
	})

	router.GET("/api/counters", func(c *gin.Context) {
		c.JSON(http.StatusOK, metrics.Snapshot())
	})

	router.POST("/api/select", func(c *gin.Context) {
		var req struct {
			Symbol string `json:"symbol"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		if err := s.selector.SelectSymbol(market.Symbol(req.Symbol)); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"selected": req.Symbol})
	})

	router.POST("/api/reconnect", func(c *gin.Context) {
		var req struct {
			Source string `json:"source"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		s.selector.Reconnect(market.Source(req.Source))
		c.JSON(http.StatusOK, gin.H{"source": req.Source})
	})

	return router, nil
}

func normalizeAddress(addr string) string {
	addr = strings.TrimSpace(addr)

	if addr == "" {
		return "0.0.0.0:8080"
	}

	if strings.HasPrefix(addr, ":") {
		if len(addr) > 1 && addr[1] >= '0' && addr[1] <= '9' {
			return "0.0.0.0" + addr
		}
	}

	host, port, err := net.SplitHostPort(addr)
	if err == nil {
		if host == "" || host == "*" {
			host = "0.0.0.0"
		}
		if port == "" {
			port = "8080"
		}
		return net.JoinHostPort(host, port)
	}

	if !strings.Contains(addr, ":") {
		return net.JoinHostPort(addr, "8080")
	}

	return addr
}
