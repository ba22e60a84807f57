package httpapi

// server.go — read-only HTTP surface over the bot's in-memory state.
//
// Solo lectura: el API nunca muta el ledger ni dispara trades. Todo lo que
// expone sale del snapshot store, el executor y el storage.

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/CuongDuong2710/polymarket-arbitrage-bot/internal/application/executor"
	"github.com/CuongDuong2710/polymarket-arbitrage-bot/internal/application/monitor"
	"github.com/CuongDuong2710/polymarket-arbitrage-bot/internal/application/risk"
	"github.com/CuongDuong2710/polymarket-arbitrage-bot/internal/application/state"
	"github.com/CuongDuong2710/polymarket-arbitrage-bot/internal/ports"
	"github.com/gin-gonic/gin"
)

// Server expone el estado del bot por HTTP.
type Server struct {
	addr     string
	exchange ports.Exchange
	store    *state.Store
	ledger   *risk.Ledger
	executor *executor.Executor
	monitor  *monitor.Monitor
	storage  ports.Storage

	tradingEnabled bool
	mockMode       bool

	httpSrv *http.Server
}

// New construye el servidor. storage puede ser nil.
func New(
	addr string,
	exchange ports.Exchange,
	store *state.Store,
	ledger *risk.Ledger,
	exec *executor.Executor,
	mon *monitor.Monitor,
	storage ports.Storage,
	tradingEnabled, mockMode bool,
) *Server {
	return &Server{
		addr:           addr,
		exchange:       exchange,
		store:          store,
		ledger:         ledger,
		executor:       exec,
		monitor:        mon,
		storage:        storage,
		tradingEnabled: tradingEnabled,
		mockMode:       mockMode,
	}
}

// Router monta las rutas. Separado de Run para poder testear con httptest.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", s.handleHealth)

	api := r.Group("/api")
	{
		api.GET("/markets", s.handleMarkets)
		api.GET("/markets/trending", s.handleTrending)
		api.GET("/markets/:id/prices", s.handleMarketPrices)
		api.GET("/positions", s.handlePositions)
		api.GET("/trades/pending", s.handlePendingTrades)
		api.GET("/opportunities/history", s.handleOpportunityHistory)
	}
	return r
}

// Run arranca el servidor y bloquea hasta que ctx se cancela.
func (s *Server) Run(ctx context.Context) error {
	s.httpSrv = &http.Server{
		Addr:              s.addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http api listening", "addr", s.addr)
		errCh <- s.httpSrv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.httpSrv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
