package main

import (
	"context"
	"flag"
	"math/big"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tokeneth/eth-gateway/internal/balance"
	"github.com/tokeneth/eth-gateway/internal/chainclient"
	"github.com/tokeneth/eth-gateway/internal/codec"
	"github.com/tokeneth/eth-gateway/internal/config"
	"github.com/tokeneth/eth-gateway/internal/httpapi"
	"github.com/tokeneth/eth-gateway/internal/ledger"
	"github.com/tokeneth/eth-gateway/internal/metrics"
	"github.com/tokeneth/eth-gateway/internal/middleware"
	"github.com/tokeneth/eth-gateway/internal/nonce"
	"github.com/tokeneth/eth-gateway/internal/noncecache"
	"github.com/tokeneth/eth-gateway/internal/notify"
	"github.com/tokeneth/eth-gateway/internal/skeleton"
	"github.com/tokeneth/eth-gateway/internal/submission"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the gateway's YAML configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	logger := setupLogger(&cfg.Logging)
	logger.Info().Msg("starting eth-gateway")

	m := metrics.New()

	led, err := ledger.Open(cfg.Database.Path, cfg.Database.MaxOpenConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open ledger database")
	}
	defer led.Close()
	logger.Info().Str("path", cfg.Database.Path).Msg("ledger database ready")

	dialCtx, cancelDial := context.WithTimeout(context.Background(), cfg.Server.ReadTimeout)
	defer cancelDial()
	chain, err := chainclient.Dial(dialCtx, cfg.Chain.RPCURL, m)
	if err != nil {
		logger.Fatal().Err(err).Str("rpc_url", cfg.Chain.RPCURL).Msg("failed to dial chain rpc")
	}
	defer chain.Close()
	logger.Info().Str("rpc_url", cfg.Chain.RPCURL).Msg("chain rpc connected")

	nonceCache := noncecache.New(cfg.NonceCache.TTL)
	cacheSampleCtx, cancelCacheSample := context.WithCancel(context.Background())
	defer cancelCacheSample()
	go sampleNonceCacheSize(cacheSampleCtx, nonceCache, m)

	var chainID *big.Int
	if cfg.Chain.ChainID != 0 {
		chainID = big.NewInt(cfg.Chain.ChainID)
	}
	defaultGasPrice, ok := new(big.Int).SetString(cfg.Chain.DefaultGasPriceWei, 10)
	if !ok {
		logger.Fatal().Str("default_gas_price_wei", cfg.Chain.DefaultGasPriceWei).Msg("invalid chain.default_gas_price_wei")
	}
	txCodec := codec.New(chainID, cfg.Chain.DefaultStartGas, defaultGasPrice)

	balances := balance.New(chain, led)
	nonces := nonce.New(chain, nonceCache)
	skeletons := skeleton.New(txCodec, nonces)
	pipeline := submission.New(txCodec, balances, nonces, chain, nonceCache, led, func(format string, args ...any) {
		logger.Error().Msgf(format, args...)
	}, m)
	registrar := notify.New(led)

	server := httpapi.New(chain, balances, skeletons, pipeline, registrar, led, logger)

	handler := setupRouter(cfg, server, logger, m)

	httpServer := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info().Str("addr", cfg.Server.Addr).Msg("http server starting")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("http server shutdown failed")
	}

	logger.Info().Msg("stopped gracefully")
}

// sampleNonceCacheSize periodically publishes the nonce hint cache's
// entry count to gateway_nonce_cache_size until ctx is canceled.
func sampleNonceCacheSize(ctx context.Context, cache *noncecache.Cache, m *metrics.Metrics) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.SetNonceCacheSize(cache.Len())
		}
	}
}

func setupLogger(cfg *config.LoggingConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	var logger zerolog.Logger
	if cfg.Format == "console" {
		logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout})
	} else {
		logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	}
	return logger
}

// setupRouter mounts the gateway's route table behind the shared
// middleware chain: request-ID tagging outermost (so even a panic in
// an inner layer is tagged), then panic recovery, the optional
// bearer-token identity extraction the submission pipeline and notify
// package read senderTokenId from, structured logging (which tags its
// lines with that identity once Auth has run), metrics, CORS, and
// rate limiting closest to the handler.
func setupRouter(cfg *config.Config, server *httpapi.Server, logger zerolog.Logger, m *metrics.Metrics) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/", server.Routes())
	mux.Handle("/metrics", promhttp.Handler())

	return middleware.Chain(
		mux,
		middleware.RequestID(),
		middleware.Recovery(logger),
		middleware.Auth([]byte(cfg.JWT.Secret)),
		middleware.Logging(logger),
		middleware.Metrics(m),
		middleware.CORS(cfg.CORS),
		middleware.RateLimit(cfg.RateLimit),
	)
}
