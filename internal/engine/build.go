package engine

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/aman-zulfiqar/solana-reward-engine/internal/analytics"
	"github.com/aman-zulfiqar/solana-reward-engine/internal/config"
	"github.com/aman-zulfiqar/solana-reward-engine/internal/holders"
	"github.com/aman-zulfiqar/solana-reward-engine/internal/ledger"
	"github.com/aman-zulfiqar/solana-reward-engine/internal/notify"
	"github.com/aman-zulfiqar/solana-reward-engine/internal/raydium"
	"github.com/aman-zulfiqar/solana-reward-engine/internal/rpc"
	"github.com/aman-zulfiqar/solana-reward-engine/internal/store"
	"github.com/aman-zulfiqar/solana-reward-engine/internal/wallet"
)

// Engine bundles the wired components for the binaries.
type Engine struct {
	Config    *config.Config
	Wallet    *wallet.Wallet
	Ledger    ledger.Client
	State     *store.State
	Cache     *holders.Cache
	Runner    *Runner
	Scheduler *Scheduler
	Notifier  *notify.RedisNotifier
	Logger    *logrus.Logger

	closers []func() error
}

// NewFromConfig wires the full engine: wallet, ledger client, store, holder
// cache, harvester, swap executor, distributor, sinks, and the scheduler.
// Redis and ClickHouse are optional; everything else is required.
func NewFromConfig(cfg *config.Config, logger *logrus.Logger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logrus.New()
	}

	mint, err := solana.PublicKeyFromBase58(cfg.TokenMint)
	if err != nil {
		return nil, fmt.Errorf("invalid token mint: %w", err)
	}

	w, err := wallet.NewWallet(wallet.WalletConfig{
		RPCURL:            cfg.RPCUrl,
		Timeout:           cfg.HTTPTimeout,
		MaxRetries:        cfg.MaxRetries,
		RetryBackoff:      cfg.RetryBackoff,
		RequestsPerSecond: cfg.RequestsPerSecond,
		PrivateKey:        cfg.WalletPrivateKey,
	})
	if err != nil {
		return nil, err
	}

	rpcClient := rpc.NewClient(rpc.ClientConfig{
		BaseURL:           cfg.RPCUrl,
		Timeout:           cfg.HTTPTimeout,
		MaxRetries:        cfg.MaxRetries,
		RetryBackoff:      cfg.RetryBackoff,
		RequestsPerSecond: cfg.RequestsPerSecond,
		Logger:            logger,
	})
	lc := ledger.NewRPCClient(rpcClient, logger)

	eng := &Engine{Config: cfg, Wallet: w, Ledger: lc, Logger: logger}

	var st store.Store
	if cfg.RedisAddr != "" {
		rclient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, DB: 0})
		if err := rclient.Ping(context.Background()).Err(); err != nil {
			return nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
		st, err = store.NewRedisStore(rclient)
		if err != nil {
			return nil, err
		}
		logger.WithField("addr", cfg.RedisAddr).Info("using Redis state store")
	} else {
		st, err = store.NewFileStore(cfg.StateDir)
		if err != nil {
			return nil, err
		}
		logger.WithField("dir", cfg.StateDir).Info("using file state store")
	}
	eng.closers = append(eng.closers, st.Close)
	eng.State = store.NewState(st)

	swapper := NewSwapExecutor(SwapExecutorConfig{
		Wallet:            w,
		Ledger:            lc,
		Index:             raydium.NewIndexClient(cfg.PoolIndexURL),
		Logger:            logger,
		PoolID:            cfg.PoolID,
		Mint:              mint,
		SlippageBps:       cfg.SlippageBps,
		MinOutFloor:       cfg.MinSwapOutFloor,
		RequireSimulation: cfg.RequireSimulation,
	})

	eng.Cache = holders.NewCache(holders.CacheConfig{
		Source:     holders.NewRPCSource(rpcClient, mint, cfg.Blacklist),
		State:      eng.State,
		Interval:   cfg.EligibilityInterval,
		MinHold:    cfg.MinHoldRaw,
		MinHoldSOL: cfg.MinHoldSOL,
		SolMode:    cfg.Mode == config.ModeSOL,
		Rate:       swapper.Rate,
		Logger:     logger,
	})

	distributor := NewDistributor(DistributorConfig{
		Payer:              w,
		State:              eng.State,
		Logger:             logger,
		SecondaryRecipient: cfg.SecondaryRecipient,
		SecondaryShareBps:  cfg.SecondaryShareBps,
	})

	var sinks []EventSink
	if cfg.RedisAddr != "" {
		notifier, err := notify.NewRedisNotifier(cfg.RedisAddr, logger)
		if err != nil {
			logger.WithError(err).Warn("redis notifier unavailable")
		} else {
			eng.Notifier = notifier
			eng.closers = append(eng.closers, notifier.Close)
			sinks = append(sinks, notifier)
		}
	}
	if cfg.ClickHouseAddr != "" {
		ch, err := analytics.NewClickHouseSink(analytics.ClickHouseConfig{
			Addr:     cfg.ClickHouseAddr,
			Database: cfg.ClickHouseDatabase,
			Username: cfg.ClickHouseUsername,
			Password: cfg.ClickHousePassword,
			Logger:   logger,
		})
		if err != nil {
			logger.WithError(err).Warn("clickhouse sink unavailable")
		} else {
			eng.closers = append(eng.closers, ch.Close)
			sinks = append(sinks, ch)
		}
	}

	eng.Runner = NewRunner(RunnerConfig{
		Config:      cfg,
		Ledger:      lc,
		Cache:       eng.Cache,
		State:       eng.State,
		Logger:      logger,
		Harvester:   NewHarvester(w, mint, logger),
		Swapper:     swapper,
		Distributor: distributor,
		Sinks:       sinks,
		Mint:        mint,
	})
	eng.Scheduler = NewScheduler(eng.Runner, cfg.EpochInterval, logger)

	return eng, nil
}

func (e *Engine) Close() error {
	var first error
	for i := len(e.closers) - 1; i >= 0; i-- {
		if err := e.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	return first
}
