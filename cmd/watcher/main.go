package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"poolBook/internal/book"
	"poolBook/internal/chain"
	"poolBook/internal/config"
	"poolBook/internal/dex"
	"poolBook/internal/listener"
	"poolBook/internal/logging"
	"poolBook/internal/model"
	"poolBook/internal/registry"
	"poolBook/internal/storage"
)

func main() {
	root := &cobra.Command{
		Use:          "watcher",
		Short:        "Live AMM pool price and order-book watcher",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "Stream swap prices and periodic order-book snapshots",
		RunE:  runWatch,
	}
	addMarketFlags(watchCmd)
	watchCmd.Flags().Duration("refresh-interval", 0, "periodic order-book refresh (0 disables)")
	watchCmd.Flags().String("out", "", "optional JSONL feed dump path")

	root.AddCommand(watchCmd)

	bookCmd := &cobra.Command{
		Use:   "book",
		Short: "Reconstruct a single order-book snapshot and print it",
		RunE:  runBook,
	}
	addMarketFlags(bookCmd)

	root.AddCommand(bookCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func addMarketFlags(cmd *cobra.Command) {
	cmd.Flags().Uint64("chain-id", 1, "chain ID to watch")
	cmd.Flags().String("rpc", "", "websocket RPC URL (overrides configured endpoint)")
	cmd.Flags().String("market-contract", "", "market registry contract address")
	cmd.Flags().String("market-id", "", "market identifier")
	cmd.Flags().Int("window-size", 50, "tick spacings sampled per book side")
	cmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
	cmd.Flags().String("log-file", "", "optional rotated log file path")
}

func loadConfig(cmd *cobra.Command) (config.Config, *zap.Logger, error) {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return config.Config{}, nil, err
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		return config.Config{}, nil, err
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, nil, err
	}
	if !common.IsHexAddress(cfg.MarketContract) {
		return config.Config{}, nil, fmt.Errorf("market contract %q is not a hex address", cfg.MarketContract)
	}
	return cfg, logger, nil
}

// connect dials the configured endpoint and checks the node serves the
// expected chain.
func connect(ctx context.Context, cfg config.Config, logger *zap.Logger) (*chain.Client, error) {
	endpoint, err := cfg.Endpoint()
	if err != nil {
		return nil, err
	}
	client, err := chain.NewClient(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("connect rpc: %w", err)
	}
	chainID, err := client.GetChainID(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("query chain id: %w", err)
	}
	if chainID.Uint64() != cfg.ChainID {
		client.Close()
		return nil, fmt.Errorf("endpoint serves chain %s, configured chain is %d", chainID, cfg.ChainID)
	}
	logger.Info("connected", zap.String("endpoint", endpoint), zap.Uint64("chain_id", cfg.ChainID))
	return client, nil
}

func runWatch(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := connect(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer client.Close()

	decoder, err := dex.NewSwapDecoder()
	if err != nil {
		return err
	}

	l, err := listener.New(
		listener.Config{
			ChainID:         cfg.ChainID,
			MarketID:        cfg.MarketID,
			WindowSize:      cfg.WindowSize,
			RefreshInterval: cfg.RefreshInterval,
		},
		listener.Deps{
			Resolver: registry.NewResolver(client, common.HexToAddress(cfg.MarketContract)),
			Metadata: dex.NewMetadataLoader(client, logger),
			State: listener.StateReaderFunc(func(ctx context.Context, pool common.Address, meta model.PoolMeta) (model.PoolState, error) {
				return dex.FetchPoolState(ctx, client, pool, meta)
			}),
			Sampler:    book.NewSampler(client, logger),
			Subscriber: client,
			Decoder:    decoder,
			Logger:     logger,
		},
	)
	if err != nil {
		return err
	}

	var feed storage.Feed
	if cfg.Out != "" {
		feed = storage.NewJsonlFeed(cfg.Out)
	}

	l.OnPriceUpdate(func(u model.PriceUpdate) {
		logger.Info("price",
			zap.String("market_id", u.MarketID),
			zap.String("price", u.Price.String()),
			zap.Int32("tick", u.Event.Tick))
		putRecord(feed, storage.PriceRecord(u), logger)
	})
	l.OnBookUpdate(func(u model.BookUpdate) {
		logger.Info("order book",
			zap.String("market_id", u.MarketID),
			zap.Int32("mid_tick", u.Book.MidTick),
			zap.String("mid_price", u.Book.MidPrice.String()),
			zap.Int("bids", len(u.Book.Bids)),
			zap.Int("asks", len(u.Book.Asks)))
		putRecord(feed, storage.BookRecord(u), logger)
	})
	l.OnError(func(n model.ErrorNote) {
		putRecord(feed, storage.ErrorRecord(n), logger)
	})

	if err := l.Start(ctx); err != nil {
		return err
	}

	<-ctx.Done()
	l.Stop()
	return nil
}

// runBook performs a one-shot reconstruction over the same pipeline:
// resolve, load metadata, read state, sample ticks, fold the ladder.
func runBook(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	client, err := connect(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer client.Close()

	resolver := registry.NewResolver(client, common.HexToAddress(cfg.MarketContract))
	pool, err := resolver.Resolve(ctx, cfg.MarketID)
	if err != nil {
		return fmt.Errorf("resolve market %s: %w", cfg.MarketID, err)
	}

	meta, err := dex.NewMetadataLoader(client, logger).Load(ctx, pool)
	if err != nil {
		return fmt.Errorf("load pool metadata: %w", err)
	}
	state, err := dex.FetchPoolState(ctx, client, pool, meta)
	if err != nil {
		return fmt.Errorf("read pool state: %w", err)
	}
	ticks, err := book.NewSampler(client, logger).Sample(ctx, pool, state.CurrentTick, state.TickSpacing, cfg.WindowSize)
	if err != nil {
		return fmt.Errorf("sample ticks: %w", err)
	}

	snapshot := book.Build(state, ticks, logger)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(snapshot)
}

func putRecord(feed storage.Feed, record storage.FeedRecord, logger *zap.Logger) {
	if feed == nil {
		return
	}
	if err := feed.PutRecord(record); err != nil {
		logger.Warn("feed write failed", zap.Error(err))
	}
}
