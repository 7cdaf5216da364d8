// Package listener coordinates the market lifecycle: pool resolution,
// metadata loading, live swap subscription, and derived price and
// order-book notifications.
package listener

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"poolBook/internal/book"
	"poolBook/internal/model"
	"poolBook/internal/pricing"
)

const (
	resubscribeBase = 2 * time.Second
	resubscribeMax  = 30 * time.Second

	eventBuffer = 256
)

// PoolResolver resolves a market identifier to a pool address.
type PoolResolver interface {
	Resolve(ctx context.Context, marketID string) (common.Address, error)
}

// MetadataLoader loads immutable pool metadata.
type MetadataLoader interface {
	Load(ctx context.Context, pool common.Address) (model.PoolMeta, error)
}

// StateReader reads the live pool state used for book reconstruction.
type StateReader interface {
	ReadState(ctx context.Context, pool common.Address, meta model.PoolMeta) (model.PoolState, error)
}

// StateReaderFunc adapts a function to StateReader.
type StateReaderFunc func(ctx context.Context, pool common.Address, meta model.PoolMeta) (model.PoolState, error)

func (f StateReaderFunc) ReadState(ctx context.Context, pool common.Address, meta model.PoolMeta) (model.PoolState, error) {
	return f(ctx, pool, meta)
}

// TickSampler samples per-tick liquidity around the current price.
type TickSampler interface {
	Sample(ctx context.Context, pool common.Address, centerTick, spacing int32, windowSize int) ([]model.TickLiquidity, error)
}

// LogSubscriber opens a push subscription for pool logs. *chain.Client
// satisfies it.
type LogSubscriber interface {
	SubscribeLogs(ctx context.Context, address common.Address, topic0 []common.Hash, ch chan<- types.Log) (ethereum.Subscription, error)
}

// SwapDecoder decodes raw swap logs.
type SwapDecoder interface {
	Topic0() common.Hash
	Decode(log types.Log) (model.SwapEventData, error)
}

// Config holds per-listener settings.
type Config struct {
	ChainID  uint64
	MarketID string

	// WindowSize is the number of spacings sampled per side for the
	// order book; zero selects book.DefaultWindowSize.
	WindowSize int

	// RefreshInterval enables timer-driven order-book refreshes when
	// positive; zero leaves refreshes caller-triggered only.
	RefreshInterval time.Duration
}

// Deps are the external collaborators of a listener.
type Deps struct {
	Resolver   PoolResolver
	Metadata   MetadataLoader
	State      StateReader
	Sampler    TickSampler
	Subscriber LogSubscriber
	Decoder    SwapDecoder
	Logger     *zap.Logger
}

// session is the mutable per-start state, exclusively owned by the
// listener that created it.
type session struct {
	id     string
	pool   common.Address
	meta   model.PoolMeta
	events chan types.Log
	cancel context.CancelFunc

	lastPrice decimal.Decimal
	hasPrice  bool
	lastBook  model.OrderBook
	hasBook   bool
}

// Listener is the market-listener state machine.
type Listener struct {
	cfg    Config
	deps   Deps
	logger *zap.Logger

	mu      sync.Mutex
	phase   Phase
	session *session

	priceHandlers []func(model.PriceUpdate)
	bookHandlers  []func(model.BookUpdate)
	errHandlers   []func(model.ErrorNote)

	refresh singleflight.Group
}

// New builds a listener in the created phase.
func New(cfg Config, deps Deps) (*Listener, error) {
	if cfg.MarketID == "" {
		return nil, fmt.Errorf("market id is required")
	}
	if deps.Resolver == nil || deps.Metadata == nil || deps.State == nil ||
		deps.Sampler == nil || deps.Subscriber == nil || deps.Decoder == nil {
		return nil, fmt.Errorf("all listener dependencies are required")
	}
	if cfg.WindowSize <= 0 {
		cfg.WindowSize = book.DefaultWindowSize
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Listener{cfg: cfg, deps: deps, logger: logger, phase: PhaseCreated}, nil
}

// OnPriceUpdate registers a price notification handler.
func (l *Listener) OnPriceUpdate(fn func(model.PriceUpdate)) {
	l.mu.Lock()
	l.priceHandlers = append(l.priceHandlers, fn)
	l.mu.Unlock()
}

// OnBookUpdate registers an order-book notification handler.
func (l *Listener) OnBookUpdate(fn func(model.BookUpdate)) {
	l.mu.Lock()
	l.bookHandlers = append(l.bookHandlers, fn)
	l.mu.Unlock()
}

// OnError registers an error notification handler.
func (l *Listener) OnError(fn func(model.ErrorNote)) {
	l.mu.Lock()
	l.errHandlers = append(l.errHandlers, fn)
	l.mu.Unlock()
}

// Phase returns the current lifecycle phase.
func (l *Listener) Phase() Phase {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.phase
}

// Start resolves the pool, loads metadata, and opens the live swap
// subscription. Valid from the created, stopped, and errored phases; a
// call while a start is in progress or a session is watching is a
// no-op. Fatal failures transition to the errored phase, are emitted
// once as an error notification, and are returned.
func (l *Listener) Start(ctx context.Context) error {
	l.mu.Lock()
	switch l.phase {
	case PhaseResolving, PhaseLoadingMetadata, PhaseSubscribing, PhaseWatching:
		l.mu.Unlock()
		return nil
	}
	l.phase = PhaseResolving
	l.mu.Unlock()

	l.logger.Info("resolving market",
		zap.String("market_id", l.cfg.MarketID), zap.Uint64("chain_id", l.cfg.ChainID))

	pool, err := l.deps.Resolver.Resolve(ctx, l.cfg.MarketID)
	if err != nil {
		return l.fail(PhaseResolving, fmt.Errorf("resolve market %s: %w", l.cfg.MarketID, err))
	}

	if !l.advance(PhaseLoadingMetadata) {
		return nil
	}
	meta, err := l.deps.Metadata.Load(ctx, pool)
	if err != nil {
		return l.fail(PhaseLoadingMetadata, fmt.Errorf("load pool metadata: %w", err))
	}

	if !l.advance(PhaseSubscribing) {
		return nil
	}
	events := make(chan types.Log, eventBuffer)
	sub, err := l.deps.Subscriber.SubscribeLogs(ctx, pool, []common.Hash{l.deps.Decoder.Topic0()}, events)
	if err != nil {
		return l.fail(PhaseSubscribing, fmt.Errorf("subscribe swaps: %w", err))
	}

	sessCtx, cancel := context.WithCancel(context.Background())
	sess := &session{
		id:     uuid.NewString(),
		pool:   pool,
		meta:   meta,
		events: events,
		cancel: cancel,
	}

	l.mu.Lock()
	if l.phase == PhaseStopped {
		// Stopped while starting: discard the session silently.
		l.mu.Unlock()
		sub.Unsubscribe()
		cancel()
		return nil
	}
	l.phase = PhaseWatching
	l.session = sess
	l.mu.Unlock()

	go l.run(sessCtx, sess, sub)
	if l.cfg.RefreshInterval > 0 {
		go l.refreshLoop(sessCtx)
	}

	l.logger.Info("watching pool",
		zap.String("pool", pool.Hex()),
		zap.String("session_id", sess.id),
		zap.String("token0", meta.Token0.Symbol),
		zap.String("token1", meta.Token1.Symbol),
		zap.Int32("tick_spacing", meta.TickSpacing))

	return nil
}

// Stop cancels the live subscription and transitions to stopped. Calls
// before start or after a stop are no-ops. Operations still in flight
// complete and their results are discarded.
func (l *Listener) Stop() {
	l.mu.Lock()
	if l.phase == PhaseCreated || l.phase == PhaseStopped {
		l.mu.Unlock()
		return
	}
	l.phase = PhaseStopped
	sess := l.session
	l.session = nil
	l.mu.Unlock()

	if sess != nil {
		sess.cancel()
	}
	l.logger.Info("listener stopped")
}

// MarketPrice returns the last derived price, or false before the
// first processed swap.
func (l *Listener) MarketPrice() (decimal.Decimal, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.session == nil || !l.session.hasPrice {
		return decimal.Decimal{}, false
	}
	return l.session.lastPrice, true
}

// OrderBook returns the last reconstructed book, or false before the
// first completed refresh.
func (l *Listener) OrderBook() (model.OrderBook, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.session == nil || !l.session.hasBook {
		return model.OrderBook{}, false
	}
	return l.session.lastBook, true
}

// RefreshOrderBook samples the tick window and rebuilds the ladder.
// Concurrent calls coalesce onto one in-flight batch of reads. A
// failure fails only this refresh and leaves the phase untouched.
func (l *Listener) RefreshOrderBook(ctx context.Context) (model.OrderBook, error) {
	l.mu.Lock()
	sess := l.session
	watching := l.phase == PhaseWatching
	l.mu.Unlock()
	if !watching || sess == nil {
		return model.OrderBook{}, ErrNotWatching
	}

	result, err, _ := l.refresh.Do("refresh", func() (interface{}, error) {
		state, err := l.deps.State.ReadState(ctx, sess.pool, sess.meta)
		if err != nil {
			return nil, fmt.Errorf("read pool state: %w", err)
		}
		ticks, err := l.deps.Sampler.Sample(ctx, sess.pool, state.CurrentTick, state.TickSpacing, l.cfg.WindowSize)
		if err != nil {
			return nil, fmt.Errorf("sample ticks: %w", err)
		}
		snapshot := book.Build(state, ticks, l.logger)

		l.mu.Lock()
		live := l.phase == PhaseWatching && l.session == sess
		if live {
			sess.lastBook = snapshot
			sess.hasBook = true
		}
		l.mu.Unlock()

		if live {
			l.emitBook(model.BookUpdate{
				Book:        snapshot,
				PoolAddress: sess.pool.Hex(),
				ChainID:     l.cfg.ChainID,
				MarketID:    l.cfg.MarketID,
				SessionID:   sess.id,
				Timestamp:   time.Now().UTC(),
			})
		}
		return snapshot, nil
	})
	if err != nil {
		l.logger.Warn("order book refresh failed", zap.Error(err))
		return model.OrderBook{}, err
	}
	return result.(model.OrderBook), nil
}

// run consumes swap logs and subscription faults for one session.
// Transport errors are reported and followed by a resubscribe; the
// phase stays watching throughout.
func (l *Listener) run(ctx context.Context, sess *session, sub ethereum.Subscription) {
	for {
		select {
		case <-ctx.Done():
			sub.Unsubscribe()
			return
		case lg := <-sess.events:
			l.handleLog(sess, lg)
		case err := <-sub.Err():
			sub.Unsubscribe()
			if ctx.Err() != nil {
				return
			}
			if err != nil {
				l.logger.Warn("swap subscription dropped", zap.Error(err))
				l.emitError(PhaseWatching, err)
			}
			next, ok := l.resubscribe(ctx, sess)
			if !ok {
				return
			}
			sub = next
		}
	}
}

func (l *Listener) resubscribe(ctx context.Context, sess *session) (ethereum.Subscription, bool) {
	delay := resubscribeBase
	for {
		sub, err := l.deps.Subscriber.SubscribeLogs(ctx, sess.pool, []common.Hash{l.deps.Decoder.Topic0()}, sess.events)
		if err == nil {
			l.logger.Info("swap subscription reestablished", zap.String("pool", sess.pool.Hex()))
			return sub, true
		}
		if ctx.Err() != nil {
			return nil, false
		}
		l.logger.Warn("resubscribe failed", zap.Error(err), zap.Duration("retry_in", delay))
		if !sleepCtx(ctx, delay) {
			return nil, false
		}
		delay *= 2
		if delay > resubscribeMax {
			delay = resubscribeMax
		}
	}
}

// handleLog derives the market price from one swap event and emits a
// price update. Malformed logs are logged and skipped.
func (l *Listener) handleLog(sess *session, lg types.Log) {
	swap, err := l.deps.Decoder.Decode(lg)
	if err != nil {
		l.logger.Warn("swap decode failed",
			zap.String("tx", lg.TxHash.Hex()), zap.Error(err))
		return
	}

	sqrtPrice, ok := new(big.Int).SetString(swap.SqrtPriceX96, 10)
	if !ok {
		l.logger.Warn("invalid sqrt price", zap.String("value", swap.SqrtPriceX96))
		return
	}
	price := pricing.PriceFromSqrtX96(sqrtPrice, sess.meta.Token0.Decimals, sess.meta.Token1.Decimals)

	l.mu.Lock()
	live := l.phase == PhaseWatching && l.session == sess
	if live {
		sess.lastPrice = price
		sess.hasPrice = true
	}
	l.mu.Unlock()
	if !live {
		return
	}

	l.emitPrice(model.PriceUpdate{
		Price:       price,
		Event:       swap,
		PoolAddress: sess.pool.Hex(),
		ChainID:     l.cfg.ChainID,
		MarketID:    l.cfg.MarketID,
		SessionID:   sess.id,
		Timestamp:   time.Now().UTC(),
	})
}

func (l *Listener) refreshLoop(ctx context.Context) {
	ticker := time.NewTicker(l.cfg.RefreshInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := l.RefreshOrderBook(ctx); err != nil {
				l.logger.Warn("timed refresh failed", zap.Error(err))
			}
		}
	}
}

// fail transitions to errored and reports the failure exactly once,
// both as the returned error and as a notification. Failures landing
// after a stop are discarded.
func (l *Listener) fail(phase Phase, err error) error {
	l.mu.Lock()
	if l.phase == PhaseStopped {
		l.mu.Unlock()
		return nil
	}
	l.phase = PhaseErrored
	l.mu.Unlock()

	l.logger.Error("listener failed", zap.String("phase", phase.String()), zap.Error(err))
	l.emitError(phase, err)
	return &Error{Phase: phase, Err: err}
}

// advance moves to the next start phase unless a stop won the race.
func (l *Listener) advance(to Phase) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.phase == PhaseStopped {
		return false
	}
	l.phase = to
	return true
}

func (l *Listener) emitPrice(update model.PriceUpdate) {
	for _, fn := range l.snapshotPriceHandlers() {
		fn(update)
	}
}

func (l *Listener) emitBook(update model.BookUpdate) {
	l.mu.Lock()
	handlers := append([]func(model.BookUpdate){}, l.bookHandlers...)
	l.mu.Unlock()
	for _, fn := range handlers {
		fn(update)
	}
}

func (l *Listener) emitError(phase Phase, err error) {
	note := model.ErrorNote{
		Message:   err.Error(),
		Phase:     phase.String(),
		Timestamp: time.Now().UTC(),
	}
	l.mu.Lock()
	handlers := append([]func(model.ErrorNote){}, l.errHandlers...)
	l.mu.Unlock()
	for _, fn := range handlers {
		fn(note)
	}
}

func (l *Listener) snapshotPriceHandlers() []func(model.PriceUpdate) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]func(model.PriceUpdate){}, l.priceHandlers...)
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	select {
	case <-ctx.Done():
		timer.Stop()
		return false
	case <-timer.C:
		return true
	}
}
