package dex

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"poolBook/internal/model"
)

// ContractCaller is the read transport needed for metadata loading.
// *chain.Client satisfies it.
type ContractCaller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// MetadataLoader reads token addresses and decimal precision for a
// resolved pool. Results are cached for the lifetime of the loader;
// all reads are required, so any failure is fatal to the load.
type MetadataLoader struct {
	caller ContractCaller
	logger *zap.Logger

	mu    sync.RWMutex
	cache map[common.Address]model.PoolMeta
}

// NewMetadataLoader builds a loader on top of the read transport.
func NewMetadataLoader(caller ContractCaller, logger *zap.Logger) *MetadataLoader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MetadataLoader{
		caller: caller,
		logger: logger,
		cache:  make(map[common.Address]model.PoolMeta),
	}
}

// Load returns the pool metadata, fetching it on first use. Token
// address reads run concurrently, then the dependent decimals reads.
func (l *MetadataLoader) Load(ctx context.Context, pool common.Address) (model.PoolMeta, error) {
	l.mu.RLock()
	meta, ok := l.cache[pool]
	l.mu.RUnlock()
	if ok {
		return meta, nil
	}

	poolABI, err := V3PoolABI()
	if err != nil {
		return model.PoolMeta{}, fmt.Errorf("parse pool abi: %w", err)
	}

	var (
		token0, token1 common.Address
		fee            uint32
		tickSpacing    int32
	)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		var err error
		token0, err = l.callAddress(groupCtx, pool, poolABI, "token0")
		return err
	})
	group.Go(func() error {
		var err error
		token1, err = l.callAddress(groupCtx, pool, poolABI, "token1")
		return err
	})
	group.Go(func() error {
		values, err := l.callPoolMethod(groupCtx, pool, poolABI, "fee")
		if err != nil {
			return err
		}
		feeInt, err := asBigInt(values[0])
		if err != nil {
			return fmt.Errorf("fee: %w", err)
		}
		fee = uint32(feeInt.Uint64())
		return nil
	})
	group.Go(func() error {
		values, err := l.callPoolMethod(groupCtx, pool, poolABI, "tickSpacing")
		if err != nil {
			return err
		}
		spacingInt, err := asBigInt(values[0])
		if err != nil {
			return fmt.Errorf("tick spacing: %w", err)
		}
		tickSpacing, err = int24FromBig(spacingInt)
		if err != nil {
			return fmt.Errorf("tick spacing: %w", err)
		}
		return nil
	})
	if err := group.Wait(); err != nil {
		return model.PoolMeta{}, err
	}
	if tickSpacing <= 0 {
		return model.PoolMeta{}, fmt.Errorf("invalid tick spacing: %d", tickSpacing)
	}

	var meta0, meta1 model.TokenMeta
	group, groupCtx = errgroup.WithContext(ctx)
	group.Go(func() error {
		var err error
		meta0, err = l.fetchTokenMeta(groupCtx, token0)
		return err
	})
	group.Go(func() error {
		var err error
		meta1, err = l.fetchTokenMeta(groupCtx, token1)
		return err
	})
	if err := group.Wait(); err != nil {
		return model.PoolMeta{}, err
	}

	meta = model.PoolMeta{
		Address:     pool.Hex(),
		Token0:      meta0,
		Token1:      meta1,
		Fee:         fee,
		TickSpacing: tickSpacing,
	}

	l.mu.Lock()
	l.cache[pool] = meta
	l.mu.Unlock()

	return meta, nil
}

func (l *MetadataLoader) callAddress(ctx context.Context, pool common.Address, poolABI abi.ABI, method string) (common.Address, error) {
	values, err := l.callPoolMethod(ctx, pool, poolABI, method)
	if err != nil {
		return common.Address{}, err
	}
	addr, err := asAddress(values[0])
	if err != nil {
		return common.Address{}, fmt.Errorf("%s: %w", method, err)
	}
	return addr, nil
}

func (l *MetadataLoader) callPoolMethod(ctx context.Context, pool common.Address, poolABI abi.ABI, method string) ([]interface{}, error) {
	data, err := poolABI.Pack(method)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	msg := ethereum.CallMsg{To: &pool, Data: data}
	resp, err := l.caller.CallContract(ctx, msg, nil)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}
	values, err := poolABI.Unpack(method, resp)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	return values, nil
}

// fetchTokenMeta reads decimals (required) and symbol (best effort).
func (l *MetadataLoader) fetchTokenMeta(ctx context.Context, token common.Address) (model.TokenMeta, error) {
	meta := model.TokenMeta{Address: token.Hex()}

	stringABI, err := erc20ABIStringInstance()
	if err != nil {
		return meta, fmt.Errorf("parse erc20 string abi: %w", err)
	}
	bytes32ABI, err := erc20ABIBytes32Instance()
	if err != nil {
		return meta, fmt.Errorf("parse erc20 bytes32 abi: %w", err)
	}

	call := func(method string, parsed abi.ABI) ([]interface{}, error) {
		data, err := parsed.Pack(method)
		if err != nil {
			return nil, fmt.Errorf("pack %s: %w", method, err)
		}
		msg := ethereum.CallMsg{To: &token, Data: data}
		resp, err := l.caller.CallContract(ctx, msg, nil)
		if err != nil {
			return nil, fmt.Errorf("call %s: %w", method, err)
		}
		values, err := parsed.Unpack(method, resp)
		if err != nil {
			return nil, fmt.Errorf("unpack %s: %w", method, err)
		}
		return values, nil
	}

	values, err := call("decimals", stringABI)
	if err != nil {
		return meta, fmt.Errorf("token %s decimals: %w", token.Hex(), err)
	}
	decimals, err := asUint8(values[0])
	if err != nil {
		return meta, fmt.Errorf("token %s decimals: %w", token.Hex(), err)
	}
	meta.Decimals = decimals

	if values, err := call("symbol", stringABI); err == nil {
		if symbol, ok := values[0].(string); ok {
			meta.Symbol = symbol
		}
	} else if values, err := call("symbol", bytes32ABI); err == nil {
		if symbol, ok := bytes32ToString(values[0]); ok {
			meta.Symbol = symbol
		}
	} else {
		l.logger.Debug("symbol call failed", zap.String("token", token.Hex()), zap.Error(err))
	}

	return meta, nil
}
