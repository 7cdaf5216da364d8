package registry

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"

	"poolBook/internal/dex"
)

type fakeCaller struct {
	resp []byte
	err  error
}

func (f *fakeCaller) CallContract(_ context.Context, _ ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	return f.resp, f.err
}

func packAddress(t *testing.T, addr common.Address) []byte {
	t.Helper()
	registryABI, err := dex.MarketRegistryABI()
	if err != nil {
		t.Fatalf("abi parse: %v", err)
	}
	out, err := registryABI.Methods["getPool"].Outputs.Pack(addr)
	if err != nil {
		t.Fatalf("pack output: %v", err)
	}
	return out
}

func TestResolve(t *testing.T) {
	pool := common.HexToAddress("0x4444444444444444444444444444444444444444")
	resolver := NewResolver(&fakeCaller{resp: packAddress(t, pool)}, common.HexToAddress("0x01"))

	got, err := resolver.Resolve(context.Background(), "eth-usdc-spot")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got != pool {
		t.Fatalf("pool mismatch: %s", got.Hex())
	}
}

func TestResolveZeroAddressInvalid(t *testing.T) {
	resolver := NewResolver(&fakeCaller{resp: packAddress(t, common.Address{})}, common.HexToAddress("0x01"))

	_, err := resolver.Resolve(context.Background(), "missing-market")
	if !errors.Is(err, ErrInvalidPoolAddress) {
		t.Fatalf("expected ErrInvalidPoolAddress, got %v", err)
	}
}

func TestResolveTransportError(t *testing.T) {
	resolver := NewResolver(&fakeCaller{err: errors.New("connection refused")}, common.HexToAddress("0x01"))

	if _, err := resolver.Resolve(context.Background(), "any"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestMarketKey(t *testing.T) {
	hexID := "0x00000000000000000000000000000000000000000000000000000000000000ff"
	key := MarketKey(hexID)
	if key[31] != 0xff {
		t.Fatalf("hex market id not used verbatim: %x", key)
	}

	a := MarketKey("eth-usdc-spot")
	b := MarketKey("eth-usdc-spot")
	c := MarketKey("btc-usdc-spot")
	if a != b {
		t.Fatalf("hashing not deterministic")
	}
	if a == c {
		t.Fatalf("distinct markets collided")
	}
}
