package dex

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

func TestSwapDecoderDecode(t *testing.T) {
	poolABI, err := V3PoolABI()
	if err != nil {
		t.Fatalf("abi parse: %v", err)
	}

	decoder, err := NewSwapDecoder()
	if err != nil {
		t.Fatalf("decoder: %v", err)
	}

	sender := common.HexToAddress("0x2222222222222222222222222222222222222222")
	recipient := common.HexToAddress("0x3333333333333333333333333333333333333333")

	sqrtPrice, _ := new(big.Int).SetString("79228162514264337593543950336", 10)
	data, err := poolABI.Events["Swap"].Inputs.NonIndexed().Pack(
		big.NewInt(-1000),
		big.NewInt(2000),
		sqrtPrice,
		big.NewInt(987654321),
		big.NewInt(-15),
	)
	if err != nil {
		t.Fatalf("pack swap: %v", err)
	}

	log := types.Log{
		Address: common.HexToAddress("0x1111111111111111111111111111111111111111"),
		Topics: []common.Hash{
			decoder.Topic0(),
			common.BytesToHash(sender.Bytes()),
			common.BytesToHash(recipient.Bytes()),
		},
		Data: data,
	}

	swap, err := decoder.Decode(log)
	if err != nil {
		t.Fatalf("decode swap: %v", err)
	}

	if swap.Amount0 != "-1000" || swap.Amount1 != "2000" {
		t.Fatalf("amounts mismatch: %+v", swap)
	}
	if swap.SqrtPriceX96 != sqrtPrice.String() {
		t.Fatalf("sqrt price mismatch: %s", swap.SqrtPriceX96)
	}
	if swap.Tick != -15 {
		t.Fatalf("tick mismatch: %d", swap.Tick)
	}
	if swap.Sender != sender.Hex() || swap.Recipient != recipient.Hex() {
		t.Fatalf("address mismatch")
	}
}

func TestSwapDecoderRejectsWrongTopics(t *testing.T) {
	decoder, err := NewSwapDecoder()
	if err != nil {
		t.Fatalf("decoder: %v", err)
	}

	if _, err := decoder.Decode(types.Log{Topics: []common.Hash{decoder.Topic0()}}); err == nil {
		t.Fatalf("expected error for missing indexed topics")
	}

	wrong := types.Log{Topics: []common.Hash{{0x01}, {0x02}, {0x03}}}
	if _, err := decoder.Decode(wrong); err == nil {
		t.Fatalf("expected error for foreign topic0")
	}
}

func TestTicksCallRoundTrip(t *testing.T) {
	poolABI, err := V3PoolABI()
	if err != nil {
		t.Fatalf("abi parse: %v", err)
	}

	if _, err := PackTicksCall(-887272); err != nil {
		t.Fatalf("pack ticks: %v", err)
	}

	liquidityNet, _ := new(big.Int).SetString("-29651014881301328537", 10)
	output, err := poolABI.Methods["ticks"].Outputs.Pack(
		new(big.Int).Abs(liquidityNet),
		liquidityNet,
		big.NewInt(0),
		big.NewInt(0),
		big.NewInt(0),
		big.NewInt(0),
		uint32(0),
		true,
	)
	if err != nil {
		t.Fatalf("pack outputs: %v", err)
	}

	net, initialized, err := UnpackTickLiquidity(output)
	if err != nil {
		t.Fatalf("unpack: %v", err)
	}
	if net.Cmp(liquidityNet) != 0 {
		t.Fatalf("liquidity net mismatch: %s", net)
	}
	if !initialized {
		t.Fatalf("initialized flag lost")
	}
}
