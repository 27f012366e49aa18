package gateway

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/totegamma/crtv-studio/internal/config"
)

// subset of the thirdweb ERC1155 drop contract
const erc1155ABIJSON = `[
	{"type":"function","name":"balanceOf","stateMutability":"view",
	 "inputs":[{"name":"account","type":"address"},{"name":"id","type":"uint256"}],
	 "outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"nextTokenIdToMint","stateMutability":"view",
	 "inputs":[],
	 "outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"lazyMint","stateMutability":"nonpayable",
	 "inputs":[{"name":"_amount","type":"uint256"},{"name":"_baseURIForTokens","type":"string"},{"name":"_data","type":"bytes"}],
	 "outputs":[{"name":"batchId","type":"uint256"}]},
	{"type":"function","name":"setTokenURI","stateMutability":"nonpayable",
	 "inputs":[{"name":"_tokenId","type":"uint256"},{"name":"_uri","type":"string"}],
	 "outputs":[]}
]`

var erc1155ABI = mustParseABI(erc1155ABIJSON)

func mustParseABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic(err)
	}
	return parsed
}

// Chain reads and writes the gating ERC1155 contract over JSON-RPC.
type Chain struct {
	rpc      *ethclient.Client
	contract common.Address
	chainID  *big.Int
	key      *ecdsa.PrivateKey
}

func NewChain(ctx context.Context, conf config.Chain) (*Chain, error) {
	rpc, err := ethclient.DialContext(ctx, conf.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("failed to dial rpc: %w", err)
	}

	if !common.IsHexAddress(conf.TokenContract) {
		return nil, fmt.Errorf("invalid token contract address %q", conf.TokenContract)
	}

	chain := &Chain{
		rpc:      rpc,
		contract: common.HexToAddress(conf.TokenContract),
		chainID:  big.NewInt(conf.ChainID),
	}

	if conf.PrivateKey != "" {
		key, err := crypto.HexToECDSA(strings.TrimPrefix(conf.PrivateKey, "0x"))
		if err != nil {
			return nil, fmt.Errorf("invalid chain private key: %w", err)
		}
		chain.key = key
	}

	return chain, nil
}

func (c *Chain) Address() string {
	return c.contract.Hex()
}

func (c *Chain) bound(address common.Address) *bind.BoundContract {
	return bind.NewBoundContract(address, erc1155ABI, c.rpc, c.rpc, c.rpc)
}

func (c *Chain) BalanceOf(ctx context.Context, contract, owner string, tokenID *big.Int) (*big.Int, error) {
	ctx, span := tracer.Start(ctx, "Gateway.Chain.BalanceOf")
	defer span.End()

	if !common.IsHexAddress(contract) || !common.IsHexAddress(owner) {
		return nil, fmt.Errorf("invalid address")
	}

	var out []any
	err := c.bound(common.HexToAddress(contract)).Call(&bind.CallOpts{Context: ctx}, &out, "balanceOf", common.HexToAddress(owner), tokenID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	return readUint256(out)
}

func (c *Chain) NextTokenIDToMint(ctx context.Context) (*big.Int, error) {
	ctx, span := tracer.Start(ctx, "Gateway.Chain.NextTokenIDToMint")
	defer span.End()

	var out []any
	err := c.bound(c.contract).Call(&bind.CallOpts{Context: ctx}, &out, "nextTokenIdToMint")
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	return readUint256(out)
}

func (c *Chain) transactor(ctx context.Context) (*bind.TransactOpts, error) {
	if c.key == nil {
		return nil, fmt.Errorf("chain private key is not configured")
	}
	opts, err := bind.NewKeyedTransactorWithChainID(c.key, c.chainID)
	if err != nil {
		return nil, err
	}
	opts.Context = ctx
	return opts, nil
}

// LazyMint reserves amount token ids sharing baseURI and returns the tx hash.
func (c *Chain) LazyMint(ctx context.Context, amount *big.Int, baseURI string) (string, error) {
	ctx, span := tracer.Start(ctx, "Gateway.Chain.LazyMint")
	defer span.End()

	opts, err := c.transactor(ctx)
	if err != nil {
		return "", err
	}

	tx, err := c.bound(c.contract).Transact(opts, "lazyMint", amount, baseURI, []byte{})
	if err != nil {
		span.RecordError(err)
		return "", err
	}
	return tx.Hash().Hex(), nil
}

func (c *Chain) SetTokenURI(ctx context.Context, tokenID *big.Int, uri string) (string, error) {
	ctx, span := tracer.Start(ctx, "Gateway.Chain.SetTokenURI")
	defer span.End()

	opts, err := c.transactor(ctx)
	if err != nil {
		return "", err
	}

	tx, err := c.bound(c.contract).Transact(opts, "setTokenURI", tokenID, uri)
	if err != nil {
		span.RecordError(err)
		return "", err
	}
	return tx.Hash().Hex(), nil
}

func readUint256(out []any) (*big.Int, error) {
	if len(out) != 1 {
		return nil, fmt.Errorf("unexpected output length %d", len(out))
	}
	value, ok := out[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected output type %T", out[0])
	}
	return value, nil
}
