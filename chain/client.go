// Package chain talks to an Ethereum JSON-RPC node: transaction receipts,
// block height and ERC-20 token queries.
package chain

import (
	"context"
	goerrors "errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/flow-hydraulics/token-wallet-ledger/errors"
	"github.com/jpillora/backoff"
	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const erc20ABI = `[
	{"constant":true,"inputs":[{"name":"owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"balance","type":"uint256"}],"type":"function"},
	{"constant":true,"inputs":[],"name":"decimals","outputs":[{"name":"","type":"uint8"}],"type":"function"},
	{"constant":true,"inputs":[],"name":"symbol","outputs":[{"name":"","type":"string"}],"type":"function"},
	{"constant":false,"inputs":[{"name":"to","type":"address"},{"name":"value","type":"uint256"}],"name":"transfer","outputs":[{"name":"","type":"bool"}],"type":"function"}
]`

var erc20 abi.ABI

func init() {
	parsed, err := abi.JSON(strings.NewReader(erc20ABI))
	if err != nil {
		panic(err)
	}
	erc20 = parsed
}

// Backend is the subset of *ethclient.Client the Client uses.
type Backend interface {
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	BlockNumber(ctx context.Context) (uint64, error)
	ChainID(ctx context.Context) (*big.Int, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// Receipt is the outcome of a mined transaction.
type Receipt struct {
	Success     bool
	BlockNumber uint64
}

type Client struct {
	backend Backend
	limiter *rate.Limiter
	closer  func()
}

type ClientOption func(*Client)

// WithRateLimit limits the rate of requests sent to the node.
func WithRateLimit(perSecond float64) ClientOption {
	return func(c *Client) {
		if perSecond > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
		}
	}
}

func NewClient(backend Backend, opts ...ClientOption) *Client {
	c := &Client{
		backend: backend,
		limiter: rate.NewLimiter(rate.Inf, 0),
		closer:  func() {},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Dial connects to the node at rawurl, retrying with an exponential backoff
// until the node answers or ctx is done.
func Dial(ctx context.Context, rawurl string, opts ...ClientOption) (*Client, error) {
	b := &backoff.Backoff{
		Min:    100 * time.Millisecond,
		Max:    10 * time.Second,
		Factor: 2,
		Jitter: true,
	}

	for {
		ec, err := ethclient.DialContext(ctx, rawurl)
		if err == nil {
			if _, err = ec.ChainID(ctx); err == nil {
				c := NewClient(ec, opts...)
				c.closer = ec.Close
				return c, nil
			}
			ec.Close()
		}

		if !errors.IsChainConnectionError(err) {
			return nil, fmt.Errorf("error while connecting to node: %w", err)
		}

		d := b.Duration()
		log.
			WithFields(log.Fields{"url": rawurl, "error": err, "retryIn": d}).
			Warn("Could not connect to node")

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("error while connecting to node: %w", ctx.Err())
		case <-time.After(d):
		}
	}
}

func (c *Client) Close() {
	c.closer()
}

// Receipt returns the receipt of the transaction hash, or nil when the
// transaction is not mined yet.
func (c *Client) Receipt(ctx context.Context, hash string) (*Receipt, error) {
	if !IsHash(hash) {
		return nil, errors.NewValidationError("hash", "%q is not a transaction hash", hash)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &errors.ProviderUnavailable{Op: "receipt", Err: err}
	}

	r, err := c.backend.TransactionReceipt(ctx, common.HexToHash(hash))
	if goerrors.Is(err, ethereum.NotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, &errors.ProviderUnavailable{Op: "receipt", Err: err}
	}

	receipt := &Receipt{Success: r.Status == types.ReceiptStatusSuccessful}
	if r.BlockNumber != nil {
		receipt.BlockNumber = r.BlockNumber.Uint64()
	}

	return receipt, nil
}

func (c *Client) CurrentBlockHeight(ctx context.Context) (uint64, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, &errors.ProviderUnavailable{Op: "block height", Err: err}
	}

	height, err := c.backend.BlockNumber(ctx)
	if err != nil {
		return 0, &errors.ProviderUnavailable{Op: "block height", Err: err}
	}

	return height, nil
}

func (c *Client) ChainID(ctx context.Context) (uint64, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, &errors.ProviderUnavailable{Op: "chain id", Err: err}
	}

	id, err := c.backend.ChainID(ctx)
	if err != nil {
		return 0, &errors.ProviderUnavailable{Op: "chain id", Err: err}
	}

	return id.Uint64(), nil
}

// TokenBalance returns the balance of owner in the ERC-20 contract token, in
// base units.
func (c *Client) TokenBalance(ctx context.Context, token, owner string) (*big.Int, error) {
	if !IsAddress(owner) {
		return nil, errors.NewValidationError("owner", "%q is not an address", owner)
	}

	out, err := c.call(ctx, token, "balanceOf", common.HexToAddress(owner))
	if err != nil {
		return nil, err
	}

	balance, ok := out[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected balanceOf result %T", out[0])
	}

	return balance, nil
}

func (c *Client) TokenDecimals(ctx context.Context, token string) (uint8, error) {
	out, err := c.call(ctx, token, "decimals")
	if err != nil {
		return 0, err
	}

	decimals, ok := out[0].(uint8)
	if !ok {
		return 0, fmt.Errorf("unexpected decimals result %T", out[0])
	}

	return decimals, nil
}

func (c *Client) call(ctx context.Context, token, method string, args ...interface{}) ([]interface{}, error) {
	if !IsAddress(token) {
		return nil, errors.NewValidationError("token", "%q is not an address", token)
	}

	data, err := erc20.Pack(method, args...)
	if err != nil {
		return nil, err
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &errors.ProviderUnavailable{Op: method, Err: err}
	}

	to := common.HexToAddress(token)
	res, err := c.backend.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	if err != nil {
		return nil, &errors.ProviderUnavailable{Op: method, Err: err}
	}

	out, err := erc20.Unpack(method, res)
	if err != nil {
		return nil, fmt.Errorf("error while decoding %s result: %w", method, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("empty %s result", method)
	}

	return out, nil
}
