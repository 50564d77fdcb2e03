// Package eth is the live registry ledger backend: a thin binding over the
// credential registry contract, submitted from the service operator account.
package eth

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"credverse/internal/ledger"
	"credverse/pkg/platform/sentinel"
)

// registryABI is the operator-pattern registry contract surface: the operator
// account submits on behalf of issuer identities, and the contract enforces
// per-issuer capability and anchor ownership.
const registryABI = `[
  {"type":"function","name":"registerIssuer","stateMutability":"nonpayable","inputs":[{"name":"issuer","type":"address"},{"name":"did","type":"string"},{"name":"domain","type":"string"}],"outputs":[]},
  {"type":"function","name":"revokeIssuer","stateMutability":"nonpayable","inputs":[{"name":"issuer","type":"address"}],"outputs":[]},
  {"type":"function","name":"anchorCredential","stateMutability":"nonpayable","inputs":[{"name":"issuer","type":"address"},{"name":"hash","type":"bytes32"}],"outputs":[]},
  {"type":"function","name":"revokeCredential","stateMutability":"nonpayable","inputs":[{"name":"issuer","type":"address"},{"name":"hash","type":"bytes32"},{"name":"reason","type":"string"}],"outputs":[]},
  {"type":"function","name":"getAnchorInfo","stateMutability":"view","inputs":[{"name":"hash","type":"bytes32"}],"outputs":[{"name":"submitter","type":"address"},{"name":"timestamp","type":"uint256"},{"name":"exists","type":"bool"},{"name":"revoked","type":"bool"}]},
  {"type":"function","name":"getIssuerInfo","stateMutability":"view","inputs":[{"name":"issuer","type":"address"}],"outputs":[{"name":"did","type":"string"},{"name":"domain","type":"string"},{"name":"registered","type":"bool"},{"name":"revoked","type":"bool"}]},
  {"type":"function","name":"isRevoked","stateMutability":"view","inputs":[{"name":"hash","type":"bytes32"}],"outputs":[{"name":"","type":"bool"}]}
]`

// ErrReceiptStatusFailed is returned when a mined transaction reverted.
var ErrReceiptStatusFailed = errors.New("receipt status is failed")

// Config tunes RPC behaviour.
type Config struct {
	ContractAddress common.Address
	PrivateKey      string
	RPCTimeout      time.Duration
	ReceiptTimeout  time.Duration
}

// Client implements ledger.Backend against an Ethereum registry contract.
type Client struct {
	eth      *ethclient.Client
	contract *bind.BoundContract
	key      *ecdsa.PrivateKey
	chainID  *big.Int
	cfg      Config
}

// Dial connects to the RPC endpoint and binds the registry contract.
func Dial(ctx context.Context, rpcURL string, cfg Config) (*Client, error) {
	ethClient, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dial ledger rpc: %w", err)
	}

	key, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.PrivateKey, "0x"))
	if err != nil {
		ethClient.Close()
		return nil, fmt.Errorf("parse operator key: %w", err)
	}

	chainID, err := ethClient.ChainID(ctx)
	if err != nil {
		ethClient.Close()
		return nil, fmt.Errorf("resolve chain id: %w", err)
	}

	parsed, err := abi.JSON(strings.NewReader(registryABI))
	if err != nil {
		ethClient.Close()
		return nil, fmt.Errorf("parse registry abi: %w", err)
	}

	return &Client{
		eth:      ethClient,
		contract: bind.NewBoundContract(cfg.ContractAddress, parsed, ethClient, ethClient, ethClient),
		key:      key,
		chainID:  chainID,
		cfg:      cfg,
	}, nil
}

func (c *Client) Configured() bool { return true }

// Close releases the RPC connection.
func (c *Client) Close() {
	c.eth.Close()
}

func (c *Client) RegisterIssuer(ctx context.Context, identity common.Address, did, domain string) (string, error) {
	return c.submit(ctx, "registerIssuer", identity, did, domain)
}

func (c *Client) RevokeIssuer(ctx context.Context, identity common.Address) (string, error) {
	return c.submit(ctx, "revokeIssuer", identity)
}

func (c *Client) Anchor(ctx context.Context, identity common.Address, digest common.Hash) (string, error) {
	return c.submit(ctx, "anchorCredential", identity, digest)
}

func (c *Client) Revoke(ctx context.Context, identity common.Address, digest common.Hash, reason string) (string, error) {
	return c.submit(ctx, "revokeCredential", identity, digest, reason)
}

func (c *Client) Verify(ctx context.Context, digest common.Hash) (ledger.VerifyResult, error) {
	var out []interface{}
	opts := &bind.CallOpts{Context: ctx}
	if err := c.contract.Call(opts, &out, "getAnchorInfo", digest); err != nil {
		return ledger.VerifyResult{}, fmt.Errorf("getAnchorInfo: %w", err)
	}

	submitter, _ := out[0].(common.Address)
	timestamp, _ := out[1].(*big.Int)
	exists, _ := out[2].(bool)
	revoked, _ := out[3].(bool)

	result := ledger.VerifyResult{
		Exists:    exists,
		Revoked:   revoked,
		Submitter: submitter,
	}
	if timestamp != nil && timestamp.Sign() > 0 {
		result.AnchoredAt = time.Unix(timestamp.Int64(), 0).UTC()
	}
	return result, nil
}

func (c *Client) IsRevoked(ctx context.Context, digest common.Hash) (bool, error) {
	var out []interface{}
	opts := &bind.CallOpts{Context: ctx}
	if err := c.contract.Call(opts, &out, "isRevoked", digest); err != nil {
		return false, fmt.Errorf("isRevoked: %w", err)
	}
	revoked, _ := out[0].(bool)
	return revoked, nil
}

func (c *Client) IssuerInfo(ctx context.Context, identity common.Address) (ledger.IssuerInfo, error) {
	var out []interface{}
	opts := &bind.CallOpts{Context: ctx}
	if err := c.contract.Call(opts, &out, "getIssuerInfo", identity); err != nil {
		return ledger.IssuerInfo{}, fmt.Errorf("getIssuerInfo: %w", err)
	}

	did, _ := out[0].(string)
	domain, _ := out[1].(string)
	registered, _ := out[2].(bool)
	revoked, _ := out[3].(bool)
	return ledger.IssuerInfo{
		Identity:   identity,
		DID:        did,
		Domain:     domain,
		Registered: registered,
		Revoked:    revoked,
	}, nil
}

// submit sends a state-mutating transaction and waits for its receipt. The
// transaction hash is the caller-visible ledger reference.
func (c *Client) submit(ctx context.Context, method string, args ...interface{}) (string, error) {
	auth, err := bind.NewKeyedTransactorWithChainID(c.key, c.chainID)
	if err != nil {
		return "", fmt.Errorf("create transactor: %w", err)
	}
	auth.Context = ctx

	tx, err := c.contract.Transact(auth, method, args...)
	if err != nil {
		return "", mapRevert(err)
	}

	receiptCtx, cancel := context.WithTimeout(ctx, c.cfg.ReceiptTimeout)
	defer cancel()

	receipt, err := bind.WaitMined(receiptCtx, c.eth, tx)
	if err != nil {
		return "", fmt.Errorf("wait receipt for %s: %w", method, err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return "", fmt.Errorf("%s: %w", method, ErrReceiptStatusFailed)
	}
	return tx.Hash().Hex(), nil
}

// mapRevert translates contract revert reasons into the sentinel set shared
// with the simulated backend, so the adapter's error mapping stays uniform.
func mapRevert(err error) error {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "AlreadyExists"), strings.Contains(msg, "AlreadyRegistered"):
		return fmt.Errorf("%w: %s", sentinel.ErrConflict, msg)
	case strings.Contains(msg, "AlreadyRevoked"):
		return fmt.Errorf("%w: %s", sentinel.ErrAlreadyRevoked, msg)
	case strings.Contains(msg, "IssuerRevoked"):
		return fmt.Errorf("%w: %s", sentinel.ErrIssuerRevoked, msg)
	case strings.Contains(msg, "UnauthorizedRevocation"):
		return fmt.Errorf("%w: %s", sentinel.ErrNotOwner, msg)
	case strings.Contains(msg, "NotFound"), strings.Contains(msg, "NotRegistered"):
		return fmt.Errorf("%w: %s", sentinel.ErrNotFound, msg)
	default:
		return err
	}
}
